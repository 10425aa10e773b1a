package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"issuepilot/internal/agent"
	"issuepilot/internal/db"
	"issuepilot/internal/models"
)

var executeCmd = &cobra.Command{
	Use:   "execute <issue-id>",
	Short: "Ask the agent to execute an issue's action plan",
	Long: `Create an execute session: the agent implements the solution based on
the action plan from the most recent scope session. The issue must have
been scoped first and the scope session must have produced an action plan.`,
	Args: cobra.ExactArgs(1),
	RunE: runExecute,
}

func init() {
	rootCmd.AddCommand(executeCmd)
}

func runExecute(cmd *cobra.Command, args []string) error {
	issue, err := lookupIssueArg(args[0])
	if err != nil {
		return err
	}

	scopeSession, err := db.LatestSession(issue.ID, models.KindScope)
	if err != nil {
		return err
	}
	if scopeSession == nil || !scopeSession.HasActionPlan() {
		return db.ErrActionPlanMissing
	}

	agentClient := buildAgentClient()
	if agentClient == nil {
		return fmt.Errorf("agent service not available (run 'issuepilot config agent' first)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	prompt := agent.ExecutePrompt(issue.Title, issue.Body, *scopeSession.ActionPlan, issue.Repository)
	sessionID, err := agentClient.CreateSession(ctx, prompt)
	if err != nil {
		return err
	}

	session, err := db.CreateSession(issue.ID, models.KindExecute, sessionID)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{
			"session_id": session.SessionID,
			"status":     session.Status,
			"issue_id":   issue.ID,
		})
	} else {
		fmt.Printf("Execute session created: %s (issue %d)\n", session.SessionID, issue.ID)
	}
	return nil
}
