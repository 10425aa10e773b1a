package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"issuepilot/internal/agent"
	"issuepilot/internal/db"
	"issuepilot/internal/models"
)

var scopeCmd = &cobra.Command{
	Use:   "scope <issue-id>",
	Short: "Ask the agent to scope an issue",
	Long: `Create a scope session: the agent analyzes the issue and produces a
confidence score and an action plan. Track progress with
'issuepilot session <session-id>'.`,
	Args: cobra.ExactArgs(1),
	RunE: runScope,
}

func init() {
	rootCmd.AddCommand(scopeCmd)
}

func runScope(cmd *cobra.Command, args []string) error {
	issue, err := lookupIssueArg(args[0])
	if err != nil {
		return err
	}

	agentClient := buildAgentClient()
	if agentClient == nil {
		return fmt.Errorf("agent service not available (run 'issuepilot config agent' first)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	prompt := agent.ScopePrompt(issue.Title, issue.Body, issue.Repository)
	sessionID, err := agentClient.CreateSession(ctx, prompt)
	if err != nil {
		return err
	}

	session, err := db.CreateSession(issue.ID, models.KindScope, sessionID)
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
		fmt.Printf("Scope session created: %s (issue %d)\n", session.SessionID, issue.ID)
	}
	return nil
}

// lookupIssueArg resolves a command-line issue reference (internal ID)
func lookupIssueArg(arg string) (*models.Issue, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid issue ID '%s'", arg)
	}
	issue, err := db.GetIssueByID(uint(id))
	if err != nil {
		return nil, fmt.Errorf("issue '%s' not found (use 'issuepilot dashboard' to see tracked issues)", arg)
	}
	return issue, nil
}
