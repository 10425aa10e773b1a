package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"issuepilot/internal/db"
	"issuepilot/internal/output"
)

var sessionCmd = &cobra.Command{
	Use:   "session <session-id>",
	Short: "Show an agent session, refreshing it from the agent",
	Long: `Show a stored agent session. When the agent API key is configured the
session is polled first and the stored copy is updated with the agent's
current status, confidence score, action plan and result.`,
	Args: cobra.ExactArgs(1),
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	session, err := db.GetSessionByToken(args[0])
	if err != nil {
		return err
	}

	if agentClient := buildAgentClient(); agentClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		status, err := agentClient.GetSessionStatus(ctx, session.SessionID)
		if err == nil {
			if status.Status != "" {
				session.Status = status.Status
			}
			if status.ConfidenceScore != nil {
				session.ConfidenceScore = status.ConfidenceScore
			}
			if status.ActionPlan != nil {
				session.ActionPlan = status.ActionPlan
			}
			if status.Result != nil {
				session.Result = status.Result
			}
			if err := db.SaveSession(session); err != nil {
				return err
			}
		}
	}

	output.New(IsJSONOutput()).Session(session)
	return nil
}
