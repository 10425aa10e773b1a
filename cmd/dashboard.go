package cmd

import (
	"github.com/spf13/cobra"

	"issuepilot/internal/db"
	"issuepilot/internal/models"
	"issuepilot/internal/output"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show all tracked issues with sessions and pipeline state",
	RunE:  runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	issues, err := db.ListIssues()
	if err != nil {
		return err
	}

	formatter := output.New(IsJSONOutput())

	if len(issues) == 0 {
		formatter.Info("No issues tracked yet (run 'issuepilot fetch' first)")
		return nil
	}

	if IsJSONOutput() {
		entries := make([]map[string]interface{}, 0, len(issues))
		for idx := range issues {
			issue := &issues[idx]
			lifecycle, err := issue.Lifecycle(db.SessionStore{})
			if err != nil {
				return err
			}
			scope, err := db.LatestSession(issue.ID, models.KindScope)
			if err != nil {
				return err
			}
			execute, err := db.LatestSession(issue.ID, models.KindExecute)
			if err != nil {
				return err
			}
			entries = append(entries, map[string]interface{}{
				"issue":           issue,
				"issue_state":     lifecycle,
				"scope_session":   scope,
				"execute_session": execute,
			})
		}
		OutputJSON(map[string]interface{}{
			"count":  len(entries),
			"issues": entries,
		})
		return nil
	}

	formatter.Section("Issues")
	for idx := range issues {
		issue := &issues[idx]
		lifecycle, err := issue.Lifecycle(db.SessionStore{})
		if err != nil {
			return err
		}
		formatter.IssueBrief(issue, lifecycle)

		scope, err := db.LatestSession(issue.ID, models.KindScope)
		if err != nil {
			return err
		}
		if scope != nil {
			formatter.KeyValue("    scope", scope.SessionID+" ("+scope.Status+")")
		}
		execute, err := db.LatestSession(issue.ID, models.KindExecute)
		if err != nil {
			return err
		}
		if execute != nil {
			formatter.KeyValue("    execute", execute.SessionID+" ("+execute.Status+")")
		}
	}
	return nil
}
