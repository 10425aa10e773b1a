package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"issuepilot/internal/db"
	"issuepilot/internal/models"
	"issuepilot/internal/output"
)

var (
	fetchState string
	fetchLimit int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [owner/repo]",
	Short: "Fetch issues from GitHub into the local database",
	Long: `Fetch issues from a GitHub repository and store them locally.

If no repository is given, the configured repository is used. Existing
issues are updated in place; pull requests are skipped. Each stored issue
is shown with its derived pipeline state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchState, "state", models.IssueStateOpen, "Issue state filter (open/closed/all)")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 10, "Maximum number of issues to store")
}

func runFetch(cmd *cobra.Command, args []string) error {
	repo := ""
	if len(args) > 0 {
		repo = args[0]
	} else {
		repo, _ = db.GetConfig(models.ConfigGitHubRepo)
	}
	if repo == "" {
		return fmt.Errorf("no repository given and none configured (run 'issuepilot config github' first)")
	}

	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid repository format '%s': expected 'owner/repo'", repo)
	}
	owner, repoName := parts[0], parts[1]

	client, err := buildGitHubClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	snapshots, err := client.ListIssues(ctx, owner, repoName, fetchState)
	if err != nil {
		return err
	}
	if fetchLimit > 0 && len(snapshots) > fetchLimit {
		snapshots = snapshots[:fetchLimit]
	}

	formatter := output.New(IsJSONOutput())

	if len(snapshots) == 0 {
		formatter.Info("No issues found")
		return nil
	}

	issues := make([]models.Issue, 0, len(snapshots))
	lifecycles := make([]string, 0, len(snapshots))
	for _, snapshot := range snapshots {
		issue, err := db.UpsertIssue(snapshot)
		if err != nil {
			return err
		}
		lifecycle, err := issue.Lifecycle(db.SessionStore{})
		if err != nil {
			return err
		}
		issues = append(issues, *issue)
		lifecycles = append(lifecycles, lifecycle)
	}

	formatter.IssueList(issues, lifecycles, fmt.Sprintf("Fetched from %s", repo))
	return nil
}
