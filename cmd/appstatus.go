package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"issuepilot/internal/output"
)

var appStatusCmd = &cobra.Command{
	Use:   "app-status",
	Short: "Check GitHub App credential health",
	Long: `Check whether GitHub App credentials are configured and working.

When credentials are present the installation is looked up through the
App's own identity, which exercises the full assertion-signing and
API path without minting an installation token.`,
	RunE: runAppStatus,
}

func init() {
	rootCmd.AddCommand(appStatusCmd)
}

func runAppStatus(cmd *cobra.Command, args []string) error {
	broker, err := buildBroker()
	if err != nil {
		return err
	}

	formatter := output.New(IsJSONOutput())

	if broker == nil {
		if IsJSONOutput() {
			OutputJSON(map[string]interface{}{"configured": false})
		} else {
			formatter.Info("GitHub App not configured (run 'issuepilot config github' with App credentials)")
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	installation, err := broker.Installation(ctx)
	if err != nil {
		if IsJSONOutput() {
			OutputJSON(map[string]interface{}{
				"configured": false,
				"app_id":     broker.AppID(),
				"error":      err.Error(),
			})
			return nil
		}
		return fmt.Errorf("GitHub App credentials configured but not working: %w", err)
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{
			"configured":           true,
			"app_id":               broker.AppID(),
			"installation_id":      broker.InstallationID(),
			"account":              installation.GetAccount().GetLogin(),
			"repository_selection": installation.GetRepositorySelection(),
		})
		return nil
	}

	formatter.Success("GitHub App credentials working")
	formatter.KeyValue("App ID", broker.AppID())
	formatter.KeyValue("Installation", strconv.FormatInt(broker.InstallationID(), 10))
	formatter.KeyValue("Account", installation.GetAccount().GetLogin())
	formatter.KeyValue("Repositories", installation.GetRepositorySelection())
	return nil
}
