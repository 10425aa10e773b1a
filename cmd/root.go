package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"issuepilot/internal/db"
)

var (
	Version    = "0.1.0"
	jsonOutput bool
)

// commandsExemptFromDB lists commands that don't require database initialization
var commandsExemptFromDB = map[string]bool{
	"version":    true,
	"help":       true,
	"completion": true,
}

var rootCmd = &cobra.Command{
	Use:   "issuepilot",
	Short: "issuepilot - GitHub issue scoping pipeline driven by an AI agent",
	Long: `issuepilot tracks GitHub issues through an automated scope/execute
pipeline backed by an external AI agent.

QUICK START:
  issuepilot config github --repo owner/repo   # Configure GitHub access
  issuepilot config agent                      # Store the agent API key
  issuepilot fetch owner/repo                  # Pull issues into the local database
  issuepilot scope <issue-id>                  # Ask the agent to scope an issue
  issuepilot execute <issue-id>                # Run the action plan
  issuepilot serve                             # Run the HTTP API and webhook endpoint

PIPELINE STATES: ready-to-scope, scope-in-progress, scope-complete
An issue regresses to ready-to-scope whenever it is modified after its
most recent scope session.

AUTHENTICATION: either a GitHub App (app ID + installation ID + private
key, exchanged for short-lived installation tokens) or a static personal
access token. Secrets live in the system keyring; environment variables
override.

JSON OUTPUT: Add --json flag to any command for machine-readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if commandsExemptFromDB[cmd.Name()] {
			return nil
		}
		return db.EnsureInitialized()
	},
}

func Execute() {
	defer db.CloseDB()

	if err := rootCmd.Execute(); err != nil {
		if jsonOutput {
			OutputJSON(map[string]interface{}{"error": true, "message": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.Version = Version
}

func OutputJSON(data interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(data)
}

func IsJSONOutput() bool {
	return jsonOutput
}
