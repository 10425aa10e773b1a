package cmd

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"issuepilot/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and webhook endpoint",
	Long: `Run the issuepilot HTTP server.

Endpoints:
  GET  /healthz                  Health probe
  GET  /issues/{owner}/{repo}    Fetch issues from GitHub and store them
  POST /issues/{id}/scope        Create a scope session for an issue
  POST /issues/{id}/execute      Create an execute session for an issue
  GET  /sessions/{id}            Poll an agent session and cache its state
  GET  /dashboard                All issues with sessions and pipeline state
  GET  /github-app-status        GitHub App credential health
  POST /webhook                  GitHub webhook receiver
  GET  /webhook/status           Webhook configuration status

Webhook signature verification is enabled when a webhook secret is
configured and skipped otherwise.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	github, err := buildGitHubClient()
	if err != nil {
		return fmt.Errorf("failed to build GitHub client: %w", err)
	}

	agentClient := buildAgentClient()
	if agentClient == nil {
		log.Printf("serve: agent API key not configured, scope/execute endpoints disabled")
	}

	broker, err := buildBroker()
	if err != nil {
		return fmt.Errorf("failed to build GitHub App broker: %w", err)
	}

	secret := GetWebhookSecret()
	if secret == "" {
		log.Printf("serve: webhook secret not configured, signature verification disabled")
	}

	server := api.NewServer(api.Config{
		GitHub:        github,
		Agent:         agentClient,
		Broker:        broker,
		WebhookSecret: secret,
	})

	httpServer := &http.Server{
		Addr:              serveAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("serve: listening on %s", serveAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
