package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/zalando/go-keyring"

	"issuepilot/internal/agent"
	"issuepilot/internal/db"
	"issuepilot/internal/ghapp"
	"issuepilot/internal/ghclient"
	"issuepilot/internal/models"
)

// buildBroker assembles the GitHub App credential broker from the
// environment, config table and keyring. Returns (nil, nil) when App
// credentials are not configured; the caller falls back to token auth.
func buildBroker() (*ghapp.Broker, error) {
	appID := os.Getenv("GITHUB_APP_ID")
	if appID == "" {
		appID, _ = db.GetConfig(models.ConfigGitHubAppID)
	}

	installationRaw := os.Getenv("GITHUB_APP_INSTALLATION_ID")
	if installationRaw == "" {
		installationRaw, _ = db.GetConfig(models.ConfigGitHubInstallationID)
	}

	privateKey := os.Getenv("GITHUB_APP_PRIVATE_KEY")
	if privateKey == "" {
		privateKey, _ = keyring.Get(models.KeyringServiceName, models.KeyringAppPrivateKeyKey)
	}

	if appID == "" || installationRaw == "" || privateKey == "" {
		return nil, nil
	}

	installationID, err := strconv.ParseInt(installationRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid installation ID %q: %w", installationRaw, err)
	}

	broker, err := ghapp.New(ghapp.Config{
		AppID:          appID,
		PrivateKey:     privateKey,
		InstallationID: installationID,
	})
	if err != nil {
		return nil, err
	}
	return broker, nil
}

// buildGitHubClient picks App auth when configured, then the static token,
// then falls back to an unauthenticated client.
func buildGitHubClient() (*ghclient.Client, error) {
	broker, err := buildBroker()
	if err != nil {
		return nil, err
	}
	if broker != nil {
		return ghclient.New(ghclient.Config{Broker: broker}), nil
	}

	token, _ := GetGitHubToken()
	return ghclient.New(ghclient.Config{Token: token}), nil
}

// buildAgentClient returns nil when the agent API key is not configured;
// agent-dependent commands surface that to the user.
func buildAgentClient() *agent.Client {
	key, err := GetAgentAPIKey()
	if err != nil {
		return nil
	}
	client, err := agent.New(key)
	if err != nil {
		return nil
	}
	return client
}
