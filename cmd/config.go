package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"issuepilot/internal/db"
	"issuepilot/internal/models"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage issuepilot configuration",
}

var configGitHubCmd = &cobra.Command{
	Use:   "github",
	Short: "Configure GitHub integration",
	Long: `Configure GitHub access for the pipeline.

Two authentication modes are supported:
  - GitHub App: set --app-id, --installation-id and --private-key-file.
    Requests exchange a short-lived App assertion for an installation token.
  - Personal Access Token: set --token. Used as a static fallback when App
    credentials are absent.

Secrets (token, private key, webhook secret) are stored in the system
keyring. Environment variables GITHUB_TOKEN, GITHUB_APP_ID,
GITHUB_APP_INSTALLATION_ID, GITHUB_APP_PRIVATE_KEY and
GITHUB_WEBHOOK_SECRET override stored values.`,
	RunE: runConfigGitHub,
}

var configAgentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Configure the agent service",
	Long: `Store the API key for the external agent service.

The key is stored in the system keyring. The AGENT_API_KEY environment
variable overrides the stored value.`,
	RunE: runConfigAgent,
}

var (
	configGitHubRepo           string
	configGitHubToken          string
	configGitHubAppID          string
	configGitHubInstallationID string
	configGitHubKeyFile        string
	configWebhookSecret        string
	configGitHubShow           bool
	configGitHubClear          bool

	configAgentKey   string
	configAgentClear bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGitHubCmd)
	configCmd.AddCommand(configAgentCmd)

	configGitHubCmd.Flags().StringVar(&configGitHubRepo, "repo", "", "GitHub repository (owner/repo)")
	configGitHubCmd.Flags().StringVar(&configGitHubToken, "token", "", "GitHub personal access token")
	configGitHubCmd.Flags().StringVar(&configGitHubAppID, "app-id", "", "GitHub App ID")
	configGitHubCmd.Flags().StringVar(&configGitHubInstallationID, "installation-id", "", "GitHub App installation ID")
	configGitHubCmd.Flags().StringVar(&configGitHubKeyFile, "private-key-file", "", "Path to the GitHub App private key (PEM)")
	configGitHubCmd.Flags().StringVar(&configWebhookSecret, "webhook-secret", "", "Webhook shared secret")
	configGitHubCmd.Flags().BoolVar(&configGitHubShow, "show", false, "Show current configuration")
	configGitHubCmd.Flags().BoolVar(&configGitHubClear, "clear", false, "Clear GitHub configuration")

	configAgentCmd.Flags().StringVar(&configAgentKey, "api-key", "", "Agent service API key")
	configAgentCmd.Flags().BoolVar(&configAgentClear, "clear", false, "Clear the stored agent API key")
}

func runConfigGitHub(cmd *cobra.Command, args []string) error {
	if configGitHubShow {
		return showGitHubConfig()
	}
	if configGitHubClear {
		return clearGitHubConfig()
	}

	if configGitHubRepo != "" || configGitHubToken != "" || configGitHubAppID != "" ||
		configGitHubInstallationID != "" || configGitHubKeyFile != "" || configWebhookSecret != "" {
		return configureGitHubNonInteractive()
	}

	return configureGitHubInteractive()
}

func showGitHubConfig() error {
	repo, _ := db.GetConfig(models.ConfigGitHubRepo)
	appID, _ := db.GetConfig(models.ConfigGitHubAppID)
	installationID, _ := db.GetConfig(models.ConfigGitHubInstallationID)

	tokenSet := configFlagSet(models.ConfigGitHubTokenSet)
	appKeySet := configFlagSet(models.ConfigGitHubAppKeySet)
	webhookSecretSet := configFlagSet(models.ConfigWebhookSecretSet)

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{
			"repository":         repo,
			"app_id":             appID,
			"installation_id":    installationID,
			"token_set":          tokenSet,
			"app_key_set":        appKeySet,
			"webhook_secret_set": webhookSecretSet,
		})
		return nil
	}

	fmt.Println("GitHub Configuration:")
	printConfigValue("Repository", repo)
	printConfigValue("App ID", appID)
	printConfigValue("Installation", installationID)
	printConfigSecret("Token", tokenSet)
	printConfigSecret("App Key", appKeySet)
	printConfigSecret("Webhook Secret", webhookSecretSet)
	return nil
}

func printConfigValue(name, value string) {
	if value == "" {
		value = "(not configured)"
	}
	fmt.Printf("  %-15s %s\n", name+":", value)
}

func printConfigSecret(name string, set bool) {
	value := "(not configured)"
	if set {
		value = "(stored in system keyring)"
	}
	fmt.Printf("  %-15s %s\n", name+":", value)
}

func configFlagSet(key string) bool {
	value, err := db.GetConfig(key)
	return err == nil && value == "true"
}

func clearGitHubConfig() error {
	db.GetDB().Where("key IN ?", []string{
		models.ConfigGitHubRepo,
		models.ConfigGitHubAppID,
		models.ConfigGitHubInstallationID,
		models.ConfigGitHubTokenSet,
		models.ConfigGitHubAppKeySet,
		models.ConfigWebhookSecretSet,
	}).Delete(&models.Config{})

	keyring.Delete(models.KeyringServiceName, models.KeyringGitHubTokenKey)
	keyring.Delete(models.KeyringServiceName, models.KeyringAppPrivateKeyKey)
	keyring.Delete(models.KeyringServiceName, models.KeyringWebhookSecretKey)

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, "message": "GitHub configuration cleared"})
	} else {
		fmt.Println("GitHub configuration cleared")
	}
	return nil
}

func configureGitHubNonInteractive() error {
	if configGitHubRepo != "" {
		if !strings.Contains(configGitHubRepo, "/") {
			return fmt.Errorf("repository must be in owner/repo format")
		}
		if err := db.SetConfig(models.ConfigGitHubRepo, configGitHubRepo); err != nil {
			return fmt.Errorf("failed to save repository: %w", err)
		}
	}

	if configGitHubAppID != "" {
		if err := db.SetConfig(models.ConfigGitHubAppID, configGitHubAppID); err != nil {
			return fmt.Errorf("failed to save app ID: %w", err)
		}
	}

	if configGitHubInstallationID != "" {
		if err := db.SetConfig(models.ConfigGitHubInstallationID, configGitHubInstallationID); err != nil {
			return fmt.Errorf("failed to save installation ID: %w", err)
		}
	}

	if configGitHubToken != "" {
		if err := storeSecret(models.KeyringGitHubTokenKey, configGitHubToken, models.ConfigGitHubTokenSet); err != nil {
			return err
		}
	}

	if configGitHubKeyFile != "" {
		pem, err := os.ReadFile(configGitHubKeyFile)
		if err != nil {
			return fmt.Errorf("failed to read private key file: %w", err)
		}
		if err := storeSecret(models.KeyringAppPrivateKeyKey, string(pem), models.ConfigGitHubAppKeySet); err != nil {
			return err
		}
	}

	if configWebhookSecret != "" {
		if err := storeSecret(models.KeyringWebhookSecretKey, configWebhookSecret, models.ConfigWebhookSecretSet); err != nil {
			return err
		}
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, "message": "GitHub configuration updated"})
	} else {
		fmt.Println("GitHub configuration updated")
	}
	return nil
}

func configureGitHubInteractive() error {
	reader := bufio.NewReader(os.Stdin)

	currentRepo, _ := db.GetConfig(models.ConfigGitHubRepo)

	fmt.Println("GitHub Integration Setup")
	fmt.Println("========================")
	fmt.Println()

	// Repository
	if currentRepo != "" {
		fmt.Printf("Repository [%s]: ", currentRepo)
	} else {
		fmt.Print("Repository (owner/repo): ")
	}
	repoInput, _ := reader.ReadString('\n')
	repoInput = strings.TrimSpace(repoInput)
	if repoInput == "" {
		repoInput = currentRepo
	}
	if repoInput == "" {
		return fmt.Errorf("repository is required")
	}
	if !strings.Contains(repoInput, "/") {
		return fmt.Errorf("repository must be in owner/repo format")
	}

	// Token
	fmt.Println()
	fmt.Println("GitHub Personal Access Token")
	fmt.Println("  Create at: GitHub Settings → Developer settings → Personal access tokens")
	fmt.Println("  Required permissions: Issues (Read and Write)")
	fmt.Println("  (leave empty to keep an existing token, or use 'config github --app-id ...' for App auth)")
	fmt.Println()
	fmt.Print("Token (paste and press Enter): ")

	tokenInput, _ := reader.ReadString('\n')
	tokenInput = strings.TrimSpace(tokenInput)

	if tokenInput == "" {
		_, err := keyring.Get(models.KeyringServiceName, models.KeyringGitHubTokenKey)
		if err != nil {
			fmt.Println("(no token stored; configure one later or use App auth)")
		} else {
			fmt.Println("(keeping existing token)")
		}
	} else {
		if err := storeSecret(models.KeyringGitHubTokenKey, tokenInput, models.ConfigGitHubTokenSet); err != nil {
			return err
		}
		fmt.Println("(token stored in system keyring)")
	}

	if err := db.SetConfig(models.ConfigGitHubRepo, repoInput); err != nil {
		return fmt.Errorf("failed to save repository: %w", err)
	}

	fmt.Println()
	fmt.Println("GitHub integration configured successfully!")
	fmt.Printf("  Repository: %s\n", repoInput)
	return nil
}

func runConfigAgent(cmd *cobra.Command, args []string) error {
	if configAgentClear {
		keyring.Delete(models.KeyringServiceName, models.KeyringAgentAPIKeyKey)
		db.GetDB().Where("key = ?", models.ConfigAgentAPIKeySet).Delete(&models.Config{})
		if IsJSONOutput() {
			OutputJSON(map[string]interface{}{"success": true, "message": "Agent API key cleared"})
		} else {
			fmt.Println("Agent API key cleared")
		}
		return nil
	}

	key := configAgentKey
	if key == "" {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Agent API key (paste and press Enter): ")
		input, _ := reader.ReadString('\n')
		key = strings.TrimSpace(input)
	}
	if key == "" {
		return fmt.Errorf("agent API key is required")
	}

	if err := storeSecret(models.KeyringAgentAPIKeyKey, key, models.ConfigAgentAPIKeySet); err != nil {
		return err
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, "message": "Agent API key stored"})
	} else {
		fmt.Println("Agent API key stored in system keyring")
	}
	return nil
}

func storeSecret(keyringKey, value, configFlag string) error {
	if err := keyring.Set(models.KeyringServiceName, keyringKey, value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", keyringKey, err)
	}
	if err := db.SetConfig(configFlag, "true"); err != nil {
		return fmt.Errorf("failed to save %s flag: %w", configFlag, err)
	}
	return nil
}

// GetGitHubToken retrieves the GitHub token from the environment or keyring
func GetGitHubToken() (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}

	token, err := keyring.Get(models.KeyringServiceName, models.KeyringGitHubTokenKey)
	if err != nil {
		return "", fmt.Errorf("GitHub token not found. Run 'issuepilot config github' or set GITHUB_TOKEN")
	}
	return token, nil
}

// GetAgentAPIKey retrieves the agent API key from the environment or keyring
func GetAgentAPIKey() (string, error) {
	if key := os.Getenv("AGENT_API_KEY"); key != "" {
		return key, nil
	}

	key, err := keyring.Get(models.KeyringServiceName, models.KeyringAgentAPIKeyKey)
	if err != nil {
		return "", fmt.Errorf("agent API key not found. Run 'issuepilot config agent' or set AGENT_API_KEY")
	}
	return key, nil
}

// GetWebhookSecret retrieves the webhook shared secret; empty means
// signature verification is disabled
func GetWebhookSecret() string {
	if secret := os.Getenv("GITHUB_WEBHOOK_SECRET"); secret != "" {
		return secret
	}
	secret, err := keyring.Get(models.KeyringServiceName, models.KeyringWebhookSecretKey)
	if err != nil {
		return ""
	}
	return secret
}
