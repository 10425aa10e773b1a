package models

import (
	"time"
)

// Config stores key-value configuration for the project
type Config struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Config
func (Config) TableName() string {
	return "config"
}

// Common config keys
const (
	ConfigSchemaVersion        = "schema_version"
	ConfigInitializedAt        = "initialized_at"
	ConfigGitHubRepo           = "github_repo"
	ConfigGitHubAppID          = "github_app_id"
	ConfigGitHubInstallationID = "github_installation_id"
	ConfigGitHubTokenSet       = "github_token_set"
	ConfigGitHubAppKeySet      = "github_app_key_set"
	ConfigAgentAPIKeySet       = "agent_api_key_set"
	ConfigWebhookSecretSet     = "webhook_secret_set"
)

// Keyring constants for secret storage
const (
	KeyringServiceName      = "issuepilot"
	KeyringGitHubTokenKey   = "github_token"
	KeyringAppPrivateKeyKey = "github_app_private_key"
	KeyringAgentAPIKeyKey   = "agent_api_key"
	KeyringWebhookSecretKey = "webhook_secret"
)

// Date format constants
const (
	DateTimeFormat      = "2006-01-02 15:04:05"
	DateTimeShortFormat = "2006-01-02 15:04"
)
