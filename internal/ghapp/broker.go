package ghapp

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v63/github"
)

const (
	// GitHub rejects App JWTs with a lifetime above 10 minutes
	assertionTTL = 10 * time.Minute

	brokerHTTPTimeout = 30 * time.Second
)

// Config holds the GitHub App credentials for the broker
type Config struct {
	AppID          string
	PrivateKey     string // PEM-encoded RSA private key
	InstallationID int64

	// BaseURL overrides the GitHub API endpoint (used in tests)
	BaseURL string
	// HTTPClient overrides the default pooled client
	HTTPClient *http.Client
	// Now overrides the clock used for assertion claims
	Now func() time.Time
}

// Broker exchanges a short-lived signed App assertion for an
// installation-scoped access token. Each call mints a fresh assertion;
// the returned token is not cached.
type Broker struct {
	appID          string
	key            *rsa.PrivateKey
	installationID int64
	baseURL        string
	httpClient     *http.Client
	now            func() time.Time
}

// New validates the App credentials and parses the private key. Malformed
// key material fails here rather than on every token call.
func New(cfg Config) (*Broker, error) {
	if cfg.AppID == "" {
		return nil, fmt.Errorf("github app: app ID is required")
	}
	if cfg.InstallationID == 0 {
		return nil, fmt.Errorf("github app: installation ID is required")
	}
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("github app: private key is required")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(NormalizePrivateKey(cfg.PrivateKey)))
	if err != nil {
		return nil, fmt.Errorf("github app: failed to parse private key: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: brokerHTTPTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Broker{
		appID:          cfg.AppID,
		key:            key,
		installationID: cfg.InstallationID,
		baseURL:        cfg.BaseURL,
		httpClient:     httpClient,
		now:            now,
	}, nil
}

// InstallationID returns the installation the broker is bound to
func (b *Broker) InstallationID() int64 {
	return b.installationID
}

// AppID returns the App identity used as the assertion issuer
func (b *Broker) AppID() string {
	return b.appID
}

// MintAssertion signs a fresh App JWT with iat=now and exp=now+10m.
// The short window bounds the blast radius of a leaked assertion.
func (b *Broker) MintAssertion() (string, error) {
	now := b.now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionTTL)),
		Issuer:    b.appID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(b.key)
	if err != nil {
		return "", fmt.Errorf("github app: failed to sign assertion: %w", err)
	}
	return token, nil
}

// InstallationToken mints an assertion and exchanges it for an
// installation-scoped access token. The token's lifetime is set by GitHub
// and is treated as opaque; callers should not cache it across operations.
func (b *Broker) InstallationToken(ctx context.Context) (string, error) {
	client, err := b.appClient()
	if err != nil {
		return "", err
	}

	token, resp, err := client.Apps.CreateInstallationToken(ctx, b.installationID, nil)
	if err != nil {
		if resp != nil {
			return "", fmt.Errorf("github app: installation token exchange failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return "", fmt.Errorf("github app: token endpoint unreachable: %w", err)
	}
	return token.GetToken(), nil
}

// Installation looks up the installation the broker is bound to. Used by the
// app-status surface to report whether the credentials actually work.
func (b *Broker) Installation(ctx context.Context) (*github.Installation, error) {
	client, err := b.appClient()
	if err != nil {
		return nil, err
	}

	installation, resp, err := client.Apps.GetInstallation(ctx, b.installationID)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("github app: installation lookup failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("github app: installation lookup unreachable: %w", err)
	}
	return installation, nil
}

// appClient returns a go-github client authenticated as the App itself
// via a freshly minted assertion.
func (b *Broker) appClient() (*github.Client, error) {
	assertion, err := b.MintAssertion()
	if err != nil {
		return nil, err
	}

	client := github.NewClient(b.httpClient).WithAuthToken(assertion)
	if b.baseURL != "" {
		client, err = client.WithEnterpriseURLs(b.baseURL, b.baseURL)
		if err != nil {
			return nil, fmt.Errorf("github app: invalid base URL: %w", err)
		}
	}
	return client, nil
}
