package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.devin.ai/v1"

	agentHTTPTimeout = 60 * time.Second
)

// ErrNotConfigured indicates the agent API key is missing. The rest of the
// system keeps running without agent features.
var ErrNotConfigured = errors.New("agent service not configured: API key missing")

// Client talks to the external agent service that scopes and executes issues
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL overrides the agent API endpoint (used in tests)
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates an agent client. A missing API key is a configuration error
// surfaced at construction, not on first use.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}

	client := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: agentHTTPTimeout,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SessionStatus mirrors the agent's view of a session. Pointer fields stay
// nil until the agent populates them.
type SessionStatus struct {
	Status          string   `json:"status"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
	ActionPlan      *string  `json:"action_plan,omitempty"`
	Result          *string  `json:"result,omitempty"`
}

type createSessionRequest struct {
	Prompt   string `json:"prompt"`
	Unlisted bool   `json:"unlisted"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// CreateSession starts a new agent session and returns its session token
func (c *Client) CreateSession(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(createSessionRequest{Prompt: prompt, Unlisted: true})
	if err != nil {
		return "", fmt.Errorf("failed to encode session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build session request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("agent session creation failed (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var created createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode session response: %w", err)
	}
	if created.SessionID == "" {
		return "", fmt.Errorf("agent service returned no session ID")
	}
	return created.SessionID, nil
}

// GetSessionStatus polls the agent for the current state of a session
func (c *Client) GetSessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions/"+sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("agent status lookup failed (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var status SessionStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode session status: %w", err)
	}
	return &status, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}
