package ghclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v63/github"

	"issuepilot/internal/ghapp"
	"issuepilot/internal/models"
)

const (
	// GitHub API timeout for individual requests
	githubAPITimeout = 30 * time.Second

	issuesPerPage = 100
)

// Config selects how the client authenticates. App credentials take
// precedence over the static token; with neither the client runs
// unauthenticated at GitHub's anonymous rate limit.
type Config struct {
	Token  string
	Broker *ghapp.Broker

	// BaseURL overrides the GitHub API endpoint (used in tests)
	BaseURL string
	// HTTPClient overrides the default pooled client
	HTTPClient *http.Client
}

// Client fetches issues from GitHub on behalf of the pipeline
type Client struct {
	token      string
	broker     *ghapp.Broker
	baseURL    string
	httpClient *http.Client
}

// New creates a GitHub client from the given credentials
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: githubAPITimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{
		token:      cfg.Token,
		broker:     cfg.Broker,
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
	}
}

// UsesAppAuth reports whether requests authenticate via the App broker
func (c *Client) UsesAppAuth() bool {
	return c.broker != nil
}

// ListIssues fetches issues for a repository, excluding pull requests,
// and returns them as snapshots ready for upsert.
func (c *Client) ListIssues(ctx context.Context, owner, repo, state string) ([]models.IssueSnapshot, error) {
	gh, err := c.githubClient(ctx)
	if err != nil {
		return nil, err
	}

	opts := &github.IssueListByRepoOptions{
		State:       state,
		ListOptions: github.ListOptions{PerPage: issuesPerPage},
	}
	issues, _, err := gh.Issues.ListByRepo(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issues for %s/%s: %w", owner, repo, err)
	}

	repository := fmt.Sprintf("%s/%s", owner, repo)
	snapshots := make([]models.IssueSnapshot, 0, len(issues))
	for _, issue := range issues {
		// The issues endpoint also returns pull requests
		if issue.IsPullRequest() {
			continue
		}
		snapshots = append(snapshots, models.IssueSnapshot{
			GitHubIssueID: issue.GetID(),
			Number:        issue.GetNumber(),
			Title:         issue.GetTitle(),
			Body:          issue.GetBody(),
			State:         issue.GetState(),
			Repository:    repository,
			HTMLURL:       issue.GetHTMLURL(),
		})
	}
	return snapshots, nil
}

// GetIssue fetches a single issue by number
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*models.IssueSnapshot, error) {
	gh, err := c.githubClient(ctx)
	if err != nil {
		return nil, err
	}

	issue, _, err := gh.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issue %s/%s#%d: %w", owner, repo, number, err)
	}

	return &models.IssueSnapshot{
		GitHubIssueID: issue.GetID(),
		Number:        issue.GetNumber(),
		Title:         issue.GetTitle(),
		Body:          issue.GetBody(),
		State:         issue.GetState(),
		Repository:    fmt.Sprintf("%s/%s", owner, repo),
		HTMLURL:       issue.GetHTMLURL(),
	}, nil
}

// githubClient builds a go-github client for a single logical operation.
// With App auth each call exchanges a fresh installation token, so the
// short-lived credential is never reused across operations.
func (c *Client) githubClient(ctx context.Context) (*github.Client, error) {
	gh := github.NewClient(c.httpClient)

	switch {
	case c.broker != nil:
		token, err := c.broker.InstallationToken(ctx)
		if err != nil {
			return nil, err
		}
		gh = gh.WithAuthToken(token)
	case c.token != "":
		gh = gh.WithAuthToken(c.token)
	}

	if c.baseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(c.baseURL, c.baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL: %w", err)
		}
	}
	return gh, nil
}
