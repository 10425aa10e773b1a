package models

import (
	"fmt"
	"time"
)

// GitHub-side issue state constants
const (
	IssueStateOpen   = "open"
	IssueStateClosed = "closed"
)

// Lifecycle tags derived from an issue's scope sessions
const (
	LifecycleReadyToScope    = "ready-to-scope"
	LifecycleScopeInProgress = "scope-in-progress"
	LifecycleScopeComplete   = "scope-complete"
)

// Issue represents a GitHub issue tracked through the scoping pipeline
type Issue struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	GitHubIssueID int64     `gorm:"column:github_issue_id;uniqueIndex;not null" json:"github_issue_id"`
	Number        int       `json:"number"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Body          string    `gorm:"type:text" json:"body,omitempty"`
	State         string    `gorm:"size:20;default:open;index" json:"state"`
	Repository    string    `gorm:"size:200;not null;index" json:"repository"` // owner/repo format
	HTMLURL       string    `gorm:"size:500" json:"html_url"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Issue
func (Issue) TableName() string {
	return "issues"
}

// IssueSnapshot is the wire-level shape of an issue as received from GitHub,
// either via the REST API or a webhook payload.
type IssueSnapshot struct {
	GitHubIssueID int64  `json:"github_issue_id"`
	Number        int    `json:"number"`
	Title         string `json:"title"`
	Body          string `json:"body,omitempty"`
	State         string `json:"state"`
	Repository    string `json:"repository"`
	HTMLURL       string `json:"html_url"`
}

// SessionFinder looks up the most recently created session of a given kind
// for an issue. It returns (nil, nil) when no such session exists.
type SessionFinder interface {
	LatestSession(issueID uint, kind string) (*AgentSession, error)
}

// Lifecycle derives the processing stage of the issue from its most recent
// scope session:
//   - ready-to-scope: no scope session, or the issue was modified after the
//     session was created (prior analysis is stale)
//   - scope-in-progress: scope session exists but has no confidence score yet
//   - scope-complete: scope session exists with a confidence score
//
// The result is computed on demand and never stored.
func (i *Issue) Lifecycle(finder SessionFinder) (string, error) {
	session, err := finder.LatestSession(i.ID, KindScope)
	if err != nil {
		return "", fmt.Errorf("failed to look up scope session for issue %d: %w", i.ID, err)
	}

	if session == nil {
		return LifecycleReadyToScope, nil
	}

	if i.UpdatedAt.After(session.CreatedAt) {
		return LifecycleReadyToScope, nil
	}

	if session.ConfidenceScore == nil {
		return LifecycleScopeInProgress, nil
	}
	return LifecycleScopeComplete, nil
}
