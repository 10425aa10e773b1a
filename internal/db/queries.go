package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"issuepilot/internal/models"
)

// Sentinel errors for the pipeline query layer. Callers map these to
// user-facing responses with errors.Is.
var (
	ErrIssueNotFound     = errors.New("issue not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrActionPlanMissing = errors.New("issue must be scoped first with an action plan")
	ErrSessionInFlight   = errors.New("a session of this kind is already in flight for this issue")
)

// GetIssueByID fetches an issue by internal ID
func GetIssueByID(id uint) (*models.Issue, error) {
	var issue models.Issue
	if err := db.First(&issue, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIssueNotFound
		}
		return nil, fmt.Errorf("failed to load issue %d: %w", id, err)
	}
	return &issue, nil
}

// GetIssueByGitHubID fetches an issue by its GitHub issue ID
func GetIssueByGitHubID(githubIssueID int64) (*models.Issue, error) {
	var issue models.Issue
	if err := db.Where("github_issue_id = ?", githubIssueID).First(&issue).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIssueNotFound
		}
		return nil, fmt.Errorf("failed to load issue by github id %d: %w", githubIssueID, err)
	}
	return &issue, nil
}

// UpsertIssue creates or updates an issue keyed by its GitHub issue ID.
// Updates overwrite the content fields and bump UpdatedAt.
func UpsertIssue(snapshot models.IssueSnapshot) (*models.Issue, error) {
	var issue models.Issue
	err := db.Where("github_issue_id = ?", snapshot.GitHubIssueID).First(&issue).Error
	switch {
	case err == nil:
		issue.Number = snapshot.Number
		issue.Title = snapshot.Title
		issue.Body = snapshot.Body
		issue.State = snapshot.State
		issue.Repository = snapshot.Repository
		issue.HTMLURL = snapshot.HTMLURL
		if err := db.Save(&issue).Error; err != nil {
			return nil, fmt.Errorf("failed to update issue %d: %w", snapshot.GitHubIssueID, err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		issue = models.Issue{
			GitHubIssueID: snapshot.GitHubIssueID,
			Number:        snapshot.Number,
			Title:         snapshot.Title,
			Body:          snapshot.Body,
			State:         snapshot.State,
			Repository:    snapshot.Repository,
			HTMLURL:       snapshot.HTMLURL,
		}
		if err := db.Create(&issue).Error; err != nil {
			return nil, fmt.Errorf("failed to create issue %d: %w", snapshot.GitHubIssueID, err)
		}
	default:
		return nil, fmt.Errorf("failed to look up issue %d: %w", snapshot.GitHubIssueID, err)
	}
	return &issue, nil
}

// ListIssues returns all tracked issues ordered by last modification
func ListIssues() ([]models.Issue, error) {
	var issues []models.Issue
	if err := db.Order("updated_at DESC").Find(&issues).Error; err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	return issues, nil
}

// LatestSession returns the most recently created session of the given kind
// for an issue, or (nil, nil) when none exists. Exact creation-time ties are
// broken by ID so the result is deterministic.
func LatestSession(issueID uint, kind string) (*models.AgentSession, error) {
	var session models.AgentSession
	err := db.Where("issue_id = ? AND kind = ?", issueID, kind).
		Order("created_at DESC").Order("id DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query sessions for issue %d: %w", issueID, err)
	}
	return &session, nil
}

// GetSessionByToken fetches a session by the token issued by the agent service
func GetSessionByToken(sessionID string) (*models.AgentSession, error) {
	var session models.AgentSession
	if err := db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return &session, nil
}

// CreateSession records a new agent session for an issue. The insert happens
// in a transaction that rejects a second pending/running session of the same
// kind for the same issue, so two concurrent requests cannot both succeed.
func CreateSession(issueID uint, kind, sessionID string) (*models.AgentSession, error) {
	session := models.AgentSession{
		IssueID:   issueID,
		SessionID: sessionID,
		Kind:      kind,
		Status:    models.SessionStatusPending,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var latest models.AgentSession
		err := tx.Where("issue_id = ? AND kind = ?", issueID, kind).
			Order("created_at DESC").Order("id DESC").
			First(&latest).Error
		if err == nil && latest.InFlight() {
			return ErrSessionInFlight
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check in-flight sessions: %w", err)
		}
		return tx.Create(&session).Error
	})
	if err != nil {
		if errors.Is(err, ErrSessionInFlight) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record %s session for issue %d: %w", kind, issueID, err)
	}
	return &session, nil
}

// SaveSession persists updated session fields
func SaveSession(session *models.AgentSession) error {
	if err := db.Save(session).Error; err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.SessionID, err)
	}
	return nil
}

// SessionStore adapts the db package to the models.SessionFinder interface
// so lifecycle classification can run against the live database.
type SessionStore struct{}

// LatestSession implements models.SessionFinder
func (SessionStore) LatestSession(issueID uint, kind string) (*models.AgentSession, error) {
	return LatestSession(issueID, kind)
}
