package models

import (
	"time"
)

// Session kind constants
const (
	KindScope   = "scope"
	KindExecute = "execute"
)

// Session status constants (owned by the agent service, mirrored here)
const (
	SessionStatusPending   = "pending"
	SessionStatusRunning   = "running"
	SessionStatusCompleted = "completed"
	SessionStatusFailed    = "failed"
)

// AgentSession represents one invocation of the external agent against an
// issue. Sessions reference the issue by internal ID, not by the GitHub
// issue ID, since external identifiers can be reused or rotated.
type AgentSession struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	IssueID         uint      `gorm:"index;not null" json:"issue_id"`
	SessionID       string    `gorm:"size:100;uniqueIndex;not null" json:"session_id"` // token issued by the agent service
	Kind            string    `gorm:"size:20;not null;index" json:"kind"`
	Status          string    `gorm:"size:20;default:pending" json:"status"`
	ConfidenceScore *float64  `json:"confidence_score,omitempty"`
	ActionPlan      *string   `gorm:"type:text" json:"action_plan,omitempty"`
	Result          *string   `gorm:"type:text" json:"result,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for AgentSession
func (AgentSession) TableName() string {
	return "agent_sessions"
}

// InFlight returns true while the agent is still working on the session
func (s *AgentSession) InFlight() bool {
	return s.Status == SessionStatusPending || s.Status == SessionStatusRunning
}

// HasActionPlan returns true if the session produced a usable action plan
func (s *AgentSession) HasActionPlan() bool {
	return s.ActionPlan != nil && *s.ActionPlan != ""
}
