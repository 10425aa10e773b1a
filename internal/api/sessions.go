package api

import (
	"net/http"

	"issuepilot/internal/agent"
	"issuepilot/internal/db"
	"issuepilot/internal/models"
)

// handleScope creates a scope session for an issue: the agent analyzes the
// issue and produces a confidence score and action plan.
func (s *Server) handleScope(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIssueID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid issue ID")
		return
	}

	issue, err := db.GetIssueByID(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if s.agent == nil {
		writeError(w, http.StatusServiceUnavailable, "agent service not available")
		return
	}

	prompt := agent.ScopePrompt(issue.Title, issue.Body, issue.Repository)
	s.startSession(w, r, issue, models.KindScope, prompt)
}

// handleExecute creates an execute session for an issue. The latest scope
// session must have produced an action plan; without one the request is
// rejected before the agent is contacted.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIssueID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid issue ID")
		return
	}

	issue, err := db.GetIssueByID(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	scopeSession, err := db.LatestSession(issue.ID, models.KindScope)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if scopeSession == nil || !scopeSession.HasActionPlan() {
		writeDomainError(w, db.ErrActionPlanMissing)
		return
	}

	if s.agent == nil {
		writeError(w, http.StatusServiceUnavailable, "agent service not available")
		return
	}

	prompt := agent.ExecutePrompt(issue.Title, issue.Body, *scopeSession.ActionPlan, issue.Repository)
	s.startSession(w, r, issue, models.KindExecute, prompt)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, issue *models.Issue, kind, prompt string) {
	sessionID, err := s.agent.CreateSession(r.Context(), prompt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create agent session: "+err.Error())
		return
	}

	session, err := db.CreateSession(issue.ID, kind, sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.logf("api: created %s session %s for issue %d", kind, session.SessionID, issue.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": session.SessionID,
		"status":     session.Status,
		"issue_id":   issue.ID,
	})
}

// handleSession returns a stored session, refreshing it from the agent
// first when the agent is reachable. Agent-side fields overwrite the
// mirrored copies.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session, err := db.GetSessionByToken(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if s.agent != nil {
		status, err := s.agent.GetSessionStatus(r.Context(), session.SessionID)
		if err != nil {
			s.logf("api: failed to poll session %s: %v", session.SessionID, err)
		} else {
			mergeSessionStatus(session, status)
			if err := db.SaveSession(session); err != nil {
				writeDomainError(w, err)
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, session)
}

func mergeSessionStatus(session *models.AgentSession, status *agent.SessionStatus) {
	if status.Status != "" {
		session.Status = status.Status
	}
	if status.ConfidenceScore != nil {
		session.ConfidenceScore = status.ConfidenceScore
	}
	if status.ActionPlan != nil {
		session.ActionPlan = status.ActionPlan
	}
	if status.Result != nil {
		session.Result = status.Result
	}
}
