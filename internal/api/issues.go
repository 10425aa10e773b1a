package api

import (
	"net/http"
	"strconv"

	"issuepilot/internal/db"
	"issuepilot/internal/models"
)

const defaultFetchLimit = 10

// dbUpserter adapts the db package to the webhook.IssueUpserter interface
type dbUpserter struct{}

func (dbUpserter) UpsertIssue(snapshot models.IssueSnapshot) (*models.Issue, error) {
	return db.UpsertIssue(snapshot)
}

// issueView is the API shape of a stored issue plus its derived state
type issueView struct {
	models.Issue
	IssueState string `json:"issue_state"`
}

func viewOf(issue *models.Issue) (issueView, error) {
	state, err := issue.Lifecycle(db.SessionStore{})
	if err != nil {
		return issueView{}, err
	}
	return issueView{Issue: *issue, IssueState: state}, nil
}

// handleFetchIssues pulls issues from GitHub, stores them, and returns the
// stored records with their derived pipeline state.
func (s *Server) handleFetchIssues(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	repo := r.PathValue("repo")

	state := r.URL.Query().Get("state")
	if state == "" {
		state = models.IssueStateOpen
	}
	limit := defaultFetchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	if s.github == nil {
		writeError(w, http.StatusServiceUnavailable, "GitHub client not configured")
		return
	}

	snapshots, err := s.github.ListIssues(r.Context(), owner, repo, state)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch issues: "+err.Error())
		return
	}
	if len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}

	stored := make([]issueView, 0, len(snapshots))
	for _, snapshot := range snapshots {
		issue, err := db.UpsertIssue(snapshot)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		view, err := viewOf(issue)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		stored = append(stored, view)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"repository": owner + "/" + repo,
		"issues":     stored,
	})
}

// handleDashboard returns every tracked issue with its latest scope and
// execute sessions and derived state.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	issues, err := db.ListIssues()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	entries := make([]map[string]interface{}, 0, len(issues))
	for i := range issues {
		issue := &issues[i]
		view, err := viewOf(issue)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		scopeSession, err := db.LatestSession(issue.ID, models.KindScope)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		execSession, err := db.LatestSession(issue.ID, models.KindExecute)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		entries = append(entries, map[string]interface{}{
			"issue":             view,
			"scope_session":     scopeSession,
			"execution_session": execSession,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"dashboard": entries})
}

func parseIssueID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
