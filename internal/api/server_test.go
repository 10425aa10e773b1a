package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"issuepilot/internal/agent"
	"issuepilot/internal/db"
	"issuepilot/internal/ghclient"
	"issuepilot/internal/models"
	"issuepilot/internal/webhook"
)

func setupTestDB(t *testing.T) func() {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "issuepilot-api-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	if _, err := db.InitDB(dbPath); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to init test DB: %v", err)
	}

	return func() {
		db.CloseDB()
		os.RemoveAll(tmpDir)
	}
}

func quietLogf(format string, args ...interface{}) {}

// fakeAgent stands in for the agent service: CreateSession hands out
// sequential tokens, GetSessionStatus replays whatever status was staged.
type fakeAgent struct {
	server   *httptest.Server
	created  int
	statuses map[string]string // session ID -> JSON response
}

func newFakeAgent(t *testing.T) *fakeAgent {
	t.Helper()

	f := &fakeAgent{statuses: map[string]string{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/sessions":
			f.created++
			fmt.Fprintf(w, `{"session_id":"devin-%d"}`, f.created)
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/sessions/"):
			id := strings.TrimPrefix(r.URL.Path, "/sessions/")
			if body, ok := f.statuses[id]; ok {
				fmt.Fprint(w, body)
				return
			}
			fmt.Fprint(w, `{"status":"running"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAgent) client(t *testing.T) *agent.Client {
	t.Helper()

	client, err := agent.New("test-key", agent.WithBaseURL(f.server.URL))
	if err != nil {
		t.Fatalf("Failed to build agent client: %v", err)
	}
	return client
}

func seedIssue(t *testing.T, githubID int64) *models.Issue {
	t.Helper()

	issue, err := db.UpsertIssue(models.IssueSnapshot{
		GitHubIssueID: githubID,
		Number:        int(githubID % 1000),
		Title:         "Seeded issue",
		Body:          "Body",
		State:         models.IssueStateOpen,
		Repository:    "octocat/hello-world",
	})
	if err != nil {
		t.Fatalf("Failed to seed issue: %v", err)
	}
	return issue
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	decoded := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("Response is not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestHealthz(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	server := NewServer(Config{Logf: quietLogf})
	rec, body := doJSON(t, server.Handler(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected ok status, got %v", body["status"])
	}
}

func TestWebhookSignatureEnforcement(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	secret := "test-webhook-secret"
	server := NewServer(Config{WebhookSecret: secret, Logf: quietLogf})
	payload := `{"zen":"Design for failure."}`

	// Valid signature passes and the zen is echoed back
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("X-GitHub-Event", "ping")
	req.Header.Set("X-Hub-Signature-256", webhook.Sign([]byte(payload), secret))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for valid signature, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Design for failure.") {
		t.Errorf("Expected zen echoed back, got %s", rec.Body.String())
	}

	// Wrong signature is rejected before any parsing
	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("X-GitHub-Event", "ping")
	req.Header.Set("X-Hub-Signature-256", webhook.Sign([]byte(payload), "other-secret"))
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for bad signature, got %d", rec.Code)
	}

	// Missing signature is rejected too
	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("X-GitHub-Event", "ping")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for missing signature, got %d", rec.Code)
	}
}

func TestWebhookNoSecretSkipsVerification(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	server := NewServer(Config{Logf: quietLogf})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"zen":"ok"}`))
	req.Header.Set("X-GitHub-Event", "ping")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 without a configured secret, got %d", rec.Code)
	}
}

func TestWebhookMalformedPayload(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	server := NewServer(Config{Logf: quietLogf})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set("X-GitHub-Event", "issues")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed payload, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid JSON payload") {
		t.Errorf("Expected invalid JSON message, got %s", rec.Body.String())
	}
}

func TestWebhookUnknownEventAcknowledged(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	server := NewServer(Config{Logf: quietLogf})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("anything"))
	req.Header.Set("X-GitHub-Event", "workflow_run")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for unknown event, got %d", rec.Code)
	}
}

func TestWebhookIssuesEventStoresIssue(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	server := NewServer(Config{Logf: quietLogf})

	payload := `{
		"action": "opened",
		"issue": {
			"id": 7001,
			"number": 12,
			"title": "Webhook issue",
			"body": "Delivered over the hook",
			"state": "open",
			"html_url": "https://github.com/octocat/hello-world/issues/12"
		},
		"repository": {"full_name": "octocat/hello-world"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("X-GitHub-Event", "issues")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	issue, err := db.GetIssueByGitHubID(7001)
	if err != nil {
		t.Fatalf("Issue from webhook not stored: %v", err)
	}
	if issue.Title != "Webhook issue" || issue.Repository != "octocat/hello-world" {
		t.Errorf("Stored issue fields wrong: %+v", issue)
	}
}

func TestWebhookStatus(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	server := NewServer(Config{WebhookSecret: "secret", Logf: quietLogf})
	rec, body := doJSON(t, server.Handler(), http.MethodGet, "/webhook/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if body["webhook_secret_configured"] != true {
		t.Error("Expected webhook secret reported as configured")
	}
	if body["signature_verification"] != "enabled" {
		t.Errorf("Expected verification enabled, got %v", body["signature_verification"])
	}

	server = NewServer(Config{Logf: quietLogf})
	_, body = doJSON(t, server.Handler(), http.MethodGet, "/webhook/status", "")
	if body["webhook_secret_configured"] != false {
		t.Error("Expected webhook secret reported as not configured")
	}
	if body["signature_verification"] != "disabled" {
		t.Errorf("Expected verification disabled, got %v", body["signature_verification"])
	}
}

func TestAppStatusUnconfigured(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	server := NewServer(Config{Logf: quietLogf})
	rec, body := doJSON(t, server.Handler(), http.MethodGet, "/github-app-status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if body["configured"] != false {
		t.Errorf("Expected configured false, got %v", body["configured"])
	}
}

func TestScopeEndpoint(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	fake := newFakeAgent(t)
	server := NewServer(Config{Agent: fake.client(t), Logf: quietLogf})
	issue := seedIssue(t, 8001)

	// Unknown issue
	rec, _ := doJSON(t, server.Handler(), http.MethodPost, "/issues/9999/scope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown issue, got %d", rec.Code)
	}

	// Bad ID
	rec, _ = doJSON(t, server.Handler(), http.MethodPost, "/issues/notanid/scope", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad issue ID, got %d", rec.Code)
	}

	// Success
	path := fmt.Sprintf("/issues/%d/scope", issue.ID)
	rec, body := doJSON(t, server.Handler(), http.MethodPost, path, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	sessionID, _ := body["session_id"].(string)
	if sessionID == "" {
		t.Fatal("Expected a session ID in the response")
	}
	if body["status"] != models.SessionStatusPending {
		t.Errorf("Expected pending status, got %v", body["status"])
	}

	// A second scope while the first is pending conflicts
	rec, _ = doJSON(t, server.Handler(), http.MethodPost, path, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for in-flight scope, got %d", rec.Code)
	}
}

func TestScopeWithoutAgent(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	server := NewServer(Config{Logf: quietLogf})
	issue := seedIssue(t, 8002)

	rec, _ := doJSON(t, server.Handler(), http.MethodPost, fmt.Sprintf("/issues/%d/scope", issue.ID), "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without agent, got %d", rec.Code)
	}
}

func TestExecuteRequiresActionPlan(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	fake := newFakeAgent(t)
	server := NewServer(Config{Agent: fake.client(t), Logf: quietLogf})
	issue := seedIssue(t, 8003)
	path := fmt.Sprintf("/issues/%d/execute", issue.ID)

	// No scope session at all
	rec, _ := doJSON(t, server.Handler(), http.MethodPost, path, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without a scope session, got %d", rec.Code)
	}
	if fake.created != 0 {
		t.Error("Agent must not be contacted when the precondition fails")
	}

	// Scope session present but no action plan yet
	session, err := db.CreateSession(issue.ID, models.KindScope, "devin-scope-noplan")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	rec, _ = doJSON(t, server.Handler(), http.MethodPost, path, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without an action plan, got %d", rec.Code)
	}

	// With a completed scope and plan the execute goes through
	plan := "1. Fix it\n2. Test it"
	session.Status = models.SessionStatusCompleted
	session.ActionPlan = &plan
	if err := db.SaveSession(session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	rec, body := doJSON(t, server.Handler(), http.MethodPost, path, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["status"] != models.SessionStatusPending {
		t.Errorf("Expected pending execute session, got %v", body["status"])
	}
	if fake.created != 1 {
		t.Errorf("Expected one agent session, got %d", fake.created)
	}
}

func TestSessionEndpointPollsAndCaches(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	fake := newFakeAgent(t)
	server := NewServer(Config{Agent: fake.client(t), Logf: quietLogf})
	issue := seedIssue(t, 8004)

	session, err := db.CreateSession(issue.ID, models.KindScope, "devin-poll")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	fake.statuses["devin-poll"] = `{"status":"completed","confidence_score":85,"action_plan":"1. Fix"}`

	rec, body := doJSON(t, server.Handler(), http.MethodGet, "/sessions/devin-poll", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["status"] != models.SessionStatusCompleted {
		t.Errorf("Expected completed status from agent, got %v", body["status"])
	}
	if body["confidence_score"] != float64(85) {
		t.Errorf("Expected confidence 85, got %v", body["confidence_score"])
	}

	// The merged fields must be persisted, not just returned
	stored, err := db.GetSessionByToken("devin-poll")
	if err != nil {
		t.Fatalf("GetSessionByToken failed: %v", err)
	}
	if stored.ConfidenceScore == nil || *stored.ConfidenceScore != 85 {
		t.Errorf("Expected persisted confidence 85, got %v", stored.ConfidenceScore)
	}
	if !stored.HasActionPlan() {
		t.Error("Expected persisted action plan")
	}
	if stored.ID != session.ID {
		t.Errorf("Expected same session row %d, got %d", session.ID, stored.ID)
	}

	// Unknown session
	rec, _ = doJSON(t, server.Handler(), http.MethodGet, "/sessions/devin-missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown session, got %d", rec.Code)
	}
}

func TestSessionEndpointWithoutAgent(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	server := NewServer(Config{Logf: quietLogf})
	issue := seedIssue(t, 8005)

	if _, err := db.CreateSession(issue.ID, models.KindScope, "devin-offline"); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Without an agent the stored copy is returned as-is
	rec, body := doJSON(t, server.Handler(), http.MethodGet, "/sessions/devin-offline", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if body["status"] != models.SessionStatusPending {
		t.Errorf("Expected stored pending status, got %v", body["status"])
	}
}

func TestFetchIssuesEndpoint(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	github := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/repos/octocat/hello-world/issues" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `[
			{"id": 9001, "number": 1, "title": "First", "state": "open"},
			{"id": 9002, "number": 2, "title": "Second", "state": "open"}
		]`)
	}))
	defer github.Close()

	client := ghclient.New(ghclient.Config{Token: "t", BaseURL: github.URL})
	server := NewServer(Config{GitHub: client, Logf: quietLogf})

	rec, body := doJSON(t, server.Handler(), http.MethodGet, "/issues/octocat/hello-world", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["repository"] != "octocat/hello-world" {
		t.Errorf("Expected repository in response, got %v", body["repository"])
	}
	issues, _ := body["issues"].([]interface{})
	if len(issues) != 2 {
		t.Fatalf("Expected 2 issues, got %d", len(issues))
	}

	// Both rows are stored with their derived pipeline state
	stored, err := db.GetIssueByGitHubID(9001)
	if err != nil {
		t.Fatalf("Fetched issue not stored: %v", err)
	}
	lifecycle, err := stored.Lifecycle(db.SessionStore{})
	if err != nil {
		t.Fatalf("Lifecycle failed: %v", err)
	}
	if lifecycle != models.LifecycleReadyToScope {
		t.Errorf("Expected ready-to-scope for fresh issue, got '%s'", lifecycle)
	}

	// Limit trims the stored set
	rec, body = doJSON(t, server.Handler(), http.MethodGet, "/issues/octocat/hello-world?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	issues, _ = body["issues"].([]interface{})
	if len(issues) != 1 {
		t.Errorf("Expected 1 issue with limit=1, got %d", len(issues))
	}

	// Bad limit is rejected
	rec, _ = doJSON(t, server.Handler(), http.MethodGet, "/issues/octocat/hello-world?limit=zero", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestFetchIssuesWithoutGitHubClient(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	server := NewServer(Config{Logf: quietLogf})
	rec, _ := doJSON(t, server.Handler(), http.MethodGet, "/issues/octocat/hello-world", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without GitHub client, got %d", rec.Code)
	}
}

func TestDashboard(t *testing.T) {
	cleanup := setupTestDB(t)
	defer cleanup()

	server := NewServer(Config{Logf: quietLogf})
	issue := seedIssue(t, 8006)

	session, err := db.CreateSession(issue.ID, models.KindScope, "devin-dash")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	score := 70.0
	session.Status = models.SessionStatusCompleted
	session.ConfidenceScore = &score
	if err := db.SaveSession(session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	rec, body := doJSON(t, server.Handler(), http.MethodGet, "/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	entries, _ := body["dashboard"].([]interface{})
	if len(entries) != 1 {
		t.Fatalf("Expected 1 dashboard entry, got %d", len(entries))
	}
	entry, _ := entries[0].(map[string]interface{})

	issueEntry, _ := entry["issue"].(map[string]interface{})
	if issueEntry["issue_state"] != models.LifecycleScopeComplete {
		t.Errorf("Expected scope-complete, got %v", issueEntry["issue_state"])
	}

	scopeSession, _ := entry["scope_session"].(map[string]interface{})
	if scopeSession == nil || scopeSession["session_id"] != "devin-dash" {
		t.Errorf("Expected scope session in entry, got %v", entry["scope_session"])
	}
	if entry["execution_session"] != nil {
		t.Errorf("Expected nil execution session, got %v", entry["execution_session"])
	}
}
