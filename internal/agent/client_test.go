package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}

	client, err := New("test-key")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if client == nil {
		t.Fatal("Expected non-nil client")
	}
}

func TestCreateSession(t *testing.T) {
	var gotAuth, gotPrompt string
	var gotUnlisted bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sessions" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")

		var req struct {
			Prompt   string `json:"prompt"`
			Unlisted bool   `json:"unlisted"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		gotPrompt = req.Prompt
		gotUnlisted = req.Unlisted

		fmt.Fprint(w, `{"session_id":"devin-xyz789"}`)
	}))
	defer server.Close()

	client, err := New("test-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	sessionID, err := client.CreateSession(context.Background(), "Analyze this issue")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if sessionID != "devin-xyz789" {
		t.Errorf("Expected session ID 'devin-xyz789', got '%s'", sessionID)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Expected bearer auth, got '%s'", gotAuth)
	}
	if gotPrompt != "Analyze this issue" {
		t.Errorf("Prompt not forwarded, got '%s'", gotPrompt)
	}
	if !gotUnlisted {
		t.Error("Expected sessions to be created unlisted")
	}
}

func TestCreateSessionServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusPaymentRequired)
	}))
	defer server.Close()

	client, err := New("test-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = client.CreateSession(context.Background(), "prompt")
	if err == nil {
		t.Fatal("Expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "HTTP 402") {
		t.Errorf("Expected status code in error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("Expected response detail in error, got: %v", err)
	}
}

func TestCreateSessionMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client, err := New("test-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = client.CreateSession(context.Background(), "prompt")
	if err == nil {
		t.Fatal("Expected error when the agent returns no session ID")
	}
}

func TestGetSessionStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions/devin-xyz789" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{
			"status": "completed",
			"confidence_score": 85,
			"action_plan": "1. Fix it",
			"result": "PR opened"
		}`)
	}))
	defer server.Close()

	client, err := New("test-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	status, err := client.GetSessionStatus(context.Background(), "devin-xyz789")
	if err != nil {
		t.Fatalf("GetSessionStatus failed: %v", err)
	}
	if status.Status != "completed" {
		t.Errorf("Expected completed status, got '%s'", status.Status)
	}
	if status.ConfidenceScore == nil || *status.ConfidenceScore != 85 {
		t.Errorf("Expected confidence 85, got %v", status.ConfidenceScore)
	}
	if status.ActionPlan == nil || *status.ActionPlan != "1. Fix it" {
		t.Errorf("Expected action plan, got %v", status.ActionPlan)
	}
	if status.Result == nil || *status.Result != "PR opened" {
		t.Errorf("Expected result, got %v", status.Result)
	}
}

func TestGetSessionStatusPartialFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"running"}`)
	}))
	defer server.Close()

	client, err := New("test-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	status, err := client.GetSessionStatus(context.Background(), "devin-abc")
	if err != nil {
		t.Fatalf("GetSessionStatus failed: %v", err)
	}
	if status.Status != "running" {
		t.Errorf("Expected running status, got '%s'", status.Status)
	}
	// Fields the agent has not produced yet stay nil
	if status.ConfidenceScore != nil || status.ActionPlan != nil || status.Result != nil {
		t.Errorf("Expected unset fields to stay nil, got %+v", status)
	}
}

func TestAgentUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := New("test-key", WithBaseURL(url))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := client.CreateSession(context.Background(), "prompt"); err == nil {
		t.Error("Expected error when agent is unreachable")
	}
	if _, err := client.GetSessionStatus(context.Background(), "id"); err == nil {
		t.Error("Expected error when agent is unreachable")
	}
}
