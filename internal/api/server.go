package api

import (
	"log"
	"net/http"

	"issuepilot/internal/agent"
	"issuepilot/internal/ghapp"
	"issuepilot/internal/ghclient"
	"issuepilot/internal/webhook"
)

// Server wires the pipeline's HTTP surface: issue fetching, scope/execute
// session management, the webhook endpoint, and status probes. Each request
// is handled independently; the database is the only shared state.
type Server struct {
	github        *ghclient.Client
	agent         *agent.Client
	broker        *ghapp.Broker
	webhookSecret string
	dispatcher    *webhook.Dispatcher
	mux           *http.ServeMux
	logf          func(format string, args ...interface{})
}

// Config carries the collaborators the server depends on. Agent and Broker
// may be nil; the affected endpoints degrade instead of failing at startup.
type Config struct {
	GitHub        *ghclient.Client
	Agent         *agent.Client
	Broker        *ghapp.Broker
	WebhookSecret string
	Logf          func(format string, args ...interface{})
}

// NewServer builds the route table
func NewServer(cfg Config) *Server {
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}

	s := &Server{
		github:        cfg.GitHub,
		agent:         cfg.Agent,
		broker:        cfg.Broker,
		webhookSecret: cfg.WebhookSecret,
		dispatcher: &webhook.Dispatcher{
			Upserter: dbUpserter{},
			Logf:     logf,
		},
		mux:  http.NewServeMux(),
		logf: logf,
	}

	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /issues/{owner}/{repo}", s.handleFetchIssues)
	s.mux.HandleFunc("POST /issues/{id}/scope", s.handleScope)
	s.mux.HandleFunc("POST /issues/{id}/execute", s.handleExecute)
	s.mux.HandleFunc("GET /sessions/{id}", s.handleSession)
	s.mux.HandleFunc("GET /dashboard", s.handleDashboard)
	s.mux.HandleFunc("GET /github-app-status", s.handleAppStatus)
	s.mux.HandleFunc("POST /webhook", s.handleWebhook)
	s.mux.HandleFunc("GET /webhook/status", s.handleWebhookStatus)

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}
