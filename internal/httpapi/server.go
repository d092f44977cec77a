// Package httpapi exposes the router over a thin HTTP façade for
// long-running service deployments.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fentz26/toolrouter/internal/health"
	"github.com/fentz26/toolrouter/internal/metrics"
	"github.com/fentz26/toolrouter/internal/router"
	"github.com/fentz26/toolrouter/internal/toolapi"
)

// Router is the subset of *router.SmartRouter this façade depends on.
type Router interface {
	HandleTurn(ctx context.Context, sessionID, userText string) (string, error)
	CacheContents() []toolapi.Handle
	HealthSnapshot() []health.Record
	RecentMetrics(n int) []metrics.Event
}

// Server wraps a Router in an HTTP API.
type Server struct {
	router Router
	addr   string
	server *http.Server
}

// NewServer creates a new HTTP server bound to addr.
func NewServer(r Router, addr string) *Server {
	return &Server{router: r, addr: addr}
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/turns", s.handleTurns)
	mux.HandleFunc("/cache", s.handleCache)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/metrics/recent", s.handleRecentMetrics)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type turnRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type turnResponse struct {
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

func (s *Server) handleTurns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" || req.Text == "" {
		http.Error(w, "session_id and text are required", http.StatusBadRequest)
		return
	}

	text, err := s.router.HandleTurn(r.Context(), req.SessionID, req.Text)
	if err != nil {
		status := http.StatusInternalServerError
		var turnErr *router.TurnError
		if errors.As(err, &turnErr) && turnErr.Recoverable() {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(turnResponse{MessageID: uuid.NewString(), Text: text})
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.router.CacheContents())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.router.HealthSnapshot())
}

func (s *Server) handleRecentMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n := 50
	if q := r.URL.Query().Get("n"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
			n = parsed
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.router.RecentMetrics(n))
}
