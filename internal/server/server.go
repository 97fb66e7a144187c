// Package server hosts an avatar engine over HTTP: the websocket mirror, a
// JSON snapshot, health, recent logs and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexmascot/internal/expression"
	"github.com/normanking/cortexmascot/internal/logging"
	"github.com/normanking/cortexmascot/internal/statesync"
)

// Avatar is the part of the engine the server drives
type Avatar interface {
	Snapshot() expression.Visual
	ShowEmotion(id expression.ID, d time.Duration) error
}

// LogSource provides recent log entries
type LogSource interface {
	GetHistory(limit int) []logging.LogEntry
}

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Clients   int    `json:"clients"`
	Timestamp string `json:"timestamp"`
}

// ExpressionRequest asks the avatar to show an expression
type ExpressionRequest struct {
	Expression string `json:"expression"`
	DurationMs int    `json:"durationMs,omitempty"`
}

// Server represents the HTTP server
type Server struct {
	avatar     Avatar
	hub        *statesync.Hub
	logs       LogSource
	version    string
	httpServer *http.Server
	startTime  time.Time
	log        zerolog.Logger
}

// New creates a new HTTP server. logs may be nil.
func New(addr, version string, a Avatar, hub *statesync.Hub, logs LogSource, logger zerolog.Logger) *Server {
	s := &Server{
		avatar:    a,
		hub:       hub,
		logs:      logs,
		version:   version,
		startTime: time.Now(),
		log:       logger.With().Str("component", "server").Logger(),
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.hub)
	mux.HandleFunc("/api/v1/avatar/current", s.currentHandler)
	mux.HandleFunc("/api/v1/avatar/health", s.healthHandler)
	mux.HandleFunc("/api/v1/avatar/expression", s.expressionHandler)
	mux.HandleFunc("/api/v1/logs", s.logsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start listens until Shutdown. http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server and disconnects viewers
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) currentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.avatar.Snapshot())
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   s.version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Clients:   s.hub.ClientCount(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) expressionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req ExpressionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	id, err := expression.ParseID(req.Expression)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.avatar.ShowEmotion(id, time.Duration(req.DurationMs)*time.Millisecond); err != nil {
		s.log.Debug().Err(err).Str("expression", string(id)).Msg("Expression request not applied")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "expression": string(id)})
}

func (s *Server) logsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.logs == nil {
		http.Error(w, "Log history unavailable", http.StatusNotFound)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": s.logs.GetHistory(limit)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
