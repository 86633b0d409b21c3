// Package web serves the dashboard over HTTP: the latest cycle summary,
// per-symbol snapshot data, health, metrics, and a websocket feed that pushes
// each completed cycle to connected clients.
package web

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shitalnb11/indian-market-dashboard/internal/logger"
	"github.com/shitalnb11/indian-market-dashboard/internal/models"
)

// Server holds the latest published cycle and serves it. Each publish
// replaces the previous cycle wholesale; handlers never see a half-updated
// view.
type Server struct {
	addr    string
	started time.Time

	mu        sync.RWMutex
	summary   *models.CycleSummary
	snapshots map[string]*models.SymbolSnapshot
	payload   []byte

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool

	upgrader websocket.Upgrader
	server   *http.Server
}

// wsEnvelope frames every websocket push.
type wsEnvelope struct {
	Type    string               `json:"type"`
	Summary *models.CycleSummary `json:"summary"`
}

// NewServer creates a dashboard server listening on addr once started.
func NewServer(addr string) *Server {
	return &Server{
		addr:    addr,
		started: time.Now(),
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			// The dashboard is same-host tooling; no origin restrictions.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Publish replaces the served cycle and pushes it to websocket clients.
func (s *Server) Publish(summary *models.CycleSummary, snapshots map[string]*models.SymbolSnapshot) error {
	payload, err := sonic.Marshal(wsEnvelope{Type: "cycle", Summary: summary})
	if err != nil {
		return fmt.Errorf("failed to encode cycle: %w", err)
	}

	s.mu.Lock()
	s.summary = summary
	s.snapshots = snapshots
	s.payload = payload
	s.mu.Unlock()

	s.broadcast(payload)
	return nil
}

// Handler returns the route table. Exposed separately from Start so tests can
// drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/snapshots", s.handleSnapshots)
	mux.HandleFunc("GET /api/snapshots/{symbol}", s.handleSnapshot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}
	logger.Info("Starting dashboard server on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.clientsMu.Lock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	summary := s.summary
	s.mu.RUnlock()

	if summary == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no completed cycle yet"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	snapshots := s.snapshots
	s.mu.RUnlock()

	if snapshots == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no completed cycle yet"})
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	s.mu.RLock()
	snap := s.snapshots[symbol]
	s.mu.RUnlock()

	if snap == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown symbol: " + symbol})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	summary := s.summary
	s.mu.RUnlock()

	health := map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"ready":          summary != nil,
	}
	if summary != nil {
		health["last_cycle_at"] = summary.GeneratedAt
		health["last_cycle_age_seconds"] = int64(time.Since(summary.GeneratedAt).Seconds())
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed: %v", err)
		return
	}

	// Feed the latest cycle immediately so a fresh client is not blank until
	// the next poll.
	s.mu.RLock()
	payload := s.payload
	s.mu.RUnlock()
	if payload != nil {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			return
		}
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()

	// Reader loop only detects disconnects; the feed is one-way.
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, conn)
			s.clientsMu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcast pushes the payload to every client; clients that cannot keep up
// are dropped.
func (s *Server) broadcast(payload []byte) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.Debug("Dropping websocket client: %v", err)
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		logger.Error("Failed to encode response: %v", err)
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck
}
