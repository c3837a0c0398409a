// Package api implements the HTTP API: auth, chat, and transaction CRUD.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/zefa-finance/zefa-backend/internal/agent"
	"github.com/zefa-finance/zefa-backend/internal/buildinfo"
	"github.com/zefa-finance/zefa-backend/internal/creds"
	"github.com/zefa-finance/zefa-backend/internal/store"
	"github.com/zefa-finance/zefa-backend/internal/summarizer"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string, logger *slog.Logger) {
	writeJSON(w, status, map[string]string{"detail": detail}, logger)
}

// Server is the HTTP API server.
type Server struct {
	address    string
	port       int
	store      *store.Store
	gateway    *agent.Gateway
	summarizer *summarizer.Summarizer
	creds      *creds.Store
	sessions   *sessionStore

	maxContextMessages int

	logger *slog.Logger
	server *http.Server
}

// NewServer creates the API server.
func NewServer(address string, port int, s *store.Store, gw *agent.Gateway, sum *summarizer.Summarizer, credStore *creds.Store, maxContextMessages int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:            address,
		port:               port,
		store:              s,
		gateway:            gw,
		summarizer:         sum,
		creds:              credStore,
		sessions:           newSessionStore(),
		maxContextMessages: maxContextMessages,
		logger:             logger.With("component", "api"),
	}
}

// Handler builds the route table. Exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Account endpoints
	mux.HandleFunc("POST /api/users", s.handleCreateUser)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	// Chat endpoints
	mux.HandleFunc("POST /api/chat", s.requireAuth(s.handleChat))
	mux.HandleFunc("POST /api/keys", s.requireAuth(s.handleSetAPIKey))

	// Transaction endpoints
	mux.HandleFunc("GET /api/balance", s.requireAuth(s.handleBalance))
	mux.HandleFunc("GET /api/transactions", s.requireAuth(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.requireAuth(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.requireAuth(s.handleGetTransaction))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.requireAuth(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.requireAuth(s.handleDeleteTransaction))

	// Health endpoints
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)

	return s.withLogging(mux)
}

// Start runs the server until it fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // model calls can take a while
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Info(), s.logger)
}
