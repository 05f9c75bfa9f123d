// Package metrics implements the Prometheus series this runtime publishes
// per pipe, and the HTTP server that exposes them alongside a small health
// route reporting how many pipes the attached context store, if any, holds.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// pipeCounter is the part of a ctxstore.Store the health route reads.
// ctxstore itself imports this package to publish its gauges, so the store
// is held through this interface rather than by its concrete type.
type pipeCounter interface {
	Len() int
}

// Server is the HTTP server for Prometheus metrics. An optional ctxstore
// lets GET /v1/health report how many pipes are currently feeding the
// gauges scraped at path, the same store-backed health shape
// internal/observer.ContextServer reports for its own routes.
type Server struct {
	addr   string
	path   string
	store  pipeCounter
	server *http.Server
}

// NewServer creates a new metrics server.
func NewServer(addr, path string) *Server {
	if path == "" {
		path = "/metrics"
	}
	return &Server{
		addr: addr,
		path: path,
	}
}

// WithStore attaches a pipe context store so GET /v1/health can report how
// many pipes are currently publishing the series scraped at path.
func (s *Server) WithStore(store pipeCounter) *Server {
	s.store = store
	return s
}

// Start starts the metrics HTTP server.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.Handler())
	mux.HandleFunc("GET /v1/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("starting metrics server", "addr", s.addr, "path", s.path)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// handleHealth reports the metrics series path and, when a store is
// attached, the number of pipes currently publishing to it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "running", "path": s.path}
	if s.store != nil {
		body["pipes"] = s.store.Len()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// Stop gracefully stops the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	slog.Info("stopping metrics server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown failed: %w", err)
	}

	slog.Info("metrics server stopped")
	return nil
}
