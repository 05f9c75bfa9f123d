// Package observer implements the Context server HTTP contract: read-only
// access to every pipe's observable state, grounded on the same
// net/http.Server lifecycle internal/metrics/server.go already uses for the
// metrics endpoint.
package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pipebase/pipebase-sub000/internal/ctxstore"
)

// ContextServer exposes GET /v1/pipe[/{name}][?state=], POST /v1/shutdown,
// and GET /v1/health over the pipe context store.
type ContextServer struct {
	store    *ctxstore.Store
	server   *http.Server
	shutdown context.CancelFunc
}

// NewContextServer builds a ContextServer bound to addr. shutdown is called
// when POST /v1/shutdown is received, letting the caller trigger the graph's
// own cascade (e.g. cancelling the run context or closing upstream
// receivers).
func NewContextServer(addr string, store *ctxstore.Store, shutdown context.CancelFunc) *ContextServer {
	s := &ContextServer{store: store, shutdown: shutdown}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/pipe", s.handleList)
	mux.HandleFunc("GET /v1/pipe/{name}", s.handleOne)
	mux.HandleFunc("POST /v1/shutdown", s.handleShutdown)
	mux.HandleFunc("GET /v1/health", s.handleHealth)

	s.server = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *ContextServer) handleList(w http.ResponseWriter, r *http.Request) {
	wantState := r.URL.Query().Get("state")
	views := s.store.Snapshot()
	if wantState != "" {
		filtered := views[:0]
		for _, v := range views {
			if v.State == wantState {
				filtered = append(filtered, v)
			}
		}
		views = filtered
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *ContextServer) handleOne(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	c, ok := s.store.Load(name)
	if !ok {
		http.Error(w, "pipe not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (s *ContextServer) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if s.shutdown != nil {
		s.shutdown()
	}
	w.WriteHeader(http.StatusOK)
}

func (s *ContextServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "running", "pipes": s.store.Len()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start begins serving and blocks until ctx is canceled, then shuts down
// gracefully within 5 seconds.
func (s *ContextServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// Stop shuts the server down gracefully, bounded only by ctx, for callers
// that already hold a context deadline of their own.
func (s *ContextServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
