package builtin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pipebase/pipebase-sub000/pkg/pipe"
)

func init() {
	pipe.Register(pipe.KindListen, "http_ingest", func() pipe.Configurable { return &HTTPIngestListener{} })
}

// HTTPIngestListenerConfig configures an HTTPIngestListener.
type HTTPIngestListenerConfig struct {
	Listen string `mapstructure:"listen"`
}

// HTTPIngestListener exposes the ingestion server contract: POST /v1/ingest
// pushes one message, /v1/pause and /v1/resume toggle admission, POST
// /v1/shutdown drops this listener's own receivers to initiate the
// structural shutdown cascade, and /v1/health reports running/paused
// status. Listen blocks serving HTTP until ctx is canceled or /v1/shutdown
// is hit.
type HTTPIngestListener struct {
	addr         string
	paused       atomic.Bool
	server       *http.Server
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

func (l *HTTPIngestListener) FromConfig(ctx context.Context, cfg map[string]any) (any, error) {
	var c HTTPIngestListenerConfig
	if err := decode(cfg, &c); err != nil {
		return nil, fmt.Errorf("builtin: http ingest listener config: %w", err)
	}
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	return &HTTPIngestListener{addr: c.Listen, shutdownCh: make(chan struct{})}, nil
}

// requestShutdown signals Listen to stop serving, safe to call more than
// once (e.g. a retried client request).
func (l *HTTPIngestListener) requestShutdown() {
	l.shutdownOnce.Do(func() { close(l.shutdownCh) })
}

func (l *HTTPIngestListener) Listen(ctx context.Context, out chan<- any) error {
	if l.shutdownCh == nil {
		l.shutdownCh = make(chan struct{})
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/ingest", func(w http.ResponseWriter, r *http.Request) {
		if l.paused.Load() {
			http.Error(w, "paused", http.StatusServiceUnavailable)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		select {
		case out <- string(body):
			w.WriteHeader(http.StatusAccepted)
		case <-ctx.Done():
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
		}
	})
	mux.HandleFunc("POST /v1/pause", func(w http.ResponseWriter, r *http.Request) {
		l.paused.Store(true)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /v1/resume", func(w http.ResponseWriter, r *http.Request) {
		l.paused.Store(false)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /v1/shutdown", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		l.requestShutdown()
	})
	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, r *http.Request) {
		status := "running"
		if l.paused.Load() {
			status = "paused"
		}
		fmt.Fprintf(w, `{"status":%q}`, status)
	})

	l.server = &http.Server{Addr: l.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- l.server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.server.Shutdown(shutdownCtx); err != nil {
			slog.Error("http ingest listener shutdown error", "err", err)
		}
		return ctx.Err()
	case <-l.shutdownCh:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.server.Shutdown(shutdownCtx); err != nil {
			slog.Error("http ingest listener shutdown error", "err", err)
		}
		return pipe.ErrExit
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
