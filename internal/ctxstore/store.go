// Package ctxstore implements the process-wide registry of pipe contexts:
// each constructed executor registers its Context by pipe name before it
// starts running, and a single periodic observer task reports on all of them
// until every one reaches pipectx.Done.
package ctxstore

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pipebase/pipebase-sub000/internal/metrics"
	"github.com/pipebase/pipebase-sub000/internal/pipectx"
)

// Store is a name → *pipectx.Context registry, safe for concurrent
// registration and lookup.
type Store struct {
	mu   sync.RWMutex
	byID map[string]*pipectx.Context
}

// New creates an empty Store.
func New() *Store {
	return &Store{byID: make(map[string]*pipectx.Context)}
}

// Register stores ctx under name. Called once per pipe, before its executor
// goroutine starts.
func (s *Store) Register(name string, ctx *pipectx.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[name] = ctx
}

// Load returns the registered Context for name, if any.
func (s *Store) Load(name string) (*pipectx.Context, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[name]
	return c, ok
}

// Snapshot returns a View for every registered pipe, sorted by name.
func (s *Store) Snapshot() []pipectx.View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]pipectx.View, 0, len(s.byID))
	for _, c := range s.byID {
		views = append(views, c.Snapshot())
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views
}

// Len reports how many pipes are currently registered.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Run periodically snapshots every registered context, logs and mirrors it
// into Prometheus gauges, and exits once every registered pipe has reached
// pipectx.Done (or ctx is canceled first).
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		views := s.Snapshot()
		done := 0
		for _, v := range views {
			slog.Info("pipe context", "pipe", v.Name, "state", v.State, "total_run", v.TotalRun, "failure_run", v.FailureRun)
			metrics.PipeTotalRun.WithLabelValues(v.Name).Set(float64(v.TotalRun))
			metrics.PipeFailureRun.WithLabelValues(v.Name).Set(float64(v.FailureRun))
			if c, ok := s.Load(v.Name); ok {
				metrics.PipeState.WithLabelValues(v.Name).Set(float64(c.GetState()))
			}
			if v.State == pipectx.Done.String() {
				done++
			}
		}

		if len(views) > 0 && done == len(views) {
			slog.Info("ctxstore: all pipes done, stopping observer")
			return
		}
	}
}
