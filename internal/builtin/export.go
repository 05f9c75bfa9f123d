package builtin

import (
	"context"
	"fmt"
	"sync"

	"github.com/pipebase/pipebase-sub000/pkg/pipe"
)

func init() {
	pipe.Register(pipe.KindExport, "stdout", func() pipe.Configurable { return StdoutExporter{} })
	pipe.Register(pipe.KindExport, "slice", func() pipe.Configurable { return &SliceExporter{} })
}

// StdoutExporter writes every value it receives to stdout, one per line.
type StdoutExporter struct{}

func (StdoutExporter) Export(ctx context.Context, in any) error {
	_, err := fmt.Println(in)
	return err
}

func (StdoutExporter) FromConfig(ctx context.Context, cfg map[string]any) (any, error) {
	return StdoutExporter{}, nil
}

// SliceExporter appends every value it receives to an in-memory slice,
// useful for tests and for capability scenarios that need to assert on the
// final exported set.
type SliceExporter struct {
	mu    sync.Mutex
	items []any
}

func (e *SliceExporter) Export(ctx context.Context, in any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append(e.items, in)
	return nil
}

// Items returns a snapshot of everything exported so far.
func (e *SliceExporter) Items() []any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]any, len(e.items))
	copy(out, e.items)
	return out
}

func (e *SliceExporter) FromConfig(ctx context.Context, cfg map[string]any) (any, error) {
	return &SliceExporter{}, nil
}
