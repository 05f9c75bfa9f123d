// Package pipe defines the capability contracts every pipe executor runs
// against, and the factory registry used to construct them from a manifest.
package pipe

import (
	"context"
	"errors"
	"time"
)

// Poller produces at most one value per scheduler tick. A nil value with a
// nil error means "skip this tick"; ErrExit signals a graceful end.
type Poller[U any] interface {
	Poll(ctx context.Context) (*U, error)
	InitialDelay() time.Duration
	Interval() time.Duration
}

// Listener runs its own loop and pushes values onto the sender it is handed,
// until it exits on its own, on error, or because sends start failing.
type Listener[U any] interface {
	Listen(ctx context.Context, out chan<- U) error
}

// Mapper is a pure (possibly I/O-bound) 1-to-1 transform.
type Mapper[T, U any] interface {
	Map(ctx context.Context, in T) (U, error)
}

// Streamer fans one input out into zero or more outputs pushed onto the
// injected sender.
type Streamer[T, U any] interface {
	Stream(ctx context.Context, in T, out chan<- U) error
}

// Selector chooses, for a given input, which of the currently live downstream
// indices should receive a copy.
type Selector[T any] interface {
	Select(ctx context.Context, in T, live []int) ([]int, error)
}

// Collector accumulates items and periodically flushes an aggregate. ok is
// false when there is nothing to flush yet (the Option<U> in the original
// design).
type Collector[T, U any] interface {
	Collect(ctx context.Context, in T) error
	Flush(ctx context.Context) (out U, ok bool, err error)
	FlushInterval() time.Duration
}

// Exporter is a sink; side effects happen externally.
type Exporter[T any] interface {
	Export(ctx context.Context, in T) error
}

// ErrExit is returned by Poller.Poll and Listener.Listen to signal a graceful,
// voluntary end rather than a failure.
var ErrExit = exitError{}

type exitError struct{}

func (exitError) Error() string { return "pipe: exit" }

// IsExit reports whether err is (or wraps) ErrExit.
func IsExit(err error) bool {
	var e exitError
	return errors.As(err, &e)
}

// Configurable pairs a capability with the config value it was built from.
// Concrete adapters implement this so the registry can construct them
// generically from manifest-decoded config maps.
type Configurable interface {
	FromConfig(ctx context.Context, cfg map[string]any) (any, error)
}
