// Package errbus implements the single optional error channel every
// executor may publish onto: a PipeError carries the name of the pipe that
// failed and the underlying cause, and is dropped (with a log line) if no
// bus was installed at bootstrap.
package errbus

import "log/slog"

// PipeError is the record pushed onto the bus whenever a capability call
// fails inside an executor's run loop.
type PipeError struct {
	PipeName string
	Cause    error
}

func (e PipeError) Error() string {
	return e.PipeName + ": " + e.Cause.Error()
}

func (e PipeError) Unwrap() error { return e.Cause }

// Sender is the handle executors publish errors through. It may be cloned
// (assigned to many pipes); the zero Sender is valid and logs, then drops,
// every error published through it.
type Sender struct {
	ch chan<- PipeError
}

// Bus owns the single receiver side of the error channel.
type Bus struct {
	ch chan PipeError
}

// New creates a Bus with the given buffer capacity.
func New(capacity int) *Bus {
	return &Bus{ch: make(chan PipeError, capacity)}
}

// Sender returns a Sender bound to this bus. Every pipe executor gets its own
// copy of the returned value (Sender is a small value type, cheap to clone).
func (b *Bus) Sender() Sender {
	if b == nil {
		return Sender{}
	}
	return Sender{ch: b.ch}
}

// Receive returns the bus's single receive-only channel, owned by whichever
// one pipe consumes errors.
func (b *Bus) Receive() <-chan PipeError { return b.ch }

// Close closes the underlying channel. Must only be called once all
// publishing executors have exited.
func (b *Bus) Close() { close(b.ch) }

// Publish pushes a PipeError onto the bus. If s has no underlying channel
// (the bus was never installed), the error is logged and dropped. If the
// channel is full, Publish logs and drops rather than blocking the executor.
func Publish(s Sender, pipeName string, cause error) {
	if s.ch == nil {
		slog.Error("pipe error (no error bus installed)", "pipe", pipeName, "error", cause)
		return
	}
	select {
	case s.ch <- PipeError{PipeName: pipeName, Cause: cause}:
	default:
		slog.Error("pipe error bus full, dropping", "pipe", pipeName, "error", cause)
	}
}
