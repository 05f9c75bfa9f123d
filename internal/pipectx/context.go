// Package pipectx implements the observable runtime state every pipe
// executor carries: a small state machine plus run/failure counters, safe to
// read from a concurrent observer without locking.
package pipectx

import (
	"fmt"
	"sync/atomic"
)

// State is the lifecycle stage a pipe's Context currently reports.
type State uint32

const (
	Init State = iota
	Receive
	Poll
	Map
	Send
	Export
	Done
)

var stateNames = [...]string{"init", "receive", "poll", "map", "send", "export", "done"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint32(s))
}

// ParseState converts a lower-case state name back to a State.
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return 0, false
}

// Context is the multi-reader, multi-writer state a single pipe carries for
// its entire lifetime. The owning executor is the sole writer of state_code;
// total_run/failure_run are incremented only by the owning executor (or, for
// Collector/Listener's two-task split, by whichever of the pair last touches
// the shared capability). Observers only ever read.
type Context struct {
	name        string
	stateCode   atomic.Uint32
	totalRun    atomic.Uint64
	failureRun  atomic.Uint64
}

// New creates a Context in state Init for the named pipe.
func New(name string) *Context {
	c := &Context{name: name}
	c.stateCode.Store(uint32(Init))
	return c
}

func (c *Context) Name() string { return c.name }

func (c *Context) GetState() State { return State(c.stateCode.Load()) }

func (c *Context) SetState(s State) { c.stateCode.Store(uint32(s)) }

func (c *Context) GetTotalRun() uint64 { return c.totalRun.Load() }

func (c *Context) GetFailureRun() uint64 { return c.failureRun.Load() }

func (c *Context) IncTotalRun() { c.totalRun.Add(1) }

func (c *Context) IncFailureRun() { c.failureRun.Add(1) }

// IsDone reports whether the pipe has reached its terminal state.
func (c *Context) IsDone() bool { return c.GetState() == Done }

// View is the JSON-serializable snapshot of a Context returned by the context
// HTTP server and the periodic store observer.
type View struct {
	Name       string `json:"name"`
	State      string `json:"state"`
	TotalRun   uint64 `json:"total_run"`
	FailureRun uint64 `json:"failure_run"`
}

// Snapshot takes a point-in-time View of the Context. Because each field is
// read independently via atomics, the View is not a single atomic snapshot —
// callers that need strict consistency should only rely on State settling to
// Done, at which point total_run/failure_run no longer change.
func (c *Context) Snapshot() View {
	return View{
		Name:       c.name,
		State:      c.GetState().String(),
		TotalRun:   c.GetTotalRun(),
		FailureRun: c.GetFailureRun(),
	}
}

func (v View) String() string {
	return fmt.Sprintf("%s: state=%s total_run=%d failure_run=%d", v.Name, v.State, v.TotalRun, v.FailureRun)
}
