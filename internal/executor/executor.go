// Package executor implements the seven generic run-loops that drive a
// capability from pkg/pipe against a channel bundle, mutating a pipectx.Context
// and publishing failures onto an error bus as they go. Each Run* function is
// grounded on one capability trait and terminates per the same rules:
// upstream closing, all downstreams going away, or the capability exiting
// voluntarily.
package executor

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pipebase/pipebase-sub000/internal/errbus"
	"github.com/pipebase/pipebase-sub000/internal/pchannel"
	"github.com/pipebase/pipebase-sub000/internal/pipectx"
	"github.com/pipebase/pipebase-sub000/pkg/pipe"
)

// RunPoller drives a Poller capability: apply its initial delay, then on
// every interval tick call Poll, fanning out any produced value.
func RunPoller[U any](ctx context.Context, name string, pctx *pipectx.Context, p pipe.Poller[U], ch pchannel.Channels[struct{}, U], errs errbus.Sender, clone func(U) U) error {
	if ch.Rx != nil {
		panic("executor: poller must not have a receiver")
	}
	if len(ch.Tx) == 0 {
		panic("executor: poller must have at least one sender")
	}

	live := ch.Live()
	defer func() {
		pctx.SetState(pipectx.Done)
		pchannel.CloseAll(ch.Tx)
		ch.CloseSelf()
	}()

	if d := p.InitialDelay(); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	pctx.SetState(pipectx.Poll)
	for {
		if len(live) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		v, err := p.Poll(ctx)
		if err != nil {
			if pipe.IsExit(err) {
				return nil
			}
			pctx.IncTotalRun()
			pctx.IncFailureRun()
			errbus.Publish(errs, name, err)
			continue
		}
		if v == nil {
			continue
		}

		pctx.SetState(pipectx.Send)
		pchannel.FanOut(ctx, name, live, *v, clone)
		pctx.IncTotalRun()
		pctx.SetState(pipectx.Poll)
	}
}

// RunListener drives a Listener capability across two joined goroutines: one
// runs the capability's own Listen loop against an internal channel, the
// other drains that channel and fans values out downstream.
func RunListener[U any](ctx context.Context, name string, pctx *pipectx.Context, l pipe.Listener[U], ch pchannel.Channels[struct{}, U], errs errbus.Sender, clone func(U) U) error {
	if ch.Rx != nil {
		panic("executor: listener must not have a receiver")
	}
	if len(ch.Tx) == 0 {
		panic("executor: listener must have at least one sender")
	}

	internal := make(chan U, 1)
	live := ch.Live()

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)

	var listenErr error
	go func() {
		defer wg.Done()
		defer close(internal)
		if err := l.Listen(listenCtx, internal); err != nil && !pipe.IsExit(err) {
			listenErr = err
			errbus.Publish(errs, name, err)
		}
	}()

	go func() {
		defer wg.Done()
		defer pchannel.CloseAll(ch.Tx)
		for {
			if len(live) == 0 {
				cancel()
				return
			}
			pctx.SetState(pipectx.Receive)
			v, ok := <-internal
			if !ok {
				return
			}
			pctx.SetState(pipectx.Send)
			pchannel.FanOut(ctx, name, live, v, clone)
			pctx.IncTotalRun()
		}
	}()

	wg.Wait()
	pctx.SetState(pipectx.Done)
	ch.CloseSelf()
	return listenErr
}

// RunMapper drives a Mapper capability: receive, transform, fan out.
func RunMapper[T, U any](ctx context.Context, name string, pctx *pipectx.Context, m pipe.Mapper[T, U], ch pchannel.Channels[T, U], errs errbus.Sender, clone func(U) U) error {
	if ch.Rx == nil {
		panic("executor: mapper requires a receiver")
	}
	if len(ch.Tx) == 0 {
		panic("executor: mapper requires at least one sender")
	}

	live := ch.Live()
	defer func() {
		pctx.SetState(pipectx.Done)
		pchannel.CloseAll(ch.Tx)
		ch.CloseSelf()
	}()

	for {
		if len(live) == 0 {
			return nil
		}
		pctx.SetState(pipectx.Receive)
		in, ok := <-ch.Rx
		if !ok {
			return nil
		}

		pctx.SetState(pipectx.Map)
		out, err := m.Map(ctx, in)
		if err != nil {
			pctx.IncTotalRun()
			pctx.IncFailureRun()
			errbus.Publish(errs, name, err)
			continue
		}

		pctx.SetState(pipectx.Send)
		pchannel.FanOut(ctx, name, live, out, clone)
		pctx.IncTotalRun()
	}
}

// RunStreamer drives a Streamer capability across two joined goroutines: one
// pulls one upstream input at a time and calls Stream against an internal
// channel, the other drains that channel and fans items out downstream.
func RunStreamer[T, U any](ctx context.Context, name string, pctx *pipectx.Context, s pipe.Streamer[T, U], ch pchannel.Channels[T, U], errs errbus.Sender, clone func(U) U) error {
	if ch.Rx == nil {
		panic("executor: streamer requires a receiver")
	}
	if len(ch.Tx) == 0 {
		panic("executor: streamer requires at least one sender")
	}

	internal := make(chan U, 1)
	live := ch.Live()

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer close(internal)
		for {
			pctx.SetState(pipectx.Receive)
			in, ok := <-ch.Rx
			if !ok {
				return
			}
			pctx.SetState(pipectx.Map)
			if err := s.Stream(streamCtx, in, internal); err != nil {
				pctx.IncTotalRun()
				pctx.IncFailureRun()
				errbus.Publish(errs, name, err)
			}
			select {
			case <-streamCtx.Done():
				return
			default:
			}
		}
	}()

	go func() {
		defer wg.Done()
		defer pchannel.CloseAll(ch.Tx)
		for {
			if len(live) == 0 {
				cancel()
				return
			}
			pctx.SetState(pipectx.Send)
			v, ok := <-internal
			if !ok {
				return
			}
			pchannel.FanOut(ctx, name, live, v, clone)
			pctx.IncTotalRun()
		}
	}()

	wg.Wait()
	pctx.SetState(pipectx.Done)
	ch.CloseSelf()
	return nil
}

// RunSelector drives a Selector capability: receive, ask which live
// downstreams should get a copy, fan out only to those.
func RunSelector[T any](ctx context.Context, name string, pctx *pipectx.Context, sel pipe.Selector[T], ch pchannel.Channels[T, T], errs errbus.Sender, clone func(T) T) error {
	if ch.Rx == nil {
		panic("executor: selector requires a receiver")
	}
	if len(ch.Tx) == 0 {
		panic("executor: selector requires at least one sender")
	}

	live := ch.Live()
	defer func() {
		pctx.SetState(pipectx.Done)
		pchannel.CloseAll(ch.Tx)
		ch.CloseSelf()
	}()

	for {
		if len(live) == 0 {
			return nil
		}
		pctx.SetState(pipectx.Receive)
		in, ok := <-ch.Rx
		if !ok {
			return nil
		}

		pctx.SetState(pipectx.Send)
		candidates := make([]int, 0, len(live))
		for idx := range live {
			candidates = append(candidates, idx)
		}
		sort.Ints(candidates)

		selected, err := sel.Select(ctx, in, candidates)
		if err != nil {
			pctx.IncFailureRun()
			pctx.IncTotalRun()
			errbus.Publish(errs, name, err)
			continue
		}

		pchannel.FanOutSubset(ctx, name, live, selected, in, clone)
		pctx.IncTotalRun()
	}
}

// RunCollector drives a Collector capability across two joined goroutines
// sharing an exclusive lock over the capability: a collect task that drains
// upstream and a flush task that periodically emits an aggregate. The flush
// task is guaranteed to run exactly one more flush after upstream closes
// before it exits, so nothing buffered at close time is lost.
func RunCollector[T, U any](ctx context.Context, name string, pctx *pipectx.Context, c pipe.Collector[T, U], ch pchannel.Channels[T, U], errs errbus.Sender, clone func(U) U) error {
	if ch.Rx == nil {
		panic("executor: collector requires a receiver")
	}
	if len(ch.Tx) == 0 {
		panic("executor: collector requires at least one sender")
	}

	live := ch.Live()

	var capMu sync.Mutex
	var upstreamClosed, flushEnded atomic.Bool

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for !flushEnded.Load() {
			in, ok := <-ch.Rx
			if !ok {
				upstreamClosed.Store(true)
				return
			}
			capMu.Lock()
			err := c.Collect(ctx, in)
			capMu.Unlock()
			if err != nil {
				errbus.Publish(errs, name, err)
			}
		}
	}()

	go func() {
		defer wg.Done()
		defer func() {
			flushEnded.Store(true)
			pctx.SetState(pipectx.Done)
			pchannel.CloseAll(ch.Tx)
			ch.CloseSelf()
		}()

		ticker := time.NewTicker(c.FlushInterval())
		defer ticker.Stop()

		for {
			pctx.SetState(pipectx.Receive)
			if len(live) == 0 {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			// Read the flag before flushing: once it is set, every Collect
			// call has already returned, so this flush drains them all.
			closedBeforeFlush := upstreamClosed.Load()
			capMu.Lock()
			out, ok, err := c.Flush(ctx)
			capMu.Unlock()

			if err != nil {
				pctx.IncFailureRun()
				pctx.IncTotalRun()
				errbus.Publish(errs, name, err)
			} else if ok {
				pctx.SetState(pipectx.Send)
				pchannel.FanOut(ctx, name, live, out, clone)
				pctx.IncTotalRun()
			}

			if closedBeforeFlush {
				return
			}
		}
	}()

	wg.Wait()
	return nil
}

// RunExporter drives an Exporter capability: receive, export, always count
// the run, count a failure only when export itself errored.
func RunExporter[T any](ctx context.Context, name string, pctx *pipectx.Context, e pipe.Exporter[T], ch pchannel.Channels[T, struct{}], errs errbus.Sender) error {
	if ch.Rx == nil {
		panic("executor: exporter requires a receiver")
	}
	if len(ch.Tx) != 0 {
		panic("executor: exporter must not have senders")
	}

	defer pctx.SetState(pipectx.Done)
	defer ch.CloseSelf()

	for {
		pctx.SetState(pipectx.Receive)
		in, ok := <-ch.Rx
		if !ok {
			return nil
		}

		pctx.SetState(pipectx.Export)
		if err := e.Export(ctx, in); err != nil {
			pctx.IncFailureRun()
			errbus.Publish(errs, name, err)
		}
		pctx.IncTotalRun()
	}
}
