// Package bootstrap turns a validated manifest.Manifest into a running
// Graph: it resolves each pipe's capability from the pkg/pipe registry,
// wires channels between pipes per their upstream declarations, registers a
// pipectx.Context per pipe with the context store, and drives every pipe
// through a generic executor goroutine.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/pipebase/pipebase-sub000/internal/ctxstore"
	"github.com/pipebase/pipebase-sub000/internal/errbus"
	"github.com/pipebase/pipebase-sub000/internal/executor"
	"github.com/pipebase/pipebase-sub000/internal/log"
	"github.com/pipebase/pipebase-sub000/internal/manifest"
	"github.com/pipebase/pipebase-sub000/internal/pchannel"
	"github.com/pipebase/pipebase-sub000/internal/pipectx"
	"github.com/pipebase/pipebase-sub000/pkg/pipe"
)

var kindMap = map[manifest.Kind]pipe.Kind{
	manifest.KindListener:  pipe.KindListen,
	manifest.KindPoller:    pipe.KindPoll,
	manifest.KindMapper:    pipe.KindMap,
	manifest.KindStreamer:  pipe.KindStream,
	manifest.KindSelector:  pipe.KindSelect,
	manifest.KindCollector: pipe.KindCollect,
	manifest.KindExporter:  pipe.KindExport,
}

// Graph is a fully wired, runnable instantiation of a manifest. Every pipe's
// Rx/Tx channels carry `any`; capability adapters are responsible for
// asserting the concrete payload type they expect, the same type-erasure
// boundary the registry's Configurable.FromConfig already crosses.
type Graph struct {
	defaultBuffer int
	errBus        *errbus.Bus
	store         *ctxstore.Store

	pipes  []manifest.PipeDef
	byName map[string]manifest.PipeDef

	rx     map[string]chan any          // merged receive channel per non-source pipe
	tx     map[string][]chan<- any      // outgoing senders per pipe, one per downstream
	txDone map[string][]<-chan struct{} // per-sender liveness signal, parallel to tx
	closed map[string]chan struct{}    // this pipe's own "I'm gone" signal, closed on exit

	pendingFanIns []fanIn

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// fanIn records a set of upstream edge channels that must be merged into one
// receive channel before the graph starts running.
type fanIn struct {
	dst  chan any
	srcs []chan any
}

// Build validates m, wires the channel topology, and registers a Context per
// pipe. It neither resolves capabilities nor starts any executor goroutines;
// Start does both.
func Build(ctx context.Context, m manifest.Manifest, defaultBuffer, errBufferSize int) (*Graph, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	g := &Graph{
		defaultBuffer: defaultBuffer,
		errBus:        errbus.New(errBufferSize),
		store:         ctxstore.New(),
		pipes:         m.Pipes,
		byName:        make(map[string]manifest.PipeDef, len(m.Pipes)),
		rx:            make(map[string]chan any),
		tx:            make(map[string][]chan<- any),
		txDone:        make(map[string][]<-chan struct{}),
		closed:        make(map[string]chan struct{}, len(m.Pipes)),
	}
	for _, p := range m.Pipes {
		g.byName[p.Name] = p
		g.closed[p.Name] = make(chan struct{})
	}

	// One dedicated channel per (upstream, downstream) edge; a pipe with
	// more than one upstream gets its edges merged into a single receive
	// channel by a small fan-in goroutine started in Start. Every edge also
	// carries the downstream's Closed signal back to the upstream's sender
	// set, so a receiver going away prunes the edge structurally instead of
	// relying on the shared run context.
	edgeChans := make(map[string][]chan any) // downstream name -> its incoming edge channels
	for _, p := range m.Pipes {
		for _, up := range p.UpstreamNames() {
			buf := p.Buffer
			if buf <= 0 {
				buf = g.defaultBuffer
			}
			ch := make(chan any, buf)
			edgeChans[p.Name] = append(edgeChans[p.Name], ch)
			g.tx[up] = append(g.tx[up], (chan<- any)(ch))
			g.txDone[up] = append(g.txDone[up], (<-chan struct{})(g.closed[p.Name]))
		}
	}
	for name, chans := range edgeChans {
		if len(chans) == 1 {
			g.rx[name] = chans[0]
			continue
		}
		merged := make(chan any, g.defaultBuffer)
		g.rx[name] = merged
		g.pendingFanIns = append(g.pendingFanIns, fanIn{dst: merged, srcs: chans})
	}

	for _, p := range m.Pipes {
		g.store.Register(p.Name, pipectx.New(p.Name))
	}

	return g, nil
}

// startFanIns launches one merge goroutine per pending fan-in: each reads
// from every listed source channel and forwards onto the shared destination,
// closing the destination only once every source has closed.
func (g *Graph) startFanIns() {
	for _, f := range g.pendingFanIns {
		f := f
		var wg sync.WaitGroup
		wg.Add(len(f.srcs))
		for _, src := range f.srcs {
			src := src
			go func() {
				defer wg.Done()
				for v := range src {
					f.dst <- v
				}
			}()
		}
		go func() {
			wg.Wait()
			close(f.dst)
		}()
	}
}

func (g *Graph) ErrBus() *errbus.Bus   { return g.errBus }
func (g *Graph) Store() *ctxstore.Store { return g.store }

// Resolve builds the capability for one pipe via the pkg/pipe registry,
// decoding its on-disk config (if any) into a map[string]any first.
func Resolve(ctx context.Context, p manifest.PipeDef) (any, error) {
	kind, ok := kindMap[p.Kind]
	if !ok {
		return nil, fmt.Errorf("bootstrap: pipe %q has unmapped kind %q", p.Name, p.Kind)
	}
	factory, err := pipe.Get(kind, p.Config.Type)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: pipe %q: %w", p.Name, err)
	}

	cfg := map[string]any{}
	if p.Config.Path != "" {
		raw, err := readYAMLFile(p.Config.Path)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: pipe %q config: %w", p.Name, err)
		}
		cfg = raw
	}

	configurable := factory()
	capability, err := configurable.FromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: pipe %q: fatal bootstrap error: %w", p.Name, err)
	}
	return capability, nil
}

func readYAMLFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Start resolves every pipe's capability and launches its executor. Pipes
// are started in reverse dependency order — sinks and their immediate
// upstreams first — so no producer can observe a receiver that does not
// exist yet.
func (g *Graph) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.startFanIns()

	order := g.reverseTopological()
	for _, name := range order {
		p := g.byName[name]
		capability, err := Resolve(runCtx, p)
		if err != nil {
			cancel()
			return err
		}
		pctx, _ := g.store.Load(p.Name)
		if err := g.launch(runCtx, p, pctx, capability); err != nil {
			cancel()
			return err
		}
	}
	return nil
}

// Wait blocks until every started executor has returned.
func (g *Graph) Wait() {
	g.wg.Wait()
}

// Shutdown cancels the run context, forcing every executor to observe
// ctx.Done even if the structural channel-closure cascade has not reached it
// yet, then waits for all of them to exit.
func (g *Graph) Shutdown() {
	if g.cancel != nil {
		g.cancel()
	}
	g.Wait()
}

func (g *Graph) launch(ctx context.Context, p manifest.PipeDef, pctx *pipectx.Context, capability any) error {
	name := p.Name
	sender := g.errBus.Sender()
	clone := pchannel.Identity[any]

	ch := pchannel.Channels[any, any]{
		Tx:     g.tx[name],
		TxDone: g.txDone[name],
		Closed: g.closed[name],
	}
	if rx, ok := g.rx[name]; ok {
		ch.Rx = rx
	}

	g.wg.Add(1)
	run := func(fn func() error) {
		defer g.wg.Done()
		if err := fn(); err != nil {
			log.PipeLogger(name).Error("pipe exited with error", "err", err)
		}
	}

	switch p.Kind {
	case manifest.KindPoller:
		c, ok := capability.(pipe.Poller[any])
		if !ok {
			return fmt.Errorf("bootstrap: pipe %q capability does not implement Poller", name)
		}
		go run(func() error { return executor.RunPoller[any](ctx, name, pctx, c, ch, sender, clone) })
	case manifest.KindListener:
		c, ok := capability.(pipe.Listener[any])
		if !ok {
			return fmt.Errorf("bootstrap: pipe %q capability does not implement Listener", name)
		}
		go run(func() error { return executor.RunListener[any](ctx, name, pctx, c, ch, sender, clone) })
	case manifest.KindMapper:
		c, ok := capability.(pipe.Mapper[any, any])
		if !ok {
			return fmt.Errorf("bootstrap: pipe %q capability does not implement Mapper", name)
		}
		go run(func() error { return executor.RunMapper[any, any](ctx, name, pctx, c, ch, sender, clone) })
	case manifest.KindStreamer:
		c, ok := capability.(pipe.Streamer[any, any])
		if !ok {
			return fmt.Errorf("bootstrap: pipe %q capability does not implement Streamer", name)
		}
		go run(func() error { return executor.RunStreamer[any, any](ctx, name, pctx, c, ch, sender, clone) })
	case manifest.KindSelector:
		c, ok := capability.(pipe.Selector[any])
		if !ok {
			return fmt.Errorf("bootstrap: pipe %q capability does not implement Selector", name)
		}
		go run(func() error { return executor.RunSelector[any](ctx, name, pctx, c, ch, sender, clone) })
	case manifest.KindCollector:
		c, ok := capability.(pipe.Collector[any, any])
		if !ok {
			return fmt.Errorf("bootstrap: pipe %q capability does not implement Collector", name)
		}
		go run(func() error { return executor.RunCollector[any, any](ctx, name, pctx, c, ch, sender, clone) })
	case manifest.KindExporter:
		c, ok := capability.(pipe.Exporter[any])
		if !ok {
			return fmt.Errorf("bootstrap: pipe %q capability does not implement Exporter", name)
		}
		go run(func() error { return executor.RunExporter[any](ctx, name, pctx, c, ch, sender) })
	default:
		return fmt.Errorf("bootstrap: pipe %q has unknown kind %q", name, p.Kind)
	}
	return nil
}

// reverseTopological returns pipe names ordered so every pipe appears before
// its upstreams — sinks first, sources last — the startup order that
// guarantees every receiver exists before its producer begins running.
func (g *Graph) reverseTopological() []string {
	downstreamOf := make(map[string][]string, len(g.pipes))
	for _, p := range g.pipes {
		for _, up := range p.UpstreamNames() {
			downstreamOf[up] = append(downstreamOf[up], p.Name)
		}
	}

	visited := make(map[string]bool, len(g.pipes))
	var order []string

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		for _, down := range downstreamOf[name] {
			visit(down)
		}
		order = append(order, name)
	}

	for _, p := range g.pipes {
		visit(p.Name)
	}
	return order
}
