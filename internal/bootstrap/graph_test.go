package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/pipebase/pipebase-sub000/internal/manifest"
	"github.com/pipebase/pipebase-sub000/pkg/pipe"
)

type constPoller struct{ emitted bool }

func (p *constPoller) InitialDelay() time.Duration { return 0 }
func (p *constPoller) Interval() time.Duration     { return time.Millisecond }
func (p *constPoller) Poll(ctx context.Context) (*any, error) {
	if p.emitted {
		return nil, pipe.ErrExit
	}
	p.emitted = true
	var v any = 42
	return &v, nil
}
func (p *constPoller) FromConfig(ctx context.Context, cfg map[string]any) (any, error) {
	return &constPoller{}, nil
}

type recordingExporter struct {
	got chan any
}

func (e *recordingExporter) Export(ctx context.Context, in any) error {
	e.got <- in
	return nil
}
func (e *recordingExporter) FromConfig(ctx context.Context, cfg map[string]any) (any, error) {
	return e, nil
}

func testManifest() manifest.Manifest {
	return manifest.Manifest{
		Name: "smoke",
		Pipes: []manifest.PipeDef{
			{Name: "src", Kind: manifest.KindPoller, Output: "Int", Config: manifest.ConfigRef{Type: "const"}},
			{Name: "sink", Kind: manifest.KindExporter, Upstreams: "src", Config: manifest.ConfigRef{Type: "record"}},
		},
	}
}

func TestBuildWiresChannelsAndContexts(t *testing.T) {
	g, err := Build(context.Background(), testManifest(), 4, 4)
	if err != nil {
		t.Fatalf("Build returned %v", err)
	}
	if g.Store().Len() != 2 {
		t.Fatalf("Store().Len() = %d, want 2", g.Store().Len())
	}
	if len(g.tx["src"]) != 1 {
		t.Fatalf("src should have one outgoing edge, got %d", len(g.tx["src"]))
	}
	if g.rx["sink"] == nil {
		t.Fatal("sink should have a receive channel")
	}
}

func TestBuildRejectsInvalidManifest(t *testing.T) {
	m := testManifest()
	m.Pipes[0].Kind = manifest.Kind("bogus")
	if _, err := Build(context.Background(), m, 4, 4); err == nil {
		t.Fatal("expected Build to reject an invalid manifest")
	}
}

func TestStartRunsPipesEndToEnd(t *testing.T) {
	pipe.Register(pipe.KindPoll, "const-smoke", func() pipe.Configurable { return &constPoller{} })
	exp := &recordingExporter{got: make(chan any, 1)}
	pipe.Register(pipe.KindExport, "record-smoke", func() pipe.Configurable { return exp })

	m := testManifest()
	m.Pipes[0].Config.Type = "const-smoke"
	m.Pipes[1].Config.Type = "record-smoke"

	g, err := Build(context.Background(), m, 4, 4)
	if err != nil {
		t.Fatalf("Build returned %v", err)
	}
	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("Start returned %v", err)
	}

	select {
	case v := <-exp.got:
		if v != 42 {
			t.Fatalf("exported value = %v, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for exported value")
	}

	done := make(chan struct{})
	go func() { g.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("graph did not shut down after poller exited")
	}
}
