package ctxstore

import (
	"context"
	"testing"
	"time"

	"github.com/pipebase/pipebase-sub000/internal/pipectx"
)

func TestRegisterAndLoad(t *testing.T) {
	s := New()
	c := pipectx.New("p1")
	s.Register("p1", c)

	got, ok := s.Load("p1")
	if !ok {
		t.Fatal("expected p1 to be registered")
	}
	if got != c {
		t.Error("Load returned a different Context than registered")
	}
}

func TestLoadMissing(t *testing.T) {
	s := New()
	if _, ok := s.Load("missing"); ok {
		t.Error("expected Load(missing) to report not found")
	}
}

func TestSnapshotSortedByName(t *testing.T) {
	s := New()
	s.Register("b", pipectx.New("b"))
	s.Register("a", pipectx.New("a"))

	views := s.Snapshot()
	if len(views) != 2 || views[0].Name != "a" || views[1].Name != "b" {
		t.Errorf("Snapshot() = %+v, want sorted [a b]", views)
	}
}

func TestRunExitsWhenAllDone(t *testing.T) {
	s := New()
	c1 := pipectx.New("p1")
	c2 := pipectx.New("p2")
	s.Register("p1", c1)
	s.Register("p2", c2)

	c1.SetState(pipectx.Done)
	c2.SetState(pipectx.Done)

	done := make(chan struct{})
	go func() {
		s.Run(context.Background(), time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after all pipes reached Done")
	}
}

func TestRunExitsOnContextCancel(t *testing.T) {
	s := New()
	s.Register("p1", pipectx.New("p1")) // never reaches Done

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after context cancellation")
	}
}
