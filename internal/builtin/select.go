package builtin

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pipebase/pipebase-sub000/pkg/pipe"
)

func init() {
	pipe.Register(pipe.KindSelect, "broadcast", func() pipe.Configurable { return BroadcastSelector{} })
	pipe.Register(pipe.KindSelect, "random", func() pipe.Configurable { return &RandomSelector{} })
	pipe.Register(pipe.KindSelect, "round_robin", func() pipe.Configurable { return &RoundRobinSelector{} })
	pipe.Register(pipe.KindSelect, "hash", func() pipe.Configurable { return &HashSelector{} })
}

// BroadcastSelector routes every value to every live downstream.
type BroadcastSelector struct{}

func (BroadcastSelector) Select(ctx context.Context, in any, live []int) ([]int, error) {
	return live, nil
}
func (BroadcastSelector) FromConfig(ctx context.Context, cfg map[string]any) (any, error) {
	return BroadcastSelector{}, nil
}

// RandomSelector routes each value to exactly one uniformly-chosen live
// downstream.
type RandomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *RandomSelector) Select(ctx context.Context, in any, live []int) ([]int, error) {
	if len(live) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(1))
	}
	return []int{live[s.rng.Intn(len(live))]}, nil
}

func (s *RandomSelector) FromConfig(ctx context.Context, cfg map[string]any) (any, error) {
	return &RandomSelector{}, nil
}

// RoundRobinSelector cycles through live downstreams in index order.
type RoundRobinSelector struct {
	next atomic.Uint64
}

func (s *RoundRobinSelector) Select(ctx context.Context, in any, live []int) ([]int, error) {
	if len(live) == 0 {
		return nil, nil
	}
	i := s.next.Add(1) - 1
	return []int{live[int(i%uint64(len(live)))]}, nil
}

func (s *RoundRobinSelector) FromConfig(ctx context.Context, cfg map[string]any) (any, error) {
	return &RoundRobinSelector{}, nil
}

// HashSelectorConfig names the field a HashSelector partitions records by.
// Left empty, the whole value is hashed — the right default for unkeyed
// payloads like plain strings or numbers, where there is no separate key to
// extract.
type HashSelectorConfig struct {
	KeyField string `mapstructure:"key_field"`
}

// HashSelector routes a value deterministically by FNV hash modulo,
// partitioning the live downstream set. When KeyField is set, only that
// field of the input is hashed, so two records that share a key always land
// on the same downstream regardless of how their other fields differ.
type HashSelector struct {
	keyField string
}

func (s *HashSelector) Select(ctx context.Context, in any, live []int) ([]int, error) {
	if len(live) == 0 {
		return nil, nil
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprint(hashKey(in, s.keyField))))
	return []int{live[int(h.Sum32())%len(live)]}, nil
}

func (s *HashSelector) FromConfig(ctx context.Context, cfg map[string]any) (any, error) {
	var c HashSelectorConfig
	if err := decode(cfg, &c); err != nil {
		return nil, fmt.Errorf("builtin: hash selector config: %w", err)
	}
	return &HashSelector{keyField: c.KeyField}, nil
}

// hashKey extracts field from in, the value HashSelector actually hashes.
// in may be a map[string]any (the shape a decoded record typically takes
// once it crosses the type-erased boundary) or a struct; field is matched
// case-insensitively against struct field names. With no field configured,
// or when it can't be found, the whole value is hashed instead.
func hashKey(in any, field string) any {
	if field == "" {
		return in
	}
	if m, ok := in.(map[string]any); ok {
		if v, ok := m[field]; ok {
			return v
		}
		return in
	}
	rv := reflect.ValueOf(in)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return in
	}
	fv := rv.FieldByNameFunc(func(name string) bool {
		return strings.EqualFold(name, field)
	})
	if !fv.IsValid() {
		return in
	}
	return fv.Interface()
}
