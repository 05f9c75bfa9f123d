package builtin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pipebase/pipebase-sub000/pkg/pipe"
)

func init() {
	pipe.Register(pipe.KindCollect, "bag", func() pipe.Configurable { return &BagCollector{} })
}

// BagCollectorConfig configures a BagCollector.
type BagCollectorConfig struct {
	FlushIntervalMS int `mapstructure:"flush_interval_ms"`
	MaxBatch        int `mapstructure:"max_batch"` // 0 means unbounded
}

// BagCollector accumulates every item it sees into a slice and flushes it
// (as a []any) on each tick. With MaxBatch set, one flush returns at most
// MaxBatch items and keeps the rest for later ticks; reaching MaxBatch does
// not trigger a flush on its own.
type BagCollector struct {
	mu            sync.Mutex
	items         []any
	maxBatch      int
	flushInterval time.Duration
}

func (c *BagCollector) Collect(ctx context.Context, in any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, in)
	return nil
}

func (c *BagCollector) Flush(ctx context.Context) (any, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return nil, false, nil
	}
	if c.maxBatch <= 0 || len(c.items) <= c.maxBatch {
		batch := c.items
		c.items = nil
		return batch, true, nil
	}
	batch := c.items[:c.maxBatch]
	c.items = c.items[c.maxBatch:]
	return batch, true, nil
}

func (c *BagCollector) FlushInterval() time.Duration { return c.flushInterval }

func (c *BagCollector) FromConfig(ctx context.Context, cfg map[string]any) (any, error) {
	var conf BagCollectorConfig
	if err := decode(cfg, &conf); err != nil {
		return nil, fmt.Errorf("builtin: bag collector config: %w", err)
	}
	if conf.FlushIntervalMS <= 0 {
		conf.FlushIntervalMS = 1000
	}
	return &BagCollector{
		flushInterval: time.Duration(conf.FlushIntervalMS) * time.Millisecond,
		maxBatch:      conf.MaxBatch,
	}, nil
}
