// Package builtin implements the stock capability adapters every manifest
// can bind a pipe to by name: a timer-driven poller, pass-through and
// failing mappers, the fan-out selector family, a bag collector, an HTTP
// ingestion listener, and stdout/slice exporters. Each adapter registers
// itself with pkg/pipe on import.
package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/pipebase/pipebase-sub000/pkg/pipe"
)

func init() {
	pipe.Register(pipe.KindPoll, "timer", func() pipe.Configurable { return &TimerPoller{} })
}

// TimerPollerConfig configures a TimerPoller.
type TimerPollerConfig struct {
	InitialDelayMS int `mapstructure:"initial_delay_ms"`
	IntervalMS     int `mapstructure:"interval_ms"`
	MaxTicks       int `mapstructure:"max_ticks"` // 0 means unbounded
}

// TimerPoller emits the tick count on every scheduler interval, exiting once
// MaxTicks have been produced (0 means run forever).
type TimerPoller struct {
	initialDelay time.Duration
	interval     time.Duration
	maxTicks     int
	emitted      int
}

func (p *TimerPoller) InitialDelay() time.Duration { return p.initialDelay }
func (p *TimerPoller) Interval() time.Duration     { return p.interval }

func (p *TimerPoller) Poll(ctx context.Context) (*any, error) {
	if p.maxTicks > 0 && p.emitted >= p.maxTicks {
		return nil, pipe.ErrExit
	}
	p.emitted++
	var v any = p.emitted
	return &v, nil
}

// FromConfig builds a TimerPoller from a decoded manifest config map.
func (p *TimerPoller) FromConfig(ctx context.Context, cfg map[string]any) (any, error) {
	var c TimerPollerConfig
	if err := decode(cfg, &c); err != nil {
		return nil, fmt.Errorf("builtin: timer poller config: %w", err)
	}
	if c.IntervalMS <= 0 {
		c.IntervalMS = 1000
	}
	return &TimerPoller{
		initialDelay: time.Duration(c.InitialDelayMS) * time.Millisecond,
		interval:     time.Duration(c.IntervalMS) * time.Millisecond,
		maxTicks:     c.MaxTicks,
	}, nil
}
