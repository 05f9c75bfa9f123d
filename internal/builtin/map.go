package builtin

import (
	"context"
	"fmt"

	"github.com/pipebase/pipebase-sub000/pkg/pipe"
)

func init() {
	pipe.Register(pipe.KindMap, "identity", func() pipe.Configurable { return IdentityMapper{} })
	pipe.Register(pipe.KindMap, "failing", func() pipe.Configurable { return &FailingMapper{} })
}

// IdentityMapper passes its input through unchanged.
type IdentityMapper struct{}

func (IdentityMapper) Map(ctx context.Context, in any) (any, error) { return in, nil }
func (IdentityMapper) FromConfig(ctx context.Context, cfg map[string]any) (any, error) {
	return IdentityMapper{}, nil
}

// FailingMapperConfig configures a FailingMapper.
type FailingMapperConfig struct {
	FailEveryN int `mapstructure:"fail_every_n"`
}

// FailingMapper passes values through but fails deterministically every Nth
// call, useful for exercising capability-error counting and the error bus.
type FailingMapper struct {
	failEveryN int
	calls      int
}

func (m *FailingMapper) Map(ctx context.Context, in any) (any, error) {
	m.calls++
	if m.failEveryN > 0 && m.calls%m.failEveryN == 0 {
		return nil, fmt.Errorf("builtin: failing mapper tripped on call %d", m.calls)
	}
	return in, nil
}

func (m *FailingMapper) FromConfig(ctx context.Context, cfg map[string]any) (any, error) {
	var c FailingMapperConfig
	if err := decode(cfg, &c); err != nil {
		return nil, fmt.Errorf("builtin: failing mapper config: %w", err)
	}
	if c.FailEveryN <= 0 {
		c.FailEveryN = 3
	}
	return &FailingMapper{failEveryN: c.FailEveryN}, nil
}
