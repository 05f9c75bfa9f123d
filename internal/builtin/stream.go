package builtin

import (
	"context"
	"fmt"

	"github.com/pipebase/pipebase-sub000/pkg/pipe"
)

func init() {
	pipe.Register(pipe.KindStream, "splitter", func() pipe.Configurable { return &SplitterStreamer{} })
}

// SplitterStreamerConfig configures a SplitterStreamer.
type SplitterStreamerConfig struct {
	Separator string `mapstructure:"separator"`
}

// SplitterStreamer expects string input and emits one output value per
// substring split on Separator (default: a single space), the Go analogue of
// a 1→N tokenizing stream stage.
type SplitterStreamer struct {
	separator string
}

func (s *SplitterStreamer) Stream(ctx context.Context, in any, out chan<- any) error {
	str, ok := in.(string)
	if !ok {
		return fmt.Errorf("builtin: splitter streamer expects a string, got %T", in)
	}
	start := 0
	sep := s.separator
	for i := 0; i+len(sep) <= len(str); i++ {
		if sep != "" && str[i:i+len(sep)] == sep {
			if err := send(ctx, out, str[start:i]); err != nil {
				return err
			}
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	return send(ctx, out, str[start:])
}

func send(ctx context.Context, out chan<- any, v any) error {
	select {
	case out <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SplitterStreamer) FromConfig(ctx context.Context, cfg map[string]any) (any, error) {
	var c SplitterStreamerConfig
	if err := decode(cfg, &c); err != nil {
		return nil, fmt.Errorf("builtin: splitter streamer config: %w", err)
	}
	if c.Separator == "" {
		c.Separator = " "
	}
	return &SplitterStreamer{separator: c.Separator}, nil
}
