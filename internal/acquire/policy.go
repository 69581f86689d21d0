package acquire

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNoSource is returned when every strategy was unavailable.
var ErrNoSource = errors.New("no band source available")

// Policy tries its strategies in order and keeps the first available result.
// A result is accepted however degraded it is.
type Policy struct {
	strategies []Acquirer
	logger     *slog.Logger
}

// NewPolicy creates a policy over the given strategies.
func NewPolicy(logger *slog.Logger, strategies ...Acquirer) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{strategies: strategies, logger: logger}
}

// Acquire returns bands from the first available strategy.
func (p *Policy) Acquire(ctx context.Context, req Request) (*Bands, error) {
	for _, s := range p.strategies {
		bands, ok := s.Acquire(ctx, req)
		if ok {
			p.logger.DebugContext(ctx, "bands acquired",
				slog.String("strategy", s.Name()),
				slog.String("source", bands.Source),
			)
			return bands, nil
		}
		p.logger.DebugContext(ctx, "strategy unavailable, trying next",
			slog.String("strategy", s.Name()),
		)
	}
	return nil, ErrNoSource
}
