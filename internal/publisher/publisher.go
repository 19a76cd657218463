package publisher

import (
	"context"

	"MarketScanner/internal/orchestrator"
)

// Publisher fans a completed cycle out to external consumers.
type Publisher interface {
	Publish(ctx context.Context, c *orchestrator.Cycle) error
	Close() error
}

// Hook adapts p to a post-cycle orchestrator hook.
func Hook(p Publisher) orchestrator.Hook {
	return orchestrator.HookFunc{Label: "publisher", Fn: p.Publish}
}

// Noop discards cycles.
type Noop struct{}

func (Noop) Publish(context.Context, *orchestrator.Cycle) error { return nil }
func (Noop) Close() error                                       { return nil }
