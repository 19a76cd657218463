package recorder

import (
	"context"
	"time"

	"MarketScanner/internal/orchestrator"
)

// CycleSummary is one persisted scan cycle.
type CycleSummary struct {
	ID         int64     `json:"id"`
	Number     int       `json:"number"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Signals    int       `json:"signals"`
	Errors     int       `json:"errors"`
}

// Recorder persists scan history for later analysis.
type Recorder interface {
	RecordCycle(ctx context.Context, c *orchestrator.Cycle) error
	RecentCycles(ctx context.Context, limit int) ([]CycleSummary, error)
	SignalCount(ctx context.Context, symbol string) (int, error)
	Close() error
}

// Hook adapts r to a post-cycle orchestrator hook.
func Hook(r Recorder) orchestrator.Hook {
	return orchestrator.HookFunc{Label: "recorder", Fn: r.RecordCycle}
}
