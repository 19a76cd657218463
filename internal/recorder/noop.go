package recorder

import (
	"context"

	"MarketScanner/internal/orchestrator"
)

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordCycle(context.Context, *orchestrator.Cycle) error { return nil }
func (n *NoopRecorder) SignalCount(context.Context, string) (int, error)       { return 0, nil }
func (n *NoopRecorder) Close() error                                           { return nil }

func (n *NoopRecorder) RecentCycles(context.Context, int) ([]CycleSummary, error) {
	return nil, nil
}
