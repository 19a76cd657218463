package notifier

import (
	"context"
	"sync"
	"time"

	"MarketScanner/internal/metrics"
	"MarketScanner/internal/orchestrator"
)

// DefaultMinInterval is the minimum gap between two scan reports.
const DefaultMinInterval = 15 * time.Minute

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, msg Message, maxRetries int) error
}

// CycleNotifier sends the filtered report after each cycle, at most once per
// MinInterval.
type CycleNotifier struct {
	Sender      Sender
	Rules       Rules
	MinInterval time.Duration
	MaxRetries  int
	Metrics     *metrics.Recorder
	Now         func() time.Time

	mu       sync.Mutex
	lastSent time.Time
}

// NewCycleNotifier returns a notifier hook with default throttling.
func NewCycleNotifier(s Sender, rules Rules, rec *metrics.Recorder) *CycleNotifier {
	return &CycleNotifier{
		Sender:      s,
		Rules:       rules,
		MinInterval: DefaultMinInterval,
		MaxRetries:  3,
		Metrics:     rec,
		Now:         time.Now,
	}
}

func (n *CycleNotifier) Name() string { return "telegram" }

// OnCycle implements orchestrator.Hook.
func (n *CycleNotifier) OnCycle(ctx context.Context, c *orchestrator.Cycle) error {
	now := n.Now()
	n.mu.Lock()
	if !n.lastSent.IsZero() && now.Sub(n.lastSent) < n.MinInterval {
		n.mu.Unlock()
		n.Metrics.RecordNotification("throttled")
		return nil
	}
	n.mu.Unlock()

	msg := FormatScanReport(c.Tables(), n.Rules, c.FinishedAt)
	if err := n.Sender.SendWithRetry(ctx, msg, n.MaxRetries); err != nil {
		n.Metrics.RecordNotification("failed")
		return err
	}
	n.mu.Lock()
	n.lastSent = now
	n.mu.Unlock()
	n.Metrics.RecordNotification("sent")
	return nil
}
