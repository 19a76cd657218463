package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MarketScanner/internal/logger"
	"MarketScanner/internal/metrics"
	"MarketScanner/internal/model"
	"MarketScanner/internal/strategy"
)

// ErrNoDetectors is returned when a cycle is requested with an empty selection.
var ErrNoDetectors = errors.New("no detectors selected")

const (
	// MaxErrorLog is the number of scan errors retained across cycles.
	MaxErrorLog = 10
	// MaxErrorMessage is the rune limit for a recorded error message.
	MaxErrorMessage = 100
)

// Cycle is the outcome of one scan across all selected detectors.
type Cycle struct {
	Number     int                           `json:"number"`
	StartedAt  time.Time                     `json:"started_at"`
	FinishedAt time.Time                     `json:"finished_at"`
	Order      []string                      `json:"order"`
	Results    map[string]*model.ResultTable `json:"results"`
	Errors     []model.ScanError             `json:"errors,omitempty"`
}

// Tables returns result tables in detector order.
func (c *Cycle) Tables() []*model.ResultTable {
	out := make([]*model.ResultTable, 0, len(c.Order))
	for _, name := range c.Order {
		if t, ok := c.Results[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// TotalSignals counts records across all tables.
func (c *Cycle) TotalSignals() int {
	n := 0
	for _, t := range c.Results {
		n += t.Len()
	}
	return n
}

// Duration returns the wall time of the cycle.
func (c *Cycle) Duration() time.Duration { return c.FinishedAt.Sub(c.StartedAt) }

// Hook consumes a completed cycle. Hook errors are logged and never fail
// the cycle.
type Hook interface {
	Name() string
	OnCycle(ctx context.Context, c *Cycle) error
}

// HookFunc adapts a function to Hook.
type HookFunc struct {
	Label string
	Fn    func(ctx context.Context, c *Cycle) error
}

func (h HookFunc) Name() string                                { return h.Label }
func (h HookFunc) OnCycle(ctx context.Context, c *Cycle) error { return h.Fn(ctx, c) }

// Options configures an Orchestrator.
type Options struct {
	Now     func() time.Time
	Metrics *metrics.Recorder
	Hooks   []Hook
}

// Orchestrator runs detectors over a universe and keeps the latest cycle and
// a bounded error log for readers.
type Orchestrator struct {
	src     strategy.SeriesSource
	now     func() time.Time
	metrics *metrics.Recorder
	hooks   []Hook

	mu     sync.RWMutex
	count  int
	last   *Cycle
	errLog []model.ScanError
}

// New creates an orchestrator reading series from src.
func New(src strategy.SeriesSource, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		src:     src,
		now:     opts.Now,
		metrics: opts.Metrics,
		hooks:   opts.Hooks,
	}
}

// AddHook registers a post-cycle hook.
func (o *Orchestrator) AddHook(h Hook) {
	o.mu.Lock()
	o.hooks = append(o.hooks, h)
	o.mu.Unlock()
}

// RunCycle runs every detector over universe. A detector that errors or
// panics yields an empty table and a ScanError; the others are unaffected.
// The cycle itself fails only on an empty selection or cancellation.
func (o *Orchestrator) RunCycle(ctx context.Context, detectors []strategy.Detector, universe []string) (*Cycle, error) {
	log := logger.Component("orchestrator")
	if len(detectors) == 0 {
		o.metrics.RecordCycle("failed", 0, o.now())
		return nil, ErrNoDetectors
	}

	o.mu.Lock()
	o.count++
	number := o.count
	o.mu.Unlock()

	cycle := &Cycle{
		Number:    number,
		StartedAt: o.now(),
		Results:   make(map[string]*model.ResultTable, len(detectors)),
	}
	log.Info().Int("cycle", number).Int("detectors", len(detectors)).Int("instruments", len(universe)).Msg("scan cycle started")

	for _, det := range detectors {
		name := det.Name()
		cycle.Order = append(cycle.Order, name)

		table, err := scanSafe(ctx, o.src, det, universe, cycle.StartedAt)
		if err != nil && ctx.Err() != nil {
			o.metrics.RecordCycle("aborted", o.now().Sub(cycle.StartedAt), o.now())
			return nil, fmt.Errorf("cycle %d aborted at %s: %w", number, name, ctx.Err())
		}
		if err != nil {
			log.Error().Err(err).Str("detector", name).Msg("detector failed")
			o.metrics.RecordFailure(name, "detector")
			cycle.Errors = append(cycle.Errors, model.ScanError{
				Time:     o.now(),
				Detector: name,
				Message:  truncate(err.Error(), MaxErrorMessage),
			})
			table = model.NewResultTable(name, det.Columns(), cycle.StartedAt)
		}
		for range table.Failed {
			o.metrics.RecordFailure(name, "instrument")
		}
		o.metrics.RecordSignals(name, table.Len())
		cycle.Results[name] = table
	}
	cycle.FinishedAt = o.now()

	o.mu.Lock()
	o.last = cycle
	o.errLog = append(o.errLog, cycle.Errors...)
	if len(o.errLog) > MaxErrorLog {
		o.errLog = append([]model.ScanError(nil), o.errLog[len(o.errLog)-MaxErrorLog:]...)
	}
	hooks := append([]Hook(nil), o.hooks...)
	o.mu.Unlock()

	status := "ok"
	if len(cycle.Errors) > 0 {
		status = "partial"
	}
	o.metrics.RecordCycle(status, cycle.Duration(), cycle.FinishedAt)
	log.Info().
		Int("cycle", number).
		Int("signals", cycle.TotalSignals()).
		Int("errors", len(cycle.Errors)).
		Dur("elapsed", cycle.Duration()).
		Msg("scan cycle completed")

	for _, h := range hooks {
		if err := h.OnCycle(ctx, cycle); err != nil {
			log.Warn().Err(err).Str("hook", h.Name()).Msg("post-cycle hook failed")
		}
	}
	return cycle, nil
}

// Last returns the most recent completed cycle, nil before the first.
func (o *Orchestrator) Last() *Cycle {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.last
}

// Count returns the number of cycles started.
func (o *Orchestrator) Count() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.count
}

// Errors returns a copy of the bounded error log, oldest first.
func (o *Orchestrator) Errors() []model.ScanError {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]model.ScanError(nil), o.errLog...)
}

// ClearErrors empties the error log.
func (o *Orchestrator) ClearErrors() {
	o.mu.Lock()
	o.errLog = nil
	o.mu.Unlock()
}

func scanSafe(ctx context.Context, src strategy.SeriesSource, det strategy.Detector, universe []string, now time.Time) (table *model.ResultTable, err error) {
	defer func() {
		if r := recover(); r != nil {
			table = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return strategy.Scan(ctx, src, det, universe, now)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
