package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MarketScanner/internal/logger"
	"MarketScanner/internal/model"
	"MarketScanner/internal/orchestrator"
	"MarketScanner/internal/strategy"

	"github.com/robfig/cron/v3"
)

// DefaultSpec runs a scan every 15 minutes.
const DefaultSpec = "0 */15 * * * *"

// ErrBusy is returned by RunNow while another cycle is in progress.
var ErrBusy = errors.New("scan already running")

// Runner executes one scan cycle.
type Runner interface {
	RunCycle(ctx context.Context, detectors []strategy.Detector, universe []string) (*orchestrator.Cycle, error)
}

// Options configures a Scheduler.
type Options struct {
	Detectors       []strategy.Detector
	Universe        []string
	MarketHoursOnly bool
	Now             func() time.Time
}

// Scheduler drives scan cycles on a cron spec.
type Scheduler struct {
	Cron *cron.Cron
	Ctx  context.Context

	runner Runner
	opts   Options
	run    sync.Mutex
	log    logger.CronLogger
}

// NewScheduler creates a scheduler whose jobs recover from panics and skip
// a tick while the previous cycle is still running.
func NewScheduler(ctx context.Context, runner Runner, opts Options) *Scheduler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cl := logger.CronLogger{L: logger.Component("scheduler")}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(model.IST),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Ctx:    ctx,
		runner: runner,
		opts:   opts,
		log:    cl,
	}
}

// Register adds the scan job.
func (s *Scheduler) Register(spec string) error {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := s.Cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.L.Info().Msg("scheduler started")
}

// Stop stops the scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.L.Info().Msg("scheduler stopped")
}

// Next returns the next scheduled run, zero when nothing is registered.
// Before Start it is derived from the schedule itself.
func (s *Scheduler) Next() time.Time {
	entries := s.Cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if next := entries[0].Next; !next.IsZero() {
		return next
	}
	return entries[0].Schedule.Next(s.opts.Now().In(model.IST))
}

func (s *Scheduler) tick() {
	if s.opts.MarketHoursOnly && !MarketOpen(s.opts.Now()) {
		s.log.L.Debug().Msg("market closed, skipping scan")
		return
	}
	if _, err := s.RunNow(s.Ctx); err != nil {
		s.log.L.Error().Err(err).Msg("scheduled scan failed")
	}
}

// RunNow runs a cycle immediately regardless of market hours.
func (s *Scheduler) RunNow(ctx context.Context) (*orchestrator.Cycle, error) {
	if !s.run.TryLock() {
		return nil, ErrBusy
	}
	defer s.run.Unlock()
	return s.runner.RunCycle(ctx, s.opts.Detectors, s.opts.Universe)
}

// MarketOpen reports whether NSE is in its regular session at t:
// Monday to Friday, 09:15 to 15:30 IST inclusive.
func MarketOpen(t time.Time) bool {
	ist := t.In(model.IST)
	if wd := ist.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	minutes := ist.Hour()*60 + ist.Minute()
	open, closing := 9*60+15, 15*60+30
	if minutes == closing {
		return ist.Second() == 0 && ist.Nanosecond() == 0
	}
	return minutes >= open && minutes < closing
}
