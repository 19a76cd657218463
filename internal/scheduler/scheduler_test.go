package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"MarketScanner/internal/model"
	"MarketScanner/internal/orchestrator"
	"MarketScanner/internal/strategy"
)

func TestMarketOpen(t *testing.T) {
	ist := func(day, hour, min, sec int) time.Time {
		return time.Date(2024, 3, day, hour, min, sec, 0, model.IST)
	}
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"monday before open", ist(4, 9, 14, 59), false},
		{"monday at open", ist(4, 9, 15, 0), true},
		{"midday", ist(6, 12, 0, 0), true},
		{"at close", ist(8, 15, 30, 0), true},
		{"after close", ist(8, 15, 30, 1), false},
		{"saturday", ist(9, 11, 0, 0), false},
		{"sunday", ist(10, 11, 0, 0), false},
		{"utc input", time.Date(2024, 3, 4, 4, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MarketOpen(tt.at); got != tt.want {
				t.Errorf("MarketOpen(%s) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

type countingRunner struct {
	calls   int32
	release chan struct{}
}

func (r *countingRunner) RunCycle(ctx context.Context, _ []strategy.Detector, _ []string) (*orchestrator.Cycle, error) {
	n := atomic.AddInt32(&r.calls, 1)
	if r.release != nil {
		<-r.release
	}
	return &orchestrator.Cycle{Number: int(n)}, nil
}

func TestTickRespectsMarketHours(t *testing.T) {
	r := &countingRunner{}
	saturday := time.Date(2024, 3, 9, 11, 0, 0, 0, model.IST)
	s := NewScheduler(context.Background(), r, Options{MarketHoursOnly: true, Now: func() time.Time { return saturday }})

	s.tick()
	if atomic.LoadInt32(&r.calls) != 0 {
		t.Fatal("tick should skip outside market hours")
	}
	if _, err := s.RunNow(context.Background()); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if atomic.LoadInt32(&r.calls) != 1 {
		t.Error("RunNow should ignore market hours")
	}
}

func TestRunNowBusy(t *testing.T) {
	r := &countingRunner{release: make(chan struct{})}
	s := NewScheduler(context.Background(), r, Options{})

	done := make(chan struct{})
	go func() {
		s.RunNow(context.Background())
		close(done)
	}()
	for atomic.LoadInt32(&r.calls) == 0 {
		time.Sleep(time.Millisecond)
	}
	if _, err := s.RunNow(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	close(r.release)
	<-done
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), &countingRunner{}, Options{})
	if err := s.Register(""); err != nil {
		t.Fatalf("default spec: %v", err)
	}
	if err := s.Register("not a cron"); err == nil {
		t.Error("expected error for invalid spec")
	}
	if len(s.Cron.Entries()) != 1 {
		t.Errorf("expected one entry, got %d", len(s.Cron.Entries()))
	}
}

func TestNext(t *testing.T) {
	now := time.Date(2024, 3, 4, 5, 7, 30, 0, time.UTC) // 10:37:30 IST
	s := NewScheduler(context.Background(), &countingRunner{}, Options{Now: func() time.Time { return now }})
	if next := s.Next(); !next.IsZero() {
		t.Errorf("expected zero before registration, got %v", next)
	}
	if err := s.Register(""); err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 3, 4, 5, 15, 0, 0, time.UTC)
	if next := s.Next(); !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}
