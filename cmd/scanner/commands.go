package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"MarketScanner/internal/collector"
	"MarketScanner/internal/notifier"
	"MarketScanner/internal/orchestrator"
	"MarketScanner/internal/scheduler"
)

// commandHandler answers bot commands.
func commandHandler(sched *scheduler.Scheduler, orch *orchestrator.Orchestrator, store *collector.Store) notifier.CommandHandler {
	return func(ctx context.Context, command string) string {
		fields := strings.Fields(command)
		if len(fields) == 0 {
			return notifier.CommandHelp
		}
		switch strings.ToLower(fields[0]) {
		case "/scan":
			cycle, err := sched.RunNow(ctx)
			if errors.Is(err, scheduler.ErrBusy) {
				return "⏳ A scan is already running"
			}
			if err != nil {
				return fmt.Sprintf("❌ Scan failed: %v", err)
			}
			return fmt.Sprintf("✅ Scan #%d finished: %d signals, %d errors", cycle.Number, cycle.TotalSignals(), len(cycle.Errors))
		case "/status":
			st := notifier.Status{
				Cycles:     orch.Count(),
				Cache:      store.CacheStats(),
				MarketOpen: scheduler.MarketOpen(time.Now()),
				NextScan:   sched.Next(),
			}
			if c := orch.Last(); c != nil {
				st.LastScan, st.Signals, st.Errors = c.FinishedAt, c.TotalSignals(), len(c.Errors)
			}
			return notifier.FormatStatus(st)
		case "/errors":
			return notifier.FormatErrors(orch.Errors())
		case "/clearerrors":
			orch.ClearErrors()
			return "🧹 Error log cleared"
		case "/indices":
			quotes, err := store.Indices(ctx)
			if err != nil {
				return fmt.Sprintf("❌ Indices unavailable: %v", err)
			}
			return notifier.FormatIndices(quotes)
		case "/price":
			if len(fields) < 2 {
				return "Usage: /price SYMBOL"
			}
			sym := collector.NormalizeSymbol(fields[1])
			price, err := store.CurrentPrice(ctx, sym)
			if err != nil {
				return fmt.Sprintf("❌ No price for %s", sym)
			}
			return fmt.Sprintf("%s: %.2f", sym, price)
		default:
			return notifier.CommandHelp
		}
	}
}

func dirOf(path string) string { return filepath.Dir(path) }
