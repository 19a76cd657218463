package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"MarketScanner/internal/collector"
	"MarketScanner/internal/model"
)

// ErrInsufficientHistory marks a series shorter than a detector's minimum.
// It is a precondition, not a failure: the instrument is skipped silently.
var ErrInsufficientHistory = errors.New("insufficient history")

// ErrDetectorFailed is returned by Scan when every evaluated instrument
// failed, which points at the detector rather than the data.
var ErrDetectorFailed = errors.New("detector failed")

// Timeframe is the fetch plan of a detector. A positive Bucket resamples
// the fetched series before analysis.
type Timeframe struct {
	Label    string
	Period   string
	Interval string
	Bucket   time.Duration
}

var (
	Timeframe15m = Timeframe{Label: "15m", Period: "5d", Interval: "15m"}
	Timeframe4h  = Timeframe{Label: "4h", Period: "60d", Interval: "1h", Bucket: 4 * time.Hour}
	Timeframe1d  = Timeframe{Label: "1d", Period: "1y", Interval: "1d"}
)

// Detector evaluates one instrument's series. Analyze returns nil when no
// signal qualifies.
type Detector interface {
	Name() string
	Timeframe() Timeframe
	MinBars() int
	Columns() []string
	Analyze(symbol string, series model.Series) (*model.SignalRecord, error)
}

// SeriesSource supplies clean series in batches.
type SeriesSource interface {
	FetchMany(ctx context.Context, symbols []string, period, interval string) (map[string]model.Series, error)
}

// Scan runs det across universe. Instruments that fail analysis are listed in
// the table's Failed slice and never abort the scan. Errors are returned for
// context cancellation during fetching, and ErrDetectorFailed with an empty
// table when no evaluated instrument succeeded.
func Scan(ctx context.Context, src SeriesSource, det Detector, universe []string, now time.Time) (*model.ResultTable, error) {
	logger := log.With().Str("component", "strategy").Str("detector", det.Name()).Logger()
	table := model.NewResultTable(det.Name(), det.Columns(), now)
	tf := det.Timeframe()

	data, err := src.FetchMany(ctx, universe, tf.Period, tf.Interval)
	if err != nil {
		return table, fmt.Errorf("fetch %s: %w", tf.Label, err)
	}
	if len(data) == 0 {
		logger.Warn().Msg("no stock data available")
		return table, nil
	}

	var (
		evaluated int
		firstErr  error
	)
	for _, sym := range universe {
		series, ok := data[sym]
		if !ok {
			continue
		}
		if tf.Bucket > 0 {
			series = collector.Aggregate(series, tf.Bucket)
		}
		if series.Len() < det.MinBars() {
			continue
		}

		rec, err := analyzeSafe(det, sym, series)
		if errors.Is(err, ErrInsufficientHistory) {
			continue
		}
		evaluated++
		if err != nil {
			logger.Warn().Err(err).Str("symbol", sym).Msg("error processing instrument")
			table.Failed = append(table.Failed, sym)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if rec == nil {
			continue
		}
		rec.ScanTime = now
		table.Records = append(table.Records, *rec)
	}

	if evaluated > 0 && len(table.Failed) == evaluated {
		return table, fmt.Errorf("%w: %d of %d instruments: %v", ErrDetectorFailed, len(table.Failed), evaluated, firstErr)
	}
	table.Sort()
	logger.Info().Int("signals", table.Len()).Int("failed", len(table.Failed)).Msg("scan completed")
	return table, nil
}

// analyzeSafe converts a panic inside Analyze into an error.
func analyzeSafe(det Detector, symbol string, series model.Series) (rec *model.SignalRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("panic analyzing %s: %v", symbol, r)
		}
	}()
	return det.Analyze(symbol, series)
}
