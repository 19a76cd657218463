package collector

import (
	"context"
	"math"
	"sync"
	"time"

	"MarketScanner/internal/model"
)

// StaticProvider returns controllable fixed data for development and testing.
// Symbols without fixed data get a synthetic series around Price when Price
// is positive, and an empty response otherwise.
type StaticProvider struct {
	Price float64
	Bars  map[string][]model.OHLCV
	Err   map[string]error
	Now   func() time.Time

	mu    sync.Mutex
	calls int
}

func (p *StaticProvider) Name() string { return "static" }

// Calls returns the number of History invocations.
func (p *StaticProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *StaticProvider) History(_ context.Context, symbol, period, interval string) (model.RawSeries, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if err, ok := p.Err[symbol]; ok {
		return model.RawSeries{}, err
	}
	bars, ok := p.Bars[symbol]
	if !ok && p.Price > 0 {
		now := time.Now()
		if p.Now != nil {
			now = p.Now()
		}
		bars = generateBars(p.Price, periodBars(period, interval), IntervalDuration(interval), now)
	}
	return RawFromBars(symbol, bars), nil
}

// RawFromBars converts bars into a raw series with every column present.
func RawFromBars(symbol string, bars []model.OHLCV) model.RawSeries {
	raw := model.RawSeries{
		Symbol:  symbol,
		Times:   make([]time.Time, len(bars)),
		Columns: map[model.Field][]float64{},
	}
	for _, f := range model.RequiredFields {
		raw.Columns[f] = make([]float64, len(bars))
	}
	for i, b := range bars {
		raw.Times[i] = b.Time
		raw.Columns[model.FieldOpen][i] = b.Open
		raw.Columns[model.FieldHigh][i] = b.High
		raw.Columns[model.FieldLow][i] = b.Low
		raw.Columns[model.FieldClose][i] = b.Close
		raw.Columns[model.FieldVolume][i] = b.Volume
	}
	return raw
}

// IntervalDuration maps a provider interval code to its bar duration,
// defaulting to one day.
func IntervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h", "60m":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1wk":
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func periodBars(period, interval string) int {
	days := map[string]int{"1d": 1, "2d": 2, "5d": 5, "1mo": 30, "60d": 60, "3mo": 90, "6mo": 180, "1y": 365, "2y": 730}[period]
	if days == 0 {
		days = 365
	}
	n := int(time.Duration(days) * 24 * time.Hour / IntervalDuration(interval))
	if n > 2000 {
		n = 2000
	}
	return n
}

func generateBars(basePrice float64, count int, step time.Duration, end time.Time) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.02*math.Sin(float64(i)/6) + float64(i-count/2)*0.0002)
		bars[i] = model.OHLCV{
			Time:   end.Add(-time.Duration(count-i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000 + float64(i%7)*50000,
		}
	}
	return bars
}
