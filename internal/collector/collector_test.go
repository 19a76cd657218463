package collector

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"MarketScanner/internal/model"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func hourlyBars(n int, start time.Time) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		p := 100 + float64(i)
		bars[i] = model.OHLCV{Time: start.Add(time.Duration(i) * time.Hour), Open: p, High: p + 2, Low: p - 1, Close: p + 1, Volume: float64(100 + i)}
	}
	return bars
}

func newTestStore(p Provider, clock *fakeClock) *Store {
	return NewStore(p, StoreOptions{RateLimitDelay: time.Millisecond, Now: clock.Now})
}

func TestStore_CacheTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	p := &StaticProvider{Bars: map[string][]model.OHLCV{"TCS.NS": hourlyBars(10, clock.t)}}
	s := newTestStore(p, clock)
	ctx := context.Background()

	first, err := s.Fetch(ctx, "TCS.NS", "60d", "1h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(4*time.Minute + 59*time.Second)
	second, err := s.Fetch(ctx, "TCS.NS", "60d", "1h")
	if err != nil {
		t.Fatal(err)
	}
	if p.Calls() != 1 {
		t.Fatalf("expected cached result within TTL, provider called %d times", p.Calls())
	}
	if &first.Bars[0] != &second.Bars[0] {
		t.Error("expected the identical cached series")
	}

	clock.Advance(2 * time.Second)
	if _, err := s.Fetch(ctx, "TCS.NS", "60d", "1h"); err != nil {
		t.Fatal(err)
	}
	if p.Calls() != 2 {
		t.Fatalf("expected refetch after TTL, provider called %d times", p.Calls())
	}
}

func TestStore_CacheKeyIncludesInterval(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	p := &StaticProvider{Bars: map[string][]model.OHLCV{"INFY.NS": hourlyBars(5, clock.t)}}
	s := newTestStore(p, clock)

	s.Fetch(context.Background(), "INFY.NS", "60d", "1h")
	s.Fetch(context.Background(), "INFY.NS", "60d", "15m")
	if p.Calls() != 2 {
		t.Errorf("expected a miss for a different interval, got %d calls", p.Calls())
	}
	st := s.CacheStats()
	if st.TotalEntries != 2 || st.ValidEntries != 2 {
		t.Errorf("unexpected stats %+v", st)
	}

	clock.Advance(DefaultCacheTTL)
	if st := s.CacheStats(); st.ValidEntries != 0 || st.TotalEntries != 2 {
		t.Errorf("expected all entries stale, got %+v", st)
	}
	s.ClearCache()
	if st := s.CacheStats(); st.TotalEntries != 0 {
		t.Errorf("expected empty cache, got %+v", st)
	}
}

func TestStore_DataUnavailable(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	p := &StaticProvider{
		Bars: map[string][]model.OHLCV{"OK.NS": hourlyBars(3, clock.t)},
		Err:  map[string]error{"BAD.NS": errors.New("boom")},
	}
	s := newTestStore(p, clock)
	ctx := context.Background()

	if _, err := s.Fetch(ctx, "EMPTY.NS", "1y", "1d"); !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable for empty response, got %v", err)
	}
	if _, err := s.Fetch(ctx, "BAD.NS", "1y", "1d"); !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable for provider error, got %v", err)
	}
	if s.CacheStats().TotalEntries != 0 {
		t.Error("failed fetches must not be cached")
	}

	got, err := s.FetchMany(ctx, []string{"OK.NS", "EMPTY.NS", "BAD.NS"}, "1y", "1d")
	if err != nil {
		t.Fatalf("partial batch must not fail: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected only OK.NS, got %d entries", len(got))
	}
	if _, ok := got["OK.NS"]; !ok {
		t.Error("expected OK.NS in batch result")
	}
}

func TestStore_FetchManyCancelled(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	p := &StaticProvider{Price: 100}
	s := newTestStore(p, clock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.FetchMany(ctx, []string{"A", "B"}, "5d", "15m"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStore_CurrentPrice(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	bars := hourlyBars(4, clock.t)
	s := newTestStore(&StaticProvider{Bars: map[string][]model.OHLCV{"SBIN.NS": bars}}, clock)

	price, err := s.CurrentPrice(context.Background(), "SBIN.NS")
	if err != nil {
		t.Fatal(err)
	}
	if price != bars[3].Close {
		t.Errorf("expected %f, got %f", bars[3].Close, price)
	}
}

func TestClean(t *testing.T) {
	nan := math.NaN()
	start := time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)
	times := make([]time.Time, 7)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * time.Hour)
	}
	raw := model.RawSeries{
		Symbol: "X",
		Times:  times,
		Columns: map[model.Field][]float64{
			model.FieldOpen:   {10, nan, 11, 12, -1, 13, 14},
			model.FieldHigh:   {11, nan, nan, 13, 5, 12, 15},
			model.FieldLow:    {9, nan, 10, 11, 4, 12.5, 13},
			model.FieldClose:  {10, nan, 11, 12, 4.5, 12.8, 14},
			model.FieldVolume: {100, nan, 200, 300, 400, 500, 600},
		},
	}

	s := Clean(raw)
	// Row 1 is all-empty, row 4 has a negative open, row 5 has high < low.
	if s.Len() != 4 {
		t.Fatalf("expected 4 rows, got %d: %+v", s.Len(), s.Bars)
	}
	if s.Bars[1].High != 11 {
		t.Errorf("expected forward-filled high 11, got %f", s.Bars[1].High)
	}
	for i, b := range s.Bars {
		if !(b.Close > 0 && b.High >= b.Low) {
			t.Errorf("bar %d violates invariants: %+v", i, b)
		}
		if i > 0 && !b.Time.After(s.Bars[i-1].Time) {
			t.Errorf("bar %d out of order", i)
		}
	}
}

func TestClean_MissingColumn(t *testing.T) {
	raw := RawFromBars("X", hourlyBars(5, time.Now()))
	delete(raw.Columns, model.FieldVolume)
	if s := Clean(raw); !s.Empty() {
		t.Errorf("expected empty series without volume, got %d rows", s.Len())
	}
	if m := MissingFields(raw); len(m) != 1 || m[0] != model.FieldVolume {
		t.Errorf("unexpected missing fields %v", m)
	}
}

func TestClean_DuplicateTimestamps(t *testing.T) {
	bars := hourlyBars(3, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	bars = append(bars, bars[1])
	bars[3].Close = 150
	bars[3].High = 151
	s := Clean(RawFromBars("X", bars))
	if s.Len() != 3 {
		t.Fatalf("expected 3 unique rows, got %d", s.Len())
	}
	if s.Bars[1].Close != 150 {
		t.Errorf("expected last duplicate to win, got %f", s.Bars[1].Close)
	}
}

func TestAggregate(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	start := time.Date(2024, 3, 4, 9, 15, 0, 0, ist)
	series := model.Series{Symbol: "X", Interval: "1h", Location: ist, Bars: hourlyBars(7, start)}

	agg := Aggregate(series, 4*time.Hour)
	if agg.Interval != "4h" {
		t.Errorf("expected 4h interval, got %s", agg.Interval)
	}
	// 09:15..11:15 fall in [08:00,12:00); 12:15..15:15 in [12:00,16:00).
	if agg.Len() != 2 {
		t.Fatalf("expected 2 buckets, got %d", agg.Len())
	}
	if !agg.Bars[0].Time.Equal(time.Date(2024, 3, 4, 8, 0, 0, 0, ist)) {
		t.Errorf("unexpected bucket start %v", agg.Bars[0].Time)
	}

	groups := [][]model.OHLCV{series.Bars[:3], series.Bars[3:]}
	for k, g := range groups {
		b := agg.Bars[k]
		vol, hi, lo := 0.0, math.Inf(-1), math.Inf(1)
		for _, x := range g {
			vol += x.Volume
			hi = math.Max(hi, x.High)
			lo = math.Min(lo, x.Low)
		}
		if b.Volume != vol || b.High != hi || b.Low != lo {
			t.Errorf("bucket %d: got %+v, want vol=%f hi=%f lo=%f", k, b, vol, hi, lo)
		}
		if b.Open != g[0].Open || b.Close != g[len(g)-1].Close {
			t.Errorf("bucket %d: wrong open/close %+v", k, b)
		}
	}
}

func TestAggregate_SkipsEmptyBuckets(t *testing.T) {
	start := time.Date(2024, 3, 4, 1, 0, 0, 0, time.UTC)
	bars := []model.OHLCV{
		{Time: start, Open: 1, High: 2, Low: 1, Close: 2, Volume: 1},
		{Time: start.Add(13 * time.Hour), Open: 2, High: 3, Low: 2, Close: 3, Volume: 1},
	}
	agg := Aggregate(model.Series{Bars: bars}, 4*time.Hour)
	if agg.Len() != 2 {
		t.Errorf("expected only populated buckets, got %d", agg.Len())
	}
}

func TestStore_Indices(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)}
	prev := clock.t.Add(-24 * time.Hour)
	p := &StaticProvider{
		Bars: map[string][]model.OHLCV{
			"^NSEI": {
				{Time: prev, Open: 22000, High: 22100, Low: 21900, Close: 22000, Volume: 1},
				{Time: clock.t, Open: 22000, High: 22300, Low: 21950, Close: 22220, Volume: 1},
			},
			"^NSEBANK": {
				{Time: clock.t, Open: 47000, High: 47100, Low: 46900, Close: 47012.5, Volume: 1},
			},
		},
		Err: map[string]error{"^BSESN": errors.New("upstream down")},
	}
	s := newTestStore(p, clock)

	quotes, err := s.Indices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(quotes) != len(NSEIndices) {
		t.Fatalf("expected %d quotes, got %d", len(NSEIndices), len(quotes))
	}
	for i, q := range quotes {
		if q.Name != NSEIndices[i].Name || q.Symbol != NSEIndices[i].Symbol {
			t.Errorf("quote %d out of order: %+v", i, q)
		}
	}

	tests := []struct {
		name                     string
		q                        IndexQuote
		price, change, changePct float64
	}{
		{"two bars", quotes[0], 22220, 220, 1},
		{"single bar", quotes[1], 47012.5, 0, 0},
		{"fetch error", quotes[2], 0, 0, 0},
		{"no data", quotes[3], 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.q.Price != tt.price || tt.q.Change != tt.change || tt.q.ChangePct != tt.changePct {
				t.Errorf("got %+v, want price %v change %v (%v%%)", tt.q, tt.price, tt.change, tt.changePct)
			}
		})
	}

	if _, err := s.Indices(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Calls() != 2*len(NSEIndices) {
		t.Errorf("expected index quotes to bypass the cache, got %d calls", p.Calls())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Indices(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"reliance", "RELIANCE.NS"},
		{" tcs ", "TCS.NS"},
		{"sbin.ns", "SBIN.NS"},
		{"500325.BO", "500325.BO"},
		{"btc-usd", "BTC-USD"},
		{"^nsei", "^NSEI"},
		{"nifty", "NIFTY"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeSymbol(tt.in); got != tt.want {
				t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
