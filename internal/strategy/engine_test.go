package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"MarketScanner/internal/model"
)

type fakeSource struct {
	data     map[string]model.Series
	interval string
}

func (f *fakeSource) FetchMany(_ context.Context, symbols []string, _, interval string) (map[string]model.Series, error) {
	f.interval = interval
	out := map[string]model.Series{}
	for _, s := range symbols {
		if series, ok := f.data[s]; ok {
			out[s] = series
		}
	}
	return out, nil
}

// stubDetector scores each symbol by its last close and panics on "BOOM".
type stubDetector struct {
	tf      Timeframe
	minBars int
}

func (d stubDetector) Name() string         { return "stub" }
func (d stubDetector) Timeframe() Timeframe { return d.tf }
func (d stubDetector) MinBars() int         { return d.minBars }
func (d stubDetector) Columns() []string    { return []string{"Symbol", "Score"} }

func (d stubDetector) Analyze(symbol string, series model.Series) (*model.SignalRecord, error) {
	if symbol == "BOOM" {
		panic("index out of range")
	}
	last := series.Last()
	if last.Close < 0.5 {
		return nil, nil
	}
	return &model.SignalRecord{Symbol: symbol, Kind: "stub", Score: last.Close}, nil
}

func TestScan_IsolatesFailures(t *testing.T) {
	src := &fakeSource{data: map[string]model.Series{
		"A":    {Bars: flatBars(5, 10)},
		"B":    {Bars: flatBars(5, 30)},
		"BOOM": {Bars: flatBars(5, 20)},
		"C":    {Bars: flatBars(2, 50)},
	}}
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	table, err := Scan(context.Background(), src, stubDetector{tf: Timeframe1d, minBars: 3}, []string{"A", "BOOM", "B", "C", "MISSING"}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", table.Len())
	}
	if table.Records[0].Symbol != "B" || table.Records[1].Symbol != "A" {
		t.Errorf("expected descending score order, got %s,%s", table.Records[0].Symbol, table.Records[1].Symbol)
	}
	if len(table.Failed) != 1 || table.Failed[0] != "BOOM" {
		t.Errorf("expected BOOM recorded as failed, got %v", table.Failed)
	}
	if !table.Records[0].ScanTime.Equal(now) {
		t.Error("expected scan time stamped on records")
	}
	if src.interval != "1d" {
		t.Errorf("expected daily fetch, got %s", src.interval)
	}
}

func TestScan_AggregatesBeforeMinBars(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	hourly := make([]model.OHLCV, 16)
	for i := range hourly {
		hourly[i] = model.OHLCV{Time: start.Add(time.Duration(i) * time.Hour), Open: 1, High: 2, Low: 1, Close: 1, Volume: 1}
	}
	src := &fakeSource{data: map[string]model.Series{"X": {Bars: hourly, Location: time.UTC}}}

	// 16 hourly bars become 4 buckets.
	table, _ := Scan(context.Background(), src, stubDetector{tf: Timeframe4h, minBars: 5}, []string{"X"}, start)
	if table.Len() != 0 {
		t.Errorf("expected aggregated series below minimum to be skipped, got %d", table.Len())
	}
	table, _ = Scan(context.Background(), src, stubDetector{tf: Timeframe4h, minBars: 4}, []string{"X"}, start)
	if table.Len() != 1 {
		t.Errorf("expected aggregated series at minimum to be evaluated, got %d", table.Len())
	}
	if src.interval != "1h" {
		t.Errorf("expected hourly fetch, got %s", src.interval)
	}
}

func TestSelect(t *testing.T) {
	dets, err := Select([]string{"support level 4h", NameMACD15m})
	if err != nil {
		t.Fatal(err)
	}
	if len(dets) != 2 || dets[0].Name() != NameMACD15m || dets[1].Name() != NameSupport4h {
		t.Errorf("expected canonical order, got %v", dets)
	}
	if _, err := Select([]string{"Bollinger 1h"}); err == nil {
		t.Error("expected error for unknown detector")
	}
	dets, _ = Select(nil)
	if len(dets) != 0 {
		t.Errorf("expected empty selection, got %d", len(dets))
	}
	if len(All()) != len(Names()) {
		t.Error("registry and names out of sync")
	}
}

func TestPriorityRank(t *testing.T) {
	table := &model.ResultTable{Detector: NameMACD4h, Records: []model.SignalRecord{
		{Symbol: "A", Kind: model.KindBearishCrossover, Score: 50},
		{Symbol: "B", Kind: model.KindBullishDivergence, Score: 5},
		{Symbol: "C", Kind: model.KindBullishCrossover, Score: 1},
		{Symbol: "D", Kind: model.KindBullishCrossover, Score: 9},
	}}
	got := PriorityRank(table)
	want := []string{"D", "C", "B", "A"}
	for i, w := range want {
		if got[i].Symbol != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, got[i].Symbol)
		}
	}
	if table.Records[0].Symbol != "A" {
		t.Error("PriorityRank must not modify the table")
	}

	other := &model.ResultTable{Detector: NameSupport4h, Records: []model.SignalRecord{
		{Symbol: "A", Score: 71}, {Symbol: "B", Score: 90},
	}}
	if got := PriorityRank(other); got[0].Symbol != "B" {
		t.Errorf("expected score order for unprioritised detector, got %s", got[0].Symbol)
	}
}

func TestScan_AllInstrumentsFailing(t *testing.T) {
	src := &fakeSource{data: map[string]model.Series{
		"BOOM": {Bars: flatBars(5, 20)},
	}}
	table, err := Scan(context.Background(), src, stubDetector{tf: Timeframe1d, minBars: 3}, []string{"BOOM"}, time.Now())
	if !errors.Is(err, ErrDetectorFailed) {
		t.Fatalf("expected ErrDetectorFailed, got %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("expected empty table, got %d records", table.Len())
	}
}
