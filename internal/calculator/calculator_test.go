package calculator

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"MarketScanner/internal/model"
)

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func barsFromCloses(closes []float64) []model.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func TestCalculateSMA(t *testing.T) {
	got, err := CalculateSMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4 {
		t.Errorf("expected 4, got %f", got)
	}
	if _, err := CalculateSMA([]float64{1, 2}, 3); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := CalculateSMA([]float64{1, 2}, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRollingMean(t *testing.T) {
	got, err := RollingMean([]float64{2, 4, 6, 8}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(got[0]) {
		t.Errorf("expected NaN warm-up, got %f", got[0])
	}
	want := []float64{3, 5, 7}
	for i, w := range want {
		if got[i+1] != w {
			t.Errorf("index %d: expected %f, got %f", i+1, w, got[i+1])
		}
	}
}

func TestCalculateEMA_AdjustedWeights(t *testing.T) {
	got, err := CalculateEMA([]float64{1, 2, 3}, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 2.5 / 1.5, 4.25 / 1.75}
	for i := range want {
		if !approx(got[i], want[i], 1e-12) {
			t.Errorf("index %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestCalculateMACD(t *testing.T) {
	t.Run("flat series is zero", func(t *testing.T) {
		closes := make([]float64, 60)
		for i := range closes {
			closes[i] = 100
		}
		f, err := DefaultMACD(barsFromCloses(closes))
		if err != nil {
			t.Fatal(err)
		}
		if f.Len() != 60 {
			t.Fatalf("expected aligned frame of 60, got %d", f.Len())
		}
		for i := range f.MACD {
			if !approx(f.MACD[i], 0, 1e-9) || !approx(f.Histogram[i], 0, 1e-9) {
				t.Fatalf("index %d: expected zeros, got macd=%f hist=%f", i, f.MACD[i], f.Histogram[i])
			}
		}
	})

	t.Run("uptrend is positive", func(t *testing.T) {
		closes := make([]float64, 80)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}
		f, err := DefaultMACD(barsFromCloses(closes))
		if err != nil {
			t.Fatal(err)
		}
		last := f.Len() - 1
		if f.MACD[last] <= 0 {
			t.Errorf("expected positive MACD, got %f", f.MACD[last])
		}
		if !approx(f.Histogram[last], f.MACD[last]-f.Signal[last], 1e-12) {
			t.Error("histogram must equal MACD minus signal")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if _, err := DefaultMACD(nil); !errors.Is(err, ErrInsufficientData) {
			t.Errorf("expected ErrInsufficientData, got %v", err)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		closes := []float64{10, 11, 10.5, 12, 13, 12.2, 11.8, 14, 15, 14.4}
		bars := barsFromCloses(closes)
		a, _ := DefaultMACD(bars)
		b, _ := DefaultMACD(bars)
		if !reflect.DeepEqual(a, b) {
			t.Error("MACD is not deterministic")
		}
	})
}

func TestCalculateATR(t *testing.T) {
	bars := []model.OHLCV{
		{High: 10, Low: 8, Close: 9},
		{High: 12, Low: 9, Close: 11},
		{High: 11, Low: 10, Close: 10.5},
	}
	tr := TrueRange(bars)
	wantTR := []float64{2, 3, 1}
	for i := range wantTR {
		if tr[i] != wantTR[i] {
			t.Errorf("tr[%d]: expected %f, got %f", i, wantTR[i], tr[i])
		}
	}

	atr, err := CalculateATR(bars, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(atr[0]) {
		t.Errorf("expected NaN warm-up, got %f", atr[0])
	}
	if atr[1] != 2.5 || atr[2] != 2 {
		t.Errorf("expected [NaN 2.5 2], got %v", atr)
	}
	if _, err := CalculateATR(bars, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func levelBars() []model.OHLCV {
	highs := []float64{10, 11, 12, 11, 10, 11, 12.1, 11, 10, 11, 12, 11, 10, 9, 9}
	bars := make([]model.OHLCV, len(highs))
	for i, h := range highs {
		bars[i] = model.OHLCV{Open: h - 0.5, High: h, Low: h - 1, Close: h - 0.5, Volume: 1}
	}
	return bars
}

func TestCalculateSupportResistance(t *testing.T) {
	levels := CalculateSupportResistance(levelBars(), 2, 2)

	if len(levels.Resistance) != 1 {
		t.Fatalf("expected 1 resistance level, got %d", len(levels.Resistance))
	}
	r := levels.Resistance[0]
	if r.Touches != 3 {
		t.Errorf("expected 3 touches, got %d", r.Touches)
	}
	if !approx(r.Price, (12.05*2+12)/3, 1e-9) {
		t.Errorf("expected running-average price, got %f", r.Price)
	}

	// The trailing lows of 8 sit inside the excluded boundary.
	if len(levels.Support) != 1 || levels.Support[0].Price != 9 {
		t.Fatalf("expected a single support at 9, got %+v", levels.Support)
	}
	if !reflect.DeepEqual(levels.Support[0].Indices, []int{4, 8}) {
		t.Errorf("unexpected support indices %v", levels.Support[0].Indices)
	}
}

func TestCalculateSupportResistance_MinTouches(t *testing.T) {
	levels := CalculateSupportResistance(levelBars(), 2, 3)
	if len(levels.Support) != 0 {
		t.Errorf("expected support filtered out, got %+v", levels.Support)
	}
	if len(levels.Resistance) != 1 {
		t.Errorf("expected resistance kept, got %+v", levels.Resistance)
	}
}

func TestCalculateSupportResistance_ShortSeries(t *testing.T) {
	levels := CalculateSupportResistance(levelBars()[:9], 5, 1)
	if !levels.Empty() {
		t.Errorf("expected empty levels for short series, got %+v", levels)
	}
}

// sameFloats compares bit patterns so NaN warm-up values count as equal.
func sameFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

func TestIndicatorsIdempotent(t *testing.T) {
	bars := levelBars()
	orig := append([]model.OHLCV(nil), bars...)

	tests := []struct {
		name string
		same func() bool
	}{
		{"atr", func() bool {
			a, errA := CalculateATR(bars, 3)
			b, errB := CalculateATR(bars, 3)
			return errA == nil && errB == nil && sameFloats(a, b)
		}},
		{"support resistance", func() bool {
			a := CalculateSupportResistance(bars, 2, 2)
			b := CalculateSupportResistance(bars, 2, 2)
			return !a.Empty() && reflect.DeepEqual(a, b)
		}},
		{"macd", func() bool {
			a, errA := DefaultMACD(bars)
			b, errB := DefaultMACD(bars)
			return errA == nil && errB == nil &&
				sameFloats(a.MACD, b.MACD) && sameFloats(a.Signal, b.Signal) && sameFloats(a.Histogram, b.Histogram)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.same() {
				t.Error("repeated calls on the same series differ")
			}
			if !reflect.DeepEqual(bars, orig) {
				t.Error("input series was modified")
			}
		})
	}
}

func TestCalculateRSI(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rsi, err := CalculateRSI(barsFromCloses(closes), 14)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(rsi[12]) {
		t.Errorf("expected NaN before first window, got %f", rsi[12])
	}
	if rsi[19] != 100 {
		t.Errorf("expected 100 for a lossless window, got %f", rsi[19])
	}

	mixed := barsFromCloses([]float64{10, 11, 10, 11, 10})
	rsi, _ = CalculateRSI(mixed, 4)
	if !approx(rsi[4], 50, 1e-9) {
		t.Errorf("expected 50 for balanced moves, got %f", rsi[4])
	}
}

func TestCalculateBollinger(t *testing.T) {
	bb, err := CalculateBollinger(barsFromCloses([]float64{5, 5, 5, 5}), 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if bb.Upper[3] != 5 || bb.Lower[3] != 5 || bb.Middle[3] != 5 {
		t.Errorf("flat closes should collapse the bands, got %f/%f/%f", bb.Upper[3], bb.Middle[3], bb.Lower[3])
	}

	bb, _ = CalculateBollinger(barsFromCloses([]float64{1, 2, 3}), 3, 1)
	if !approx(bb.Upper[2], 3, 1e-12) || !approx(bb.Lower[2], 1, 1e-12) {
		t.Errorf("expected sample stddev bands 1..3, got %f..%f", bb.Lower[2], bb.Upper[2])
	}
}

func TestHighLow(t *testing.T) {
	bars := levelBars()
	h, l, err := HighLow(bars, 4, 8)
	if err != nil {
		t.Fatal(err)
	}
	if h != 12.1 || l != 9 {
		t.Errorf("expected 12.1/9, got %f/%f", h, l)
	}
	if _, _, err := HighLow(bars, 5, 5); err == nil {
		t.Error("expected error for empty range")
	}
}

func TestVolumeRatio(t *testing.T) {
	bars := make([]model.OHLCV, 20)
	for i := range bars {
		bars[i].Volume = 100
	}
	bars[19].Volume = 200
	if got := VolumeRatio(bars, 20); !approx(got, 200.0/105.0, 1e-12) {
		t.Errorf("expected %f, got %f", 200.0/105.0, got)
	}

	zero := make([]model.OHLCV, 5)
	if got := VolumeRatio(zero, 20); got != 0 {
		t.Errorf("expected 0 for zero volume, got %f", got)
	}
}
