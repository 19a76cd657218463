package collector

import (
	"math"
	"sort"
	"time"

	"MarketScanner/internal/model"
)

// MissingFields lists required columns absent from raw.
func MissingFields(raw model.RawSeries) []model.Field {
	var missing []model.Field
	for _, f := range model.RequiredFields {
		if _, ok := raw.Columns[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// Clean turns a raw provider response into a validated series:
//  1. rows where every present column is NaN are dropped
//  2. remaining gaps are forward-filled per column
//  3. a series missing any required column is emptied
//  4. rows with a non-positive (or still missing) open/high/low/close are dropped
//  5. rows with high < low are dropped
//
// Rows are then ordered by time with duplicate timestamps collapsed to the
// last occurrence. Volume still missing after the fill, or negative, reads
// as 0.
func Clean(raw model.RawSeries) model.Series {
	out := model.Series{Symbol: raw.Symbol, Location: raw.Location}
	n := raw.Len()
	if n == 0 {
		return out
	}

	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !rowEmpty(raw, i) {
			keep = append(keep, i)
		}
	}

	filled := make(map[model.Field][]float64, len(raw.Columns))
	for f, col := range raw.Columns {
		vals := make([]float64, len(keep))
		last := math.NaN()
		for j, i := range keep {
			v := cell(col, i)
			if math.IsNaN(v) {
				v = last
			}
			vals[j] = v
			last = v
		}
		filled[f] = vals
	}

	if len(MissingFields(raw)) > 0 {
		return out
	}

	bars := make([]model.OHLCV, 0, len(keep))
	for j, i := range keep {
		b := model.OHLCV{
			Time:   raw.Times[i],
			Open:   filled[model.FieldOpen][j],
			High:   filled[model.FieldHigh][j],
			Low:    filled[model.FieldLow][j],
			Close:  filled[model.FieldClose][j],
			Volume: filled[model.FieldVolume][j],
		}
		if math.IsNaN(b.Volume) || b.Volume < 0 {
			b.Volume = 0
		}
		if !b.Valid() {
			continue
		}
		bars = append(bars, b)
	}

	out.Bars = dedupe(bars)
	return out
}

func rowEmpty(raw model.RawSeries, i int) bool {
	for _, col := range raw.Columns {
		if !math.IsNaN(cell(col, i)) {
			return false
		}
	}
	return true
}

func cell(col []float64, i int) float64 {
	if i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

func dedupe(bars []model.OHLCV) []model.OHLCV {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	out := bars[:0]
	var prev time.Time
	for i, b := range bars {
		if i > 0 && b.Time.Equal(prev) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
		prev = b.Time
	}
	return out
}
