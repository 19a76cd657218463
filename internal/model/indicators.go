package model

// MACDFrame holds MACD outputs aligned index-for-index with the source bars.
type MACDFrame struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// Len returns the number of aligned rows.
func (f MACDFrame) Len() int { return len(f.MACD) }

// BollingerFrame holds the three bands aligned with the source bars.
type BollingerFrame struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Level is a merged price level and the number of candidate bars behind it.
type Level struct {
	Price   float64
	Touches int
	Indices []int
}

// LevelSet holds surviving support and resistance levels in discovery order.
type LevelSet struct {
	Support    []Level
	Resistance []Level
}

// SupportPrices returns support prices in discovery order.
func (l LevelSet) SupportPrices() []float64 { return prices(l.Support) }

// ResistancePrices returns resistance prices in discovery order.
func (l LevelSet) ResistancePrices() []float64 { return prices(l.Resistance) }

// Empty reports whether no level survived.
func (l LevelSet) Empty() bool { return len(l.Support) == 0 && len(l.Resistance) == 0 }

func prices(levels []Level) []float64 {
	out := make([]float64, len(levels))
	for i, lv := range levels {
		out[i] = lv.Price
	}
	return out
}
