package calculator

import (
	"math"

	"MarketScanner/internal/model"
)

// LevelTolerance is the relative distance within which candidates merge.
const LevelTolerance = 0.02

// CalculateSupportResistance finds local extrema over a symmetric window and
// merges nearby candidates into levels. Bars closer than window to either end
// of the series are never candidates. Fewer than 2*window bars yields an
// empty set.
func CalculateSupportResistance(bars []model.OHLCV, window, minTouches int) model.LevelSet {
	if window <= 0 || len(bars) < 2*window {
		return model.LevelSet{}
	}

	var resCand, supCand []candidate
	for i := window; i < len(bars)-window; i++ {
		hi, lo := math.Inf(-1), math.Inf(1)
		for j := i - window; j <= i+window; j++ {
			hi = math.Max(hi, bars[j].High)
			lo = math.Min(lo, bars[j].Low)
		}
		if bars[i].High == hi {
			resCand = append(resCand, candidate{idx: i, price: bars[i].High})
		}
		if bars[i].Low == lo {
			supCand = append(supCand, candidate{idx: i, price: bars[i].Low})
		}
	}

	return model.LevelSet{
		Support:    groupLevels(supCand, minTouches),
		Resistance: groupLevels(resCand, minTouches),
	}
}

type candidate struct {
	idx   int
	price float64
}

// groupLevels merges each candidate into the first level within tolerance,
// keeping a running average price.
func groupLevels(cands []candidate, minTouches int) []model.Level {
	var levels []model.Level
	for _, c := range cands {
		merged := false
		for k := range levels {
			lv := &levels[k]
			if math.Abs(c.price-lv.Price)/lv.Price <= LevelTolerance {
				lv.Touches++
				lv.Indices = append(lv.Indices, c.idx)
				lv.Price = (lv.Price*float64(lv.Touches-1) + c.price) / float64(lv.Touches)
				merged = true
				break
			}
		}
		if !merged {
			levels = append(levels, model.Level{Price: c.price, Touches: 1, Indices: []int{c.idx}})
		}
	}

	out := levels[:0]
	for _, lv := range levels {
		if lv.Touches >= minTouches {
			out = append(out, lv)
		}
	}
	return out
}
