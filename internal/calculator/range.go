package calculator

import (
	"fmt"
	"math"

	"MarketScanner/internal/model"
)

// HighLow returns the highest high and lowest low of bars[from:to].
func HighLow(bars []model.OHLCV, from, to int) (high, low float64, err error) {
	if from < 0 || to > len(bars) || from >= to {
		return 0, 0, fmt.Errorf("%w: range [%d,%d) over %d bars", ErrInsufficientData, from, to, len(bars))
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := from; i < to; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// VolumeRatio divides the last bar's volume by the mean volume of the
// trailing lookback bars, current bar included. A zero mean yields 0.
func VolumeRatio(bars []model.OHLCV, lookback int) float64 {
	if len(bars) == 0 || lookback <= 0 {
		return 0
	}
	start := len(bars) - lookback
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for i := start; i < len(bars); i++ {
		sum += bars[i].Volume
	}
	avg := sum / float64(len(bars)-start)
	if avg == 0 {
		return 0
	}
	return bars[len(bars)-1].Volume / avg
}

// PercentChange returns (cur-prev)/prev*100, 0 when prev is 0.
func PercentChange(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}
