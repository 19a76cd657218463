package calculator

import (
	"fmt"
	"math"

	"MarketScanner/internal/model"
)

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|) per bar.
// The first bar has no previous close and degenerates to high-low.
func TrueRange(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		tr := b.High - b.Low
		if i > 0 {
			pc := bars[i-1].Close
			tr = math.Max(tr, math.Abs(b.High-pc))
			tr = math.Max(tr, math.Abs(b.Low-pc))
		}
		out[i] = tr
	}
	return out
}

// CalculateATR returns the rolling mean of the true range over period.
// Entries before the first full window are NaN.
func CalculateATR(bars []model.OHLCV, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: atr period must be positive", ErrInvalidInput)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: atr over empty series", ErrInsufficientData)
	}
	return RollingMean(TrueRange(bars), period)
}
