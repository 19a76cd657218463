package calculator

import (
	"fmt"
	"math"

	"MarketScanner/internal/model"
)

// CalculateSMA returns the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("%w: period must be positive", ErrInvalidInput)
	}
	if len(prices) < period {
		return 0, fmt.Errorf("%w: sma(%d) over %d values", ErrInsufficientData, period, len(prices))
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// RollingMean returns the trailing mean over period for every index. The
// first period-1 entries, and any window containing NaN, are NaN.
func RollingMean(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: period must be positive", ErrInvalidInput)
	}
	out := make([]float64, len(values))
	sum := 0.0
	nans := 0
	for i, v := range values {
		if math.IsNaN(v) {
			nans++
		} else {
			sum += v
		}
		if i >= period {
			old := values[i-period]
			if math.IsNaN(old) {
				nans--
			} else {
				sum -= old
			}
		}
		if i < period-1 || nans > 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(period)
	}
	return out, nil
}

// CalculateEMA returns the span-based exponential moving average with
// bias-adjusted weights: y[t] = sum((1-a)^k * x[t-k]) / sum((1-a)^k) with
// a = 2/(span+1). Every index carries a value, starting at the first bar.
// NaN inputs are skipped without resetting the weights.
func CalculateEMA(values []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, fmt.Errorf("%w: span must be positive", ErrInvalidInput)
	}
	alpha := 2.0 / (float64(span) + 1.0)
	decay := 1 - alpha
	out := make([]float64, len(values))
	num, den := 0.0, 0.0
	seen := false
	for i, v := range values {
		if math.IsNaN(v) {
			if seen {
				num *= decay
				den *= decay
				out[i] = num / den
			} else {
				out[i] = math.NaN()
			}
			continue
		}
		num = v + decay*num
		den = 1 + decay*den
		seen = true
		out[i] = num / den
	}
	return out, nil
}

// Closes extracts the close column.
func Closes(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the volume column.
func Volumes(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
