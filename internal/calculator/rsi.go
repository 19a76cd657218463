package calculator

import (
	"fmt"
	"math"

	"MarketScanner/internal/model"
)

// CalculateRSI computes the RSI series using simple rolling means of gains
// and losses. Entries before the first full window are NaN; a window with no
// losses reads 100.
func CalculateRSI(bars []model.OHLCV, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: rsi period must be positive", ErrInvalidInput)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: rsi over empty series", ErrInsufficientData)
	}

	gains := make([]float64, len(bars))
	losses := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}
	avgGain, err := RollingMean(gains, period)
	if err != nil {
		return nil, err
	}
	avgLoss, err := RollingMean(losses, period)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(bars))
	for i := range out {
		g, l := avgGain[i], avgLoss[i]
		switch {
		case math.IsNaN(g) || math.IsNaN(l):
			out[i] = math.NaN()
		case l == 0 && g == 0:
			out[i] = math.NaN()
		case l == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+g/l)
		}
	}
	return out, nil
}
