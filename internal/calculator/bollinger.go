package calculator

import (
	"fmt"
	"math"

	"MarketScanner/internal/model"
)

// CalculateBollinger returns the SMA middle band and bands at k sample
// standard deviations.
func CalculateBollinger(bars []model.OHLCV, period int, k float64) (model.BollingerFrame, error) {
	if period <= 1 {
		return model.BollingerFrame{}, fmt.Errorf("%w: bollinger period must exceed 1", ErrInvalidInput)
	}
	if len(bars) == 0 {
		return model.BollingerFrame{}, fmt.Errorf("%w: bollinger over empty series", ErrInsufficientData)
	}

	closes := Closes(bars)
	mid, err := RollingMean(closes, period)
	if err != nil {
		return model.BollingerFrame{}, err
	}
	upper := make([]float64, len(bars))
	lower := make([]float64, len(bars))
	for i := range closes {
		if math.IsNaN(mid[i]) {
			upper[i], lower[i] = math.NaN(), math.NaN()
			continue
		}
		ss := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := closes[j] - mid[i]
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(period-1))
		upper[i] = mid[i] + k*sd
		lower[i] = mid[i] - k*sd
	}
	return model.BollingerFrame{Upper: upper, Middle: mid, Lower: lower}, nil
}
