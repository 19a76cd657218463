package calculator

import (
	"fmt"

	"MarketScanner/internal/model"
)

// Default MACD parameters.
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// CalculateMACD computes the MACD line, signal line and histogram of the
// close series. The frame is aligned index-for-index with bars.
func CalculateMACD(bars []model.OHLCV, fast, slow, signal int) (model.MACDFrame, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return model.MACDFrame{}, fmt.Errorf("%w: macd(%d,%d,%d)", ErrInvalidInput, fast, slow, signal)
	}
	if len(bars) == 0 {
		return model.MACDFrame{}, fmt.Errorf("%w: macd over empty series", ErrInsufficientData)
	}

	closes := Closes(bars)
	emaFast, err := CalculateEMA(closes, fast)
	if err != nil {
		return model.MACDFrame{}, err
	}
	emaSlow, err := CalculateEMA(closes, slow)
	if err != nil {
		return model.MACDFrame{}, err
	}

	line := make([]float64, len(bars))
	for i := range line {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig, err := CalculateEMA(line, signal)
	if err != nil {
		return model.MACDFrame{}, err
	}
	hist := make([]float64, len(bars))
	for i := range hist {
		hist[i] = line[i] - sig[i]
	}
	return model.MACDFrame{MACD: line, Signal: sig, Histogram: hist}, nil
}

// DefaultMACD computes MACD(12, 26, 9).
func DefaultMACD(bars []model.OHLCV) (model.MACDFrame, error) {
	return CalculateMACD(bars, MACDFast, MACDSlow, MACDSignal)
}
