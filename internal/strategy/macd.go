package strategy

import (
	"fmt"
	"math"

	"MarketScanner/internal/calculator"
	"MarketScanner/internal/model"
)

// Short-horizon MACD tuning.
const (
	MACDMinBars             = 50
	CrossoverStrengthScale  = 10.0
	MomentumStrengthScale   = 8.0
	DivergenceStrengthScale = 5.0
)

// MACDMomentum flags crossovers, histogram sign flips and accelerating
// histograms on intraday bars.
type MACDMomentum struct {
	name string
	tf   Timeframe
}

// NewMACDMomentum creates the detector for the given timeframe.
func NewMACDMomentum(name string, tf Timeframe) *MACDMomentum {
	return &MACDMomentum{name: name, tf: tf}
}

func (d *MACDMomentum) Name() string         { return d.name }
func (d *MACDMomentum) Timeframe() Timeframe { return d.tf }
func (d *MACDMomentum) MinBars() int         { return MACDMinBars }

func (d *MACDMomentum) Columns() []string {
	return []string{"Symbol", "Signal_Type", "Signal_Strength", "Current_Price", "Price_Change_%",
		"MACD", "Signal_Line", "Histogram", "Timeframe", "Scan_Time"}
}

func (d *MACDMomentum) Analyze(symbol string, series model.Series) (*model.SignalRecord, error) {
	if series.Len() < d.MinBars() {
		return nil, ErrInsufficientHistory
	}
	frame, err := calculator.DefaultMACD(series.Bars)
	if err != nil {
		return nil, fmt.Errorf("macd: %w", err)
	}
	if frame.Len() < 3 {
		return nil, nil
	}

	kind, strength, ok := classifyMomentum(frame)
	if !ok {
		return nil, nil
	}

	last := frame.Len() - 1
	rec := newRecord(symbol, kind, model.Round(strength, 2), takeSnapshot(series.Bars), d.tf.Label)
	rec.Readings["MACD"] = model.Round(frame.MACD[last], 4)
	rec.Readings["Signal_Line"] = model.Round(frame.Signal[last], 4)
	rec.Readings["Histogram"] = model.Round(frame.Histogram[last], 4)
	return rec, nil
}

// classifyMomentum checks bullish patterns before bearish ones and returns
// the first that matches.
func classifyMomentum(f model.MACDFrame) (model.SignalKind, float64, bool) {
	n := f.Len()
	macd, sig, hist := f.MACD[n-1], f.Signal[n-1], f.Histogram[n-1]
	pMACD, pSig, pHist := f.MACD[n-2], f.Signal[n-2], f.Histogram[n-2]

	switch {
	case pMACD <= pSig && macd > sig:
		return model.KindBullishCrossover, math.Abs(hist) * CrossoverStrengthScale, true
	case hist > 0 && pHist <= 0:
		return model.KindBullishMomentum, hist * MomentumStrengthScale, true
	case macd > sig && hist > pHist && hist > 0:
		return model.KindBullishDivergence, (hist - pHist) * DivergenceStrengthScale, true
	case pMACD >= pSig && macd < sig:
		return model.KindBearishCrossover, math.Abs(hist) * CrossoverStrengthScale, true
	case hist < 0 && pHist >= 0:
		return model.KindBearishMomentum, math.Abs(hist) * MomentumStrengthScale, true
	case macd < sig && hist < pHist && hist < 0:
		return model.KindBearishDivergence, math.Abs(hist-pHist) * DivergenceStrengthScale, true
	}
	return "", 0, false
}
