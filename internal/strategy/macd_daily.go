package strategy

import (
	"fmt"
	"math"

	"MarketScanner/internal/calculator"
	"MarketScanner/internal/model"
)

// Daily MACD pattern tuning.
const (
	PatternMinBars         = 50
	PatternMinFrame        = 10
	PatternTrendLookback   = 5
	PatternTrendThreshold  = 0.01
	PatternVolumeThreshold = 1.5

	ScoreMACDCrossover     = 85
	ScoreZeroLineBonus     = 10
	ScoreVolumeBonus       = 5
	ScorePriceConfirmBonus = 5
	ScoreZeroLineCross     = 75
	ScoreMomentumBuilding  = 65
)

// MACDPattern scores daily crossovers, zero-line crosses and sustained
// histogram trends.
type MACDPattern struct {
	name string
}

// NewMACDPattern creates the daily detector.
func NewMACDPattern(name string) *MACDPattern { return &MACDPattern{name: name} }

func (d *MACDPattern) Name() string         { return d.name }
func (d *MACDPattern) Timeframe() Timeframe { return Timeframe1d }
func (d *MACDPattern) MinBars() int         { return PatternMinBars }

func (d *MACDPattern) Columns() []string {
	return []string{"Symbol", "Signal", "Score", "Price", "Change_%", "MACD", "Signal_Line",
		"Histogram", "Volume_Ratio", "Scan_Time"}
}

func (d *MACDPattern) Analyze(symbol string, series model.Series) (*model.SignalRecord, error) {
	if series.Len() < d.MinBars() {
		return nil, ErrInsufficientHistory
	}
	frame, err := calculator.DefaultMACD(series.Bars)
	if err != nil {
		return nil, fmt.Errorf("macd: %w", err)
	}
	if frame.Len() < PatternMinFrame {
		return nil, nil
	}

	snap := takeSnapshot(series.Bars)
	kind, score, ok := classifyPattern(frame, snap.changePct, snap.volumeRatio)
	if !ok {
		return nil, nil
	}

	last := frame.Len() - 1
	rec := newRecord(symbol, kind, score, snap, Timeframe1d.Label)
	rec.Readings["MACD"] = model.Round(frame.MACD[last], 4)
	rec.Readings["Signal_Line"] = model.Round(frame.Signal[last], 4)
	rec.Readings["Histogram"] = model.Round(frame.Histogram[last], 4)
	return rec, nil
}

func classifyPattern(f model.MACDFrame, changePct, volumeRatio float64) (model.SignalKind, float64, bool) {
	n := f.Len()
	macd, sig, hist := f.MACD[n-1], f.Signal[n-1], f.Histogram[n-1]
	pMACD, pSig := f.MACD[n-2], f.Signal[n-2]

	switch {
	case pMACD <= pSig && macd > sig:
		score := float64(ScoreMACDCrossover)
		if macd < 0 {
			score += ScoreZeroLineBonus
		}
		if volumeRatio > PatternVolumeThreshold {
			score += ScoreVolumeBonus
		}
		if changePct > 0 {
			score += ScorePriceConfirmBonus
		}
		return model.KindBullishMACDCrossover, score, true
	case pMACD >= pSig && macd < sig:
		score := float64(ScoreMACDCrossover)
		if macd > 0 {
			score += ScoreZeroLineBonus
		}
		if volumeRatio > PatternVolumeThreshold {
			score += ScoreVolumeBonus
		}
		if changePct < 0 {
			score += ScorePriceConfirmBonus
		}
		return model.KindBearishMACDCrossover, score, true
	case pMACD <= 0 && macd > 0:
		return model.KindMACDAboveZero, ScoreZeroLineCross, true
	case pMACD >= 0 && macd < 0:
		return model.KindMACDBelowZero, ScoreZeroLineCross, true
	}

	// Sum of the last four histogram differences.
	trend := hist - f.Histogram[n-PatternTrendLookback]
	if math.Abs(trend) > PatternTrendThreshold {
		if trend > 0 && hist > 0 {
			return model.KindBullishBuilding, ScoreMomentumBuilding, true
		}
		if trend < 0 && hist < 0 {
			return model.KindBearishBuilding, ScoreMomentumBuilding, true
		}
	}
	return "", 0, false
}
