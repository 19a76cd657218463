package strategy

import (
	"fmt"
	"math"

	"MarketScanner/internal/calculator"
	"MarketScanner/internal/model"
)

// Range breakout tuning.
const (
	RangeMinBars       = 100
	RangeMaxATRLength  = 500
	RangeMaxPeriod     = 20
	RangeThresholdATR  = 0.1
	RangeMinSizeATR    = 2.0
	RangeStrengthScale = 100.0
)

// RangeBreakout flags a close that leaves the trailing range by more than a
// fraction of ATR while the previous bar was still inside it.
type RangeBreakout struct {
	name string
}

// NewRangeBreakout creates the 4h range breakout detector.
func NewRangeBreakout(name string) *RangeBreakout { return &RangeBreakout{name: name} }

func (d *RangeBreakout) Name() string         { return d.name }
func (d *RangeBreakout) Timeframe() Timeframe { return Timeframe4h }
func (d *RangeBreakout) MinBars() int         { return RangeMinBars }

func (d *RangeBreakout) Columns() []string {
	return []string{"Symbol", "Breakout_Type", "Breakout_Strength", "Current_Price", "Range_High",
		"Range_Low", "Range_Size", "Price_Change_%", "Volume_Ratio", "Stop_Loss", "Target",
		"Risk_Reward", "ATR", "Scan_Time"}
}

func (d *RangeBreakout) Analyze(symbol string, series model.Series) (*model.SignalRecord, error) {
	if series.Len() < d.MinBars() {
		return nil, ErrInsufficientHistory
	}
	bars := series.Bars
	n := len(bars)

	atrLen := n - 1
	if atrLen > RangeMaxATRLength {
		atrLen = RangeMaxATRLength
	}
	atr, err := calculator.CalculateATR(bars, atrLen)
	if err != nil {
		return nil, fmt.Errorf("atr: %w", err)
	}
	curATR := atr[n-1]
	if math.IsNaN(curATR) || curATR <= 0 {
		return nil, nil
	}

	period := n / 4
	if period > RangeMaxPeriod {
		period = RangeMaxPeriod
	}
	rangeHigh, rangeLow, err := calculator.HighLow(bars, n-1-period, n-1)
	if err != nil {
		return nil, fmt.Errorf("range: %w", err)
	}
	return evaluateRange(symbol, bars, rangeHigh, rangeLow, curATR), nil
}

// evaluateRange applies the breakout rules to the last bar against a range
// that excludes it.
func evaluateRange(symbol string, bars []model.OHLCV, rangeHigh, rangeLow, atr float64) *model.SignalRecord {
	size := rangeHigh - rangeLow
	if size < atr*RangeMinSizeATR {
		return nil
	}
	snap := takeSnapshot(bars)
	threshold := atr * RangeThresholdATR
	cur := snap.cur

	var (
		kind     model.SignalKind
		distance float64
		plan     *model.RiskPlan
	)
	switch {
	case cur.Close > rangeHigh+threshold && cur.High > rangeHigh && snap.prev.Close <= rangeHigh:
		kind = model.KindBullishRangeBreakout
		distance = cur.Close - rangeHigh
		plan = fixedRatioPlan(cur.Close, rangeLow, true)
	case cur.Close < rangeLow-threshold && cur.Low < rangeLow && snap.prev.Close >= rangeLow:
		kind = model.KindBearishRangeBreakout
		distance = rangeLow - cur.Close
		plan = fixedRatioPlan(cur.Close, rangeHigh, false)
	default:
		return nil
	}

	rec := newRecord(symbol, kind, model.Round(distance/atr*RangeStrengthScale, 2), snap, Timeframe4h.Label)
	rec.Readings["Range_High"] = model.Round(rangeHigh, 2)
	rec.Readings["Range_Low"] = model.Round(rangeLow, 2)
	rec.Readings["Range_Size"] = model.Round(size, 2)
	rec.Readings["ATR"] = model.Round(atr, 2)
	rec.Risk = plan
	return rec
}
