package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SignalKind names the pattern a detector found.
type SignalKind string

const (
	KindBullishCrossover  SignalKind = "Bullish Crossover"
	KindBullishMomentum   SignalKind = "Bullish Momentum"
	KindBullishDivergence SignalKind = "Bullish Divergence"
	KindBearishCrossover  SignalKind = "Bearish Crossover"
	KindBearishMomentum   SignalKind = "Bearish Momentum"
	KindBearishDivergence SignalKind = "Bearish Divergence"

	KindBullishMACDCrossover SignalKind = "Bullish MACD Crossover"
	KindBearishMACDCrossover SignalKind = "Bearish MACD Crossover"
	KindMACDAboveZero        SignalKind = "MACD Above Zero"
	KindMACDBelowZero        SignalKind = "MACD Below Zero"
	KindBullishBuilding      SignalKind = "Bullish Momentum Building"
	KindBearishBuilding      SignalKind = "Bearish Momentum Building"

	KindBullishRangeBreakout SignalKind = "Bullish Range Breakout"
	KindBearishRangeBreakout SignalKind = "Bearish Range Breakout"

	KindFreshResistanceBreakout SignalKind = "Fresh Resistance Breakout"
	KindResistanceRetracement   SignalKind = "Resistance Retracement"

	KindNearSupport         SignalKind = "Near Support Level"
	KindSupportBounce       SignalKind = "Support Bounce"
	KindNearResistance      SignalKind = "Near Resistance Level"
	KindResistanceRejection SignalKind = "Resistance Rejection"
)

// RiskPlan is the stop/target pair attached to level-based signals.
type RiskPlan struct {
	StopLoss     float64 `json:"stop_loss"`
	Target       float64 `json:"target"`
	RiskAmount   float64 `json:"risk_amount"`
	RewardAmount float64 `json:"reward_amount"`
	Ratio        string  `json:"risk_reward"`
}

// SignalRecord is one detector's verdict for one instrument.
type SignalRecord struct {
	Symbol      string             `json:"symbol"`
	Kind        SignalKind         `json:"signal_type"`
	Score       float64            `json:"score"`
	Price       float64            `json:"current_price"`
	ChangePct   float64            `json:"price_change_pct"`
	VolumeRatio float64            `json:"volume_ratio"`
	Timeframe   string             `json:"timeframe"`
	Readings    map[string]float64 `json:"readings,omitempty"`
	Risk        *RiskPlan          `json:"risk,omitempty"`
	ScanTime    time.Time          `json:"scan_time"`
}

// Reading returns a named indicator reading, 0 if absent.
func (r *SignalRecord) Reading(name string) float64 {
	if r.Readings == nil {
		return 0
	}
	return r.Readings[name]
}

// ResultTable collects the records one detector produced in one cycle.
type ResultTable struct {
	Detector  string         `json:"detector"`
	Columns   []string       `json:"columns"`
	Records   []SignalRecord `json:"records"`
	Failed    []string       `json:"failed,omitempty"`
	ScannedAt time.Time      `json:"scanned_at"`
}

// NewResultTable returns an empty table for the named detector.
func NewResultTable(detector string, columns []string, at time.Time) *ResultTable {
	return &ResultTable{Detector: detector, Columns: columns, Records: []SignalRecord{}, ScannedAt: at}
}

// Len returns the number of records.
func (t *ResultTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Sort orders records by descending score. Equal scores keep insertion order.
func (t *ResultTable) Sort() {
	sort.SliceStable(t.Records, func(i, j int) bool {
		return t.Records[i].Score > t.Records[j].Score
	})
}

// ScanError is a structured detector-level failure.
type ScanError struct {
	Time     time.Time `json:"time"`
	Detector string    `json:"detector"`
	Message  string    `json:"message"`
}

// Round rounds v half away from zero to the given decimal places.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
