package strategy

import (
	"math"

	"MarketScanner/internal/calculator"
	"MarketScanner/internal/model"
)

// Support/resistance proximity tuning.
const (
	SupportMinBars       = 100
	SupportWindow        = 15
	SupportMinTouches    = 2
	SupportCeiling       = 1.02
	ResistanceFloor      = 0.98
	LevelMaxDistancePct  = 3.0
	LevelDistancePenalty = 10.0
	LevelStopBuffer      = 0.02
	LevelVolumeRatio     = 1.2
	LevelKeepThreshold   = 70.0

	ScoreNearSupport    = 80
	ScoreNearResistance = 75
	ScoreLevelVolume    = 10
	ScoreTouchBonus     = 15
)

// SupportLevel flags prices within a few percent of a confirmed support or
// resistance level, with a bonus when the bar actually touches it.
type SupportLevel struct {
	name string
}

// NewSupportLevel creates the 4h level proximity detector.
func NewSupportLevel(name string) *SupportLevel { return &SupportLevel{name: name} }

func (d *SupportLevel) Name() string         { return d.name }
func (d *SupportLevel) Timeframe() Timeframe { return Timeframe4h }
func (d *SupportLevel) MinBars() int         { return SupportMinBars }

func (d *SupportLevel) Columns() []string {
	return []string{"Symbol", "Signal_Type", "Signal_Strength", "Current_Price", "Key_Level",
		"Distance_to_Level_%", "Price_Change_%", "Volume_Ratio", "Stop_Loss", "Target",
		"Risk_Amount", "Reward_Amount", "Risk_Reward_Ratio", "Total_Support_Levels",
		"Total_Resistance_Levels", "Scan_Time"}
}

func (d *SupportLevel) Analyze(symbol string, series model.Series) (*model.SignalRecord, error) {
	if series.Len() < d.MinBars() {
		return nil, ErrInsufficientHistory
	}
	levels := calculator.CalculateSupportResistance(series.Bars, SupportWindow, SupportMinTouches)
	return evaluateLevels(symbol, series.Bars, levels), nil
}

func evaluateLevels(symbol string, bars []model.OHLCV, levels model.LevelSet) *model.SignalRecord {
	if levels.Empty() {
		return nil
	}
	supports := levels.SupportPrices()
	resistances := levels.ResistancePrices()
	snap := takeSnapshot(bars)
	cur := snap.cur

	var (
		kind      model.SignalKind
		strength  float64
		key       float64
		distance  float64
		isSupport bool
	)

	if s, ok := maxAtMost(supports, cur.Close*SupportCeiling); ok {
		d := math.Abs(cur.Close-s) / cur.Close * 100
		if d <= LevelMaxDistancePct {
			kind, key, distance, isSupport = model.KindNearSupport, s, d, true
			strength = ScoreNearSupport - d*LevelDistancePenalty
			if snap.volumeRatio > LevelVolumeRatio {
				strength += ScoreLevelVolume
			}
			if cur.Low <= s && s <= cur.Close {
				kind = model.KindSupportBounce
				strength += ScoreTouchBonus
			}
		}
	}

	if strength < LevelKeepThreshold {
		if r, ok := minAtLeast(resistances, cur.Close*ResistanceFloor); ok {
			d := math.Abs(cur.Close-r) / cur.Close * 100
			if d <= LevelMaxDistancePct {
				kind, key, distance, isSupport = model.KindNearResistance, r, d, false
				strength = ScoreNearResistance - d*LevelDistancePenalty
				if snap.volumeRatio > LevelVolumeRatio {
					strength += ScoreLevelVolume
				}
				if cur.High >= r && r >= cur.Close {
					kind = model.KindResistanceRejection
					strength += ScoreTouchBonus
				}
			}
		}
	}

	if !(strength > LevelKeepThreshold) {
		return nil
	}

	rec := newRecord(symbol, kind, model.Round(strength, 2), snap, Timeframe4h.Label)
	rec.Readings["Key_Level"] = model.Round(key, 2)
	rec.Readings["Distance_to_Level_%"] = model.Round(distance, 2)
	rec.Readings["Total_Support_Levels"] = float64(len(supports))
	rec.Readings["Total_Resistance_Levels"] = float64(len(resistances))
	rec.Risk = levelPlan(cur.Close, key, isSupport, supports, resistances)
	return rec
}

// levelPlan puts the stop just beyond the key level and caps the target at
// the next opposing level or twice the risk, whichever is closer.
func levelPlan(close, key float64, long bool, supports, resistances []float64) *model.RiskPlan {
	var stop, risk, target float64
	if long {
		stop = key * (1 - LevelStopBuffer)
		risk = close - stop
		target = close + RewardMultiple*risk
		if next, ok := minAbove(resistances, close); ok && next < target {
			target = next
		}
	} else {
		stop = key * (1 + LevelStopBuffer)
		risk = stop - close
		target = close - RewardMultiple*risk
		if next, ok := maxBelow(supports, close); ok && next > target {
			target = next
		}
	}
	reward := math.Abs(target - close)
	ratio := 0.0
	if risk > 0 {
		ratio = reward / risk
	}
	return &model.RiskPlan{
		StopLoss:     model.Round(stop, 2),
		Target:       model.Round(target, 2),
		RiskAmount:   model.Round(risk, 2),
		RewardAmount: model.Round(reward, 2),
		Ratio:        ratioLabel(ratio),
	}
}

func maxAtMost(xs []float64, limit float64) (float64, bool) {
	best, ok := math.Inf(-1), false
	for _, x := range xs {
		if x <= limit && x > best {
			best, ok = x, true
		}
	}
	return best, ok
}

func minAtLeast(xs []float64, limit float64) (float64, bool) {
	best, ok := math.Inf(1), false
	for _, x := range xs {
		if x >= limit && x < best {
			best, ok = x, true
		}
	}
	return best, ok
}

func maxBelow(xs []float64, limit float64) (float64, bool) {
	best, ok := math.Inf(-1), false
	for _, x := range xs {
		if x < limit && x > best {
			best, ok = x, true
		}
	}
	return best, ok
}

func minAbove(xs []float64, limit float64) (float64, bool) {
	best, ok := math.Inf(1), false
	for _, x := range xs {
		if x > limit && x < best {
			best, ok = x, true
		}
	}
	return best, ok
}
