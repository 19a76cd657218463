package strategy

import (
	"math"

	"MarketScanner/internal/calculator"
	"MarketScanner/internal/model"
)

// Resistance breakout tuning.
const (
	ResistanceMinBars         = 100
	ResistanceWindow          = 10
	ResistanceMinTouches      = 2
	ResistanceProximity       = 1.05
	ResistanceRecentCloses    = 5
	ResistanceRetraceLookback = 10
	ResistanceDefaultStop     = 0.95
	BreakoutVolumeRatio       = 1.2
	StrongBreakoutPct         = 2.0
	VeryStrongBreakoutPct     = 5.0
	RetraceNearPct            = 3.0
	RetraceVolumeRatio        = 1.0

	ScoreFreshBreakout       = 70
	ScoreBreakoutVolumeBonus = 15
	ScoreStrongBreakoutBonus = 10
	ScoreVeryStrongBonus     = 5
	ScoreRetracement         = 60
	ScoreRetraceNearBonus    = 15
	ScoreRetraceVolumeBonus  = 10
)

// ResistanceBreakout flags fresh breakouts above a nearby resistance level
// and pullbacks below a level that was recently cleared.
type ResistanceBreakout struct {
	name string
}

// NewResistanceBreakout creates the 4h resistance detector.
func NewResistanceBreakout(name string) *ResistanceBreakout {
	return &ResistanceBreakout{name: name}
}

func (d *ResistanceBreakout) Name() string         { return d.name }
func (d *ResistanceBreakout) Timeframe() Timeframe { return Timeframe4h }
func (d *ResistanceBreakout) MinBars() int         { return ResistanceMinBars }

func (d *ResistanceBreakout) Columns() []string {
	return []string{"Symbol", "Signal_Type", "Breakout_Score", "Current_Price", "Resistance_Level",
		"Price_Change_%", "Volume_Ratio", "Stop_Loss", "Target", "Risk_Amount", "Risk_Reward",
		"Distance_from_Resistance_%", "Scan_Time"}
}

func (d *ResistanceBreakout) Analyze(symbol string, series model.Series) (*model.SignalRecord, error) {
	if series.Len() < d.MinBars() {
		return nil, ErrInsufficientHistory
	}
	levels := calculator.CalculateSupportResistance(series.Bars, ResistanceWindow, ResistanceMinTouches)
	return evaluateResistance(symbol, series.Bars, levels), nil
}

func evaluateResistance(symbol string, bars []model.OHLCV, levels model.LevelSet) *model.SignalRecord {
	resistances := levels.ResistancePrices()
	if len(resistances) == 0 {
		return nil
	}
	snap := takeSnapshot(bars)
	cur := snap.cur

	level, found := 0.0, false
	for _, r := range resistances {
		if r <= cur.Close*ResistanceProximity {
			level, found = r, true
			break
		}
	}
	if !found {
		return nil
	}

	wasBelow := false
	for i := len(bars) - ResistanceRecentCloses; i < len(bars); i++ {
		if i >= 0 && bars[i].Close <= level {
			wasBelow = true
			break
		}
	}

	var (
		kind  model.SignalKind
		score float64
	)
	if cur.Close > level && cur.High > level && wasBelow {
		kind = model.KindFreshResistanceBreakout
		pct := (cur.Close - level) / level * 100
		score = ScoreFreshBreakout
		if snap.volumeRatio > BreakoutVolumeRatio {
			score += ScoreBreakoutVolumeBonus
		}
		if pct > StrongBreakoutPct {
			score += ScoreStrongBreakoutBonus
		}
		if pct > VeryStrongBreakoutPct {
			score += ScoreVeryStrongBonus
		}
	} else {
		limit := len(bars)
		if limit > ResistanceRetraceLookback {
			limit = ResistanceRetraceLookback
		}
		for i := 2; i < limit; i++ {
			past := bars[len(bars)-i]
			if past.High > level && past.Close > level && cur.Close < level {
				kind = model.KindResistanceRetracement
				pct := math.Abs(cur.Close-level) / level * 100
				score = ScoreRetracement
				if pct < RetraceNearPct {
					score += ScoreRetraceNearBonus
				}
				if snap.volumeRatio > RetraceVolumeRatio {
					score += ScoreRetraceVolumeBonus
				}
				break
			}
		}
	}
	if kind == "" {
		return nil
	}

	stop := cur.Close * ResistanceDefaultStop
	if s, ok := maxBelow(levels.SupportPrices(), cur.Close); ok {
		stop = s
	}

	rec := newRecord(symbol, kind, score, snap, Timeframe4h.Label)
	rec.Readings["Resistance_Level"] = model.Round(level, 2)
	rec.Readings["Distance_from_Resistance_%"] = model.Round(math.Abs(cur.Close-level)/level*100, 2)
	rec.Risk = fixedRatioPlan(cur.Close, stop, true)
	return rec
}
