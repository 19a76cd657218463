package strategy

import (
	"strconv"
	"strings"

	"MarketScanner/internal/calculator"
	"MarketScanner/internal/model"
)

const (
	// VolumeLookback is the trailing window for the average volume.
	VolumeLookback = 20
	// RewardMultiple places targets at this many units of risk.
	RewardMultiple = 2.0
)

// snapshot is the current/previous bar view shared by every detector.
type snapshot struct {
	cur, prev   model.OHLCV
	changePct   float64
	volumeRatio float64
}

func takeSnapshot(bars []model.OHLCV) snapshot {
	cur := bars[len(bars)-1]
	prev := bars[len(bars)-2]
	return snapshot{
		cur:         cur,
		prev:        prev,
		changePct:   calculator.PercentChange(prev.Close, cur.Close),
		volumeRatio: calculator.VolumeRatio(bars, VolumeLookback),
	}
}

// newRecord fills the fields every detector reports.
func newRecord(symbol string, kind model.SignalKind, score float64, snap snapshot, timeframe string) *model.SignalRecord {
	return &model.SignalRecord{
		Symbol:      model.DisplaySymbol(symbol),
		Kind:        kind,
		Score:       score,
		Price:       model.Round(snap.cur.Close, 2),
		ChangePct:   model.Round(snap.changePct, 2),
		VolumeRatio: model.Round(snap.volumeRatio, 2),
		Timeframe:   timeframe,
		Readings:    map[string]float64{},
	}
}

// fixedRatioPlan places the target at twice the risk from close.
func fixedRatioPlan(close, stop float64, long bool) *model.RiskPlan {
	risk := close - stop
	target := close + RewardMultiple*risk
	if !long {
		risk = stop - close
		target = close - RewardMultiple*risk
	}
	return &model.RiskPlan{
		StopLoss:     model.Round(stop, 2),
		Target:       model.Round(target, 2),
		RiskAmount:   model.Round(risk, 2),
		RewardAmount: model.Round(RewardMultiple*risk, 2),
		Ratio:        "1:2",
	}
}

// ratioLabel renders reward/risk as "1:x" with at least one decimal.
func ratioLabel(ratio float64) string {
	s := strconv.FormatFloat(model.Round(ratio, 2), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return "1:" + s
}
