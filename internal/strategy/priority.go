package strategy

import (
	"sort"

	"MarketScanner/internal/model"
)

var (
	signalPriority = []model.SignalKind{
		model.KindBullishCrossover,
		model.KindBullishDivergence,
		model.KindBullishMACDCrossover,
		model.KindBullishBuilding,
	}
	breakoutPriority = []model.SignalKind{
		"Bullish Breakout",
		"Range Breakout",
		"Resistance Breakout",
		"Support Breakout",
		model.KindBullishRangeBreakout,
	}
)

// PriorityRank orders a table's records for display. For the MACD and range
// breakout detectors, records are grouped by semantic category first and by
// descending score within a group. Other tables are ordered by score only.
// The table itself is not modified.
func PriorityRank(t *model.ResultTable) []model.SignalRecord {
	out := make([]model.SignalRecord, t.Len())
	if t == nil {
		return out
	}
	copy(out, t.Records)

	var sigRank, brkRank func(model.SignalKind) int
	switch t.Detector {
	case NameMACD15m, NameMACD4h, NameMACD1d:
		sigRank = rankIn(signalPriority)
	case NameRange4h:
		brkRank = rankIn(breakoutPriority)
	}
	key := func(r model.SignalRecord) (int, int) {
		a, b := len(signalPriority), len(breakoutPriority)
		if sigRank != nil {
			a = sigRank(r.Kind)
		}
		if brkRank != nil {
			b = brkRank(r.Kind)
		}
		return a, b
	}

	sort.SliceStable(out, func(i, j int) bool {
		ai, bi := key(out[i])
		aj, bj := key(out[j])
		if ai != aj {
			return ai < aj
		}
		if bi != bj {
			return bi < bj
		}
		return out[i].Score > out[j].Score
	})
	return out
}

func rankIn(list []model.SignalKind) func(model.SignalKind) int {
	return func(k model.SignalKind) int {
		for i, v := range list {
			if v == k {
				return i
			}
		}
		return len(list)
	}
}
