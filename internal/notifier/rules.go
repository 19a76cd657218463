package notifier

import (
	"strings"

	"MarketScanner/internal/model"
	"MarketScanner/internal/strategy"
)

// AllKinds is the wildcard accepted in configured rules.
const AllKinds = "*"

// Rule decides which signal kinds of one detector are worth a notification.
type Rule struct {
	Label string
	All   bool
	Kinds []model.SignalKind
}

// Rules maps detector names to their notification rule. Detectors without a
// rule are never notified.
type Rules map[string]Rule

// DefaultRules only forwards confirmed bullish crossovers from the MACD
// detectors and everything from the 4h level detectors.
func DefaultRules() Rules {
	return Rules{
		strategy.NameMACD4h:    {Label: "MACD 4H Bullish Crossover", Kinds: []model.SignalKind{model.KindBullishCrossover}},
		strategy.NameMACD1d:    {Label: "MACD 1D Bullish Crossover", Kinds: []model.SignalKind{model.KindBullishMACDCrossover}},
		strategy.NameRange4h:   {Label: "Range Breakout 4H", All: true},
		strategy.NameResist4h:  {Label: "Resistance Breakout 4H", All: true},
		strategy.NameSupport4h: {Label: "Support Level 4H", All: true},
	}
}

// ParseRules builds rules from configuration, where each detector maps to a
// list of kinds and "*" accepts all. An empty list disables the detector.
func ParseRules(m map[string][]string) Rules {
	out := make(Rules, len(m))
	for det, kinds := range m {
		r := Rule{Label: det}
		for _, k := range kinds {
			k = strings.TrimSpace(k)
			if k == AllKinds {
				r.All = true
				continue
			}
			if k != "" {
				r.Kinds = append(r.Kinds, model.SignalKind(k))
			}
		}
		out[det] = r
	}
	return out
}

// Merge returns a copy of r with entries from override replacing same-named
// detectors. Labels of replaced entries are kept.
func (r Rules) Merge(override Rules) Rules {
	out := make(Rules, len(r)+len(override))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range override {
		if prev, ok := out[k]; ok && prev.Label != "" {
			v.Label = prev.Label
		}
		out[k] = v
	}
	return out
}

// Qualifies reports whether a signal of kind from detector should be sent.
func (r Rules) Qualifies(detector string, kind model.SignalKind) bool {
	rule, ok := r[detector]
	if !ok {
		return false
	}
	if rule.All {
		return true
	}
	for _, k := range rule.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Label returns the section title for detector.
func (r Rules) Label(detector string) string {
	if rule, ok := r[detector]; ok && rule.Label != "" {
		return rule.Label
	}
	return detector
}
