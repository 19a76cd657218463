package strategy

import (
	"fmt"
	"strings"
)

// Stable detector names.
const (
	NameMACD15m   = "MACD 15min"
	NameMACD4h    = "MACD 4h"
	NameMACD1d    = "MACD 1d"
	NameRange4h   = "Range Breakout 4h"
	NameResist4h  = "Resistance Breakout 4h"
	NameSupport4h = "Support Level 4h"
)

// Names lists every detector in canonical order.
func Names() []string {
	return []string{NameMACD15m, NameMACD4h, NameMACD1d, NameRange4h, NameResist4h, NameSupport4h}
}

// All returns one instance of every detector in canonical order.
func All() []Detector {
	return []Detector{
		NewMACDMomentum(NameMACD15m, Timeframe15m),
		NewMACDMomentum(NameMACD4h, Timeframe4h),
		NewMACDPattern(NameMACD1d),
		NewRangeBreakout(NameRange4h),
		NewResistanceBreakout(NameResist4h),
		NewSupportLevel(NameSupport4h),
	}
}

// Select resolves names (case-insensitive) to detectors in canonical order.
// An empty selection yields an empty slice; an unknown name is an error.
func Select(names []string) ([]Detector, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		known := false
		for _, c := range Names() {
			if strings.EqualFold(c, n) {
				want[c] = true
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown detector %q", n)
		}
	}
	var out []Detector
	for _, d := range All() {
		if want[d.Name()] {
			out = append(out, d)
		}
	}
	return out, nil
}
