package model

import (
	"strings"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Valid reports whether the bar satisfies the price invariants.
func (b OHLCV) Valid() bool {
	return b.Open > 0 && b.High > 0 && b.Low > 0 && b.Close > 0 && b.High >= b.Low && b.Volume >= 0
}

// Series is a cleaned, time-ordered bar sequence for one instrument at one
// granularity. Consumers must treat Bars as read-only.
type Series struct {
	Symbol   string
	Interval string
	Location *time.Location
	Bars     []OHLCV
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Bars) }

// Empty reports whether the series has no bars.
func (s Series) Empty() bool { return len(s.Bars) == 0 }

// Last returns the most recent bar. It panics on an empty series.
func (s Series) Last() OHLCV { return s.Bars[len(s.Bars)-1] }

// Loc returns the exchange location of the series, UTC when unknown.
func (s Series) Loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// Field enumerates the required OHLCV columns of a raw provider response.
type Field int

const (
	FieldOpen Field = iota
	FieldHigh
	FieldLow
	FieldClose
	FieldVolume
)

// RequiredFields lists the columns every raw series must carry.
var RequiredFields = []Field{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume}

func (f Field) String() string {
	switch f {
	case FieldOpen:
		return "open"
	case FieldHigh:
		return "high"
	case FieldLow:
		return "low"
	case FieldClose:
		return "close"
	case FieldVolume:
		return "volume"
	default:
		return "unknown"
	}
}

// RawSeries is an untrusted provider response. Missing cells are NaN and a
// missing column is an absent map key.
type RawSeries struct {
	Symbol   string
	Location *time.Location
	Times    []time.Time
	Columns  map[Field][]float64
}

// Len returns the number of rows.
func (r RawSeries) Len() int { return len(r.Times) }

// DisplaySymbol strips the NSE suffix used by the data provider.
func DisplaySymbol(symbol string) string {
	return strings.TrimSuffix(symbol, ".NS")
}

// IST is the NSE exchange timezone.
var IST = loadIST()

func loadIST() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+30*60)
	}
	return loc
}
