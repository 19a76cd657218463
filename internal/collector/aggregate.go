package collector

import (
	"math"
	"strconv"
	"time"

	"MarketScanner/internal/model"
)

// Aggregate resamples series into fixed buckets aligned to midnight in the
// series' exchange location. Each bucket takes the first open, max high, min
// low, last close and summed volume of its bars. Buckets without bars, or
// with a missing value, are dropped.
func Aggregate(series model.Series, bucket time.Duration) model.Series {
	out := model.Series{Symbol: series.Symbol, Interval: bucketLabel(bucket), Location: series.Location}
	if series.Empty() || bucket <= 0 {
		return out
	}
	loc := series.Loc()

	var (
		cur     model.OHLCV
		curKey  time.Time
		started bool
	)
	flush := func() {
		if started && barComplete(cur) {
			out.Bars = append(out.Bars, cur)
		}
	}

	for _, b := range series.Bars {
		key := bucketStart(b.Time, bucket, loc)
		if !started || !key.Equal(curKey) {
			flush()
			cur = model.OHLCV{Time: key, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
			curKey = key
			started = true
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	flush()
	return out
}

// bucketStart floors t to the bucket grid anchored at local midnight.
// Buckets longer than a day fall back to the Unix epoch grid.
func bucketStart(t time.Time, bucket time.Duration, loc *time.Location) time.Time {
	lt := t.In(loc)
	if bucket > 24*time.Hour {
		return lt.Truncate(bucket)
	}
	midnight := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	offset := lt.Sub(midnight)
	return midnight.Add(offset - offset%bucket)
}

func barComplete(b model.OHLCV) bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

func bucketLabel(bucket time.Duration) string {
	switch {
	case bucket <= 0:
		return ""
	case bucket%(24*time.Hour) == 0:
		return strconv.Itoa(int(bucket/(24*time.Hour))) + "d"
	case bucket%time.Hour == 0:
		return strconv.Itoa(int(bucket/time.Hour)) + "h"
	default:
		return strconv.Itoa(int(bucket/time.Minute)) + "m"
	}
}
