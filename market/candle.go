package market

import (
	"sort"
	"time"
)

// Candle represents one OHLCV bar. Candles are immutable values; a feed
// returns them in ascending Time order with no duplicate timestamps.
type Candle struct {
	Time   time.Time `json:"time" yaml:"time"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
}

// Date returns the UTC calendar day of the candle.
func (c Candle) Date() time.Time {
	return DateOf(c.Time)
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// Candles is an ordered candle series for a single instrument.
type Candles []Candle

// Until returns the prefix of the series whose timestamps fall on or before
// the calendar day of date. The returned slice shares the backing array and
// is capped so appends never leak into later bars.
func (cs Candles) Until(date time.Time) Candles {
	end := DateOf(date).AddDate(0, 0, 1)
	n := sort.Search(len(cs), func(i int) bool {
		return !cs[i].Time.Before(end)
	})
	return cs[:n:n]
}

// At returns the candle dated on the calendar day of date, if any.
func (cs Candles) At(date time.Time) (Candle, bool) {
	view := cs.Until(date)
	if len(view) == 0 {
		return Candle{}, false
	}
	last := view[len(view)-1]
	if !last.Date().Equal(DateOf(date)) {
		return Candle{}, false
	}
	return last, true
}

// Last returns the final candle of the series.
func (cs Candles) Last() (Candle, bool) {
	if len(cs) == 0 {
		return Candle{}, false
	}
	return cs[len(cs)-1], true
}

// Between returns the candles within [from, to] by calendar day.
func (cs Candles) Between(from, to time.Time) Candles {
	view := cs.Until(to)
	start := DateOf(from)
	i := sort.Search(len(view), func(i int) bool {
		return !view[i].Time.Before(start)
	})
	return view[i:]
}

// Closes returns the close prices of the series.
func (cs Candles) Closes() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}

// Normalize sorts candles by time and drops duplicate timestamps, keeping
// the last occurrence.
func Normalize(cs []Candle) Candles {
	out := make(Candles, len(cs))
	copy(out, cs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})

	dedup := out[:0]
	for _, c := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(c.Time) {
			dedup[n-1] = c
			continue
		}
		dedup = append(dedup, c)
	}
	return dedup
}
