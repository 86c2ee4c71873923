// Package feed provides candle sources for the backtest engine: in memory,
// CSV files, SQL tables and a memoizing cache in front of any of them.
package feed

import (
	"time"

	"github.com/rustyeddy/swingtrader/market"
)

// window trims candles to the calendar days [from, to] after sorting and
// removing duplicate timestamps.
func window(cs []market.Candle, from, to time.Time) []market.Candle {
	out := market.Normalize(cs).Between(from, to)
	return append([]market.Candle(nil), out...)
}
