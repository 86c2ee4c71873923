package market

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Direction is the stated direction of a position.
type Direction int8

const (
	Long  Direction = +1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	}
	return fmt.Sprintf("direction(%d)", int8(d))
}

// EntrySide is the order side that opens a position in this direction.
func (d Direction) EntrySide() Side {
	if d == Short {
		return Sell
	}
	return Buy
}

// ExitSide is the order side that closes a position in this direction.
func (d Direction) ExitSide() Side {
	if d == Short {
		return Buy
	}
	return Sell
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDirection parses "long" or "short".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return Long, nil
	case "short", "sell":
		return Short, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Side is the buy/sell polarity of a single fill.
type Side int8

const (
	Buy  Side = +1
	Sell Side = -1
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// Timeframe is the bar period of a candle series.
type Timeframe string

const (
	Daily  Timeframe = "daily"
	Weekly Timeframe = "weekly"
)

// MinBars is the minimum history a strategy needs before it is evaluated.
func (tf Timeframe) MinBars() int {
	if tf == Weekly {
		return 10
	}
	return 50
}

// Period is the wall-clock span of one bar.
func (tf Timeframe) Period() time.Duration {
	if tf == Weekly {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// Valid reports whether tf is a supported timeframe.
func (tf Timeframe) Valid() bool {
	return tf == Daily || tf == Weekly
}

// Feed loads historical candles. Implementations must be deterministic and
// return candles in ascending order without duplicate timestamps.
type Feed interface {
	Load(ctx context.Context, instrument string, tf Timeframe, from, to time.Time) ([]Candle, error)
}
