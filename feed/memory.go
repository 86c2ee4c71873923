package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rustyeddy/swingtrader/market"
)

type memKey struct {
	instrument string
	tf         market.Timeframe
}

// Memory is a map backed feed, mostly for tests and generated data.
type Memory struct {
	mu   sync.RWMutex
	data map[memKey][]market.Candle
}

func NewMemory() *Memory {
	return &Memory{data: make(map[memKey][]market.Candle)}
}

// Add appends candles for instrument on tf.
func (m *Memory) Add(instrument string, tf market.Timeframe, candles ...market.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memKey{instrument, tf}
	m.data[k] = append(m.data[k], candles...)
}

func (m *Memory) Load(ctx context.Context, instrument string, tf market.Timeframe, from, to time.Time) ([]market.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return window(m.data[memKey{instrument, tf}], from, to), nil
}
