package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/swingtrader/market"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes Load results of another feed. Concurrent loads of the same
// key share one call. Walk forward windows and optimizer combinations
// reload identical ranges, which is what this serves.
type Cache struct {
	next market.Feed

	mu      sync.RWMutex
	entries map[string][]market.Candle
	group   singleflight.Group
}

func NewCache(next market.Feed) *Cache {
	return &Cache{next: next, entries: make(map[string][]market.Candle)}
}

func (c *Cache) Load(ctx context.Context, instrument string, tf market.Timeframe, from, to time.Time) ([]market.Candle, error) {
	key := fmt.Sprintf("%s|%s|%s|%s", instrument, tf, market.DateOf(from).Format(time.DateOnly), market.DateOf(to).Format(time.DateOnly))

	c.mu.RLock()
	cs, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return append([]market.Candle(nil), cs...), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		cs, err := c.next.Load(ctx, instrument, tf, from, to)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cs
		c.mu.Unlock()
		return cs, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]market.Candle(nil), v.([]market.Candle)...), nil
}

// Len is the number of cached ranges.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every cached range.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]market.Candle)
}
