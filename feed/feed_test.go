package feed

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rustyeddy/swingtrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func bars(n int) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		px := 100 + float64(i)
		out[i] = market.Candle{Time: day0.AddDate(0, 0, i), Open: px, High: px + 1, Low: px - 1, Close: px, Volume: 1000}
	}
	return out
}

func TestMemoryLoad(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	cs := bars(10)
	// out of order with a duplicate
	m.Add("AAPL", market.Daily, cs[5:]...)
	m.Add("AAPL", market.Daily, cs[:6]...)

	got, err := m.Load(t.Context(), "AAPL", market.Daily, day0.AddDate(0, 0, 2), day0.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.True(t, got[0].Time.Equal(day0.AddDate(0, 0, 2)))
	assert.True(t, got[4].Time.Equal(day0.AddDate(0, 0, 6)))

	none, err := m.Load(t.Context(), "AAPL", market.Weekly, day0, day0.AddDate(0, 0, 9))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryLoadCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := NewMemory().Load(ctx, "AAPL", market.Daily, day0, day0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{"header_and_rows", "time,open,high,low,close,volume\n2024-01-02,1,2,0.5,1.5,100\n2024-01-03T00:00:00Z,1.5,2,1,1.8,200\n", 2, false},
		{"no_header", "2024-01-02,1,2,0.5,1.5,100\n", 1, false},
		{"missing_volume", "2024-01-02,1,2,0.5,1.5\n", 1, false},
		{"short_row_skipped", "2024-01-02,1,2\n2024-01-03,1,2,0.5,1.5,1\n", 1, false},
		{"bad_time", "yesterday,1,2,0.5,1.5,1\n", 0, true},
		{"bad_price", "2024-01-02,x,2,0.5,1.5,1\n", 0, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ReadCSV(strings.NewReader(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "MSFT_daily.csv"))
	require.NoError(t, err)
	require.NoError(t, WriteCSV(f, bars(20)))
	require.NoError(t, f.Close())

	src := NewCSV(dir)
	got, err := src.Load(t.Context(), "MSFT", market.Daily, day0, day0.AddDate(0, 0, 9))
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, bars(10), got)

	_, err = src.Load(t.Context(), "NVDA", market.Daily, day0, day0)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCSVFallbackFileName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "SPY.csv"))
	require.NoError(t, err)
	require.NoError(t, WriteCSV(f, bars(3)))
	require.NoError(t, f.Close())

	got, err := NewCSV(dir).Load(t.Context(), "SPY", market.Weekly, day0, day0.AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSQLiteFeed(t *testing.T) {
	t.Parallel()

	s, err := OpenSQL("sqlite3", filepath.Join(t.TempDir(), "candles.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Insert(t.Context(), "AAPL", market.Daily, bars(30)))
	// upsert replaces the existing row
	updated := bars(1)
	updated[0].Close = 42
	require.NoError(t, s.Insert(t.Context(), "AAPL", market.Daily, updated))

	got, err := s.Load(t.Context(), "AAPL", market.Daily, day0, day0.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, 42.0, got[0].Close)
	assert.True(t, got[4].Time.Equal(day0.AddDate(0, 0, 4)))
	assert.Equal(t, time.UTC, got[0].Time.Location())

	none, err := s.Load(t.Context(), "AAPL", market.Weekly, day0, day0.AddDate(0, 0, 4))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOpenSQLRejectsDriver(t *testing.T) {
	t.Parallel()

	_, err := OpenSQL("mysql", "")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	t.Parallel()

	q := "SELECT a FROM t WHERE x = ? AND y = ?"
	assert.Equal(t, q, (&SQL{driver: "sqlite3"}).rebind(q))
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", (&SQL{driver: "postgres"}).rebind(q))
}

type countingFeed struct {
	calls atomic.Int32
	next  market.Feed
}

func (c *countingFeed) Load(ctx context.Context, instrument string, tf market.Timeframe, from, to time.Time) ([]market.Candle, error) {
	c.calls.Add(1)
	time.Sleep(5 * time.Millisecond)
	return c.next.Load(ctx, instrument, tf, from, to)
}

func TestCacheMemoizes(t *testing.T) {
	t.Parallel()

	mem := NewMemory()
	mem.Add("AAPL", market.Daily, bars(10)...)
	inner := &countingFeed{next: mem}
	c := NewCache(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Load(t.Context(), "AAPL", market.Daily, day0, day0.AddDate(0, 0, 9))
			assert.NoError(t, err)
			assert.Len(t, got, 10)
		}()
	}
	wg.Wait()

	got, err := c.Load(t.Context(), "AAPL", market.Daily, day0, day0.AddDate(0, 0, 9))
	require.NoError(t, err)
	// callers own their copy
	got[0].Close = -1

	again, err := c.Load(t.Context(), "AAPL", market.Daily, day0, day0.AddDate(0, 0, 9))
	require.NoError(t, err)
	assert.Equal(t, 100.0, again[0].Close)

	assert.LessOrEqual(t, inner.calls.Load(), int32(8))
	calls := inner.calls.Load()
	_, err = c.Load(t.Context(), "AAPL", market.Daily, day0, day0.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, calls+1, inner.calls.Load())
	assert.Equal(t, 2, c.Len())

	c.Reset()
	assert.Zero(t, c.Len())
}
