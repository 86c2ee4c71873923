package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewCSV(dir)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	assert.Equal(t, [][]string{runHeader}, readCSV(t, filepath.Join(dir, "runs.csv")))
	assert.Equal(t, [][]string{tradeHeader}, readCSV(t, filepath.Join(dir, "trades.csv")))
	assert.Equal(t, [][]string{equityHeader}, readCSV(t, filepath.Join(dir, "equity.csv")))
}

func TestCSVJournalRecords(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewCSV(filepath.Join(dir, "nested"))
	require.NoError(t, err)

	open := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(TradeRecord{
		RunID:      "R1",
		TradeID:    "T1",
		Instrument: "AAPL",
		Direction:  "long",
		Quantity:   10,
		EntryPrice: 100,
		ExitPrice:  110,
		OpenTime:   open,
		CloseTime:  open.AddDate(0, 0, 5),
		RealizedPL: 100,
		Commission: 2.1,
		Reason:     "take_profit",
	}))
	require.NoError(t, j.RecordEquity(EquitySnapshot{RunID: "R1", Time: open, Capital: 99000, Equity: 100050.5}))
	require.NoError(t, j.RecordRun(RunRecord{RunID: "R1", Created: open, Instruments: []string{"AAPL", "MSFT"}, Start: open, End: open.AddDate(0, 1, 0), Trades: 1, Wins: 1}))
	require.NoError(t, j.Close())

	trades := readCSV(t, filepath.Join(dir, "nested", "trades.csv"))
	require.Len(t, trades, 2)
	assert.Equal(t, []string{"R1", "T1", "AAPL", "long", "10.000000", "100.000000", "110.000000",
		"2024-01-02T00:00:00Z", "2024-01-07T00:00:00Z", "100.000000", "2.100000", "take_profit"}, trades[1])

	equity := readCSV(t, filepath.Join(dir, "nested", "equity.csv"))
	require.Len(t, equity, 2)
	assert.Equal(t, "100050.500000", equity[1][3])

	runs := readCSV(t, filepath.Join(dir, "nested", "runs.csv"))
	require.Len(t, runs, 2)
	assert.Equal(t, "AAPL MSFT", runs[1][5])
	assert.Equal(t, "2024-02-02", runs[1][7])
}

func TestCSVJournalConcurrentWrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewCSV(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 25; k++ {
				assert.NoError(t, j.RecordEquity(EquitySnapshot{RunID: "R", Time: time.Unix(0, 0).UTC(), Equity: float64(k)}))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, j.Close())

	assert.Len(t, readCSV(t, filepath.Join(dir, "equity.csv")), 1+8*25)
}
