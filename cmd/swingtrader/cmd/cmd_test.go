package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/swingtrader/feed"
	"github.com/rustyeddy/swingtrader/journal"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/rustyeddy/swingtrader/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTrend writes a rising zigzag daily series for inst into dir.
func writeTrend(t *testing.T, dir, inst string) {
	t.Helper()

	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	var cs []market.Candle
	for i := 0; i < 545; i++ {
		px := 100 + 0.5*float64(i) - 1
		if i%2 == 0 {
			px += 2
		}
		cs = append(cs, market.Candle{Time: t0.AddDate(0, 0, i), Open: px, High: px + 0.5, Low: px - 0.5, Close: px, Volume: 1e6})
	}

	f, err := os.Create(filepath.Join(dir, inst+".csv"))
	require.NoError(t, err)
	require.NoError(t, feed.WriteCSV(f, cs))
	require.NoError(t, f.Close())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "disabled"))
	err := rootCmd.ExecuteContext(t.Context())
	return out.String(), err
}

// The commands share package level flag state, so the end to end flow runs
// as one sequential test.
func TestCommands(t *testing.T) {
	dir := t.TempDir()
	writeTrend(t, dir, "AAPL")
	db := filepath.Join(dir, "runs.db")

	common := []string{"--candles", dir, "-i", "AAPL", "--from", "2024-01-01", "--to", "2024-06-28", "--journal", db}

	out, err := execute(t, append([]string{"backtest", "--json"}, common...)...)
	require.NoError(t, err, out)

	var res struct {
		Success   bool   `json:"success"`
		RunID     string `json:"run_id"`
		Positions []struct {
			Instrument string `json:"instrument"`
		} `json:"positions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.True(t, res.Success)
	require.NotEmpty(t, res.RunID)
	require.NotEmpty(t, res.Positions, "the uptrend produces trades")

	out, err = execute(t, "journal", "runs", "--journal", db, "--json")
	require.NoError(t, err, out)
	var runs []journal.RunRecord
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].RunID)
	assert.Equal(t, len(res.Positions), runs[0].Trades)

	out, err = execute(t, "journal", "show", res.RunID, "--journal", db, "--json=false")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Run:           "+res.RunID)

	out, err = execute(t, "montecarlo", "--journal", db, "--run", res.RunID, "-n", "50", "--seed", "3", "--json")
	require.NoError(t, err, out)
	var mc struct {
		Success bool `json:"success"`
		Results struct {
			Simulations int `json:"simulations"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &mc))
	assert.True(t, mc.Success)
	assert.Equal(t, 50, mc.Results.Simulations)

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "swingtrader version")
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swing.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err, out)
	assert.FileExists(t, path)

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Configuration valid")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("initial_capital: -5\n"), 0o644))
	_, err = execute(t, "config", "validate", "-f", bad)
	assert.ErrorContains(t, err, "initial_capital must be positive")
}

func TestPositionsFromTrades(t *testing.T) {
	t.Parallel()

	open := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	trades := []journal.TradeRecord{
		{TradeID: "a", Instrument: "AAPL", Direction: "long", Quantity: 10, EntryPrice: 100, ExitPrice: 110, OpenTime: open, CloseTime: open.AddDate(0, 0, 5), Reason: "take_profit"},
		{TradeID: "b", Instrument: "MSFT", Direction: "short", Quantity: 5, EntryPrice: 50, ExitPrice: 52, OpenTime: open, CloseTime: open.AddDate(0, 0, 2), Reason: "stop_loss"},
	}

	got, err := positionsFromTrades(trades)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 100.0, got[0].RealizedPnL(), 1e-9)
	assert.InDelta(t, -10.0, got[1].RealizedPnL(), 1e-9)
	assert.Equal(t, sim.StopLoss, got[1].ExitReason)
	assert.Equal(t, 5, got[0].HoldingDays(time.Time{}))

	_, err = positionsFromTrades([]journal.TradeRecord{{TradeID: "c", Direction: "sideways", Reason: "take_profit"}})
	assert.Error(t, err)
	_, err = positionsFromTrades([]journal.TradeRecord{{TradeID: "d", Direction: "long", Reason: "margin_call"}})
	assert.Error(t, err)
}

func TestInstrumentFromPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"data/aapl.csv":       "AAPL",
		"MSFT_daily.csv":      "MSFT",
		`C:\data\nvda.csv`:    "NVDA",
		"/tmp/spy_weekly.csv": "SPY",
	}
	for in, want := range tests {
		assert.Equal(t, want, instrumentFromPath(in), in)
	}
}

func TestIsSQLite(t *testing.T) {
	t.Parallel()

	assert.True(t, isSQLite("runs.db"))
	assert.True(t, isSQLite("runs.SQLite"))
	assert.False(t, isSQLite("journal/"))
	assert.False(t, isSQLite("runs.csv"))
}
