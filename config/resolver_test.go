package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverDefaults(t *testing.T) {
	cfg, err := NewResolver().Resolve()
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.InitialCapital, cfg.InitialCapital)
	assert.Equal(t, def.Instruments, cfg.Instruments)
	assert.Equal(t, def.LongTerm, cfg.LongTerm)
	assert.True(t, def.DateRange.From.Equal(cfg.DateRange.From))
}

func TestResolverLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	body := `
initial_capital: 50000
risk_per_trade: 1.5
date_range:
  from: 2024-01-01
  to: 2024-06-30
instruments: [AAPL, SPY]
long_term:
  max_positions: 8
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	t.Setenv("SWINGTRADER_RISK_PER_TRADE", "3")
	t.Setenv("SWINGTRADER_LONG_TERM_MIN_HOLDING_DAYS", "14")

	cfg, err := NewResolver().WithFile(path).Set("slippage_pct", 0.2).Resolve()
	require.NoError(t, err)

	assert.Equal(t, 50000.0, cfg.InitialCapital, "file overrides default")
	assert.Equal(t, 3.0, cfg.RiskPerTrade, "env overrides file")
	assert.Equal(t, 0.2, cfg.SlippagePct, "explicit set overrides all")
	assert.Equal(t, []string{"AAPL", "SPY"}, cfg.Instruments)
	assert.Equal(t, 8, cfg.LongTerm.MaxPositions)
	assert.Equal(t, 14, cfg.LongTerm.MinHoldingDays)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.DateRange.From)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), cfg.DateRange.To)
}

func TestResolverRejectsInvalid(t *testing.T) {
	_, err := NewResolver().Set("risk_per_trade", 50).Resolve()
	require.Error(t, err)

	var cerr *ConfigurationError
	assert.True(t, errors.As(err, &cerr))
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)

	got, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ParseDate("2024-02-29T13:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseDate("29/02/2024")
	assert.Error(t, err)
}
