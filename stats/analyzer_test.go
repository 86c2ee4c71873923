package stats

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/swingtrader/market"
	"github.com/rustyeddy/swingtrader/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func closed(inst string, pnl float64, days int) sim.Position {
	return sim.Position{
		Instrument: inst,
		Direction:  market.Long,
		EntryDate:  start,
		EntryPrice: 100,
		Quantity:   1,
		ExitDate:   start.AddDate(0, 0, days),
		ExitPrice:  100 + pnl,
		ExitReason: sim.TakeProfit,
	}
}

func curve(values ...float64) []sim.EquityPoint {
	out := make([]sim.EquityPoint, len(values))
	for i, v := range values {
		out[i] = sim.EquityPoint{Date: start.AddDate(0, 0, i), Equity: v}
	}
	return out
}

func TestAnalyzeEmpty(t *testing.T) {
	t.Parallel()

	m := Analyze(Input{})
	for _, name := range Names() {
		assert.Zero(t, m.Value(name), name)
	}
	assert.Nil(t, m.BestTrade)
	assert.Nil(t, m.WorstTrade)
}

func TestAnalyzeNoTrades(t *testing.T) {
	t.Parallel()

	m := Analyze(Input{InitialCapital: 100000, FinalCapital: 100000, EquityCurve: curve(100000, 100000)})
	assert.Zero(t, m.TotalReturn)
	assert.Zero(t, m.Sharpe)
	assert.Zero(t, m.Sortino)
	assert.Zero(t, m.MaxDrawdown)
	assert.Zero(t, m.WinRate)
}

func TestAnalyzeTrades(t *testing.T) {
	t.Parallel()

	positions := []sim.Position{
		closed("AAPL", 100, 3),
		closed("MSFT", 200, 5),
		closed("NVDA", -50, 2),
		closed("SPY", -25, 4),
		closed("AAPL", 0, 1),
	}
	m := Analyze(Input{
		Positions:      positions,
		EquityCurve:    curve(100100, 100300, 100250, 100225, 100225),
		InitialCapital: 100000,
		FinalCapital:   100225,
		TradingDays:    5,
	})

	assert.Equal(t, 5, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 2, m.LosingTrades)
	assert.InDelta(t, 40.0, m.WinRate, 1e-9)
	assert.InDelta(t, 0.225, m.TotalReturn, 1e-9)
	assert.InDelta(t, 225.0, m.NetPnL, 1e-9)
	assert.InDelta(t, 4.0, m.ProfitFactor, 1e-9)
	assert.InDelta(t, 150.0, m.AvgWin, 1e-9)
	assert.InDelta(t, -37.5, m.AvgLoss, 1e-9)
	assert.InDelta(t, 4.0, m.AvgWinLossRatio, 1e-9)
	assert.InDelta(t, 45.0, m.Expectancy, 1e-9)
	assert.Equal(t, 2, m.ConsecutiveWins)
	assert.Equal(t, 2, m.ConsecutiveLosses)
	assert.InDelta(t, 3.0, m.AvgHoldingDays, 1e-9)
	assert.InDelta(t, 75.0/100300*100, m.MaxDrawdown, 1e-9)
	assert.Greater(t, m.Sharpe, 0.0)
	assert.Greater(t, m.Sortino, 0.0)

	require.NotNil(t, m.BestTrade)
	assert.Equal(t, "MSFT", m.BestTrade.Instrument)
	assert.InDelta(t, 200.0, m.BestTrade.PnL, 1e-9)
	assert.InDelta(t, 200.0, m.BestTrade.PnLPct, 1e-9)
	assert.Equal(t, 5, m.BestTrade.HoldingDays)
	require.NotNil(t, m.WorstTrade)
	assert.Equal(t, "NVDA", m.WorstTrade.Instrument)
}

func TestAnalyzeNoLosses(t *testing.T) {
	t.Parallel()

	m := Analyze(Input{
		Positions:      []sim.Position{closed("AAPL", 10, 1), closed("MSFT", 20, 1)},
		EquityCurve:    curve(100010, 100030),
		InitialCapital: 100000,
		FinalCapital:   100030,
	})
	assert.Zero(t, m.ProfitFactor)
	assert.Zero(t, m.AvgWinLossRatio)
	assert.Zero(t, m.Sortino)
	assert.InDelta(t, 100.0, m.WinRate, 1e-9)
}

func TestAnnualizedReturn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		initial float64
		final   float64
		days    int
		want    float64
	}{
		{"one_year", 100000, 110000, 252, 10},
		{"two_years", 100000, 121000, 504, 10},
		{"no_days", 100000, 110000, 0, 0},
		{"no_capital", 0, 110000, 252, 0},
		{"wiped_out", 100000, 0, 252, -100},
		{"wiped_out_half_year", 100000, 0, 126, -100},
		{"below_zero", 100000, -500, 252, -100},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, annualized(tt.initial, tt.final, tt.days), 1e-9)
		})
	}
}

func TestSharpeMatchesPopulationStdDev(t *testing.T) {
	t.Parallel()

	rets := []float64{0.01, -0.02, 0.03, 0.0}
	mean := 0.005
	var ss float64
	for _, r := range rets {
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / float64(len(rets)))

	assert.InDelta(t, mean/std*math.Sqrt(252), sharpe(rets), 1e-9)
	assert.Zero(t, sharpe([]float64{0.01, 0.01}))
	assert.Zero(t, sharpe(nil))
}

func TestMaxDrawdown(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 20.0, maxDrawdown([]float64{100, 120, 96, 110}), 1e-9)
	assert.Zero(t, maxDrawdown([]float64{100, 101, 102}))
	assert.Zero(t, maxDrawdown(nil))
}

func TestMean(t *testing.T) {
	t.Parallel()

	s := Mean([]Metrics{{Sharpe: 1, TotalTrades: 2}, {Sharpe: 2, TotalTrades: 5}})
	assert.InDelta(t, 1.5, s.Value(Sharpe), 1e-9)
	assert.InDelta(t, 3.5, s.Value(TotalTrades), 1e-9)
	assert.Zero(t, s.Value("missing"))
	assert.Empty(t, Mean(nil))
}

func TestRound(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.23, Round(1.2345, 2))
	assert.Equal(t, -1.24, Round(-1.235, 2))
}
