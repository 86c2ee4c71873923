package optimizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rustyeddy/swingtrader/backtest"
	"github.com/rustyeddy/swingtrader/config"
	"github.com/rustyeddy/swingtrader/stats"
	"github.com/rustyeddy/swingtrader/walkforward"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() config.Config {
	cfg := *config.Default()
	return cfg.WithDateRange(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	)
}

// grid scores risk_per_trade x fast_period so that the best single
// combination and the best marginal risk value disagree.
var grid = map[[2]float64]float64{
	{1, 10}: 1,
	{1, 20}: 2,
	{2, 10}: 6,
	{2, 20}: -4,
}

func gridRunner() backtest.Runner {
	return backtest.RunnerFunc(func(ctx context.Context, cfg config.Config) (*backtest.Result, error) {
		fast := cfg.StrategyOverrides["fast_period"]
		if fast == 30 {
			return nil, fmt.Errorf("backtest: %w: fast_period", backtest.ErrStrategyOverrides)
		}
		sharpe, ok := grid[[2]float64{cfg.RiskPerTrade, fast}]
		if !ok {
			return &backtest.Result{Success: false, Error: backtest.InsufficientData}, nil
		}
		return &backtest.Result{
			Success: true,
			Metrics: stats.Metrics{Sharpe: sharpe, TotalReturn: sharpe * 2, WinRate: 50, ProfitFactor: 1.5},
		}, nil
	})
}

func TestOptimizer_Sensitivity(t *testing.T) {
	t.Parallel()

	space := Space{"risk_per_trade": {1, 2}, "fast_period": {10, 20}}
	opts := Options{Metric: Sharpe, UseWalkForward: false, Workers: 4}

	rep, err := New(gridRunner()).Run(t.Context(), baseConfig(), space, opts)
	require.NoError(t, err)
	require.True(t, rep.Success)

	assert.Equal(t, 4, rep.Tested)
	assert.Zero(t, rep.Failed)
	require.Len(t, rep.AllResults, 4)
	for i := 1; i < len(rep.AllResults); i++ {
		assert.GreaterOrEqual(t, rep.AllResults[i-1].Score, rep.AllResults[i].Score)
	}

	assert.Equal(t, Params{"risk_per_trade": 2, "fast_period": 10}, rep.BestParameters)
	assert.Equal(t, 6.0, rep.BestScore)
	assert.Equal(t, 6.0, rep.BestMetrics.Value(stats.Sharpe))

	risk := rep.Sensitivity["risk_per_trade"]
	assert.Equal(t, 1.0, risk.BestValue, "mean 1.5 beats mean 1.0")
	require.Len(t, risk.Values, 2)
	assert.Equal(t, ValueScore{Value: 1, MeanScore: 1.5, Count: 2}, risk.Values[0])
	assert.Equal(t, ValueScore{Value: 2, MeanScore: 1, Count: 2}, risk.Values[1])

	fast := rep.Sensitivity["fast_period"]
	assert.Equal(t, 10.0, fast.BestValue)
	assert.InDelta(t, 3.5, fast.Values[0].MeanScore, 1e-9)

	var buf bytes.Buffer
	PrintReport(&buf, rep, 2)
	assert.Contains(t, buf.String(), "Best:          fast_period=10 risk_per_trade=2")
	assert.Contains(t, buf.String(), "Top 2")
}

func TestOptimizer_ExcludesRejected(t *testing.T) {
	t.Parallel()

	space := Space{
		"risk_per_trade": {1, 2, 50},
		"fast_period":    {10, 30},
	}
	rep, err := New(gridRunner()).Run(t.Context(), baseConfig(), space, Options{Metric: Composite})
	require.NoError(t, err)
	require.True(t, rep.Success)

	// risk 50 fails validation, fast 30 is rejected by the evaluator
	assert.Equal(t, 6, rep.Tested)
	assert.Equal(t, 4, rep.Failed)
	require.Len(t, rep.AllResults, 2)
	assert.Equal(t, Params{"risk_per_trade": 2, "fast_period": 10}, rep.BestParameters)
	assert.InDelta(t, 0.4*6+0.2*12+0.2*50+0.2*1.5, rep.BestScore, 1e-9)
}

func TestOptimizer_NoResults(t *testing.T) {
	t.Parallel()

	rep, err := New(gridRunner()).Run(t.Context(), baseConfig(), Space{"risk_per_trade": {3}}, Options{})
	require.NoError(t, err)
	assert.False(t, rep.Success)
	assert.Equal(t, NoResults, rep.Error)
	assert.Equal(t, 1, rep.Failed)
	assert.Empty(t, rep.AllResults)
}

func TestOptimizer_WalkForwardScoresOutOfSample(t *testing.T) {
	t.Parallel()

	// in-sample favours low risk, out-of-sample favours high risk
	runner := backtest.RunnerFunc(func(ctx context.Context, cfg config.Config) (*backtest.Result, error) {
		sharpe := cfg.RiskPerTrade
		if cfg.DateRange.Days() > 60 {
			sharpe = 10 / cfg.RiskPerTrade
		}
		return &backtest.Result{Success: true, Metrics: stats.Metrics{Sharpe: sharpe}}, nil
	})

	opts := DefaultOptions()
	opts.WalkForward = walkforward.Options{WindowType: walkforward.Rolling, InSampleDays: 90, OutOfSampleDays: 30}
	rep, err := New(runner).Run(t.Context(), baseConfig(), Space{"risk_per_trade": {1, 2}}, opts)
	require.NoError(t, err)
	require.True(t, rep.Success)

	assert.True(t, rep.UseWalkForward)
	assert.Equal(t, 2.0, rep.BestParameters["risk_per_trade"])
	assert.InDelta(t, 2.0, rep.BestScore, 1e-9)

	plain := opts
	plain.UseWalkForward = false
	rep, err = New(runner).Run(t.Context(), baseConfig(), Space{"risk_per_trade": {1, 2}}, plain)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rep.BestParameters["risk_per_trade"])
}

func TestOptimizer_Errors(t *testing.T) {
	t.Parallel()

	space := Space{"risk_per_trade": {1}}

	_, err := New(nil).Run(t.Context(), baseConfig(), space, Options{})
	assert.Error(t, err)

	_, err = New(gridRunner()).Run(t.Context(), baseConfig(), Space{}, Options{})
	assert.Error(t, err)

	_, err = New(gridRunner()).Run(t.Context(), baseConfig(), space, Options{Metric: "alpha"})
	assert.Error(t, err)

	bad := baseConfig()
	bad.Timeframe = "hourly"
	_, err = New(gridRunner()).Run(t.Context(), bad, space, Options{})
	var cerr *config.ConfigurationError
	assert.ErrorAs(t, err, &cerr)

	boom := errors.New("feed down")
	failing := backtest.RunnerFunc(func(ctx context.Context, cfg config.Config) (*backtest.Result, error) {
		return nil, boom
	})
	_, err = New(failing).Run(t.Context(), baseConfig(), space, Options{})
	assert.ErrorIs(t, err, boom)
}

func TestScore(t *testing.T) {
	t.Parallel()

	s := stats.Summary{
		stats.Sharpe:       1.5,
		stats.Sortino:      2,
		stats.TotalReturn:  20,
		stats.WinRate:      55,
		stats.ProfitFactor: 1.8,
	}
	assert.Equal(t, 1.5, Score(Sharpe, s))
	assert.Equal(t, 2.0, Score(Sortino, s))
	assert.Zero(t, Score(AnnualizedReturn, s))
	assert.InDelta(t, 0.6+4+11+0.36, Score(Composite, s), 1e-9)

	m, err := ParseMetric(" Composite ")
	require.NoError(t, err)
	assert.Equal(t, Composite, m)
	_, err = ParseMetric("alpha")
	assert.Error(t, err)
}
