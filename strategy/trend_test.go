package strategy

import (
	"testing"
	"time"

	"github.com/rustyeddy/swingtrader/backtest"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zigzag is a trending close series that alternates one point either side
// of the trend line so RSI settles between its extremes.
func zigzag(n int, start, slope float64) market.Candles {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make(market.Candles, n)
	for i := range out {
		px := start + slope*float64(i) - 1
		if i%2 == 0 {
			px += 2
		}
		out[i] = market.Candle{
			Time:   t0.AddDate(0, 0, i),
			Open:   px,
			High:   px + 0.5,
			Low:    px - 0.5,
			Close:  px,
			Volume: 1000,
		}
	}
	return out
}

func TestTrendFollower_LongInUptrend(t *testing.T) {
	t.Parallel()

	s := NewTrendFollower()
	view := zigzag(120, 100, 0.5)

	sig, err := s.Evaluate("AAPL", view)
	require.NoError(t, err)
	require.NotNil(t, sig)

	px := view[len(view)-1].Close
	assert.Equal(t, market.Long, sig.Direction)
	assert.Equal(t, px, sig.EntryPrice)
	assert.Less(t, sig.StopLoss, px)
	assert.Greater(t, sig.TakeProfit, px)
	assert.InDelta(t, 2.0, (sig.TakeProfit-px)/(px-sig.StopLoss), 1e-9, "target is twice the stop distance")
	assert.Greater(t, sig.Score, 0.0)
	assert.Zero(t, sig.Quantity)
}

func TestTrendFollower_RSIFilter(t *testing.T) {
	t.Parallel()

	e, err := NewTrendFollower().WithOverrides(map[string]float64{rsiMaxKey: 55})
	require.NoError(t, err)

	sig, err := e.Evaluate("AAPL", zigzag(120, 100, 0.5))
	require.NoError(t, err)
	assert.Nil(t, sig, "RSI near 62 is above the threshold")
}

func TestTrendFollower_Downtrend(t *testing.T) {
	t.Parallel()

	view := zigzag(120, 200, -0.5)

	sig, err := NewTrendFollower().Evaluate("AAPL", view)
	require.NoError(t, err)
	assert.Nil(t, sig, "longs only by default")

	s := NewTrendFollower()
	s.AllowShort = true
	sig, err = s.Evaluate("AAPL", view)
	require.NoError(t, err)
	require.NotNil(t, sig)

	px := view[len(view)-1].Close
	assert.Equal(t, market.Short, sig.Direction)
	assert.Greater(t, sig.StopLoss, px)
	assert.Less(t, sig.TakeProfit, px)
	assert.Greater(t, sig.Score, 0.0)
}

func TestTrendFollower_ShortHistory(t *testing.T) {
	t.Parallel()

	sig, err := NewTrendFollower().Evaluate("AAPL", zigzag(30, 100, 0.5))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestTrendFollower_WithOverrides(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		overrides map[string]float64
		wantErr   string
		check     func(t *testing.T, s *TrendFollower)
	}{
		{
			name:      "periods",
			overrides: map[string]float64{"fast_period": 10, "slow_period": 30, "allow_short": 1},
			check: func(t *testing.T, s *TrendFollower) {
				assert.Equal(t, 10, s.FastPeriod)
				assert.Equal(t, 30, s.SlowPeriod)
				assert.True(t, s.AllowShort)
			},
		},
		{
			name:      "multipliers",
			overrides: map[string]float64{"stop_atr": 1.5, "target_atr": 3},
			check: func(t *testing.T, s *TrendFollower) {
				assert.Equal(t, 1.5, s.StopATR)
				assert.Equal(t, 3.0, s.TargetATR)
			},
		},
		{name: "unknown key", overrides: map[string]float64{"lookback": 5}, wantErr: "unknown parameter"},
		{name: "fast not below slow", overrides: map[string]float64{"fast_period": 60}, wantErr: "must be below"},
		{name: "rsi max", overrides: map[string]float64{"rsi_max": 40}, wantErr: "rsi_max"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			base := NewTrendFollower()
			e, err := base.WithOverrides(tt.overrides)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			s, ok := e.(*TrendFollower)
			require.True(t, ok)
			tt.check(t, s)
			assert.Equal(t, NewTrendFollower(), base, "receiver is not modified")
		})
	}
}

func TestByName(t *testing.T) {
	t.Parallel()

	e, err := ByName(" Trend_Follower ")
	require.NoError(t, err)
	assert.Equal(t, TrendFollowerName, e.(backtest.Named).Name())

	_, err = ByName("martingale")
	require.Error(t, err)
	assert.Equal(t, []string{MomentumName, TrendFollowerName}, Names())
}
