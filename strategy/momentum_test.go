package strategy

import (
	"testing"

	"github.com/rustyeddy/swingtrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMomentum_Evaluate(t *testing.T) {
	t.Parallel()

	m := NewMomentum()

	view := zigzag(150, 100, 0.5)
	sig, err := m.Evaluate("MSFT", view)
	require.NoError(t, err)
	require.NotNil(t, sig)

	px := view[len(view)-1].Close
	base := view[len(view)-1-m.Lookback].Close
	assert.Equal(t, market.Long, sig.Direction)
	assert.InDelta(t, (px-base)/base*100, sig.Score, 1e-9)
	assert.InDelta(t, px*0.9, sig.StopLoss, 1e-9)

	sig, err = m.Evaluate("MSFT", zigzag(150, 200, -0.5))
	require.NoError(t, err)
	assert.Nil(t, sig)

	sig, err = m.Evaluate("MSFT", zigzag(40, 100, 0.5))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestMomentum_WithOverrides(t *testing.T) {
	t.Parallel()

	e, err := NewMomentum().WithOverrides(map[string]float64{"lookback": 20, "stop_pct": 0})
	require.NoError(t, err)
	m := e.(*Momentum)
	assert.Equal(t, 20, m.Lookback)

	sig, err := m.Evaluate("MSFT", zigzag(150, 100, 0.5))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Zero(t, sig.StopLoss)

	_, err = NewMomentum().WithOverrides(map[string]float64{"stop_pct": 100})
	assert.Error(t, err)
	_, err = NewMomentum().WithOverrides(map[string]float64{"rsi_max": 60})
	assert.Error(t, err)
}
