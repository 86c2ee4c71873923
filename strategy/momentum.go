package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/swingtrader/backtest"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/thrasher-corp/gct-ta/indicators"
)

// MomentumName is the journaled name of Momentum.
const MomentumName = "momentum"

const (
	lookbackKey  = "lookback"
	emaPeriodKey = "ema_period"
	minReturnKey = "min_return"
	stopPctKey   = "stop_pct"
)

// Momentum ranks instruments by their trailing return and holds those
// trading above their EMA. It is meant for the long-term variant where the
// Score orders rebalance candidates.
type Momentum struct {
	Lookback  int `json:"lookback" yaml:"lookback"`
	EMAPeriod int `json:"ema_period" yaml:"ema_period"`
	// MinReturn is the minimum trailing return in percent.
	MinReturn float64 `json:"min_return" yaml:"min_return"`
	// StopPct places a protective stop below entry, 0 disables it.
	StopPct float64 `json:"stop_pct" yaml:"stop_pct"`
}

// NewMomentum returns a 60 bar momentum ranker over a 50 bar EMA filter.
func NewMomentum() *Momentum {
	return &Momentum{
		Lookback:  60,
		EMAPeriod: 50,
		MinReturn: 0,
		StopPct:   10,
	}
}

func (m *Momentum) Name() string { return MomentumName }

func (m *Momentum) Validate() error {
	if m.Lookback <= 0 || m.EMAPeriod <= 0 {
		return fmt.Errorf("%s: periods must be positive", MomentumName)
	}
	if m.StopPct < 0 || m.StopPct >= 100 {
		return fmt.Errorf("%s: stop_pct %.1f must be in [0, 100)", MomentumName, m.StopPct)
	}
	return nil
}

func (m *Momentum) WithOverrides(overrides map[string]float64) (backtest.Evaluator, error) {
	out := *m
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := overrides[k]
		switch strings.ToLower(k) {
		case lookbackKey:
			out.Lookback = int(v)
		case emaPeriodKey:
			out.EMAPeriod = int(v)
		case minReturnKey:
			out.MinReturn = v
		case stopPctKey:
			out.StopPct = v
		default:
			return nil, fmt.Errorf("%s: unknown parameter %q", MomentumName, k)
		}
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *Momentum) Evaluate(_ string, view market.Candles) (*backtest.Signal, error) {
	need := max(m.Lookback+1, m.EMAPeriod)
	if len(view) < need {
		return nil, nil
	}
	closes := view[max(0, len(view)-3*need):].Closes()

	ema, ok := last(indicators.EMA(closes, m.EMAPeriod))
	if !ok {
		return nil, nil
	}
	px := closes[len(closes)-1]
	base := closes[len(closes)-1-m.Lookback]
	if base <= 0 {
		return nil, nil
	}
	ret := (px - base) / base * 100
	if px <= ema || ret <= m.MinReturn {
		return nil, nil
	}

	sig := &backtest.Signal{
		Direction:  market.Long,
		EntryPrice: px,
		Score:      ret,
	}
	if m.StopPct > 0 {
		sig.StopLoss = px * (1 - m.StopPct/100)
	}
	return sig, nil
}
