package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/swingtrader/backtest"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/thrasher-corp/gct-ta/indicators"
)

// TrendFollowerName is the journaled name of TrendFollower.
const TrendFollowerName = "trend_follower"

const (
	fastPeriodKey = "fast_period"
	slowPeriodKey = "slow_period"
	atrPeriodKey  = "atr_period"
	stopATRKey    = "stop_atr"
	targetATRKey  = "target_atr"
	rsiPeriodKey  = "rsi_period"
	rsiMaxKey     = "rsi_max"
	allowShortKey = "allow_short"
)

// TrendFollower enters with the trend when the fast SMA is above the slow SMA,
// the close is above the fast SMA and RSI is not overbought. Stops and
// targets are ATR multiples from the close.
type TrendFollower struct {
	FastPeriod int     `json:"fast_period" yaml:"fast_period"`
	SlowPeriod int     `json:"slow_period" yaml:"slow_period"`
	ATRPeriod  int     `json:"atr_period" yaml:"atr_period"`
	StopATR    float64 `json:"stop_atr" yaml:"stop_atr"`
	TargetATR  float64 `json:"target_atr" yaml:"target_atr"`
	RSIPeriod  int     `json:"rsi_period" yaml:"rsi_period"`
	RSIMax     float64 `json:"rsi_max" yaml:"rsi_max"`
	// AllowShort mirrors the rules for downtrends.
	AllowShort bool `json:"allow_short" yaml:"allow_short"`
}

// NewTrendFollower returns the 20/50 SMA follower with 2/4 ATR exits.
func NewTrendFollower() *TrendFollower {
	return &TrendFollower{
		FastPeriod: 20,
		SlowPeriod: 50,
		ATRPeriod:  14,
		StopATR:    2,
		TargetATR:  4,
		RSIPeriod:  14,
		RSIMax:     70,
	}
}

func (s *TrendFollower) Name() string { return TrendFollowerName }

func (s *TrendFollower) String() string {
	return fmt.Sprintf("SMA(%d,%d) ATR%d x%.1f/%.1f RSI%d<%.0f", s.FastPeriod, s.SlowPeriod, s.ATRPeriod, s.StopATR, s.TargetATR, s.RSIPeriod, s.RSIMax)
}

// Validate checks the parameter set.
func (s *TrendFollower) Validate() error {
	if s.FastPeriod <= 0 || s.SlowPeriod <= 0 || s.ATRPeriod <= 0 || s.RSIPeriod <= 0 {
		return fmt.Errorf("%s: periods must be positive", TrendFollowerName)
	}
	if s.FastPeriod >= s.SlowPeriod {
		return fmt.Errorf("%s: fast_period %d must be below slow_period %d", TrendFollowerName, s.FastPeriod, s.SlowPeriod)
	}
	if s.StopATR <= 0 || s.TargetATR <= 0 {
		return fmt.Errorf("%s: stop_atr and target_atr must be positive", TrendFollowerName)
	}
	if s.RSIMax <= 50 || s.RSIMax > 100 {
		return fmt.Errorf("%s: rsi_max %.1f must be in (50, 100]", TrendFollowerName, s.RSIMax)
	}
	return nil
}

// WithOverrides returns a copy with the named parameters replaced.
func (s *TrendFollower) WithOverrides(overrides map[string]float64) (backtest.Evaluator, error) {
	out := *s
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := overrides[k]
		switch strings.ToLower(k) {
		case fastPeriodKey:
			out.FastPeriod = int(v)
		case slowPeriodKey:
			out.SlowPeriod = int(v)
		case atrPeriodKey:
			out.ATRPeriod = int(v)
		case stopATRKey:
			out.StopATR = v
		case targetATRKey:
			out.TargetATR = v
		case rsiPeriodKey:
			out.RSIPeriod = int(v)
		case rsiMaxKey:
			out.RSIMax = v
		case allowShortKey:
			out.AllowShort = v != 0
		default:
			return nil, fmt.Errorf("%s: unknown parameter %q", TrendFollowerName, k)
		}
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// warmup is the shortest view the indicators can be computed on.
func (s *TrendFollower) warmup() int {
	return max(s.SlowPeriod, s.ATRPeriod+1, s.RSIPeriod+1)
}

// Evaluate implements backtest.Evaluator. Only the tail of view that the
// indicators need is used.
func (s *TrendFollower) Evaluate(_ string, view market.Candles) (*backtest.Signal, error) {
	need := s.warmup()
	if len(view) < need {
		return nil, nil
	}
	// RSI and ATR are smoothed, give them room to settle.
	tail := view[max(0, len(view)-3*need):]

	closes := tail.Closes()
	highs := make([]float64, len(tail))
	lows := make([]float64, len(tail))
	for i, c := range tail {
		highs[i] = c.High
		lows[i] = c.Low
	}

	fast, ok1 := last(indicators.SMA(closes, s.FastPeriod))
	slow, ok2 := last(indicators.SMA(closes, s.SlowPeriod))
	atr, ok3 := last(indicators.ATR(highs, lows, closes, s.ATRPeriod))
	rsi, ok4 := last(indicators.RSI(closes, s.RSIPeriod))
	if !ok1 || !ok2 || !ok3 || !ok4 || slow <= 0 || atr <= 0 {
		return nil, nil
	}

	px := closes[len(closes)-1]
	score := (fast - slow) / slow * 100

	switch {
	case fast > slow && px > fast && rsi < s.RSIMax:
		return &backtest.Signal{
			Direction:  market.Long,
			EntryPrice: px,
			StopLoss:   px - s.StopATR*atr,
			TakeProfit: px + s.TargetATR*atr,
			Score:      score,
		}, nil

	case s.AllowShort && fast < slow && px < fast && rsi > 100-s.RSIMax:
		stop := px + s.StopATR*atr
		take := px - s.TargetATR*atr
		if take <= 0 {
			return nil, nil
		}
		return &backtest.Signal{
			Direction:  market.Short,
			EntryPrice: px,
			StopLoss:   stop,
			TakeProfit: take,
			Score:      -score,
		}, nil
	}
	return nil, nil
}

func last(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	return xs[len(xs)-1], true
}
