package backtest

import (
	"context"

	"github.com/rustyeddy/swingtrader/config"
	"github.com/rustyeddy/swingtrader/market"
)

// Signal is an entry decision returned by an Evaluator.
type Signal struct {
	Direction market.Direction `json:"direction"`
	// EntryPrice defaults to the close of the last candle in the view.
	EntryPrice float64 `json:"entry_price,omitempty"`
	StopLoss   float64 `json:"stop_loss,omitempty"`
	TakeProfit float64 `json:"take_profit,omitempty"`
	// Quantity <= 0 lets the configured sizing method decide.
	Quantity float64 `json:"quantity,omitempty"`
	// Score ranks long-term rebalance candidates, higher first.
	Score float64 `json:"score,omitempty"`
}

// Evaluator generates entry signals. The view never contains candles after
// the simulated date. A nil signal means no entry. Evaluate must be safe for
// concurrent use when one evaluator is shared by parallel runs.
type Evaluator interface {
	Evaluate(instrument string, view market.Candles) (*Signal, error)
}

// Configurable is implemented by evaluators that accept strategy overrides.
type Configurable interface {
	Evaluator
	WithOverrides(overrides map[string]float64) (Evaluator, error)
}

// Named evaluators are journaled under their name.
type Named interface {
	Name() string
}

// Runner is anything that can execute one backtest for a config. Walk
// forward analysis and the optimizer are written against it.
type Runner interface {
	Run(ctx context.Context, cfg config.Config) (*Result, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, cfg config.Config) (*Result, error)

func (f RunnerFunc) Run(ctx context.Context, cfg config.Config) (*Result, error) {
	return f(ctx, cfg)
}
