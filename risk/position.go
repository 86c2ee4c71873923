package risk

import (
	"math"

	"github.com/rustyeddy/swingtrader/config"
)

// Inputs describe one sizing decision.
type Inputs struct {
	Config  config.Config
	Capital float64 // capital available for new positions
	Entry   float64
	Stop    float64
	Slots   int // free position slots, used by equal_weight
}

// Result is the outcome of Calculate.
type Result struct {
	Quantity   float64
	RiskAmount float64
	Notional   float64
}

// Calculate sizes a position in whole shares using the configured method.
// It returns a zero quantity when the inputs are degenerate.
func Calculate(in Inputs) Result {
	if in.Entry <= 0 {
		return Result{}
	}

	var qty float64
	riskAmt := in.Config.RiskAmountPerTrade()

	switch in.Config.PositionSizing {
	case config.RiskBased:
		perShare := abs(in.Entry - in.Stop)
		if perShare == 0 || in.Stop <= 0 {
			return Result{}
		}
		qty = riskAmt / perShare

	case config.Fixed:
		value := in.Config.FixedPositionValue
		if value <= 0 {
			value = in.Config.InitialCapital * 0.10
		}
		qty = value / in.Entry

	case config.EqualWeight:
		if in.Slots <= 0 || in.Capital <= 0 {
			return Result{}
		}
		qty = in.Capital / float64(in.Slots) / in.Entry
	}

	qty = math.Floor(qty)
	if qty <= 0 {
		return Result{}
	}

	return Result{
		Quantity:   qty,
		RiskAmount: PlannedRisk(qty, in.Entry, in.Stop),
		Notional:   qty * in.Entry,
	}
}
