package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/swingtrader/market"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	StopLoss      ExitReason = "stop_loss"
	TrailingStop  ExitReason = "trailing_stop"
	TakeProfit    ExitReason = "take_profit"
	EndOfBacktest ExitReason = "end_of_backtest"
	// Rebalance closes a long-term holding whose entry signal has lapsed.
	Rebalance ExitReason = "rebalance"
)

// Valid reports whether r is a known exit reason.
func (r ExitReason) Valid() bool {
	switch r {
	case StopLoss, TrailingStop, TakeProfit, EndOfBacktest, Rebalance:
		return true
	}
	return false
}

// Exit is a triggered exit condition.
type Exit struct {
	Price  float64
	Reason ExitReason
}

// Position is a single simulated trade. It is created by
// Portfolio.OpenPosition and is terminal once closed.
type Position struct {
	ID         string           `json:"id"`
	Instrument string           `json:"instrument"`
	Direction  market.Direction `json:"direction"`

	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"` // slippage adjusted
	Quantity   float64   `json:"quantity"`

	StopLoss    float64 `json:"stop_loss"`   // 0 means none
	TakeProfit  float64 `json:"take_profit"` // 0 means none
	InitialStop float64 `json:"initial_stop"`

	TrailingStopPct    float64 `json:"trailing_stop_pct,omitempty"`
	TrailingStopAmount float64 `json:"trailing_stop_amount,omitempty"`
	HighestPrice       float64 `json:"highest_price"`
	LowestPrice        float64 `json:"lowest_price"`

	EntryCommission float64 `json:"entry_commission"`
	ExitCommission  float64 `json:"exit_commission"`

	ExitDate   time.Time  `json:"exit_date,omitzero"`
	ExitPrice  float64    `json:"exit_price,omitempty"`
	ExitReason ExitReason `json:"exit_reason,omitempty"`
}

// IsOpen reports whether the position has not been closed yet.
func (p *Position) IsOpen() bool {
	return p.ExitReason == ""
}

func (p *Position) hasTrailingStop() bool {
	return p.TrailingStopPct > 0 || p.TrailingStopAmount > 0
}

// CheckExit updates the trailing stop for price, then tests the stop loss
// and take profit. The stop is tested first. Exits are evaluated on close
// prices only, so the observation date does not affect the outcome.
func (p *Position) CheckExit(price float64, _ time.Time) (Exit, bool) {
	if !p.IsOpen() {
		return Exit{}, false
	}

	if p.hasTrailingStop() {
		p.updateTrailingStop(price)
	}

	if p.stopHit(price) {
		reason := StopLoss
		if p.StopLoss != p.InitialStop {
			reason = TrailingStop
		}
		return Exit{Price: price, Reason: reason}, true
	}
	if p.takeHit(price) {
		return Exit{Price: price, Reason: TakeProfit}, true
	}
	return Exit{}, false
}

func (p *Position) stopHit(price float64) bool {
	if p.StopLoss <= 0 {
		return false
	}
	if p.Direction == market.Short {
		return price >= p.StopLoss
	}
	return price <= p.StopLoss
}

func (p *Position) takeHit(price float64) bool {
	if p.TakeProfit <= 0 {
		return false
	}
	if p.Direction == market.Short {
		return price <= p.TakeProfit
	}
	return price >= p.TakeProfit
}

// updateTrailingStop ratchets the stop toward price. A long stop only ever
// rises and a short stop only ever falls.
func (p *Position) updateTrailingStop(price float64) {
	switch p.Direction {
	case market.Long:
		p.HighestPrice = math.Max(p.HighestPrice, price)
		candidate := p.HighestPrice - p.TrailingStopAmount
		if p.TrailingStopPct > 0 {
			candidate = p.HighestPrice * (1 - p.TrailingStopPct/100)
		}
		p.StopLoss = math.Max(candidate, p.StopLoss)

	case market.Short:
		if p.LowestPrice == 0 || price < p.LowestPrice {
			p.LowestPrice = price
		}
		candidate := p.LowestPrice + p.TrailingStopAmount
		if p.TrailingStopPct > 0 {
			candidate = p.LowestPrice * (1 + p.TrailingStopPct/100)
		}
		if p.StopLoss <= 0 || candidate < p.StopLoss {
			p.StopLoss = candidate
		}
	}
}

// PnL is the gross profit or loss if the position were closed at price.
func (p *Position) PnL(price float64) float64 {
	if p.Direction == market.Short {
		return (p.EntryPrice - price) * p.Quantity
	}
	return (price - p.EntryPrice) * p.Quantity
}

// RealizedPnL is the gross P&L at the exit price, or 0 while open.
func (p *Position) RealizedPnL() float64 {
	if p.IsOpen() {
		return 0
	}
	return p.PnL(p.ExitPrice)
}

// NetPnL is RealizedPnL less entry and exit commissions.
func (p *Position) NetPnL() float64 {
	return p.RealizedPnL() - p.EntryCommission - p.ExitCommission
}

// PnLPct is PnL(price) as a percentage of the entry notional.
func (p *Position) PnLPct(price float64) float64 {
	notional := p.Notional()
	if notional == 0 {
		return 0
	}
	return p.PnL(price) / notional * 100
}

// RealizedPnLPct is PnLPct at the exit price, or 0 while open.
func (p *Position) RealizedPnLPct() float64 {
	if p.IsOpen() {
		return 0
	}
	return p.PnLPct(p.ExitPrice)
}

// Notional is the slippage adjusted entry value.
func (p *Position) Notional() float64 {
	return p.EntryPrice * p.Quantity
}

// HoldingDays is the number of calendar days held. Closed positions count
// to their exit date; open positions count to asOf.
func (p *Position) HoldingDays(asOf time.Time) int {
	if !p.IsOpen() {
		asOf = p.ExitDate
	}
	return market.DaysBetween(p.EntryDate, asOf)
}

func (p *Position) String() string {
	state := "open"
	if !p.IsOpen() {
		state = string(p.ExitReason)
	}
	return fmt.Sprintf("%s %s %.0f @ %.2f (%s)", p.Instrument, p.Direction, p.Quantity, p.EntryPrice, state)
}
