package sim

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/swingtrader/config"
	"github.com/rustyeddy/swingtrader/internal/id"
	"github.com/rustyeddy/swingtrader/market"
)

var (
	// ErrInsufficientCapital is returned when notional plus commission
	// exceeds current capital. It is an expected outcome, not a fault.
	ErrInsufficientCapital = errors.New("insufficient capital")
	ErrPositionOpen        = errors.New("position already open")
	ErrNoPosition          = errors.New("no open position")
	ErrInvalidOrder        = errors.New("invalid order")
)

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Date    time.Time `json:"date"`
	Equity  float64   `json:"equity"`
	Capital float64   `json:"capital"`
}

// OpenRequest describes a position to open at a raw (pre-slippage) price.
type OpenRequest struct {
	Instrument string
	Date       time.Time
	Price      float64
	Quantity   float64
	Direction  market.Direction
	StopLoss   float64
	TakeProfit float64

	TrailingStopPct    float64
	TrailingStopAmount float64
}

// Portfolio is the capital ledger of one simulation run. It owns its open
// positions and is not safe for concurrent use.
type Portfolio struct {
	cfg config.Config

	initialCapital float64
	currentCapital float64

	positions map[string]*Position
	closed    []Position
	equity    []EquityPoint
	marks     map[string]float64

	totalCommission float64
	totalSlippage   float64
}

// NewPortfolio starts a ledger at cfg.InitialCapital using cfg's cost model.
func NewPortfolio(cfg config.Config) *Portfolio {
	return &Portfolio{
		cfg:            cfg,
		initialCapital: cfg.InitialCapital,
		currentCapital: cfg.InitialCapital,
		positions:      make(map[string]*Position),
		marks:          make(map[string]float64),
	}
}

// OpenPosition fills req with entry slippage and commission and debits the
// cost. It changes nothing when it returns an error.
func (p *Portfolio) OpenPosition(req OpenRequest) (*Position, error) {
	if req.Quantity <= 0 || req.Price <= 0 {
		return nil, fmt.Errorf("open %s: %w: price %.4f quantity %.4f", req.Instrument, ErrInvalidOrder, req.Price, req.Quantity)
	}
	if req.Direction != market.Long && req.Direction != market.Short {
		return nil, fmt.Errorf("open %s: %w: direction %s", req.Instrument, ErrInvalidOrder, req.Direction)
	}
	if _, ok := p.positions[req.Instrument]; ok {
		return nil, fmt.Errorf("open %s: %w", req.Instrument, ErrPositionOpen)
	}

	fill := p.cfg.ApplySlippage(req.Price, req.Direction.EntrySide())
	notional := fill * req.Quantity
	commission := p.cfg.Commission(notional)

	if notional+commission > p.currentCapital {
		return nil, fmt.Errorf("open %s: %w: need %.2f have %.2f", req.Instrument, ErrInsufficientCapital, notional+commission, p.currentCapital)
	}

	pos := &Position{
		ID:                 id.New(),
		Instrument:         req.Instrument,
		Direction:          req.Direction,
		EntryDate:          market.DateOf(req.Date),
		EntryPrice:         fill,
		Quantity:           req.Quantity,
		StopLoss:           req.StopLoss,
		TakeProfit:         req.TakeProfit,
		InitialStop:        req.StopLoss,
		TrailingStopPct:    req.TrailingStopPct,
		TrailingStopAmount: req.TrailingStopAmount,
		HighestPrice:       fill,
		LowestPrice:        fill,
		EntryCommission:    commission,
	}

	p.currentCapital -= notional + commission
	p.totalCommission += commission
	p.totalSlippage += math.Abs(fill-req.Price) * req.Quantity
	p.positions[req.Instrument] = pos

	return pos, nil
}

// ClosePosition exits the open position on instrument at a raw price. Exit
// slippage uses the closing side (selling a long, covering a short).
func (p *Portfolio) ClosePosition(instrument string, date time.Time, price float64, reason ExitReason) (Position, error) {
	pos, ok := p.positions[instrument]
	if !ok {
		return Position{}, fmt.Errorf("close %s: %w", instrument, ErrNoPosition)
	}

	fill := p.cfg.ApplySlippage(price, pos.Direction.ExitSide())
	pnl := pos.PnL(fill)
	commission := p.cfg.Commission(fill * pos.Quantity)

	pos.ExitDate = market.DateOf(date)
	pos.ExitPrice = fill
	pos.ExitReason = reason
	pos.ExitCommission = commission

	p.currentCapital += pos.Notional() + pnl - commission
	p.totalCommission += commission
	p.totalSlippage += math.Abs(fill-price) * pos.Quantity

	delete(p.positions, instrument)
	delete(p.marks, instrument)

	closed := *pos
	p.closed = append(p.closed, closed)
	p.equity = append(p.equity, EquityPoint{
		Date:    market.DateOf(date),
		Equity:  p.CurrentEquity(p.marks),
		Capital: p.currentCapital,
	})

	return closed, nil
}

// Mark records the latest prices of open positions. Equity points appended
// by ClosePosition value the remaining positions at these marks, so a driver
// marks a day's closes before closing anything on that day.
func (p *Portfolio) Mark(prices map[string]float64) {
	for inst, px := range prices {
		if _, ok := p.positions[inst]; ok {
			p.marks[inst] = px
		}
	}
}

// UpdateEquityCurve marks open positions to prices and appends the equity
// for date. Instruments missing from prices are valued at their last mark,
// or at entry when never marked.
func (p *Portfolio) UpdateEquityCurve(date time.Time, prices map[string]float64) EquityPoint {
	p.Mark(prices)

	pt := EquityPoint{
		Date:    market.DateOf(date),
		Equity:  p.CurrentEquity(p.marks),
		Capital: p.currentCapital,
	}
	p.equity = append(p.equity, pt)
	return pt
}

// CurrentEquity is capital plus the mark-to-market value of open positions.
func (p *Portfolio) CurrentEquity(prices map[string]float64) float64 {
	equity := p.currentCapital
	for inst, pos := range p.positions {
		px, ok := prices[inst]
		if !ok {
			px = pos.EntryPrice
		}
		equity += pos.Notional() + pos.PnL(px)
	}
	return equity
}

// Position returns the open position on instrument.
func (p *Portfolio) Position(instrument string) (*Position, bool) {
	pos, ok := p.positions[instrument]
	return pos, ok
}

// HasPosition reports whether instrument has an open position.
func (p *Portfolio) HasPosition(instrument string) bool {
	_, ok := p.positions[instrument]
	return ok
}

// OpenPositions returns the open positions ordered by instrument.
func (p *Portfolio) OpenPositions() []*Position {
	out := make([]*Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Instrument < out[j].Instrument
	})
	return out
}

// OpenCount is the number of open positions.
func (p *Portfolio) OpenCount() int { return len(p.positions) }

// ClosedPositions returns a copy of the closed positions in close order.
func (p *Portfolio) ClosedPositions() []Position {
	return append([]Position(nil), p.closed...)
}

// EquityCurve returns a copy of the equity curve.
func (p *Portfolio) EquityCurve() []EquityPoint {
	return append([]EquityPoint(nil), p.equity...)
}

func (p *Portfolio) InitialCapital() float64  { return p.initialCapital }
func (p *Portfolio) CurrentCapital() float64  { return p.currentCapital }
func (p *Portfolio) TotalCommission() float64 { return p.totalCommission }
func (p *Portfolio) TotalSlippage() float64   { return p.totalSlippage }
