// Package backtest replays historical candles day by day through an
// Evaluator and a simulated Portfolio.
package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/swingtrader/config"
	"github.com/rustyeddy/swingtrader/internal/id"
	"github.com/rustyeddy/swingtrader/journal"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/rustyeddy/swingtrader/risk"
	"github.com/rustyeddy/swingtrader/sim"
	"github.com/rustyeddy/swingtrader/stats"
)

// ErrStrategyOverrides wraps an evaluator's rejection of the configured
// strategy overrides.
var ErrStrategyOverrides = errors.New("invalid strategy overrides")

// Option configures an Engine.
type Option func(*Engine)

// WithInstruments filters the universe through a metadata lookup. Unknown
// or untradable instruments are skipped.
func WithInstruments(l market.InstrumentLookup) Option {
	return func(e *Engine) { e.instruments = l }
}

// WithJournal records every successful run.
func WithJournal(j journal.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine runs backtests. It holds no per-run state and may be shared by
// concurrent runs as long as its feed, evaluator and journal allow it.
type Engine struct {
	feed        market.Feed
	eval        Evaluator
	instruments market.InstrumentLookup
	journal     journal.Journal
	log         zerolog.Logger
}

func New(feed market.Feed, eval Evaluator, opts ...Option) *Engine {
	e := &Engine{
		feed: feed,
		eval: eval,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run is the state of a single backtest.
type run struct {
	cfg      config.Config
	eval     Evaluator
	log      zerolog.Logger
	pf       *sim.Portfolio
	candles  map[string]market.Candles
	universe []string
	minBars  int
}

// Run executes one backtest over cfg.DateRange. Configuration errors and
// infrastructure faults are returned as errors. A universe without enough
// history yields a Result with Success false.
func (e *Engine) Run(ctx context.Context, cfg config.Config) (*Result, error) {
	if e.feed == nil {
		return nil, fmt.Errorf("backtest: feed is required")
	}
	if e.eval == nil {
		return nil, fmt.Errorf("backtest: evaluator is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	eval, err := e.evaluatorFor(cfg)
	if err != nil {
		return nil, err
	}

	runID := id.New()
	log := e.log.With().Str("run", runID).Str("variant", string(cfg.Variant)).Logger()

	r := &run{
		cfg:     cfg,
		eval:    eval,
		log:     log,
		pf:      sim.NewPortfolio(cfg),
		candles: make(map[string]market.Candles, len(cfg.Instruments)),
		minBars: cfg.EffectiveMinBars(),
	}

	skipped, err := e.load(ctx, r)
	if err != nil {
		return nil, err
	}

	days := r.marketDays()
	if len(r.universe) == 0 || len(days) == 0 {
		log.Info().Strs("skipped", skipped).Msg("insufficient data")
		res := failed(cfg, InsufficientData)
		res.Skipped = skipped
		return res, nil
	}

	log.Info().
		Time("from", cfg.DateRange.From).
		Time("to", cfg.DateRange.To).
		Int("instruments", len(r.universe)).
		Int("days", len(days)).
		Msg("backtest start")

	switch cfg.Variant {
	case config.LongTerm:
		err = r.runLongTerm(ctx, days)
	default:
		err = r.runSwing(ctx, days)
	}
	if err != nil {
		return nil, err
	}

	r.closeAll(days[len(days)-1])

	res := &Result{
		Success:     true,
		RunID:       runID,
		Config:      cfg,
		Strategy:    strategyName(eval),
		TradingDays: len(days),
		Skipped:     skipped,
		Positions:   r.pf.ClosedPositions(),
		EquityCurve: r.pf.EquityCurve(),
		Portfolio: PortfolioSummary{
			InitialCapital:  r.pf.InitialCapital(),
			FinalCapital:    r.pf.CurrentCapital(),
			TotalCommission: r.pf.TotalCommission(),
			TotalSlippage:   r.pf.TotalSlippage(),
		},
	}
	res.Metrics = stats.Analyze(stats.Input{
		Positions:      res.Positions,
		EquityCurve:    res.EquityCurve,
		InitialCapital: res.Portfolio.InitialCapital,
		FinalCapital:   res.Portfolio.FinalCapital,
		TradingDays:    len(days),
	})

	log.Info().
		Int("trades", res.Metrics.TotalTrades).
		Float64("return_pct", stats.Round(res.Metrics.TotalReturn, 2)).
		Float64("final_capital", stats.Round(res.Portfolio.FinalCapital, 2)).
		Msg("backtest finished")

	if e.journal != nil {
		if err := e.record(res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (e *Engine) evaluatorFor(cfg config.Config) (Evaluator, error) {
	if len(cfg.StrategyOverrides) == 0 {
		return e.eval, nil
	}
	c, ok := e.eval.(Configurable)
	if !ok {
		e.log.Debug().Msg("evaluator ignores strategy overrides")
		return e.eval, nil
	}
	eval, err := c.WithOverrides(cfg.StrategyOverrides)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w: %w", ErrStrategyOverrides, err)
	}
	return eval, nil
}

// load fetches history for every instrument and drops those that can never
// reach the minimum bar count.
func (e *Engine) load(ctx context.Context, r *run) ([]string, error) {
	var skipped []string
	from, to := r.cfg.LoadFrom(), r.cfg.DateRange.To

	for _, inst := range r.cfg.Instruments {
		if _, dup := r.candles[inst]; dup {
			continue
		}
		if e.instruments != nil {
			meta, ok := e.instruments.Lookup(inst)
			if !ok || !meta.Tradable {
				r.log.Debug().Str("instrument", inst).Msg("skipping untradable instrument")
				skipped = append(skipped, inst)
				continue
			}
		}

		raw, err := e.feed.Load(ctx, inst, r.cfg.Timeframe, from, to)
		if err != nil {
			return nil, fmt.Errorf("backtest: load %s: %w", inst, err)
		}
		cs := market.Normalize(raw).Between(from, to)
		if len(cs) < r.minBars {
			r.log.Debug().Str("instrument", inst).Int("bars", len(cs)).Int("min_bars", r.minBars).Msg("skipping instrument with insufficient data")
			skipped = append(skipped, inst)
			continue
		}
		r.candles[inst] = cs
		r.universe = append(r.universe, inst)
	}
	return skipped, nil
}

// marketDays are the dates in range on which at least one instrument has a candle.
func (r *run) marketDays() []time.Time {
	from, to := market.DateOf(r.cfg.DateRange.From), market.DateOf(r.cfg.DateRange.To)
	seen := make(map[time.Time]struct{})
	for _, cs := range r.candles {
		for _, c := range cs.Between(from, to) {
			seen[c.Date()] = struct{}{}
		}
	}
	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func (r *run) runSwing(ctx context.Context, days []time.Time) error {
	for _, date := range days {
		if err := ctx.Err(); err != nil {
			return err
		}

		for _, inst := range r.universe {
			if r.pf.HasPosition(inst) {
				continue
			}
			sig, view, err := r.signal(inst, date)
			if err != nil {
				return err
			}
			if sig == nil {
				continue
			}
			r.enter(inst, date, sig, view, len(r.universe)-r.pf.OpenCount())
		}

		r.checkExits(date)
		r.pf.UpdateEquityCurve(date, r.marks(date))
	}
	return nil
}

// checkExits marks the portfolio to the closes of date, then tests every
// open position against its close. Positions without a candle on date are
// left untouched. Stops and targets are not gated by the minimum holding
// period.
func (r *run) checkExits(date time.Time) {
	r.pf.Mark(r.marks(date))
	for _, pos := range r.pf.OpenPositions() {
		c, ok := r.candles[pos.Instrument].At(date)
		if !ok {
			continue
		}
		if exit, hit := pos.CheckExit(c.Close, date); hit {
			r.exit(pos.Instrument, date, exit.Price, exit.Reason)
		}
	}
}

func (r *run) runLongTerm(ctx context.Context, days []time.Time) error {
	var last time.Time
	for _, date := range days {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.checkExits(date)
		if rebalanceDue(r.cfg.LongTerm.Rebalance, last, date) {
			if err := r.rebalance(date); err != nil {
				return err
			}
			last = date
		}
		r.pf.UpdateEquityCurve(date, r.marks(date))
	}
	return nil
}

// rebalanceDue reports whether date opens a new rebalance period (ISO week
// or calendar month) after last. On a market calendar this is the Monday or
// the 1st, or the first trading day after it.
func rebalanceDue(cadence config.Rebalance, last, date time.Time) bool {
	if last.IsZero() {
		return true
	}
	if !date.After(last) {
		return false
	}
	if cadence == config.Weekly {
		ly, lw := last.ISOWeek()
		dy, dw := date.ISOWeek()
		return ly != dy || lw != dw
	}
	return last.Year() != date.Year() || last.Month() != date.Month()
}

// rebalance runs after the daily exit pass, so stops and targets have
// already been applied for date. Holdings past the minimum holding period
// whose signal has lapsed or flipped direction are closed with reason
// Rebalance; this is a portfolio decision, not a Position exit condition.
// Free slots are then filled from candidates ranked by score.
func (r *run) rebalance(date time.Time) error {
	lt := r.cfg.LongTerm

	for _, pos := range r.pf.OpenPositions() {
		if pos.HoldingDays(date) < lt.MinHoldingDays {
			continue
		}
		c, ok := r.candles[pos.Instrument].At(date)
		if !ok {
			continue
		}
		sig, _, err := r.signal(pos.Instrument, date)
		if err != nil {
			return err
		}
		if sig == nil || sig.Direction != pos.Direction {
			r.exit(pos.Instrument, date, c.Close, sim.Rebalance)
		}
	}

	type candidate struct {
		inst string
		sig  *Signal
		view market.Candles
	}
	var cands []candidate
	for _, inst := range r.universe {
		if r.pf.HasPosition(inst) {
			continue
		}
		sig, view, err := r.signal(inst, date)
		if err != nil {
			return err
		}
		if sig != nil {
			cands = append(cands, candidate{inst, sig, view})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].sig.Score != cands[j].sig.Score {
			return cands[i].sig.Score > cands[j].sig.Score
		}
		return cands[i].inst < cands[j].inst
	})

	for _, c := range cands {
		slots := lt.MaxPositions - r.pf.OpenCount()
		if slots <= 0 {
			break
		}
		r.enter(c.inst, date, c.sig, c.view, slots)
	}
	return nil
}

// signal evaluates inst on the view truncated to date. Stale signals, whose
// last candle is a full bar older than date, are discarded.
func (r *run) signal(inst string, date time.Time) (*Signal, market.Candles, error) {
	view := r.candles[inst].Until(date)
	if len(view) < r.minBars {
		return nil, nil, nil
	}

	sig, err := r.eval.Evaluate(inst, view)
	if err != nil {
		return nil, nil, fmt.Errorf("backtest: evaluate %s on %s: %w", inst, date.Format(time.DateOnly), err)
	}
	if sig == nil {
		return nil, nil, nil
	}

	last, _ := view.Last()
	if date.Sub(last.Date()) >= r.cfg.Timeframe.Period() {
		r.log.Debug().Str("instrument", inst).Time("date", date).Time("candle", last.Time).Msg("discarding stale signal")
		return nil, nil, nil
	}
	return sig, view, nil
}

func (r *run) enter(inst string, date time.Time, sig *Signal, view market.Candles, slots int) {
	price := sig.EntryPrice
	if price <= 0 {
		last, _ := view.Last()
		price = last.Close
	}

	qty := sig.Quantity
	if qty <= 0 {
		qty = risk.Calculate(risk.Inputs{
			Config:  r.cfg,
			Capital: r.pf.CurrentCapital(),
			Entry:   price,
			Stop:    sig.StopLoss,
			Slots:   slots,
		}).Quantity
	}

	pos, err := r.pf.OpenPosition(sim.OpenRequest{
		Instrument:         inst,
		Date:               date,
		Price:              price,
		Quantity:           qty,
		Direction:          sig.Direction,
		StopLoss:           sig.StopLoss,
		TakeProfit:         sig.TakeProfit,
		TrailingStopPct:    r.cfg.TrailingStopPct,
		TrailingStopAmount: r.cfg.TrailingStopAmount,
	})
	if err != nil {
		r.log.Debug().Err(err).Str("instrument", inst).Time("date", date).Msg("entry rejected")
		return
	}
	r.log.Debug().
		Str("instrument", inst).
		Time("date", date).
		Stringer("position", pos).
		Float64("risk", risk.PlannedRisk(pos.Quantity, pos.EntryPrice, pos.StopLoss)).
		Float64("rr", risk.RR(pos.EntryPrice, pos.StopLoss, pos.TakeProfit)).
		Msg("position opened")
}

func (r *run) exit(inst string, date time.Time, price float64, reason sim.ExitReason) {
	pos, err := r.pf.ClosePosition(inst, date, price, reason)
	if err != nil {
		r.log.Warn().Err(err).Str("instrument", inst).Msg("close failed")
		return
	}
	r.log.Debug().
		Str("instrument", inst).
		Time("date", date).
		Str("reason", string(reason)).
		Float64("pnl", pos.RealizedPnL()).
		Msg("position closed")
}

// closeAll force closes what is still open at the last close on or before
// the final market day, falling back to the entry price.
func (r *run) closeAll(last time.Time) {
	for _, pos := range r.pf.OpenPositions() {
		price := pos.EntryPrice
		if c, ok := r.candles[pos.Instrument].Until(last).Last(); ok {
			price = c.Close
		}
		r.exit(pos.Instrument, last, price, sim.EndOfBacktest)
	}
}

// marks are the latest known closes as of date.
func (r *run) marks(date time.Time) map[string]float64 {
	out := make(map[string]float64, r.pf.OpenCount())
	for _, pos := range r.pf.OpenPositions() {
		if c, ok := r.candles[pos.Instrument].Until(date).Last(); ok {
			out[pos.Instrument] = c.Close
		}
	}
	return out
}

func strategyName(eval Evaluator) string {
	if n, ok := eval.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", eval)
}

func (e *Engine) record(res *Result) error {
	cfg, err := json.Marshal(res.Config)
	if err != nil {
		return fmt.Errorf("backtest: journal config: %w", err)
	}

	m := res.Metrics
	var errs []error
	errs = append(errs, e.journal.RecordRun(journal.RunRecord{
		RunID:        res.RunID,
		Created:      time.Now().UTC(),
		Variant:      string(res.Config.Variant),
		Timeframe:    string(res.Config.Timeframe),
		Strategy:     res.Strategy,
		Instruments:  res.Config.Instruments,
		Config:       cfg,
		Start:        res.Config.DateRange.From,
		End:          res.Config.DateRange.To,
		Trades:       m.TotalTrades,
		Wins:         m.WinningTrades,
		Losses:       m.LosingTrades,
		StartBalance: res.Portfolio.InitialCapital,
		EndBalance:   res.Portfolio.FinalCapital,
		NetPL:        m.NetPnL,
		ReturnPct:    m.TotalReturn,
		WinRate:      m.WinRate,
		ProfitFactor: m.ProfitFactor,
		MaxDDPct:     m.MaxDrawdown,
		Sharpe:       m.Sharpe,
	}))

	for _, p := range res.Positions {
		errs = append(errs, e.journal.RecordTrade(journal.TradeRecord{
			RunID:      res.RunID,
			TradeID:    p.ID,
			Instrument: p.Instrument,
			Direction:  p.Direction.String(),
			Quantity:   p.Quantity,
			EntryPrice: p.EntryPrice,
			ExitPrice:  p.ExitPrice,
			OpenTime:   p.EntryDate,
			CloseTime:  p.ExitDate,
			RealizedPL: p.RealizedPnL(),
			Commission: p.EntryCommission + p.ExitCommission,
			Reason:     string(p.ExitReason),
		}))
	}

	for _, pt := range res.EquityCurve {
		errs = append(errs, e.journal.RecordEquity(journal.EquitySnapshot{
			RunID:   res.RunID,
			Time:    pt.Date,
			Capital: pt.Capital,
			Equity:  pt.Equity,
		}))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("backtest: journal run %s: %w", res.RunID, err)
	}
	return nil
}
