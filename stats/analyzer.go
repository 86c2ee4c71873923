package stats

import (
	"math"
	"time"

	"github.com/rustyeddy/swingtrader/sim"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualizes returns and ratios.
const TradingDaysPerYear = 252

// Input is everything Analyze needs. The analyzer does not mutate it.
type Input struct {
	Positions      []sim.Position
	EquityCurve    []sim.EquityPoint
	InitialCapital float64
	FinalCapital   float64
	// TradingDays is the number of simulated market days. When zero the
	// number of distinct equity curve dates is used.
	TradingDays int
}

// Analyze computes the metric bundle for one run. Every ratio with a zero
// denominator resolves to 0.
func Analyze(in Input) Metrics {
	m := Metrics{
		InitialCapital: in.InitialCapital,
		FinalCapital:   in.FinalCapital,
		NetPnL:         in.FinalCapital - in.InitialCapital,
	}

	if in.InitialCapital > 0 {
		m.TotalReturn = (in.FinalCapital - in.InitialCapital) / in.InitialCapital * 100
	}

	days := in.TradingDays
	if days <= 0 {
		days = distinctDays(in.EquityCurve)
	}
	m.AnnualizedReturn = annualized(in.InitialCapital, in.FinalCapital, days)

	equity := equitySeries(in.InitialCapital, in.EquityCurve)
	m.MaxDrawdown = maxDrawdown(equity)
	rets := periodReturns(equity)
	m.Sharpe = sharpe(rets)
	m.Sortino = sortino(rets)
	if m.MaxDrawdown > 0 {
		m.Calmar = m.AnnualizedReturn / m.MaxDrawdown
	}

	tradeStats(&m, in.Positions)
	return m
}

func annualized(initial, final float64, days int) float64 {
	years := float64(days) / TradingDaysPerYear
	if years <= 0 || initial <= 0 {
		return 0
	}
	if final <= 0 {
		return -100
	}
	return (math.Pow(final/initial, 1/years) - 1) * 100
}

func distinctDays(curve []sim.EquityPoint) int {
	seen := make(map[time.Time]struct{}, len(curve))
	for _, pt := range curve {
		seen[pt.Date] = struct{}{}
	}
	return len(seen)
}

// equitySeries prefixes the curve with the starting capital so the first
// period return and the initial peak are measured against it.
func equitySeries(initial float64, curve []sim.EquityPoint) []float64 {
	out := make([]float64, 0, len(curve)+1)
	if initial > 0 {
		out = append(out, initial)
	}
	for _, pt := range curve {
		out = append(out, pt.Equity)
	}
	return out
}

func maxDrawdown(equity []float64) float64 {
	var peak, maxDD float64
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - e) / peak * 100; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func periodReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1]
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (equity[i]-prev)/prev)
	}
	return out
}

func sharpe(rets []float64) float64 {
	if len(rets) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(rets, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std * math.Sqrt(TradingDaysPerYear)
}

func sortino(rets []float64) float64 {
	var down []float64
	for _, r := range rets {
		if r < 0 {
			down = append(down, r)
		}
	}
	if len(down) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(down, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return stat.Mean(rets, nil) / std * math.Sqrt(TradingDaysPerYear)
}

func tradeStats(m *Metrics, positions []sim.Position) {
	m.TotalTrades = len(positions)
	if len(positions) == 0 {
		return
	}

	var (
		holding         int
		winRun, lossRun int
		best, worst     *sim.Position
	)

	for i := range positions {
		p := &positions[i]
		pnl := p.RealizedPnL()
		holding += p.HoldingDays(p.ExitDate)

		switch {
		case pnl > 0:
			m.WinningTrades++
			m.GrossProfit += pnl
			winRun++
			lossRun = 0
		case pnl < 0:
			m.LosingTrades++
			m.GrossLoss += pnl
			lossRun++
			winRun = 0
		default:
			winRun, lossRun = 0, 0
		}
		m.ConsecutiveWins = max(m.ConsecutiveWins, winRun)
		m.ConsecutiveLosses = max(m.ConsecutiveLosses, lossRun)

		if best == nil || pnl > best.RealizedPnL() {
			best = p
		}
		if worst == nil || pnl < worst.RealizedPnL() {
			worst = p
		}
	}

	n := float64(m.TotalTrades)
	m.WinRate = float64(m.WinningTrades) / n * 100
	m.AvgHoldingDays = float64(holding) / n
	m.Expectancy = (m.GrossProfit + m.GrossLoss) / n

	if m.GrossLoss != 0 {
		m.ProfitFactor = m.GrossProfit / math.Abs(m.GrossLoss)
	}
	if m.WinningTrades > 0 {
		m.AvgWin = m.GrossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = m.GrossLoss / float64(m.LosingTrades)
	}
	if m.AvgLoss != 0 {
		m.AvgWinLossRatio = m.AvgWin / math.Abs(m.AvgLoss)
	}

	m.BestTrade = summarize(best)
	m.WorstTrade = summarize(worst)
}

func summarize(p *sim.Position) *TradeSummary {
	return &TradeSummary{
		Instrument:  p.Instrument,
		PnL:         p.RealizedPnL(),
		PnLPct:      p.RealizedPnLPct(),
		HoldingDays: p.HoldingDays(p.ExitDate),
	}
}
