// Package stats computes performance metrics over the closed positions and
// equity curve of a simulation run.
package stats

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Metric names accepted by Metrics.Value and Summary.Value.
const (
	TotalReturn      = "total_return"
	AnnualizedReturn = "annualized_return"
	MaxDrawdown      = "max_drawdown"
	Sharpe           = "sharpe"
	Sortino          = "sortino"
	Calmar           = "calmar"
	WinRate          = "win_rate"
	ProfitFactor     = "profit_factor"
	AvgWinLossRatio  = "avg_win_loss_ratio"
	Expectancy       = "expectancy"
	NetPnL           = "net_pnl"
	TotalTrades      = "total_trades"
	WinningTrades    = "winning_trades"
	LosingTrades     = "losing_trades"
	ConsecutiveWins  = "consecutive_wins"
	ConsecutiveLoss  = "consecutive_losses"
	AvgHoldingDays   = "avg_holding_days"
	FinalCapital     = "final_capital"
)

// TradeSummary identifies a single trade in a metric bundle.
type TradeSummary struct {
	Instrument  string  `json:"instrument"`
	PnL         float64 `json:"pnl"`
	PnLPct      float64 `json:"pnl_pct"`
	HoldingDays int     `json:"holding_days"`
}

// Metrics is the performance bundle of one run. Percentages are in percent.
type Metrics struct {
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	NetPnL         float64 `json:"net_pnl"`

	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	Sharpe           float64 `json:"sharpe"`
	Sortino          float64 `json:"sortino"`
	Calmar           float64 `json:"calmar"`

	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`

	GrossProfit     float64 `json:"gross_profit"`
	GrossLoss       float64 `json:"gross_loss"`
	ProfitFactor    float64 `json:"profit_factor"`
	AvgWin          float64 `json:"avg_win"`
	AvgLoss         float64 `json:"avg_loss"`
	AvgWinLossRatio float64 `json:"avg_win_loss_ratio"`
	Expectancy      float64 `json:"expectancy"`

	ConsecutiveWins   int `json:"consecutive_wins"`
	ConsecutiveLosses int `json:"consecutive_losses"`

	AvgHoldingDays float64       `json:"avg_holding_days"`
	BestTrade      *TradeSummary `json:"best_trade,omitempty"`
	WorstTrade     *TradeSummary `json:"worst_trade,omitempty"`
}

// Value looks a metric up by name. Unknown names return 0.
func (m Metrics) Value(name string) float64 {
	switch name {
	case TotalReturn:
		return m.TotalReturn
	case AnnualizedReturn:
		return m.AnnualizedReturn
	case MaxDrawdown:
		return m.MaxDrawdown
	case Sharpe:
		return m.Sharpe
	case Sortino:
		return m.Sortino
	case Calmar:
		return m.Calmar
	case WinRate:
		return m.WinRate
	case ProfitFactor:
		return m.ProfitFactor
	case AvgWinLossRatio:
		return m.AvgWinLossRatio
	case Expectancy:
		return m.Expectancy
	case NetPnL:
		return m.NetPnL
	case TotalTrades:
		return float64(m.TotalTrades)
	case WinningTrades:
		return float64(m.WinningTrades)
	case LosingTrades:
		return float64(m.LosingTrades)
	case ConsecutiveWins:
		return float64(m.ConsecutiveWins)
	case ConsecutiveLoss:
		return float64(m.ConsecutiveLosses)
	case AvgHoldingDays:
		return m.AvgHoldingDays
	case FinalCapital:
		return m.FinalCapital
	}
	return 0
}

// Names lists every metric name Value understands, sorted.
func Names() []string {
	names := []string{
		TotalReturn, AnnualizedReturn, MaxDrawdown, Sharpe, Sortino, Calmar,
		WinRate, ProfitFactor, AvgWinLossRatio, Expectancy, NetPnL,
		TotalTrades, WinningTrades, LosingTrades, ConsecutiveWins,
		ConsecutiveLoss, AvgHoldingDays, FinalCapital,
	}
	sort.Strings(names)
	return names
}

// Summary is a flattened, name keyed metric bundle, typically an average
// across several runs.
type Summary map[string]float64

// Value returns s[name], or 0 when absent.
func (s Summary) Value(name string) float64 { return s[name] }

// Summarize flattens m into a Summary.
func (m Metrics) Summarize() Summary {
	out := make(Summary, len(Names()))
	for _, n := range Names() {
		out[n] = m.Value(n)
	}
	return out
}

// Mean averages every named metric across ms. An empty input yields an
// empty Summary.
func Mean(ms []Metrics) Summary {
	out := Summary{}
	if len(ms) == 0 {
		return out
	}
	for _, n := range Names() {
		var sum float64
		for _, m := range ms {
			sum += m.Value(n)
		}
		out[n] = sum / float64(len(ms))
	}
	return out
}

// Round rounds v half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
