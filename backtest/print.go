package backtest

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// PrintResult writes a plain text summary of r.
func PrintResult(w io.Writer, r *Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	if !r.Success {
		fmt.Fprintf(w, "Failed:        %s\n", r.Error)
		if len(r.Skipped) > 0 {
			fmt.Fprintf(w, "Skipped:       %s\n", strings.Join(r.Skipped, ", "))
		}
		fmt.Fprintln(w)
		return
	}

	cfg := r.Config
	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	fmt.Fprintf(w, "Variant:       %s\n", cfg.Variant)
	fmt.Fprintf(w, "Timeframe:     %s\n", cfg.Timeframe)
	fmt.Fprintf(w, "Instruments:   %s\n", strings.Join(cfg.Instruments, ", "))
	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped:       %s\n", strings.Join(r.Skipped, ", "))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", cfg.DateRange.From.Format(time.DateOnly))
	fmt.Fprintf(w, "End:           %s\n", cfg.DateRange.To.Format(time.DateOnly))
	fmt.Fprintf(w, "Trading Days:  %d\n", r.TradingDays)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Cost Model")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Risk per Trade: %.2f%%\n", cfg.RiskPerTrade)
	fmt.Fprintf(w, "Sizing:        %s\n", cfg.PositionSizing)
	fmt.Fprintf(w, "Commission:    %.3f%% (%.2f paid)\n", cfg.CommissionRate, r.Portfolio.TotalCommission)
	fmt.Fprintf(w, "Slippage:      %.3f%% (%.2f paid)\n", cfg.SlippagePct, r.Portfolio.TotalSlippage)

	m := r.Metrics
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", m.TotalTrades)
	fmt.Fprintf(w, "Wins:          %d\n", m.WinningTrades)
	fmt.Fprintf(w, "Losses:        %d\n", m.LosingTrades)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", m.WinRate)
	fmt.Fprintf(w, "Avg Hold:      %.1f days\n", m.AvgHoldingDays)
	fmt.Fprintf(w, "Streaks:       %d wins / %d losses\n", m.ConsecutiveWins, m.ConsecutiveLosses)
	if m.BestTrade != nil {
		fmt.Fprintf(w, "Best Trade:    %s %.2f (%.2f%%)\n", m.BestTrade.Instrument, m.BestTrade.PnL, m.BestTrade.PnLPct)
	}
	if m.WorstTrade != nil {
		fmt.Fprintf(w, "Worst Trade:   %s %.2f (%.2f%%)\n", m.WorstTrade.Instrument, m.WorstTrade.PnL, m.WorstTrade.PnLPct)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Balance: %.2f\n", r.Portfolio.InitialCapital)
	fmt.Fprintf(w, "End Balance:   %.2f\n", r.Portfolio.FinalCapital)
	fmt.Fprintf(w, "Net P/L:       %.2f\n", m.NetPnL)
	fmt.Fprintf(w, "Return:        %.2f%%\n", m.TotalReturn)
	fmt.Fprintf(w, "Annualized:    %.2f%%\n", m.AnnualizedReturn)
	fmt.Fprintf(w, "Sharpe:        %.2f\n", m.Sharpe)
	fmt.Fprintf(w, "Sortino:       %.2f\n", m.Sortino)

	if m.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", m.ProfitFactor)
	}
	if m.MaxDrawdown > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", m.MaxDrawdown)
	}

	fmt.Fprintln(w)
}
