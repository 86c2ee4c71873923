package optimizer

import (
	"fmt"
	"io"
	"sort"

	"github.com/rustyeddy/swingtrader/stats"
)

// PrintReport writes a plain text summary of r showing at most top results.
func PrintReport(w io.Writer, r *Report, top int) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Parameter Optimization")
	fmt.Fprintln(w, "==================================================")
	basis := "full backtest"
	if r.UseWalkForward {
		basis = "walk-forward out-of-sample"
	}
	fmt.Fprintf(w, "Metric:        %s (%s)\n", r.Metric, basis)
	fmt.Fprintf(w, "Combinations:  %d tested, %d failed\n", r.Tested, r.Failed)

	if !r.Success {
		fmt.Fprintf(w, "Failed:        %s\n", r.Error)
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Best:          %s\n", r.BestParameters)
	fmt.Fprintf(w, "Score:         %.4f\n", r.BestScore)
	fmt.Fprintf(w, "Return:        %.2f%%\n", r.BestMetrics.Value(stats.TotalReturn))
	fmt.Fprintf(w, "Sharpe:        %.2f\n", r.BestMetrics.Value(stats.Sharpe))
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.BestMetrics.Value(stats.MaxDrawdown))

	if top <= 0 || top > len(r.AllResults) {
		top = len(r.AllResults)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Top %d\n", top)
	fmt.Fprintln(w, "--------------------------------------------------")
	for i, res := range r.AllResults[:top] {
		fmt.Fprintf(w, "%3d  %10.4f  %s\n", i+1, res.Score, res.Parameters)
	}

	names := make([]string, 0, len(r.Sensitivity))
	for name := range r.Sensitivity {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sensitivity")
	fmt.Fprintln(w, "--------------------------------------------------")
	for _, name := range names {
		s := r.Sensitivity[name]
		fmt.Fprintf(w, "%-20s best %g\n", name, s.BestValue)
		for _, v := range s.Values {
			fmt.Fprintf(w, "    %-12g %10.4f  (n=%d)\n", v.Value, v.MeanScore, v.Count)
		}
	}
	fmt.Fprintln(w)
}
