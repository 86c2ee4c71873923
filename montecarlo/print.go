package montecarlo

import (
	"fmt"
	"io"
)

// PrintReport writes a plain text summary of r.
func PrintReport(w io.Writer, r *Report) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Monte Carlo Simulation")
	fmt.Fprintln(w, "==================================================")

	if !r.Success {
		fmt.Fprintf(w, "Failed:        %s\n", r.Error)
		fmt.Fprintln(w)
		return
	}

	res := r.Results
	fmt.Fprintf(w, "Simulations:   %d (seed %d)\n", res.Simulations, res.Seed)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-14s %10s %10s %10s %10s\n", "", "Mean", "StdDev", "Min", "Max")
	fmt.Fprintln(w, "--------------------------------------------------------")
	fmt.Fprintf(w, "%-14s %10.2f %10.2f %10.2f %10.2f\n", "Return %", res.Return.Mean, res.Return.StdDev, res.Return.Min, res.Return.Max)
	fmt.Fprintf(w, "%-14s %10.2f %10.2f %10.2f %10.2f\n", "Drawdown %", res.Drawdown.Mean, res.Drawdown.StdDev, res.Drawdown.Min, res.Drawdown.Max)
	fmt.Fprintf(w, "%-14s %10.0f %10.0f %10.0f %10.0f\n", "Final Capital", res.FinalCapital.Mean, res.FinalCapital.StdDev, res.FinalCapital.Min, res.FinalCapital.Max)

	d := r.Distributions
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-14s %10s %10s %10s\n", "", "P25", "P50", "P75")
	fmt.Fprintln(w, "--------------------------------------------------------")
	fmt.Fprintf(w, "%-14s %10.2f %10.2f %10.2f\n", "Return %", d.Return.P25, d.Return.P50, d.Return.P75)
	fmt.Fprintf(w, "%-14s %10.2f %10.2f %10.2f\n", "Drawdown %", d.Drawdown.P25, d.Drawdown.P50, d.Drawdown.P75)

	if len(r.ConfidenceIntervals) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Confidence Intervals")
		fmt.Fprintln(w, "--------------------------------------------------------")
		for _, ci := range r.ConfidenceIntervals {
			fmt.Fprintf(w, "%4.0f%%  return [%8.2f, %8.2f]  drawdown [%6.2f, %6.2f]\n",
				ci.Level*100, ci.ReturnLower, ci.ReturnUpper, ci.DrawdownLower, ci.DrawdownUpper)
		}
	}

	wc := r.WorstCase
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Worst %d Trials\n", wc.Trials)
	fmt.Fprintln(w, "--------------------------------------------------------")
	fmt.Fprintf(w, "Mean Return:   %.2f%%\n", wc.MeanReturn)
	fmt.Fprintf(w, "Mean Drawdown: %.2f%%\n", wc.MeanDrawdown)
	fmt.Fprintf(w, "Worst Return:  %.2f%%\n", wc.WorstReturn)
	fmt.Fprintf(w, "Worst DD:      %.2f%%\n", wc.WorstDrawdown)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "P(loss):       %.1f%%\n", r.Probabilities.Loss*100)
	fmt.Fprintf(w, "P(DD > %.0f%%):  %.1f%%\n", DrawdownThreshold, r.Probabilities.Drawdown*100)
	fmt.Fprintln(w)
}
