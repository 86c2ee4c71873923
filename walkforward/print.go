package walkforward

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/swingtrader/stats"
)

// PrintReport writes a plain text summary of r.
func PrintReport(w io.Writer, r *Report) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Walk-Forward Analysis")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Window Type:   %s (%d / %d days)\n", r.Options.WindowType, r.Options.InSampleDays, r.Options.OutOfSampleDays)

	if !r.Success {
		fmt.Fprintf(w, "Failed:        %s\n", r.Error)
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "Windows:       %d (%d successful)\n", r.Comparison.Windows, r.Comparison.SuccessfulWindows)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-4s %-10s %-10s %10s %10s %8s\n", "#", "OOS From", "OOS To", "IS Ret%", "OOS Ret%", "Score")
	fmt.Fprintln(w, "--------------------------------------------------------")
	for _, wr := range r.Windows {
		if !wr.Success {
			fmt.Fprintf(w, "%-4d %-10s %-10s %s\n", wr.Window.Index,
				wr.Window.OutOfSampleStart.Format(time.DateOnly), wr.Window.OutOfSampleEnd.Format(time.DateOnly), wr.Error)
			continue
		}
		fmt.Fprintf(w, "%-4d %-10s %-10s %10.2f %10.2f %8.1f\n", wr.Window.Index,
			wr.Window.OutOfSampleStart.Format(time.DateOnly), wr.Window.OutOfSampleEnd.Format(time.DateOnly),
			wr.InSample.TotalReturn, wr.OutOfSample.TotalReturn, wr.Consistency)
	}

	is, oos := r.Aggregated.InSample, r.Aggregated.OutOfSample
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-18s %10s %10s %12s\n", "Metric", "In", "Out", "Degradation")
	fmt.Fprintln(w, "--------------------------------------------------------")
	for _, name := range compared {
		fmt.Fprintf(w, "%-18s %10.2f %10.2f %11.1f%%\n", name, is.Value(name), oos.Value(name), r.Comparison.Degradation[name])
	}
	fmt.Fprintf(w, "%-18s %10.2f %10.2f %11.1f%%\n", stats.MaxDrawdown, is.Value(stats.MaxDrawdown), oos.Value(stats.MaxDrawdown), r.Comparison.DrawdownIncrease)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Consistency:   %.1f / 100\n", r.Comparison.ConsistencyScore)
	fmt.Fprintln(w)
}
