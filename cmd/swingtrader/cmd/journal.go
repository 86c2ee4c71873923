package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/swingtrader/config"
	"github.com/rustyeddy/swingtrader/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query journaled runs",
	Long: `Query run summaries and trades recorded in a SQLite journal.

Subcommands:
  runs  - List runs created within a date range
  show  - Show one run with its trades

Examples:
  swingtrader journal runs --journal runs.db --since 2024-06-01
  swingtrader journal show <run-id> --journal runs.db`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List journaled runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its trades",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var (
	journalSince string
	journalUntil string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalShowCmd)

	journalRunsCmd.Flags().StringVar(&journalSince, "since", "", "first creation day (YYYY-MM-DD), default 30 days ago")
	journalRunsCmd.Flags().StringVar(&journalUntil, "until", "", "last creation day (YYYY-MM-DD), default today")
}

func openSQLiteJournal() (*journal.SQLite, error) {
	if !isSQLite(journalPath) {
		return nil, fmt.Errorf("a SQLite --journal (.db, .sqlite) is required, got %q", journalPath)
	}
	return journal.NewSQLite(journalPath)
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)
	var err error
	if journalSince != "" {
		if start, err = config.ParseDate(journalSince); err != nil {
			return err
		}
	}
	if journalUntil != "" {
		if end, err = config.ParseDate(journalUntil); err != nil {
			return err
		}
	}
	// until is inclusive
	end = end.AddDate(0, 0, 1)

	j, err := openSQLiteJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(cmd.Context(), start, end)
	if err != nil {
		return err
	}

	return output(cmd.OutOrStdout(), runs, func(w io.Writer) {
		if len(runs) == 0 {
			fmt.Fprintln(w, "No runs")
			return
		}
		fmt.Fprintf(w, "%-26s %-16s %-10s %-15s %7s %9s %8s\n", "RUN", "CREATED", "VARIANT", "STRATEGY", "TRADES", "RETURN%", "SHARPE")
		for _, r := range runs {
			fmt.Fprintf(w, "%-26s %-16s %-10s %-15s %7d %9.2f %8.2f\n",
				r.RunID, r.Created.Format("2006-01-02 15:04"), r.Variant, r.Strategy, r.Trades, r.ReturnPct, r.Sharpe)
		}
	})
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	j, err := openSQLiteJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := cmd.Context()
	run, err := j.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	trades, err := j.ListTrades(ctx, run.RunID)
	if err != nil {
		return err
	}

	v := struct {
		Run    journal.RunRecord     `json:"run"`
		Trades []journal.TradeRecord `json:"trades"`
	}{run, trades}

	return output(cmd.OutOrStdout(), v, func(w io.Writer) {
		fmt.Fprintf(w, "Run:           %s\n", run.RunID)
		fmt.Fprintf(w, "Strategy:      %s (%s, %s)\n", run.Strategy, run.Variant, run.Timeframe)
		fmt.Fprintf(w, "Period:        %s .. %s\n", run.Start.Format(time.DateOnly), run.End.Format(time.DateOnly))
		fmt.Fprintf(w, "Balance:       %.2f -> %.2f (%.2f%%)\n", run.StartBalance, run.EndBalance, run.ReturnPct)
		fmt.Fprintf(w, "Trades:        %d (%d wins, %d losses)\n", run.Trades, run.Wins, run.Losses)
		fmt.Fprintln(w)
		for _, t := range trades {
			fmt.Fprintf(w, "%s  %-6s %-5s %8.0f  %10.2f -> %10.2f  %10.2f  %s\n",
				t.CloseTime.Format(time.DateOnly), t.Instrument, t.Direction, t.Quantity,
				t.EntryPrice, t.ExitPrice, t.RealizedPL, t.Reason)
		}
	})
}
