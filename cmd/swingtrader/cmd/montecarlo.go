package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/rustyeddy/swingtrader/journal"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/rustyeddy/swingtrader/montecarlo"
	"github.com/rustyeddy/swingtrader/sim"
	"github.com/spf13/cobra"
)

var montecarloCmd = &cobra.Command{
	Use:     "montecarlo",
	Aliases: []string{"mc"},
	Short:   "Resample the trade order of a backtest",
	Long: `Montecarlo replays random permutations of a trade list and reports the
distribution of returns and drawdowns.

The trades come from a fresh backtest, or from a journaled run with --run.

Examples:
  swingtrader montecarlo --candles data/daily --simulations 5000 --seed 42
  swingtrader montecarlo --journal runs.db --run 01J9Z3...`,
	Args: cobra.NoArgs,
	RunE: runMonteCarlo,
}

var (
	mcOpts  = montecarlo.DefaultOptions()
	mcRunID string
)

func init() {
	rootCmd.AddCommand(montecarloCmd)

	f := montecarloCmd.Flags()
	f.IntVarP(&mcOpts.Simulations, "simulations", "n", mcOpts.Simulations, "number of permutations")
	f.Float64SliceVar(&mcOpts.ConfidenceLevels, "confidence", mcOpts.ConfidenceLevels, "confidence levels in (0, 1)")
	f.Uint64Var(&mcOpts.Seed, "seed", 0, "random seed, 0 seeds from the clock")
	f.IntVar(&mcOpts.Workers, "workers", mcOpts.Workers, "trials run in parallel")
	f.BoolVar(&mcOpts.KeepPaths, "keep-paths", false, "include every trial and its equity path in JSON output")
	f.StringVar(&mcRunID, "run", "", "journaled run id to resample (requires a SQLite --journal)")
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var (
		positions []sim.Position
		capital   float64
		err       error
	)
	if mcRunID != "" {
		positions, capital, err = journaledTrades(ctx, mcRunID)
	} else {
		positions, capital, err = backtestTrades(cmd)
	}
	if err != nil {
		return err
	}

	rep, err := montecarlo.New(montecarlo.WithLogger(logger)).Run(ctx, positions, capital, mcOpts)
	if err != nil {
		return err
	}

	return output(cmd.OutOrStdout(), rep, func(w io.Writer) {
		montecarlo.PrintReport(w, rep)
	})
}

func backtestTrades(cmd *cobra.Command) ([]sim.Position, float64, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, 0, err
	}
	e, err := newEnv()
	if err != nil {
		return nil, 0, err
	}
	defer e.Close()

	res, err := e.engine.Run(cmd.Context(), *cfg)
	if err != nil {
		return nil, 0, err
	}
	if !res.Success {
		return nil, 0, fmt.Errorf("backtest failed: %s", res.Error)
	}
	return res.Positions, cfg.InitialCapital, nil
}

func journaledTrades(ctx context.Context, runID string) ([]sim.Position, float64, error) {
	if !isSQLite(journalPath) {
		return nil, 0, fmt.Errorf("--run needs a SQLite --journal, got %q", journalPath)
	}
	j, err := journal.NewSQLite(journalPath)
	if err != nil {
		return nil, 0, err
	}
	defer j.Close()

	run, err := j.GetRun(ctx, runID)
	if err != nil {
		return nil, 0, err
	}
	trades, err := j.ListTrades(ctx, runID)
	if err != nil {
		return nil, 0, err
	}
	positions, err := positionsFromTrades(trades)
	if err != nil {
		return nil, 0, err
	}
	return positions, run.StartBalance, nil
}

// positionsFromTrades rebuilds closed positions from journaled trades.
func positionsFromTrades(trades []journal.TradeRecord) ([]sim.Position, error) {
	out := make([]sim.Position, 0, len(trades))
	for _, t := range trades {
		dir, err := market.ParseDirection(t.Direction)
		if err != nil {
			return nil, fmt.Errorf("trade %s: %w", t.TradeID, err)
		}
		reason := sim.ExitReason(t.Reason)
		if !reason.Valid() {
			return nil, fmt.Errorf("trade %s: unknown exit reason %q", t.TradeID, t.Reason)
		}
		out = append(out, sim.Position{
			ID:         t.TradeID,
			Instrument: t.Instrument,
			Direction:  dir,
			EntryDate:  t.OpenTime,
			EntryPrice: t.EntryPrice,
			Quantity:   t.Quantity,
			ExitDate:   t.CloseTime,
			ExitPrice:  t.ExitPrice,
			ExitReason: reason,
		})
	}
	return out, nil
}
