package cmd

import (
	"io"

	"github.com/rustyeddy/swingtrader/optimizer"
	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:     "optimize",
	Aliases: []string{"opt"},
	Short:   "Grid search strategy and risk parameters",
	Long: `Optimize evaluates every combination of the --param grids and ranks them
by the chosen metric. By default each combination is scored on its
walk-forward out-of-sample averages.

Parameters named after config fields (risk_per_trade, commission_rate,
slippage_pct, trailing_stop_pct, max_positions, min_holding_days, ...) set
those fields; any other name is passed to the strategy.

Example:
  swingtrader optimize --candles data/daily \
    --param risk_per_trade=0.5:2:0.5 --param fast_period=10,20 --param slow_period=50,100 \
    --metric composite --workers 4`,
	Args: cobra.NoArgs,
	RunE: runOptimize,
}

var (
	optParams      []string
	optMetric      string
	optWalkForward bool
	optWorkers     int
	optTop         int
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	d := optimizer.DefaultOptions()
	f := optimizeCmd.Flags()
	f.StringArrayVarP(&optParams, "param", "p", nil, "parameter grid, name=v1,v2 or name=min:max:step (repeatable)")
	f.StringVarP(&optMetric, "metric", "m", string(d.Metric), "objective (sharpe, sortino, total_return, annualized_return, profit_factor, win_rate, composite)")
	f.BoolVar(&optWalkForward, "walk-forward", d.UseWalkForward, "score on walk-forward out-of-sample results")
	f.IntVar(&optWorkers, "workers", d.Workers, "combinations evaluated in parallel")
	f.IntVar(&optTop, "top", 10, "results shown in text output, 0 for all")
	addWindowFlags(optimizeCmd)

	optimizeCmd.MarkFlagRequired("param")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	space, err := optimizer.ParseSpace(optParams)
	if err != nil {
		return err
	}
	metric, err := optimizer.ParseMetric(optMetric)
	if err != nil {
		return err
	}
	wf, err := windowOptions()
	if err != nil {
		return err
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	o := optimizer.New(e.engine, optimizer.WithLogger(logger))
	rep, err := o.Run(cmd.Context(), *cfg, space, optimizer.Options{
		Metric:         metric,
		UseWalkForward: optWalkForward,
		WalkForward:    wf,
		Workers:        optWorkers,
	})
	if err != nil {
		return err
	}

	return output(cmd.OutOrStdout(), rep, func(w io.Writer) {
		optimizer.PrintReport(w, rep, optTop)
	})
}
