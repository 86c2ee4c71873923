package cmd

import (
	"io"

	"github.com/rustyeddy/swingtrader/backtest"
	"github.com/spf13/cobra"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a single backtest",
	Long: `Backtest replays the configured date range day by day through the
selected strategy and prints the performance summary.

Examples:
  swingtrader backtest --candles data/daily -i AAPL,MSFT --from 2023-01-01 --to 2024-12-31
  swingtrader backtest -c swing.yaml --dsn candles.db --journal runs.db --json`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.engine.Run(cmd.Context(), *cfg)
	if err != nil {
		return err
	}

	return output(cmd.OutOrStdout(), res, func(w io.Writer) {
		backtest.PrintResult(w, res)
	})
}
