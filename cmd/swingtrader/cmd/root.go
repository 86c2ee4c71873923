package cmd

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/swingtrader/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swingtrader",
	Short: "Backtesting and validation engine for swing and long-term equity strategies",
	Long: `Swingtrader replays daily or weekly candles through a strategy and a
simulated portfolio, then measures the result.

It provides tools for:
  - Backtesting swing and long-term rebalancing strategies
  - Walk-forward validation on rolling or expanding windows
  - Monte Carlo resampling of a trade list
  - Grid search optimization with sensitivity analysis
  - Journaling runs to SQLite or CSV

Configuration is layered: defaults, --config file, SWINGTRADER_* environment
variables, then command line flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logLevel, logFormat, os.Stderr)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

var (
	cfgFile   string
	logLevel  string
	logFormat string
	jsonOut   bool

	candlesDir      string
	dbDriver        string
	dsn             string
	journalPath     string
	instrumentsFile string

	strategyName string
	fromDate     string
	toDate       string
	instruments  []string
	variant      string

	logger = zerolog.Nop()
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error, disabled)")
	pf.StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	pf.BoolVar(&jsonOut, "json", false, "print results as JSON")

	pf.StringVar(&candlesDir, "candles", "", "directory of <INSTRUMENT>[_<timeframe>].csv candle files")
	pf.StringVar(&dbDriver, "db-driver", "sqlite3", "candle database driver (sqlite3, postgres)")
	pf.StringVar(&dsn, "dsn", "", "candle database DSN, takes precedence over --candles")
	pf.StringVar(&journalPath, "journal", "", "journal runs to a SQLite file (.db, .sqlite) or a CSV directory")
	pf.StringVar(&instrumentsFile, "instruments-file", "", "YAML or JSON instrument metadata; unknown or untradable instruments are skipped")

	pf.StringVarP(&strategyName, "strategy", "s", "trend_follower", "strategy name")
	pf.StringVar(&fromDate, "from", "", "first simulated day (YYYY-MM-DD)")
	pf.StringVar(&toDate, "to", "", "last simulated day (YYYY-MM-DD)")
	pf.StringSliceVarP(&instruments, "instruments", "i", nil, "instruments to trade, comma separated")
	pf.StringVar(&variant, "variant", "", "driver variant (swing, long_term)")
}
