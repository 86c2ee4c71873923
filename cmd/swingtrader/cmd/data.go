package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rustyeddy/swingtrader/feed"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/spf13/cobra"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Manage candle data",
}

var dataImportCmd = &cobra.Command{
	Use:   "import <file.csv>...",
	Short: "Load candle CSV files into the candle database",
	Long: `Import upserts time,open,high,low,close,volume rows into the candles table
of the --dsn database, creating the table if needed. The instrument defaults
to the file name up to the first underscore or dot.

Example:
  swingtrader data import --dsn candles.db data/AAPL.csv data/MSFT_daily.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDataImport,
}

var (
	importInstrument string
	importTimeframe  string
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataImportCmd)

	dataImportCmd.Flags().StringVar(&importInstrument, "instrument", "", "instrument id, only with a single file")
	dataImportCmd.Flags().StringVar(&importTimeframe, "timeframe", string(market.Daily), "timeframe of the rows (daily, weekly)")
}

func runDataImport(cmd *cobra.Command, args []string) error {
	if dsn == "" {
		return fmt.Errorf("--dsn is required")
	}
	if importInstrument != "" && len(args) > 1 {
		return fmt.Errorf("--instrument only applies to a single file")
	}
	tf := market.Timeframe(importTimeframe)
	if !tf.Valid() {
		return fmt.Errorf("unknown timeframe %q", importTimeframe)
	}

	db, err := feed.OpenSQL(dbDriver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, path := range args {
		inst := importInstrument
		if inst == "" {
			inst = instrumentFromPath(path)
		}

		candles, err := readCandleFile(path)
		if err != nil {
			return err
		}
		if err := db.Insert(cmd.Context(), inst, tf, candles); err != nil {
			return err
		}

		logger.Info().Str("file", path).Str("instrument", inst).Int("candles", len(candles)).Msg("imported")
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d candles -> %s\n", path, len(candles), inst)
	}
	return nil
}

func readCandleFile(path string) ([]market.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	candles, err := feed.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return candles, nil
}

func instrumentFromPath(path string) string {
	name := path
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexAny(name, "_."); i > 0 {
		name = name[:i]
	}
	return strings.ToUpper(name)
}
