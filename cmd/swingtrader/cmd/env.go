package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rustyeddy/swingtrader/backtest"
	"github.com/rustyeddy/swingtrader/config"
	"github.com/rustyeddy/swingtrader/feed"
	"github.com/rustyeddy/swingtrader/journal"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/rustyeddy/swingtrader/strategy"
	"github.com/spf13/cobra"
)

// resolveConfig layers the --config file, the environment and the run
// flags over the defaults.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	r := config.NewResolver()
	if cfgFile != "" {
		r.WithFile(cfgFile)
	}

	flags := cmd.Flags()
	if flags.Changed("from") {
		r.Set("date_range.from", fromDate)
	}
	if flags.Changed("to") {
		r.Set("date_range.to", toDate)
	}
	if flags.Changed("instruments") {
		r.Set("instruments", instruments)
	}
	if flags.Changed("variant") {
		r.Set("variant", variant)
	}
	return r.Resolve()
}

// env holds the collaborators of one command invocation.
type env struct {
	engine  *backtest.Engine
	closers []io.Closer
}

func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i].Close())
	}
	return errors.Join(errs...)
}

// newEnv wires the feed, strategy, instrument lookup and journal into an
// engine.
func newEnv() (*env, error) {
	e := &env{}

	f, err := openFeed(e)
	if err != nil {
		return nil, err
	}

	eval, err := strategy.ByName(strategyName)
	if err != nil {
		e.Close()
		return nil, err
	}

	opts := []backtest.Option{backtest.WithLogger(logger)}

	if instrumentsFile != "" {
		lookup, err := loadInstruments(instrumentsFile)
		if err != nil {
			e.Close()
			return nil, err
		}
		opts = append(opts, backtest.WithInstruments(lookup))
	}

	if journalPath != "" {
		j, err := openJournal(journalPath)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.closers = append(e.closers, j)
		opts = append(opts, backtest.WithJournal(j))
	}

	e.engine = backtest.New(feed.NewCache(f), eval, opts...)
	return e, nil
}

func openFeed(e *env) (market.Feed, error) {
	switch {
	case dsn != "":
		s, err := feed.OpenSQL(dbDriver, dsn)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, s)
		return s, nil
	case candlesDir != "":
		return feed.NewCSV(candlesDir), nil
	}
	return nil, fmt.Errorf("a candle source is required: --candles DIR or --dsn")
}

func openJournal(path string) (journal.Journal, error) {
	if isSQLite(path) {
		return journal.NewSQLite(path)
	}
	return journal.NewCSV(path)
}

func isSQLite(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func loadInstruments(path string) (market.StaticInstruments, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open instruments: %w", err)
	}
	defer f.Close()
	return market.ReadInstruments(f)
}

// output prints v as JSON when --json is set, otherwise through text.
func output(w io.Writer, v any, text func(io.Writer)) error {
	if !jsonOut {
		text(w)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
