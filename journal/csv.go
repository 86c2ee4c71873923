package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	runHeader    = []string{"run_id", "created", "variant", "timeframe", "strategy", "instruments", "start", "end", "trades", "wins", "losses", "start_balance", "end_balance", "net_pl", "return_pct", "win_rate", "profit_factor", "max_dd_pct", "sharpe"}
	tradeHeader  = []string{"run_id", "trade_id", "instrument", "direction", "quantity", "entry_price", "exit_price", "open_time", "close_time", "realized_pl", "commission", "reason"}
	equityHeader = []string{"run_id", "time", "capital", "equity"}
)

// CSV writes runs.csv, trades.csv and equity.csv into a directory.
type CSV struct {
	mu     sync.Mutex
	files  []*os.File
	runs   *csv.Writer
	trades *csv.Writer
	equity *csv.Writer
}

// NewCSV creates dir if needed and truncates the three journal files in it.
func NewCSV(dir string) (*CSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}

	j := &CSV{}
	open := func(name string, header []string) (*csv.Writer, error) {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		j.files = append(j.files, f)
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return nil, err
		}
		w.Flush()
		return w, w.Error()
	}

	var err error
	if j.runs, err = open("runs.csv", runHeader); err == nil {
		if j.trades, err = open("trades.csv", tradeHeader); err == nil {
			j.equity, err = open("equity.csv", equityHeader)
		}
	}
	if err != nil {
		j.closeFiles()
		return nil, fmt.Errorf("journal: %w", err)
	}
	return j, nil
}

func (j *CSV) RecordRun(r RunRecord) error {
	return j.write(j.runs, []string{
		r.RunID,
		r.Created.Format(time.RFC3339),
		r.Variant,
		r.Timeframe,
		r.Strategy,
		strings.Join(r.Instruments, " "),
		r.Start.Format(time.DateOnly),
		r.End.Format(time.DateOnly),
		strconv.Itoa(r.Trades),
		strconv.Itoa(r.Wins),
		strconv.Itoa(r.Losses),
		f(r.StartBalance),
		f(r.EndBalance),
		f(r.NetPL),
		f(r.ReturnPct),
		f(r.WinRate),
		f(r.ProfitFactor),
		f(r.MaxDDPct),
		f(r.Sharpe),
	})
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	return j.write(j.trades, []string{
		t.RunID,
		t.TradeID,
		t.Instrument,
		t.Direction,
		f(t.Quantity),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.OpenTime.Format(time.RFC3339),
		t.CloseTime.Format(time.RFC3339),
		f(t.RealizedPL),
		f(t.Commission),
		t.Reason,
	})
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	return j.write(j.equity, []string{
		e.RunID,
		e.Time.Format(time.RFC3339),
		f(e.Capital),
		f(e.Equity),
	})
}

func (j *CSV) write(w *csv.Writer, row []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := w.Write(row); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, w := range []*csv.Writer{j.runs, j.trades, j.equity} {
		w.Flush()
		if err := w.Error(); err != nil {
			j.closeFiles()
			return err
		}
	}
	return j.closeFiles()
}

func (j *CSV) closeFiles() error {
	var first error
	for _, file := range j.files {
		if err := file.Close(); err != nil && first == nil {
			first = err
		}
	}
	j.files = nil
	return first
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
