package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/swingtrader/market"
)

// CSV reads one file per instrument from Dir. For instrument AAPL on the
// daily timeframe it tries AAPL_daily.csv, then AAPL.csv. Rows are
//
//	time,open,high,low,close,volume
//
// where time is RFC3339 or 2006-01-02. A header row is allowed.
type CSV struct {
	Dir string
}

func NewCSV(dir string) *CSV {
	return &CSV{Dir: dir}
}

func (c *CSV) Load(ctx context.Context, instrument string, tf market.Timeframe, from, to time.Time) ([]market.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := c.path(instrument, tf)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("feed: %s: %w", path, err)
	}
	return window(cs, from, to), nil
}

func (c *CSV) path(instrument string, tf market.Timeframe) (string, error) {
	candidates := []string{
		filepath.Join(c.Dir, fmt.Sprintf("%s_%s.csv", instrument, tf)),
		filepath.Join(c.Dir, instrument+".csv"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("feed: no candle file for %s in %s: %w", instrument, c.Dir, fs.ErrNotExist)
}

// ReadCSV parses candle rows from r. Empty or short rows are skipped.
func ReadCSV(r io.Reader) ([]market.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		out      []market.Candle
		sawFirst bool
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		if !sawFirst {
			sawFirst = true
			if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		c, ok, err := parseCandleRow(row)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
}

func parseCandleRow(row []string) (market.Candle, bool, error) {
	if len(row) < 5 {
		return market.Candle{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return market.Candle{}, false, nil
	}
	t, err := parseTime(ts)
	if err != nil {
		return market.Candle{}, false, err
	}

	var vals [5]float64
	for i := 1; i < len(row) && i <= 5; i++ {
		s := strings.TrimSpace(row[i])
		if s == "" && i == 5 {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return market.Candle{}, false, fmt.Errorf("bad value %q in column %d: %w", row[i], i, err)
		}
		vals[i-1] = v
	}

	return market.Candle{
		Time:   t.UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, true, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}

// WriteCSV writes candles in the format ReadCSV accepts, with a header.
func WriteCSV(w io.Writer, candles []market.Candle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, c := range candles {
		err := cw.Write([]string{
			c.Time.UTC().Format(time.RFC3339),
			num(c.Open),
			num(c.High),
			num(c.Low),
			num(c.Close),
			num(c.Volume),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func num(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
