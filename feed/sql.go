package feed

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/swingtrader/market"
)

// CandleSchema creates the candles table read by SQL. It is valid for both
// sqlite3 and postgres.
const CandleSchema = `
CREATE TABLE IF NOT EXISTS candles (
	instrument TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	time TIMESTAMP NOT NULL,
	open DOUBLE PRECISION NOT NULL,
	high DOUBLE PRECISION NOT NULL,
	low DOUBLE PRECISION NOT NULL,
	close DOUBLE PRECISION NOT NULL,
	volume DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (instrument, timeframe, time)
);
`

// SQL reads candles from a database/sql handle. Supported drivers are
// "sqlite3" and "postgres".
type SQL struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens dsn with driver and ensures the candles table exists.
func OpenSQL(driver, dsn string) (*SQL, error) {
	switch driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("feed: unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("feed: open %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(CandleSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("feed: create schema: %w", err)
	}
	return &SQL{db: db, driver: driver}, nil
}

// NewSQL wraps an existing handle. The candles table must exist.
func NewSQL(db *sql.DB, driver string) *SQL {
	return &SQL{db: db, driver: driver}
}

func (s *SQL) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQL) rebind(q string) string {
	if s.driver != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQL) Load(ctx context.Context, instrument string, tf market.Timeframe, from, to time.Time) ([]market.Candle, error) {
	end := market.DateOf(to).AddDate(0, 0, 1)
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT time, open, high, low, close, volume
		FROM candles
		WHERE instrument = ? AND timeframe = ? AND time >= ? AND time < ?
		ORDER BY time ASC`),
		instrument, string(tf), market.DateOf(from), end)
	if err != nil {
		return nil, fmt.Errorf("feed: query %s: %w", instrument, err)
	}
	defer rows.Close()

	var out []market.Candle
	for rows.Next() {
		var c market.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("feed: scan %s: %w", instrument, err)
		}
		c.Time = c.Time.UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return window(out, from, to), nil
}

// Insert upserts candles for instrument on tf in a single transaction.
func (s *SQL) Insert(ctx context.Context, instrument string, tf market.Timeframe, candles []market.Candle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO candles (instrument, timeframe, time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (instrument, timeframe, time) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume`))
	if err != nil {
		return fmt.Errorf("feed: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, instrument, string(tf), c.Time.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return fmt.Errorf("feed: insert %s %s: %w", instrument, c.Time.Format(time.RFC3339), err)
		}
	}
	return tx.Commit()
}
