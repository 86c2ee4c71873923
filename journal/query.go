package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// GetRun returns the summary of runID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	var (
		r           RunRecord
		instruments string
		cfg         string
	)

	row := j.db.QueryRowContext(ctx, `
		SELECT run_id, created, variant, timeframe, strategy, instruments, config, start_date, end_date,
		       trades, wins, losses, start_balance, end_balance, net_pl, return_pct, win_rate, profit_factor, max_dd_pct, sharpe
		FROM runs
		WHERE run_id = ?`, runID)

	err := row.Scan(
		&r.RunID, &r.Created, &r.Variant, &r.Timeframe, &r.Strategy, &instruments, &cfg,
		&r.Start, &r.End, &r.Trades, &r.Wins, &r.Losses, &r.StartBalance, &r.EndBalance,
		&r.NetPL, &r.ReturnPct, &r.WinRate, &r.ProfitFactor, &r.MaxDDPct, &r.Sharpe,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return RunRecord{}, err
	}
	if instruments != "" {
		r.Instruments = strings.Split(instruments, ",")
	}
	r.Config = []byte(cfg)
	return r, nil
}

// ListRuns returns run summaries created within [start, end), oldest first.
func (j *SQLite) ListRuns(ctx context.Context, start, end time.Time) ([]RunRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id FROM runs
		WHERE created >= ? AND created < ?
		ORDER BY created ASC, run_id ASC`, start, end)
	if err != nil {
		return nil, err
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]RunRecord, 0, len(ids))
	for _, id := range ids {
		r, err := j.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// ListTrades returns the trades of runID in close order.
func (j *SQLite) ListTrades(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, run_id, instrument, direction, quantity, entry_price, exit_price, open_time, close_time, realized_pl, commission, reason
		FROM trades
		WHERE run_id = ?
		ORDER BY close_time ASC, trade_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID,
			&rec.RunID,
			&rec.Instrument,
			&rec.Direction,
			&rec.Quantity,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.OpenTime,
			&rec.CloseTime,
			&rec.RealizedPL,
			&rec.Commission,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquity returns the equity curve of runID in time order.
func (j *SQLite) ListEquity(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, capital, equity
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC, rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Time, &e.Capital, &e.Equity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
