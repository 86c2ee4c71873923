// Package journal records completed simulation runs: their closed trades,
// equity curve and summary metrics.
package journal

import "time"

// TradeRecord is one closed position of a run.
type TradeRecord struct {
	RunID      string
	TradeID    string
	Instrument string
	Direction  string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	Commission float64
	Reason     string
}

// EquitySnapshot is one point of a run's equity curve.
type EquitySnapshot struct {
	RunID   string
	Time    time.Time
	Capital float64
	Equity  float64
}

// RunRecord summarizes a completed run.
type RunRecord struct {
	RunID       string
	Created     time.Time
	Variant     string
	Timeframe   string
	Strategy    string
	Instruments []string
	Config      []byte // JSON encoded config

	Start time.Time
	End   time.Time

	Trades int
	Wins   int
	Losses int

	StartBalance float64
	EndBalance   float64

	NetPL        float64
	ReturnPct    float64
	WinRate      float64
	ProfitFactor float64
	MaxDDPct     float64
	Sharpe       float64
}

// Journal persists run output. Implementations must be safe for use by
// concurrent runs.
type Journal interface {
	RecordRun(RunRecord) error
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}
