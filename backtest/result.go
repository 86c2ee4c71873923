package backtest

import (
	"github.com/rustyeddy/swingtrader/config"
	"github.com/rustyeddy/swingtrader/sim"
	"github.com/rustyeddy/swingtrader/stats"
)

// InsufficientData is the Result.Error of a run where no instrument had
// enough history.
const InsufficientData = "Insufficient data"

// PortfolioSummary is the final state of the run's ledger.
type PortfolioSummary struct {
	InitialCapital  float64 `json:"initial_capital"`
	FinalCapital    float64 `json:"final_capital"`
	TotalCommission float64 `json:"total_commission"`
	TotalSlippage   float64 `json:"total_slippage"`
}

// Result is the outcome of one backtest. A run that could not start for
// data reasons has Success false and Error set; it is not a Go error.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	RunID   string `json:"run_id,omitempty"`

	Config      config.Config `json:"config"`
	Strategy    string        `json:"strategy,omitempty"`
	TradingDays int           `json:"trading_days"`
	Skipped     []string      `json:"skipped,omitempty"`

	Metrics     stats.Metrics     `json:"results"`
	Positions   []sim.Position    `json:"positions"`
	EquityCurve []sim.EquityPoint `json:"equity_curve"`
	Portfolio   PortfolioSummary  `json:"portfolio"`
}

func failed(cfg config.Config, msg string) *Result {
	return &Result{Success: false, Error: msg, Config: cfg}
}
