package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/swingtrader/market"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// SizingMethod selects how position quantity is derived when a signal does
// not carry one.
type SizingMethod string

const (
	RiskBased   SizingMethod = "risk_based"
	Fixed       SizingMethod = "fixed"
	EqualWeight SizingMethod = "equal_weight"
)

// Variant selects the backtest driver loop.
type Variant string

const (
	Swing    Variant = "swing"
	LongTerm Variant = "long_term"
)

// Rebalance is the long-term rebalance cadence.
type Rebalance string

const (
	Weekly  Rebalance = "weekly"
	Monthly Rebalance = "monthly"
)

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time `json:"from" yaml:"from" mapstructure:"from"`
	To   time.Time `json:"to" yaml:"to" mapstructure:"to"`
}

// Days returns the inclusive number of calendar days in the range.
func (r DateRange) Days() int {
	return market.DaysBetween(r.From, r.To) + 1
}

// LongTermConfig holds the rebalancing constraints of the long-term variant.
type LongTermConfig struct {
	Rebalance      Rebalance `json:"rebalance" yaml:"rebalance" mapstructure:"rebalance"`
	MaxPositions   int       `json:"max_positions" yaml:"max_positions" mapstructure:"max_positions"`
	MinHoldingDays int       `json:"min_holding_days" yaml:"min_holding_days" mapstructure:"min_holding_days"`
}

// Config holds the immutable parameters of one simulation run. All
// percentages are expressed in percent (2.0 == 2%).
type Config struct {
	InitialCapital     float64      `json:"initial_capital" yaml:"initial_capital" mapstructure:"initial_capital"`
	RiskPerTrade       float64      `json:"risk_per_trade" yaml:"risk_per_trade" mapstructure:"risk_per_trade"`
	CommissionRate     float64      `json:"commission_rate" yaml:"commission_rate" mapstructure:"commission_rate"`
	SlippagePct        float64      `json:"slippage_pct" yaml:"slippage_pct" mapstructure:"slippage_pct"`
	PositionSizing     SizingMethod `json:"position_sizing" yaml:"position_sizing" mapstructure:"position_sizing"`
	FixedPositionValue float64      `json:"fixed_position_value,omitempty" yaml:"fixed_position_value,omitempty" mapstructure:"fixed_position_value"`

	DateRange   DateRange        `json:"date_range" yaml:"date_range" mapstructure:"date_range"`
	Instruments []string         `json:"instruments" yaml:"instruments" mapstructure:"instruments"`
	Timeframe   market.Timeframe `json:"timeframe" yaml:"timeframe" mapstructure:"timeframe"`
	Variant     Variant          `json:"variant" yaml:"variant" mapstructure:"variant"`

	TrailingStopPct    float64 `json:"trailing_stop_pct,omitempty" yaml:"trailing_stop_pct,omitempty" mapstructure:"trailing_stop_pct"`
	TrailingStopAmount float64 `json:"trailing_stop_amount,omitempty" yaml:"trailing_stop_amount,omitempty" mapstructure:"trailing_stop_amount"`

	// LookbackDays of history loaded before DateRange.From for indicator warmup.
	LookbackDays int `json:"lookback_days" yaml:"lookback_days" mapstructure:"lookback_days"`
	// MinBars overrides the timeframe default (50 daily, 10 weekly) when > 0.
	MinBars int `json:"min_bars,omitempty" yaml:"min_bars,omitempty" mapstructure:"min_bars"`

	LongTerm LongTermConfig `json:"long_term" yaml:"long_term" mapstructure:"long_term"`

	StrategyOverrides map[string]float64 `json:"strategy_overrides,omitempty" yaml:"strategy_overrides,omitempty" mapstructure:"strategy_overrides"`
}

// RiskAmountPerTrade is the currency amount risked per trade, rounded to cents.
func (c Config) RiskAmountPerTrade() float64 {
	amt := decimal.NewFromFloat(c.InitialCapital).
		Mul(decimal.NewFromFloat(c.RiskPerTrade)).
		Div(decimal.NewFromInt(100)).
		Round(2)
	return amt.InexactFloat64()
}

// ApplySlippage worsens a fill price: buys pay more, sells receive less.
func (c Config) ApplySlippage(price float64, side market.Side) float64 {
	adj := price * c.SlippagePct / 100
	if side == market.Sell {
		return price - adj
	}
	return price + adj
}

// ApplyCommission returns amount with commission added on top.
func (c Config) ApplyCommission(amount float64) float64 {
	return amount * (1 + c.CommissionRate/100)
}

// Commission returns the standalone commission fee charged on amount.
func (c Config) Commission(amount float64) float64 {
	return amount * c.CommissionRate / 100
}

// EffectiveMinBars returns the minimum bar count required before a strategy
// is evaluated on an instrument.
func (c Config) EffectiveMinBars() int {
	if c.MinBars > 0 {
		return c.MinBars
	}
	return c.Timeframe.MinBars()
}

// LoadFrom is the first day of history fetched from the feed.
func (c Config) LoadFrom() time.Time {
	return market.DateOf(c.DateRange.From).AddDate(0, 0, -c.LookbackDays)
}

// WithDateRange returns a copy of c covering [from, to].
func (c Config) WithDateRange(from, to time.Time) Config {
	out := c.Clone()
	out.DateRange = DateRange{From: market.DateOf(from), To: market.DateOf(to)}
	return out
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := c
	out.Instruments = append([]string(nil), c.Instruments...)
	if c.StrategyOverrides != nil {
		out.StrategyOverrides = maps.Clone(c.StrategyOverrides)
	}
	return out
}

// Validate checks every constraint and reports all violations at once.
func (c Config) Validate() error {
	var v []string

	if c.InitialCapital <= 0 {
		v = append(v, "initial_capital must be positive")
	}
	if c.RiskPerTrade < 0.1 || c.RiskPerTrade > 10 {
		v = append(v, "risk_per_trade must be between 0.1 and 10")
	}
	if c.CommissionRate < 0 {
		v = append(v, "commission_rate must not be negative")
	}
	if c.SlippagePct < 0 {
		v = append(v, "slippage_pct must not be negative")
	}
	switch c.PositionSizing {
	case RiskBased, Fixed, EqualWeight:
	default:
		v = append(v, fmt.Sprintf("unknown position_sizing %q", c.PositionSizing))
	}
	if c.FixedPositionValue < 0 {
		v = append(v, "fixed_position_value must not be negative")
	}
	if !c.DateRange.From.Before(c.DateRange.To) {
		v = append(v, "date_range.from must be before date_range.to")
	}
	if !c.Timeframe.Valid() {
		v = append(v, fmt.Sprintf("unknown timeframe %q", c.Timeframe))
	}
	if c.TrailingStopPct < 0 || c.TrailingStopAmount < 0 {
		v = append(v, "trailing stop must not be negative")
	}
	if c.LookbackDays < 0 {
		v = append(v, "lookback_days must not be negative")
	}

	switch c.Variant {
	case Swing:
	case LongTerm:
		if c.LongTerm.Rebalance != Weekly && c.LongTerm.Rebalance != Monthly {
			v = append(v, fmt.Sprintf("unknown long_term.rebalance %q", c.LongTerm.Rebalance))
		}
		if c.LongTerm.MaxPositions <= 0 {
			v = append(v, "long_term.max_positions must be positive")
		}
		if c.LongTerm.MinHoldingDays < 0 {
			v = append(v, "long_term.min_holding_days must not be negative")
		}
	default:
		v = append(v, fmt.Sprintf("unknown variant %q", c.Variant))
	}

	if len(v) > 0 {
		return &ConfigurationError{Violations: v}
	}
	return nil
}

// LoadFromFile resolves a configuration from defaults, the file at path and
// the environment, in that order.
func LoadFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return NewResolver().WithFile(path).Resolve()
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		InitialCapital: 100000,
		RiskPerTrade:   1.0,
		CommissionRate: 0.1,
		SlippagePct:    0.05,
		PositionSizing: RiskBased,
		DateRange: DateRange{
			From: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		Instruments:  []string{"AAPL", "MSFT", "NVDA", "SPY"},
		Timeframe:    market.Daily,
		Variant:      Swing,
		LookbackDays: 365,
		LongTerm: LongTermConfig{
			Rebalance:      Monthly,
			MaxPositions:   5,
			MinHoldingDays: 30,
		},
	}
}
