package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rustyeddy/swingtrader/market"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// SWINGTRADER_RISK_PER_TRADE=1.5 or SWINGTRADER_DATE_RANGE_FROM=2024-01-01.
const EnvPrefix = "SWINGTRADER"

const dateLayout = "2006-01-02"

// Resolver builds a Config from layered sources. Precedence, lowest first:
// hard defaults, config file, environment, explicit Set calls.
type Resolver struct {
	v    *viper.Viper
	file string
}

// NewResolver returns a resolver seeded with Default().
func NewResolver() *Resolver {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Resolver{v: v}
}

// WithFile adds a YAML or JSON config file layer.
func (r *Resolver) WithFile(path string) *Resolver {
	r.file = path
	return r
}

// Set pins key to value above every other layer. Keys use the dotted
// mapstructure names, e.g. "long_term.max_positions".
func (r *Resolver) Set(key string, value any) *Resolver {
	r.v.Set(key, value)
	return r
}

// Resolve merges all layers, decodes and validates the result.
func (r *Resolver) Resolve() (*Config, error) {
	if r.file != "" {
		r.v.SetConfigFile(r.file)
		if ext := strings.ToLower(filepath.Ext(r.file)); ext == ".yml" {
			r.v.SetConfigType("yaml")
		}
		if err := r.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", r.file, err)
		}
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		dateHook(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := r.v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.DateRange.From = market.DateOf(cfg.DateRange.From)
	cfg.DateRange.To = market.DateOf(cfg.DateRange.To)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("initial_capital", d.InitialCapital)
	v.SetDefault("risk_per_trade", d.RiskPerTrade)
	v.SetDefault("commission_rate", d.CommissionRate)
	v.SetDefault("slippage_pct", d.SlippagePct)
	v.SetDefault("position_sizing", string(d.PositionSizing))
	v.SetDefault("fixed_position_value", d.FixedPositionValue)
	v.SetDefault("date_range.from", d.DateRange.From.Format(dateLayout))
	v.SetDefault("date_range.to", d.DateRange.To.Format(dateLayout))
	v.SetDefault("instruments", d.Instruments)
	v.SetDefault("timeframe", string(d.Timeframe))
	v.SetDefault("variant", string(d.Variant))
	v.SetDefault("trailing_stop_pct", d.TrailingStopPct)
	v.SetDefault("trailing_stop_amount", d.TrailingStopAmount)
	v.SetDefault("lookback_days", d.LookbackDays)
	v.SetDefault("min_bars", d.MinBars)
	v.SetDefault("long_term.rebalance", string(d.LongTerm.Rebalance))
	v.SetDefault("long_term.max_positions", d.LongTerm.MaxPositions)
	v.SetDefault("long_term.min_holding_days", d.LongTerm.MinHoldingDays)
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: want YYYY-MM-DD", s)
	}
	return market.DateOf(t), nil
}

func dateHook() mapstructure.DecodeHookFuncType {
	timeType := reflect.TypeOf(time.Time{})
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != timeType || f.Kind() != reflect.String {
			return data, nil
		}
		return ParseDate(data.(string))
	}
}
