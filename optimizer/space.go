// Package optimizer searches a parameter grid for the configuration that
// scores best, by default on walk-forward out-of-sample metrics.
package optimizer

import (
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"

	"github.com/rustyeddy/swingtrader/config"
	"github.com/shopspring/decimal"
)

// Values are the candidate values of one parameter.
type Values []float64

// Range enumerates from, from+step, ... up to and including to. A
// non-positive step or to below from yields just from.
func Range(from, to, step float64) Values {
	if step <= 0 || to < from {
		return Values{from}
	}
	lo, hi, st := decimal.NewFromFloat(from), decimal.NewFromFloat(to), decimal.NewFromFloat(step)

	var out Values
	for v := lo; v.LessThanOrEqual(hi); v = v.Add(st) {
		out = append(out, v.InexactFloat64())
	}
	return out
}

// Scalar is a single fixed value.
func Scalar(v float64) Values { return Values{v} }

// Space maps parameter names to their candidate values.
type Space map[string]Values

// Keys returns the parameter names, sorted.
func (s Space) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Size is the number of combinations in s.
func (s Space) Size() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, vs := range s {
		n *= len(vs)
	}
	return n
}

// Params is one point of a Space.
type Params map[string]float64

func (p Params) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.FormatFloat(p[k], 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

// Combinations builds the cartesian product of s. Keys are taken in sorted
// order and the last key varies fastest. Any empty dimension empties the
// product.
func Combinations(s Space) []Params {
	keys := s.Keys()
	if len(keys) == 0 {
		return nil
	}

	out := []Params{{}}
	for _, k := range keys {
		vs := s[k]
		next := make([]Params, 0, len(out)*len(vs))
		for _, p := range out {
			for _, v := range vs {
				q := maps.Clone(p)
				q[k] = v
				next = append(next, q)
			}
		}
		out = next
	}
	return out
}

// ParseSpace parses "name=v1,v2,..." lists and "name=min:max:step" ranges.
func ParseSpace(specs []string) (Space, error) {
	s := Space{}
	for _, spec := range specs {
		name, rhs, ok := strings.Cut(spec, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.TrimSpace(rhs) == "" {
			return nil, fmt.Errorf("parameter %q: want name=v1,v2 or name=min:max:step", spec)
		}

		if parts := strings.Split(rhs, ":"); len(parts) == 3 {
			var nums [3]float64
			for i, p := range parts {
				v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
				if err != nil {
					return nil, fmt.Errorf("parameter %q: %w", spec, err)
				}
				nums[i] = v
			}
			s[name] = Range(nums[0], nums[1], nums[2])
			continue
		}

		var vs Values
		for _, p := range strings.Split(rhs, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", spec, err)
			}
			vs = append(vs, v)
		}
		s[name] = vs
	}
	return s, nil
}

// Apply returns a copy of base with p applied. Names of Config fields set
// those fields; every other name becomes a strategy override.
func Apply(base config.Config, p Params) config.Config {
	cfg := base.Clone()
	for k, v := range p {
		switch k {
		case "risk_per_trade":
			cfg.RiskPerTrade = v
		case "commission_rate":
			cfg.CommissionRate = v
		case "slippage_pct":
			cfg.SlippagePct = v
		case "fixed_position_value":
			cfg.FixedPositionValue = v
		case "trailing_stop_pct":
			cfg.TrailingStopPct = v
		case "trailing_stop_amount":
			cfg.TrailingStopAmount = v
		case "lookback_days":
			cfg.LookbackDays = int(v)
		case "min_bars":
			cfg.MinBars = int(v)
		case "max_positions":
			cfg.LongTerm.MaxPositions = int(v)
		case "min_holding_days":
			cfg.LongTerm.MinHoldingDays = int(v)
		default:
			if cfg.StrategyOverrides == nil {
				cfg.StrategyOverrides = map[string]float64{}
			}
			cfg.StrategyOverrides[k] = v
		}
	}
	return cfg
}
