// Package strategy holds the reference evaluators driven by the backtest
// engine and the command line.
package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/swingtrader/backtest"
)

var registry = map[string]func() backtest.Configurable{
	TrendFollowerName: func() backtest.Configurable { return NewTrendFollower() },
	MomentumName:      func() backtest.Configurable { return NewMomentum() },
}

// ByName returns a fresh evaluator with default parameters.
func ByName(name string) (backtest.Configurable, error) {
	mk, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return mk(), nil
}

// Names lists the registered strategies.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
