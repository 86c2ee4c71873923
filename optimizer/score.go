package optimizer

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/swingtrader/stats"
)

// Metric selects the optimization objective.
type Metric string

const (
	Sharpe           Metric = stats.Sharpe
	Sortino          Metric = stats.Sortino
	TotalReturn      Metric = stats.TotalReturn
	AnnualizedReturn Metric = stats.AnnualizedReturn
	ProfitFactor     Metric = stats.ProfitFactor
	WinRate          Metric = stats.WinRate
	// Composite is 0.4 sharpe + 0.2 total_return + 0.2 win_rate + 0.2 profit_factor.
	Composite Metric = "composite"
)

// ParseMetric parses a metric name.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case Sharpe, Sortino, TotalReturn, AnnualizedReturn, ProfitFactor, WinRate, Composite:
		return m, nil
	}
	return "", fmt.Errorf("unknown optimization metric %q", s)
}

// Score evaluates m over a metric summary.
func Score(m Metric, s stats.Summary) float64 {
	if m == Composite {
		return 0.4*s.Value(stats.Sharpe) +
			0.2*s.Value(stats.TotalReturn) +
			0.2*s.Value(stats.WinRate) +
			0.2*s.Value(stats.ProfitFactor)
	}
	return s.Value(string(m))
}
