// Package montecarlo estimates the path risk of a trade list by replaying
// random permutations of its realized P&L.
package montecarlo

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/swingtrader/sim"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NoPositions is the Report.Error when there is nothing to resample.
const NoPositions = "No positions to simulate"

// DrawdownThreshold is the drawdown, in percent, reported by
// Probabilities.Drawdown.
const DrawdownThreshold = 20.0

// Options controls a simulation.
type Options struct {
	Simulations      int       `json:"simulations" yaml:"simulations" mapstructure:"simulations"`
	ConfidenceLevels []float64 `json:"confidence_levels" yaml:"confidence_levels" mapstructure:"confidence_levels"`
	// Seed makes runs reproducible. Zero seeds from the clock.
	Seed uint64 `json:"seed,omitempty" yaml:"seed,omitempty" mapstructure:"seed"`
	// Workers bounds the trials run at once. Values <= 1 run sequentially.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty" mapstructure:"workers"`
	// KeepPaths retains every trial and its equity path in the report.
	KeepPaths bool `json:"keep_paths,omitempty" yaml:"keep_paths,omitempty" mapstructure:"keep_paths"`
}

// DefaultOptions runs 1000 trials with 90/95/99% intervals.
func DefaultOptions() Options {
	return Options{
		Simulations:      1000,
		ConfidenceLevels: []float64{0.90, 0.95, 0.99},
		Workers:          1,
	}
}

func (o Options) validate() error {
	if o.Simulations <= 0 {
		return fmt.Errorf("montecarlo: simulations must be positive, got %d", o.Simulations)
	}
	for _, l := range o.ConfidenceLevels {
		if l <= 0 || l >= 1 {
			return fmt.Errorf("montecarlo: confidence level %.3f must be in (0, 1)", l)
		}
	}
	return nil
}

// Trial is the summary of one permutation.
type Trial struct {
	FinalCapital  float64   `json:"final_capital"`
	TotalReturn   float64   `json:"total_return"`
	TotalPnL      float64   `json:"total_pnl"`
	MaxDrawdown   float64   `json:"max_drawdown"`
	TotalTrades   int       `json:"total_trades"`
	WinningTrades int       `json:"winning_trades"`
	LosingTrades  int       `json:"losing_trades"`
	WinRate       float64   `json:"win_rate"`
	Path          []float64 `json:"path,omitempty"`
}

// Stat describes one metric across trials.
type Stat struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Results are the summary statistics across all trials.
type Results struct {
	Simulations  int    `json:"simulations"`
	Seed         uint64 `json:"seed"`
	Return       Stat   `json:"total_return"`
	Drawdown     Stat   `json:"max_drawdown"`
	FinalCapital Stat   `json:"final_capital"`
}

// Distribution holds the quartiles of one metric.
type Distribution struct {
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
}

type Distributions struct {
	Return       Distribution `json:"total_return"`
	Drawdown     Distribution `json:"max_drawdown"`
	FinalCapital Distribution `json:"final_capital"`
}

// Interval is a symmetric percentile band at Level.
type Interval struct {
	Level         float64 `json:"level"`
	ReturnLower   float64 `json:"return_lower"`
	ReturnUpper   float64 `json:"return_upper"`
	DrawdownLower float64 `json:"drawdown_lower"`
	DrawdownUpper float64 `json:"drawdown_upper"`
}

// WorstCase summarizes the worst 5% of trials by return.
type WorstCase struct {
	Trials        int     `json:"trials"`
	MeanReturn    float64 `json:"mean_return"`
	MeanDrawdown  float64 `json:"mean_drawdown"`
	WorstReturn   float64 `json:"worst_return"`
	WorstDrawdown float64 `json:"worst_drawdown"`
}

// Probabilities are tail frequencies across trials, in [0, 1].
type Probabilities struct {
	Loss     float64 `json:"loss"`
	Drawdown float64 `json:"drawdown_over_20"`
}

// Report is the outcome of a simulation.
type Report struct {
	Success             bool          `json:"success"`
	Error               string        `json:"error,omitempty"`
	Results             Results       `json:"results"`
	Distributions       Distributions `json:"probability_distributions"`
	ConfidenceIntervals []Interval    `json:"confidence_intervals"`
	WorstCase           WorstCase     `json:"worst_case_scenarios"`
	Probabilities       Probabilities `json:"probabilities"`
	Trials              []Trial       `json:"trials,omitempty"`
}

type Option func(*Simulator)

// WithLogger sets the simulator logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Simulator) { s.log = l }
}

// Simulator runs Monte Carlo simulations over closed positions. It holds
// no per-run state and may be shared.
type Simulator struct {
	log zerolog.Logger
}

func New(opts ...Option) *Simulator {
	s := &Simulator{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run replays opts.Simulations permutations of the realized P&L of
// positions starting from initialCapital. Each trial draws from its own
// generator so results do not depend on Workers.
func (s *Simulator) Run(ctx context.Context, positions []sim.Position, initialCapital float64, opts Options) (*Report, error) {
	if initialCapital <= 0 {
		return nil, fmt.Errorf("montecarlo: initial capital must be positive, got %.2f", initialCapital)
	}
	if opts.ConfidenceLevels == nil {
		opts.ConfidenceLevels = DefaultOptions().ConfidenceLevels
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	pnls := make([]float64, 0, len(positions))
	for i := range positions {
		if positions[i].IsOpen() {
			continue
		}
		pnls = append(pnls, positions[i].RealizedPnL())
	}
	if len(pnls) == 0 {
		return &Report{Success: false, Error: NoPositions}, nil
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	s.log.Info().
		Int("trades", len(pnls)).
		Int("simulations", opts.Simulations).
		Uint64("seed", seed).
		Msg("monte carlo start")

	trials := make([]Trial, opts.Simulations)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Workers))
	for i := range trials {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seed, uint64(i)))
			trials[i] = replay(pnls, initialCapital, rng, opts.KeepPaths)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := summarize(trials, opts.ConfidenceLevels)
	rep.Results.Seed = seed
	if opts.KeepPaths {
		rep.Trials = trials
	}

	s.log.Info().
		Float64("mean_return", rep.Results.Return.Mean).
		Float64("prob_loss", rep.Probabilities.Loss).
		Msg("monte carlo finished")
	return rep, nil
}

// replay shuffles a copy of pnls and walks the capital path.
func replay(pnls []float64, initialCapital float64, rng *rand.Rand, keepPath bool) Trial {
	order := append([]float64(nil), pnls...)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	t := Trial{TotalTrades: len(order)}
	if keepPath {
		t.Path = make([]float64, 0, len(order)+1)
		t.Path = append(t.Path, initialCapital)
	}

	capital, peak := initialCapital, initialCapital
	for _, pnl := range order {
		capital += pnl
		t.TotalPnL += pnl
		switch {
		case pnl > 0:
			t.WinningTrades++
		case pnl < 0:
			t.LosingTrades++
		}
		if capital > peak {
			peak = capital
		}
		if peak > 0 {
			t.MaxDrawdown = math.Max(t.MaxDrawdown, (peak-capital)/peak*100)
		}
		if keepPath {
			t.Path = append(t.Path, capital)
		}
	}

	t.FinalCapital = capital
	t.TotalReturn = (capital - initialCapital) / initialCapital * 100
	t.WinRate = float64(t.WinningTrades) / float64(t.TotalTrades) * 100
	return t
}

func summarize(trials []Trial, levels []float64) *Report {
	n := len(trials)
	returns := make([]float64, n)
	drawdowns := make([]float64, n)
	finals := make([]float64, n)
	var losses, deep int
	for i, t := range trials {
		returns[i] = t.TotalReturn
		drawdowns[i] = t.MaxDrawdown
		finals[i] = t.FinalCapital
		if t.TotalReturn < 0 {
			losses++
		}
		if t.MaxDrawdown > DrawdownThreshold {
			deep++
		}
	}

	rep := &Report{
		Success: true,
		Results: Results{
			Simulations:  n,
			Return:       describe(returns),
			Drawdown:     describe(drawdowns),
			FinalCapital: describe(finals),
		},
		Probabilities: Probabilities{
			Loss:     float64(losses) / float64(n),
			Drawdown: float64(deep) / float64(n),
		},
	}

	sortedReturns := sorted(returns)
	sortedDrawdowns := sorted(drawdowns)
	sortedFinals := sorted(finals)
	rep.Distributions = Distributions{
		Return:       quartiles(sortedReturns),
		Drawdown:     quartiles(sortedDrawdowns),
		FinalCapital: quartiles(sortedFinals),
	}

	for _, l := range levels {
		tail := (1 - l) / 2
		rep.ConfidenceIntervals = append(rep.ConfidenceIntervals, Interval{
			Level:         l,
			ReturnLower:   Percentile(sortedReturns, tail),
			ReturnUpper:   Percentile(sortedReturns, 1-tail),
			DrawdownLower: Percentile(sortedDrawdowns, tail),
			DrawdownUpper: Percentile(sortedDrawdowns, 1-tail),
		})
	}

	rep.WorstCase = worstCase(trials)
	return rep
}

// worstCase averages the lowest-return 5% of trials, at least one.
func worstCase(trials []Trial) WorstCase {
	byReturn := append([]Trial(nil), trials...)
	sort.SliceStable(byReturn, func(i, j int) bool {
		return byReturn[i].TotalReturn < byReturn[j].TotalReturn
	})
	k := max(1, int(float64(len(byReturn))*0.05))
	bucket := byReturn[:k]

	wc := WorstCase{Trials: k, WorstReturn: byReturn[0].TotalReturn}
	for _, t := range bucket {
		wc.MeanReturn += t.TotalReturn
		wc.MeanDrawdown += t.MaxDrawdown
	}
	wc.MeanReturn /= float64(k)
	wc.MeanDrawdown /= float64(k)
	for _, t := range trials {
		wc.WorstDrawdown = math.Max(wc.WorstDrawdown, t.MaxDrawdown)
	}
	return wc
}

func describe(xs []float64) Stat {
	mean, std := stat.PopMeanStdDev(xs, nil)
	return Stat{Mean: mean, StdDev: std, Min: floats.Min(xs), Max: floats.Max(xs)}
}

func quartiles(sortedXs []float64) Distribution {
	return Distribution{
		P25: Percentile(sortedXs, 0.25),
		P50: Percentile(sortedXs, 0.50),
		P75: Percentile(sortedXs, 0.75),
	}
}

func sorted(xs []float64) []float64 {
	out := append([]float64(nil), xs...)
	sort.Float64s(out)
	return out
}

// Percentile returns the order statistic at index ceil(p*(n-1)) of an
// ascending slice. p is clamped to [0, 1]; an empty slice yields 0.
func Percentile(sortedXs []float64, p float64) float64 {
	n := len(sortedXs)
	if n == 0 {
		return 0
	}
	p = math.Max(0, math.Min(1, p))
	idx := int(math.Ceil(p * float64(n-1)))
	return sortedXs[min(idx, n-1)]
}
