package walkforward

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/swingtrader/backtest"
	"github.com/rustyeddy/swingtrader/config"
	"github.com/rustyeddy/swingtrader/stats"
	"golang.org/x/sync/errgroup"
)

// NoWindows is the Report.Error of a range too short for a single window.
const NoWindows = "Date range too short for walk-forward windows"

// Options controls window generation and parallelism.
type Options struct {
	WindowType      WindowType `json:"window_type" yaml:"window_type" mapstructure:"window_type"`
	InSampleDays    int        `json:"in_sample_days" yaml:"in_sample_days" mapstructure:"in_sample_days"`
	OutOfSampleDays int        `json:"out_of_sample_days" yaml:"out_of_sample_days" mapstructure:"out_of_sample_days"`
	// Workers bounds the windows run at once. Values <= 1 run sequentially.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// DefaultOptions is a rolling 180/60 day split.
func DefaultOptions() Options {
	return Options{
		WindowType:      Rolling,
		InSampleDays:    180,
		OutOfSampleDays: 60,
		Workers:         1,
	}
}

// WindowResult holds both runs of one window. Success is false when either
// run reported a failure; such windows are left out of every aggregate.
type WindowResult struct {
	Window      Window         `json:"window"`
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
	InSample    *stats.Metrics `json:"in_sample,omitempty"`
	OutOfSample *stats.Metrics `json:"out_of_sample,omitempty"`
	Consistency float64        `json:"consistency_score"`
}

// Aggregated holds per-metric means across the successful windows.
type Aggregated struct {
	InSample    stats.Summary `json:"in_sample"`
	OutOfSample stats.Summary `json:"out_of_sample"`
}

// Comparison relates out-of-sample to in-sample performance.
type Comparison struct {
	// Degradation is (IS-OOS)/|IS|*100 per metric, 0 when IS is 0.
	Degradation map[string]float64 `json:"degradation"`
	// DrawdownIncrease is (OOS-IS)/|IS|*100 of the max drawdown.
	DrawdownIncrease float64 `json:"drawdown_increase"`
	// ConsistencyScore is the mean score of the successful windows.
	ConsistencyScore  float64 `json:"consistency_score"`
	Windows           int     `json:"windows"`
	SuccessfulWindows int     `json:"successful_windows"`
}

// Report is the outcome of a walk-forward analysis.
type Report struct {
	Success     bool            `json:"success"`
	Error       string          `json:"error,omitempty"`
	Options     Options         `json:"options"`
	Windows     []WindowResult  `json:"windows"`
	InSample    []stats.Metrics `json:"in_sample_results"`
	OutOfSample []stats.Metrics `json:"out_of_sample_results"`
	Aggregated  Aggregated      `json:"aggregated"`
	Comparison  Comparison      `json:"comparison"`
}

// compared are the metrics reported in Comparison.Degradation.
var compared = []string{
	stats.TotalReturn,
	stats.AnnualizedReturn,
	stats.Sharpe,
	stats.Sortino,
	stats.WinRate,
	stats.ProfitFactor,
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the analyzer logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

// Analyzer runs walk-forward analyses through a backtest.Runner.
type Analyzer struct {
	runner backtest.Runner
	log    zerolog.Logger
}

func New(r backtest.Runner, opts ...Option) *Analyzer {
	a := &Analyzer{runner: r, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run generates windows over cfg.DateRange and backtests each window twice.
// Every run starts from cfg.InitialCapital so windows stay comparable.
func (a *Analyzer) Run(ctx context.Context, cfg config.Config, opts Options) (*Report, error) {
	if a.runner == nil {
		return nil, fmt.Errorf("walkforward: runner is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.WindowType == "" {
		opts.WindowType = Rolling
	}
	if opts.WindowType != Rolling && opts.WindowType != Expanding {
		return nil, fmt.Errorf("walkforward: unknown window type %q", opts.WindowType)
	}
	if opts.InSampleDays <= 0 || opts.OutOfSampleDays <= 0 {
		return nil, fmt.Errorf("walkforward: in_sample_days and out_of_sample_days must be positive")
	}

	windows := GenerateWindows(cfg.DateRange.From, cfg.DateRange.To, opts.InSampleDays, opts.OutOfSampleDays, opts.WindowType)
	if len(windows) == 0 {
		return &Report{Success: false, Error: NoWindows, Options: opts}, nil
	}

	a.log.Info().
		Str("window_type", string(opts.WindowType)).
		Int("windows", len(windows)).
		Int("workers", max(1, opts.Workers)).
		Msg("walk-forward start")

	results := make([]WindowResult, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Workers))
	for i, w := range windows {
		g.Go(func() error {
			wr, err := a.runWindow(gctx, cfg, w)
			if err != nil {
				return fmt.Errorf("walkforward window %d: %w", w.Index, err)
			}
			results[i] = wr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := summarize(results)
	rep.Options = opts

	a.log.Info().
		Int("successful", rep.Comparison.SuccessfulWindows).
		Float64("consistency", stats.Round(rep.Comparison.ConsistencyScore, 2)).
		Msg("walk-forward finished")
	return rep, nil
}

func (a *Analyzer) runWindow(ctx context.Context, cfg config.Config, w Window) (WindowResult, error) {
	wr := WindowResult{Window: w}

	is, err := a.runner.Run(ctx, cfg.WithDateRange(w.InSampleStart, w.InSampleEnd))
	if err != nil {
		return wr, err
	}
	oos, err := a.runner.Run(ctx, cfg.WithDateRange(w.OutOfSampleStart, w.OutOfSampleEnd))
	if err != nil {
		return wr, err
	}

	switch {
	case !is.Success:
		wr.Error = "in-sample: " + is.Error
	case !oos.Success:
		wr.Error = "out-of-sample: " + oos.Error
	default:
		wr.Success = true
		wr.InSample = &is.Metrics
		wr.OutOfSample = &oos.Metrics
		wr.Consistency = ConsistencyScore(is.Metrics.TotalReturn, oos.Metrics.TotalReturn)
	}

	a.log.Debug().
		Stringer("window", w).
		Bool("success", wr.Success).
		Float64("consistency", wr.Consistency).
		Msg("walk-forward window")
	return wr, nil
}

func summarize(results []WindowResult) *Report {
	rep := &Report{Windows: results}

	var consistency float64
	for _, wr := range results {
		if !wr.Success {
			continue
		}
		rep.InSample = append(rep.InSample, *wr.InSample)
		rep.OutOfSample = append(rep.OutOfSample, *wr.OutOfSample)
		consistency += wr.Consistency
	}

	n := len(rep.InSample)
	rep.Comparison.Windows = len(results)
	rep.Comparison.SuccessfulWindows = n
	if n == 0 {
		rep.Error = "No successful walk-forward windows"
		rep.Aggregated = Aggregated{InSample: stats.Summary{}, OutOfSample: stats.Summary{}}
		rep.Comparison.Degradation = map[string]float64{}
		return rep
	}

	rep.Success = true
	rep.Aggregated = Aggregated{
		InSample:    stats.Mean(rep.InSample),
		OutOfSample: stats.Mean(rep.OutOfSample),
	}

	is, oos := rep.Aggregated.InSample, rep.Aggregated.OutOfSample
	rep.Comparison.Degradation = make(map[string]float64, len(compared))
	for _, name := range compared {
		rep.Comparison.Degradation[name] = change(is.Value(name), oos.Value(name))
	}
	rep.Comparison.DrawdownIncrease = -change(is.Value(stats.MaxDrawdown), oos.Value(stats.MaxDrawdown))
	rep.Comparison.ConsistencyScore = consistency / float64(n)
	return rep
}

// change is (is-oos)/|is|*100, or 0 when is is 0.
func change(is, oos float64) float64 {
	if is == 0 {
		return 0
	}
	return (is - oos) / math.Abs(is) * 100
}

// ConsistencyScore grades an out-of-sample return against its in-sample
// return: 0 below half of it, 100 at or above 80% of it, linear in between.
func ConsistencyScore(isReturn, oosReturn float64) float64 {
	lo, hi := 0.5*isReturn, 0.8*isReturn
	switch {
	case oosReturn < lo:
		return 0
	case oosReturn >= hi:
		return 100
	}
	score := (oosReturn - lo) / (hi - lo) * 100
	return math.Max(0, math.Min(100, score))
}
