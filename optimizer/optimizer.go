package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/swingtrader/backtest"
	"github.com/rustyeddy/swingtrader/config"
	"github.com/rustyeddy/swingtrader/stats"
	"github.com/rustyeddy/swingtrader/walkforward"
	"golang.org/x/sync/errgroup"
)

// NoResults is the Report.Error when every combination failed.
const NoResults = "No parameter combination produced a result"

// Options controls a search.
type Options struct {
	Metric Metric `json:"metric" yaml:"metric" mapstructure:"metric"`
	// UseWalkForward scores on aggregated out-of-sample metrics instead of
	// a single backtest over the whole range.
	UseWalkForward bool                `json:"use_walk_forward" yaml:"use_walk_forward" mapstructure:"use_walk_forward"`
	WalkForward    walkforward.Options `json:"walk_forward" yaml:"walk_forward" mapstructure:"walk_forward"`
	// Workers bounds the combinations evaluated at once.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// DefaultOptions optimizes Sharpe on walk-forward out-of-sample results.
func DefaultOptions() Options {
	return Options{
		Metric:         Sharpe,
		UseWalkForward: true,
		WalkForward:    walkforward.DefaultOptions(),
		Workers:        1,
	}
}

// Result is one evaluated combination.
type Result struct {
	Parameters Params        `json:"parameters"`
	Score      float64       `json:"score"`
	Metrics    stats.Summary `json:"metrics"`
}

// Report is the outcome of a search. AllResults is ordered by descending
// score.
type Report struct {
	Success        bool                   `json:"success"`
	Error          string                 `json:"error,omitempty"`
	Metric         Metric                 `json:"metric"`
	UseWalkForward bool                   `json:"use_walk_forward"`
	Tested         int                    `json:"tested"`
	Failed         int                    `json:"failed"`
	BestParameters Params                 `json:"best_parameters,omitempty"`
	BestScore      float64                `json:"best_score"`
	BestMetrics    stats.Summary          `json:"best_metrics,omitempty"`
	AllResults     []Result               `json:"all_results"`
	Sensitivity    map[string]Sensitivity `json:"sensitivity_analysis"`
}

// Option configures an Optimizer.
type Option func(*Optimizer)

func WithLogger(l zerolog.Logger) Option {
	return func(o *Optimizer) { o.log = l }
}

// Optimizer evaluates parameter combinations through a backtest.Runner.
type Optimizer struct {
	runner backtest.Runner
	log    zerolog.Logger
}

func New(r backtest.Runner, opts ...Option) *Optimizer {
	o := &Optimizer{runner: r, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run scores every combination of space applied to base. Combinations whose
// config or strategy overrides are rejected, or whose run reports a failure,
// are logged and left out. Any other error aborts the search.
func (o *Optimizer) Run(ctx context.Context, base config.Config, space Space, opts Options) (*Report, error) {
	if o.runner == nil {
		return nil, fmt.Errorf("optimizer: runner is required")
	}
	if opts.Metric == "" {
		opts.Metric = Sharpe
	}
	if _, err := ParseMetric(string(opts.Metric)); err != nil {
		return nil, fmt.Errorf("optimizer: %w", err)
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}

	combos := Combinations(space)
	if len(combos) == 0 {
		return nil, fmt.Errorf("optimizer: parameter space is empty")
	}

	wf := walkforward.New(o.runner, walkforward.WithLogger(o.log.With().Str("component", "walkforward").Logger()))

	o.log.Info().
		Int("combinations", len(combos)).
		Str("metric", string(opts.Metric)).
		Bool("walk_forward", opts.UseWalkForward).
		Msg("optimizer start")

	results := make([]*Result, len(combos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Workers))
	for i, p := range combos {
		g.Go(func() error {
			summary, err := o.evaluate(gctx, wf, Apply(base, p), opts)
			if err != nil {
				if rejected(err) {
					o.log.Warn().Err(err).Stringer("params", p).Msg("combination rejected")
					return nil
				}
				return fmt.Errorf("optimizer %s: %w", p, err)
			}
			if summary == nil {
				return nil
			}
			results[i] = &Result{Parameters: p, Score: Score(opts.Metric, summary), Metrics: summary}
			o.log.Debug().Stringer("params", p).Float64("score", results[i].Score).Msg("combination scored")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &Report{
		Metric:         opts.Metric,
		UseWalkForward: opts.UseWalkForward,
		Tested:         len(combos),
	}
	for _, r := range results {
		if r == nil {
			rep.Failed++
			continue
		}
		rep.AllResults = append(rep.AllResults, *r)
	}
	if len(rep.AllResults) == 0 {
		rep.Error = NoResults
		rep.AllResults = []Result{}
		rep.Sensitivity = map[string]Sensitivity{}
		return rep, nil
	}

	sort.SliceStable(rep.AllResults, func(i, j int) bool {
		return rep.AllResults[i].Score > rep.AllResults[j].Score
	})
	best := rep.AllResults[0]
	rep.Success = true
	rep.BestParameters = best.Parameters
	rep.BestScore = best.Score
	rep.BestMetrics = best.Metrics
	rep.Sensitivity = Analyze(rep.AllResults)

	o.log.Info().
		Stringer("best", best.Parameters).
		Float64("score", stats.Round(best.Score, 4)).
		Int("failed", rep.Failed).
		Msg("optimizer finished")
	return rep, nil
}

// evaluate returns the summary a combination is scored on, or nil when the
// run reported a failure.
func (o *Optimizer) evaluate(ctx context.Context, wf *walkforward.Analyzer, cfg config.Config, opts Options) (stats.Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if opts.UseWalkForward {
		rep, err := wf.Run(ctx, cfg, opts.WalkForward)
		if err != nil {
			return nil, err
		}
		if !rep.Success {
			o.log.Warn().Str("error", rep.Error).Msg("walk-forward failed")
			return nil, nil
		}
		return rep.Aggregated.OutOfSample, nil
	}

	res, err := o.runner.Run(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		o.log.Warn().Str("error", res.Error).Msg("backtest failed")
		return nil, nil
	}
	return res.Metrics.Summarize(), nil
}

func rejected(err error) bool {
	var cerr *config.ConfigurationError
	return errors.As(err, &cerr) || errors.Is(err, backtest.ErrStrategyOverrides)
}
