package cmd

import (
	"io"

	"github.com/rustyeddy/swingtrader/walkforward"
	"github.com/spf13/cobra"
)

var walkforwardCmd = &cobra.Command{
	Use:     "walkforward",
	Aliases: []string{"wf"},
	Short:   "Validate a configuration on in-sample / out-of-sample windows",
	Long: `Walkforward splits the date range into sequential windows and backtests
each window's in-sample and out-of-sample span from the same starting capital.
It reports per-window results, averages, degradation and a consistency score.

Example:
  swingtrader walkforward --candles data/daily --window-type rolling --in-sample 180 --out-of-sample 60`,
	Args: cobra.NoArgs,
	RunE: runWalkForward,
}

var (
	wfWindowType  string
	wfInSample    int
	wfOutOfSample int
	wfWorkers     int
)

func init() {
	rootCmd.AddCommand(walkforwardCmd)
	addWindowFlags(walkforwardCmd)
}

func addWindowFlags(c *cobra.Command) {
	d := walkforward.DefaultOptions()
	c.Flags().StringVar(&wfWindowType, "window-type", string(d.WindowType), "window type (rolling, expanding)")
	c.Flags().IntVar(&wfInSample, "in-sample", d.InSampleDays, "in-sample days per window")
	c.Flags().IntVar(&wfOutOfSample, "out-of-sample", d.OutOfSampleDays, "out-of-sample days per window")
	c.Flags().IntVar(&wfWorkers, "wf-workers", d.Workers, "windows run in parallel")
}

func windowOptions() (walkforward.Options, error) {
	wt, err := walkforward.ParseWindowType(wfWindowType)
	if err != nil {
		return walkforward.Options{}, err
	}
	return walkforward.Options{
		WindowType:      wt,
		InSampleDays:    wfInSample,
		OutOfSampleDays: wfOutOfSample,
		Workers:         wfWorkers,
	}, nil
}

func runWalkForward(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := windowOptions()
	if err != nil {
		return err
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	a := walkforward.New(e.engine, walkforward.WithLogger(logger))
	rep, err := a.Run(cmd.Context(), *cfg, opts)
	if err != nil {
		return err
	}

	return output(cmd.OutOrStdout(), rep, func(w io.Writer) {
		walkforward.PrintReport(w, rep)
	})
}
