package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/san-kum/grfbalance/internal/analysis"
	"github.com/san-kum/grfbalance/internal/config"
	"github.com/san-kum/grfbalance/internal/experiment"
	"github.com/san-kum/grfbalance/internal/optim"
	"github.com/san-kum/grfbalance/internal/sim"
	"github.com/san-kum/grfbalance/internal/storage"
)

func analyzeCmd() *cobra.Command {
	var (
		column string
		target float64
		band   float64
	)
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "settling analysis of one column of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			times, values, err := storage.New(dataDir).LoadSeries(args[0], column)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("target") && len(values) > 0 {
				target = values[len(values)-1]
			}
			r, err := analysis.Analyze(times, values, target, band)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "column\t%s\n", column)
			fmt.Fprintf(w, "initial\t%.5g\n", r.Initial)
			fmt.Fprintf(w, "final\t%.5g\n", r.Final)
			fmt.Fprintf(w, "target\t%.5g\n", r.Target)
			fmt.Fprintf(w, "overshoot\t%.1f%%\n", 100*r.Overshoot)
			if r.Settled() {
				fmt.Fprintf(w, "settling (±%g)\t%.3fs\n", band, r.SettlingTime)
			} else {
				fmt.Fprintf(w, "settling (±%g)\tnot settled\n", band)
			}
			fmt.Fprintf(w, "steady-state error\t%.3g\n", r.SteadyState)
			fmt.Fprintf(w, "rms error\t%.3g\n", r.RMS)
			fmt.Fprintf(w, "peak error\t%.3g\n", r.PeakError)
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&column, "column", "z", "column to analyze")
	cmd.Flags().Float64Var(&target, "target", 0, "setpoint (default: final value)")
	cmd.Flags().Float64Var(&band, "band", 0.002, "absolute settling band")
	return cmd
}

func tuneCmd() *cobra.Command {
	var (
		grid     []string
		metric   string
		maximize bool
	)
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search controller parameters on the scenario",
		Long:  "grid search controller parameters, e.g. --grid kp_rot=500,1000,2000 --grid kd_rot=50,100,200",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, name, err := loadConfig()
			if err != nil {
				return err
			}
			names, ranges, err := parseGrid(grid)
			if err != nil {
				return err
			}
			search, err := optim.NewGridSearch(names, ranges, logger)
			if err != nil {
				return err
			}

			run := func(ctx context.Context, params map[string]float64) (*sim.Result, error) {
				cfg := *base
				cfg.Robot.Legs = append([]string(nil), base.Robot.Legs...)
				for k, v := range params {
					if err := cfg.SetParam(k, v); err != nil {
						return nil, err
					}
				}
				exp, err := experiment.New(&cfg, logger)
				if err != nil {
					return nil, err
				}
				return exp.Run(ctx)
			}

			fmt.Printf("tuning %s over %d points on %s\n\n", name, search.Size(), metric)
			best, trials, err := search.Search(cmd.Context(), run, optim.Metric(metric, maximize))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(metric))
			for _, tr := range trials {
				row := make([]string, len(names))
				for i, n := range names {
					row[i] = strconv.FormatFloat(tr.Params[n], 'g', -1, 64)
				}
				score := "failed"
				if tr.Err == nil {
					s := tr.Score
					if maximize {
						s = -s
					}
					score = fmt.Sprintf("%.6g", s)
				}
				fmt.Fprintf(w, "%s\t%s\n", strings.Join(row, "\t"), score)
			}
			if ferr := w.Flush(); ferr != nil {
				return ferr
			}
			if err != nil {
				return err
			}
			fmt.Printf("\nbest: %v\n", best.Params)
			return nil
		},
	}
	addScenarioFlags(cmd)
	cmd.Flags().StringArrayVar(&grid, "grid", nil, "parameter=v1,v2,... (tunable: "+strings.Join(config.Tunable, ", ")+")")
	cmd.Flags().StringVar(&metric, "metric", "stability", "metric to optimize")
	cmd.Flags().BoolVar(&maximize, "maximize", true, "maximize the metric instead of minimizing it")
	return cmd
}

func parseGrid(flags []string) ([]string, [][]float64, error) {
	if len(flags) == 0 {
		return nil, nil, errors.New("at least one --grid is required")
	}
	names := make([]string, 0, len(flags))
	ranges := make([][]float64, 0, len(flags))
	for _, flag := range flags {
		name, list, ok := strings.Cut(flag, "=")
		if !ok {
			return nil, nil, errors.Errorf("bad grid %q, want name=v1,v2", flag)
		}
		var values []float64
		for _, f := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "grid %s", name)
			}
			values = append(values, v)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}
