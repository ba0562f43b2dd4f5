package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/grfbalance/internal/balance"
	"github.com/san-kum/grfbalance/internal/experiment"
	"github.com/san-kum/grfbalance/internal/gait"
	"github.com/san-kum/grfbalance/internal/models"
	"github.com/san-kum/grfbalance/internal/sim"
)

func benchCmd() *cobra.Command {
	var (
		cycles  int
		runs    int
		workers int
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "measure solve rate and run a perturbed ensemble",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, name, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			plant, err := cfg.Body()
			if err != nil {
				return err
			}
			x0 := models.Pack(cfg.Scenario.Initial.BodyState())
			feet := plant.FeetInBody(x0)
			cur := models.Unpack(x0)
			des := cfg.Scenario.Target.BodyState()
			contacts := gait.AllStance(cfg.Robot.Legs)

			fmt.Printf("benchmarking %s\n\n", name)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODE\tCYCLES\tFAILED\tMEAN ITER\tTIME\tCYCLES/SEC")
			for _, cold := range []bool{true, false} {
				ctrl, err := balance.New(cfg.BalanceConfig(), logger)
				if err != nil {
					return err
				}
				start := time.Now()
				for i := 0; i < cycles; i++ {
					if cold {
						ctrl.Reset()
					}
					ctrl.Control(feet, cur, des, contacts)
				}
				elapsed := time.Since(start)
				st := ctrl.Stats()
				mode := "warm"
				if cold {
					mode = "cold"
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%.1f\t%v\t%.0f\n", mode, st.Cycles, st.Failures,
					float64(st.TotalIterations)/float64(max(1, st.ColdStarts+st.WarmStarts)),
					elapsed, float64(cycles)/elapsed.Seconds())
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if runs <= 0 {
				return nil
			}
			simCfg := sim.Config{Dt: cfg.Simulation.Dt, Duration: cfg.Simulation.Duration, ValidateState: true}
			start := time.Now()
			results, err := experiment.Ensemble(cfg, logger, runs, workers).Run(context.Background(), simCfg)
			if err != nil {
				return err
			}
			fmt.Printf("\nensemble: %d runs in %v\n", runs, time.Since(start))
			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTABILITY\tZERO CMD\tEFFORT\tFINAL Z")
			for i, res := range results {
				final := res.States[len(res.States)-1]
				fmt.Fprintf(w, "%d\t%.3f\t%.3f\t%.1f\t%.4f\n", i,
					res.Metrics["stability"], res.Metrics["zero_command"], res.Metrics["control_effort"], models.Height(final))
			}
			return w.Flush()
		},
	}
	addScenarioFlags(cmd)
	cmd.Flags().IntVar(&cycles, "cycles", 10000, "solves per mode")
	cmd.Flags().IntVar(&runs, "runs", 8, "ensemble size (0 skips the ensemble)")
	cmd.Flags().IntVar(&workers, "workers", 0, "ensemble workers (0 means one per run)")
	return cmd
}
