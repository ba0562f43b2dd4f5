package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/grfbalance/internal/experiment"
	"github.com/san-kum/grfbalance/internal/models"
	"github.com/san-kum/grfbalance/internal/storage"
)

func runCmd() *cobra.Command {
	var (
		controller string
		duration   float64
		seed       int64
		plot       bool
		exportPath string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a closed-loop simulation and save it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, name, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("controller") {
				cfg.Simulation.Controller = controller
			}
			if cmd.Flags().Changed("time") {
				cfg.Simulation.Duration = duration
			}
			if cmd.Flags().Changed("seed") {
				cfg.Simulation.Seed = seed
			}

			exp, err := experiment.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			fmt.Printf("running %s with %s controller...\n", name, cfg.Simulation.Controller)
			start := time.Now()
			result, runErr := exp.Run(ctx)
			if result == nil {
				return runErr
			}
			elapsed := time.Since(start)

			st := storage.New(dataDir)
			if err := st.Init(); err != nil {
				return err
			}
			meta := exp.Metadata(name, result)
			runID, err := st.Save(meta, result)
			if err != nil {
				return err
			}
			if exportPath != "" {
				if err := storage.ExportJSONFile(exportPath, meta, result); err != nil {
					return err
				}
			}

			fmt.Printf("completed in %v\n", elapsed)
			fmt.Printf("run id: %s\n", runID)
			fmt.Printf("steps: %d\n", result.StepsTaken)
			printValues("metrics", result.Metrics)
			printValues("solver", meta.Solver)

			if plot && len(result.States) > 1 {
				heights := make([]float64, len(result.States))
				for i, x := range result.States {
					heights[i] = models.Height(x)
				}
				fmt.Println()
				fmt.Println(asciigraph.Plot(heights,
					asciigraph.Height(10),
					asciigraph.Width(80),
					asciigraph.Caption("body height [m]"),
				))
			}
			return runErr
		},
	}
	addScenarioFlags(cmd)
	cmd.Flags().StringVar(&controller, "controller", "balance", "controller (balance|even|none)")
	cmd.Flags().Float64Var(&duration, "time", 3, "duration")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().BoolVar(&plot, "plot", false, "plot body height after the run")
	cmd.Flags().StringVar(&exportPath, "export", "", "also write the whole run as JSON to this path")
	return cmd
}

func printValues(title string, values map[string]float64) {
	if len(values) == 0 {
		return
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Printf("\n%s:\n", title)
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, values[name])
	}
}
