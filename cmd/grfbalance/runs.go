package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/san-kum/grfbalance/internal/sim"
	"github.com/san-kum/grfbalance/internal/storage"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := storage.New(dataDir).List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPRESET\tTIME\tDURATION\tDT\tCTRL\tSTABILITY\tFAILURES")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%.3f\t%.0f\n",
					run.ID,
					run.Preset,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Duration,
					run.Dt,
					run.Controller,
					run.Metrics["stability"],
					run.Solver["failures"],
				)
			}
			return w.Flush()
		},
	}
}

func plotCmd() *cobra.Command {
	var columns []string
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot columns of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]
			st := storage.New(dataDir)
			meta, err := st.Load(runID)
			if err != nil {
				return err
			}
			fmt.Printf("run: %s\n", meta.ID)
			fmt.Printf("preset: %s\n\n", meta.Preset)

			for _, col := range columns {
				times, values, err := st.LoadSeries(runID, col)
				if err != nil {
					return errors.Wrapf(err, "columns: %v", meta.Columns)
				}
				if len(values) == 0 {
					return errors.Errorf("no data to plot in %s", col)
				}
				graph := asciigraph.Plot(values,
					asciigraph.Height(10),
					asciigraph.Width(80),
					asciigraph.Caption(fmt.Sprintf("%s over %.2fs", col, times[len(times)-1])),
				)
				fmt.Println(graph)
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&columns, "column", []string{"z"}, "columns to plot (e.g. z, wx, FL_fz)")
	return cmd
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a saved run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]
			st := storage.New(dataDir)
			meta, err := st.Load(runID)
			if err != nil {
				return err
			}
			rows, times, err := st.LoadStates(runID)
			if err != nil {
				return err
			}
			nx := len(meta.Columns) - 1 - 3*len(meta.Legs)
			if len(meta.Legs) == 0 || nx < 0 {
				nx = len(meta.Columns) - 1
			}
			result := &sim.Result{Times: times, Metrics: meta.Metrics}
			for _, row := range rows {
				n := min(nx, len(row))
				result.States = append(result.States, row[:n])
				result.Controls = append(result.Controls, row[n:])
			}
			return storage.ExportJSON(os.Stdout, *meta, result)
		},
	}
}
