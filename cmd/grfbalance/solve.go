package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/san-kum/grfbalance/internal/balance"
	"github.com/san-kum/grfbalance/internal/gait"
	"github.com/san-kum/grfbalance/internal/models"
)

func solveCmd() *cobra.Command {
	var (
		swing []string
		at    float64
	)
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "solve one force distribution for the scenario's initial pose",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctrl, err := balance.New(cfg.BalanceConfig(), logger)
			if err != nil {
				return err
			}
			plant, err := cfg.Body()
			if err != nil {
				return err
			}

			contacts := gait.AllStance(cfg.Robot.Legs)
			if cmd.Flags().Changed("swing") {
				for _, leg := range swing {
					if _, ok := contacts[leg]; !ok {
						return errors.Errorf("unknown leg %q", leg)
					}
					contacts[leg] = gait.Contact{State: gait.Swing}
				}
			} else if plant.Contacts != nil {
				contacts = plant.Contacts(at)
			}

			x0 := models.Pack(cfg.Scenario.Initial.BodyState())
			sol, err := ctrl.Solve(plant.FeetInBody(x0), models.Unpack(x0), cfg.Scenario.Target.BodyState(), contacts)
			if err != nil {
				return err
			}
			return printSolution(cfg.Robot.Legs, contacts, sol)
		},
	}
	addScenarioFlags(cmd)
	cmd.Flags().StringSliceVar(&swing, "swing", nil, "legs in swing (overrides the scenario gait)")
	cmd.Flags().Float64Var(&at, "at", 0, "scenario time used to pick contacts from the gait")
	return cmd
}

func printSolution(legs []string, contacts gait.Map, sol balance.Solution) error {
	fmt.Printf("contacts: %s\n", contacts)
	fmt.Printf("accel: %.3f %.3f %.3f  angular: %.3f %.3f %.3f\n",
		sol.Accel.X, sol.Accel.Y, sol.Accel.Z, sol.AngularAccel.X, sol.AngularAccel.Y, sol.AngularAccel.Z)
	fmt.Printf("qp: %s (%s start) %d iterations in %v, objective %.6g\n\n",
		sol.QP.Status, sol.QP.Phase, sol.QP.Iterations, sol.QP.Elapsed, sol.QP.Objective)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEG\tSTATE\tFX\tFY\tFZ\tCMD")
	var total [3]float64
	for i, leg := range legs {
		f := sol.Force(i)
		total[0] += f.X
		total[1] += f.Y
		total[2] += f.Z
		cmd := make([]string, 3)
		for k := range cmd {
			cmd[k] = fmt.Sprintf("%.2f", sol.Body[3*i+k])
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\t%s\n", leg, contacts[leg].State, f.X, f.Y, f.Z, strings.Join(cmd, " "))
	}
	fmt.Fprintf(w, "sum\t\t%.2f\t%.2f\t%.2f\t\n", total[0], total[1], total[2])
	return w.Flush()
}
