package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/san-kum/grfbalance/internal/config"
)

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [robot]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			robots := config.ListRobots()
			if len(args) == 1 {
				robots = args
			}
			for _, r := range robots {
				presets := config.ListPresets(r)
				if len(presets) == 0 {
					fmt.Printf("no presets for robot: %s\n", r)
					continue
				}
				fmt.Printf("presets for %s:\n", r)
				for _, p := range presets {
					fmt.Printf("  %s\n", p)
				}
			}
			return nil
		},
	}
}
