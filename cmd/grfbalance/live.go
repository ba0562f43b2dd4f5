package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/grfbalance/internal/tui"
)

func liveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "live",
		Short: "interactive live balance view",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The terminal belongs to the view; only a log file gets output.
			l := zap.NewNop()
			if logFile != "" {
				l = logger
			}
			return tui.RunInteractive(l)
		},
	}
}
