package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/cadence/sym"
)

// MonitorCmd groups monitor subcommands
var MonitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: sym.Pulse + " Run monitor steps by hand",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var monitorTickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Sample status, backfill engagement and roll up today once",
	Long: `Runs one monitor tick outside the daemon. Each step runs even if an
earlier one fails; failures are reported together.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *engine) error {
			if err := e.monitor.Tick(ctx); err != nil {
				return err
			}
			pterm.Success.Println("Monitor tick complete")
			return nil
		})
	},
}

func init() {
	MonitorCmd.AddCommand(monitorTickCmd)
}
