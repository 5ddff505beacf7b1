package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/cadence/cmd/cadence/commands"
	"github.com/teranos/cadence/logger"
	"github.com/teranos/cadence/sym"
)

var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "cadence - scheduled content publishing engine",
	Long: `cadence - scheduled content publishing engine

cadence keeps a queue of generated content artifacts, publishes the oldest
one at each daily trigger time, and tracks engagement and business metrics
for everything it posted.

Examples:
  cadence serve                       # Run the daemon
  cadence schedule set 08:00 18:30    # Replace the trigger times
  cadence artifact import drafts.yaml # Queue generated content
  cadence dashboard                   # Metrics snapshot`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.InitializeWithVerbosity(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.Long += "\n\n" + palette()

	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format: table, json")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.ScheduleCmd)
	rootCmd.AddCommand(commands.PostNowCmd)
	rootCmd.AddCommand(commands.ArtifactCmd)
	rootCmd.AddCommand(commands.DashboardCmd)
	rootCmd.AddCommand(commands.InsightsCmd)
	rootCmd.AddCommand(commands.AnalyticsCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.MonitorCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.HealthCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

// palette lists the glyph commands in display order.
func palette() string {
	var b strings.Builder
	b.WriteString("Operators:")
	for _, glyph := range sym.PaletteOrder {
		cmd := sym.SymbolToCommand[glyph]
		fmt.Fprintf(&b, "\n  %s %-10s %s", glyph, cmd, sym.CommandDescriptions[cmd])
	}
	return b.String()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
