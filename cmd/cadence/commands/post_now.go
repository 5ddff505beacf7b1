package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teranos/cadence/sym"
)

// PostNowCmd publishes one artifact immediately
var PostNowCmd = &cobra.Command{
	Use:   "post-now <artifact-id>",
	Short: sym.SO + " Publish one artifact immediately",
	Long: sym.SO + ` post-now — Publish one ready artifact now

Bypasses the schedule and the daily cap. A failed publish leaves the
artifact ready (or moves it to failed once schedule.max_attempts is hit).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *engine) error {
			return printResult(cmd, e.operator.PostNow(ctx, args[0]))
		})
	},
}
