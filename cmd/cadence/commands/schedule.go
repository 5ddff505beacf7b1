package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/cadence/logger"
	"github.com/teranos/cadence/pulse/schedule"
	"github.com/teranos/cadence/sym"
)

// ScheduleCmd groups schedule subcommands
var ScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: sym.AT + " Read or replace the daily schedule",
	Long: sym.AT + ` schedule — Daily trigger times

Each trigger fires at most once per day and publishes the oldest ready
artifact. Changes are written to the operator config file, which a running
'cadence serve' picks up without restart.

Examples:
  cadence schedule show               # Triggers and next fires
  cadence schedule show --history 20  # Plus the last 20 fires
  cadence schedule set 08:00 12:00 18:00
  cadence schedule disable`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var scheduleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show trigger times and next fires",
	RunE:  runScheduleShow,
}

var scheduleSetCmd = &cobra.Command{
	Use:   "set <HH:MM>...",
	Short: "Replace the trigger times",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *engine) error {
			return printResult(cmd, e.operator.UpdateSchedule(ctx, args))
		})
	},
}

var scheduleEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable automated posting",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *engine) error {
			return printResult(cmd, e.operator.SetScheduleEnabled(ctx, true))
		})
	},
}

var scheduleDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable automated posting",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *engine) error {
			return printResult(cmd, e.operator.SetScheduleEnabled(ctx, false))
		})
	},
}

var historyLimit int

func init() {
	scheduleShowCmd.Flags().IntVar(&historyLimit, "history", 0, "Also show the last N fires")

	ScheduleCmd.AddCommand(scheduleShowCmd)
	ScheduleCmd.AddCommand(scheduleSetCmd)
	ScheduleCmd.AddCommand(scheduleEnableCmd)
	ScheduleCmd.AddCommand(scheduleDisableCmd)
}

func runScheduleShow(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, e *engine) error {
		view := e.operator.Schedule(ctx)

		var fires []*schedule.Fire
		if historyLimit > 0 {
			var err error
			if fires, err = e.operator.FireHistory(ctx, historyLimit); err != nil {
				return err
			}
		}

		if wantJSON(cmd) {
			return printJSON(map[string]interface{}{"schedule": view, "history": fires})
		}

		state := "enabled"
		if !view.Enabled {
			state = "disabled"
		}
		pterm.Info.Printf("Triggers: %s (%s, %s)\n", strings.Join(view.Times, ", "), state, e.loc)

		rows := make([][]string, 0, len(view.NextFires))
		for _, next := range view.NextFires {
			rows = append(rows, []string{next.Trigger, next.At.In(e.loc).Format("Mon 2006-01-02 15:04"), next.In})
		}
		if err := printTable([]string{"Trigger", "Next fire", "In"}, rows); err != nil {
			return err
		}
		if historyLimit <= 0 {
			return nil
		}

		rows = make([][]string, 0, len(fires))
		for _, f := range fires {
			rows = append(rows, []string{
				f.FiredAt.In(e.loc).Format("2006-01-02 15:04:05"),
				f.Source, f.TriggerTime, f.ArtifactID, f.Outcome, f.ErrorMessage,
			})
		}
		pterm.Println()
		pterm.Info.Println("Recent fires")
		return printTable([]string{"Fired", "Source", "Trigger", "Artifact", "Outcome", "Error"}, rows)
	})
}

// withEngine opens the engine for one command and closes it afterwards.
func withEngine(fn func(ctx context.Context, e *engine) error) error {
	e, err := openEngine(logger.Logger)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := fn(context.Background(), e); err != nil {
		return err
	}
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
