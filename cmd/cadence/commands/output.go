package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/operator"
)

// wantJSON reports whether -o json was given.
func wantJSON(cmd *cobra.Command) bool {
	format, _ := cmd.Flags().GetString("output")
	return format == "json"
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode output")
	}
	return nil
}

// printTable renders rows with a header row.
func printTable(header []string, rows [][]string) error {
	data := pterm.TableData{header}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// printResult prints a successful operator result. A failed one becomes
// the command's error so the process exits non-zero.
func printResult(cmd *cobra.Command, res operator.Result) error {
	if wantJSON(cmd) {
		if err := printJSON(res); err != nil {
			return err
		}
	} else if res.Success {
		pterm.Success.Println(res.Message)
	}
	if !res.Success {
		return errors.New(res.Message)
	}
	return nil
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
