package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/cadence/am"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Show cadence configuration",
	Long: sym.AM + ` am — Show cadence configuration ("I am")

Configuration sources (later overrides earlier):
1. Built-in defaults
2. /etc/cadence/am.toml
3. ~/.cadence/am.toml
4. ./am.toml (searches up directories)
5. ~/.cadence/am_from_operator.toml (written by schedule set/enable/disable)
6. CADENCE_* environment variables

Examples:
  cadence am show                    # Show current configuration
  cadence am show --format json      # Show configuration in JSON format
  cadence am show --sources          # Show where each setting came from`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var (
	configFormat string
	showSources  bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amShowCmd.Flags().BoolVar(&showSources, "sources", false, "List each setting with the layer it came from")

	AmCmd.AddCommand(amShowCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if showSources {
		settings := am.Settings()
		if wantJSON(cmd) || configFormat == "json" {
			return printJSON(settings)
		}
		rows := make([][]string, 0, len(settings))
		for _, s := range settings {
			rows = append(rows, []string{s.Key, fmt.Sprint(s.Value), string(s.Source), s.SourcePath})
		}
		return printTable([]string{"Key", "Value", "Source", "Path"}, rows)
	}

	shown := *cfg
	if shown.Bluesky.AppPassword != "" {
		shown.Bluesky.AppPassword = "********"
	}

	var data []byte
	switch configFormat {
	case "json":
		data, err = json.MarshalIndent(shown, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(shown)
	case "toml":
		data, err = toml.Marshal(shown)
	default:
		return errors.Newf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to marshal config to %s", configFormat)
	}

	if configFormat != "json" {
		fmt.Println("# cadence configuration")
	}
	fmt.Print(string(data))
	if configFormat == "json" {
		fmt.Println()
	}
	return nil
}
