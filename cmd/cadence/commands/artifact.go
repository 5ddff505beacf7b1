package commands

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/cadence/content"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/sym"
)

// ArtifactCmd groups artifact subcommands
var ArtifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: sym.IX + " Add, import and inspect artifacts",
	Long: sym.IX + ` artifact — Content intake and inspection

Artifacts enter the queue as ready and are published oldest first.

Examples:
  cadence artifact add --product-id p1 --product "Glow Serum" --template tutorial --hook "..."
  cadence artifact import drafts.yaml
  cat drafts.yaml | cadence artifact import -
  cadence artifact ls --state failed
  cadence artifact requeue art_01hv...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var artifactAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Queue one artifact",
	RunE:  runArtifactAdd,
}

var artifactImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Queue artifacts from a YAML file",
	Long: `Queue artifacts from a YAML stream. Each document is either a list of
artifacts or a mapping with an 'artifacts' list. The whole file is
validated before anything is queued.`,
	Args: cobra.ExactArgs(1),
	RunE: runArtifactImport,
}

var artifactLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List artifacts",
	RunE:  runArtifactLs,
}

var artifactShowCmd = &cobra.Command{
	Use:   "show <artifact-id>",
	Short: "Show one artifact and its rendered post",
	Args:  cobra.ExactArgs(1),
	RunE:  runArtifactShow,
}

var artifactRequeueCmd = &cobra.Command{
	Use:   "requeue <artifact-id>",
	Short: "Move a failed artifact back to ready",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *engine) error {
			return printResult(cmd, e.operator.Requeue(ctx, args[0]))
		})
	},
}

var (
	addArtifact content.Artifact
	lsState     string
)

func init() {
	f := artifactAddCmd.Flags()
	f.StringVar(&addArtifact.ProductID, "product-id", "", "Product ID (required)")
	f.StringVar(&addArtifact.ProductName, "product", "", "Product name (required)")
	f.StringVar(&addArtifact.TemplateType, "template", "", "Template type, e.g. tutorial, grwm, review (required)")
	f.StringVar(&addArtifact.Hook, "hook", "", "Opening hook")
	f.StringVar(&addArtifact.Script, "script", "", "Script text")
	f.StringVar(&addArtifact.CTA, "cta", "", "Call to action")
	f.StringSliceVar(&addArtifact.Hashtags, "hashtag", nil, "Hashtag (repeatable)")
	f.StringSliceVar(&addArtifact.Assets, "asset", nil, "Visual asset reference (repeatable)")

	artifactLsCmd.Flags().StringVar(&lsState, "state", "", "Filter by state: ready, posted, failed")

	ArtifactCmd.AddCommand(artifactAddCmd)
	ArtifactCmd.AddCommand(artifactImportCmd)
	ArtifactCmd.AddCommand(artifactLsCmd)
	ArtifactCmd.AddCommand(artifactShowCmd)
	ArtifactCmd.AddCommand(artifactRequeueCmd)
}

func runArtifactAdd(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, e *engine) error {
		a := addArtifact
		id, err := e.artifacts.Create(ctx, &a)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(map[string]string{"id": id})
		}
		pterm.Success.Printf("Queued %s\n", id)
		return nil
	})
}

func runArtifactImport(cmd *cobra.Command, args []string) error {
	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrapf(err, "failed to open %s", args[0])
		}
		defer f.Close()
		r = f
	}

	artifacts, err := content.DecodeYAML(r)
	if err != nil {
		return err
	}

	return withEngine(func(ctx context.Context, e *engine) error {
		ids := make([]string, 0, len(artifacts))
		for i, a := range artifacts {
			id, err := e.artifacts.Create(ctx, a)
			if err != nil {
				return errors.Wrapf(err, "artifact %d (queued %s before it)", i, plural(len(ids), "artifact"))
			}
			ids = append(ids, id)
		}

		if wantJSON(cmd) {
			return printJSON(map[string]interface{}{"ids": ids})
		}
		pterm.Success.Printf("Queued %s\n", plural(len(ids), "artifact"))
		return nil
	})
}

func runArtifactLs(cmd *cobra.Command, args []string) error {
	state := content.State(lsState)
	switch state {
	case "", content.StateReady, content.StatePosted, content.StateFailed:
	default:
		return errors.Newf("unknown state %q (want ready, posted or failed)", lsState)
	}

	return withEngine(func(ctx context.Context, e *engine) error {
		artifacts, err := e.artifacts.List(ctx, state)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(artifacts)
		}

		rows := make([][]string, 0, len(artifacts))
		for _, a := range artifacts {
			posted := ""
			if a.PostedAt != nil {
				posted = a.PostedAt.In(e.loc).Format("2006-01-02 15:04")
			}
			rows = append(rows, []string{
				a.ID, string(a.State), a.ProductName, a.TemplateType,
				a.GeneratedAt.In(e.loc).Format("2006-01-02 15:04"), posted,
				strconv.Itoa(a.Attempts),
			})
		}
		pterm.Info.Printf("%s\n", plural(len(artifacts), "artifact"))
		return printTable([]string{"ID", "State", "Product", "Template", "Generated", "Posted", "Attempts"}, rows)
	})
}

func runArtifactShow(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, e *engine) error {
		a, err := e.artifacts.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(map[string]interface{}{"artifact": a, "description": a.Description()})
		}

		rows := [][]string{
			{"State", string(a.State)},
			{"Product", a.ProductName + " (" + a.ProductID + ")"},
			{"Template", a.TemplateType},
			{"Generated", a.GeneratedAt.In(e.loc).Format("2006-01-02 15:04:05")},
			{"Attempts", strconv.Itoa(a.Attempts)},
		}
		if a.PostedAt != nil {
			rows = append(rows, []string{"Posted", a.PostedAt.In(e.loc).Format("2006-01-02 15:04:05")})
		}
		if a.LastError != "" {
			rows = append(rows, []string{"Last error", a.LastError})
		}

		pterm.DefaultSection.Println(a.ID)
		if err := printTable([]string{"Field", "Value"}, rows); err != nil {
			return err
		}
		pterm.Println()
		pterm.DefaultBox.WithTitle("Post").Println(a.Description())
		return nil
	})
}
