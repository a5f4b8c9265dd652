package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/buildgraph/internal/cli/output"
	"github.com/leapstack-labs/buildgraph/internal/export"
)

// ListOptions holds options for the list command.
type ListOptions struct {
	Selection
	Completed     CompletedSource
	Dependencies  bool
	Notifications bool
	Diagnostics   bool
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list [targets...]",
		Short: "List the agents and nodes of the graph",
		Long: `Evaluate the program and list its agents, nodes, aggregates, labels,
badges and reports.

Targets may be node names, output tags or aggregate names. When given, the
graph is narrowed to them and everything they need.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Plain text

Use --output to override: auto, text, table, json`,
		Example: `  # List every node
  buildgraph list

  # List what building the Everything aggregate involves, with edges
  buildgraph list Everything --deps

  # One table row per node, marking nodes the latest run finished
  buildgraph list --output table --from-run latest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Targets = args
			return runList(cmd, opts)
		},
	}

	opts.Selection.addFlags(cmd)
	opts.Completed.addFlags(cmd)
	cmd.Flags().BoolVarP(&opts.Dependencies, "deps", "d", false, "Show direct dependencies")
	cmd.Flags().BoolVar(&opts.Notifications, "notify", false, "Show notification targets")
	cmd.Flags().BoolVar(&opts.Diagnostics, "diagnostics", true, "Show diagnostics")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	res, err := cmdCtx.build(opts.Selection)
	if err != nil {
		return err
	}
	completed, err := cmdCtx.completed(cmd.Context(), opts.Completed)
	if err != nil {
		return err
	}

	listOpts := export.ListingOptions{
		Completed:         completed,
		ShowDependencies:  opts.Dependencies,
		ShowNotifications: opts.Notifications,
		ShowDiagnostics:   opts.Diagnostics,
		Styles:            r.ListingStyles(),
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return export.WriteFullGraph(r.Writer(), res.Graph)
	case output.ModeTable:
		export.WriteListingTable(r.Writer(), res.Graph, listOpts)
		return nil
	default:
		if err := export.WriteListing(r.Writer(), res.Graph, listOpts); err != nil {
			return err
		}
		r.Println()
		r.Muted(fmt.Sprintf("%s (%s)", res.Graph.Describe(), res.Duration.Round(time.Microsecond)))
		return nil
	}
}
