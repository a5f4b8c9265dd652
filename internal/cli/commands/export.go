package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/buildgraph/internal/export"
	"github.com/leapstack-labs/buildgraph/internal/graph"
)

// Export document kinds.
const (
	KindSchedule = "schedule"
	KindFull     = "full"
	KindMarkup   = "markup"
)

// ExportOptions holds options for the export command.
type ExportOptions struct {
	Selection
	Completed CompletedSource
	Kind      string
	Format    string
	Out       string
	Watch     bool
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export [targets...]",
		Short: "Export the graph for a scheduler or another tool",
		Long: `Evaluate the program and write the graph in one of three shapes:

  schedule  JSON for a build scheduler. Completed nodes are left out and every
            dependency list is reduced to direct dependencies.
  full      the complete graph as JSON, YAML or CBOR.
  markup    the declarative XML script shape.

With --watch the export is rewritten whenever the program, the handler file
or the config file changes.`,
		Example: `  # Schedule for everything the Everything aggregate needs
  buildgraph export Everything --kind schedule --out schedule.json

  # Skip what the latest recorded run already finished
  buildgraph export --from-run latest

  # Full graph as YAML, rewritten on every recompile
  buildgraph export --kind full --format yaml --out graph.yaml --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Targets = args
			return runExport(cmd, opts)
		},
	}

	opts.Selection.addFlags(cmd)
	opts.Completed.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Kind, "kind", "k", KindSchedule, "Document to write (schedule|full|markup)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", string(export.FormatJSON), "Encoding of the full graph (json|yaml|cbor)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "Write to this file instead of stdout")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-export when inputs change (requires --out)")

	_ = cmd.RegisterFlagCompletionFunc("kind", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{KindSchedule, KindFull, KindMarkup}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "yaml", "cbor"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// writer renders one document kind.
type writer func(w io.Writer, g *graph.Graph, completed []string) error

func exportWriter(kind, format string) (writer, error) {
	switch strings.ToLower(kind) {
	case KindSchedule:
		return export.WriteSchedule, nil
	case KindFull:
		f, err := export.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		return func(w io.Writer, g *graph.Graph, _ []string) error {
			return export.WriteFullGraphAs(w, g, f)
		}, nil
	case KindMarkup:
		return func(w io.Writer, g *graph.Graph, _ []string) error {
			return export.WriteMarkup(w, g)
		}, nil
	default:
		return nil, fmt.Errorf("unknown export kind %q (want schedule, full or markup)", kind)
	}
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	write, err := exportWriter(opts.Kind, opts.Format)
	if err != nil {
		return err
	}
	if opts.Watch && opts.Out == "" {
		return fmt.Errorf("--watch requires --out")
	}

	cmdCtx := NewCommandContext(cmd)
	once := func() error {
		res, err := cmdCtx.build(opts.Selection)
		if err != nil {
			return err
		}
		completed, err := cmdCtx.completed(cmd.Context(), opts.Completed)
		if err != nil {
			return err
		}
		if opts.Out == "" {
			return write(cmdCtx.Renderer.Writer(), res.Graph, completed)
		}
		if err := writeFileAtomic(opts.Out, func(w io.Writer) error {
			return write(w, res.Graph, completed)
		}); err != nil {
			return err
		}
		cmdCtx.Logger.Info("exported", "kind", opts.Kind, "path", opts.Out, "graph", res.Graph.Describe())
		return nil
	}

	if err := once(); err != nil {
		if !opts.Watch {
			return err
		}
		cmdCtx.Renderer.Warning(err.Error())
	}
	if !opts.Watch {
		return nil
	}
	return watch(cmd.Context(), cmdCtx, watchedFiles(cmdCtx), once)
}

// writeFileAtomic writes path through a temporary file in the same
// directory so readers never see a partial document.
func writeFileAtomic(path string, fill func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
