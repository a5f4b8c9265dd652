package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/buildgraph/internal/cli/output"
	"github.com/leapstack-labs/buildgraph/internal/state"
)

// NewRunCommand creates the run command group.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Record build runs and the nodes they finish",
		Long: `Track a build as it executes. A scheduler starts a run, reports nodes as
they finish and closes the run at the end. Exports and listings can then
leave out what a run already completed with --from-run.

Run IDs default to the latest run of the configured program.`,
		Example: `  id=$(buildgraph run start)
  buildgraph run complete A B --run "$id"
  buildgraph run fail C --error "link error" --run "$id"
  buildgraph run finish --status failed --run "$id"
  buildgraph export --from-run "$id"`,
	}

	cmd.AddCommand(
		newRunStartCommand(),
		newRunMarkCommand("complete", state.NodeStatusCompleted, "Mark nodes as completed"),
		newRunMarkCommand("skip", state.NodeStatusSkipped, "Mark nodes as skipped"),
		newRunFailCommand(),
		newRunFinishCommand(),
		newRunStatusCommand(),
		newRunListCommand(),
	)
	return cmd
}

// withStore opens the state store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, c *CommandContext, store *state.SQLiteStore) error) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := cmdCtx.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(ctx, cmdCtx, store)
}

func newRunStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a run and print its ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, c *CommandContext, store *state.SQLiteStore) error {
				run, err := store.CreateRun(ctx, c.Cfg.Program)
				if err != nil {
					return err
				}
				c.Logger.Info("run started", "id", run.ID, "program", run.Program)
				if c.Renderer.EffectiveMode() == output.ModeJSON {
					return c.Renderer.JSON(toRunView(run))
				}
				c.Renderer.Println(run.ID)
				return nil
			})
		},
	}
}

func newRunMarkCommand(use string, status state.NodeStatus, short string) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   use + " <nodes...>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, c *CommandContext, store *state.SQLiteStore) error {
				return markNodes(ctx, c, store, runID, args, status, "")
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run ID (default latest)")
	return cmd
}

func newRunFailCommand() *cobra.Command {
	var runID, message string
	cmd := &cobra.Command{
		Use:   "fail <node>",
		Short: "Mark a node as failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, c *CommandContext, store *state.SQLiteStore) error {
				return markNodes(ctx, c, store, runID, args, state.NodeStatusFailed, message)
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run ID (default latest)")
	cmd.Flags().StringVar(&message, "error", "", "Failure message")
	return cmd
}

func markNodes(ctx context.Context, c *CommandContext, store state.Store, runID string, nodes []string, status state.NodeStatus, message string) error {
	run, err := c.resolveRun(ctx, store, runID)
	if err != nil {
		return err
	}
	for _, node := range nodes {
		if err := store.MarkNode(ctx, run.ID, node, status, message); err != nil {
			return err
		}
		c.Logger.Debug("node marked", "run", run.ID, "node", node, "status", string(status))
	}
	if c.Renderer.EffectiveMode() != output.ModeJSON {
		for _, node := range nodes {
			c.Renderer.StatusLine(node, string(status), message)
		}
	}
	return nil
}

func newRunFinishCommand() *cobra.Command {
	var runID, status, message string
	cmd := &cobra.Command{
		Use:   "finish",
		Short: "Close a run with a final status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, c *CommandContext, store *state.SQLiteStore) error {
				run, err := c.resolveRun(ctx, store, runID)
				if err != nil {
					return err
				}
				if err := store.CompleteRun(ctx, run.ID, state.RunStatus(status), message); err != nil {
					return err
				}
				c.Logger.Info("run finished", "id", run.ID, "status", status)
				if c.Renderer.EffectiveMode() != output.ModeJSON {
					c.Renderer.StatusLine(run.ID, status, message)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run ID (default latest)")
	cmd.Flags().StringVar(&status, "status", string(state.RunStatusCompleted), "Final status (completed|failed|cancelled)")
	cmd.Flags().StringVar(&message, "error", "", "Failure message")
	_ = cmd.RegisterFlagCompletionFunc("status", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"completed", "failed", "cancelled"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

type runView struct {
	ID          string          `json:"id"`
	Program     string          `json:"program"`
	Status      string          `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
	Nodes       []nodeStateView `json:"nodes,omitempty"`
}

type nodeStateView struct {
	Node      string    `json:"node"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
}

func toRunView(r *state.Run) runView {
	return runView{
		ID:          r.ID,
		Program:     r.Program,
		Status:      string(r.Status),
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		Error:       r.Error,
	}
}

func newRunStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show a run and the state of its nodes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return withStore(cmd, func(ctx context.Context, c *CommandContext, store *state.SQLiteStore) error {
				run, err := c.resolveRun(ctx, store, id)
				if err != nil {
					return err
				}
				states, err := store.NodeStates(ctx, run.ID)
				if err != nil {
					return err
				}
				return renderRunStatus(c.Renderer, run, states)
			})
		},
	}
}

func renderRunStatus(r *output.Renderer, run *state.Run, states []*state.NodeState) error {
	view := toRunView(run)
	for _, s := range states {
		view.Nodes = append(view.Nodes, nodeStateView{
			Node:      s.Node,
			Status:    string(s.Status),
			UpdatedAt: s.UpdatedAt,
			Error:     s.Error,
		})
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(view)
	case output.ModeTable:
		t := table.NewWriter()
		t.SetOutputMirror(r.Writer())
		t.SetStyle(table.StyleLight)
		t.SetTitle(fmt.Sprintf("%s (%s)", run.ID, run.Status))
		t.AppendHeader(table.Row{"Node", "Status", "Updated", "Error"})
		for _, n := range view.Nodes {
			t.AppendRow(table.Row{n.Node, n.Status, n.UpdatedAt.Local().Format(time.DateTime), n.Error})
		}
		t.Render()
		return nil
	default:
		r.Println(r.FormatKeyValue("Run", run.ID))
		r.Println(r.FormatKeyValue("Program", run.Program))
		r.Println(r.FormatKeyValue("Started", run.StartedAt.Local().Format(time.DateTime)))
		r.StatusLine("Status", string(run.Status), run.Error)
		if len(view.Nodes) > 0 {
			r.Println()
		}
		for _, n := range view.Nodes {
			r.StatusLine(n.Node, n.Status, n.Error)
		}
		return nil
	}
}

func newRunListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, c *CommandContext, store *state.SQLiteStore) error {
				runs, err := store.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				r := c.Renderer
				views := make([]runView, len(runs))
				for i, run := range runs {
					views[i] = toRunView(run)
				}

				switch r.EffectiveMode() {
				case output.ModeJSON:
					return r.JSON(views)
				case output.ModeTable:
					t := table.NewWriter()
					t.SetOutputMirror(r.Writer())
					t.SetStyle(table.StyleLight)
					t.AppendHeader(table.Row{"ID", "Program", "Status", "Started"})
					for _, v := range views {
						t.AppendRow(table.Row{v.ID, v.Program, v.Status, v.StartedAt.Local().Format(time.DateTime)})
					}
					t.Render()
				default:
					if len(views) == 0 {
						r.Muted("no runs recorded")
					}
					for _, v := range views {
						r.StatusLine(v.ID, v.Status, v.StartedAt.Local().Format(time.DateTime))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs")
	return cmd
}
