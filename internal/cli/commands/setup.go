package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/buildgraph/internal/cli/config"
	"github.com/leapstack-labs/buildgraph/internal/cli/output"
	"github.com/leapstack-labs/buildgraph/internal/engine"
	"github.com/leapstack-labs/buildgraph/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the current configuration, or defaults when none was
// loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		Program:      config.DefaultProgram,
		StatePath:    config.DefaultStateFile,
		OutputFormat: config.DefaultOutput,
		LogLevel:     config.DefaultLogLevel,
		LogFormat:    config.DefaultLogFormat,
		MaxDepth:     config.DefaultMaxDepth,
	}
}

// Selection is the target and skip lists shared by graph commands.
type Selection struct {
	Targets []string
	Skip    []string
}

func (s *Selection) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&s.Skip, "skip", nil, "Nodes to remove along with everything ordered after them")
}

// handlers returns the configured handler table. An inline list wins over
// a handlers file.
func (c *CommandContext) handlers() ([]string, error) {
	if len(c.Cfg.Handlers) > 0 || c.Cfg.HandlersFile == "" {
		return c.Cfg.Handlers, nil
	}
	return engine.LoadHandlers(c.Cfg.HandlersFile)
}

// newEngine loads the configured program.
func (c *CommandContext) newEngine(sel Selection) (*engine.Engine, error) {
	handlers, err := c.handlers()
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Config{
		ProgramPath: c.Cfg.Program,
		Handlers:    handlers,
		Options:     c.Cfg.Options,
		Targets:     sel.Targets,
		Skip:        sel.Skip,
		MaxDepth:    c.Cfg.MaxDepth,
		Trace:       c.Cfg.Trace,
		Culture:     c.Cfg.Culture,
		Logger:      c.Logger,
	})
}

// build loads the program and evaluates it.
func (c *CommandContext) build(sel Selection) (*engine.Result, error) {
	eng, err := c.newEngine(sel)
	if err != nil {
		return nil, err
	}
	return eng.Build()
}

// openStore opens the run-state database. The caller closes it.
func (c *CommandContext) openStore(ctx context.Context) (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(ctx, c.Cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, nil
}

// CompletedSource names where the completed node set comes from.
type CompletedSource struct {
	Nodes []string
	// Run is a run ID, or "latest" for the latest run of the program.
	Run string
}

func (s *CompletedSource) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&s.Nodes, "completed", nil, "Nodes that have already run")
	cmd.Flags().StringVar(&s.Run, "from-run", "", "Treat the completed nodes of this run ID (or \"latest\") as already run")
}

// completed resolves the completed node set.
func (c *CommandContext) completed(ctx context.Context, src CompletedSource) ([]string, error) {
	nodes := append([]string(nil), src.Nodes...)
	if src.Run == "" {
		return nodes, nil
	}

	store, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	run, err := c.resolveRun(ctx, store, src.Run)
	if err != nil {
		return nil, err
	}
	recorded, err := store.CompletedNodes(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded completed nodes", slog.String("run", run.ID), slog.Int("count", len(recorded)))
	return append(nodes, recorded...), nil
}

// resolveRun looks up a run by ID, or the latest run of the configured
// program for "latest" and "".
func (c *CommandContext) resolveRun(ctx context.Context, store state.Store, id string) (*state.Run, error) {
	if id != "" && !strings.EqualFold(id, "latest") {
		return store.GetRun(ctx, id)
	}
	run, err := store.GetLatestRun(ctx, c.Cfg.Program)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: no runs recorded for %s", state.ErrRunNotFound, c.Cfg.Program)
	}
	return run, nil
}
