// Package engine loads a compiled build graph program together with its
// handler table and options, and evaluates it into a graph.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/leapstack-labs/buildgraph/internal/bytecode"
	"github.com/leapstack-labs/buildgraph/internal/graph"
	"github.com/leapstack-labs/buildgraph/internal/vm"
)

// Config holds engine configuration.
type Config struct {
	// ProgramPath is the bytecode file. Ignored when Program is set.
	ProgramPath string
	// Program is the raw bytecode.
	Program []byte
	// Handlers is the ordered handler table tasks index into.
	Handlers []string
	// Options are the option values read by the program.
	Options map[string]string
	// Targets restricts the graph to these nodes, tags or aggregates and
	// everything they need. Empty keeps every node.
	Targets []string
	// Skip removes these nodes and everything that consumes them.
	Skip []string

	MaxDepth int
	Trace    bool
	Culture  string

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine holds a parsed program ready for evaluation.
type Engine struct {
	cfg     Config
	program *bytecode.Program
	logger  *slog.Logger
}

// Result is the outcome of one evaluation.
type Result struct {
	Graph *graph.Graph
	// Options lists every option the program read, in first-read order.
	Options []vm.OptionDecl
	// Duration is the time spent evaluating.
	Duration time.Duration
}

// ErrNoProgram is returned when neither a program path nor program bytes are
// configured.
var ErrNoProgram = errors.New("no program configured")

// New reads and parses the program.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	data := cfg.Program
	if data == nil {
		if cfg.ProgramPath == "" {
			return nil, ErrNoProgram
		}
		var err error
		data, err = os.ReadFile(cfg.ProgramPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read program: %w", err)
		}
	}

	program, err := bytecode.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse program %s: %w", cfg.ProgramPath, err)
	}

	logger.Debug("loaded program",
		slog.String("path", cfg.ProgramPath),
		slog.Int("bytes", len(data)),
		slog.Int("fragments", program.FragmentCount()),
		slog.Int("handlers", len(cfg.Handlers)))

	return &Engine{cfg: cfg, program: program, logger: logger}, nil
}

// Program returns the parsed program.
func (e *Engine) Program() *bytecode.Program {
	return e.program
}

func (e *Engine) interpreter() (*vm.Interpreter, error) {
	return vm.New(e.program, vm.Config{
		Options:  e.cfg.Options,
		Handlers: e.cfg.Handlers,
		MaxDepth: e.cfg.MaxDepth,
		Trace:    e.cfg.Trace,
		Logger:   e.logger,
		Culture:  e.cfg.Culture,
	})
}

// Build evaluates the program and applies the configured target selection
// and skip list. Each call evaluates from scratch.
func (e *Engine) Build() (*Result, error) {
	in, err := e.interpreter()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	g, err := in.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate program: %w", err)
	}
	res := &Result{Graph: g, Options: in.DeclaredOptions(), Duration: time.Since(start)}

	if err := Select(g, e.cfg.Targets, e.cfg.Skip); err != nil {
		return nil, err
	}

	e.logger.Info("graph built",
		slog.Int("agents", len(g.Agents)),
		slog.Int("nodes", len(g.NameToNode)),
		slog.Int("diagnostics", len(g.Diagnostics)),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// DeclaredOptions evaluates the program and returns the options it reads.
// The program does not need to produce a graph.
func (e *Engine) DeclaredOptions() ([]vm.OptionDecl, error) {
	in, err := e.interpreter()
	if err != nil {
		return nil, err
	}
	if _, err := in.Evaluate(); err != nil {
		return in.DeclaredOptions(), fmt.Errorf("failed to evaluate program: %w", err)
	}
	return in.DeclaredOptions(), nil
}

// Select narrows g to targets and then removes skipped nodes. Empty targets
// keep every node.
func Select(g *graph.Graph, targets, skip []string) error {
	if len(targets) > 0 {
		nodes, err := g.ResolveTargets(targets)
		if err != nil {
			return fmt.Errorf("failed to resolve targets: %w", err)
		}
		g.Select(nodes)
	}
	if len(skip) > 0 {
		nodes, err := g.ResolveTargets(skip)
		if err != nil {
			return fmt.Errorf("failed to resolve skipped nodes: %w", err)
		}
		g.Skip(nodes)
	}
	return nil
}
