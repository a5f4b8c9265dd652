package vm

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/buildgraph/internal/bytecode"
	"github.com/leapstack-labs/buildgraph/internal/graph"
)

// DefaultMaxDepth bounds expression nesting when Config.MaxDepth is zero.
const DefaultMaxDepth = 1000

// Config holds the inputs an interpreter consults besides the program.
type Config struct {
	// Options are the values read by the option opcodes. Keys are matched
	// case-insensitively.
	Options map[string]string

	// Handlers is the table Node expressions index into. When empty, the
	// handler of a task is recorded as its decimal index.
	Handlers []string

	MaxDepth int
	Trace    bool
	Logger   *slog.Logger

	// Culture selects the collation for culture-sensitive comparisons.
	// Defaults to en-US.
	Culture string
}

// Frame is one activation: a cursor into the program, the bound
// arguments, and the values of fragments already jumped to.
type Frame struct {
	reader bytecode.Reader
	args   []Value
	cache  map[int]Value
}

// Interpreter evaluates a program. It is not safe for concurrent use.
type Interpreter struct {
	program  *bytecode.Program
	options  map[string]string
	handlers []string
	maxDepth int
	trace    bool
	logger   *slog.Logger
	culture  language.Tag

	depth       int
	evaluations map[int]int
	declared    []OptionDecl
	declaredIdx map[string]int
	regexps     map[string]*regexp.Regexp
	collators   map[bool]*collate.Collator
}

// New returns an interpreter for p.
func New(p *bytecode.Program, cfg Config) (*Interpreter, error) {
	in := &Interpreter{
		program:     p,
		options:     make(map[string]string, len(cfg.Options)),
		handlers:    cfg.Handlers,
		maxDepth:    cfg.MaxDepth,
		trace:       cfg.Trace,
		logger:      cfg.Logger,
		culture:     language.AmericanEnglish,
		evaluations: make(map[int]int),
		declaredIdx: make(map[string]int),
		regexps:     make(map[string]*regexp.Regexp),
		collators:   make(map[bool]*collate.Collator),
	}
	for k, v := range cfg.Options {
		in.options[strings.ToLower(k)] = v
	}
	if in.maxDepth <= 0 {
		in.maxDepth = DefaultMaxDepth
	}
	if in.logger == nil {
		in.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Culture != "" {
		tag, err := language.Parse(cfg.Culture)
		if err != nil {
			return nil, fmt.Errorf("invalid culture %q: %w", cfg.Culture, err)
		}
		in.culture = tag
	}
	return in, nil
}

// Evaluate evaluates fragment 0 and returns its value.
func (in *Interpreter) Evaluate() (Value, error) {
	in.depth = 0
	return in.call(0, nil)
}

// Run evaluates the program and returns the graph it builds.
func (in *Interpreter) Run() (*graph.Graph, error) {
	v, err := in.Evaluate()
	if err != nil {
		return nil, err
	}
	g, ok := v.(GraphValue)
	if !ok {
		return nil, &MalformedError{Msg: fmt.Sprintf("program produced a %s, not a graph", v.Kind())}
	}
	in.logger.Debug("graph built", "summary", g.Graph.Describe())
	return g.Graph, nil
}

// FragmentEvaluations returns how many times fragment i has been
// evaluated, counting memoized jumps once.
func (in *Interpreter) FragmentEvaluations(i int) int {
	return in.evaluations[i]
}

// call evaluates a fragment in a fresh frame bound to args.
func (in *Interpreter) call(fragment int, args []Value) (Value, error) {
	offset, ok := in.program.FragmentOffset(fragment)
	if !ok {
		return nil, &MalformedError{Msg: fmt.Sprintf("fragment %d does not exist", fragment)}
	}
	f := &Frame{
		reader: in.program.Reader(offset),
		args:   args,
		cache:  make(map[int]Value),
	}
	in.evaluations[fragment]++
	return in.eval(f)
}

// jump evaluates a fragment in f, at most once per frame.
func (in *Interpreter) jump(f *Frame, fragment int) (Value, error) {
	if v, ok := f.cache[fragment]; ok {
		return v, nil
	}
	offset, ok := in.program.FragmentOffset(fragment)
	if !ok {
		return nil, in.malformedf(f, "fragment %d does not exist", fragment)
	}
	saved := f.reader.Offset()
	f.reader.Seek(offset)
	in.evaluations[fragment]++
	v, err := in.eval(f)
	f.reader.Seek(saved)
	if err != nil {
		return nil, err
	}
	f.cache[fragment] = v
	return v, nil
}

type opHandler func(in *Interpreter, f *Frame, op bytecode.Opcode) (Value, error)

var dispatch [256]opHandler

func register(h opHandler, ops ...bytecode.Opcode) {
	for _, op := range ops {
		dispatch[op] = h
	}
}

// eval reads one opcode at the cursor and evaluates it.
func (in *Interpreter) eval(f *Frame) (Value, error) {
	in.depth++
	defer func() { in.depth-- }()
	if in.depth > in.maxDepth {
		return nil, in.malformedf(f, "expression nesting exceeds %d", in.maxDepth)
	}

	offset := f.reader.Offset()
	op, err := f.reader.ReadOpcode()
	if err != nil {
		return nil, err
	}
	h := dispatch[op]
	if h == nil {
		return nil, &MalformedError{Offset: offset, Msg: fmt.Sprintf("unknown opcode 0x%02X", byte(op))}
	}
	if in.trace {
		in.logger.Debug("eval", "offset", offset, "op", op.String(), "depth", in.depth)
	}
	return h(in, f, op)
}

func (in *Interpreter) malformedf(f *Frame, format string, args ...any) error {
	return &MalformedError{Offset: f.reader.Offset(), Msg: fmt.Sprintf(format, args...)}
}

// evalAs evaluates the next expression and requires a T.
func evalAs[T Value](in *Interpreter, f *Frame) (T, error) {
	var zero T
	v, err := in.eval(f)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, in.malformedf(f, "expected %s, got %s", zero.Kind(), v.Kind())
	}
	return t, nil
}

func (in *Interpreter) evalBool(f *Frame) (bool, error) {
	b, err := evalAs[Bool](in, f)
	return bool(b), err
}

func (in *Interpreter) evalInt(f *Frame) (int64, error) {
	i, err := evalAs[Int](in, f)
	return int64(i), err
}

func (in *Interpreter) evalString(f *Frame) (string, error) {
	s, err := evalAs[String](in, f)
	return string(s), err
}

// evalOptionalString treats Null as the empty string.
func (in *Interpreter) evalOptionalString(f *Frame) (string, bool, error) {
	v, err := in.eval(f)
	if err != nil {
		return "", false, err
	}
	switch v := v.(type) {
	case Null:
		return "", false, nil
	case String:
		return string(v), true, nil
	default:
		return "", false, in.malformedf(f, "expected string or null, got %s", v.Kind())
	}
}

// evalItems evaluates a list and forces its entries.
func (in *Interpreter) evalItems(f *Frame) ([]Value, error) {
	l, err := evalAs[*List](in, f)
	if err != nil {
		return nil, err
	}
	return l.Items()
}

func (in *Interpreter) evalStrings(f *Frame) ([]string, error) {
	items, err := in.evalItems(f)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, v := range items {
		s, ok := v.(String)
		if !ok {
			return nil, in.malformedf(f, "expected list of string, element %d is %s", i, v.Kind())
		}
		out[i] = string(s)
	}
	return out, nil
}

func (in *Interpreter) readFragment(f *Frame) (int, error) {
	return f.reader.ReadCount()
}
