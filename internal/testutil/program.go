package testutil

import (
	"github.com/leapstack-labs/buildgraph/internal/bytecode"
)

// Expr writes one expression into a fragment.
type Expr func(f *bytecode.Fragment)

// Emit writes every expression in order.
func Emit(f *bytecode.Fragment, exprs ...Expr) *bytecode.Fragment {
	for _, e := range exprs {
		e(f)
	}
	return f
}

// Op writes a bare opcode.
func Op(op bytecode.Opcode) Expr {
	return func(f *bytecode.Fragment) { f.Op(op) }
}

// Str writes a string literal.
func Str(s string) Expr {
	return func(f *bytecode.Fragment) { f.Op(bytecode.OpStrLiteral).Str(s) }
}

// Int writes an integer literal.
func Int(v int64) Expr {
	return func(f *bytecode.Fragment) { f.Op(bytecode.OpIntLiteral).Signed(v) }
}

// Bool writes a boolean literal.
func Bool(v bool) Expr {
	if v {
		return Op(bytecode.OpBoolTrue)
	}
	return Op(bytecode.OpBoolFalse)
}

// Null writes a null.
func Null() Expr { return Op(bytecode.OpNull) }

// Jump writes a memoized jump to target.
func Jump(target *bytecode.Fragment) Expr {
	return func(f *bytecode.Fragment) { f.Op(bytecode.OpJump).Ref(target) }
}

// Call writes a call of target with args.
func Call(target *bytecode.Fragment, args ...Expr) Expr {
	return func(f *bytecode.Fragment) {
		f.Op(bytecode.OpCall).Unsigned(uint64(len(args)))
		Emit(f, args...)
		f.Ref(target)
	}
}

// Arg writes a read of argument i.
func Arg(i int) Expr {
	return func(f *bytecode.Fragment) { f.Op(bytecode.OpArgument).Unsigned(uint64(i)) }
}

// List writes a list built by pushing items onto an empty list.
func List(items ...Expr) Expr {
	return func(f *bytecode.Fragment) {
		for range items {
			f.Op(bytecode.OpListPush)
		}
		f.Op(bytecode.OpListEmpty)
		Emit(f, items...)
	}
}

// Strs writes a list of string literals.
func Strs(items ...string) Expr {
	exprs := make([]Expr, len(items))
	for i, s := range items {
		exprs[i] = Str(s)
	}
	return List(exprs...)
}

// Jumps writes a list of jumps, one per target.
func Jumps(targets ...*bytecode.Fragment) Expr {
	exprs := make([]Expr, len(targets))
	for i, t := range targets {
		exprs[i] = Jump(t)
	}
	return List(exprs...)
}

// With writes op followed by its operand expressions.
func With(op bytecode.Opcode, operands ...Expr) Expr {
	return func(f *bytecode.Fragment) {
		f.Op(op)
		Emit(f, operands...)
	}
}

// Agent writes an Agent expression.
func Agent(name string, types ...string) Expr {
	return With(bytecode.OpAgent, Str(name), Strs(types...))
}

// NodeSpec describes a Node expression. Agent, Inputs and Fences are
// expressions so callers decide how references are shared.
type NodeSpec struct {
	Name             string
	Agent            Expr
	Handler          int
	Args             []string
	Inputs           []Expr
	Fences           []Expr
	Outputs          int
	RunEarly         bool
	Labels           []Expr
	NotifyUsers      []string
	NotifySubmitters []string
	// SuppressWarnings clears the notify-on-warnings flag.
	SuppressWarnings bool
}

// Node writes a Node expression.
func Node(n NodeSpec) Expr {
	return func(f *bytecode.Fragment) {
		f.Op(bytecode.OpNode)
		Emit(f, Str(n.Name), n.Agent)
		f.Unsigned(uint64(n.Handler))
		Emit(f, Strs(n.Args...), List(n.Inputs...), List(n.Fences...))
		f.Unsigned(uint64(n.Outputs))
		Emit(f,
			Bool(n.RunEarly),
			List(n.Labels...),
			Strs(n.NotifyUsers...),
			Strs(n.NotifySubmitters...),
			Bool(!n.SuppressWarnings),
		)
	}
}

// NodeOutput writes a reference to output index of node.
func NodeOutput(node Expr, index int) Expr {
	return func(f *bytecode.Fragment) {
		f.Op(bytecode.OpNodeOutput)
		node(f)
		f.Unsigned(uint64(index))
	}
}

// OptionalStr writes a string literal, or null when s is empty.
func OptionalStr(s string) Expr {
	if s == "" {
		return Null()
	}
	return Str(s)
}

// Graph writes a Graph expression.
func Graph(nodes, aggregates, reports, badges, diagnostics Expr) Expr {
	return With(bytecode.OpGraph, nodes, aggregates, reports, badges, diagnostics)
}

// SampleHandlers is the handler table SampleProgram is written against.
var SampleHandlers = []string{"Compile", "Cook"}

// SampleProgram returns a program building this graph:
//
//	agent "Compile Win64" [Win64]
//	  A
//	  B          after A, one extra output
//	  C          requires A and B$1, notifies dev@example.com
//	agent "Tools" [Win64]
//	  T          run early, only when option WithTools is true (default)
//	aggregate "Everything" [A B C] labelled Platforms/Win64
//	report "Nightly" requires C
//	badge "Compile" for C
//	diagnostic warning on A
//
// Each node lives in its own fragment and is only ever reached by Jump,
// so every reference to it shares one node object.
func SampleProgram() []byte {
	w := bytecode.NewWriter()
	root := w.Root()
	win64 := w.NewFragment()
	tools := w.NewFragment()
	a := w.NewFragment()
	b := w.NewFragment()
	c := w.NewFragment()
	t := w.NewFragment()
	label := w.NewFragment()
	everything := w.NewFragment()
	toolNodes := w.NewFragment()
	noNodes := w.NewFragment()

	Emit(win64, Agent("Compile Win64", "Win64"))
	Emit(tools, Agent("Tools", "Win64"))
	Emit(a, Node(NodeSpec{Name: "A", Agent: Jump(win64), Args: []string{"-Target=A"}}))
	Emit(b, Node(NodeSpec{
		Name:    "B",
		Agent:   Jump(win64),
		Args:    []string{"-Target=B"},
		Fences:  []Expr{Jump(a)},
		Outputs: 1,
	}))
	Emit(c, Node(NodeSpec{
		Name:        "C",
		Agent:       Jump(win64),
		Handler:     1,
		Args:        []string{"-Target=C", "-Platform=Win64"},
		Inputs:      []Expr{Jump(a), NodeOutput(Jump(b), 1)},
		NotifyUsers: []string{"dev@example.com"},
	}))
	Emit(t, Node(NodeSpec{Name: "T", Agent: Jump(tools), RunEarly: true}))
	Emit(label, With(bytecode.OpLabel, Str("Win64"), Str("Platforms"), Null(), Null(), Int(0)))
	Emit(everything, With(bytecode.OpAggregate, Str("Everything"), Jumps(a, b, c), Jump(label)))
	Emit(toolNodes, Jumps(t))
	Emit(noNodes, Op(bytecode.OpListEmpty))

	withTools := func(f *bytecode.Fragment) {
		f.Op(bytecode.OpChoose).Op(bytecode.OpBoolOption).Str("WithTools").Str("Build the tools agent")
		f.Op(bytecode.OpBoolTrue).Ref(toolNodes).Ref(noNodes)
	}

	Emit(root, Graph(
		With(bytecode.OpListConcat, Jumps(a, b, c), withTools),
		Jumps(everything),
		List(With(bytecode.OpReport, Str("Nightly"), Jumps(c), Strs("qa@example.com"))),
		List(With(bytecode.OpBadge, Str("Compile"), Str("Engine"), Int(0), List(), Jumps(c))),
		List(func(f *bytecode.Fragment) {
			f.Op(bytecode.OpDiagnostic).Str("build.xml").Unsigned(12)
			Emit(f, Int(1), Str("A is slow"), Jump(a))
		}),
	))
	return w.Bytes()
}
