package vm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/buildgraph/internal/bytecode"
	"github.com/leapstack-labs/buildgraph/internal/graph"
	tu "github.com/leapstack-labs/buildgraph/internal/testutil"
)

func runSample(t *testing.T, options map[string]string) (*graph.Graph, *Interpreter) {
	t.Helper()
	p, err := bytecode.Parse(tu.SampleProgram())
	require.NoError(t, err)
	in, err := New(p, Config{
		Options:  options,
		Handlers: tu.SampleHandlers,
		Trace:    true,
		Logger:   tu.NewTestLogger(t),
	})
	require.NoError(t, err)
	g, err := in.Run()
	require.NoError(t, err)
	return g, in
}

func agentNames(g *graph.Graph) []string {
	var names []string
	for _, a := range g.Agents {
		names = append(names, a.Name)
	}
	return names
}

func nodeNames(nodes []*graph.Node) []string {
	var names []string
	for _, n := range nodes {
		names = append(names, n.Name)
	}
	return names
}

// summarize renders every name and edge of g, one line per object.
func summarize(g *graph.Graph) []string {
	var lines []string
	for _, a := range g.Agents {
		for _, n := range a.Nodes {
			lines = append(lines, fmt.Sprintf("%s/%s input=%s order=%s",
				a.Name, n.Name,
				strings.Join(n.InputDependencies.Names(), ","),
				strings.Join(n.OrderDependencies.Names(), ",")))
		}
	}
	for _, ag := range g.Aggregates {
		lines = append(lines, "aggregate "+ag.Name+"="+strings.Join(ag.RequiredNodes.Names(), ","))
	}
	for _, l := range g.Labels {
		lines = append(lines, "label "+l.Name()+"="+strings.Join(l.RequiredNodes.Names(), ","))
	}
	return lines
}

func TestRun_SampleProgram(t *testing.T) {
	g, _ := runSample(t, nil)
	require.NoError(t, g.Validate())

	assert.Equal(t, []string{"Compile Win64", "Tools"}, agentNames(g))
	assert.Equal(t, []string{"A", "B", "C", "T"}, nodeNames(g.AllNodes()))

	a, b, c, tn := g.NameToNode["A"], g.NameToNode["B"], g.NameToNode["C"], g.NameToNode["T"]

	// B runs after A without consuming anything.
	assert.Equal(t, []string{"A"}, b.OrderDependencies.Names())
	assert.Zero(t, b.InputDependencies.Len())
	assert.Equal(t, []string{"#B", "B$1"}, []string{b.Outputs[0].TagName, b.Outputs[1].TagName})

	// C requires A and B's explicit output.
	assert.Equal(t, []string{"A", "B"}, c.InputDependencies.Names())
	assert.Equal(t, []string{"A", "B"}, c.OrderDependencies.Names())
	assert.Equal(t, []graph.Task{{Handler: "Cook", Arguments: []string{"-Target=C", "-Platform=Win64"}}}, c.Tasks)
	assert.Equal(t, []string{"dev@example.com"}, c.NotifyUsers)
	assert.True(t, c.NotifyOnWarnings)

	assert.True(t, tn.RunEarly)
	assert.Equal(t, "Compile", tn.Tasks[0].Handler)

	require.Len(t, g.Aggregates, 1)
	assert.Equal(t, []string{"A", "B", "C"}, g.Aggregates[0].RequiredNodes.Names())

	require.Len(t, g.Labels, 1)
	assert.Equal(t, "Platforms/Win64", g.Labels[0].Name())
	assert.Equal(t, []string{"A", "B", "C"}, g.Labels[0].RequiredNodes.Names())

	require.Len(t, g.Reports, 1)
	assert.Equal(t, []string{"C", "A", "B"}, g.Reports[0].Nodes.Names())
	assert.Equal(t, []string{"qa@example.com"}, g.Reports[0].NotifyUsers)

	require.Len(t, g.Badges, 1)
	assert.Equal(t, "Engine", g.Badges[0].Project)
	assert.Equal(t, []string{"C", "A", "B"}, g.Badges[0].Nodes.Names())

	require.Len(t, g.Diagnostics, 1)
	d := g.Diagnostics[0]
	assert.Equal(t, graph.SeverityWarning, d.Severity)
	assert.Same(t, a, d.Node)
	assert.Same(t, g.Agents[0], d.Agent)
	assert.Equal(t, []*graph.Diagnostic{d}, g.Agents[0].Diagnostics)
}

func TestRun_IdentitySharing(t *testing.T) {
	g, in := runSample(t, nil)
	a, b, c := g.NameToNode["A"], g.NameToNode["B"], g.NameToNode["C"]

	assert.Same(t, a, b.OrderDependencies.Nodes()[0])
	assert.Same(t, a, c.Inputs[0].Producer)
	assert.Same(t, b, c.Inputs[1].Producer)
	assert.Same(t, c, g.Reports[0].Nodes.Nodes()[0])
	assert.Same(t, a.Agent, c.Agent)
	assert.Len(t, g.NameToNode, 4)

	// node fragments are 3, 4 and 5, each built once
	for _, frag := range []int{3, 4, 5} {
		assert.Equal(t, 1, in.FragmentEvaluations(frag), "fragment %d", frag)
	}
}

func TestRun_OptionRemovesBranch(t *testing.T) {
	g, in := runSample(t, map[string]string{"withtools": "false"})

	assert.Equal(t, []string{"Compile Win64"}, agentNames(g))
	assert.Equal(t, []string{"A", "B", "C"}, nodeNames(g.AllNodes()))
	assert.Equal(t, []OptionDecl{
		{Name: "WithTools", Description: "Build the tools agent", Kind: KindBool, Value: "false"},
	}, in.DeclaredOptions())
}

func TestRun_Deterministic(t *testing.T) {
	first, _ := runSample(t, nil)
	second, _ := runSample(t, nil)
	assert.Equal(t, summarize(first), summarize(second))
}

func TestRun_SelectKeepsConsumedClosure(t *testing.T) {
	w := bytecode.NewWriter()
	agent := w.NewFragment()
	a, b, c, d := w.NewFragment(), w.NewFragment(), w.NewFragment(), w.NewFragment()
	tu.Emit(agent, tu.Agent("Win64", "Win64"))
	tu.Emit(a, tu.Node(tu.NodeSpec{Name: "A", Agent: tu.Jump(agent)}))
	tu.Emit(b, tu.Node(tu.NodeSpec{Name: "B", Agent: tu.Jump(agent), Fences: []tu.Expr{tu.Jump(a)}}))
	tu.Emit(c, tu.Node(tu.NodeSpec{Name: "C", Agent: tu.Jump(agent), Inputs: []tu.Expr{tu.Jump(a), tu.Jump(b)}}))
	tu.Emit(d, tu.Node(tu.NodeSpec{Name: "D", Agent: tu.Jump(agent)}))
	tu.Emit(w.Root(), tu.Graph(
		tu.Jumps(a, b, c, d),
		tu.List(
			tu.With(bytecode.OpAggregate, tu.Str("Everything"), tu.Jumps(a, b, c), tu.Null()),
			tu.With(bytecode.OpAggregate, tu.Str("Other"), tu.Jumps(d), tu.Null()),
		),
		tu.List(), tu.List(), tu.List(),
	))

	g, err := newInterpreter(t, w, Config{}).Run()
	require.NoError(t, err)
	targets, err := g.ResolveTargets([]string{"C"})
	require.NoError(t, err)
	g.Select(targets)
	require.NoError(t, g.Validate())

	assert.Equal(t, []string{"A", "B", "C"}, nodeNames(g.AllNodes()))
	require.Len(t, g.Aggregates, 1)
	assert.Equal(t, "Everything", g.Aggregates[0].Name)
	assert.Equal(t, 3, g.Aggregates[0].RequiredNodes.Len())
	assert.NotContains(t, g.NameToAggregate, "Other")
}

func TestRun_FencedNodeIsNotRegistered(t *testing.T) {
	w := bytecode.NewWriter()
	agent := w.NewFragment()
	a, b := w.NewFragment(), w.NewFragment()
	tu.Emit(agent, tu.Agent("Win64", "Win64"))
	tu.Emit(a, tu.Node(tu.NodeSpec{Name: "A", Agent: tu.Jump(agent)}))
	tu.Emit(b, tu.Node(tu.NodeSpec{Name: "B", Agent: tu.Jump(agent), Fences: []tu.Expr{tu.Jump(a)}}))
	tu.Emit(w.Root(), tu.Graph(tu.Jumps(b), tu.List(), tu.List(), tu.List(), tu.List()))

	g, err := newInterpreter(t, w, Config{}).Run()
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	assert.Equal(t, []string{"B"}, nodeNames(g.AllNodes()))
	assert.NotContains(t, g.NameToNode, "A")
	assert.Zero(t, g.NameToNode["B"].OrderDependencies.Len())
}

func TestRun_NodeOutputs(t *testing.T) {
	w := bytecode.NewWriter()
	agent := w.NewFragment()
	a, b := w.NewFragment(), w.NewFragment()
	tu.Emit(agent, tu.Agent("Win64", "Win64"))
	tu.Emit(a, tu.Node(tu.NodeSpec{Name: "A", Agent: tu.Jump(agent), Outputs: 1}))
	tu.Emit(b, tu.Node(tu.NodeSpec{Name: "B", Agent: tu.Jump(agent), Inputs: []tu.Expr{tu.NodeOutput(tu.Jump(a), 1)}}))
	tu.Emit(w.Root(), join(tu.With(bytecode.OpNodeOutputs, tu.Jump(b))))

	got, err := newInterpreter(t, w, Config{}).Evaluate()
	require.NoError(t, err)
	assert.Equal(t, String("#B,#A,A$1"), got)
}

func TestRun_Errors(t *testing.T) {
	t.Run("duplicate node name", func(t *testing.T) {
		w := bytecode.NewWriter()
		agent := w.NewFragment()
		first, second := w.NewFragment(), w.NewFragment()
		tu.Emit(agent, tu.Agent("Win64", "Win64"))
		tu.Emit(first, tu.Node(tu.NodeSpec{Name: "A", Agent: tu.Jump(agent)}))
		tu.Emit(second, tu.Node(tu.NodeSpec{Name: "A", Agent: tu.Jump(agent)}))
		tu.Emit(w.Root(), tu.Graph(tu.Jumps(first, second), tu.List(), tu.List(), tu.List(), tu.List()))

		_, err := newInterpreter(t, w, Config{}).Run()
		assert.ErrorIs(t, err, ErrMalformed)
		assert.ErrorIs(t, err, graph.ErrDuplicateName)
	})

	t.Run("conflicting agents", func(t *testing.T) {
		w := bytecode.NewWriter()
		tu.Emit(w.Root(), tu.Graph(
			tu.List(
				tu.Node(tu.NodeSpec{Name: "A", Agent: tu.Agent("Win64", "Win64")}),
				tu.Node(tu.NodeSpec{Name: "B", Agent: tu.Agent("Win64", "Linux")}),
			),
			tu.List(), tu.List(), tu.List(), tu.List(),
		))

		_, err := newInterpreter(t, w, Config{}).Run()
		assert.ErrorIs(t, err, graph.ErrConflictingAgent)
	})

	t.Run("handler out of range", func(t *testing.T) {
		w := bytecode.NewWriter()
		tu.Emit(w.Root(), tu.Node(tu.NodeSpec{Name: "A", Agent: tu.Agent("Win64"), Handler: 2}))

		_, err := newInterpreter(t, w, Config{Handlers: []string{"Compile"}}).Evaluate()
		assert.ErrorIs(t, err, ErrMalformed)
		assert.Contains(t, err.Error(), "handler 2 out of range")
	})

	t.Run("not a graph", func(t *testing.T) {
		w := bytecode.NewWriter()
		tu.Emit(w.Root(), tu.Bool(true))

		_, err := newInterpreter(t, w, Config{}).Run()
		assert.ErrorIs(t, err, ErrMalformed)
		assert.Contains(t, err.Error(), "produced a bool")
	})
}

func TestRun_SameAgentNameMerges(t *testing.T) {
	w := bytecode.NewWriter()
	tu.Emit(w.Root(), tu.Graph(
		tu.List(
			tu.Node(tu.NodeSpec{Name: "A", Agent: tu.Agent("Win64", "Win64")}),
			tu.Node(tu.NodeSpec{Name: "B", Agent: tu.Agent("Win64", "Win64")}),
		),
		tu.List(), tu.List(), tu.List(), tu.List(),
	))

	g, err := newInterpreter(t, w, Config{}).Run()
	require.NoError(t, err)
	require.Len(t, g.Agents, 1)
	assert.Equal(t, []string{"A", "B"}, nodeNames(g.Agents[0].Nodes))
	assert.Same(t, g.Agents[0], g.NameToNode["B"].Agent)
}
