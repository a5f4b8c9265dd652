package graph

import (
	"slices"
)

// Builder assembles a Graph from nodes and groupings created elsewhere.
// Registration is dependency-first, so every node appears in its agent
// after all of the nodes it takes inputs from.
type Builder struct {
	g *Graph
}

// NewBuilder returns a builder for an empty graph.
func NewBuilder() *Builder {
	return &Builder{g: New()}
}

// RegisterNode adds n, its input dependencies and its agent to the graph.
// Nodes that n is only ordered after are not added; they constrain the
// schedule only when registered in their own right. Registering the same
// node twice is a no-op; registering a different node under an existing
// name is an error.
func (b *Builder) RegisterNode(n *Node) error {
	if existing, ok := b.g.NameToNode[n.Name]; ok {
		if existing != n {
			return duplicatef("node %q is defined more than once", n.Name)
		}
		return nil
	}

	for _, dep := range n.InputDependencies.Nodes() {
		if err := b.RegisterNode(dep); err != nil {
			return err
		}
	}

	agent, err := b.registerAgent(n)
	if err != nil {
		return err
	}

	for _, out := range n.Outputs {
		if other, ok := b.g.TagNameToOutput[out.TagName]; ok && other != out {
			return duplicatef("tag %q is produced by both %q and %q", out.TagName, other.Producer.Name, n.Name)
		}
	}

	n.Agent = agent
	agent.Nodes = append(agent.Nodes, n)
	b.g.NameToNode[n.Name] = n
	for _, out := range n.Outputs {
		b.g.TagNameToOutput[out.TagName] = out
	}
	return nil
}

// registerAgent returns the graph's agent for n, adding n.Agent on first
// sight. A second agent object with the same name is merged into the first
// when the machine types agree.
func (b *Builder) registerAgent(n *Node) (*Agent, error) {
	if n.Agent == nil {
		return nil, invariantf("node %q has no agent", n.Name)
	}
	for _, a := range b.g.Agents {
		if a.Name != n.Agent.Name {
			continue
		}
		if a != n.Agent && !slices.Equal(a.PossibleTypes, n.Agent.PossibleTypes) {
			return nil, &GraphError{
				Kind: ErrConflictingAgent,
				Msg:  "agent " + a.Name + " is declared with different machine types",
			}
		}
		return a, nil
	}
	b.g.Agents = append(b.g.Agents, n.Agent)
	return n.Agent, nil
}

// AddAggregate registers an aggregate and the nodes it requires.
func (b *Builder) AddAggregate(a *Aggregate) error {
	if existing, ok := b.g.NameToAggregate[a.Name]; ok {
		if existing != a {
			return duplicatef("aggregate %q is defined more than once", a.Name)
		}
		return nil
	}
	if _, ok := b.g.NameToNode[a.Name]; ok {
		return duplicatef("aggregate %q has the same name as a node", a.Name)
	}
	for _, n := range a.RequiredNodes.Nodes() {
		if err := b.RegisterNode(n); err != nil {
			return err
		}
	}
	b.g.Aggregates = append(b.g.Aggregates, a)
	b.g.NameToAggregate[a.Name] = a
	return nil
}

// AddReport registers a report and the nodes it covers.
func (b *Builder) AddReport(r *Report) error {
	if existing, ok := b.g.NameToReport[r.Name]; ok {
		if existing != r {
			return duplicatef("report %q is defined more than once", r.Name)
		}
		return nil
	}
	for _, n := range r.Nodes.Nodes() {
		if err := b.RegisterNode(n); err != nil {
			return err
		}
	}
	b.g.Reports = append(b.g.Reports, r)
	b.g.NameToReport[r.Name] = r
	return nil
}

// AddBadge registers a badge and the nodes it covers.
func (b *Builder) AddBadge(badge *Badge) error {
	if slices.Contains(b.g.Badges, badge) {
		return nil
	}
	for _, n := range badge.Nodes.Nodes() {
		if err := b.RegisterNode(n); err != nil {
			return err
		}
	}
	b.g.Badges = append(b.g.Badges, badge)
	return nil
}

// AddDiagnostic records d on the graph and on its agent, if any.
func (b *Builder) AddDiagnostic(d *Diagnostic) {
	if d.Node != nil && d.Agent == nil {
		d.Agent = d.Node.Agent
	}
	if d.Agent != nil {
		for _, a := range b.g.Agents {
			if a.Name == d.Agent.Name {
				d.Agent = a
				break
			}
		}
	}
	b.g.Diagnostics = append(b.g.Diagnostics, d)
	if d.Agent != nil {
		d.Agent.Diagnostics = append(d.Agent.Diagnostics, d)
	}
}

// Graph fills in label membership and returns the assembled graph.
//
// Order dependencies on nodes that were never registered are dropped. A
// node listing a label is required by it; an aggregate carrying a label
// makes its nodes required. Every required node is also included, together
// with its order dependencies.
func (b *Builder) Graph() *Graph {
	addLabel := func(l *Label, n *Node) {
		if !slices.Contains(b.g.Labels, l) {
			b.g.Labels = append(b.g.Labels, l)
		}
		l.RequiredNodes.Add(n)
		l.IncludedNodes.Add(n)
		l.IncludedNodes.AddAll(n.OrderDependencies)
	}

	registered := func(n *Node) bool { return b.g.NameToNode[n.Name] == n }
	for _, n := range b.g.AllNodes() {
		n.OrderDependencies.Retain(registered)
	}

	for _, n := range b.g.AllNodes() {
		for _, l := range n.Labels {
			addLabel(l, n)
		}
	}
	for _, a := range b.g.Aggregates {
		if a.Label == nil {
			continue
		}
		for _, n := range a.RequiredNodes.Nodes() {
			addLabel(a.Label, n)
		}
	}
	return b.g
}
