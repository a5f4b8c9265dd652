package graph

import (
	"fmt"
	"strings"
)

// Select culls the graph in place to targets and everything they consume.
//
// Agents, aggregates and reports that lose all of their nodes are removed;
// ones that were already empty stay. Labels keep only retained members and
// are removed once the last node they require is culled. Badges survive only if all of their nodes are retained, and
// diagnostics only if the node or agent they belong to survives.
func (g *Graph) Select(targets []*Node) {
	retained := NewNodeSet()
	for _, t := range targets {
		retained.Add(t)
		retained.AddAll(t.InputDependencies)
	}
	keep := retained.Contains

	agents := g.Agents[:0]
	for _, a := range g.Agents {
		nodes := a.Nodes[:0]
		for _, n := range a.Nodes {
			if keep(n) {
				nodes = append(nodes, n)
			}
		}
		a.Nodes = nodes
		if len(a.Nodes) > 0 {
			agents = append(agents, a)
		}
	}
	g.Agents = agents

	for _, n := range g.AllNodes() {
		n.OrderDependencies.Retain(keep)
	}

	aggregates := g.Aggregates[:0]
	for _, a := range g.Aggregates {
		had := a.RequiredNodes.Len()
		a.RequiredNodes.Retain(keep)
		if had == 0 || a.RequiredNodes.Len() > 0 {
			aggregates = append(aggregates, a)
		}
	}
	g.Aggregates = aggregates

	reports := g.Reports[:0]
	for _, r := range g.Reports {
		had := r.Nodes.Len()
		r.Nodes.Retain(keep)
		if had == 0 || r.Nodes.Len() > 0 {
			reports = append(reports, r)
		}
	}
	g.Reports = reports

	labels := g.Labels[:0]
	for _, l := range g.Labels {
		had := l.RequiredNodes.Len()
		l.RequiredNodes.Retain(keep)
		l.IncludedNodes.Retain(keep)
		if had == 0 || l.RequiredNodes.Len() > 0 {
			labels = append(labels, l)
		}
	}
	g.Labels = labels

	badges := g.Badges[:0]
	for _, b := range g.Badges {
		if retained.ContainsAll(b.Nodes) {
			badges = append(badges, b)
		}
	}
	g.Badges = badges

	liveAgents := make(map[*Agent]bool, len(g.Agents))
	for _, a := range g.Agents {
		liveAgents[a] = true
	}
	diagnostics := g.Diagnostics[:0]
	for _, d := range g.Diagnostics {
		if d.Node != nil && !keep(d.Node) {
			continue
		}
		if d.Agent != nil && !liveAgents[d.Agent] {
			continue
		}
		diagnostics = append(diagnostics, d)
	}
	g.Diagnostics = diagnostics
	for _, a := range g.Agents {
		ds := a.Diagnostics[:0]
		for _, d := range a.Diagnostics {
			if d.Node == nil || keep(d.Node) {
				ds = append(ds, d)
			}
		}
		a.Diagnostics = ds
	}

	g.reindex()
}

// reindex rebuilds the lookup maps from the surviving objects.
func (g *Graph) reindex() {
	g.NameToNode = make(map[string]*Node)
	g.TagNameToOutput = make(map[string]*Output)
	for _, n := range g.AllNodes() {
		g.NameToNode[n.Name] = n
		for _, out := range n.Outputs {
			g.TagNameToOutput[out.TagName] = out
		}
	}
	g.NameToAggregate = make(map[string]*Aggregate, len(g.Aggregates))
	for _, a := range g.Aggregates {
		g.NameToAggregate[a.Name] = a
	}
	g.NameToReport = make(map[string]*Report, len(g.Reports))
	for _, r := range g.Reports {
		g.NameToReport[r.Name] = r
	}
}

// ResolveTargets maps target names to nodes. A name may be a node name, an
// output tag, or an aggregate name, which expands to its required nodes.
// Names are matched case-insensitively when there is no exact match.
func (g *Graph) ResolveTargets(names []string) ([]*Node, error) {
	targets := NewNodeSet()
	var unknown []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if n := g.lookupNode(name); n != nil {
			targets.Add(n)
			continue
		}
		if out := g.lookupTag(name); out != nil {
			targets.Add(out.Producer)
			continue
		}
		if a := g.lookupAggregate(name); a != nil {
			targets.AddAll(a.RequiredNodes)
			continue
		}
		unknown = append(unknown, name)
	}
	if len(unknown) > 0 {
		return nil, &GraphError{Kind: ErrUnknownTarget, Msg: strings.Join(unknown, ", ")}
	}
	return targets.Nodes(), nil
}

func (g *Graph) lookupNode(name string) *Node {
	if n, ok := g.NameToNode[name]; ok {
		return n
	}
	for key, n := range g.NameToNode {
		if strings.EqualFold(key, name) {
			return n
		}
	}
	return nil
}

func (g *Graph) lookupTag(name string) *Output {
	if out, ok := g.TagNameToOutput[name]; ok {
		return out
	}
	for key, out := range g.TagNameToOutput {
		if strings.EqualFold(key, name) {
			return out
		}
	}
	return nil
}

func (g *Graph) lookupAggregate(name string) *Aggregate {
	if a, ok := g.NameToAggregate[name]; ok {
		return a
	}
	for key, a := range g.NameToAggregate {
		if strings.EqualFold(key, name) {
			return a
		}
	}
	return nil
}

// Skip removes the named nodes and every node ordered after them.
func (g *Graph) Skip(skipped []*Node) {
	skip := NewNodeSet(skipped...)
	var keep []*Node
	for _, n := range g.AllNodes() {
		if skip.Contains(n) {
			continue
		}
		dependsOnSkipped := false
		for _, dep := range n.OrderDependencies.Nodes() {
			if skip.Contains(dep) {
				dependsOnSkipped = true
				break
			}
		}
		if !dependsOnSkipped {
			keep = append(keep, n)
		}
	}
	g.Select(keep)
}

// Describe returns a one-line summary of the graph's size.
func (g *Graph) Describe() string {
	return fmt.Sprintf("%d agents, %d nodes, %d aggregates, %d labels, %d reports, %d badges",
		len(g.Agents), len(g.NameToNode), len(g.Aggregates), len(g.Labels), len(g.Reports), len(g.Badges))
}
