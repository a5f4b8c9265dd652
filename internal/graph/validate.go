package graph

import (
	"errors"
)

// Validate checks the structural invariants of the graph and returns every
// violation joined into one error.
func (g *Graph) Validate() error {
	var errs []error
	seen := make(map[*Node]bool)

	for _, a := range g.Agents {
		for _, n := range a.Nodes {
			if seen[n] {
				errs = append(errs, invariantf("node %q belongs to more than one agent", n.Name))
				continue
			}
			seen[n] = true
			if n.Agent != a {
				errs = append(errs, invariantf("node %q is listed under agent %q but owned by another", n.Name, a.Name))
			}
			if g.NameToNode[n.Name] != n {
				errs = append(errs, invariantf("node %q is missing from the name index", n.Name))
			}
			errs = append(errs, g.validateNode(n)...)
		}
	}

	if len(g.NameToNode) != len(seen) {
		errs = append(errs, invariantf("name index has %d nodes, agents own %d", len(g.NameToNode), len(seen)))
	}
	for tag, out := range g.TagNameToOutput {
		if out.TagName != tag || !seen[out.Producer] {
			errs = append(errs, invariantf("tag %q does not resolve to a live output", tag))
		}
	}
	return errors.Join(errs...)
}

func (g *Graph) validateNode(n *Node) []error {
	var errs []error
	if n.OrderDependencies.Contains(n) {
		errs = append(errs, invariantf("node %q depends on itself", n.Name))
	}
	for _, dep := range n.InputDependencies.Nodes() {
		if !n.OrderDependencies.Contains(dep) {
			errs = append(errs, invariantf("input dependency %q of %q is not an order dependency", dep.Name, n.Name))
		}
		if g.NameToNode[dep.Name] != dep {
			errs = append(errs, invariantf("input dependency %q of %q is not in the graph", dep.Name, n.Name))
		}
		if !n.InputDependencies.ContainsAll(dep.InputDependencies) {
			errs = append(errs, invariantf("input dependencies of %q are not closed over %q", n.Name, dep.Name))
		}
	}
	for _, dep := range n.OrderDependencies.Nodes() {
		if g.NameToNode[dep.Name] != dep {
			errs = append(errs, invariantf("order dependency %q of %q is not in the graph", dep.Name, n.Name))
		}
		if !n.OrderDependencies.ContainsAll(dep.OrderDependencies) {
			errs = append(errs, invariantf("order dependencies of %q are not closed over %q", n.Name, dep.Name))
		}
	}
	for i, out := range n.Outputs {
		if out.Producer != n || out.Index != i {
			errs = append(errs, invariantf("output %q of %q has the wrong producer or index", out.TagName, n.Name))
		}
	}
	return errs
}

// Levels groups nodes into waves: every node's order dependencies lie in
// earlier waves. Nodes keep graph order within a wave.
func (g *Graph) Levels() [][]*Node {
	level := make(map[*Node]int)
	var levels [][]*Node
	// an agent may precede the agents it depends on, so resolve recursively
	var depth func(n *Node) int
	depth = func(n *Node) int {
		if l, ok := level[n]; ok {
			return l
		}
		level[n] = 0
		l := 0
		for _, dep := range n.OrderDependencies.Nodes() {
			if d := depth(dep) + 1; d > l {
				l = d
			}
		}
		level[n] = l
		return l
	}
	for _, n := range g.AllNodes() {
		l := depth(n)
		for len(levels) <= l {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], n)
	}
	return levels
}
