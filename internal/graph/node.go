package graph

import "fmt"

// NewNode creates a node consuming inputs and ordered after fences.
//
// Input and order dependencies are derived from the producers of the
// referenced outputs and closed over the producers' own dependencies, so
// the new node only ever refers to nodes that already exist. Output 0 is
// tagged "#<name>"; explicit outputs 1..outputCount are tagged
// "<name>$<i>". The node is not attached to agent until it is registered
// with a Builder.
func NewNode(name string, agent *Agent, inputs, fences []*Output, outputCount int) *Node {
	n := &Node{
		Name:              name,
		Agent:             agent,
		InputDependencies: NewNodeSet(),
		OrderDependencies: NewNodeSet(),
		NotifyOnWarnings:  true,
	}

	seen := make(map[*Output]bool, len(inputs))
	for _, in := range inputs {
		if seen[in] {
			continue
		}
		seen[in] = true
		n.Inputs = append(n.Inputs, in)
		n.InputDependencies.Add(in.Producer)
		n.InputDependencies.AddAll(in.Producer.InputDependencies)
	}

	for _, dep := range n.InputDependencies.Nodes() {
		n.OrderDependencies.Add(dep)
		n.OrderDependencies.AddAll(dep.OrderDependencies)
	}
	for _, fence := range fences {
		n.OrderDependencies.Add(fence.Producer)
		n.OrderDependencies.AddAll(fence.Producer.OrderDependencies)
	}

	n.Outputs = make([]*Output, 0, outputCount+1)
	n.Outputs = append(n.Outputs, &Output{Producer: n, Index: 0, TagName: "#" + name})
	for i := 1; i <= outputCount; i++ {
		n.Outputs = append(n.Outputs, &Output{Producer: n, Index: i, TagName: fmt.Sprintf("%s$%d", name, i)})
	}
	return n
}

// Producers returns the distinct producing nodes of outputs.
func Producers(outputs []*Output) *NodeSet {
	s := NewNodeSet()
	for _, o := range outputs {
		s.Add(o.Producer)
	}
	return s
}

// NewAggregate returns an aggregate over the producers of outputs.
func NewAggregate(name string, outputs []*Output, label *Label) *Aggregate {
	return &Aggregate{Name: name, RequiredNodes: Producers(outputs), Label: label}
}

// NewReport returns a report covering the producers of requires and
// everything they are ordered after.
func NewReport(name string, requires []*Output, notify []string) *Report {
	nodes := NewNodeSet()
	for _, n := range Producers(requires).Nodes() {
		nodes.Add(n)
		nodes.AddAll(n.OrderDependencies)
	}
	return &Report{Name: name, Nodes: nodes, NotifyUsers: notify}
}

// NewBadge returns a badge covering the producers of requires, the
// producers of targets and everything the targets are ordered after.
func NewBadge(name, project string, change int, requires, targets []*Output) *Badge {
	nodes := Producers(requires)
	for _, n := range Producers(targets).Nodes() {
		nodes.Add(n)
		nodes.AddAll(n.OrderDependencies)
	}
	return &Badge{Name: name, Project: project, Change: change, Nodes: nodes}
}
