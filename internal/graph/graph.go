// Package graph holds the build graph produced by evaluating a program:
// agents, the nodes they run, and the aggregates, labels, reports and badges
// that group nodes for triggering and reporting.
//
// Objects are created once while a program is evaluated and keep their
// identity afterwards. Select narrows a graph in place; the export
// functions only read it.
package graph

import (
	"fmt"
)

// Agent is a group of nodes that run on the same machine, one of whose
// types must match PossibleTypes.
type Agent struct {
	Name          string
	PossibleTypes []string
	Nodes         []*Node
	Diagnostics   []*Diagnostic
}

// NewAgent returns an agent with no nodes.
func NewAgent(name string, types []string) *Agent {
	return &Agent{Name: name, PossibleTypes: types}
}

// Task is one unit of work run by a node: a handler identifier and its
// arguments, opaque to the graph.
type Task struct {
	Handler   string
	Arguments []string
}

// Output is a named artifact set produced by a node. Output 0 of every node
// is its implicit self-output.
type Output struct {
	Producer *Node
	Index    int
	TagName  string
}

func (o *Output) String() string { return o.TagName }

// Node is a unit of scheduled work.
//
// InputDependencies are the nodes whose outputs this node consumes, plus
// their input dependencies. OrderDependencies additionally contain every
// node that must merely finish first. Both sets are transitively closed and
// InputDependencies is a subset of OrderDependencies.
type Node struct {
	Name              string
	Agent             *Agent
	Inputs            []*Output
	Outputs           []*Output
	InputDependencies *NodeSet
	OrderDependencies *NodeSet
	RunEarly          bool
	NotifyUsers       []string
	NotifySubmitters  []string
	NotifyOnWarnings  bool
	Labels            []*Label
	Tasks             []Task
}

func (n *Node) String() string { return n.Name }

// DefaultOutput returns the implicit self-output.
func (n *Node) DefaultOutput() *Output { return n.Outputs[0] }

// Aggregate names a set of nodes that can be requested together.
type Aggregate struct {
	Name          string
	RequiredNodes *NodeSet
	Label         *Label
}

// LabelChange selects which changelist a label reports against.
type LabelChange int

const (
	LabelChangeCurrent LabelChange = iota
	LabelChangeCode
)

func (c LabelChange) String() string {
	switch c {
	case LabelChangeCurrent:
		return "Current"
	case LabelChangeCode:
		return "Code"
	default:
		return fmt.Sprintf("LabelChange(%d)", int(c))
	}
}

// Label groups nodes for display on a dashboard. RequiredNodes decide the
// label's state; IncludedNodes are the wider set whose failures are shown.
type Label struct {
	DashboardName     string
	DashboardCategory string
	UgsBadge          string
	UgsProject        string
	Change            LabelChange
	RequiredNodes     *NodeSet
	IncludedNodes     *NodeSet
}

// NewLabel returns a label with empty node sets.
func NewLabel() *Label {
	return &Label{RequiredNodes: NewNodeSet(), IncludedNodes: NewNodeSet()}
}

// Name returns "Category/Name" or whichever part is set.
func (l *Label) Name() string {
	switch {
	case l.DashboardCategory != "" && l.DashboardName != "":
		return l.DashboardCategory + "/" + l.DashboardName
	case l.DashboardName != "":
		return l.DashboardName
	case l.UgsBadge != "":
		return l.UgsBadge
	default:
		return l.DashboardCategory
	}
}

// Report is a notification sent once its nodes have completed.
type Report struct {
	Name        string
	Nodes       *NodeSet
	NotifyUsers []string
}

// Badge is a status marker published for a changelist once its nodes
// complete.
type Badge struct {
	Name    string
	Project string
	Change  int
	Nodes   *NodeSet
}

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Diagnostic is a message recorded while the graph was built. Node or Agent
// ties it to the object it was raised within; a diagnostic is dropped when
// that object is culled.
type Diagnostic struct {
	File     string
	Line     int
	Severity Severity
	Message  string
	Node     *Node
	Agent    *Agent
}

func (d *Diagnostic) String() string {
	if d.File == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s(%d): %s: %s", d.File, d.Line, d.Severity, d.Message)
}

// Graph is the root of a build graph.
type Graph struct {
	Agents          []*Agent
	Aggregates      []*Aggregate
	Reports         []*Report
	Labels          []*Label
	Badges          []*Badge
	Diagnostics     []*Diagnostic
	NameToNode      map[string]*Node
	NameToAggregate map[string]*Aggregate
	NameToReport    map[string]*Report
	TagNameToOutput map[string]*Output
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		NameToNode:      make(map[string]*Node),
		NameToAggregate: make(map[string]*Aggregate),
		NameToReport:    make(map[string]*Report),
		TagNameToOutput: make(map[string]*Output),
	}
}

// AllNodes returns every node in graph order: agent by agent, in the order
// nodes were added to each agent.
func (g *Graph) AllNodes() []*Node {
	var nodes []*Node
	for _, a := range g.Agents {
		nodes = append(nodes, a.Nodes...)
	}
	return nodes
}

// Ordered returns the members of set in graph order.
func (g *Graph) Ordered(set *NodeSet) []*Node {
	var nodes []*Node
	for _, n := range g.AllNodes() {
		if set.Contains(n) {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// OrderedNames is Ordered returning node names.
func (g *Graph) OrderedNames(set *NodeSet) []string {
	nodes := g.Ordered(set)
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return names
}
