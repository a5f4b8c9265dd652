package export

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/leapstack-labs/buildgraph/internal/graph"
)

type markupGraph struct {
	XMLName    xml.Name          `xml:"BuildGraph"`
	Agents     []markupAgent     `xml:"Agent"`
	Aggregates []markupAggregate `xml:"Aggregate"`
	Labels     []markupLabel     `xml:"Label"`
	Reports    []markupReport    `xml:"Report"`
	Badges     []markupBadge     `xml:"Badge"`
}

type markupAgent struct {
	Name  string       `xml:"Name,attr"`
	Type  string       `xml:"Type,attr,omitempty"`
	Nodes []markupNode `xml:"Node"`
}

type markupNode struct {
	Name             string       `xml:"Name,attr"`
	Requires         string       `xml:"Requires,attr,omitempty"`
	Produces         string       `xml:"Produces,attr,omitempty"`
	After            string       `xml:"After,attr,omitempty"`
	RunEarly         string       `xml:"RunEarly,attr,omitempty"`
	NotifyOnWarnings string       `xml:"NotifyOnWarnings,attr,omitempty"`
	Tasks            []markupTask `xml:"Task"`
}

type markupTask struct {
	Handler   string   `xml:"Handler,attr"`
	Arguments []string `xml:"Argument"`
}

type markupAggregate struct {
	Name     string `xml:"Name,attr"`
	Requires string `xml:"Requires,attr"`
}

type markupLabel struct {
	Name       string `xml:"Name,attr,omitempty"`
	Category   string `xml:"Category,attr,omitempty"`
	UgsBadge   string `xml:"UgsBadge,attr,omitempty"`
	UgsProject string `xml:"UgsProject,attr,omitempty"`
	Change     string `xml:"Change,attr,omitempty"`
	Requires   string `xml:"Requires,attr"`
	Include    string `xml:"Include,attr,omitempty"`
}

type markupReport struct {
	Name     string `xml:"Name,attr"`
	Requires string `xml:"Requires,attr"`
	Notify   string `xml:"Notify,attr,omitempty"`
}

type markupBadge struct {
	Name     string `xml:"Name,attr"`
	Project  string `xml:"Project,attr,omitempty"`
	Change   string `xml:"Change,attr,omitempty"`
	Requires string `xml:"Requires,attr"`
}

// WriteMarkup writes g back out in the declarative script shape. Ordering
// edges are reduced, and After only lists nodes not already implied by
// Requires.
func WriteMarkup(w io.Writer, g *graph.Graph) error {
	joined := func(set *graph.NodeSet) string {
		return strings.Join(g.OrderedNames(set), ";")
	}
	tags := func(outputs []*graph.Output) string {
		names := make([]string, len(outputs))
		for i, o := range outputs {
			names[i] = o.TagName
		}
		return strings.Join(names, ";")
	}

	doc := markupGraph{}
	for _, a := range g.Agents {
		agent := markupAgent{Name: a.Name, Type: strings.Join(a.PossibleTypes, ";")}
		for _, n := range a.Nodes {
			after := n.DirectOrderDependencies()
			after.Retain(func(dep *graph.Node) bool { return !n.InputDependencies.Contains(dep) })

			node := markupNode{
				Name:     n.Name,
				Requires: tags(n.Inputs),
				Produces: tags(n.Outputs[1:]),
				After:    joined(after),
			}
			if n.RunEarly {
				node.RunEarly = "true"
			}
			if !n.NotifyOnWarnings {
				node.NotifyOnWarnings = "false"
			}
			for _, t := range n.Tasks {
				node.Tasks = append(node.Tasks, markupTask{Handler: t.Handler, Arguments: t.Arguments})
			}
			agent.Nodes = append(agent.Nodes, node)
		}
		doc.Agents = append(doc.Agents, agent)
	}

	for _, a := range g.Aggregates {
		doc.Aggregates = append(doc.Aggregates, markupAggregate{Name: a.Name, Requires: joined(a.RequiredNodes)})
	}

	for _, l := range g.Labels {
		include := l.IncludedNodes.Clone()
		include.Retain(func(n *graph.Node) bool { return !l.RequiredNodes.Contains(n) })
		label := markupLabel{
			Name:       l.DashboardName,
			Category:   l.DashboardCategory,
			UgsBadge:   l.UgsBadge,
			UgsProject: l.UgsProject,
			Requires:   joined(l.RequiredNodes),
			Include:    joined(include),
		}
		if l.Change != graph.LabelChangeCurrent {
			label.Change = l.Change.String()
		}
		doc.Labels = append(doc.Labels, label)
	}

	for _, r := range g.Reports {
		doc.Reports = append(doc.Reports, markupReport{
			Name:     r.Name,
			Requires: joined(r.Nodes),
			Notify:   strings.Join(r.NotifyUsers, ";"),
		})
	}

	for _, b := range g.Badges {
		badge := markupBadge{
			Name:     b.Name,
			Project:  b.Project,
			Requires: joined(graph.DirectDependencies(b.Nodes, graph.OrderClosure)),
		}
		if b.Change != 0 {
			badge.Change = strconv.Itoa(b.Change)
		}
		doc.Badges = append(doc.Badges, badge)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
