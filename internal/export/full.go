package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/buildgraph/internal/graph"
)

// FullGraph is the complete graph with no completion filtering. Input and
// order dependencies are reduced independently of each other.
type FullGraph struct {
	Groups     []FullGroup     `json:"Groups" yaml:"groups"`
	Aggregates []FullAggregate `json:"Aggregates" yaml:"aggregates"`
	Labels     []FullLabel     `json:"Labels" yaml:"labels"`
	Badges     []FullBadge     `json:"Badges" yaml:"badges"`
}

type FullGroup struct {
	Name  string     `json:"Name" yaml:"name"`
	Types []string   `json:"Types" yaml:"types"`
	Nodes []FullNode `json:"Nodes" yaml:"nodes"`
}

type FullNode struct {
	Name              string   `json:"Name" yaml:"name"`
	RunEarly          bool     `json:"RunEarly" yaml:"run_early"`
	Warnings          bool     `json:"Warnings" yaml:"warnings"`
	InputDependencies []string `json:"InputDependencies" yaml:"input_dependencies"`
	OrderDependencies []string `json:"OrderDependencies" yaml:"order_dependencies"`
}

type FullAggregate struct {
	Name  string   `json:"Name" yaml:"name"`
	Nodes []string `json:"Nodes" yaml:"nodes"`
}

type FullLabel struct {
	DashboardName     string   `json:"DashboardName,omitempty" yaml:"dashboard_name,omitempty"`
	DashboardCategory string   `json:"DashboardCategory,omitempty" yaml:"dashboard_category,omitempty"`
	UgsBadge          string   `json:"UgsBadge,omitempty" yaml:"ugs_badge,omitempty"`
	UgsProject        string   `json:"UgsProject,omitempty" yaml:"ugs_project,omitempty"`
	Change            string   `json:"Change" yaml:"change"`
	RequiredNodes     []string `json:"RequiredNodes" yaml:"required_nodes"`
	IncludedNodes     []string `json:"IncludedNodes" yaml:"included_nodes"`
}

type FullBadge struct {
	Name         string `json:"Name" yaml:"name"`
	Project      string `json:"Project,omitempty" yaml:"project,omitempty"`
	Change       int    `json:"Change,omitempty" yaml:"change,omitempty"`
	Dependencies string `json:"Dependencies" yaml:"dependencies"`
}

// BuildFullGraph converts g to its export shape.
func BuildFullGraph(g *graph.Graph) *FullGraph {
	names := func(set *graph.NodeSet) []string {
		return nonNil(g.OrderedNames(set))
	}

	out := &FullGraph{
		Groups:     make([]FullGroup, 0, len(g.Agents)),
		Aggregates: make([]FullAggregate, 0, len(g.Aggregates)),
		Labels:     make([]FullLabel, 0, len(g.Labels)),
		Badges:     make([]FullBadge, 0, len(g.Badges)),
	}
	for _, a := range g.Agents {
		group := FullGroup{Name: a.Name, Types: nonNil(a.PossibleTypes), Nodes: make([]FullNode, 0, len(a.Nodes))}
		for _, n := range a.Nodes {
			group.Nodes = append(group.Nodes, FullNode{
				Name:              n.Name,
				RunEarly:          n.RunEarly,
				Warnings:          n.NotifyOnWarnings,
				InputDependencies: names(n.DirectInputDependencies()),
				OrderDependencies: names(n.DirectOrderDependencies()),
			})
		}
		out.Groups = append(out.Groups, group)
	}
	for _, a := range g.Aggregates {
		out.Aggregates = append(out.Aggregates, FullAggregate{Name: a.Name, Nodes: names(a.RequiredNodes)})
	}
	for _, l := range g.Labels {
		out.Labels = append(out.Labels, FullLabel{
			DashboardName:     l.DashboardName,
			DashboardCategory: l.DashboardCategory,
			UgsBadge:          l.UgsBadge,
			UgsProject:        l.UgsProject,
			Change:            l.Change.String(),
			RequiredNodes:     names(l.RequiredNodes),
			IncludedNodes:     names(l.IncludedNodes),
		})
	}
	for _, b := range g.Badges {
		direct := graph.DirectDependencies(b.Nodes, graph.OrderClosure)
		out.Badges = append(out.Badges, FullBadge{
			Name:         b.Name,
			Project:      b.Project,
			Change:       b.Change,
			Dependencies: strings.Join(g.OrderedNames(direct), ";"),
		})
	}
	return out
}

// Format selects the encoding of the full-graph document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML, FormatCBOR:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json, yaml or cbor)", s)
	}
}

// WriteFullGraph writes g as indented JSON.
func WriteFullGraph(w io.Writer, g *graph.Graph) error {
	return WriteFullGraphAs(w, g, FormatJSON)
}

// WriteFullGraphAs writes g in the given format.
func WriteFullGraphAs(w io.Writer, g *graph.Graph, format Format) error {
	doc := BuildFullGraph(g)
	switch format {
	case FormatJSON:
		return writeJSON(w, doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case FormatCBOR:
		if err := cbor.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("encoding cbor: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
