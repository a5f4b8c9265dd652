package export

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/leapstack-labs/buildgraph/internal/graph"
)

// Schedule is the document handed to the build scheduler: the agents and
// nodes still to run, each listing only its direct dependencies.
type Schedule struct {
	Groups  []ScheduleGroup  `json:"Groups"`
	Badges  []ScheduleBadge  `json:"Badges"`
	Reports []ScheduleReport `json:"Reports"`
}

// ScheduleGroup is one agent.
type ScheduleGroup struct {
	Name       string         `json:"Name"`
	AgentTypes []string       `json:"Agent Types"`
	Nodes      []ScheduleNode `json:"Nodes"`
}

// ScheduleNode is one node still to run.
type ScheduleNode struct {
	Name      string         `json:"Name"`
	DependsOn string         `json:"DependsOn"`
	RunEarly  bool           `json:"RunEarly"`
	Notify    ScheduleNotify `json:"Notify"`
}

// ScheduleNotify lists who hears about a node's outcome.
type ScheduleNotify struct {
	Default    string `json:"Default"`
	Submitters string `json:"Submitters"`
	Warnings   bool   `json:"Warnings"`
}

// ScheduleBadge is a badge with at least one node still to run.
type ScheduleBadge struct {
	Name               string `json:"Name"`
	Project            string `json:"Project,omitempty"`
	Change             int    `json:"Change,omitempty"`
	AllDependencies    string `json:"AllDependencies"`
	DirectDependencies string `json:"DirectDependencies"`
}

// ScheduleReport is a report with at least one node still to run.
type ScheduleReport struct {
	Name               string `json:"Name"`
	AllDependencies    string `json:"AllDependencies"`
	DirectDependencies string `json:"DirectDependencies"`
	Notify             string `json:"Notify"`
	IsTrigger          bool   `json:"IsTrigger"`
}

// BuildSchedule builds the schedule for every node of g not named in
// completed.
func BuildSchedule(g *graph.Graph, completed []string) *Schedule {
	done := make(map[string]bool, len(completed))
	for _, name := range completed {
		done[name] = true
	}
	toRun := graph.NewNodeSet()
	for _, n := range g.AllNodes() {
		if !done[n.Name] {
			toRun.Add(n)
		}
	}
	pending := func(set *graph.NodeSet) *graph.NodeSet {
		out := set.Clone()
		out.Retain(toRun.Contains)
		return out
	}
	joined := func(set *graph.NodeSet) string {
		return strings.Join(g.OrderedNames(set), ";")
	}

	s := &Schedule{
		Groups:  []ScheduleGroup{},
		Badges:  []ScheduleBadge{},
		Reports: []ScheduleReport{},
	}
	for _, a := range g.Agents {
		group := ScheduleGroup{Name: a.Name, AgentTypes: nonNil(a.PossibleTypes)}
		for _, n := range a.Nodes {
			if !toRun.Contains(n) {
				continue
			}
			direct := graph.DirectDependencies(pending(n.OrderDependencies), graph.OrderClosure)
			group.Nodes = append(group.Nodes, ScheduleNode{
				Name:      n.Name,
				DependsOn: joined(direct),
				RunEarly:  n.RunEarly,
				Notify: ScheduleNotify{
					Default:    strings.Join(n.NotifyUsers, ";"),
					Submitters: strings.Join(n.NotifySubmitters, ";"),
					Warnings:   n.NotifyOnWarnings,
				},
			})
		}
		if len(group.Nodes) > 0 {
			s.Groups = append(s.Groups, group)
		}
	}

	for _, b := range g.Badges {
		deps := pending(b.Nodes)
		if deps.Len() == 0 {
			continue
		}
		s.Badges = append(s.Badges, ScheduleBadge{
			Name:               b.Name,
			Project:            b.Project,
			Change:             b.Change,
			AllDependencies:    joined(deps),
			DirectDependencies: joined(graph.DirectDependencies(deps, graph.OrderClosure)),
		})
	}

	for _, r := range g.Reports {
		deps := pending(r.Nodes)
		if deps.Len() == 0 {
			continue
		}
		s.Reports = append(s.Reports, ScheduleReport{
			Name:               r.Name,
			AllDependencies:    joined(deps),
			DirectDependencies: joined(graph.DirectDependencies(deps, graph.OrderClosure)),
			Notify:             strings.Join(r.NotifyUsers, ";"),
		})
	}
	return s
}

// WriteSchedule writes the schedule for g as indented JSON.
func WriteSchedule(w io.Writer, g *graph.Graph, completed []string) error {
	return writeJSON(w, BuildSchedule(g, completed))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
