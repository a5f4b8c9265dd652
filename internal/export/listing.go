package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/buildgraph/internal/graph"
)

// ListingStyles colors the text listing.
type ListingStyles struct {
	Header  lipgloss.Style
	Node    lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// ListingOptions selects what the listing shows.
type ListingOptions struct {
	// Completed marks nodes that have already run.
	Completed []string

	ShowDependencies  bool
	ShowNotifications bool
	ShowDiagnostics   bool

	// Styles colors the output. Nil prints plain text.
	Styles *ListingStyles
}

type listing struct {
	w    io.Writer
	opts ListingOptions
	done map[string]bool
	err  error
}

func (l *listing) printf(format string, args ...any) {
	if l.err != nil {
		return
	}
	_, l.err = fmt.Fprintf(l.w, format, args...)
}

func (l *listing) style(pick func(*ListingStyles) lipgloss.Style, s string) string {
	if l.opts.Styles == nil {
		return s
	}
	return pick(l.opts.Styles).Render(s)
}

func header(s *ListingStyles) lipgloss.Style { return s.Header }
func nodeStyle(s *ListingStyles) lipgloss.Style { return s.Node }
func muted(s *ListingStyles) lipgloss.Style { return s.Muted }

func severityStyle(sev graph.Severity) func(*ListingStyles) lipgloss.Style {
	switch sev {
	case graph.SeverityError:
		return func(s *ListingStyles) lipgloss.Style { return s.Error }
	case graph.SeverityWarning:
		return func(s *ListingStyles) lipgloss.Style { return s.Warning }
	default:
		return muted
	}
}

// WriteListing prints g agent by agent for people to read.
func WriteListing(w io.Writer, g *graph.Graph, opts ListingOptions) error {
	l := &listing{w: w, opts: opts, done: make(map[string]bool, len(opts.Completed))}
	for _, name := range opts.Completed {
		l.done[name] = true
	}
	names := func(set *graph.NodeSet) string {
		return strings.Join(g.OrderedNames(set), ", ")
	}

	for _, a := range g.Agents {
		l.printf("%s\n", l.style(header, fmt.Sprintf("Agent: %s (%s)", a.Name, strings.Join(a.PossibleTypes, ";"))))
		for _, n := range a.Nodes {
			var notes []string
			if l.done[n.Name] {
				notes = append(notes, "completed")
			}
			if n.RunEarly {
				notes = append(notes, "run early")
			}
			line := "    Node: " + l.style(nodeStyle, n.Name)
			if len(notes) > 0 {
				line += " " + l.style(muted, "("+strings.Join(notes, ", ")+")")
			}
			l.printf("%s\n", line)

			if opts.ShowDependencies {
				inputs := n.DirectInputDependencies()
				after := n.DirectOrderDependencies()
				after.Retain(func(dep *graph.Node) bool { return !n.InputDependencies.Contains(dep) })
				if inputs.Len() > 0 {
					l.printf("        input> %s\n", names(inputs))
				}
				if after.Len() > 0 {
					l.printf("        after> %s\n", names(after))
				}
			}
			if opts.ShowNotifications {
				if len(n.NotifyUsers) > 0 {
					l.printf("        notify> %s\n", strings.Join(n.NotifyUsers, ", "))
				}
				if len(n.NotifySubmitters) > 0 {
					l.printf("        submitters> %s\n", strings.Join(n.NotifySubmitters, ", "))
				}
				if !n.NotifyOnWarnings {
					l.printf("        warnings> off\n")
				}
			}
		}
		if opts.ShowDiagnostics {
			for _, d := range a.Diagnostics {
				l.printf("    %s\n", l.style(severityStyle(d.Severity), d.String()))
			}
		}
	}

	for _, a := range g.Aggregates {
		l.printf("%s\n    %s\n", l.style(header, "Aggregate: "+a.Name), names(a.RequiredNodes))
	}
	for _, lb := range g.Labels {
		l.printf("%s\n    required> %s\n", l.style(header, "Label: "+lb.Name()), names(lb.RequiredNodes))
	}
	for _, b := range g.Badges {
		l.printf("%s\n    %s\n", l.style(header, "Badge: "+b.Name), names(graph.DirectDependencies(b.Nodes, graph.OrderClosure)))
	}
	for _, r := range g.Reports {
		l.printf("%s\n    %s\n", l.style(header, "Report: "+r.Name), names(graph.DirectDependencies(r.Nodes, graph.OrderClosure)))
	}

	if opts.ShowDiagnostics {
		for _, d := range g.Diagnostics {
			if d.Agent == nil {
				l.printf("%s\n", l.style(severityStyle(d.Severity), d.String()))
			}
		}
	}
	return l.err
}

// WriteListingTable prints one row per node.
func WriteListingTable(w io.Writer, g *graph.Graph, opts ListingOptions) {
	done := make(map[string]bool, len(opts.Completed))
	for _, name := range opts.Completed {
		done[name] = true
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Agent", "Node", "Inputs", "After", "State"})
	for _, a := range g.Agents {
		for _, n := range a.Nodes {
			after := n.DirectOrderDependencies()
			after.Retain(func(dep *graph.Node) bool { return !n.InputDependencies.Contains(dep) })

			state := "pending"
			switch {
			case done[n.Name]:
				state = "completed"
			case n.RunEarly:
				state = "run early"
			}
			t.AppendRow(table.Row{
				a.Name,
				n.Name,
				strings.Join(g.OrderedNames(n.DirectInputDependencies()), ", "),
				strings.Join(g.OrderedNames(after), ", "),
				state,
			})
		}
	}
	t.Render()
}
