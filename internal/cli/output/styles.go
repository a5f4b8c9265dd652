package output

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/buildgraph/internal/export"
)

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
}

// NewStyles creates styles bound to a lipgloss renderer, so color output
// follows that renderer's color profile.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: r.NewStyle().Bold(true),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Success: r.NewStyle().Foreground(lipgloss.Color("10")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Info:    r.NewStyle().Foreground(lipgloss.Color("14")),
	}
}

// Listing maps the styles onto a graph listing.
func (s *Styles) Listing() *export.ListingStyles {
	return &export.ListingStyles{
		Header:  s.Header2,
		Node:    s.Bold,
		Muted:   s.Muted,
		Warning: s.Warning,
		Error:   s.Error,
	}
}
