package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/buildgraph/internal/cli/output"
	"github.com/leapstack-labs/buildgraph/internal/graph"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	sel := &Selection{}

	cmd := &cobra.Command{
		Use:   "check [targets...]",
		Short: "Evaluate the program and verify the graph",
		Long: `Evaluate the program, check the structure of the resulting graph and report
its diagnostics and execution waves.

Exits non-zero when the graph is inconsistent or the program raised an
error diagnostic.`,
		Example: `  buildgraph check
  buildgraph check Everything --set WithTools=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel.Targets = args
			return runCheck(cmd, sel)
		},
	}
	sel.addFlags(cmd)
	return cmd
}

type checkReport struct {
	Graph       string     `json:"graph"`
	Waves       [][]string `json:"waves"`
	Diagnostics []string   `json:"diagnostics"`
	Errors      int        `json:"errors"`
	Warnings    int        `json:"warnings"`
}

func runCheck(cmd *cobra.Command, sel *Selection) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	res, err := cmdCtx.build(*sel)
	if err != nil {
		return err
	}
	g := res.Graph
	if err := g.Validate(); err != nil {
		return fmt.Errorf("graph is inconsistent: %w", err)
	}

	report := checkReport{Graph: g.Describe(), Diagnostics: []string{}}
	for _, wave := range g.Levels() {
		names := make([]string, len(wave))
		for i, n := range wave {
			names[i] = n.Name
		}
		report.Waves = append(report.Waves, names)
	}
	for _, d := range g.Diagnostics {
		report.Diagnostics = append(report.Diagnostics, d.String())
		switch d.Severity {
		case graph.SeverityError:
			report.Errors++
		case graph.SeverityWarning:
			report.Warnings++
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(report); err != nil {
			return err
		}
	} else {
		r.Header(1, report.Graph)
		for i, wave := range report.Waves {
			r.Println(r.FormatKeyValue(fmt.Sprintf("wave %d", i+1), strings.Join(wave, ", ")))
		}
		if len(g.Diagnostics) > 0 {
			r.Println()
			r.Header(2, "Diagnostics")
			for _, d := range g.Diagnostics {
				r.Println(d.String())
			}
		}
		r.Println()
		if report.Errors == 0 {
			r.Success(fmt.Sprintf("graph is valid (%d warnings)", report.Warnings))
		}
	}

	if report.Errors > 0 {
		return fmt.Errorf("program reported %d error diagnostics", report.Errors)
	}
	return nil
}
