package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/buildgraph/internal/cli/output"
)

// NewOptionsCommand creates the options command.
func NewOptionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Show the options the program reads",
		Long: `Evaluate the program and list every option it read, with its description,
type and effective value. Options the program never reaches under the
current values are not listed.

Set values with --set name=value or in the options section of the config
file. Names are case-insensitive.`,
		Example: `  buildgraph options
  buildgraph options --set WithTools=false --output json`,
		Args: cobra.NoArgs,
		RunE: runOptions,
	}
}

type optionView struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Value       string `json:"value"`
	Default     bool   `json:"default"`
}

func runOptions(cmd *cobra.Command, _ []string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	eng, err := cmdCtx.newEngine(Selection{})
	if err != nil {
		return err
	}
	decls, evalErr := eng.DeclaredOptions()
	if evalErr != nil && len(decls) == 0 {
		return evalErr
	}

	views := make([]optionView, len(decls))
	for i, d := range decls {
		views[i] = optionView{
			Name:        d.Name,
			Description: d.Description,
			Type:        d.Kind.String(),
			Value:       d.Value,
			Default:     d.FromDefault,
		}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(views); err != nil {
			return err
		}
	case output.ModeTable:
		t := table.NewWriter()
		t.SetOutputMirror(r.Writer())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Option", "Type", "Value", "Source", "Description"})
		for _, v := range views {
			t.AppendRow(table.Row{v.Name, v.Type, v.Value, source(v.Default), v.Description})
		}
		t.Render()
	default:
		if len(views) == 0 {
			r.Muted("program reads no options")
		}
		for _, v := range views {
			r.StatusLine(v.Name, v.Value, v.Type+", "+source(v.Default))
			if v.Description != "" {
				r.Muted("    " + v.Description)
			}
		}
	}
	return evalErr
}

func source(fromDefault bool) string {
	if fromDefault {
		return "default"
	}
	return "set"
}
