package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/buildgraph/internal/bytecode"
	"github.com/leapstack-labs/buildgraph/internal/engine"
)

// NewDisasmCommand creates the disasm command.
func NewDisasmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm [program]",
		Short: "Print a readable listing of a compiled program",
		Long: `Decode every fragment of a compiled program and print one instruction per
line with its operands. The program is not evaluated.

Defaults to the configured program.`,
		Example: `  buildgraph disasm
  buildgraph disasm out/buildgraph.bgc`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			path := cmdCtx.Cfg.Program
			if len(args) == 1 {
				path = args[0]
			}
			eng, err := engine.New(engine.Config{ProgramPath: path, Logger: cmdCtx.Logger})
			if err != nil {
				return err
			}
			return bytecode.Disassemble(cmdCtx.Renderer.Writer(), eng.Program())
		},
	}
}
