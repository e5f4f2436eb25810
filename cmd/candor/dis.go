package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/candor-lang/candor/dis"
)

func disCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dis <program>",
		Short: "Disassemble a compiled program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			instructions, err := dis.Disassemble(prog)
			if err != nil {
				return err
			}
			dis.Print(prog, instructions, os.Stdout)
			return nil
		},
	}
}
