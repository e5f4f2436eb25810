package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <program>",
		Short: "Validate a compiled program and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			if err := prog.Validate(); err != nil {
				return err
			}
			fmt.Printf("id:           %s\n", prog.ID)
			fmt.Printf("instructions: %d\n", len(prog.Instructions))
			fmt.Printf("constants:    %d\n", len(prog.Constants))
			fmt.Printf("functions:    %d\n", len(prog.Functions))
			fmt.Printf("names:        %d\n", len(prog.Names))
			if prog.Filename != "" {
				fmt.Printf("source:       %s\n", prog.Filename)
			}
			return nil
		},
	}
}
