package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/candor-lang/candor/bytecode"
	"github.com/candor-lang/candor/errz"
	"github.com/candor-lang/candor/vm"
)

func loadProgram(path string) (*bytecode.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog, err := bytecode.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

func runCmd() *cobra.Command {
	var fuel int64
	var trace bool
	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Execute a compiled program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			opts := []vm.Option{
				vm.WithOutput(func(line string) { fmt.Println(line) }),
			}
			if fuel > 0 {
				opts = append(opts, vm.WithFuel(fuel))
			}
			if trace {
				log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
					Level(zerolog.TraceLevel)
				opts = append(opts, vm.WithObserver(vm.NewTraceObserver(log)))
			}
			m, err := vm.New(prog, opts...)
			if err != nil {
				return err
			}
			if err := m.Run(cmd.Context()); err != nil {
				formatter := errz.NewFormatter(!color.NoColor)
				fmt.Fprintln(os.Stderr, formatter.FormatError(err))
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&fuel, "fuel", 0, "cap execution at this many backward jumps")
	cmd.Flags().BoolVar(&trace, "trace", false, "log every instruction to stderr")
	return cmd
}
