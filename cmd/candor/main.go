// Command candor executes and inspects compiled Candor programs.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:     "candor",
		Short:   "Run and inspect compiled Candor programs",
		Version: version + " (" + commit + ")",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().Bool("no-color", false, "disable colored output")

	root.AddCommand(runCmd())
	root.AddCommand(disCmd())
	root.AddCommand(checkCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
