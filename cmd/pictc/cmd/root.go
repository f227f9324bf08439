// Package cmd implements the pictc command-line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pictc",
	Short: "Pictorial-language compiler back end",
	Long:  `pictc translates a parsed AST into a freestanding x86-64 ELF executable.`,
}

// Execute runs the root command, exiting non-zero on any error (spec §6.5,
// §7's "non-zero exit code and a single-line explanation on the error
// stream").
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(compileCmd)
}
