// Package cmd provides the command-line interface for coroviz.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "coroviz",
	Short: "coroviz animates the behavior of common coroutine patterns.",
	Long: `coroviz replays scripted timelines that demonstrate how coroutine ` +
		`primitives behave: fire-and-forget launches, deferred results, cold ` +
		`and hot flows, channels, context switches and blocking bridges. ` +
		`Serve the card dashboard in a browser, or replay a single pattern ` +
		`in the terminal.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
