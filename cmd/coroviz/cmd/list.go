package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corolab/coroviz/patterns"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available patterns",
	Run: func(*cobra.Command, []string) {
		for _, p := range patterns.All() {
			fmt.Printf("%-14s %2d steps  %s\n",
				p.ID(), p.Def.Len(), p.Summary)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
