package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corolab/coroviz/patterns"
)

var checkCmd = &cobra.Command{
	Use:   "check <file.yaml>",
	Short: "Validate a YAML pattern file",
	Long: `Check a pattern file against the structural rules: at least one ` +
		`step, no negative delays, and a final step that ends in completed ` +
		`or error. A file that fails validation can never leave a card ` +
		`half-animated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		p, err := patterns.LoadFile(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s: pattern %q ok, %d steps\n",
			args[0], p.ID(), p.Def.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
