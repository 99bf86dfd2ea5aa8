package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neosec/neosec/internal/adapter/builtin"
)

// NewListToolsCmd builds the `neosec list-tools` subcommand, grounded on
// the teacher's cmd/wave/commands/list.go JSON-output-struct pattern,
// simplified to a table since NeoSec adapters are a fixed, code-registered
// set rather than a queryable manifest.
func NewListToolsCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list-tools",
		Short: "List registered adapters and their categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, a := range builtin.Registered() {
				if category != "" && string(a.Category()) != category {
					continue
				}
				deps := ""
				for i, d := range a.Dependencies() {
					if i > 0 {
						deps += ", "
					}
					deps += d.Name
				}
				fmt.Printf("%-12s %-10s %s\n", a.Name(), a.Category(), deps)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "filter by category (recon|scanner|fuzzer|exploit|other)")
	return cmd
}
