// Command neosec orchestrates external security-testing tools through a
// declarative workflow DAG. Grounded on the teacher's cmd/wave/main.go
// Cobra root command structure.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neosec/neosec/cmd/neosec/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "neosec",
		Short: "Orchestrate security-testing tools through a declarative workflow DAG",
		Long: `neosec
A workflow orchestrator for security-testing binaries (built-in adapters:
nmap and nuclei), composed into a dependency graph and run with bounded
concurrency, process isolation, and structured reporting.`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to neosec.yaml configuration file")

	rootCmd.AddCommand(commands.NewScanCmd())
	rootCmd.AddCommand(commands.NewListToolsCmd())
	rootCmd.AddCommand(commands.NewValidateCmd())
	rootCmd.AddCommand(commands.NewInitConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
