package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neosec/neosec/internal/adapter/builtin"
	"github.com/neosec/neosec/internal/bus"
	"github.com/neosec/neosec/internal/scheduler"
	"github.com/neosec/neosec/internal/workflow"
)

// ValidateOptions holds the validate command's flags.
type ValidateOptions struct {
	WorkflowPath string
	Verbose      bool
}

// NewValidateCmd builds the `neosec validate` subcommand, grounded on the
// teacher's cmd/wave/commands/validate.go: binary-availability checks are
// warnings (a missing tool doesn't fail validation by itself), while a
// malformed workflow file (duplicate ids, missing dependency, a cycle) is
// a hard failure.
func NewValidateCmd() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate registered adapters and an optional workflow file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.WorkflowPath, "workflow", "w", "", "optional workflow YAML file to validate")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "print every adapter's dependency resolution")

	return cmd
}

func runValidate(opts *ValidateOptions) error {
	b := bus.New()
	for _, a := range builtin.Registered() {
		b.Register(a)
	}

	anyMissing := false
	for tool, statuses := range b.ValidateDependencies() {
		for _, s := range statuses {
			if s.Available {
				if opts.Verbose {
					fmt.Printf("OK   %-10s %s -> %s\n", tool, s.Binary, s.Resolved)
				}
				continue
			}
			anyMissing = true
			fmt.Printf("WARN %-10s %s not found: %v\n", tool, s.Binary, s.Err)
		}
	}

	if opts.WorkflowPath == "" {
		if anyMissing {
			fmt.Println("one or more adapter binaries are missing; scans whose workflows use them are rejected before any task starts")
		}
		return nil
	}

	wf, err := workflow.Load(opts.WorkflowPath)
	if err != nil {
		return err
	}

	if err := scheduler.Validate(wf); err != nil {
		return err
	}

	for _, t := range wf.Tasks {
		if _, err := b.Resolve(t.Tool); err != nil {
			fmt.Fprintf(os.Stderr, "task %s: %v\n", t.ID, err)
			return err
		}
	}

	fmt.Printf("workflow %q: %d tasks, all tool references resolve\n", wf.Name, len(wf.Tasks))
	return nil
}
