// Package commands implements neosec's CLI subcommands, grounded on the
// teacher's cmd/wave/commands package: one NewXCmd() cobra factory per
// subcommand, an Options struct, and a RunE closure.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/neosec/neosec/internal/adapter/builtin"
	"github.com/neosec/neosec/internal/auditlog"
	"github.com/neosec/neosec/internal/bus"
	"github.com/neosec/neosec/internal/config"
	"github.com/neosec/neosec/internal/executor"
	"github.com/neosec/neosec/internal/orchestrator"
	"github.com/neosec/neosec/internal/security"
	"github.com/neosec/neosec/internal/state"
	"github.com/neosec/neosec/internal/watch"
	"github.com/neosec/neosec/internal/workflow"
)

// ScanOptions holds the scan command's flags.
type ScanOptions struct {
	Target       string
	WorkflowPath string
	OutputDir    string
	ConfigPath   string
	Watch        bool
}

// Exit codes match the external interface contract: 0 clean success, 1
// the run completed but with findings at/above the configured severity
// threshold or with a partial task failure, 2 a configuration/usage error
// that prevented the run from starting, 130 interrupted (SIGINT).
const (
	ExitOK                = 0
	ExitFindingsOrFailure = 1
	ExitConfigError       = 2
	ExitInterrupted       = 130
)

// NewScanCmd builds the `neosec scan` subcommand.
func NewScanCmd() *cobra.Command {
	opts := &ScanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a workflow against a target",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath, _ = cmd.Flags().GetString("config")
			code := runScan(cmd, opts)
			if code != ExitOK {
				os.Exit(code)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", "", "scan target (IP, CIDR, hostname, or URL)")
	cmd.Flags().StringVarP(&opts.WorkflowPath, "workflow", "w", "", "path to workflow YAML file")
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "override the configured data directory")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "v", false, "render a live progress view")
	cmd.MarkFlagRequired("target")
	cmd.MarkFlagRequired("workflow")

	return cmd
}

func runScan(cmd *cobra.Command, opts *ScanOptions) int {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return ExitConfigError
		}
		cfg = loaded
	}
	if opts.OutputDir != "" {
		cfg.DataDir = opts.OutputDir
	}
	if dir := os.Getenv("NEOSEC_DATA_DIR"); dir != "" && opts.OutputDir == "" {
		cfg.DataDir = dir
	}

	target, err := security.ValidateTarget(opts.Target)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitConfigError
	}

	wf, err := workflow.Load(opts.WorkflowPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitConfigError
	}

	b := bus.New()
	for _, a := range builtin.Registered() {
		b.Register(a)
	}

	store, err := state.Open(cfg.DataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitConfigError
	}
	defer store.Close()

	audit, auditFile, err := auditlog.NewFile(filepath.Join(cfg.DataDir, "audit.log"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitConfigError
	}
	defer auditFile.Close()

	threshold, err := cfg.SeverityThreshold()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitConfigError
	}

	exec := executor.New(cfg.Grace(), cfg.StreamCapBytes)
	orch := orchestrator.New(b, exec, 4,
		orchestrator.WithStore(store),
		orchestrator.WithAuditLogger(audit),
		orchestrator.WithToolTimeout(cfg.ToolTimeout),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var reporter *watch.Reporter
	if opts.Watch && term.IsTerminal(int(os.Stdout.Fd())) {
		ids := make([]string, 0, len(wf.Tasks))
		for _, t := range wf.Tasks {
			ids = append(ids, t.ID)
		}
		reporter = watch.NewReporter(string(target), ids)
		b.AddListener(reporter)
		go reporter.Start()
		defer reporter.Stop()
	}

	result, err := orch.Run(ctx, wf, target)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if ctx.Err() != nil {
			return ExitInterrupted
		}
		return ExitConfigError
	}

	fmt.Printf("run %s: %s (%d tasks, %d findings)\n", result.RunID, result.Status, len(result.Tasks), len(result.Vulnerabilities))

	if ctx.Err() != nil {
		return ExitInterrupted
	}

	for _, r := range result.Tasks {
		if r.State == "failed" || r.State == "skipped" || r.State == "timed_out" {
			return ExitFindingsOrFailure
		}
	}
	if threshold != nil {
		if sev, ok := result.HighestSeverity(); ok && sev.AtLeast(*threshold) {
			return ExitFindingsOrFailure
		}
	}
	return ExitOK
}
