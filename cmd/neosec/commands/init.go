package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/neosec/neosec/internal/config"
)

// InitConfigOptions holds the init-config command's flags.
type InitConfigOptions struct {
	OutputPath string
	Force      bool
}

// NewInitConfigCmd builds the `neosec init-config` subcommand, grounded on
// the teacher's cmd/wave/commands/init.go overwrite-confirmation flow,
// with the manual confirmation prompt replaced by a charmbracelet/huh
// wizard (grounded on the teacher's internal/onboarding wizard) when
// stdout is a terminal.
func NewInitConfigCmd() *cobra.Command {
	opts := &InitConfigOptions{}

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a starter neosec.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputPath, "output", "o", "neosec.yaml", "path to write the configuration file")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing file without prompting")

	return cmd
}

func runInitConfig(opts *InitConfigOptions) error {
	if _, err := os.Stat(opts.OutputPath); err == nil && !opts.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", opts.OutputPath)
	}

	cfg := config.Default()

	if term.IsTerminal(int(os.Stdout.Fd())) {
		if err := runInitWizard(&cfg); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(opts.OutputPath, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", opts.OutputPath, err)
	}

	fmt.Printf("wrote %s\n", opts.OutputPath)
	return nil
}

// runInitWizard walks the operator through the config fields that are
// worth a second thought (data directory, global timeout, kill grace
// period, CI severity threshold), leaving the rest at Default()'s values.
func runInitWizard(cfg *config.Config) error {
	globalTimeout := strconv.Itoa(cfg.GlobalTimeoutSec)
	graceSeconds := strconv.Itoa(cfg.GraceSeconds)
	threshold := cfg.CISeverityThreshold

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Data directory").
				Description("Where raw tool output and JSON reports are written.").
				Value(&cfg.DataDir).
				Placeholder("./data"),
			huh.NewInput().
				Title("Global timeout (seconds)").
				Description("0 means no global timeout.").
				Value(&globalTimeout).
				Placeholder("0"),
			huh.NewInput().
				Title("Process kill grace period (seconds)").
				Value(&graceSeconds).
				Placeholder("2"),
			huh.NewSelect[string]().
				Title("CI severity threshold").
				Description("scan exits 1 if any finding meets or exceeds this severity.").
				Options(
					huh.NewOption("no threshold", ""),
					huh.NewOption("info", "info"),
					huh.NewOption("low", "low"),
					huh.NewOption("medium", "medium"),
					huh.NewOption("high", "high"),
					huh.NewOption("critical", "critical"),
				).
				Value(&threshold),
		).Title("neosec init-config").Description("Configure NeoSec's global defaults."),
	)

	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			return fmt.Errorf("init-config wizard cancelled by user")
		}
		return err
	}

	if secs, err := strconv.Atoi(globalTimeout); err == nil {
		cfg.GlobalTimeoutSec = secs
	}
	if secs, err := strconv.Atoi(graceSeconds); err == nil && secs > 0 {
		cfg.GraceSeconds = secs
	}
	cfg.CISeverityThreshold = threshold
	return nil
}
