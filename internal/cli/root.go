package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/nerrad567/ir-emitter/internal/infrastructure/config"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Device     string
	Verbose    bool
	ConfigPath string
	Format     string // "text" | "json"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Deps are the process-level collaborators of the CLI. Tests replace them.
type Deps struct {
	Version string

	// Geteuid returns the effective user id.
	Geteuid func() int

	// Build wires the lifecycle service for a loaded configuration.
	Build func(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error)

	// OpenHistory opens the history database for reading.
	OpenHistory func(ctx context.Context, cfg *config.Config) (HistoryReader, io.Closer, error)
}

// DefaultDeps returns the production wiring.
func DefaultDeps(version string) Deps {
	return Deps{
		Version:     version,
		Geteuid:     unix.Geteuid,
		Build:       BuildApp,
		OpenHistory: openHistory,
	}
}

// NewRootCommand creates the root command.
func NewRootCommand(deps Deps) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "linux-enable-ir-emitter",
		Short:   "Provides support for infrared cameras",
		Long:    "Finds, stores and applies the activation sequence of an infrared camera's emitters,\nand re-applies it at boot and on hot-plug.",
		Version: deps.Version,
		Example: "  linux-enable-ir-emitter configure -d /dev/video2\n  linux-enable-ir-emitter boot status",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return WrapExitError(ExitCommandError, "invalid flag",
					fmt.Errorf("format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		// Without Args cobra would report unknown subcommands as plain
		// errors; running the root only prints help.
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flag", err)
	})

	cmd.PersistentFlags().StringVarP(&opts.Device, "device", "d", "", "infrared camera, every configured camera by default")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "print verbose information")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "configuration file (default "+config.DefaultPath+")")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(newRunCommand(opts, deps))
	cmd.AddCommand(newConfigureCommand(opts, deps))
	cmd.AddCommand(newTestCommand(opts, deps))
	cmd.AddCommand(newBootCommand(opts, deps))
	cmd.AddCommand(newDeleteCommand(opts, deps))
	cmd.AddCommand(newHistoryCommand(opts, deps))

	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, deps Deps) int {
	cmd := NewRootCommand(deps)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return GetExitCode(err)
}

// usageArgs marks argument validation failures as command-line errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// requireRoot aborts mutating commands before anything is touched.
func requireRoot(deps Deps) error {
	if deps.Geteuid != nil && deps.Geteuid() != 0 {
		return WrapExitError(ExitFailure, "this command must be run as root", ErrPrivilegeRequired)
	}
	return nil
}

// loadConfig resolves and loads the configuration, then applies --verbose.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	path, explicit := config.ResolvePath(opts.ConfigPath)
	cfg, err := config.LoadOrDefault(path, explicit)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading configuration", err)
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}
