package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/ir-emitter/internal/camera"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/config"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/logging"
	"github.com/nerrad567/ir-emitter/internal/lifecycle"
)

// session is what every lifecycle command needs after flag parsing.
type session struct {
	cfg    *config.Config
	logger *logging.Logger
	app    *App
	out    *OutputFormatter
}

func (s *session) close() {
	if s.app != nil {
		if err := s.app.Close(); err != nil {
			s.logger.Warn("closing resources", "error", err)
		}
	}
}

// openSession loads configuration, builds the logger and wires the app.
// Mutating commands check privileges first so nothing is touched without root.
func openSession(cmd *cobra.Command, opts *RootOptions, deps Deps, mutating bool) (*session, error) {
	if mutating {
		if err := requireRoot(deps); err != nil {
			return nil, err
		}
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Logging, deps.Version, cmd.OutOrStdout(), cmd.ErrOrStderr())

	app, err := deps.Build(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "initialising", err)
	}

	return &session{
		cfg:    cfg,
		logger: logger,
		app:    app,
		out:    &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()},
	}, nil
}

// device resolves --device to its by-path name; "" stays "".
func (s *session) device(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	dev, err := s.app.Resolver.Resolve(raw)
	if err != nil {
		return "", WrapExitError(ExitFailure,
			fmt.Sprintf("the device %s does not exist or is not a supported v4l camera", raw), err)
	}
	return dev, nil
}

// outcomeError converts a lifecycle outcome into the command's error.
func outcomeError(action string, out lifecycle.Outcome) error {
	if out.ExitCode == 0 {
		return nil
	}
	err := out.Err
	if err == nil {
		err = fmt.Errorf("exit code %d", out.ExitCode)
	}
	return WrapExitError(out.ExitCode, action+" failed", err)
}

func newRunCommand(opts *RootOptions, deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Apply the stored driver",
		Long:  "Apply the stored driver of --device, or of every configured camera.\nThis is what udev runs when a camera appears.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, deps, false, func(ctx context.Context, s *session) error {
				dev, err := s.device(opts.Device)
				if err != nil {
					return err
				}
				return outcomeError("run", s.app.Service.Run(ctx, dev))
			})
		},
	}
}

func newTestCommand(opts *RootOptions, deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test a camera",
		Long:  "Apply the stored driver without recording it in the history.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, deps, false, func(ctx context.Context, s *session) error {
				dev, err := s.device(opts.Device)
				if err != nil {
					return err
				}
				return outcomeError("test", s.app.Service.Test(ctx, dev))
			})
		},
	}
}

// configureOptions are the flags of the configure command.
type configureOptions struct {
	Manual     bool
	Emitters   int
	Limit      int
	Exhaustive bool
}

func newConfigureCommand(opts *RootOptions, deps Deps) *cobra.Command {
	copts := &configureOptions{}

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Generate the emitter driver",
		Long: `Search an activation sequence for the infrared emitters and register
the camera so the driver is re-applied at boot and on hot-plug.

Do not use the camera or interrupt the search while it runs.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withConfiguredSession(cmd, opts, deps, copts, func(ctx context.Context, s *session) error {
				dev, err := s.configureDevice(opts.Device)
				if err != nil {
					return err
				}

				// Flags not given on the command line fall back to the configuration.
				req := lifecycle.ConfigureRequest{
					Device:         dev,
					Emitters:       s.cfg.Discovery.Emitters,
					NegAnswerLimit: s.cfg.Discovery.NegAnswerLimit,
					Manual:         copts.Manual,
					Verbose:        opts.Verbose,
				}
				if cmd.Flags().Changed("emitters") {
					req.Emitters = copts.Emitters
				}
				if cmd.Flags().Changed("limit") {
					req.NegAnswerLimit = copts.Limit
				}

				return outcomeError("configure", s.app.Service.Configure(ctx, req))
			})
		},
	}

	cmd.Flags().BoolVarP(&copts.Manual, "manual", "m", false, "activate manual configuration")
	cmd.Flags().IntVarP(&copts.Emitters, "emitters", "e", 1, "the number of emitters on the device")
	cmd.Flags().IntVarP(&copts.Limit, "limit", "l", 40, "the number of negative answers before a pattern is skipped, -1 for unlimited")
	cmd.Flags().BoolVar(&copts.Exhaustive, "exhaustive", false, "keep searching after the first working pattern")

	return cmd
}

// configureDevice picks the camera to configure. Without --device the only
// by-path capture node is used; with several the user has to choose.
func (s *session) configureDevice(raw string) (string, error) {
	if raw != "" {
		return s.device(raw)
	}

	candidates, err := s.app.Resolver.List()
	if err != nil {
		return "", WrapExitError(ExitFailure, "listing cameras", err)
	}
	switch len(candidates) {
	case 0:
		return "", WrapExitError(ExitFailure, "impossible to find an infrared camera", camera.ErrDeviceNotFound)
	case 1:
		s.logger.Info("configuring the camera", "device", candidates[0])
		return candidates[0], nil
	default:
		return "", WrapExitError(ExitFailure,
			"several cameras found, choose one with --device:\n  "+strings.Join(candidates, "\n  "),
			camera.ErrDeviceNotFound)
	}
}

func newDeleteCommand(opts *RootOptions, deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete drivers",
		Long:  "Delete the driver of --device, or every driver. Run 'boot enable' afterwards to refresh the udev rules.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, deps, true, func(ctx context.Context, s *session) error {
				dev, err := s.device(opts.Device)
				if err != nil {
					return err
				}
				return outcomeError("delete", s.app.Service.Delete(ctx, dev))
			})
		},
	}
}

func withSession(cmd *cobra.Command, opts *RootOptions, deps Deps, mutating bool, fn func(context.Context, *session) error) error {
	s, err := openSession(cmd, opts, deps, mutating)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(cmd.Context(), s)
}

// withConfiguredSession is withSession with the configure-only settings
// applied to the configuration before the app is wired.
func withConfiguredSession(cmd *cobra.Command, opts *RootOptions, deps Deps, copts *configureOptions, fn func(context.Context, *session) error) error {
	build := deps.Build
	deps.Build = func(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
		if copts.Exhaustive {
			cfg.Discovery.Exhaustive = true
		}
		return build(ctx, cfg, logger)
	}
	return withSession(cmd, opts, deps, true, fn)
}
