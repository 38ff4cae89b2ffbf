package boot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nerrad567/ir-emitter/internal/fileutil"
	"github.com/nerrad567/ir-emitter/internal/process"
)

// Kind identifies the init system that starts the boot service.
type Kind string

const (
	KindSystemd Kind = "systemd"
	KindOpenRC  Kind = "openrc"
	KindNone    Kind = "none"
)

// ParseKind converts a configured backend name. "auto" is not a Kind and
// must be resolved with Detect first.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSystemd, KindOpenRC, KindNone:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown boot backend %q", ErrInvalidConfig, s)
	}
}

// BackendConfig holds the settings of a boot backend.
type BackendConfig struct {
	Kind Kind

	// ServiceName is the systemd unit (without .service) or OpenRC service.
	ServiceName string

	// Executable is the binary the unit or script runs.
	Executable string

	// UnitDir is where a missing systemd unit is installed.
	UnitDir string

	// InitDir is where a missing OpenRC script is installed.
	InitDir string

	// CommandTimeout bounds each systemctl or rc-update call.
	CommandTimeout time.Duration
}

// BackendStatus is what the init system reports about the service.
type BackendStatus struct {
	Installed bool
	Enabled   bool
}

// Backend drives one init system. The operations switch on Kind.
type Backend struct {
	config BackendConfig
	runner process.Runner
	logger Logger

	// unitSearchDirs are checked before installing the systemd unit, so a
	// packaged unit is not shadowed by a generated one.
	unitSearchDirs []string
}

// NewBackend creates a backend for cfg.Kind.
func NewBackend(cfg BackendConfig, runner process.Runner) (*Backend, error) {
	if _, err := ParseKind(string(cfg.Kind)); err != nil {
		return nil, err
	}
	if cfg.Kind != KindNone {
		if err := validateRuleValue("service name", cfg.ServiceName); err != nil {
			return nil, err
		}
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 30 * time.Second
	}
	if cfg.UnitDir == "" {
		cfg.UnitDir = "/etc/systemd/system"
	}
	if cfg.InitDir == "" {
		cfg.InitDir = "/etc/init.d"
	}

	return &Backend{
		config: cfg,
		runner: runner,
		logger: noopLogger{},
		unitSearchDirs: []string{
			cfg.UnitDir,
			"/usr/lib/systemd/system",
			"/lib/systemd/system",
		},
	}, nil
}

// SetLogger sets the logger for the backend.
func (b *Backend) SetLogger(logger Logger) {
	b.logger = logger
}

// Kind returns the backend kind.
func (b *Backend) Kind() Kind {
	return b.config.Kind
}

// Enable installs the service if needed and enables it at boot.
func (b *Backend) Enable(ctx context.Context) error {
	switch b.config.Kind {
	case KindSystemd:
		if err := b.ensureSystemdUnit(ctx); err != nil {
			return err
		}
		return b.run(ctx, "systemctl", "enable", b.unitName())
	case KindOpenRC:
		if err := b.ensureOpenRCScript(); err != nil {
			return err
		}
		return b.run(ctx, "rc-update", "add", b.config.ServiceName, "default")
	default:
		return ErrNoBackend
	}
}

// Disable disables the service at boot. The unit or script is left in place.
func (b *Backend) Disable(ctx context.Context) error {
	switch b.config.Kind {
	case KindSystemd:
		return b.run(ctx, "systemctl", "disable", b.unitName())
	case KindOpenRC:
		return b.run(ctx, "rc-update", "del", b.config.ServiceName, "default")
	default:
		return ErrNoBackend
	}
}

// Status queries the init system without changing anything.
func (b *Backend) Status(ctx context.Context) (BackendStatus, error) {
	switch b.config.Kind {
	case KindSystemd:
		return b.systemdStatus(ctx)
	case KindOpenRC:
		return b.openRCStatus(ctx)
	default:
		return BackendStatus{}, ErrNoBackend
	}
}

func (b *Backend) unitName() string {
	return b.config.ServiceName + ".service"
}

func (b *Backend) systemdStatus(ctx context.Context) (BackendStatus, error) {
	installed := b.findSystemdUnit() != ""

	res, err := b.runner.Run(ctx, process.Command{
		Name:    "systemctl-is-enabled",
		Binary:  "systemctl",
		Args:    []string{"is-enabled", b.unitName()},
		Timeout: b.config.CommandTimeout,
	})
	if err != nil {
		return BackendStatus{Installed: installed}, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	// is-enabled exits 0 for enabled units and 1 for disabled or unknown ones.
	state := strings.TrimSpace(res.Output)
	switch {
	case res.Success():
		return BackendStatus{Installed: true, Enabled: true}, nil
	case state == "disabled":
		return BackendStatus{Installed: true}, nil
	case !installed:
		return BackendStatus{}, fmt.Errorf("%w: %s is not installed", ErrBackend, b.unitName())
	default:
		return BackendStatus{Installed: installed}, fmt.Errorf("%w: systemctl is-enabled reported %q (exit code %d)", ErrBackend, state, res.ExitCode)
	}
}

func (b *Backend) openRCStatus(ctx context.Context) (BackendStatus, error) {
	_, statErr := os.Stat(b.openRCScriptPath())
	installed := statErr == nil

	res, err := b.runner.Run(ctx, process.Command{
		Name:    "rc-update-show",
		Binary:  "rc-update",
		Args:    []string{"show", "default"},
		Timeout: b.config.CommandTimeout,
	})
	if err != nil {
		return BackendStatus{Installed: installed}, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if !res.Success() {
		return BackendStatus{Installed: installed}, fmt.Errorf("%w: rc-update show exited %d", ErrBackend, res.ExitCode)
	}

	enabled := runlevelListsService(res.Output, b.config.ServiceName)
	if !installed && !enabled {
		return BackendStatus{}, fmt.Errorf("%w: %s is not installed", ErrBackend, b.openRCScriptPath())
	}
	return BackendStatus{Installed: installed, Enabled: enabled}, nil
}

// runlevelListsService parses `rc-update show` output, whose lines look
// like " linux-enable-ir-emitter |      default".
func runlevelListsService(output, service string) bool {
	for _, line := range strings.Split(output, "\n") {
		name, _, ok := strings.Cut(line, "|")
		if ok && strings.TrimSpace(name) == service {
			return true
		}
	}
	return false
}

func (b *Backend) findSystemdUnit() string {
	for _, dir := range b.unitSearchDirs {
		p := filepath.Join(dir, b.unitName())
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (b *Backend) ensureSystemdUnit(ctx context.Context) error {
	if b.findSystemdUnit() != "" {
		return nil
	}

	path := filepath.Join(b.config.UnitDir, b.unitName())
	if err := fileutil.WriteAtomic(path, renderSystemdUnit(b.config.Executable), 0o644); err != nil {
		return fmt.Errorf("%w: installing %s: %v", ErrBackend, path, err)
	}
	b.logger.Info("installed systemd unit", "path", path)

	return b.run(ctx, "systemctl", "daemon-reload")
}

func (b *Backend) openRCScriptPath() string {
	return filepath.Join(b.config.InitDir, b.config.ServiceName)
}

func (b *Backend) ensureOpenRCScript() error {
	path := b.openRCScriptPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: checking %s: %v", ErrBackend, path, err)
	}

	if err := fileutil.WriteAtomic(path, renderOpenRCScript(b.config.Executable), 0o755); err != nil {
		return fmt.Errorf("%w: installing %s: %v", ErrBackend, path, err)
	}
	b.logger.Info("installed openrc script", "path", path)
	return nil
}

// run executes an init-system command and maps a non-zero exit to ErrBackend.
func (b *Backend) run(ctx context.Context, binary string, args ...string) error {
	res, err := b.runner.Run(ctx, process.Command{
		Name:    binary,
		Binary:  binary,
		Args:    args,
		Timeout: b.config.CommandTimeout,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if !res.Success() {
		return fmt.Errorf("%w: %s %s exited %d: %s", ErrBackend, binary, strings.Join(args, " "), res.ExitCode, strings.TrimSpace(res.Output))
	}
	return nil
}
