package boot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nerrad567/ir-emitter/internal/camera"
	"github.com/nerrad567/ir-emitter/internal/fileutil"
	"github.com/nerrad567/ir-emitter/internal/process"
)

const rulePermissions = 0o644

// Logger defines the logging interface for the boot manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Step names reported in Report.Steps.
const (
	StepRuleFile       = "rule-file"
	StepUdevReload     = "udev-reload"
	StepUdevTrigger    = "udev-trigger"
	StepBackendEnable  = "backend-enable"
	StepBackendDisable = "backend-disable"
)

// Config holds the boot manager settings.
type Config struct {
	// RuleFile is the udev rule file owned by the tool.
	RuleFile string

	// Executable is the binary udev runs with "run".
	Executable string

	// CommandTimeout bounds each udevadm call.
	CommandTimeout time.Duration
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.RuleFile == "" {
		return fmt.Errorf("%w: rule file is required", ErrInvalidConfig)
	}
	return validateRuleValue("executable", c.Executable)
}

// Manager owns the boot registration: the udev rule file plus the init
// system service.
type Manager struct {
	config  Config
	backend *Backend
	runner  process.Runner
	logger  Logger
}

// NewManager creates a boot manager after validating cfg.
func NewManager(cfg Config, backend *Backend, runner process.Runner) (*Manager, error) {
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 30 * time.Second
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: backend is required", ErrInvalidConfig)
	}

	return &Manager{
		config:  cfg,
		backend: backend,
		runner:  runner,
		logger:  noopLogger{},
	}, nil
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Enable regenerates the rule file from ids, reloads and triggers udev,
// and enables the backend service. Every step runs even if an earlier one
// failed; the report carries each outcome.
func (m *Manager) Enable(ctx context.Context, ids []camera.Identity) Report {
	report := Report{Action: "enable"}

	report.add(StepRuleFile, m.writeRules(ids))
	report.add(StepUdevReload, m.udevadm(ctx, "control", "--reload-rules"))
	report.add(StepUdevTrigger, m.udevadm(ctx, "trigger"))
	report.add(StepBackendEnable, m.backend.Enable(ctx))

	m.logReport(report)
	return report
}

// Disable removes the rule file and disables the backend service. Both
// steps run independently; a missing rule file is reported as
// ErrServiceMissing.
func (m *Manager) Disable(ctx context.Context) Report {
	report := Report{Action: "disable"}

	report.add(StepRuleFile, m.removeRules())
	report.add(StepBackendDisable, m.backend.Disable(ctx))

	m.logReport(report)
	return report
}

// Status reports the rule file and backend state without modifying either.
func (m *Manager) Status(ctx context.Context) StatusReport {
	st := StatusReport{Backend: m.backend.Kind()}

	if data, err := os.ReadFile(m.config.RuleFile); err == nil {
		st.RulePresent = true
		st.RuleLines = countRules(data)
	} else if !errors.Is(err, os.ErrNotExist) {
		st.BackendErr = fmt.Errorf("%w: reading %s: %v", ErrRuleIO, m.config.RuleFile, err)
	}

	bs, err := m.backend.Status(ctx)
	if err != nil && st.BackendErr == nil {
		st.BackendErr = err
	}
	st.BackendInstalled = bs.Installed
	st.BackendEnabled = bs.Enabled

	if m.backend.Kind() == KindNone {
		// Without an init system the rule file alone decides.
		st.State = deriveState(st.RulePresent, st.RulePresent)
	} else {
		st.State = deriveState(st.RulePresent, st.BackendEnabled)
	}
	return st
}

func (m *Manager) writeRules(ids []camera.Identity) error {
	valid := make([]camera.Identity, 0, len(ids))
	var invalid []error
	for _, id := range ids {
		if err := validateRuleValue("kernels", id.Kernels); err != nil {
			invalid = append(invalid, fmt.Errorf("identity %s: %w", id, err))
			continue
		}
		valid = append(valid, id)
	}
	if len(valid) == 0 {
		m.logger.Warn("no configured device to register; writing an empty rule file", "path", m.config.RuleFile)
	}

	content := RenderRules(valid, m.config.Executable)
	if err := fileutil.WriteAtomic(m.config.RuleFile, content, rulePermissions); err != nil {
		return fmt.Errorf("%w: %v", ErrRuleIO, err)
	}
	m.logger.Debug("udev rule file written", "path", m.config.RuleFile, "rules", len(valid))

	if err := errors.Join(invalid...); err != nil {
		return fmt.Errorf("%w: skipped devices: %v", ErrRuleIO, err)
	}
	return nil
}

func (m *Manager) removeRules() error {
	if err := os.Remove(m.config.RuleFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrServiceMissing
		}
		return fmt.Errorf("%w: %v", ErrRuleIO, err)
	}
	m.logger.Debug("udev rule file removed", "path", m.config.RuleFile)
	return nil
}

func (m *Manager) udevadm(ctx context.Context, args ...string) error {
	res, err := m.runner.Run(ctx, process.Command{
		Name:    "udevadm",
		Binary:  "udevadm",
		Args:    args,
		Timeout: m.config.CommandTimeout,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUdev, err)
	}
	if !res.Success() {
		return fmt.Errorf("%w: udevadm %s exited %d", ErrUdev, args[0], res.ExitCode)
	}
	return nil
}

func (m *Manager) logReport(r Report) {
	for _, s := range r.Steps {
		if s.Failed() {
			m.logger.Error("boot step failed", "action", r.Action, "step", s.Name, "error", s.Err)
		} else {
			m.logger.Debug("boot step done", "action", r.Action, "step", s.Name)
		}
	}
}
