package discovery

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nerrad567/ir-emitter/internal/camera"
	"github.com/nerrad567/ir-emitter/internal/process"
)

// Status is the outcome of a discovery run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result is what a completed discovery run reports.
type Result struct {
	Status Status

	// ExitCode is the generator's exit status, reported verbatim.
	ExitCode int
}

// Logger defines the logging interface for the invoker.
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

// Invoker runs the external driver generator.
type Invoker struct {
	config Config
	runner process.Runner
	logger Logger

	// checkDevice is camera.CheckCharDevice outside tests.
	checkDevice func(string) error

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewInvoker creates an invoker after validating cfg. The generator is
// attached to the process's own terminal.
func NewInvoker(cfg Config, runner process.Runner) (*Invoker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Invoker{
		config:      cfg,
		runner:      runner,
		logger:      noopLogger{},
		checkDevice: camera.CheckCharDevice,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}, nil
}

// SetLogger sets the logger for the invoker.
func (inv *Invoker) SetLogger(logger Logger) {
	inv.logger = logger
}

// Discover validates req, runs the generator and blocks until it exits.
// It never parses the generator's output and never retries. A non-zero
// exit yields StatusFailure with the exit code and an error wrapping
// ErrDiscoveryFailed.
func (inv *Invoker) Discover(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	if err := inv.checkDevice(req.Device); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	args := BuildArgs(inv.config, req)
	inv.logger.Info("starting driver search",
		"device", req.Device,
		"emitters", req.Emitters,
		"neg_answer_limit", req.NegAnswerLimit,
		"manual", req.Manual,
		"exhaustive", inv.config.Exhaustive,
	)

	res, err := inv.runner.Run(ctx, process.Command{
		Name:   "driver-generator",
		Binary: inv.config.Binary,
		Args:   args,
		Stdin:  inv.stdin,
		Stdout: inv.stdout,
		Stderr: inv.stderr,
	})
	if err != nil {
		return Result{Status: StatusFailure, ExitCode: -1}, fmt.Errorf("running driver generator: %w", err)
	}

	if !res.Success() {
		inv.logger.Debug("driver search failed", "device", req.Device, "exit_code", res.ExitCode, "duration", res.Duration)
		return Result{Status: StatusFailure, ExitCode: res.ExitCode},
			fmt.Errorf("%w: %s (exit code %d)", ErrDiscoveryFailed, req.Device, res.ExitCode)
	}

	inv.logger.Debug("driver search succeeded", "device", req.Device, "duration", res.Duration)
	return Result{Status: StatusSuccess}, nil
}
