package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

//go:generate mockgen -destination=mock_runner.go -package=process github.com/nerrad567/ir-emitter/internal/process Runner

// maxCapturedOutput bounds the output kept in Result.Output.
const maxCapturedOutput = 64 * 1024

// defaultWaitDelay is how long a cancelled command gets between SIGTERM to
// its process group and a forced kill.
const defaultWaitDelay = 5 * time.Second

// Command describes one invocation of an external program.
type Command struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path or name of the executable.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Stdin, Stdout and Stderr, when set, are attached to the child
	// directly. A command with Stdin set is treated as interactive: it stays
	// in the caller's process group so it can read from the terminal.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Timeout bounds the run. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// String renders the command line for logs and errors.
func (c Command) String() string {
	return strings.TrimSpace(c.Binary + " " + strings.Join(c.Args, " "))
}

// Result is the outcome of a command that ran to completion.
type Result struct {
	// ExitCode is the child's exit status. A non-zero exit is not an error.
	ExitCode int

	// Output holds combined stdout/stderr when the caller did not attach
	// its own writers.
	Output string

	Duration time.Duration
}

// Success reports whether the command exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes external commands.
//
// Run returns an error only when the command could not be started or was
// cancelled. A command that ran and exited non-zero reports it through
// Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Logger defines the logging interface for the runner.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger    Logger
	waitDelay time.Duration
}

// NewExecRunner creates a runner that logs through a no-op logger until
// SetLogger is called.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		logger:    noopLogger{},
		waitDelay: defaultWaitDelay,
	}
}

// SetLogger sets the logger for the runner.
func (r *ExecRunner) SetLogger(logger Logger) {
	r.logger = logger
}

// Run starts the command and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	if c.Binary == "" {
		return Result{}, fmt.Errorf("running %s: empty binary", c.Name)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	r.logger.Debug("running command",
		"name", c.Name,
		"binary", c.Binary,
		"args", c.Args,
	)

	cmd := exec.CommandContext(ctx, c.Binary, c.Args...) //nolint:gosec // Binary paths come from validated config

	interactive := c.Stdin != nil
	if !interactive {
		// Own process group so cancellation reaches every child.
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		cmd.Cancel = func() error {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
		}
		cmd.WaitDelay = r.waitDelay
	}

	cmd.Stdin = c.Stdin

	var captured bytes.Buffer
	sink := &limitedWriter{w: &captured, remaining: maxCapturedOutput}
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	} else {
		cmd.Stdout = sink
	}
	if c.Stderr != nil {
		cmd.Stderr = c.Stderr
	} else {
		cmd.Stderr = sink
	}

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Output:   captured.String(),
		Duration: time.Since(start),
	}

	r.logOutput(c.Name, res.Output)

	if err != nil {
		var exitErr *exec.ExitError
		if ctx.Err() != nil {
			return res, fmt.Errorf("running %s: %w", c.Name, ctx.Err())
		}
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			r.logger.Debug("command exited non-zero",
				"name", c.Name,
				"exit_code", res.ExitCode,
				"duration", res.Duration,
			)
			return res, nil
		}
		return res, fmt.Errorf("starting %s: %w", c.Name, err)
	}

	r.logger.Debug("command finished",
		"name", c.Name,
		"duration", res.Duration,
	)
	return res, nil
}

// logOutput logs captured output line by line at debug level.
func (r *ExecRunner) logOutput(name, output string) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		r.logger.Debug("process output",
			"name", name,
			"output", scanner.Text(),
		)
	}
}

// limitedWriter discards writes past its budget without failing the child.
type limitedWriter struct {
	w         io.Writer
	remaining int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if l.remaining <= 0 {
		return n, nil
	}
	chunk := p
	if len(chunk) > l.remaining {
		chunk = chunk[:l.remaining]
	}
	l.remaining -= len(chunk)
	if _, err := l.w.Write(chunk); err != nil {
		return 0, err
	}
	return n, nil
}
