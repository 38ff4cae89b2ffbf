package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/ir-emitter/internal/boot"
	"github.com/nerrad567/ir-emitter/internal/camera"
	"github.com/nerrad567/ir-emitter/internal/history"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/config"
	"github.com/nerrad567/ir-emitter/internal/infrastructure/logging"
	"github.com/nerrad567/ir-emitter/internal/lifecycle"
)

const byPath = "/dev/v4l/by-path/pci-0000:00:14.0-usb-0:2:1.0-video-index0"

type call struct {
	op     string
	device string
	req    lifecycle.ConfigureRequest
}

type fakeService struct {
	calls   []call
	outcome lifecycle.Outcome
}

func (f *fakeService) Configure(_ context.Context, req lifecycle.ConfigureRequest) lifecycle.Outcome {
	f.calls = append(f.calls, call{op: "configure", device: req.Device, req: req})
	return f.outcome
}

func (f *fakeService) Run(_ context.Context, device string) lifecycle.Outcome {
	f.calls = append(f.calls, call{op: "run", device: device})
	return f.outcome
}

func (f *fakeService) Test(_ context.Context, device string) lifecycle.Outcome {
	f.calls = append(f.calls, call{op: "test", device: device})
	return f.outcome
}

func (f *fakeService) Delete(_ context.Context, device string) lifecycle.Outcome {
	f.calls = append(f.calls, call{op: "delete", device: device})
	return f.outcome
}

func (f *fakeService) Boot(_ context.Context, action string) lifecycle.Outcome {
	f.calls = append(f.calls, call{op: "boot " + action})
	return f.outcome
}

type fakeResolver struct {
	devices    map[string]string
	candidates []string
}

func (r fakeResolver) Resolve(device string) (string, error) {
	if p, ok := r.devices[device]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %s", camera.ErrDeviceNotFound, device)
}

func (r fakeResolver) List() ([]string, error) {
	return r.candidates, nil
}

type fakeHistory struct {
	events []history.Event
	filter history.Filter
}

func (h *fakeHistory) List(_ context.Context, filter history.Filter) ([]history.Event, error) {
	h.filter = filter
	return h.events, nil
}

type harness struct {
	svc      *fakeService
	resolver fakeResolver
	hist     *fakeHistory
	euid     int
	built    int
	cfgSeen  *config.Config
	config   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("IREMITTER_CONFIG", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("discovery:\n  emitters: 1\n  neg_answer_limit: 40\nhistory:\n  enabled: false\n"), 0o600))

	return &harness{
		svc: &fakeService{},
		resolver: fakeResolver{
			devices:    map[string]string{"/dev/video2": byPath},
			candidates: []string{byPath},
		},
		hist:   &fakeHistory{},
		config: path,
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Version: "test",
		Geteuid: func() int { return h.euid },
		Build: func(_ context.Context, cfg *config.Config, _ *logging.Logger) (*App, error) {
			h.built++
			h.cfgSeen = cfg
			return &App{Service: h.svc, Resolver: h.resolver}, nil
		},
		OpenHistory: func(context.Context, *config.Config) (HistoryReader, io.Closer, error) {
			return h.hist, io.NopCloser(nil), nil
		},
	}
}

func (h *harness) run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), append([]string{"--config", h.config}, args...), &stdout, &stderr, h.deps())
	return code, stdout.String(), stderr.String()
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(DefaultDeps("1.2.3"))
	require.NotNil(t, cmd)
	assert.Equal(t, "linux-enable-ir-emitter", cmd.Use)
	assert.Equal(t, "1.2.3", cmd.Version)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(DefaultDeps("test"))

	for _, name := range []string{"run", "configure", "test", "boot", "delete", "history"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand(DefaultDeps("test"))

	device := cmd.PersistentFlags().Lookup("device")
	require.NotNil(t, device)
	assert.Equal(t, "d", device.Shorthand)

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	configure, _, err := cmd.Find([]string{"configure"})
	require.NoError(t, err)
	for flag, short := range map[string]string{"manual": "m", "emitters": "e", "limit": "l"} {
		f := configure.Flags().Lookup(flag)
		require.NotNil(t, f, flag)
		assert.Equal(t, short, f.Shorthand)
	}
	assert.NotNil(t, configure.Flags().Lookup("exhaustive"))
}

func TestMutatingCommandsRequireRoot(t *testing.T) {
	for _, args := range [][]string{
		{"configure", "-d", "/dev/video2"},
		{"delete"},
		{"boot", "enable"},
		{"boot", "disable"},
	} {
		t.Run(args[0], func(t *testing.T) {
			h := newHarness(t)
			h.euid = 1000

			code, _, stderr := h.run(args...)
			assert.Equal(t, ExitFailure, code)
			assert.Contains(t, stderr, "must be run as root")
			assert.Zero(t, h.built, "nothing may be wired before the privilege check")
			assert.Empty(t, h.svc.calls)
		})
	}
}

func TestReadOnlyCommandsRunUnprivileged(t *testing.T) {
	h := newHarness(t)
	h.euid = 1000

	code, _, _ := h.run("run")
	assert.Equal(t, ExitSuccess, code)

	code, _, _ = h.run("boot", "status")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, []call{{op: "run"}, {op: "boot status"}}, h.svc.calls)
}

func TestConfigure(t *testing.T) {
	h := newHarness(t)

	code, _, _ := h.run("configure", "-d", "/dev/video2", "-e", "2", "-l", "-1", "-m", "--exhaustive")
	require.Equal(t, ExitSuccess, code)

	require.Len(t, h.svc.calls, 1)
	assert.Equal(t, lifecycle.ConfigureRequest{
		Device:         byPath,
		Emitters:       2,
		NegAnswerLimit: -1,
		Manual:         true,
	}, h.svc.calls[0].req)
	assert.True(t, h.cfgSeen.Discovery.Exhaustive)
}

func TestConfigure_DefaultsFromConfig(t *testing.T) {
	h := newHarness(t)

	code, _, _ := h.run("configure", "-v")
	require.Equal(t, ExitSuccess, code)

	req := h.svc.calls[0].req
	assert.Equal(t, byPath, req.Device, "the only camera is picked")
	assert.Equal(t, 1, req.Emitters)
	assert.Equal(t, 40, req.NegAnswerLimit)
	assert.True(t, req.Verbose)
	assert.False(t, h.cfgSeen.Discovery.Exhaustive)
	assert.Equal(t, "debug", h.cfgSeen.Logging.Level)
}

func TestConfigure_SeveralCameras(t *testing.T) {
	h := newHarness(t)
	h.resolver.candidates = []string{byPath, "/dev/v4l/by-path/other-video-index0"}

	code, _, stderr := h.run("configure")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "choose one with --device")
	assert.Empty(t, h.svc.calls)
}

func TestUnknownDevice(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run("run", "-d", "/dev/video9")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "/dev/video9 does not exist")
	assert.Empty(t, h.svc.calls)
}

func TestExitCodePropagates(t *testing.T) {
	h := newHarness(t)
	h.svc.outcome = lifecycle.Outcome{ExitCode: 3, Err: errors.New("discovery: search failed")}

	code, _, stderr := h.run("configure", "-d", "/dev/video2")
	assert.Equal(t, 3, code)
	assert.Contains(t, stderr, "configure failed")
}

func TestRunAndDeleteDevices(t *testing.T) {
	h := newHarness(t)

	h.run("run", "-d", "/dev/video2")
	h.run("test")
	h.run("delete", "--device", "/dev/video2")
	h.run("delete")

	assert.Equal(t, []call{
		{op: "run", device: byPath},
		{op: "test"},
		{op: "delete", device: byPath},
		{op: "delete"},
	}, h.svc.calls)
}

func TestBootStatusJSON(t *testing.T) {
	h := newHarness(t)
	h.svc.outcome = lifecycle.Outcome{
		ExitCode: 1,
		Status: &boot.StatusReport{
			Backend:     boot.KindSystemd,
			RulePresent: true,
			RuleLines:   1,
			State:       boot.StateInconsistent,
		},
	}

	code, stdout, _ := h.run("--format", "json", "boot", "status")
	assert.Equal(t, 1, code)

	var got statusJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, statusJSON{Backend: "systemd", RulePresent: true, RuleLines: 1, State: "inconsistent"}, got)
}

func TestBootEnableReport(t *testing.T) {
	h := newHarness(t)
	h.svc.outcome = lifecycle.Outcome{
		ExitCode: 1,
		Err:      boot.ErrUdev,
		Report: &boot.Report{Action: "enable", Steps: []boot.Step{
			{Name: boot.StepRuleFile},
			{Name: boot.StepUdevReload, Err: boot.ErrUdev},
		}},
	}

	code, stdout, _ := h.run("boot", "enable")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "rule-file")
	assert.Contains(t, stdout, "udevadm failed")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"invalid boot action", []string{"boot", "restart"}},
		{"missing boot action", []string{"boot"}},
		{"invalid format", []string{"--format", "yaml", "run"}},
		{"unknown command", []string{"frobnicate"}},
		{"unknown flag", []string{"run", "--bogus"}},
		{"flag value", []string{"configure", "-e", "two"}},
		{"missing flag value", []string{"history", "--limit"}},
		{"extra argument", []string{"delete", "/dev/video2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			cmd := NewRootCommand(h.deps())
			cmd.SetArgs(append([]string{"--config", h.config}, tt.args...))
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)

			err := cmd.ExecuteContext(context.Background())
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, ExitCommandError, exitErr.Code)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Empty(t, h.svc.calls)
		})
	}
}

func TestBareRootPrintsHelp(t *testing.T) {
	h := newHarness(t)

	code, stdout, _ := h.run()
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "Available Commands")
	assert.Zero(t, h.built)
}

func TestMissingExplicitConfig(t *testing.T) {
	h := newHarness(t)
	h.config = filepath.Join(t.TempDir(), "absent.yaml")

	code, _, stderr := h.run("run")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "loading configuration")
}

func TestHistory(t *testing.T) {
	h := newHarness(t)
	h.hist.events = []history.Event{
		{ID: "evt-1", Action: history.ActionRun, Device: byPath, ExitCode: 1, Error: "emitter: no driver configured",
			CreatedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)},
		{ID: "evt-2", Action: history.ActionBootEnable,
			CreatedAt: time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)},
	}

	code, stdout, _ := h.run("history", "-n", "5", "--action", "run")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, history.Filter{Action: "run", Limit: 5}, h.hist.filter)
	assert.Contains(t, stdout, "ACTION")
	assert.Contains(t, stdout, "no driver configured")
	assert.Contains(t, stdout, "boot-enable")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, 4, GetExitCode(fmt.Errorf("wrapped: %w", WrapExitError(4, "boot", nil))))

	err := WrapExitError(ExitFailure, "denied", ErrPrivilegeRequired)
	assert.ErrorIs(t, err, ErrPrivilegeRequired)
	assert.Equal(t, "denied: cli: root privileges required", err.Error())
}
