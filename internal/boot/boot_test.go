package boot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nerrad567/ir-emitter/internal/camera"
	"github.com/nerrad567/ir-emitter/internal/process"
)

const (
	testExecutable = "/usr/bin/linux-enable-ir-emitter"
	testService    = "linux-enable-ir-emitter"
)

var (
	idVideo2 = camera.Identity{Kernels: "1-2:1.0", Index: 0}
	idVideo4 = camera.Identity{Kernels: "1-5:1.2", Index: 2}
)

type fixture struct {
	manager  *Manager
	runner   *process.MockRunner
	ruleFile string
	unitDir  string
	initDir  string
}

func newFixture(t *testing.T, kind Kind, installed bool) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	runner := process.NewMockRunner(ctrl)
	root := t.TempDir()

	f := &fixture{
		runner:   runner,
		ruleFile: filepath.Join(root, "rules.d", "99-linux-enable-ir-emitter.rules"),
		unitDir:  filepath.Join(root, "systemd"),
		initDir:  filepath.Join(root, "init.d"),
	}

	backend, err := NewBackend(BackendConfig{
		Kind:        kind,
		ServiceName: testService,
		Executable:  testExecutable,
		UnitDir:     f.unitDir,
		InitDir:     f.initDir,
	}, runner)
	require.NoError(t, err)
	backend.unitSearchDirs = []string{f.unitDir}

	if installed {
		require.NoError(t, os.MkdirAll(f.unitDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(f.unitDir, testService+".service"), renderSystemdUnit(testExecutable), 0o644))
		require.NoError(t, os.MkdirAll(f.initDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(f.initDir, testService), renderOpenRCScript(testExecutable), 0o755))
	}

	f.manager, err = NewManager(Config{RuleFile: f.ruleFile, Executable: testExecutable}, backend, runner)
	require.NoError(t, err)
	return f
}

func ok() (process.Result, error) {
	return process.Result{}, nil
}

func (f *fixture) expectUdev() {
	f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("udevadm", "control", "--reload-rules")).Return(ok())
	f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("udevadm", "trigger")).Return(ok())
}

func (f *fixture) readRules(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(f.ruleFile)
	require.NoError(t, err)
	return data
}

func TestRenderRules(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))

	g.Assert(t, "single_device", RenderRules([]camera.Identity{idVideo2}, testExecutable))

	// Duplicates collapse and order does not depend on input order.
	g.Assert(t, "multiple_devices", RenderRules([]camera.Identity{idVideo4, idVideo2, idVideo4}, testExecutable))

	assert.Empty(t, RenderRules(nil, testExecutable))
}

func TestManager_Enable(t *testing.T) {
	f := newFixture(t, KindSystemd, true)

	gomock.InOrder(
		f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("udevadm", "control", "--reload-rules")).Return(ok()),
		f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("udevadm", "trigger")).Return(ok()),
		f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("systemctl", "enable", testService+".service")).Return(ok()),
	)

	report := f.manager.Enable(context.Background(), []camera.Identity{idVideo2})
	require.NoError(t, report.Err())
	assert.Equal(t, 0, report.ExitCode())
	assert.Equal(t, string(RenderRules([]camera.Identity{idVideo2}, testExecutable)), string(f.readRules(t)))
}

func TestManager_EnableDropsStaleLines(t *testing.T) {
	f := newFixture(t, KindSystemd, true)
	f.expectUdev()
	f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("systemctl", "enable", testService+".service")).Return(ok())

	require.NoError(t, os.MkdirAll(filepath.Dir(f.ruleFile), 0o755))
	require.NoError(t, os.WriteFile(f.ruleFile, RenderRules([]camera.Identity{idVideo2, idVideo4}, testExecutable), 0o644))

	report := f.manager.Enable(context.Background(), []camera.Identity{idVideo4})
	require.NoError(t, report.Err())

	rules := string(f.readRules(t))
	assert.Equal(t, 1, strings.Count(rules, "\n"))
	assert.Contains(t, rules, `KERNELS=="1-5:1.2", ATTR{index}=="2"`)
	assert.NotContains(t, rules, idVideo2.Kernels)
}

func TestManager_DisableThenEnableMatchesSingleEnable(t *testing.T) {
	ids := []camera.Identity{idVideo2, idVideo4}

	single := newFixture(t, KindSystemd, true)
	single.expectUdev()
	single.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("systemctl", "enable", testService+".service")).Return(ok())
	require.NoError(t, single.manager.Enable(context.Background(), ids).Err())

	cycled := newFixture(t, KindSystemd, true)
	cycled.expectUdev()
	cycled.expectUdev()
	cycled.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("systemctl", "enable", testService+".service")).Return(ok()).Times(2)
	cycled.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("systemctl", "disable", testService+".service")).Return(ok())

	require.NoError(t, cycled.manager.Enable(context.Background(), ids).Err())
	require.NoError(t, cycled.manager.Disable(context.Background()).Err())
	require.NoError(t, cycled.manager.Enable(context.Background(), ids).Err())

	assert.Equal(t, single.readRules(t), cycled.readRules(t))
}

func TestManager_EnableAttemptsEveryStep(t *testing.T) {
	f := newFixture(t, KindSystemd, true)

	f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("udevadm", "control", "--reload-rules")).Return(process.Result{ExitCode: 1}, nil)
	f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("udevadm", "trigger")).Return(process.Result{}, errors.New("exec: \"udevadm\": not found"))
	f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("systemctl", "enable", testService+".service")).Return(ok())

	report := f.manager.Enable(context.Background(), []camera.Identity{idVideo2})
	assert.Equal(t, 2, report.ExitCode())
	assert.ErrorIs(t, report.Err(), ErrUdev)
	assert.Contains(t, report.Err().Error(), StepUdevReload)
	assert.FileExists(t, f.ruleFile)
}

func TestManager_EnableBackendFailure(t *testing.T) {
	f := newFixture(t, KindSystemd, true)
	f.expectUdev()
	f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("systemctl", "enable", testService+".service")).
		Return(process.Result{ExitCode: 1, Output: "Failed to enable unit"}, nil)

	report := f.manager.Enable(context.Background(), []camera.Identity{idVideo2})
	assert.Equal(t, 1, report.ExitCode())
	assert.ErrorIs(t, report.Err(), ErrBackend)
}

func TestManager_EnableSkipsUnsafeIdentity(t *testing.T) {
	f := newFixture(t, KindSystemd, true)
	f.expectUdev()
	f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(ok())

	bad := camera.Identity{Kernels: `1-2", RUN+="/bin/sh`, Index: 0}
	report := f.manager.Enable(context.Background(), []camera.Identity{idVideo2, bad})
	assert.Equal(t, 1, report.ExitCode())
	assert.ErrorIs(t, report.Err(), ErrRuleIO)
	assert.Equal(t, RenderRules([]camera.Identity{idVideo2}, testExecutable), f.readRules(t))
}

func TestManager_DisableWithoutRuleFile(t *testing.T) {
	f := newFixture(t, KindSystemd, true)
	f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("systemctl", "disable", testService+".service")).Return(ok())

	report := f.manager.Disable(context.Background())
	assert.Equal(t, 1, report.ExitCode())
	assert.ErrorIs(t, report.Err(), ErrServiceMissing)
	assert.ErrorIs(t, report.Err(), ErrRuleIO)
	require.Len(t, report.Steps, 2)
	assert.False(t, report.Steps[1].Failed())
}

func TestManager_DisableBothFail(t *testing.T) {
	f := newFixture(t, KindOpenRC, true)
	f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("rc-update", "del", testService, "default")).Return(process.Result{ExitCode: 1}, nil)

	report := f.manager.Disable(context.Background())
	assert.Equal(t, 2, report.ExitCode())
}

func TestBackend_InstallsSystemdUnit(t *testing.T) {
	f := newFixture(t, KindSystemd, false)
	f.expectUdev()
	gomock.InOrder(
		f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("systemctl", "daemon-reload")).Return(ok()),
		f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("systemctl", "enable", testService+".service")).Return(ok()),
	)

	require.NoError(t, f.manager.Enable(context.Background(), []camera.Identity{idVideo2}).Err())

	unit, err := os.ReadFile(filepath.Join(f.unitDir, testService+".service"))
	require.NoError(t, err)
	assert.Contains(t, string(unit), "ExecStart="+testExecutable+" run")
	assert.Contains(t, string(unit), "Type=oneshot")
}

func TestBackend_InstallsOpenRCScript(t *testing.T) {
	f := newFixture(t, KindOpenRC, false)
	f.expectUdev()
	f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("rc-update", "add", testService, "default")).Return(ok())

	require.NoError(t, f.manager.Enable(context.Background(), []camera.Identity{idVideo2}).Err())

	script := filepath.Join(f.initDir, testService)
	info, err := os.Stat(script)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	data, err := os.ReadFile(script)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "#!/sbin/openrc-run\n"))
}

func TestManager_NoBackend(t *testing.T) {
	f := newFixture(t, KindNone, false)
	f.expectUdev()

	report := f.manager.Enable(context.Background(), []camera.Identity{idVideo2})
	assert.Equal(t, 1, report.ExitCode())
	assert.ErrorIs(t, report.Err(), ErrNoBackend)

	st := f.manager.Status(context.Background())
	assert.Equal(t, StateEnabled, st.State)
	assert.ErrorIs(t, st.BackendErr, ErrNoBackend)
	assert.Equal(t, 1, st.ExitCode())
}

func TestManager_StatusSystemd(t *testing.T) {
	tests := []struct {
		name        string
		withRules   bool
		result      process.Result
		wantState   State
		wantExit    int
		wantEnabled bool
	}{
		{"enabled", true, process.Result{ExitCode: 0, Output: "enabled\n"}, StateEnabled, 0, true},
		{"disabled", false, process.Result{ExitCode: 1, Output: "disabled\n"}, StateDisabled, 0, false},
		{"rules without service", true, process.Result{ExitCode: 1, Output: "disabled\n"}, StateInconsistent, 1, false},
		{"service without rules", false, process.Result{ExitCode: 0, Output: "enabled\n"}, StateInconsistent, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, KindSystemd, true)
			if tt.withRules {
				require.NoError(t, os.MkdirAll(filepath.Dir(f.ruleFile), 0o755))
				require.NoError(t, os.WriteFile(f.ruleFile, RenderRules([]camera.Identity{idVideo2}, testExecutable), 0o644))
			}
			f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("systemctl", "is-enabled", testService+".service")).Return(tt.result, nil)

			before, _ := os.ReadFile(f.ruleFile) //nolint:errcheck // Absent file reads as nil

			st := f.manager.Status(context.Background())
			assert.Equal(t, tt.wantState, st.State)
			assert.Equal(t, tt.wantExit, st.ExitCode())
			assert.Equal(t, tt.wantEnabled, st.BackendEnabled)
			assert.Equal(t, tt.withRules, st.RulePresent)
			if tt.withRules {
				assert.Equal(t, 1, st.RuleLines)
			}

			after, _ := os.ReadFile(f.ruleFile) //nolint:errcheck // Absent file reads as nil
			assert.Equal(t, before, after, "status must not modify the rule file")
		})
	}
}

func TestManager_StatusSystemdNotInstalled(t *testing.T) {
	f := newFixture(t, KindSystemd, false)
	f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(process.Result{ExitCode: 1, Output: "Failed to get unit file state: No such file or directory\n"}, nil)

	st := f.manager.Status(context.Background())
	assert.ErrorIs(t, st.BackendErr, ErrBackend)
	assert.False(t, st.BackendInstalled)
	assert.Equal(t, 1, st.ExitCode())
}

func TestManager_StatusOpenRC(t *testing.T) {
	f := newFixture(t, KindOpenRC, true)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.ruleFile), 0o755))
	require.NoError(t, os.WriteFile(f.ruleFile, RenderRules([]camera.Identity{idVideo2}, testExecutable), 0o644))

	f.runner.EXPECT().Run(gomock.Any(), process.MatchCommand("rc-update", "show", "default")).Return(process.Result{
		Output: "                  local | default\n linux-enable-ir-emitter | default\n                   sshd | default\n",
	}, nil)

	st := f.manager.Status(context.Background())
	assert.Equal(t, StateEnabled, st.State)
	assert.True(t, st.BackendInstalled)
	assert.Equal(t, 0, st.ExitCode())
}

func TestRunlevelListsService(t *testing.T) {
	out := " linux-enable-ir-emitter-extra | default\n                   sshd | default\n"
	assert.False(t, runlevelListsService(out, testService))
	assert.True(t, runlevelListsService(out, "sshd"))
}

func TestDetect(t *testing.T) {
	missing := func(string) (string, error) { return "", errors.New("not found") }
	found := func(string) (string, error) { return "/usr/bin/x", nil }

	tests := []struct {
		name string
		d    detector
		want Kind
	}{
		{
			name: "pid 1 is systemd",
			d: detector{
				pid1Name: func(context.Context) (string, error) { return "systemd", nil },
				lookPath: missing,
				exists:   func(string) bool { return false },
			},
			want: KindSystemd,
		},
		{
			name: "systemd runtime dir",
			d: detector{
				pid1Name: func(context.Context) (string, error) { return "", errors.New("permission denied") },
				lookPath: found,
				exists:   func(p string) bool { return p == "/run/systemd/system" },
			},
			want: KindSystemd,
		},
		{
			name: "openrc",
			d: detector{
				pid1Name: func(context.Context) (string, error) { return "init", nil },
				lookPath: func(f string) (string, error) {
					if f == "rc-update" {
						return "/sbin/rc-update", nil
					}
					return "", errors.New("not found")
				},
				exists: func(string) bool { return false },
			},
			want: KindOpenRC,
		},
		{
			name: "nothing",
			d: detector{
				pid1Name: func(context.Context) (string, error) { return "runit", nil },
				lookPath: missing,
				exists:   func(string) bool { return false },
			},
			want: KindNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.detect(context.Background()))
		})
	}
}

func TestResolveAndParseKind(t *testing.T) {
	k, err := Resolve(context.Background(), "openrc")
	require.NoError(t, err)
	assert.Equal(t, KindOpenRC, k)

	_, err = ParseKind("upstart")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewManager_Validation(t *testing.T) {
	backend, err := NewBackend(BackendConfig{Kind: KindNone}, nil)
	require.NoError(t, err)

	_, err = NewManager(Config{Executable: testExecutable}, backend, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewManager(Config{RuleFile: "/tmp/x.rules", Executable: `/usr/bin/a"b`}, backend, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewManager(Config{RuleFile: "/tmp/x.rules", Executable: testExecutable}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestReport(t *testing.T) {
	var r Report
	r.add("a", nil)
	r.add("b", errors.New("boom"))
	r.add("c", ErrBackend)

	assert.Equal(t, 2, r.ExitCode())
	assert.ErrorIs(t, r.Err(), ErrBackend)
	assert.Contains(t, r.Err().Error(), "b: boom")

	assert.NoError(t, Report{}.Err())
}
