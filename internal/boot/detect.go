package boot

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	psprocess "github.com/shirou/gopsutil/v3/process"
)

// detector holds the lookups Detect uses so tests can replace them.
type detector struct {
	pid1Name func(ctx context.Context) (string, error)
	lookPath func(file string) (string, error)
	exists   func(path string) bool
}

func defaultDetector() detector {
	return detector{
		pid1Name: func(ctx context.Context) (string, error) {
			p, err := psprocess.NewProcessWithContext(ctx, 1)
			if err != nil {
				return "", err
			}
			return p.NameWithContext(ctx)
		},
		lookPath: exec.LookPath,
		exists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// Detect returns the init system of the running host: systemd when PID 1
// is systemd (or /run/systemd/system exists), OpenRC when rc-update is
// installed or /run/openrc exists, and KindNone otherwise.
func Detect(ctx context.Context) Kind {
	return defaultDetector().detect(ctx)
}

func (d detector) detect(ctx context.Context) Kind {
	if name, err := d.pid1Name(ctx); err == nil {
		if filepath.Base(name) == "systemd" {
			return KindSystemd
		}
	}

	if d.exists("/run/systemd/system") {
		if _, err := d.lookPath("systemctl"); err == nil {
			return KindSystemd
		}
	}

	if d.exists("/run/openrc") {
		return KindOpenRC
	}
	if _, err := d.lookPath("rc-update"); err == nil {
		return KindOpenRC
	}

	return KindNone
}

// Resolve maps a configured backend name to a Kind, detecting it for "auto"
// or an empty value.
func Resolve(ctx context.Context, configured string) (Kind, error) {
	if configured == "" || strings.EqualFold(configured, "auto") {
		return Detect(ctx), nil
	}
	return ParseKind(configured)
}
