package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nerrad567/ir-emitter/internal/process"
)

var (
	// ErrDeviceNotFound is returned when a path does not resolve to a
	// persistent V4L device.
	ErrDeviceNotFound = errors.New("camera: device not found")

	// ErrNotCharDevice is returned when a path exists but is not a
	// character device.
	ErrNotCharDevice = errors.New("camera: not a character device")

	// ErrIdentityUnavailable is returned when udev does not report the
	// USB interface or the node index of a device.
	ErrIdentityUnavailable = errors.New("camera: identity unavailable")
)

// identifyTimeout bounds a single udevadm info call.
const identifyTimeout = 10 * time.Second

// Identity is the udev-visible identity of a video node: the KERNELS value
// of its USB interface and its ATTR{index}. It is stable across reboots
// for a given by-path device.
type Identity struct {
	Kernels string `yaml:"kernels"`
	Index   int    `yaml:"index"`
}

// String renders the identity as "kernels/index".
func (i Identity) String() string {
	return fmt.Sprintf("%s/%d", i.Kernels, i.Index)
}

// Less orders identities by kernels then index.
func (i Identity) Less(o Identity) bool {
	if i.Kernels != o.Kernels {
		return i.Kernels < o.Kernels
	}
	return i.Index < o.Index
}

// Logger defines the logging interface for the resolver.
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

// Resolver maps user-supplied device paths to their persistent by-path
// names and looks up their udev identity.
type Resolver struct {
	byPathDir string
	runner    process.Runner
	logger    Logger
}

// NewResolver creates a resolver over byPathDir (normally /dev/v4l/by-path).
func NewResolver(byPathDir string, runner process.Runner) *Resolver {
	return &Resolver{
		byPathDir: byPathDir,
		runner:    runner,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the resolver.
func (r *Resolver) SetLogger(logger Logger) {
	r.logger = logger
}

// Resolve returns the by-path name of device. Both /dev/videoN and an
// existing by-path name are accepted.
func (r *Resolver) Resolve(device string) (string, error) {
	target, err := filepath.EvalSymlinks(device)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
	}

	if filepath.Dir(filepath.Clean(device)) == filepath.Clean(r.byPathDir) {
		return filepath.Clean(device), nil
	}

	entries, err := os.ReadDir(r.byPathDir)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrDeviceNotFound, r.byPathDir, err)
	}

	for _, e := range entries {
		candidate := filepath.Join(r.byPathDir, e.Name())
		resolved, err := filepath.EvalSymlinks(candidate)
		if err != nil {
			continue
		}
		if resolved == target {
			r.logger.Debug("resolved device", "device", device, "by_path", candidate)
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s has no entry in %s", ErrDeviceNotFound, device, r.byPathDir)
}

// List returns every by-path video capture node, sorted.
func (r *Resolver) List() ([]string, error) {
	entries, err := os.ReadDir(r.byPathDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", r.byPathDir, err)
	}

	var devices []string
	for _, e := range entries {
		if strings.Contains(e.Name(), "-video-index") {
			devices = append(devices, filepath.Join(r.byPathDir, e.Name()))
		}
	}
	sort.Strings(devices)
	return devices, nil
}

// Identify asks udev for the identity of device.
func (r *Resolver) Identify(ctx context.Context, device string) (Identity, error) {
	res, err := r.runner.Run(ctx, process.Command{
		Name:    "udevadm-info",
		Binary:  "udevadm",
		Args:    []string{"info", "--attribute-walk", "--name=" + device},
		Timeout: identifyTimeout,
	})
	if err != nil {
		return Identity{}, fmt.Errorf("identifying %s: %w", device, err)
	}
	if !res.Success() {
		return Identity{}, fmt.Errorf("%w: udevadm info exited %d for %s", ErrIdentityUnavailable, res.ExitCode, device)
	}

	id, err := ParseAttributeWalk(res.Output)
	if err != nil {
		return Identity{}, fmt.Errorf("identifying %s: %w", device, err)
	}

	r.logger.Debug("identified device", "device", device, "kernels", id.Kernels, "index", id.Index)
	return id, nil
}

// IsCharDevice reports whether path names a character device.
func IsCharDevice(path string) bool {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFCHR
}

// CheckCharDevice returns nil when path is a character device, and a
// wrapped ErrDeviceNotFound or ErrNotCharDevice otherwise.
func CheckCharDevice(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, path)
	}
	if !IsCharDevice(path) {
		return fmt.Errorf("%w: %s", ErrNotCharDevice, path)
	}
	return nil
}
