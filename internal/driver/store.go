package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/ir-emitter/internal/camera"
	"github.com/nerrad567/ir-emitter/internal/fileutil"
)

const (
	// recordSuffix is appended to the device basename to name its file.
	recordSuffix = ".driver.yaml"

	// lockName is the advisory lock file inside the store directory.
	lockName = ".lock"

	recordPermissions = 0o644
)

// Logger defines the logging interface for the store.
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

// Store is the on-disk directory of driver records, one YAML file per
// device. The external driver generator writes records in the same format.
type Store struct {
	dir    string
	logger Logger
}

// NewStore creates a store rooted at dir. The directory is created lazily
// on the first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir, logger: noopLogger{}}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the record file for device.
func (s *Store) Path(device string) string {
	return filepath.Join(s.dir, filepath.Base(device)+recordSuffix)
}

// Load returns the successful record for device, or ErrNotFound.
func (s *Store) Load(device string) (Record, error) {
	rec, err := s.read(s.Path(device))
	if err != nil {
		return Record{}, err
	}
	if !rec.Success {
		return Record{}, fmt.Errorf("%w: %s (last search failed)", ErrNotFound, device)
	}
	return rec, nil
}

// Exists reports whether a successful record exists for device.
func (s *Store) Exists(device string) bool {
	_, err := s.Load(device)
	return err == nil
}

// List returns every successful record, sorted by device. Unreadable files
// are logged and skipped so one corrupt record does not hide the others.
func (s *Store) List() ([]Record, error) {
	paths, err := s.recordFiles()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(paths))
	for _, p := range paths {
		rec, err := s.read(p)
		if err != nil {
			s.logger.Warn("skipping unreadable driver record", "path", p, "error", err)
			continue
		}
		if !rec.Success {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Device < records[j].Device
	})
	return records, nil
}

// Save validates rec and writes it atomically, replacing any previous
// record for the same device.
func (s *Store) Save(rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding driver record: %w", err)
	}

	path := s.Path(rec.Device)
	if err := fileutil.WriteAtomic(path, data, recordPermissions); err != nil {
		return fmt.Errorf("saving driver record: %w", err)
	}

	s.logger.Debug("driver record saved", "device", rec.Device, "path", path)
	return nil
}

// SetIdentity records the udev identity of device on its record.
func (s *Store) SetIdentity(device string, id camera.Identity) error {
	rec, err := s.Load(device)
	if err != nil {
		return err
	}
	rec.Identity = &id
	return s.Save(rec)
}

// Delete removes the record of device, or returns ErrNotFound.
func (s *Store) Delete(device string) error {
	path := s.Path(device)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, device)
		}
		return fmt.Errorf("deleting driver record: %w", err)
	}

	s.logger.Debug("driver record deleted", "device", device, "path", path)
	return nil
}

// DeleteAll removes every record file, including failed ones, and returns
// how many were removed.
func (s *Store) DeleteAll() (int, error) {
	paths, err := s.recordFiles()
	if err != nil {
		return 0, err
	}

	var errs []error
	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if err := errors.Join(errs...); err != nil {
		return removed, fmt.Errorf("deleting driver records: %w", err)
	}
	return removed, nil
}

// Lock takes the store's advisory lock. Mutating operations hold it for
// their whole duration; a second invocation gets ErrBusy instead of racing.
func (s *Store) Lock() (*fileutil.Lock, error) {
	lock, err := fileutil.TryLock(filepath.Join(s.dir, lockName))
	if errors.Is(err, fileutil.ErrLocked) {
		return nil, ErrBusy
	}
	return lock, err
}

// Snapshot returns the raw bytes of every record file keyed by file name.
// Callers use it to check that a failed operation left the store untouched.
func (s *Store) Snapshot() (map[string][]byte, error) {
	paths, err := s.recordFiles()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		out[filepath.Base(p)] = data
	}
	return out, nil
}

func (s *Store) read(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSuffix(filepath.Base(path), recordSuffix))
		}
		return Record{}, fmt.Errorf("reading driver record: %w", err)
	}

	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: parsing %s: %v", ErrInvalidRecord, path, err)
	}
	if err := rec.Validate(); err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	return rec.clone(), nil
}

func (s *Store) recordFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading driver directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recordSuffix) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
