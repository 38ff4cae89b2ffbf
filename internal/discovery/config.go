package discovery

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// UnlimitedNegAnswers disables the negative answer limit.
const UnlimitedNegAnswers = -1

// Config holds the invoker's fixed settings.
type Config struct {
	// Binary is the path to the driver generator executable.
	Binary string

	// DriverDir is where the generator writes the driver record.
	DriverDir string

	// Exhaustive asks the generator to keep searching after the first
	// working pattern.
	Exhaustive bool
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("%w: binary is required", ErrInvalidRequest)
	}
	if err := validateSafePath(c.Binary, "binary"); err != nil {
		return err
	}
	if c.DriverDir == "" {
		return fmt.Errorf("%w: driver directory is required", ErrInvalidRequest)
	}
	return validateSafePath(c.DriverDir, "driver directory")
}

// Request describes one discovery run.
type Request struct {
	// Device is the by-path device to search on.
	Device string

	// Emitters is the number of emitters to activate. Must be at least 1.
	Emitters int

	// NegAnswerLimit is the number of negative answers before a pattern is
	// skipped. Must be positive or UnlimitedNegAnswers.
	NegAnswerLimit int

	// Manual lets the user confirm each candidate interactively.
	Manual bool

	// Verbose makes the generator print its progress.
	Verbose bool
}

// Validate checks the request fields that do not need the filesystem.
func (r Request) Validate() error {
	var errs []string

	if r.Device == "" {
		errs = append(errs, "device is required")
	} else if err := validateSafePath(r.Device, "device"); err != nil {
		errs = append(errs, err.Error())
	}
	if r.Emitters < 1 {
		errs = append(errs, fmt.Sprintf("emitters must be at least 1, got %d", r.Emitters))
	}
	if r.NegAnswerLimit == 0 || r.NegAnswerLimit < UnlimitedNegAnswers {
		errs = append(errs, fmt.Sprintf("negative answer limit must be positive or -1, got %d", r.NegAnswerLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(errs, "; "))
	}
	return nil
}

// BuildArgs returns the generator's positional arguments:
//
//	<device> <emitters> <limit> <driverDir> <verbose> <manual> <exhaustive>
//
// Booleans are passed as 0 or 1.
func BuildArgs(cfg Config, req Request) []string {
	return []string{
		req.Device,
		strconv.Itoa(req.Emitters),
		strconv.Itoa(req.NegAnswerLimit),
		cfg.DriverDir,
		boolArg(req.Verbose),
		boolArg(req.Manual),
		boolArg(cfg.Exhaustive),
	}
}

func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// safePathPattern allows the characters found in /dev/v4l/by-path names.
var safePathPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-/:.+]+$`)

func validateSafePath(value, fieldName string) error {
	if !safePathPattern.MatchString(value) {
		return fmt.Errorf("%w: %s contains invalid characters (allowed: alphanumeric, hyphen, underscore, slash, colon, dot, plus)", ErrInvalidRequest, fieldName)
	}
	for _, c := range []string{";", "|", "&", "$", "`", "(", ")", "{", "}", "<", ">", "!", "\\", "'", "\""} {
		if strings.Contains(value, c) {
			return fmt.Errorf("%w: %s contains forbidden character %q", ErrInvalidRequest, fieldName, c)
		}
	}
	return nil
}
