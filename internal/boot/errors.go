package boot

import (
	"errors"
	"fmt"
)

var (
	// ErrRuleIO is returned when the udev rule file cannot be written or removed.
	ErrRuleIO = errors.New("boot: udev rule file error")

	// ErrServiceMissing is returned by Disable when there is no rule file.
	ErrServiceMissing = fmt.Errorf("%w: boot service does not exist", ErrRuleIO)

	// ErrUdev is returned when udevadm reload or trigger fails.
	ErrUdev = errors.New("boot: udevadm failed")

	// ErrBackend is returned when the init system rejects an operation.
	ErrBackend = errors.New("boot: service backend error")

	// ErrNoBackend is returned when no supported init system was found.
	ErrNoBackend = fmt.Errorf("%w: no supported init system (systemd or openrc) found", ErrBackend)

	// ErrInvalidConfig is returned by NewManager for unusable settings.
	ErrInvalidConfig = errors.New("boot: invalid configuration")
)
