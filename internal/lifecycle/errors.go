package lifecycle

import "errors"

var (
	// ErrUnknownBootAction is returned for a boot action other than
	// enable, disable or status.
	ErrUnknownBootAction = errors.New("lifecycle: unknown boot action")

	// ErrNoDriverWritten is returned when the generator reports success
	// but left no usable record behind.
	ErrNoDriverWritten = errors.New("lifecycle: generator wrote no driver")

	// ErrNoIdentity marks a configured device left out of the udev rules
	// because its identity could not be determined.
	ErrNoIdentity = errors.New("lifecycle: device has no udev identity")
)
