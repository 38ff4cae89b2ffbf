package driver

import "errors"

var (
	// ErrNotFound is returned when no successful record exists for a device.
	ErrNotFound = errors.New("driver: not found")

	// ErrInvalidRecord is returned when a record fails validation.
	ErrInvalidRecord = errors.New("driver: invalid record")

	// ErrBusy is returned when another invocation holds the store lock.
	ErrBusy = errors.New("driver: another linux-enable-ir-emitter operation is in progress")
)
