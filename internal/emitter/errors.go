package emitter

import "errors"

var (
	// ErrNoDriverConfigured is returned when a device has no successful
	// driver record. The device is not opened.
	ErrNoDriverConfigured = errors.New("emitter: no driver configured for device")

	// ErrApplyFailed is returned when the device rejects an instruction.
	ErrApplyFailed = errors.New("emitter: applying driver failed")

	// ErrUnsupported is returned on platforms without UVC ioctls.
	ErrUnsupported = errors.New("emitter: UVC controls are not supported on this platform")
)
