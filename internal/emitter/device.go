package emitter

// Device is an open camera that accepts UVC extension-unit controls.
type Device interface {
	// SetControl sends a SET_CUR query for selector of extension unit.
	SetControl(unit, selector uint8, control []byte) error
	Close() error
}

// Opener opens the device at path for writing controls.
type Opener func(path string) (Device, error)
