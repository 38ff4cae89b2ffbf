//go:build !linux

package emitter

// OpenUVC always fails outside Linux.
func OpenUVC(path string) (Device, error) {
	return nil, ErrUnsupported
}
