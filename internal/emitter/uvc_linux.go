//go:build linux

package emitter

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	// uvcSetCur is UVC_SET_CUR from linux/usb/video.h.
	uvcSetCur = 0x01

	// uvcIOCCtrlQuery is UVCIOC_CTRL_QUERY: _IOWR('u', 0x21, struct uvc_xu_control_query).
	// The size field follows the pointer width (16 bytes on 64-bit).
	uvcIOCCtrlQuery = 0xC0007521 | uintptr(unsafe.Sizeof(uvcXuControlQuery{}))<<16
)

// uvcXuControlQuery mirrors struct uvc_xu_control_query from
// linux/uvcvideo.h.
type uvcXuControlQuery struct {
	unit     uint8
	selector uint8
	query    uint8
	_        uint8
	size     uint16
	_        [2]byte
	data     unsafe.Pointer
}

// uvcDevice is a V4L node opened write-only.
type uvcDevice struct {
	path string
	fd   int
}

// OpenUVC opens path for UVC extension-unit queries.
func OpenUVC(path string) (Device, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &uvcDevice{path: path, fd: fd}, nil
}

func (d *uvcDevice) SetControl(unit, selector uint8, control []byte) error {
	if len(control) == 0 {
		return fmt.Errorf("empty control for unit %d selector %d", unit, selector)
	}

	q := uvcXuControlQuery{
		unit:     unit,
		selector: selector,
		query:    uvcSetCur,
		size:     uint16(len(control)),
		data:     unsafe.Pointer(&control[0]),
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uvcIOCCtrlQuery, uintptr(unsafe.Pointer(&q)))
	runtime.KeepAlive(control)
	if errno != 0 {
		return fmt.Errorf("UVCIOC_CTRL_QUERY on %s unit %d selector %d: %w", d.path, unit, selector, errno)
	}
	return nil
}

func (d *uvcDevice) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
