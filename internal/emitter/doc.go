// Package emitter applies stored activation drivers to cameras.
//
// A driver is a list of UVC extension-unit SET_CUR queries. On Linux they
// are sent with the UVCIOC_CTRL_QUERY ioctl of the uvcvideo driver; other
// platforms return ErrUnsupported.
package emitter
