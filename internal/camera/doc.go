// Package camera resolves V4L device paths to their persistent
// /dev/v4l/by-path names and reads their udev identity (USB interface
// KERNELS plus node index), which the boot rule matches on.
package camera
