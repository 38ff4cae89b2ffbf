// Package driver is the persistence store for activation drivers.
//
// Each configured device has one YAML record in the driver directory,
// named after the device's by-path basename:
//
//	/etc/linux-enable-ir-emitter/drivers/
//	    pci-0000:00:14.0-usb-0:2:1.0-video-index0.driver.yaml
//	    .lock
//
// Records are written by the external driver generator after a successful
// search, annotated with the device identity by configure, replaced
// atomically, and removed by delete. A record whose success flag is false
// is treated as absent everywhere.
package driver
