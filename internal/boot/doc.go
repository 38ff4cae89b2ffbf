// Package boot keeps activation drivers applied across reboots and
// hot-plug events.
//
// Registration has two parts:
//   - a udev rule file with one line per configured device, which runs
//     "linux-enable-ir-emitter run" whenever that device is added or changes
//   - a oneshot service enabled in the init system (systemd or OpenRC),
//     which covers boot and resume from sleep
//
// Enable rewrites the rule file from scratch on every call, so it never
// keeps lines for devices that were deleted. Enable and Disable attempt
// every step and report each outcome; the exit code is the number of
// failed steps.
package boot
