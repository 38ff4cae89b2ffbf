// Package cli implements the linux-enable-ir-emitter command line.
//
// Commands parse flags, check privileges, load configuration and hand the
// work to the lifecycle service. Every command maps its outcome to a process
// exit code: 0 on success, 2 for usage and configuration errors, and the
// operation's own code otherwise (boot reports the number of failed steps).
//
// Process-level collaborators live in Deps so tests can run every command
// without root, udev or a camera.
package cli
