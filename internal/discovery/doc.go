// Package discovery invokes the external driver generator, which searches
// for the UVC control sequence that turns a camera's IR emitters on and
// writes the resulting driver record.
//
// The generator takes positional arguments and is interactive in manual
// mode, so it inherits the terminal and its output is never parsed. Exit
// status 0 means a pattern was found.
package discovery
