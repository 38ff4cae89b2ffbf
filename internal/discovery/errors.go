package discovery

import "errors"

var (
	// ErrDiscoveryFailed is returned when the generator exits non-zero.
	ErrDiscoveryFailed = errors.New("discovery: no working activation pattern found")

	// ErrInvalidRequest is returned before spawning when a request is malformed.
	ErrInvalidRequest = errors.New("discovery: invalid request")
)
