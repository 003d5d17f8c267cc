package session

import "errors"

// Session package errors.
var (
	// ErrInvalidSessionID is returned when registering a session whose id is
	// the reserved invalid value 0.
	ErrInvalidSessionID = errors.New("session: invalid session id")

	// ErrDuplicateSession is returned when adding a session whose id is
	// already registered.
	ErrDuplicateSession = errors.New("session: duplicate session id")

	// ErrRegistryFull is returned when the registry is at capacity.
	ErrRegistryFull = errors.New("session: registry full")
)
