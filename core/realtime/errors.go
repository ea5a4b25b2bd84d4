package realtime

import "errors"

var (
	// ErrConnection is returned when the connection could not be opened or
	// was lost.
	ErrConnection = errors.New("realtime connection failed")
	// ErrNoActiveSession is returned by outbound operations when no session
	// is connected.
	ErrNoActiveSession = errors.New("no active realtime session")
	// ErrSessionAlreadyInitializing is returned when a session start is
	// already in flight.
	ErrSessionAlreadyInitializing = errors.New("realtime session is already initializing")
	ErrInvalidInput               = errors.New("invalid input")
)
