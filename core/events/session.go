package events

const (
	// KindSessionStatus identifies a human readable status line.
	KindSessionStatus Kind = "session.status"
	// KindSessionInitializing identifies changes of the in-flight session
	// start flag.
	KindSessionInitializing Kind = "session.initializing"
)

// SessionStatus carries a human readable status line such as
// "Listening..." or "Error: ...".
type SessionStatus struct {
	Base
	Text string
}

// NewSessionStatus creates a session status event.
func NewSessionStatus(text string) SessionStatus {
	return SessionStatus{Base: NewBase(KindSessionStatus), Text: text}
}

// SessionInitializing reports whether a session start is in flight.
type SessionInitializing struct {
	Base
	Initializing bool
}

// NewSessionInitializing creates a session initializing event.
func NewSessionInitializing(initializing bool) SessionInitializing {
	return SessionInitializing{Base: NewBase(KindSessionInitializing), Initializing: initializing}
}
