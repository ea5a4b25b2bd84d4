package realtime

type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateConnected    State = "connected"
	StateClosing      State = "closing"
	StateClosed       State = "closed"
)

var allStates = []string{
	string(StateIdle),
	string(StateInitializing),
	string(StateConnected),
	string(StateClosing),
	string(StateClosed),
}

func (s State) String() string { return string(s) }

// CanStart reports whether a new session may be started from s.
func (s State) CanStart() bool {
	return s != StateInitializing
}
