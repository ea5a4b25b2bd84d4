package orchestration

import "errors"

// ErrMicrophoneUnavailable is returned by microphone commands when no input
// device was configured.
var ErrMicrophoneUnavailable = errors.New("microphone unavailable")
