package capture

import (
	"errors"
	"syscall"
)

var (
	// ErrCaptureUnavailable is returned when the capture binary is missing or
	// cannot be spawned.
	ErrCaptureUnavailable = errors.New("system audio capture unavailable")
	// ErrArchitectureMismatch is returned when the capture binary was built
	// for a different CPU architecture.
	ErrArchitectureMismatch = errors.New("capture binary architecture mismatch")
)

// errnoBadArch is EBADARCH on darwin.
const errnoBadArch = syscall.Errno(86)

func isArchitectureMismatch(err error, goos string) bool {
	if errors.Is(err, syscall.ENOEXEC) {
		return true
	}
	var errno syscall.Errno
	return goos == "darwin" && errors.As(err, &errno) && errno == errnoBadArch
}
