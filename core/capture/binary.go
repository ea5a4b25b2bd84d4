package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	ProcessName = "SystemAudioDump"

	staleKillTimeout = 2 * time.Second
)

// BinaryName returns the capture binary built for goarch.
func BinaryName(goarch string) string {
	if goarch == "amd64" {
		return ProcessName + "_x86"
	}
	return ProcessName
}

func resolveBinary(options SupervisorOptions, goarch string) (string, error) {
	path := options.BinaryPath
	if path == "" {
		path = filepath.Join(options.ResourcesDir, BinaryName(goarch))
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: capture binary %s: %w", ErrCaptureUnavailable, path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: capture binary %s is a directory", ErrCaptureUnavailable, path)
	}
	return path, nil
}

// killStale terminates capture processes left over from earlier runs. Not
// finding any is not an error.
func killStale(ctx context.Context, name string) {
	ctx, cancel := context.WithTimeout(ctx, staleKillTimeout)
	defer cancel()

	err := exec.CommandContext(ctx, "pkill", "-f", name).Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		logger.Info("terminated stale capture processes", "name", name)
	case errors.As(err, &exitErr) && exitErr.ExitCode() == 1:
		// no process matched
	default:
		logger.Debug("failed to terminate stale capture processes", "name", name, "error", err)
	}
}
