package capture

import (
	"time"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/metrics"
)

type SupervisorOptions struct {
	ResourcesDir string

	// BinaryPath overrides the architecture based binary lookup.
	BinaryPath string
	Args       []string
	Env        []string

	FrameDuration      time.Duration
	KillStaleProcesses bool
	Metrics            *metrics.Metrics
	ErrorCallback      func(err error)
}

type SupervisorOption func(*SupervisorOptions)

func WithResourcesDir(dir string) SupervisorOption {
	return func(o *SupervisorOptions) {
		o.ResourcesDir = dir
	}
}

func WithBinaryPath(path string) SupervisorOption {
	return func(o *SupervisorOptions) {
		o.BinaryPath = path
	}
}

// WithArgs sets the arguments passed to the capture binary.
func WithArgs(args ...string) SupervisorOption {
	return func(o *SupervisorOptions) {
		o.Args = args
	}
}

// WithEnv adds environment variables on top of the inherited environment.
func WithEnv(env ...string) SupervisorOption {
	return func(o *SupervisorOptions) {
		o.Env = append(o.Env, env...)
	}
}

func WithFrameDuration(d time.Duration) SupervisorOption {
	return func(o *SupervisorOptions) {
		o.FrameDuration = d
	}
}

func WithStaleProcessCleanup(enabled bool) SupervisorOption {
	return func(o *SupervisorOptions) {
		o.KillStaleProcesses = enabled
	}
}

func WithMetrics(m *metrics.Metrics) SupervisorOption {
	return func(o *SupervisorOptions) {
		o.Metrics = m
	}
}

// OnError registers a callback for capture failures that happen after Start
// returned.
func OnError(callback func(err error)) SupervisorOption {
	return func(o *SupervisorOptions) {
		o.ErrorCallback = callback
	}
}

func defaultOptions() SupervisorOptions {
	return SupervisorOptions{
		ResourcesDir:       ".",
		FrameDuration:      audio.DefaultFrameDuration,
		KillStaleProcesses: true,
		ErrorCallback:      func(error) {},
	}
}
