// Package capture supervises the external process that dumps system audio
// to its standard output.
//
// The process writes interleaved 16-bit stereo PCM at 24kHz. The supervisor
// cuts it into fixed duration frames, keeps the left channel, encodes it as
// base64 and forwards it to the connected session. Frames produced while no
// session is connected are dropped.
package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/metrics"
	"go.opentelemetry.io/otel/codes"
)

// AudioSink is the view of the realtime connection the supervisor needs.
type AudioSink interface {
	IsConnected() bool
	AppendAudio(encoded string) error
}

type Supervisor struct {
	mu  sync.Mutex
	cmd *exec.Cmd

	sink    AudioSink
	options SupervisorOptions
}

func NewSupervisor(sink AudioSink, opts ...SupervisorOption) *Supervisor {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.ErrorCallback == nil {
		options.ErrorCallback = func(error) {}
	}

	return &Supervisor{sink: sink, options: options}
}

// Start spawns the capture process. Calling Start while a process is running
// is a no-op.
func (s *Supervisor) Start(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return nil
	}

	ctx, span := tracer.Start(ctx, "start audio capture")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to start audio capture")
		}
	}()

	if s.options.KillStaleProcesses {
		killStale(ctx, ProcessName)
	}

	binary, err := resolveBinary(s.options, runtime.GOARCH)
	if err != nil {
		s.options.Metrics.CaptureError("missing_binary")
		return err
	}

	// the process outlives ctx, it is ended by Stop
	cmd := exec.Command(binary, s.options.Args...)
	cmd.Env = append(os.Environ(),
		"PROCESS_NAME=AudioService",
		"APP_NAME=System Audio Service",
	)
	cmd.Env = append(cmd.Env, s.options.Env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: failed to open capture stdout: %w", ErrCaptureUnavailable, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: failed to open capture stderr: %w", ErrCaptureUnavailable, err)
	}

	if err := cmd.Start(); err != nil {
		if isArchitectureMismatch(err, runtime.GOOS) {
			s.options.Metrics.CaptureError("architecture_mismatch")
			return fmt.Errorf("%w: %s: %w", ErrArchitectureMismatch, binary, err)
		}
		s.options.Metrics.CaptureError("spawn")
		return fmt.Errorf("%w: failed to start %s: %w", ErrCaptureUnavailable, binary, err)
	}

	s.cmd = cmd
	s.options.Metrics.SetCaptureRunning(metrics.SourceSystem, true)
	logger.Info("audio capture started", "binary", binary, "pid", cmd.Process.Pid)

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		s.forwardAudio(stdout)
	}()
	go func() {
		defer readers.Done()
		logStderr(stderr)
	}()
	go s.wait(cmd, &readers)

	return nil
}

// Stop asks the capture process to terminate and returns without waiting for
// it to exit. Safe to call when nothing is running.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	cmd := s.cmd
	s.cmd = nil
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	s.options.Metrics.SetCaptureRunning(metrics.SourceSystem, false)

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to stop capture process: %w", err)
	}
	logger.Info("audio capture stopped", "pid", cmd.Process.Pid)
	return nil
}

func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

func (s *Supervisor) wait(cmd *exec.Cmd, readers *sync.WaitGroup) {
	// Wait closes the pipes, all reads have to finish first
	readers.Wait()
	err := cmd.Wait()

	s.mu.Lock()
	current := s.cmd == cmd
	if current {
		s.cmd = nil
	}
	s.mu.Unlock()

	if current {
		s.options.Metrics.SetCaptureRunning(metrics.SourceSystem, false)
	}

	switch {
	case err == nil:
		logger.Info("audio capture process exited", "pid", cmd.Process.Pid)
	case isArchitectureMismatch(err, runtime.GOOS):
		s.options.Metrics.CaptureError("architecture_mismatch")
		s.options.ErrorCallback(fmt.Errorf("%w: %w", ErrArchitectureMismatch, err))
	case !current:
		logger.Debug("stopped audio capture process exited", "pid", cmd.Process.Pid, "error", err)
	default:
		logger.Warn("audio capture process exited", "pid", cmd.Process.Pid, "error", err)
		s.options.Metrics.CaptureError("exit")
		s.options.ErrorCallback(fmt.Errorf("audio capture process exited: %w", err))
	}
}

func (s *Supervisor) forwardAudio(stdout io.Reader) {
	framer := audio.NewFramer(audio.CaptureEncodingInfo(), s.options.FrameDuration)
	buf := make([]byte, 32*1024)

	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			for _, frame := range framer.Write(buf[:n]) {
				s.forwardFrame(frame)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				logger.Warn("failed to read audio capture output", "error", err)
				s.options.Metrics.CaptureError("read")
				s.options.ErrorCallback(fmt.Errorf("failed to read audio capture output: %w", err))
			}
			return
		}
	}
}

func (s *Supervisor) forwardFrame(stereo []byte) {
	s.options.Metrics.FrameCaptured()
	if s.sink == nil || !s.sink.IsConnected() {
		s.options.Metrics.FrameDropped()
		return
	}

	encoded := audio.EncodeBase64(audio.DownmixStereoToMono(stereo))
	if err := s.sink.AppendAudio(encoded); err != nil {
		s.options.Metrics.FrameDropped()
		logger.Debug("failed to forward audio frame", "error", err)
		return
	}
	s.options.Metrics.FrameSent()
}

// logStderr logs the process diagnostics line by line. Once a line is too
// long to scan the rest is discarded unread, so the process never blocks on
// a full stderr pipe.
func logStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		logger.Warn("audio capture stderr", "line", scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("audio capture stderr no longer logged", "error", err)
		_, _ = io.Copy(io.Discard, stderr)
	}
}
