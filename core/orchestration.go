package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/capture"
	"github.com/koscakluka/ema-realtime/core/conversations"
	"github.com/koscakluka/ema-realtime/core/events"
	"github.com/koscakluka/ema-realtime/core/metrics"
	"github.com/koscakluka/ema-realtime/core/prompts"
	"github.com/koscakluka/ema-realtime/core/realtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	statusConnected = "OpenAI session connected"
	statusClosed    = "OpenAI session closed"
)

// Orchestrator is the single owner of the realtime session, the audio
// sources and the conversation log. Presentation layers drive it through its
// command methods and observe it through Subscribe.
type Orchestrator struct {
	session    RealtimeSession
	capture    CaptureSource
	microphone Microphone
	recorder   *conversations.Recorder
	assembler  *responseAssembler
	relay      relay

	// starting guards session start, only one may be in flight
	starting atomic.Bool

	microphoneMu      sync.Mutex
	microphoneRunning bool

	sessionConfig  realtime.SessionConfig
	language       string
	defaultProfile prompts.Profile

	sessionFactory   RealtimeSessionFactory
	realtimeOptions  []realtime.BridgeOption
	captureOptions   []capture.SupervisorOption
	turnSink         conversations.TurnSink
	metrics          *metrics.Metrics
	callbacks        notificationCallbacks
	initialObservers []Observer

	closeOnce   sync.Once
	baseContext context.Context
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		sessionConfig:  realtime.DefaultSessionConfig(),
		defaultProfile: prompts.DefaultProfile,
		sessionFactory: newRealtimeBridge,
		baseContext:    context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if !o.callbacks.isEmpty() {
		o.relay.subscribe(newCallbackObserver(o.callbacks))
	}
	for _, observer := range o.initialObservers {
		o.relay.subscribe(observer)
	}

	o.recorder = conversations.NewRecorder(
		conversations.WithSink(o.turnSink),
		conversations.WithMetrics(o.metrics),
	)
	o.assembler = newResponseAssembler(o.recorder, o.relay.emit)

	bridgeOptions := append([]realtime.BridgeOption{realtime.WithMetrics(o.metrics)}, o.realtimeOptions...)
	bridgeOptions = append(bridgeOptions,
		realtime.WithSpeechStartedCallback(o.assembler.onSpeechStarted),
		realtime.WithSpeechStoppedCallback(o.assembler.onSpeechStopped),
		realtime.WithTranscriptionCallback(o.assembler.onTranscription),
		realtime.WithResponseStartedCallback(o.assembler.onResponseStarted),
		realtime.WithResponseDeltaCallback(o.assembler.onResponseDelta),
		realtime.WithResponseTextDoneCallback(o.assembler.onResponseTextDone),
		realtime.WithResponseDoneCallback(func(outputText string) {
			o.assembler.finalize(o.baseContext, outputText)
		}),
		realtime.WithErrorEventCallback(o.assembler.onErrorEvent),
		realtime.WithClosedCallback(o.onSessionClosed),
	)
	o.session = o.sessionFactory(bridgeOptions...)

	if o.capture == nil {
		captureOptions := append([]capture.SupervisorOption{capture.WithMetrics(o.metrics)}, o.captureOptions...)
		captureOptions = append(captureOptions, capture.OnError(o.onCaptureError))
		o.capture = capture.NewSupervisor(o.session, captureOptions...)
	}

	return o
}

// Subscribe registers observer for every notification. The returned function
// removes it again.
func (o *Orchestrator) Subscribe(observer Observer) (unsubscribe func()) {
	return o.relay.subscribe(observer)
}

// StartSession opens a new realtime session configured with the system
// prompt for profile and the user's custom instructions. It starts a new
// logical conversation. A start while another one is in flight is rejected
// with realtime.ErrSessionAlreadyInitializing.
func (o *Orchestrator) StartSession(ctx context.Context, apiKey, customInstructions, profile string) (err error) {
	ctx, span := tracer.Start(ctx, "start session", trace.WithAttributes(attribute.String("profile", profile)))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to start session")
		}
	}()

	if strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("%w: api key is required", realtime.ErrInvalidInput)
	}
	if !o.starting.CompareAndSwap(false, true) {
		return realtime.ErrSessionAlreadyInitializing
	}
	defer o.starting.Store(false)

	o.relay.emit(events.NewSessionInitializing(true))
	defer o.relay.emit(events.NewSessionInitializing(false))

	sessionID := o.recorder.Reset()
	o.assembler.discard()

	selectedProfile, parseErr := prompts.ParseProfile(profile)
	if parseErr != nil {
		logger.Warn("unknown profile, using default", "profile", profile, "default", o.defaultProfile)
		selectedProfile = o.defaultProfile
	} else if strings.TrimSpace(profile) == "" {
		selectedProfile = o.defaultProfile
	}

	config := o.sessionConfig
	config.Instructions = prompts.SystemPrompt(selectedProfile, customInstructions, o.language)

	if err := o.session.Start(ctx, apiKey, config); err != nil {
		o.relay.emit(events.NewSessionStatus("Error: " + err.Error()))
		return fmt.Errorf("failed to start session: %w", err)
	}

	logger.Info("session started", "sessionId", sessionID, "profile", selectedProfile)
	o.relay.emit(events.NewSessionStatus(statusConnected))
	return nil
}

// SendTextMessage sends a typed user message and requests a response.
func (o *Orchestrator) SendTextMessage(text string) error {
	if err := o.session.SendText(text); err != nil {
		return fmt.Errorf("failed to send text message: %w", err)
	}
	return nil
}

// SendAudioFrame forwards one frame of 24kHz mono 16-bit PCM.
func (o *Orchestrator) SendAudioFrame(frame []byte) error {
	if !o.session.IsConnected() {
		return realtime.ErrNoActiveSession
	}
	if len(frame) == 0 {
		return fmt.Errorf("%w: audio frame is empty", realtime.ErrInvalidInput)
	}
	return o.session.AppendAudio(audio.EncodeBase64(frame))
}

// StartCapture starts system audio capture. Failures are also reported as a
// status notification.
func (o *Orchestrator) StartCapture(ctx context.Context) error {
	if err := o.capture.Start(ctx); err != nil {
		o.relay.emit(events.NewSessionStatus("Error: " + err.Error()))
		return fmt.Errorf("failed to start audio capture: %w", err)
	}
	return nil
}

// StopCapture stops system audio capture. It is a no-op when capture is not
// running.
func (o *Orchestrator) StopCapture() error {
	if err := o.capture.Stop(); err != nil {
		return fmt.Errorf("failed to stop audio capture: %w", err)
	}
	return nil
}

func (o *Orchestrator) IsCapturing() bool { return o.capture.IsRunning() }

// StartMicrophone streams the configured input device to the session in
// frames of the wire frame duration.
func (o *Orchestrator) StartMicrophone(ctx context.Context) error {
	if o.microphone == nil {
		return ErrMicrophoneUnavailable
	}

	o.microphoneMu.Lock()
	defer o.microphoneMu.Unlock()
	if o.microphoneRunning {
		return nil
	}

	framer := audio.NewFramer(audio.WireEncodingInfo(), audio.DefaultFrameDuration)
	err := o.microphone.StartCapture(ctx, func(chunk []byte) {
		for _, frame := range framer.Write(chunk) {
			o.metrics.FrameCaptured()
			if err := o.SendAudioFrame(frame); err != nil {
				o.metrics.FrameDropped()
				continue
			}
			o.metrics.FrameSent()
		}
	})
	if err != nil {
		o.relay.emit(events.NewSessionStatus("Error: " + err.Error()))
		return fmt.Errorf("failed to start microphone: %w", err)
	}

	o.microphoneRunning = true
	o.metrics.SetCaptureRunning(metrics.SourceMicrophone, true)
	return nil
}

func (o *Orchestrator) StopMicrophone() error {
	if o.microphone == nil {
		return nil
	}

	o.microphoneMu.Lock()
	defer o.microphoneMu.Unlock()
	if !o.microphoneRunning {
		return nil
	}

	if err := o.microphone.StopCapture(); err != nil {
		return fmt.Errorf("failed to stop microphone: %w", err)
	}
	o.microphoneRunning = false
	o.metrics.SetCaptureRunning(metrics.SourceMicrophone, false)
	return nil
}

// CloseSession stops the audio sources, drops any partial response and closes
// the realtime session. Safe to call in any state.
func (o *Orchestrator) CloseSession() error {
	_, span := tracer.Start(o.baseContext, "close session")
	defer span.End()

	var errs []error
	if err := o.StopCapture(); err != nil {
		errs = append(errs, err)
	}
	if err := o.StopMicrophone(); err != nil {
		errs = append(errs, err)
	}
	o.assembler.discard()
	if err := o.session.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close realtime session: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to close session")
		return err
	}
	return nil
}

// CurrentSession returns a copy of the current conversation.
func (o *Orchestrator) CurrentSession() conversations.Snapshot {
	return o.recorder.Snapshot()
}

// StartNewSession begins a new logical conversation without touching the
// connection and returns its id.
func (o *Orchestrator) StartNewSession() string {
	return o.recorder.Reset()
}

func (o *Orchestrator) SessionState() realtime.State { return o.session.State() }
func (o *Orchestrator) IsConnected() bool            { return o.session.IsConnected() }

func (o *Orchestrator) Close() error {
	var err error
	o.closeOnce.Do(func() {
		err = o.CloseSession()
		if closer, ok := o.microphone.(interface{ Close() }); ok {
			closer.Close()
		}
		o.recorder.Close()
	})
	return err
}

func (o *Orchestrator) onSessionClosed(err error) {
	o.assembler.discard()
	if err != nil {
		o.relay.emit(events.NewSessionStatus("Error: " + err.Error()))
	}
	o.relay.emit(events.NewSessionStatus(statusClosed))
}

func (o *Orchestrator) onCaptureError(err error) {
	logger.Error("audio capture failed", "error", err)
	o.relay.emit(events.NewSessionStatus("Error: " + err.Error()))
}
