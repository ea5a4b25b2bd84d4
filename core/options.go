package orchestration

import (
	"context"

	"github.com/koscakluka/ema-realtime/core/capture"
	"github.com/koscakluka/ema-realtime/core/conversations"
	"github.com/koscakluka/ema-realtime/core/events"
	"github.com/koscakluka/ema-realtime/core/metrics"
	"github.com/koscakluka/ema-realtime/core/prompts"
	"github.com/koscakluka/ema-realtime/core/realtime"
)

type OrchestratorOption func(*Orchestrator)

// RealtimeSession is the connection the orchestrator drives.
// *realtime.Bridge implements it.
type RealtimeSession interface {
	Start(ctx context.Context, apiKey string, config realtime.SessionConfig) error
	AppendAudio(encoded string) error
	SendText(text string) error
	Close() error
	IsConnected() bool
	State() realtime.State
}

// RealtimeSessionFactory builds the session from the callbacks the
// orchestrator needs to receive.
type RealtimeSessionFactory func(opts ...realtime.BridgeOption) RealtimeSession

func newRealtimeBridge(opts ...realtime.BridgeOption) RealtimeSession {
	return realtime.NewBridge(opts...)
}

// CaptureSource is a system audio source. *capture.Supervisor implements it.
type CaptureSource interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
}

// Microphone is an input device delivering wire encoded audio in arbitrary
// chunk sizes.
type Microphone interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

func WithRealtimeSessionFactory(factory RealtimeSessionFactory) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sessionFactory = factory
	}
}

// WithRealtimeOptions passes options to the default realtime bridge. Event
// callbacks are always overridden by the orchestrator.
func WithRealtimeOptions(opts ...realtime.BridgeOption) OrchestratorOption {
	return func(o *Orchestrator) {
		o.realtimeOptions = append(o.realtimeOptions, opts...)
	}
}

func WithSessionConfig(config realtime.SessionConfig) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sessionConfig = config
	}
}

// WithLanguage sets the language the assistant is asked to respond in.
func WithLanguage(language string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.language = language
	}
}

func WithDefaultProfile(profile prompts.Profile) OrchestratorOption {
	return func(o *Orchestrator) {
		o.defaultProfile = profile
	}
}

func WithCaptureSource(source CaptureSource) OrchestratorOption {
	return func(o *Orchestrator) {
		o.capture = source
	}
}

// WithCaptureOptions passes options to the default capture supervisor.
func WithCaptureOptions(opts ...capture.SupervisorOption) OrchestratorOption {
	return func(o *Orchestrator) {
		o.captureOptions = append(o.captureOptions, opts...)
	}
}

func WithMicrophone(microphone Microphone) OrchestratorOption {
	return func(o *Orchestrator) {
		o.microphone = microphone
	}
}

func WithTurnSink(sink conversations.TurnSink) OrchestratorOption {
	return func(o *Orchestrator) {
		o.turnSink = sink
	}
}

func WithMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithObserver subscribes observer before any notification can be emitted.
func WithObserver(observer Observer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.initialObservers = append(o.initialObservers, observer)
	}
}

type notificationCallbacks struct {
	onStatus              func(status string)
	onSessionInitializing func(initializing bool)
	onResponseUpdate      func(text string, animate bool)
	onResponseComplete    func(complete bool)
	onTurnRecorded        func(turn events.ConversationTurnRecorded)
}

func (c notificationCallbacks) isEmpty() bool {
	return c.onStatus == nil &&
		c.onSessionInitializing == nil &&
		c.onResponseUpdate == nil &&
		c.onResponseComplete == nil &&
		c.onTurnRecorded == nil
}

// WithStatusCallback registers a callback for human readable status lines.
func WithStatusCallback(callback func(status string)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.callbacks.onStatus = callback
	}
}

// WithSessionInitializingCallback registers a callback called with true when
// a session start begins and with false once it finished, successfully or
// not.
func WithSessionInitializingCallback(callback func(initializing bool)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.callbacks.onSessionInitializing = callback
	}
}

// WithResponseUpdateCallback registers a callback for response text to
// display. The text is always the full response so far.
func WithResponseUpdateCallback(callback func(text string, animate bool)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.callbacks.onResponseUpdate = callback
	}
}

func WithResponseCompleteCallback(callback func(complete bool)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.callbacks.onResponseComplete = callback
	}
}

func WithTurnRecordedCallback(callback func(turn events.ConversationTurnRecorded)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.callbacks.onTurnRecorded = callback
	}
}
