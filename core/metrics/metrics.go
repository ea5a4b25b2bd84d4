// Package metrics holds the prometheus collectors shared by the capture
// supervisor, the realtime bridge and the conversation recorder.
//
// Every method is safe to call on a nil *Metrics, so components can run
// without instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ema"

// Capture sources reported by the capture_running gauge.
const (
	SourceSystem     = "system"
	SourceMicrophone = "microphone"
)

type Metrics struct {
	// Capture metrics
	FramesCaptured prometheus.Counter
	FramesSent     prometheus.Counter
	FramesDropped  prometheus.Counter
	CaptureRunning *prometheus.GaugeVec
	CaptureErrors  *prometheus.CounterVec

	// Realtime connection metrics
	SessionStarts  *prometheus.CounterVec
	SessionState   *prometheus.GaugeVec
	MessagesSent   *prometheus.CounterVec
	EventsReceived *prometheus.CounterVec
	ErrorEvents    prometheus.Counter

	// Conversation metrics
	TurnsRecorded   prometheus.Counter
	TurnsSkipped    prometheus.Counter
	PersistFailures prometheus.Counter
}

// New creates all collectors and registers them with reg. A nil reg uses the
// default prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		FramesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_captured_total",
			Help:      "Total number of audio frames cut from the capture stream",
		}),
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_sent_total",
			Help:      "Total number of audio frames forwarded to the realtime connection",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_dropped_total",
			Help:      "Total number of audio frames dropped because no session was connected",
		}),
		CaptureRunning: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capture_running",
			Help:      "Whether an audio capture source is currently running, by source",
		}, []string{"source"}),
		CaptureErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_errors_total",
			Help:      "Total number of capture failures by reason",
		}, []string{"reason"}),

		SessionStarts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_starts_total",
			Help:      "Total number of session start attempts by result",
		}, []string{"result"}),
		SessionState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "Current realtime session state, 1 for the active state",
		}, []string{"state"}),
		MessagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_messages_sent_total",
			Help:      "Total number of messages written to the realtime connection by type",
		}, []string{"type"}),
		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_received_total",
			Help:      "Total number of events received from the realtime connection by type",
		}, []string{"type"}),
		ErrorEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_error_events_total",
			Help:      "Total number of error events received from the realtime connection",
		}),

		TurnsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_turns_recorded_total",
			Help:      "Total number of conversation turns recorded",
		}),
		TurnsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_turns_skipped_total",
			Help:      "Total number of finalized responses that did not qualify as a turn",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_persist_failures_total",
			Help:      "Total number of turns the persistence collaborator failed to accept",
		}),
	}
}

func (m *Metrics) FrameCaptured() {
	if m != nil {
		m.FramesCaptured.Inc()
	}
}

func (m *Metrics) FrameSent() {
	if m != nil {
		m.FramesSent.Inc()
	}
}

func (m *Metrics) FrameDropped() {
	if m != nil {
		m.FramesDropped.Inc()
	}
}

func (m *Metrics) SetCaptureRunning(source string, running bool) {
	if m == nil {
		return
	}
	if running {
		m.CaptureRunning.WithLabelValues(source).Set(1)
	} else {
		m.CaptureRunning.WithLabelValues(source).Set(0)
	}
}

func (m *Metrics) CaptureError(reason string) {
	if m != nil {
		m.CaptureErrors.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) SessionStarted(result string) {
	if m != nil {
		m.SessionStarts.WithLabelValues(result).Inc()
	}
}

// SetSessionState marks state as the only active state.
func (m *Metrics) SetSessionState(state string, allStates ...string) {
	if m == nil {
		return
	}
	for _, s := range allStates {
		m.SessionState.WithLabelValues(s).Set(0)
	}
	m.SessionState.WithLabelValues(state).Set(1)
}

func (m *Metrics) MessageSent(messageType string) {
	if m != nil {
		m.MessagesSent.WithLabelValues(messageType).Inc()
	}
}

func (m *Metrics) EventReceived(eventType string) {
	if m != nil {
		m.EventsReceived.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) ErrorEvent() {
	if m != nil {
		m.ErrorEvents.Inc()
	}
}

func (m *Metrics) TurnRecorded() {
	if m != nil {
		m.TurnsRecorded.Inc()
	}
}

func (m *Metrics) TurnSkipped() {
	if m != nil {
		m.TurnsSkipped.Inc()
	}
}

func (m *Metrics) PersistFailed() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}
