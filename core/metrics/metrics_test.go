package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics

	m.FrameCaptured()
	m.FrameSent()
	m.FrameDropped()
	m.SetCaptureRunning(SourceSystem, true)
	m.CaptureError("missing")
	m.SessionStarted("ok")
	m.SetSessionState("idle", "idle", "connected")
	m.MessageSent("session.update")
	m.EventReceived("response.done")
	m.ErrorEvent()
	m.TurnRecorded()
	m.TurnSkipped()
	m.PersistFailed()
}

func TestSetSessionStateKeepsSingleActiveState(t *testing.T) {
	m := New(prometheus.NewRegistry())

	states := []string{"idle", "initializing", "connected"}
	m.SetSessionState("initializing", states...)
	m.SetSessionState("connected", states...)

	if got := testutil.ToFloat64(m.SessionState.WithLabelValues("connected")); got != 1 {
		t.Fatalf("expected connected state gauge 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.SessionState.WithLabelValues("initializing")); got != 0 {
		t.Fatalf("expected initializing state gauge 0, got %v", got)
	}
}

func TestCountersIncrement(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.FrameSent()
	m.FrameSent()
	m.FrameDropped()
	m.MessageSent("input_audio_buffer.append")

	if got := testutil.ToFloat64(m.FramesSent); got != 2 {
		t.Fatalf("expected 2 frames sent, got %v", got)
	}
	if got := testutil.ToFloat64(m.FramesDropped); got != 1 {
		t.Fatalf("expected 1 frame dropped, got %v", got)
	}
	if got := testutil.ToFloat64(m.MessagesSent.WithLabelValues("input_audio_buffer.append")); got != 1 {
		t.Fatalf("expected 1 append message, got %v", got)
	}
}

func TestCaptureRunningIsTrackedPerSource(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetCaptureRunning(SourceSystem, true)
	m.SetCaptureRunning(SourceMicrophone, true)
	m.SetCaptureRunning(SourceSystem, false)

	if got := testutil.ToFloat64(m.CaptureRunning.WithLabelValues(SourceMicrophone)); got != 1 {
		t.Fatalf("expected microphone gauge to stay 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.CaptureRunning.WithLabelValues(SourceSystem)); got != 0 {
		t.Fatalf("expected system gauge 0, got %v", got)
	}
}
