package realtime

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-realtime/core/metrics"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteWait        = 10 * time.Second
	maxMessageSize          = 16 * 1024 * 1024
)

type BridgeOptions struct {
	Endpoint         string
	Dialer           *websocket.Dialer
	HandshakeTimeout time.Duration
	WriteWait        time.Duration
	Metrics          *metrics.Metrics

	SpeechStartedCallback    func()
	SpeechStoppedCallback    func()
	TranscriptionCallback    func(transcript string)
	ResponseStartedCallback  func()
	ResponseDeltaCallback    func(delta string)
	ResponseTextDoneCallback func(text string)

	// ResponseDoneCallback receives the text extracted from the structured
	// response output, empty when the output carried no text.
	ResponseDoneCallback func(outputText string)
	ErrorEventCallback   func(message string)
	StateChangeCallback  func(from, to State)

	// ClosedCallback is called once per connection after it is gone. err is
	// nil for explicit or normal closures and wraps ErrConnection otherwise.
	ClosedCallback func(err error)
}

type BridgeOption func(*BridgeOptions)

func WithEndpoint(endpoint string) BridgeOption {
	return func(o *BridgeOptions) {
		o.Endpoint = endpoint
	}
}

func WithDialer(dialer *websocket.Dialer) BridgeOption {
	return func(o *BridgeOptions) {
		o.Dialer = dialer
	}
}

func WithHandshakeTimeout(timeout time.Duration) BridgeOption {
	return func(o *BridgeOptions) {
		o.HandshakeTimeout = timeout
	}
}

func WithWriteWait(wait time.Duration) BridgeOption {
	return func(o *BridgeOptions) {
		o.WriteWait = wait
	}
}

func WithMetrics(m *metrics.Metrics) BridgeOption {
	return func(o *BridgeOptions) {
		o.Metrics = m
	}
}

func WithSpeechStartedCallback(callback func()) BridgeOption {
	return func(o *BridgeOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechStoppedCallback(callback func()) BridgeOption {
	return func(o *BridgeOptions) {
		o.SpeechStoppedCallback = callback
	}
}

func WithTranscriptionCallback(callback func(transcript string)) BridgeOption {
	return func(o *BridgeOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithResponseStartedCallback(callback func()) BridgeOption {
	return func(o *BridgeOptions) {
		o.ResponseStartedCallback = callback
	}
}

func WithResponseDeltaCallback(callback func(delta string)) BridgeOption {
	return func(o *BridgeOptions) {
		o.ResponseDeltaCallback = callback
	}
}

func WithResponseTextDoneCallback(callback func(text string)) BridgeOption {
	return func(o *BridgeOptions) {
		o.ResponseTextDoneCallback = callback
	}
}

func WithResponseDoneCallback(callback func(outputText string)) BridgeOption {
	return func(o *BridgeOptions) {
		o.ResponseDoneCallback = callback
	}
}

func WithErrorEventCallback(callback func(message string)) BridgeOption {
	return func(o *BridgeOptions) {
		o.ErrorEventCallback = callback
	}
}

func WithStateChangeCallback(callback func(from, to State)) BridgeOption {
	return func(o *BridgeOptions) {
		o.StateChangeCallback = callback
	}
}

func WithClosedCallback(callback func(err error)) BridgeOption {
	return func(o *BridgeOptions) {
		o.ClosedCallback = callback
	}
}

func (o *BridgeOptions) fillDefaults() {
	if o.Endpoint == "" {
		o.Endpoint = DefaultEndpoint
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = defaultHandshakeTimeout
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.Dialer == nil {
		o.Dialer = &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: o.HandshakeTimeout,
		}
	}

	if o.SpeechStartedCallback == nil {
		o.SpeechStartedCallback = func() {}
	}
	if o.SpeechStoppedCallback == nil {
		o.SpeechStoppedCallback = func() {}
	}
	if o.TranscriptionCallback == nil {
		o.TranscriptionCallback = func(string) {}
	}
	if o.ResponseStartedCallback == nil {
		o.ResponseStartedCallback = func() {}
	}
	if o.ResponseDeltaCallback == nil {
		o.ResponseDeltaCallback = func(string) {}
	}
	if o.ResponseTextDoneCallback == nil {
		o.ResponseTextDoneCallback = func(string) {}
	}
	if o.ResponseDoneCallback == nil {
		o.ResponseDoneCallback = func(string) {}
	}
	if o.ErrorEventCallback == nil {
		o.ErrorEventCallback = func(string) {}
	}
	if o.StateChangeCallback == nil {
		o.StateChangeCallback = func(State, State) {}
	}
	if o.ClosedCallback == nil {
		o.ClosedCallback = func(error) {}
	}
}
