package realtime

import (
	"encoding/json"
	"log/slog"
)

type eventHandler func(event ServerEvent)

// dispatchTable maps every handled inbound event type to its handler. Types
// missing from the table are ignored.
func (b *Bridge) dispatchTable() map[string]eventHandler {
	o := &b.options

	onDelta := func(event ServerEvent) {
		if event.Delta != "" {
			o.ResponseDeltaCallback(event.Delta)
		}
	}
	onTextDone := func(event ServerEvent) {
		o.ResponseTextDoneCallback(event.Text)
	}
	onSessionEvent := func(event ServerEvent) {
		logger.Info("realtime session event", "type", event.Type)
	}

	return map[string]eventHandler{
		TypeSessionCreated: onSessionEvent,
		TypeSessionUpdated: onSessionEvent,

		TypeSpeechStarted: func(ServerEvent) {
			o.SpeechStartedCallback()
		},
		TypeSpeechStopped: func(ServerEvent) {
			o.SpeechStoppedCallback()
		},
		TypeInputTranscriptionCompleted: func(event ServerEvent) {
			o.TranscriptionCallback(event.Transcript)
		},
		TypeInputTranscriptionFailed: func(event ServerEvent) {
			logger.Warn("input audio transcription failed", "error", event.ErrorMessage())
		},

		TypeResponseCreated: func(ServerEvent) {
			o.ResponseStartedCallback()
		},
		TypeResponseOutputTextDelta: onDelta,
		TypeResponseTextDelta:       onDelta,
		TypeResponseOutputTextDone:  onTextDone,
		TypeResponseTextDone:        onTextDone,
		TypeResponseDone: func(event ServerEvent) {
			o.ResponseDoneCallback(event.Response.OutputText())
		},

		TypeError: func(event ServerEvent) {
			o.Metrics.ErrorEvent()
			attrs := []any{"message", event.ErrorMessage()}
			if event.Error != nil {
				attrs = append(attrs, slog.String("type", event.Error.Type), slog.String("code", event.Error.Code))
			}
			logger.Error("realtime error event", attrs...)
			o.ErrorEventCallback(event.ErrorMessage())
		},
	}
}

func (b *Bridge) dispatch(msg []byte) {
	var event ServerEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		logger.Warn("failed to unmarshal realtime event", "error", err)
		return
	}

	handler, ok := b.handlers[event.Type]
	if !ok {
		b.options.Metrics.EventReceived("unhandled")
		logger.Debug("ignoring realtime event", "type", event.Type)
		return
	}
	b.options.Metrics.EventReceived(event.Type)
	handler(event)
}
