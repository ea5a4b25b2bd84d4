package orchestration

import (
	"context"
	"strings"
	"sync"

	"github.com/koscakluka/ema-realtime/core/conversations"
	"github.com/koscakluka/ema-realtime/core/events"
)

const statusListening = "Listening..."

// responseAssembler turns the stream of realtime events into complete
// responses and conversation turns.
type responseAssembler struct {
	mu                   sync.Mutex
	pendingTranscription string
	pendingResponseText  string

	recorder *conversations.Recorder
	emit     eventEmitter
}

func newResponseAssembler(recorder *conversations.Recorder, emit eventEmitter) *responseAssembler {
	if emit == nil {
		emit = noopEventEmitter
	}
	return &responseAssembler{recorder: recorder, emit: emit}
}

func (a *responseAssembler) onSpeechStarted() {
	logger.Debug("speech started")
	a.emit(events.NewUserSpeechStarted())
}

func (a *responseAssembler) onSpeechStopped() {
	logger.Debug("speech stopped")
	a.emit(events.NewUserSpeechEnded())
}

func (a *responseAssembler) onTranscription(transcript string) {
	if transcript == "" {
		return
	}

	a.mu.Lock()
	a.pendingTranscription += transcript + " "
	a.mu.Unlock()

	logger.Debug("transcription completed", "transcript", transcript)
	a.emit(events.NewUserTranscriptSegment(transcript))
}

func (a *responseAssembler) onResponseStarted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pendingResponseText = ""
}

func (a *responseAssembler) onResponseDelta(delta string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pendingResponseText += delta
}

// onResponseTextDone surfaces the text accumulated so far. The text carried by
// the done event is used when no deltas arrived.
func (a *responseAssembler) onResponseTextDone(text string) {
	a.mu.Lock()
	if a.pendingResponseText == "" && text != "" {
		a.pendingResponseText = text
	}
	response := a.pendingResponseText
	a.mu.Unlock()

	if response != "" {
		a.emit(events.NewAssistantResponseUpdated(response, false))
	}
}

// finalize closes the current response. outputText, when non-blank, replaces
// whatever was assembled from deltas. Both accumulators are consumed whether
// or not a turn gets recorded, and exactly one completion is emitted.
func (a *responseAssembler) finalize(ctx context.Context, outputText string) {
	a.mu.Lock()
	response := a.pendingResponseText
	if strings.TrimSpace(outputText) != "" {
		response = outputText
	}
	transcription := a.pendingTranscription
	a.pendingTranscription = ""
	a.pendingResponseText = ""
	a.mu.Unlock()

	if response != "" {
		a.emit(events.NewAssistantResponseUpdated(response, false))
	}

	if a.recorder != nil {
		if turn, ok := a.recorder.Append(ctx, transcription, response); ok {
			a.emit(events.NewConversationTurnRecorded(
				a.recorder.SessionID(), turn.TimestampMillis, turn.Transcription, turn.Response,
			))
		}
	}

	a.emit(events.NewAssistantResponseComplete(true))
	a.emit(events.NewSessionStatus(statusListening))
}

func (a *responseAssembler) onErrorEvent(message string) {
	a.emit(events.NewSessionStatus("Error: " + message))
}

// discard drops partially assembled input and response without finalizing.
func (a *responseAssembler) discard() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pendingTranscription = ""
	a.pendingResponseText = ""
}

func (a *responseAssembler) pending() (transcription, response string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pendingTranscription, a.pendingResponseText
}
