package orchestration

import (
	"context"
	"testing"
	"time"

	"github.com/koscakluka/ema-realtime/core/conversations"
	"github.com/koscakluka/ema-realtime/core/events"
)

type eventRecorder struct {
	events []events.Event
}

func (r *eventRecorder) emit(event events.Event) {
	r.events = append(r.events, event)
}

func (r *eventRecorder) count(kind events.Kind) int {
	n := 0
	for _, event := range r.events {
		if event.Kind() == kind {
			n++
		}
	}
	return n
}

func (r *eventRecorder) responseUpdates() []string {
	var texts []string
	for _, event := range r.events {
		if update, ok := event.(events.AssistantResponseUpdated); ok {
			texts = append(texts, update.Text)
		}
	}
	return texts
}

func (r *eventRecorder) statuses() []string {
	var texts []string
	for _, event := range r.events {
		if status, ok := event.(events.SessionStatus); ok {
			texts = append(texts, status.Text)
		}
	}
	return texts
}

func newTestAssembler() (*responseAssembler, *conversations.Recorder, *eventRecorder) {
	recorder := conversations.NewRecorder()
	emitted := &eventRecorder{}
	return newResponseAssembler(recorder, emitted.emit), recorder, emitted
}

func TestFinalizeRecordsTurnFromDeltas(t *testing.T) {
	assembler, recorder, emitted := newTestAssembler()

	assembler.onTranscription("hello")
	assembler.onResponseStarted()
	assembler.onResponseDelta("Hi")
	assembler.onResponseDelta(" there")
	assembler.finalize(context.Background(), "")

	turns := recorder.Turns()
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if turns[0].Transcription != "hello" || turns[0].Response != "Hi there" {
		t.Fatalf("expected hello/Hi there turn, got %+v", turns[0])
	}

	transcription, response := assembler.pending()
	if transcription != "" || response != "" {
		t.Fatalf("expected accumulators to be reset, got %q/%q", transcription, response)
	}
	if got := emitted.count(events.KindAssistantResponseComplete); got != 1 {
		t.Fatalf("expected 1 completion, got %d", got)
	}
	if got := emitted.count(events.KindConversationTurnRecorded); got != 1 {
		t.Fatalf("expected 1 turn recorded notification, got %d", got)
	}
	if statuses := emitted.statuses(); len(statuses) != 1 || statuses[0] != "Listening..." {
		t.Fatalf("expected a single Listening... status, got %v", statuses)
	}
}

func TestFinalizeWithEmptyAccumulatorsEmitsOneCompletion(t *testing.T) {
	assembler, recorder, emitted := newTestAssembler()

	assembler.finalize(context.Background(), "")

	if got := len(recorder.Turns()); got != 0 {
		t.Fatalf("expected no turn, got %d", got)
	}
	if got := emitted.count(events.KindAssistantResponseComplete); got != 1 {
		t.Fatalf("expected exactly 1 completion, got %d", got)
	}
	if got := emitted.count(events.KindAssistantResponseUpdated); got != 0 {
		t.Fatalf("expected no response update, got %d", got)
	}

	assembler.finalize(context.Background(), "")
	if got := emitted.count(events.KindAssistantResponseComplete); got != 2 {
		t.Fatalf("expected one completion per finalization, got %d", got)
	}
}

func TestFinalizeWithoutTranscriptionConsumesResponse(t *testing.T) {
	assembler, recorder, emitted := newTestAssembler()

	assembler.onResponseDelta("Unprompted reply")
	assembler.finalize(context.Background(), "")
	assembler.onTranscription("later question")
	assembler.finalize(context.Background(), "")

	if got := len(recorder.Turns()); got != 0 {
		t.Fatalf("expected no turns, got %d", got)
	}
	if updates := emitted.responseUpdates(); len(updates) != 1 || updates[0] != "Unprompted reply" {
		t.Fatalf("expected response to be surfaced once, got %v", updates)
	}
	if transcription, _ := assembler.pending(); transcription != "" {
		t.Fatalf("expected transcription to be consumed, got %q", transcription)
	}
}

func TestStructuredOutputSupersedesDeltas(t *testing.T) {
	assembler, recorder, emitted := newTestAssembler()

	assembler.onTranscription("what time is it")
	assembler.onResponseDelta("It is")
	assembler.finalize(context.Background(), "It is noon.")

	turns := recorder.Turns()
	if len(turns) != 1 || turns[0].Response != "It is noon." {
		t.Fatalf("expected structured output to be recorded, got %+v", turns)
	}
	if updates := emitted.responseUpdates(); len(updates) != 1 || updates[0] != "It is noon." {
		t.Fatalf("expected one update with structured text, got %v", updates)
	}
}

func TestTranscriptionFragmentsAccumulate(t *testing.T) {
	assembler, recorder, _ := newTestAssembler()

	assembler.onTranscription("first part")
	assembler.onTranscription("")
	assembler.onTranscription("second part")
	assembler.onResponseDelta("ok")
	assembler.finalize(context.Background(), "")

	turns := recorder.Turns()
	if len(turns) != 1 || turns[0].Transcription != "first part second part" {
		t.Fatalf("expected joined transcription, got %+v", turns)
	}
}

func TestResponseStartedClearsPreviousText(t *testing.T) {
	assembler, _, _ := newTestAssembler()

	assembler.onResponseDelta("stale")
	assembler.onResponseStarted()
	assembler.onResponseDelta("fresh")

	if _, response := assembler.pending(); response != "fresh" {
		t.Fatalf("expected %q, got %q", "fresh", response)
	}
}

func TestResponseTextDoneSurfacesAccumulatedText(t *testing.T) {
	assembler, _, emitted := newTestAssembler()

	assembler.onResponseDelta("Hi")
	assembler.onResponseDelta(" there")
	if got := emitted.count(events.KindAssistantResponseUpdated); got != 0 {
		t.Fatalf("expected deltas not to be surfaced, got %d updates", got)
	}

	assembler.onResponseTextDone("Hi there")
	updates := emitted.responseUpdates()
	if len(updates) != 1 || updates[0] != "Hi there" {
		t.Fatalf("expected one update with accumulated text, got %v", updates)
	}
	if update := emitted.events[len(emitted.events)-1].(events.AssistantResponseUpdated); update.Animate {
		t.Fatalf("expected animate to be false")
	}
}

func TestResponseTextDoneFallsBackToEventText(t *testing.T) {
	assembler, _, emitted := newTestAssembler()

	assembler.onResponseTextDone("Complete text")

	if updates := emitted.responseUpdates(); len(updates) != 1 || updates[0] != "Complete text" {
		t.Fatalf("expected done text to be surfaced, got %v", updates)
	}
	if _, response := assembler.pending(); response != "Complete text" {
		t.Fatalf("expected done text to be kept for finalization, got %q", response)
	}
}

func TestFinalizeDoesNotWaitForTurnSink(t *testing.T) {
	release := make(chan struct{})
	recorder := conversations.NewRecorder(conversations.WithSink(conversations.TurnSinkFunc(
		func(context.Context, conversations.TurnRecord) error {
			<-release
			return nil
		},
	)))
	defer func() {
		close(release)
		recorder.Close()
	}()
	emitted := &eventRecorder{}
	assembler := newResponseAssembler(recorder, emitted.emit)

	assembler.onTranscription("hello")
	assembler.onResponseDelta("Hi there")

	finalized := make(chan struct{})
	go func() {
		assembler.finalize(context.Background(), "")
		close(finalized)
	}()

	select {
	case <-finalized:
	case <-time.After(time.Second):
		t.Fatalf("expected finalize to return while the sink is blocked")
	}
	if got := emitted.count(events.KindAssistantResponseComplete); got != 1 {
		t.Fatalf("expected 1 completion, got %d", got)
	}
	if statuses := emitted.statuses(); len(statuses) != 1 || statuses[0] != statusListening {
		t.Fatalf("expected listening status, got %v", statuses)
	}
}

func TestDiscardDropsPartialResponse(t *testing.T) {
	assembler, recorder, emitted := newTestAssembler()

	assembler.onTranscription("hello")
	assembler.onResponseDelta("partial")
	assembler.discard()
	assembler.finalize(context.Background(), "")

	if got := len(recorder.Turns()); got != 0 {
		t.Fatalf("expected no turn after discard, got %d", got)
	}
	if updates := emitted.responseUpdates(); len(updates) != 0 {
		t.Fatalf("expected discarded text not to be surfaced, got %v", updates)
	}
}

func TestErrorEventBecomesStatus(t *testing.T) {
	assembler, _, emitted := newTestAssembler()

	assembler.onErrorEvent("rate limited")

	if statuses := emitted.statuses(); len(statuses) != 1 || statuses[0] != "Error: rate limited" {
		t.Fatalf("expected error status, got %v", statuses)
	}
}
