package events

const (
	// KindAssistantResponseUpdated identifies a full snapshot of the
	// assistant response text.
	KindAssistantResponseUpdated Kind = "assistant_response.updated"
	// KindAssistantResponseComplete identifies the end of an assistant
	// response.
	KindAssistantResponseComplete Kind = "assistant_response.complete"
)

// AssistantResponseUpdated carries the response text to display. Text is a
// complete snapshot, not a delta; Animate tells the presentation layer
// whether to reveal it progressively.
type AssistantResponseUpdated struct {
	Base
	Text    string
	Animate bool
}

// NewAssistantResponseUpdated creates an assistant response update event.
func NewAssistantResponseUpdated(text string, animate bool) AssistantResponseUpdated {
	return AssistantResponseUpdated{Base: NewBase(KindAssistantResponseUpdated), Text: text, Animate: animate}
}

// AssistantResponseComplete marks that the current response is finished and
// the UI can resynchronize.
type AssistantResponseComplete struct {
	Base
	Complete bool
}

// NewAssistantResponseComplete creates an assistant response complete event.
func NewAssistantResponseComplete(complete bool) AssistantResponseComplete {
	return AssistantResponseComplete{Base: NewBase(KindAssistantResponseComplete), Complete: complete}
}
