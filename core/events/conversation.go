package events

// KindConversationTurnRecorded identifies a turn appended to the
// conversation log.
const KindConversationTurnRecorded Kind = "conversation.turn_recorded"

// ConversationTurnRecorded carries a turn that was just recorded, together
// with the session it belongs to.
type ConversationTurnRecorded struct {
	Base
	SessionID       string
	TimestampMillis int64
	Transcription   string
	Response        string
}

// NewConversationTurnRecorded creates a conversation turn recorded event.
func NewConversationTurnRecorded(sessionID string, timestampMillis int64, transcription, response string) ConversationTurnRecorded {
	return ConversationTurnRecorded{
		Base:            NewBase(KindConversationTurnRecorded),
		SessionID:       sessionID,
		TimestampMillis: timestampMillis,
		Transcription:   transcription,
		Response:        response,
	}
}
