// Package events defines the typed notification contract delivered to the
// presentation layer.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - session.*
//   - user_input.*
//   - assistant_response.*
//   - conversation.*
//
// Semantics used across the package:
//
//   - Segment: append-only text piece emitted in stream order.
//   - Updated: point-in-time snapshot that replaces the previous one.
//   - Complete: lifecycle boundary indicating the response is finished.
//
// session events
//
//   - SessionStatus (session.status): human readable status line.
//   - SessionInitializing (session.initializing): session start in flight
//     flag changed.
//
// user_input events
//
//   - UserSpeechStarted (user_input.speech_started): speech activity began.
//   - UserSpeechEnded (user_input.speech_ended): speech activity ended.
//   - UserTranscriptSegment (user_input.transcript_segment): completed
//     transcription of a chunk of user audio.
//
// assistant_response events
//
//   - AssistantResponseUpdated (assistant_response.updated): full response
//     text snapshot to display.
//   - AssistantResponseComplete (assistant_response.complete): response is
//     finished, emitted once per finalized response whether or not a turn
//     was recorded.
//
// conversation events
//
//   - ConversationTurnRecorded (conversation.turn_recorded): a transcription
//     and response pair was appended to the session log.
package events
