package realtime

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Outbound message types
const (
	TypeSessionUpdate          = "session.update"
	TypeInputAudioBufferAppend = "input_audio_buffer.append"
	TypeConversationItemCreate = "conversation.item.create"
	TypeResponseCreate         = "response.create"
)

// Inbound event types
const (
	TypeSessionCreated              = "session.created"
	TypeSessionUpdated              = "session.updated"
	TypeSpeechStarted               = "input_audio_buffer.speech_started"
	TypeSpeechStopped               = "input_audio_buffer.speech_stopped"
	TypeInputTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	TypeInputTranscriptionFailed    = "conversation.item.input_audio_transcription.failed"
	TypeResponseCreated             = "response.created"
	TypeResponseOutputTextDelta     = "response.output_text.delta"
	TypeResponseTextDelta           = "response.text.delta"
	TypeResponseOutputTextDone      = "response.output_text.done"
	TypeResponseTextDone            = "response.text.done"
	TypeResponseDone                = "response.done"
	TypeError                       = "error"
)

const (
	DefaultEndpoint           = "wss://api.openai.com/v1/realtime"
	DefaultModel              = "gpt-realtime"
	DefaultTranscriptionModel = "gpt-4o-mini-transcribe"
	DefaultTurnDetection      = "semantic_vad"
	DefaultInputSampleRate    = 24000
	inputAudioFormat          = "audio/pcm"
	sessionTypeRealtime       = "realtime"
)

// SessionConfig is sent once per connection as the session.update payload.
type SessionConfig struct {
	Model              string
	Instructions       string
	TranscriptionModel string
	TurnDetection      string
	InputSampleRate    int
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Model:              DefaultModel,
		TranscriptionModel: DefaultTranscriptionModel,
		TurnDetection:      DefaultTurnDetection,
		InputSampleRate:    DefaultInputSampleRate,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	defaults := DefaultSessionConfig()
	if c.Model == "" {
		c.Model = defaults.Model
	}
	if c.TranscriptionModel == "" {
		c.TranscriptionModel = defaults.TranscriptionModel
	}
	if c.TurnDetection == "" {
		c.TurnDetection = defaults.TurnDetection
	}
	if c.InputSampleRate <= 0 {
		c.InputSampleRate = defaults.InputSampleRate
	}
	return c
}

type SessionUpdateEvent struct {
	EventID string        `json:"event_id,omitempty"`
	Type    string        `json:"type"`
	Session SessionUpdate `json:"session"`
}

type SessionUpdate struct {
	Type             string       `json:"type"`
	Model            string       `json:"model,omitempty"`
	OutputModalities []string     `json:"output_modalities"`
	Audio            SessionAudio `json:"audio"`
	Instructions     string       `json:"instructions,omitempty"`
}

type SessionAudio struct {
	Input AudioInput `json:"input"`
}

type AudioInput struct {
	Format        AudioFormat          `json:"format"`
	Transcription *TranscriptionConfig `json:"transcription,omitempty"`
	TurnDetection *TurnDetection       `json:"turn_detection,omitempty"`
}

type AudioFormat struct {
	Type string `json:"type"`
	Rate int    `json:"rate"`
}

type TranscriptionConfig struct {
	Model string `json:"model"`
}

type TurnDetection struct {
	Type string `json:"type"`
}

type InputAudioBufferAppendEvent struct {
	EventID string `json:"event_id,omitempty"`
	Type    string `json:"type"`
	Audio   string `json:"audio"`
}

type ConversationItemCreateEvent struct {
	EventID string           `json:"event_id,omitempty"`
	Type    string           `json:"type"`
	Item    ConversationItem `json:"item"`
}

type ConversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

type ResponseCreateEvent struct {
	EventID string `json:"event_id,omitempty"`
	Type    string `json:"type"`
}

func newEventID() string {
	return "evt_" + uuid.New().String()[:12]
}

func newSessionUpdateEvent(config SessionConfig) SessionUpdateEvent {
	config = config.withDefaults()

	input := AudioInput{
		Format:        AudioFormat{Type: inputAudioFormat, Rate: config.InputSampleRate},
		TurnDetection: &TurnDetection{Type: config.TurnDetection},
	}
	if config.TranscriptionModel != "" {
		input.Transcription = &TranscriptionConfig{Model: config.TranscriptionModel}
	}

	return SessionUpdateEvent{
		EventID: newEventID(),
		Type:    TypeSessionUpdate,
		Session: SessionUpdate{
			Type:             sessionTypeRealtime,
			Model:            config.Model,
			OutputModalities: []string{"text"},
			Audio:            SessionAudio{Input: input},
			Instructions:     config.Instructions,
		},
	}
}

func newInputAudioBufferAppendEvent(encoded string) InputAudioBufferAppendEvent {
	return InputAudioBufferAppendEvent{
		EventID: newEventID(),
		Type:    TypeInputAudioBufferAppend,
		Audio:   encoded,
	}
}

func newUserMessageEvent(text string) ConversationItemCreateEvent {
	return ConversationItemCreateEvent{
		EventID: newEventID(),
		Type:    TypeConversationItemCreate,
		Item: ConversationItem{
			Type:    "message",
			Role:    "user",
			Content: []ContentPart{{Type: "input_text", Text: text}},
		},
	}
}

func newResponseCreateEvent() ResponseCreateEvent {
	return ResponseCreateEvent{EventID: newEventID(), Type: TypeResponseCreate}
}

// ServerEvent is the envelope shared by every inbound event. Only the fields
// used by the dispatch table are decoded.
type ServerEvent struct {
	EventID    string          `json:"event_id,omitempty"`
	Type       string          `json:"type"`
	ItemID     string          `json:"item_id,omitempty"`
	Transcript string          `json:"transcript,omitempty"`
	Delta      string          `json:"delta,omitempty"`
	Text       string          `json:"text,omitempty"`
	Response   *Response       `json:"response,omitempty"`
	Error      *ErrorDetail    `json:"error,omitempty"`
	Message    string          `json:"message,omitempty"`
	Session    json.RawMessage `json:"session,omitempty"`
}

type Response struct {
	ID     string       `json:"id,omitempty"`
	Status string       `json:"status,omitempty"`
	Output []OutputItem `json:"output,omitempty"`
}

type OutputItem struct {
	ID      string        `json:"id,omitempty"`
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
}

type ContentPart struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

type ErrorDetail struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Param   string `json:"param,omitempty"`
}

// OutputText concatenates, in order, the text parts of every message item in
// the response output.
func (r *Response) OutputText() string {
	if r == nil {
		return ""
	}

	var sb strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "text" || part.Type == "output_text" {
				sb.WriteString(part.Text)
			}
		}
	}
	return sb.String()
}

// ErrorMessage returns the most specific message carried by an error event.
func (e ServerEvent) ErrorMessage() string {
	if e.Error != nil && e.Error.Message != "" {
		return e.Error.Message
	}
	if e.Message != "" {
		return e.Message
	}
	return "Unknown error"
}
