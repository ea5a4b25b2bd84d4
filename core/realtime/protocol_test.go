package realtime

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestResponseOutputTextConcatenatesMessageParts(t *testing.T) {
	var event ServerEvent
	raw := `{
		"type": "response.done",
		"response": {
			"output": [
				{"type": "function_call", "content": [{"type": "text", "text": "ignored"}]},
				{"type": "message", "content": [
					{"type": "output_text", "text": "Hi "},
					{"type": "audio", "transcript": "ignored"},
					{"type": "text", "text": "there"}
				]},
				{"type": "message", "content": [{"type": "output_text", "text": "!"}]}
			]
		}
	}`
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}

	if got := event.Response.OutputText(); got != "Hi there!" {
		t.Fatalf("expected %q, got %q", "Hi there!", got)
	}
}

func TestResponseOutputTextWithoutResponse(t *testing.T) {
	var event ServerEvent
	if got := event.Response.OutputText(); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestErrorMessageFallbacks(t *testing.T) {
	testCases := []struct {
		name     string
		event    ServerEvent
		expected string
	}{
		{name: "nested", event: ServerEvent{Error: &ErrorDetail{Message: "nested"}, Message: "top"}, expected: "nested"},
		{name: "top level", event: ServerEvent{Message: "top"}, expected: "top"},
		{name: "empty nested", event: ServerEvent{Error: &ErrorDetail{Code: "x"}}, expected: "Unknown error"},
		{name: "none", event: ServerEvent{}, expected: "Unknown error"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.ErrorMessage(); got != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestSessionUpdateAppliesDefaults(t *testing.T) {
	update := newSessionUpdateEvent(SessionConfig{})

	if update.Session.Model != DefaultModel {
		t.Fatalf("expected model %q, got %q", DefaultModel, update.Session.Model)
	}
	if update.Session.Audio.Input.Format.Rate != DefaultInputSampleRate {
		t.Fatalf("expected rate %d, got %d", DefaultInputSampleRate, update.Session.Audio.Input.Format.Rate)
	}

	data, err := json.Marshal(update)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if strings.Contains(string(data), `"instructions"`) {
		t.Fatalf("expected empty instructions to be omitted, got %s", data)
	}
}

func TestEventIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for range 100 {
		id := newEventID()
		if !strings.HasPrefix(id, "evt_") {
			t.Fatalf("expected evt_ prefix, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate event id %q", id)
		}
		seen[id] = true
	}
}
