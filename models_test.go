package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// TestModelQueryErrorError tests the error string format
func TestModelQueryErrorError(t *testing.T) {
	err := &ModelQueryError{
		Model:      "test/model",
		ErrorType:  ErrTypeRateLimit,
		Message:    "too many requests",
		StatusCode: 429,
	}

	want := "test/model: rate_limit: too many requests"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

// TestMessageStagePersistence tests that a full deliberation turn survives
// the JSON round trip used by conversation storage
func TestMessageStagePersistence(t *testing.T) {
	message := Message{
		Role: "assistant",
		Stage1: []Stage1Response{
			{Model: "test/model", Response: "Test response"},
		},
		Stage2: []Stage2Ranking{
			{Model: "test/model", Ranking: "FINAL RANKING:\n1. Response A", ParsedRanking: []string{"Response A"}},
		},
		Stage3: &Stage3Response{Model: "test/chairman", Response: "Final response"},
		Stage1Errors: []ModelQueryError{
			{Model: "test/broken", ErrorType: ErrTypeServer, Message: "upstream error", StatusCode: 503},
		},
	}

	data, err := json.Marshal(message)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if len(decoded.Stage1) != 1 || decoded.Stage1[0].Model != "test/model" {
		t.Errorf("Stage1 = %+v, want original entry", decoded.Stage1)
	}
	if len(decoded.Stage2) != 1 || len(decoded.Stage2[0].ParsedRanking) != 1 {
		t.Errorf("Stage2 = %+v, want original entry", decoded.Stage2)
	}
	if decoded.Stage3 == nil || decoded.Stage3.Response != "Final response" {
		t.Errorf("Stage3 = %+v, want original entry", decoded.Stage3)
	}
	if len(decoded.Stage1Errors) != 1 || decoded.Stage1Errors[0].ErrorType != ErrTypeServer {
		t.Errorf("Stage1Errors = %+v, want original entry", decoded.Stage1Errors)
	}
	if decoded.Stage1Errors[0].StatusCode != 503 {
		t.Errorf("StatusCode = %d, want 503", decoded.Stage1Errors[0].StatusCode)
	}
}

// TestMessageOmitsEmptyStages tests that a plain user message stays small on disk
func TestMessageOmitsEmptyStages(t *testing.T) {
	data, err := json.Marshal(Message{Role: "user", Content: "Hello"})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	jsonStr := string(data)
	for _, field := range []string{"stage1", "stage2", "stage3", "stage1_errors"} {
		if strings.Contains(jsonStr, field) {
			t.Errorf("Plain user message should omit %q, got: %s", field, jsonStr)
		}
	}
}

// TestEmptySlicesInJSON tests that empty slices are marshaled as empty arrays, not null
func TestEmptySlicesInJSON(t *testing.T) {
	conversation := Conversation{
		ID:        "test",
		CreatedAt: time.Now(),
		Title:     "Test",
		Messages:  []Message{}, // Empty slice
	}

	data, err := json.Marshal(conversation)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	// Verify it contains [] not null
	jsonStr := string(data)
	if !strings.Contains(jsonStr, `"messages":[]`) {
		t.Errorf("Expected empty array for messages, got: %s", jsonStr)
	}
}

// TestConversationOverridesOmittedWhenUnset tests that stored conversations
// without overrides do not carry the override fields
func TestConversationOverridesOmittedWhenUnset(t *testing.T) {
	conversation := Conversation{
		ID:        "test",
		CreatedAt: time.Now(),
		Title:     "Test",
		Messages:  []Message{},
	}

	data, err := json.Marshal(conversation)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	jsonStr := string(data)
	for _, field := range []string{"council_models", "chairman_model", "web_search_enabled"} {
		if strings.Contains(jsonStr, field) {
			t.Errorf("Unset override %q should be omitted, got: %s", field, jsonStr)
		}
	}
}
