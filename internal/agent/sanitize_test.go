package agent

import (
	"strings"
	"testing"

	"mcsagent/internal/chat"
	"mcsagent/internal/config"
)

func TestSupportsImagesKeywordMatch(t *testing.T) {
	tests := []struct {
		model string
		want  bool
	}{
		{"gpt-4o-mini", true},
		{"gemini-2.0-flash", true},
		{"claude-sonnet", true},
		{"llava:13b", true},
		{"qwen2-vl-7b", true},
		{"gpt-3.5-turbo", false},
		{"mistral-small", false},
		{"", false},
	}
	for _, tt := range tests {
		cfg := config.LLMConfig{Model: tt.model}
		if got := SupportsImages(cfg); got != tt.want {
			t.Errorf("SupportsImages(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}

func TestSupportsImagesExplicitFlagWins(t *testing.T) {
	yes, no := true, false

	// Flag overrides a keyword miss.
	cfg := config.LLMConfig{Model: "obscure-model", SupportsImages: &yes}
	if !SupportsImages(cfg) {
		t.Error("explicit true flag ignored")
	}
	// And a keyword hit.
	cfg = config.LLMConfig{Model: "gpt-4o", SupportsImages: &no}
	if SupportsImages(cfg) {
		t.Error("explicit false flag ignored")
	}
}

func TestSanitizeStripsImagesForTextModels(t *testing.T) {
	msgs := []chat.Message{
		chat.User("plain"),
		chat.UserWithImage("see attached", "image/png", "base64data"),
	}

	out := SanitizeForModel(msgs, false)
	if out[0].PlainText() != "plain" {
		t.Errorf("text message altered: %q", out[0].PlainText())
	}
	if out[1].HasImage() {
		t.Error("image part survived sanitization")
	}
	text := out[1].PlainText()
	if !strings.Contains(text, "see attached") || !strings.Contains(text, "[image ignored") {
		t.Errorf("sanitized text = %q", text)
	}

	// Source slice is untouched.
	if !msgs[1].HasImage() {
		t.Error("input messages mutated")
	}
}

func TestSanitizePassesThroughForVisionModels(t *testing.T) {
	msgs := []chat.Message{chat.UserWithImage("look", "image/png", "x")}
	out := SanitizeForModel(msgs, true)
	if !out[0].HasImage() {
		t.Error("image stripped for a vision-capable model")
	}
}
