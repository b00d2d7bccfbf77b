package chat

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPlainText(t *testing.T) {
	m := Message{Role: RoleUser, Parts: []Part{
		{Type: PartText, Text: "hello"},
		{Type: PartImage, MIME: "image/png", Data: "abc"},
		{Type: PartText, Text: "world"},
	}}
	if got, want := m.PlainText(), "hello\nworld"; got != want {
		t.Errorf("PlainText() = %q, want %q", got, want)
	}
	if !m.HasImage() {
		t.Error("HasImage() = false, want true")
	}
}

func TestWithTextReplacesParts(t *testing.T) {
	m := UserWithImage("caption", "image/png", "abc")
	out := m.WithText("replaced")
	if out.HasImage() {
		t.Error("WithText kept an image part")
	}
	if got := out.PlainText(); got != "replaced" {
		t.Errorf("PlainText() = %q, want %q", got, "replaced")
	}
	// Original is untouched.
	if !m.HasImage() {
		t.Error("source message mutated")
	}
}

func TestStateAppendOrder(t *testing.T) {
	var s State
	s.Append(User("a"))
	s.Append(Assistant("b"), User("c"))

	want := []Message{User("a"), Assistant("b"), User("c")}
	if diff := cmp.Diff(want, s.Messages); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestLastAssistantText(t *testing.T) {
	var s State
	if got := s.LastAssistantText(); got != "" {
		t.Errorf("empty state LastAssistantText() = %q, want empty", got)
	}
	s.Append(User("q"), Assistant("first"), ToolResult("x", "noise"), Assistant("second"), User("q2"))
	if got := s.LastAssistantText(); got != "second" {
		t.Errorf("LastAssistantText() = %q, want %q", got, "second")
	}
}

func TestValidNext(t *testing.T) {
	workers := []string{"Developer", "Support", "Scientist"}

	tests := []struct {
		value string
		want  bool
	}{
		{"Developer", true},
		{"Scientist", true},
		{Finish, true},
		{"developer", false},
		{"Manager", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidNext(tt.value, workers); got != tt.want {
			t.Errorf("ValidNext(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
