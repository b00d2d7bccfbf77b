// Package chat defines the conversation data model shared by the
// orchestration graph, workers, and the model gateway.
package chat

import "strings"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// PartType identifies the kind of content stored in a Part.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// Part is a typed fragment of message content.
type Part struct {
	Type PartType `json:"type"`

	// Text is set for PartText.
	Text string `json:"text,omitempty"`

	// Image fields, set for PartImage. Data is base64-encoded when the
	// image is inlined; URL may carry a data: or https: reference instead.
	MIME string `json:"mime,omitempty"`
	Data string `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Message is a single conversation turn. Content is an ordered part list;
// plain-text messages carry a single text part.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`

	// ToolName records which tool produced a RoleTool message.
	ToolName string `json:"tool_name,omitempty"`
}

// User builds a plain-text user message.
func User(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{{Type: PartText, Text: text}}}
}

// Assistant builds a plain-text assistant message.
func Assistant(text string) Message {
	return Message{Role: RoleAssistant, Parts: []Part{{Type: PartText, Text: text}}}
}

// System builds a plain-text system message.
func System(text string) Message {
	return Message{Role: RoleSystem, Parts: []Part{{Type: PartText, Text: text}}}
}

// ToolResult builds a tool message carrying a textual tool result.
func ToolResult(toolName, text string) Message {
	return Message{Role: RoleTool, ToolName: toolName, Parts: []Part{{Type: PartText, Text: text}}}
}

// UserWithImage builds a user message with a text part and one inline image.
func UserWithImage(text, mime, data string) Message {
	return Message{Role: RoleUser, Parts: []Part{
		{Type: PartText, Text: text},
		{Type: PartImage, MIME: mime, Data: data},
	}}
}

// PlainText returns the concatenation of all text parts.
func (m Message) PlainText() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartText {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// HasImage reports whether any part is an image.
func (m Message) HasImage() bool {
	for _, p := range m.Parts {
		if p.Type == PartImage {
			return true
		}
	}
	return false
}

// WithText returns a copy of the message with its parts replaced by a single
// text part.
func (m Message) WithText(text string) Message {
	out := m
	out.Parts = []Part{{Type: PartText, Text: text}}
	return out
}
