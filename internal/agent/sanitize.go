package agent

import (
	"strings"

	"mcsagent/internal/chat"
	"mcsagent/internal/config"
)

// visionKeywords marks model names assumed to accept image input when no
// explicit capability flag is configured. The list is inherently
// incomplete for unseen model names; set supports_images in the config to
// bypass it.
var visionKeywords = []string{
	"gpt-4o", "gpt-4.1", "gpt-5", "o3", "o4",
	"gemini", "claude", "vision", "vl", "llava", "pixtral",
}

// SupportsImages reports whether the configured model accepts image
// input. An explicit supports_images flag wins; otherwise the model name
// is matched against the keyword list.
func SupportsImages(cfg config.LLMConfig) bool {
	if cfg.SupportsImages != nil {
		return *cfg.SupportsImages
	}
	model := strings.ToLower(cfg.Model)
	for _, kw := range visionKeywords {
		if strings.Contains(model, kw) {
			return true
		}
	}
	return false
}

// SanitizeForModel strips image parts from messages when the model cannot
// accept them, appending a marker so the model knows content was dropped.
// Messages without images pass through unchanged.
func SanitizeForModel(msgs []chat.Message, supportsImages bool) []chat.Message {
	if supportsImages {
		return msgs
	}
	out := make([]chat.Message, len(msgs))
	for i, m := range msgs {
		if !m.HasImage() {
			out[i] = m
			continue
		}
		text := m.PlainText()
		if text != "" {
			text += "\n"
		}
		out[i] = m.WithText(text + "[image ignored — unsupported model]")
	}
	return out
}
