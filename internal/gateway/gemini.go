package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"mcsagent/internal/chat"
)

// GeminiClient implements Client via the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed gateway client.
func NewGeminiClient(apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Model returns the configured model identifier.
func (c *GeminiClient) Model() string { return c.model }

// Complete sends the conversation and returns the assistant message.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (chat.Message, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		content, err := geminiContent(m)
		if err != nil {
			return chat.Message{}, err
		}
		contents = append(contents, content)
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return chat.Message{}, fmt.Errorf("gemini completion failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return chat.Message{}, fmt.Errorf("no completion returned")
	}
	return chat.Assistant(text), nil
}

// geminiContent maps a chat.Message onto genai content. Gemini has two
// conversational roles, so system and tool turns travel as user text.
func geminiContent(m chat.Message) (*genai.Content, error) {
	var role genai.Role = genai.RoleUser
	if m.Role == chat.RoleAssistant {
		role = genai.RoleModel
	}

	if !m.HasImage() {
		text := m.PlainText()
		if m.Role == chat.RoleTool {
			text = fmt.Sprintf("[tool %s result]\n%s", m.ToolName, text)
		}
		return genai.NewContentFromText(text, role), nil
	}

	parts := make([]*genai.Part, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch p.Type {
		case chat.PartText:
			parts = append(parts, genai.NewPartFromText(p.Text))
		case chat.PartImage:
			data, err := base64.StdEncoding.DecodeString(p.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline image: %w", err)
			}
			mime := p.MIME
			if mime == "" {
				mime = "image/png"
			}
			parts = append(parts, genai.NewPartFromBytes(data, mime))
		}
	}
	return genai.NewContentFromParts(parts, role), nil
}
