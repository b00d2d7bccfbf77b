package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"mcsagent/internal/chat"
	"mcsagent/internal/logging"
)

// OpenAIClient implements Client against any OpenAI-compatible
// chat-completions endpoint.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        *zap.Logger
}

// OpenAIConfig holds client configuration.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewOpenAIClient creates a client. An empty BaseURL targets api.openai.com.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logging.Named("gateway.openai"),
	}
}

// Wire types. Content is either a plain string or a block list when images
// are attached.

type oaiRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float64      `json:"temperature"`
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
	Name    string `json:"name,omitempty"`
}

type oaiContentBlock struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	ImageURL *oaiImageURL `json:"image_url,omitempty"`
}

type oaiImageURL struct {
	URL string `json:"url"`
}

type oaiResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// Model returns the configured model identifier.
func (c *OpenAIClient) Model() string { return c.model }

// Complete sends the conversation and returns the assistant message.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (chat.Message, error) {
	if c.apiKey == "" {
		return chat.Message{}, fmt.Errorf("API key not configured")
	}

	messages := make([]oaiMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, oaiMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, encodeMessage(m))
	}

	body := oaiRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Retry loop for 429s and transport errors.
	maxRetries := 2
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return chat.Message{}, ctx.Err()
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return chat.Message{}, fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return chat.Message{}, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
		}

		var parsed oaiResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return chat.Message{}, fmt.Errorf("failed to parse response: %w", err)
		}
		if parsed.Error != nil {
			return chat.Message{}, fmt.Errorf("API error: %s", parsed.Error.Message)
		}
		if len(parsed.Choices) == 0 {
			return chat.Message{}, fmt.Errorf("no completion returned")
		}

		c.log.Debug("completion",
			zap.String("model", parsed.Model),
			zap.Int("prompt_tokens", parsed.Usage.PromptTokens),
			zap.Int("completion_tokens", parsed.Usage.CompletionTokens))

		text := strings.TrimSpace(parsed.Choices[0].Message.Content)
		return chat.Assistant(text), nil
	}

	return chat.Message{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// encodeMessage maps a chat.Message onto the wire format. Text-only
// messages use the plain string form; image parts switch to block content.
func encodeMessage(m chat.Message) oaiMessage {
	role := string(m.Role)
	if m.Role == chat.RoleTool {
		// Tool results travel as user-visible text; this gateway does not
		// use native tool-call messages, so roundtrips stay valid.
		role = "user"
	}

	if !m.HasImage() {
		content := m.PlainText()
		if m.Role == chat.RoleTool {
			content = fmt.Sprintf("[tool %s result]\n%s", m.ToolName, content)
		}
		return oaiMessage{Role: role, Content: content}
	}

	blocks := make([]oaiContentBlock, 0, len(m.Parts))
	for _, p := range m.Parts {
		switch p.Type {
		case chat.PartText:
			blocks = append(blocks, oaiContentBlock{Type: "text", Text: p.Text})
		case chat.PartImage:
			url := p.URL
			if url == "" {
				mime := p.MIME
				if mime == "" {
					mime = "image/png"
				}
				url = fmt.Sprintf("data:%s;base64,%s", mime, p.Data)
			}
			blocks = append(blocks, oaiContentBlock{Type: "image_url", ImageURL: &oaiImageURL{URL: url}})
		}
	}
	return oaiMessage{Role: role, Content: blocks}
}
