// Package gateway issues chat-completion calls against an LLM provider.
// It is a thin boundary: callers hand over a role-tagged message list
// (optionally with image parts) and get back one assistant message.
// Structured routing responses are returned as text; validation is the
// caller's job.
package gateway

import (
	"context"
	"fmt"
	"strings"

	"mcsagent/internal/chat"
	"mcsagent/internal/config"
)

// Request is a single chat-completion invocation.
type Request struct {
	// System is an optional instruction prepended as a system message.
	System string

	// Messages is the ordered conversation to complete.
	Messages []chat.Message

	// Temperature defaults to 0 for deterministic routing and extraction.
	Temperature float64

	// MaxTokens bounds the completion; 0 lets the provider decide.
	MaxTokens int
}

// Client is the chat-completion gateway contract.
type Client interface {
	// Complete returns exactly one assistant message with text content.
	Complete(ctx context.Context, req Request) (chat.Message, error)

	// Model returns the configured model identifier.
	Model() string
}

// New builds a client from config.
func New(cfg config.LLMConfig) (Client, error) {
	timeout, err := (&config.Config{LLM: cfg}).LLMTimeout()
	if err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
		}), nil
	case "gemini":
		return NewGeminiClient(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s (use 'openai' or 'gemini')", cfg.Provider)
	}
}

// CompleteText is a convenience wrapper for single-prompt completions.
func CompleteText(ctx context.Context, c Client, system, prompt string) (string, error) {
	msg, err := c.Complete(ctx, Request{
		System:   system,
		Messages: []chat.Message{chat.User(prompt)},
	})
	if err != nil {
		return "", err
	}
	return msg.PlainText(), nil
}

// IsSessionCorruption classifies gateway errors caused by a dangling or
// incomplete tool-call sequence in the submitted history. These are not
// auto-repaired; the operator is told to reset the session instead, since
// silent repair risks dropping turns unnoticed.
func IsSessionCorruption(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "insufficient tool messages") ||
		strings.Contains(msg, "tool_calls") ||
		strings.Contains(msg, "tool_call_id")
}
