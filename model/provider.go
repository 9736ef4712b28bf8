package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Provider abstracts LLM backends (OpenAI, OpenRouter, Anthropic, Ollama, Gemini)
// behind hackmate's provider-agnostic message and tool-call types.
//
// The interface lives in model rather than provider so that the agent and
// provider packages can both depend on it without an import cycle.
type Provider interface {
	// Chat sends messages and streams text back via callback.
	Chat(ctx context.Context, messages []Message, callback StreamCallback) error

	// ChatWithTools sends messages together with tool schemas. Text fragments
	// and completed tool calls are both delivered through callback.
	ChatWithTools(ctx context.Context, messages []Message, tools []mcptypes.Tool, callback StreamCallback) error

	// GetModel returns the model name used for API calls.
	GetModel() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// StreamCallback is called for each chunk of a streamed response. Exactly one
// of chunk or toolCalls is normally set. Returning an error aborts the stream.
type StreamCallback func(chunk string, toolCalls []ToolCall) error
