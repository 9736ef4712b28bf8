// Package testutil provides a scriptable model.Provider for tests.
package testutil

import (
	"context"
	"sync"

	"hackmate/model"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// MockProvider implements model.Provider with overridable Func fields. It
// records every message slice it receives.
type MockProvider struct {
	ChatFunc          func(ctx context.Context, messages []model.Message, callback model.StreamCallback) error
	ChatWithToolsFunc func(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error
	PingFunc          func(ctx context.Context) error

	mu           sync.Mutex
	calls        [][]model.Message
	currentModel string
}

// NewMockProvider creates a mock that answers every request with a fixed
// text reply.
func NewMockProvider(modelName string) *MockProvider {
	m := &MockProvider{currentModel: modelName}
	m.ChatFunc = func(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
		return callback("Mock response", nil)
	}
	m.ChatWithToolsFunc = func(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
		return callback("Mock response with tools", nil)
	}
	m.PingFunc = func(ctx context.Context) error { return nil }
	return m
}

// Replying returns a mock whose tool-enabled calls stream chunks in order.
func Replying(chunks ...string) *MockProvider {
	m := NewMockProvider("mock")
	m.ChatWithToolsFunc = func(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
		for _, c := range chunks {
			if err := callback(c, nil); err != nil {
				return err
			}
		}
		return nil
	}
	return m
}

// Calling returns a mock whose tool-enabled calls emit the given tool calls.
func Calling(calls ...model.ToolCall) *MockProvider {
	m := NewMockProvider("mock")
	m.ChatWithToolsFunc = func(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
		return callback("", calls)
	}
	return m
}

func (m *MockProvider) record(messages []model.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]model.Message(nil), messages...))
}

// Calls returns the message slices received so far.
func (m *MockProvider) Calls() [][]model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]model.Message(nil), m.calls...)
}

func (m *MockProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	m.record(messages)
	return m.ChatFunc(ctx, messages, callback)
}

func (m *MockProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
	m.record(messages)
	return m.ChatWithToolsFunc(ctx, messages, tools, callback)
}

func (m *MockProvider) GetModel() string {
	return m.currentModel
}

func (m *MockProvider) SetModel(model string) {
	m.currentModel = model
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}
