package provider

import (
	"context"
	"fmt"

	"hackmate/mcp"
	"hackmate/model"
	"hackmate/ollama"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
)

// OllamaProvider implements model.Provider on a local Ollama server.
type OllamaProvider struct {
	client *ollama.Client
}

func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	client, err := ollama.NewClient(baseURL, model, nil)
	if err != nil {
		return nil, err
	}
	return &OllamaProvider{client: client}, nil
}

func (p *OllamaProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, callback)
}

func (p *OllamaProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
	var ollamaTools []api.Tool
	if len(tools) > 0 {
		ollamaTools = mcp.ToOllamaTools(tools)
	}

	err := p.client.Chat(ctx, ConvertToOllamaMessages(messages), ollamaTools, func(content string, calls []api.ToolCall) error {
		if content == "" && len(calls) == 0 {
			return nil
		}
		return emit(callback, content, ConvertToProviderToolCalls(calls))
	})
	if err != nil {
		return classify(string(ProviderTypeOllama), fmt.Errorf("ollama chat failed: %w", err))
	}
	return nil
}

func (p *OllamaProvider) GetModel() string {
	return p.client.Model()
}

func (p *OllamaProvider) SetModel(model string) {
	p.client.SetModel(model)
}

func (p *OllamaProvider) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return classify(string(ProviderTypeOllama), fmt.Errorf("ollama ping failed: %w", err))
	}
	return nil
}

// SupportsTools reports whether the active model is known to handle tool
// calling.
func (p *OllamaProvider) SupportsTools() bool {
	return ollama.SupportsToolCalling(p.client.Model())
}
