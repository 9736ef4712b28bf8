package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"hackmate/mcp"
	"hackmate/model"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

const AnthropicBaseURL = "https://api.anthropic.com"

// AnthropicProvider implements model.Provider on the Anthropic Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropicProvider creates an Anthropic provider. The model defaults to
// Claude Sonnet 4.5.
func NewAnthropicProvider(baseURL, apiKey, model string) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = AnthropicBaseURL
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	m := anthropic.ModelClaudeSonnet4_5_20250929
	if model != "" {
		m = anthropic.Model(model)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &AnthropicProvider{client: &client, model: m}, nil
}

func (p *AnthropicProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, callback)
}

// ChatWithTools streams text deltas as they arrive. Tool use blocks are only
// complete once the message is fully accumulated, so they are delivered
// after the stream ends.
func (p *AnthropicProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
	msgs, system := convertToAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:     p.model,
		Messages:  msgs,
		MaxTokens: 4096,
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(tools) > 0 {
		params.Tools = mcp.ToAnthropicTools(tools)
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	msg := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return fmt.Errorf("failed to accumulate anthropic message: %w", err)
		}

		if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok {
				if err := emit(callback, text.Text, nil); err != nil {
					return err
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		return classify(string(ProviderTypeAnthropic), fmt.Errorf("anthropic streaming error: %w", err))
	}

	if calls := extractToolCalls(msg.Content); len(calls) > 0 {
		return emit(callback, "", calls)
	}
	return nil
}

func (p *AnthropicProvider) GetModel() string {
	return string(p.model)
}

func (p *AnthropicProvider) SetModel(model string) {
	p.model = anthropic.Model(model)
}

// Ping sends a one-token request; the API has no health endpoint.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return classify(string(ProviderTypeAnthropic), fmt.Errorf("anthropic ping failed: %w", err))
	}
	return nil
}

// convertToAnthropicMessages splits system messages into the separate
// system parameter. Tool outputs are sent as user turns.
func convertToAnthropicMessages(messages []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var system []anthropic.TextBlockParam
	out := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case model.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case model.RoleTool:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(toolOutputText(msg))))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return out, system
}

func extractToolCalls(content []anthropic.ContentBlockUnion) []model.ToolCall {
	var calls []model.ToolCall
	for _, block := range content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}
		args := map[string]any{}
		if len(toolUse.Input) > 0 {
			if err := json.Unmarshal(toolUse.Input, &args); err != nil {
				continue
			}
		}
		calls = append(calls, model.ToolCall{Name: toolUse.Name, Arguments: args})
	}
	return calls
}
