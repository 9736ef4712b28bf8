package provider

import (
	"context"
	"fmt"
	"strings"

	"hackmate/mcp"
	"hackmate/model"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIBaseURL     = "https://api.openai.com/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenAIProvider implements model.Provider on the OpenAI chat completions
// API. OpenRouter uses the same implementation with its own base URL.
type OpenAIProvider struct {
	client openai.Client
	name   string
	model  string
}

// NewOpenAIProvider creates an OpenAI provider. The base URL defaults to
// api.openai.com and the model to gpt-4o-mini.
func NewOpenAIProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	return newOpenAICompatible(string(ProviderTypeOpenAI), baseURL, apiKey, model)
}

func newOpenAICompatible(name, baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key is required", name)
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &OpenAIProvider{client: client, name: name, model: model}, nil
}

func (p *OpenAIProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, callback)
}

func (p *OpenAIProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
	params := openai.ChatCompletionNewParams{
		Messages: ConvertToOpenAIMessages(messages),
		Model:    openai.ChatModel(p.model),
	}
	if len(tools) > 0 {
		params.Tools = mcp.ToOpenAITools(tools)
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if err := emit(callback, chunk.Choices[0].Delta.Content, nil); err != nil {
				return err
			}
		}

		if tool, ok := acc.JustFinishedToolCall(); ok {
			call := model.ToolCall{Name: tool.Name, Arguments: ParseToolArguments(tool.Arguments)}
			if err := emit(callback, "", []model.ToolCall{call}); err != nil {
				return err
			}
		}
	}

	if err := stream.Err(); err != nil {
		return classify(p.name, fmt.Errorf("%s streaming error: %w", p.name, err))
	}
	return nil
}

func (p *OpenAIProvider) GetModel() string {
	return p.model
}

func (p *OpenAIProvider) SetModel(model string) {
	p.model = model
}

// Ping lists models, which every OpenAI-compatible endpoint serves.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return classify(p.name, fmt.Errorf("%s ping failed: %w", p.name, err))
	}
	return nil
}

// ConvertToOpenAIMessages maps hackmate messages to chat completion
// messages. Tool outputs become user messages because the orchestrator does
// not track provider tool call IDs.
func ConvertToOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		case model.RoleTool:
			out = append(out, openai.UserMessage(toolOutputText(msg)))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func toolOutputText(msg model.Message) string {
	var b strings.Builder
	b.WriteString("Tool result")
	if msg.ToolName != "" {
		b.WriteString(" (")
		b.WriteString(msg.ToolName)
		b.WriteString(")")
	}
	b.WriteString(":\n")
	b.WriteString(msg.Content)
	return b.String()
}

func emit(callback model.StreamCallback, chunk string, calls []model.ToolCall) error {
	if callback == nil {
		return nil
	}
	return callback(chunk, calls)
}
