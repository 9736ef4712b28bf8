package provider

import (
	"context"
	"fmt"
	"strings"

	"hackmate/mcp"
	"hackmate/model"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"google.golang.org/genai"
)

// GeminiProvider implements model.Provider on the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini provider. The model defaults to
// gemini-2.5-flash; an empty baseURL uses the SDK default endpoint.
func NewGeminiProvider(ctx context.Context, baseURL, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, messages, nil, callback)
}

func (p *GeminiProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
	contents, system := convertToGeminiContents(messages)

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(tools) > 0 {
		config.Tools = mcp.ToGeminiTools(tools)
	}

	for resp, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, config) {
		if err != nil {
			return classify(string(ProviderTypeGemini), fmt.Errorf("gemini streaming error: %w", err))
		}

		if text := resp.Text(); text != "" {
			if err := emit(callback, text, nil); err != nil {
				return err
			}
		}

		if fcs := resp.FunctionCalls(); len(fcs) > 0 {
			calls := make([]model.ToolCall, 0, len(fcs))
			for _, fc := range fcs {
				args := fc.Args
				if args == nil {
					args = map[string]any{}
				}
				calls = append(calls, model.ToolCall{Name: fc.Name, Arguments: args})
			}
			if err := emit(callback, "", calls); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *GeminiProvider) GetModel() string {
	return p.model
}

func (p *GeminiProvider) SetModel(model string) {
	p.model = model
}

func (p *GeminiProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.Get(ctx, p.model, nil); err != nil {
		return classify(string(ProviderTypeGemini), fmt.Errorf("gemini ping failed: %w", err))
	}
	return nil
}

// convertToGeminiContents folds system messages into one system
// instruction. Gemini only knows the user and model roles.
func convertToGeminiContents(messages []model.Message) ([]*genai.Content, string) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			system = append(system, msg.Content)
		case model.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		case model.RoleTool:
			contents = append(contents, genai.NewContentFromText(toolOutputText(msg), genai.RoleUser))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	return contents, strings.Join(system, "\n\n")
}
