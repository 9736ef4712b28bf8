// Package ollama wraps the Ollama API client with the defaults hackmate
// uses and a table of model families known to handle tool calling.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	DefaultHost  = "http://localhost:11434"
	DefaultModel = "llama3.1:latest"
)

type Client struct {
	client *api.Client
	model  string
}

// StreamFunc receives each streamed chat response.
type StreamFunc func(content string, toolCalls []api.ToolCall) error

func NewClient(baseURL, model string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultHost
	}
	if model == "" {
		model = DefaultModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &Client{client: api.NewClient(parsedURL, httpClient), model: model}, nil
}

// Chat streams a chat completion, passing tool definitions when given.
func (c *Client) Chat(ctx context.Context, messages []api.Message, tools []api.Tool, fn StreamFunc) error {
	stream := true
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
		Stream:   &stream,
	}

	return c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if fn == nil {
			return nil
		}
		return fn(resp.Message.Content, resp.Message.ToolCalls)
	})
}

func (c *Client) SetModel(model string) {
	c.model = model
}

func (c *Client) Model() string {
	return c.model
}

// Ping lists local models with a short timeout.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.List(ctx)
	return err
}

// Families checked most specific first so "llama3.1" wins over "llama3".
var toolFamilies = []struct {
	prefix    string
	supported bool
}{
	{"llama3.3", true},
	{"llama3.2", true},
	{"llama3.1", true},
	{"llama3-gradient", false},
	{"command-r", true},
	{"qwen", true},
	{"mistral", true},
	{"nemotron", true},
	{"granite3", true},
	{"gpt-oss", true},
	{"codellama", false},
	{"llama3", false},
	{"deepseek", false},
	{"phi", false},
	{"gemma", false},
}

// SupportsToolCalling reports whether the model family is known to handle
// Ollama's tool-calling API. Unknown families report false.
func SupportsToolCalling(model string) bool {
	model = strings.ToLower(model)
	for _, f := range toolFamilies {
		if strings.HasPrefix(model, f.prefix) {
			return f.supported
		}
	}
	return false
}
