// Package mcp bridges hackmate's tool catalogue to the Model Context
// Protocol: it converts MCP tool definitions into each provider's wire
// format, serves the read-only tools over stdio, and consumes an external
// MCP server as a web search backend.
package mcp

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"
)

// schemaMap renders an input schema as a plain JSON Schema object.
func schemaMap(schema mcptypes.ToolInputSchema) map[string]any {
	typ := schema.Type
	if typ == "" {
		typ = "object"
	}
	props := schema.Properties
	if props == nil {
		props = map[string]any{}
	}
	out := map[string]any{
		"type":       typ,
		"properties": props,
	}
	if len(schema.Required) > 0 {
		out["required"] = schema.Required
	}
	if schema.Defs != nil {
		out["$defs"] = schema.Defs
	}
	return out
}

// ToOllamaTools converts MCP tools to Ollama's function tool format.
func ToOllamaTools(tools []mcptypes.Tool) []api.Tool {
	out := make([]api.Tool, 0, len(tools))
	for _, tool := range tools {
		out = append(out, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  ollamaParameters(tool.InputSchema),
			},
		})
	}
	return out
}

func ollamaParameters(schema mcptypes.ToolInputSchema) api.ToolFunctionParameters {
	typ := schema.Type
	if typ == "" {
		typ = "object"
	}
	params := api.ToolFunctionParameters{
		Type:       typ,
		Required:   schema.Required,
		Properties: make(map[string]api.ToolProperty, len(schema.Properties)),
	}
	if schema.Defs != nil {
		params.Defs = schema.Defs
	}
	for name, value := range schema.Properties {
		params.Properties[name] = ollamaProperty(value)
	}
	return params
}

func ollamaProperty(value any) api.ToolProperty {
	var prop api.ToolProperty

	m, ok := value.(map[string]any)
	if !ok {
		raw, err := json.Marshal(value)
		if err != nil {
			return prop
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return prop
		}
	}

	switch t := m["type"].(type) {
	case string:
		prop.Type = api.PropertyType{t}
	case []string:
		prop.Type = api.PropertyType(t)
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok {
				prop.Type = append(prop.Type, s)
			}
		}
	}

	if desc, ok := m["description"].(string); ok {
		prop.Description = desc
	}

	switch e := m["enum"].(type) {
	case []any:
		prop.Enum = e
	case []string:
		for _, v := range e {
			prop.Enum = append(prop.Enum, v)
		}
	}

	if items, ok := m["items"]; ok {
		prop.Items = items
	}

	if anyOf, ok := m["anyOf"].([]any); ok {
		for _, item := range anyOf {
			prop.AnyOf = append(prop.AnyOf, ollamaProperty(item))
		}
	}

	return prop
}

// ToOpenAITools converts MCP tools to the OpenAI chat completions format,
// which OpenRouter shares.
func ToOpenAITools(tools []mcptypes.Tool) []openai.ChatCompletionToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	out := make([]openai.ChatCompletionToolUnionParam, len(tools))
	for i, tool := range tools {
		out[i] = openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        tool.Name,
			Description: openai.String(tool.Description),
			Parameters:  openai.FunctionParameters(schemaMap(tool.InputSchema)),
		})
	}
	return out
}

// ToAnthropicTools converts MCP tools to Anthropic tool definitions.
func ToAnthropicTools(tools []mcptypes.Tool) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		schema := anthropic.ToolInputSchemaParam{
			Properties: tool.InputSchema.Properties,
		}
		if len(tool.InputSchema.Required) > 0 {
			schema.Required = tool.InputSchema.Required
		}
		if tool.InputSchema.Defs != nil {
			schema.ExtraFields = map[string]any{"$defs": tool.InputSchema.Defs}
		}

		out[i] = anthropic.ToolUnionParamOfTool(schema, tool.Name)
		if tool.Description != "" {
			out[i].OfTool.Description = anthropic.String(tool.Description)
		}
	}
	return out
}

// ToGeminiTools groups MCP tools into a single Gemini tool holding one
// function declaration per entry.
func ToGeminiTools(tools []mcptypes.Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 tool.Name,
			Description:          tool.Description,
			ParametersJsonSchema: schemaMap(tool.InputSchema),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
