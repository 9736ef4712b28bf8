package provider

import (
	"encoding/json"

	"hackmate/model"

	"github.com/ollama/ollama/api"
)

// ParseToolArguments parses a JSON argument string into a map. Malformed
// input yields an empty map so argument validation reports it downstream.
func ParseToolArguments(argsJSON string) map[string]any {
	args := make(map[string]any)
	if argsJSON == "" {
		return args
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return make(map[string]any)
	}
	return args
}

// ConvertToOllamaMessages maps hackmate messages to Ollama messages. Tool
// outputs keep the tool role, which Ollama accepts natively.
func ConvertToOllamaMessages(messages []model.Message) []api.Message {
	out := make([]api.Message, len(messages))
	for i, msg := range messages {
		out[i] = api.Message{Role: msg.Role, Content: msg.Content}
		if msg.Role == model.RoleTool {
			out[i].ToolName = msg.ToolName
		}
	}
	return out
}

// ConvertToProviderToolCalls converts Ollama tool calls. Returns nil for an
// empty input.
func ConvertToProviderToolCalls(calls []api.ToolCall) []model.ToolCall {
	if len(calls) == 0 {
		return nil
	}

	out := make([]model.ToolCall, len(calls))
	for i, call := range calls {
		args := map[string]any(call.Function.Arguments)
		if args == nil {
			args = map[string]any{}
		}
		out[i] = model.ToolCall{Name: call.Function.Name, Arguments: args}
	}
	return out
}

// ConvertFromProviderToolCalls is the inverse of ConvertToProviderToolCalls.
func ConvertFromProviderToolCalls(calls []model.ToolCall) []api.ToolCall {
	if len(calls) == 0 {
		return nil
	}

	out := make([]api.ToolCall, len(calls))
	for i, call := range calls {
		out[i] = api.ToolCall{
			Function: api.ToolCallFunction{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		}
	}
	return out
}
