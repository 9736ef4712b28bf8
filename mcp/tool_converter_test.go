package mcp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTools() []mcptypes.Tool {
	return []mcptypes.Tool{
		mcptypes.NewTool("send_friend_request",
			mcptypes.WithDescription("Send a friend request"),
			mcptypes.WithString("username", mcptypes.Required(), mcptypes.Description("Target username")),
		),
		mcptypes.NewTool("create_listing",
			mcptypes.WithDescription("Post a listing"),
			mcptypes.WithString("title", mcptypes.Required()),
			mcptypes.WithString("category", mcptypes.Enum("team", "skills")),
		),
	}
}

func TestToOllamaTools(t *testing.T) {
	got := ToOllamaTools(sampleTools())
	require.Len(t, got, 2)

	assert.Equal(t, "function", got[0].Type)
	assert.Equal(t, "send_friend_request", got[0].Function.Name)
	assert.Equal(t, "object", got[0].Function.Parameters.Type)
	assert.Equal(t, []string{"username"}, got[0].Function.Parameters.Required)

	username := got[0].Function.Parameters.Properties["username"]
	assert.Equal(t, api.PropertyType{"string"}, username.Type)
	assert.Equal(t, "Target username", username.Description)

	category := got[1].Function.Parameters.Properties["category"]
	if diff := cmp.Diff([]any{"team", "skills"}, category.Enum); diff != "" {
		t.Errorf("enum mismatch (-want +got):\n%s", diff)
	}
}

func TestOllamaPropertyTypeUnion(t *testing.T) {
	prop := ollamaProperty(map[string]any{
		"type":  []any{"string", "null"},
		"anyOf": []any{map[string]any{"type": "number"}},
	})
	assert.Equal(t, api.PropertyType{"string", "null"}, prop.Type)
	require.Len(t, prop.AnyOf, 1)
	assert.Equal(t, api.PropertyType{"number"}, prop.AnyOf[0].Type)
}

func TestToOpenAITools(t *testing.T) {
	assert.Nil(t, ToOpenAITools(nil))

	got := ToOpenAITools(sampleTools())
	require.Len(t, got, 2)
	require.NotNil(t, got[0].OfFunction)

	fn := got[0].OfFunction.Function
	assert.Equal(t, "send_friend_request", fn.Name)
	assert.Equal(t, "object", fn.Parameters["type"])
	assert.Equal(t, []string{"username"}, fn.Parameters["required"])
}

func TestToAnthropicTools(t *testing.T) {
	assert.Nil(t, ToAnthropicTools(nil))

	got := ToAnthropicTools(sampleTools())
	require.Len(t, got, 2)
	require.NotNil(t, got[1].OfTool)
	assert.Equal(t, "create_listing", got[1].OfTool.Name)
	assert.Equal(t, []string{"title"}, got[1].OfTool.InputSchema.Required)
}

func TestToGeminiTools(t *testing.T) {
	assert.Nil(t, ToGeminiTools(nil))

	got := ToGeminiTools(sampleTools())
	require.Len(t, got, 1)
	require.Len(t, got[0].FunctionDeclarations, 2)

	decl := got[0].FunctionDeclarations[0]
	assert.Equal(t, "send_friend_request", decl.Name)
	schema, ok := decl.ParametersJsonSchema.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", schema["type"])
}
