package mcp

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"hackmate/search"
	"hackmate/storage"
	"hackmate/tools"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startInProcess(t *testing.T, s *server.MCPServer) *client.Client {
	t.Helper()
	ctx := context.Background()

	c, err := client.NewInProcessClient(s)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { c.Close() })
	return c
}

func initialize(t *testing.T, c *client.Client) {
	t.Helper()
	_, err := c.Initialize(context.Background(), mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: protocolVersion,
			ClientInfo:      mcptypes.Implementation{Name: "test", Version: "0"},
		},
	})
	require.NoError(t, err)
}

func newExecutor(t *testing.T) (*tools.Executor, *storage.Store, storage.User) {
	t.Helper()
	ctx := context.Background()

	store, err := storage.Open(filepath.Join(t.TempDir(), "mcp.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg, err := tools.NewRegistry()
	require.NoError(t, err)

	alice, err := store.CreateUser(ctx, "alice", "Alice A")
	require.NoError(t, err)
	_, err = store.CreateHackathon(ctx, "spring-2026", "Spring Hack 2026")
	require.NoError(t, err)
	_, err = store.CreateTeam(ctx, alice.ID, "spring-2026", "Night Owls", "")
	require.NoError(t, err)

	return tools.NewExecutor(reg, store, search.Disabled{}, nil), store, alice
}

func TestServerListsOnlyReadOnlyTools(t *testing.T) {
	exec, _, alice := newExecutor(t)
	c := startInProcess(t, NewServer(exec, alice, "test", nil))
	initialize(t, c)

	listed, err := c.ListTools(context.Background(), mcptypes.ListToolsRequest{})
	require.NoError(t, err)

	var names []string
	for _, tool := range listed.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"list_friends", "list_teams", "pending_requests", "search_users", "web_search"}, names)
}

func TestServerCallsToolAsUser(t *testing.T) {
	exec, _, alice := newExecutor(t)
	c := startInProcess(t, NewServer(exec, alice, "test", nil))
	initialize(t, c)

	res, err := c.CallTool(context.Background(), mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{Name: "list_teams", Arguments: map[string]any{}},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)

	text, ok := mcptypes.AsTextContent(res.Content[0])
	require.True(t, ok)
	assert.Contains(t, text.Text, "Night Owls")
}

func TestServerReportsToolFailure(t *testing.T) {
	exec, _, alice := newExecutor(t)
	c := startInProcess(t, NewServer(exec, alice, "test", nil))
	initialize(t, c)

	res, err := c.CallTool(context.Background(), mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{Name: "web_search", Arguments: map[string]any{"query": "go"}},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func searchServer(handler server.ToolHandlerFunc) *server.MCPServer {
	s := server.NewMCPServer("search", "test", server.WithToolCapabilities(false))
	s.AddTool(mcptypes.NewTool("web_search", mcptypes.WithString("query", mcptypes.Required())), handler)
	return s
}

func TestSearchBackendDecodesJSONText(t *testing.T) {
	s := searchServer(func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		assert.Equal(t, "hackathon teams", req.GetString("query", ""))
		return mcptypes.NewToolResultText(`{"results":[{"title":"A","url":"https://a.example"},{"title":"B","url":"https://b.example"},{"title":"C","url":"https://c.example"}]}`), nil
	})
	c := startInProcess(t, s)

	b, err := newSearchBackend(context.Background(), c, "web_search", nil)
	require.NoError(t, err)

	results, err := b.Search(context.Background(), "hackathon teams", 2)
	require.NoError(t, err)
	assert.Equal(t, []search.Result{
		{Title: "A", URL: "https://a.example"},
		{Title: "B", URL: "https://b.example"},
	}, results)
}

func TestSearchBackendPlainText(t *testing.T) {
	s := searchServer(func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		return mcptypes.NewToolResultText("Go 1.25 released\nDetails here"), nil
	})
	c := startInProcess(t, s)

	b, err := newSearchBackend(context.Background(), c, "", nil)
	require.NoError(t, err)

	results, err := b.Search(context.Background(), "go", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Go 1.25 released", results[0].Title)
}

func TestSearchBackendToolError(t *testing.T) {
	s := searchServer(func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		return mcptypes.NewToolResultError("quota exceeded"), nil
	})
	c := startInProcess(t, s)

	b, err := newSearchBackend(context.Background(), c, "web_search", nil)
	require.NoError(t, err)

	_, err = b.Search(context.Background(), "go", 5)
	assert.ErrorIs(t, err, search.ErrUnavailable)
}

func TestSearchBackendMissingTool(t *testing.T) {
	c := startInProcess(t, searchServer(func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		return nil, nil
	}))

	_, err := newSearchBackend(context.Background(), c, "brave_search", nil)
	assert.ErrorContains(t, err, "brave_search")
}
