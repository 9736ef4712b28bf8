package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"hackmate/config"
	"hackmate/search"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

const protocolVersion = "2025-06-18"

// SearchBackend implements search.Backend by calling a tool on an external
// MCP server, either a local stdio process or a remote SSE endpoint.
type SearchBackend struct {
	client *client.Client
	tool   string
	cmd    *exec.Cmd
	log    *zap.Logger
}

// NewSearchBackend starts (or connects to) the configured MCP server and
// checks that it offers the configured search tool.
func NewSearchBackend(ctx context.Context, cfg config.SearchConfig, log *zap.Logger) (*SearchBackend, error) {
	if cfg.MCPCommand == "" {
		return nil, fmt.Errorf("mcp search backend requires mcp_command")
	}

	var (
		c   *client.Client
		cmd *exec.Cmd
		err error
	)
	if strings.HasPrefix(cfg.MCPCommand, "http://") || strings.HasPrefix(cfg.MCPCommand, "https://") {
		c, err = client.NewSSEMCPClient(cfg.MCPCommand)
		if err == nil {
			err = c.Start(ctx)
		}
	} else {
		if _, err := CheckRuntime(cfg.MCPCommand); err != nil {
			return nil, fmt.Errorf("mcp search backend: %w", err)
		}
		c, err = client.NewStdioMCPClientWithOptions(cfg.MCPCommand, os.Environ(), cfg.MCPArgs,
			transport.WithCommandFunc(func(ctx context.Context, command string, env []string, args []string) (*exec.Cmd, error) {
				cmd = exec.CommandContext(ctx, command, args...)
				cmd.Env = env
				return cmd, nil
			}),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start mcp search server %s: %w", cfg.MCPCommand, err)
	}

	b, err := newSearchBackend(ctx, c, cfg.MCPTool, log)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	b.cmd = cmd
	return b, nil
}

func newSearchBackend(ctx context.Context, c *client.Client, tool string, log *zap.Logger) (*SearchBackend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if tool == "" {
		tool = "web_search"
	}

	_, err := c.Initialize(ctx, mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: protocolVersion,
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo:      mcptypes.Implementation{Name: serverName, Version: "1.0.0"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mcp search server: %w", err)
	}

	listed, err := c.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list mcp tools: %w", err)
	}
	found := false
	for _, t := range listed.Tools {
		if t.Name == tool {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("mcp search server has no %q tool", tool)
	}

	return &SearchBackend{client: c, tool: tool, log: log.Named("mcp-search")}, nil
}

func (b *SearchBackend) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	res, err := b.client.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      b.tool,
			Arguments: map[string]any{"query": query, "limit": limit},
		},
	})
	if err != nil {
		b.log.Warn("search call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", search.ErrUnavailable, err)
	}
	if res.IsError {
		return nil, fmt.Errorf("%w: %s", search.ErrUnavailable, joinText(res.Content))
	}

	results := decodeResults(res)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Close shuts the client down, killing a local server process that does not
// exit within a second.
func (b *SearchBackend) Close() error {
	done := make(chan error, 1)
	go func() { done <- b.client.Close() }()

	select {
	case err := <-done:
		return err
	case <-time.After(time.Second):
		if b.cmd != nil && b.cmd.Process != nil {
			b.log.Warn("mcp search server did not exit, killing", zap.Int("pid", b.cmd.Process.Pid))
			return b.cmd.Process.Kill()
		}
		return nil
	}
}

type resultsEnvelope struct {
	Results []search.Result `json:"results"`
}

// decodeResults accepts structured content, a JSON text block (either a
// list or {"results": [...]}) or plain text blocks, in that order.
func decodeResults(res *mcptypes.CallToolResult) []search.Result {
	if res.StructuredContent != nil {
		if raw, err := json.Marshal(res.StructuredContent); err == nil {
			if results, ok := parseResults(raw); ok {
				return results
			}
		}
	}

	var results []search.Result
	for _, c := range res.Content {
		text, ok := mcptypes.AsTextContent(c)
		if !ok {
			continue
		}
		if parsed, ok := parseResults([]byte(text.Text)); ok {
			results = append(results, parsed...)
			continue
		}
		if s := strings.TrimSpace(text.Text); s != "" {
			results = append(results, search.Result{Title: firstLine(s), Snippet: s})
		}
	}
	return results
}

func parseResults(raw []byte) ([]search.Result, bool) {
	var list []search.Result
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, true
	}
	var env resultsEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Results != nil {
		return env.Results, true
	}
	return nil, false
}

func joinText(content []mcptypes.Content) string {
	var parts []string
	for _, c := range content {
		if text, ok := mcptypes.AsTextContent(c); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "; ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
