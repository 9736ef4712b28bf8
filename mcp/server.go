package mcp

import (
	"context"
	"encoding/json"
	"os"

	"hackmate/model"
	"hackmate/storage"
	"hackmate/tools"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const serverName = "hackmate"

// NewServer exposes the executor's read-only tools to MCP hosts, acting as
// user. Confirmation-required tools are never listed: an MCP host has no
// way to show hackmate's confirmation step.
func NewServer(exec *tools.Executor, user storage.User, version string, log *zap.Logger) *server.MCPServer {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("mcp").With(zap.String("user", user.Username))

	s := server.NewMCPServer(serverName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	for _, def := range exec.Registry().ReadOnly() {
		s.AddTool(def.Tool, toolHandler(exec, user, def.Name, log))
	}

	return s
}

func toolHandler(exec *tools.Executor, user storage.User, name string, log *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		out := exec.Execute(ctx, user, model.ToolCall{Name: name, Arguments: req.GetArguments()}, false)
		result := out.Result
		log.Debug("tool call served", zap.String("tool", name), zap.Bool("success", result.Success))

		if !result.Success {
			return mcptypes.NewToolResultError(result.Summary), nil
		}

		payload, err := json.Marshal(result.Payload)
		if err != nil {
			return mcptypes.NewToolResultErrorFromErr("failed to encode result", err), nil
		}

		return &mcptypes.CallToolResult{
			Content: []mcptypes.Content{
				mcptypes.NewTextContent(result.Summary),
				mcptypes.NewTextContent(string(payload)),
			},
			StructuredContent: result.Payload,
		}, nil
	}
}

// ServeStdio serves s on stdin/stdout until ctx is cancelled or the host
// disconnects.
func ServeStdio(ctx context.Context, s *server.MCPServer) error {
	stdio := server.NewStdioServer(s)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}
