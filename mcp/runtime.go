package mcp

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runtime describes the interpreter a stdio MCP server is launched with.
type Runtime struct {
	Name    string
	Command string
	Path    string
}

var runtimeNames = map[string]string{
	"node":    "Node.js",
	"npx":     "Node.js",
	"python":  "Python",
	"python3": "Python",
	"uvx":     "uv",
	"go":      "Go",
	"docker":  "Docker",
}

// CheckRuntime resolves the launcher of a stdio MCP server on PATH so a
// missing interpreter is reported before the process is spawned.
func CheckRuntime(command string) (*Runtime, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, fmt.Errorf("no mcp command configured")
	}
	base := filepath.Base(command)
	name, ok := runtimeNames[base]
	if !ok {
		name = base
	}

	path, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("%s not found (looked for %q on PATH)", name, command)
	}
	return &Runtime{Name: name, Command: command, Path: path}, nil
}
