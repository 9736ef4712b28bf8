package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hackmate/model"

	"gopkg.in/yaml.v3"
)

// ExportFormat selects the transcript export encoding.
type ExportFormat string

const (
	FormatJSON     ExportFormat = "json"
	FormatYAML     ExportFormat = "yaml"
	FormatMarkdown ExportFormat = "markdown"
)

// Transcript is the export document for one user's conversation.
type Transcript struct {
	Username   string          `json:"username" yaml:"username"`
	ExportedAt time.Time       `json:"exported_at" yaml:"exported_at"`
	Messages   []model.Message `json:"messages" yaml:"messages"`
}

func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// WriteTranscript encodes t to w in the requested format.
func WriteTranscript(w io.Writer, t Transcript, format ExportFormat) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("failed to marshal transcript: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("failed to marshal transcript: %w", err)
		}
		return enc.Close()
	case FormatMarkdown:
		return writeMarkdown(w, t)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
	return nil
}

func writeMarkdown(w io.Writer, t Transcript) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Assistant transcript for @%s\n\n", t.Username)
	fmt.Fprintf(&b, "_Exported %s_\n", t.ExportedAt.Format(time.RFC1123))
	for _, m := range t.Messages {
		who := "You"
		if m.Role == model.RoleAssistant {
			who = "Assistant"
		}
		fmt.Fprintf(&b, "\n### %s · %s\n\n%s\n", who, m.CreatedAt.Format("2006-01-02 15:04"), m.Content)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// ExportToFile writes the transcript to path with 0600 permissions.
func ExportToFile(path string, t Transcript, format ExportFormat) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()
	return WriteTranscript(f, t, format)
}

// GenerateExportPath builds a timestamped file name in dir.
func GenerateExportPath(dir, username string, format ExportFormat) string {
	ext := map[ExportFormat]string{FormatJSON: "json", FormatYAML: "yaml", FormatMarkdown: "md"}[format]
	name := fmt.Sprintf("hackmate-%s-%s.%s", SanitizeFilename(username), time.Now().Format("20060102-150405"), ext)
	return filepath.Join(dir, name)
}

// SanitizeFilename replaces characters that are awkward in file names.
func SanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ', '\n', '\r':
			return '-'
		}
		return r
	}, name)
	name = strings.Trim(name, "-.")
	if len(name) > 50 {
		name = name[:50]
	}
	if name == "" {
		name = "transcript"
	}
	return name
}
