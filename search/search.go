// Package search provides the external web-search backends behind the
// web_search tool.
package search

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no backend is configured or the backend
// cannot be reached.
var ErrUnavailable = errors.New("web search unavailable")

type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Backend runs a web search.
type Backend interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Disabled is the Backend used when search is turned off.
type Disabled struct{}

func (Disabled) Search(context.Context, string, int) ([]Result, error) {
	return nil, ErrUnavailable
}
