package model

import (
	"errors"
	"fmt"
)

// ErrUpstreamUnavailable marks model-provider failures the user should retry
// later: rate limits, 5xx responses and refused connections.
var ErrUpstreamUnavailable = errors.New("model provider unavailable")

// UpstreamError carries the provider details behind ErrUpstreamUnavailable.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: upstream unavailable: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }
