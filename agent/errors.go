package agent

import (
	"errors"

	"hackmate/guardrail"
)

var (
	// ErrBlocked is returned when the guardrail rejects a turn.
	ErrBlocked = errors.New("request blocked by guardrail")

	// ErrInvalidRequest is returned for requests with nothing to act on.
	ErrInvalidRequest = errors.New("invalid assistant request")
)

// UnavailableMessage is shown when the model provider cannot be reached.
const UnavailableMessage = "The assistant is temporarily unavailable. Please try again shortly."

// BlockedError carries the guardrail verdict behind ErrBlocked.
type BlockedError struct {
	Verdict guardrail.Verdict
}

func (e *BlockedError) Error() string {
	return "request blocked by guardrail (" + string(e.Verdict.Category) + ")"
}

func (e *BlockedError) Is(target error) bool { return target == ErrBlocked }
