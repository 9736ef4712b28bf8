package tools

import (
	"errors"
	"fmt"

	"hackmate/model"
	"hackmate/search"
	"hackmate/storage"
)

// ToolError is a failure with a user-facing message.
type ToolError struct {
	Kind    model.ErrorKind
	Message string
	Err     error
}

func (e *ToolError) Error() string { return e.Message }

func (e *ToolError) Unwrap() error { return e.Err }

func failf(kind model.ErrorKind, err error, format string, args ...any) *ToolError {
	return &ToolError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

var kindBySentinel = []struct {
	err  error
	kind model.ErrorKind
	msg  string
}{
	{storage.ErrNotFound, model.KindNotFound, "I couldn't find that."},
	{storage.ErrAlreadyFriends, model.KindAlreadyFriends, "You're already friends."},
	{storage.ErrSelfTarget, model.KindSelfTarget, "You can't do that to yourself."},
	{storage.ErrDuplicateRequest, model.KindDuplicateRequest, "There's already a pending request for that."},
	{storage.ErrAlreadyMember, model.KindAlreadyMember, "They're already on that team."},
	{storage.ErrNotTeamLeader, model.KindNotTeamLeader, "Only the team leader can do that."},
	{storage.ErrDuplicateTeam, model.KindDuplicateTeam, "A team with that name already exists in this hackathon."},
	{search.ErrUnavailable, model.KindUnavailable, "Web search isn't available right now."},
}

// classify maps an execution error onto an ErrorKind and a short message.
func classify(err error) (model.ErrorKind, string) {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind, te.Message
	}
	for _, s := range kindBySentinel {
		if errors.Is(err, s.err) {
			return s.kind, s.msg
		}
	}
	return model.KindStorage, "Something went wrong while saving that. Please try again."
}
