package model

// ErrorKind classifies a failed tool execution.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindAlreadyFriends   ErrorKind = "already_friends"
	KindSelfTarget       ErrorKind = "self_target"
	KindDuplicateRequest ErrorKind = "duplicate_request"
	KindAlreadyMember    ErrorKind = "already_member"
	KindNotTeamLeader    ErrorKind = "not_team_leader"
	KindDuplicateTeam    ErrorKind = "duplicate_team"
	KindInvalidArguments ErrorKind = "invalid_arguments"
	KindUnknownTool      ErrorKind = "unknown_tool"
	KindUnavailable      ErrorKind = "unavailable"
	KindStorage          ErrorKind = "storage"
)

// ToolResult is the outcome of one tool execution. Executors always produce
// one; failures are data, not errors.
type ToolResult struct {
	ToolName     string    `json:"toolName"`
	Success      bool      `json:"success"`
	Payload      any       `json:"payload,omitempty"`
	ErrorKind    ErrorKind `json:"errorKind,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`

	// Summary is a human-readable sentence describing the outcome.
	Summary string `json:"summary"`
}
