package model

import "time"

// Message roles. Only user and assistant messages are persisted; system and
// tool messages exist only inside a single model exchange.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Message is one transcript entry.
type Message struct {
	ID        string    `json:"id,omitempty" yaml:"id,omitempty"`
	Role      string    `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"createdAt,omitzero" yaml:"created_at,omitempty"`

	// ToolName labels tool-role messages for providers that want it.
	ToolName string `json:"-" yaml:"-"`
}

// ToolCall is a model's request to invoke a named tool.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// PendingAction is a confirmation-required tool call awaiting the user's
// decision. It is consumed exactly once, by confirming or rejecting it.
type PendingAction struct {
	Name                string         `json:"name"`
	Arguments           map[string]any `json:"arguments"`
	ConfirmationMessage string         `json:"confirmationMessage"`
}

// ToolCall returns the call that executes this action.
func (p PendingAction) ToolCall() ToolCall {
	return ToolCall{Name: p.Name, Arguments: p.Arguments}
}

// TaskQueue is the ordered remainder of a multi-step plan.
type TaskQueue []PendingAction

// Next splits the queue into its head and the rest.
func (q TaskQueue) Next() (PendingAction, TaskQueue, bool) {
	if len(q) == 0 {
		return PendingAction{}, nil, false
	}
	return q[0], q[1:], true
}
