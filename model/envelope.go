package model

// AssistantRequest is the body of POST /api/assistant.
type AssistantRequest struct {
	Message             string          `json:"message"`
	ConversationHistory []Message       `json:"conversationHistory,omitempty"`
	PendingConfirmation bool            `json:"pendingConfirmation,omitempty"`
	ConfirmedAction     *PendingAction  `json:"confirmedAction,omitempty"`
	RemainingTasks      []PendingAction `json:"remainingTasks,omitempty"`
	CurrentContextID    string          `json:"currentContextId,omitempty"`
	Stream              bool            `json:"stream,omitempty"`
}

// AssistantResponse is the non-streamed reply envelope. Exactly one of
// Response (optionally with PendingConfirmation) or Error is meaningful.
type AssistantResponse struct {
	Response            string          `json:"response,omitempty"`
	PendingConfirmation *PendingAction  `json:"pendingConfirmation,omitempty"`
	RemainingTasks      []PendingAction `json:"remainingTasks,omitempty"`
	ActionCompleted     string          `json:"actionCompleted,omitempty"`
	Result              *ToolResult     `json:"result,omitempty"`
	Error               string          `json:"error,omitempty"`
}

// MessagesResponse is the body of GET /api/assistant/messages.
type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

// StreamChunk is the JSON payload of one streamed frame. A frame carries
// either content deltas or an error.
type StreamChunk struct {
	Choices []StreamChoice `json:"choices,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type StreamChoice struct {
	Delta StreamDelta `json:"delta"`
}

type StreamDelta struct {
	Content string `json:"content"`
}

// StreamDone is the payload of the terminal frame.
const StreamDone = "[DONE]"

// ContentChunk wraps a text fragment.
func ContentChunk(fragment string) StreamChunk {
	return StreamChunk{Choices: []StreamChoice{{Delta: StreamDelta{Content: fragment}}}}
}

// Content concatenates the chunk's deltas.
func (c StreamChunk) Content() string {
	if len(c.Choices) == 1 {
		return c.Choices[0].Delta.Content
	}
	var s string
	for _, ch := range c.Choices {
		s += ch.Delta.Content
	}
	return s
}
