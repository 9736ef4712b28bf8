package agent

// State is a stage of one assistant turn.
type State int

const (
	StateIdle State = iota
	StateFiltering
	StateModeling
	StatePlainReply
	StateToolSelected
	StateConfirmationPending
	StateSummarizing
)

var stateNames = [...]string{
	StateIdle:                "idle",
	StateFiltering:           "filtering",
	StateModeling:            "modeling",
	StatePlainReply:          "plain_reply",
	StateToolSelected:        "tool_selected",
	StateConfirmationPending: "confirmation_pending",
	StateSummarizing:         "summarizing",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
