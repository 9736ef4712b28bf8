package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hackmate/model"
	"hackmate/storage"
)

const preamble = `You are the hackmate assistant inside a hackathon community app.
You help %s (@%s) manage friends, teams, hackathons and listings.
Today is %s.

Rules:
- Use a tool whenever the user asks to look something up or change something.
- Never ask the user to confirm in text; actions that need confirmation are confirmed by the app.
- Usernames are written without the @ in tool arguments.
- Only act for the current user. Refuse anything about other users' private data.
- Keep replies short and friendly.`

const summaryInstruction = `The tools above have run. Tell the user what happened in one or two short sentences. Do not call tools. Do not invent results.`

func systemPrompt(user storage.User, now time.Time) model.Message {
	name := user.DisplayName
	if name == "" {
		name = user.Username
	}
	return model.Message{
		Role:    model.RoleSystem,
		Content: fmt.Sprintf(preamble, name, user.Username, now.Format("Monday, 2 January 2006")),
	}
}

// recentHistory keeps the newest limit user and assistant messages.
func recentHistory(history []model.Message, limit int) []model.Message {
	out := make([]model.Message, 0, len(history))
	for _, m := range history {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, model.Message{Role: m.Role, Content: m.Content})
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func toolMessage(r model.ToolResult) model.Message {
	body := map[string]any{"success": r.Success}
	if r.Success {
		body["result"] = r.Payload
		body["summary"] = r.Summary
	} else {
		body["error"] = r.ErrorMessage
		body["kind"] = r.ErrorKind
	}
	raw, err := json.Marshal(body)
	if err != nil {
		raw = []byte(fmt.Sprintf(`{"success":%t,"summary":%q}`, r.Success, r.Summary))
	}
	return model.Message{Role: model.RoleTool, ToolName: r.ToolName, Content: string(raw)}
}

func joinSummaries(results []model.ToolResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Summary != "" {
			parts = append(parts, r.Summary)
		}
	}
	return strings.Join(parts, "\n\n")
}
