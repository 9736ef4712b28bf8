package testutil

import (
	"time"

	"hackmate/model"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// TestMessages returns a short sample conversation.
func TestMessages() []model.Message {
	now := time.Now()
	return []model.Message{
		{Role: model.RoleUser, Content: "Who is on my team?", CreatedAt: now},
		{Role: model.RoleAssistant, Content: "You lead Night Owls with @bob.", CreatedAt: now},
		{Role: model.RoleUser, Content: "Invite @carol too", CreatedAt: now},
	}
}

// SingleUserMessage returns a single user message.
func SingleUserMessage(content string) []model.Message {
	return []model.Message{{Role: model.RoleUser, Content: content, CreatedAt: time.Now()}}
}

// TestTools returns a small tool set for conversion tests.
func TestTools() []mcptypes.Tool {
	return []mcptypes.Tool{
		mcptypes.NewTool("search_users",
			mcptypes.WithDescription("Find users"),
			mcptypes.WithString("query", mcptypes.Required()),
		),
	}
}
