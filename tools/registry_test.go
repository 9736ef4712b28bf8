package tools

import (
	"context"
	"testing"

	"hackmate/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCatalogue(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	want := map[string]bool{
		"send_friend_request":   true,
		"accept_friend_request": true,
		"create_team":           true,
		"invite_member":         true,
		"create_listing":        true,
		"search_users":          false,
		"list_teams":            false,
		"list_friends":          false,
		"pending_requests":      false,
		"web_search":            false,
	}
	tools := r.Tools()
	require.Len(t, tools, len(want))
	for _, tool := range tools {
		confirm, ok := want[tool.Name]
		require.True(t, ok, "unexpected tool %s", tool.Name)
		def, _ := r.Lookup(tool.Name)
		assert.Equal(t, confirm, def.RequiresConfirmation, tool.Name)
		assert.Equal(t, "object", tool.InputSchema.Type)
		assert.NotEmpty(t, tool.Description)
	}
	assert.Len(t, r.ReadOnly(), 5)

	def, _ := r.Lookup("create_team")
	assert.ElementsMatch(t, []string{"team_name", "hackathon_slug"}, def.Tool.InputSchema.Required)
}

func TestRegisterRejectsConfirmationWithoutTemplate(t *testing.T) {
	r := &Registry{defs: make(map[string]*Definition)}
	err := register(r, toolSpec[NoArgs, *NoArgs]{
		name:                 "dangerous",
		requiresConfirmation: true,
		run: func(context.Context, Env, storage.User, *NoArgs) (any, string, error) {
			return nil, "", nil
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no confirmation template")
	_, ok := r.Lookup("dangerous")
	assert.False(t, ok)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := &Registry{defs: make(map[string]*Definition)}
	spec := toolSpec[NoArgs, *NoArgs]{
		name: "twice",
		run: func(context.Context, Env, storage.User, *NoArgs) (any, string, error) {
			return nil, "", nil
		},
	}
	require.NoError(t, register(r, spec))
	assert.Error(t, register(r, spec))
}

func TestDecodeValidates(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	def, _ := r.Lookup("create_team")

	args, err := def.Decode(map[string]any{"team_name": "  Night Owls ", "hackathon_slug": "Spring-2026"})
	require.NoError(t, err)
	typed := args.(*CreateTeamArgs)
	assert.Equal(t, "Night Owls", typed.TeamName)
	assert.Equal(t, "spring-2026", typed.HackathonSlug)

	_, err = def.Decode(map[string]any{"team_name": "x"})
	assert.ErrorContains(t, err, "hackathon_slug is required")

	_, err = def.Decode(map[string]any{"team_name": 42, "hackathon_slug": "h"})
	assert.Error(t, err)

	msg, err := def.ConfirmationMessage(typed)
	require.NoError(t, err)
	assert.Equal(t, `I'll create a team called "Night Owls" for the hackathon. Should I proceed?`, msg)
}

func TestQueryArgsLimitDefaults(t *testing.T) {
	a := &QueryArgs{Query: " go ", Limit: 0}
	require.NoError(t, a.Validate())
	assert.Equal(t, 5, a.Limit)
	assert.Equal(t, "go", a.Query)

	a = &QueryArgs{Query: "go", Limit: 50}
	require.NoError(t, a.Validate())
	assert.Equal(t, 5, a.Limit)
}
