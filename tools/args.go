package tools

import (
	"fmt"
	"strings"
)

// Args is implemented by each tool's argument struct. Together the structs
// form a union keyed by tool name; the registry decodes a call's raw argument
// map into the struct registered for that name.
type Args interface {
	Validate() error
}

// UsernameArgs targets another user; a leading @ is accepted.
type UsernameArgs struct {
	Username string `json:"username"`
}

func (a *UsernameArgs) Validate() error {
	a.Username = strings.TrimPrefix(strings.TrimSpace(a.Username), "@")
	return required("username", a.Username)
}

// CreateTeamArgs are the arguments of create_team.
type CreateTeamArgs struct {
	TeamName      string `json:"team_name"`
	HackathonSlug string `json:"hackathon_slug"`
	Description   string `json:"description,omitempty"`
}

func (a *CreateTeamArgs) Validate() error {
	a.TeamName = strings.TrimSpace(a.TeamName)
	a.HackathonSlug = strings.ToLower(strings.TrimSpace(a.HackathonSlug))
	if err := required("team_name", a.TeamName); err != nil {
		return err
	}
	if len(a.TeamName) > 64 {
		return fmt.Errorf("team_name must be at most 64 characters")
	}
	return required("hackathon_slug", a.HackathonSlug)
}

// InviteMemberArgs are the arguments of invite_member.
type InviteMemberArgs struct {
	TeamName string `json:"team_name"`
	Username string `json:"username"`
}

func (a *InviteMemberArgs) Validate() error {
	a.TeamName = strings.TrimSpace(a.TeamName)
	a.Username = strings.TrimPrefix(strings.TrimSpace(a.Username), "@")
	if err := required("team_name", a.TeamName); err != nil {
		return err
	}
	return required("username", a.Username)
}

// CreateListingArgs are the arguments of create_listing.
type CreateListingArgs struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

func (a *CreateListingArgs) Validate() error {
	a.Title = strings.TrimSpace(a.Title)
	a.Description = strings.TrimSpace(a.Description)
	a.Category = strings.ToLower(strings.TrimSpace(a.Category))
	if err := required("title", a.Title); err != nil {
		return err
	}
	return required("description", a.Description)
}

// QueryArgs is a free-text query with an optional result limit (default 5,
// at most 20).
type QueryArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (a *QueryArgs) Validate() error {
	a.Query = strings.TrimSpace(a.Query)
	if a.Limit <= 0 || a.Limit > 20 {
		a.Limit = 5
	}
	return required("query", a.Query)
}

// ListTeamsArgs optionally narrows list_teams to one hackathon.
type ListTeamsArgs struct {
	HackathonSlug string `json:"hackathon_slug,omitempty"`
}

func (a *ListTeamsArgs) Validate() error {
	a.HackathonSlug = strings.ToLower(strings.TrimSpace(a.HackathonSlug))
	return nil
}

// NoArgs is used by tools that take no arguments.
type NoArgs struct{}

func (*NoArgs) Validate() error { return nil }

func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}
