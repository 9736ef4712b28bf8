package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hackmate/model"
	"hackmate/storage"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/sahilm/fuzzy"
)

// NewRegistry builds the registry with every built-in tool.
func NewRegistry() (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition)}
	for _, add := range []func(*Registry) error{
		addSendFriendRequest,
		addAcceptFriendRequest,
		addCreateTeam,
		addInviteMember,
		addCreateListing,
		addSearchUsers,
		addListTeams,
		addListFriends,
		addPendingRequests,
		addWebSearch,
	} {
		if err := add(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func addSendFriendRequest(r *Registry) error {
	return register(r, toolSpec[UsernameArgs, *UsernameArgs]{
		name:        "send_friend_request",
		description: "Send a friend request from the current user to another user.",
		options: []mcptypes.ToolOption{
			mcptypes.WithString("username", mcptypes.Required(), mcptypes.Description("Username of the person to befriend, without the @")),
			mcptypes.WithDestructiveHintAnnotation(false),
		},
		requiresConfirmation: true,
		confirm:              `I'll send a friend request to @{{.Username}}. Should I proceed?`,
		run: func(ctx context.Context, env Env, user storage.User, a *UsernameArgs) (any, string, error) {
			target, err := lookupUser(ctx, env, a.Username)
			if err != nil {
				return nil, "", err
			}
			req, err := env.Store.SendFriendRequest(ctx, user.ID, target.ID)
			if err != nil {
				return nil, "", describeFriendError(err, target.Username)
			}
			req.From, req.To = user.Username, target.Username
			return req, fmt.Sprintf("Friend request sent to @%s.", target.Username), nil
		},
	})
}

func addAcceptFriendRequest(r *Registry) error {
	return register(r, toolSpec[UsernameArgs, *UsernameArgs]{
		name:        "accept_friend_request",
		description: "Accept a pending friend request the current user received.",
		options: []mcptypes.ToolOption{
			mcptypes.WithString("username", mcptypes.Required(), mcptypes.Description("Username of the person who sent the request")),
		},
		requiresConfirmation: true,
		confirm:              `I'll accept the friend request from @{{.Username}}. Should I proceed?`,
		run: func(ctx context.Context, env Env, user storage.User, a *UsernameArgs) (any, string, error) {
			sender, err := lookupUser(ctx, env, a.Username)
			if err != nil {
				return nil, "", err
			}
			if err := env.Store.AcceptFriendRequest(ctx, user.ID, sender.ID); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return nil, "", failf(model.KindNotFound, err, "There's no pending friend request from @%s.", sender.Username)
				}
				return nil, "", describeFriendError(err, sender.Username)
			}
			return map[string]string{"friend": sender.Username}, fmt.Sprintf("You're now friends with @%s.", sender.Username), nil
		},
	})
}

func addCreateTeam(r *Registry) error {
	return register(r, toolSpec[CreateTeamArgs, *CreateTeamArgs]{
		name:        "create_team",
		description: "Create a new team for a hackathon with the current user as leader.",
		options: []mcptypes.ToolOption{
			mcptypes.WithString("team_name", mcptypes.Required(), mcptypes.Description("Name of the new team")),
			mcptypes.WithString("hackathon_slug", mcptypes.Required(), mcptypes.Description("Slug of the hackathon, e.g. spring-2026")),
			mcptypes.WithString("description", mcptypes.Description("Optional short team description")),
		},
		requiresConfirmation: true,
		confirm:              `I'll create a team called "{{.TeamName}}" for the hackathon. Should I proceed?`,
		run: func(ctx context.Context, env Env, user storage.User, a *CreateTeamArgs) (any, string, error) {
			team, err := env.Store.CreateTeam(ctx, user.ID, a.HackathonSlug, a.TeamName, a.Description)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				return nil, "", failf(model.KindNotFound, err, "I couldn't find a hackathon called %q.", a.HackathonSlug)
			case errors.Is(err, storage.ErrDuplicateTeam):
				return nil, "", failf(model.KindDuplicateTeam, err, "There's already a team called %q in %s.", a.TeamName, a.HackathonSlug)
			case err != nil:
				return nil, "", err
			}
			return team, fmt.Sprintf("Team %q created for %s. You're the team leader.", team.Name, team.HackathonName), nil
		},
	})
}

func addInviteMember(r *Registry) error {
	return register(r, toolSpec[InviteMemberArgs, *InviteMemberArgs]{
		name:        "invite_member",
		description: "Invite a user to a team the current user leads.",
		options: []mcptypes.ToolOption{
			mcptypes.WithString("team_name", mcptypes.Required(), mcptypes.Description("Name of the team")),
			mcptypes.WithString("username", mcptypes.Required(), mcptypes.Description("Username to invite, without the @")),
		},
		requiresConfirmation: true,
		confirm:              `I'll invite @{{.Username}} to join "{{.TeamName}}". Should I proceed?`,
		run: func(ctx context.Context, env Env, user storage.User, a *InviteMemberArgs) (any, string, error) {
			team, err := env.Store.TeamForMember(ctx, user.ID, a.TeamName)
			if errors.Is(err, storage.ErrNotFound) {
				return nil, "", failf(model.KindNotFound, err, "You're not on a team called %q.", a.TeamName)
			}
			if err != nil {
				return nil, "", err
			}
			if team.LeaderID != user.ID {
				return nil, "", failf(model.KindNotTeamLeader, storage.ErrNotTeamLeader, "Only the leader of %q can invite members.", team.Name)
			}
			invitee, err := lookupUser(ctx, env, a.Username)
			if err != nil {
				return nil, "", err
			}

			invite, err := env.Store.InviteMember(ctx, team.ID, user.ID, invitee.ID)
			switch {
			case errors.Is(err, storage.ErrAlreadyMember):
				return nil, "", failf(model.KindAlreadyMember, err, "@%s is already on %q.", invitee.Username, team.Name)
			case errors.Is(err, storage.ErrDuplicateRequest):
				return nil, "", failf(model.KindDuplicateRequest, err, "@%s already has a pending invite to %q.", invitee.Username, team.Name)
			case err != nil:
				return nil, "", err
			}
			return invite, fmt.Sprintf("Invited @%s to %q.", invitee.Username, team.Name), nil
		},
	})
}

func addCreateListing(r *Registry) error {
	return register(r, toolSpec[CreateListingArgs, *CreateListingArgs]{
		name:        "create_listing",
		description: "Post a listing (e.g. looking for teammates or offering skills) owned by the current user.",
		options: []mcptypes.ToolOption{
			mcptypes.WithString("title", mcptypes.Required(), mcptypes.Description("Listing title")),
			mcptypes.WithString("description", mcptypes.Required(), mcptypes.Description("Listing body")),
			mcptypes.WithString("category", mcptypes.Description("Optional category"), mcptypes.Enum("team", "skills", "project", "other")),
		},
		requiresConfirmation: true,
		confirm:              `I'll post a listing titled "{{.Title}}". Should I proceed?`,
		run: func(ctx context.Context, env Env, user storage.User, a *CreateListingArgs) (any, string, error) {
			l, err := env.Store.CreateListing(ctx, user.ID, a.Title, a.Description, a.Category)
			if err != nil {
				return nil, "", err
			}
			return l, fmt.Sprintf("Your listing %q is live.", l.Title), nil
		},
	})
}

func addSearchUsers(r *Registry) error {
	return register(r, toolSpec[QueryArgs, *QueryArgs]{
		name:        "search_users",
		description: "Find users whose username or display name resembles the query.",
		options: []mcptypes.ToolOption{
			mcptypes.WithString("query", mcptypes.Required(), mcptypes.Description("Partial username or name")),
			mcptypes.WithNumber("limit", mcptypes.Description("Maximum results (default 5)")),
			mcptypes.WithReadOnlyHintAnnotation(true),
		},
		run: func(ctx context.Context, env Env, user storage.User, a *QueryArgs) (any, string, error) {
			users, err := env.Store.ListUsers(ctx)
			if err != nil {
				return nil, "", err
			}
			matches := rankUsers(users, a.Query, user.ID)
			if len(matches) > a.Limit {
				matches = matches[:a.Limit]
			}
			if len(matches) == 0 {
				return matches, fmt.Sprintf("No users match %q.", a.Query), nil
			}
			names := make([]string, len(matches))
			for i, u := range matches {
				names[i] = "@" + u.Username
			}
			return matches, "Found " + strings.Join(names, ", ") + ".", nil
		},
	})
}

func addListTeams(r *Registry) error {
	return register(r, toolSpec[ListTeamsArgs, *ListTeamsArgs]{
		name:        "list_teams",
		description: "List the teams the current user belongs to.",
		options: []mcptypes.ToolOption{
			mcptypes.WithString("hackathon_slug", mcptypes.Description("Only teams in this hackathon")),
			mcptypes.WithReadOnlyHintAnnotation(true),
		},
		run: func(ctx context.Context, env Env, user storage.User, a *ListTeamsArgs) (any, string, error) {
			teams, err := env.Store.ListTeams(ctx, user.ID, a.HackathonSlug)
			if err != nil {
				return nil, "", err
			}
			if len(teams) == 0 {
				return teams, "You're not on any teams yet.", nil
			}
			parts := make([]string, len(teams))
			for i, t := range teams {
				parts[i] = fmt.Sprintf("%s (%s, %s)", t.Name, t.HackathonSlug, t.Role)
			}
			return teams, "Your teams: " + strings.Join(parts, "; ") + ".", nil
		},
	})
}

func addListFriends(r *Registry) error {
	return register(r, toolSpec[NoArgs, *NoArgs]{
		name:        "list_friends",
		description: "List the current user's friends.",
		options:     []mcptypes.ToolOption{mcptypes.WithReadOnlyHintAnnotation(true)},
		run: func(ctx context.Context, env Env, user storage.User, _ *NoArgs) (any, string, error) {
			friends, err := env.Store.ListFriends(ctx, user.ID)
			if err != nil {
				return nil, "", err
			}
			if len(friends) == 0 {
				return friends, "You haven't added any friends yet.", nil
			}
			names := make([]string, len(friends))
			for i, f := range friends {
				names[i] = "@" + f.Username
			}
			return friends, "Your friends: " + strings.Join(names, ", ") + ".", nil
		},
	})
}

type pendingPayload struct {
	Incoming []storage.FriendRequest `json:"incoming"`
	Outgoing []storage.FriendRequest `json:"outgoing"`
}

func addPendingRequests(r *Registry) error {
	return register(r, toolSpec[NoArgs, *NoArgs]{
		name:        "pending_requests",
		description: "Show friend requests waiting on the current user and those the user has sent.",
		options:     []mcptypes.ToolOption{mcptypes.WithReadOnlyHintAnnotation(true)},
		run: func(ctx context.Context, env Env, user storage.User, _ *NoArgs) (any, string, error) {
			in, out, err := env.Store.PendingRequests(ctx, user.ID)
			if err != nil {
				return nil, "", err
			}
			summary := fmt.Sprintf("You have %d incoming and %d outgoing pending friend requests.", len(in), len(out))
			return pendingPayload{Incoming: in, Outgoing: out}, summary, nil
		},
	})
}

func addWebSearch(r *Registry) error {
	return register(r, toolSpec[QueryArgs, *QueryArgs]{
		name:        "web_search",
		description: "Search the web for public information such as hackathon rules, tools or tutorials.",
		options: []mcptypes.ToolOption{
			mcptypes.WithString("query", mcptypes.Required(), mcptypes.Description("Search query")),
			mcptypes.WithNumber("limit", mcptypes.Description("Maximum results (default 5)")),
			mcptypes.WithReadOnlyHintAnnotation(true),
			mcptypes.WithOpenWorldHintAnnotation(true),
		},
		run: func(ctx context.Context, env Env, _ storage.User, a *QueryArgs) (any, string, error) {
			if env.Search == nil {
				return nil, "", failf(model.KindUnavailable, nil, "Web search isn't configured.")
			}
			results, err := env.Search.Search(ctx, a.Query, a.Limit)
			if err != nil {
				return nil, "", err
			}
			return results, fmt.Sprintf("Found %d web results for %q.", len(results), a.Query), nil
		},
	})
}

// lookupUser resolves a username, suggesting a close match when it is
// missing.
func lookupUser(ctx context.Context, env Env, username string) (storage.User, error) {
	u, err := env.Store.UserByUsername(ctx, username)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.User{}, err
	}

	msg := fmt.Sprintf("I couldn't find a user called @%s.", username)
	if users, lerr := env.Store.ListUsers(ctx); lerr == nil {
		if best := rankUsers(users, username, 0); len(best) > 0 {
			msg += fmt.Sprintf(" Did you mean @%s?", best[0].Username)
		}
	}
	return storage.User{}, failf(model.KindNotFound, err, "%s", msg)
}

func describeFriendError(err error, username string) error {
	switch {
	case errors.Is(err, storage.ErrAlreadyFriends):
		return failf(model.KindAlreadyFriends, err, "You're already friends with @%s.", username)
	case errors.Is(err, storage.ErrDuplicateRequest):
		return failf(model.KindDuplicateRequest, err, "There's already a pending friend request between you and @%s.", username)
	case errors.Is(err, storage.ErrSelfTarget):
		return failf(model.KindSelfTarget, err, "You can't send a friend request to yourself.")
	}
	return err
}

type userSource []storage.User

func (s userSource) String(i int) string { return s[i].Username + " " + s[i].DisplayName }
func (s userSource) Len() int            { return len(s) }

// rankUsers fuzzy-matches query against usernames and display names, best
// first, leaving out excludeID.
func rankUsers(users []storage.User, query string, excludeID int64) []storage.User {
	query = strings.TrimPrefix(strings.TrimSpace(query), "@")
	if query == "" {
		return nil
	}
	var out []storage.User
	for _, m := range fuzzy.FindFrom(query, userSource(users)) {
		if u := users[m.Index]; u.ID != excludeID {
			out = append(out, u)
		}
	}
	return out
}
