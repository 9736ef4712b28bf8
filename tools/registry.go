// Package tools holds the assistant's tool catalogue and the executor that
// runs tool calls on behalf of an authenticated user.
package tools

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"hackmate/model"
	"hackmate/search"
	"hackmate/storage"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// Store is the subset of the data store the tools use.
type Store interface {
	UserByUsername(ctx context.Context, username string) (storage.User, error)
	ListUsers(ctx context.Context) ([]storage.User, error)
	SendFriendRequest(ctx context.Context, senderID, receiverID int64) (storage.FriendRequest, error)
	AcceptFriendRequest(ctx context.Context, receiverID, senderID int64) error
	ListFriends(ctx context.Context, userID int64) ([]storage.User, error)
	PendingRequests(ctx context.Context, userID int64) (incoming, outgoing []storage.FriendRequest, err error)
	CreateTeam(ctx context.Context, leaderID int64, hackathonSlug, name, description string) (storage.Team, error)
	TeamForMember(ctx context.Context, userID int64, name string) (storage.Team, error)
	InviteMember(ctx context.Context, teamID, inviterID, inviteeID int64) (storage.TeamInvite, error)
	ListTeams(ctx context.Context, userID int64, hackathonSlug string) ([]storage.Team, error)
	CreateListing(ctx context.Context, ownerID int64, title, description, category string) (storage.Listing, error)
}

// Env is what a tool body may touch.
type Env struct {
	Store  Store
	Search search.Backend
	Log    *zap.Logger
}

// Definition is one registered tool.
type Definition struct {
	Name                 string
	Tool                 mcptypes.Tool
	RequiresConfirmation bool

	confirm *template.Template
	decode  func(raw map[string]any) (Args, error)
	run     func(ctx context.Context, env Env, user storage.User, args Args) (payload any, summary string, err error)
}

// Decode binds and validates raw call arguments into the tool's typed struct.
func (d *Definition) Decode(raw map[string]any) (Args, error) {
	return d.decode(raw)
}

// ConfirmationMessage renders the confirmation prompt for decoded args.
func (d *Definition) ConfirmationMessage(args Args) (string, error) {
	if d.confirm == nil {
		return "", fmt.Errorf("tool %s has no confirmation template", d.Name)
	}
	var b strings.Builder
	if err := d.confirm.Execute(&b, args); err != nil {
		return "", fmt.Errorf("failed to render confirmation for %s: %w", d.Name, err)
	}
	return b.String(), nil
}

// Registry is the immutable set of tools offered to the model.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

type toolSpec[A any, P interface {
	*A
	Args
}] struct {
	name                 string
	description          string
	options              []mcptypes.ToolOption
	requiresConfirmation bool
	confirm              string
	run                  func(ctx context.Context, env Env, user storage.User, args P) (any, string, error)
}

func register[A any, P interface {
	*A
	Args
}](r *Registry, s toolSpec[A, P]) error {
	if s.name == "" || s.run == nil {
		return fmt.Errorf("tool registration requires a name and a body")
	}
	if _, dup := r.defs[s.name]; dup {
		return fmt.Errorf("tool %s registered twice", s.name)
	}

	def := &Definition{
		Name:                 s.name,
		RequiresConfirmation: s.requiresConfirmation,
		Tool:                 mcptypes.NewTool(s.name, append([]mcptypes.ToolOption{mcptypes.WithDescription(s.description)}, s.options...)...),
	}

	if s.requiresConfirmation {
		if strings.TrimSpace(s.confirm) == "" {
			return fmt.Errorf("tool %s requires confirmation but has no confirmation template", s.name)
		}
		tmpl, err := template.New(s.name).Option("missingkey=error").Parse(s.confirm)
		if err != nil {
			return fmt.Errorf("tool %s: bad confirmation template: %w", s.name, err)
		}
		def.confirm = tmpl
	}

	def.decode = func(raw map[string]any) (Args, error) {
		req := mcptypes.CallToolRequest{}
		req.Params.Name = s.name
		req.Params.Arguments = raw

		var a A
		if err := req.BindArguments(&a); err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", s.name, err)
		}
		p := P(&a)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return p, nil
	}
	def.run = func(ctx context.Context, env Env, user storage.User, args Args) (any, string, error) {
		p, ok := args.(P)
		if !ok {
			return nil, "", fmt.Errorf("tool %s: unexpected argument type %T", s.name, args)
		}
		return s.run(ctx, env, user, p)
	}

	r.defs[s.name] = def
	r.order = append(r.order, s.name)
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Tools returns every tool schema in registration order.
func (r *Registry) Tools() []mcptypes.Tool {
	out := make([]mcptypes.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name].Tool)
	}
	return out
}

// ReadOnly returns the definitions that never need confirmation.
func (r *Registry) ReadOnly() []*Definition {
	var out []*Definition
	for _, name := range r.order {
		if d := r.defs[name]; !d.RequiresConfirmation {
			out = append(out, d)
		}
	}
	return out
}

// PendingAction builds the confirmation request for a decoded call.
func (d *Definition) PendingAction(call model.ToolCall, args Args) (model.PendingAction, error) {
	msg, err := d.ConfirmationMessage(args)
	if err != nil {
		return model.PendingAction{}, err
	}
	return model.PendingAction{Name: d.Name, Arguments: call.Arguments, ConfirmationMessage: msg}, nil
}
