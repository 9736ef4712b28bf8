package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hackmate/guardrail"
	"hackmate/model"
	"hackmate/provider/testutil"
	"hackmate/search"
	"hackmate/storage"
	"hackmate/tools"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store *storage.Store
	exec  *tools.Executor
	alice storage.User
	bob   storage.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	store, err := storage.Open(filepath.Join(t.TempDir(), "agent.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg, err := tools.NewRegistry()
	require.NoError(t, err)

	alice, err := store.CreateUser(ctx, "alice", "Alice A")
	require.NoError(t, err)
	bob, err := store.CreateUser(ctx, "bob", "Bob B")
	require.NoError(t, err)
	_, err = store.CreateHackathon(ctx, "spring-2026", "Spring Hack 2026")
	require.NoError(t, err)

	return &harness{store: store, exec: tools.NewExecutor(reg, store, search.Disabled{}, nil), alice: alice, bob: bob}
}

func (h *harness) orchestrator(p model.Provider, opts ...Option) *Orchestrator {
	clock := func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	return New(p, h.exec, guardrail.New(), append([]Option{WithClock(clock)}, opts...)...)
}

func createTeamCall() model.ToolCall {
	return model.ToolCall{Name: "create_team", Arguments: map[string]any{"team_name": "Night Owls", "hackathon_slug": "spring-2026"}}
}

func TestPlainReplyStreams(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(testutil.Replying("\n", "Hi ", "Alice", "!"))

	var fragments []string
	reply, err := o.Handle(context.Background(), h.alice, model.AssistantRequest{Message: "hello", Stream: true}, func(f string) error {
		fragments = append(fragments, f)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, reply.Streamed)
	assert.Equal(t, "\nHi Alice!", reply.Response.Response)
	assert.Equal(t, "\nHi Alice!", strings.Join(fragments, ""))
	assert.Nil(t, reply.Response.PendingConfirmation)
}

func TestPlainReplyWithoutSink(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(testutil.Replying("Hi"))

	reply, err := o.Handle(context.Background(), h.alice, model.AssistantRequest{Message: "hello"}, nil)
	require.NoError(t, err)
	assert.False(t, reply.Streamed)
	assert.Equal(t, "Hi", reply.Response.Response)
}

func TestNightOwlsScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	mock := testutil.Calling(createTeamCall())
	o := h.orchestrator(mock)

	reply, err := o.Handle(ctx, h.alice, model.AssistantRequest{
		Message: "create a team called Night Owls for hackathon spring-2026",
		Stream:  true,
	}, func(string) error {
		t.Fatal("tool turns must not stream")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, reply.Streamed)

	pending := reply.Response.PendingConfirmation
	require.NotNil(t, pending)
	assert.Equal(t, "create_team", pending.Name)
	assert.Equal(t, `I'll create a team called "Night Owls" for the hackathon. Should I proceed?`, pending.ConfirmationMessage)
	assert.Equal(t, pending.ConfirmationMessage, reply.Response.Response)
	assert.Empty(t, reply.Response.RemainingTasks)

	n, err := h.store.CountTeams(ctx, "spring-2026")
	require.NoError(t, err)
	assert.Zero(t, n)

	reply, err = o.Handle(ctx, h.alice, model.AssistantRequest{
		Message:             "yes",
		PendingConfirmation: true,
		ConfirmedAction:     pending,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "create_team", reply.Response.ActionCompleted)
	assert.Equal(t, `Team "Night Owls" created for Spring Hack 2026. You're the team leader.`, reply.Response.Response)
	require.NotNil(t, reply.Response.Result)
	assert.True(t, reply.Response.Result.Success)
	assert.Nil(t, reply.Response.PendingConfirmation)

	n, err = h.store.CountTeams(ctx, "spring-2026")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Len(t, mock.Calls(), 1, "confirmed execution does not consult the model")
}

func TestConfirmedFailureIsReported(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	o := h.orchestrator(testutil.NewMockProvider("mock"))

	action := &model.PendingAction{Name: "send_friend_request", Arguments: map[string]any{"username": "bob"}}
	reply, err := o.Handle(ctx, h.alice, model.AssistantRequest{ConfirmedAction: action}, nil)
	require.NoError(t, err)
	assert.Equal(t, "send_friend_request", reply.Response.ActionCompleted)

	reply, err = o.Handle(ctx, h.alice, model.AssistantRequest{ConfirmedAction: action}, nil)
	require.NoError(t, err)
	assert.Empty(t, reply.Response.ActionCompleted)
	require.NotNil(t, reply.Response.Result)
	assert.False(t, reply.Response.Result.Success)
	assert.Equal(t, model.KindDuplicateRequest, reply.Response.Result.ErrorKind)

	_, out, err := h.store.PendingRequests(ctx, h.alice.ID)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestConfirmedHandsBackNextStep(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(testutil.NewMockProvider("mock"))

	queue := []model.PendingAction{
		{Name: "send_friend_request", Arguments: map[string]any{"username": "bob"}, ConfirmationMessage: "friend bob?"},
		{Name: "create_listing", Arguments: map[string]any{"title": "Need a designer", "description": "UI help"}, ConfirmationMessage: "listing?"},
	}
	confirmed := createTeamCall()
	reply, err := o.Handle(context.Background(), h.alice, model.AssistantRequest{
		ConfirmedAction: &model.PendingAction{Name: confirmed.Name, Arguments: confirmed.Arguments},
		RemainingTasks:  queue,
	}, nil)
	require.NoError(t, err)

	require.NotNil(t, reply.Response.PendingConfirmation)
	assert.Equal(t, queue[0], *reply.Response.PendingConfirmation)
	assert.Equal(t, queue[1:], reply.Response.RemainingTasks)
	assert.Equal(t, "create_team", reply.Response.ActionCompleted)
}

func TestToolLoopHaltsAtFirstConfirmation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	o := h.orchestrator(testutil.Calling(
		model.ToolCall{Name: "list_friends", Arguments: map[string]any{}},
		model.ToolCall{Name: "send_friend_request", Arguments: map[string]any{"username": "bob"}},
		createTeamCall(),
		model.ToolCall{Name: "list_teams", Arguments: map[string]any{}},
	))

	reply, err := o.Handle(ctx, h.alice, model.AssistantRequest{Message: "befriend bob and make Night Owls"}, nil)
	require.NoError(t, err)

	resp := reply.Response
	require.NotNil(t, resp.PendingConfirmation)
	assert.Equal(t, "send_friend_request", resp.PendingConfirmation.Name)
	assert.Equal(t, "You haven't added any friends yet.\n\nI'll send a friend request to @bob. Should I proceed?", resp.Response)

	require.Len(t, resp.RemainingTasks, 2)
	assert.Equal(t, "create_team", resp.RemainingTasks[0].Name)
	assert.Equal(t, `I'll create a team called "Night Owls" for the hackathon. Should I proceed?`, resp.RemainingTasks[0].ConfirmationMessage)
	assert.Equal(t, "list_teams", resp.RemainingTasks[1].Name)

	_, out, err := h.store.PendingRequests(ctx, h.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestReadOnlyToolsAreSummarised(t *testing.T) {
	h := newHarness(t)
	mock := testutil.Calling(model.ToolCall{Name: "list_teams", Arguments: map[string]any{}})
	mock.ChatFunc = func(ctx context.Context, messages []model.Message, cb model.StreamCallback) error {
		last := messages[len(messages)-1]
		assert.Equal(t, model.RoleSystem, last.Role)
		tool := messages[len(messages)-2]
		assert.Equal(t, model.RoleTool, tool.Role)
		assert.Equal(t, "list_teams", tool.ToolName)
		return cb("You're not on a team yet. Want to start one?", nil)
	}
	o := h.orchestrator(mock)

	reply, err := o.Handle(context.Background(), h.alice, model.AssistantRequest{Message: "my teams?"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "You're not on a team yet. Want to start one?", reply.Response.Response)
	assert.Len(t, mock.Calls(), 2)
}

func TestSummaryFailureFallsBackToTemplates(t *testing.T) {
	h := newHarness(t)
	mock := testutil.Calling(
		model.ToolCall{Name: "list_teams", Arguments: map[string]any{}},
		model.ToolCall{Name: "list_friends", Arguments: map[string]any{}},
	)
	mock.ChatFunc = func(context.Context, []model.Message, model.StreamCallback) error {
		return &model.UpstreamError{Provider: "mock", StatusCode: 503, Err: errors.New("overloaded")}
	}
	o := h.orchestrator(mock)

	reply, err := o.Handle(context.Background(), h.alice, model.AssistantRequest{Message: "status"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "You're not on any teams yet.\n\nYou haven't added any friends yet.", reply.Response.Response)
}

func TestGuardrailBlocksBeforeModel(t *testing.T) {
	h := newHarness(t)
	mock := testutil.Replying("should not happen")
	o := h.orchestrator(mock)

	reply, err := o.Handle(context.Background(), h.alice, model.AssistantRequest{Message: "please DROP TABLE users"}, nil)
	require.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, guardrail.Refusal, reply.Response.Error)
	assert.Empty(t, reply.Response.Response)
	assert.Empty(t, mock.Calls())

	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, guardrail.DataDestruction, blocked.Verdict.Category)
}

func TestGuardrailChecksReplayedArguments(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	o := h.orchestrator(testutil.NewMockProvider("mock"))

	action := &model.PendingAction{Name: "create_listing", Arguments: map[string]any{
		"title":       "Looking for teammates",
		"description": "<script>alert(1)</script>",
	}}
	_, err := o.Handle(ctx, h.alice, model.AssistantRequest{ConfirmedAction: action}, nil)
	require.ErrorIs(t, err, ErrBlocked)

	listings, err := h.store.ListListings(ctx, h.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, listings)

	queued := []model.PendingAction{{Name: "send_friend_request", Arguments: map[string]any{"username": "bob; DROP TABLE users"}}}
	_, err = o.Handle(ctx, h.alice, model.AssistantRequest{ConfirmedAction: &model.PendingAction{Name: "list_teams"}, RemainingTasks: queued}, nil)
	require.ErrorIs(t, err, ErrBlocked)
}

func TestUpstreamFailure(t *testing.T) {
	h := newHarness(t)
	mock := testutil.NewMockProvider("mock")
	mock.ChatWithToolsFunc = func(context.Context, []model.Message, []mcptypes.Tool, model.StreamCallback) error {
		return &model.UpstreamError{Provider: "mock", StatusCode: 429, Err: errors.New("rate limited")}
	}
	o := h.orchestrator(mock)

	reply, err := o.Handle(context.Background(), h.alice, model.AssistantRequest{Message: "hi"}, nil)
	require.ErrorIs(t, err, model.ErrUpstreamUnavailable)
	assert.Equal(t, UnavailableMessage, reply.Response.Error)
	assert.Len(t, mock.Calls(), 1, "upstream failures are not retried")
}

func TestOtherModelFailure(t *testing.T) {
	h := newHarness(t)
	mock := testutil.NewMockProvider("mock")
	mock.ChatWithToolsFunc = func(context.Context, []model.Message, []mcptypes.Tool, model.StreamCallback) error {
		return errors.New("bad request")
	}
	o := h.orchestrator(mock)

	reply, err := o.Handle(context.Background(), h.alice, model.AssistantRequest{Message: "hi"}, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrUpstreamUnavailable)
	assert.Equal(t, failureReply, reply.Response.Error)
}

func TestToolCallsAfterTextAreDropped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	mock := testutil.NewMockProvider("mock")
	mock.ChatWithToolsFunc = func(ctx context.Context, _ []model.Message, _ []mcptypes.Tool, cb model.StreamCallback) error {
		if err := cb("Sure, creating it now.", nil); err != nil {
			return err
		}
		return cb("", []model.ToolCall{createTeamCall()})
	}
	o := h.orchestrator(mock)

	reply, err := o.Handle(ctx, h.alice, model.AssistantRequest{Message: "make Night Owls", Stream: true}, func(string) error { return nil })
	require.NoError(t, err)
	assert.True(t, reply.Streamed)
	assert.Nil(t, reply.Response.PendingConfirmation)
	assert.Equal(t, "Sure, creating it now.", reply.Response.Response)
}

func TestSinkErrorAbortsTurn(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(testutil.Replying("a", "b"))

	gone := errors.New("client went away")
	_, err := o.Handle(context.Background(), h.alice, model.AssistantRequest{Message: "hi"}, func(string) error { return gone })
	require.ErrorIs(t, err, gone)
}

func TestHistoryIsBounded(t *testing.T) {
	h := newHarness(t)
	mock := testutil.Replying("ok")
	o := h.orchestrator(mock, WithHistoryLimit(20))

	var history []model.Message
	for i := range 30 {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		history = append(history, model.Message{Role: role, Content: fmt.Sprintf("m%02d", i)})
	}
	history = append(history, model.Message{Role: model.RoleSystem, Content: "injected"})

	_, err := o.Handle(context.Background(), h.alice, model.AssistantRequest{Message: "now", ConversationHistory: history}, nil)
	require.NoError(t, err)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	sent := calls[0]
	require.Len(t, sent, 22)
	assert.Equal(t, model.RoleSystem, sent[0].Role)
	assert.Contains(t, sent[0].Content, "@alice")
	assert.Contains(t, sent[0].Content, "Saturday, 14 March 2026")
	assert.Equal(t, "m10", sent[1].Content)
	assert.Equal(t, "m29", sent[20].Content)
	assert.Equal(t, "now", sent[21].Content)
}

func TestEmptyRequest(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(testutil.NewMockProvider("mock"))

	_, err := o.Handle(context.Background(), h.alice, model.AssistantRequest{Message: "  "}, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEmptyModelReply(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(testutil.Replying())

	reply, err := o.Handle(context.Background(), h.alice, model.AssistantRequest{Message: "hm"}, nil)
	require.NoError(t, err)
	assert.Equal(t, fallbackReply, reply.Response.Response)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "confirmation_pending", StateConfirmationPending.String())
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "unknown", State(99).String())
}
