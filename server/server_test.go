package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"hackmate/agent"
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

type fixture struct {
	srv   *httptest.Server
	store *storage.Store
	token string
	alice storage.User
}

func newFixture(t *testing.T, p model.Provider) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := storage.Open(filepath.Join(t.TempDir(), "server.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	alice, err := store.CreateUser(ctx, "alice", "Alice A")
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, "bob", "Bob B")
	require.NoError(t, err)
	_, err = store.CreateHackathon(ctx, "spring-2026", "Spring Hack 2026")
	require.NoError(t, err)
	token, err := store.IssueToken(ctx, alice.ID, "test")
	require.NoError(t, err)

	reg, err := tools.NewRegistry()
	require.NoError(t, err)
	orch := agent.New(p, tools.NewExecutor(reg, store, search.Disabled{}, nil), guardrail.New())

	srv := httptest.NewServer(New(orch, store).Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: store, token: token, alice: alice}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, r)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) model.AssistantResponse {
	t.Helper()
	var env model.AssistantResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

// frames splits an SSE body into its data payloads.
func frames(t *testing.T, resp *http.Response) []string {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out []string
	for _, block := range strings.Split(strings.TrimRight(string(raw), "\n"), "\n\n") {
		payload, ok := strings.CutPrefix(block, "data: ")
		require.True(t, ok, "frame %q", block)
		out = append(out, payload)
	}
	return out
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, testutil.Replying("hi"))
	resp := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthBeforeGuardrail(t *testing.T) {
	mock := testutil.Replying("hi")
	f := newFixture(t, mock)

	for _, token := range []string{"", "hm_bogus"} {
		resp := f.do(t, http.MethodPost, "/api/assistant", token, model.AssistantRequest{Message: "drop table users"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")
	}
	assert.Empty(t, mock.Calls())
}

func TestMe(t *testing.T) {
	f := newFixture(t, testutil.Replying("hi"))
	resp := f.do(t, http.MethodGet, "/api/me", f.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var u storage.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&u))
	assert.Equal(t, "alice", u.Username)
}

func TestGuardrailBlockIs400(t *testing.T) {
	mock := testutil.Replying("hi")
	f := newFixture(t, mock)

	resp := f.do(t, http.MethodPost, "/api/assistant", f.token, model.AssistantRequest{Message: "please drop table users", Stream: true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, guardrail.Refusal, decodeEnvelope(t, resp).Error)
	assert.Empty(t, mock.Calls())
}

func TestMalformedBody(t *testing.T) {
	f := newFixture(t, testutil.Replying("hi"))
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/api/assistant", strings.NewReader("{not json"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+f.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlainReplyStreams(t *testing.T) {
	f := newFixture(t, testutil.Replying("Hi ", "Alice", "!"))

	resp := f.do(t, http.MethodPost, "/api/assistant", f.token, model.AssistantRequest{Message: "hello", Stream: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	got := frames(t, resp)
	require.Len(t, got, 4)
	assert.Equal(t, `{"choices":[{"delta":{"content":"Hi "}}]}`, got[0])
	assert.Equal(t, model.StreamDone, got[3])

	var text string
	for _, p := range got[:3] {
		var c model.StreamChunk
		require.NoError(t, json.Unmarshal([]byte(p), &c))
		text += c.Content()
	}
	assert.Equal(t, "Hi Alice!", text)
}

func TestPlainReplyWithoutStreamIsJSON(t *testing.T) {
	f := newFixture(t, testutil.Replying("Hi"))
	resp := f.do(t, http.MethodPost, "/api/assistant", f.token, model.AssistantRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hi", decodeEnvelope(t, resp).Response)
}

func TestStreamFailureReportedInBand(t *testing.T) {
	mock := testutil.NewMockProvider("mock")
	mock.ChatWithToolsFunc = func(ctx context.Context, _ []model.Message, _ []mcptypes.Tool, cb model.StreamCallback) error {
		if err := cb("Hel", nil); err != nil {
			return err
		}
		return &model.UpstreamError{Provider: "mock", StatusCode: 502, Err: errors.New("bad gateway")}
	}
	f := newFixture(t, mock)

	resp := f.do(t, http.MethodPost, "/api/assistant", f.token, model.AssistantRequest{Message: "hello", Stream: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := frames(t, resp)
	require.Len(t, got, 3)
	var c model.StreamChunk
	require.NoError(t, json.Unmarshal([]byte(got[1]), &c))
	assert.Equal(t, agent.UnavailableMessage, c.Error)
	assert.Equal(t, model.StreamDone, got[2])
}

func TestUpstreamUnavailableIs503(t *testing.T) {
	mock := testutil.NewMockProvider("mock")
	mock.ChatWithToolsFunc = func(context.Context, []model.Message, []mcptypes.Tool, model.StreamCallback) error {
		return &model.UpstreamError{Provider: "mock", StatusCode: 429, Err: errors.New("slow down")}
	}
	f := newFixture(t, mock)

	resp := f.do(t, http.MethodPost, "/api/assistant", f.token, model.AssistantRequest{Message: "hello", Stream: true})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, agent.UnavailableMessage, decodeEnvelope(t, resp).Error)
}

func TestOtherFailureIs500(t *testing.T) {
	mock := testutil.NewMockProvider("mock")
	mock.ChatWithToolsFunc = func(context.Context, []model.Message, []mcptypes.Tool, model.StreamCallback) error {
		return errors.New("decoder exploded")
	}
	f := newFixture(t, mock)

	resp := f.do(t, http.MethodPost, "/api/assistant", f.token, model.AssistantRequest{Message: "hello"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotEmpty(t, decodeEnvelope(t, resp).Error)
}

func TestCreateTeamConfirmationRoundTrip(t *testing.T) {
	call := model.ToolCall{Name: "create_team", Arguments: map[string]any{"team_name": "Night Owls", "hackathon_slug": "spring-2026"}}
	mock := testutil.Calling(call)
	f := newFixture(t, mock)

	resp := f.do(t, http.MethodPost, "/api/assistant", f.token, model.AssistantRequest{
		Message: "create a team called Night Owls for hackathon spring-2026",
		Stream:  true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	env := decodeEnvelope(t, resp)
	require.NotNil(t, env.PendingConfirmation)
	assert.Equal(t, "create_team", env.PendingConfirmation.Name)

	n, err := f.store.CountTeams(context.Background(), "spring-2026")
	require.NoError(t, err)
	assert.Zero(t, n, "nothing runs before confirmation")

	resp = f.do(t, http.MethodPost, "/api/assistant", f.token, model.AssistantRequest{
		PendingConfirmation: true,
		ConfirmedAction:     env.PendingConfirmation,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	done := decodeEnvelope(t, resp)
	assert.Equal(t, `Team "Night Owls" created for Spring Hack 2026. You're the team leader.`, done.Response)
	assert.Equal(t, "create_team", done.ActionCompleted)
	require.NotNil(t, done.Result)
	assert.True(t, done.Result.Success)
	assert.Len(t, mock.Calls(), 1, "confirmed execution does not call the model")

	resp = f.do(t, http.MethodGet, "/api/teams", f.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var teams teamsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&teams))
	require.Len(t, teams.Teams, 1)
	assert.Equal(t, "Night Owls", teams.Teams[0].Name)
}

func TestTranscriptEndpoints(t *testing.T) {
	f := newFixture(t, testutil.Replying("hi"))

	for _, m := range []model.Message{
		{Role: model.RoleUser, Content: "hello"},
		{Role: model.RoleAssistant, Content: "hi there"},
	} {
		resp := f.do(t, http.MethodPost, "/api/assistant/messages", f.token, m)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var stored model.Message
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
		assert.NotEmpty(t, stored.ID)
	}

	resp := f.do(t, http.MethodGet, "/api/assistant/messages?limit=1", f.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got model.MessagesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hi there", got.Messages[0].Content)

	resp = f.do(t, http.MethodGet, "/api/assistant/messages", f.token, nil)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Messages, 2)
	assert.Equal(t, model.RoleUser, got.Messages[0].Role)
}

func TestPostMessageValidation(t *testing.T) {
	f := newFixture(t, testutil.Replying("hi"))

	tests := []struct {
		name string
		msg  model.Message
	}{
		{"system role", model.Message{Role: model.RoleSystem, Content: "x"}},
		{"tool role", model.Message{Role: model.RoleTool, Content: "x"}},
		{"blank content", model.Message{Role: model.RoleUser, Content: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, "/api/assistant/messages", f.token, tt.msg)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	resp := f.do(t, http.MethodGet, "/api/assistant/messages?limit=zero", f.token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEmptyListsAreArrays(t *testing.T) {
	f := newFixture(t, testutil.Replying("hi"))

	for _, path := range []string{"/api/teams", "/api/friends", "/api/assistant/messages"} {
		resp := f.do(t, http.MethodGet, path, f.token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "[]", path)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{&agent.BlockedError{}, http.StatusBadRequest},
		{agent.ErrInvalidRequest, http.StatusBadRequest},
		{&model.UpstreamError{Provider: "x", Err: errors.New("down")}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}
