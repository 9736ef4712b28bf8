package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"hackmate/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, WithHTTPClient(srv.Client()), WithTokenProvider(StaticToken("tok")))
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
	_, err = New("://nope")
	assert.Error(t, err)
}

func TestSendStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/assistant", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var req model.AssistantRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, sseBody(t, "Hi ", "there"))
	})

	var got []string
	resp, err := c.Send(context.Background(), model.AssistantRequest{Message: "hello", Stream: true}, func(f string) {
		got = append(got, f)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", resp.Response)
	assert.Equal(t, []string{"Hi ", "there"}, got)
}

func TestSendStreamErrorFrame(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\ndata: {\"error\":\"unavailable\"}\n\ndata: [DONE]\n\n")
	})

	resp, err := c.Send(context.Background(), model.AssistantRequest{Message: "hello", Stream: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi", resp.Response)
	assert.Equal(t, "unavailable", resp.Error)
}

func TestSendTruncated(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"half\"}}]}\n\n")
	})

	resp, err := c.Send(context.Background(), model.AssistantRequest{Message: "hello", Stream: true}, nil)
	assert.ErrorIs(t, err, ErrTruncatedStream)
	assert.Equal(t, "half", resp.Response)
}

func TestSendEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.AssistantResponse{
			Response:            "I'll create it. Should I proceed?",
			PendingConfirmation: &model.PendingAction{Name: "create_team"},
		})
	})

	resp, err := c.Send(context.Background(), model.AssistantRequest{Message: "x", Stream: true}, nil)
	require.NoError(t, err)
	require.NotNil(t, resp.PendingConfirmation)
	assert.Equal(t, "create_team", resp.PendingConfirmation.Name)
}

func TestSendHTTPErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantAuth  bool
		wantError string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"unauthorized"}`, true, "unauthorized"},
		{"blocked", http.StatusBadRequest, `{"error":"I can't help with that."}`, false, "I can't help with that."},
		{"plain text", http.StatusBadGateway, "bad gateway", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			resp, err := c.Send(context.Background(), model.AssistantRequest{Message: "x"}, nil)
			var herr *HTTPError
			require.ErrorAs(t, err, &herr)
			assert.Equal(t, tt.status, herr.StatusCode)
			assert.Equal(t, tt.wantAuth, IsUnauthorized(err))
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestMessagesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/assistant/messages", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(model.MessagesResponse{Messages: []model.Message{{ID: "1", Role: model.RoleUser, Content: "hi"}}})
	})

	msgs, err := c.Messages(context.Background(), TranscriptLimit)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)
}
