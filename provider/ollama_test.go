package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"hackmate/model"
	"hackmate/provider/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaStreamsTextAndToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":"On it"},"done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"list_teams","arguments":{"hackathon_slug":"spring-2026"}}}]},"done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":""},"done":true}` + "\n"))
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "llama3.1")
	require.NoError(t, err)
	assert.True(t, p.SupportsTools())

	var text string
	var calls []model.ToolCall
	err = p.ChatWithTools(context.Background(), testutil.SingleUserMessage("teams?"), testutil.TestTools(), func(c string, tc []model.ToolCall) error {
		text += c
		calls = append(calls, tc...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "On it", text)
	require.Len(t, calls, 1)
	assert.Equal(t, "list_teams", calls[0].Name)
	assert.Equal(t, "spring-2026", calls[0].Arguments["hackathon_slug"])
}

func TestOllamaServerErrorIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"model is loading"}`))
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "llama3.1")
	require.NoError(t, err)

	err = p.Chat(context.Background(), testutil.SingleUserMessage("hi"), func(string, []model.ToolCall) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUpstreamUnavailable)
}

func TestOllamaConnectionRefusedIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := NewOllamaProvider(url, "llama3.1")
	require.NoError(t, err)

	err = p.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUpstreamUnavailable)
}
