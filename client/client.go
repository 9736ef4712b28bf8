// Package client talks to the hackmate server: the HTTP API, the stream
// decoder, the conversation state behind the chat surface and the runner
// that drains confirmed task queues.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hackmate/model"
	"hackmate/storage"

	"go.uber.org/zap"
)

// ErrUnauthorized matches an *HTTPError with status 401.
var ErrUnauthorized = errors.New("unauthorized")

// HTTPError is a non-2xx reply. Envelope holds the decoded body when the
// server sent one.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
	Envelope   model.AssistantResponse
}

func (e *HTTPError) Error() string {
	if e.Envelope.Error != "" {
		return fmt.Sprintf("server returned %s: %s", e.Status, e.Envelope.Error)
	}
	return fmt.Sprintf("server returned %s", e.Status)
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// TokenProvider returns the bearer token for a request.
type TokenProvider func(ctx context.Context) (string, error)

// StaticToken always returns token.
func StaticToken(token string) TokenProvider {
	return func(context.Context) (string, error) { return token, nil }
}

// Client talks to a hackmate server on behalf of one bearer token.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	token   TokenProvider
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTokenProvider sets where the bearer token comes from.
func WithTokenProvider(p TokenProvider) Option {
	return func(cl *Client) { cl.token = p }
}

// WithTimeout sets the overall per-request timeout, stream reads included.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http.Timeout = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(cl *Client) {
		if log != nil {
			cl.log = log
		}
	}
}

// New returns a Client for serverURL, which must be http or https.
func New(serverURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", serverURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		if o != nil {
			o(c)
		}
	}
	c.log = c.log.Named("client")
	return c, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		r = bytes.NewReader(raw)
	}

	p, query, _ := strings.Cut(path, "?")
	u := c.baseURL.JoinPath(p)
	u.RawQuery = query

	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	herr := &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(raw)}
	_ = json.Unmarshal(raw, &herr.Envelope)
	return nil, herr
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Send runs one assistant turn. Streamed fragments go to onFragment as they
// arrive and are also concatenated into the returned Response. A stream that
// ends early returns the partial response with ErrTruncatedStream.
func (c *Client) Send(ctx context.Context, ar model.AssistantRequest, onFragment func(string)) (model.AssistantResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/assistant", ar)
	if err != nil {
		return model.AssistantResponse{}, err
	}
	req.Header.Set("Accept", "text/event-stream, application/json")

	resp, err := c.do(req)
	if err != nil {
		var herr *HTTPError
		if errors.As(err, &herr) {
			return herr.Envelope, err
		}
		return model.AssistantResponse{}, err
	}
	defer resp.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "text/event-stream" {
		var env model.AssistantResponse
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return model.AssistantResponse{}, fmt.Errorf("failed to decode response: %w", err)
		}
		return env, nil
	}

	var (
		out  model.AssistantResponse
		text strings.Builder
	)
	for chunk, err := range Frames(resp.Body) {
		if err != nil {
			out.Response = text.String()
			if !errors.Is(err, ErrTruncatedStream) {
				err = fmt.Errorf("stream read failed: %w", err)
			}
			return out, err
		}
		if chunk.Error != "" {
			out.Error = chunk.Error
			continue
		}
		if frag := chunk.Content(); frag != "" {
			text.WriteString(frag)
			if onFragment != nil {
				onFragment(frag)
			}
		}
	}
	out.Response = text.String()
	return out, nil
}

// Messages loads the newest limit transcript messages in chronological order.
func (c *Client) Messages(ctx context.Context, limit int) ([]model.Message, error) {
	path := "/api/assistant/messages"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out model.MessagesResponse
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// AppendMessage persists one transcript message.
func (c *Client) AppendMessage(ctx context.Context, msg model.Message) (model.Message, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/assistant/messages", msg)
	if err != nil {
		return model.Message{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return model.Message{}, err
	}
	defer resp.Body.Close()

	var stored model.Message
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return model.Message{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return stored, nil
}

// Teams lists the caller's teams.
func (c *Client) Teams(ctx context.Context) ([]storage.Team, error) {
	var out struct {
		Teams []storage.Team `json:"teams"`
	}
	if err := c.getJSON(ctx, "/api/teams", &out); err != nil {
		return nil, err
	}
	return out.Teams, nil
}

// Friends lists the caller's friends.
func (c *Client) Friends(ctx context.Context) ([]storage.User, error) {
	var out struct {
		Friends []storage.User `json:"friends"`
	}
	if err := c.getJSON(ctx, "/api/friends", &out); err != nil {
		return nil, err
	}
	return out.Friends, nil
}

// Me returns the user the token belongs to.
func (c *Client) Me(ctx context.Context) (storage.User, error) {
	var u storage.User
	if err := c.getJSON(ctx, "/api/me", &u); err != nil {
		return storage.User{}, err
	}
	return u, nil
}

// Ping checks the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
