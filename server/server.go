// Package server exposes the assistant over HTTP:
//
//	POST /api/assistant           -> SSE stream (plain replies) or JSON envelope
//	GET  /api/assistant/messages  -> newest transcript window, chronological
//	POST /api/assistant/messages  -> append one transcript message
//	GET  /api/teams               -> caller's teams
//	GET  /api/friends             -> caller's friends
//	GET  /api/me                  -> the authenticated user
//	GET  /healthz                 -> "ok"
//
// Every /api route requires a bearer token.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"hackmate/agent"
	"hackmate/model"
	"hackmate/storage"

	"go.uber.org/zap"
)

const (
	defaultRequestTimeout = 2 * time.Minute
	maxBodyBytes          = 1 << 20
)

// Assistant runs one assistant turn.
type Assistant interface {
	Handle(ctx context.Context, user storage.User, req model.AssistantRequest, sink agent.TokenSink) (agent.Reply, error)
}

// Store is the data the HTTP layer reads and writes directly.
type Store interface {
	UserByToken(ctx context.Context, token string) (storage.User, error)
	AppendMessage(ctx context.Context, ownerID int64, msg model.Message) (model.Message, error)
	RecentMessages(ctx context.Context, ownerID int64, limit int) ([]model.Message, error)
	ListTeams(ctx context.Context, userID int64, hackathonSlug string) ([]storage.Team, error)
	ListFriends(ctx context.Context, userID int64) ([]storage.User, error)
}

// Server is the assistant's HTTP API.
type Server struct {
	assistant       Assistant
	store           Store
	requestTimeout  time.Duration
	transcriptLimit int
	log             *zap.Logger
}

// Option customises the server.
type Option func(*Server)

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

func WithTranscriptLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.transcriptLimit = n
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// New returns a Server answering turns with assistant and reading from store.
func New(assistant Assistant, store Store, opts ...Option) *Server {
	s := &Server{
		assistant:       assistant,
		store:           store,
		requestTimeout:  defaultRequestTimeout,
		transcriptLimit: storage.DefaultTranscriptLimit,
		log:             zap.NewNop(),
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	s.log = s.log.Named("server")
	return s
}

// Handler returns the routed handler with logging and auth applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	api := http.NewServeMux()
	api.HandleFunc("POST /api/assistant", s.handleAssistant)
	api.HandleFunc("GET /api/assistant/messages", s.handleGetMessages)
	api.HandleFunc("POST /api/assistant/messages", s.handlePostMessage)
	api.HandleFunc("GET /api/teams", s.handleTeams)
	api.HandleFunc("GET /api/friends", s.handleFriends)
	api.HandleFunc("GET /api/me", s.handleMe)
	mux.Handle("/api/", s.authenticate(api))

	return s.logRequests(mux)
}

// Serve serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	s.log.Info("stopped")
	return nil
}
