package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"hackmate/storage"

	"go.uber.org/zap"
)

type ctxKey struct{}

func withUser(ctx context.Context, u storage.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// userFrom returns the authenticated user. Only valid behind authenticate.
func userFrom(ctx context.Context) storage.User {
	u, _ := ctx.Value(ctxKey{}).(storage.User)
	return u
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticate rejects requests without a valid bearer token before any
// other processing, the guardrail included.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.unauthorized(w)
			return
		}
		user, err := s.store.UserByToken(r.Context(), token)
		if errors.Is(err, storage.ErrNotFound) {
			s.unauthorized(w)
			return
		}
		if err != nil {
			s.log.Error("token lookup failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func (s *Server) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="hackmate"`)
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
