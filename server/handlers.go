package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"hackmate/agent"
	"hackmate/model"
	"hackmate/storage"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.AssistantResponse{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

// statusFor maps a turn error onto the HTTP status of its envelope.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, agent.ErrBlocked), errors.Is(err, agent.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	var req model.AssistantRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	var (
		stream *sseWriter
		sink   agent.TokenSink
	)
	if req.Stream {
		stream = newSSEWriter(w)
		sink = stream.Content
	}

	reply, err := s.assistant.Handle(ctx, user, req, sink)
	if err != nil && !errors.Is(err, agent.ErrBlocked) && !errors.Is(err, agent.ErrInvalidRequest) {
		s.log.Warn("assistant turn failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	if reply.Streamed {
		// Headers are gone; failures can only be reported in-band.
		if reply.Response.Error != "" {
			if werr := stream.Error(reply.Response.Error); werr != nil {
				s.log.Debug("stream write failed", zap.Error(werr))
				return
			}
		}
		if werr := stream.Done(); werr != nil {
			s.log.Debug("stream write failed", zap.Error(werr))
		}
		return
	}

	writeJSON(w, statusFor(err), reply.Response)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	limit := s.transcriptLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, s.transcriptLimit)
	}

	msgs, err := s.store.RecentMessages(r.Context(), userFrom(r.Context()).ID, limit)
	if err != nil {
		s.log.Error("failed to load transcript", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	writeJSON(w, http.StatusOK, model.MessagesResponse{Messages: msgs})
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var msg model.Message
	if err := decode(w, r, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if msg.Role != model.RoleUser && msg.Role != model.RoleAssistant {
		writeError(w, http.StatusBadRequest, "role must be user or assistant")
		return
	}
	if strings.TrimSpace(msg.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	stored, err := s.store.AppendMessage(r.Context(), userFrom(r.Context()).ID, msg)
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "message id already in use")
		return
	case err != nil:
		s.log.Error("failed to save message", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save message")
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

type teamsResponse struct {
	Teams []storage.Team `json:"teams"`
}

type friendsResponse struct {
	Friends []storage.User `json:"friends"`
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.store.ListTeams(r.Context(), userFrom(r.Context()).ID, r.URL.Query().Get("hackathon"))
	if err != nil {
		s.log.Error("failed to list teams", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list teams")
		return
	}
	if teams == nil {
		teams = []storage.Team{}
	}
	writeJSON(w, http.StatusOK, teamsResponse{Teams: teams})
}

func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := s.store.ListFriends(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		s.log.Error("failed to list friends", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list friends")
		return
	}
	if friends == nil {
		friends = []storage.User{}
	}
	writeJSON(w, http.StatusOK, friendsResponse{Friends: friends})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()))
}
