package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"hackmate/model"
)

// sseWriter writes assistant stream frames. Headers are only sent with the
// first frame, so a turn that ends up returning an envelope can still reply
// with plain JSON.
type sseWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *sseWriter) start() {
	if s.started {
		return
	}
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.started = true
}

func (s *sseWriter) frame(payload string) error {
	s.start()
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && err != http.ErrNotSupported {
		return err
	}
	return nil
}

func (s *sseWriter) chunk(c model.StreamChunk) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.frame(string(raw))
}

// Content writes one text fragment. It satisfies agent.TokenSink.
func (s *sseWriter) Content(fragment string) error {
	return s.chunk(model.ContentChunk(fragment))
}

// Error reports a failure inside an already-started stream.
func (s *sseWriter) Error(msg string) error {
	return s.chunk(model.StreamChunk{Error: msg})
}

// Done writes the terminal frame.
func (s *sseWriter) Done() error {
	return s.frame(model.StreamDone)
}
