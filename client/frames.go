package client

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"

	"hackmate/model"
)

// ErrTruncatedStream is returned when a stream ends without its terminal
// frame. Whatever was decoded before it is still valid.
var ErrTruncatedStream = errors.New("stream ended before [DONE]")

var dataPrefix = []byte("data:")

// Frames decodes an assistant event stream. A frame is consumed only once
// its line is complete; a trailing unterminated line gets one parse attempt
// at EOF and is otherwise dropped. Payloads that are not valid chunks are
// skipped. Iteration ends after the terminal frame, or with
// ErrTruncatedStream if the body ends first.
func Frames(r io.Reader) iter.Seq2[model.StreamChunk, error] {
	return func(yield func(model.StreamChunk, error) bool) {
		br := bufio.NewReader(r)
		for {
			line, readErr := br.ReadBytes('\n')
			if readErr != nil && !errors.Is(readErr, io.EOF) {
				yield(model.StreamChunk{}, readErr)
				return
			}

			if payload, ok := framePayload(line); ok {
				if string(payload) == model.StreamDone {
					return
				}
				var chunk model.StreamChunk
				if err := json.Unmarshal(payload, &chunk); err == nil {
					if !yield(chunk, nil) {
						return
					}
				}
			}

			if readErr != nil {
				yield(model.StreamChunk{}, ErrTruncatedStream)
				return
			}
		}
	}
}

// framePayload extracts the data field of one line. Blank separator lines,
// comments and other SSE fields carry no payload.
func framePayload(line []byte) ([]byte, bool) {
	line = bytes.TrimRight(line, "\r\n")
	rest, ok := bytes.CutPrefix(line, dataPrefix)
	if !ok {
		return nil, false
	}
	rest = bytes.TrimPrefix(rest, []byte(" "))
	if len(rest) == 0 {
		return nil, false
	}
	return rest, true
}
