package datastream

import (
	"fmt"
	"io"
	"net/http"

	"chatloop/internal/domain/models/llm"
)

// SetHeaders prepares a response for the data stream protocol
func SetHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("x-vercel-ai-data-stream", "v1")
}

// Writer writes protocol lines to a client, flushing after every line so each
// line reaches the client before the next provider round starts.
type Writer struct {
	w     io.Writer
	flush func() error
}

// NewWriter wraps an HTTP response. Flush errors surface as write errors,
// which is how a disconnected client is detected.
func NewWriter(w http.ResponseWriter) *Writer {
	rc := http.NewResponseController(w)
	return &Writer{w: w, flush: rc.Flush}
}

// NewStreamWriter writes lines to a plain stream with no flushing (CLI replay)
func NewStreamWriter(w io.Writer) *Writer {
	return &Writer{w: w, flush: func() error { return nil }}
}

// WriteLine writes one line followed by "\n" and flushes
func (s *Writer) WriteLine(line string) error {
	if _, err := io.WriteString(s.w, line+"\n"); err != nil {
		return fmt.Errorf("write line failed: %w", err)
	}
	if err := s.flush(); err != nil {
		return fmt.Errorf("connection closed: %w", err)
	}
	return nil
}

// WriteTurn encodes a turn and writes its lines in order.
// Encoding errors are returned before anything is written.
func (s *Writer) WriteTurn(turn *llm.Turn) error {
	lines, err := Encode(turn)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if err := s.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}
