// Package stream frames scrape results as Server-Sent Events.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrClosed is returned by sinks and emitters once the stream has ended.
var ErrClosed = errors.New("stream closed")

// EventType names an event on the wire.
type EventType string

const (
	EventMeta  EventType = "meta"
	EventBatch EventType = "batch"
	EventDone  EventType = "done"
)

// Event is one message on the stream. String data is written verbatim;
// anything else is encoded as JSON.
type Event struct {
	Type EventType
	Data any
}

// Sink receives framed events.
type Sink interface {
	Emit(evt Event) error
	Close() error
}

// SSEWriter writes events in text/event-stream framing and flushes after each
// one when the underlying writer supports it. Safe for concurrent use.
type SSEWriter struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	closed  bool
}

// NewSSEWriter wraps w.
func NewSSEWriter(w io.Writer) *SSEWriter {
	flusher, _ := w.(http.Flusher)
	return &SSEWriter{w: w, flusher: flusher}
}

// Emit writes evt as "event: <type>" followed by its data lines and a blank line.
func (s *SSEWriter) Emit(evt Event) error {
	payload, err := encodeData(evt.Data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", evt.Type, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", evt.Type)
	for _, line := range strings.Split(payload, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	return s.write(b.String())
}

// Comment writes an SSE comment line, ignored by clients. Used as a heartbeat.
func (s *SSEWriter) Comment(text string) error {
	return s.write(": " + text + "\n\n")
}

func (s *SSEWriter) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := io.WriteString(s.w, frame); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Close marks the writer finished; later writes return ErrClosed.
func (s *SSEWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// KeepAlive writes a comment every interval until ctx is done or the writer
// is closed. It blocks; run it in its own goroutine.
func (s *SSEWriter) KeepAlive(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Comment("keep-alive"); err != nil {
				return
			}
		}
	}
}

func encodeData(data any) (string, error) {
	switch v := data.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
}
