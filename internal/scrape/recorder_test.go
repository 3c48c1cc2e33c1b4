package scrape

import (
	"sync"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/stream"
)

// recorder is an in-memory Sink that keeps every event it receives.
type recorder struct {
	mu     sync.Mutex
	events []stream.Event
	closed bool
	// FailAfter makes Emit fail once this many events were recorded; 0 disables.
	FailAfter int
	Err       error
}

// Emit records evt.
func (r *recorder) Emit(evt stream.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return stream.ErrClosed
	}
	if r.FailAfter > 0 && len(r.events) >= r.FailAfter {
		if r.Err != nil {
			return r.Err
		}
		return stream.ErrClosed
	}
	r.events = append(r.events, evt)
	return nil
}

// Close marks the recorder closed.
func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Events returns a copy of the recorded events.
func (r *recorder) Events() []stream.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stream.Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *recorder) Types() []stream.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]stream.EventType, len(r.events))
	for i, evt := range r.events {
		out[i] = evt.Type
	}
	return out
}

// Closed reports whether Close was called.
func (r *recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
