package stream

import (
	"errors"
	"sync"

	"github.com/adiwahyudi02/ebay-scraping-backend/pkg/types"
)

var (
	// ErrNoMeta is returned when a batch is emitted before any meta event.
	ErrNoMeta = errors.New("batch emitted before meta")
	// ErrEmptyPage is returned when a page announced by meta is left without
	// a batch before the next meta or done.
	ErrEmptyPage = errors.New("meta not followed by a batch")
)

// doneData is the payload of the terminal event.
const doneData = "success"

// Emitter enforces the stream protocol on top of a Sink. Every page is a meta
// followed by one or more batches, and done is sent exactly once, last.
type Emitter struct {
	mu       sync.Mutex
	sink     Sink
	sawMeta  bool
	pageOpen bool // meta sent, no batch yet
	done     bool
}

// NewEmitter wraps sink.
func NewEmitter(sink Sink) *Emitter {
	return &Emitter{sink: sink}
}

// Meta announces the page whose items follow.
func (e *Emitter) Meta(meta types.PageMeta) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return ErrClosed
	}
	if e.pageOpen {
		return ErrEmptyPage
	}
	if err := e.sink.Emit(Event{Type: EventMeta, Data: meta}); err != nil {
		return err
	}
	e.sawMeta = true
	e.pageOpen = true
	return nil
}

// Listings sends un-enriched items as one batch event.
func (e *Emitter) Listings(items []types.ListingItem) error {
	if items == nil {
		items = []types.ListingItem{}
	}
	return e.batch(items)
}

// Details sends enriched items as one batch event.
func (e *Emitter) Details(items []types.DetailedItem) error {
	if items == nil {
		items = []types.DetailedItem{}
	}
	return e.batch(items)
}

func (e *Emitter) batch(items any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return ErrClosed
	}
	if !e.sawMeta {
		return ErrNoMeta
	}
	if err := e.sink.Emit(Event{Type: EventBatch, Data: items}); err != nil {
		return err
	}
	e.pageOpen = false
	return nil
}

// Done sends the terminal event and closes the sink. Any later call on the
// emitter returns ErrClosed.
func (e *Emitter) Done() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return ErrClosed
	}
	if e.pageOpen {
		return ErrEmptyPage
	}
	e.done = true
	emitErr := e.sink.Emit(Event{Type: EventDone, Data: doneData})
	closeErr := e.sink.Close()
	return errors.Join(emitErr, closeErr)
}

// Finished reports whether Done has been called.
func (e *Emitter) Finished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}
