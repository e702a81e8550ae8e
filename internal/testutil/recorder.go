package testutil

import (
	"context"
	"sync"

	"github.com/roach88/certledger/internal/store"
)

// EventRecorder is an event sink that keeps every published event.
// Implements engine.EventSink.
type EventRecorder struct {
	mu     sync.Mutex
	events []store.EventRecord
	err    error
}

// NewEventRecorder returns an empty recorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// FailWith makes every later Publish return err (after recording).
func (r *EventRecorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *EventRecorder) Publish(_ context.Context, ev store.EventRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

// Events returns a copy of the recorded events in publish order.
func (r *EventRecorder) Events() []store.EventRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.EventRecord, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the recorded event kinds in publish order.
func (r *EventRecorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

// Reset forgets recorded events.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
