package testutil

import (
	"sync"

	"github.com/timeax/servicegraph/internal/editor"
)

// Recorder is an editor.Notifier that keeps every event.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Recorder struct {
	mu     sync.Mutex
	events []editor.Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify implements editor.Notifier.
func (r *Recorder) Notify(e editor.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []editor.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]editor.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []editor.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]editor.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// OfType returns the recorded events of one type.
func (r *Recorder) OfType(t editor.EventType) []editor.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []editor.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// ErrorCodes returns the codes of recorded editor:error events in order.
func (r *Recorder) ErrorCodes() []string {
	var codes []string
	for _, e := range r.OfType(editor.EventError) {
		if e.Error != nil {
			codes = append(codes, e.Error.Code)
		}
	}
	return codes
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
