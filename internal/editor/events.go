package editor

import (
	"sync"

	"github.com/timeax/servicegraph/internal/model"
)

// EventType names an editor notification.
type EventType string

const (
	EventCommand EventType = "editor:command"
	EventChange  EventType = "editor:change"
	EventUndo    EventType = "editor:undo"
	EventRedo    EventType = "editor:redo"
	EventError   EventType = "editor:error"
)

// ChangeReason says why an editor:change event fired.
type ChangeReason string

const (
	ReasonMutation    ChangeReason = "mutation"
	ReasonTransaction ChangeReason = "transaction"
	ReasonValidate    ChangeReason = "validate"
)

// ErrorInfo is the payload of an editor:error event.
type ErrorInfo struct {
	// Code is CodeCommand, CodeTransaction, CodeValidate, CodeHook, or a
	// service-role diagnostic code.
	Code    string `json:"code"`
	Message string `json:"message"`

	// Node is the affected node, when there is one.
	Node string `json:"node,omitempty"`

	// Err is the underlying error for command and transaction failures.
	Err error `json:"-"`
}

// Event is a notification from the editor.
type Event struct {
	Type EventType `json:"type"`

	// Command is the command name, transaction label, or undone/redone label.
	Command string `json:"command,omitempty"`

	// Reason is set on editor:change.
	Reason ChangeReason `json:"reason,omitempty"`

	// Document is a copy of the document after the change, undo or redo.
	Document *model.Document `json:"document,omitempty"`

	// Error is set on editor:error.
	Error *ErrorInfo `json:"error,omitempty"`
}

// Notifier receives editor events. It is called synchronously and must not
// call back into the editor.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

// Notify implements Notifier.
func (f NotifierFunc) Notify(e Event) { f(e) }

// Bus fans events out to subscribers in subscription order.
//
// Thread-safety: Subscribe and Notify may be called from any goroutine.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id int
	fn func(Event)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Notify implements Notifier. Subscribers run outside the lock so they may
// subscribe or unsubscribe.
func (b *Bus) Notify(e Event) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(e)
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
