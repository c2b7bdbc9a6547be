package sync_

import (
	"context"
	"sync"
)

// Event is an asynchronous boolean flag that goroutines can wait on. The zero value is clear.
type Event struct {
	mu    sync.Mutex
	ch    chan struct{}
	value bool
}

// NewSetEvent returns an Event that starts out set.
func NewSetEvent() *Event {
	e := &Event{}
	e.Set()
	return e
}

// IsSet returns the current state of the Event.
func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// Set ensures the Event is true (idempotent), notifying any waiters. Returns true if the state was changed.
func (e *Event) Set() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.value {
		return false
	}
	e.value = true
	close(e.channel())
	return true
}

// Clear ensures the Event is false (idempotent). Returns true if the state was changed.
func (e *Event) Clear() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.value {
		return false
	}
	e.value = false
	e.ch = nil
	return true
}

// Wait returns a channel that will close when the Event is true (which may be immediately).
func (e *Event) Wait() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channel()
}

// WaitContext blocks until the Event is true or ctx is done.
func (e *Event) WaitContext(ctx context.Context) error {
	select {
	case <-e.Wait():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// channel must be called with mu held.
func (e *Event) channel() chan struct{} {
	if e.ch == nil {
		e.ch = make(chan struct{})
	}
	return e.ch
}
