package testutil

import "sync"

// Trace records pipeline events in the order they happen, across every fake
// action and sink that shares it.
//
// Thread-safety: Trace is safe for concurrent use via internal mutex.
type Trace struct {
	mu     sync.Mutex
	events []string
}

// NewTrace creates an empty trace.
func NewTrace() *Trace {
	return &Trace{}
}

// Add appends an event.
func (t *Trace) Add(event string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

// Events returns a copy of the recorded events.
func (t *Trace) Events() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

// Reset clears the trace for reuse.
func (t *Trace) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}
