package handle

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("handle table closed")

// Handle is an opaque value handed to firmware callers. Handle 0 is never
// issued.
type Handle uintptr

// Kind tags what a handle refers to.
type Kind uint32

// EventType classifies lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventRemoved
)

// Event is a handle lifecycle notification.
type Event struct {
	Value  any
	Handle Handle
	Kind   Kind
	Type   EventType
}

// Observer receives handle lifecycle events.
type Observer interface {
	OnHandleEvent(Event)
}

// Closer is optionally implemented by values that release state when their
// handle is removed.
type Closer interface {
	Close()
}

type entry struct {
	value any
	kind  Kind
	valid bool
}

// Table maps handles to values. Handles are base+1, base+2, ... so tables
// with different bases never issue the same value. Freed slots are reused.
type Table struct {
	entries   []entry
	freeList  []int
	observers []Observer
	base      uintptr
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

// NewTable creates a table whose handles start above base.
func NewTable(base uintptr) *Table {
	return &Table{
		base:     base,
		entries:  make([]entry, 0, 64),
		freeList: make([]int, 0, 16),
	}
}

func (t *Table) index(h Handle) (int, bool) {
	if uintptr(h) <= t.base {
		return 0, false
	}
	idx := int(uintptr(h)-t.base) - 1
	if idx >= len(t.entries) || !t.entries[idx].valid {
		return 0, false
	}
	return idx, true
}

// Insert stores value and returns its handle.
func (t *Table) Insert(kind Kind, value any) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}

	e := entry{value: value, kind: kind, valid: true}
	var idx int
	if n := len(t.freeList); n > 0 {
		idx = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.entries[idx] = e
	} else {
		t.entries = append(t.entries, e)
		idx = len(t.entries) - 1
	}
	h := Handle(t.base + uintptr(idx) + 1)
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, Kind: kind, Value: value})
	return h, nil
}

// Get returns the value behind h.
func (t *Table) Get(h Handle) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx, ok := t.index(h)
	if !ok {
		return nil, false
	}
	return t.entries[idx].value, true
}

// GetKind returns the value behind h only if it has the given kind.
func (t *Table) GetKind(h Handle, kind Kind) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx, ok := t.index(h)
	if !ok || t.entries[idx].kind != kind {
		return nil, false
	}
	return t.entries[idx].value, true
}

// Remove drops h and returns its value. Values implementing Closer are
// closed.
func (t *Table) Remove(h Handle) (any, bool) {
	t.mu.Lock()
	idx, ok := t.index(h)
	if !ok {
		t.mu.Unlock()
		return nil, false
	}
	e := t.entries[idx]
	t.entries[idx] = entry{}
	t.freeList = append(t.freeList, idx)
	t.mu.Unlock()

	if c, ok := e.value.(Closer); ok {
		c.Close()
	}
	t.notify(Event{Type: EventRemoved, Handle: h, Kind: e.kind, Value: e.value})
	return e.value, true
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries) - len(t.freeList)
}

// Each visits live handles in issue order until fn returns false. fn must
// not modify the table.
func (t *Table) Each(fn func(Handle, Kind, any) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, e := range t.entries {
		if e.valid && !fn(Handle(t.base+uintptr(i)+1), e.kind, e.value) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Close removes every handle and refuses further inserts.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	var live []Handle
	for i, e := range t.entries {
		if e.valid {
			live = append(live, Handle(t.base+uintptr(i)+1))
		}
	}
	t.mu.Unlock()

	for _, h := range live {
		t.Remove(h)
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnHandleEvent(e)
	}
}
