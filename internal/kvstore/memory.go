package kvstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is the bare fallback store: process-local, lost on exit. It exists
// so every component can run without an embedded database available, and it
// backs most tests.
type Memory struct {
	mu     sync.RWMutex
	data   map[string]string
	subs   map[int]func(Change)
	nextID int

	// failNext forces the next Set to fail; used to exercise the
	// eviction-and-retry path.
	failNext bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]string),
		subs: make(map[int]func(Change)),
	}
}

// Get returns the value for key.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set writes key and notifies subscribers.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	if m.failNext {
		m.failNext = false
		m.mu.Unlock()
		return errWriteRejected
	}
	m.data[key] = value
	fns := m.snapshotSubs()
	m.mu.Unlock()

	for _, fn := range fns {
		fn(Change{Key: key, Value: value})
	}
	return nil
}

// Delete removes key and notifies subscribers.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	_, existed := m.data[key]
	delete(m.data, key)
	fns := m.snapshotSubs()
	m.mu.Unlock()

	if existed {
		for _, fn := range fns {
			fn(Change{Key: key, Deleted: true})
		}
	}
	return nil
}

// Keys returns all keys with the given prefix, sorted.
func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Subscribe registers fn for change notifications.
func (m *Memory) Subscribe(fn func(Change)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }

// FailNextWrite makes the next Set return an error. Test hook for the
// write-failure recovery path.
func (m *Memory) FailNextWrite() {
	m.mu.Lock()
	m.failNext = true
	m.mu.Unlock()
}

// snapshotSubs must be called with mu held.
func (m *Memory) snapshotSubs() []func(Change) {
	fns := make([]func(Change), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	return fns
}
