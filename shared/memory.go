package shared

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for single-node pools and tests.
// Thread-safe; Await blocks on a per-key broadcast channel instead of
// polling.
type MemoryStore struct {
	mu      sync.Mutex
	values  map[string][]byte
	arrived map[string]chan struct{}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[string][]byte),
		arrived: make(map[string]chan struct{}),
	}
}

func (m *MemoryStore) signal(key string) chan struct{} {
	ch, ok := m.arrived[key]
	if !ok {
		ch = make(chan struct{})
		m.arrived[key] = ch
	}
	return ch
}

// Publish writes an immutable value and wakes every waiter on key.
func (m *MemoryStore) Publish(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.values[key]; exists {
		return ErrAlreadyPublished
	}

	// Copy to prevent external mutation
	copied := make([]byte, len(value))
	copy(copied, value)
	m.values[key] = copied

	close(m.signal(key))
	return nil
}

// Await returns the value under key, blocking until it is published.
func (m *MemoryStore) Await(ctx context.Context, key string) ([]byte, error) {
	for {
		m.mu.Lock()
		if value, ok := m.values[key]; ok {
			copied := make([]byte, len(value))
			copy(copied, value)
			m.mu.Unlock()
			return copied, nil
		}
		ch := m.signal(key)
		m.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Clear retires a key and its broadcast channel.
func (m *MemoryStore) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	if ch, ok := m.arrived[key]; ok {
		select {
		case <-ch:
		default:
			close(ch)
		}
		delete(m.arrived, key)
	}
	return nil
}
