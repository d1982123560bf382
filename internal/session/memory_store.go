package session

import (
	"context"
	"sync"
	"time"
)

// memoryEntry is a stored value with its expiration time
type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryStore is an in-memory Store with TTL support. It backs tests and
// single-node deployments that do not need durability across restarts.
type MemoryStore struct {
	data  map[string]*memoryEntry
	mutex sync.RWMutex
	now   func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*memoryEntry),
		now:  time.Now,
	}
}

// Put stores a value with the given TTL.
func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Copy so callers can reuse their buffer.
	v := make([]byte, len(value))
	copy(v, value)

	s.data[key] = &memoryEntry{
		value:     v,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Get retrieves a value, dropping it when its TTL has elapsed.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, exists := s.data[key]
	if !exists {
		return nil, nil
	}

	if entry.expired(s.now()) {
		delete(s.data, key)
		return nil, nil
	}

	// Copy on the way out too, so callers cannot mutate the stored record.
	v := make([]byte, len(entry.value))
	copy(v, entry.value)
	return v, nil
}

// Delete removes a key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.data, key)
	return nil
}

// Len returns the number of live entries, expired ones included until
// their next read.
func (s *MemoryStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.data)
}
