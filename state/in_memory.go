package state

import (
	"sync"
	"time"
)

// InMemoryStore is a volatile Store implementation backed by a process
// local map. Suitable for development and testing; nothing survives the
// process. Safe for concurrent access.
type InMemoryStore struct {
	mu     sync.Mutex
	values map[string]any
	expiry map[string]time.Time
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		values: make(map[string]any),
		expiry: make(map[string]time.Time),
	}
}

// evictExpiredLocked removes keys whose expiry is at or before now. Caller
// holds the lock.
func (s *InMemoryStore) evictExpiredLocked() {
	now := time.Now()
	for key, exp := range s.expiry {
		if !exp.After(now) {
			delete(s.values, key)
			delete(s.expiry, key)
		}
	}
}

// Get implements Store.
func (s *InMemoryStore) Get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()
	return s.values[key]
}

// Set implements Store. A zero ttl clears any previous expiry.
func (s *InMemoryStore) Set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()
	s.values[key] = value
	if ttl > 0 {
		s.expiry[key] = time.Now().Add(ttl)
	} else {
		delete(s.expiry, key)
	}
}

// Delete implements Store.
func (s *InMemoryStore) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()
	if _, ok := s.values[key]; !ok {
		return false
	}
	delete(s.values, key)
	delete(s.expiry, key)
	return true
}

// Exists implements Store.
func (s *InMemoryStore) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()
	_, ok := s.values[key]
	return ok
}

// ListKeys implements Store.
func (s *InMemoryStore) ListKeys(pattern string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		if matchKey(key, pattern) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Clear implements Store.
func (s *InMemoryStore) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := len(s.values)
	s.values = make(map[string]any)
	s.expiry = make(map[string]time.Time)
	return count
}
