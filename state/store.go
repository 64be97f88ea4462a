package state

import (
	"fmt"
	"strings"
	"time"
)

// Store is the capability set shared by all state backends. Every operation
// sees a store from which already-expired keys have been evicted.
type Store interface {
	// Get returns the value for key, or nil when absent or expired.
	Get(key string) any

	// Set stores a value. A zero ttl means no expiry.
	Set(key string, value any, ttl time.Duration)

	// Delete removes a key, reporting whether it existed.
	Delete(key string) bool

	// Exists reports whether a live value is stored under key.
	Exists(key string) bool

	// ListKeys returns keys matching pattern: "foo*" prefix, "*foo"
	// suffix, plain substring otherwise. An empty pattern matches all.
	ListKeys(pattern string) []string

	// Clear removes everything, returning the number of keys dropped.
	Clear() int
}

// matchKey applies the wildcard rules shared by backends.
func matchKey(key, pattern string) bool {
	switch {
	case pattern == "":
		return true
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(key, strings.TrimSuffix(pattern, "*"))
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(key, strings.TrimPrefix(pattern, "*"))
	default:
		return strings.Contains(key, pattern)
	}
}

// New constructs a store for the named backend. Only "inmemory" ships with
// planmesh; durable backends register behind the same Store contract.
func New(backend string) (Store, error) {
	switch backend {
	case "", "inmemory":
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}
