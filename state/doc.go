// Package state provides the shared keyed store agents use to exchange
// intermediate results out of band. Values carry an optional TTL; expired
// keys are evicted lazily on every access. The Store interface keeps the
// backend pluggable so a durable implementation can replace the in-memory
// one without changing callers.
package state
