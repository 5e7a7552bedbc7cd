// Package cache provides persistent storage for interpreter probe results.
//
// Probing an interpreter means spawning it, which dominates the cost of a
// lookup. Results are keyed by the executable's path, modification time and
// size (see [Keyer]) so an unchanged binary is never executed twice across
// invocations, and a replaced binary invalidates its entry implicitly.
//
// # Backends
//
//   - [FileCache]: JSON entries under the user cache directory (CLI default)
//   - [RedisCache]: a shared Redis instance, selected by a redis:// URL
//   - [NullCache]: stores nothing, the fallback when no backend opens
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys for the values pyseek stores.
type Keyer interface {
	// InterpreterKey identifies a probe result for one executable state.
	InterpreterKey(path string, modTime time.Time, size int64) string

	// EnvironmentKey identifies a cached script environment by its
	// dependency list. The result is a hex digest without a prefix.
	EnvironmentKey(dependencies []string) string
}

// DefaultKeyer implements Keyer with SHA-256 digests.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// InterpreterKey returns "interpreter:<sha256(path, mtime, size)>".
func (DefaultKeyer) InterpreterKey(path string, modTime time.Time, size int64) string {
	return hashKey("interpreter", path, modTime.UnixNano(), size)
}

// EnvironmentKey hashes the JSON encoding of dependencies. Callers sort the
// list first when order should not matter.
func (DefaultKeyer) EnvironmentKey(dependencies []string) string {
	if dependencies == nil {
		dependencies = []string{}
	}
	return Hash(mustJSON(dependencies))
}
