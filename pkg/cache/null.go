package cache

import (
	"context"
	"time"
)

// NullCache stores nothing. Every lookup misses, so each candidate
// interpreter is executed. The CLI falls back to it when neither Redis nor
// the cache directory can be opened.
type NullCache struct {
	// Reason says why caching is off. It only feeds debug output.
	Reason string
}

// NewNullCache returns a cache that stores nothing.
func NewNullCache(reason string) NullCache {
	return NullCache{Reason: reason}
}

func (c NullCache) String() string {
	if c.Reason == "" {
		return "probe cache disabled"
	}
	return "probe cache disabled: " + c.Reason
}

func (NullCache) Get(context.Context, string) ([]byte, bool, error)         { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }

var _ Cache = NullCache{}
