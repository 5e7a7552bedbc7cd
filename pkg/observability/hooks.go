// Package observability provides hooks for interpreter discovery events.
//
// Library packages emit events (probes, cache lookups, candidate decisions)
// through the registered hooks; the defaults do nothing. The CLI registers a
// logging implementation when run with --verbose, and embedders can plug in
// metrics or tracing without pyseek depending on a particular backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetProbeHooks(&myProbeHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Probe().OnProbeStart(ctx, path)
//	// ... run the interpreter ...
//	observability.Probe().OnProbeComplete(ctx, path, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Probe Hooks
// =============================================================================

// ProbeHooks receives events from interpreter probing.
type ProbeHooks interface {
	// OnProbeStart is called before an interpreter is executed.
	OnProbeStart(ctx context.Context, path string)

	// OnProbeComplete is called after execution, with the probe error if any.
	OnProbeComplete(ctx context.Context, path string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from the persistent probe cache.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Selection Hooks
// =============================================================================

// SelectionHooks receives events from the selection engine.
type SelectionHooks interface {
	// OnCandidate is called for every candidate considered, in order.
	OnCandidate(ctx context.Context, source, path string)

	// OnSkip is called when a candidate is rejected.
	OnSkip(ctx context.Context, source, path, reason string)

	// OnSelect is called once with the chosen interpreter.
	OnSelect(ctx context.Context, source, path, version string)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopProbeHooks is a no-op implementation of ProbeHooks.
type NoopProbeHooks struct{}

func (NoopProbeHooks) OnProbeStart(context.Context, string)                          {}
func (NoopProbeHooks) OnProbeComplete(context.Context, string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopSelectionHooks is a no-op implementation of SelectionHooks.
type NoopSelectionHooks struct{}

func (NoopSelectionHooks) OnCandidate(context.Context, string, string)      {}
func (NoopSelectionHooks) OnSkip(context.Context, string, string, string)   {}
func (NoopSelectionHooks) OnSelect(context.Context, string, string, string) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	probeHooks     ProbeHooks     = NoopProbeHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	selectionHooks SelectionHooks = NoopSelectionHooks{}
	hooksMu        sync.RWMutex
)

// SetProbeHooks registers custom probe hooks.
// This should be called once at application startup before any lookup.
func SetProbeHooks(h ProbeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		probeHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetSelectionHooks registers custom selection hooks.
func SetSelectionHooks(h SelectionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		selectionHooks = h
	}
}

// Probe returns the registered probe hooks.
func Probe() ProbeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return probeHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Selection returns the registered selection hooks.
func Selection() SelectionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return selectionHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	probeHooks = NoopProbeHooks{}
	cacheHooks = NoopCacheHooks{}
	selectionHooks = NoopSelectionHooks{}
}
