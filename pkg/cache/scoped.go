package cache

import "time"

// ScopedKeyer wraps a Keyer with a prefix so that incompatible probe
// formats never share entries. The CLI scopes keys by the probe schema
// version:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "v1:")
//
// Environment keys are directory names, not store keys, and are never
// prefixed.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated store keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// InterpreterKey generates a prefixed probe key.
func (k *ScopedKeyer) InterpreterKey(path string, modTime time.Time, size int64) string {
	return k.prefix + k.inner.InterpreterKey(path, modTime, size)
}

// EnvironmentKey delegates to the wrapped keyer unchanged.
func (k *ScopedKeyer) EnvironmentKey(dependencies []string) string {
	return k.inner.EnvironmentKey(dependencies)
}
