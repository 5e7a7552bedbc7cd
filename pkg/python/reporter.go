package python

import (
	"fmt"
	"sync"
)

// Reporter receives user-facing warnings and debug diagnostics. The engine
// never prints; the CLI decides how messages are rendered.
type Reporter interface {
	Warnf(format string, args ...any)
	Debugf(format string, args ...any)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Warnf(string, ...any)  {}
func (NopReporter) Debugf(string, ...any) {}

// recorder forwards to a Reporter and keeps the warnings so they can be
// returned with a result.
type recorder struct {
	inner Reporter

	mu       sync.Mutex
	warnings []string
}

func newRecorder(inner Reporter) *recorder {
	if inner == nil {
		inner = NopReporter{}
	}
	return &recorder{inner: inner}
}

func (r *recorder) Warnf(format string, args ...any) {
	r.mu.Lock()
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
	r.mu.Unlock()
	r.inner.Warnf(format, args...)
}

func (r *recorder) Debugf(format string, args ...any) {
	r.inner.Debugf(format, args...)
}

func (r *recorder) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}
