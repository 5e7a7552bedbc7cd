package cli

import (
	"context"
	"time"

	"github.com/matzehuels/pyseek/pkg/observability"
)

// debugHooks logs discovery events under --verbose.
type debugHooks struct{}

func (debugHooks) OnProbeStart(ctx context.Context, path string) {
	loggerFromContext(ctx).Debug("probing interpreter", "path", path)
}

func (debugHooks) OnProbeComplete(ctx context.Context, path string, d time.Duration, err error) {
	l := loggerFromContext(ctx)
	if err != nil {
		l.Debug("probe failed", "path", path, "took", d.Round(time.Millisecond), "err", err)
		return
	}
	l.Debug("probed interpreter", "path", path, "took", d.Round(time.Millisecond))
}

func (debugHooks) OnCacheHit(ctx context.Context, keyType string) {
	loggerFromContext(ctx).Debug("cache hit", "type", keyType)
}

func (debugHooks) OnCacheMiss(ctx context.Context, keyType string) {
	loggerFromContext(ctx).Debug("cache miss", "type", keyType)
}

func (debugHooks) OnCacheSet(ctx context.Context, keyType string, size int) {
	loggerFromContext(ctx).Debug("cache set", "type", keyType, "bytes", size)
}

func (debugHooks) OnCandidate(ctx context.Context, source, path string) {
	loggerFromContext(ctx).Debug("candidate", "source", source, "path", path)
}

func (debugHooks) OnSkip(ctx context.Context, source, path, reason string) {
	loggerFromContext(ctx).Debug("skipped", "source", source, "path", path, "reason", reason)
}

func (debugHooks) OnSelect(ctx context.Context, source, path, version string) {
	loggerFromContext(ctx).Debug("selected", "source", source, "path", path, "version", version)
}

var (
	_ observability.ProbeHooks     = debugHooks{}
	_ observability.CacheHooks     = debugHooks{}
	_ observability.SelectionHooks = debugHooks{}
)
