package python

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/pyseek/pkg/cache"
	"github.com/matzehuels/pyseek/pkg/observability"
)

//go:embed probe.py
var probeScript string

// ProbeCacheScope prefixes persistent probe keys. Bump it when the probe
// output changes shape.
const ProbeCacheScope = "probe-v1:"

// DefaultProbeTimeout bounds a single interpreter query.
const DefaultProbeTimeout = 10 * time.Second

// Querier runs an interpreter and returns its probe output (a JSON object).
type Querier interface {
	Query(ctx context.Context, path string) ([]byte, error)
}

// ExecQuerier runs the embedded probe script in isolated mode.
type ExecQuerier struct {
	Timeout time.Duration
}

// Query executes path with the probe script. Failures are *ProbeError.
func (q ExecQuerier) Query(ctx context.Context, path string) ([]byte, error) {
	timeout := q.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-I", "-c", probeScript)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &ProbeError{Path: path, Kind: ProbeTimeout, Err: fmt.Errorf("timed out after %s", timeout)}
	}
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(err, fs.ErrPermission):
			return nil, &ProbeError{Path: path, Kind: ProbePermissionDenied, Err: fs.ErrPermission}
		case errors.Is(err, fs.ErrNotExist):
			return nil, &ProbeError{Path: path, Kind: ProbeNotFound, Err: err}
		case errors.As(err, &exitErr):
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = exitErr.Error()
			}
			return nil, &ProbeError{Path: path, Kind: ProbeQuery, Err: errors.New(msg)}
		default:
			return nil, &ProbeError{Path: path, Kind: ProbeQuery, Err: err}
		}
	}
	return stdout.Bytes(), nil
}

// probeOutput is the JSON document printed by probe.py.
type probeOutput struct {
	ImplementationName string `json:"implementation_name"`
	Version            string `json:"version"`
	GILDisabled        bool   `json:"gil_disabled"`
	OS                 string `json:"os"`
	Arch               string `json:"arch"`
	Libc               string `json:"libc"`
	Prefix             string `json:"prefix"`
	BasePrefix         string `json:"base_prefix"`
	BaseExecutable     string `json:"base_executable"`
	SysExecutable      string `json:"sys_executable"`
	PointerSize        int    `json:"pointer_size"`
}

func decodeProbe(path string, data []byte) (*Interpreter, error) {
	var out probeOutput
	if err := json.Unmarshal(bytes.TrimSpace(data), &out); err != nil {
		return nil, &ProbeError{Path: path, Kind: ProbeParse, Err: err}
	}
	version, err := ParseVersion(out.Version)
	if err != nil {
		return nil, &ProbeError{Path: path, Kind: ProbeParse, Err: err}
	}
	impl, ok := ParseImplementation(out.ImplementationName)
	if !ok {
		impl = Implementation(strings.ToLower(out.ImplementationName))
	}
	variant := VariantDefault
	if out.GILDisabled {
		variant = VariantFreethreaded
	}
	return &Interpreter{
		Executable:     path,
		Version:        version,
		Implementation: impl,
		Platform:       Platform{OS: out.OS, Arch: out.Arch, Libc: out.Libc},
		Variant:        variant,
		Prefix:         out.Prefix,
		BasePrefix:     out.BasePrefix,
		BaseExecutable: out.BaseExecutable,
		SysExecutable:  out.SysExecutable,
		PointerSize:    out.PointerSize,
	}, nil
}

// Prober inspects interpreters, consulting a persistent cache keyed by the
// executable's path, modification time and size.
type Prober struct {
	querier Querier
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithCache stores probe results in c under keys produced by k.
func WithCache(c cache.Cache, k cache.Keyer) ProberOption {
	return func(p *Prober) {
		p.cache = c
		p.keyer = k
	}
}

// WithCacheTTL expires cached probe results after ttl.
func WithCacheTTL(ttl time.Duration) ProberOption {
	return func(p *Prober) { p.ttl = ttl }
}

// NewProber returns a Prober using q (ExecQuerier when nil).
func NewProber(q Querier, opts ...ProberOption) *Prober {
	if q == nil {
		q = ExecQuerier{}
	}
	p := &Prober{
		querier: q,
		cache:   cache.NewNullCache("no cache configured"),
		keyer:   cache.NewScopedKeyer(cache.NewDefaultKeyer(), ProbeCacheScope),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe inspects the interpreter at path.
func (p *Prober) Probe(ctx context.Context, path string) (*Interpreter, error) {
	abs := absPath(path)
	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, &ProbeError{Path: abs, Kind: ProbeNotFound}
	case errors.Is(err, fs.ErrPermission):
		return nil, &ProbeError{Path: abs, Kind: ProbePermissionDenied, Err: fs.ErrPermission}
	case err != nil:
		return nil, &ProbeError{Path: abs, Kind: ProbeQuery, Err: err}
	case info.IsDir():
		return nil, &ProbeError{Path: abs, Kind: ProbeNotFound}
	}

	key := p.keyer.InterpreterKey(abs, info.ModTime(), info.Size())
	if data, hit, err := p.cache.Get(ctx, key); err == nil && hit {
		if interp, err := decodeProbe(abs, data); err == nil {
			observability.Cache().OnCacheHit(ctx, "interpreter")
			return interp, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "interpreter")

	observability.Probe().OnProbeStart(ctx, abs)
	start := time.Now()
	data, err := p.querier.Query(ctx, abs)
	var interp *Interpreter
	if err == nil {
		interp, err = decodeProbe(abs, data)
	}
	observability.Probe().OnProbeComplete(ctx, abs, time.Since(start), err)
	if err != nil {
		var pe *ProbeError
		if !errors.As(err, &pe) {
			err = &ProbeError{Path: abs, Kind: ProbeQuery, Err: err}
		}
		return nil, err
	}

	if err := p.cache.Set(ctx, key, data, p.ttl); err == nil {
		observability.Cache().OnCacheSet(ctx, "interpreter", len(data))
	}
	return interp, nil
}

// absPath makes path absolute and clean without resolving symlinks.
func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// probeMemo memoizes probes by absolute path for one resolution. Concurrent
// requests for the same path share a single execution.
type probeMemo struct {
	prober *Prober
	group  singleflight.Group

	mu      sync.Mutex
	results map[string]probeResult
}

type probeResult struct {
	interp *Interpreter
	err    error
}

func newProbeMemo(p *Prober) *probeMemo {
	return &probeMemo{prober: p, results: make(map[string]probeResult)}
}

func (m *probeMemo) probe(ctx context.Context, path string) (*Interpreter, error) {
	key := absPath(path)
	m.mu.Lock()
	if r, ok := m.results[key]; ok {
		m.mu.Unlock()
		return r.interp, r.err
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do(key, func() (any, error) {
		m.mu.Lock()
		if r, ok := m.results[key]; ok {
			m.mu.Unlock()
			return r.interp, r.err
		}
		m.mu.Unlock()

		interp, err := m.prober.Probe(ctx, key)
		m.mu.Lock()
		m.results[key] = probeResult{interp: interp, err: err}
		m.mu.Unlock()
		return interp, err
	})
	interp, _ := v.(*Interpreter)
	return interp, err
}
