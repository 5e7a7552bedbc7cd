package python

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

// fakePython describes the probe output of a simulated interpreter.
type fakePython struct {
	Implementation string
	Version        string
	Freethreaded   bool
	OS             string
	Arch           string
	Libc           string
	Prefix         string
	BasePrefix     string
}

func (f fakePython) probeJSON(exe string) []byte {
	impl := f.Implementation
	if impl == "" {
		impl = "cpython"
	}
	plat := Platform{OS: f.OS, Arch: f.Arch, Libc: f.Libc}
	if plat.OS == "" {
		plat = Platform{OS: "linux", Arch: "x86_64", Libc: "gnu"}
	}
	prefix := f.Prefix
	if prefix == "" {
		prefix = filepath.Dir(filepath.Dir(exe))
	}
	base := f.BasePrefix
	if base == "" {
		base = prefix
	}
	data, _ := json.Marshal(probeOutput{
		ImplementationName: impl,
		Version:            f.Version,
		GILDisabled:        f.Freethreaded,
		OS:                 plat.OS,
		Arch:               plat.Arch,
		Libc:               plat.Libc,
		Prefix:             prefix,
		BasePrefix:         base,
		BaseExecutable:     exe,
		SysExecutable:      exe,
		PointerSize:        8,
	})
	return data
}

// fakeQuerier answers probes from memory, keyed by absolute path.
type fakeQuerier struct {
	mu      sync.Mutex
	pythons map[string]fakePython
	calls   map[string]int
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{pythons: make(map[string]fakePython), calls: make(map[string]int)}
}

func (q *fakeQuerier) Query(_ context.Context, path string) ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls[path]++
	f, ok := q.pythons[path]
	if !ok {
		return nil, &ProbeError{Path: path, Kind: ProbeQuery, Err: fmt.Errorf("exit status 1")}
	}
	return f.probeJSON(path), nil
}

func (q *fakeQuerier) callCount(path string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls[path]
}

// add creates an executable placeholder at path and registers f for it.
func (q *fakeQuerier) add(t *testing.T, path string, f fakePython) string {
	t.Helper()
	touchExecutable(t, path)
	q.mu.Lock()
	q.pythons[path] = f
	q.mu.Unlock()
	return path
}

func touchExecutable(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}
}

// writeScriptPython writes a shell script that prints the probe output of
// f, for tests that go through ExecQuerier.
func writeScriptPython(t *testing.T, path string, f fakePython) string {
	t.Helper()
	skipOnWindows(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	script := fmt.Sprintf("#!/bin/sh\ncat <<'JSON'\n%s\nJSON\n", f.probeJSON(path))
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// makeVenv creates a virtual environment skeleton with a fake interpreter.
func makeVenv(t *testing.T, q *fakeQuerier, root string, f fakePython) string {
	t.Helper()
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := "home = /usr/bin\nversion_info = " + f.Version + "\n"
	if err := os.WriteFile(filepath.Join(root, VenvConfigName), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	f.Prefix = root
	if f.BasePrefix == "" {
		f.BasePrefix = "/usr"
	}
	return q.add(t, EnvironmentExecutable(root), f)
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("simulated interpreters are shell scripts")
	}
}

// recordingReporter collects messages.
type recordingReporter struct {
	mu       sync.Mutex
	warnings []string
	debug    []string
}

func (r *recordingReporter) Warnf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func (r *recordingReporter) Debugf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debug = append(r.debug, fmt.Sprintf(format, args...))
}

func mustRequest(t *testing.T, s string) Request {
	t.Helper()
	req, err := ParseRequest(s)
	if err != nil {
		t.Fatalf("ParseRequest(%q): %v", s, err)
	}
	return req
}
