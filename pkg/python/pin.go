package python

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	pyerrors "github.com/matzehuels/pyseek/pkg/errors"
)

const (
	// VersionFileName pins a single request for a directory tree.
	VersionFileName = ".python-version"

	// VersionsFileName lists several requests, most preferred first.
	VersionsFileName = ".python-versions"
)

// VersionFile is a pin file found on disk.
type VersionFile struct {
	// Path is the file that was read.
	Path string

	// Dir is the directory containing the file.
	Dir string

	// Requests holds one request per non-empty, non-comment line, in file
	// order. Lines that fail to parse are kept as executable-name requests
	// so that they are reported, not silently dropped.
	Requests []Request
}

// PinOptions controls [DiscoverVersionFile].
type PinOptions struct {
	// StopAt is the outermost directory searched, typically the project
	// root. Empty means walk to the filesystem root.
	StopAt string

	// NoConfig disables pin discovery entirely.
	NoConfig bool

	// GlobalDir holds the user-level pin consulted when no directory in the
	// walk has one.
	GlobalDir string
}

// Ancestors yields dir and each of its parents, innermost first.
func Ancestors(dir string) iter.Seq[string] {
	return func(yield func(string) bool) {
		dir = filepath.Clean(dir)
		for {
			if !yield(dir) {
				return
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				return
			}
			dir = parent
		}
	}
}

// DiscoverVersionFile returns the pin that applies to start. The walk stops
// at the first directory containing a non-empty pin file, even when none of
// its requests are usable. It returns nil when no pin applies.
func DiscoverVersionFile(start string, opts PinOptions) (*VersionFile, error) {
	if opts.NoConfig {
		return nil, nil
	}
	stop := ""
	if opts.StopAt != "" {
		stop = filepath.Clean(opts.StopAt)
	}
	for dir := range Ancestors(start) {
		vf, err := versionFileIn(dir)
		if err != nil || vf != nil {
			return vf, err
		}
		if dir == stop {
			break
		}
	}
	if opts.GlobalDir != "" {
		return versionFileIn(opts.GlobalDir)
	}
	return nil, nil
}

// versionFileIn reads the pin in dir, preferring .python-versions.
func versionFileIn(dir string) (*VersionFile, error) {
	for _, name := range []string{VersionsFileName, VersionFileName} {
		vf, err := ReadVersionFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(vf.Requests) > 0 {
			return vf, nil
		}
	}
	return nil, nil
}

// ReadVersionFile parses a pin file. A missing file returns an error
// satisfying errors.Is(err, fs.ErrNotExist).
func ReadVersionFile(path string) (*VersionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vf := &VersionFile{Path: path, Dir: filepath.Dir(path)}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		req, err := ParseRequest(line)
		if err != nil {
			req = Request{Kind: RequestExecutableName, Name: line}
		}
		vf.Requests = append(vf.Requests, req)
		if filepath.Base(path) == VersionFileName {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return vf, nil
}

// Usable returns the requests that can drive discovery, warning about each
// one that cannot.
func (vf *VersionFile) Usable(rep Reporter) []Request {
	var out []Request
	for _, req := range vf.Requests {
		if req.IsArbitraryName() {
			rep.Warnf("Ignoring unsupported Python request `%s` in version file: %s", req.Name, vf.Path)
			continue
		}
		out = append(out, req)
	}
	return out
}

// Preferred returns the first usable request.
func (vf *VersionFile) Preferred(rep Reporter) (Request, bool) {
	usable := vf.Usable(rep)
	if len(usable) == 0 {
		return Request{}, false
	}
	return usable[0], true
}

// FileName returns the base name of the pin file, e.g. ".python-version".
func (vf *VersionFile) FileName() string { return filepath.Base(vf.Path) }

// WriteVersionFile writes req as the only entry of the pin file at path,
// replacing whatever was there. It returns the previously pinned request
// when the old file held a usable one.
func WriteVersionFile(path string, req Request) (*Request, error) {
	if req.IsArbitraryName() {
		return nil, pyerrors.New(pyerrors.ErrCodeInvalidInput,
			"Requests for arbitrary names (e.g., `%s`) are not supported in version files", req.Name)
	}

	var previous *Request
	if old, err := ReadVersionFile(path); err == nil {
		for _, r := range old.Requests {
			if !r.IsArbitraryName() {
				previous = &r
				break
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(req.String()+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return previous, nil
}
