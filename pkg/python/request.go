package python

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RequestKind discriminates the shapes of a [Request].
type RequestKind int

const (
	RequestAny RequestKind = iota
	RequestDefault
	RequestVersion
	RequestImplementation
	RequestImplementationVersion
	RequestKey
	RequestFile
	RequestDirectory
	RequestExecutableName
)

// Request is a parsed interpreter request. Only the fields relevant to Kind
// are set.
type Request struct {
	Kind           RequestKind
	Version        VersionRequest
	Implementation Implementation

	// Key fields; empty means "any".
	OS   string
	Arch string
	Libc string

	// Path is the file or directory for path requests, as given.
	Path string

	// Name is the executable name for RequestExecutableName.
	Name string
}

// DefaultRequest is used when no request is given anywhere.
var DefaultRequest = Request{Kind: RequestDefault}

// ParseRequest interprets a textual request. Free text that matches no
// other shape becomes an executable name, so the only errors are
// *RequestError values for version-shaped input that is malformed or
// unsupported.
func ParseRequest(text string) (Request, error) {
	s := strings.TrimSpace(text)
	lower := strings.ToLower(s)

	switch lower {
	case "", "any":
		return Request{Kind: RequestAny}, nil
	case "default", "python":
		return Request{Kind: RequestDefault}, nil
	}

	if vr, err := ParseVersionRequest(s); err == nil {
		return Request{Kind: RequestVersion, Version: vr}, nil
	} else if !errors.Is(err, errNotVersion) {
		return Request{}, err
	}

	if rest, ok := strings.CutPrefix(lower, "python"); ok {
		if vr, err := ParseVersionRequest(rest); err == nil {
			return Request{Kind: RequestVersion, Version: vr}, nil
		} else if !errors.Is(err, errNotVersion) {
			return Request{}, err
		}
	}

	for _, alias := range implementationAliases {
		rest, ok := strings.CutPrefix(lower, alias.name)
		if !ok {
			continue
		}
		if rest == "" {
			return Request{Kind: RequestImplementation, Implementation: alias.impl}, nil
		}
		vr, err := ParseVersionRequest(strings.TrimPrefix(rest, "@"))
		if err == nil {
			return Request{Kind: RequestImplementationVersion, Implementation: alias.impl, Version: vr}, nil
		}
		if !errors.Is(err, errNotVersion) {
			return Request{}, err
		}
	}

	if req, ok, err := parseKey(lower); err != nil {
		return Request{}, err
	} else if ok {
		return req, nil
	}

	if looksLikePath(s) {
		path := expandHome(s)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return Request{Kind: RequestDirectory, Path: s}, nil
		}
		return Request{Kind: RequestFile, Path: s}, nil
	}

	return Request{Kind: RequestExecutableName, Name: s}, nil
}

// parseKey parses "impl-version-os-arch-libc" with trailing segments
// optional and "any" as a wildcard in every position.
func parseKey(s string) (Request, bool, error) {
	if strings.ContainsAny(s, `/\`) {
		return Request{}, false, nil
	}
	parts := strings.Split(s, "-")
	if len(parts) < 2 || len(parts) > 5 {
		return Request{}, false, nil
	}
	req := Request{Kind: RequestKey}
	if parts[0] != "any" {
		impl, ok := ParseImplementation(parts[0])
		if !ok {
			return Request{}, false, nil
		}
		req.Implementation = impl
	}
	if parts[1] != "any" {
		vr, err := ParseVersionRequest(parts[1])
		if errors.Is(err, errNotVersion) {
			return Request{}, false, nil
		}
		if err != nil {
			return Request{}, false, err
		}
		req.Version = vr
	}
	fields := []*string{&req.OS, &req.Arch, &req.Libc}
	for i, p := range parts[2:] {
		if p == "" {
			return Request{}, false, nil
		}
		if p != "any" {
			*fields[i] = normalizeKeyField(i, p)
		}
	}
	return req, true, nil
}

func normalizeKeyField(i int, v string) string {
	switch {
	case i == 0 && (v == "darwin" || v == "macosx"):
		return "macos"
	case i == 0 && v == "win32":
		return "windows"
	case i == 1 && (v == "amd64" || v == "x64"):
		return "x86_64"
	case i == 1 && v == "arm64":
		return "aarch64"
	}
	return v
}

func looksLikePath(s string) bool {
	return strings.ContainsAny(s, `/\`) ||
		strings.HasPrefix(s, ".") ||
		strings.HasPrefix(s, "~") ||
		filepath.IsAbs(s)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// IsPath reports whether the request names a file or directory.
func (r Request) IsPath() bool {
	return r.Kind == RequestFile || r.Kind == RequestDirectory
}

// IsArbitraryName reports whether the request is free text with no version
// or implementation shape. Such requests cannot be stored in version files.
func (r Request) IsArbitraryName() bool {
	return r.Kind == RequestExecutableName
}

// versionRequest returns the version constraint carried by the request.
func (r Request) versionRequest() VersionRequest {
	switch r.Kind {
	case RequestVersion, RequestImplementationVersion, RequestKey:
		return r.Version
	}
	return VersionRequest{}
}

// Satisfies reports whether interp fulfils the request.
func (r Request) Satisfies(interp *Interpreter) bool {
	switch r.Kind {
	case RequestAny, RequestDefault, RequestFile, RequestDirectory:
		return true
	case RequestVersion:
		return r.Version.Matches(interp.Version, interp.Variant)
	case RequestImplementation:
		return interp.Implementation == r.Implementation
	case RequestImplementationVersion:
		return interp.Implementation == r.Implementation &&
			r.Version.Matches(interp.Version, interp.Variant)
	case RequestKey:
		if r.Implementation != "" && interp.Implementation != r.Implementation {
			return false
		}
		if !r.Version.Matches(interp.Version, interp.Variant) {
			return false
		}
		return (r.OS == "" || r.OS == interp.Platform.OS) &&
			(r.Arch == "" || r.Arch == interp.Platform.Arch) &&
			(r.Libc == "" || r.Libc == interp.Platform.Libc)
	case RequestExecutableName:
		base := strings.TrimSuffix(filepath.Base(interp.Executable), ".exe")
		return base == strings.TrimSuffix(r.Name, ".exe")
	}
	return false
}

// String renders the request in canonical form; parsing the result yields
// an equal request.
func (r Request) String() string {
	switch r.Kind {
	case RequestAny:
		return "any"
	case RequestDefault:
		return "default"
	case RequestVersion:
		return r.Version.String()
	case RequestImplementation:
		return string(r.Implementation)
	case RequestImplementationVersion:
		return string(r.Implementation) + "@" + r.Version.String()
	case RequestKey:
		parts := []string{"any", "any", "any", "any", "any"}
		if r.Implementation != "" {
			parts[0] = string(r.Implementation)
		}
		if !r.Version.IsAny() {
			parts[1] = r.Version.String()
		}
		for i, f := range []string{r.OS, r.Arch, r.Libc} {
			if f != "" {
				parts[i+2] = f
			}
		}
		n := len(parts)
		for n > 2 && parts[n-1] == "any" {
			n--
		}
		return strings.Join(parts[:n], "-")
	case RequestFile, RequestDirectory:
		return r.Path
	case RequestExecutableName:
		return r.Name
	}
	return ""
}

// Description renders the request for messages, e.g. "Python 3.12" or
// "CPython 3.12".
func (r Request) Description() string {
	switch r.Kind {
	case RequestAny, RequestDefault:
		return "Python"
	case RequestVersion:
		return "Python " + r.Version.String()
	case RequestImplementation:
		return r.Implementation.Pretty()
	case RequestImplementationVersion:
		return r.Implementation.Pretty() + " " + r.Version.String()
	case RequestKey:
		name := "Python"
		if r.Implementation != "" {
			name = r.Implementation.Pretty()
		}
		if !r.Version.IsAny() {
			name += " " + r.Version.String()
		}
		var plat []string
		for _, f := range []string{r.OS, r.Arch, r.Libc} {
			if f != "" {
				plat = append(plat, f)
			}
		}
		if len(plat) > 0 {
			name += fmt.Sprintf(" (%s)", strings.Join(plat, "-"))
		}
		return name
	case RequestFile:
		return fmt.Sprintf("path `%s`", r.Path)
	case RequestDirectory:
		return fmt.Sprintf("directory `%s`", r.Path)
	case RequestExecutableName:
		return fmt.Sprintf("executable name `%s`", r.Name)
	}
	return ""
}
