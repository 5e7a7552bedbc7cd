package python

import (
	"fmt"
	"strings"

	"github.com/matzehuels/pyseek/pkg/errors"
	"github.com/matzehuels/pyseek/pkg/pep440"
)

// RequiresPythonScope is where a requires-python constraint was declared.
type RequiresPythonScope int

const (
	ScopeProject RequiresPythonScope = iota
	ScopeDependencyGroup
)

// RequiresPythonSource records one declaration that contributed to a
// [RequiresPython].
type RequiresPythonSource struct {
	Scope      RequiresPythonScope
	Project    string
	Group      string
	Text       string
	Specifiers pep440.Specifiers
}

// Label is the configuration key the constraint was read from.
func (s RequiresPythonSource) Label() string {
	if s.Scope == ScopeDependencyGroup {
		return fmt.Sprintf("tool.pyseek.dependency-groups.%s.requires-python", s.Group)
	}
	return "project.requires-python"
}

// Identifier names the declaring scope in conflict messages: "foo" for a
// project, "foo:dev" for its group.
func (s RequiresPythonSource) Identifier() string {
	if s.Scope == ScopeDependencyGroup {
		return s.Project + ":" + s.Group
	}
	return s.Project
}

// RequiresPython is a version-range constraint, possibly the intersection of
// several declarations.
type RequiresPython struct {
	Specifiers pep440.Specifiers
	Ranges     pep440.Ranges
	Sources    []RequiresPythonSource
}

// NewRequiresPython parses text as the constraint declared by src.
func NewRequiresPython(text string, src RequiresPythonSource) (*RequiresPython, error) {
	specs, err := pep440.ParseSpecifiers(text)
	if err != nil {
		return nil, fmt.Errorf("invalid `%s` value `%s`: %w", src.Label(), text, err)
	}
	src.Text = strings.TrimSpace(text)
	src.Specifiers = specs
	return &RequiresPython{
		Specifiers: specs,
		Ranges:     pep440.FromSpecifiers(specs),
		Sources:    []RequiresPythonSource{src},
	}, nil
}

// Contains reports whether an interpreter version satisfies the constraint.
// Pre and post segments are ignored, so a 3.13 release candidate satisfies
// ">=3.13".
func (r *RequiresPython) Contains(v Version) bool {
	if r == nil {
		return true
	}
	return r.Ranges.Contains(v.ReleaseOnly())
}

// Violation returns the first declaration that rejects v.
func (r *RequiresPython) Violation(v Version) (RequiresPythonSource, bool) {
	if r == nil {
		return RequiresPythonSource{}, false
	}
	for _, src := range r.Sources {
		if !src.Specifiers.Contains(v.ReleaseOnly()) {
			return src, true
		}
	}
	if !r.Contains(v) && len(r.Sources) > 0 {
		return r.Sources[0], true
	}
	return RequiresPythonSource{}, false
}

// Request converts the constraint into an interpreter request.
func (r *RequiresPython) Request() Request {
	return Request{Kind: RequestVersion, Version: VersionRequest{Kind: VersionRange, Range: r.Specifiers}}
}

func (r *RequiresPython) String() string {
	if r == nil {
		return ""
	}
	return r.Specifiers.String()
}

// CombineRequiresPython intersects the project constraint with the default
// dependency group's. Either may be nil. An empty intersection is a
// *ConflictError naming both declarations.
func CombineRequiresPython(project, group *RequiresPython) (*RequiresPython, error) {
	switch {
	case project == nil:
		return group, nil
	case group == nil:
		return project, nil
	}
	ranges := project.Ranges.Intersect(group.Ranges)
	sources := append(append([]RequiresPythonSource(nil), project.Sources...), group.Sources...)
	if ranges.IsEmpty() {
		return nil, &ConflictError{Sources: sources}
	}
	return &RequiresPython{
		Specifiers: project.Specifiers.Union(group.Specifiers),
		Ranges:     ranges,
		Sources:    sources,
	}, nil
}

// ConflictError reports requires-python declarations with no common version.
type ConflictError struct {
	Sources []RequiresPythonSource
}

func (e *ConflictError) Error() string {
	var b strings.Builder
	b.WriteString("Found conflicting Python requirements:")
	for _, s := range e.Sources {
		fmt.Fprintf(&b, "\n- %s: %s", s.Identifier(), s.Text)
	}
	return b.String()
}

// Code implements errors.Coder.
func (e *ConflictError) Code() errors.Code { return errors.ErrCodeConflict }
