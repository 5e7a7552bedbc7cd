package python

import (
	"fmt"
	"maps"

	"github.com/matzehuels/pyseek/pkg/pep440"
)

// Version is the version of a concrete Python interpreter (or of one that
// an environment should target). Unlike an arbitrary [pep440.Version], it
// has no epoch, dev or local segment, and its major, minor and patch
// components fit in a byte.
type Version struct {
	v pep440.Version
}

// ParseVersion parses and validates s as an interpreter version.
func ParseVersion(s string) (Version, error) {
	v, err := pep440.Parse(s)
	if err != nil {
		return Version{}, fmt.Errorf("Python version `%s` could not be parsed: %w", s, err)
	}
	return newVersion(s, v)
}

// NewVersion validates v as an interpreter version.
func NewVersion(v pep440.Version) (Version, error) {
	return newVersion(v.String(), v)
}

// MustParseVersion is like [ParseVersion] but panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newVersion(s string, v pep440.Version) (Version, error) {
	switch {
	case v.IsDev():
		return Version{}, fmt.Errorf("Python version `%s` is a development release", s)
	case v.IsLocal():
		return Version{}, fmt.Errorf("Python version `%s` is a local version", s)
	case v.Epoch != 0:
		return Version{}, fmt.Errorf("Python version `%s` has a non-zero epoch", s)
	}
	for i, name := range []string{"major", "minor", "patch"} {
		if i < len(v.Release) && v.Release[i] > 255 {
			return Version{}, fmt.Errorf("Python version `%s` has an invalid %s version (%d)", s, name, v.Release[i])
		}
	}
	return Version{v: v}, nil
}

// PEP440 returns the underlying version.
func (v Version) PEP440() pep440.Version { return v.v.OnlyRelease().WithPre(v.v.Pre).WithPost(v.v.Post) }

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool { return len(v.v.Release) == 0 }

// Major returns the major component.
func (v Version) Major() uint8 { return uint8(v.v.ReleaseAt(0)) }

// Minor returns the minor component.
func (v Version) Minor() uint8 { return uint8(v.v.ReleaseAt(1)) }

// Patch returns the patch component, if the version has one.
func (v Version) Patch() (uint8, bool) {
	if len(v.v.Release) < 3 {
		return 0, false
	}
	return uint8(v.v.Release[2]), true
}

// Pre returns the pre-release segment, or nil.
func (v Version) Pre() *pep440.Prerelease { return v.v.Pre }

// String renders the version as parsed (normalized).
func (v Version) String() string { return v.v.String() }

// PythonVersion returns the python_version marker value, e.g. "3.12".
func (v Version) PythonVersion() pep440.Version {
	return pep440.New(v.v.ReleaseAt(0), v.v.ReleaseAt(1))
}

// PythonFullVersion returns the python_full_version marker value: exactly
// three release components plus any pre or post segment, e.g. "3.12.0b1".
func (v Version) PythonFullVersion() pep440.Version {
	return pep440.New(v.v.ReleaseAt(0), v.v.ReleaseAt(1), v.v.ReleaseAt(2)).
		WithPre(v.v.Pre).
		WithPost(v.v.Post)
}

// ReleaseOnly returns the version with pre and post segments removed. It is
// the form compared against requires-python.
func (v Version) ReleaseOnly() pep440.Version { return v.v.OnlyRelease() }

// WithoutPatch returns major.minor.
func (v Version) WithoutPatch() Version {
	return Version{v: pep440.New(v.v.ReleaseAt(0), v.v.ReleaseAt(1))}
}

// Compare orders versions by PEP 440 rules.
func (v Version) Compare(o Version) int { return pep440.Compare(v.v, o.v) }

// MarkerEnvironment is the set of PEP 508 environment markers.
type MarkerEnvironment map[string]string

// Marker names overridden by [Version.Markers].
const (
	MarkerImplementationName    = "implementation_name"
	MarkerImplementationVersion = "implementation_version"
	MarkerPythonVersion         = "python_version"
	MarkerPythonFullVersion     = "python_full_version"
)

// Markers returns a copy of base with the Python version markers replaced by
// this version. For CPython the implementation version is replaced too.
func (v Version) Markers(base MarkerEnvironment) MarkerEnvironment {
	out := maps.Clone(base)
	if out == nil {
		out = MarkerEnvironment{}
	}
	full := v.PythonFullVersion().String()
	if out[MarkerImplementationName] == "cpython" {
		out[MarkerImplementationVersion] = full
	}
	out[MarkerPythonFullVersion] = full
	out[MarkerPythonVersion] = v.PythonVersion().String()
	return out
}
