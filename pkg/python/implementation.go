package python

import "strings"

// Implementation names a Python implementation, e.g. "cpython".
type Implementation string

const (
	CPython Implementation = "cpython"
	PyPy    Implementation = "pypy"
	GraalPy Implementation = "graalpy"
)

// implementationAliases maps every accepted spelling to its implementation.
// Longer spellings come first so prefix matching prefers them.
var implementationAliases = []struct {
	name string
	impl Implementation
}{
	{"graalpy", GraalPy},
	{"cpython", CPython},
	{"pypy", PyPy},
	{"cp", CPython},
	{"pp", PyPy},
	{"gp", GraalPy},
}

// ParseImplementation recognizes an implementation name or its short alias.
func ParseImplementation(s string) (Implementation, bool) {
	s = strings.ToLower(s)
	for _, a := range implementationAliases {
		if s == a.name {
			return a.impl, true
		}
	}
	return "", false
}

// Pretty returns the display name, e.g. "CPython".
func (i Implementation) Pretty() string {
	switch i {
	case CPython:
		return "CPython"
	case PyPy:
		return "PyPy"
	case GraalPy:
		return "GraalPy"
	default:
		return string(i)
	}
}

// executablePrefix is the stem of the implementation's executables.
func (i Implementation) executablePrefix() string {
	switch i {
	case PyPy:
		return "pypy"
	case GraalPy:
		return "graalpy"
	default:
		return "python"
	}
}

// Variant is a build characteristic orthogonal to the version.
type Variant int

const (
	VariantDefault Variant = iota
	VariantFreethreaded
)

func (v Variant) String() string {
	if v == VariantFreethreaded {
		return "freethreaded"
	}
	return "default"
}

// Platform identifies where an interpreter runs, in the vocabulary of
// installation keys: os "linux"/"macos"/"windows", arch "x86_64"/"aarch64",
// libc "gnu"/"musl"/"none".
type Platform struct {
	OS   string `json:"os" yaml:"os"`
	Arch string `json:"arch" yaml:"arch"`
	Libc string `json:"libc" yaml:"libc"`
}

func (p Platform) String() string {
	return p.OS + "-" + p.Arch + "-" + p.Libc
}
