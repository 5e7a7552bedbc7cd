package python

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// Interpreter is a probed interpreter that can be selected. Values are not
// modified after construction; use the with* helpers to derive copies.
type Interpreter struct {
	// Executable is the absolute path the interpreter was found at. It is
	// not symlink-resolved: a virtual environment's python keeps its path.
	Executable string

	Version        Version
	Implementation Implementation
	Platform       Platform
	Variant        Variant
	Source         Source

	// Prefix and BasePrefix are sys.prefix and sys.base_prefix; they differ
	// inside a virtual environment.
	Prefix     string
	BasePrefix string

	// BaseExecutable is the interpreter a virtual environment was created
	// from (sys._base_executable), or the executable itself.
	BaseExecutable string

	// SysExecutable is sys.executable as reported by the interpreter.
	SysExecutable string

	PointerSize int
}

// IsVirtualEnv reports whether the interpreter runs inside a virtual
// environment.
func (i *Interpreter) IsVirtualEnv() bool {
	return i.Prefix != "" && filepath.Clean(i.Prefix) != filepath.Clean(i.BasePrefix)
}

// IsFreethreaded reports whether the GIL is disabled in this build.
func (i *Interpreter) IsFreethreaded() bool { return i.Variant == VariantFreethreaded }

// Key returns the installation key, e.g. "cpython-3.12.1-linux-x86_64-gnu".
func (i *Interpreter) Key() string {
	return InstallationKey{
		Implementation: i.Implementation,
		Version:        i.Version,
		Platform:       i.Platform,
		Variant:        i.Variant,
	}.String()
}

// Describe renders "CPython 3.12.1" (with a "t" suffix for free-threaded
// builds).
func (i *Interpreter) Describe() string {
	s := fmt.Sprintf("%s %s", i.Implementation.Pretty(), i.Version)
	if i.IsFreethreaded() {
		s += "t"
	}
	return s
}

func (i *Interpreter) withCandidate(c Candidate) *Interpreter {
	out := *i
	out.Executable = c.Executable
	out.Source = c.Source
	return &out
}

// exeSuffix is appended to executable names on Windows.
var exeSuffix = func() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}()

// EnvironmentExecutable returns the interpreter path inside a virtual
// environment rooted at root.
func EnvironmentExecutable(root string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(root, "Scripts", "python.exe")
	}
	return filepath.Join(root, "bin", "python")
}
