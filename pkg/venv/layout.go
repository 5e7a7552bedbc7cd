package venv

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/matzehuels/pyseek/pkg/python"
)

// Layout is where the parts of a virtual environment live.
type Layout struct {
	Root         string // environment directory, as given (not symlink-resolved)
	Bin          string // bin/ or Scripts\
	SitePackages string
	Config       string // pyvenv.cfg
	Python       string // the environment's interpreter
}

// NewLayout computes the layout of an environment for interp rooted at root.
func NewLayout(root string, interp *python.Interpreter) Layout {
	l := Layout{
		Root:   root,
		Config: filepath.Join(root, python.VenvConfigName),
		Python: python.EnvironmentExecutable(root),
	}
	if runtime.GOOS == "windows" {
		l.Bin = filepath.Join(root, "Scripts")
		l.SitePackages = filepath.Join(root, "Lib", "site-packages")
		return l
	}
	l.Bin = filepath.Join(root, "bin")
	l.SitePackages = filepath.Join(root, "lib", libDirName(interp), "site-packages")
	return l
}

// libDirName is the per-version directory below lib/, e.g. "python3.12",
// "python3.13t" or "pypy3.10".
func libDirName(interp *python.Interpreter) string {
	prefix := "python"
	if interp.Implementation == python.PyPy {
		prefix = "pypy"
	}
	name := fmt.Sprintf("%s%d.%d", prefix, interp.Version.Major(), interp.Version.Minor())
	if interp.IsFreethreaded() {
		name += "t"
	}
	return name
}

// executableNames lists the names under which the base interpreter is
// exposed in bin/.
func executableNames(interp *python.Interpreter) []string {
	if runtime.GOOS == "windows" {
		return []string{"python.exe"}
	}
	major, minor := interp.Version.Major(), interp.Version.Minor()
	names := []string{
		"python",
		fmt.Sprintf("python%d", major),
		fmt.Sprintf("python%d.%d", major, minor),
	}
	if interp.IsFreethreaded() {
		names = append(names, fmt.Sprintf("python%d.%dt", major, minor))
	}
	switch interp.Implementation {
	case python.PyPy:
		names = append(names, "pypy", fmt.Sprintf("pypy%d", major), fmt.Sprintf("pypy%d.%d", major, minor))
	case python.GraalPy:
		names = append(names, "graalpy", fmt.Sprintf("graalpy%d", major))
	}
	return names
}

// usesLib64 reports whether a lib64 -> lib link is expected, as on 64-bit
// Linux distributions.
func usesLib64(interp *python.Interpreter) bool {
	return runtime.GOOS == "linux" && interp.PointerSize == 8
}
