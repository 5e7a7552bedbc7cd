package venv

import (
	"path/filepath"
	"strings"

	"github.com/matzehuels/pyseek/pkg/buildinfo"
	"github.com/matzehuels/pyseek/pkg/python"
)

// configEntry is one "key = value" line of pyvenv.cfg.
type configEntry struct {
	key, value string
}

// venvConfig renders pyvenv.cfg for an environment built from interp.
func venvConfig(interp *python.Interpreter, opts Options, rep python.Reporter) []byte {
	entries := []configEntry{
		{"home", homeDir(interp, rep)},
		{"implementation", interp.Implementation.Pretty()},
		{"pyseek", buildinfo.Short()},
		{"version_info", interp.Version.PythonFullVersion().String()},
		{"include-system-site-packages", boolString(opts.SystemSitePackages)},
	}
	if opts.Relocatable {
		entries = append(entries, configEntry{"relocatable", "true"})
	}
	if opts.Prompt != "" {
		entries = append(entries, configEntry{"prompt", opts.Prompt})
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.key)
		b.WriteString(" = ")
		b.WriteString(e.value)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// homeDir is the directory of the interpreter the environment links to. An
// environment created from inside another one inherits its parent's home.
func homeDir(interp *python.Interpreter, rep python.Reporter) string {
	if interp.IsVirtualEnv() {
		cfg, err := python.ReadVenvConfig(interp.Prefix)
		if err == nil && cfg.Home() != "" {
			return cfg.Home()
		}
		rep.Debugf("No `home` recorded for parent environment at `%s`", interp.Prefix)
	}
	return filepath.Dir(baseExecutable(interp))
}

// baseExecutable is the interpreter the environment's executables point at.
func baseExecutable(interp *python.Interpreter) string {
	if interp.BaseExecutable != "" {
		return interp.BaseExecutable
	}
	if interp.SysExecutable != "" {
		return interp.SysExecutable
	}
	return interp.Executable
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
