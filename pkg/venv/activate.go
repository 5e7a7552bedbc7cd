package venv

import (
	"embed"
	"path/filepath"
	"runtime"
	"strings"
)

//go:embed activator/*
var activators embed.FS

// Replacement lines that locate the environment at activation time instead
// of baking in an absolute path.
const (
	relocatableSh   = `''"$(dirname -- "$(dirname -- "$(realpath -- "$SCRIPT_PATH")")")"''`
	relocatableFish = `''"$(dirname -- "$(cd "$(dirname -- "$(status -f)")"; and pwd)")"''`
	relocatableBat  = `@for %%i in ("%~dp0..") do @set "VIRTUAL_ENV=%%~fi"`
)

// activator is one activation script and how its placeholders are filled.
type activator struct {
	name  string
	quote func(string) string
}

var activatorScripts = []activator{
	{name: "activate", quote: shellQuote},
	{name: "activate.fish", quote: fishQuote},
	{name: "activate.bat", quote: func(s string) string { return s }},
	{name: "activate.ps1", quote: powershellQuote},
}

// renderActivators returns the activation scripts keyed by file name.
func renderActivators(l Layout, opts Options) (map[string][]byte, error) {
	binName := filepath.Base(l.Bin)
	pathSep := ":"
	if runtime.GOOS == "windows" {
		pathSep = ";"
	}

	out := make(map[string][]byte, len(activatorScripts))
	for _, a := range activatorScripts {
		tmpl, err := activators.ReadFile("activator/" + a.name)
		if err != nil {
			return nil, err
		}

		envDir := a.quote(l.Root)
		setEnv := `@set "VIRTUAL_ENV=` + l.Root + `"`
		if opts.Relocatable {
			envDir = relocatableSh
			if a.name == "activate.fish" {
				envDir = relocatableFish
			}
			setEnv = relocatableBat
		}

		r := strings.NewReplacer(
			"{{ VIRTUAL_ENV_DIR }}", envDir,
			"{{ SET_VIRTUAL_ENV }}", setEnv,
			"{{ BIN_NAME }}", binName,
			"{{ VIRTUAL_PROMPT }}", a.quote(opts.Prompt),
			"{{ PATH_SEP }}", pathSep,
		)
		out[a.name] = []byte(r.Replace(string(tmpl)))
	}
	return out, nil
}

// shellQuote quotes s for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// fishQuote quotes s for fish, where a backslash escapes inside single
// quotes.
func fishQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func powershellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
