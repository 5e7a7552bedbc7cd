package project

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pyseek/pkg/python"
)

// Script is the inline metadata block of a single-file script:
//
//	# /// script
//	# requires-python = ">=3.12"
//	# dependencies = ["rich"]
//	# ///
type Script struct {
	Path           string
	RequiresPython string   `toml:"requires-python"`
	Dependencies   []string `toml:"dependencies"`
}

// LoadScript reads the script metadata block of the file at path. A script
// without a block yields an empty Script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, err := metadataBlock(data, "script")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s := &Script{Path: path}
	if block == "" {
		return s, nil
	}
	if err := toml.Unmarshal([]byte(block), s); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	s.Path = path
	return s, nil
}

// Python converts the metadata into discovery input.
func (s *Script) Python() (*python.Script, error) {
	out := &python.Script{Path: s.Path, Dependencies: s.Dependencies}
	if strings.TrimSpace(s.RequiresPython) == "" {
		return out, nil
	}
	rp, err := python.NewRequiresPython(s.RequiresPython, python.RequiresPythonSource{
		Scope:   python.ScopeProject,
		Project: s.Path,
	})
	if err != nil {
		return nil, &ParseError{Path: s.Path, Err: err}
	}
	out.RequiresPython = rp
	return out, nil
}

// metadataBlock extracts the TOML body of the "# /// <kind>" block. Each
// body line is either "#" or "# " followed by content.
func metadataBlock(data []byte, kind string) (string, error) {
	var (
		body   strings.Builder
		inside bool
		found  bool
	)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case !inside && line == "# /// "+kind:
			if found {
				return "", fmt.Errorf("multiple `%s` metadata blocks", kind)
			}
			inside, found = true, true
		case inside && line == "# ///":
			inside = false
		case inside && line == "#":
			body.WriteByte('\n')
		case inside && strings.HasPrefix(line, "# "):
			body.WriteString(line[2:])
			body.WriteByte('\n')
		case inside:
			return "", fmt.Errorf("unterminated `%s` metadata block", kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if inside {
		return "", fmt.Errorf("unterminated `%s` metadata block", kind)
	}
	return body.String(), nil
}
