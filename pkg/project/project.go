// Package project reads the parts of Python project metadata that affect
// interpreter selection: pyproject.toml and inline script metadata.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	pyerrors "github.com/matzehuels/pyseek/pkg/errors"
	"github.com/matzehuels/pyseek/pkg/python"
)

// FileName is the project metadata file.
const FileName = "pyproject.toml"

// DefaultGroups are the dependency groups enabled when tool.pyseek does not
// say otherwise.
var DefaultGroups = []string{"dev"}

// Project is a pyproject.toml with a [project] table.
type Project struct {
	Root           string
	Name           string
	RequiresPython string

	// DependencyGroups maps each group name to its requirements.
	DependencyGroups map[string][]string

	// DefaultGroups lists the groups installed without being asked for.
	DefaultGroups []string

	// GroupRequiresPython maps group names to their requires-python.
	GroupRequiresPython map[string]string
}

type pyproject struct {
	Project *struct {
		Name           string `toml:"name"`
		RequiresPython string `toml:"requires-python"`
	} `toml:"project"`
	DependencyGroups map[string][]any `toml:"dependency-groups"`
	Tool             struct {
		Pyseek struct {
			DefaultGroups    []string `toml:"default-groups"`
			DependencyGroups map[string]struct {
				RequiresPython string `toml:"requires-python"`
			} `toml:"dependency-groups"`
		} `toml:"pyseek"`
	} `toml:"tool"`
}

// ParseError reports an unreadable pyproject.toml. Callers usually downgrade
// it to a warning and continue without project constraints.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Failed to parse `%s`: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Code implements errors.Coder.
func (e *ParseError) Code() pyerrors.Code { return pyerrors.ErrCodeConfigParse }

// Load reads dir/pyproject.toml. It returns nil without error when the file
// is missing or has no [project] table.
func Load(dir string) (*Project, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if doc.Project == nil {
		return nil, nil
	}

	p := &Project{
		Root:                dir,
		Name:                doc.Project.Name,
		RequiresPython:      strings.TrimSpace(doc.Project.RequiresPython),
		DependencyGroups:    make(map[string][]string),
		DefaultGroups:       DefaultGroups,
		GroupRequiresPython: make(map[string]string),
	}
	if doc.Tool.Pyseek.DefaultGroups != nil {
		p.DefaultGroups = doc.Tool.Pyseek.DefaultGroups
	}
	for name, entries := range doc.DependencyGroups {
		for _, e := range entries {
			// Entries are requirement strings or {include-group = "..."} tables.
			if s, ok := e.(string); ok {
				p.DependencyGroups[normalize(name)] = append(p.DependencyGroups[normalize(name)], s)
			}
		}
	}
	for name, group := range doc.Tool.Pyseek.DependencyGroups {
		if rp := strings.TrimSpace(group.RequiresPython); rp != "" {
			p.GroupRequiresPython[normalize(name)] = rp
		}
	}
	return p, nil
}

// Discover walks up from start and loads the nearest project. Files without
// a [project] table are skipped. It returns nil when there is none.
func Discover(start string) (*Project, error) {
	for dir := range python.Ancestors(start) {
		p, err := Load(dir)
		if err != nil || p != nil {
			return p, err
		}
	}
	return nil, nil
}

// Requirement combines the project's requires-python with those of its
// default dependency groups. Groups that are not enabled by default never
// contribute. The result is nil when nothing is declared.
func (p *Project) Requirement() (*python.RequiresPython, error) {
	name := normalize(p.Name)
	var combined *python.RequiresPython
	if p.RequiresPython != "" {
		rp, err := python.NewRequiresPython(p.RequiresPython, python.RequiresPythonSource{
			Scope:   python.ScopeProject,
			Project: name,
		})
		if err != nil {
			return nil, &ParseError{Path: filepath.Join(p.Root, FileName), Err: err}
		}
		combined = rp
	}

	for _, group := range p.DefaultGroups {
		text, ok := p.GroupRequiresPython[normalize(group)]
		if !ok {
			continue
		}
		rp, err := python.NewRequiresPython(text, python.RequiresPythonSource{
			Scope:   python.ScopeDependencyGroup,
			Project: name,
			Group:   normalize(group),
		})
		if err != nil {
			return nil, &ParseError{Path: filepath.Join(p.Root, FileName), Err: err}
		}
		if combined, err = python.CombineRequiresPython(combined, rp); err != nil {
			return nil, err
		}
	}
	return combined, nil
}

var separators = regexp.MustCompile(`[-_.]+`)

// normalize applies PEP 503 name normalization.
func normalize(name string) string {
	return separators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
