package venv

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"slices"
	"strings"
	"time"

	pyerrors "github.com/matzehuels/pyseek/pkg/errors"
	"github.com/matzehuels/pyseek/pkg/python"
)

// Package is an installed distribution.
type Package struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

func (p Package) String() string { return p.Name + "==" + p.Version }

// Seeder installs the initial packages into a freshly built environment.
type Seeder interface {
	Seed(ctx context.Context, layout Layout, packages []string) ([]Package, error)
}

// DefaultSeedPackages returns the packages seeded when none are configured:
// pip, plus setuptools and wheel before Python 3.12.
func DefaultSeedPackages(v python.Version) []string {
	if v.Major() == 3 && v.Minor() < 12 {
		return []string{"pip", "setuptools", "wheel"}
	}
	return []string{"pip"}
}

// EnsurePipSeeder bootstraps pip with the environment's own ensurepip
// module and installs any remaining seed packages with it.
type EnsurePipSeeder struct {
	Timeout time.Duration
}

// DefaultSeedTimeout bounds each interpreter invocation of EnsurePipSeeder.
const DefaultSeedTimeout = 5 * time.Minute

// Seed implements [Seeder].
func (s EnsurePipSeeder) Seed(ctx context.Context, layout Layout, packages []string) ([]Package, error) {
	if err := s.run(ctx, layout, "-m", "ensurepip", "--default-pip"); err != nil {
		return nil, err
	}

	installed, err := installedPackages(layout.SitePackages)
	if err != nil {
		return nil, pyerrors.Wrap(pyerrors.ErrCodeSeed, err, "Failed to list seed packages")
	}
	var missing []string
	for _, name := range packages {
		if _, ok := installed[normalizeName(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		args := append([]string{"-m", "pip", "install", "--disable-pip-version-check", "--no-input"}, missing...)
		if err := s.run(ctx, layout, args...); err != nil {
			return nil, err
		}
		if installed, err = installedPackages(layout.SitePackages); err != nil {
			return nil, pyerrors.Wrap(pyerrors.ErrCodeSeed, err, "Failed to list seed packages")
		}
	}

	var out []Package
	for _, name := range packages {
		if p, ok := installed[normalizeName(name)]; ok {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b Package) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s EnsurePipSeeder) run(ctx context.Context, layout Layout, args ...string) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultSeedTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, layout.Python, args...)
	cmd.Dir = layout.Root
	cmd.Env = append(os.Environ(), "VIRTUAL_ENV="+layout.Root, "PIP_REQUIRE_VIRTUALENV=0")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w\n%s", err, msg)
		}
		return pyerrors.Wrap(pyerrors.ErrCodeSeed, err, "Failed to run `%s %s`", layout.Python, strings.Join(args, " "))
	}
	return nil
}

// installedPackages reads the *.dist-info directories of site-packages,
// keyed by normalized name.
func installedPackages(sitePackages string) (map[string]Package, error) {
	entries, err := os.ReadDir(sitePackages)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Package)
	for _, e := range entries {
		stem, ok := strings.CutSuffix(e.Name(), ".dist-info")
		if !ok || !e.IsDir() {
			continue
		}
		name, version, ok := strings.Cut(stem, "-")
		if !ok {
			continue
		}
		key := normalizeName(name)
		out[key] = Package{Name: key, Version: version}
	}
	return out, nil
}

var nameSeparators = regexp.MustCompile(`[-_.]+`)

func normalizeName(name string) string {
	return nameSeparators.ReplaceAllString(strings.ToLower(name), "-")
}
