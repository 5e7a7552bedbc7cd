// Package venv materializes virtual environments from a selected
// interpreter.
//
// A [Builder] turns a target directory into an environment: it links the
// base interpreter into bin/, writes pyvenv.cfg and the activation scripts,
// and optionally seeds packages through a [Seeder]. Existing targets are
// handled by a small state machine:
//
//   - missing: created
//   - a file: refused with a PATH_CONFLICT error
//   - a symlink: followed (through chains) and never replaced
//   - an empty directory: used as is
//   - a non-empty directory: cleared with Options.Clear, reused with
//     Options.AllowExisting, otherwise rebuilt with a warning
//
// Files are written under temporary names and renamed into place.
package venv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	pyerrors "github.com/matzehuels/pyseek/pkg/errors"
	"github.com/matzehuels/pyseek/pkg/python"
)

// Options control how an environment is built.
type Options struct {
	Clear              bool   // remove the contents of an existing target first
	AllowExisting      bool   // build into a non-empty target without clearing or warning
	Relocatable        bool   // activation scripts locate the environment at runtime
	Seed               bool   // install seed packages
	Prompt             string // recorded in pyvenv.cfg and used by the activation scripts
	SystemSitePackages bool
	SeedPackages       []string // defaults to DefaultSeedPackages
}

// Result describes a built environment.
type Result struct {
	Layout   Layout
	Seeded   []Package
	Warnings []string
}

// Builder creates virtual environments.
type Builder struct {
	rep    python.Reporter
	seeder Seeder
}

// NewBuilder returns a Builder. A nil reporter discards messages; a nil
// seeder uses [EnsurePipSeeder].
func NewBuilder(rep python.Reporter, seeder Seeder) *Builder {
	if rep == nil {
		rep = python.NopReporter{}
	}
	if seeder == nil {
		seeder = EnsurePipSeeder{}
	}
	return &Builder{rep: rep, seeder: seeder}
}

// Create builds an environment for interp at target. Errors are wrapped in
// "Failed to create virtual environment" and keep the code of their cause.
func (b *Builder) Create(ctx context.Context, interp *python.Interpreter, target string, opts Options) (*Result, error) {
	res := &Result{}
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		res.Warnings = append(res.Warnings, msg)
		b.rep.Warnf("%s", msg)
	}

	if err := validate(opts); err != nil {
		return nil, failed(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, failed(err)
	}
	root, err := filepath.Abs(target)
	if err != nil {
		return nil, failed(err)
	}
	if err := b.prepare(root, target, opts, warn); err != nil {
		return nil, failed(err)
	}

	layout := NewLayout(root, interp)
	res.Layout = layout
	if err := b.write(layout, interp, opts); err != nil {
		return nil, failed(err)
	}

	if opts.Seed {
		if err := ctx.Err(); err != nil {
			return nil, failed(err)
		}
		packages := opts.SeedPackages
		if len(packages) == 0 {
			packages = DefaultSeedPackages(interp.Version)
		}
		seeded, err := b.seeder.Seed(ctx, layout, packages)
		if err != nil {
			return nil, failed(err)
		}
		res.Seeded = seeded
	}
	return res, nil
}

func validate(opts Options) error {
	if err := pyerrors.ValidatePrompt(opts.Prompt); err != nil {
		return err
	}
	for _, name := range opts.SeedPackages {
		if err := pyerrors.ValidatePackageName(name); err != nil {
			return err
		}
	}
	return nil
}

// CheckTarget fails with a PathConflict error when target, with links
// followed, exists and is not a directory. It lets callers fail before
// announcing an interpreter.
func CheckTarget(target string) error {
	root, err := filepath.Abs(target)
	if err != nil {
		return failed(err)
	}
	if _, _, err := inspect(root, target); err != nil {
		return failed(err)
	}
	return nil
}

// inspect resolves root through any symlinks and reports whether the
// referent exists. A referent that is not a directory is a PathConflict.
func inspect(root, display string) (dir string, exists bool, err error) {
	if dir, err = resolveLinks(root); err != nil {
		return "", false, err
	}
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return dir, false, nil
	case err != nil:
		return "", false, err
	case !info.IsDir():
		return "", false, pyerrors.New(pyerrors.ErrCodePathConflict, "File exists at `%s`", display)
	}
	return dir, true, nil
}

// prepare leaves root as an empty or reusable directory. display is the
// target as the caller named it.
func (b *Builder) prepare(root, display string, opts Options, warn func(string, ...any)) error {
	dir, exists, err := inspect(root, display)
	if err != nil {
		return err
	}
	if dir != root {
		b.rep.Debugf("Resolved `%s` to `%s`", display, dir)
	}
	if !exists {
		b.rep.Debugf("Creating directory `%s`", dir)
		return os.MkdirAll(dir, 0o755)
	}

	empty, err := isEmptyDir(dir)
	if err != nil {
		return err
	}
	switch {
	case empty:
		return nil
	case opts.Clear:
		b.rep.Debugf("Removing existing directory contents of `%s`", dir)
		return clearDir(dir)
	case opts.AllowExisting:
		b.rep.Debugf("Building into existing directory `%s`", dir)
		return nil
	case python.IsVirtualEnvDir(dir):
		warn("A virtual environment already exists at `%s`. In the future, pyseek will require `--clear` to replace it", display)
		return clearDir(dir)
	default:
		warn("A directory already exists at `%s`. In the future, pyseek will require `--clear` to replace it", display)
		return nil
	}
}

// write lays down the environment. pyvenv.cfg goes last: its presence marks
// a complete environment.
func (b *Builder) write(l Layout, interp *python.Interpreter, opts Options) error {
	for _, dir := range []string{l.Bin, l.SitePackages} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if usesLib64(interp) {
		if err := symlinkAtomic("lib", filepath.Join(l.Root, "lib64")); err != nil {
			return err
		}
	}
	if err := writeFileAtomic(filepath.Join(l.Root, ".gitignore"), []byte("*\n"), 0o644); err != nil {
		return err
	}
	if err := b.linkExecutables(l, interp); err != nil {
		return err
	}

	scripts, err := renderActivators(l, opts)
	if err != nil {
		return err
	}
	for name, data := range scripts {
		if err := writeFileAtomic(filepath.Join(l.Bin, name), data, 0o644); err != nil {
			return err
		}
	}

	return writeFileAtomic(l.Config, venvConfig(interp, opts, b.rep), 0o644)
}

// linkExecutables exposes the base interpreter in bin/: symlinks on Unix,
// copies on Windows.
func (b *Builder) linkExecutables(l Layout, interp *python.Interpreter) error {
	base := baseExecutable(interp)
	if runtime.GOOS == "windows" {
		if err := copyFileAtomic(base, filepath.Join(l.Bin, "python.exe")); err != nil {
			return err
		}
		pythonw := filepath.Join(filepath.Dir(base), "pythonw.exe")
		if _, err := os.Stat(pythonw); err == nil {
			return copyFileAtomic(pythonw, filepath.Join(l.Bin, "pythonw.exe"))
		}
		return nil
	}
	for _, name := range executableNames(interp) {
		b.rep.Debugf("Linking `%s` to `%s`", name, base)
		if err := symlinkAtomic(base, filepath.Join(l.Bin, name)); err != nil {
			return err
		}
	}
	return nil
}

// failed wraps err for the caller, keeping its code.
func failed(err error) error {
	code := pyerrors.GetCode(err)
	if code == "" {
		code = pyerrors.ErrCodeInternal
	}
	return pyerrors.Wrap(code, err, "Failed to create virtual environment")
}
