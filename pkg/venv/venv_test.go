package venv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/matzehuels/pyseek/pkg/buildinfo"
	pyerrors "github.com/matzehuels/pyseek/pkg/errors"
	"github.com/matzehuels/pyseek/pkg/python"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlink layout is Unix-only")
	}
}

// baseInterpreter returns a system interpreter living in root/base/bin.
func baseInterpreter(root, version string) *python.Interpreter {
	prefix := filepath.Join(root, "base")
	exe := filepath.Join(prefix, "bin", "python3")
	return &python.Interpreter{
		Executable:     exe,
		BaseExecutable: exe,
		SysExecutable:  exe,
		Version:        python.MustParseVersion(version),
		Implementation: python.CPython,
		Prefix:         prefix,
		BasePrefix:     prefix,
		PointerSize:    8,
	}
}

type recordingReporter struct {
	warnings []string
}

func (r *recordingReporter) Warnf(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}
func (r *recordingReporter) Debugf(string, ...any) {}

type fakeSeeder struct {
	calls    int
	packages []string
}

func (s *fakeSeeder) Seed(_ context.Context, _ Layout, packages []string) ([]Package, error) {
	s.calls++
	s.packages = packages
	out := make([]Package, len(packages))
	for i, p := range packages {
		out[i] = Package{Name: p, Version: "1.0"}
	}
	return out, nil
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	return string(data)
}

func mustCreate(t *testing.T, b *Builder, interp *python.Interpreter, target string, opts Options) *Result {
	t.Helper()
	res, err := b.Create(context.Background(), interp, target, opts)
	if err != nil {
		t.Fatalf("Create(%s) error: %v", target, err)
	}
	return res
}

func TestCreateFresh(t *testing.T) {
	skipOnWindows(t)
	tmp := t.TempDir()
	interp := baseInterpreter(tmp, "3.12.1")
	target := filepath.Join(tmp, ".venv")

	res := mustCreate(t, NewBuilder(nil, nil), interp, target, Options{})
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %q, want none", res.Warnings)
	}
	if res.Layout.Root != target {
		t.Errorf("Layout.Root = %q, want %q", res.Layout.Root, target)
	}

	wantCfg := "home = " + filepath.Join(tmp, "base", "bin") + "\n" +
		"implementation = CPython\n" +
		"pyseek = " + buildinfo.Short() + "\n" +
		"version_info = 3.12.1\n" +
		"include-system-site-packages = false\n"
	if got := readFile(t, filepath.Join(target, "pyvenv.cfg")); got != wantCfg {
		t.Errorf("pyvenv.cfg =\n%s\nwant\n%s", got, wantCfg)
	}
	if got := readFile(t, filepath.Join(target, ".gitignore")); got != "*\n" {
		t.Errorf(".gitignore = %q", got)
	}

	for _, name := range []string{"python", "python3", "python3.12"} {
		dest, err := os.Readlink(filepath.Join(target, "bin", name))
		if err != nil {
			t.Fatalf("Readlink(bin/%s): %v", name, err)
		}
		if dest != interp.Executable {
			t.Errorf("bin/%s -> %q, want %q", name, dest, interp.Executable)
		}
	}

	site := filepath.Join(target, "lib", "python3.12", "site-packages")
	if res.Layout.SitePackages != site {
		t.Errorf("SitePackages = %q, want %q", res.Layout.SitePackages, site)
	}
	if info, err := os.Stat(site); err != nil || !info.IsDir() {
		t.Errorf("site-packages missing: %v", err)
	}
	if runtime.GOOS == "linux" {
		if dest, err := os.Readlink(filepath.Join(target, "lib64")); err != nil || dest != "lib" {
			t.Errorf("lib64 -> %q (%v), want lib", dest, err)
		}
	}

	for _, name := range []string{"activate", "activate.fish", "activate.bat", "activate.ps1"} {
		if _, err := os.Stat(filepath.Join(target, "bin", name)); err != nil {
			t.Errorf("missing activation script %s: %v", name, err)
		}
	}
	activate := readFile(t, filepath.Join(target, "bin", "activate"))
	if !strings.Contains(activate, "VIRTUAL_ENV='"+target+"'\n") {
		t.Errorf("activate does not set VIRTUAL_ENV to %q", target)
	}
	if strings.Contains(activate, "{{") {
		t.Error("activate has unreplaced placeholders")
	}

	entries, _ := os.ReadDir(filepath.Join(target, "bin"))
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("leftover temporary file %s", e.Name())
		}
	}
}

func TestCreateFileExists(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, ".venv")
	if err := os.WriteFile(target, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewBuilder(nil, nil).Create(context.Background(), baseInterpreter(tmp, "3.12.1"), target, Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if code := pyerrors.GetCode(err); code != pyerrors.ErrCodePathConflict {
		t.Errorf("code = %v, want %v", code, pyerrors.ErrCodePathConflict)
	}
	want := []string{"Failed to create virtual environment", "File exists at `" + target + "`"}
	if got := pyerrors.Chain(err); !slices.Equal(got, want) {
		t.Errorf("Chain() = %q, want %q", got, want)
	}
}

func TestCreateExistingTargets(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		name      string
		setup     func(t *testing.T, target string)
		opts      Options
		warning   string
		keepsJunk bool
	}{
		{
			name:  "empty directory",
			setup: func(t *testing.T, target string) { mkdir(t, target) },
		},
		{
			name: "existing environment",
			setup: func(t *testing.T, target string) {
				mkdir(t, target)
				writeJunk(t, target)
				writeTestFile(t, filepath.Join(target, "pyvenv.cfg"), "home = /old\n")
			},
			warning: "A virtual environment already exists at `%s`. In the future, pyseek will require `--clear` to replace it",
		},
		{
			name: "non-empty directory",
			setup: func(t *testing.T, target string) {
				mkdir(t, target)
				writeJunk(t, target)
			},
			warning:   "A directory already exists at `%s`. In the future, pyseek will require `--clear` to replace it",
			keepsJunk: true,
		},
		{
			name: "allow existing",
			setup: func(t *testing.T, target string) {
				mkdir(t, target)
				writeJunk(t, target)
				writeTestFile(t, filepath.Join(target, "pyvenv.cfg"), "home = /old\n")
			},
			opts:      Options{AllowExisting: true},
			keepsJunk: true,
		},
		{
			name: "clear",
			setup: func(t *testing.T, target string) {
				mkdir(t, target)
				writeJunk(t, target)
			},
			opts: Options{Clear: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			target := filepath.Join(tmp, ".venv")
			tt.setup(t, target)

			rep := &recordingReporter{}
			res := mustCreate(t, NewBuilder(rep, nil), baseInterpreter(tmp, "3.12.1"), target, tt.opts)

			if tt.warning == "" {
				if len(res.Warnings) != 0 {
					t.Errorf("Warnings = %q, want none", res.Warnings)
				}
			} else {
				want := strings.Replace(tt.warning, "%s", target, 1)
				if !slices.Equal(res.Warnings, []string{want}) {
					t.Errorf("Warnings = %q, want %q", res.Warnings, want)
				}
				if len(rep.warnings) != 1 {
					t.Errorf("reporter saw %d warnings, want 1", len(rep.warnings))
				}
			}

			_, err := os.Stat(filepath.Join(target, "junk.txt"))
			if kept := err == nil; kept != tt.keepsJunk {
				t.Errorf("junk kept = %v, want %v", kept, tt.keepsJunk)
			}
			if !python.IsVirtualEnvDir(target) {
				t.Error("pyvenv.cfg missing")
			}
		})
	}
}

func TestCreateAllowExistingIsIdempotent(t *testing.T) {
	skipOnWindows(t)
	tmp := t.TempDir()
	interp := baseInterpreter(tmp, "3.12.1")
	target := filepath.Join(tmp, ".venv")
	b := NewBuilder(nil, nil)

	mustCreate(t, b, interp, target, Options{})
	first := readFile(t, filepath.Join(target, "pyvenv.cfg"))
	res := mustCreate(t, b, interp, target, Options{AllowExisting: true})
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %q, want none", res.Warnings)
	}
	if second := readFile(t, filepath.Join(target, "pyvenv.cfg")); second != first {
		t.Errorf("pyvenv.cfg changed:\n%s\nvs\n%s", first, second)
	}
}

func TestCreatePreservesSymlinks(t *testing.T) {
	skipOnWindows(t)

	for _, depth := range []int{1, 2} {
		for _, opts := range []Options{{}, {Clear: true}} {
			t.Run(strings.Repeat("link-", depth)+boolString(opts.Clear), func(t *testing.T) {
				tmp := t.TempDir()
				referent := filepath.Join(tmp, "real")
				mkdir(t, referent)

				// links[i] points at the previous link, links[0] at the referent.
				target := referent
				var links, dests []string
				for i := range depth {
					link := filepath.Join(tmp, "link"+strconv.Itoa(i+1))
					if err := os.Symlink(target, link); err != nil {
						t.Fatal(err)
					}
					links, dests = append(links, link), append(dests, target)
					target = link
				}

				interp := baseInterpreter(tmp, "3.12.1")
				b := NewBuilder(nil, nil)
				mustCreate(t, b, interp, target, Options{})
				writeJunk(t, referent)
				mustCreate(t, b, interp, target, opts)

				for i, link := range links {
					info, err := os.Lstat(link)
					if err != nil || info.Mode()&os.ModeSymlink == 0 {
						t.Fatalf("%s is no longer a symlink (%v)", filepath.Base(link), err)
					}
					if got, err := os.Readlink(link); err != nil || got != dests[i] {
						t.Errorf("%s -> %q (%v), want %q", filepath.Base(link), got, err, dests[i])
					}
				}
				if !python.IsVirtualEnvDir(referent) {
					t.Error("environment not written to the link's referent")
				}
				if _, err := os.Stat(filepath.Join(referent, "junk.txt")); err == nil {
					t.Error("referent contents were not cleared")
				}
			})
		}
	}
}

func TestCreateDanglingSymlink(t *testing.T) {
	skipOnWindows(t)
	tmp := t.TempDir()
	referent := filepath.Join(tmp, "real")
	link := filepath.Join(tmp, ".venv")
	if err := os.Symlink(referent, link); err != nil {
		t.Fatal(err)
	}

	mustCreate(t, NewBuilder(nil, nil), baseInterpreter(tmp, "3.12.1"), link, Options{})
	if !python.IsVirtualEnvDir(referent) {
		t.Error("referent was not created")
	}
}

func TestCreateNestedInheritsHome(t *testing.T) {
	skipOnWindows(t)
	tmp := t.TempDir()
	base := baseInterpreter(tmp, "3.12.1")
	parent := filepath.Join(tmp, "parent")
	b := NewBuilder(nil, nil)
	mustCreate(t, b, base, parent, Options{})

	child := *base
	child.Executable = filepath.Join(parent, "bin", "python")
	child.Prefix = parent
	child.BaseExecutable = filepath.Join(tmp, "elsewhere", "python3")
	mustCreate(t, b, &child, filepath.Join(tmp, "child"), Options{})

	parentCfg, err := python.ReadVenvConfig(parent)
	if err != nil {
		t.Fatal(err)
	}
	childCfg, err := python.ReadVenvConfig(filepath.Join(tmp, "child"))
	if err != nil {
		t.Fatal(err)
	}
	if childCfg.Home() != parentCfg.Home() {
		t.Errorf("child home = %q, want parent home %q", childCfg.Home(), parentCfg.Home())
	}
}

func TestCreateRelocatable(t *testing.T) {
	skipOnWindows(t)
	tmp := t.TempDir()
	target := filepath.Join(tmp, ".venv")
	mustCreate(t, NewBuilder(nil, nil), baseInterpreter(tmp, "3.12.1"), target, Options{Relocatable: true})

	cfg, err := python.ReadVenvConfig(target)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Relocatable() {
		t.Error("pyvenv.cfg should record relocatable = true")
	}

	checks := map[string]string{
		"activate":      "VIRTUAL_ENV=" + relocatableSh + "\n",
		"activate.fish": "set -gx VIRTUAL_ENV " + relocatableFish + "\n",
		"activate.bat":  relocatableBat + "\r\n",
	}
	for name, want := range checks {
		got := readFile(t, filepath.Join(target, "bin", name))
		if !strings.Contains(got, want) {
			t.Errorf("%s does not contain %q", name, want)
		}
		if strings.Contains(got, target) {
			t.Errorf("%s mentions the absolute environment path", name)
		}
	}
}

func TestCreateNotRelocatableByDefault(t *testing.T) {
	skipOnWindows(t)
	tmp := t.TempDir()
	target := filepath.Join(tmp, ".venv")
	mustCreate(t, NewBuilder(nil, nil), baseInterpreter(tmp, "3.12.1"), target, Options{})

	cfg, err := python.ReadVenvConfig(target)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cfg.Get("relocatable"); ok {
		t.Error("relocatable key should be absent")
	}
}

func TestCreateQuotesApostrophes(t *testing.T) {
	skipOnWindows(t)
	tmp := t.TempDir()
	target := filepath.Join(tmp, "Testing's", ".venv")
	mustCreate(t, NewBuilder(nil, nil), baseInterpreter(tmp, "3.12.1"), target, Options{Prompt: "it's"})

	activate := readFile(t, filepath.Join(target, "bin", "activate"))
	wantDir := "VIRTUAL_ENV='" + strings.ReplaceAll(target, "'", `'\''`) + "'\n"
	if !strings.Contains(activate, wantDir) {
		t.Errorf("activate does not contain %q", wantDir)
	}
	if !strings.Contains(activate, `VIRTUAL_ENV_PROMPT='it'\''s'`) {
		t.Error("activate prompt is not quoted")
	}

	fish := readFile(t, filepath.Join(target, "bin", "activate.fish"))
	if !strings.Contains(fish, `set -gx VIRTUAL_ENV_PROMPT 'it\'s'`) {
		t.Error("activate.fish prompt is not quoted")
	}

	cfg, err := python.ReadVenvConfig(target)
	if err != nil {
		t.Fatal(err)
	}
	if p, _ := cfg.Get("prompt"); p != "it's" {
		t.Errorf("prompt = %q", p)
	}
}

func TestCreateSeeds(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		version string
		opts    Options
		want    []string
	}{
		{"3.12.1", Options{Seed: true}, []string{"pip"}},
		{"3.11.8", Options{Seed: true}, []string{"pip", "setuptools", "wheel"}},
		{"3.12.1", Options{Seed: true, SeedPackages: []string{"pip", "uv"}}, []string{"pip", "uv"}},
		{"3.12.1", Options{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.version+strings.Join(tt.want, ","), func(t *testing.T) {
			tmp := t.TempDir()
			seeder := &fakeSeeder{}
			res := mustCreate(t, NewBuilder(nil, seeder), baseInterpreter(tmp, tt.version), filepath.Join(tmp, ".venv"), tt.opts)

			if !slices.Equal(seeder.packages, tt.want) {
				t.Errorf("seeded %q, want %q", seeder.packages, tt.want)
			}
			if len(res.Seeded) != len(tt.want) {
				t.Errorf("Result.Seeded = %v", res.Seeded)
			}
			if tt.want == nil && seeder.calls != 0 {
				t.Error("seeder ran without Seed")
			}
		})
	}
}

func TestCreateRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"prompt newline", Options{Prompt: "a\nb"}},
		{"seed option", Options{Seed: true, SeedPackages: []string{"--index-url"}}},
		{"seed specifier", Options{Seed: true, SeedPackages: []string{"pip==24.0"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			target := filepath.Join(tmp, ".venv")
			_, err := NewBuilder(nil, &fakeSeeder{}).Create(context.Background(), baseInterpreter(tmp, "3.12.1"), target, tt.opts)
			if code := pyerrors.GetCode(err); code != pyerrors.ErrCodeInvalidInput {
				t.Fatalf("code = %v, want %v (err %v)", code, pyerrors.ErrCodeInvalidInput, err)
			}
			if _, err := os.Lstat(target); !os.IsNotExist(err) {
				t.Errorf("target created for invalid options: %v", err)
			}
		})
	}
}

func TestEnsurePipSeeder(t *testing.T) {
	skipOnWindows(t)
	tmp := t.TempDir()
	interp := baseInterpreter(tmp, "3.12.1")
	target := filepath.Join(tmp, ".venv")
	site := NewLayout(target, interp).SitePackages

	script := "#!/bin/sh\n" +
		"if [ \"$1\" = -m ] && [ \"$2\" = ensurepip ]; then\n" +
		"  mkdir -p '" + site + "/pip-24.0.dist-info'\n" +
		"  exit 0\n" +
		"fi\n" +
		"exit 3\n"
	mkdir(t, filepath.Dir(interp.Executable))
	if err := os.WriteFile(interp.Executable, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	res := mustCreate(t, NewBuilder(nil, EnsurePipSeeder{}), interp, target, Options{Seed: true})
	if len(res.Seeded) != 1 || res.Seeded[0].String() != "pip==24.0" {
		t.Errorf("Seeded = %v, want [pip==24.0]", res.Seeded)
	}

	_, err := NewBuilder(nil, EnsurePipSeeder{}).Create(context.Background(), interp, target,
		Options{Clear: true, Seed: true, SeedPackages: []string{"pip", "wheel"}})
	if err == nil {
		t.Fatal("expected pip install of wheel to fail")
	}
	if code := pyerrors.GetCode(err); code != pyerrors.ErrCodeSeed {
		t.Errorf("code = %v, want %v", code, pyerrors.ErrCodeSeed)
	}
}

func TestLayoutNames(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		name    string
		interp  python.Interpreter
		libDir  string
		exeName string
	}{
		{
			name:    "cpython",
			interp:  python.Interpreter{Implementation: python.CPython, Version: python.MustParseVersion("3.12.1")},
			libDir:  "python3.12",
			exeName: "python3.12",
		},
		{
			name:    "freethreaded",
			interp:  python.Interpreter{Implementation: python.CPython, Version: python.MustParseVersion("3.13.0"), Variant: python.VariantFreethreaded},
			libDir:  "python3.13t",
			exeName: "python3.13t",
		},
		{
			name:    "pypy",
			interp:  python.Interpreter{Implementation: python.PyPy, Version: python.MustParseVersion("3.10.14")},
			libDir:  "pypy3.10",
			exeName: "pypy3.10",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := libDirName(&tt.interp); got != tt.libDir {
				t.Errorf("libDirName = %q, want %q", got, tt.libDir)
			}
			names := executableNames(&tt.interp)
			if !slices.Contains(names, tt.exeName) || !slices.Contains(names, "python") {
				t.Errorf("executableNames = %q, missing %q", names, tt.exeName)
			}
		})
	}
}

func TestInstalledPackages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"pip-24.0.dist-info", "Setuptools-69.1.0.dist-info", "pip", "README"} {
		mkdir(t, filepath.Join(dir, name))
	}

	got, err := installedPackages(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got["pip"].Version != "24.0" || got["setuptools"].Version != "69.1.0" {
		t.Errorf("installedPackages = %v", got)
	}
	if n := normalizeName("Foo_Bar.baz"); n != "foo-bar-baz" {
		t.Errorf("normalizeName = %q", n)
	}
}

func mkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeJunk(t *testing.T, dir string) {
	t.Helper()
	writeTestFile(t, filepath.Join(dir, "junk.txt"), "junk")
}
