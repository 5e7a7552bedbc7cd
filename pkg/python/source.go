package python

import (
	"cmp"
	"context"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strconv"
	"strings"
)

// Source is where a candidate interpreter was found. Sources are listed in
// precedence order.
type Source int

const (
	SourceProvidedPath Source = iota
	SourceScriptEnvironment
	SourceActiveEnvironment
	SourceCondaPrefix
	SourceDiscoveredEnvironment
	SourceManaged
	SourceSearchPath
)

func (s Source) String() string {
	switch s {
	case SourceProvidedPath:
		return "provided path"
	case SourceScriptEnvironment:
		return "script environment"
	case SourceActiveEnvironment:
		return "active virtual environment"
	case SourceCondaPrefix:
		return "conda prefix"
	case SourceDiscoveredEnvironment:
		return "virtual environment"
	case SourceManaged:
		return "managed installations"
	case SourceSearchPath:
		return "search path"
	}
	return "unknown source"
}

// IsEnvironment reports whether the source yields virtual or conda
// environments.
func (s Source) IsEnvironment() bool {
	switch s {
	case SourceScriptEnvironment, SourceActiveEnvironment, SourceCondaPrefix, SourceDiscoveredEnvironment:
		return true
	}
	return false
}

// probeErrorsFatal reports whether a probe failure on a candidate from this
// source ends resolution instead of skipping the candidate. Both sources
// name exactly one interpreter the user pointed at.
func (s Source) probeErrorsFatal() bool {
	return s == SourceProvidedPath || s == SourceActiveEnvironment
}

// SystemPreference controls whether environments are searched.
type SystemPreference int

const (
	// SystemAllowed searches environments before system interpreters.
	SystemAllowed SystemPreference = iota
	// SystemOnly skips every environment source (--system).
	SystemOnly
)

// ManagedPreference controls managed installations versus the search path.
type ManagedPreference int

const (
	// ManagedAllowed searches managed installations, then the search path.
	ManagedAllowed ManagedPreference = iota
	// ManagedOnly skips the search path (--managed-python).
	ManagedOnly
	// ManagedNever skips managed installations (--no-managed-python).
	ManagedNever
)

// Preferences prune sources before any candidate is probed.
type Preferences struct {
	System  SystemPreference
	Managed ManagedPreference
}

// Allows reports whether candidates from s may be considered.
func (p Preferences) Allows(s Source) bool {
	switch {
	case s == SourceProvidedPath:
		return true
	case s.IsEnvironment():
		return p.System != SystemOnly
	case s == SourceManaged:
		return p.Managed != ManagedNever
	case s == SourceSearchPath:
		return p.Managed != ManagedOnly
	}
	return false
}

// SourcesDescription lists the searched source families for messages, e.g.
// "virtual environments, managed installations, or search path".
func (p Preferences) SourcesDescription() string {
	var parts []string
	if p.Allows(SourceActiveEnvironment) {
		parts = append(parts, "virtual environments")
	}
	if p.Allows(SourceManaged) {
		parts = append(parts, "managed installations")
	}
	if p.Allows(SourceSearchPath) {
		parts = append(parts, "search path")
	}
	switch len(parts) {
	case 0:
		return "no sources"
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " or " + parts[1]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + ", or " + parts[len(parts)-1]
}

// Candidate is an executable yielded by a source, not yet probed.
type Candidate struct {
	Executable string
	Source     Source

	// display is the path shown in messages.
	display string
}

func (c Candidate) Display() string {
	if c.display != "" {
		return c.display
	}
	return c.Executable
}

type enumerator func(ctx context.Context, f *Finder, opts *FindOptions) iter.Seq2[Candidate, error]

// sourceTable drives enumeration. Adding a source is adding an entry.
var sourceTable = []struct {
	source    Source
	applies   func(f *Finder, opts *FindOptions) bool
	enumerate enumerator
}{
	{SourceProvidedPath, func(_ *Finder, o *FindOptions) bool { return o.Request.IsPath() }, providedPath},
	{SourceScriptEnvironment, func(f *Finder, o *FindOptions) bool { return o.Script != nil && f.cfg.CacheDir != "" }, scriptEnvironment},
	{SourceActiveEnvironment, func(f *Finder, _ *FindOptions) bool { return f.cfg.VirtualEnv != "" }, activeEnvironment},
	{SourceCondaPrefix, func(f *Finder, _ *FindOptions) bool { return f.cfg.CondaPrefix != "" }, condaPrefix},
	{SourceDiscoveredEnvironment, func(f *Finder, _ *FindOptions) bool { return f.cfg.WorkingDir != "" }, discoveredEnvironment},
	{SourceManaged, func(f *Finder, _ *FindOptions) bool { return f.cfg.ManagedDir != "" }, managedInstallations},
	{SourceSearchPath, func(f *Finder, _ *FindOptions) bool { return len(f.cfg.SearchPath) > 0 }, searchPath},
}

// enabled reports whether the table entry participates for opts. A path
// request disables every other source.
func enabledSource(f *Finder, opts *FindOptions, i int) bool {
	entry := sourceTable[i]
	if opts.Request.IsPath() != (entry.source == SourceProvidedPath) {
		return false
	}
	return opts.Preferences.Allows(entry.source) && entry.applies(f, opts)
}

func one(c Candidate) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) { yield(c, nil) }
}

func fail(err error) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) { yield(Candidate{}, err) }
}

func none(yield func(Candidate, error) bool) {}

// resolve makes p absolute relative to the finder's working directory.
func (f *Finder) resolve(p string) string {
	p = expandHome(p)
	if !filepath.IsAbs(p) && f.cfg.WorkingDir != "" {
		p = filepath.Join(f.cfg.WorkingDir, p)
	}
	return filepath.Clean(p)
}

// relative renders p relative to the working directory when p is inside it.
func (f *Finder) relative(p string) string {
	if f.cfg.WorkingDir == "" {
		return p
	}
	rel, err := filepath.Rel(f.cfg.WorkingDir, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return rel
}

func directoryExecutables() []string {
	if runtime.GOOS == "windows" {
		return []string{filepath.Join("Scripts", "python.exe"), "python.exe"}
	}
	return []string{filepath.Join("bin", "python"), filepath.Join("bin", "python3"), "python", "python3"}
}

func providedPath(_ context.Context, f *Finder, opts *FindOptions) iter.Seq2[Candidate, error] {
	req := opts.Request
	path := f.resolve(req.Path)
	notFound := &NotFoundError{Request: req, Sources: SourceProvidedPath.String()}

	if req.Kind == RequestFile {
		if _, err := os.Stat(path); isMissing(err) {
			return fail(notFound)
		}
		return one(Candidate{Executable: path, Source: SourceProvidedPath, display: req.Path})
	}
	for _, name := range directoryExecutables() {
		exe := filepath.Join(path, name)
		if info, err := os.Stat(exe); err == nil && !info.IsDir() {
			return one(Candidate{Executable: exe, Source: SourceProvidedPath, display: req.Path})
		}
	}
	return fail(notFound)
}

// ScriptEnvironmentDir is where the environment for a script with the given
// dependencies lives: <cache>/environments-v2/<stem>-<hash>.
func ScriptEnvironmentDir(cacheDir, scriptPath string, dependencies []string) string {
	stem := strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
	sorted := slices.Sorted(slices.Values(dependencies))
	return filepath.Join(cacheDir, "environments-v2", stem+"-"+environmentKeyer.EnvironmentKey(sorted)[:16])
}

func scriptEnvironment(_ context.Context, f *Finder, opts *FindOptions) iter.Seq2[Candidate, error] {
	root := ScriptEnvironmentDir(f.cfg.CacheDir, opts.Script.Path, opts.Script.Dependencies)
	if !IsVirtualEnvDir(root) {
		f.rep.Debugf("No script environment at %s", root)
		return none
	}
	return one(Candidate{Executable: EnvironmentExecutable(root), Source: SourceScriptEnvironment})
}

func activeEnvironment(_ context.Context, f *Finder, _ *FindOptions) iter.Seq2[Candidate, error] {
	root := f.resolve(f.cfg.VirtualEnv)
	if !IsVirtualEnvDir(root) {
		f.rep.Debugf("Ignoring active virtual environment at %s: missing %s", root, VenvConfigName)
		return none
	}
	exe := EnvironmentExecutable(root)
	return one(Candidate{Executable: exe, Source: SourceActiveEnvironment, display: f.relative(exe)})
}

func condaPrefix(_ context.Context, f *Finder, _ *FindOptions) iter.Seq2[Candidate, error] {
	root := f.resolve(f.cfg.CondaPrefix)
	exe := filepath.Join(root, "bin", "python")
	if runtime.GOOS == "windows" {
		exe = filepath.Join(root, "python.exe")
	}
	return one(Candidate{Executable: exe, Source: SourceCondaPrefix})
}

func discoveredEnvironment(_ context.Context, f *Finder, _ *FindOptions) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		for dir := range Ancestors(f.cfg.WorkingDir) {
			root := filepath.Join(dir, f.environmentName())
			if info, err := os.Stat(root); err != nil || !info.IsDir() {
				continue
			}
			if !IsVirtualEnvDir(root) {
				f.rep.Debugf("Ignoring %s: missing %s", root, VenvConfigName)
				return
			}
			yield(Candidate{Executable: EnvironmentExecutable(root), Source: SourceDiscoveredEnvironment}, nil)
			return
		}
	}
}

func managedInstallations(_ context.Context, f *Finder, opts *FindOptions) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		installs, err := ManagedRegistry{Dir: f.cfg.ManagedDir}.Installations()
		if err != nil {
			f.rep.Debugf("Failed to list managed installations in %s: %v", f.cfg.ManagedDir, err)
			return
		}
		for _, inst := range installs {
			if !opts.Request.allowsKey(inst.Key) {
				continue
			}
			if !yield(Candidate{Executable: inst.Executable(), Source: SourceManaged}, nil) {
				return
			}
		}
	}
}

func searchPath(_ context.Context, f *Finder, opts *FindOptions) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		for _, dir := range f.cfg.SearchPath {
			if dir == "" {
				continue
			}
			dir = f.resolve(dir)
			for _, name := range executableNames(opts.Request, dir) {
				exe := filepath.Join(dir, name)
				if !isExecutable(exe) {
					continue
				}
				if !yield(Candidate{Executable: exe, Source: SourceSearchPath}, nil) {
					return
				}
			}
		}
	}
}

var versionedName = regexp.MustCompile(`^python3\.([0-9]+)(t?)(?:\.exe)?$`)

// executableNames lists, in preference order, the file names in dir worth
// probing for req: request-specific names, then python3 and python, then
// every python3.N found in dir (newest first).
func executableNames(req Request, dir string) []string {
	if req.Kind == RequestExecutableName {
		name := req.Name
		if exeSuffix != "" && !strings.HasSuffix(name, exeSuffix) {
			name += exeSuffix
		}
		return []string{name}
	}

	var names []string
	add := func(n string) {
		n += exeSuffix
		if !slices.Contains(names, n) {
			names = append(names, n)
		}
	}

	impl := req.Implementation
	if impl == "" {
		impl = CPython
	}
	vr := req.versionRequest()
	if suffix := vr.executableSuffix(); suffix != "" {
		add(impl.executablePrefix() + suffix)
	}
	if impl != CPython {
		add(impl.executablePrefix() + "3")
		add(impl.executablePrefix())
	}
	add("python3")
	add("python")

	type versioned struct {
		name  string
		minor int
		ft    bool
	}
	var found []versioned
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		m := versionedName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		minor, err := strconv.Atoi(m[1])
		if err != nil || minor > 255 {
			continue
		}
		if !vr.MatchesMinor(3, uint8(minor)) {
			continue
		}
		found = append(found, versioned{name: e.Name(), minor: minor, ft: m[2] == "t"})
	}
	slices.SortFunc(found, func(a, b versioned) int {
		if c := cmp.Compare(b.minor, a.minor); c != 0 {
			return c
		}
		if a.ft == b.ft {
			return 0
		}
		if a.ft {
			return 1
		}
		return -1
	})
	for _, v := range found {
		if !slices.Contains(names, v.name) {
			names = append(names, v.name)
		}
	}
	return names
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
