package python

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

// InstallationKey names a managed installation, e.g.
// "cpython-3.12.1-linux-x86_64-gnu" or
// "cpython-3.13.0+freethreaded-macos-aarch64-none".
type InstallationKey struct {
	Implementation Implementation
	Version        Version
	Platform       Platform
	Variant        Variant
}

// ParseInstallationKey parses an installation directory name.
func ParseInstallationKey(s string) (InstallationKey, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 5 {
		return InstallationKey{}, fmt.Errorf("installation key `%s` must have 5 dash-separated parts", s)
	}
	impl, ok := ParseImplementation(parts[0])
	if !ok {
		return InstallationKey{}, fmt.Errorf("unknown implementation `%s` in installation key `%s`", parts[0], s)
	}
	versionText, variantText, hasVariant := strings.Cut(parts[1], "+")
	variant := VariantDefault
	if hasVariant {
		if variantText != "freethreaded" {
			return InstallationKey{}, fmt.Errorf("unsupported variant `%s` in installation key `%s`", variantText, s)
		}
		variant = VariantFreethreaded
	}
	version, err := ParseVersion(versionText)
	if err != nil {
		return InstallationKey{}, err
	}
	return InstallationKey{
		Implementation: impl,
		Version:        version,
		Platform:       Platform{OS: parts[2], Arch: parts[3], Libc: parts[4]},
		Variant:        variant,
	}, nil
}

func (k InstallationKey) String() string {
	v := k.Version.String()
	if k.Variant == VariantFreethreaded {
		v += "+freethreaded"
	}
	return fmt.Sprintf("%s-%s-%s", k.Implementation, v, k.Platform)
}

// ManagedInstallation is one interpreter installed in the registry.
type ManagedInstallation struct {
	Key InstallationKey
	Dir string
}

// Executable returns the interpreter inside the installation.
func (m ManagedInstallation) Executable() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(m.Dir, "python.exe")
	}
	return filepath.Join(m.Dir, "bin", "python3")
}

// ManagedRegistry is a directory whose children are installations named by
// their installation key.
type ManagedRegistry struct {
	Dir string
}

// Installations lists the registry, newest version first. Entries whose
// names are not installation keys are skipped. A missing directory is an
// empty registry.
func (r ManagedRegistry) Installations() ([]ManagedInstallation, error) {
	if r.Dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(r.Dir)
	if isMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []ManagedInstallation
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		key, err := ParseInstallationKey(e.Name())
		if err != nil {
			continue
		}
		out = append(out, ManagedInstallation{Key: key, Dir: filepath.Join(r.Dir, e.Name())})
	}
	slices.SortStableFunc(out, func(a, b ManagedInstallation) int {
		if c := b.Key.Version.Compare(a.Key.Version); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Key.Variant, b.Key.Variant); c != 0 {
			return c
		}
		return cmp.Compare(a.Key.String(), b.Key.String())
	})
	return out, nil
}

// allowsKey reports whether an installation could satisfy req, judging by
// its key alone.
func (r Request) allowsKey(k InstallationKey) bool {
	switch r.Kind {
	case RequestVersion:
		return r.Version.Matches(k.Version, k.Variant)
	case RequestImplementation:
		return k.Implementation == r.Implementation
	case RequestImplementationVersion:
		return k.Implementation == r.Implementation && r.Version.Matches(k.Version, k.Variant)
	case RequestKey:
		return (r.Implementation == "" || r.Implementation == k.Implementation) &&
			r.Version.Matches(k.Version, k.Variant) &&
			(r.OS == "" || r.OS == k.Platform.OS) &&
			(r.Arch == "" || r.Arch == k.Platform.Arch) &&
			(r.Libc == "" || r.Libc == k.Platform.Libc)
	}
	return true
}
