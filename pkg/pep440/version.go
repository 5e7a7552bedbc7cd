// Package pep440 implements the subset of PEP 440 needed to reason about
// Python interpreter versions and requires-python constraints.
//
// Version format: [N!]N(.N)*[{a|b|rc}N][.postN][.devN][+local]
//
// Validation, ordering and specifier matching come from
// github.com/aquasecurity/go-pep440-version. This package adds the segment
// view of a version (release components, pre-release phase) and the
// interval arithmetic used to intersect requires-python constraints.
// [Version.String] always renders the normalized form.
package pep440

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	pep440v "github.com/aquasecurity/go-pep440-version"
)

var versionPattern = regexp.MustCompile(`(?i)^v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?:[-_.]?(?P<pre_l>a|b|c|rc|alpha|beta|pre|preview)[-_.]?(?P<pre_n>[0-9]+)?)?` +
	`(?:-(?P<post_n1>[0-9]+)|[-_.]?(?P<post_l>post|rev|r)[-_.]?(?P<post_n2>[0-9]+)?)?` +
	`(?:[-_.]?(?P<dev_l>dev)[-_.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`)

// PrereleaseKind orders the pre-release phases.
type PrereleaseKind int

const (
	Alpha PrereleaseKind = iota
	Beta
	RC
)

func (k PrereleaseKind) String() string {
	switch k {
	case Alpha:
		return "a"
	case Beta:
		return "b"
	default:
		return "rc"
	}
}

// Prerelease is the pre-release segment of a version, e.g. "rc1".
type Prerelease struct {
	Kind   PrereleaseKind
	Number uint64
}

func (p Prerelease) String() string {
	return p.Kind.String() + strconv.FormatUint(p.Number, 10)
}

// Version is a parsed PEP 440 version. The zero value is not a valid version;
// use [Parse] or [New].
type Version struct {
	Epoch   uint64
	Release []uint64
	Pre     *Prerelease
	Post    *uint64
	Dev     *uint64
	Local   string
}

// New returns a final release version with the given release segments.
func New(release ...uint64) Version {
	return Version{Release: slices.Clone(release)}
}

// Parse parses s as a PEP 440 version.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if _, err := pep440v.Parse(s); err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	group := func(name string) string {
		return m[versionPattern.SubexpIndex(name)]
	}

	var v Version
	if e := group("epoch"); e != "" {
		n, err := strconv.ParseUint(e, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("invalid epoch in %q: %w", s, err)
		}
		v.Epoch = n
	}

	for _, part := range strings.Split(group("release"), ".") {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("invalid release segment %q in %q: %w", part, s, err)
		}
		v.Release = append(v.Release, n)
	}

	if l := group("pre_l"); l != "" {
		n, err := parseOptionalNumber(group("pre_n"))
		if err != nil {
			return Version{}, fmt.Errorf("invalid pre-release in %q: %w", s, err)
		}
		v.Pre = &Prerelease{Kind: prereleaseKind(l), Number: n}
	}

	if n1 := group("post_n1"); n1 != "" {
		n, err := strconv.ParseUint(n1, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("invalid post-release in %q: %w", s, err)
		}
		v.Post = &n
	} else if group("post_l") != "" {
		n, err := parseOptionalNumber(group("post_n2"))
		if err != nil {
			return Version{}, fmt.Errorf("invalid post-release in %q: %w", s, err)
		}
		v.Post = &n
	}

	if group("dev_l") != "" {
		n, err := parseOptionalNumber(group("dev_n"))
		if err != nil {
			return Version{}, fmt.Errorf("invalid dev-release in %q: %w", s, err)
		}
		v.Dev = &n
	}

	if l := group("local"); l != "" {
		v.Local = strings.ToLower(strings.NewReplacer("-", ".", "_", ".").Replace(l))
	}
	return v, nil
}

// MustParse is like [Parse] but panics on error. Intended for tests and
// package-level constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func parseOptionalNumber(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func prereleaseKind(label string) PrereleaseKind {
	switch strings.ToLower(label) {
	case "a", "alpha":
		return Alpha
	case "b", "beta":
		return Beta
	default:
		return RC
	}
}

// IsDev reports whether the version is a development release.
func (v Version) IsDev() bool { return v.Dev != nil }

// IsLocal reports whether the version carries a local segment.
func (v Version) IsLocal() bool { return v.Local != "" }

// IsPre reports whether the version is a pre-release (or dev release).
func (v Version) IsPre() bool { return v.Pre != nil || v.Dev != nil }

// IsPost reports whether the version is a post-release.
func (v Version) IsPost() bool { return v.Post != nil }

// ReleaseAt returns the i-th release segment, or 0 when absent.
func (v Version) ReleaseAt(i int) uint64 {
	if i < len(v.Release) {
		return v.Release[i]
	}
	return 0
}

// WithPre returns a copy of v with the given pre-release segment.
func (v Version) WithPre(pre *Prerelease) Version {
	out := v.clone()
	if pre != nil {
		p := *pre
		out.Pre = &p
	} else {
		out.Pre = nil
	}
	return out
}

// WithPost returns a copy of v with the given post-release segment.
func (v Version) WithPost(post *uint64) Version {
	out := v.clone()
	if post != nil {
		p := *post
		out.Post = &p
	} else {
		out.Post = nil
	}
	return out
}

// OnlyRelease returns a copy of v with every segment except the epoch and
// release removed.
func (v Version) OnlyRelease() Version {
	return Version{Epoch: v.Epoch, Release: slices.Clone(v.Release)}
}

func (v Version) clone() Version {
	out := v
	out.Release = slices.Clone(v.Release)
	return out
}

// String renders the normalized form of the version.
func (v Version) String() string {
	var b strings.Builder
	if v.Epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.Epoch)
	}
	for i, r := range v.Release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.FormatUint(r, 10))
	}
	if v.Pre != nil {
		b.WriteString(v.Pre.String())
	}
	if v.Post != nil {
		fmt.Fprintf(&b, ".post%d", *v.Post)
	}
	if v.Dev != nil {
		fmt.Fprintf(&b, ".dev%d", *v.Dev)
	}
	if v.Local != "" {
		b.WriteString("+" + v.Local)
	}
	return b.String()
}

// Equal reports whether v and o compare equal.
func (v Version) Equal(o Version) bool { return Compare(v, o) == 0 }

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return Compare(v, o) < 0 }

// Compare orders two versions following PEP 440. Release segments are
// compared as if padded with zeros, so 3.12 == 3.12.0.
func Compare(a, b Version) int {
	av, aok := a.canonical()
	bv, bok := b.canonical()
	switch {
	case aok && bok:
		return av.Compare(bv)
	case aok:
		return 1
	case bok:
		return -1
	}
	return 0
}

// canonical converts v for comparison. Only the zero Version fails.
func (v Version) canonical() (pep440v.Version, bool) {
	if len(v.Release) == 0 {
		return pep440v.Version{}, false
	}
	out, err := pep440v.Parse(v.String())
	return out, err == nil
}
