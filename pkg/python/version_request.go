package python

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/pyseek/pkg/pep440"
)

// VersionRequestKind discriminates the shapes of a [VersionRequest].
type VersionRequestKind int

const (
	VersionAny VersionRequestKind = iota
	VersionMajor
	VersionMajorMinor
	VersionMajorMinorPatch
	VersionMajorMinorPrerelease
	VersionRange
)

// VersionRequest constrains the version (and variant) of an interpreter.
type VersionRequest struct {
	Kind  VersionRequestKind
	Major uint8
	Minor uint8
	Patch uint8

	// HasPatch records whether a prerelease request named its patch
	// ("3.13.0rc1" rather than "3.13rc1").
	HasPatch bool
	Pre      pep440.Prerelease
	Range    pep440.Specifiers

	Variant Variant
}

// errNotVersion is returned by ParseVersionRequest when the text does not
// look like a version at all. Callers treat it as "try another shape".
var errNotVersion = errors.New("not a version request")

var (
	versionShape = regexp.MustCompile(`^[0-9]+(?:\.[0-9]+)*(?:[-_.]?[a-zA-Z][a-zA-Z0-9.]*)?$`)
	numericShape = regexp.MustCompile(`^[0-9]+(?:\.[0-9]+)*$`)
	noDotShape   = regexp.MustCompile(`^[0-9]{2,}$`)
)

// ParseVersionRequest parses a bare version ("3.12", "3.13t", "3.12.1",
// "3.13rc1", "312") or a specifier list (">=3.11, <3.13").
func ParseVersionRequest(s string) (VersionRequest, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return VersionRequest{}, errNotVersion
	}

	var req VersionRequest
	body := text
	switch {
	case strings.HasSuffix(body, "+freethreaded"):
		body = strings.TrimSuffix(body, "+freethreaded")
		req.Variant = VariantFreethreaded
	case len(body) > 1 && body[len(body)-1] == 't' && isDigit(body[len(body)-2]):
		body = body[:len(body)-1]
		req.Variant = VariantFreethreaded
	}

	if body == "" {
		return VersionRequest{}, errNotVersion
	}
	if strings.ContainsAny(body[:1], "<>=!~") || strings.Contains(body, ",") {
		specs, err := pep440.ParseSpecifiers(body)
		if err != nil {
			return VersionRequest{}, &RequestError{Request: text, Reason: err.Error()}
		}
		if len(specs) == 0 {
			return VersionRequest{}, &RequestError{Request: text, Reason: fmt.Sprintf("`%s` contains no version specifiers", text)}
		}
		req.Kind = VersionRange
		req.Range = specs
		return req, nil
	}

	if noDotShape.MatchString(body) {
		major, _ := strconv.ParseUint(body[:1], 10, 8)
		minor, err := strconv.ParseUint(body[1:], 10, 8)
		if err != nil {
			return VersionRequest{}, &RequestError{Request: text, Reason: fmt.Sprintf("`%s` has a release component greater than 255", text)}
		}
		req.Kind = VersionMajorMinor
		req.Major, req.Minor = uint8(major), uint8(minor)
		return req, req.validate(text)
	}

	if !versionShape.MatchString(body) {
		return VersionRequest{}, errNotVersion
	}
	// Only purely numeric text is reported as a malformed version. Anything
	// with letters that is not a plain release or pre-release is left for
	// the other request shapes ("python3.12-dbg", "3-config").
	numeric := numericShape.MatchString(body)
	v, err := pep440.Parse(body)
	switch {
	case err != nil && numeric:
		return VersionRequest{}, &RequestError{Request: text, Reason: fmt.Sprintf("`%s` is not a valid version: %v", text, err)}
	case err != nil, v.IsDev(), v.IsLocal(), v.IsPost(), v.Epoch != 0:
		return VersionRequest{}, errNotVersion
	case v.Pre != nil && len(v.Release) < 2:
		return VersionRequest{}, errNotVersion
	}
	if len(v.Release) > 3 || slices.ContainsFunc(v.Release, func(r uint64) bool { return r > 255 }) {
		if !numeric {
			return VersionRequest{}, errNotVersion
		}
		if len(v.Release) > 3 {
			return VersionRequest{}, &RequestError{Request: text, Reason: fmt.Sprintf("`%s` has too many release components", text)}
		}
		return VersionRequest{}, &RequestError{Request: text, Reason: fmt.Sprintf("`%s` has a release component greater than 255", text)}
	}

	req.Major = uint8(v.ReleaseAt(0))
	req.Minor = uint8(v.ReleaseAt(1))
	req.Patch = uint8(v.ReleaseAt(2))
	switch {
	case v.Pre != nil:
		req.Kind = VersionMajorMinorPrerelease
		req.HasPatch = len(v.Release) == 3
		req.Pre = *v.Pre
	case len(v.Release) == 1:
		req.Kind = VersionMajor
	case len(v.Release) == 2:
		req.Kind = VersionMajorMinor
	default:
		req.Kind = VersionMajorMinorPatch
	}
	return req, req.validate(text)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// validate rejects versions pyseek cannot target.
func (r VersionRequest) validate(text string) error {
	switch r.Kind {
	case VersionAny, VersionRange:
		return nil
	case VersionMajor:
		if r.Major < 3 {
			return &RequestError{Request: text, Unsupported: true,
				Reason: fmt.Sprintf("Python <3.7 is not supported but %s was requested.", text)}
		}
		return nil
	}
	if r.Major < 3 || (r.Major == 3 && r.Minor < 7) {
		return &RequestError{Request: text, Unsupported: true,
			Reason: fmt.Sprintf("Python <3.7 is not supported but %s was requested.", text)}
	}
	if r.Variant == VariantFreethreaded && r.Major == 3 && r.Minor < 13 {
		return &RequestError{Request: text, Unsupported: true,
			Reason: fmt.Sprintf("Python <3.13 does not support free-threading but %s was requested.", text)}
	}
	return nil
}

// IsAny reports whether the request places no constraint on the version.
func (r VersionRequest) IsAny() bool { return r.Kind == VersionAny }

// Matches reports whether an interpreter with version v and variant
// satisfies the request. An unconstrained request accepts every variant;
// otherwise the variant must match exactly.
func (r VersionRequest) Matches(v Version, variant Variant) bool {
	if r.Kind == VersionAny {
		return true
	}
	if variant != r.Variant {
		return false
	}
	switch r.Kind {
	case VersionMajor:
		return v.Major() == r.Major
	case VersionMajorMinor:
		return v.Major() == r.Major && v.Minor() == r.Minor
	case VersionMajorMinorPatch:
		patch, _ := v.Patch()
		return v.Major() == r.Major && v.Minor() == r.Minor && patch == r.Patch
	case VersionMajorMinorPrerelease:
		if v.Major() != r.Major || v.Minor() != r.Minor {
			return false
		}
		if r.HasPatch {
			if patch, _ := v.Patch(); patch != r.Patch {
				return false
			}
		}
		pre := v.Pre()
		return pre != nil && *pre == r.Pre
	case VersionRange:
		return r.Range.Contains(v.ReleaseOnly())
	}
	return false
}

// MatchesMinor reports whether some interpreter of major.minor could
// satisfy the request. It is used to pick versioned executable names
// before probing.
func (r VersionRequest) MatchesMinor(major, minor uint8) bool {
	switch r.Kind {
	case VersionAny:
		return true
	case VersionMajor:
		return major == r.Major
	case VersionRange:
		lo := pep440.New(uint64(major), uint64(minor))
		hi := pep440.New(uint64(major), uint64(minor), 255)
		window := pep440.Ranges{{
			Lower: pep440.Bound{Version: &lo, Inclusive: true},
			Upper: pep440.Bound{Version: &hi, Inclusive: true},
		}}
		return !pep440.FromSpecifiers(r.Range).Intersect(window).IsEmpty()
	default:
		return major == r.Major && minor == r.Minor
	}
}

// executableSuffix returns the version part of a versioned executable name
// for this request ("3.12", "3.12t", "3"), or "" when the request does not
// determine one.
func (r VersionRequest) executableSuffix() string {
	t := ""
	if r.Variant == VariantFreethreaded {
		t = "t"
	}
	switch r.Kind {
	case VersionMajor:
		return fmt.Sprintf("%d%s", r.Major, t)
	case VersionMajorMinor, VersionMajorMinorPatch, VersionMajorMinorPrerelease:
		return fmt.Sprintf("%d.%d%s", r.Major, r.Minor, t)
	}
	return ""
}

// String renders the request in canonical form.
func (r VersionRequest) String() string {
	var s string
	switch r.Kind {
	case VersionAny:
		return ""
	case VersionMajor:
		s = strconv.Itoa(int(r.Major))
	case VersionMajorMinor:
		s = fmt.Sprintf("%d.%d", r.Major, r.Minor)
	case VersionMajorMinorPatch:
		s = fmt.Sprintf("%d.%d.%d", r.Major, r.Minor, r.Patch)
	case VersionMajorMinorPrerelease:
		if r.HasPatch {
			s = fmt.Sprintf("%d.%d.%d%s", r.Major, r.Minor, r.Patch, r.Pre)
		} else {
			s = fmt.Sprintf("%d.%d%s", r.Major, r.Minor, r.Pre)
		}
	case VersionRange:
		s = r.Range.String()
	}
	if r.Variant == VariantFreethreaded {
		s += "t"
	}
	return s
}
