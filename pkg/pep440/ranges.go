package pep440

import (
	"slices"
	"strings"
)

// Bound is one end of an [Interval]. A nil Version means unbounded.
type Bound struct {
	Version   *Version
	Inclusive bool
}

// Interval is a contiguous range of versions.
type Interval struct {
	Lower Bound
	Upper Bound
}

// Ranges is a union of disjoint intervals. An empty Ranges matches nothing;
// [Full] matches everything.
type Ranges []Interval

// Full returns the unbounded range.
func Full() Ranges { return Ranges{{}} }

func at(v Version, inclusive bool) Bound {
	v = v.clone()
	return Bound{Version: &v, Inclusive: inclusive}
}

// devFloor returns v.dev0, the smallest version that still belongs to v's
// release (so that pre-releases are inside wildcard ranges).
func devFloor(v Version) Version {
	out := v.OnlyRelease()
	zero := uint64(0)
	out.Dev = &zero
	return out
}

// bump increments the last release segment: 3.12 -> 3.13.
func bump(release []uint64) Version {
	next := slices.Clone(release)
	next[len(next)-1]++
	return Version{Release: next}
}

// FromSpecifier converts a single clause into ranges.
func FromSpecifier(s Specifier) Ranges {
	v := s.Version
	switch s.Op {
	case OpGreaterThanEqual:
		return Ranges{{Lower: at(v, true)}}
	case OpGreaterThan:
		return Ranges{{Lower: at(v, false)}}
	case OpLessThanEqual:
		return Ranges{{Upper: at(v, true)}}
	case OpLessThan:
		return Ranges{{Upper: at(v, false)}}
	case OpEqual:
		if s.Wildcard {
			return Ranges{{Lower: at(devFloor(v), true), Upper: at(devFloor(bump(v.Release)), false)}}
		}
		return Ranges{{Lower: at(v, true), Upper: at(v, true)}}
	case OpNotEqual:
		if s.Wildcard {
			return Ranges{
				{Upper: at(devFloor(v), false)},
				{Lower: at(devFloor(bump(v.Release)), true)},
			}
		}
		return Ranges{{Upper: at(v, false)}, {Lower: at(v, false)}}
	case OpCompatible:
		prefix := v.Release[:len(v.Release)-1]
		return Ranges{{Lower: at(v, true), Upper: at(devFloor(bump(prefix)), false)}}
	}
	return Full()
}

// FromSpecifiers intersects the ranges of every clause.
func FromSpecifiers(ss Specifiers) Ranges {
	out := Full()
	for _, s := range ss {
		out = out.Intersect(FromSpecifier(s))
	}
	return out
}

// IsEmpty reports whether no version satisfies the ranges.
func (r Ranges) IsEmpty() bool { return len(r) == 0 }

// Contains reports whether v lies within any interval.
func (r Ranges) Contains(v Version) bool {
	return slices.ContainsFunc(r, func(iv Interval) bool { return iv.Contains(v) })
}

// Intersect returns the versions present in both r and o.
func (r Ranges) Intersect(o Ranges) Ranges {
	var out Ranges
	for _, a := range r {
		for _, b := range o {
			iv := Interval{
				Lower: maxLower(a.Lower, b.Lower),
				Upper: minUpper(a.Upper, b.Upper),
			}
			if iv.valid() {
				out = append(out, iv)
			}
		}
	}
	return out
}

// LowerBound returns the smallest lower bound across all intervals, or an
// unbounded Bound when the ranges are empty or open below.
func (r Ranges) LowerBound() Bound {
	if len(r) == 0 {
		return Bound{}
	}
	lowest := r[0].Lower
	for _, iv := range r[1:] {
		if compareLower(iv.Lower, lowest) < 0 {
			lowest = iv.Lower
		}
	}
	return lowest
}

// String renders the ranges as specifier text, intervals joined by " || ".
func (r Ranges) String() string {
	if len(r) == 0 {
		return "<empty>"
	}
	parts := make([]string, len(r))
	for i, iv := range r {
		parts[i] = iv.String()
	}
	return strings.Join(parts, " || ")
}

// Contains reports whether v lies within the interval.
func (iv Interval) Contains(v Version) bool {
	if l := iv.Lower; l.Version != nil {
		c := Compare(v, *l.Version)
		if c < 0 || (c == 0 && !l.Inclusive) {
			return false
		}
	}
	if u := iv.Upper; u.Version != nil {
		c := Compare(v, *u.Version)
		if c > 0 || (c == 0 && !u.Inclusive) {
			return false
		}
	}
	return true
}

func (iv Interval) valid() bool {
	if iv.Lower.Version == nil || iv.Upper.Version == nil {
		return true
	}
	c := Compare(*iv.Lower.Version, *iv.Upper.Version)
	return c < 0 || (c == 0 && iv.Lower.Inclusive && iv.Upper.Inclusive)
}

func (iv Interval) String() string {
	var parts []string
	if l := iv.Lower; l.Version != nil {
		op := ">"
		if l.Inclusive {
			op = ">="
		}
		parts = append(parts, op+l.Version.String())
	}
	if u := iv.Upper; u.Version != nil {
		op := "<"
		if u.Inclusive {
			op = "<="
		}
		parts = append(parts, op+u.Version.String())
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, ", ")
}

// compareLower orders lower bounds; unbounded sorts first and an exclusive
// bound sorts after an inclusive one at the same version.
func compareLower(a, b Bound) int {
	switch {
	case a.Version == nil && b.Version == nil:
		return 0
	case a.Version == nil:
		return -1
	case b.Version == nil:
		return 1
	}
	if c := Compare(*a.Version, *b.Version); c != 0 {
		return c
	}
	switch {
	case a.Inclusive == b.Inclusive:
		return 0
	case a.Inclusive:
		return -1
	default:
		return 1
	}
}

// compareUpper orders upper bounds; unbounded sorts last and an exclusive
// bound sorts before an inclusive one at the same version.
func compareUpper(a, b Bound) int {
	switch {
	case a.Version == nil && b.Version == nil:
		return 0
	case a.Version == nil:
		return 1
	case b.Version == nil:
		return -1
	}
	if c := Compare(*a.Version, *b.Version); c != 0 {
		return c
	}
	switch {
	case a.Inclusive == b.Inclusive:
		return 0
	case a.Inclusive:
		return 1
	default:
		return -1
	}
}

func maxLower(a, b Bound) Bound {
	if compareLower(a, b) >= 0 {
		return a
	}
	return b
}

func minUpper(a, b Bound) Bound {
	if compareUpper(a, b) <= 0 {
		return a
	}
	return b
}
