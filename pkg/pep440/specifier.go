package pep440

import (
	"fmt"
	"slices"
	"strings"

	pep440v "github.com/aquasecurity/go-pep440-version"
)

// Operator is a version comparison operator.
type Operator string

const (
	OpEqual            Operator = "=="
	OpNotEqual         Operator = "!="
	OpLessThan         Operator = "<"
	OpLessThanEqual    Operator = "<="
	OpGreaterThan      Operator = ">"
	OpGreaterThanEqual Operator = ">="
	OpCompatible       Operator = "~="
	OpArbitrary        Operator = "==="
)

// operators is ordered so that longer operators are matched first.
var operators = []Operator{
	OpArbitrary, OpCompatible, OpEqual, OpNotEqual,
	OpLessThanEqual, OpGreaterThanEqual, OpLessThan, OpGreaterThan,
}

// Specifier is a single version clause such as ">=3.11" or "==3.12.*".
type Specifier struct {
	Op       Operator
	Version  Version
	Wildcard bool   // trailing ".*", only valid with == and !=
	Raw      string // original version text, used by ===
}

// ParseSpecifier parses a single clause.
func ParseSpecifier(s string) (Specifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Specifier{}, fmt.Errorf("empty version specifier")
	}
	var op Operator
	for _, candidate := range operators {
		if strings.HasPrefix(s, string(candidate)) {
			op = candidate
			break
		}
	}
	if op == "" {
		return Specifier{}, fmt.Errorf("missing comparison operator in %q", s)
	}
	rest := strings.TrimSpace(strings.TrimPrefix(s, string(op)))
	if rest == "" {
		return Specifier{}, fmt.Errorf("missing version in %q", s)
	}
	if op == OpArbitrary {
		return Specifier{Op: op, Raw: rest}, nil
	}

	wildcard := false
	if strings.HasSuffix(rest, ".*") {
		if op != OpEqual && op != OpNotEqual {
			return Specifier{}, fmt.Errorf("wildcard is only allowed with == and != in %q", s)
		}
		wildcard = true
		rest = strings.TrimSuffix(rest, ".*")
	}
	v, err := Parse(rest)
	if err != nil {
		return Specifier{}, fmt.Errorf("invalid specifier %q: %w", s, err)
	}
	if op == OpCompatible && len(v.Release) < 2 {
		return Specifier{}, fmt.Errorf("~= requires at least two release segments in %q", s)
	}
	return Specifier{Op: op, Version: v, Wildcard: wildcard, Raw: rest}, nil
}

// String renders the clause in normalized form.
func (s Specifier) String() string {
	if s.Op == OpArbitrary {
		return string(s.Op) + s.Raw
	}
	out := string(s.Op) + s.Version.String()
	if s.Wildcard {
		out += ".*"
	}
	return out
}

// Contains reports whether v satisfies the clause. Pre-releases are not
// excluded implicitly; callers that care strip them before asking.
func (s Specifier) Contains(v Version) bool {
	if s.Op == OpArbitrary {
		return strings.EqualFold(v.String(), s.Raw)
	}
	return check(s.String(), v)
}

// check matches v against clauses in their normalized text form.
func check(clauses string, v Version) bool {
	set, err := pep440v.NewSpecifiers(clauses, pep440v.WithPreRelease(true))
	if err != nil {
		return false
	}
	cv, ok := v.canonical()
	return ok && set.Check(cv)
}

// Specifiers is a comma-joined conjunction of clauses.
type Specifiers []Specifier

// ParseSpecifiers parses a comma-separated list of clauses such as
// ">=3.11, <3.13". An empty string yields an empty (unbounded) set.
func ParseSpecifiers(s string) (Specifiers, error) {
	var out Specifiers
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		spec, err := ParseSpecifier(part)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}

// Contains reports whether v satisfies every clause.
func (ss Specifiers) Contains(v Version) bool {
	for _, s := range ss {
		if !s.Contains(v) {
			return false
		}
	}
	return true
}

// String renders the clauses joined by ", ".
func (ss Specifiers) String() string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

// Union returns the conjunction of both clause lists, dropping exact
// duplicates.
func (ss Specifiers) Union(other Specifiers) Specifiers {
	out := slices.Clone(ss)
	for _, s := range other {
		if !slices.ContainsFunc(out, func(e Specifier) bool { return e.String() == s.String() }) {
			out = append(out, s)
		}
	}
	return out
}
