// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pep

import (
	"strings"
)

// Operator is a version constraint operator.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLessEqual    Operator = "<="
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpGreater      Operator = ">"
	OpCompatible   Operator = "~="
	OpArbitrary    Operator = "==="
)

// Specifier is a single version constraint clause.
type Specifier struct {
	op       Operator
	version  Version
	wildcard bool   // trailing .* on an == or != clause
	raw      string // unparsed version text, for === comparison
}

// SpecifierSet is a conjunction of clauses. The empty set matches every
// version.
type SpecifierSet []Specifier

// ParseSpecifier parses one clause, e.g. ">=1.2" or "==1.2.*".
func ParseSpecifier(s string) (Specifier, error) {
	text := strings.TrimSpace(s)

	var op Operator
	switch {
	case strings.HasPrefix(text, "==="):
		op = OpArbitrary
	case strings.HasPrefix(text, "=="):
		op = OpEqual
	case strings.HasPrefix(text, "!="):
		op = OpNotEqual
	case strings.HasPrefix(text, "<="):
		op = OpLessEqual
	case strings.HasPrefix(text, ">="):
		op = OpGreaterEqual
	case strings.HasPrefix(text, "~="):
		op = OpCompatible
	case strings.HasPrefix(text, "<"):
		op = OpLess
	case strings.HasPrefix(text, ">"):
		op = OpGreater
	default:
		return Specifier{}, &SpecifierParseError{Input: s, Reason: "missing comparison operator"}
	}

	body := strings.TrimSpace(text[len(op):])
	if body == "" {
		return Specifier{}, &SpecifierParseError{Input: s, Reason: "missing version"}
	}

	if op == OpArbitrary {
		// Arbitrary equality never interprets the version text.
		return Specifier{op: op, raw: body}, nil
	}

	spec := Specifier{op: op, raw: body}
	if strings.HasSuffix(body, ".*") {
		if op != OpEqual && op != OpNotEqual {
			return Specifier{}, &SpecifierParseError{Input: s, Reason: "wildcard is only valid with == and !="}
		}
		spec.wildcard = true
		body = strings.TrimSuffix(body, ".*")
	}

	v, err := ParseVersion(body)
	if err != nil {
		return Specifier{}, err
	}
	if op == OpCompatible {
		if len(v.release) < 2 {
			return Specifier{}, &SpecifierParseError{Input: s, Reason: "~= requires at least two release segments"}
		}
		if v.HasLocal() {
			return Specifier{}, &SpecifierParseError{Input: s, Reason: "~= cannot be used with a local label"}
		}
	}
	spec.version = v
	return spec, nil
}

// ParseSpecifierSet parses a comma-separated conjunction of clauses. The
// empty string yields the empty set.
func ParseSpecifierSet(s string) (SpecifierSet, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return nil, nil
	}
	var set SpecifierSet
	for _, clause := range strings.Split(text, ",") {
		if strings.TrimSpace(clause) == "" {
			return nil, &SpecifierParseError{Input: s, Reason: "empty clause"}
		}
		spec, err := ParseSpecifier(clause)
		if err != nil {
			return nil, err
		}
		set = append(set, spec)
	}
	return set, nil
}

// Operator returns the clause operator.
func (s Specifier) Operator() Operator { return s.op }

func (s Specifier) String() string {
	return string(s.op) + s.raw
}

func (ss SpecifierSet) String() string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

// Matches reports whether v satisfies the clause.
func (s Specifier) Matches(v Version) bool {
	switch s.op {
	case OpArbitrary:
		return v.Original() == s.raw
	case OpEqual:
		if s.wildcard {
			return prefixMatch(v, s.version)
		}
		return equalForSpecifier(v, s.version)
	case OpNotEqual:
		if s.wildcard {
			return !prefixMatch(v, s.version)
		}
		return !equalForSpecifier(v, s.version)
	case OpLessEqual:
		return v.Compare(s.version) <= 0
	case OpGreaterEqual:
		return v.Compare(s.version) >= 0
	case OpLess:
		return v.Compare(s.version) < 0
	case OpGreater:
		return v.Compare(s.version) > 0
	case OpCompatible:
		if v.Compare(s.version) < 0 {
			return false
		}
		truncated := s.version
		truncated.release = s.version.release[:len(s.version.release)-1]
		return prefixMatch(v, truncated)
	}
	return false
}

// Matches reports whether v satisfies every clause in the set.
func (ss SpecifierSet) Matches(v Version) bool {
	for _, s := range ss {
		if !s.Matches(v) {
			return false
		}
	}
	return true
}

// prefixMatch implements wildcard equality: the candidate's epoch must
// match and its release tuple, zero-padded, must start with the
// specifier's release segments. Pre/post/dev segments and local labels do
// not participate.
func prefixMatch(v, spec Version) bool {
	if v.epoch != spec.epoch {
		return false
	}
	for i, want := range spec.release {
		var have int
		if i < len(v.release) {
			have = v.release[i]
		}
		if have != want {
			return false
		}
	}
	return true
}

// equalForSpecifier implements == without a wildcard. The candidate's
// local label is ignored unless the clause itself carries one.
func equalForSpecifier(v, spec Version) bool {
	if len(spec.local) == 0 {
		v.local = nil
	}
	return v.Compare(spec) == 0
}
