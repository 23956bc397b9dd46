// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pep

import "fmt"

// VersionParseError is returned when a version string does not conform to
// the PEP 440 grammar.
type VersionParseError struct {
	Input  string
	Reason string
}

func (e *VersionParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
}

// SpecifierParseError is returned when a version constraint clause cannot
// be parsed.
type SpecifierParseError struct {
	Input  string
	Reason string
}

func (e *SpecifierParseError) Error() string {
	return fmt.Sprintf("invalid specifier %q: %s", e.Input, e.Reason)
}

// MarkerSyntaxError is returned when a marker expression cannot be parsed.
// Pos is a byte offset into Expr.
type MarkerSyntaxError struct {
	Expr   string
	Pos    int
	Reason string
}

func (e *MarkerSyntaxError) Error() string {
	return fmt.Sprintf("invalid marker %q at offset %d: %s", e.Expr, e.Pos, e.Reason)
}

// UnknownMarkerVariableError is returned when a marker expression is
// evaluated against an environment that does not define one of its
// variables.
type UnknownMarkerVariableError struct {
	Variable string
}

func (e *UnknownMarkerVariableError) Error() string {
	return fmt.Sprintf("unknown marker variable %q", e.Variable)
}
