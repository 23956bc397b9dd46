// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pep

import (
	"errors"
	"testing"
)

func markerTestEnv() *Environment {
	return &Environment{
		Python:               PythonVersion{Major: 3, Minor: 10, Micro: 4},
		ImplementationName:   "cpython",
		PythonImplementation: "CPython",
		OSName:               "posix",
		SysPlatform:          "linux",
		PlatformMachine:      "x86_64",
		PlatformSystem:       "Linux",
		Extra:                map[string]string{"extra": "dev"},
	}
}

func TestMarkerEvaluate(t *testing.T) {
	env := markerTestEnv()
	cases := []struct {
		expr string
		want bool
	}{
		{`sys_platform == "linux"`, true},
		{`sys_platform == "darwin"`, false},
		{`sys_platform != "darwin"`, true},
		{`"linux" == sys_platform`, true},
		// python_version is truncated to major.minor.
		{`python_version == "3.10"`, true},
		{`python_full_version == "3.10"`, false},
		{`python_full_version == "3.10.4"`, true},
		// Ordering against python variables is numeric, not lexicographic.
		{`python_version >= "3.9"`, true},
		{`python_version < "3.9"`, false},
		{`python_full_version > "3.10.3"`, true},
		{`python_full_version <= "3.10.10"`, true},
		// Other variables compare as strings.
		{`platform_machine >= "x86"`, true},
		// Substring containment.
		{`"linux" in sys_platform`, true},
		{`"bsd" in sys_platform`, false},
		{`"bsd" not in sys_platform`, true},
		// Boolean structure.
		{`python_version >= "3.9" and sys_platform == "linux"`, true},
		{`python_version >= "3.9" and sys_platform == "darwin"`, false},
		{`sys_platform == "darwin" or os_name == "posix"`, true},
		{`not sys_platform == "darwin"`, true},
		{`not (sys_platform == "linux" or os_name == "nt")`, false},
		{`(os_name == "nt" or os_name == "posix") and platform_system == "Linux"`, true},
		// Precedence: and binds tighter than or.
		{`sys_platform == "darwin" or sys_platform == "linux" and os_name == "posix"`, true},
		// Caller-supplied extras.
		{`extra == "dev"`, true},
		{`extra == "docs"`, false},
		{`implementation_name == "cpython"`, true},
		{`platform_python_implementation == "CPython"`, true},
	}
	for _, c := range cases {
		m, err := ParseMarker(c.expr)
		if err != nil {
			t.Errorf("ParseMarker(%q) returned unexpected error: %v", c.expr, err)
			continue
		}
		got, err := m.Evaluate(env)
		if err != nil {
			t.Errorf("Evaluate(%q) returned unexpected error: %v", c.expr, err)
			continue
		}
		if got != c.want {
			t.Errorf("Evaluate(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestMarkerEvaluateIsRepeatable(t *testing.T) {
	env := markerTestEnv()
	m := MustParseMarker(`python_version >= "3.9" and "linux" in sys_platform`)
	for i := 0; i < 5; i++ {
		got, err := m.Evaluate(env)
		if err != nil {
			t.Fatal(err)
		}
		if !got {
			t.Fatalf("evaluation %d flipped to false", i)
		}
	}
}

func TestMarkerSyntaxErrors(t *testing.T) {
	bad := []string{
		``,
		`sys_platform ==`,
		`== "linux"`,
		`sys_platform = "linux"`,
		`sys_platform == "linux`,
		`(sys_platform == "linux"`,
		`sys_platform == "linux" or`,
		`"a" == "b"`,
		`sys_platform not "linux"`,
		`sys_platform == "linux" trailing`,
		`sys_platform ?? "linux"`,
	}
	for _, in := range bad {
		_, err := ParseMarker(in)
		if err == nil {
			t.Errorf("ParseMarker(%q) should have failed", in)
			continue
		}
		var syntaxErr *MarkerSyntaxError
		if !errors.As(err, &syntaxErr) {
			t.Errorf("ParseMarker(%q) error type = %T, want *MarkerSyntaxError", in, err)
		}
	}
}

func TestMarkerUnknownVariable(t *testing.T) {
	m := MustParseMarker(`nonsense_variable == "x"`)
	_, err := m.Evaluate(markerTestEnv())
	if err == nil {
		t.Fatal("evaluation against an unknown variable should fail")
	}
	var unknown *UnknownMarkerVariableError
	if !errors.As(err, &unknown) {
		t.Fatalf("error type = %T, want *UnknownMarkerVariableError", err)
	}
	if unknown.Variable != "nonsense_variable" {
		t.Errorf("Variable = %q, want %q", unknown.Variable, "nonsense_variable")
	}
}

func TestMarkerOr(t *testing.T) {
	env := markerTestEnv()
	m := Or(
		MustParseMarker(`sys_platform == "darwin"`),
		MustParseMarker(`sys_platform == "linux"`),
	)
	got, err := m.Evaluate(env)
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Error("disjunction of darwin|linux should hold on linux")
	}
	if Or() != nil {
		t.Error("Or() with no markers should be nil")
	}
}
