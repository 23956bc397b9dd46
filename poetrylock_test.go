// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deplock

import (
	"errors"
	"testing"

	"github.com/block/deplock/pep"
)

func TestParsePoetryLock(t *testing.T) {
	doc, err := PoetryLockParser{}.Parse(loadFixture(t, "poetry.lock"))
	if err != nil {
		t.Fatal(err)
	}

	if doc.Format != FormatPoetry {
		t.Errorf("Format = %q, want %q", doc.Format, FormatPoetry)
	}
	if doc.LockVersion != "2.1" || doc.CreatedBy != "poetry" {
		t.Errorf("LockVersion, CreatedBy = %q, %q", doc.LockVersion, doc.CreatedBy)
	}
	// metadata.python-versions = "^3.9" desugars to a caret range.
	if got := doc.RequiresPython.String(); got != ">=3.9, <4" {
		t.Errorf("RequiresPython = %q, want >=3.9, <4", got)
	}
	if len(doc.Packages) != 3 {
		t.Fatalf("parsed %d packages, want 3", len(doc.Packages))
	}

	packaging, ok := doc.Package("packaging")
	if !ok {
		t.Fatal("packaging missing from index")
	}
	if len(packaging.Wheels()) != 1 {
		t.Errorf("packaging has %d wheels, want 1", len(packaging.Wheels()))
	}
	if _, ok := packaging.Sdist(); !ok {
		t.Error("packaging-24.2.tar.gz should be classed as an sdist")
	}

	pywin32, _ := doc.Package("pywin32")
	if pywin32.Marker == nil {
		t.Fatal("pywin32 markers field was dropped")
	}
	linux := pep.ManylinuxX8664(pep.PythonVersion{Major: 3, Minor: 10, Micro: 0})
	if ok, _ := pywin32.Marker.Evaluate(linux); ok {
		t.Error("pywin32 should not apply on linux")
	}

	regex, _ := doc.Package("regex")
	wheels := regex.Wheels()
	if len(wheels) != 1 {
		t.Fatalf("regex has %d wheels, want 1", len(wheels))
	}
	// The compressed platform field expands to one tag per alias.
	if len(wheels[0].Tags) != 2 {
		t.Errorf("regex wheel expands to %d tags, want 2", len(wheels[0].Tags))
	}
}

func TestParsePoetryLockSchemaErrors(t *testing.T) {
	cases := []struct {
		name    string
		doc     string
		section string
	}{
		{
			name:    "missing metadata",
			doc:     `[[package]]` + "\nname = \"a\"\nversion = \"1.0\"",
			section: "metadata.lock-version",
		},
		{
			name: "unsupported lock-version",
			doc: `[metadata]
lock-version = "1.1"`,
			section: "metadata.lock-version",
		},
		{
			name: "package without version",
			doc: `[[package]]
name = "a"
[metadata]
lock-version = "2.0"`,
			section: "package[0]",
		},
		{
			name: "file without hash",
			doc: `[[package]]
name = "a"
version = "1.0"
files = [{file = "a-1.0.tar.gz"}]
[metadata]
lock-version = "2.0"`,
			section: "package[0].files[0]",
		},
	}

	for _, c := range cases {
		_, err := PoetryLockParser{}.Parse([]byte(c.doc))
		if err == nil {
			t.Errorf("%s: parse should have failed", c.name)
			continue
		}
		var schemaErr *SchemaValidationError
		if !errors.As(err, &schemaErr) {
			t.Errorf("%s: error type = %T, want *SchemaValidationError", c.name, err)
			continue
		}
		if schemaErr.Section != c.section {
			t.Errorf("%s: section = %q, want %q", c.name, schemaErr.Section, c.section)
		}
	}
}

func TestParsePoetryConstraint(t *testing.T) {
	v := func(s string) pep.Version { return pep.MustParseVersion(s) }
	cases := []struct {
		in      string
		match   []pep.Version
		exclude []pep.Version
	}{
		{"*", []pep.Version{v("1.0"), v("99.0")}, nil},
		{"", []pep.Version{v("1.0")}, nil},
		{"^3.9", []pep.Version{v("3.9"), v("3.12.1")}, []pep.Version{v("3.8.9"), v("4.0")}},
		{"^1.2.3", []pep.Version{v("1.2.3"), v("1.9.0")}, []pep.Version{v("1.2.2"), v("2.0")}},
		{"~3.9", []pep.Version{v("3.9"), v("3.9.21")}, []pep.Version{v("3.10"), v("3.8")}},
		{"~3", []pep.Version{v("3.0"), v("3.99")}, []pep.Version{v("4.0")}},
		{"3.9.1", []pep.Version{v("3.9.1")}, []pep.Version{v("3.9.2")}},
		{"3.9.*", []pep.Version{v("3.9.0"), v("3.9.18")}, []pep.Version{v("3.10.0")}},
		{">=3.8,<3.13", []pep.Version{v("3.8"), v("3.12.9")}, []pep.Version{v("3.13")}},
		{"^3.9,!=3.11.0", []pep.Version{v("3.10.0")}, []pep.Version{v("3.11.0")}},
	}

	for _, c := range cases {
		set, err := ParsePoetryConstraint(c.in)
		if err != nil {
			t.Errorf("ParsePoetryConstraint(%q) failed: %v", c.in, err)
			continue
		}
		for _, m := range c.match {
			if !set.Matches(m) {
				t.Errorf("constraint %q should admit %s", c.in, m)
			}
		}
		for _, m := range c.exclude {
			if set.Matches(m) {
				t.Errorf("constraint %q should reject %s", c.in, m)
			}
		}
	}
}

func TestParsePoetryConstraintErrors(t *testing.T) {
	for _, in := range []string{"^", "~", "^a.b", ">=3.9,,<4"} {
		if _, err := ParsePoetryConstraint(in); err == nil {
			t.Errorf("ParsePoetryConstraint(%q) should have failed", in)
		}
	}
}
