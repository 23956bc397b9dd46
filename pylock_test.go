// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deplock

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestParsePylock(t *testing.T) {
	doc, err := PylockParser{}.Parse(loadFixture(t, "pylock.toml"))
	if err != nil {
		t.Fatal(err)
	}

	if doc.Format != FormatPylock {
		t.Errorf("Format = %q, want %q", doc.Format, FormatPylock)
	}
	if doc.LockVersion != "1.0" || doc.CreatedBy != "uv" {
		t.Errorf("LockVersion, CreatedBy = %q, %q", doc.LockVersion, doc.CreatedBy)
	}
	if got := doc.RequiresPython.String(); got != ">=3.9" {
		t.Errorf("RequiresPython = %q, want >=3.9", got)
	}
	if len(doc.Environments) != 2 {
		t.Fatalf("parsed %d environment markers, want 2", len(doc.Environments))
	}
	if len(doc.Packages) != 4 {
		t.Fatalf("parsed %d packages, want 4", len(doc.Packages))
	}

	attrs, ok := doc.Package("attrs")
	if !ok {
		t.Fatal("attrs missing from index")
	}
	if attrs.Version == nil || attrs.Version.String() != "25.1.0" {
		t.Errorf("attrs version = %v", attrs.Version)
	}
	if got := attrs.RequiresPython.String(); got != ">=3.8" {
		t.Errorf("attrs requires-python = %q", got)
	}
	wheels := attrs.Wheels()
	if len(wheels) != 1 {
		t.Fatalf("attrs has %d wheels, want 1", len(wheels))
	}
	if len(wheels[0].Tags) != 1 || wheels[0].Tags[0].String() != "py3-none-any" {
		t.Errorf("attrs wheel tags = %v", wheels[0].Tags)
	}
	if wheels[0].Hashes["sha256"] == "" {
		t.Error("attrs wheel lost its hash")
	}
	if wheels[0].Size != 63152 {
		t.Errorf("attrs wheel size = %d", wheels[0].Size)
	}

	crypt, _ := doc.Package("cryptography")
	if len(crypt.Wheels()) != 3 {
		t.Errorf("cryptography has %d wheels, want 3", len(crypt.Wheels()))
	}
	if _, ok := crypt.Sdist(); !ok {
		t.Error("cryptography sdist missing")
	}
	if len(crypt.Dependencies) != 1 || crypt.Dependencies[0].Name != "cffi" {
		t.Errorf("cryptography dependencies = %v", crypt.Dependencies)
	}

	colorama, _ := doc.Package("colorama")
	if colorama.Marker == nil {
		t.Fatal("colorama marker was dropped")
	}

	tools, _ := doc.Package("deplock-tools")
	if len(tools.Distributions) != 1 || tools.Distributions[0].Kind != KindVCS {
		t.Errorf("deplock-tools distributions = %v", tools.Distributions)
	}
}

func TestParsePylockSchemaErrors(t *testing.T) {
	cases := []struct {
		name    string
		doc     string
		section string
	}{
		{
			name:    "missing lock-version",
			doc:     `created-by = "uv"`,
			section: "lock-version",
		},
		{
			name:    "unsupported lock-version",
			doc:     "lock-version = \"2.0\"\ncreated-by = \"uv\"",
			section: "lock-version",
		},
		{
			name:    "missing created-by",
			doc:     `lock-version = "1.0"`,
			section: "created-by",
		},
		{
			name: "package without name",
			doc: `lock-version = "1.0"
created-by = "uv"
[[packages]]
version = "1.0"`,
			section: "packages[0]",
		},
		{
			name: "wheel without hashes",
			doc: `lock-version = "1.0"
created-by = "uv"
[[packages]]
name = "a"
[[packages.wheels]]
name = "a-1.0-py3-none-any.whl"
url = "https://example.com/a-1.0-py3-none-any.whl"`,
			section: "packages[0].wheels[0]",
		},
		{
			name: "wheel without location",
			doc: `lock-version = "1.0"
created-by = "uv"
[[packages]]
name = "a"
[[packages.wheels]]
name = "a-1.0-py3-none-any.whl"
[packages.wheels.hashes]
sha256 = "aa"`,
			section: "packages[0].wheels[0]",
		},
		{
			name: "vcs without commit",
			doc: `lock-version = "1.0"
created-by = "uv"
[[packages]]
name = "a"
[packages.vcs]
type = "git"
url = "https://example.com/a.git"`,
			section: "packages[0].vcs",
		},
		{
			name: "vcs alongside wheels",
			doc: `lock-version = "1.0"
created-by = "uv"
[[packages]]
name = "a"
[packages.vcs]
type = "git"
url = "https://example.com/a.git"
commit-id = "abc"
[[packages.wheels]]
name = "a-1.0-py3-none-any.whl"
url = "https://example.com/a-1.0-py3-none-any.whl"
[packages.wheels.hashes]
sha256 = "aa"`,
			section: "packages[0]",
		},
		{
			name: "directory alongside archive",
			doc: `lock-version = "1.0"
created-by = "uv"
[[packages]]
name = "a"
[packages.directory]
path = "."
[packages.archive]
url = "https://example.com/a.zip"
[packages.archive.hashes]
sha256 = "aa"`,
			section: "packages[0]",
		},
	}

	for _, c := range cases {
		_, err := PylockParser{}.Parse([]byte(c.doc))
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

func TestParsePylockMalformedVersion(t *testing.T) {
	doc := `lock-version = "1.0"
created-by = "uv"
[[packages]]
name = "a"
version = "not-a-version"`
	_, err := PylockParser{}.Parse([]byte(doc))
	if err == nil {
		t.Fatal("malformed package version should fail parsing")
	}
	if !strings.Contains(err.Error(), "packages[0]") {
		t.Errorf("error %q should name the offending section", err)
	}
}
