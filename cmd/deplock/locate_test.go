// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/block/deplock"
)

func TestParserForFile(t *testing.T) {
	cases := []struct {
		path   string
		format string
	}{
		{"pylock.toml", deplock.FormatPylock},
		{"/some/dir/pylock.toml", deplock.FormatPylock},
		{"pylock.dev.toml", deplock.FormatPylock},
		{"uv.lock", deplock.FormatUV},
		{"poetry.lock", deplock.FormatPoetry},
	}
	for _, c := range cases {
		p, err := parserForFile(c.path)
		if err != nil {
			t.Errorf("parserForFile(%q) failed: %v", c.path, err)
			continue
		}
		if p.Format() != c.format {
			t.Errorf("parserForFile(%q) = %s, want %s", c.path, p.Format(), c.format)
		}
	}

	for _, path := range []string{"requirements.txt", "Pipfile.lock", "pylock.json"} {
		if _, err := parserForFile(path); err == nil {
			t.Errorf("parserForFile(%q) should fail", path)
		}
	}
}

func TestFindLockFileSearchesAncestors(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "services", "api")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	lock := filepath.Join(root, "uv.lock")
	if err := os.WriteFile(lock, []byte("version = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	found, err := findLockFile(nested)
	if err != nil {
		t.Fatal(err)
	}
	if found != lock {
		t.Errorf("found %s, want %s", found, lock)
	}
}

func TestFindLockFilePrefersPylock(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"uv.lock", "pylock.toml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	found, err := findLockFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(found) != "pylock.toml" {
		t.Errorf("found %s, want the standardized format to win", found)
	}
}

func TestFindLockFilesBelow(t *testing.T) {
	root := t.TempDir()
	paths := map[string]string{
		"uv.lock":                 "version = 1\n",
		"sub/poetry.lock":         "",
		"sub/deep/pylock.ci.toml": "",
		".hidden/uv.lock":         "",
		"sub/requirements.txt":    "",
	}
	for rel, content := range paths {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	found, err := findLockFilesBelow(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 3 {
		t.Fatalf("found %v, want 3 lock files with the hidden directory skipped", found)
	}
}
