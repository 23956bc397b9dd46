// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deplock

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadEnvironmentsFile(t *testing.T) {
	envs, err := ReadEnvironmentsFile(filepath.Join("testdata", "environments.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(envs) != 2 {
		t.Fatalf("loaded %d environments, want 2", len(envs))
	}

	linux := envs[0]
	if linux.SysPlatform != "linux" || linux.PlatformMachine != "x86_64" {
		t.Errorf("linux target = %s/%s", linux.SysPlatform, linux.PlatformMachine)
	}
	if linux.Python.MajorMinor() != "3.12" {
		t.Errorf("linux python = %s", linux.Python)
	}
	// Defaults fill in for everything the spec leaves out.
	if linux.ImplementationName != "cpython" || linux.OSName != "posix" || linux.PlatformSystem != "Linux" {
		t.Errorf("linux defaults = %s/%s/%s", linux.ImplementationName, linux.OSName, linux.PlatformSystem)
	}
	if len(linux.Platforms) == 0 {
		t.Error("linux target should get a default platform table")
	}

	mac := envs[1]
	if len(mac.Platforms) != 2 || mac.Platforms[0] != "macosx_11_0_arm64" {
		t.Errorf("explicit platform table was not honored: %v", mac.Platforms)
	}
}

func TestReadEnvironmentsFileErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	cases := []struct {
		name    string
		content string
	}{
		{"empty.yml", "environments: []"},
		{"badpython.yml", "environments:\n  - python: \"3\""},
		{"unknownkey.yml", "environments:\n  - python: \"3.12\"\n    nonsense: true"},
	}
	for _, c := range cases {
		path := write(c.name, c.content)
		if _, err := ReadEnvironmentsFile(path); err == nil {
			t.Errorf("%s should fail to load", c.name)
		}
	}

	if _, err := ReadEnvironmentsFile(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("a missing file should fail to load")
	}
}
