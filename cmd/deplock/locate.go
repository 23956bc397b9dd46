// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"github.com/block/deplock"
)

// lockFileNames are the filenames probed during discovery, in preference
// order.
var lockFileNames = []string{
	deplock.PylockName,
	deplock.UVLockName,
	deplock.PoetryLockName,
}

// parserForFile picks the front end for a lock file from its name.
func parserForFile(path string) (deplock.Parser, error) {
	switch name := filepath.Base(path); {
	case name == deplock.PylockName:
		return deplock.PylockParser{}, nil
	case strings.HasPrefix(name, "pylock.") && strings.HasSuffix(name, ".toml"):
		// The named variant, pylock.<name>.toml.
		return deplock.PylockParser{}, nil
	case name == deplock.UVLockName:
		return deplock.UVLockParser{}, nil
	case name == deplock.PoetryLockName:
		return deplock.PoetryLockParser{}, nil
	}
	return nil, errors.Errorf("%s is not a recognized lock file name", path)
}

// findLockFile probes wd and then each of its ancestors for a lock file,
// returning the first hit.
func findLockFile(wd string) (string, error) {
	dir := wd
	for {
		for _, name := range lockFileNames {
			path := filepath.Join(dir, name)
			if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
				return path, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.Errorf("no lock file found in %s or any parent directory", wd)
		}
		dir = parent
	}
}

// findLockFilesBelow walks the tree under dir and collects every lock
// file, including named pylock variants. Hidden directories and common
// dependency directories are skipped.
func findLockFilesBelow(dir string) ([]string, error) {
	var found []string
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			name := de.Name()
			if de.IsDir() {
				if path != dir && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "__pycache__") {
					return filepath.SkipDir
				}
				return nil
			}
			if _, err := parserForFile(name); err == nil {
				found = append(found, path)
			}
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to walk %s", dir)
	}
	sort.Strings(found)
	return found, nil
}
