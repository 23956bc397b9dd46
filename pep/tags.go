// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pep

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag is one wheel compatibility triple.
type Tag struct {
	Interpreter string
	ABI         string
	Platform    string
}

func (t Tag) String() string {
	return t.Interpreter + "-" + t.ABI + "-" + t.Platform
}

// WheelInfo is the decomposition of a wheel filename per the binary
// distribution format:
//
//	{name}-{version}[-{build}]-{python}-{abi}-{platform}.whl
//
// Compressed tag fields (dot-separated alternatives) are expanded into the
// Tags cross product.
type WheelInfo struct {
	Name      string
	Version   string
	BuildText string
	Build     int // numeric prefix of the build tag, 0 when absent
	Tags      []Tag
}

// ParseWheelFilename decomposes a wheel filename. The error is a
// *VersionParseError when the embedded version is malformed, otherwise a
// plain error describing the structural problem.
func ParseWheelFilename(filename string) (*WheelInfo, error) {
	base, ok := strings.CutSuffix(filename, ".whl")
	if !ok {
		return nil, fmt.Errorf("wheel filename %q does not end in .whl", filename)
	}
	parts := strings.Split(base, "-")
	if len(parts) != 5 && len(parts) != 6 {
		return nil, fmt.Errorf("wheel filename %q does not have the name-version[-build]-python-abi-platform form", filename)
	}

	info := &WheelInfo{
		Name:    parts[0],
		Version: parts[1],
	}
	tagStart := 2
	if len(parts) == 6 {
		info.BuildText = parts[2]
		info.Build = buildNumber(parts[2])
		tagStart = 3
	}

	if _, err := ParseVersion(info.Version); err != nil {
		return nil, err
	}

	for _, py := range strings.Split(parts[tagStart], ".") {
		for _, abi := range strings.Split(parts[tagStart+1], ".") {
			for _, plat := range strings.Split(parts[tagStart+2], ".") {
				info.Tags = append(info.Tags, Tag{Interpreter: py, ABI: abi, Platform: plat})
			}
		}
	}
	return info, nil
}

// buildNumber extracts the leading digits of a build tag; "12linux" -> 12.
func buildNumber(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0
	}
	return n
}

// SupportedTags computes the tags this environment can install, ordered
// most preferred first. A wheel's rank is the lowest index of any of its
// tags in this list; lower ranks win during distribution selection.
//
// The order mirrors packaging.tags: interpreter-and-ABI exact tags over
// every platform (exact platform first, portable aliases after, "any"
// last), then abi3 tags back through older interpreters, then pure-python
// tags.
func (e *Environment) SupportedTags() []Tag {
	impl := e.Implementation()
	interp := fmt.Sprintf("%s%d%d", impl, e.Python.Major, e.Python.Minor)
	platforms := append(append([]string{}, e.Platforms...), "any")

	var tags []Tag
	add := func(interpreter, abi string) {
		for _, p := range platforms {
			tags = append(tags, Tag{Interpreter: interpreter, ABI: abi, Platform: p})
		}
	}

	add(interp, e.abiTag())
	if impl == "cp" {
		add(interp, "abi3")
	}
	add(interp, "none")
	if impl == "cp" {
		// Wheels built against the stable ABI of an older CPython still
		// load on this one.
		for minor := e.Python.Minor - 1; minor >= 2; minor-- {
			add(fmt.Sprintf("cp%d%d", e.Python.Major, minor), "abi3")
		}
	}

	// Pure-python compatible tags.
	add(fmt.Sprintf("py%d%d", e.Python.Major, e.Python.Minor), "none")
	add(fmt.Sprintf("py%d", e.Python.Major), "none")
	for minor := e.Python.Minor - 1; minor >= 0; minor-- {
		add(fmt.Sprintf("py%d%d", e.Python.Major, minor), "none")
	}
	return tags
}

// TagRank maps each supported tag to its priority index, for repeated
// lookups during selection.
func (e *Environment) TagRank() map[Tag]int {
	tags := e.SupportedTags()
	rank := make(map[Tag]int, len(tags))
	for i, t := range tags {
		if _, seen := rank[t]; !seen {
			rank[t] = i
		}
	}
	return rank
}
