// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pep implements the pieces of the Python packaging standards that
// a lock-file reader needs: PEP 440 versions and specifiers, PEP 508
// environment markers, wheel filename tags, and the environment
// description they are all evaluated against.
//
// Everything in this package is a pure computation over immutable values.
// Nothing here touches the network or the filesystem.
package pep

import (
	"regexp"
	"strconv"
	"strings"
)

// versionPattern is the PEP 440 version grammar as a single anchored
// expression. Input is lowercased and trimmed before matching, so the
// pattern itself only deals with lowercase text.
var versionPattern = regexp.MustCompile(`^v?` +
	`(?:([0-9]+)!)?` + // epoch
	`([0-9]+(?:\.[0-9]+)*)` + // release
	`(?:[-_.]?(a|b|c|rc|alpha|beta|pre|preview)[-_.]?([0-9]*))?` + // pre-release
	`(?:(?:-([0-9]+))|(?:[-_.]?(post|rev|r)[-_.]?([0-9]*)))?` + // post-release
	`(?:[-_.]?(dev)[-_.]?([0-9]*))?` + // dev-release
	`(?:\+([a-z0-9]+(?:[-_.][a-z0-9]+)*))?` + // local label
	`$`)

type preRelease struct {
	phase string // normalized to "a", "b" or "rc"
	num   int
}

type localSegment struct {
	num     int
	str     string
	numeric bool
}

// Version is a parsed PEP 440 version. The zero value is not meaningful;
// construct one with ParseVersion.
type Version struct {
	epoch    int
	release  []int
	pre      *preRelease
	post     int // -1 when absent
	dev      int // -1 when absent
	local    []localSegment
	original string
}

// ParseVersion parses s according to the PEP 440 grammar, normalizing
// separator and spelling variants (alpha -> a, rev -> post, and so on).
func ParseVersion(s string) (Version, error) {
	text := strings.TrimSpace(s)
	m := versionPattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return Version{}, &VersionParseError{Input: s, Reason: "does not match the version grammar"}
	}

	v := Version{post: -1, dev: -1, original: text}

	var err error
	if m[1] != "" {
		if v.epoch, err = strconv.Atoi(m[1]); err != nil {
			return Version{}, &VersionParseError{Input: s, Reason: "epoch out of range"}
		}
	}
	for _, seg := range strings.Split(m[2], ".") {
		n, err := strconv.Atoi(seg)
		if err != nil {
			return Version{}, &VersionParseError{Input: s, Reason: "release segment out of range"}
		}
		v.release = append(v.release, n)
	}
	if m[3] != "" {
		v.pre = &preRelease{phase: normalizePhase(m[3]), num: impliedZero(m[4])}
	}
	if m[5] != "" {
		v.post = impliedZero(m[5])
	} else if m[6] != "" {
		v.post = impliedZero(m[7])
	}
	if m[8] != "" {
		v.dev = impliedZero(m[9])
	}
	if m[10] != "" {
		v.local = parseLocal(m[10])
	}
	return v, nil
}

// MustParseVersion is ParseVersion for statically known inputs, mostly
// tests and prebuilt environments.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func normalizePhase(phase string) string {
	switch phase {
	case "alpha":
		return "a"
	case "beta":
		return "b"
	case "c", "pre", "preview":
		return "rc"
	}
	return phase
}

// impliedZero reads a possibly empty number; PEP 440 treats a bare
// "1.0.post" as post0.
func impliedZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseLocal(s string) []localSegment {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})
	segs := make([]localSegment, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(p); err == nil {
			segs = append(segs, localSegment{num: n, numeric: true})
		} else {
			segs = append(segs, localSegment{str: p})
		}
	}
	return segs
}

// Original returns the version text as given to ParseVersion, trimmed.
// It is the input to arbitrary (===) equality.
func (v Version) Original() string { return v.original }

// Epoch returns the version epoch, 0 unless explicitly set.
func (v Version) Epoch() int { return v.epoch }

// Release returns a copy of the release segments.
func (v Version) Release() []int {
	out := make([]int, len(v.release))
	copy(out, v.release)
	return out
}

// IsPreRelease reports whether the version carries a pre-release or
// dev-release segment.
func (v Version) IsPreRelease() bool { return v.pre != nil || v.dev >= 0 }

// HasLocal reports whether the version carries a local label.
func (v Version) HasLocal() bool { return len(v.local) > 0 }

// String renders the normalized form of the version.
func (v Version) String() string {
	var b strings.Builder
	if v.epoch != 0 {
		b.WriteString(strconv.Itoa(v.epoch))
		b.WriteByte('!')
	}
	for i, seg := range v.release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(seg))
	}
	if v.pre != nil {
		b.WriteString(v.pre.phase)
		b.WriteString(strconv.Itoa(v.pre.num))
	}
	if v.post >= 0 {
		b.WriteString(".post")
		b.WriteString(strconv.Itoa(v.post))
	}
	if v.dev >= 0 {
		b.WriteString(".dev")
		b.WriteString(strconv.Itoa(v.dev))
	}
	if len(v.local) > 0 {
		b.WriteByte('+')
		for i, seg := range v.local {
			if i > 0 {
				b.WriteByte('.')
			}
			if seg.numeric {
				b.WriteString(strconv.Itoa(seg.num))
			} else {
				b.WriteString(seg.str)
			}
		}
	}
	return b.String()
}

// Sentinels for the ordering keys. A dev-only version sorts before every
// pre-release of the same release; a version with no pre-release sorts
// after all of them.
const (
	keyMin = -1 << 62
	keyMax = 1<<62 - 1
)

// Compare returns -1, 0 or 1 ordering v against o per PEP 440. The local
// label is the final tie-break.
func (v Version) Compare(o Version) int {
	if v.epoch != o.epoch {
		return compareInt(v.epoch, o.epoch)
	}
	if c := compareRelease(v.release, o.release); c != 0 {
		return c
	}
	vp, vn := v.preKey()
	op, on := o.preKey()
	if vp != op {
		return compareInt(vp, op)
	}
	if vn != on {
		return compareInt(vn, on)
	}
	if v.post != o.post {
		return compareInt(v.post, o.post)
	}
	vd, od := v.dev, o.dev
	if vd < 0 {
		vd = keyMax
	}
	if od < 0 {
		od = keyMax
	}
	if vd != od {
		return compareInt(vd, od)
	}
	return compareLocal(v.local, o.local)
}

// Equal reports full equality, local label included.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// preKey flattens the pre-release segment into two ordering keys. A
// version with neither pre nor post but a dev segment is ordered before
// any pre-release of the same release.
func (v Version) preKey() (phase, num int) {
	if v.pre == nil {
		if v.post < 0 && v.dev >= 0 {
			return keyMin, 0
		}
		return keyMax, 0
	}
	switch v.pre.phase {
	case "a":
		phase = 0
	case "b":
		phase = 1
	default: // "rc"
		phase = 2
	}
	return phase, v.pre.num
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareRelease zero-pads the shorter tuple before comparing.
func compareRelease(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			return compareInt(av, bv)
		}
	}
	return 0
}

// compareLocal orders local labels segment by segment: numeric segments
// compare numerically and sort after string segments; a missing label
// sorts before any label.
func compareLocal(a, b []localSegment) int {
	if len(a) == 0 || len(b) == 0 {
		return compareInt(len(a), len(b))
	}
	for i := 0; i < len(a) && i < len(b); i++ {
		as, bs := a[i], b[i]
		switch {
		case as.numeric && bs.numeric:
			if as.num != bs.num {
				return compareInt(as.num, bs.num)
			}
		case as.numeric:
			return 1
		case bs.numeric:
			return -1
		default:
			if as.str != bs.str {
				if as.str < bs.str {
					return -1
				}
				return 1
			}
		}
	}
	return compareInt(len(a), len(b))
}
