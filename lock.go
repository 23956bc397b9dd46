// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package deplock reads machine-generated Python dependency lock files,
// covering the standardized pylock.toml format plus the uv and poetry lock
// formats, and answers whether a lock file is usable for a target environment,
// which of its packages apply there, and which single artifact should be
// installed for each.
//
// It never resolves dependencies: the dependency metadata a lock entry
// carries is informational only, and nothing here mutates or re-serializes
// a document.
package deplock

import (
	"regexp"
	"strings"
	"time"

	"github.com/block/deplock/pep"
)

// Lock format identifiers, one per front end.
const (
	FormatPylock = "pylock"
	FormatUV     = "uv"
	FormatPoetry = "poetry"
)

// DistKind enumerates the artifact sources a lock entry can carry.
type DistKind int

const (
	KindWheel DistKind = iota
	KindSdist
	KindVCS
	KindDirectory
	KindArchive
)

func (k DistKind) String() string {
	switch k {
	case KindWheel:
		return "wheel"
	case KindSdist:
		return "sdist"
	case KindVCS:
		return "vcs"
	case KindDirectory:
		return "directory"
	case KindArchive:
		return "archive"
	}
	return "unknown"
}

// Distribution is one installable artifact. Wheels carry their parsed
// compatibility tags; everything else is identified by location alone.
type Distribution struct {
	Kind       DistKind
	Name       string // filename, when known
	URL        string
	Path       string
	Hashes     map[string]string
	Size       int64
	UploadTime time.Time

	// Wheel-only fields.
	Tags      []pep.Tag
	Build     int
	BuildText string
}

// Dependency is an informational pointer at another lock entry. Per the
// lock-file specifications it must never influence which packages are
// valid or which distribution is selected.
type Dependency struct {
	Name    string
	Version string
	Marker  string
}

// Package is one locked dependency. Name is always stored normalized.
type Package struct {
	Name           string
	Version        *pep.Version
	VersionText    string
	Marker         *pep.Marker
	RequiresPython pep.SpecifierSet
	Index          string
	Dependencies   []Dependency
	Distributions  []Distribution
}

// Wheels returns the package's wheel distributions in lock-file order.
func (p *Package) Wheels() []Distribution {
	var out []Distribution
	for _, d := range p.Distributions {
		if d.Kind == KindWheel {
			out = append(out, d)
		}
	}
	return out
}

// Sdist returns the package's source distribution, if any.
func (p *Package) Sdist() (Distribution, bool) {
	for _, d := range p.Distributions {
		if d.Kind == KindSdist {
			return d, true
		}
	}
	return Distribution{}, false
}

// LockDocument is the normalized, format-independent model of one parsed
// lock file. It is constructed once by a format parser and read-only from
// then on; every engine operation is a pure query over it, so concurrent
// readers need no synchronization.
type LockDocument struct {
	Format         string
	LockVersion    string
	CreatedBy      string
	RequiresPython pep.SpecifierSet
	// Environments is the optional document-level gate: markers for which
	// the whole file claims compatibility.
	Environments []*pep.Marker
	// Extras, dependency groups and defaults the lock was resolved with.
	// Informational; the standardized format records them.
	Extras           []string
	DependencyGroups []string
	DefaultGroups    []string
	// Packages preserves lock-file order, which is significant.
	Packages []Package

	index *packageTrie
}

// NewLockDocument assembles a document and indexes its packages,
// enforcing that package identity (normalized name plus version) is
// unique within the file.
func NewLockDocument(format string, packages []Package) (*LockDocument, error) {
	doc := &LockDocument{
		Format:   format,
		Packages: packages,
		index:    newPackageTrie(),
	}
	seen := make(map[string]bool, len(packages))
	for i := range doc.Packages {
		p := &doc.Packages[i]
		key := p.Name + "==" + p.VersionText
		if seen[key] {
			return nil, &SchemaValidationError{
				Format:  format,
				Section: "packages",
				Reason:  "duplicate package entry " + key,
			}
		}
		seen[key] = true
		// A file may lock the same name at several versions for disjoint
		// environments; the index keeps the first occurrence.
		if _, ok := doc.index.Get(p.Name); !ok {
			doc.index.Insert(p.Name, p)
		}
	}
	return doc, nil
}

// Package looks up a lock entry by name; the name is normalized before
// the lookup.
func (d *LockDocument) Package(name string) (*Package, bool) {
	return d.index.Get(NormalizeName(name))
}

// PackagesWithPrefix returns the names of all lock entries whose
// normalized name starts with prefix, in radix order.
func (d *LockDocument) PackagesWithPrefix(prefix string) []string {
	var names []string
	d.index.WalkPrefix(NormalizeName(prefix), func(name string, _ *Package) bool {
		names = append(names, name)
		return false
	})
	return names
}

var nameSeparators = regexp.MustCompile(`[-_.]+`)

// NormalizeName applies the standard package-name normalization: case
// folded, with runs of dash, underscore and dot collapsed to one dash.
func NormalizeName(name string) string {
	return nameSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
