// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deplock

import (
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/block/deplock/pep"
)

// PoetryLockName is the lock file name written by the poetry tool.
const PoetryLockName = "poetry.lock"

type rawPoetryLock struct {
	Packages []rawPoetryPackage `toml:"package"`
	Metadata rawPoetryMetadata  `toml:"metadata"`
}

type rawPoetryMetadata struct {
	LockVersion    string `toml:"lock-version"`
	PythonVersions string `toml:"python-versions"`
	ContentHash    string `toml:"content-hash"`
}

type rawPoetryPackage struct {
	Name           string          `toml:"name"`
	Version        string          `toml:"version"`
	Description    string          `toml:"description"`
	Optional       bool            `toml:"optional"`
	PythonVersions string          `toml:"python-versions"`
	Markers        string          `toml:"markers"`
	Files          []rawPoetryFile `toml:"files"`
}

type rawPoetryFile struct {
	File string `toml:"file"`
	Hash string `toml:"hash"`
}

// PoetryLockParser is the front end for poetry.lock. Poetry spells
// python-versions in its own constraint dialect (carets, tildes and bare
// versions); the parser desugars that into ordinary specifier sets before
// the model ever sees it.
type PoetryLockParser struct{}

// Format implements Parser.
func (PoetryLockParser) Format() string { return FormatPoetry }

// ReadPoetryLock parses a poetry.lock document from r.
func ReadPoetryLock(r io.Reader) (*LockDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read lock file stream")
	}
	return PoetryLockParser{}.Parse(data)
}

// Parse implements Parser.
func (PoetryLockParser) Parse(data []byte) (*LockDocument, error) {
	raw := rawPoetryLock{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, &SchemaValidationError{Format: FormatPoetry, Section: "document", Reason: err.Error()}
	}

	if raw.Metadata.LockVersion == "" {
		return nil, &SchemaValidationError{Format: FormatPoetry, Section: "metadata.lock-version", Reason: "required key is missing"}
	}
	if !strings.HasPrefix(raw.Metadata.LockVersion, "2.") {
		return nil, &SchemaValidationError{
			Format:  FormatPoetry,
			Section: "metadata.lock-version",
			Reason:  fmt.Sprintf("unsupported lock-version %q, this reader understands 2.x", raw.Metadata.LockVersion),
		}
	}

	packages := make([]Package, 0, len(raw.Packages))
	for i, rp := range raw.Packages {
		section := fmt.Sprintf("package[%d]", i)
		pkg, err := poetryPackage(rp, section)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}

	doc, err := NewLockDocument(FormatPoetry, packages)
	if err != nil {
		return nil, err
	}
	doc.LockVersion = raw.Metadata.LockVersion
	doc.CreatedBy = "poetry"

	if doc.RequiresPython, err = ParsePoetryConstraint(raw.Metadata.PythonVersions); err != nil {
		return nil, errors.Wrap(err, "metadata.python-versions")
	}
	return doc, nil
}

func poetryPackage(rp rawPoetryPackage, section string) (Package, error) {
	if rp.Name == "" {
		return Package{}, &SchemaValidationError{Format: FormatPoetry, Section: section, Reason: "package name is missing"}
	}
	if rp.Version == "" {
		return Package{}, &SchemaValidationError{Format: FormatPoetry, Section: section, Reason: "package version is missing"}
	}

	pkg := Package{
		Name:        NormalizeName(rp.Name),
		VersionText: rp.Version,
	}
	v, err := pep.ParseVersion(rp.Version)
	if err != nil {
		return Package{}, errors.Wrap(err, section)
	}
	pkg.Version = &v

	if rp.Markers != "" {
		if pkg.Marker, err = pep.ParseMarker(rp.Markers); err != nil {
			return Package{}, errors.Wrap(err, section)
		}
	}
	if pkg.RequiresPython, err = ParsePoetryConstraint(rp.PythonVersions); err != nil {
		return Package{}, errors.Wrap(err, section)
	}

	for j, f := range rp.Files {
		fsec := fmt.Sprintf("%s.files[%d]", section, j)
		if f.File == "" {
			return Package{}, &SchemaValidationError{Format: FormatPoetry, Section: fsec, Reason: "file name is missing"}
		}
		if f.Hash == "" {
			return Package{}, &SchemaValidationError{Format: FormatPoetry, Section: fsec, Reason: "hash is required"}
		}
		dist := Distribution{
			Name:   f.File,
			Hashes: uvHash(f.Hash),
		}
		if strings.HasSuffix(f.File, ".whl") {
			info, err := pep.ParseWheelFilename(f.File)
			if err != nil {
				return Package{}, &SchemaValidationError{Format: FormatPoetry, Section: fsec, Reason: err.Error()}
			}
			dist.Kind = KindWheel
			dist.Tags = info.Tags
			dist.Build = info.Build
			dist.BuildText = info.BuildText
		} else {
			dist.Kind = KindSdist
		}
		pkg.Distributions = append(pkg.Distributions, dist)
	}
	return pkg, nil
}

// ParsePoetryConstraint translates poetry's constraint dialect into a
// plain specifier set:
//
//	"*"      anything
//	"^3.9"   >=3.9, <4
//	"~3.9"   >=3.9, <3.10
//	"3.9.*"  ==3.9.*
//	"3.9"    ==3.9
//
// Standard operator clauses pass through untouched, and commas keep their
// conjunctive meaning.
func ParsePoetryConstraint(s string) (pep.SpecifierSet, error) {
	text := strings.TrimSpace(s)
	if text == "" || text == "*" {
		return nil, nil
	}

	var set pep.SpecifierSet
	for _, part := range strings.Split(text, ",") {
		clause := strings.TrimSpace(part)
		switch {
		case clause == "":
			return nil, &pep.SpecifierParseError{Input: s, Reason: "empty clause"}
		case clause == "*":
			continue
		case strings.HasPrefix(clause, "^"):
			lo, hi, err := caretBounds(clause[1:])
			if err != nil {
				return nil, err
			}
			set = append(set, lo, hi)
		case strings.HasPrefix(clause, "~") && !strings.HasPrefix(clause, "~="):
			lo, hi, err := tildeBounds(clause[1:])
			if err != nil {
				return nil, err
			}
			set = append(set, lo, hi)
		case strings.IndexAny(clause, "<>=!~") == 0:
			spec, err := pep.ParseSpecifier(clause)
			if err != nil {
				return nil, err
			}
			set = append(set, spec)
		default:
			// A bare version is an equality constraint; a trailing .*
			// already spells the wildcard form.
			spec, err := pep.ParseSpecifier("==" + clause)
			if err != nil {
				return nil, err
			}
			set = append(set, spec)
		}
	}
	return set, nil
}

// caretBounds desugars "^X[.Y[.Z]]" into >=X.Y.Z and <X+1.
func caretBounds(body string) (lo, hi pep.Specifier, err error) {
	v, err := pep.ParseVersion(strings.TrimSpace(body))
	if err != nil {
		return lo, hi, err
	}
	release := v.Release()
	if lo, err = pep.ParseSpecifier(">=" + v.String()); err != nil {
		return lo, hi, err
	}
	hi, err = pep.ParseSpecifier(fmt.Sprintf("<%d", release[0]+1))
	return lo, hi, err
}

// tildeBounds desugars "~X.Y[.Z]" into >=X.Y[.Z] and <X.Y+1, or <X+1
// when only a major version is given.
func tildeBounds(body string) (lo, hi pep.Specifier, err error) {
	v, err := pep.ParseVersion(strings.TrimSpace(body))
	if err != nil {
		return lo, hi, err
	}
	release := v.Release()
	if lo, err = pep.ParseSpecifier(">=" + v.String()); err != nil {
		return lo, hi, err
	}
	if len(release) == 1 {
		hi, err = pep.ParseSpecifier(fmt.Sprintf("<%d", release[0]+1))
	} else {
		hi, err = pep.ParseSpecifier(fmt.Sprintf("<%d.%d", release[0], release[1]+1))
	}
	return lo, hi, err
}
