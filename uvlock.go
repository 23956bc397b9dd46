// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deplock

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/block/deplock/pep"
)

// UVLockName is the lock file name written by the uv tool.
const UVLockName = "uv.lock"

// supportedUVLockVersion is the uv lock schema revision this reader
// understands.
const supportedUVLockVersion = 1

type rawUVLock struct {
	Version           int            `toml:"version"`
	Revision          int            `toml:"revision"`
	RequiresPython    string         `toml:"requires-python"`
	ResolutionMarkers []string       `toml:"resolution-markers"`
	Packages          []rawUVPackage `toml:"package"`
}

type rawUVPackage struct {
	Name              string            `toml:"name"`
	Version           string            `toml:"version"`
	Source            map[string]string `toml:"source"`
	ResolutionMarkers []string          `toml:"resolution-markers"`
	Dependencies      []rawUVDependency `toml:"dependencies"`
	Sdist             *rawUVDist        `toml:"sdist"`
	Wheels            []rawUVDist       `toml:"wheels"`
}

type rawUVDependency struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Marker  string `toml:"marker"`
}

type rawUVDist struct {
	URL  string `toml:"url"`
	Path string `toml:"path"`
	Hash string `toml:"hash"`
	Size int64  `toml:"size"`
}

// UVLockParser is the front end for uv's richer, nested lock format. It
// reconciles per-package resolution markers into the same normalized
// marker representation the other formats use, so downstream components
// cannot tell the formats apart.
type UVLockParser struct{}

// Format implements Parser.
func (UVLockParser) Format() string { return FormatUV }

// ReadUVLock parses a uv.lock document from r.
func ReadUVLock(r io.Reader) (*LockDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read lock file stream")
	}
	return UVLockParser{}.Parse(data)
}

// Parse implements Parser.
func (UVLockParser) Parse(data []byte) (*LockDocument, error) {
	raw := rawUVLock{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, &SchemaValidationError{Format: FormatUV, Section: "document", Reason: err.Error()}
	}

	if raw.Version == 0 {
		return nil, &SchemaValidationError{Format: FormatUV, Section: "version", Reason: "required key is missing"}
	}
	if raw.Version != supportedUVLockVersion {
		return nil, &SchemaValidationError{
			Format:  FormatUV,
			Section: "version",
			Reason:  fmt.Sprintf("unsupported lock version %d, this reader understands %d", raw.Version, supportedUVLockVersion),
		}
	}

	packages := make([]Package, 0, len(raw.Packages))
	for i, rp := range raw.Packages {
		section := fmt.Sprintf("package[%d]", i)
		pkg, err := uvPackage(rp, section)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}

	doc, err := NewLockDocument(FormatUV, packages)
	if err != nil {
		return nil, err
	}
	doc.LockVersion = fmt.Sprintf("%d", raw.Version)
	doc.CreatedBy = "uv"

	if doc.RequiresPython, err = pep.ParseSpecifierSet(raw.RequiresPython); err != nil {
		return nil, errors.Wrap(err, "requires-python")
	}
	for _, expr := range raw.ResolutionMarkers {
		m, err := pep.ParseMarker(expr)
		if err != nil {
			return nil, errors.Wrap(err, "resolution-markers")
		}
		doc.Environments = append(doc.Environments, m)
	}
	return doc, nil
}

func uvPackage(rp rawUVPackage, section string) (Package, error) {
	if rp.Name == "" {
		return Package{}, &SchemaValidationError{Format: FormatUV, Section: section, Reason: "package name is missing"}
	}
	if len(rp.Source) == 0 {
		return Package{}, &SchemaValidationError{Format: FormatUV, Section: section, Reason: "source table is missing"}
	}

	pkg := Package{
		Name:        NormalizeName(rp.Name),
		VersionText: rp.Version,
		Index:       uvSourceURL(rp.Source),
	}
	if rp.Version != "" {
		v, err := pep.ParseVersion(rp.Version)
		if err != nil {
			return Package{}, errors.Wrap(err, section)
		}
		pkg.Version = &v
	}

	// A package resolved separately for disjoint environments carries one
	// resolution marker per split; the entry applies when any of them
	// does.
	if len(rp.ResolutionMarkers) > 0 {
		markers := make([]*pep.Marker, 0, len(rp.ResolutionMarkers))
		for _, expr := range rp.ResolutionMarkers {
			m, err := pep.ParseMarker(expr)
			if err != nil {
				return Package{}, errors.Wrap(err, section+".resolution-markers")
			}
			markers = append(markers, m)
		}
		pkg.Marker = pep.Or(markers...)
	}

	for _, d := range rp.Dependencies {
		pkg.Dependencies = append(pkg.Dependencies, Dependency{
			Name:    NormalizeName(d.Name),
			Version: d.Version,
			Marker:  d.Marker,
		})
	}

	for j, w := range rp.Wheels {
		dist, err := uvDist(w, KindWheel, fmt.Sprintf("%s.wheels[%d]", section, j))
		if err != nil {
			return Package{}, err
		}
		pkg.Distributions = append(pkg.Distributions, dist)
	}
	if rp.Sdist != nil {
		dist, err := uvDist(*rp.Sdist, KindSdist, section+".sdist")
		if err != nil {
			return Package{}, err
		}
		pkg.Distributions = append(pkg.Distributions, dist)
	}

	// Non-registry sources carry no artifact tables; surface them as the
	// matching distribution kind so the selector can still name them.
	if p, ok := rp.Source["editable"]; ok {
		pkg.Distributions = append(pkg.Distributions, Distribution{Kind: KindDirectory, Path: p})
	} else if p, ok := rp.Source["directory"]; ok {
		pkg.Distributions = append(pkg.Distributions, Distribution{Kind: KindDirectory, Path: p})
	} else if u, ok := rp.Source["git"]; ok {
		pkg.Distributions = append(pkg.Distributions, Distribution{Kind: KindVCS, URL: u})
	}

	return pkg, nil
}

// uvSourceURL flattens uv's source table the way the original tooling
// does: registry and editable are the common cases, anything else is
// taken as-is.
func uvSourceURL(source map[string]string) string {
	if u, ok := source["registry"]; ok {
		return u
	}
	if u, ok := source["editable"]; ok {
		return u
	}
	for _, u := range source {
		return u
	}
	return ""
}

func uvDist(d rawUVDist, kind DistKind, section string) (Distribution, error) {
	if d.URL == "" && d.Path == "" {
		return Distribution{}, &SchemaValidationError{Format: FormatUV, Section: section, Reason: "either url or path is required"}
	}
	if d.Hash == "" {
		return Distribution{}, &SchemaValidationError{Format: FormatUV, Section: section, Reason: "hash is required"}
	}
	dist := Distribution{
		Kind:   kind,
		URL:    d.URL,
		Path:   d.Path,
		Size:   d.Size,
		Hashes: uvHash(d.Hash),
	}
	if d.URL != "" {
		dist.Name = path.Base(d.URL)
	} else {
		dist.Name = path.Base(d.Path)
	}
	if kind == KindWheel {
		info, err := pep.ParseWheelFilename(dist.Name)
		if err != nil {
			return Distribution{}, &SchemaValidationError{Format: FormatUV, Section: section, Reason: err.Error()}
		}
		dist.Tags = info.Tags
		dist.Build = info.Build
		dist.BuildText = info.BuildText
	}
	return dist, nil
}

// uvHash splits uv's "algorithm:digest" form into the hashes table shape
// the model uses everywhere.
func uvHash(h string) map[string]string {
	algo, digest, found := strings.Cut(h, ":")
	if !found {
		return map[string]string{"sha256": h}
	}
	return map[string]string{algo: digest}
}
