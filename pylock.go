// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deplock

import (
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/block/deplock/pep"
)

// PylockName is the canonical lock file name for the standardized format;
// PylockPattern matches the named variants (pylock.<name>.toml).
const PylockName = "pylock.toml"

// supportedPylockVersion is the only lock-version this reader understands.
const supportedPylockVersion = "1.0"

type rawPylock struct {
	LockVersion      string             `toml:"lock-version"`
	Environments     []string           `toml:"environments"`
	RequiresPython   string             `toml:"requires-python"`
	Extras           []string           `toml:"extras"`
	DependencyGroups []string           `toml:"dependency-groups"`
	DefaultGroups    []string           `toml:"default-groups"`
	CreatedBy        string             `toml:"created-by"`
	Packages         []rawPylockPackage `toml:"packages"`
}

type rawPylockPackage struct {
	Name           string              `toml:"name"`
	Version        string              `toml:"version"`
	Marker         string              `toml:"marker"`
	RequiresPython string              `toml:"requires-python"`
	Index          string              `toml:"index"`
	Dependencies   []rawPylockDep      `toml:"dependencies"`
	Wheels         []rawPylockArtifact `toml:"wheels"`
	Sdist          *rawPylockArtifact  `toml:"sdist"`
	VCS            *rawPylockVCS       `toml:"vcs"`
	Directory      *rawPylockDirectory `toml:"directory"`
	Archive        *rawPylockArtifact  `toml:"archive"`
}

type rawPylockDep struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

type rawPylockArtifact struct {
	Name       string            `toml:"name"`
	URL        string            `toml:"url"`
	Path       string            `toml:"path"`
	Size       int64             `toml:"size"`
	UploadTime time.Time         `toml:"upload-time"`
	Hashes     map[string]string `toml:"hashes"`
}

type rawPylockVCS struct {
	Type              string `toml:"type"`
	URL               string `toml:"url"`
	Path              string `toml:"path"`
	RequestedRevision string `toml:"requested-revision"`
	CommitID          string `toml:"commit-id"`
	Subdirectory      string `toml:"subdirectory"`
}

type rawPylockDirectory struct {
	Path         string `toml:"path"`
	Editable     bool   `toml:"editable"`
	Subdirectory string `toml:"subdirectory"`
}

// PylockParser is the front end for the standardized pylock.toml format.
type PylockParser struct{}

// Format implements Parser.
func (PylockParser) Format() string { return FormatPylock }

// ReadPylock parses a pylock.toml document from r.
func ReadPylock(r io.Reader) (*LockDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read lock file stream")
	}
	return PylockParser{}.Parse(data)
}

// Parse implements Parser. Parsing is strict: the first schema violation
// aborts with no partial document.
func (PylockParser) Parse(data []byte) (*LockDocument, error) {
	raw := rawPylock{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, &SchemaValidationError{Format: FormatPylock, Section: "document", Reason: err.Error()}
	}

	if raw.LockVersion == "" {
		return nil, &SchemaValidationError{Format: FormatPylock, Section: "lock-version", Reason: "required key is missing"}
	}
	if raw.LockVersion != supportedPylockVersion {
		return nil, &SchemaValidationError{
			Format:  FormatPylock,
			Section: "lock-version",
			Reason:  fmt.Sprintf("unsupported lock-version %q, this reader understands %q", raw.LockVersion, supportedPylockVersion),
		}
	}
	if raw.CreatedBy == "" {
		return nil, &SchemaValidationError{Format: FormatPylock, Section: "created-by", Reason: "required key is missing"}
	}

	packages := make([]Package, 0, len(raw.Packages))
	for i, rp := range raw.Packages {
		section := fmt.Sprintf("packages[%d]", i)
		pkg, err := pylockPackage(rp, section)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}

	doc, err := NewLockDocument(FormatPylock, packages)
	if err != nil {
		return nil, err
	}
	doc.LockVersion = raw.LockVersion
	doc.CreatedBy = raw.CreatedBy
	doc.Extras = raw.Extras
	doc.DependencyGroups = raw.DependencyGroups
	doc.DefaultGroups = raw.DefaultGroups

	if doc.RequiresPython, err = pep.ParseSpecifierSet(raw.RequiresPython); err != nil {
		return nil, errors.Wrap(err, "requires-python")
	}
	for _, expr := range raw.Environments {
		m, err := pep.ParseMarker(expr)
		if err != nil {
			return nil, errors.Wrap(err, "environments")
		}
		doc.Environments = append(doc.Environments, m)
	}
	return doc, nil
}

func pylockPackage(rp rawPylockPackage, section string) (Package, error) {
	if rp.Name == "" {
		return Package{}, &SchemaValidationError{Format: FormatPylock, Section: section, Reason: "package name is missing"}
	}
	if err := checkSourceExclusivity(rp, section); err != nil {
		return Package{}, err
	}

	pkg := Package{
		Name:        NormalizeName(rp.Name),
		VersionText: rp.Version,
		Index:       rp.Index,
	}
	var err error
	if rp.Version != "" {
		v, err := pep.ParseVersion(rp.Version)
		if err != nil {
			return Package{}, errors.Wrap(err, section)
		}
		pkg.Version = &v
	}
	if rp.Marker != "" {
		if pkg.Marker, err = pep.ParseMarker(rp.Marker); err != nil {
			return Package{}, errors.Wrap(err, section)
		}
	}
	if pkg.RequiresPython, err = pep.ParseSpecifierSet(rp.RequiresPython); err != nil {
		return Package{}, errors.Wrap(err, section)
	}
	for _, d := range rp.Dependencies {
		pkg.Dependencies = append(pkg.Dependencies, Dependency{Name: NormalizeName(d.Name), Version: d.Version})
	}

	for j, w := range rp.Wheels {
		dist, err := pylockArtifact(w, KindWheel, fmt.Sprintf("%s.wheels[%d]", section, j))
		if err != nil {
			return Package{}, err
		}
		pkg.Distributions = append(pkg.Distributions, dist)
	}
	if rp.Sdist != nil {
		dist, err := pylockArtifact(*rp.Sdist, KindSdist, section+".sdist")
		if err != nil {
			return Package{}, err
		}
		pkg.Distributions = append(pkg.Distributions, dist)
	}
	if rp.Archive != nil {
		dist, err := pylockArtifact(*rp.Archive, KindArchive, section+".archive")
		if err != nil {
			return Package{}, err
		}
		pkg.Distributions = append(pkg.Distributions, dist)
	}
	if rp.VCS != nil {
		if rp.VCS.CommitID == "" {
			return Package{}, &SchemaValidationError{Format: FormatPylock, Section: section + ".vcs", Reason: "commit-id is required"}
		}
		if rp.VCS.URL == "" && rp.VCS.Path == "" {
			return Package{}, &SchemaValidationError{Format: FormatPylock, Section: section + ".vcs", Reason: "either url or path is required"}
		}
		pkg.Distributions = append(pkg.Distributions, Distribution{
			Kind: KindVCS,
			URL:  rp.VCS.URL,
			Path: rp.VCS.Path,
		})
	}
	if rp.Directory != nil {
		if rp.Directory.Path == "" {
			return Package{}, &SchemaValidationError{Format: FormatPylock, Section: section + ".directory", Reason: "path is required"}
		}
		pkg.Distributions = append(pkg.Distributions, Distribution{
			Kind: KindDirectory,
			Path: rp.Directory.Path,
		})
	}
	return pkg, nil
}

// checkSourceExclusivity enforces the format's mutual-exclusion rules:
// vcs, directory and archive sources each stand alone, while sdist and
// wheels may coexist with each other only.
func checkSourceExclusivity(rp rawPylockPackage, section string) error {
	var sources []string
	if rp.VCS != nil {
		sources = append(sources, "vcs")
	}
	if rp.Directory != nil {
		sources = append(sources, "directory")
	}
	if rp.Archive != nil {
		sources = append(sources, "archive")
	}
	exclusive := len(sources)
	if rp.Sdist != nil {
		sources = append(sources, "sdist")
	}
	if len(rp.Wheels) > 0 {
		sources = append(sources, "wheels")
	}
	if exclusive > 1 || (exclusive == 1 && len(sources) > 1) {
		return &SchemaValidationError{
			Format:  FormatPylock,
			Section: section,
			Reason:  "mutually exclusive package source types: " + strings.Join(sources, ", "),
		}
	}
	return nil
}

func pylockArtifact(a rawPylockArtifact, kind DistKind, section string) (Distribution, error) {
	if a.URL == "" && a.Path == "" {
		return Distribution{}, &SchemaValidationError{Format: FormatPylock, Section: section, Reason: "either url or path is required"}
	}
	if len(a.Hashes) == 0 {
		return Distribution{}, &SchemaValidationError{Format: FormatPylock, Section: section, Reason: "hashes table must contain at least one entry"}
	}
	dist := Distribution{
		Kind:       kind,
		Name:       a.Name,
		URL:        a.URL,
		Path:       a.Path,
		Size:       a.Size,
		UploadTime: a.UploadTime,
		Hashes:     a.Hashes,
	}
	if dist.Name == "" {
		if a.URL != "" {
			dist.Name = path.Base(a.URL)
		} else {
			dist.Name = path.Base(a.Path)
		}
	}
	if kind == KindWheel {
		info, err := pep.ParseWheelFilename(dist.Name)
		if err != nil {
			return Distribution{}, &SchemaValidationError{Format: FormatPylock, Section: section, Reason: err.Error()}
		}
		dist.Tags = info.Tags
		dist.Build = info.Build
		dist.BuildText = info.BuildText
	}
	return dist, nil
}
