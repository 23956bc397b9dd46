// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deplock

import (
	"github.com/block/deplock/pep"
)

// SelectionOptions tune distribution selection.
type SelectionOptions struct {
	// AllowSdist permits falling back to a distribution that needs a
	// build step (sdist, vcs, directory or archive source) when no wheel
	// fits the environment.
	AllowSdist bool
}

// DefaultSelectionOptions allow the sdist fallback.
func DefaultSelectionOptions() SelectionOptions {
	return SelectionOptions{AllowSdist: true}
}

// Selection is the outcome of one selection pass. Preferred is keyed by
// normalized package name; Order preserves the input package order.
// Failures holds the packages with no eligible artifact; a failure never
// hides sibling packages' selections.
type Selection struct {
	Preferred map[string]Distribution
	Order     []string
	Failures  []*NoValidDistributionError
}

// Err returns the aggregated failure report, or nil when every package
// selected an artifact.
func (s *Selection) Err() error {
	if len(s.Failures) == 0 {
		return nil
	}
	return &SelectionReport{Failures: s.Failures}
}

// PreferredDistributions picks one artifact per package for env.
//
// Wheels are ranked by the lowest index any of their tags holds in the
// environment's supported-tag list, which encodes the required
// preference order: exact platform+ABI+python first, portable platform
// aliases with exact ABI next, remaining compatible wheels after that.
// The sdist, when permitted, is the final fallback. Ties are broken by
// the highest numeric build tag and then by lexicographically smallest
// filename, so the same input always yields the same selection.
func PreferredDistributions(packages []Package, env *pep.Environment, opts SelectionOptions) *Selection {
	rank := env.TagRank()
	sel := &Selection{Preferred: make(map[string]Distribution, len(packages))}

	for i := range packages {
		pkg := &packages[i]
		sel.Order = append(sel.Order, pkg.Name)
		if dist, ok := preferredFor(pkg, rank, opts); ok {
			sel.Preferred[pkg.Name] = dist
		} else {
			sel.Failures = append(sel.Failures, &NoValidDistributionError{
				Package: pkg.Name,
				Version: pkg.VersionText,
			})
		}
	}
	return sel
}

func preferredFor(pkg *Package, rank map[pep.Tag]int, opts SelectionOptions) (Distribution, bool) {
	var (
		best     Distribution
		bestRank = -1
	)
	for _, dist := range pkg.Distributions {
		if dist.Kind != KindWheel {
			continue
		}
		r, ok := wheelRank(dist, rank)
		if !ok {
			continue
		}
		if bestRank < 0 || r < bestRank || (r == bestRank && tieBreak(dist, best)) {
			best = dist
			bestRank = r
		}
	}
	if bestRank >= 0 {
		return best, true
	}
	if opts.AllowSdist {
		// Anything that is not a wheel needs a build step: sdists, vcs
		// checkouts, local directories and archives all fall under the
		// same opt-in.
		for _, dist := range pkg.Distributions {
			if dist.Kind != KindWheel {
				return dist, true
			}
		}
	}
	return Distribution{}, false
}

// wheelRank is the lowest supported-tag index across the wheel's tag set.
func wheelRank(dist Distribution, rank map[pep.Tag]int) (int, bool) {
	min, found := 0, false
	for _, t := range dist.Tags {
		if r, ok := rank[t]; ok && (!found || r < min) {
			min = r
			found = true
		}
	}
	return min, found
}

// tieBreak reports whether a should replace b at equal rank: higher
// build number wins, then the smaller filename.
func tieBreak(a, b Distribution) bool {
	if a.Build != b.Build {
		return a.Build > b.Build
	}
	return a.Name < b.Name
}
