// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deplock

import (
	"github.com/pkg/errors"

	"github.com/block/deplock/pep"
)

// ValidPackages computes the subset of doc's packages that apply to every
// supplied target environment, preserving lock-file order. Multi-target
// semantics are conjunctive: a package gated behind sys_platform ==
// "linux" is excluded as soon as one target is darwin.
//
// The document's requires-python is checked first; an environment it
// rejects fails the whole call with *IncompatibleEnvironmentError, since
// a lock file that declares itself unusable for a target cannot yield a
// partial answer.
//
// This is a pure read; doc is never mutated.
func ValidPackages(doc *LockDocument, envs []*pep.Environment) ([]Package, error) {
	if len(envs) == 0 {
		return nil, &MissingEnvironmentError{}
	}

	for _, env := range envs {
		if err := checkRequiresPython(doc.RequiresPython, env); err != nil {
			return nil, err
		}
		// The optional document-level gate: when environment markers are
		// declared, at least one must admit each target.
		if len(doc.Environments) > 0 {
			admitted := false
			for _, m := range doc.Environments {
				ok, err := m.Evaluate(env)
				if err != nil {
					return nil, errors.Wrap(err, "document environments")
				}
				if ok {
					admitted = true
					break
				}
			}
			if !admitted {
				return nil, &IncompatibleEnvironmentError{
					RequiresPython: doc.RequiresPython.String(),
					Environment:    env.String(),
				}
			}
		}
	}

	var valid []Package
	for _, pkg := range doc.Packages {
		applies, err := packageApplies(&pkg, envs)
		if err != nil {
			return nil, errors.Wrapf(err, "package %s", pkg.Name)
		}
		if applies {
			valid = append(valid, pkg)
		}
	}
	return valid, nil
}

// packageApplies reports whether pkg's marker and requires-python admit
// every target environment. No marker means the package always applies.
func packageApplies(pkg *Package, envs []*pep.Environment) (bool, error) {
	for _, env := range envs {
		if pkg.Marker != nil {
			ok, err := pkg.Marker.Evaluate(env)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		if len(pkg.RequiresPython) > 0 {
			v, err := pep.ParseVersion(env.Python.Full())
			if err != nil {
				return false, err
			}
			if !pkg.RequiresPython.Matches(v) {
				return false, nil
			}
		}
	}
	return true, nil
}

// checkRequiresPython tests the document-level python gate against one
// environment.
func checkRequiresPython(set pep.SpecifierSet, env *pep.Environment) error {
	if len(set) == 0 {
		return nil
	}
	v, err := pep.ParseVersion(env.Python.Full())
	if err != nil {
		return errors.Wrap(err, "target environment python version")
	}
	if !set.Matches(v) {
		return &IncompatibleEnvironmentError{
			RequiresPython: set.String(),
			Environment:    env.String(),
		}
	}
	return nil
}
