// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deplock

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/block/deplock/pep"
)

// Parser is one lock-format front end. All front ends emit the same
// normalized LockDocument, which keeps everything downstream
// format-agnostic.
type Parser interface {
	Format() string
	Parse(data []byte) (*LockDocument, error)
}

// Validator gates the query surface behind a validation pass: parse,
// check requires-python against every target, filter packages by marker.
// Queries before a successful Validate fail with *NotValidatedError.
//
// A Validator accumulates state (targets, the parsed document, the valid
// set) and is not safe for concurrent mutation; share the parsed
// LockDocument across goroutines instead, it is read-only.
type Validator struct {
	parser Parser
	data   []byte
	logger *logrus.Logger

	envs      []*pep.Environment
	doc       *LockDocument
	valid     []Package
	validated bool
}

// NewValidator builds a Validator over any front end. A nil logger
// discards debug output.
func NewValidator(parser Parser, data []byte, logger *logrus.Logger) *Validator {
	if logger == nil {
		logger = logrus.New()
		logger.Out = io.Discard
	}
	return &Validator{parser: parser, data: data, logger: logger}
}

// NewPylockValidator is the standardized-format configuration.
func NewPylockValidator(data []byte, logger *logrus.Logger) *Validator {
	return NewValidator(PylockParser{}, data, logger)
}

// NewUVLockValidator is the uv.lock configuration.
func NewUVLockValidator(data []byte, logger *logrus.Logger) *Validator {
	return NewValidator(UVLockParser{}, data, logger)
}

// NewPoetryLockValidator is the poetry.lock configuration.
func NewPoetryLockValidator(data []byte, logger *logrus.Logger) *Validator {
	return NewValidator(PoetryLockParser{}, data, logger)
}

// AddTargetEnvironment registers one more target environment. Pure
// configuration, no I/O; call before Validate.
func (v *Validator) AddTargetEnvironment(env *pep.Environment) {
	v.envs = append(v.envs, env)
	v.validated = false
}

// Validate parses the lock data and checks it against every registered
// target environment. It is idempotent: repeated calls with the same
// inputs produce the same outcome.
func (v *Validator) Validate() error {
	v.validated = false
	if len(v.envs) == 0 {
		return &MissingEnvironmentError{}
	}

	doc, err := v.parser.Parse(v.data)
	if err != nil {
		return err
	}
	v.logger.WithFields(logrus.Fields{
		"format":   doc.Format,
		"packages": len(doc.Packages),
	}).Debug("parsed lock document")

	valid, err := ValidPackages(doc, v.envs)
	if err != nil {
		return err
	}
	v.logger.WithField("valid", len(valid)).Debug("marker filter pass complete")

	v.doc = doc
	v.valid = valid
	v.validated = true
	return nil
}

// Document returns the parsed lock document after a successful Validate.
func (v *Validator) Document() (*LockDocument, error) {
	if !v.validated {
		return nil, &NotValidatedError{}
	}
	return v.doc, nil
}

// ValidPackagesFromLock returns the packages applying to every target
// environment, in lock-file order. Repeated calls return identical
// results.
func (v *Validator) ValidPackagesFromLock() ([]Package, error) {
	if !v.validated {
		return nil, &NotValidatedError{}
	}
	out := make([]Package, len(v.valid))
	copy(out, v.valid)
	return out, nil
}

// PreferredDistributions selects one artifact per valid package for env.
// A nil env means the first registered target. Per-package failures are
// collected in the returned Selection rather than aborting the call.
func (v *Validator) PreferredDistributions(env *pep.Environment, opts SelectionOptions) (*Selection, error) {
	if !v.validated {
		return nil, &NotValidatedError{}
	}
	if env == nil {
		env = v.envs[0]
	}
	sel := PreferredDistributions(v.valid, env, opts)
	for _, f := range sel.Failures {
		v.logger.WithFields(logrus.Fields{
			"package": f.Package,
			"version": f.Version,
		}).Debug("no compatible distribution")
	}
	return sel, nil
}
