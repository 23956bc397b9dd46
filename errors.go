// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deplock

import (
	"bytes"
	"fmt"
)

// SchemaValidationError reports a structural problem in a lock file:
// a missing required key, a mistyped field, or an unsupported layout.
// Parsing stops at the first one; no partial document is returned.
type SchemaValidationError struct {
	Format  string // which front end was parsing
	Section string // offending table or key, e.g. "packages[3].wheels[0]"
	Reason  string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%s schema violation at %s: %s", e.Format, e.Section, e.Reason)
}

// IncompatibleEnvironmentError reports that the lock file's declared
// requires-python (or environment gate) rejects a target environment. The
// whole validation fails; there is no partial answer.
type IncompatibleEnvironmentError struct {
	RequiresPython string
	Environment    string
}

func (e *IncompatibleEnvironmentError) Error() string {
	return fmt.Sprintf("lock file requires python %q, which rejects target environment %s", e.RequiresPython, e.Environment)
}

// NoValidDistributionError reports that a single package has no
// installable artifact for the target environment. Selection for sibling
// packages continues; the orchestrator collects these.
type NoValidDistributionError struct {
	Package string
	Version string
}

func (e *NoValidDistributionError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("no distribution of %s is compatible with the target environment", e.Package)
	}
	return fmt.Sprintf("no distribution of %s==%s is compatible with the target environment", e.Package, e.Version)
}

// NotValidatedError reports a query issued before a successful Validate
// call. This is a programmer error, not a property of the lock file.
type NotValidatedError struct{}

func (e *NotValidatedError) Error() string {
	return "lock file has not been validated against the target environments"
}

// MissingEnvironmentError reports a Validate call with no target
// environments configured.
type MissingEnvironmentError struct{}

func (e *MissingEnvironmentError) Error() string {
	return "no target environment specification has been added"
}

// SelectionReport aggregates the per-package failures from one selection
// pass so one incompatible package does not hide the rest.
type SelectionReport struct {
	Failures []*NoValidDistributionError
}

func (e *SelectionReport) Error() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d package(s) have no compatible distribution:", len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&buf, "\n\t%s", f.Error())
	}
	return buf.String()
}
