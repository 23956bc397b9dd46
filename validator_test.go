// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deplock

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/block/deplock/pep"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func TestValidatorQueriesRequireValidate(t *testing.T) {
	v := NewPylockValidator(loadFixture(t, "pylock.toml"), testLogger())

	var notValidated *NotValidatedError
	if _, err := v.ValidPackagesFromLock(); !errors.As(err, &notValidated) {
		t.Errorf("ValidPackagesFromLock before Validate: %v, want *NotValidatedError", err)
	}
	if _, err := v.PreferredDistributions(nil, DefaultSelectionOptions()); !errors.As(err, &notValidated) {
		t.Errorf("PreferredDistributions before Validate: %v, want *NotValidatedError", err)
	}
	if _, err := v.Document(); !errors.As(err, &notValidated) {
		t.Errorf("Document before Validate: %v, want *NotValidatedError", err)
	}
}

func TestValidatorRequiresTargetEnvironment(t *testing.T) {
	v := NewPylockValidator(loadFixture(t, "pylock.toml"), testLogger())
	var missing *MissingEnvironmentError
	if err := v.Validate(); !errors.As(err, &missing) {
		t.Fatalf("Validate with no targets: %v, want *MissingEnvironmentError", err)
	}
}

func TestValidatorWorkflow(t *testing.T) {
	env := pep.ManylinuxX8664(pep.PythonVersion{Major: 3, Minor: 10, Micro: 12})

	v := NewPylockValidator(loadFixture(t, "pylock.toml"), testLogger())
	v.AddTargetEnvironment(env)
	if err := v.Validate(); err != nil {
		t.Fatal(err)
	}

	doc, err := v.Document()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Format != FormatPylock {
		t.Errorf("Format = %q", doc.Format)
	}

	valid, err := v.ValidPackagesFromLock()
	if err != nil {
		t.Fatal(err)
	}
	// colorama is gated behind win32 and must not survive a linux target.
	for _, p := range valid {
		if p.Name == "colorama" {
			t.Error("colorama should be filtered out on linux")
		}
	}
	if len(valid) != 3 {
		t.Errorf("valid = %v, want 3 entries", packageNames(valid))
	}

	sel, err := v.PreferredDistributions(nil, DefaultSelectionOptions())
	if err != nil {
		t.Fatal(err)
	}
	crypt, ok := sel.Preferred["cryptography"]
	if !ok {
		t.Fatal("cryptography has no selection")
	}
	if crypt.Name != "cryptography-44.0.1-cp310-cp310-manylinux_2_17_x86_64.whl" {
		t.Errorf("selected %s, want the exact cp310 wheel", crypt.Name)
	}
	// The vcs-sourced package selects its checkout under the build opt-in.
	if got := sel.Preferred["deplock-tools"]; got.Kind != KindVCS {
		t.Errorf("deplock-tools selection kind = %s, want vcs", got.Kind)
	}
	if err := sel.Err(); err != nil {
		t.Errorf("selection should have no failures: %v", err)
	}
}

func TestValidatorIncompatiblePython(t *testing.T) {
	v := NewPylockValidator(loadFixture(t, "pylock.toml"), testLogger())
	v.AddTargetEnvironment(pep.ManylinuxX8664(pep.PythonVersion{Major: 3, Minor: 8, Micro: 19}))

	err := v.Validate()
	var incompatible *IncompatibleEnvironmentError
	if !errors.As(err, &incompatible) {
		t.Fatalf("Validate on python 3.8: %v, want *IncompatibleEnvironmentError", err)
	}

	// The failed validation leaves the query surface gated.
	var notValidated *NotValidatedError
	if _, qerr := v.ValidPackagesFromLock(); !errors.As(qerr, &notValidated) {
		t.Errorf("query after failed Validate: %v, want *NotValidatedError", qerr)
	}
}

func TestValidatorSchemaErrorSurfaces(t *testing.T) {
	v := NewPylockValidator([]byte(`created-by = "uv"`), testLogger())
	v.AddTargetEnvironment(pep.ManylinuxX8664(pep.PythonVersion{Major: 3, Minor: 12, Micro: 1}))

	err := v.Validate()
	var schemaErr *SchemaValidationError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Validate on malformed input: %v, want *SchemaValidationError", err)
	}
}

func TestValidatorIsRepeatable(t *testing.T) {
	env := pep.ManylinuxX8664(pep.PythonVersion{Major: 3, Minor: 12, Micro: 1})
	v := NewUVLockValidator(loadFixture(t, "uv.lock"), testLogger())
	v.AddTargetEnvironment(env)

	if err := v.Validate(); err != nil {
		t.Fatal(err)
	}
	first, err := v.ValidPackagesFromLock()
	if err != nil {
		t.Fatal(err)
	}

	// Validate again and re-query; the answers must not drift.
	if err := v.Validate(); err != nil {
		t.Fatal(err)
	}
	again, err := v.ValidPackagesFromLock()
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(again) {
		t.Fatalf("valid set drifted: %d then %d entries", len(first), len(again))
	}
	for i := range first {
		if first[i].Name != again[i].Name || first[i].VersionText != again[i].VersionText {
			t.Errorf("entry %d drifted: %s==%s then %s==%s",
				i, first[i].Name, first[i].VersionText, again[i].Name, again[i].VersionText)
		}
	}
}

func TestValidatorUVResolutionSplit(t *testing.T) {
	// Only the numpy split whose resolution marker matches the target
	// survives validation.
	env := pep.ManylinuxX8664(pep.PythonVersion{Major: 3, Minor: 12, Micro: 1})
	v := NewUVLockValidator(loadFixture(t, "uv.lock"), testLogger())
	v.AddTargetEnvironment(env)
	if err := v.Validate(); err != nil {
		t.Fatal(err)
	}

	valid, err := v.ValidPackagesFromLock()
	if err != nil {
		t.Fatal(err)
	}
	var numpyVersions []string
	for _, p := range valid {
		if p.Name == "numpy" {
			numpyVersions = append(numpyVersions, p.VersionText)
		}
	}
	if len(numpyVersions) != 1 || numpyVersions[0] != "2.2.3" {
		t.Errorf("numpy splits surviving on 3.12 = %v, want [2.2.3]", numpyVersions)
	}
}

func TestValidatorPoetryWorkflow(t *testing.T) {
	env := pep.ManylinuxX8664(pep.PythonVersion{Major: 3, Minor: 10, Micro: 12})
	v := NewPoetryLockValidator(loadFixture(t, "poetry.lock"), testLogger())
	v.AddTargetEnvironment(env)
	if err := v.Validate(); err != nil {
		t.Fatal(err)
	}

	valid, err := v.ValidPackagesFromLock()
	if err != nil {
		t.Fatal(err)
	}
	got := packageNames(valid)
	if len(got) != 2 || got[0] != "packaging" || got[1] != "regex" {
		t.Errorf("valid = %v, want [packaging regex]", got)
	}

	sel, err := v.PreferredDistributions(nil, DefaultSelectionOptions())
	if err != nil {
		t.Fatal(err)
	}
	if err := sel.Err(); err != nil {
		t.Fatal(err)
	}
	if got := sel.Preferred["regex"].Name; got != "regex-2024.11.6-cp310-cp310-manylinux_2_17_x86_64.manylinux2014_x86_64.whl" {
		t.Errorf("regex selection = %s", got)
	}
}
