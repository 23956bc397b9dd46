// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deplock

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/block/deplock/pep"
)

// EnvironmentSpec is the on-disk description of one target environment,
// as found in an environments file. Only Python is required; everything
// else defaults to a CPython posix target with a conventional platform
// table.
type EnvironmentSpec struct {
	Python          string   `yaml:"python"`
	Implementation  string   `yaml:"implementation"`
	OSName          string   `yaml:"os_name"`
	SysPlatform     string   `yaml:"sys_platform"`
	PlatformMachine string   `yaml:"platform_machine"`
	PlatformSystem  string   `yaml:"platform_system"`
	ABI             string   `yaml:"abi"`
	Platforms       []string `yaml:"platforms"`
}

type environmentsFile struct {
	Environments []EnvironmentSpec `yaml:"environments"`
}

// Environment materializes the spec, filling defaults.
func (s EnvironmentSpec) Environment() (*pep.Environment, error) {
	py, err := pep.ParsePythonVersion(s.Python)
	if err != nil {
		return nil, err
	}

	env := &pep.Environment{
		Python:             py,
		ImplementationName: s.Implementation,
		OSName:             s.OSName,
		SysPlatform:        s.SysPlatform,
		PlatformMachine:    s.PlatformMachine,
		PlatformSystem:     s.PlatformSystem,
		ABI:                s.ABI,
		Platforms:          s.Platforms,
	}
	if env.ImplementationName == "" {
		env.ImplementationName = "cpython"
	}
	if env.ImplementationName == "cpython" {
		env.PythonImplementation = "CPython"
	}
	if env.SysPlatform == "" {
		env.SysPlatform = "linux"
	}
	if env.PlatformMachine == "" {
		env.PlatformMachine = "x86_64"
	}
	if env.OSName == "" {
		if env.SysPlatform == "win32" {
			env.OSName = "nt"
		} else {
			env.OSName = "posix"
		}
	}
	if env.PlatformSystem == "" {
		switch env.SysPlatform {
		case "linux":
			env.PlatformSystem = "Linux"
		case "darwin":
			env.PlatformSystem = "Darwin"
		case "win32":
			env.PlatformSystem = "Windows"
		}
	}
	if len(env.Platforms) == 0 {
		env.Platforms = pep.DefaultPlatforms(env.SysPlatform, env.PlatformMachine)
	}
	return env, nil
}

// ReadEnvironmentsFile loads a YAML environments file and materializes
// every spec in it.
func ReadEnvironmentsFile(path string) ([]*pep.Environment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read environments file %s", path)
	}

	file := environmentsFile{}
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, errors.Wrapf(err, "unable to parse environments file %s", path)
	}
	if len(file.Environments) == 0 {
		return nil, errors.Errorf("environments file %s declares no environments", path)
	}

	envs := make([]*pep.Environment, 0, len(file.Environments))
	for i, spec := range file.Environments {
		env, err := spec.Environment()
		if err != nil {
			return nil, errors.Wrapf(err, "environments[%d]", i)
		}
		envs = append(envs, env)
	}
	return envs, nil
}
