// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/block/deplock"
	"github.com/block/deplock/pep"
)

const checkShortHelp = `Validate a lock file against target environments`
const checkLongHelp = `
Check parses a lock file (pylock.toml, uv.lock or poetry.lock, recognized
by filename), verifies that its requires-python and environment markers
admit every target environment, and reports the packages that apply
together with the artifact that would be installed for each.

With no lock file argument the working directory and its ancestors are
searched for one. Targets come from -python/-platform/-machine flags or,
for multi-environment checks, from a YAML environments file.

Failed validation and unsatisfiable packages exit non-zero.
`

// targetFlags are the environment-selection flags shared by the
// lock-reading commands.
type targetFlags struct {
	python   string
	platform string
	machine  string
	envFile  string
}

func (tf *targetFlags) Register(fs *flag.FlagSet) {
	fs.StringVar(&tf.python, "python", "3.12", "target python version, e.g. 3.11 or 3.11.4")
	fs.StringVar(&tf.platform, "platform", "", "target sys_platform (linux, darwin or win32); defaults to this machine")
	fs.StringVar(&tf.machine, "machine", "", "target machine, e.g. x86_64 or aarch64")
	fs.StringVar(&tf.envFile, "envs", "", "YAML file declaring the target environments")
}

func (tf *targetFlags) environments() ([]*pep.Environment, error) {
	if tf.envFile != "" {
		return deplock.ReadEnvironmentsFile(tf.envFile)
	}
	py, err := pep.ParsePythonVersion(tf.python)
	if err != nil {
		return nil, err
	}
	if tf.platform == "" && tf.machine == "" {
		return []*pep.Environment{pep.HostEnvironment(py)}, nil
	}
	spec := deplock.EnvironmentSpec{
		Python:          tf.python,
		SysPlatform:     tf.platform,
		PlatformMachine: tf.machine,
	}
	env, err := spec.Environment()
	if err != nil {
		return nil, err
	}
	return []*pep.Environment{env}, nil
}

// validatorFor resolves the lock file named by args (or discovered from
// the working directory) and builds a validator over it.
func validatorFor(ctx *deplock.Ctx, args []string) (*deplock.Validator, string, error) {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		var err error
		if path, err = findLockFile(ctx.WorkingDir); err != nil {
			return nil, "", err
		}
	}

	parser, err := parserForFile(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "unable to read %s", path)
	}
	return deplock.NewValidator(parser, data, ctx.Logger()), path, nil
}

type checkCommand struct {
	targetFlags
	noSdist   bool
	recursive bool
}

func (cmd *checkCommand) Name() string      { return "check" }
func (cmd *checkCommand) Args() string      { return "[lockfile]" }
func (cmd *checkCommand) ShortHelp() string { return checkShortHelp }
func (cmd *checkCommand) LongHelp() string  { return checkLongHelp }
func (cmd *checkCommand) Hidden() bool      { return false }

func (cmd *checkCommand) Register(fs *flag.FlagSet) {
	cmd.targetFlags.Register(fs)
	fs.BoolVar(&cmd.noSdist, "no-sdist", false, "require a wheel; never fall back to source distributions")
	fs.BoolVar(&cmd.recursive, "r", false, "check every lock file under the working directory")
}

func (cmd *checkCommand) Run(ctx *deplock.Ctx, args []string) error {
	envs, err := cmd.environments()
	if err != nil {
		return err
	}

	if cmd.recursive {
		paths, err := findLockFilesBelow(ctx.WorkingDir)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return errors.Errorf("no lock files found under %s", ctx.WorkingDir)
		}
		var failed int
		for _, path := range paths {
			if err := cmd.checkOne(ctx, path, envs); err != nil {
				ctx.Err.Printf("%s: %v\n", path, err)
				failed++
			} else {
				ctx.Out.Printf("%s: ok\n", path)
			}
		}
		if failed > 0 {
			return errors.Errorf("%d of %d lock files failed validation", failed, len(paths))
		}
		return nil
	}

	v, path, err := validatorFor(ctx, args)
	if err != nil {
		return err
	}
	for _, env := range envs {
		v.AddTargetEnvironment(env)
	}
	if err := v.Validate(); err != nil {
		return errors.Wrapf(err, "%s failed validation", path)
	}

	valid, err := v.ValidPackagesFromLock()
	if err != nil {
		return err
	}
	sel, err := v.PreferredDistributions(nil, deplock.SelectionOptions{AllowSdist: !cmd.noSdist})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(ctx.Out.Writer(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tVERSION\tKIND\tARTIFACT")
	for _, pkg := range valid {
		if dist, ok := sel.Preferred[pkg.Name]; ok {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", pkg.Name, pkg.VersionText, dist.Kind, dist.Name)
		} else {
			fmt.Fprintf(w, "%s\t%s\t-\t(no compatible distribution)\n", pkg.Name, pkg.VersionText)
		}
	}
	w.Flush()

	return sel.Err()
}

// checkOne validates a single lock file without the per-package report,
// for the recursive mode's one-line-per-file summary.
func (cmd *checkCommand) checkOne(ctx *deplock.Ctx, path string, envs []*pep.Environment) error {
	parser, err := parserForFile(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "unable to read %s", path)
	}
	v := deplock.NewValidator(parser, data, ctx.Logger())
	for _, env := range envs {
		v.AddTargetEnvironment(env)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	sel, err := v.PreferredDistributions(nil, deplock.SelectionOptions{AllowSdist: !cmd.noSdist})
	if err != nil {
		return err
	}
	return sel.Err()
}
