// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"

	"github.com/pkg/errors"

	"github.com/block/deplock"
)

const whichShortHelp = `Show the artifact that would be installed for a package`
const whichLongHelp = `
Which resolves a single package against the target environment and prints
the distribution the selection rules pick for it: the best-ranked
compatible wheel, or the source distribution when no wheel fits and
source builds are allowed.
`

type whichCommand struct {
	targetFlags
	noSdist bool
}

func (cmd *whichCommand) Name() string      { return "which" }
func (cmd *whichCommand) Args() string      { return "<package> [lockfile]" }
func (cmd *whichCommand) ShortHelp() string { return whichShortHelp }
func (cmd *whichCommand) LongHelp() string  { return whichLongHelp }
func (cmd *whichCommand) Hidden() bool      { return false }

func (cmd *whichCommand) Register(fs *flag.FlagSet) {
	cmd.targetFlags.Register(fs)
	fs.BoolVar(&cmd.noSdist, "no-sdist", false, "require a wheel; never fall back to source distributions")
}

func (cmd *whichCommand) Run(ctx *deplock.Ctx, args []string) error {
	if len(args) == 0 {
		return errors.New("which requires a package name argument")
	}
	name := deplock.NormalizeName(args[0])

	envs, err := cmd.environments()
	if err != nil {
		return err
	}

	v, path, err := validatorFor(ctx, args[1:])
	if err != nil {
		return err
	}
	for _, env := range envs {
		v.AddTargetEnvironment(env)
	}
	if err := v.Validate(); err != nil {
		return err
	}

	valid, err := v.ValidPackagesFromLock()
	if err != nil {
		return err
	}
	var matches []deplock.Package
	for _, pkg := range valid {
		if pkg.Name == name {
			matches = append(matches, pkg)
		}
	}
	if len(matches) == 0 {
		doc, derr := v.Document()
		if derr == nil {
			if _, locked := doc.Package(name); locked {
				return errors.Errorf("%s is locked in %s but does not apply to the target environment", name, path)
			}
		}
		return errors.Errorf("%s is not locked in %s", name, path)
	}

	sel, err := v.PreferredDistributions(nil, deplock.SelectionOptions{AllowSdist: !cmd.noSdist})
	if err != nil {
		return err
	}
	dist, ok := sel.Preferred[name]
	if !ok {
		return &deplock.NoValidDistributionError{Package: name, Version: matches[0].VersionText}
	}

	location := dist.URL
	if location == "" {
		location = dist.Path
	}
	ctx.Out.Printf("%s==%s\n", name, matches[0].VersionText)
	ctx.Out.Printf("  kind:     %s\n", dist.Kind)
	ctx.Out.Printf("  artifact: %s\n", dist.Name)
	if location != "" {
		ctx.Out.Printf("  location: %s\n", location)
	}
	if digest, ok := dist.Hashes["sha256"]; ok {
		ctx.Out.Printf("  sha256:   %s\n", digest)
	}
	return nil
}
