// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/block/deplock"
)

const packagesShortHelp = `List the packages that apply to the target environments`
const packagesLongHelp = `
Packages lists the lock entries that apply to every target environment,
in lock-file order, with their versions and artifact counts.

The -filter flag restricts the listing to packages whose normalized name
starts with the given prefix. The -all flag skips environment filtering
and lists every entry in the file.
`

type packagesCommand struct {
	targetFlags
	filter string
	all    bool
}

func (cmd *packagesCommand) Name() string      { return "packages" }
func (cmd *packagesCommand) Args() string      { return "[lockfile]" }
func (cmd *packagesCommand) ShortHelp() string { return packagesShortHelp }
func (cmd *packagesCommand) LongHelp() string  { return packagesLongHelp }
func (cmd *packagesCommand) Hidden() bool      { return false }

func (cmd *packagesCommand) Register(fs *flag.FlagSet) {
	cmd.targetFlags.Register(fs)
	fs.StringVar(&cmd.filter, "filter", "", "only list packages whose name starts with this prefix")
	fs.BoolVar(&cmd.all, "all", false, "list every lock entry, without environment filtering")
}

func (cmd *packagesCommand) Run(ctx *deplock.Ctx, args []string) error {
	envs, err := cmd.environments()
	if err != nil {
		return err
	}

	v, path, err := validatorFor(ctx, args)
	if err != nil {
		return err
	}
	for _, env := range envs {
		v.AddTargetEnvironment(env)
	}
	if err := v.Validate(); err != nil {
		return err
	}

	doc, err := v.Document()
	if err != nil {
		return err
	}

	var packages []deplock.Package
	if cmd.all {
		packages = doc.Packages
	} else {
		if packages, err = v.ValidPackagesFromLock(); err != nil {
			return err
		}
	}

	// The prefix filter runs on the document's radix index so that the
	// match respects name normalization.
	matched := map[string]bool{}
	if cmd.filter != "" {
		for _, name := range doc.PackagesWithPrefix(cmd.filter) {
			matched[name] = true
		}
	}

	ctx.Err.Printf("%s (%s, lock-version %s)\n", path, doc.Format, doc.LockVersion)
	w := tabwriter.NewWriter(ctx.Out.Writer(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tVERSION\tWHEELS\tSDIST")
	for _, pkg := range packages {
		if cmd.filter != "" && !matched[pkg.Name] {
			continue
		}
		sdist := "no"
		if _, ok := pkg.Sdist(); ok {
			sdist = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", pkg.Name, pkg.VersionText, len(pkg.Wheels()), sdist)
	}
	w.Flush()
	return nil
}
