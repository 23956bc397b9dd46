// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"

	"github.com/block/deplock"
)

const versionShortHelp = `Display version`
const versionLongHelp = `
Display version of this application.
`

// Version is overridden at build time with -ldflags.
var Version = "devel"

type versionCommand struct{}

func (cmd *versionCommand) Name() string      { return "version" }
func (cmd *versionCommand) Args() string      { return "" }
func (cmd *versionCommand) ShortHelp() string { return versionShortHelp }
func (cmd *versionCommand) LongHelp() string  { return versionLongHelp }
func (cmd *versionCommand) Hidden() bool      { return false }

func (cmd *versionCommand) Register(fs *flag.FlagSet) {
}

func (cmd *versionCommand) Run(ctx *deplock.Ctx, args []string) error {
	ctx.Out.Println(Version)
	return nil
}
