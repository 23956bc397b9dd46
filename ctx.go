// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deplock

import (
	"io"
	"log"

	"github.com/sirupsen/logrus"
)

// Ctx defines the supporting context of the tool: where it runs and
// where its output goes.
type Ctx struct {
	WorkingDir string
	Out        *log.Logger // standard output, e.g. reports
	Err        *log.Logger // errors and diagnostics
	Verbose    bool
}

// Logger builds the structured logger handed to the engine. Debug output
// goes to the diagnostic stream only in verbose mode.
func (c *Ctx) Logger() *logrus.Logger {
	l := logrus.New()
	if !c.Verbose {
		l.Out = io.Discard
		return l
	}
	l.Out = c.Err.Writer()
	l.Level = logrus.DebugLevel
	l.Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	return l
}
