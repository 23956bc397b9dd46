// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deplock

import (
	"github.com/armon/go-radix"
)

// A typed wrapper around the radix tree so the rest of the package never
// type-asserts. The tree is filled once while a document is constructed
// and read-only afterwards, so no locking is needed.

type packageTrie struct {
	t *radix.Tree
}

func newPackageTrie() *packageTrie {
	return &packageTrie{t: radix.New()}
}

// Insert adds an entry keyed by normalized package name. Returns whether
// an existing entry was replaced.
func (t *packageTrie) Insert(name string, p *Package) bool {
	_, had := t.t.Insert(name, p)
	return had
}

// Get looks up an exact normalized name.
func (t *packageTrie) Get(name string) (*Package, bool) {
	if p, has := t.t.Get(name); has {
		return p.(*Package), true
	}
	return nil, false
}

// WalkPrefix visits every entry under prefix in lexical order; fn
// returning true stops the walk.
func (t *packageTrie) WalkPrefix(prefix string, fn func(name string, p *Package) bool) {
	t.t.WalkPrefix(prefix, func(s string, v interface{}) bool {
		return fn(s, v.(*Package))
	})
}

// Len reports the number of distinct package names in the index.
func (t *packageTrie) Len() int {
	return t.t.Len()
}
