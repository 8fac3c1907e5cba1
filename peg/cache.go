// Copyright 2020 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package peg

import (
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	kindRule    = "rule\x00"
	kindGrammar = "grammar\x00"
)

// Cache holds recently compiled parsers keyed by their source. Parsers taken
// from the cache are shared, so their routines are built once.
type Cache struct {
	parsers *lru.Cache[uint64, *Parser]
	opts    []Option
}

// NewCache returns a cache holding up to size parsers. The options are applied
// to every parser the cache compiles.
func NewCache(size int, opts ...Option) (*Cache, error) {
	c, err := lru.New[uint64, *Parser](size)
	if err != nil {
		return nil, err
	}
	return &Cache{parsers: c, opts: opts}, nil
}

// CompileRule returns the cached parser for the rule source or compiles it.
func (c *Cache) CompileRule(src string) (*Parser, error) {
	return c.compile(kindRule, src, CompileRule)
}

// CompileGrammar returns the cached parser for the grammar source or compiles
// it.
func (c *Cache) CompileGrammar(src string) (*Parser, error) {
	return c.compile(kindGrammar, src, CompileGrammar)
}

func (c *Cache) compile(kind, src string, f func(string, ...Option) (*Parser, error)) (*Parser, error) {
	key := cacheKey(kind, src)
	if p, ok := c.parsers.Get(key); ok {
		return p, nil
	}

	p, err := f(src, c.opts...)
	if err != nil {
		return nil, err
	}

	c.parsers.Add(key, p)
	return p, nil
}

// Len returns the number of cached parsers.
func (c *Cache) Len() int {
	return c.parsers.Len()
}

// Purge removes all parsers from the cache.
func (c *Cache) Purge() {
	c.parsers.Purge()
}

func cacheKey(kind, src string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(kind)
	_, _ = d.WriteString(src)
	return d.Sum64()
}
