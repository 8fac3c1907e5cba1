// Copyright 2019 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package peg exposes the API for compiling grammars and matching input
// against them.
//
// A Parser is compiled from grammar source. Rules are translated to routines
// on demand: the first match of a rule builds routines for it and every rule
// it calls. Compiled routines are immutable and may be matched concurrently.
package peg

import (
	"sync"

	"github.com/open-peg/pegc/ast"
	"github.com/open-peg/pegc/internal/compiler/closure"
	"github.com/open-peg/pegc/internal/infer"
	"github.com/open-peg/pegc/internal/rewrite"
	"github.com/open-peg/pegc/ir"
	"github.com/open-peg/pegc/logging"
	"github.com/open-peg/pegc/metrics"
	"github.com/open-peg/pegc/types"
)

// Parser holds a checked grammar and the routines built for its root rules.
type Parser struct {
	grammar  *ast.Grammar
	compiled *ast.Grammar
	types    *infer.Result
	filename string
	logger   logging.Logger
	metrics  metrics.Metrics
	optimize bool

	mtx    sync.Mutex
	roots  []string
	ir     *ir.Program
	prog   *closure.Program
	allocs *Allocations
}

// Option configures a Parser.
type Option func(*Parser)

// Filename sets the file name recorded in the locations of the grammar and
// passed to value creators.
func Filename(name string) Option {
	return func(p *Parser) {
		p.filename = name
	}
}

// Logger sets the logger used while compiling and building.
func Logger(l logging.Logger) Option {
	return func(p *Parser) {
		p.logger = l
	}
}

// Metrics sets the metrics instance that compile, build and match timers are
// recorded in.
func Metrics(m metrics.Metrics) Option {
	return func(p *Parser) {
		p.metrics = m
	}
}

// Optimize enables the IR optimization passes during builds.
func Optimize(yes bool) Option {
	return func(p *Parser) {
		p.optimize = yes
	}
}

func newParser(opts []Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.NewNoOpLogger()
	}
	if p.metrics == nil {
		p.metrics = metrics.NoOp()
	}
	return p
}

// CompileRule returns a parser for a grammar holding a single rule named
// "rule" whose body is parsed from src.
func CompileRule(src string, opts ...Option) (*Parser, error) {
	p := newParser(opts)

	p.metrics.Timer(metrics.CompileParse).Start()
	g, err := ast.ParseRuleWithOpts(src, ast.ParserOptions{Filename: p.filename})
	p.metrics.Timer(metrics.CompileParse).Stop()
	if err != nil {
		return nil, err
	}

	return p.load(g)
}

// CompileGrammar returns a parser for the grammar parsed from src. The first
// rule of the grammar is the initial root.
func CompileGrammar(src string, opts ...Option) (*Parser, error) {
	p := newParser(opts)

	p.metrics.Timer(metrics.CompileParse).Start()
	g, err := ast.ParseGrammarWithOpts(src, ast.ParserOptions{Filename: p.filename})
	p.metrics.Timer(metrics.CompileParse).Stop()
	if err != nil {
		return nil, err
	}

	return p.load(g)
}

// Load returns a parser for a grammar that was constructed or parsed by the
// caller. The grammar must not be modified afterwards.
func Load(g *ast.Grammar, opts ...Option) (*Parser, error) {
	return newParser(opts).load(g)
}

func (p *Parser) load(g *ast.Grammar) (*Parser, error) {
	if len(g.Rules) == 0 {
		return nil, ast.Errors{ast.NewError(ast.CompileErr, nil, "empty grammar")}
	}

	p.metrics.Timer(metrics.CompileRewrite).Start()
	compiled := rewrite.LeftmostLeaves(g)
	p.metrics.Timer(metrics.CompileRewrite).Stop()

	p.metrics.Timer(metrics.CompileInfer).Start()
	res, errs := infer.Check(compiled)
	p.metrics.Timer(metrics.CompileInfer).Stop()
	if len(errs) > 0 {
		errs.Sort()
		return nil, errs
	}

	p.grammar = g
	p.compiled = compiled
	p.types = res
	p.roots = defaultRoots(compiled)

	p.logger.WithFields(map[string]any{
		"rules": len(g.Rules),
		"file":  p.filename,
	}).Debug("Compiled grammar.")

	return p, nil
}

// defaultRoots returns the first rule that can be matched without arguments.
// A grammar made only of parameterized rules has no default roots.
func defaultRoots(g *ast.Grammar) []string {
	for _, r := range g.Rules {
		if len(r.Params) == 0 {
			return []string{r.Name}
		}
	}
	return nil
}

// Grammar returns the grammar as it was parsed.
func (p *Parser) Grammar() *ast.Grammar {
	return p.grammar
}

// Rule returns the named rule or nil.
func (p *Parser) Rule(name string) *ast.Rule {
	return p.grammar.Lookup(name)
}

// Types returns the inferred value shapes of the rules. A nil shape means the
// rule produces no value.
func (p *Parser) Types() map[string]types.Type {
	result := make(map[string]types.Type, len(p.compiled.Rules))
	for _, r := range p.compiled.Rules {
		result[r.Name] = p.types.Rule(r.Name)
	}
	return result
}
