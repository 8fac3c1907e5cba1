// Copyright 2019 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package peg

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/open-peg/pegc/ast"
	"github.com/open-peg/pegc/internal/compiler/closure"
	"github.com/open-peg/pegc/internal/planner"
	"github.com/open-peg/pegc/ir"
	"github.com/open-peg/pegc/metrics"
)

// Allocations counts the memory allocated by a match.
type Allocations = closure.Allocations

// Stats describes the routines of the last build.
type Stats struct {
	Funcs        int          `json:"functions"`
	Blocks       int          `json:"blocks"`
	Instructions int          `json:"instructions"`
	Allocations  *Allocations `json:"allocations,omitempty"`
}

func (s Stats) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d functions / %d blocks / %d instructions", s.Funcs, s.Blocks, s.Instructions)
	if s.Allocations != nil {
		fmt.Fprintf(&sb, "\n%d frames / %d captures / %d operations / %d peak log",
			s.Allocations.Frames, s.Allocations.Captures, s.Allocations.Ops, s.Allocations.PeakLog)
	}
	return sb.String()
}

// Build discards the routines of the previous build and builds routines for
// the root rules and every rule they call. If no roots are given the current
// roots are rebuilt.
func (p *Parser) Build(roots ...string) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if len(roots) == 0 {
		roots = p.roots
	}

	return p.build(roots)
}

func (p *Parser) build(roots []string) error {
	for _, name := range roots {
		if err := p.checkRoot(name); err != nil {
			return err
		}
	}

	p.ir, p.prog = nil, nil
	start := time.Now()

	p.metrics.Timer(metrics.BuildPlan).Start()
	prog, err := planner.New().
		WithGrammar(p.compiled).
		WithTypes(p.types).
		WithRoots(roots).
		Plan()
	p.metrics.Timer(metrics.BuildPlan).Stop()
	if err != nil {
		return err
	}

	if p.optimize {
		ir.Optimize(prog)
	}

	p.metrics.Timer(metrics.BuildAssemble).Start()
	compiled, err := closure.Compile(prog)
	p.metrics.Timer(metrics.BuildAssemble).Stop()
	if err != nil {
		return err
	}

	p.roots = slices.Clone(roots)
	p.ir = prog
	p.prog = compiled

	analysis := ast.NewAnalysis(p.compiled)
	for _, r := range p.compiled.Rules {
		if compiled.Has(r.Name) && slices.Contains(analysis.InitialCalls(r.Body), r.Name) {
			p.logger.Debug("Rule %q is left-recursive, its matches grow from a seed.", r.Name)
		}
	}

	stats := compiled.Stats()
	p.logger.WithFields(map[string]any{
		"roots":     strings.Join(roots, ","),
		"functions": stats.Funcs,
		"blocks":    stats.Blocks,
	}).Debug("Built routines in %v.", time.Since(start))

	return nil
}

func (p *Parser) checkRoot(name string) error {
	r := p.compiled.Lookup(name)
	if r == nil {
		return fmt.Errorf("%w %q", ErrUnknownRule, name)
	}
	if len(r.Params) > 0 {
		return fmt.Errorf("rule %q cannot be matched directly: it takes %d argument(s)", name, len(r.Params))
	}
	return nil
}

// program returns the routines to match the named rule with. A rule outside
// the current roots is added to them and forces a rebuild.
func (p *Parser) program(name string) (*closure.Program, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.prog != nil && slices.Contains(p.roots, name) {
		return p.prog, nil
	}

	roots := p.roots
	if !slices.Contains(roots, name) {
		if err := p.checkRoot(name); err != nil {
			return nil, err
		}
		roots = append(slices.Clone(roots), name)
	}

	if err := p.build(roots); err != nil {
		return nil, err
	}

	return p.prog, nil
}

// Roots returns the rules the last build was made for.
func (p *Parser) Roots() []string {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return slices.Clone(p.roots)
}

// Stats describes the routines of the last build and the allocations of the
// last match that tracked them. Stats builds the current roots if necessary.
func (p *Parser) Stats() (Stats, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.prog == nil {
		if err := p.build(p.roots); err != nil {
			return Stats{}, err
		}
	}

	s := p.prog.Stats()
	return Stats{
		Funcs:        s.Funcs,
		Blocks:       s.Blocks,
		Instructions: s.Stmts,
		Allocations:  p.allocs,
	}, nil
}

// Program returns the IR of the last build, building the current roots if
// necessary.
func (p *Parser) Program() (*ir.Program, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.ir == nil {
		if err := p.build(p.roots); err != nil {
			return nil, err
		}
	}

	return p.ir, nil
}

func (p *Parser) setAllocations(a *Allocations) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.allocs = a
}
