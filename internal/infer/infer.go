// Copyright 2017 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package infer computes the value shapes of rules and expressions and checks
// grammars for static errors.
package infer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/open-peg/pegc/ast"
	"github.com/open-peg/pegc/internal/levenshtein"
	"github.com/open-peg/pegc/types"
	"github.com/open-peg/pegc/util"
)

// Result holds the inferred value shapes of a grammar.
type Result struct {
	rules    map[string]types.Type
	produces map[string]bool
	exprs    map[ast.Expression]types.Type
	locals   map[string]map[string]types.Type
}

// Rule returns the value shape of the named rule. A nil shape means the rule
// produces no value.
func (r *Result) Rule(name string) types.Type {
	return r.rules[name]
}

// Expr returns the value shape of an expression of the checked grammar.
func (r *Result) Expr(e ast.Expression) types.Type {
	return r.exprs[e]
}

// Produces returns true if a successful match of e produces a value.
func (r *Result) Produces(e ast.Expression) bool {
	return r.exprs[e] != nil
}

// RuleProduces returns true if a successful match of the named rule produces
// a value.
func (r *Result) RuleProduces(name string) bool {
	return r.produces[name]
}

// Local returns the value shape captured by a local label or parameter of a
// rule.
func (r *Result) Local(rule, name string) (types.Type, bool) {
	t, ok := r.locals[rule][name]
	return t, ok
}

type checker struct {
	g        *ast.Grammar
	analysis *ast.Analysis
	result   *Result
	errs     ast.Errors

	rule      *ast.Rule
	defs      map[string][]*ast.Label
	done      map[string]bool
	progress  map[string]bool
	localBusy map[string]bool
}

// Check infers the value shapes of all rules in g and returns the errors found
// in the grammar, e.g., undefined rules, wrong argument counts, undefined
// local labels, unmergeable labels and indirect left recursion.
func Check(g *ast.Grammar) (*Result, ast.Errors) {
	c := &checker{
		g:        g,
		analysis: ast.NewAnalysis(g),
		result: &Result{
			rules:    map[string]types.Type{},
			produces: map[string]bool{},
			exprs:    map[ast.Expression]types.Type{},
			locals:   map[string]map[string]types.Type{},
		},
		done:     map[string]bool{},
		progress: map[string]bool{},
	}

	c.computeProduces()

	for _, r := range g.Rules {
		c.ruleShape(r.Name)
	}

	c.checkLeftRecursion()

	if len(c.errs) > 0 {
		c.errs.Sort()
		return nil, c.errs
	}

	return c.result, nil
}

func (c *checker) err(code ast.ErrCode, loc *ast.Location, f string, a ...any) {
	rule := ""
	if c.rule != nil {
		rule = c.rule.Name
	}
	c.errs = append(c.errs, ast.NewRuleError(code, rule, loc, f, a...))
}

// computeProduces determines which rules produce values. Recursive rules are
// resolved by iterating to a fixpoint starting from "no value".
func (c *checker) computeProduces() {
	for changed := true; changed; {
		changed = false
		for _, r := range c.g.Rules {
			if c.result.produces[r.Name] {
				continue
			}
			c.rule = r
			c.defs = collectLocals(r)
			if c.produces(r.Body) {
				c.result.produces[r.Name] = true
				changed = true
			}
		}
	}
	c.rule = nil
}

func (c *checker) produces(e ast.Expression) bool {
	switch e := e.(type) {
	case *ast.Sequence:
		return c.produces(e.First) || c.produces(e.Second)
	case *ast.Choice:
		return c.produces(e.First) || c.produces(e.Second)
	case *ast.Repetition:
		return c.produces(e.Child)
	case *ast.Optional:
		return c.produces(e.Child)
	case *ast.Until:
		return c.produces(e.Child) || c.produces(e.Until)
	case *ast.RuleCall:
		return c.result.produces[e.Name]
	case *ast.Label:
		return !e.IsLocal
	case *ast.LocalValue:
		if defs := c.defs[e.Name]; len(defs) > 0 && defs[0].Synthetic {
			return c.produces(defs[0].Child)
		}
		return true
	case *ast.Parenthesized:
		return c.produces(e.Child)
	case *ast.ObjectCreator, *ast.ValueCreator:
		return true
	case *ast.Function:
		switch e.Name {
		case "true", "false":
			return true
		case "enter_mode", "leave_mode":
			return len(e.Args) == 2 && c.produces(e.Args[1])
		}
	}
	return false
}

func collectLocals(r *ast.Rule) map[string][]*ast.Label {
	defs := map[string][]*ast.Label{}
	ast.WalkExpressions(r.Body, func(e ast.Expression) bool {
		if l, ok := e.(*ast.Label); ok && l.IsLocal {
			defs[l.Name] = append(defs[l.Name], l)
		}
		return false
	})
	return defs
}

func (c *checker) ruleShape(name string) types.Type {
	if c.done[name] {
		return c.result.rules[name]
	}

	if c.progress[name] {
		if c.result.produces[name] {
			return types.NewRuleRef(name)
		}
		return nil
	}

	r := c.g.Lookup(name)
	if r == nil {
		return nil
	}

	c.progress[name] = true

	prevRule, prevDefs, prevBusy := c.rule, c.defs, c.localBusy
	c.rule = r
	c.defs = collectLocals(r)
	c.localBusy = map[string]bool{}
	c.result.locals[name] = map[string]types.Type{}
	for _, p := range r.Params {
		if _, ok := c.defs[p]; ok {
			c.err(ast.CompileErr, r.Location, "local label %q shadows parameter", p)
		}
		c.result.locals[name][p] = types.A
	}

	t := c.shape(r.Body)

	c.rule, c.defs, c.localBusy = prevRule, prevDefs, prevBusy
	delete(c.progress, name)
	c.done[name] = true
	c.result.rules[name] = t

	return t
}

func (c *checker) shape(e ast.Expression) types.Type {
	if t, ok := c.result.exprs[e]; ok {
		return t
	}
	t := c.compute(e)
	c.result.exprs[e] = t
	return t
}

func (c *checker) compute(e ast.Expression) types.Type {
	switch e := e.(type) {
	case *ast.StringTerminal, *ast.CharacterClass, *ast.AnyCharacter:
		return nil

	case *ast.Sequence:
		a := c.shape(e.First)
		b := c.shape(e.Second)
		t, err := types.Merge(a, b)
		if err != nil {
			c.mergeErr(e, err)
			return types.A
		}
		return t

	case *ast.Choice:
		a := c.shape(e.First)
		b := c.shape(e.Second)
		if a == nil && b != nil {
			a = types.N
		} else if b == nil && a != nil {
			b = types.N
		}
		return types.Unify(a, b)

	case *ast.Repetition:
		child := c.shape(e.Child)
		if e.Glue != nil {
			c.shape(e.Glue)
		}
		if child == nil {
			return nil
		}
		return types.NewArray(child)

	case *ast.Optional:
		return types.Nullable(c.shape(e.Child))

	case *ast.Until:
		child := c.shape(e.Child)
		until := c.shape(e.Until)
		if child == nil && until == nil {
			return nil
		}
		return types.NewArray(types.Unify(child, until))

	case *ast.PositiveLookahead:
		c.shape(e.Child)
		return nil

	case *ast.NegativeLookahead:
		c.shape(e.Child)
		return nil

	case *ast.RuleCall:
		return c.call(e)

	case *ast.Label:
		child := c.shape(e.Child)
		switch {
		case e.IsLocal:
			if child == nil && !e.Synthetic {
				child = types.R
			}
			c.bindLocal(e.Name, child)
			return nil
		case child == nil:
			child = types.R
		}
		if e.IsAt {
			return child
		}
		return types.NewRecord(types.NewField(e.Name, child, false))

	case *ast.LocalValue:
		t, ok := c.local(e.Name)
		if !ok {
			c.err(ast.CompileErr, e.Location, "undefined local label %q", e.Name)
			return types.A
		}
		return t

	case *ast.Parenthesized:
		return c.shape(e.Child)

	case *ast.ObjectCreator:
		data := c.shape(e.Child)
		if data == nil {
			data = types.N
		}
		return types.NewObject(e.Class, data)

	case *ast.ValueCreator:
		data := c.shape(e.Child)
		if data == nil {
			data = types.N
		}
		return types.NewComputed(e.Code, data)

	case *ast.Function:
		return c.function(e)
	}

	panic(fmt.Sprintf("illegal expression %T", e))
}

func (c *checker) mergeErr(e ast.Expression, err error) {
	var me *types.MergeError
	if errors.As(err, &me) && me.Key != "" {
		c.err(ast.TypeErr, e.Loc(), "%v", err)
		return
	}
	c.err(ast.TypeErr, e.Loc(), "%v (at most one unlabeled value per sequence)", err)
}

func (c *checker) call(e *ast.RuleCall) types.Type {
	for _, arg := range e.Args {
		c.shape(arg)
	}

	r := c.g.Lookup(e.Name)
	if r == nil {
		c.err(ast.CompileErr, e.Location, "undefined rule %q%v", e.Name, levenshtein.Hint(e.Name, c.g.Names()))
		return types.A
	}

	if len(e.Args) != len(r.Params) {
		c.err(ast.CompileErr, e.Location, "rule %q called with %d argument(s) but takes %d", e.Name, len(e.Args), len(r.Params))
	}

	return c.ruleShape(e.Name)
}

func (c *checker) bindLocal(name string, t types.Type) {
	locals := c.result.locals[c.rule.Name]
	if prev, ok := locals[name]; ok {
		locals[name] = types.Unify(prev, t)
		return
	}
	locals[name] = t
}

func (c *checker) local(name string) (types.Type, bool) {
	locals := c.result.locals[c.rule.Name]
	if t, ok := locals[name]; ok {
		return t, true
	}

	defs, ok := c.defs[name]
	if !ok {
		return nil, false
	}

	// The reference precedes the definition in the rule body, or the label
	// captures a value that refers to itself.
	if c.localBusy[name] {
		return types.A, true
	}
	c.localBusy[name] = true
	for _, l := range defs {
		c.shape(l)
	}
	delete(c.localBusy, name)

	return locals[name], true
}

func (c *checker) function(e *ast.Function) types.Type {
	arity, ok := ast.FunctionArity(e.Name)
	if !ok {
		c.err(ast.CompileErr, e.Location, "undefined function $%v", e.Name)
		return nil
	}

	if len(e.Args) != arity {
		c.err(ast.CompileErr, e.Location, "function $%v takes %d argument(s) but got %d", e.Name, arity, len(e.Args))
		return nil
	}

	switch e.Name {
	case "true", "false":
		return types.B

	case "error", "in_mode":
		if _, err := e.StringArg(0); err != nil {
			c.err(ast.CompileErr, e.Location, "%v", err)
		}
		return nil

	case "match":
		lv, ok := e.Args[0].(*ast.LocalValue)
		if !ok {
			c.err(ast.CompileErr, e.Location, "$match: argument must be a local label")
			return nil
		}
		t := c.shape(lv)
		if _, ok := t.(types.InputRange); !ok && !types.Dynamic(t) {
			c.err(ast.TypeErr, e.Location, "$match: local label %q holds %v, not an input range", lv.Name, types.Sprint(t))
		}
		return nil

	case "enter_mode", "leave_mode":
		if _, err := e.StringArg(0); err != nil {
			c.err(ast.CompileErr, e.Location, "%v", err)
		}
		return c.shape(e.Args[1])
	}

	return nil
}

// checkLeftRecursion reports rules that call themselves through other rules
// without consuming input. Direct left recursion is resolved at match time;
// indirect left recursion is not supported.
func (c *checker) checkLeftRecursion() {
	edges := map[string][]string{}
	for _, r := range c.g.Rules {
		for _, callee := range c.analysis.InitialCalls(r.Body) {
			if callee != r.Name && c.g.Lookup(callee) != nil {
				edges[r.Name] = append(edges[r.Name], callee)
			}
		}
	}

	reported := map[string]bool{}
	graph := util.NewGraph(edges)

	for _, r := range c.g.Rules {
		for _, callee := range edges[r.Name] {
			graph.Reset()
			path := util.DFSPath(graph, callee, r.Name)
			if len(path) == 0 {
				continue
			}
			cycle := append([]string{r.Name}, path...)
			key := canonicalCycle(cycle)
			if reported[key] {
				continue
			}
			reported[key] = true
			c.rule = r
			c.err(ast.RecursionErr, r.Location, "indirect left recursion: %v", strings.Join(cycle, " -> "))
			c.rule = nil
		}
	}
}

// canonicalCycle returns a key that is the same for all rotations of a cycle.
// The last element of the cycle repeats the first.
func canonicalCycle(cycle []string) string {
	nodes := cycle[:len(cycle)-1]
	start := 0
	for i := range nodes {
		if nodes[i] < nodes[start] {
			start = i
		}
	}
	rotated := append(append([]string{}, nodes[start:]...), nodes[:start]...)
	return strings.Join(rotated, ",")
}
