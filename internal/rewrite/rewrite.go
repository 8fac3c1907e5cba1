// Copyright 2017 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package rewrite implements normalization passes over grammars. Passes
// never modify their input; they return a new grammar that shares unchanged
// expressions with the original.
package rewrite

import (
	"fmt"

	"github.com/open-peg/pegc/ast"
)

// LeftmostLeaves hoists the leaf that every alternative of a choice starts
// with out of the choice:
//
//	a 'x' / y:a 'y'   =>   %$left0:a ( %$left0 'x' / y:%$left0 'y' )
//
// The leaf is bound to a synthetic local label and each alternative refers to
// the local instead. The leaf is then matched once, and the leftmost rule call
// of the choice is visible regardless of how the alternatives label it.
func LeftmostLeaves(g *ast.Grammar) *ast.Grammar {
	result := &ast.Grammar{}
	for _, r := range g.Rules {
		rw := &leafRewriter{}
		body := rw.rewrite(r.Body)
		if body == r.Body {
			result.Add(r)
			continue
		}
		result.Add(&ast.Rule{
			Location: r.Location,
			Name:     r.Name,
			Params:   r.Params,
			Body:     body,
		})
	}
	return result
}

type leafRewriter struct {
	next int
}

func (rw *leafRewriter) newLocal() string {
	name := fmt.Sprintf("$left%d", rw.next)
	rw.next++
	return name
}

func (rw *leafRewriter) rewrite(e ast.Expression) ast.Expression {
	switch x := e.(type) {
	case *ast.Choice:
		// The chain is hoisted as a whole, so alternatives are rewritten
		// individually rather than through the nested choices.
		chain := chainOf(x)
		alts, changed := rw.rewriteAll(alternatives(x))
		if changed {
			x = buildChain(chain, alts)
		}
		return rw.hoist(x)
	case *ast.Sequence:
		first := rw.rewrite(x.First)
		second := rw.rewrite(x.Second)
		if first == x.First && second == x.Second {
			return e
		}
		return &ast.Sequence{Location: x.Location, First: first, Second: second}
	case *ast.Repetition:
		child := rw.rewrite(x.Child)
		var glue ast.Expression
		if x.Glue != nil {
			glue = rw.rewrite(x.Glue)
		}
		if child == x.Child && glue == x.Glue {
			return e
		}
		return &ast.Repetition{Location: x.Location, Child: child, Glue: glue, AtLeastOnce: x.AtLeastOnce}
	case *ast.Optional:
		if child := rw.rewrite(x.Child); child != x.Child {
			return &ast.Optional{Location: x.Location, Child: child}
		}
	case *ast.Until:
		child := rw.rewrite(x.Child)
		until := rw.rewrite(x.Until)
		if child == x.Child && until == x.Until {
			return e
		}
		return &ast.Until{Location: x.Location, Child: child, Until: until}
	case *ast.PositiveLookahead:
		if child := rw.rewrite(x.Child); child != x.Child {
			return &ast.PositiveLookahead{Location: x.Location, Child: child}
		}
	case *ast.NegativeLookahead:
		if child := rw.rewrite(x.Child); child != x.Child {
			return &ast.NegativeLookahead{Location: x.Location, Child: child}
		}
	case *ast.Label:
		if child := rw.rewrite(x.Child); child != x.Child {
			cpy := *x
			cpy.Child = child
			return &cpy
		}
	case *ast.Parenthesized:
		if child := rw.rewrite(x.Child); child != x.Child {
			return &ast.Parenthesized{Location: x.Location, Child: child}
		}
	case *ast.ObjectCreator:
		if child := rw.rewrite(x.Child); child != x.Child {
			return &ast.ObjectCreator{Location: x.Location, Child: child, Class: x.Class}
		}
	case *ast.ValueCreator:
		if child := rw.rewrite(x.Child); child != x.Child {
			return &ast.ValueCreator{Location: x.Location, Child: child, Code: x.Code}
		}
	case *ast.Function:
		if args, changed := rw.rewriteAll(x.Args); changed {
			return &ast.Function{Location: x.Location, Name: x.Name, Args: args}
		}
	case *ast.RuleCall:
		if args, changed := rw.rewriteAll(x.Args); changed {
			return &ast.RuleCall{Location: x.Location, Name: x.Name, Args: args}
		}
	}
	return e
}

func (rw *leafRewriter) rewriteAll(es []ast.Expression) ([]ast.Expression, bool) {
	changed := false
	result := make([]ast.Expression, len(es))
	for i := range es {
		result[i] = rw.rewrite(es[i])
		changed = changed || result[i] != es[i]
	}
	return result, changed
}

// hoist rewrites the choice chain rooted at c if all alternatives share their
// leftmost leaf.
func (rw *leafRewriter) hoist(c *ast.Choice) ast.Expression {
	alts := alternatives(c)

	leaf := ast.Leftmost(alts[0])
	if !hoistable(leaf) {
		return c
	}

	for _, alt := range alts {
		if !ast.Equal(leaf, ast.Leftmost(alt)) || !labelsLeaf(alt) {
			return c
		}
	}

	name := rw.newLocal()
	ref := &ast.LocalValue{Location: leaf.Loc(), Name: name}

	replaced := make([]ast.Expression, len(alts))
	for i, alt := range alts {
		replaced[i] = replaceLeftmost(alt, ref)
	}

	choice := buildChain(chainOf(c), replaced)

	bind := &ast.Label{Location: leaf.Loc(), Child: leaf, Name: name, IsLocal: true, Synthetic: true}

	return &ast.Sequence{Location: c.Location, First: bind, Second: choice}
}

// hoistable returns true for leaves that consume input. Hoisting local values
// and functions would not change what the choice matches.
func hoistable(leaf ast.Expression) bool {
	switch leaf.(type) {
	case *ast.RuleCall, *ast.StringTerminal, *ast.CharacterClass, *ast.AnyCharacter:
		return true
	}
	return false
}

// labelsLeaf returns false if a label on the path to the leftmost leaf of e
// covers more than the leaf. Such a label may capture the input range
// starting at the leaf, which a reference to the hoisted leaf cannot
// reproduce.
func labelsLeaf(e ast.Expression) bool {
	for {
		switch x := e.(type) {
		case *ast.Sequence:
			e = x.First
		case *ast.Parenthesized:
			e = x.Child
		case *ast.ObjectCreator:
			e = x.Child
		case *ast.ValueCreator:
			e = x.Child
		case *ast.Label:
			child := x.Child
			for {
				p, ok := child.(*ast.Parenthesized)
				if !ok {
					break
				}
				child = p.Child
			}
			return ast.Leftmost(child) == child
		default:
			return true
		}
	}
}

func alternatives(c *ast.Choice) []ast.Expression {
	alts := []ast.Expression{c.First}
	for {
		next, ok := c.Second.(*ast.Choice)
		if !ok {
			return append(alts, c.Second)
		}
		alts = append(alts, next.First)
		c = next
	}
}

func chainOf(c *ast.Choice) []*ast.Choice {
	chain := []*ast.Choice{c}
	for {
		next, ok := chain[len(chain)-1].Second.(*ast.Choice)
		if !ok {
			return chain
		}
		chain = append(chain, next)
	}
}

// buildChain rebuilds a choice chain over alts, reusing the locations of the
// original chain nodes.
func buildChain(chain []*ast.Choice, alts []ast.Expression) *ast.Choice {
	result := alts[len(alts)-1]
	for i := len(alts) - 2; i >= 0; i-- {
		result = &ast.Choice{Location: chain[i].Location, First: alts[i], Second: result}
	}
	return result.(*ast.Choice)
}

// replaceLeftmost returns a copy of e in which the leftmost leaf is replaced
// by ref. Sequences whose first element becomes a bare reference keep the
// reference so that the value of the leaf is reproduced in place.
func replaceLeftmost(e ast.Expression, ref ast.Expression) ast.Expression {
	switch x := e.(type) {
	case *ast.Sequence:
		return &ast.Sequence{Location: x.Location, First: replaceLeftmost(x.First, ref), Second: x.Second}
	case *ast.Label:
		cpy := *x
		cpy.Child = replaceLeftmost(x.Child, ref)
		return &cpy
	case *ast.Parenthesized:
		return &ast.Parenthesized{Location: x.Location, Child: replaceLeftmost(x.Child, ref)}
	case *ast.ObjectCreator:
		return &ast.ObjectCreator{Location: x.Location, Child: replaceLeftmost(x.Child, ref), Class: x.Class}
	case *ast.ValueCreator:
		return &ast.ValueCreator{Location: x.Location, Child: replaceLeftmost(x.Child, ref), Code: x.Code}
	}
	return ref
}
