// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"slices"
)

// Leftmost returns the leaf expression that e unconditionally attempts first,
// looking through sequences, labels, parentheses and creators. Leaves are
// terminals, rule calls, local values and functions. Leftmost returns nil if
// the first attempted expression depends on a choice, repetition or
// lookahead.
func Leftmost(e Expression) Expression {
	for {
		switch x := e.(type) {
		case *StringTerminal, *CharacterClass, *AnyCharacter, *RuleCall, *LocalValue, *Function:
			return e
		case *Sequence:
			e = x.First
		case *Label:
			e = x.Child
		case *Parenthesized:
			e = x.Child
		case *ObjectCreator:
			e = x.Child
		case *ValueCreator:
			e = x.Child
		default:
			return nil
		}
	}
}

// Equal returns true if a and b are structurally equal. Locations are
// ignored.
func Equal(a, b Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case *StringTerminal:
		b, ok := b.(*StringTerminal)
		return ok && a.Value == b.Value && a.Fold == b.Fold
	case *CharacterClass:
		b, ok := b.(*CharacterClass)
		return ok && a.Inverted == b.Inverted && slices.Equal(a.Ranges, b.Ranges)
	case *AnyCharacter:
		_, ok := b.(*AnyCharacter)
		return ok
	case *Sequence:
		b, ok := b.(*Sequence)
		return ok && Equal(a.First, b.First) && Equal(a.Second, b.Second)
	case *Choice:
		b, ok := b.(*Choice)
		return ok && Equal(a.First, b.First) && Equal(a.Second, b.Second)
	case *Repetition:
		b, ok := b.(*Repetition)
		return ok && a.AtLeastOnce == b.AtLeastOnce && Equal(a.Child, b.Child) && Equal(a.Glue, b.Glue)
	case *Optional:
		b, ok := b.(*Optional)
		return ok && Equal(a.Child, b.Child)
	case *Until:
		b, ok := b.(*Until)
		return ok && Equal(a.Child, b.Child) && Equal(a.Until, b.Until)
	case *PositiveLookahead:
		b, ok := b.(*PositiveLookahead)
		return ok && Equal(a.Child, b.Child)
	case *NegativeLookahead:
		b, ok := b.(*NegativeLookahead)
		return ok && Equal(a.Child, b.Child)
	case *RuleCall:
		b, ok := b.(*RuleCall)
		return ok && a.Name == b.Name && equalExprs(a.Args, b.Args)
	case *Label:
		b, ok := b.(*Label)
		return ok && a.Name == b.Name && a.IsLocal == b.IsLocal && a.IsAt == b.IsAt && a.Synthetic == b.Synthetic && Equal(a.Child, b.Child)
	case *LocalValue:
		b, ok := b.(*LocalValue)
		return ok && a.Name == b.Name
	case *Parenthesized:
		b, ok := b.(*Parenthesized)
		return ok && Equal(a.Child, b.Child)
	case *ObjectCreator:
		b, ok := b.(*ObjectCreator)
		return ok && slices.Equal(a.Class, b.Class) && Equal(a.Child, b.Child)
	case *ValueCreator:
		b, ok := b.(*ValueCreator)
		return ok && a.Code == b.Code && Equal(a.Child, b.Child)
	case *Function:
		b, ok := b.(*Function)
		return ok && a.Name == b.Name && equalExprs(a.Args, b.Args)
	}
	return false
}

func equalExprs(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Analysis answers structural questions about the expressions of a grammar.
// Results for rules are memoized; recursive rules are resolved to a fixpoint.
type Analysis struct {
	g        *Grammar
	nullable map[string]bool
}

// NewAnalysis returns a new Analysis for g.
func NewAnalysis(g *Grammar) *Analysis {
	a := &Analysis{g: g}
	a.computeNullable()
	return a
}

func (a *Analysis) computeNullable() {
	a.nullable = map[string]bool{}
	for changed := true; changed; {
		changed = false
		for _, r := range a.g.Rules {
			if a.nullable[r.Name] {
				continue
			}
			if a.Nullable(r.Body) {
				a.nullable[r.Name] = true
				changed = true
			}
		}
	}
}

// Nullable returns true if e can succeed without consuming input.
func (a *Analysis) Nullable(e Expression) bool {
	switch e := e.(type) {
	case *StringTerminal:
		return e.Value == ""
	case *CharacterClass, *AnyCharacter:
		return false
	case *Sequence:
		return a.Nullable(e.First) && a.Nullable(e.Second)
	case *Choice:
		return a.Nullable(e.First) || a.Nullable(e.Second)
	case *Repetition:
		return !e.AtLeastOnce || a.Nullable(e.Child)
	case *Until:
		return a.Nullable(e.Until)
	case *RuleCall:
		return a.nullable[e.Name]
	case *Label:
		return a.Nullable(e.Child)
	case *Parenthesized:
		return a.Nullable(e.Child)
	case *ObjectCreator:
		return a.Nullable(e.Child)
	case *ValueCreator:
		return a.Nullable(e.Child)
	case *Function:
		if e.Name == "enter_mode" || e.Name == "leave_mode" {
			return len(e.Args) < 2 || a.Nullable(e.Args[1])
		}
		return e.Name != "match"
	}
	// Optional, lookaheads and local values.
	return true
}

// InitialCalls returns the names of the rules e may call before consuming
// any input. The result is sorted and free of duplicates.
func (a *Analysis) InitialCalls(e Expression) []string {
	set := map[string]struct{}{}
	a.initialCalls(e, set)
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (a *Analysis) initialCalls(e Expression, set map[string]struct{}) {
	switch e := e.(type) {
	case *Sequence:
		a.initialCalls(e.First, set)
		if a.Nullable(e.First) {
			a.initialCalls(e.Second, set)
		}
	case *RuleCall:
		set[e.Name] = struct{}{}
		for _, arg := range e.Args {
			a.initialCalls(arg, set)
		}
	case *Repetition:
		a.initialCalls(e.Child, set)
		if e.Glue != nil && a.Nullable(e.Child) {
			a.initialCalls(e.Glue, set)
		}
	default:
		for _, c := range Children(e) {
			a.initialCalls(c, set)
		}
	}
}
