// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

// Visitor defines the interface for iterating AST elements.
// The Visit function can return a Visitor w which will be
// used to visit the children of the AST element v. If the
// Visit function returns nil, the children will not be visited.
type Visitor interface {
	Visit(v any) (w Visitor)
}

// Walk iterates the AST by calling the Visit function on the Visitor
// v for x before recursing.
func Walk(v Visitor, x any) {
	w := v.Visit(x)
	if w == nil {
		return
	}
	switch x := x.(type) {
	case *Grammar:
		for _, r := range x.Rules {
			Walk(w, r)
		}
	case *Rule:
		Walk(w, x.Body)
	case Expression:
		for _, c := range Children(x) {
			Walk(w, c)
		}
	}
}

// GenericVisitor implements the Visitor interface to provide
// a utility to walk over AST nodes using a closure. If the closure
// returns true, the visitor will not walk over AST nodes under x.
type GenericVisitor struct {
	f func(x any) bool
}

// NewGenericVisitor returns a new GenericVisitor that will invoke the function
// f on AST nodes.
func NewGenericVisitor(f func(x any) bool) *GenericVisitor {
	return &GenericVisitor{f}
}

// Walk iterates the AST by calling the function f on the
// GenericVisitor before recursing. Contrary to the generic Walk, this
// does not require allocating the visitor from heap.
func (vis *GenericVisitor) Walk(x any) {
	if vis.f(x) {
		return
	}

	switch x := x.(type) {
	case *Grammar:
		for _, r := range x.Rules {
			vis.Walk(r)
		}
	case *Rule:
		vis.Walk(x.Body)
	case Expression:
		for _, c := range Children(x) {
			vis.Walk(c)
		}
	}
}

// WalkExpressions calls the function f on all expressions under x. If the
// function f returns true, AST nodes under the last node will not be visited.
func WalkExpressions(x any, f func(Expression) bool) {
	vis := &GenericVisitor{func(x any) bool {
		if e, ok := x.(Expression); ok {
			return f(e)
		}
		return false
	}}
	vis.Walk(x)
}

// WalkRuleCalls calls the function f on all rule calls under x. If the
// function f returns true, AST nodes under the last node will not be visited.
func WalkRuleCalls(x any, f func(*RuleCall) bool) {
	vis := &GenericVisitor{func(x any) bool {
		if c, ok := x.(*RuleCall); ok {
			return f(c)
		}
		return false
	}}
	vis.Walk(x)
}

// Children returns the direct sub-expressions of e in evaluation order.
func Children(e Expression) []Expression {
	switch e := e.(type) {
	case *Sequence:
		return []Expression{e.First, e.Second}
	case *Choice:
		return []Expression{e.First, e.Second}
	case *Repetition:
		if e.Glue != nil {
			return []Expression{e.Child, e.Glue}
		}
		return []Expression{e.Child}
	case *Optional:
		return []Expression{e.Child}
	case *Until:
		return []Expression{e.Child, e.Until}
	case *PositiveLookahead:
		return []Expression{e.Child}
	case *NegativeLookahead:
		return []Expression{e.Child}
	case *RuleCall:
		return e.Args
	case *Label:
		return []Expression{e.Child}
	case *Parenthesized:
		return []Expression{e.Child}
	case *ObjectCreator:
		return []Expression{e.Child}
	case *ValueCreator:
		return []Expression{e.Child}
	case *Function:
		return e.Args
	}
	return nil
}
