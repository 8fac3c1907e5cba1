// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ir

// Visitor defines the interface for visiting IR nodes.
type Visitor interface {
	Before(x any)
	Visit(x any) (Visitor, error)
	After(x any)
}

// Walk invokes the visitor for nodes under x.
func Walk(vis Visitor, x any) error {
	impl := walkerImpl{
		vis: vis,
	}
	impl.walk(x)
	return impl.err
}

type walkerImpl struct {
	vis Visitor
	err error
}

func (w *walkerImpl) walk(x any) {
	if w.err != nil { // abort on error
		return
	}
	if x == nil {
		return
	}

	prev := w.vis
	w.vis.Before(x)
	defer w.vis.After(x)
	w.vis, w.err = w.vis.Visit(x)
	if w.err != nil {
		return
	} else if w.vis == nil {
		w.vis = prev
		return
	}

	switch x := x.(type) {
	case *Program:
		for _, fn := range x.Funcs {
			w.walk(fn)
		}
	case *Func:
		for _, b := range x.Blocks {
			w.walk(b)
		}
	case *Block:
		for _, s := range x.Stmts {
			w.walk(s)
		}
	case *IfStmt:
		w.walk(x.Cond)
	case *MatchStmt:
		w.walk(x.Matcher)
	}

	w.vis = prev
}

// Blocks returns the indices of the blocks reachable from the entry block of
// fn in depth-first order.
func Blocks(fn *Func) []int {
	if len(fn.Blocks) == 0 {
		return nil
	}
	seen := make([]bool, len(fn.Blocks))
	var order []int
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[i] {
			continue
		}
		seen[i] = true
		order = append(order, i)
		t := fn.Blocks[i].Terminator()
		if t == nil {
			continue
		}
		succ := t.Successors()
		for j := len(succ) - 1; j >= 0; j-- {
			if !seen[succ[j]] {
				stack = append(stack, succ[j])
			}
		}
	}
	return order
}
