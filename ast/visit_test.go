// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type testVis struct {
	elems []any
}

func (vis *testVis) Visit(x any) Visitor {
	vis.elems = append(vis.elems, x)
	return vis
}

func TestVisitor(t *testing.T) {
	g := MustParseGrammar(`
rule a
  x:b 'c' / d*[',']
end
rule b
  $enter_mode['m', d]
end
`)

	vis := &testVis{}
	Walk(vis, g)

	// grammar, 2 rules
	// a: choice, seq, label, call b, 'c', repetition, call d, ','
	// b: function, 'm', call d
	if len(vis.elems) != 14 {
		t.Fatalf("Expected exactly 14 elements in AST but got %d: %v", len(vis.elems), vis.elems)
	}
}

func TestWalkRuleCalls(t *testing.T) {
	g := MustParseGrammar(`
rule a
  x:b 'c' / d*[e]
end
rule b
  f(g)
end
`)

	var names []string
	WalkRuleCalls(g, func(c *RuleCall) bool {
		names = append(names, c.Name)
		return false
	})

	if diff := cmp.Diff([]string{"b", "d", "e", "f", "g"}, names); diff != "" {
		t.Fatalf("Calls mismatch (-want +got):\n%v", diff)
	}

	names = nil
	WalkRuleCalls(g, func(c *RuleCall) bool {
		names = append(names, c.Name)
		return true
	})

	if diff := cmp.Diff([]string{"b", "d", "e", "f"}, names); diff != "" {
		t.Fatalf("Calls mismatch (-want +got):\n%v", diff)
	}
}

func TestWalkExpressionsStop(t *testing.T) {
	e := MustParseExpression("!( 'a' 'b' ) 'c'")

	var n int
	WalkExpressions(e, func(x Expression) bool {
		n++
		_, ok := x.(*NegativeLookahead)
		return ok
	})

	// sequence, lookahead, 'c'
	if n != 3 {
		t.Fatalf("Expected 3 expressions but got %d", n)
	}
}
