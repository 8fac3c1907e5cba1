// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNullable(t *testing.T) {
	g := MustParseGrammar(`
rule empty
  'a'?
end
rule nonempty
  'a' empty
end
rule indirect
  empty empty
end
`)
	a := NewAnalysis(g)

	tests := []struct {
		expr string
		exp  bool
	}{
		{"'a'", false},
		{"''", true},
		{"[a-z]", false},
		{".", false},
		{"'a'*", true},
		{"'a'+", false},
		{"'a'?", true},
		{"!'a'", true},
		{"&'a'", true},
		{"'a' / 'b'?", true},
		{"'a'? 'b'", false},
		{"x:'a'?", true},
		{".*->'b'", false},
		{"empty", true},
		{"nonempty", false},
		{"indirect", true},
		{"$true", true},
		{"$match[%q]", false},
		{"$enter_mode['m', 'a']", false},
		{"$enter_mode['m', empty]", true},
		{"'a'? <A>", true},
	}

	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			if got := a.Nullable(MustParseExpression(tc.expr)); got != tc.exp {
				t.Fatalf("Expected %v but got %v", tc.exp, got)
			}
		})
	}
}

func TestInitialCalls(t *testing.T) {
	g := MustParseGrammar(`
rule opt
  'x'?
end
`)
	a := NewAnalysis(g)

	tests := []struct {
		expr string
		exp  []string
	}{
		{"a b", []string{"a"}},
		{"opt b", []string{"b", "opt"}},
		{"a / b", []string{"a", "b"}},
		{"'x' a", []string{}},
		{"(opt c)* d", []string{"c", "d", "opt"}},
		{"x:a", []string{"a"}},
		{"f(g)", []string{"f", "g"}},
		{"a a", []string{"a"}},
	}

	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			got := a.InitialCalls(MustParseExpression(tc.expr))
			if diff := cmp.Diff(tc.exp, got); diff != "" {
				t.Fatalf("Calls mismatch (-want +got):\n%v", diff)
			}
		})
	}
}

func TestLeftmost(t *testing.T) {
	tests := []struct {
		expr string
		exp  string
	}{
		{"'a' 'b'", "'a'"},
		{"x:( y:expr '-' ) <A>", "expr"},
		{"( 'a' / 'b' ) 'c'", ""},
		{"'a'* 'c'", ""},
		{"%q", "%q"},
		{"$match[%q] 'x'", "$match[%q]"},
	}

	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			got := Leftmost(MustParseExpression(tc.expr))
			var s string
			if got != nil {
				s = got.String()
			}
			if s != tc.exp {
				t.Fatalf("Expected %q but got %q", tc.exp, s)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b string
		exp  bool
	}{
		{"'a' b:c", "'a'   b:c", true},
		{"'a'", `"a"`, false},
		{"[a-z]", "[^a-z]", false},
		{"x*[',']", "x*[';']", false},
		{"x:y", "%x:y", false},
		{"'a' <A::B>", "'a' <A::C>", false},
		{"'a' {x}", "'a' { x }", true},
		{"f('a')", "f('b')", false},
		{"$error['a']", "$error['a']", true},
	}

	for _, tc := range tests {
		t.Run(tc.a+" = "+tc.b, func(t *testing.T) {
			if got := Equal(MustParseExpression(tc.a), MustParseExpression(tc.b)); got != tc.exp {
				t.Fatalf("Expected %v but got %v", tc.exp, got)
			}
		})
	}

	if !Equal(nil, nil) || Equal(nil, MustParseExpression("'a'")) {
		t.Fatal("Unexpected result for nil expressions")
	}
}
