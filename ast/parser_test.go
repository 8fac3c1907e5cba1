// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseExpressionString(t *testing.T) {
	tests := []struct {
		note  string
		input string
		exp   string
	}{
		{note: "choice of sequences", input: "'a' char:. 'c' / 'def'", exp: "'a' char:. 'c' / 'def'"},
		{note: "optional group", input: "( word:[abc]+ )?", exp: "( word:[abc]+ )?"},
		{note: "case insensitive", input: `"select"`, exp: `"select"`},
		{note: "glue", input: "list:( c:[a-z] )*[',']", exp: "list:( c:[a-z] )*[',']"},
		{note: "until", input: "'<!--' text:.*->'-->'", exp: "'<!--' text:.*->'-->'"},
		{note: "lookaheads", input: "!'a' &'b' c:.", exp: "!'a' &'b' c:."},
		{note: "rule label shorthand", input: ":a", exp: "a:a"},
		{note: "at label", input: "@:a", exp: "@:a"},
		{note: "local label", input: `%q:['"] $match[%q]`, exp: `%q:['"] $match[%q]`},
		{note: "call arguments", input: `quoted( ['"], 'x' )`, exp: `quoted(['"], 'x')`},
		{note: "object creator", input: "'a' <Test::A>", exp: "'a' <Test::A>"},
		{note: "value creator", input: "'a' { upper(input.x) }", exp: "'a' {upper(input.x)}"},
		{note: "modes", input: "$enter_mode['m', a]", exp: "$enter_mode['m', a]"},
		{note: "inverted class", input: "[^0-9]", exp: "[^0-9]"},
		{note: "escaped quote", input: `'it\'s'`, exp: `'it\'s'`},
		{note: "escaped class", input: `[a\-z\n]`, exp: `[a\-z\n]`},
		{note: "boolean", input: "$true", exp: "$true"},
		{note: "grouped choice", input: "( 'a' / 'b' )+", exp: "( 'a' / 'b' )+"},
		{note: "comment", input: "'a' # first\n'b'", exp: "'a' 'b'"},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			e, err := ParseExpression(tc.input)
			if err != nil {
				t.Fatal(err)
			}
			if e.String() != tc.exp {
				t.Fatalf("Expected %v but got %v", tc.exp, e.String())
			}
			again := MustParseExpression(e.String())
			if !Equal(e, again) {
				t.Fatalf("Expected %v to parse back to the same expression but got %v", e, again)
			}
		})
	}
}

func TestParseExpressionStructure(t *testing.T) {
	e := MustParseExpression("'a' / 'b' / 'c'")

	c1, ok := e.(*Choice)
	if !ok {
		t.Fatalf("Expected choice but got %T", e)
	}
	if _, ok := c1.Second.(*Choice); !ok {
		t.Fatalf("Expected choices to nest to the right but got %T", c1.Second)
	}

	e = MustParseExpression("'a' 'b' 'c'")
	s1, ok := e.(*Sequence)
	if !ok {
		t.Fatalf("Expected sequence but got %T", e)
	}
	if _, ok := s1.First.(*Sequence); !ok {
		t.Fatalf("Expected sequences to nest to the left but got %T", s1.First)
	}

	e = MustParseExpression(`"SeLeCt"`)
	if st := e.(*StringTerminal); !st.Fold || st.Value != "SeLeCt" {
		t.Fatalf("Unexpected terminal: %+v", st)
	}

	e = MustParseExpression("%q:'x' %q")
	lbl := e.(*Sequence).First.(*Label)
	if !lbl.IsLocal || lbl.Name != "q" {
		t.Fatalf("Unexpected label: %+v", lbl)
	}
	if _, ok := e.(*Sequence).Second.(*LocalValue); !ok {
		t.Fatalf("Expected local value but got %T", e.(*Sequence).Second)
	}
}

func TestParseGrammar(t *testing.T) {
	g, err := ParseGrammar("g.peg", `
# arithmetic
rule expr
  left:expr '-' right:num / num:num
end

rule quoted(q, r)
  $match[%q] $match[%r]
end

rule num
  [0-9]+
end
`)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"expr", "quoted", "num"}, g.Names()); diff != "" {
		t.Fatalf("Names mismatch (-want +got):\n%v", diff)
	}

	q := g.Lookup("quoted")
	if diff := cmp.Diff([]string{"q", "r"}, q.Params); diff != "" {
		t.Fatalf("Params mismatch (-want +got):\n%v", diff)
	}
	if !q.HasParam("r") || q.HasParam("x") {
		t.Fatal("Unexpected HasParam result")
	}

	exp := &Location{File: "g.peg", Row: 11, Col: 1}
	if !g.Lookup("num").Location.Equal(exp) {
		t.Fatalf("Expected location %v but got %v", exp, g.Lookup("num").Location)
	}

	if g.Lookup("missing") != nil {
		t.Fatal("Expected missing rule to be nil")
	}

	again := MustParseGrammar(g.String())
	if diff := cmp.Diff(g.Names(), again.Names()); diff != "" {
		t.Fatalf("Round trip mismatch (-want +got):\n%v", diff)
	}
	for _, r := range g.Rules {
		if !Equal(r.Body, again.Lookup(r.Name).Body) {
			t.Fatalf("Round trip of %v produced %v", r, again.Lookup(r.Name))
		}
	}
}

func TestParseRuleParams(t *testing.T) {
	tests := []struct {
		note    string
		grammar string
		params  []string
		body    string
	}{
		{
			note:    "params",
			grammar: "rule test(a, b)\n  $match[%a]\nend",
			params:  []string{"a", "b"},
			body:    "$match[%a]",
		},
		{
			note:    "group body on next line",
			grammar: "rule test\n  (char1:'a' inner:test / 'b')*\nend",
			body:    "( char1:'a' inner:test / 'b' )*",
		},
		{
			note:    "group body after space",
			grammar: "rule test ('a' / 'b')\nend",
			body:    "( 'a' / 'b' )",
		},
		{
			note:    "params then group body",
			grammar: "rule test(a) ('x' $match[%a])\nend",
			params:  []string{"a"},
			body:    "( 'x' $match[%a] )",
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			g, err := ParseGrammar("", tc.grammar)
			if err != nil {
				t.Fatal(err)
			}
			r := g.Lookup("test")
			if diff := cmp.Diff(tc.params, r.Params); diff != "" {
				t.Fatalf("Params mismatch (-want +got):\n%v", diff)
			}
			if r.Body.String() != tc.body {
				t.Fatalf("Expected body %v but got %v", tc.body, r.Body)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		note    string
		rule    string
		grammar string
		exp     string
	}{
		{note: "unterminated string", rule: "'a", exp: "unexpected end of input"},
		{note: "empty class", rule: "[]", exp: "empty character class"},
		{note: "inverted range", rule: "[z-a]", exp: "invalid character range"},
		{note: "empty", rule: "", exp: "expected expression"},
		{note: "trailing input", rule: "'a' )", exp: "expected end of rule"},
		{note: "unclosed group", rule: "( 'a'", exp: `expected ")"`},
		{note: "unclosed code", rule: "'a' { x", exp: `expected "}"`},
		{note: "empty grammar", grammar: "# nothing\n", exp: "empty grammar"},
		{note: "redefined", grammar: "rule a\n'a'\nend\nrule a\n'b'\nend", exp: `rule "a" redefined`},
		{note: "duplicate parameter", grammar: "rule a(x, x)\n'a'\nend", exp: `duplicate parameter "x"`},
		{note: "missing end", grammar: "rule a\n'a'\n", exp: `expected "end"`},
		{note: "missing rule keyword", grammar: "a 'a' end", exp: `expected "rule"`},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			var err error
			if tc.grammar != "" {
				_, err = ParseGrammar("", tc.grammar)
			} else {
				_, err = ParseRule(tc.rule)
			}
			if err == nil {
				t.Fatal("Expected error")
			}
			if !IsError(ParseErr, err) {
				t.Fatalf("Expected parse error but got %v", err)
			}
			if !strings.Contains(err.Error(), tc.exp) {
				t.Fatalf("Expected %q in error but got %v", tc.exp, err)
			}
		})
	}
}

func TestParseRuleName(t *testing.T) {
	g := MustParseRule("'a'")
	if len(g.Rules) != 1 || g.Rules[0].Name != DefaultRuleName {
		t.Fatalf("Unexpected grammar: %v", g)
	}
}

func TestCharacterClassContains(t *testing.T) {
	cc := MustParseExpression("[a-cx]").(*CharacterClass)
	inv := MustParseExpression("[^a-cx]").(*CharacterClass)

	for _, c := range "abcx" {
		if !cc.Contains(c) || inv.Contains(c) {
			t.Fatalf("Unexpected result for %q", c)
		}
	}
	for _, c := range "dyé" {
		if cc.Contains(c) || !inv.Contains(c) {
			t.Fatalf("Unexpected result for %q", c)
		}
	}
}

func TestFunctionArity(t *testing.T) {
	tests := []struct {
		name  string
		arity int
		ok    bool
	}{
		{"true", 0, true},
		{"error", 1, true},
		{"match", 1, true},
		{"enter_mode", 2, true},
		{"nope", 0, false},
	}
	for _, tc := range tests {
		arity, ok := FunctionArity(tc.name)
		if arity != tc.arity || ok != tc.ok {
			t.Errorf("%v: expected (%d, %v) but got (%d, %v)", tc.name, tc.arity, tc.ok, arity, ok)
		}
	}

	f := MustParseExpression("$error['boom', x]").(*Function)
	if s, err := f.StringArg(0); err != nil || s != "boom" {
		t.Fatalf("Unexpected result: %q, %v", s, err)
	}
	if _, err := f.StringArg(1); err == nil {
		t.Fatal("Expected error for non-literal argument")
	}
	if _, err := f.StringArg(2); err == nil {
		t.Fatal("Expected error for missing argument")
	}
}
