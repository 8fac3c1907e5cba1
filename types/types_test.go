// Copyright 2017 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package types

import (
	"strings"
	"testing"
)

func rec(fields ...*Field) *Record {
	return NewRecord(fields...)
}

func field(key string, value Type) *Field {
	return NewField(key, value, false)
}

func optField(key string, value Type) *Field {
	return NewField(key, value, true)
}

func TestAnySorted(t *testing.T) {
	a := NewAny(R, N, B)
	if Compare(a[0], N) != 0 {
		t.Fatal("expected any type to be sorted")
	}
	if a.String() != "any<nil, boolean, range>" {
		t.Fatalf("Unexpected string: %v", a)
	}
	if !a.Contains(B) || a.Contains(NewArray(R)) {
		t.Fatal("Unexpected Contains result")
	}
	if !A.Contains(NewArray(R)) {
		t.Fatal("Expected dynamic type to contain everything")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		tpe Type
		exp string
	}{
		{nil, "none"},
		{N, "nil"},
		{R, "range"},
		{B, "boolean"},
		{rec(optField("b", B), field("a", R)), "{a: range, b?: boolean}"},
		{NewArray(rec(field("c", R))), "[{c: range}]"},
		{NewObject([]string{"A", "B"}, rec(field("x", R))), "<A::B>{x: range}"},
		{NewComputed("upper(x)", R), "{upper(x)}range"},
		{NewRuleRef("expr"), "rule(expr)"},
		{A, "any"},
	}

	for _, tc := range tests {
		t.Run(tc.exp, func(t *testing.T) {
			if got := Sprint(tc.tpe); got != tc.exp {
				t.Fatalf("Expected %v but got %v", tc.exp, got)
			}
		})
	}
}

func TestRecord(t *testing.T) {
	r := rec(field("b", R), optField("a", B))

	keys := r.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("Unexpected keys: %v", keys)
	}
	if f := r.Select("a"); f == nil || !f.Optional {
		t.Fatalf("Unexpected field: %v", f)
	}
	if r.Select("c") != nil {
		t.Fatal("Expected missing field to be nil")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		note string
		a, b Type
		exp  int
	}{
		{"equal scalars", R, R, 0},
		{"order", N, R, -1},
		{"records by key", rec(field("a", R)), rec(field("b", R)), -1},
		{"records by optional", rec(optField("a", R)), rec(field("a", R)), 1},
		{"records by length", rec(field("a", R)), rec(field("a", R), field("b", R)), -1},
		{"arrays", NewArray(R), NewArray(B), 1},
		{"objects", NewObject([]string{"A"}, nil), NewObject([]string{"B"}, nil), -1},
		{"refs", NewRuleRef("a"), NewRuleRef("a"), 0},
		{"any", NewAny(R, B), NewAny(B, R), 0},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			if got := Compare(tc.a, tc.b); got != tc.exp {
				t.Fatalf("Expected %d but got %d", tc.exp, got)
			}
		})
	}
}

func TestUnify(t *testing.T) {
	tests := []struct {
		note string
		a, b Type
		exp  string
	}{
		{"nil", nil, R, "range"},
		{"same", R, R, "range"},
		{"records", rec(field("a", R)), rec(field("b", R)), "{a?: range, b?: range}"},
		{"shared keys", rec(field("a", R), field("b", R)), rec(field("a", B)), "{a: any<boolean, range>, b?: range}"},
		{"record and nil", rec(field("a", R)), N, "{a?: range}"},
		{"nil and record", N, rec(field("a", R)), "{a?: range}"},
		{"arrays", NewArray(R), NewArray(N), "[any<nil, range>]"},
		{"union", R, B, "any<boolean, range>"},
		{"union member", NewAny(B, R), R, "any<boolean, range>"},
		{"union of records", NewAny(N, rec(field("a", R))), rec(field("b", R)), "any<{a: range}, {b?: range}>"},
		{"dynamic", A, R, "any"},
		{"rule ref", NewRuleRef("x"), R, "any<range, rule(x)>"},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			if got := Sprint(Unify(tc.a, tc.b)); got != tc.exp {
				t.Fatalf("Expected %v but got %v", tc.exp, got)
			}
		})
	}
}

func TestNullable(t *testing.T) {
	tests := []struct {
		tpe Type
		exp string
	}{
		{nil, "none"},
		{R, "any<nil, range>"},
		{N, "nil"},
		{A, "any"},
		{rec(field("a", R)), "{a: any<nil, range>}"},
		{NewAny(N, R), "any<nil, range>"},
		{NewAny(B, R), "any<nil, boolean, range>"},
	}

	for _, tc := range tests {
		t.Run(Sprint(tc.tpe), func(t *testing.T) {
			if got := Sprint(Nullable(tc.tpe)); got != tc.exp {
				t.Fatalf("Expected %v but got %v", tc.exp, got)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		note   string
		a, b   Type
		exp    string
		expErr string
	}{
		{note: "nil", a: nil, b: rec(field("a", R)), exp: "{a: range}"},
		{note: "disjoint", a: rec(field("a", R)), b: rec(field("b", B)), exp: "{a: range, b: boolean}"},
		{note: "placeholder", a: N, b: rec(field("a", R)), exp: "{a: range}"},
		{note: "optional overlap", a: rec(optField("a", R)), b: rec(field("a", B)), exp: "{a: any<boolean, range>}"},
		{note: "both optional", a: rec(optField("a", R)), b: rec(optField("a", R)), exp: "{a?: range}"},
		{note: "union", a: NewAny(N, rec(field("a", R))), b: rec(field("b", R)), exp: "{a?: range, b: range}"},
		{note: "rule ref", a: NewRuleRef("x"), b: rec(field("a", R)), exp: "any"},
		{note: "duplicate", a: rec(field("a", R)), b: rec(field("a", R)), expErr: `duplicate label "a"`},
		{note: "not a record", a: R, b: rec(field("a", R)), expErr: "cannot merge range with {a: range}"},
		{note: "union without record", a: NewAny(B, R), b: rec(field("a", R)), expErr: "cannot merge"},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			got, err := Merge(tc.a, tc.b)
			if tc.expErr != "" {
				if err == nil {
					t.Fatalf("Expected error but got %v", got)
				}
				if _, ok := err.(*MergeError); !ok || !strings.Contains(err.Error(), tc.expErr) {
					t.Fatalf("Expected %q but got %v", tc.expErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if Sprint(got) != tc.exp {
				t.Fatalf("Expected %v but got %v", tc.exp, Sprint(got))
			}
		})
	}
}

func TestDynamic(t *testing.T) {
	if !Dynamic(A) || !Dynamic(NewRuleRef("x")) {
		t.Fatal("Expected dynamic types")
	}
	if Dynamic(NewAny(R)) || Dynamic(R) || Dynamic(nil) {
		t.Fatal("Expected static types")
	}
}
