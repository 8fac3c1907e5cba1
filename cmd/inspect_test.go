// Copyright 2022 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/open-peg/pegc/ast"
	"github.com/open-peg/pegc/util/test"
)

func TestInspect(t *testing.T) {
	files := map[string]string{"calc.peg": calcGrammar}

	tests := []struct {
		note   string
		setup  func(*inspectParams)
		expOut []string
	}{
		{
			note:   "pretty",
			expOut: []string{"RULE", "expr", "num", "Roots: [expr]", "FUNCTIONS"},
		},
		{
			note: "roots",
			setup: func(p *inspectParams) {
				p.roots = []string{"num"}
			},
			expOut: []string{"Roots: [num]"},
		},
		{
			note: "root pattern",
			setup: func(p *inspectParams) {
				p.roots = []string{"n*"}
			},
			expOut: []string{"Roots: [num]"},
		},
		{
			note: "ir",
			setup: func(p *inspectParams) {
				p.showIR = true
			},
			expOut: []string{"expr"},
		},
	}

	test.WithTempFS(files, func(root string) {
		for _, tc := range tests {
			t.Run(tc.note, func(t *testing.T) {
				params := newInspectParams()
				if tc.setup != nil {
					tc.setup(&params)
				}

				var stdout, stderr bytes.Buffer
				if err := inspect(params, []string{filepath.Join(root, "calc.peg")}, &stdout, &stderr); err != nil {
					t.Fatal(err)
				}

				for _, s := range tc.expOut {
					if !strings.Contains(stdout.String(), s) {
						t.Fatalf("Expected %q in output:\n%v", s, stdout.String())
					}
				}
			})
		}
	})
}

func TestInspectJSON(t *testing.T) {
	files := map[string]string{"calc.peg": calcGrammar}

	test.WithTempFS(files, func(root string) {
		params := newInspectParams()
		_ = params.format.Set(formatJSON)

		var stdout, stderr bytes.Buffer
		if err := inspect(params, []string{filepath.Join(root, "calc.peg")}, &stdout, &stderr); err != nil {
			t.Fatal(err)
		}

		var res struct {
			Rules []struct {
				Name string `json:"name"`
			} `json:"rules"`
			Roots []string `json:"roots"`
			Stats struct {
				Funcs int `json:"functions"`
			} `json:"stats"`
		}
		if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
			t.Fatal(err)
		}

		var names []string
		for _, r := range res.Rules {
			names = append(names, r.Name)
		}
		if diff := cmp.Diff([]string{"expr", "num"}, names); diff != "" {
			t.Fatalf("Rules mismatch (-want +got):\n%v", diff)
		}
		if diff := cmp.Diff([]string{"expr"}, res.Roots); diff != "" {
			t.Fatalf("Roots mismatch (-want +got):\n%v", diff)
		}
		if res.Stats.Funcs == 0 {
			t.Fatalf("Expected functions in stats: %v", stdout.String())
		}
	})
}

func TestInspectUnknownRoot(t *testing.T) {
	files := map[string]string{"calc.peg": calcGrammar}

	test.WithTempFS(files, func(root string) {
		params := newInspectParams()
		params.roots = []string{"nope"}

		if err := inspect(params, []string{filepath.Join(root, "calc.peg")}, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
			t.Fatal("Expected error for unknown root")
		}
	})
}

func TestExpandRoots(t *testing.T) {
	g, err := ast.ParseGrammar("g.peg", `
rule expr_sum
  'a'
end
rule expr_product
  'b'
end
rule num
  [0-9]+
end
rule expr_quoted(q)
  $match[%q]
end
`)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		note     string
		patterns []string
		exp      []string
		expErr   string
	}{
		{
			note:     "plain names",
			patterns: []string{"num", "expr_sum", "num"},
			exp:      []string{"num", "expr_sum"},
		},
		{
			note:     "star",
			patterns: []string{"expr_*"},
			exp:      []string{"expr_sum", "expr_product"},
		},
		{
			note:     "alternatives",
			patterns: []string{"{num,expr_sum}", "expr_s?m"},
			exp:      []string{"expr_sum", "num"},
		},
		{
			note:     "unknown names are kept",
			patterns: []string{"nope"},
			exp:      []string{"nope"},
		},
		{
			note:     "no match",
			patterns: []string{"term*"},
			expErr:   `root pattern "term*" matches no rule`,
		},
		{
			note:     "invalid pattern",
			patterns: []string{"expr_[*"},
			expErr:   `invalid root pattern "expr_[*"`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			roots, err := expandRoots(g, tc.patterns)
			if tc.expErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.expErr) {
					t.Fatalf("Expected error %q but got %v", tc.expErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, roots); diff != "" {
				t.Fatalf("Roots mismatch (-want +got):\n%v", diff)
			}
		})
	}
}
