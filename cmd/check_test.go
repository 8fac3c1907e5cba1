// Copyright 2017 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/open-peg/pegc/ast"
	"github.com/open-peg/pegc/util/test"
)

func TestCheckGrammars(t *testing.T) {
	files := map[string]string{
		"calc.peg": calcGrammar,
		"args.peg": `
rule quoted(q)
  $match[%q] body:( !$match[%q] . )* $match[%q]
end
`,
		"undefined.peg": `
rule test
  a:numbr
end
rule number
  [0-9]+
end
`,
		"syntax.peg": `
rule test
  'a
end
`,
		"recursion.peg": `
rule a
  b 'x' / 'y'
end
rule b
  a 'z'
end
`,
	}

	tests := []struct {
		note  string
		files []string
		limit int
		codes []ast.ErrCode
	}{
		{
			note:  "valid",
			files: []string{"calc.peg"},
		},
		{
			note:  "only parameterized rules",
			files: []string{"args.peg"},
		},
		{
			note:  "undefined rule",
			files: []string{"undefined.peg"},
			codes: []ast.ErrCode{ast.CompileErr},
		},
		{
			note:  "parse error",
			files: []string{"syntax.peg"},
			codes: []ast.ErrCode{ast.ParseErr},
		},
		{
			note:  "indirect left recursion",
			files: []string{"recursion.peg"},
			codes: []ast.ErrCode{ast.RecursionErr},
		},
		{
			note:  "multiple files",
			files: []string{"calc.peg", "undefined.peg", "syntax.peg"},
			codes: []ast.ErrCode{ast.CompileErr, ast.ParseErr},
		},
		{
			note:  "error limit",
			files: []string{"undefined.peg", "syntax.peg"},
			limit: 1,
			codes: []ast.ErrCode{ast.CompileErr},
		},
	}

	test.WithTempFS(files, func(root string) {
		for _, tc := range tests {
			t.Run(tc.note, func(t *testing.T) {
				params := newCheckParams()
				params.errLimit = tc.limit

				var args []string
				for _, f := range tc.files {
					args = append(args, filepath.Join(root, f))
				}

				var stderr bytes.Buffer
				err := checkGrammars(params, args, &stderr)

				if len(tc.codes) == 0 {
					if err != nil {
						t.Fatalf("Unexpected error: %v", err)
					}
					return
				}

				errs, ok := err.(ast.Errors)
				if !ok {
					t.Fatalf("Expected ast.Errors but got %T: %v", err, err)
				}
				if len(errs) != len(tc.codes) {
					t.Fatalf("Expected %d error(s) but got %v", len(tc.codes), errs)
				}
				for i := range errs {
					if errs[i].Code != tc.codes[i] {
						t.Fatalf("Expected %v at %d but got %v", tc.codes[i], i, errs[i])
					}
				}
			})
		}
	})
}

func TestCheckUndefinedRuleHint(t *testing.T) {
	files := map[string]string{
		"g.peg": `
rule test
  a:numbr
end
rule number
  [0-9]+
end
`,
	}

	test.WithTempFS(files, func(root string) {
		err := checkGrammars(newCheckParams(), []string{filepath.Join(root, "g.peg")}, &bytes.Buffer{})
		if err == nil || !strings.Contains(err.Error(), `"number"`) {
			t.Fatalf("Expected hint for rule number but got %v", err)
		}
	})
}

func TestOutputErrorsJSON(t *testing.T) {
	var buf bytes.Buffer
	outputErrors(&buf, formatJSON, ast.Errors{ast.NewError(ast.CompileErr, nil, "undefined rule %q", "x")})

	if !strings.Contains(buf.String(), `"code": "compile_error"`) {
		t.Fatalf("Unexpected output:\n%v", buf.String())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, b *syncBuffer, s string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !strings.Contains(b.String(), s) {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %q in:\n%v", s, b.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchGrammars(t *testing.T) {
	test.WithTempFS(map[string]string{"calc.peg": calcGrammar}, func(root string) {
		path := filepath.Join(root, "calc.peg")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var stdout, stderr syncBuffer
		done := make(chan error, 1)
		go func() {
			done <- watchGrammars(ctx, newCheckParams(), []string{path}, &stdout, &stderr)
		}()

		waitFor(t, &stdout, "Watching for changes")
		if err := test.WriteFiles(root, map[string]string{"calc.peg": "rule test\n  'a\nend\n"}); err != nil {
			t.Fatal(err)
		}
		waitFor(t, &stdout, "calc.peg changed")
		waitFor(t, &stderr, "error")

		if err := test.WriteFiles(root, map[string]string{"calc.peg": calcGrammar}); err != nil {
			t.Fatal(err)
		}
		waitFor(t, &stdout, "No errors")

		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Fatal("Timed out waiting for watcher to stop")
		}
	})
}

func TestWatchGrammarsMissingDir(t *testing.T) {
	err := watchGrammars(context.Background(), newCheckParams(), []string{filepath.Join(t.TempDir(), "missing", "g.peg")}, &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "creating path watcher") {
		t.Fatalf("Expected watcher error but got %v", err)
	}
}
