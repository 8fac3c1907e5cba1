// Copyright 2019 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package peg

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"sigs.k8s.io/yaml"

	"github.com/open-peg/pegc/ast"
	"github.com/open-peg/pegc/logging"
	"github.com/open-peg/pegc/logging/test"
	"github.com/open-peg/pegc/metrics"
	"github.com/open-peg/pegc/output"
	"github.com/open-peg/pegc/scope"
)

type matchCase struct {
	Note    string        `json:"note"`
	Rule    string        `json:"rule"`
	Grammar string        `json:"grammar"`
	Start   string        `json:"start"`
	Scope   string        `json:"scope"`
	Input   string        `json:"input"`
	Want    any           `json:"want"`
	WantErr *ParsingError `json:"want_error"`
}

func loadCases(t *testing.T) []matchCase {
	t.Helper()

	bs, err := os.ReadFile("testdata/cases.yaml")
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Cases []matchCase `json:"cases"`
	}
	if err := yaml.Unmarshal(bs, &doc); err != nil {
		t.Fatal(err)
	}

	return doc.Cases
}

func (tc matchCase) compile() (*Parser, error) {
	if tc.Grammar != "" {
		return CompileGrammar(tc.Grammar, Filename(tc.Note))
	}
	return CompileRule(tc.Rule, Filename(tc.Note))
}

func TestMatchCases(t *testing.T) {
	ctx := context.Background()
	rego := scope.NewRego()

	for _, tc := range loadCases(t) {
		t.Run(tc.Note, func(t *testing.T) {
			p, err := tc.compile()
			if err != nil {
				t.Fatalf("Unexpected compile error: %v", err)
			}

			start := tc.Start
			if start == "" {
				start = p.Grammar().Rules[0].Name
			}

			opts := []MatchOption{}
			if tc.Scope == "rego" {
				opts = append(opts, ClassScope(rego))
			}

			result, err := p.Match(ctx, start, []byte(tc.Input), opts...)

			if tc.WantErr != nil {
				var pe *ParsingError
				if !errors.As(err, &pe) {
					t.Fatalf("Expected parsing error but got value %v, error %v", result, err)
				}
				got := &ParsingError{Position: pe.Position, Expectations: pe.Expectations, OtherReasons: pe.OtherReasons}
				if diff := cmp.Diff(tc.WantErr, got); diff != "" {
					t.Fatalf("Parsing error mismatch (-want +got):\n%v", diff)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if diff := cmp.Diff(tc.Want, result); diff != "" {
				t.Fatalf("Value mismatch (-want +got):\n%v", diff)
			}
		})
	}
}

func TestParsingErrorString(t *testing.T) {
	tests := []struct {
		note string
		err  *ParsingError
		exp  string
	}{
		{
			note: "expectations",
			err:  NewParsingError([]byte("ad"), 1, []string{"'c'", "'b'", "'c'"}, nil),
			exp:  `At line 1, column 2 (byte 1, after "a"): Expected one of 'b', 'c'.`,
		},
		{
			note: "reasons first",
			err:  NewParsingError([]byte("abc"), 1, []string{"'x'"}, []string{"test"}),
			exp:  `At line 1, column 2 (byte 1, after "a"): test / Expected one of 'x'.`,
		},
		{
			note: "start of input",
			err:  NewParsingError([]byte("x"), 0, []string{"[0-9]"}, nil),
			exp:  `At line 1, column 1 (byte 0, after ""): Expected one of [0-9].`,
		},
		{
			note: "second line",
			err:  NewParsingError([]byte("a\nbc"), 3, []string{"'d'"}, nil),
			exp:  `At line 2, column 2 (byte 3, after "a\nb"): Expected one of 'd'.`,
		},
		{
			note: "long prefix",
			err:  NewParsingError([]byte("0123456789abcdefghijklmnop"), 25, []string{"end of input"}, nil),
			exp:  `At line 1, column 26 (byte 25, after "56789abcdefghijklmno"): Expected one of end of input.`,
		},
		{
			note: "quoted expectation",
			err:  NewParsingError([]byte(""), 0, []string{`"x"`}, nil),
			exp:  `At line 1, column 1 (byte 0, after ""): Expected one of "x".`,
		},
		{
			note: "no reasons",
			err:  NewParsingError([]byte("a"), 0, nil, nil),
			exp:  `At line 1, column 1 (byte 0, after ""): No alternative matched.`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			if got := tc.err.Error(); got != tc.exp {
				t.Fatalf("Expected:\n%v\n\nGot:\n%v", tc.exp, got)
			}
		})
	}
}

func TestParsingErrorNegativeLookahead(t *testing.T) {
	p, err := CompileRule("!'a' .")
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.Parse(context.Background(), []byte("a"))
	exp := `At line 1, column 1 (byte 0, after ""): No alternative matched.`
	if err == nil || err.Error() != exp {
		t.Fatalf("Expected %q but got %v", exp, err)
	}
}

func TestParsingErrorMerge(t *testing.T) {
	a := NewParsingError([]byte("abc"), 1, []string{"'b'"}, []string{"x"})
	b := NewParsingError([]byte("abc"), 1, []string{"'a'", "'b'"}, []string{"y"})

	merged := a.Merge(b)

	exp := &ParsingError{
		Input:        []byte("abc"),
		Position:     1,
		Expectations: []string{"'a'", "'b'"},
		OtherReasons: []string{"x", "y"},
	}

	if diff := cmp.Diff(exp, merged); diff != "" {
		t.Fatalf("Merge mismatch (-want +got):\n%v", diff)
	}

	if a.Merge(nil) != a {
		t.Fatal("Expected merge with nil to return the receiver")
	}
}

func TestRaiseOnFailure(t *testing.T) {
	p, err := CompileRule("'a' $error['test'] 'b' 'c'")
	if err != nil {
		t.Fatal(err)
	}

	v, err := p.Match(context.Background(), "rule", []byte("abc"), RaiseOnFailure(false))
	if err != nil || v != nil {
		t.Fatalf("Expected nil value and error but got %v, %v", v, err)
	}

	rs, err := p.Eval(context.Background(), "rule", []byte("abc"))
	if err != nil {
		t.Fatal(err)
	}
	if rs.Failure == nil || rs.Failure.Position != 1 {
		t.Fatalf("Expected failure at position 1 but got %v", rs.Failure)
	}
	if diff := cmp.Diff([]string{"test"}, rs.Failure.OtherReasons); diff != "" {
		t.Fatalf("Reasons mismatch (-want +got):\n%v", diff)
	}
}

func TestOutputModes(t *testing.T) {
	ctx := context.Background()
	p, err := CompileRule("'a' char:. 'c' <Test::A>")
	if err != nil {
		t.Fatal(err)
	}

	v, err := p.Match(ctx, "rule", []byte("abc"), Output(OutputIntermediate))
	if err != nil {
		t.Fatal(err)
	}
	exp := &output.ObjectData{Class: []string{"Test", "A"}, Data: map[string]any{"char": "b"}}
	if diff := cmp.Diff(exp, v); diff != "" {
		t.Fatalf("Intermediate mismatch (-want +got):\n%v", diff)
	}

	v, err = p.Match(ctx, "rule", []byte("abc"), Output(OutputPointer))
	if err != nil {
		t.Fatal(err)
	}
	ptr, ok := v.(*output.Pointer)
	if !ok {
		t.Fatalf("Expected pointer but got %T", v)
	}
	if ptr.Start != 0 || ptr.End != 3 || len(ptr.Ops) == 0 {
		t.Fatalf("Unexpected pointer: %+v", ptr)
	}

	// The operations of a pointer produce the intermediate value.
	iv, err := output.Intermediate(ptr.Ops, ptr.Input)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(exp, iv); diff != "" {
		t.Fatalf("Pointer replay mismatch (-want +got):\n%v", diff)
	}

	if _, err := p.Match(ctx, "rule", []byte("abc"), Output("bogus")); err == nil {
		t.Fatal("Expected error for invalid output mode")
	}
}

type testObject struct {
	Class string
	Data  any
}

func TestClassScope(t *testing.T) {
	p, err := CompileRule("'a' char:. 'c' <TestClassA> / 'd' char:. 'f' <TestClassB>")
	if err != nil {
		t.Fatal(err)
	}

	s := scope.NewMap().
		WithClass("TestClassA", func(_ context.Context, data any) (any, error) {
			return testObject{Class: "A", Data: data}, nil
		}).
		WithClass("TestClassB", func(_ context.Context, data any) (any, error) {
			return testObject{Class: "B", Data: data}, nil
		})

	tests := []struct {
		input string
		exp   testObject
	}{
		{"abc", testObject{Class: "A", Data: map[string]any{"char": "b"}}},
		{"def", testObject{Class: "B", Data: map[string]any{"char": "e"}}},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			v, err := p.Match(context.Background(), "rule", []byte(tc.input), ClassScope(s))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, v); diff != "" {
				t.Fatalf("Object mismatch (-want +got):\n%v", diff)
			}
		})
	}

	_, err = p.Match(context.Background(), "rule", []byte("abc"), ClassScope(scope.NewMap()))
	if !errors.Is(err, scope.ErrUndefinedClass) {
		t.Fatalf("Expected undefined class error but got %v", err)
	}
}

func TestValueCreatorOrigin(t *testing.T) {
	src := "\n  'a' char:. 'c' { upper } /\n  'ghi' { origin }\n"
	p, err := CompileRule(src, Filename("test.peg"))
	if err != nil {
		t.Fatal(err)
	}

	s := scope.NewMap().
		WithValue("upper", func(_ context.Context, data any, _ output.Origin) (any, error) {
			return strings.ToUpper(data.(map[string]any)["char"].(string)), nil
		}).
		WithValue("origin", func(_ context.Context, _ any, origin output.Origin) (any, error) {
			return origin.String(), nil
		})

	tests := []struct {
		input string
		exp   any
	}{
		{"abc", "B"},
		{"ghi", "test.peg:3"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			v, err := p.Match(context.Background(), "rule", []byte(tc.input), ClassScope(s))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, v); diff != "" {
				t.Fatalf("Value mismatch (-want +got):\n%v", diff)
			}
		})
	}
}

func TestRealizeIdempotent(t *testing.T) {
	ctx := context.Background()
	p, err := CompileGrammar(`
		rule test
			'(' inner:( test ( other:'b' )? ) ')' / char:'a'
		end
	`)
	if err != nil {
		t.Fatal(err)
	}

	iv, err := p.Match(ctx, "test", []byte("((a)b)"), Output(OutputIntermediate))
	if err != nil {
		t.Fatal(err)
	}

	first, err := output.Realize(ctx, iv, scope.Tagged{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := output.Realize(ctx, iv, scope.Tagged{})
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("Realizing twice differs (-first +second):\n%v", diff)
	}

	again, err := p.Match(ctx, "test", []byte("((a)b)"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, again); diff != "" {
		t.Fatalf("Matching twice differs (-first +second):\n%v", diff)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		note    string
		grammar string
		rule    string
		code    ast.ErrCode
		msg     string
	}{
		{
			note: "undefined local label",
			rule: "char:%missing",
			code: ast.CompileErr,
			msg:  `undefined local label "missing"`,
		},
		{
			note: "undefined rule",
			grammar: `rule test
				tset2
			end
			rule test2
				'a'
			end`,
			code: ast.CompileErr,
			msg:  `undefined rule "tset2"`,
		},
		{
			note: "argument count",
			grammar: `rule test
				quoted
			end
			rule quoted(q)
				$match[%q]
			end`,
			code: ast.CompileErr,
			msg:  "called with 0 argument(s) but takes 1",
		},
		{
			note: "indirect left recursion",
			grammar: `rule a
				b 'x' / 'y'
			end
			rule b
				a 'z'
			end`,
			code: ast.RecursionErr,
		},
		{
			note: "syntax",
			rule: "'a' (",
			code: ast.ParseErr,
		},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			var err error
			if tc.grammar != "" {
				_, err = CompileGrammar(tc.grammar)
			} else {
				_, err = CompileRule(tc.rule)
			}
			if !ast.IsError(tc.code, err) {
				t.Fatalf("Expected %v but got %v", tc.code, err)
			}
			if !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("Expected error to contain %q but got %v", tc.msg, err)
			}
		})
	}
}

func TestBuildLifecycle(t *testing.T) {
	ctx := context.Background()
	p, err := CompileGrammar(`
		rule test
			a:first
		end
		rule first
			'a'
		end
		rule second
			b:'b'
		end
	`)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"test"}, p.Roots()); diff != "" {
		t.Fatalf("Roots mismatch (-want +got):\n%v", diff)
	}

	if _, err := p.Parse(ctx, []byte("a")); err != nil {
		t.Fatal(err)
	}
	before, err := p.Stats()
	if err != nil {
		t.Fatal(err)
	}

	v, err := p.Match(ctx, "second", []byte("b"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"b": "b"}, v); diff != "" {
		t.Fatalf("Value mismatch (-want +got):\n%v", diff)
	}

	if diff := cmp.Diff([]string{"test", "second"}, p.Roots()); diff != "" {
		t.Fatalf("Roots mismatch (-want +got):\n%v", diff)
	}

	after, err := p.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if after.Funcs != before.Funcs+1 {
		t.Fatalf("Expected one more function after rebuild, got %v and %v", before, after)
	}

	// A rule called by a root still becomes a root of its own.
	if _, err := p.Match(ctx, "first", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"test", "second", "first"}, p.Roots()); diff != "" {
		t.Fatalf("Roots mismatch (-want +got):\n%v", diff)
	}

	if _, err := p.Match(ctx, "third", []byte("a")); !errors.Is(err, ErrUnknownRule) {
		t.Fatalf("Expected unknown rule error but got %v", err)
	}

	if err := p.Build("first"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"first"}, p.Roots()); diff != "" {
		t.Fatalf("Roots mismatch (-want +got):\n%v", diff)
	}

	prog, err := p.Program()
	if err != nil {
		t.Fatal(err)
	}
	if prog.Func("first") == nil || prog.Func("test") != nil {
		t.Fatalf("Unexpected functions in program: %v", len(prog.Funcs))
	}
}

func TestParameterizedRoot(t *testing.T) {
	p, err := CompileGrammar(`
		rule quoted(q)
			$match[%q]
		end
	`)
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.Parse(context.Background(), []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "takes 1 argument(s)") {
		t.Fatalf("Expected argument error but got %v", err)
	}
}

func TestParameterizedFirstRule(t *testing.T) {
	ctx := context.Background()
	p, err := CompileGrammar(`
		rule quoted(q)
			v:$match[%q]
		end
		rule main
			quoted('x')
		end
	`)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"main"}, p.Roots()); diff != "" {
		t.Fatalf("Roots mismatch (-want +got):\n%v", diff)
	}

	v, err := p.Match(ctx, "main", []byte("xx"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{"v": "x"}, v); diff != "" {
		t.Fatalf("Value mismatch (-want +got):\n%v", diff)
	}

	if _, err := p.Stats(); err != nil {
		t.Fatal(err)
	}
}

func TestOnlyParameterizedRules(t *testing.T) {
	p, err := CompileGrammar(`
		rule quoted(q)
			$match[%q]
		end
	`)
	if err != nil {
		t.Fatal(err)
	}

	if len(p.Roots()) != 0 {
		t.Fatalf("Expected no roots but got %v", p.Roots())
	}

	stats, err := p.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Funcs != 0 {
		t.Fatalf("Expected no functions but got %v", stats)
	}
}

func TestTrackAllocations(t *testing.T) {
	p, err := CompileRule("list:( char:[a-z] )*")
	if err != nil {
		t.Fatal(err)
	}

	rs, err := p.Eval(context.Background(), "rule", []byte("abc"), TrackAllocations(true))
	if err != nil {
		t.Fatal(err)
	}

	if rs.Allocations == nil || rs.Allocations.Frames != 1 || rs.Allocations.Ops == 0 {
		t.Fatalf("Unexpected allocations: %+v", rs.Allocations)
	}

	stats, err := p.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(rs.Allocations, stats.Allocations); diff != "" {
		t.Fatalf("Stats allocations mismatch (-want +got):\n%v", diff)
	}
	if !strings.Contains(stats.String(), "1 frames") {
		t.Fatalf("Unexpected stats: %v", stats)
	}

	rs, err = p.Eval(context.Background(), "rule", []byte("abc"))
	if err != nil {
		t.Fatal(err)
	}
	if rs.Allocations != nil {
		t.Fatalf("Expected no allocations without tracking, got %+v", rs.Allocations)
	}
}

func TestPartial(t *testing.T) {
	p, err := CompileRule("word:[a-z]+")
	if err != nil {
		t.Fatal(err)
	}

	rs, err := p.Eval(context.Background(), "rule", []byte("abc def"), Partial(true))
	if err != nil {
		t.Fatal(err)
	}
	if rs.Failure != nil || rs.End != 3 {
		t.Fatalf("Expected partial match up to 3 but got %+v", rs)
	}
	if diff := cmp.Diff(map[string]any{"word": "abc"}, rs.Value); diff != "" {
		t.Fatalf("Value mismatch (-want +got):\n%v", diff)
	}
}

func TestOptimizeEquivalent(t *testing.T) {
	src := `
		rule expr
			left:expr '-' right:num / num:num
		end
		rule num
			[0-9]+
		end
	`

	plain, err := CompileGrammar(src)
	if err != nil {
		t.Fatal(err)
	}
	optimized, err := CompileGrammar(src, Optimize(true))
	if err != nil {
		t.Fatal(err)
	}

	for _, input := range []string{"1", "1-2", "10-20-30", "1-", "-"} {
		t.Run(input, func(t *testing.T) {
			a, errA := plain.Eval(context.Background(), "expr", []byte(input))
			b, errB := optimized.Eval(context.Background(), "expr", []byte(input))
			if errA != nil || errB != nil {
				t.Fatal(errA, errB)
			}
			if diff := cmp.Diff(a, b); diff != "" {
				t.Fatalf("Optimized result differs (-plain +optimized):\n%v", diff)
			}
		})
	}
}

func TestConcurrentMatches(t *testing.T) {
	p, err := CompileRule("list:( char:( 'a' / 'b' / 'c' ) )*")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Build(); err != nil {
		t.Fatal(err)
	}

	exp := map[string]any{"list": []any{
		map[string]any{"char": "a"},
		map[string]any{"char": "b"},
		map[string]any{"char": "c"},
	}}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := p.Match(context.Background(), "rule", []byte("abc"))
			if err != nil {
				errs <- err
				return
			}
			if diff := cmp.Diff(exp, v); diff != "" {
				errs <- errors.New(diff)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestCancellation(t *testing.T) {
	p, err := CompileGrammar(`
		rule items
			item*
		end
		rule item
			'a'
		end
	`)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Match(ctx, "items", []byte(strings.Repeat("a", 4096)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected cancellation but got %v", err)
	}
}

func TestLoggingAndMetrics(t *testing.T) {
	logger := test.New()
	logger.SetLevel(logging.Debug)
	m := metrics.New()

	p, err := CompileGrammar(`
		rule expr
			expr '+' 'x' / 'x'
		end
	`, Logger(logger), Metrics(m))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.Parse(context.Background(), []byte("x+x")); err != nil {
		t.Fatal(err)
	}

	for _, msg := range []string{"Compiled grammar.", `Rule "expr" is left-recursive`, "Built routines in"} {
		if _, ok := logger.Find(msg); !ok {
			t.Errorf("Expected log message %q in %v", msg, logger.Entries())
		}
	}

	if e, _ := logger.Find("Built routines in"); e.Fields["roots"] != "expr" || e.Level != logging.Debug {
		t.Errorf("Unexpected entry: %+v", e)
	}

	all := m.All()
	for _, key := range []string{
		"timer_" + metrics.CompileParse + "_ns",
		"timer_" + metrics.BuildPlan + "_ns",
		"timer_" + metrics.MatchEval + "_ns",
		"counter_" + metrics.MatchOps,
	} {
		if _, ok := all[key]; !ok {
			t.Errorf("Expected metric %v in %v", key, all)
		}
	}
}

func TestTypes(t *testing.T) {
	p, err := CompileGrammar(`
		rule test
			a:'a' 'b'
		end
		rule silent
			'x'
		end
	`)
	if err != nil {
		t.Fatal(err)
	}

	ts := p.Types()
	if ts["silent"] != nil {
		t.Fatalf("Expected no value shape for silent rule but got %v", ts["silent"])
	}
	if ts["test"] == nil {
		t.Fatal("Expected value shape for test rule")
	}

	v, err := p.Match(context.Background(), "silent", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]any{}, v); diff != "" {
		t.Fatalf("Value mismatch (-want +got):\n%v", diff)
	}
}

func TestCache(t *testing.T) {
	c, err := NewCache(2)
	if err != nil {
		t.Fatal(err)
	}

	a1, err := c.CompileRule("'a'")
	if err != nil {
		t.Fatal(err)
	}
	a2, err := c.CompileRule("'a'")
	if err != nil {
		t.Fatal(err)
	}
	if a1 != a2 {
		t.Fatal("Expected cached parser to be returned")
	}

	if _, err := c.CompileGrammar("rule x\n'a'\nend"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CompileRule("'b'"); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Fatalf("Expected 2 cached parsers but got %d", c.Len())
	}

	a3, err := c.CompileRule("'a'")
	if err != nil {
		t.Fatal(err)
	}
	if a3 == a1 {
		t.Fatal("Expected evicted parser to be recompiled")
	}

	if _, err := c.CompileRule("'a' ("); err == nil {
		t.Fatal("Expected compile error")
	}

	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("Expected empty cache but got %d", c.Len())
	}
}
