// Copyright 2019 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package peg

import (
	"context"
	"fmt"

	"github.com/open-peg/pegc/internal/compiler/closure"
	"github.com/open-peg/pegc/metrics"
	"github.com/open-peg/pegc/output"
	"github.com/open-peg/pegc/scope"
)

// OutputMode selects the form of the value returned by a match.
type OutputMode string

const (
	// OutputRealized returns the value with objects and computed values
	// constructed by the class scope.
	OutputRealized OutputMode = "realized"

	// OutputIntermediate returns the value with objects and computed values
	// left as *output.ObjectData and *output.ValueData.
	OutputIntermediate OutputMode = "intermediate"

	// OutputPointer returns the raw operation log as *output.Pointer.
	OutputPointer OutputMode = "pointer"
)

type matchOptions struct {
	raise            bool
	output           OutputMode
	scope            output.Scope
	trackAllocations bool
	partial          bool
}

// MatchOption configures a single match.
type MatchOption func(*matchOptions)

// RaiseOnFailure controls whether a failed match returns a *ParsingError. If
// disabled, Match returns a nil value and no error. Enabled by default.
func RaiseOnFailure(yes bool) MatchOption {
	return func(o *matchOptions) {
		o.raise = yes
	}
}

// Output sets the form of the value returned by the match.
func Output(mode OutputMode) MatchOption {
	return func(o *matchOptions) {
		o.output = mode
	}
}

// ClassScope sets the scope that constructs objects and evaluates computed
// values during realization. By default objects are represented as tagged
// records and computed values are an error.
func ClassScope(s output.Scope) MatchOption {
	return func(o *matchOptions) {
		o.scope = s
	}
}

// TrackAllocations enables counting the allocations of the match. The counts
// are reported in the result and by Stats.
func TrackAllocations(yes bool) MatchOption {
	return func(o *matchOptions) {
		o.trackAllocations = yes
	}
}

// Partial allows the match to succeed without consuming the whole input.
func Partial(yes bool) MatchOption {
	return func(o *matchOptions) {
		o.partial = yes
	}
}

func newMatchOptions(opts []MatchOption) (*matchOptions, error) {
	o := &matchOptions{
		raise:  true,
		output: OutputRealized,
	}
	for _, opt := range opts {
		opt(o)
	}
	switch o.output {
	case OutputRealized, OutputIntermediate, OutputPointer:
	default:
		return nil, fmt.Errorf("invalid output option: %v", o.output)
	}
	if o.scope == nil {
		o.scope = scope.Tagged{}
	}
	return o, nil
}

// Result is the outcome of Eval. Exactly one of Value and Failure is
// meaningful: Failure is nil if the match succeeded.
type Result struct {
	Value       any
	Failure     *ParsingError
	Ops         []output.Op
	End         int
	Allocations *Allocations
}

// Match matches the whole input against the named rule and returns its value
// in the form selected by the options. Rules that produce no value yield an
// empty record.
func (p *Parser) Match(ctx context.Context, rule string, input []byte, opts ...MatchOption) (any, error) {
	o, err := newMatchOptions(opts)
	if err != nil {
		return nil, err
	}

	rs, err := p.eval(ctx, rule, input, o)
	if err != nil {
		return nil, err
	}

	if rs.Failure != nil {
		if o.raise {
			return nil, rs.Failure
		}
		return nil, nil
	}

	return rs.Value, nil
}

// Parse matches the input against the first rule of the grammar.
func (p *Parser) Parse(ctx context.Context, input []byte, opts ...MatchOption) (any, error) {
	return p.Match(ctx, p.grammar.Rules[0].Name, input, opts...)
}

// Eval matches the input against the named rule. A failed match is reported
// in the result rather than as an error, regardless of RaiseOnFailure.
func (p *Parser) Eval(ctx context.Context, rule string, input []byte, opts ...MatchOption) (*Result, error) {
	o, err := newMatchOptions(opts)
	if err != nil {
		return nil, err
	}
	return p.eval(ctx, rule, input, o)
}

func (p *Parser) eval(ctx context.Context, rule string, input []byte, o *matchOptions) (*Result, error) {
	prog, err := p.program(rule)
	if err != nil {
		return nil, err
	}

	p.metrics.Timer(metrics.MatchEval).Start()
	rs, err := prog.Run(ctx, rule, input, closure.RunOptions{
		Partial:          o.partial,
		TrackAllocations: o.trackAllocations,
	})
	p.metrics.Timer(metrics.MatchEval).Stop()
	if err != nil {
		return nil, err
	}

	p.metrics.Histogram(metrics.MatchInput).Update(int64(len(input)))

	if rs.Allocations != nil {
		p.setAllocations(rs.Allocations)
	}

	result := &Result{Allocations: rs.Allocations}

	if !rs.Matched {
		result.Failure = NewParsingError(input, rs.Failure.Position(), rs.Failure.Expectations(), rs.Failure.Reasons())
		return result, nil
	}

	result.Ops = rs.Ops
	result.End = rs.End
	p.metrics.Counter(metrics.MatchOps).Add(uint64(len(rs.Ops)))

	if o.output == OutputPointer {
		result.Value = &output.Pointer{Input: input, Ops: rs.Ops, Start: 0, End: rs.End}
		return result, nil
	}

	v, err := output.Intermediate(rs.Ops, input)
	if err != nil {
		return nil, err
	}
	if !p.types.RuleProduces(rule) {
		v = map[string]any{}
	}

	if o.output == OutputIntermediate {
		result.Value = v
		return result, nil
	}

	p.metrics.Timer(metrics.MatchRealize).Start()
	result.Value, err = output.Realize(ctx, v, o.scope)
	p.metrics.Timer(metrics.MatchRealize).Stop()
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", rule, err)
	}

	return result, nil
}
