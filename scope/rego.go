// Copyright 2019 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package scope

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/open-peg/pegc/output"
)

// DefaultRegoCacheSize is the number of prepared queries a Rego scope keeps.
const DefaultRegoCacheSize = 128

// Rego is a scope that evaluates code fragments as Rego queries. The data
// captured for a fragment is bound to input. The value of the last expression
// of the first result is returned.
//
//	sum := a:[0-9] '+' b:[0-9] { to_number(input.a) + to_number(input.b) }
type Rego struct {
	cache  *lru.Cache[string, rego.PreparedEvalQuery]
	strict bool
}

// RegoOption configures a Rego scope.
type RegoOption func(*Rego)

// RegoCacheSize sets the number of prepared queries kept by the scope.
func RegoCacheSize(n int) RegoOption {
	return func(r *Rego) {
		if n > 0 {
			r.cache, _ = lru.New[string, rego.PreparedEvalQuery](n)
		}
	}
}

// RegoStrict makes built-in function errors fail the evaluation.
func RegoStrict(yes bool) RegoOption {
	return func(r *Rego) {
		r.strict = yes
	}
}

// NewRego returns a new Rego scope.
func NewRego(opts ...RegoOption) *Rego {
	r := &Rego{}
	r.cache, _ = lru.New[string, rego.PreparedEvalQuery](DefaultRegoCacheSize)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewObject implements output.Scope. Rego scopes define no classes.
func (*Rego) NewObject(_ context.Context, class []string, _ any) (any, error) {
	return nil, fmt.Errorf("%w %v", ErrUndefinedClass, ClassPath(class))
}

// EvalValue implements output.Scope.
func (r *Rego) EvalValue(ctx context.Context, code string, data any, origin output.Origin) (any, error) {
	query := strings.TrimSpace(code)

	pq, ok := r.cache.Get(query)
	if !ok {
		var err error
		pq, err = rego.New(
			rego.Query(query),
			rego.StrictBuiltinErrors(r.strict),
		).PrepareForEval(ctx)
		if err != nil {
			return nil, err
		}
		r.cache.Add(query, pq)
	}

	rs, err := pq.Eval(ctx, rego.EvalInput(data))
	if err != nil {
		return nil, err
	}

	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, fmt.Errorf("%v: undefined result", origin)
	}

	exprs := rs[0].Expressions
	return exprs[len(exprs)-1].Value, nil
}

// Len returns the number of prepared queries in the cache.
func (r *Rego) Len() int {
	return r.cache.Len()
}
