// Copyright 2019 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package output

import (
	"context"
	"fmt"
	"strings"
)

// Origin identifies the grammar location of a code fragment.
type Origin struct {
	File string
	Line int
}

func (o Origin) String() string {
	if o.File == "" {
		return fmt.Sprintf("line %d", o.Line)
	}
	return fmt.Sprintf("%v:%d", o.File, o.Line)
}

// Scope constructs the objects and evaluates the code fragments referenced by
// a grammar.
type Scope interface {
	NewObject(ctx context.Context, class []string, data any) (any, error)
	EvalValue(ctx context.Context, code string, data any, origin Origin) (any, error)
}

// Realize returns a copy of the intermediate value v in which all deferred
// objects and computed values have been replaced by the results of the scope.
// Data is realized before it is passed to the scope. The intermediate value is
// not modified, so it can be realized repeatedly.
func Realize(ctx context.Context, v any, scope Scope) (any, error) {
	switch v := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, x := range v {
			r, err := Realize(ctx, x, scope)
			if err != nil {
				return nil, err
			}
			result[k] = r
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, x := range v {
			r, err := Realize(ctx, x, scope)
			if err != nil {
				return nil, err
			}
			result[i] = r
		}
		return result, nil

	case *ObjectData:
		if scope == nil {
			return nil, fmt.Errorf("%w: no scope to create <%v>", ErrRealization, strings.Join(v.Class, "::"))
		}
		data, err := Realize(ctx, v.Data, scope)
		if err != nil {
			return nil, err
		}
		obj, err := scope.NewObject(ctx, v.Class, data)
		if err != nil {
			return nil, fmt.Errorf("%w: <%v>: %w", ErrRealization, strings.Join(v.Class, "::"), err)
		}
		return obj, nil

	case *ValueData:
		if scope == nil {
			return nil, fmt.Errorf("%w: no scope to evaluate {%v}", ErrRealization, v.Code)
		}
		data, err := Realize(ctx, v.Data, scope)
		if err != nil {
			return nil, err
		}
		origin := Origin{File: v.File, Line: v.Line}
		val, err := scope.EvalValue(ctx, v.Code, data, origin)
		if err != nil {
			return nil, fmt.Errorf("%w: %v: {%v}: %w", ErrRealization, origin, strings.TrimSpace(v.Code), err)
		}
		return val, nil
	}

	return v, nil
}
