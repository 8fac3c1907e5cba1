// Copyright 2019 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package output

import (
	"fmt"
)

// ObjectData is a deferred object: the class is instantiated with the data
// when the value is realized.
type ObjectData struct {
	Class []string `json:"class"`
	Data  any      `json:"data"`
}

// ValueData is a deferred computed value: the code is evaluated with the data
// when the value is realized.
type ValueData struct {
	Code string `json:"code"`
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Data any    `json:"data"`
}

// Intermediate executes the operations and returns the value they construct.
// Input ranges become strings, labels and merges become maps, arrays become
// slices. Objects and computed values are returned as *ObjectData and
// *ValueData. If the operations construct no value, the result is nil.
func Intermediate(ops []Op, input []byte) (any, error) {
	var stack []any

	pop := func(n int) ([]any, error) {
		if n < 0 || n > len(stack) {
			return nil, fmt.Errorf("%w: stack underflow (need %d, have %d)", ErrRealization, n, len(stack))
		}
		vs := stack[len(stack)-n:]
		stack = stack[:len(stack)-n]
		return vs, nil
	}

	for i, op := range ops {
		switch op.Code {
		case OpNil:
			stack = append(stack, nil)
		case OpInputRange:
			if op.From < 0 || op.To < op.From || op.To > len(input) {
				return nil, fmt.Errorf("%w: op %d: range %d..%d outside input", ErrRealization, i, op.From, op.To)
			}
			stack = append(stack, string(input[op.From:op.To]))
		case OpBoolean:
			stack = append(stack, op.From != 0)
		case OpLabel:
			vs, err := pop(1)
			if err != nil {
				return nil, err
			}
			stack = append(stack, map[string]any{op.Name: vs[0]})
		case OpMerge:
			vs, err := pop(op.From)
			if err != nil {
				return nil, err
			}
			merged, err := merge(vs)
			if err != nil {
				return nil, fmt.Errorf("op %d: %w", i, err)
			}
			stack = append(stack, merged)
		case OpArray:
			vs, err := pop(op.From)
			if err != nil {
				return nil, err
			}
			stack = append(stack, append(make([]any, 0, len(vs)), vs...))
		case OpObject:
			vs, err := pop(1)
			if err != nil {
				return nil, err
			}
			stack = append(stack, &ObjectData{Class: op.Class, Data: vs[0]})
		case OpValue:
			vs, err := pop(1)
			if err != nil {
				return nil, err
			}
			stack = append(stack, &ValueData{Code: op.Name, File: op.File, Line: op.Line, Data: vs[0]})
		default:
			return nil, fmt.Errorf("%w: op %d: illegal code %v", ErrRealization, i, op.Code)
		}
	}

	switch len(stack) {
	case 0:
		return nil, nil
	case 1:
		return stack[0], nil
	}
	return nil, fmt.Errorf("%w: %d values left on stack", ErrRealization, len(stack))
}

// merge combines records into one. Nil values stand for absent records. If a
// key occurs more than once, a non-nil value takes precedence over nil,
// otherwise the later value wins.
func merge(vs []any) (any, error) {
	result := map[string]any{}
	for _, v := range vs {
		switch v := v.(type) {
		case nil:
		case map[string]any:
			for k, x := range v {
				if prev, ok := result[k]; ok && x == nil && prev != nil {
					continue
				}
				result[k] = x
			}
		default:
			return nil, fmt.Errorf("%w: cannot merge %T into a record", ErrRealization, v)
		}
	}
	return result, nil
}
