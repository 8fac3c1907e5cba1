// Copyright 2019 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package scope implements the environments that create the objects and
// evaluate the code fragments of a grammar when a match is realized.
package scope

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/open-peg/pegc/internal/levenshtein"
	"github.com/open-peg/pegc/output"
)

var (
	// ErrUndefinedClass is returned when a scope has no constructor for a
	// class.
	ErrUndefinedClass = errors.New("undefined class")

	// ErrUndefinedValue is returned when a scope cannot evaluate a code
	// fragment.
	ErrUndefinedValue = errors.New("undefined value")
)

// ClassPath returns the textual form of a class path.
func ClassPath(class []string) string {
	return strings.Join(class, "::")
}

// Constructor creates an object from the data captured for it.
type Constructor func(ctx context.Context, data any) (any, error)

// ValueFunc computes a value from the data captured for it.
type ValueFunc func(ctx context.Context, data any, origin output.Origin) (any, error)

// Map is a scope backed by registered Go functions. Classes are keyed by
// their path, e.g., "Ast::Number". Values are keyed by their code with
// surrounding white space removed.
type Map struct {
	classes map[string]Constructor
	values  map[string]ValueFunc
}

// NewMap returns an empty Map scope.
func NewMap() *Map {
	return &Map{
		classes: map[string]Constructor{},
		values:  map[string]ValueFunc{},
	}
}

// WithClass registers the constructor for a class path.
func (m *Map) WithClass(path string, c Constructor) *Map {
	m.classes[path] = c
	return m
}

// WithValue registers the function for a code fragment.
func (m *Map) WithValue(code string, f ValueFunc) *Map {
	m.values[strings.TrimSpace(code)] = f
	return m
}

// NewObject implements output.Scope.
func (m *Map) NewObject(ctx context.Context, class []string, data any) (any, error) {
	path := ClassPath(class)
	c, ok := m.classes[path]
	if !ok {
		names := slices.Sorted(maps.Keys(m.classes))
		return nil, fmt.Errorf("%w %v%v", ErrUndefinedClass, path, levenshtein.Hint(path, names))
	}
	return c(ctx, data)
}

// EvalValue implements output.Scope.
func (m *Map) EvalValue(ctx context.Context, code string, data any, origin output.Origin) (any, error) {
	f, ok := m.values[strings.TrimSpace(code)]
	if !ok {
		return nil, fmt.Errorf("%w {%v}", ErrUndefinedValue, strings.TrimSpace(code))
	}
	return f(ctx, data, origin)
}

// Tagged is a scope that represents objects as records holding the class path
// and the data. It evaluates no code.
type Tagged struct{}

// NewObject implements output.Scope.
func (Tagged) NewObject(_ context.Context, class []string, data any) (any, error) {
	return map[string]any{
		"class": ClassPath(class),
		"data":  data,
	}, nil
}

// EvalValue implements output.Scope.
func (Tagged) EvalValue(_ context.Context, code string, _ any, _ output.Origin) (any, error) {
	return nil, fmt.Errorf("%w {%v}", ErrUndefinedValue, strings.TrimSpace(code))
}

// Chain is a scope that consults several scopes in order. A scope that does
// not define a class or value passes it on to the next one.
type Chain []output.Scope

// NewObject implements output.Scope.
func (c Chain) NewObject(ctx context.Context, class []string, data any) (any, error) {
	err := fmt.Errorf("%w %v", ErrUndefinedClass, ClassPath(class))
	for _, s := range c {
		obj, e := s.NewObject(ctx, class, data)
		if e == nil {
			return obj, nil
		}
		if !errors.Is(e, ErrUndefinedClass) {
			return nil, e
		}
		err = e
	}
	return nil, err
}

// EvalValue implements output.Scope.
func (c Chain) EvalValue(ctx context.Context, code string, data any, origin output.Origin) (any, error) {
	err := fmt.Errorf("%w {%v}", ErrUndefinedValue, strings.TrimSpace(code))
	for _, s := range c {
		v, e := s.EvalValue(ctx, code, data, origin)
		if e == nil {
			return v, nil
		}
		if !errors.Is(e, ErrUndefinedValue) {
			return nil, e
		}
		err = e
	}
	return nil, err
}
