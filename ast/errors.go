// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"fmt"
	"sort"
	"strings"
)

// Errors represents a series of errors encountered during parsing, compiling,
// etc.
type Errors []*Error

func (e Errors) Error() string {

	if len(e) == 0 {
		return "no error(s)"
	}

	if len(e) == 1 {
		return fmt.Sprintf("1 error occurred: %v", e[0].Error())
	}

	s := []string{}
	for _, err := range e {
		s = append(s, err.Error())
	}

	return fmt.Sprintf("%d errors occurred:\n%s", len(e), strings.Join(s, "\n"))
}

// Sort sorts the error slice by location. If the locations are equal then the
// error message is compared.
func (e Errors) Sort() {
	sort.Slice(e, func(i, j int) bool {
		a := e[i]
		b := e[j]

		if cmp := a.Location.Compare(b.Location); cmp != 0 {
			return cmp < 0
		}

		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}

		return a.Message < b.Message
	})
}

// ErrCode defines the types of errors returned during parsing, compiling, etc.
type ErrCode int

const (
	// ParseErr indicates a grammar source could not be parsed.
	ParseErr ErrCode = iota

	// CompileErr indicates an unclassified compile error occurred, e.g., an
	// undefined rule or local label.
	CompileErr

	// TypeErr indicates the value shapes of two expressions cannot be merged.
	TypeErr

	// RecursionErr indicates unsupported (indirect) left recursion was found
	// during compilation.
	RecursionErr
)

func (c ErrCode) String() string {
	switch c {
	case ParseErr:
		return "parse_error"
	case CompileErr:
		return "compile_error"
	case TypeErr:
		return "type_error"
	case RecursionErr:
		return "recursion_error"
	}
	return "unknown_error"
}

// IsError returns true if err is an AST error with code.
func IsError(code ErrCode, err error) bool {
	switch err := err.(type) {
	case *Error:
		return err.Code == code
	case Errors:
		for _, e := range err {
			if e.Code == code {
				return true
			}
		}
	}
	return false
}

// Error represents a single error caught during parsing or compiling. Rule is
// the name of the rule the offending expression belongs to, if known.
type Error struct {
	Code     ErrCode   `json:"code"`
	Location *Location `json:"location,omitempty"`
	Rule     string    `json:"rule,omitempty"`
	Message  string    `json:"message"`
	Details  []string  `json:"details,omitempty"`
}

func (e *Error) Error() string {

	msg := e.Message
	if e.Rule != "" {
		msg = fmt.Sprintf("In rule %q: %v", e.Rule, e.Message)
	}

	if e.Location == nil {
		return msg
	}

	prefix := ""

	if len(e.Location.File) > 0 {
		prefix += e.Location.File + ":" + fmt.Sprint(e.Location.Row)
	} else {
		prefix += fmt.Sprint(e.Location.Row) + ":" + fmt.Sprint(e.Location.Col)
	}

	return fmt.Sprintf("%v: %v", prefix, msg)
}

// NewError returns a new Error object.
func NewError(code ErrCode, loc *Location, f string, a ...any) *Error {
	return &Error{
		Code:     code,
		Location: loc,
		Message:  fmt.Sprintf(f, a...),
	}
}

// NewRuleError returns a new Error object attributed to the named rule.
func NewRuleError(code ErrCode, rule string, loc *Location, f string, a ...any) *Error {
	err := NewError(code, loc, f, a...)
	err.Rule = rule
	return err
}
