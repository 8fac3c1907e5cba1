// Copyright 2019 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package peg

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrUnknownRule is returned when a match names a rule the grammar does not
// define.
var ErrUnknownRule = errors.New("unknown rule")

// contextSize is the number of input bytes preceding the failure position
// that are included in the error message.
const contextSize = 20

// noReason is reported when a match failed without attempting a terminal at
// the failure position, e.g. inside a negative lookahead.
const noReason = "No alternative matched"

// ParsingError is returned when no production of the grammar matched the
// input. It describes the furthest position any terminal was attempted at.
type ParsingError struct {
	Input        []byte   `json:"-"`
	Position     int      `json:"position"`
	Expectations []string `json:"expectations,omitempty"`
	OtherReasons []string `json:"other_reasons,omitempty"`
}

// NewParsingError returns a parsing error for the given position. The
// expectations and reasons are sorted and de-duplicated.
func NewParsingError(input []byte, pos int, expectations, reasons []string) *ParsingError {
	return &ParsingError{
		Input:        input,
		Position:     pos,
		Expectations: uniq(expectations),
		OtherReasons: uniq(reasons),
	}
}

func uniq(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	cpy := slices.Clone(s)
	slices.Sort(cpy)
	return slices.Compact(cpy)
}

// Merge returns an error holding the union of the reasons of e and other. The
// position and input of e are kept.
func (e *ParsingError) Merge(other *ParsingError) *ParsingError {
	if other == nil {
		return e
	}
	return NewParsingError(e.Input, e.Position,
		append(slices.Clone(e.Expectations), other.Expectations...),
		append(slices.Clone(e.OtherReasons), other.OtherReasons...))
}

// Line returns the 1-based line of the failure position.
func (e *ParsingError) Line() int {
	return bytes.Count(e.before(), []byte{'\n'}) + 1
}

// Column returns the 1-based column of the failure position, counted in
// bytes.
func (e *ParsingError) Column() int {
	before := e.before()
	return len(before) - bytes.LastIndexByte(before, '\n')
}

func (e *ParsingError) before() []byte {
	pos := min(max(e.Position, 0), len(e.Input))
	return e.Input[:pos]
}

// Reasons returns the explicit reasons followed by the summary of the
// expectations.
func (e *ParsingError) Reasons() []string {
	reasons := slices.Clone(e.OtherReasons)
	if len(e.Expectations) > 0 {
		quoted := make([]string, len(e.Expectations))
		for i, x := range e.Expectations {
			q := strconv.Quote(x)
			quoted[i] = q[1 : len(q)-1]
		}
		reasons = append(reasons, "Expected one of "+strings.Join(quoted, ", "))
	}
	return reasons
}

func (e *ParsingError) Error() string {
	before := e.before()
	if len(before) > contextSize {
		before = before[len(before)-contextSize:]
	}
	reasons := e.Reasons()
	if len(reasons) == 0 {
		reasons = []string{noReason}
	}
	return fmt.Sprintf("At line %d, column %d (byte %d, after %q): %v.",
		e.Line(), e.Column(), e.Position, before, strings.Join(reasons, " / "))
}

// IsParsingError returns true if err is or wraps a *ParsingError.
func IsParsingError(err error) bool {
	var pe *ParsingError
	return errors.As(err, &pe)
}
