// Copyright 2019 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package output implements the operation log recorded while matching and the
// conversion of the log into values.
package output

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRealization is returned when an operation log cannot be converted into a
// value.
var ErrRealization = errors.New("realization error")

// OpCode identifies the kind of a value construction operation.
type OpCode uint8

// Value construction operations.
const (
	OpNil OpCode = iota
	OpInputRange
	OpBoolean
	OpLabel
	OpMerge
	OpArray
	OpObject
	OpValue
)

var opNames = [...]string{
	OpNil:        "nil",
	OpInputRange: "range",
	OpBoolean:    "boolean",
	OpLabel:      "label",
	OpMerge:      "merge",
	OpArray:      "array",
	OpObject:     "object",
	OpValue:      "value",
}

func (c OpCode) String() string {
	if int(c) < len(opNames) {
		return opNames[c]
	}
	return fmt.Sprintf("op(%d)", c)
}

// Op is a value construction operation. The meaning of the fields depends on
// the code:
//
//	OpInputRange  From, To: byte offsets into the input
//	OpBoolean     From: 1 for true, 0 for false
//	OpLabel       Name: the label
//	OpMerge       From: number of values merged
//	OpArray       From: number of elements
//	OpObject      Class: the class path
//	OpValue       Name: the code, File and Line: its origin
type Op struct {
	Code  OpCode   `json:"code"`
	From  int      `json:"from,omitempty"`
	To    int      `json:"to,omitempty"`
	Name  string   `json:"name,omitempty"`
	Class []string `json:"class,omitempty"`
	File  string   `json:"file,omitempty"`
	Line  int      `json:"line,omitempty"`
}

func (op Op) String() string {
	switch op.Code {
	case OpInputRange:
		return fmt.Sprintf("range %d %d", op.From, op.To)
	case OpBoolean:
		return fmt.Sprintf("boolean %v", op.From != 0)
	case OpLabel:
		return fmt.Sprintf("label %q", op.Name)
	case OpMerge, OpArray:
		return fmt.Sprintf("%v %d", op.Code, op.From)
	case OpObject:
		return fmt.Sprintf("object %v", strings.Join(op.Class, "::"))
	case OpValue:
		return fmt.Sprintf("value {%v}", op.Name)
	}
	return op.Code.String()
}

// Log is an append-only sequence of operations that can be truncated to an
// earlier length.
type Log struct {
	ops []Op
}

// NewLog returns a new empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds op to the end of the log.
func (l *Log) Append(op Op) {
	l.ops = append(l.ops, op)
}

// AppendAll adds ops to the end of the log.
func (l *Log) AppendAll(ops []Op) {
	l.ops = append(l.ops, ops...)
}

// Mark returns the current length of the log.
func (l *Log) Mark() int {
	return len(l.ops)
}

// Reset truncates the log to a length returned by Mark.
func (l *Log) Reset(mark int) {
	l.ops = l.ops[:mark]
}

// Span returns a copy of the operations appended since mark.
func (l *Log) Span(mark int) []Op {
	if mark >= len(l.ops) {
		return nil
	}
	return append([]Op(nil), l.ops[mark:]...)
}

// Len returns the number of operations in the log.
func (l *Log) Len() int {
	return len(l.ops)
}

// Ops returns the operations in the log. The caller must not modify the
// result.
func (l *Log) Ops() []Op {
	return l.ops
}

// Pointer is the raw result of a match: the operation log and the range of the
// input that was matched.
type Pointer struct {
	Input []byte `json:"-"`
	Ops   []Op   `json:"ops"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}
