// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package repl

import "fmt"

// Error is the error type returned by the REPL.
type Error struct {
	Code    string
	Message string
}

func (err *Error) Error() string {
	return fmt.Sprintf("%v: %v", err.Code, err.Message)
}

const (
	// BadArgsErr indicates bad arguments were provided to a built-in REPL
	// command.
	BadArgsErr string = "bad arguments"

	// UnknownRuleErr indicates a rule that is not defined by the grammar was
	// selected.
	UnknownRuleErr string = "unknown rule"
)

// stop is returned by the exit command to end the loop.
type stop struct{}

func (stop) Error() string {
	return "<stop>"
}
