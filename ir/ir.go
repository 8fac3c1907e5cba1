// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package ir defines an intermediate representation (IR) for compiled
// grammars.
//
// The IR is a control flow graph per rule. Each function consists of basic
// blocks; every block ends with a terminator statement that transfers control
// to another block or returns from the function. Backtracking is expressed
// with explicit failure blocks: an expression that fails branches to the
// failure block chosen by its caller.
//
// Functions operate on two kinds of variables. Locals hold integers (input
// positions, counters, marks into the output log and flags). Slots hold spans
// of output operations captured from the log, e.g., the value of a local
// label.
package ir

import (
	"fmt"
)

type (
	// Program represents a set of compiled rules.
	Program struct {
		Funcs []*Func  `json:"funcs"`
		Modes []string `json:"modes,omitempty"`
	}

	// Func represents the matching routine of a rule. Functions are called
	// with a start position and a mode set and return the end position of
	// the match or fail. On success, functions that produce a value have
	// appended the operations constructing exactly one value to the log.
	Func struct {
		Name   string   `json:"name"`
		Index  int      `json:"index"`
		Params []Slot   `json:"params,omitempty"`
		Locals int      `json:"locals"`
		Slots  int      `json:"slots"`
		Value  bool     `json:"value"`
		Blocks []*Block `json:"blocks"`
	}

	// Block represents a basic block. The last statement of a block is a
	// terminator.
	Block struct {
		Index int    `json:"index"`
		Label string `json:"label,omitempty"`
		Stmts []Stmt `json:"stmts"`
	}

	// Stmt represents an operation to execute.
	Stmt interface {
		stmtMarker()
	}

	// Terminator represents a statement that ends a block.
	Terminator interface {
		Stmt
		Successors() []int
	}

	// Local represents a function-scoped integer variable.
	Local int

	// Slot represents a function-scoped variable holding captured output
	// operations.
	Slot int
)

const (
	// Start is the local holding the position a function was called at.
	Start Local = 0

	// Modes is the local holding the active mode flags.
	Modes Local = 1

	// Unused is the first free local that can be allocated in a function.
	Unused Local = 2
)

// Undefined is the value of a position local that has not been set.
const Undefined = -1

func (a *Program) String() string {
	return fmt.Sprintf("Program (%d funcs)", len(a.Funcs))
}

func (a *Func) String() string {
	return fmt.Sprintf("%v (%d params, %d blocks)", a.Name, len(a.Params), len(a.Blocks))
}

func (a *Block) String() string {
	if a.Label != "" {
		return fmt.Sprintf("Block %d %v (%d statements)", a.Index, a.Label, len(a.Stmts))
	}
	return fmt.Sprintf("Block %d (%d statements)", a.Index, len(a.Stmts))
}

// Terminator returns the terminator of the block or nil if the block is not
// terminated.
func (a *Block) Terminator() Terminator {
	if len(a.Stmts) == 0 {
		return nil
	}
	t, _ := a.Stmts[len(a.Stmts)-1].(Terminator)
	return t
}

// Func returns the function with the given name or nil.
func (a *Program) Func(name string) *Func {
	for _, fn := range a.Funcs {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// AssignIntStmt represents an assignment of an integer value to a local
// variable.
type AssignIntStmt struct {
	Value  int64 `json:"value"`
	Target Local `json:"target"`
}

// AssignVarStmt represents an assignment of one local variable to another.
type AssignVarStmt struct {
	Source Local `json:"source"`
	Target Local `json:"target"`
}

// IncrementStmt increments a local variable by one.
type IncrementStmt struct {
	Target Local `json:"target"`
}

// PhiStmt assigns the target the value of the source local associated with
// the block control arrived from. Phi statements must precede all other
// statements of a block.
type PhiStmt struct {
	Target Local     `json:"target"`
	Edges  []PhiEdge `json:"edges"`
}

// PhiEdge associates a predecessor block with a source local.
type PhiEdge struct {
	Block  int   `json:"block"`
	Source Local `json:"source"`
}

// MarkStmt saves the current length of the output log into the target.
type MarkStmt struct {
	Target Local `json:"target"`
}

// ResetStmt truncates the output log to a length saved by a MarkStmt.
type ResetStmt struct {
	Mark Local `json:"mark"`
}

// CaptureStmt moves the operations appended to the log since the mark into
// the target slot.
type CaptureStmt struct {
	Mark   Local `json:"mark"`
	Target Slot  `json:"target"`
}

// LoadStmt appends the operations held by the source slot to the log. An
// empty slot appends a nil value.
type LoadStmt struct {
	Source Slot `json:"source"`
}

// EmitNilStmt appends a nil value to the log.
type EmitNilStmt struct{}

// EmitBooleanStmt appends a boolean value to the log.
type EmitBooleanStmt struct {
	Value bool `json:"value"`
}

// EmitRangeStmt appends the input range between two positions to the log.
type EmitRangeStmt struct {
	From Local `json:"from"`
	To   Local `json:"to"`
}

// EmitLabelStmt wraps the last value in a single-entry record.
type EmitLabelStmt struct {
	Name string `json:"name"`
}

// EmitMergeStmt merges the last Count values into one record.
type EmitMergeStmt struct {
	Count int `json:"count"`
}

// EmitArrayStmt collects the last Count values into an array.
type EmitArrayStmt struct {
	Count Local `json:"count"`
}

// EmitObjectStmt tags the last value with a class path.
type EmitObjectStmt struct {
	Class []string `json:"class"`
}

// EmitValueStmt tags the last value with a code fragment.
type EmitValueStmt struct {
	Code string `json:"code"`
	File string `json:"file,omitempty"`
	Row  int    `json:"row"`
}

// ExpectStmt records that the text was expected at the position.
type ExpectStmt struct {
	Pos  Local  `json:"pos"`
	Text string `json:"text"`
}

// ReasonStmt records an explicit failure reason at the position.
type ReasonStmt struct {
	Pos  Local  `json:"pos"`
	Text string `json:"text"`
}

// MuteStmt suspends failure tracking until the matching UnmuteStmt.
type MuteStmt struct{}

// UnmuteStmt resumes failure tracking.
type UnmuteStmt struct{}

// SetModeStmt sets or clears a mode flag in the Modes local.
type SetModeStmt struct {
	Mode   int  `json:"mode"`
	Enable bool `json:"enable"`
}

// JumpStmt transfers control to the target block.
type JumpStmt struct {
	Target int `json:"target"`
}

// IfStmt transfers control to Then if the condition holds and to Else
// otherwise.
type IfStmt struct {
	Cond Cond `json:"cond"`
	Then int  `json:"then"`
	Else int  `json:"else"`
}

// MatchStmt matches the input at Pos. On success the position after the match
// is stored in Target and control transfers to Success; otherwise control
// transfers to Failure.
type MatchStmt struct {
	Matcher Matcher `json:"matcher"`
	Pos     Local   `json:"pos"`
	Target  Local   `json:"target"`
	Success int     `json:"success"`
	Failure int     `json:"failure"`
}

// CallStmt calls a function at Pos. On success the end position is stored in
// Target and control transfers to Success; otherwise control transfers to
// Failure.
type CallStmt struct {
	Func    int    `json:"func"`
	Pos     Local  `json:"pos"`
	Args    []Slot `json:"args,omitempty"`
	Target  Local  `json:"target"`
	Success int    `json:"success"`
	Failure int    `json:"failure"`
}

// ReturnStmt returns the position held by the local as the end of a
// successful match.
type ReturnStmt struct {
	Value Local `json:"value"`
}

// ReturnFailStmt returns from the function indicating the match failed.
type ReturnFailStmt struct{}

// Cond represents a condition tested by an IfStmt.
type Cond interface {
	condMarker()
}

// EqualCond holds if two locals are equal.
type EqualCond struct {
	A Local `json:"a"`
	B Local `json:"b"`
}

// LessCond holds if A is less than B.
type LessCond struct {
	A Local `json:"a"`
	B Local `json:"b"`
}

// DefinedCond holds if the local is not Undefined.
type DefinedCond struct {
	A Local `json:"a"`
}

// FlagCond holds if the local is non-zero.
type FlagCond struct {
	A Local `json:"a"`
}

// ModeCond holds if the mode flag is set.
type ModeCond struct {
	Mode int `json:"mode"`
}

// Matcher represents a terminal tested by a MatchStmt.
type Matcher interface {
	matcherMarker()
	String() string
}

// LiteralMatcher matches a literal string, optionally ASCII
// case-insensitive.
type LiteralMatcher struct {
	Value string `json:"value"`
	Fold  bool   `json:"fold,omitempty"`
}

// ClassMatcher matches a single code point within (or, if inverted, outside)
// one of the ranges.
type ClassMatcher struct {
	Ranges   []RuneRange `json:"ranges"`
	Inverted bool        `json:"inverted,omitempty"`
}

// RuneRange is an inclusive range of code points.
type RuneRange struct {
	Lo rune `json:"lo"`
	Hi rune `json:"hi"`
}

// AnyMatcher matches any single code point.
type AnyMatcher struct{}

// SlotMatcher matches the input text of the range captured in a slot.
type SlotMatcher struct {
	Slot Slot `json:"slot"`
}

func (*AssignIntStmt) stmtMarker()   {}
func (*AssignVarStmt) stmtMarker()   {}
func (*IncrementStmt) stmtMarker()   {}
func (*PhiStmt) stmtMarker()         {}
func (*MarkStmt) stmtMarker()        {}
func (*ResetStmt) stmtMarker()       {}
func (*CaptureStmt) stmtMarker()     {}
func (*LoadStmt) stmtMarker()        {}
func (*EmitNilStmt) stmtMarker()     {}
func (*EmitBooleanStmt) stmtMarker() {}
func (*EmitRangeStmt) stmtMarker()   {}
func (*EmitLabelStmt) stmtMarker()   {}
func (*EmitMergeStmt) stmtMarker()   {}
func (*EmitArrayStmt) stmtMarker()   {}
func (*EmitObjectStmt) stmtMarker()  {}
func (*EmitValueStmt) stmtMarker()   {}
func (*ExpectStmt) stmtMarker()      {}
func (*ReasonStmt) stmtMarker()      {}
func (*MuteStmt) stmtMarker()        {}
func (*UnmuteStmt) stmtMarker()      {}
func (*SetModeStmt) stmtMarker()     {}
func (*JumpStmt) stmtMarker()        {}
func (*IfStmt) stmtMarker()          {}
func (*MatchStmt) stmtMarker()       {}
func (*CallStmt) stmtMarker()        {}
func (*ReturnStmt) stmtMarker()      {}
func (*ReturnFailStmt) stmtMarker()  {}

func (s *JumpStmt) Successors() []int       { return []int{s.Target} }
func (s *IfStmt) Successors() []int         { return []int{s.Then, s.Else} }
func (s *MatchStmt) Successors() []int      { return []int{s.Success, s.Failure} }
func (s *CallStmt) Successors() []int       { return []int{s.Success, s.Failure} }
func (s *ReturnStmt) Successors() []int     { return nil }
func (s *ReturnFailStmt) Successors() []int { return nil }

func (*EqualCond) condMarker()   {}
func (*LessCond) condMarker()    {}
func (*DefinedCond) condMarker() {}
func (*FlagCond) condMarker()    {}
func (*ModeCond) condMarker()    {}

func (*LiteralMatcher) matcherMarker() {}
func (*ClassMatcher) matcherMarker()   {}
func (*AnyMatcher) matcherMarker()     {}
func (*SlotMatcher) matcherMarker()    {}

func (m *LiteralMatcher) String() string {
	if m.Fold {
		return fmt.Sprintf("fold %q", m.Value)
	}
	return fmt.Sprintf("%q", m.Value)
}

func (m *ClassMatcher) String() string {
	s := "["
	if m.Inverted {
		s += "^"
	}
	for _, r := range m.Ranges {
		if r.Lo == r.Hi {
			s += fmt.Sprintf("%q", r.Lo)
		} else {
			s += fmt.Sprintf("%q-%q", r.Lo, r.Hi)
		}
	}
	return s + "]"
}

func (*AnyMatcher) String() string {
	return "any"
}

func (m *SlotMatcher) String() string {
	return fmt.Sprintf("slot %d", m.Slot)
}

// Contains returns true if the class matches c.
func (m *ClassMatcher) Contains(c rune) bool {
	in := false
	for _, r := range m.Ranges {
		if c >= r.Lo && c <= r.Hi {
			in = true
			break
		}
	}
	return in != m.Inverted
}
