// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ir

import (
	"fmt"
	"io"
	"strings"
)

// Pretty writes a human-readable representation of an IR object to w.
func Pretty(w io.Writer, x any) error {
	pp := &prettyPrinter{
		depth: -1,
		w:     w,
	}
	return Walk(pp, x)
}

type prettyPrinter struct {
	depth int
	w     io.Writer
	funcs []string
}

func (pp *prettyPrinter) Before(_ any) {
	pp.depth++
}

func (pp *prettyPrinter) After(_ any) {
	pp.depth--
}

func (pp *prettyPrinter) Visit(x any) (Visitor, error) {
	switch x := x.(type) {
	case *Program:
		pp.funcs = make([]string, len(x.Funcs))
		for i, fn := range x.Funcs {
			pp.funcs[i] = fn.Name
		}
		if len(x.Modes) > 0 {
			pp.writeIndent("modes %v", strings.Join(x.Modes, ", "))
		}
	case *Func:
		pp.writeIndent("func %v(params=%v locals=%d slots=%d value=%v)", x.Name, x.Params, x.Locals, x.Slots, x.Value)
	case *Block:
		if x.Label != "" {
			pp.writeIndent("b%d: # %v", x.Index, x.Label)
		} else {
			pp.writeIndent("b%d:", x.Index)
		}
	case Stmt:
		pp.writeIndent("%v", pp.stmt(x))
		return nil, nil
	}
	return pp, nil
}

func (pp *prettyPrinter) funcName(i int) string {
	if i >= 0 && i < len(pp.funcs) {
		return pp.funcs[i]
	}
	return fmt.Sprintf("f%d", i)
}

func (pp *prettyPrinter) stmt(s Stmt) string {
	switch s := s.(type) {
	case *CallStmt:
		return fmt.Sprintf("l%d = call %v(l%d%v) -> b%d, b%d", s.Target, pp.funcName(s.Func), s.Pos, slotList(s.Args), s.Success, s.Failure)
	}
	return StmtString(s)
}

// StmtString returns a human-readable representation of a statement.
func StmtString(s Stmt) string {
	switch s := s.(type) {
	case *AssignIntStmt:
		return fmt.Sprintf("l%d = %d", s.Target, s.Value)
	case *AssignVarStmt:
		return fmt.Sprintf("l%d = l%d", s.Target, s.Source)
	case *IncrementStmt:
		return fmt.Sprintf("l%d++", s.Target)
	case *PhiStmt:
		parts := make([]string, len(s.Edges))
		for i, e := range s.Edges {
			parts[i] = fmt.Sprintf("b%d: l%d", e.Block, e.Source)
		}
		return fmt.Sprintf("l%d = phi(%v)", s.Target, strings.Join(parts, ", "))
	case *MarkStmt:
		return fmt.Sprintf("l%d = mark", s.Target)
	case *ResetStmt:
		return fmt.Sprintf("reset l%d", s.Mark)
	case *CaptureStmt:
		return fmt.Sprintf("s%d = capture l%d", s.Target, s.Mark)
	case *LoadStmt:
		return fmt.Sprintf("load s%d", s.Source)
	case *EmitNilStmt:
		return "emit nil"
	case *EmitBooleanStmt:
		return fmt.Sprintf("emit %v", s.Value)
	case *EmitRangeStmt:
		return fmt.Sprintf("emit range l%d l%d", s.From, s.To)
	case *EmitLabelStmt:
		return fmt.Sprintf("emit label %q", s.Name)
	case *EmitMergeStmt:
		return fmt.Sprintf("emit merge %d", s.Count)
	case *EmitArrayStmt:
		return fmt.Sprintf("emit array l%d", s.Count)
	case *EmitObjectStmt:
		return fmt.Sprintf("emit object %v", strings.Join(s.Class, "::"))
	case *EmitValueStmt:
		return fmt.Sprintf("emit value {%v}", s.Code)
	case *ExpectStmt:
		return fmt.Sprintf("expect l%d %q", s.Pos, s.Text)
	case *ReasonStmt:
		return fmt.Sprintf("reason l%d %q", s.Pos, s.Text)
	case *MuteStmt:
		return "mute"
	case *UnmuteStmt:
		return "unmute"
	case *SetModeStmt:
		if s.Enable {
			return fmt.Sprintf("mode %d on", s.Mode)
		}
		return fmt.Sprintf("mode %d off", s.Mode)
	case *JumpStmt:
		return fmt.Sprintf("jump b%d", s.Target)
	case *IfStmt:
		return fmt.Sprintf("if %v -> b%d, b%d", CondString(s.Cond), s.Then, s.Else)
	case *MatchStmt:
		return fmt.Sprintf("l%d = match %v at l%d -> b%d, b%d", s.Target, s.Matcher, s.Pos, s.Success, s.Failure)
	case *CallStmt:
		return fmt.Sprintf("l%d = call f%d(l%d%v) -> b%d, b%d", s.Target, s.Func, s.Pos, slotList(s.Args), s.Success, s.Failure)
	case *ReturnStmt:
		return fmt.Sprintf("return l%d", s.Value)
	case *ReturnFailStmt:
		return "return fail"
	}
	return fmt.Sprintf("%T", s)
}

// CondString returns a human-readable representation of a condition.
func CondString(c Cond) string {
	switch c := c.(type) {
	case *EqualCond:
		return fmt.Sprintf("l%d == l%d", c.A, c.B)
	case *LessCond:
		return fmt.Sprintf("l%d < l%d", c.A, c.B)
	case *DefinedCond:
		return fmt.Sprintf("defined l%d", c.A)
	case *FlagCond:
		return fmt.Sprintf("l%d", c.A)
	case *ModeCond:
		return fmt.Sprintf("mode %d", c.Mode)
	}
	return fmt.Sprintf("%T", c)
}

func slotList(slots []Slot) string {
	var sb strings.Builder
	for _, s := range slots {
		fmt.Fprintf(&sb, ", s%d", s)
	}
	return sb.String()
}

func (pp *prettyPrinter) writeIndent(f string, a ...any) {
	pad := strings.Repeat("  ", pp.depth)
	pp.write(pad+f, a...)
}

func (pp *prettyPrinter) write(f string, a ...any) {
	fmt.Fprintf(pp.w, f+"\n", a...)
}
