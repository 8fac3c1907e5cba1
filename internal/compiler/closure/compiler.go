// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package closure contains an IR->Go compiler backend. Every basic block is
// compiled into a Go closure that executes the statements of the block and
// returns the index of the next block.
package closure

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/open-peg/pegc/ir"
	"github.com/open-peg/pegc/output"
)

// ErrInvalidProgram is returned when an IR program violates the structural
// rules of the IR.
var ErrInvalidProgram = errors.New("invalid program")

const (
	exitReturn = -1
	exitFail   = -2
)

type stmtFunc func(*frame)

type blockFunc func(*frame) int

type function struct {
	name   string
	params int
	locals int
	slots  int
	value  bool
	blocks []blockFunc
}

// Program is a compiled IR program. Programs are immutable and can be run
// concurrently.
type Program struct {
	funcs []*function
	index map[string]int
	modes []string
	stats Stats
}

// Stats describes the size of a compiled program.
type Stats struct {
	Funcs  int `json:"funcs"`
	Blocks int `json:"blocks"`
	Stmts  int `json:"stmts"`
}

// Compiler implements an IR->closure compiler backend.
type Compiler struct {
	stages []func() error // compiler stages to execute
	errors []error        // compilation errors encountered

	prog *ir.Program // input program to compile
	out  *Program    // output program

	fn *ir.Func // function being compiled
}

// New returns a new compiler object.
func New() *Compiler {
	c := &Compiler{}
	c.stages = []func() error{
		c.initProgram,
		c.validateFuncs,
		c.compileFuncs,
	}
	return c
}

// WithProgram sets the program to compile.
func (c *Compiler) WithProgram(p *ir.Program) *Compiler {
	c.prog = p
	return c
}

// Compile returns a compiled program.
func (c *Compiler) Compile() (*Program, error) {
	for _, stage := range c.stages {
		if err := stage(); err != nil {
			return nil, err
		} else if len(c.errors) > 0 {
			return nil, errors.Join(c.errors...)
		}
	}
	return c.out, nil
}

// Compile compiles the IR program p.
func Compile(p *ir.Program) (*Program, error) {
	return New().WithProgram(p).Compile()
}

func (c *Compiler) initProgram() error {
	if c.prog == nil {
		return fmt.Errorf("%w: missing program", ErrInvalidProgram)
	}
	c.out = &Program{
		index: make(map[string]int, len(c.prog.Funcs)),
		modes: c.prog.Modes,
	}
	for i, fn := range c.prog.Funcs {
		if fn.Index != i {
			return fmt.Errorf("%w: func %q has index %d at position %d", ErrInvalidProgram, fn.Name, fn.Index, i)
		}
		c.out.index[fn.Name] = i
		c.out.funcs = append(c.out.funcs, &function{
			name:   fn.Name,
			params: len(fn.Params),
			locals: fn.Locals,
			slots:  fn.Slots,
			value:  fn.Value,
		})
	}
	return nil
}

func (c *Compiler) compileErr(f string, a ...any) {
	c.errors = append(c.errors, fmt.Errorf("%w: func %q: %v", ErrInvalidProgram, c.fn.Name, fmt.Sprintf(f, a...)))
}

func (c *Compiler) validateFuncs() error {
	for _, fn := range c.prog.Funcs {
		c.fn = fn
		c.validateFunc(fn)
	}
	return nil
}

func (c *Compiler) validateFunc(fn *ir.Func) {
	if len(fn.Blocks) == 0 {
		c.compileErr("no blocks")
		return
	}
	if fn.Locals < int(ir.Unused) {
		c.compileErr("%d locals, need at least %d", fn.Locals, ir.Unused)
	}

	block := func(i int) {
		if i < 0 || i >= len(fn.Blocks) {
			c.compileErr("illegal block index %d", i)
		}
	}
	local := func(l ir.Local) {
		if l < 0 || int(l) >= fn.Locals {
			c.compileErr("illegal local l%d", l)
		}
	}
	slot := func(s ir.Slot) {
		if s < 0 || int(s) >= fn.Slots {
			c.compileErr("illegal slot s%d", s)
		}
	}

	for i, b := range fn.Blocks {
		if b.Index != i {
			c.compileErr("block %d has index %d", i, b.Index)
		}
		if b.Terminator() == nil {
			c.compileErr("block %d is not terminated", i)
			continue
		}
		for j, s := range b.Stmts {
			if _, ok := s.(ir.Terminator); ok && j != len(b.Stmts)-1 {
				c.compileErr("block %d: terminator %v before end of block", i, ir.StmtString(s))
			}
			if _, ok := s.(*ir.PhiStmt); ok && j > 0 {
				if _, prev := b.Stmts[j-1].(*ir.PhiStmt); !prev {
					c.compileErr("block %d: phi after other statements", i)
				}
			}
			switch s := s.(type) {
			case *ir.AssignIntStmt:
				local(s.Target)
			case *ir.AssignVarStmt:
				local(s.Source)
				local(s.Target)
			case *ir.IncrementStmt:
				local(s.Target)
			case *ir.PhiStmt:
				local(s.Target)
				for _, e := range s.Edges {
					block(e.Block)
					local(e.Source)
				}
			case *ir.MarkStmt:
				local(s.Target)
			case *ir.ResetStmt:
				local(s.Mark)
			case *ir.CaptureStmt:
				local(s.Mark)
				slot(s.Target)
			case *ir.LoadStmt:
				slot(s.Source)
			case *ir.EmitRangeStmt:
				local(s.From)
				local(s.To)
			case *ir.EmitArrayStmt:
				local(s.Count)
			case *ir.ExpectStmt:
				local(s.Pos)
			case *ir.ReasonStmt:
				local(s.Pos)
			case *ir.SetModeStmt:
				c.validateMode(s.Mode)
			case *ir.JumpStmt:
				block(s.Target)
			case *ir.IfStmt:
				block(s.Then)
				block(s.Else)
				switch cond := s.Cond.(type) {
				case *ir.EqualCond:
					local(cond.A)
					local(cond.B)
				case *ir.LessCond:
					local(cond.A)
					local(cond.B)
				case *ir.DefinedCond:
					local(cond.A)
				case *ir.FlagCond:
					local(cond.A)
				case *ir.ModeCond:
					c.validateMode(cond.Mode)
				default:
					c.compileErr("block %d: illegal condition %T", i, s.Cond)
				}
			case *ir.MatchStmt:
				local(s.Pos)
				local(s.Target)
				block(s.Success)
				block(s.Failure)
				if m, ok := s.Matcher.(*ir.SlotMatcher); ok {
					slot(m.Slot)
				}
			case *ir.CallStmt:
				local(s.Pos)
				local(s.Target)
				block(s.Success)
				block(s.Failure)
				for _, a := range s.Args {
					slot(a)
				}
				if s.Func < 0 || s.Func >= len(c.prog.Funcs) {
					c.compileErr("block %d: illegal func index %d", i, s.Func)
				} else if callee := c.prog.Funcs[s.Func]; len(callee.Params) != len(s.Args) {
					c.compileErr("block %d: call to %q with %d args, want %d", i, callee.Name, len(s.Args), len(callee.Params))
				}
			case *ir.ReturnStmt:
				local(s.Value)
			}
		}
	}
}

func (c *Compiler) validateMode(m int) {
	if m < 0 || m >= len(c.prog.Modes) {
		c.compileErr("illegal mode %d", m)
	}
}

func (c *Compiler) compileFuncs() error {
	for i, fn := range c.prog.Funcs {
		c.fn = fn
		out := c.out.funcs[i]
		out.blocks = make([]blockFunc, len(fn.Blocks))
		for j, b := range fn.Blocks {
			out.blocks[j] = c.compileBlock(b)
			c.out.stats.Stmts += len(b.Stmts)
		}
		c.out.stats.Blocks += len(fn.Blocks)
	}
	c.out.stats.Funcs = len(c.prog.Funcs)
	return nil
}

func (c *Compiler) compileBlock(block *ir.Block) blockFunc {
	n := len(block.Stmts) - 1
	stmts := make([]stmtFunc, 0, n)
	for _, s := range block.Stmts[:n] {
		stmts = append(stmts, c.compileStmt(s))
	}
	term := c.compileTerminator(block.Stmts[n])

	switch len(stmts) {
	case 0:
		return term
	case 1:
		s := stmts[0]
		return func(f *frame) int {
			s(f)
			return term(f)
		}
	}

	return func(f *frame) int {
		for _, s := range stmts {
			s(f)
		}
		return term(f)
	}
}

func (c *Compiler) compileStmt(stmt ir.Stmt) stmtFunc {
	switch s := stmt.(type) {
	case *ir.AssignIntStmt:
		v, t := s.Value, s.Target
		return func(f *frame) { f.locals[t] = v }

	case *ir.AssignVarStmt:
		src, t := s.Source, s.Target
		return func(f *frame) { f.locals[t] = f.locals[src] }

	case *ir.IncrementStmt:
		t := s.Target
		return func(f *frame) { f.locals[t]++ }

	case *ir.PhiStmt:
		t := s.Target
		edges := s.Edges
		return func(f *frame) {
			for _, e := range edges {
				if e.Block == f.prev {
					f.locals[t] = f.locals[e.Source]
					return
				}
			}
			panic(fmt.Sprintf("phi l%d: no edge from block %d", t, f.prev))
		}

	case *ir.MarkStmt:
		t := s.Target
		return func(f *frame) { f.locals[t] = int64(f.m.log.Mark()) }

	case *ir.ResetStmt:
		mark := s.Mark
		return func(f *frame) { f.m.log.Reset(int(f.locals[mark])) }

	case *ir.CaptureStmt:
		mark, t := s.Mark, s.Target
		return func(f *frame) {
			m := int(f.locals[mark])
			f.slots[t] = f.m.log.Span(m)
			f.m.log.Reset(m)
			if f.m.allocs != nil {
				f.m.allocs.Captures++
			}
		}

	case *ir.LoadStmt:
		src := s.Source
		return func(f *frame) {
			ops := f.slots[src]
			if len(ops) == 0 {
				f.m.emit(output.Op{Code: output.OpNil})
				return
			}
			f.m.emitAll(ops)
		}

	case *ir.EmitNilStmt:
		return func(f *frame) { f.m.emit(output.Op{Code: output.OpNil}) }

	case *ir.EmitBooleanStmt:
		op := output.Op{Code: output.OpBoolean}
		if s.Value {
			op.From = 1
		}
		return func(f *frame) { f.m.emit(op) }

	case *ir.EmitRangeStmt:
		from, to := s.From, s.To
		return func(f *frame) {
			f.m.emit(output.Op{Code: output.OpInputRange, From: int(f.locals[from]), To: int(f.locals[to])})
		}

	case *ir.EmitLabelStmt:
		op := output.Op{Code: output.OpLabel, Name: s.Name}
		return func(f *frame) { f.m.emit(op) }

	case *ir.EmitMergeStmt:
		op := output.Op{Code: output.OpMerge, From: s.Count}
		return func(f *frame) { f.m.emit(op) }

	case *ir.EmitArrayStmt:
		count := s.Count
		return func(f *frame) { f.m.emit(output.Op{Code: output.OpArray, From: int(f.locals[count])}) }

	case *ir.EmitObjectStmt:
		op := output.Op{Code: output.OpObject, Class: s.Class}
		return func(f *frame) { f.m.emit(op) }

	case *ir.EmitValueStmt:
		op := output.Op{Code: output.OpValue, Name: s.Code, File: s.File, Line: s.Row}
		return func(f *frame) { f.m.emit(op) }

	case *ir.ExpectStmt:
		pos, text := s.Pos, s.Text
		return func(f *frame) {
			if f.m.mute == 0 {
				f.m.tracker.Expect(int(f.locals[pos]), text)
			}
		}

	case *ir.ReasonStmt:
		pos, text := s.Pos, s.Text
		return func(f *frame) {
			if f.m.mute == 0 {
				f.m.tracker.Reason(int(f.locals[pos]), text)
			}
		}

	case *ir.MuteStmt:
		return func(f *frame) { f.m.mute++ }

	case *ir.UnmuteStmt:
		return func(f *frame) { f.m.mute-- }

	case *ir.SetModeStmt:
		bit := int64(1) << s.Mode
		if s.Enable {
			return func(f *frame) { f.locals[ir.Modes] |= bit }
		}
		return func(f *frame) { f.locals[ir.Modes] &^= bit }
	}

	c.compileErr("illegal statement %T", stmt)
	return func(*frame) {}
}

func (c *Compiler) compileTerminator(stmt ir.Stmt) blockFunc {
	switch s := stmt.(type) {
	case *ir.JumpStmt:
		t := s.Target
		return func(*frame) int { return t }

	case *ir.IfStmt:
		then, els := s.Then, s.Else
		cond := c.compileCond(s.Cond)
		return func(f *frame) int {
			if cond(f) {
				return then
			}
			return els
		}

	case *ir.MatchStmt:
		pos, target, success, failure := s.Pos, s.Target, s.Success, s.Failure
		match := c.compileMatcher(s.Matcher)
		return func(f *frame) int {
			n := match(f, int(f.locals[pos]))
			if n < 0 {
				return failure
			}
			f.locals[target] = f.locals[pos] + int64(n)
			return success
		}

	case *ir.CallStmt:
		return c.compileCall(s)

	case *ir.ReturnStmt:
		v := s.Value
		return func(f *frame) int {
			f.ret = int(f.locals[v])
			return exitReturn
		}

	case *ir.ReturnFailStmt:
		return func(*frame) int { return exitFail }
	}

	c.compileErr("illegal terminator %T", stmt)
	return func(*frame) int { return exitFail }
}

func (c *Compiler) compileCond(cond ir.Cond) func(*frame) bool {
	switch x := cond.(type) {
	case *ir.EqualCond:
		a, b := x.A, x.B
		return func(f *frame) bool { return f.locals[a] == f.locals[b] }
	case *ir.LessCond:
		a, b := x.A, x.B
		return func(f *frame) bool { return f.locals[a] < f.locals[b] }
	case *ir.DefinedCond:
		a := x.A
		return func(f *frame) bool { return f.locals[a] != ir.Undefined }
	case *ir.FlagCond:
		a := x.A
		return func(f *frame) bool { return f.locals[a] != 0 }
	case *ir.ModeCond:
		bit := int64(1) << x.Mode
		return func(f *frame) bool { return f.locals[ir.Modes]&bit != 0 }
	}
	c.compileErr("illegal condition %T", cond)
	return func(*frame) bool { return false }
}

// equalFoldASCII reports whether a and b are equal when ASCII letters are
// compared case-insensitively. Other bytes must be identical.
func equalFoldASCII(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// compileMatcher returns a function that returns the number of bytes matched
// at the position or -1.
func (c *Compiler) compileMatcher(m ir.Matcher) func(*frame, int) int {
	switch m := m.(type) {
	case *ir.LiteralMatcher:
		value := []byte(m.Value)
		if m.Fold {
			return func(f *frame, pos int) int {
				in := f.m.input[pos:]
				if len(in) < len(value) || !equalFoldASCII(in[:len(value)], value) {
					return -1
				}
				return len(value)
			}
		}
		return func(f *frame, pos int) int {
			if !bytes.HasPrefix(f.m.input[pos:], value) {
				return -1
			}
			return len(value)
		}

	case *ir.ClassMatcher:
		return func(f *frame, pos int) int {
			r, size := utf8.DecodeRune(f.m.input[pos:])
			if size == 0 || !m.Contains(r) {
				return -1
			}
			return size
		}

	case *ir.AnyMatcher:
		return func(f *frame, pos int) int {
			_, size := utf8.DecodeRune(f.m.input[pos:])
			if size == 0 {
				return -1
			}
			return size
		}

	case *ir.SlotMatcher:
		slot := m.Slot
		return func(f *frame, pos int) int {
			ops := f.slots[slot]
			if len(ops) != 1 || ops[0].Code != output.OpInputRange {
				return -1
			}
			text := f.m.input[ops[0].From:ops[0].To]
			if !bytes.HasPrefix(f.m.input[pos:], text) {
				return -1
			}
			return len(text)
		}
	}

	c.compileErr("illegal matcher %T", m)
	return func(*frame, int) int { return -1 }
}

func (c *Compiler) compileCall(s *ir.CallStmt) blockFunc {
	funcs := c.out.funcs
	callee := s.Func
	pos, target, success, failure := s.Pos, s.Target, s.Success, s.Failure
	args := s.Args

	return func(f *frame) int {
		var values [][]output.Op
		if len(args) > 0 {
			values = make([][]output.Op, len(args))
			for i, a := range args {
				values[i] = f.slots[a]
			}
		}
		end, ok := f.m.call(funcs[callee], int(f.locals[pos]), f.locals[ir.Modes], values)
		if !ok {
			return failure
		}
		f.locals[target] = int64(end)
		return success
	}
}

// Stats returns the size of the program.
func (p *Program) Stats() Stats {
	return p.stats
}

// Funcs returns the names of the functions of the program.
func (p *Program) Funcs() []string {
	names := make([]string, len(p.funcs))
	for i, fn := range p.funcs {
		names[i] = fn.name
	}
	return names
}

// Has returns true if the program contains a function for the rule.
func (p *Program) Has(name string) bool {
	_, ok := p.index[name]
	return ok
}
