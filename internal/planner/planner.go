// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package planner contains a code generator that translates grammar rules
// into IR functions.
package planner

import (
	"errors"
	"fmt"

	"github.com/open-peg/pegc/ast"
	"github.com/open-peg/pegc/internal/infer"
	"github.com/open-peg/pegc/ir"
	"github.com/open-peg/pegc/types"
)

// MaxModes is the number of distinct mode names a program can use.
const MaxModes = 63

// Planner implements a code generator for grammars.
//
// Every expression is planned against a start position, the block control
// enters with and the block to branch to if the expression fails. Planning
// returns the end position and the block control leaves with on success. When
// control reaches a failure block, the operation log has been restored to the
// state it had when the failing expression started.
type Planner struct {
	grammar  *ast.Grammar
	types    *infer.Result
	analysis *ast.Analysis
	roots    []string
	funcs    []*ir.Func
	index    map[string]int
	modes    map[string]int
	names    []string

	// State of the function being planned.
	fn    *ir.Func
	rule  *ast.Rule
	slots map[string]ir.Slot
	lcurr ir.Local
	rec   *recursion
}

// recursion holds the locals of a rule that calls itself before consuming
// input.
type recursion struct {
	prevEnd   ir.Local
	flag      ir.Local
	prevValue ir.Slot
}

// New returns a new Planner object.
func New() *Planner {
	return &Planner{
		index: map[string]int{},
		modes: map[string]int{},
	}
}

// WithGrammar sets the grammar to generate code for.
func (p *Planner) WithGrammar(g *ast.Grammar) *Planner {
	p.grammar = g
	return p
}

// WithTypes sets the inferred value shapes of the grammar.
func (p *Planner) WithTypes(res *infer.Result) *Planner {
	p.types = res
	return p
}

// WithRoots sets the rules to generate functions for. Rules called by the
// roots are included as well.
func (p *Planner) WithRoots(roots []string) *Planner {
	p.roots = roots
	return p
}

// Plan returns an IR program for the root rules.
func (p *Planner) Plan() (*ir.Program, error) {
	if p.grammar == nil {
		return nil, errors.New("planner: missing grammar")
	}
	if p.types == nil {
		return nil, errors.New("planner: missing types")
	}

	p.analysis = ast.NewAnalysis(p.grammar)

	for _, name := range p.roots {
		if p.grammar.Lookup(name) == nil {
			return nil, fmt.Errorf("planner: undefined rule %q", name)
		}
		p.declare(name)
	}

	// Functions are appended while planning calls.
	for i := 0; i < len(p.funcs); i++ {
		if err := p.planRule(p.funcs[i]); err != nil {
			return nil, err
		}
	}

	return &ir.Program{
		Funcs: p.funcs,
		Modes: p.names,
	}, nil
}

func (p *Planner) declare(name string) int {
	if i, ok := p.index[name]; ok {
		return i
	}
	r := p.grammar.Lookup(name)
	fn := &ir.Func{
		Name:  name,
		Index: len(p.funcs),
		Value: p.types.RuleProduces(name),
	}
	for range r.Params {
		fn.Params = append(fn.Params, ir.Slot(len(fn.Params)))
	}
	p.index[name] = fn.Index
	p.funcs = append(p.funcs, fn)
	return fn.Index
}

func (p *Planner) mode(name string) (int, error) {
	if i, ok := p.modes[name]; ok {
		return i, nil
	}
	if len(p.names) == MaxModes {
		return 0, fmt.Errorf("planner: too many modes (max %d)", MaxModes)
	}
	i := len(p.names)
	p.modes[name] = i
	p.names = append(p.names, name)
	return i, nil
}

func (p *Planner) planRule(fn *ir.Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(planError)
			if !ok {
				panic(r)
			}
			err = pe.err
		}
	}()

	r := p.grammar.Lookup(fn.Name)

	p.fn = fn
	p.rule = r
	p.lcurr = ir.Unused
	p.rec = nil
	p.slots = map[string]ir.Slot{}
	for i, param := range r.Params {
		p.slots[param] = fn.Params[i]
	}
	fn.Slots = len(fn.Params)

	entry := p.newBlock("entry")

	if p.leftRecursive(r) {
		p.planRecursiveBody(entry)
	} else {
		p.planBody(entry)
	}

	fn.Locals = int(p.lcurr)
	return nil
}

type planError struct {
	err error
}

func (p *Planner) fail(f string, a ...any) {
	panic(planError{fmt.Errorf("planner: rule %q: "+f, append([]any{p.rule.Name}, a...)...)})
}

func (p *Planner) leftRecursive(r *ast.Rule) bool {
	for _, name := range p.analysis.InitialCalls(r.Body) {
		if name == r.Name {
			return true
		}
	}
	return false
}

func (p *Planner) planBody(entry int) {
	failed := p.newBlock("failed")
	p.appendStmt(failed, &ir.ReturnFailStmt{})

	end, ok, produced := p.planExpr(p.rule.Body, ir.Start, entry, failed)
	p.checkProduced(produced)
	p.appendStmt(ok, &ir.ReturnStmt{Value: end})
}

// planRecursiveBody plans a rule that calls itself at its start position. The
// body is matched repeatedly: the first iteration fails the self call, every
// later iteration resumes the self call with the result of the previous
// iteration. The loop stops as soon as an iteration does not advance and the
// longest result is returned.
func (p *Planner) planRecursiveBody(entry int) {
	p.rec = &recursion{
		prevEnd:   p.newLocal(),
		flag:      p.newLocal(),
		prevValue: p.newSlot(),
	}
	mark := p.newLocal()
	value := p.fn.Value

	p.appendStmt(entry, &ir.AssignIntStmt{Value: ir.Undefined, Target: p.rec.prevEnd})
	p.appendStmt(entry, &ir.AssignIntStmt{Value: 0, Target: p.rec.flag})
	p.appendStmt(entry, &ir.MarkStmt{Target: mark})

	body := p.newBlock("body")
	p.appendStmt(entry, &ir.JumpStmt{Target: body})

	failed := p.newBlock("failed")
	end, ok, produced := p.planExpr(p.rule.Body, ir.Start, body, failed)
	p.checkProduced(produced)

	grow := p.newBlock("grow")
	ret := p.newBlock("return")
	p.appendStmt(ok, &ir.IfStmt{Cond: &ir.FlagCond{A: p.rec.flag}, Then: grow, Else: ret})
	p.appendStmt(ret, &ir.ReturnStmt{Value: end})

	compare := p.newBlock("grow_compare")
	next := p.newBlock("grow_next")
	stop := p.newBlock("grow_stop")
	p.appendStmt(grow, &ir.IfStmt{Cond: &ir.DefinedCond{A: p.rec.prevEnd}, Then: compare, Else: next})
	p.appendStmt(compare, &ir.IfStmt{Cond: &ir.LessCond{A: p.rec.prevEnd, B: end}, Then: next, Else: stop})

	p.appendStmt(next, &ir.AssignVarStmt{Source: end, Target: p.rec.prevEnd})
	if value {
		p.appendStmt(next, &ir.CaptureStmt{Mark: mark, Target: p.rec.prevValue})
	}
	p.appendStmt(next, &ir.JumpStmt{Target: body})

	p.appendStmt(stop, &ir.ResetStmt{Mark: mark})
	if value {
		p.appendStmt(stop, &ir.LoadStmt{Source: p.rec.prevValue})
	}
	p.appendStmt(stop, &ir.ReturnStmt{Value: p.rec.prevEnd})

	previous := p.newBlock("failed_previous")
	none := p.newBlock("failed_none")
	p.appendStmt(failed, &ir.IfStmt{Cond: &ir.DefinedCond{A: p.rec.prevEnd}, Then: previous, Else: none})
	if value {
		p.appendStmt(previous, &ir.LoadStmt{Source: p.rec.prevValue})
	}
	p.appendStmt(previous, &ir.ReturnStmt{Value: p.rec.prevEnd})
	p.appendStmt(none, &ir.ReturnFailStmt{})
}

func (p *Planner) checkProduced(produced bool) {
	if produced != p.fn.Value {
		p.fail("body value (%v) does not match inferred shape (%v)", produced, types.Sprint(p.types.Rule(p.rule.Name)))
	}
}

func (p *Planner) planExpr(e ast.Expression, start ir.Local, cur, fail int) (ir.Local, int, bool) {
	switch e := e.(type) {
	case *ast.StringTerminal:
		return p.planMatch(&ir.LiteralMatcher{Value: e.Value, Fold: e.Fold}, e.Expectation(), start, cur, fail)
	case *ast.CharacterClass:
		m := &ir.ClassMatcher{Inverted: e.Inverted}
		for _, r := range e.Ranges {
			m.Ranges = append(m.Ranges, ir.RuneRange{Lo: r.Lo, Hi: r.Hi})
		}
		return p.planMatch(m, e.String(), start, cur, fail)
	case *ast.AnyCharacter:
		return p.planMatch(&ir.AnyMatcher{}, "any character", start, cur, fail)
	case *ast.Sequence:
		return p.planSequence(e, start, cur, fail)
	case *ast.Choice:
		return p.planChoice(e, start, cur, fail)
	case *ast.Repetition:
		return p.planRepetition(e, start, cur, fail)
	case *ast.Optional:
		return p.planOptional(e, start, cur, fail)
	case *ast.Until:
		return p.planUntil(e, start, cur, fail)
	case *ast.PositiveLookahead:
		return p.planPositiveLookahead(e, start, cur, fail)
	case *ast.NegativeLookahead:
		return p.planNegativeLookahead(e, start, cur, fail)
	case *ast.RuleCall:
		return p.planRuleCall(e, start, cur, fail)
	case *ast.Label:
		return p.planLabel(e, start, cur, fail)
	case *ast.LocalValue:
		return p.planLocalValue(e, start, cur, false)
	case *ast.Parenthesized:
		return p.planExpr(e.Child, start, cur, fail)
	case *ast.ObjectCreator:
		end, ok, produced := p.planExpr(e.Child, start, cur, fail)
		if !produced {
			p.appendStmt(ok, &ir.EmitNilStmt{})
		}
		p.appendStmt(ok, &ir.EmitObjectStmt{Class: e.Class})
		return end, ok, true
	case *ast.ValueCreator:
		end, ok, produced := p.planExpr(e.Child, start, cur, fail)
		if !produced {
			p.appendStmt(ok, &ir.EmitNilStmt{})
		}
		stmt := &ir.EmitValueStmt{Code: e.Code}
		if e.Location != nil {
			stmt.File = e.Location.File
			stmt.Row = e.Location.Row
		}
		p.appendStmt(ok, stmt)
		return end, ok, true
	case *ast.Function:
		return p.planFunction(e, start, cur, fail)
	}
	p.fail("illegal expression %T", e)
	return 0, 0, false
}

func (p *Planner) planMatch(m ir.Matcher, expectation string, start ir.Local, cur, fail int) (ir.Local, int, bool) {
	end := p.newLocal()
	ok := p.newBlock("")
	miss := p.newBlock("")
	p.appendStmt(cur, &ir.MatchStmt{Matcher: m, Pos: start, Target: end, Success: ok, Failure: miss})
	p.appendStmt(miss, &ir.ExpectStmt{Pos: start, Text: expectation})
	p.appendStmt(miss, &ir.JumpStmt{Target: fail})
	return end, ok, false
}

func (p *Planner) planSequence(e *ast.Sequence, start ir.Local, cur, fail int) (ir.Local, int, bool) {
	cleanup := fail
	var mark ir.Local
	if p.types.Produces(e.First) {
		mark = p.newLocal()
		p.appendStmt(cur, &ir.MarkStmt{Target: mark})
		cleanup = p.newBlock("sequence_cleanup_first")
		p.appendStmt(cleanup, &ir.ResetStmt{Mark: mark})
		p.appendStmt(cleanup, &ir.JumpStmt{Target: fail})
	}

	firstEnd, ok, first := p.planExpr(e.First, start, cur, fail)
	end, ok, second := p.planExpr(e.Second, firstEnd, ok, cleanup)

	if first && second {
		p.appendStmt(ok, &ir.EmitMergeStmt{Count: 2})
	}

	return end, ok, first || second
}

func (p *Planner) planChoice(e *ast.Choice, start ir.Local, cur, fail int) (ir.Local, int, bool) {
	second := p.newBlock("choice_second")
	firstEnd, firstOK, first := p.planExpr(e.First, start, cur, second)
	secondEnd, secondOK, sec := p.planExpr(e.Second, start, second, fail)

	if !first && sec {
		p.appendStmt(firstOK, &ir.EmitNilStmt{})
	} else if first && !sec {
		p.appendStmt(secondOK, &ir.EmitNilStmt{})
	}

	return p.join("choice_successful", firstOK, firstEnd, secondOK, secondEnd), p.lastBlock(), first || sec
}

// join terminates both blocks with a jump to a new block and returns the
// local that holds the end position of the block control arrived from.
func (p *Planner) join(label string, a int, aEnd ir.Local, b int, bEnd ir.Local) ir.Local {
	join := p.newBlock(label)
	end := p.newLocal()
	p.appendStmt(a, &ir.JumpStmt{Target: join})
	p.appendStmt(b, &ir.JumpStmt{Target: join})
	p.appendStmt(join, &ir.PhiStmt{Target: end, Edges: []ir.PhiEdge{
		{Block: a, Source: aEnd},
		{Block: b, Source: bEnd},
	}})
	return end
}

func (p *Planner) planRepetition(e *ast.Repetition, start ir.Local, cur, fail int) (ir.Local, int, bool) {
	produced := p.types.Produces(e.Child)
	pos := p.newLocal()
	count := p.newLocal()
	exit := p.newBlock("repetition_exit")

	p.appendStmt(cur, &ir.AssignVarStmt{Source: start, Target: pos})
	p.appendStmt(cur, &ir.AssignIntStmt{Value: 0, Target: count})

	firstFail := exit
	if e.AtLeastOnce {
		firstFail = fail
	}

	end, ok, _ := p.planExpr(e.Child, start, cur, firstFail)
	p.appendStmt(ok, &ir.AssignVarStmt{Source: end, Target: pos})
	p.appendStmt(ok, &ir.IncrementStmt{Target: count})

	loop := p.newBlock("repetition_loop")
	p.appendStmt(ok, &ir.JumpStmt{Target: loop})

	// Glue values are discarded.
	mark := p.newLocal()
	p.appendStmt(loop, &ir.MarkStmt{Target: mark})
	input, cur := pos, loop
	if e.Glue != nil {
		input, cur, _ = p.planExpr(e.Glue, pos, loop, exit)
		if p.types.Produces(e.Glue) {
			p.appendStmt(cur, &ir.ResetStmt{Mark: mark})
		}
	}

	end, ok, _ = p.planExpr(e.Child, input, cur, exit)

	if p.analysis.Nullable(e.Child) && (e.Glue == nil || p.analysis.Nullable(e.Glue)) {
		stalled := p.newBlock("repetition_stalled")
		advanced := p.newBlock("")
		p.appendStmt(ok, &ir.IfStmt{Cond: &ir.EqualCond{A: end, B: pos}, Then: stalled, Else: advanced})
		p.appendStmt(stalled, &ir.ResetStmt{Mark: mark})
		p.appendStmt(stalled, &ir.JumpStmt{Target: exit})
		ok = advanced
	}

	p.appendStmt(ok, &ir.AssignVarStmt{Source: end, Target: pos})
	p.appendStmt(ok, &ir.IncrementStmt{Target: count})
	p.appendStmt(ok, &ir.JumpStmt{Target: loop})

	if produced {
		p.appendStmt(exit, &ir.EmitArrayStmt{Count: count})
	}

	return pos, exit, produced
}

func (p *Planner) planOptional(e *ast.Optional, start ir.Local, cur, fail int) (ir.Local, int, bool) {
	absent := p.newBlock("optional_absent")
	end, ok, produced := p.planExpr(e.Child, start, cur, absent)

	if produced {
		p.emitAbsent(absent, p.types.Expr(e.Child))
	}

	return p.join("optional_successful", ok, end, absent, start), p.lastBlock(), produced
}

// emitAbsent emits the value of an optional expression that did not match.
// Records are emitted with all keys present and nil.
func (p *Planner) emitAbsent(b int, t types.Type) {
	r, ok := t.(*types.Record)
	if !ok || len(r.Keys()) == 0 {
		p.appendStmt(b, &ir.EmitNilStmt{})
		return
	}
	keys := r.Keys()
	for _, k := range keys {
		p.appendStmt(b, &ir.EmitNilStmt{})
		p.appendStmt(b, &ir.EmitLabelStmt{Name: k})
	}
	if len(keys) > 1 {
		p.appendStmt(b, &ir.EmitMergeStmt{Count: len(keys)})
	}
}

func (p *Planner) planUntil(e *ast.Until, start ir.Local, cur, fail int) (ir.Local, int, bool) {
	childValue := p.types.Produces(e.Child)
	untilValue := p.types.Produces(e.Until)
	produced := childValue || untilValue

	pos := p.newLocal()
	count := p.newLocal()
	mark := p.newLocal()

	p.appendStmt(cur, &ir.MarkStmt{Target: mark})
	p.appendStmt(cur, &ir.AssignVarStmt{Source: start, Target: pos})
	p.appendStmt(cur, &ir.AssignIntStmt{Value: 0, Target: count})

	check := p.newBlock("until_check")
	step := p.newBlock("until_step")
	cleanup := p.newBlock("until_cleanup")
	p.appendStmt(cur, &ir.JumpStmt{Target: check})

	p.appendStmt(cleanup, &ir.ResetStmt{Mark: mark})
	p.appendStmt(cleanup, &ir.JumpStmt{Target: fail})

	end, ok, _ := p.planExpr(e.Until, pos, check, step)
	if untilValue {
		p.appendStmt(ok, &ir.IncrementStmt{Target: count})
	}
	if produced {
		p.appendStmt(ok, &ir.EmitArrayStmt{Count: count})
	}

	childEnd, childOK, _ := p.planExpr(e.Child, pos, step, cleanup)
	if childValue {
		p.appendStmt(childOK, &ir.IncrementStmt{Target: count})
	}

	// A child that does not advance would loop forever.
	if p.analysis.Nullable(e.Child) {
		advanced := p.newBlock("")
		p.appendStmt(childOK, &ir.IfStmt{Cond: &ir.EqualCond{A: childEnd, B: pos}, Then: cleanup, Else: advanced})
		childOK = advanced
	}

	p.appendStmt(childOK, &ir.AssignVarStmt{Source: childEnd, Target: pos})
	p.appendStmt(childOK, &ir.JumpStmt{Target: check})

	return end, ok, produced
}

func (p *Planner) planPositiveLookahead(e *ast.PositiveLookahead, start ir.Local, cur, fail int) (ir.Local, int, bool) {
	var mark ir.Local
	produced := p.types.Produces(e.Child)
	if produced {
		mark = p.newLocal()
		p.appendStmt(cur, &ir.MarkStmt{Target: mark})
	}
	_, ok, _ := p.planExpr(e.Child, start, cur, fail)
	if produced {
		p.appendStmt(ok, &ir.ResetStmt{Mark: mark})
	}
	return start, ok, false
}

func (p *Planner) planNegativeLookahead(e *ast.NegativeLookahead, start ir.Local, cur, fail int) (ir.Local, int, bool) {
	var mark ir.Local
	produced := p.types.Produces(e.Child)
	p.appendStmt(cur, &ir.MuteStmt{})
	if produced {
		mark = p.newLocal()
		p.appendStmt(cur, &ir.MarkStmt{Target: mark})
	}

	missed := p.newBlock("lookahead_failed")
	_, matched, _ := p.planExpr(e.Child, start, cur, missed)
	if produced {
		p.appendStmt(matched, &ir.ResetStmt{Mark: mark})
	}
	p.appendStmt(matched, &ir.UnmuteStmt{})
	p.appendStmt(matched, &ir.JumpStmt{Target: fail})

	p.appendStmt(missed, &ir.UnmuteStmt{})
	return start, missed, false
}

func (p *Planner) planRuleCall(e *ast.RuleCall, start ir.Local, cur, fail int) (ir.Local, int, bool) {
	callee := p.declare(e.Name)
	produced := p.funcs[callee].Value

	if e.Name != p.rule.Name || p.rec == nil {
		end, ok := p.planCall(e, callee, start, cur, fail)
		return end, ok, produced
	}

	recursive := p.newBlock("direct_left_recursion")
	call := p.newBlock("no_direct_left_recursion")
	p.appendStmt(cur, &ir.IfStmt{Cond: &ir.EqualCond{A: start, B: ir.Start}, Then: recursive, Else: call})

	p.appendStmt(recursive, &ir.AssignIntStmt{Value: 1, Target: p.rec.flag})
	reuse := p.newBlock("in_recursion_loop")
	p.appendStmt(recursive, &ir.IfStmt{Cond: &ir.DefinedCond{A: p.rec.prevEnd}, Then: reuse, Else: fail})
	if produced {
		p.appendStmt(reuse, &ir.LoadStmt{Source: p.rec.prevValue})
	}

	end, ok := p.planCall(e, callee, start, call, fail)

	return p.join("rule_call_successful", reuse, p.rec.prevEnd, ok, end), p.lastBlock(), produced
}

// planCall evaluates the arguments at the call position, captures their
// values into slots and calls the function.
func (p *Planner) planCall(e *ast.RuleCall, callee int, start ir.Local, cur, fail int) (ir.Local, int) {
	args := make([]ir.Slot, len(e.Args))
	for i, arg := range e.Args {
		mark := p.newLocal()
		p.appendStmt(cur, &ir.MarkStmt{Target: mark})
		end, ok, produced := p.planExpr(arg, start, cur, fail)
		if !produced {
			p.appendStmt(ok, &ir.EmitRangeStmt{From: start, To: end})
		}
		args[i] = p.newSlot()
		p.appendStmt(ok, &ir.CaptureStmt{Mark: mark, Target: args[i]})
		cur = ok
	}

	end := p.newLocal()
	ok := p.newBlock("")
	p.appendStmt(cur, &ir.CallStmt{Func: callee, Pos: start, Args: args, Target: end, Success: ok, Failure: fail})
	return end, ok
}

func (p *Planner) planLabel(e *ast.Label, start ir.Local, cur, fail int) (ir.Local, int, bool) {
	var mark ir.Local
	if e.IsLocal {
		mark = p.newLocal()
		p.appendStmt(cur, &ir.MarkStmt{Target: mark})
	}

	var end ir.Local
	var ok int
	var produced bool

	if lv, isRef := unparen(e.Child).(*ast.LocalValue); isRef {
		// A reference to a hoisted leaf without a value reproduces the range
		// the leaf matched.
		end, ok, produced = p.planLocalValue(lv, start, cur, true)
	} else {
		end, ok, produced = p.planExpr(e.Child, start, cur, fail)
	}

	if !produced {
		p.appendStmt(ok, &ir.EmitRangeStmt{From: start, To: end})
	}

	switch {
	case e.IsLocal:
		p.appendStmt(ok, &ir.CaptureStmt{Mark: mark, Target: p.slot(e.Name)})
		return end, ok, false
	case e.IsAt:
		return end, ok, true
	}

	p.appendStmt(ok, &ir.EmitLabelStmt{Name: e.Name})
	return end, ok, true
}

func unparen(e ast.Expression) ast.Expression {
	for {
		p, ok := e.(*ast.Parenthesized)
		if !ok {
			return e
		}
		e = p.Child
	}
}

// planLocalValue reproduces the value captured by a local label or passed as
// an argument. Hoisted leaves without a value are only reproduced if
// labeled.
func (p *Planner) planLocalValue(e *ast.LocalValue, start ir.Local, cur int, labeled bool) (ir.Local, int, bool) {
	if !p.types.Produces(e) && !labeled {
		return start, cur, false
	}
	p.appendStmt(cur, &ir.LoadStmt{Source: p.slot(e.Name)})
	return start, cur, true
}

func (p *Planner) planFunction(e *ast.Function, start ir.Local, cur, fail int) (ir.Local, int, bool) {
	switch e.Name {
	case "true", "false":
		p.appendStmt(cur, &ir.EmitBooleanStmt{Value: e.Name == "true"})
		return start, cur, true

	case "error":
		msg, _ := e.StringArg(0)
		p.appendStmt(cur, &ir.ReasonStmt{Pos: start, Text: msg})
		p.appendStmt(cur, &ir.JumpStmt{Target: fail})
		return start, p.newBlock("unreachable"), false

	case "match":
		lv := e.Args[0].(*ast.LocalValue)
		return p.planMatch(&ir.SlotMatcher{Slot: p.slot(lv.Name)}, e.String(), start, cur, fail)

	case "in_mode":
		name, _ := e.StringArg(0)
		m, err := p.mode(name)
		if err != nil {
			panic(planError{err})
		}
		ok := p.newBlock("")
		p.appendStmt(cur, &ir.IfStmt{Cond: &ir.ModeCond{Mode: m}, Then: ok, Else: fail})
		return start, ok, false

	case "enter_mode", "leave_mode":
		name, _ := e.StringArg(0)
		m, err := p.mode(name)
		if err != nil {
			panic(planError{err})
		}
		saved := p.newLocal()
		p.appendStmt(cur, &ir.AssignVarStmt{Source: ir.Modes, Target: saved})
		p.appendStmt(cur, &ir.SetModeStmt{Mode: m, Enable: e.Name == "enter_mode"})

		restore := p.newBlock("mode_restore")
		p.appendStmt(restore, &ir.AssignVarStmt{Source: saved, Target: ir.Modes})
		p.appendStmt(restore, &ir.JumpStmt{Target: fail})

		end, ok, produced := p.planExpr(e.Args[1], start, cur, restore)
		p.appendStmt(ok, &ir.AssignVarStmt{Source: saved, Target: ir.Modes})
		return end, ok, produced
	}

	p.fail("undefined function $%v", e.Name)
	return 0, 0, false
}

func (p *Planner) newBlock(label string) int {
	b := &ir.Block{Index: len(p.fn.Blocks), Label: label}
	p.fn.Blocks = append(p.fn.Blocks, b)
	return b.Index
}

func (p *Planner) lastBlock() int {
	return len(p.fn.Blocks) - 1
}

func (p *Planner) appendStmt(b int, s ir.Stmt) {
	block := p.fn.Blocks[b]
	if block.Terminator() != nil {
		p.fail("statement %v appended to terminated block %d", ir.StmtString(s), b)
	}
	block.Stmts = append(block.Stmts, s)
}

func (p *Planner) newLocal() ir.Local {
	x := p.lcurr
	p.lcurr++
	return x
}

func (p *Planner) newSlot() ir.Slot {
	s := ir.Slot(p.fn.Slots)
	p.fn.Slots++
	return s
}

func (p *Planner) slot(name string) ir.Slot {
	if s, ok := p.slots[name]; ok {
		return s
	}
	s := p.newSlot()
	p.slots[name] = s
	return s
}
