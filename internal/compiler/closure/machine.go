// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package closure

import (
	"context"
	"fmt"

	"github.com/open-peg/pegc/output"
)

// EndOfInput is the expectation recorded when a match succeeds without
// consuming the whole input.
const EndOfInput = "end of input"

// cancelInterval is the number of calls between context checks.
const cancelInterval = 1024

// RunOptions controls a single run of a program.
type RunOptions struct {
	// Partial allows the match to end before the end of the input.
	Partial bool

	// TrackAllocations enables the allocation counters of the run.
	TrackAllocations bool
}

// Allocations counts the memory allocated by a single run.
type Allocations struct {
	Frames   int `json:"frames"`
	Captures int `json:"captures"`
	Ops      int `json:"ops"`
	PeakLog  int `json:"peak_log"`
}

// Result is the outcome of a run.
type Result struct {
	Matched     bool
	End         int
	Ops         []output.Op
	Failure     *Tracker
	Calls       int
	Allocations *Allocations
}

// Machine holds the state of a single run. Machines are not shared between
// runs.
type Machine struct {
	ctx     context.Context
	input   []byte
	log     *output.Log
	tracker *Tracker
	mute    int
	calls   int
	allocs  *Allocations
}

type frame struct {
	m      *Machine
	locals []int64
	slots  [][]output.Op
	prev   int
	ret    int
}

type cancelled struct {
	err error
}

// Run matches the input against the function compiled for the named rule.
func (p *Program) Run(ctx context.Context, name string, input []byte, opts RunOptions) (result *Result, err error) {
	i, ok := p.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: no function for rule %q", ErrInvalidProgram, name)
	}

	m := &Machine{
		ctx:     ctx,
		input:   input,
		log:     output.NewLog(),
		tracker: NewTracker(),
	}
	if opts.TrackAllocations {
		m.allocs = &Allocations{}
	}

	defer func() {
		if r := recover(); r != nil {
			c, ok := r.(cancelled)
			if !ok {
				panic(r)
			}
			result, err = nil, c.err
		}
	}()

	end, ok := m.call(p.funcs[i], 0, 0, nil)

	if ok && !opts.Partial && end != len(input) {
		m.tracker.Expect(end, EndOfInput)
		ok = false
	}

	result = &Result{
		Matched:     ok,
		Failure:     m.tracker,
		Calls:       m.calls,
		Allocations: m.allocs,
	}
	if ok {
		result.End = end
		result.Ops = m.log.Ops()
	}

	return result, nil
}

func (m *Machine) call(fn *function, pos int, modes int64, args [][]output.Op) (int, bool) {
	m.calls++
	if m.calls%cancelInterval == 0 {
		if err := m.ctx.Err(); err != nil {
			panic(cancelled{err})
		}
	}

	f := &frame{
		m:      m,
		locals: make([]int64, fn.locals),
		prev:   -1,
	}
	if fn.slots > 0 {
		f.slots = make([][]output.Op, fn.slots)
		copy(f.slots, args)
	}
	f.locals[0] = int64(pos)
	f.locals[1] = modes

	if m.allocs != nil {
		m.allocs.Frames++
	}

	cur := 0
	for {
		next := fn.blocks[cur](f)
		switch next {
		case exitReturn:
			return f.ret, true
		case exitFail:
			return 0, false
		}
		f.prev, cur = cur, next
	}
}

func (m *Machine) emit(op output.Op) {
	m.log.Append(op)
	if m.allocs != nil {
		m.allocs.Ops++
		m.allocs.PeakLog = max(m.allocs.PeakLog, m.log.Len())
	}
}

func (m *Machine) emitAll(ops []output.Op) {
	m.log.AppendAll(ops)
	if m.allocs != nil {
		m.allocs.Ops += len(ops)
		m.allocs.PeakLog = max(m.allocs.PeakLog, m.log.Len())
	}
}
