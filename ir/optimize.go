// Copyright 2020 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ir

// Optimize removes indirections from the functions of the program: edges to
// blocks that only jump elsewhere are redirected to the final target and
// blocks that are no longer reachable are removed.
func Optimize(p *Program) {
	for _, fn := range p.Funcs {
		threadJumps(fn)
		removeUnreachable(fn)
	}
}

// threadJumps redirects edges that lead to a jump-only block. Edges into
// blocks that start with phi statements are kept since the phi edges name the
// predecessor.
func threadJumps(fn *Func) {
	resolve := func(i int) int {
		seen := map[int]struct{}{}
		for {
			if _, ok := seen[i]; ok {
				return i
			}
			seen[i] = struct{}{}
			b := fn.Blocks[i]
			if len(b.Stmts) != 1 {
				return i
			}
			j, ok := b.Stmts[0].(*JumpStmt)
			if !ok || hasPhi(fn.Blocks[j.Target]) {
				return i
			}
			i = j.Target
		}
	}

	for _, b := range fn.Blocks {
		switch t := b.Terminator().(type) {
		case *JumpStmt:
			t.Target = resolve(t.Target)
		case *IfStmt:
			t.Then = resolve(t.Then)
			t.Else = resolve(t.Else)
		case *MatchStmt:
			t.Success = resolve(t.Success)
			t.Failure = resolve(t.Failure)
		case *CallStmt:
			t.Success = resolve(t.Success)
			t.Failure = resolve(t.Failure)
		}
	}
}

func hasPhi(b *Block) bool {
	if len(b.Stmts) == 0 {
		return false
	}
	_, ok := b.Stmts[0].(*PhiStmt)
	return ok
}

// removeUnreachable drops blocks that cannot be reached from the entry block
// and renumbers the remaining blocks in their original order.
func removeUnreachable(fn *Func) {
	if len(fn.Blocks) == 0 {
		return
	}

	reachable := make([]bool, len(fn.Blocks))
	for _, i := range Blocks(fn) {
		reachable[i] = true
	}

	index := make([]int, len(fn.Blocks))
	kept := make([]*Block, 0, len(fn.Blocks))
	for i, b := range fn.Blocks {
		if !reachable[i] {
			index[i] = -1
			continue
		}
		index[i] = len(kept)
		kept = append(kept, b)
	}

	if len(kept) == len(fn.Blocks) {
		return
	}

	for _, b := range kept {
		b.Index = index[b.Index]
		for _, s := range b.Stmts {
			switch s := s.(type) {
			case *PhiStmt:
				edges := s.Edges[:0]
				for _, e := range s.Edges {
					if index[e.Block] >= 0 {
						e.Block = index[e.Block]
						edges = append(edges, e)
					}
				}
				s.Edges = edges
			case *JumpStmt:
				s.Target = index[s.Target]
			case *IfStmt:
				s.Then, s.Else = index[s.Then], index[s.Else]
			case *MatchStmt:
				s.Success, s.Failure = index[s.Success], index[s.Failure]
			case *CallStmt:
				s.Success, s.Failure = index[s.Success], index[s.Failure]
			}
		}
	}

	fn.Blocks = kept
}
