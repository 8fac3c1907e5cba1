// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package closure

import (
	"slices"
)

// Tracker retains the failure reasons recorded at the furthest position of a
// match. Reasons at a greater position replace the retained ones, reasons at
// the same position are added and reasons at a lesser position are dropped.
type Tracker struct {
	pos          int
	expectations map[string]struct{}
	reasons      map[string]struct{}
}

// NewTracker returns a tracker positioned at the start of the input.
func NewTracker() *Tracker {
	return &Tracker{
		expectations: map[string]struct{}{},
		reasons:      map[string]struct{}{},
	}
}

// Expect records that text was expected at pos.
func (t *Tracker) Expect(pos int, text string) {
	if t.advance(pos) {
		t.expectations[text] = struct{}{}
	}
}

// Reason records an explicit failure reason at pos.
func (t *Tracker) Reason(pos int, text string) {
	if t.advance(pos) {
		t.reasons[text] = struct{}{}
	}
}

func (t *Tracker) advance(pos int) bool {
	switch {
	case pos < t.pos:
		return false
	case pos > t.pos:
		t.pos = pos
		clear(t.expectations)
		clear(t.reasons)
	}
	return true
}

// Position returns the furthest position a reason was recorded at.
func (t *Tracker) Position() int {
	return t.pos
}

// Expectations returns the sorted expectations at the furthest position.
func (t *Tracker) Expectations() []string {
	return sortedKeys(t.expectations)
}

// Reasons returns the sorted explicit failure reasons at the furthest
// position.
func (t *Tracker) Reasons() []string {
	return sortedKeys(t.reasons)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
