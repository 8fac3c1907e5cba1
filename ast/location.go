// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"fmt"
)

// Location records a position in grammar source code.
type Location struct {
	Text   []byte `json:"-"`
	File   string `json:"file,omitempty"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Offset int    `json:"-"`
}

// NewLocation returns a new Location object.
func NewLocation(text []byte, file string, row int, col int) *Location {
	return &Location{Text: text, File: file, Row: row, Col: col}
}

// Equal checks if two locations are equal to each other.
func (loc *Location) Equal(other *Location) bool {
	return loc.Compare(other) == 0
}

// Compare orders locations by file, row and column. A nil location sorts
// before any non-nil location.
func (loc *Location) Compare(other *Location) int {
	switch {
	case loc == nil && other == nil:
		return 0
	case loc == nil:
		return -1
	case other == nil:
		return 1
	}
	if loc.File != other.File {
		if loc.File < other.File {
			return -1
		}
		return 1
	}
	if loc.Row != other.Row {
		if loc.Row < other.Row {
			return -1
		}
		return 1
	}
	if loc.Col != other.Col {
		if loc.Col < other.Col {
			return -1
		}
		return 1
	}
	return 0
}

func (loc *Location) String() string {
	if len(loc.File) > 0 {
		return fmt.Sprintf("%v:%v", loc.File, loc.Row)
	}
	if len(loc.Text) > 0 {
		return string(loc.Text)
	}
	return fmt.Sprintf("%v:%v", loc.Row, loc.Col)
}
