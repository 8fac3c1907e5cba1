// Copyright 2017 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package types declares the shapes of values produced by parsing
// expressions and helper functions to operate on these shapes.
//
// A nil Type means that an expression produces no value at all. The Nil type
// describes the nil placeholder that stands in for a missing value.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Sprint returns the string representation of the type.
func Sprint(x Type) string {
	if x == nil {
		return "none"
	}
	return x.String()
}

// Type represents the shape of a value produced by a parsing expression.
type Type interface {
	String() string
	typeMarker()
}

func (Nil) typeMarker()        {}
func (InputRange) typeMarker() {}
func (Boolean) typeMarker()    {}
func (*Record) typeMarker()    {}
func (*Array) typeMarker()     {}
func (*Object) typeMarker()    {}
func (*Computed) typeMarker()  {}
func (*RuleRef) typeMarker()   {}
func (Any) typeMarker()        {}

// Nil represents the nil placeholder value.
type Nil struct{}

// N represents an instance of the nil type.
var N = NewNil()

// NewNil returns a new Nil type.
func NewNil() Nil {
	return Nil{}
}

func (Nil) String() string {
	return "nil"
}

// InputRange represents a range of the matched input. Input ranges realize as
// strings.
type InputRange struct{}

// R represents an instance of the input range type.
var R = NewInputRange()

// NewInputRange returns a new InputRange type.
func NewInputRange() InputRange {
	return InputRange{}
}

func (InputRange) String() string {
	return "range"
}

// Boolean represents the boolean type.
type Boolean struct{}

// B represents an instance of the boolean type.
var B = NewBoolean()

// NewBoolean returns a new Boolean type.
func NewBoolean() Boolean {
	return Boolean{}
}

func (Boolean) String() string {
	return "boolean"
}

// Field is a labeled entry of a record. Optional fields may be absent from a
// realized record.
type Field struct {
	Key      string
	Value    Type
	Optional bool
}

// NewField returns a new Field.
func NewField(key string, value Type, optional bool) *Field {
	return &Field{Key: key, Value: value, Optional: optional}
}

func (f *Field) String() string {
	if f.Optional {
		return f.Key + "?: " + Sprint(f.Value)
	}
	return f.Key + ": " + Sprint(f.Value)
}

// Record represents a mapping from label names to values.
type Record struct {
	fields []*Field
}

// NewRecord returns a new Record type. Fields are sorted by key.
func NewRecord(fields ...*Field) *Record {
	cpy := make([]*Field, len(fields))
	copy(cpy, fields)
	sort.Slice(cpy, func(i, j int) bool {
		return cpy[i].Key < cpy[j].Key
	})
	return &Record{fields: cpy}
}

// Fields returns the fields of the record sorted by key.
func (t *Record) Fields() []*Field {
	return t.fields
}

// Keys returns the keys of the record in sorted order.
func (t *Record) Keys() []string {
	keys := make([]string, len(t.fields))
	for i := range t.fields {
		keys[i] = t.fields[i].Key
	}
	return keys
}

// Select returns the field with the given key or nil.
func (t *Record) Select(key string) *Field {
	for _, f := range t.fields {
		if f.Key == key {
			return f
		}
	}
	return nil
}

func (t *Record) String() string {
	buf := make([]string, len(t.fields))
	for i := range t.fields {
		buf[i] = t.fields[i].String()
	}
	return "{" + strings.Join(buf, ", ") + "}"
}

// Array represents a sequence of values produced by repetition.
type Array struct {
	elem Type
}

// NewArray returns a new Array type.
func NewArray(elem Type) *Array {
	return &Array{elem: elem}
}

// Elem returns the element type.
func (t *Array) Elem() Type {
	return t.elem
}

func (t *Array) String() string {
	return "[" + Sprint(t.elem) + "]"
}

// Object represents a value instantiated from a class path when the output
// is realized.
type Object struct {
	Class []string
	Data  Type
}

// NewObject returns a new Object type.
func NewObject(class []string, data Type) *Object {
	return &Object{Class: class, Data: data}
}

func (t *Object) String() string {
	return "<" + strings.Join(t.Class, "::") + ">" + Sprint(t.Data)
}

// Computed represents a value computed by a code fragment when the output is
// realized.
type Computed struct {
	Code string
	Data Type
}

// NewComputed returns a new Computed type.
func NewComputed(code string, data Type) *Computed {
	return &Computed{Code: code, Data: data}
}

func (t *Computed) String() string {
	return "{" + t.Code + "}" + Sprint(t.Data)
}

// RuleRef represents the value of a rule whose shape is still being resolved.
// It occurs when a rule refers to itself.
type RuleRef struct {
	Name string
}

// NewRuleRef returns a new RuleRef type.
func NewRuleRef(name string) *RuleRef {
	return &RuleRef{Name: name}
}

func (t *RuleRef) String() string {
	return "rule(" + t.Name + ")"
}

// Any represents a union of types. The empty union represents a value whose
// shape is not known statically.
type Any []Type

// A represents the dynamic type.
var A = NewAny()

// NewAny returns a new Any type.
func NewAny(of ...Type) Any {
	sl := make(Any, len(of))
	copy(sl, of)
	sort.Sort(typeSlice(sl))
	return sl
}

// Contains returns true if t is a superset of other.
func (t Any) Contains(other Type) bool {
	for i := range t {
		if Compare(t[i], other) == 0 {
			return true
		}
	}
	return len(t) == 0
}

func (t Any) String() string {
	prefix := "any"
	if len(t) == 0 {
		return prefix
	}
	buf := make([]string, len(t))
	for i := range t {
		buf[i] = Sprint(t[i])
	}
	return prefix + "<" + strings.Join(buf, ", ") + ">"
}

// Dynamic returns true if the shape of t is not known statically.
func Dynamic(t Type) bool {
	switch t := t.(type) {
	case Any:
		return len(t) == 0
	case *RuleRef:
		return true
	}
	return false
}

// Compare returns -1, 0, 1 based on comparison between a and b.
func Compare(a, b Type) int {
	x := typeOrder(a)
	y := typeOrder(b)
	if x > y {
		return 1
	} else if x < y {
		return -1
	}
	switch a := a.(type) {
	case nil, Nil, InputRange, Boolean:
		return 0
	case *Record:
		b := b.(*Record)
		minLen := len(a.fields)
		if len(b.fields) < minLen {
			minLen = len(b.fields)
		}
		for i := 0; i < minLen; i++ {
			fa, fb := a.fields[i], b.fields[i]
			if cmp := strings.Compare(fa.Key, fb.Key); cmp != 0 {
				return cmp
			}
			if fa.Optional != fb.Optional {
				if fa.Optional {
					return 1
				}
				return -1
			}
			if cmp := Compare(fa.Value, fb.Value); cmp != 0 {
				return cmp
			}
		}
		if len(a.fields) < len(b.fields) {
			return -1
		} else if len(b.fields) < len(a.fields) {
			return 1
		}
		return 0
	case *Array:
		return Compare(a.elem, b.(*Array).elem)
	case *Object:
		b := b.(*Object)
		if cmp := strings.Compare(strings.Join(a.Class, "::"), strings.Join(b.Class, "::")); cmp != 0 {
			return cmp
		}
		return Compare(a.Data, b.Data)
	case *Computed:
		b := b.(*Computed)
		if cmp := strings.Compare(a.Code, b.Code); cmp != 0 {
			return cmp
		}
		return Compare(a.Data, b.Data)
	case *RuleRef:
		return strings.Compare(a.Name, b.(*RuleRef).Name)
	case Any:
		return typeSliceCompare(a, b.(Any))
	}
	panic("unreachable")
}

// Unify returns the shape of a value produced by either of two choice
// branches. Records are unioned; keys that are not present in both records
// become optional. A nil placeholder unified with a record makes all keys
// optional. Unify never fails: unrelated shapes form a union.
func Unify(a, b Type) Type {
	if a == nil {
		return b
	} else if b == nil {
		return a
	}
	if Dynamic(a) && !isRef(a) {
		return a
	}
	if Dynamic(b) && !isRef(b) {
		return b
	}

	anyA, ok1 := a.(Any)
	anyB, ok2 := b.(Any)
	switch {
	case ok1 && ok2:
		result := Type(anyA)
		for _, x := range anyB {
			result = Unify(result, x)
		}
		return result
	case ok2:
		return unifyAny(anyB, a)
	case ok1:
		return unifyAny(anyA, b)
	}

	if Compare(a, b) == 0 {
		return a
	}

	switch a := a.(type) {
	case *Record:
		switch b := b.(type) {
		case *Record:
			return unifyRecords(a, b)
		case Nil:
			return optionalize(a)
		}
	case *Array:
		if b, ok := b.(*Array); ok {
			return NewArray(Unify(a.elem, b.elem))
		}
	case Nil:
		if b, ok := b.(*Record); ok {
			return optionalize(b)
		}
	}

	return NewAny(a, b)
}

func isRef(t Type) bool {
	_, ok := t.(*RuleRef)
	return ok
}

func unifyAny(a Any, b Type) Type {
	result := make(Any, 0, len(a)+1)
	merged := false
	for _, x := range a {
		if merged {
			result = append(result, x)
			continue
		}
		u := Unify(x, b)
		if _, ok := u.(Any); !ok {
			result = append(result, u)
			merged = true
			continue
		}
		result = append(result, x)
	}
	if !merged {
		result = append(result, b)
	}
	if len(result) == 1 {
		return result[0]
	}
	return NewAny(result...)
}

func unifyRecords(a, b *Record) *Record {
	fields := []*Field{}
	for _, fa := range a.fields {
		if fb := b.Select(fa.Key); fb != nil {
			fields = append(fields, NewField(fa.Key, Unify(fa.Value, fb.Value), fa.Optional || fb.Optional))
		} else {
			fields = append(fields, NewField(fa.Key, fa.Value, true))
		}
	}
	for _, fb := range b.fields {
		if a.Select(fb.Key) == nil {
			fields = append(fields, NewField(fb.Key, fb.Value, true))
		}
	}
	return NewRecord(fields...)
}

func optionalize(r *Record) *Record {
	fields := make([]*Field, len(r.fields))
	for i, f := range r.fields {
		fields[i] = NewField(f.Key, f.Value, true)
	}
	return NewRecord(fields...)
}

// Nullable returns the shape of an optional value of type t: records keep all
// of their keys with values that may be nil, other shapes may be replaced by
// the nil placeholder.
func Nullable(t Type) Type {
	switch t := t.(type) {
	case nil:
		return nil
	case *Record:
		fields := make([]*Field, len(t.fields))
		for i, f := range t.fields {
			fields[i] = NewField(f.Key, orNil(f.Value), f.Optional)
		}
		return NewRecord(fields...)
	}
	return orNil(t)
}

func orNil(t Type) Type {
	switch t := t.(type) {
	case Nil:
		return t
	case Any:
		if len(t) == 0 || t.Contains(N) {
			return t
		}
		return NewAny(append(append(Any{}, t...), N)...)
	}
	return NewAny(t, N)
}

// MergeError is returned when two values cannot be merged into one record.
type MergeError struct {
	Left  Type
	Right Type
	Key   string
}

func (e *MergeError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("duplicate label %q", e.Key)
	}
	return fmt.Sprintf("cannot merge %v with %v", Sprint(e.Left), Sprint(e.Right))
}

// Merge returns the shape of the record produced by merging the values of
// two sequenced expressions. Nil placeholders merge away. Labels present in
// both records cause an error unless one of them is optional. Values that are
// not records cannot be merged.
func Merge(a, b Type) (Type, error) {
	if a == nil {
		return b, nil
	} else if b == nil {
		return a, nil
	}

	ra, dynA, err := asRecord(a)
	if err != nil {
		return nil, &MergeError{Left: a, Right: b}
	}

	rb, dynB, err := asRecord(b)
	if err != nil {
		return nil, &MergeError{Left: a, Right: b}
	}

	if dynA || dynB {
		return A, nil
	}

	fields := []*Field{}
	for _, fa := range ra.fields {
		fb := rb.Select(fa.Key)
		if fb == nil {
			fields = append(fields, fa)
			continue
		}
		if !fa.Optional && !fb.Optional {
			return nil, &MergeError{Left: a, Right: b, Key: fa.Key}
		}
		fields = append(fields, NewField(fa.Key, Unify(fa.Value, fb.Value), fa.Optional && fb.Optional))
	}
	for _, fb := range rb.fields {
		if ra.Select(fb.Key) == nil {
			fields = append(fields, fb)
		}
	}
	return NewRecord(fields...), nil
}

// asRecord returns the record shape of t. The dynamic flag is set if the
// shape can only be checked at match time.
func asRecord(t Type) (*Record, bool, error) {
	switch t := t.(type) {
	case *Record:
		return t, false, nil
	case Nil:
		return NewRecord(), false, nil
	case *RuleRef:
		return nil, true, nil
	case Any:
		if len(t) == 0 {
			return nil, true, nil
		}
		var result Type
		found := false
		for _, x := range t {
			switch x.(type) {
			case *Record, Nil:
				result = Unify(result, x)
				found = true
			case *RuleRef:
				return nil, true, nil
			}
		}
		if !found {
			return nil, false, fmt.Errorf("not a record")
		}
		if r, ok := result.(*Record); ok {
			return r, false, nil
		}
		return NewRecord(), false, nil
	}
	return nil, false, fmt.Errorf("not a record")
}

type typeSlice []Type

func (s typeSlice) Less(i, j int) bool { return Compare(s[i], s[j]) < 0 }
func (s typeSlice) Swap(i, j int)      { x := s[i]; s[i] = s[j]; s[j] = x }
func (s typeSlice) Len() int           { return len(s) }

func typeSliceCompare(a, b []Type) int {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		if cmp := Compare(a[i], b[i]); cmp != 0 {
			return cmp
		}
	}
	if len(a) < len(b) {
		return -1
	} else if len(b) < len(a) {
		return 1
	}
	return 0
}

func typeOrder(x Type) int {
	switch x.(type) {
	case Nil:
		return 0
	case Boolean:
		return 1
	case InputRange:
		return 2
	case *Array:
		return 3
	case *Record:
		return 4
	case *Object:
		return 5
	case *Computed:
		return 6
	case *RuleRef:
		return 7
	case Any:
		return 8
	case nil:
		return -1
	}
	panic("unreachable")
}
