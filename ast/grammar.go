// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package ast declares parsing expression grammar (PEG) types and the parser
// for the textual grammar syntax.
package ast

import (
	"fmt"
	"strings"
)

type (
	// Grammar is an ordered table of rules. Rule calls refer to rules by name
	// and are resolved through the table, so a grammar may be recursive
	// without its rules owning each other.
	Grammar struct {
		Rules []*Rule `json:"rules"`

		index map[string]int
	}

	// Rule is a named parsing expression with optional formal parameters.
	Rule struct {
		Location *Location  `json:"location,omitempty"`
		Name     string     `json:"name"`
		Params   []string   `json:"params,omitempty"`
		Body     Expression `json:"-"`
	}

	// Expression is the interface implemented by all parsing expression kinds.
	Expression interface {
		Loc() *Location
		String() string
		exprMarker()
	}

	// StringTerminal matches a literal string. If Fold is set the match is
	// ASCII case-insensitive.
	StringTerminal struct {
		Location *Location
		Value    string
		Fold     bool
	}

	// CharacterClass matches a single code point inside (or, if Inverted,
	// outside) one of the ranges.
	CharacterClass struct {
		Location *Location
		Ranges   []CharRange
		Inverted bool
	}

	// CharRange is an inclusive range of code points.
	CharRange struct {
		Lo rune
		Hi rune
	}

	// AnyCharacter matches any single code point.
	AnyCharacter struct {
		Location *Location
	}

	// Sequence matches First followed by Second.
	Sequence struct {
		Location *Location
		First    Expression
		Second   Expression
	}

	// Choice matches First or, if First fails, Second.
	Choice struct {
		Location *Location
		First    Expression
		Second   Expression
	}

	// Repetition matches Child zero or more (one or more if AtLeastOnce)
	// times. If Glue is set it must match between two occurrences of Child.
	Repetition struct {
		Location    *Location
		Child       Expression
		Glue        Expression
		AtLeastOnce bool
	}

	// Optional matches Child or nothing.
	Optional struct {
		Location *Location
		Child    Expression
	}

	// Until matches Child repeatedly until Until matches.
	Until struct {
		Location *Location
		Child    Expression
		Until    Expression
	}

	// PositiveLookahead succeeds if Child matches, without consuming input.
	PositiveLookahead struct {
		Location *Location
		Child    Expression
	}

	// NegativeLookahead succeeds if Child does not match, without consuming
	// input.
	NegativeLookahead struct {
		Location *Location
		Child    Expression
	}

	// RuleCall invokes the rule with the given name and arguments.
	RuleCall struct {
		Location *Location
		Name     string
		Args     []Expression
	}

	// Label binds the value of Child to Name. Local labels are visible to
	// LocalValue references in the same rule but do not appear in the
	// output. At labels pass the bare value of Child through. Synthetic
	// labels are introduced by the compiler and never appear in grammar
	// source.
	Label struct {
		Location  *Location
		Child     Expression
		Name      string
		IsLocal   bool
		IsAt      bool
		Synthetic bool
	}

	// LocalValue reproduces the value captured by a local label or passed as a
	// rule argument.
	LocalValue struct {
		Location *Location
		Name     string
	}

	// Parenthesized groups Child.
	Parenthesized struct {
		Location *Location
		Child    Expression
	}

	// ObjectCreator tags the value of Child with a class path. The object is
	// instantiated when the output is realized.
	ObjectCreator struct {
		Location *Location
		Child    Expression
		Class    []string
	}

	// ValueCreator tags the value of Child with a code fragment that is
	// evaluated when the output is realized.
	ValueCreator struct {
		Location *Location
		Child    Expression
		Code     string
	}

	// Function invokes one of the built-in functions, e.g., $error['msg'].
	Function struct {
		Location *Location
		Name     string
		Args     []Expression
	}
)

// NewGrammar returns a grammar containing rules. Later definitions of a rule
// name shadow earlier ones.
func NewGrammar(rules ...*Rule) *Grammar {
	g := &Grammar{}
	for _, r := range rules {
		g.Add(r)
	}
	return g
}

// Add appends r to the grammar, replacing a rule with the same name.
func (g *Grammar) Add(r *Rule) {
	if g.index == nil {
		g.index = map[string]int{}
		for i, x := range g.Rules {
			g.index[x.Name] = i
		}
	}
	if i, ok := g.index[r.Name]; ok {
		g.Rules[i] = r
		return
	}
	g.index[r.Name] = len(g.Rules)
	g.Rules = append(g.Rules, r)
}

// Lookup returns the rule with the given name or nil.
func (g *Grammar) Lookup(name string) *Rule {
	if g.index == nil {
		for _, r := range g.Rules {
			if r.Name == name {
				return r
			}
		}
		return nil
	}
	if i, ok := g.index[name]; ok {
		return g.Rules[i]
	}
	return nil
}

// Names returns the rule names in definition order.
func (g *Grammar) Names() []string {
	names := make([]string, len(g.Rules))
	for i, r := range g.Rules {
		names[i] = r.Name
	}
	return names
}

// Copy returns a shallow copy of g. Rules are shared.
func (g *Grammar) Copy() *Grammar {
	return NewGrammar(g.Rules...)
}

func (g *Grammar) String() string {
	buf := make([]string, len(g.Rules))
	for i, r := range g.Rules {
		buf[i] = r.String()
	}
	return strings.Join(buf, "\n\n")
}

func (r *Rule) String() string {
	var sb strings.Builder
	sb.WriteString("rule ")
	sb.WriteString(r.Name)
	if len(r.Params) > 0 {
		sb.WriteString("(")
		sb.WriteString(strings.Join(r.Params, ", "))
		sb.WriteString(")")
	}
	sb.WriteString("\n  ")
	sb.WriteString(r.Body.String())
	sb.WriteString("\nend")
	return sb.String()
}

// HasParam returns true if name is a formal parameter of r.
func (r *Rule) HasParam(name string) bool {
	for _, p := range r.Params {
		if p == name {
			return true
		}
	}
	return false
}

func (e *StringTerminal) Loc() *Location    { return e.Location }
func (e *CharacterClass) Loc() *Location    { return e.Location }
func (e *AnyCharacter) Loc() *Location      { return e.Location }
func (e *Sequence) Loc() *Location          { return e.Location }
func (e *Choice) Loc() *Location            { return e.Location }
func (e *Repetition) Loc() *Location        { return e.Location }
func (e *Optional) Loc() *Location          { return e.Location }
func (e *Until) Loc() *Location             { return e.Location }
func (e *PositiveLookahead) Loc() *Location { return e.Location }
func (e *NegativeLookahead) Loc() *Location { return e.Location }
func (e *RuleCall) Loc() *Location          { return e.Location }
func (e *Label) Loc() *Location             { return e.Location }
func (e *LocalValue) Loc() *Location        { return e.Location }
func (e *Parenthesized) Loc() *Location     { return e.Location }
func (e *ObjectCreator) Loc() *Location     { return e.Location }
func (e *ValueCreator) Loc() *Location      { return e.Location }
func (e *Function) Loc() *Location          { return e.Location }

func (*StringTerminal) exprMarker()    {}
func (*CharacterClass) exprMarker()    {}
func (*AnyCharacter) exprMarker()      {}
func (*Sequence) exprMarker()          {}
func (*Choice) exprMarker()            {}
func (*Repetition) exprMarker()        {}
func (*Optional) exprMarker()          {}
func (*Until) exprMarker()             {}
func (*PositiveLookahead) exprMarker() {}
func (*NegativeLookahead) exprMarker() {}
func (*RuleCall) exprMarker()          {}
func (*Label) exprMarker()             {}
func (*LocalValue) exprMarker()        {}
func (*Parenthesized) exprMarker()     {}
func (*ObjectCreator) exprMarker()     {}
func (*ValueCreator) exprMarker()      {}
func (*Function) exprMarker()          {}

func (e *StringTerminal) String() string {
	q := byte('\'')
	if e.Fold {
		q = '"'
	}
	return quote(e.Value, q)
}

// Expectation returns the human-readable description reported when the
// terminal fails to match.
func (e *StringTerminal) Expectation() string {
	return e.String()
}

func (e *CharacterClass) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	if e.Inverted {
		sb.WriteByte('^')
	}
	for _, r := range e.Ranges {
		sb.WriteString(escapeClassRune(r.Lo))
		if r.Hi != r.Lo {
			sb.WriteByte('-')
			sb.WriteString(escapeClassRune(r.Hi))
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

// Contains returns true if the class matches c.
func (e *CharacterClass) Contains(c rune) bool {
	in := false
	for _, r := range e.Ranges {
		if c >= r.Lo && c <= r.Hi {
			in = true
			break
		}
	}
	return in != e.Inverted
}

func (*AnyCharacter) String() string {
	return "."
}

func (e *Sequence) String() string {
	return seqPart(e.First) + " " + seqPart(e.Second)
}

func (e *Choice) String() string {
	return e.First.String() + " / " + e.Second.String()
}

func (e *Repetition) String() string {
	op := "*"
	if e.AtLeastOnce {
		op = "+"
	}
	s := wrap(e.Child) + op
	if e.Glue != nil {
		s += "[" + e.Glue.String() + "]"
	}
	return s
}

func (e *Optional) String() string {
	return wrap(e.Child) + "?"
}

func (e *Until) String() string {
	return wrap(e.Child) + "*->" + wrap(e.Until)
}

func (e *PositiveLookahead) String() string {
	return "&" + wrap(e.Child)
}

func (e *NegativeLookahead) String() string {
	return "!" + wrap(e.Child)
}

func (e *RuleCall) String() string {
	if len(e.Args) == 0 {
		return e.Name
	}
	return e.Name + "(" + joinExprs(e.Args) + ")"
}

func (e *Label) String() string {
	switch {
	case e.IsAt:
		return "@:" + wrap(e.Child)
	case e.IsLocal:
		return "%" + e.Name + ":" + wrap(e.Child)
	}
	return e.Name + ":" + wrap(e.Child)
}

func (e *LocalValue) String() string {
	return "%" + e.Name
}

func (e *Parenthesized) String() string {
	return "( " + e.Child.String() + " )"
}

func (e *ObjectCreator) String() string {
	return wrap(e.Child) + " <" + strings.Join(e.Class, "::") + ">"
}

func (e *ValueCreator) String() string {
	return wrap(e.Child) + " {" + e.Code + "}"
}

func (e *Function) String() string {
	if len(e.Args) == 0 {
		return "$" + e.Name
	}
	return "$" + e.Name + "[" + joinExprs(e.Args) + "]"
}

// wrap returns the string form of e, parenthesized unless e is a primary.
func wrap(e Expression) string {
	switch e.(type) {
	case *Sequence, *Choice, *ObjectCreator, *ValueCreator:
		return "(" + e.String() + ")"
	}
	return e.String()
}

func seqPart(e Expression) string {
	switch e.(type) {
	case *Choice, *ObjectCreator, *ValueCreator:
		return "(" + e.String() + ")"
	}
	return e.String()
}

func joinExprs(es []Expression) string {
	buf := make([]string, len(es))
	for i := range es {
		buf[i] = es[i].String()
	}
	return strings.Join(buf, ", ")
}

func quote(s string, q byte) string {
	var sb strings.Builder
	sb.WriteByte(q)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '\\':
			sb.WriteString(`\\`)
		case q:
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(q)
	return sb.String()
}

func escapeClassRune(c rune) string {
	switch c {
	case '\n':
		return `\n`
	case '\t':
		return `\t`
	case '\r':
		return `\r`
	case '\\', ']', '-', '^':
		return `\` + string(c)
	}
	return string(c)
}

// FunctionArity returns the number of arguments the built-in function expects
// and whether the function exists.
func FunctionArity(name string) (int, bool) {
	switch name {
	case "true", "false":
		return 0, true
	case "error", "match", "in_mode":
		return 1, true
	case "enter_mode", "leave_mode":
		return 2, true
	}
	return 0, false
}

// StringArg returns the literal text of the i-th argument of f. The argument
// must be a string terminal.
func (e *Function) StringArg(i int) (string, error) {
	if i >= len(e.Args) {
		return "", fmt.Errorf("$%v: missing argument %d", e.Name, i+1)
	}
	s, ok := e.Args[i].(*StringTerminal)
	if !ok {
		return "", fmt.Errorf("$%v: argument %d must be a string literal", e.Name, i+1)
	}
	return s.Value, nil
}
