// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultRuleName is the name given to the rule parsed by ParseRule.
const DefaultRuleName = "rule"

// ParserOptions defines the options for parsing grammar source.
type ParserOptions struct {
	// Filename is recorded in the locations of parsed expressions.
	Filename string
}

// ParseGrammar returns a grammar parsed from the source text. The source is a
// sequence of rule definitions:
//
//	rule name(param, ...)
//	  expression
//	end
func ParseGrammar(filename, src string) (*Grammar, error) {
	return ParseGrammarWithOpts(src, ParserOptions{Filename: filename})
}

// ParseGrammarWithOpts returns a grammar parsed from the source text using
// the given options.
func ParseGrammarWithOpts(src string, opts ParserOptions) (g *Grammar, err error) {
	p := newParser(src, opts)
	defer p.recover(&err)

	g = &Grammar{}
	p.skip()
	for !p.eof() {
		r := p.parseRuleDefinition()
		if g.Lookup(r.Name) != nil {
			p.errorf(r.Location, "rule %q redefined", r.Name)
		}
		g.Add(r)
		p.skip()
	}

	if len(g.Rules) == 0 {
		p.errorf(p.loc(), "empty grammar")
	}

	return g, nil
}

// ParseRule returns a single-rule grammar whose rule body is parsed from the
// source text. The rule is named DefaultRuleName.
func ParseRule(src string) (*Grammar, error) {
	return ParseRuleWithOpts(src, ParserOptions{})
}

// ParseRuleWithOpts returns a single-rule grammar using the given options.
func ParseRuleWithOpts(src string, opts ParserOptions) (g *Grammar, err error) {
	p := newParser(src, opts)
	defer p.recover(&err)

	p.skip()
	loc := p.loc()
	body := p.parseExpression()
	p.skip()
	if !p.eof() {
		p.unexpected("end of rule")
	}

	return NewGrammar(&Rule{Location: loc, Name: DefaultRuleName, Body: body}), nil
}

// ParseExpression returns a single parsing expression parsed from the source
// text.
func ParseExpression(src string) (Expression, error) {
	g, err := ParseRule(src)
	if err != nil {
		return nil, err
	}
	return g.Rules[0].Body, nil
}

// MustParseGrammar returns a parsed grammar. If an error occurs during
// parsing, panic.
func MustParseGrammar(src string) *Grammar {
	g, err := ParseGrammar("", src)
	if err != nil {
		panic(err)
	}
	return g
}

// MustParseRule returns a parsed single-rule grammar. If an error occurs
// during parsing, panic.
func MustParseRule(src string) *Grammar {
	g, err := ParseRule(src)
	if err != nil {
		panic(err)
	}
	return g
}

// MustParseExpression returns a parsed expression. If an error occurs during
// parsing, panic.
func MustParseExpression(src string) Expression {
	e, err := ParseExpression(src)
	if err != nil {
		panic(err)
	}
	return e
}

type bailout struct {
	err *Error
}

type parser struct {
	src  string
	file string
	pos  int
	row  int
	col  int
}

func newParser(src string, opts ParserOptions) *parser {
	return &parser{src: src, file: opts.Filename, row: 1, col: 1}
}

func (p *parser) recover(err *error) {
	if r := recover(); r != nil {
		b, ok := r.(bailout)
		if !ok {
			panic(r)
		}
		*err = Errors{b.err}
	}
}

func (p *parser) errorf(loc *Location, f string, a ...any) {
	panic(bailout{NewError(ParseErr, loc, f, a...)})
}

func (p *parser) unexpected(expected string) {
	if p.eof() {
		p.errorf(p.loc(), "unexpected end of input, expected %v", expected)
	}
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	p.errorf(p.loc(), "unexpected %q, expected %v", r, expected)
}

func (p *parser) loc() *Location {
	return &Location{File: p.file, Row: p.row, Col: p.col, Offset: p.pos}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekAt(n int) byte {
	if p.pos+n >= len(p.src) {
		return 0
	}
	return p.src[p.pos+n]
}

func (p *parser) hasPrefix(s string) bool {
	return strings.HasPrefix(p.src[p.pos:], s)
}

func (p *parser) next() rune {
	r, size := utf8.DecodeRuneInString(p.src[p.pos:])
	p.pos += size
	if r == '\n' {
		p.row++
		p.col = 1
	} else {
		p.col++
	}
	return r
}

func (p *parser) advance(n int) {
	for i := 0; i < n; i++ {
		p.next()
	}
}

func (p *parser) expect(s string) {
	if !p.hasPrefix(s) {
		p.unexpected(fmt.Sprintf("%q", s))
	}
	p.advance(len(s))
}

// skip skips whitespace and comments.
func (p *parser) skip() {
	for !p.eof() {
		switch c := p.peek(); {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.next()
		case c == '#':
			for !p.eof() && p.peek() != '\n' {
				p.next()
			}
		default:
			return
		}
	}
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

func (p *parser) peekName() string {
	if !isNameStart(p.peek()) {
		return ""
	}
	end := p.pos + 1
	for end < len(p.src) && isNameChar(p.src[end]) {
		end++
	}
	return p.src[p.pos:end]
}

func (p *parser) parseName() string {
	name := p.peekName()
	if name == "" {
		p.unexpected("name")
	}
	p.advance(len(name))
	return name
}

func (p *parser) atKeyword() bool {
	switch p.peekName() {
	case "end", "rule":
		return true
	}
	return false
}

func (p *parser) parseRuleDefinition() *Rule {
	loc := p.loc()
	if p.peekName() != "rule" {
		p.unexpected(`"rule"`)
	}
	p.advance(len("rule"))
	p.skip()

	r := &Rule{Location: loc, Name: p.parseName()}

	// Parameters must follow the name directly, otherwise the parenthesis
	// opens the body.
	if p.peek() == '(' {
		p.next()
		for {
			p.skip()
			name := p.parseName()
			if r.HasParam(name) {
				p.errorf(p.loc(), "duplicate parameter %q in rule %q", name, r.Name)
			}
			r.Params = append(r.Params, name)
			p.skip()
			if p.peek() == ',' {
				p.next()
				continue
			}
			p.expect(")")
			break
		}
	}

	p.skip()
	r.Body = p.parseExpression()
	p.skip()

	if p.peekName() != "end" {
		p.unexpected(`"end"`)
	}
	p.advance(len("end"))

	return r
}

func (p *parser) parseExpression() Expression {
	return p.parseChoice()
}

func (p *parser) parseChoice() Expression {
	loc := p.loc()
	alts := []Expression{p.parseAlternative()}
	for {
		p.skip()
		if p.peek() != '/' {
			break
		}
		p.next()
		p.skip()
		alts = append(alts, p.parseAlternative())
	}
	result := alts[len(alts)-1]
	for i := len(alts) - 2; i >= 0; i-- {
		l := loc
		if i > 0 {
			l = alts[i].Loc()
		}
		result = &Choice{Location: l, First: alts[i], Second: result}
	}
	return result
}

func (p *parser) parseAlternative() Expression {
	loc := p.loc()
	seq := p.parseSequence()
	p.skip()

	switch p.peek() {
	case '<':
		p.next()
		var class []string
		for {
			p.skip()
			class = append(class, p.parseName())
			p.skip()
			if p.hasPrefix("::") {
				p.advance(2)
				continue
			}
			p.expect(">")
			break
		}
		return &ObjectCreator{Location: loc, Child: seq, Class: class}
	case '{':
		return &ValueCreator{Location: loc, Child: seq, Code: p.parseCode()}
	}

	return seq
}

func (p *parser) parseCode() string {
	p.expect("{")
	start := p.pos
	depth := 1
	for {
		if p.eof() {
			p.unexpected(`"}"`)
		}
		switch p.next() {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(p.src[start : p.pos-1])
			}
		}
	}
}

func (p *parser) atSequenceEnd() bool {
	if p.eof() {
		return true
	}
	switch p.peek() {
	case ')', ']', '/', '<', '{', ',':
		return true
	}
	return p.atKeyword()
}

func (p *parser) parseSequence() Expression {
	p.skip()
	if p.atSequenceEnd() {
		p.unexpected("expression")
	}
	loc := p.loc()
	result := p.parsePrefix()
	for {
		p.skip()
		if p.atSequenceEnd() {
			return result
		}
		result = &Sequence{Location: loc, First: result, Second: p.parsePrefix()}
	}
}

func (p *parser) parsePrefix() Expression {
	loc := p.loc()
	switch p.peek() {
	case '&':
		p.next()
		p.skip()
		return &PositiveLookahead{Location: loc, Child: p.parseLabeled()}
	case '!':
		p.next()
		p.skip()
		return &NegativeLookahead{Location: loc, Child: p.parseLabeled()}
	}
	return p.parseLabeled()
}

func (p *parser) parseLabeled() Expression {
	loc := p.loc()

	switch {
	case p.hasPrefix("@:"):
		p.advance(2)
		p.skip()
		return &Label{Location: loc, Child: p.parseSuffix(), IsAt: true}

	case p.peek() == ':' && isNameStart(p.peekAt(1)):
		p.next()
		name := p.parseName()
		child := &RuleCall{Location: loc, Name: name}
		return &Label{Location: loc, Child: p.parseSuffixOf(child), Name: name}

	case p.peek() == '%':
		if name := p.peekNameAt(1); name != "" && p.peekAt(1+len(name)) == ':' {
			p.advance(1 + len(name) + 1)
			p.skip()
			return &Label{Location: loc, Child: p.parseSuffix(), Name: name, IsLocal: true}
		}

	default:
		if name := p.peekName(); name != "" && !p.atKeyword() && p.peekAt(len(name)) == ':' && p.peekAt(len(name)+1) != ':' {
			p.advance(len(name) + 1)
			p.skip()
			return &Label{Location: loc, Child: p.parseSuffix(), Name: name}
		}
	}

	return p.parseSuffix()
}

func (p *parser) peekNameAt(n int) string {
	save := p.pos
	p.pos += n
	name := p.peekName()
	p.pos = save
	return name
}

func (p *parser) parseSuffix() Expression {
	return p.parseSuffixOf(p.parsePrimary())
}

func (p *parser) parseSuffixOf(e Expression) Expression {
	for {
		loc := e.Loc()
		switch {
		case p.hasPrefix("*->"):
			p.advance(3)
			p.skip()
			e = &Until{Location: loc, Child: e, Until: p.parsePrimary()}
		case p.peek() == '*' || p.peek() == '+':
			atLeastOnce := p.next() == '+'
			rep := &Repetition{Location: loc, Child: e, AtLeastOnce: atLeastOnce}
			if p.peek() == '[' {
				p.next()
				p.skip()
				rep.Glue = p.parseExpression()
				p.skip()
				p.expect("]")
			}
			e = rep
		case p.peek() == '?':
			p.next()
			e = &Optional{Location: loc, Child: e}
		default:
			return e
		}
	}
}

func (p *parser) parsePrimary() Expression {
	loc := p.loc()

	switch c := p.peek(); {
	case c == '\'' || c == '"':
		q := c
		p.next()
		return &StringTerminal{Location: loc, Value: p.parseQuoted(q), Fold: q == '"'}

	case c == '[':
		return p.parseClass()

	case c == '.':
		p.next()
		return &AnyCharacter{Location: loc}

	case c == '(':
		p.next()
		p.skip()
		child := p.parseExpression()
		p.skip()
		p.expect(")")
		return &Parenthesized{Location: loc, Child: child}

	case c == '%':
		p.next()
		return &LocalValue{Location: loc, Name: p.parseName()}

	case c == '$':
		p.next()
		f := &Function{Location: loc, Name: p.parseName()}
		if p.peek() == '[' {
			p.next()
			f.Args = p.parseArgs(']')
		}
		return f

	case isNameStart(c) && !p.atKeyword():
		call := &RuleCall{Location: loc, Name: p.parseName()}
		if p.peek() == '(' {
			p.next()
			call.Args = p.parseArgs(')')
		}
		return call
	}

	p.unexpected("expression")
	return nil
}

func (p *parser) parseArgs(closing byte) []Expression {
	var args []Expression
	for {
		p.skip()
		args = append(args, p.parseExpression())
		p.skip()
		if p.peek() == ',' {
			p.next()
			continue
		}
		p.expect(string(closing))
		return args
	}
}

func (p *parser) parseQuoted(q byte) string {
	var sb strings.Builder
	for {
		if p.eof() {
			p.unexpected(fmt.Sprintf("%q", q))
		}
		c := p.next()
		switch {
		case c == rune(q):
			return sb.String()
		case c == '\\':
			if p.eof() {
				p.unexpected("escape sequence")
			}
			sb.WriteRune(unescape(p.next()))
		default:
			sb.WriteRune(c)
		}
	}
}

func (p *parser) parseClass() Expression {
	loc := p.loc()
	p.expect("[")
	cc := &CharacterClass{Location: loc}
	if p.peek() == '^' {
		p.next()
		cc.Inverted = true
	}
	for {
		if p.eof() {
			p.unexpected(`"]"`)
		}
		if p.peek() == ']' {
			p.next()
			break
		}
		lo := p.parseClassRune()
		hi := lo
		if p.peek() == '-' && p.peekAt(1) != ']' {
			p.next()
			hi = p.parseClassRune()
			if hi < lo {
				p.errorf(loc, "invalid character range %q-%q", lo, hi)
			}
		}
		cc.Ranges = append(cc.Ranges, CharRange{Lo: lo, Hi: hi})
	}
	if len(cc.Ranges) == 0 {
		p.errorf(loc, "empty character class")
	}
	return cc
}

func (p *parser) parseClassRune() rune {
	if p.eof() {
		p.unexpected("character")
	}
	c := p.next()
	if c == '\\' {
		if p.eof() {
			p.unexpected("escape sequence")
		}
		return unescape(p.next())
	}
	return c
}

func unescape(c rune) rune {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	}
	return c
}
