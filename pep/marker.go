// Copyright 2025 The DepLock Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pep

import (
	"strings"
)

// Marker is a parsed environment marker expression. It is immutable and
// may be evaluated any number of times, against any environment.
type Marker struct {
	root *markerNode
	text string
}

// The expression tree is a tagged variant rather than a type hierarchy;
// evaluation is a single recursive switch.
type nodeKind int

const (
	nodeAnd nodeKind = iota
	nodeOr
	nodeNot
	nodeCompare
)

type compareOp int

const (
	cmpEq compareOp = iota
	cmpNe
	cmpLt
	cmpLe
	cmpGt
	cmpGe
	cmpIn
	cmpNotIn
)

type markerNode struct {
	kind        nodeKind
	left, right *markerNode // and, or
	child       *markerNode // not
	lhs, rhs    markerValue // compare
	op          compareOp
}

// markerValue is one side of a comparison: either a quoted literal or a
// variable name resolved at evaluation time.
type markerValue struct {
	literal bool
	text    string
}

// ParseMarker parses a marker expression such as
//
//	python_version >= "3.9" and (sys_platform == "linux" or os_name == "posix")
//
// Variable names are not checked at parse time; an unknown variable only
// surfaces when the marker is evaluated.
func ParseMarker(s string) (*Marker, error) {
	lx := &markerLexer{input: s}
	if err := lx.tokenize(); err != nil {
		return nil, err
	}
	p := &markerParser{expr: s, tokens: lx.tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &MarkerSyntaxError{Expr: s, Pos: tok.pos, Reason: "unexpected trailing input"}
	}
	return &Marker{root: root, text: strings.TrimSpace(s)}, nil
}

// MustParseMarker is ParseMarker for statically known expressions.
func MustParseMarker(s string) *Marker {
	m, err := ParseMarker(s)
	if err != nil {
		panic(err)
	}
	return m
}

// String returns the original expression text.
func (m *Marker) String() string { return m.text }

// Or combines markers into a single disjunction. It returns nil when no
// markers are given and the sole marker when given one.
func Or(markers ...*Marker) *Marker {
	if len(markers) == 0 {
		return nil
	}
	combined := markers[0]
	for _, m := range markers[1:] {
		combined = &Marker{
			root: &markerNode{kind: nodeOr, left: combined.root, right: m.root},
			text: combined.text + " or " + m.text,
		}
	}
	return combined
}

// Evaluate resolves the expression against env. It is total: the same
// marker and environment always produce the same answer.
func (m *Marker) Evaluate(env *Environment) (bool, error) {
	return evalNode(m.root, env)
}

func evalNode(n *markerNode, env *Environment) (bool, error) {
	switch n.kind {
	case nodeAnd:
		l, err := evalNode(n.left, env)
		if err != nil {
			return false, err
		}
		if !l {
			return false, nil
		}
		return evalNode(n.right, env)
	case nodeOr:
		l, err := evalNode(n.left, env)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return evalNode(n.right, env)
	case nodeNot:
		v, err := evalNode(n.child, env)
		if err != nil {
			return false, err
		}
		return !v, nil
	default:
		return evalCompare(n, env)
	}
}

func evalCompare(n *markerNode, env *Environment) (bool, error) {
	lhs, err := resolveValue(n.lhs, env)
	if err != nil {
		return false, err
	}
	rhs, err := resolveValue(n.rhs, env)
	if err != nil {
		return false, err
	}

	switch n.op {
	case cmpEq:
		return lhs == rhs, nil
	case cmpNe:
		return lhs != rhs, nil
	case cmpIn:
		return strings.Contains(rhs, lhs), nil
	case cmpNotIn:
		return !strings.Contains(rhs, lhs), nil
	}

	// Ordered comparison. Against the python version variables both sides
	// are versions; everything else compares lexicographically.
	if versionVariable(n.lhs) || versionVariable(n.rhs) {
		lv, err := ParseVersion(lhs)
		if err != nil {
			return false, err
		}
		rv, err := ParseVersion(rhs)
		if err != nil {
			return false, err
		}
		return orderedResult(n.op, lv.Compare(rv)), nil
	}
	return orderedResult(n.op, strings.Compare(lhs, rhs)), nil
}

func orderedResult(op compareOp, c int) bool {
	switch op {
	case cmpLt:
		return c < 0
	case cmpLe:
		return c <= 0
	case cmpGt:
		return c > 0
	default: // cmpGe
		return c >= 0
	}
}

func versionVariable(v markerValue) bool {
	return !v.literal && (v.text == "python_version" || v.text == "python_full_version")
}

func resolveValue(v markerValue, env *Environment) (string, error) {
	if v.literal {
		return v.text, nil
	}
	return env.MarkerValue(v.text)
}

// Lexing.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokOp // one of == != <= >= < >
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type markerLexer struct {
	input  string
	pos    int
	tokens []token
}

func (lx *markerLexer) tokenize() error {
	for {
		lx.skipSpace()
		if lx.pos >= len(lx.input) {
			lx.tokens = append(lx.tokens, token{kind: tokEOF, pos: lx.pos})
			return nil
		}
		start := lx.pos
		c := lx.input[lx.pos]
		switch {
		case c == '(':
			lx.pos++
			lx.tokens = append(lx.tokens, token{kind: tokLParen, text: "(", pos: start})
		case c == ')':
			lx.pos++
			lx.tokens = append(lx.tokens, token{kind: tokRParen, text: ")", pos: start})
		case c == '"' || c == '\'':
			lit, err := lx.scanString(c)
			if err != nil {
				return err
			}
			lx.tokens = append(lx.tokens, token{kind: tokString, text: lit, pos: start})
		case c == '<' || c == '>' || c == '=' || c == '!':
			op, err := lx.scanOperator()
			if err != nil {
				return err
			}
			lx.tokens = append(lx.tokens, token{kind: tokOp, text: op, pos: start})
		case isIdentByte(c):
			for lx.pos < len(lx.input) && isIdentByte(lx.input[lx.pos]) {
				lx.pos++
			}
			lx.tokens = append(lx.tokens, token{kind: tokIdent, text: lx.input[start:lx.pos], pos: start})
		default:
			return &MarkerSyntaxError{Expr: lx.input, Pos: start, Reason: "unexpected character"}
		}
	}
}

func (lx *markerLexer) skipSpace() {
	for lx.pos < len(lx.input) {
		switch lx.input[lx.pos] {
		case ' ', '\t', '\n', '\r':
			lx.pos++
		default:
			return
		}
	}
}

func (lx *markerLexer) scanString(quote byte) (string, error) {
	start := lx.pos
	lx.pos++
	for lx.pos < len(lx.input) {
		if lx.input[lx.pos] == quote {
			lit := lx.input[start+1 : lx.pos]
			lx.pos++
			return lit, nil
		}
		lx.pos++
	}
	return "", &MarkerSyntaxError{Expr: lx.input, Pos: start, Reason: "unterminated string literal"}
}

func (lx *markerLexer) scanOperator() (string, error) {
	start := lx.pos
	if lx.pos+1 < len(lx.input) && lx.input[lx.pos+1] == '=' {
		lx.pos += 2
		return lx.input[start:lx.pos], nil
	}
	if lx.input[lx.pos] == '<' || lx.input[lx.pos] == '>' {
		lx.pos++
		return lx.input[start:lx.pos], nil
	}
	return "", &MarkerSyntaxError{Expr: lx.input, Pos: start, Reason: "incomplete operator"}
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Parsing. Standard precedence: or < and < not < comparison.

type markerParser struct {
	expr   string
	tokens []token
	pos    int
}

func (p *markerParser) peek() token { return p.tokens[p.pos] }

func (p *markerParser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *markerParser) parseOr() (*markerNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().text == "or" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &markerNode{kind: nodeOr, left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseAnd() (*markerNode, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().text == "and" {
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &markerNode{kind: nodeAnd, left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseFactor() (*markerNode, error) {
	tok := p.peek()
	switch {
	case tok.kind == tokIdent && tok.text == "not":
		// Distinguish the prefix form from "x not in y": the latter never
		// has "not" in factor position.
		p.next()
		child, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &markerNode{kind: nodeNot, child: child}, nil
	case tok.kind == tokLParen:
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &MarkerSyntaxError{Expr: p.expr, Pos: closing.pos, Reason: "expected closing parenthesis"}
		}
		return inner, nil
	default:
		return p.parseComparison()
	}
}

func (p *markerParser) parseComparison() (*markerNode, error) {
	lhs, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	var op compareOp
	tok := p.next()
	switch {
	case tok.kind == tokOp:
		switch tok.text {
		case "==":
			op = cmpEq
		case "!=":
			op = cmpNe
		case "<":
			op = cmpLt
		case "<=":
			op = cmpLe
		case ">":
			op = cmpGt
		case ">=":
			op = cmpGe
		}
	case tok.kind == tokIdent && tok.text == "in":
		op = cmpIn
	case tok.kind == tokIdent && tok.text == "not":
		if in := p.next(); !(in.kind == tokIdent && in.text == "in") {
			return nil, &MarkerSyntaxError{Expr: p.expr, Pos: in.pos, Reason: "expected 'in' after 'not'"}
		}
		op = cmpNotIn
	default:
		return nil, &MarkerSyntaxError{Expr: p.expr, Pos: tok.pos, Reason: "expected comparison operator"}
	}

	rhs, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if lhs.literal && rhs.literal {
		return nil, &MarkerSyntaxError{Expr: p.expr, Pos: tok.pos, Reason: "comparison needs a marker variable on one side"}
	}
	return &markerNode{kind: nodeCompare, lhs: lhs, rhs: rhs, op: op}, nil
}

func (p *markerParser) parseValue() (markerValue, error) {
	tok := p.next()
	switch tok.kind {
	case tokString:
		return markerValue{literal: true, text: tok.text}, nil
	case tokIdent:
		switch tok.text {
		case "and", "or", "not", "in":
			return markerValue{}, &MarkerSyntaxError{Expr: p.expr, Pos: tok.pos, Reason: "keyword in value position"}
		}
		return markerValue{text: tok.text}, nil
	default:
		return markerValue{}, &MarkerSyntaxError{Expr: p.expr, Pos: tok.pos, Reason: "expected variable or quoted literal"}
	}
}
