package formula

import (
	"fmt"
	"sort"
)

// Variables is the closed set of names a formula may reference. The
// evaluator always derives area from length and width.
var Variables = []string{"area", "length", "width", "base_price", "rate"}

var permittedVars = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Variables))
	for _, v := range Variables {
		m[v] = struct{}{}
	}
	return m
}()

var permittedFuncs = map[string]struct{}{"min": {}, "max": {}}

// node is the closed set of AST variants. Only the kinds below exist;
// formulas never touch a general-purpose evaluator.
type node interface {
	eval(bindings map[string]float64) (float64, error)
}

type numberNode struct {
	value float64
}

type varNode struct {
	name string
}

type unaryNode struct {
	operand node
}

type binaryNode struct {
	op    tokenKind
	left  node
	right node
}

type callNode struct {
	fn   string
	arg1 node
	arg2 node
}

// Compiled is a formula parsed into its AST. Compile once, evaluate many
// times; evaluation is pure.
type Compiled struct {
	Source string
	Vars   []string
	root   node
}

// Compile parses formula source text against the restricted grammar:
// numeric literals, the permitted variables, + - * /, unary minus,
// parentheses, and two-argument min/max.
func Compile(src string) (*Compiled, error) {
	if IsEmptySource(src) {
		return nil, &CompileError{Pos: 0, Msg: "formula is empty"}
	}
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens, vars: map[string]struct{}{}}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		if tok.kind == tokRParen {
			return nil, &CompileError{Pos: tok.pos, Token: tok.text, Msg: "unbalanced parentheses"}
		}
		return nil, &CompileError{Pos: tok.pos, Token: tok.text, Msg: "unexpected token"}
	}

	vars := make([]string, 0, len(p.vars))
	for v := range p.vars {
		vars = append(vars, v)
	}
	sort.Strings(vars)

	return &Compiled{Source: src, Vars: vars, root: root}, nil
}

type parser struct {
	tokens []token
	pos    int
	vars   map[string]struct{}
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokPlus && tok.kind != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.kind, left: left, right: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokStar && tok.kind != tokSlash {
			return left, nil
		}
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.kind, left: left, right: right}
	}
}

func (p *parser) parseFactor() (node, error) {
	if tok := p.peek(); tok.kind == tokMinus {
		p.next()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return unaryNode{operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return numberNode{value: tok.value}, nil
	case tokIdent:
		if _, ok := permittedFuncs[tok.text]; ok {
			return p.parseCall(tok)
		}
		if _, ok := permittedVars[tok.text]; !ok {
			return nil, &CompileError{Pos: tok.pos, Token: tok.text, Msg: "unknown identifier"}
		}
		p.vars[tok.text] = struct{}{}
		return varNode{name: tok.text}, nil
	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &CompileError{Pos: closing.pos, Token: closing.text, Msg: "unbalanced parentheses"}
		}
		return inner, nil
	case tokEOF:
		return nil, &CompileError{Pos: tok.pos, Msg: "operator is missing an operand"}
	default:
		return nil, &CompileError{Pos: tok.pos, Token: tok.text, Msg: "operator is missing an operand"}
	}
}

func (p *parser) parseCall(fn token) (node, error) {
	if open := p.next(); open.kind != tokLParen {
		return nil, &CompileError{Pos: fn.pos, Token: fn.text, Msg: fmt.Sprintf("%s must be called with two arguments", fn.text)}
	}
	arg1, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if comma := p.next(); comma.kind != tokComma {
		return nil, &CompileError{Pos: comma.pos, Token: comma.text, Msg: fmt.Sprintf("%s takes exactly two arguments", fn.text)}
	}
	arg2, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	closing := p.next()
	if closing.kind == tokComma {
		return nil, &CompileError{Pos: closing.pos, Token: closing.text, Msg: fmt.Sprintf("%s takes exactly two arguments", fn.text)}
	}
	if closing.kind != tokRParen {
		return nil, &CompileError{Pos: closing.pos, Token: closing.text, Msg: "unbalanced parentheses"}
	}
	return callNode{fn: fn.text, arg1: arg1, arg2: arg2}, nil
}
