package types

import (
	"fmt"

	"github.com/ardnew/jinx/lang"
)

// ParseSignature parses a macro signature of the form (T, ...) -> T. A
// missing return type means None.
func ParseSignature(src string) ([]Type, Type, error) {
	p, err := newSigParser(src)
	if err != nil {
		return nil, Invalid, err
	}

	params, ret, err := p.lambda()
	if err != nil {
		return nil, Invalid, err
	}

	if err := p.expect(lang.EOF); err != nil {
		return nil, Invalid, err
	}

	return params, ret, nil
}

// ParseType parses a single type expression such as list[string].
func ParseType(src string) (Type, error) {
	p, err := newSigParser(src)
	if err != nil {
		return Invalid, err
	}

	t, err := p.typ()
	if err != nil {
		return Invalid, err
	}

	if err := p.expect(lang.EOF); err != nil {
		return Invalid, err
	}

	return t, nil
}

type sigParser struct {
	src  string
	toks []lang.Token
	pos  int
}

func newSigParser(src string) (*sigParser, error) {
	p := &sigParser{src: src}

	for tok, err := range lang.Tokenize(src) {
		if err != nil {
			return nil, err
		}

		p.toks = append(p.toks, tok)
	}

	return p, nil
}

func (p *sigParser) peek() lang.Token { return p.toks[p.pos] }

func (p *sigParser) advance() lang.Token {
	tok := p.toks[p.pos]
	if tok.Kind != lang.EOF {
		p.pos++
	}

	return tok
}

func (p *sigParser) errorf(tok lang.Token, format string, args ...any) error {
	return &lang.SyntaxError{Source: p.src, Msg: fmt.Sprintf(format, args...), Loc: tok.Span.Start}
}

func (p *sigParser) expect(kind lang.TokenKind) error {
	if tok := p.advance(); tok.Kind != kind {
		return p.errorf(tok, "expected %s, got %s", kind, tok.Kind)
	}

	return nil
}

func (p *sigParser) arrow() bool {
	if p.peek().Kind != lang.Minus || p.toks[p.pos+1].Kind != lang.Gt {
		return false
	}

	p.pos += 2

	return true
}

func (p *sigParser) lambda() ([]Type, Type, error) {
	if err := p.expect(lang.LParen); err != nil {
		return nil, Invalid, err
	}

	params, err := p.list(lang.RParen)
	if err != nil {
		return nil, Invalid, err
	}

	if p.arrow() {
		ret, err := p.typ()

		return params, ret, err
	}

	if tok := p.peek(); tok.Kind == lang.Ident {
		return nil, Invalid, p.errorf(tok, "expected '->' before return type")
	}

	return params, None, nil
}

// list parses comma-separated types up to and including the closing token.
func (p *sigParser) list(end lang.TokenKind) ([]Type, error) {
	var ts []Type

	if p.peek().Kind == end {
		p.advance()

		return ts, nil
	}

	for {
		t, err := p.typ()
		if err != nil {
			return nil, err
		}

		ts = append(ts, t)

		switch tok := p.advance(); tok.Kind {
		case lang.Comma:
		case end:
			return ts, nil
		default:
			return nil, p.errorf(tok, "expected ',' or %s in type list, got %s", end, tok.Kind)
		}
	}
}

func (p *sigParser) typ() (Type, error) {
	t, err := p.atom()
	if err != nil {
		return Invalid, err
	}

	for p.peek().Kind == lang.Pipe {
		p.advance()

		u, err := p.atom()
		if err != nil {
			return Invalid, err
		}

		t = union(t, u)
	}

	return t, nil
}

// union is [Union] without the None identity, so optional members survive.
func union(a, b Type) Type {
	switch {
	case b.IsNone():
		return OptionalOf(a)
	case a.IsNone():
		return OptionalOf(b)
	default:
		return Union(a, b)
	}
}

var simpleTypes = map[string]Type{
	"any":       Any,
	"bool":      Bool,
	"bytes":     Bytes,
	"callable":  FuncOf(nil, Any),
	"defined":   Any,
	"float":     Float,
	"integer":   Integer,
	"iterable":  SeqOf(Any),
	"mapping":   MapOf(Any, Any),
	"none":      None,
	"number":    Integer,
	"sequence":  SeqOf(Any),
	"string":    String,
	"timestamp": Timestamp,
}

func (p *sigParser) atom() (Type, error) {
	tok := p.peek()

	if tok.Kind == lang.LParen {
		params, ret, err := p.lambda()
		if err != nil {
			return Invalid, err
		}

		return FuncOf(params, ret), nil
	}

	if tok.Kind != lang.Ident {
		return Invalid, p.errorf(tok, "expected type, got %s", tok.Kind)
	}

	p.advance()

	if t, ok := simpleTypes[tok.Text]; ok {
		return t, nil
	}

	if IsObjectKind(tok.Text) {
		return ObjectOf(tok.Text), nil
	}

	switch tok.Text {
	case "list", "seq", "dict", "optional", "tuple":
	default:
		return Invalid, p.errorf(tok, "unknown type %q", tok.Text)
	}

	if err := p.expect(lang.LBracket); err != nil {
		return Invalid, err
	}

	args, err := p.list(lang.RBracket)
	if err != nil {
		return Invalid, err
	}

	arity := map[string]int{"list": 1, "seq": 1, "dict": 2, "optional": 1}
	if n, ok := arity[tok.Text]; ok && len(args) != n {
		return Invalid, p.errorf(tok, "%s takes %d type parameter(s), got %d", tok.Text, n, len(args))
	}

	switch tok.Text {
	case "list", "seq":
		return SeqOf(args[0]), nil
	case "dict":
		return MapOf(args[0], args[1]), nil
	case "optional":
		return OptionalOf(args[0]), nil
	default:
		return TupleOf(args...), nil
	}
}
