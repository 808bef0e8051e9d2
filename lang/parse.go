package lang

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/readahead"

	"github.com/ardnew/jinx/log"
	"github.com/ardnew/jinx/span"
)

// Option configures parsing.
type Option func(*parser)

// WithLogger sets the logger used to trace parsing.
func WithLogger(logger log.Logger) Option {
	return func(p *parser) { p.logger = logger }
}

// ReadSource reads the complete template source from r.
func ReadSource(name string, r io.Reader) (string, error) {
	// Read ahead asynchronously so large templates are fetched while
	// earlier chunks are copied.
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return "", ErrReadInput.Wrap(err).With(slog.String("template", name))
	}

	return string(data), nil
}

// ParseReader parses a template from an io.Reader.
func ParseReader(
	ctx context.Context,
	name string,
	r io.Reader,
	opts ...Option,
) (*Template, error) {
	src, err := ReadSource(name, r)
	if err != nil {
		return nil, err
	}

	return ParseString(ctx, name, src, opts...)
}

// ParseString parses a template from a string.
func ParseString(ctx context.Context, name, src string, opts ...Option) (*Template, error) {
	p := &parser{src: src}

	for _, opt := range opts {
		opt(p)
	}

	for tok, err := range Lex(src) {
		if err != nil {
			return nil, err
		}

		p.toks = append(p.toks, tok)
	}

	body, _, _, err := p.parseBody()
	if err != nil {
		return nil, err
	}

	p.logger.TraceContext(ctx, "parse complete",
		slog.String("template", name),
		slog.Int("tokens", len(p.toks)),
		slog.Int("statements", len(body)))

	return &Template{Name: name, Source: src, Body: body}, nil
}

// parser holds the parser state.
type parser struct {
	src    string
	toks   []Token // always ends with EOF
	pos    int
	logger log.Logger
}

// parseBody parses statements until one of the end tags. It consumes the
// opening delimiter and name of the end tag and returns them.
func (p *parser) parseBody(ends ...string) ([]Stmt, Token, string, error) {
	var body []Stmt

	for {
		tok := p.peek()

		switch tok.Kind {
		case EOF:
			if len(ends) > 0 {
				return nil, tok, "", p.errorf(tok, "unexpected end of template, expected %s",
					quoteAll(ends))
			}

			return body, tok, "", nil

		case RawText:
			p.advance()
			body = append(body, &EmitRaw{Text: tok.Text, Span: tok.Span})

		case Comment:
			p.advance()
			body = append(body, &CommentStmt{Text: tok.Text, Span: tok.Span})

		case VariableStart:
			p.advance()

			e, err := p.parseExpr()
			if err != nil {
				return nil, tok, "", err
			}

			if _, err := p.expect(VariableEnd); err != nil {
				return nil, tok, "", err
			}

			body = append(body, &EmitExpr{Expr: e, Span: p.spanFrom(tok.Span.Start)})

		case BlockStart:
			if name := p.peekN(1); name.Kind == Ident && slices.Contains(ends, name.Text) {
				p.advance()
				p.advance()

				return body, tok, name.Text, nil
			}

			s, err := p.parseStatement()
			if err != nil {
				return nil, tok, "", err
			}

			body = append(body, s)

		default:
			return nil, tok, "", p.errorf(tok, "unexpected %s", tok)
		}
	}
}

func (p *parser) parseStatement() (Stmt, error) {
	start := p.advance()

	name, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}

	switch name.Text {
	case "if":
		return p.parseIf(start)
	case "for":
		return p.parseFor(start)
	case "set":
		return p.parseSet(start)
	case "do":
		return p.parseDo(start)
	case "macro":
		return p.parseMacro(start)
	case "call":
		return p.parseCallBlock(start)
	case "block":
		return p.parseBlock(start)
	default:
		return nil, p.errorf(name, "unknown tag %q", name.Text)
	}
}

func (p *parser) parseIf(start Token) (*If, error) {
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(BlockEnd); err != nil {
		return nil, err
	}

	then, end, tag, err := p.parseBody("elif", "else", "endif")
	if err != nil {
		return nil, err
	}

	n := &If{Cond: cond, Then: then}

	switch tag {
	case "elif":
		nested, err := p.parseIf(end)
		if err != nil {
			return nil, err
		}

		n.Else = []Stmt{nested}

	case "else":
		if _, err := p.expect(BlockEnd); err != nil {
			return nil, err
		}

		if n.Else, _, _, err = p.parseBody("endif"); err != nil {
			return nil, err
		}

		fallthrough

	default:
		if _, err := p.expect(BlockEnd); err != nil {
			return nil, err
		}
	}

	n.Span = p.spanFrom(start.Span.Start)

	return n, nil
}

func (p *parser) parseFor(start Token) (*For, error) {
	target, err := p.parseAssignTarget()
	if err != nil {
		return nil, err
	}

	if _, err := p.expectName("in"); err != nil {
		return nil, err
	}

	n := &For{Target: target}

	if n.Iter, err = p.parseOr(); err != nil {
		return nil, err
	}

	if p.acceptName("if") {
		if n.Filter, err = p.parseOr(); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(BlockEnd); err != nil {
		return nil, err
	}

	body, _, tag, err := p.parseBody("else", "endfor")
	if err != nil {
		return nil, err
	}

	n.Body = body

	if tag == "else" {
		if _, err := p.expect(BlockEnd); err != nil {
			return nil, err
		}

		if n.Else, _, _, err = p.parseBody("endfor"); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(BlockEnd); err != nil {
		return nil, err
	}

	n.Span = p.spanFrom(start.Span.Start)

	return n, nil
}

func (p *parser) parseSet(start Token) (*Set, error) {
	target, err := p.parseAssignTarget()
	if err != nil {
		return nil, err
	}

	n := &Set{Target: target}

	if _, ok := p.accept(Assign); ok {
		if n.Value, err = p.parseExpr(); err != nil {
			return nil, err
		}

		if _, err := p.expect(BlockEnd); err != nil {
			return nil, err
		}

		n.Span = p.spanFrom(start.Span.Start)

		return n, nil
	}

	if _, err := p.expect(BlockEnd); err != nil {
		return nil, err
	}

	if n.Body, _, _, err = p.parseBody("endset"); err != nil {
		return nil, err
	}

	if n.Body == nil {
		n.Body = []Stmt{}
	}

	if _, err := p.expect(BlockEnd); err != nil {
		return nil, err
	}

	n.Span = p.spanFrom(start.Span.Start)

	return n, nil
}

func (p *parser) parseDo(start Token) (*Do, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(BlockEnd); err != nil {
		return nil, err
	}

	return &Do{Expr: e, Span: p.spanFrom(start.Span.Start)}, nil
}

func (p *parser) parseMacro(start Token) (*Macro, error) {
	name, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}

	args, err := p.parseSignature()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(BlockEnd); err != nil {
		return nil, err
	}

	body, _, _, err := p.parseBody("endmacro")
	if err != nil {
		return nil, err
	}

	p.acceptName(name.Text)

	if _, err := p.expect(BlockEnd); err != nil {
		return nil, err
	}

	return &Macro{
		Name: name.Text,
		Args: args,
		Body: body,
		Span: p.spanFrom(start.Span.Start),
	}, nil
}

func (p *parser) parseSignature() ([]Arg, error) {
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}

	var args []Arg

	for {
		if _, ok := p.accept(RParen); ok {
			return args, nil
		}

		if len(args) > 0 {
			if _, err := p.expect(Comma); err != nil {
				return nil, err
			}

			if _, ok := p.accept(RParen); ok {
				return args, nil
			}
		}

		name, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}

		arg := Arg{Name: name.Text, Span: name.Span}

		if _, ok := p.accept(Assign); ok {
			if arg.Default, err = p.parseExpr(); err != nil {
				return nil, err
			}
		} else if len(args) > 0 && args[len(args)-1].Default != nil {
			return nil, p.errorf(name, "non-default argument %q follows default argument", name.Text)
		}

		args = append(args, arg)
	}
}

func (p *parser) parseCallBlock(start Token) (*CallBlock, error) {
	var (
		args []Arg
		err  error
	)

	if p.peek().Kind == LParen {
		if args, err = p.parseSignature(); err != nil {
			return nil, err
		}
	}

	at := p.peek()

	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	call, ok := e.(*Call)
	if !ok {
		return nil, p.errorf(at, "expected call expression")
	}

	if _, err := p.expect(BlockEnd); err != nil {
		return nil, err
	}

	bodyStart := p.peek().Span.Start

	body, _, _, err := p.parseBody("endcall")
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(BlockEnd); err != nil {
		return nil, err
	}

	sp := p.spanFrom(start.Span.Start)

	return &CallBlock{
		Call: call,
		Macro: &Macro{
			Name: "caller",
			Args: args,
			Body: body,
			Span: span.Span{Start: bodyStart, Stop: sp.Stop},
		},
		Span: sp,
	}, nil
}

func (p *parser) parseBlock(start Token) (*Block, error) {
	name, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(BlockEnd); err != nil {
		return nil, err
	}

	body, _, _, err := p.parseBody("endblock")
	if err != nil {
		return nil, err
	}

	p.acceptName(name.Text)

	if _, err := p.expect(BlockEnd); err != nil {
		return nil, err
	}

	return &Block{Name: name.Text, Body: body, Span: p.spanFrom(start.Span.Start)}, nil
}

// parseAssignTarget parses a name or a comma-separated list of names.
func (p *parser) parseAssignTarget() (Expr, error) {
	var items []Expr

	for {
		name, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}

		items = append(items, &Var{Name: name.Text, Span: name.Span})

		if _, ok := p.accept(Comma); !ok {
			break
		}
	}

	if len(items) == 1 {
		return items[0], nil
	}

	return &Tuple{
		Items: items,
		Span:  span.Span{Start: items[0].Pos().Start, Stop: items[len(items)-1].Pos().Stop},
	}, nil
}

// parseExpr parses a full expression including the conditional form.
func (p *parser) parseExpr() (Expr, error) {
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	for p.acceptName("if") {
		n := &IfExpr{Then: e}

		if n.Cond, err = p.parseOr(); err != nil {
			return nil, err
		}

		if p.acceptName("else") {
			if n.Else, err = p.parseExpr(); err != nil {
				return nil, err
			}
		}

		n.Span = p.spanFrom(e.Pos().Start)
		e = n
	}

	return e, nil
}

func (p *parser) parseOr() (Expr, error) {
	return p.parseLogical("or", p.parseAnd)
}

func (p *parser) parseAnd() (Expr, error) {
	return p.parseLogical("and", p.parseNot)
}

func (p *parser) parseLogical(op string, next func() (Expr, error)) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}

	for p.acceptName(op) {
		right, err := next()
		if err != nil {
			return nil, err
		}

		left = p.binary(op, left, right)
	}

	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if tok := p.peek(); tok.Is("not") && !p.peekN(1).Is("in") {
		p.advance()

		e, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		return &UnaryOp{Op: "not", Expr: e, Span: p.spanFrom(tok.Span.Start)}, nil
	}

	return p.parseCompare()
}

var compareOps = map[TokenKind]string{
	Eq: "==", Ne: "!=", Lt: "<", Lte: "<=", Gt: ">", Gte: ">=",
}

func (p *parser) parseCompare() (Expr, error) {
	left, err := p.parseMath1()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()

		op, ok := compareOps[tok.Kind]

		switch {
		case ok:
			p.advance()
		case tok.Is("in"):
			p.advance()

			op = "in"
		case tok.Is("not") && p.peekN(1).Is("in"):
			p.advance()
			p.advance()

			op = "not in"
		default:
			return left, nil
		}

		right, err := p.parseMath1()
		if err != nil {
			return nil, err
		}

		left = p.binary(op, left, right)
	}
}

func (p *parser) parseMath1() (Expr, error) {
	return p.parseBinary(p.parseConcat, Plus, Minus)
}

func (p *parser) parseConcat() (Expr, error) {
	return p.parseBinary(p.parseMath2, Tilde)
}

func (p *parser) parseMath2() (Expr, error) {
	return p.parseBinary(p.parsePow, Mul, Div, FloorDiv, Mod)
}

func (p *parser) parsePow() (Expr, error) {
	return p.parseBinary(func() (Expr, error) { return p.parseUnary(true) }, Pow)
}

func (p *parser) parseBinary(next func() (Expr, error), kinds ...TokenKind) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}

	for slices.Contains(kinds, p.peek().Kind) {
		op := p.advance()

		right, err := next()
		if err != nil {
			return nil, err
		}

		left = p.binary(op.Kind.String(), left, right)
	}

	return left, nil
}

func (p *parser) binary(op string, left, right Expr) Expr {
	return &BinOp{
		Op:    op,
		Left:  left,
		Right: right,
		Span:  span.Span{Start: left.Pos().Start, Stop: right.Pos().Stop},
	}
}

func (p *parser) parseUnary(withFilter bool) (Expr, error) {
	tok := p.peek()

	var (
		e   Expr
		err error
	)

	switch tok.Kind {
	case Minus, Plus:
		p.advance()

		inner, err := p.parseUnary(false)
		if err != nil {
			return nil, err
		}

		e = &UnaryOp{Op: tok.Kind.String(), Expr: inner, Span: p.spanFrom(tok.Span.Start)}

	default:
		if e, err = p.parsePrimary(); err != nil {
			return nil, err
		}
	}

	if e, err = p.parsePostfix(e); err != nil {
		return nil, err
	}

	if withFilter {
		return p.parseFilterExpr(e)
	}

	return e, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.advance()

	switch tok.Kind {
	case Ident:
		switch tok.Text {
		case "true", "True":
			return &Const{Value: true, Span: tok.Span}, nil
		case "false", "False":
			return &Const{Value: false, Span: tok.Span}, nil
		case "none", "None":
			return &Const{Value: nil, Span: tok.Span}, nil
		}

		return &Var{Name: tok.Text, Span: tok.Span}, nil

	case String:
		s := tok.Text
		for p.peek().Kind == String {
			s += p.advance().Text
		}

		return &Const{Value: s, Span: p.spanFrom(tok.Span.Start)}, nil

	case Int:
		return &IntLit{Digits: strings.ReplaceAll(tok.Text, "_", ""), Span: tok.Span}, nil

	case Float:
		f, err := strconv.ParseFloat(strings.ReplaceAll(tok.Text, "_", ""), 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid float literal %q", tok.Text)
		}

		return &Const{Value: f, Span: tok.Span}, nil

	case LParen:
		return p.parseParen(tok)

	case LBracket:
		items, err := p.parseItems(RBracket)
		if err != nil {
			return nil, err
		}

		return &List{Items: items, Span: p.spanFrom(tok.Span.Start)}, nil

	case LBrace:
		return p.parseDict(tok)

	default:
		return nil, p.errorf(tok, "unexpected %s", tok)
	}
}

func (p *parser) parseParen(open Token) (Expr, error) {
	if _, ok := p.accept(RParen); ok {
		return &Tuple{Span: p.spanFrom(open.Span.Start)}, nil
	}

	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, ok := p.accept(Comma); !ok {
		if _, err := p.expect(RParen); err != nil {
			return nil, err
		}

		return e, nil
	}

	rest, err := p.parseItems(RParen)
	if err != nil {
		return nil, err
	}

	return &Tuple{Items: append([]Expr{e}, rest...), Span: p.spanFrom(open.Span.Start)}, nil
}

// parseItems parses comma-separated expressions up to and including end,
// allowing a trailing comma.
func (p *parser) parseItems(end TokenKind) ([]Expr, error) {
	var items []Expr

	for {
		if _, ok := p.accept(end); ok {
			return items, nil
		}

		if len(items) > 0 {
			if _, err := p.expect(Comma); err != nil {
				return nil, err
			}

			if _, ok := p.accept(end); ok {
				return items, nil
			}
		}

		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		items = append(items, e)
	}
}

func (p *parser) parseDict(open Token) (Expr, error) {
	d := &Dict{}

	for {
		if _, ok := p.accept(RBrace); ok {
			d.Span = p.spanFrom(open.Span.Start)

			return d, nil
		}

		if len(d.Keys) > 0 {
			if _, err := p.expect(Comma); err != nil {
				return nil, err
			}

			if _, ok := p.accept(RBrace); ok {
				d.Span = p.spanFrom(open.Span.Start)

				return d, nil
			}
		}

		k, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(Colon); err != nil {
			return nil, err
		}

		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		d.Keys = append(d.Keys, k)
		d.Values = append(d.Values, v)
	}
}

func (p *parser) parsePostfix(e Expr) (Expr, error) {
	for {
		switch p.peek().Kind {
		case Dot:
			p.advance()

			tok := p.advance()

			switch tok.Kind {
			case Ident:
				e = &GetAttr{Expr: e, Name: tok.Text, Span: p.spanFrom(e.Pos().Start)}
			case Int:
				idx := &IntLit{Digits: tok.Text, Span: tok.Span}
				e = &GetItem{Expr: e, Index: idx, Span: p.spanFrom(e.Pos().Start)}
			default:
				return nil, p.errorf(tok, "expected attribute name, got %s", tok)
			}

		case LBracket:
			p.advance()

			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			if _, err := p.expect(RBracket); err != nil {
				return nil, err
			}

			e = &GetItem{Expr: e, Index: idx, Span: p.spanFrom(e.Pos().Start)}

		case LParen:
			p.advance()

			args, kwargs, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}

			e = &Call{Func: e, Args: args, Kwargs: kwargs, Span: p.spanFrom(e.Pos().Start)}

		default:
			return e, nil
		}
	}
}

// parseCallArgs parses arguments after an opening parenthesis through the
// closing one.
func (p *parser) parseCallArgs() ([]Expr, []Kwarg, error) {
	var (
		args   []Expr
		kwargs []Kwarg
	)

	for n := 0; ; n++ {
		if _, ok := p.accept(RParen); ok {
			return args, kwargs, nil
		}

		if n > 0 {
			if _, err := p.expect(Comma); err != nil {
				return nil, nil, err
			}

			if _, ok := p.accept(RParen); ok {
				return args, kwargs, nil
			}
		}

		tok := p.peek()

		if tok.Kind == Ident && p.peekN(1).Kind == Assign {
			p.advance()
			p.advance()

			v, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}

			kwargs = append(kwargs, Kwarg{Name: tok.Text, Value: v})

			continue
		}

		if len(kwargs) > 0 {
			return nil, nil, p.errorf(tok, "positional argument follows keyword argument")
		}

		v, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}

		args = append(args, v)
	}
}

// keywords that never start a bare test argument.
var keywords = []string{"and", "or", "not", "in", "is", "if", "else"}

func (p *parser) parseFilterExpr(e Expr) (Expr, error) {
	for {
		switch tok := p.peek(); {
		case tok.Kind == Pipe:
			p.advance()

			name, err := p.expect(Ident)
			if err != nil {
				return nil, err
			}

			f := &Filter{Expr: e, Name: name.Text}

			if _, ok := p.accept(LParen); ok {
				if f.Args, f.Kwargs, err = p.parseCallArgs(); err != nil {
					return nil, err
				}
			}

			f.Span = p.spanFrom(e.Pos().Start)
			e = f

		case tok.Is("is"):
			p.advance()

			t := &Test{Expr: e, Negated: p.acceptName("not")}

			name, err := p.expect(Ident)
			if err != nil {
				return nil, err
			}

			t.Name = name.Text

			switch next := p.peek(); {
			case next.Kind == LParen:
				p.advance()

				if t.Args, _, err = p.parseCallArgs(); err != nil {
					return nil, err
				}

			case next.Kind == Int, next.Kind == Float, next.Kind == String,
				next.Kind == Ident && !slices.Contains(keywords, next.Text):
				arg, err := p.parseUnary(false)
				if err != nil {
					return nil, err
				}

				t.Args = []Expr{arg}
			}

			t.Span = p.spanFrom(e.Pos().Start)
			e = t

		default:
			return e, nil
		}
	}
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) peekN(n int) Token {
	return p.toks[min(p.pos+n, len(p.toks)-1)]
}

func (p *parser) advance() Token {
	tok := p.toks[p.pos]
	if tok.Kind != EOF {
		p.pos++
	}

	return tok
}

func (p *parser) accept(kind TokenKind) (Token, bool) {
	if tok := p.peek(); tok.Kind == kind {
		return p.advance(), true
	}

	return Token{}, false
}

func (p *parser) acceptName(name string) bool {
	if p.peek().Is(name) {
		p.advance()

		return true
	}

	return false
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	if tok, ok := p.accept(kind); ok {
		return tok, nil
	}

	tok := p.peek()

	return tok, p.errorf(tok, "expected %s, got %s", kind, tok)
}

func (p *parser) expectName(name string) (Token, error) {
	tok := p.peek()
	if !p.acceptName(name) {
		return tok, p.errorf(tok, "expected %q, got %s", name, tok)
	}

	return tok, nil
}

// spanFrom returns the span from start to the end of the last consumed
// token.
func (p *parser) spanFrom(start span.Location) span.Span {
	stop := start
	if p.pos > 0 {
		stop = p.toks[p.pos-1].Span.Stop
	}

	return span.Span{Start: start, Stop: stop}
}

func (p *parser) errorf(tok Token, format string, args ...any) *SyntaxError {
	r, _ := utf8.DecodeRuneInString(tok.Text)

	return &SyntaxError{
		Source: p.src,
		Msg:    fmt.Sprintf(format, args...),
		Loc:    tok.Span.Start,
		Char:   r,
	}
}

func quoteAll(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = strconv.Quote(n)
	}

	return strings.Join(q, " or ")
}
