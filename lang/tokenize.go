package lang

import (
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/ardnew/jinx/span"
)

// Tokenize returns the expression tokens of src. The sequence ends with
// exactly one [EOF] token, or with the first error, which is always a
// [*SyntaxError]. Ranging over the result again restarts from the beginning.
func Tokenize(src string) iter.Seq2[Token, error] {
	return TokenizeAt(src, span.Start(), src)
}

// TokenizeAt is [Tokenize] for text embedded in a larger document. Token
// positions are reported relative to base, and errors quote whole.
func TokenizeAt(src string, base span.Location, whole string) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		t := tokenizer{src: src, loc: base, whole: whole}

		for {
			tok, err := t.next()
			if err != nil {
				yield(Token{}, err)

				return
			}

			if !yield(tok, nil) || tok.Kind == EOF {
				return
			}
		}
	}
}

type tokenizer struct {
	src   string
	whole string
	pos   int
	loc   span.Location
}

// operator tables: single characters, and the second characters that
// extend them.
var (
	singleOps = map[byte]TokenKind{
		'(': LParen, ')': RParen, '[': LBracket, ']': RBracket,
		'{': LBrace, '}': RBrace, ',': Comma, '.': Dot, ':': Colon,
		'|': Pipe, '~': Tilde, '+': Plus, '-': Minus, '*': Mul,
		'/': Div, '%': Mod, '=': Assign, '<': Lt, '>': Gt,
	}
	doubleOps = map[string]TokenKind{
		"//": FloorDiv, "**": Pow, "==": Eq, "!=": Ne, "<=": Lte, ">=": Gte,
	}
)

func (t *tokenizer) next() (Token, error) {
	t.skipWhitespace()

	start := t.loc

	if t.pos >= len(t.src) {
		return Token{Kind: EOF, Span: span.Span{Start: start, Stop: start}}, nil
	}

	c := t.src[t.pos]

	switch {
	case isIdentStart(rune(c)):
		n := t.pos + 1
		for n < len(t.src) && isIdentContinue(rune(t.src[n])) {
			n++
		}

		return t.emit(Ident, t.src[t.pos:n], n, start), nil

	case isDigit(c):
		return t.number(start)

	case c == '"' || c == '\'':
		return t.str(start)
	}

	if t.pos+1 < len(t.src) {
		if k, ok := doubleOps[t.src[t.pos:t.pos+2]]; ok {
			return t.emit(k, t.src[t.pos:t.pos+2], t.pos+2, start), nil
		}
	}

	if k, ok := singleOps[c]; ok {
		return t.emit(k, t.src[t.pos:t.pos+1], t.pos+1, start), nil
	}

	r, _ := utf8.DecodeRuneInString(t.src[t.pos:])

	return Token{}, t.fail(r, start, "")
}

func (t *tokenizer) number(start span.Location) (Token, error) {
	n := t.digits(t.pos)
	kind := Int

	if n+1 < len(t.src) && t.src[n] == '.' && isDigit(t.src[n+1]) {
		kind = Float
		n = t.digits(n + 1)
	}

	if n < len(t.src) && (t.src[n] == 'e' || t.src[n] == 'E') {
		m := n + 1
		if m < len(t.src) && (t.src[m] == '+' || t.src[m] == '-') {
			m++
		}

		if m < len(t.src) && isDigit(t.src[m]) {
			kind = Float
			n = t.digits(m)
		}
	}

	if n < len(t.src) && isIdentContinue(rune(t.src[n])) {
		bad := start.Advance(t.src[t.pos:n])

		return Token{}, t.fail(rune(t.src[n]), bad, "")
	}

	return t.emit(kind, t.src[t.pos:n], n, start), nil
}

func (t *tokenizer) digits(n int) int {
	for n < len(t.src) && (isDigit(t.src[n]) || t.src[n] == '_') {
		n++
	}

	return n
}

func (t *tokenizer) str(start span.Location) (Token, error) {
	quote := t.src[t.pos]

	var b strings.Builder

	for n := t.pos + 1; n < len(t.src); n++ {
		c := t.src[n]

		switch c {
		case quote:
			tok := t.emit(String, "", n+1, start)
			tok.Text = b.String()

			return tok, nil

		case '\\':
			if n+1 >= len(t.src) {
				break
			}

			n++
			b.WriteString(unescape(t.src[n]))

		default:
			b.WriteByte(c)
		}
	}

	return Token{}, t.fail(rune(quote), start, "unterminated string literal")
}

func unescape(c byte) string {
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '0':
		return "\x00"
	default:
		return string(c)
	}
}

func (t *tokenizer) emit(kind TokenKind, text string, end int, start span.Location) Token {
	t.loc = t.loc.Advance(t.src[t.pos:end])
	t.pos = end

	return Token{Kind: kind, Text: text, Span: span.Span{Start: start, Stop: t.loc}}
}

func (t *tokenizer) skipWhitespace() {
	n := t.pos
	for n < len(t.src) && isSpace(t.src[n]) {
		n++
	}

	t.loc = t.loc.Advance(t.src[t.pos:n])
	t.pos = n
}

func (t *tokenizer) fail(r rune, at span.Location, msg string) *SyntaxError {
	return &SyntaxError{Source: t.whole, Msg: msg, Loc: at, Char: r}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentContinue(r rune) bool { return isIdentStart(r) || (r >= '0' && r <= '9') }
