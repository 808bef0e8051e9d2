package lang

import (
	"iter"
	"strings"

	"github.com/ardnew/jinx/span"
)

// Lex returns the template tokens of src: [RawText] between tags, [Comment]
// for {# #} regions, and the delimiters of {{ }} and {% %} tags surrounding
// the expression tokens produced by [TokenizeAt]. A '-' just inside a
// delimiter strips the whitespace of the adjacent raw text. The sequence
// ends with one [EOF] token, or with the first [*SyntaxError].
func Lex(src string) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		l := lexer{src: src, loc: span.Start()}
		l.run(yield)
	}
}

type lexer struct {
	src       string
	cur       int
	loc       span.Location // location of src[cur]
	stripNext bool
}

// at returns the location of byte n, which must not precede any earlier
// call.
func (l *lexer) at(n int) span.Location {
	l.loc = l.loc.Advance(l.src[l.cur:n])
	l.cur = n

	return l.loc
}

func (l *lexer) run(yield func(Token, error) bool) {
	pos := 0

	for {
		i := nextOpen(l.src, pos)
		if i < 0 {
			if !l.raw(pos, len(l.src), false, yield) {
				return
			}

			end := l.at(len(l.src))
			yield(Token{Kind: EOF, Span: span.Span{Start: end, Stop: end}}, nil)

			return
		}

		j := i + 2
		stripPrev := j < len(l.src) && l.src[j] == '-'

		if stripPrev {
			j++
		}

		if !l.raw(pos, i, stripPrev, yield) {
			return
		}

		var ok bool

		switch l.src[i+1] {
		case '#':
			pos, ok = l.comment(i, j, yield)
		case '{':
			pos, ok = l.tag(i, j, VariableStart, VariableEnd, "}}", yield)
		default:
			pos, ok = l.tag(i, j, BlockStart, BlockEnd, "%}", yield)
		}

		if !ok {
			return
		}
	}
}

func (l *lexer) raw(from, to int, stripRight bool, yield func(Token, error) bool) bool {
	if l.stripNext {
		for from < to && isSpace(l.src[from]) {
			from++
		}
	}

	l.stripNext = false

	if stripRight {
		for to > from && isSpace(l.src[to-1]) {
			to--
		}
	}

	if from == to {
		return true
	}

	start := l.at(from)

	return yield(Token{
		Kind: RawText,
		Text: l.src[from:to],
		Span: span.Span{Start: start, Stop: l.at(to)},
	}, nil)
}

func (l *lexer) comment(open, body int, yield func(Token, error) bool) (int, bool) {
	k := strings.Index(l.src[body:], "#}")
	if k < 0 {
		yield(Token{}, l.fail(open, "unterminated comment"))

		return 0, false
	}

	end := body + k
	stop := end + 2

	if end > body && l.src[end-1] == '-' {
		end--
		l.stripNext = true
	}

	start := l.at(open)

	return stop, yield(Token{
		Kind: Comment,
		Text: l.src[body:end],
		Span: span.Span{Start: start, Stop: l.at(stop)},
	}, nil)
}

func (l *lexer) tag(
	open, body int,
	startKind, endKind TokenKind,
	closer string,
	yield func(Token, error) bool,
) (int, bool) {
	end := findClose(l.src, body, closer)
	if end < 0 {
		yield(Token{}, l.fail(open, "unterminated "+startKind.String()+" tag"))

		return 0, false
	}

	stop := end + 2
	inner := end

	if inner > body && l.src[inner-1] == '-' {
		inner--
		l.stripNext = true
	}

	start := l.at(open)
	if !yield(Token{Kind: startKind, Text: l.src[open : open+2], Span: span.Span{Start: start, Stop: l.at(body)}}, nil) {
		return 0, false
	}

	for tok, err := range TokenizeAt(l.src[body:inner], l.at(body), l.src) {
		if err != nil {
			yield(Token{}, err)

			return 0, false
		}

		if tok.Kind == EOF {
			break
		}

		if !yield(tok, nil) {
			return 0, false
		}
	}

	closeAt := l.at(end)

	return stop, yield(Token{Kind: endKind, Text: closer, Span: span.Span{Start: closeAt, Stop: l.at(stop)}}, nil)
}

func (l *lexer) fail(n int, msg string) *SyntaxError {
	return &SyntaxError{Source: l.src, Msg: msg, Loc: l.at(n), Char: rune(l.src[n])}
}

// nextOpen returns the index of the next tag opener at or after pos.
func nextOpen(src string, pos int) int {
	for {
		k := strings.IndexByte(src[pos:], '{')
		if k < 0 || pos+k+1 >= len(src) {
			return -1
		}

		i := pos + k
		switch src[i+1] {
		case '{', '%', '#':
			return i
		}

		pos = i + 1
	}
}

// findClose returns the index of closer in src at or after pos, ignoring
// occurrences inside string literals or nested braces.
func findClose(src string, pos int, closer string) int {
	depth := 0

	for n := pos; n < len(src); n++ {
		switch c := src[n]; c {
		case '"', '\'':
			for n++; n < len(src) && src[n] != c; n++ {
				if src[n] == '\\' {
					n++
				}
			}
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--

				continue
			}

			if closer == "}}" && strings.HasPrefix(src[n:], closer) {
				return n
			}
		case '%':
			if closer == "%}" && depth == 0 && strings.HasPrefix(src[n:], closer) {
				return n
			}
		}
	}

	return -1
}
