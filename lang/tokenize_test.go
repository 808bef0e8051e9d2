package lang

import (
	"errors"
	"testing"

	"github.com/ardnew/jinx/span"
)

func collect(t *testing.T, src string) []Token {
	t.Helper()

	var toks []Token

	for tok, err := range Tokenize(src) {
		if err != nil {
			t.Fatalf("Tokenize(%q): %v", src, err)
		}

		toks = append(toks, tok)
	}

	return toks
}

func TestTokenize_Kinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []TokenKind
	}{
		{"empty", "", []TokenKind{EOF}},
		{"whitespace only", " \t\n\r  ", []TokenKind{EOF}},
		{"identifier", "foo_1", []TokenKind{Ident, EOF}},
		{"arith", "a + 1 * 2.5", []TokenKind{Ident, Plus, Int, Mul, Float, EOF}},
		{"double ops", "a // b ** c == d != e <= f >= g", []TokenKind{
			Ident, FloorDiv, Ident, Pow, Ident, Eq, Ident, Ne, Ident, Lte, Ident, Gte, Ident, EOF,
		}},
		{"single ops", "< > = / * ~ | %", []TokenKind{Lt, Gt, Assign, Div, Mul, Tilde, Pipe, Mod, EOF}},
		{"brackets", "f(x)[0]{k: v}", []TokenKind{
			Ident, LParen, Ident, RParen, LBracket, Int, RBracket,
			LBrace, Ident, Colon, Ident, RBrace, EOF,
		}},
		{"strings", `"a" 'b'`, []TokenKind{String, String, EOF}},
		{"attribute", "x.y", []TokenKind{Ident, Dot, Ident, EOF}},
		{"exponent", "1e3", []TokenKind{Float, EOF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := collect(t, tt.src)

			if len(toks) != len(tt.want) {
				t.Fatalf("got %d tokens %v, want %d", len(toks), toks, len(tt.want))
			}

			for i, tok := range toks {
				if tok.Kind != tt.want[i] {
					t.Errorf("token %d: got %s, want %s", i, tok.Kind, tt.want[i])
				}
			}
		})
	}
}

func TestTokenize_Positions(t *testing.T) {
	toks := collect(t, "a +\n 10")

	want := []span.Span{
		{Start: span.Location{Line: 1, Col: 1, Offset: 0}, Stop: span.Location{Line: 1, Col: 2, Offset: 1}},
		{Start: span.Location{Line: 1, Col: 3, Offset: 2}, Stop: span.Location{Line: 1, Col: 4, Offset: 3}},
		{Start: span.Location{Line: 2, Col: 2, Offset: 5}, Stop: span.Location{Line: 2, Col: 4, Offset: 7}},
		{Start: span.Location{Line: 2, Col: 4, Offset: 7}, Stop: span.Location{Line: 2, Col: 4, Offset: 7}},
	}

	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}

	for i, tok := range toks {
		if tok.Span != want[i] {
			t.Errorf("token %d (%s): got %v, want %v", i, tok, tok.Span, want[i])
		}
	}
}

func TestTokenize_StringEscapes(t *testing.T) {
	toks := collect(t, `'it\'s\n' "tab\there"`)

	if toks[0].Text != "it's\n" {
		t.Errorf("got %q", toks[0].Text)
	}

	if toks[1].Text != "tab\there" {
		t.Errorf("got %q", toks[1].Text)
	}
}

func TestTokenize_Restartable(t *testing.T) {
	seq := Tokenize("x | upper")

	var first, second []Token

	for tok, err := range seq {
		if err != nil {
			t.Fatal(err)
		}

		first = append(first, tok)
	}

	for tok, err := range seq {
		if err != nil {
			t.Fatal(err)
		}

		second = append(second, tok)
	}

	if len(first) != 4 || len(first) != len(second) {
		t.Fatalf("got %d then %d tokens", len(first), len(second))
	}

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("token %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestTokenize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		offset int
		char   rune
	}{
		{"lone bang at end", "a !", 2, '!'},
		{"lone bang before space", "a ! b", 2, '!'},
		{"unknown character", "a $ b", 2, '$'},
		{"digit then letter", "12abc", 2, 'a'},
		{"unterminated string", `x 'abc`, 2, '\''},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				got   error
				count int
			)

			for _, err := range Tokenize(tt.src) {
				count++

				if err != nil {
					got = err
				}
			}

			if got == nil {
				t.Fatalf("Tokenize(%q): expected error", tt.src)
			}

			if !errors.Is(got, ErrSyntax) {
				t.Errorf("error %v does not match ErrSyntax", got)
			}

			var se *SyntaxError
			if !errors.As(got, &se) {
				t.Fatalf("error %T is not *SyntaxError", got)
			}

			if se.Loc.Offset != tt.offset {
				t.Errorf("offset: got %d, want %d", se.Loc.Offset, tt.offset)
			}

			if se.Char != tt.char {
				t.Errorf("char: got %q, want %q", se.Char, tt.char)
			}
		})
	}
}

func BenchmarkTokenize(b *testing.B) {
	src := `relation.schema ~ "." ~ relation.identifier | upper if x is defined else none`

	for b.Loop() {
		for _, err := range Tokenize(src) {
			if err != nil {
				b.Fatal(err)
			}
		}
	}
}
