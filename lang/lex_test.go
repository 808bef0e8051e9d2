package lang

import (
	"errors"
	"strings"
	"testing"
)

func lexKinds(t *testing.T, src string) ([]TokenKind, []Token) {
	t.Helper()

	var (
		kinds []TokenKind
		toks  []Token
	)

	for tok, err := range Lex(src) {
		if err != nil {
			t.Fatalf("Lex(%q): %v", src, err)
		}

		kinds = append(kinds, tok.Kind)
		toks = append(toks, tok)
	}

	return kinds, toks
}

func TestLex_Structure(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []TokenKind
	}{
		{"plain text", "select 1", []TokenKind{RawText, EOF}},
		{"expression", "a {{ x }} b", []TokenKind{RawText, VariableStart, Ident, VariableEnd, RawText, EOF}},
		{"statement", "{% set x = 1 %}", []TokenKind{BlockStart, Ident, Ident, Assign, Int, BlockEnd, EOF}},
		{"comment", "{# note #}x", []TokenKind{Comment, RawText, EOF}},
		{"dict literal", "{{ {'a': {'b': 1}} }}", []TokenKind{
			VariableStart, LBrace, String, Colon, LBrace, String, Colon, Int, RBrace, RBrace, VariableEnd, EOF,
		}},
		{"brace in string", `{{ "}}" }}`, []TokenKind{VariableStart, String, VariableEnd, EOF}},
		{"lone brace", "{ x }", []TokenKind{RawText, EOF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := lexKinds(t, tt.src)

			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}

			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d: got %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLex_WhitespaceControl(t *testing.T) {
	_, toks := lexKinds(t, "a  \n{%- set x = 1 -%}\n  b")

	var raw []string

	for _, tok := range toks {
		if tok.Kind == RawText {
			raw = append(raw, tok.Text)
		}
	}

	if strings.Join(raw, "|") != "a|b" {
		t.Errorf("got %q", raw)
	}
}

func TestLex_PositionsAreAbsolute(t *testing.T) {
	_, toks := lexKinds(t, "ab\n{{ x }}")

	x := toks[2]
	if x.Kind != Ident || x.Span.Start.Line != 2 || x.Span.Start.Col != 4 || x.Span.Start.Offset != 6 {
		t.Errorf("got %s at %+v", x, x.Span.Start)
	}
}

func TestLex_Unterminated(t *testing.T) {
	for _, src := range []string{"a {{ x", "{% if x", "{# c"} {
		var got error

		for _, err := range Lex(src) {
			if err != nil {
				got = err
			}
		}

		if !errors.Is(got, ErrSyntax) {
			t.Errorf("Lex(%q): got %v, want syntax error", src, got)
		}
	}
}
