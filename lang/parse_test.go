package lang

import (
	"errors"
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) *Template {
	t.Helper()

	tmpl, err := ParseString(t.Context(), "test.sql", src)
	if err != nil {
		t.Fatalf("ParseString(%q): %v", src, err)
	}

	return tmpl
}

func TestParseString_Statements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string // statement types of the top-level body
	}{
		{"raw only", "select 1", []string{"*lang.EmitRaw"}},
		{"expression", "a {{ x }}", []string{"*lang.EmitRaw", "*lang.EmitExpr"}},
		{"comment", "{# -- funcsign: () -> string #}", []string{"*lang.CommentStmt"}},
		{"if chain", "{% if a %}1{% elif b %}2{% else %}3{% endif %}", []string{"*lang.If"}},
		{"for else", "{% for k, v in d.items() if v %}{{ k }}{% else %}none{% endfor %}", []string{"*lang.For"}},
		{"set", "{% set x = 1 %}", []string{"*lang.Set"}},
		{"set block", "{% set x %}body{% endset %}", []string{"*lang.Set"}},
		{"do", "{% do xs.append(1) %}", []string{"*lang.Do"}},
		{"macro", "{% macro m(a, b=2) %}{{ a }}{% endmacro %}", []string{"*lang.Macro"}},
		{"call block", "{% call(x) m(1) %}{{ x }}{% endcall %}", []string{"*lang.CallBlock"}},
		{"block", "{% block body %}x{% endblock %}", []string{"*lang.Block"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := mustParse(t, tt.input)

			if len(tmpl.Body) != len(tt.want) {
				t.Fatalf("got %d statements, want %d", len(tmpl.Body), len(tt.want))
			}

			for i, s := range tmpl.Body {
				if got := typeName(s); got != tt.want[i] {
					t.Errorf("statement %d: got %s, want %s", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestParseString_IfElif(t *testing.T) {
	tmpl := mustParse(t, "{% if a %}1{% elif b %}2{% else %}3{% endif %}")

	n := tmpl.Body[0].(*If)

	nested, ok := n.Else[0].(*If)
	if !ok {
		t.Fatalf("elif did not nest: %T", n.Else[0])
	}

	if len(nested.Else) != 1 || nested.Else[0].(*EmitRaw).Text != "3" {
		t.Errorf("else branch lost: %+v", nested.Else)
	}

	if n.Span.Start.Offset != 0 || n.Span.Stop.Offset != len(tmpl.Source) {
		t.Errorf("span %v does not cover the whole statement", n.Span)
	}
}

func TestParseString_Macro(t *testing.T) {
	src := "{% macro greet(name, title='Mx') %}Hello {{ title }} {{ name }}{% endmacro %}"
	tmpl := mustParse(t, src)

	m := tmpl.Body[0].(*Macro)

	if m.Name != "greet" || len(m.Args) != 2 {
		t.Fatalf("got %s with %d args", m.Name, len(m.Args))
	}

	if m.Args[0].Default != nil || m.Args[1].Default == nil {
		t.Errorf("defaults not attached: %+v", m.Args)
	}

	if m.Span.Stop.Offset != len(src) {
		t.Errorf("macro span stops at %d, want %d", m.Span.Stop.Offset, len(src))
	}

	var count int
	for range tmpl.Macros() {
		count++
	}

	if count != 1 {
		t.Errorf("Macros yielded %d", count)
	}
}

func TestParseString_Precedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"{{ 1 + 2 * 3 }}", "(1 + (2 * 3))"},
		{"{{ a ~ b + c }}", "((a ~ b) + c)"},
		{"{{ not a and b or c }}", "(((not a) and b) or c)"},
		{"{{ a in b }}", "(a in b)"},
		{"{{ a not in b }}", "(a not in b)"},
		{"{{ -x|abs }}", "((- x)|abs)"},
		{"{{ 2 ** 3 ** 2 }}", "((2 ** 3) ** 2)"},
		{"{{ x if c else y }}", "(x if c else y)"},
		{"{{ a.b[0](1, k=2) }}", "a.b[0](1, k=2)"},
		{"{{ x is not defined }}", "(x is not defined)"},
		{"{{ x is divisibleby 3 }}", "(x is divisibleby(3))"},
		{"{{ [1, 'a', none] }}", "[1, 'a', None]"},
		{"{{ {'k': true} }}", "{'k': True}"},
		{"{{ (1, 2) }}", "(1, 2)"},
		{"{{ 'a' 'b' }}", "'ab'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tmpl := mustParse(t, tt.input)

			got := show(tmpl.Body[0].(*EmitExpr).Expr)
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseString_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"unclosed if", "{% if x %}a", `expected "elif" or "else" or "endif"`},
		{"unknown tag", "{% frob %}", `unknown tag "frob"`},
		{"dangling operator", "{{ 1 + }}", "unexpected }}"},
		{"positional after keyword", "{{ f(a=1, 2) }}", "positional argument follows keyword argument"},
		{"default order", "{% macro m(a=1, b) %}{% endmacro %}", "non-default argument"},
		{"call block without call", "{% call x %}{% endcall %}", "expected call expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(t.Context(), "bad.sql", tt.input)
			if err == nil {
				t.Fatal("expected error")
			}

			if !errors.Is(err, ErrSyntax) {
				t.Errorf("error %v does not match ErrSyntax", err)
			}

			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err, tt.msg)
			}
		})
	}
}

func TestParseReader(t *testing.T) {
	tmpl, err := ParseReader(t.Context(), "r.sql", strings.NewReader("{{ x }}"))
	if err != nil {
		t.Fatal(err)
	}

	if tmpl.Name != "r.sql" || len(tmpl.Body) != 1 {
		t.Errorf("got %+v", tmpl)
	}
}

func TestWalkStmts_VisitsNestedBodies(t *testing.T) {
	tmpl := mustParse(t, "{% macro m() %}{% if a %}{{ b }}{% endif %}{% endmacro %}{{ c }}")

	var names []string

	WalkStmts(tmpl.Body, func(e Expr) bool {
		if v, ok := e.(*Var); ok {
			names = append(names, v.Name)
		}

		return true
	})

	if strings.Join(names, ",") != "a,b,c" {
		t.Errorf("got %v", names)
	}
}
