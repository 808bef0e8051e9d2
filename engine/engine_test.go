package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/ardnew/jinx/lang"
	"github.com/ardnew/jinx/listener"
	"github.com/ardnew/jinx/log"
	"github.com/ardnew/jinx/typecheck"
	"github.com/ardnew/jinx/value"
	"github.com/ardnew/jinx/vm"
)

func TestEngine_Render(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		data  map[string]any
		want  string
		spans bool // source contains constructs
	}{
		{"text", "select 1", nil, "select 1", false},
		{"variable", "Hello {{ name }}!", map[string]any{"name": "World"}, "Hello World!", true},
		{"filter", "{{ xs | join(',') }}", map[string]any{"xs": []any{1, 2}}, "1,2", true},
		{
			"macro",
			"{% macro greet(n) %}Hi {{ n }}{% endmacro %}{{ greet('a') }}",
			nil,
			"Hi a",
			true,
		},
		{
			"nested map",
			"{{ cfg.db.host }}",
			map[string]any{"cfg": map[string]any{"db": map[string]any{"host": "h"}}},
			"h",
			true,
		},
	}

	e := New()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, spans, err := e.Render(t.Context(), "test.sql", tt.src, tt.data)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}

			if got != tt.want {
				t.Errorf("Render = %q, want %q", got, tt.want)
			}

			if (len(spans) > 0) != tt.spans {
				t.Errorf("Render returned %d macro spans, want spans: %t", len(spans), tt.spans)
			}
		})
	}
}

func TestEngine_RenderSyntaxError(t *testing.T) {
	_, spans, err := New().Render(t.Context(), "bad.sql", "{{ 1 + }}", nil)
	if !errors.Is(err, lang.ErrSyntax) {
		t.Fatalf("Render error = %v, want %v", err, lang.ErrSyntax)
	}

	if spans != nil {
		t.Errorf("spans = %v, want none", spans)
	}
}

func TestEngine_RenderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, _, err := New().Render(ctx, "a.sql", "x", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Render error = %v, want %v", err, context.Canceled)
	}
}

func TestEngine_RenderReader(t *testing.T) {
	got, _, err := New().RenderReader(t.Context(), "r.sql",
		strings.NewReader("{{ n * 2 }}"), map[string]any{"n": 21})
	if err != nil {
		t.Fatalf("RenderReader: %v", err)
	}

	if got != "42" {
		t.Errorf("RenderReader = %q, want %q", got, "42")
	}
}

func TestEngine_RenderWith(t *testing.T) {
	var sym listener.SymbolRecorder

	e := New(WithLogger(log.Make(io.Discard, log.WithLevel(log.LevelTrace))))

	got, spans, err := e.RenderWith(t.Context(), "w.sql",
		"{% set x = 1 %}{% macro m() %}{{ x }}{% endmacro %}{{ m() }}", nil, &sym)
	if err != nil {
		t.Fatalf("RenderWith: %v", err)
	}

	if got != "1" || len(spans) == 0 {
		t.Errorf("RenderWith = %q, %v", got, spans)
	}

	defs := make([]string, len(sym.Definitions))
	for i, d := range sym.Definitions {
		defs[i] = d.Name
	}

	if !slices.Contains(defs, "x") || !slices.Contains(defs, "m") {
		t.Errorf("definitions = %v, want x and m", defs)
	}

	if len(sym.References) == 0 {
		t.Error("no references recorded")
	}
}

func TestEngine_Compile(t *testing.T) {
	e := New()

	a, err := e.Compile(t.Context(), "a.sql", "{{ x }}")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	b, err := e.Compile(t.Context(), "a.sql", "{{ x }}")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if a != b {
		t.Error("Compile of the same source returned distinct programs")
	}

	c, err := e.Compile(t.Context(), "b.sql", "{{ x }}")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if c == a || c.Name != "b.sql" {
		t.Errorf("Compile under another name returned %q", c.Name)
	}

	_, err1 := e.Compile(t.Context(), "bad.sql", "{% if %}")
	_, err2 := e.Compile(t.Context(), "bad.sql", "{% if %}")

	if err1 == nil || err1 != err2 {
		t.Errorf("cached failure = %v, %v", err1, err2)
	}
}

func TestEngine_Options(t *testing.T) {
	e := New(
		WithGlobal("project", map[string]any{"name": "jinx"}),
		WithFunction("answer", func(*vm.State, []value.Value, *value.Dict) (value.Value, error) {
			return value.FromInt(42), nil
		}),
		WithFilter("shout", func(_ *vm.State, v value.Value, _ []value.Value, _ *value.Dict) (value.Value, error) {
			return value.FromString(strings.ToUpper(v.String()) + "!"), nil
		}),
		WithTest("short", func(v value.Value, _ []value.Value) (bool, error) {
			n, ok := v.Len()

			return ok && n < 5, nil
		}),
	)

	src := "{{ project.name | shout }} {{ answer() }} {{ project.name is short }}"

	got, _, err := e.Render(t.Context(), "o.sql", src, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if want := "JINX! 42 True"; got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}

	c := listener.NewDiagnosticCollector(src)
	if err := e.Check(t.Context(), "o.sql", src, nil, c); err != nil {
		t.Fatalf("Check: %v", err)
	}

	if diags := c.Diagnostics(); len(diags) != 0 {
		t.Errorf("Check reported %v", diags)
	}
}

func TestEngine_Check(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data map[string]any
		want []string
	}{
		{"clean", "{{ name | upper }}", map[string]any{"name": "a"}, nil},
		{"undefined", "{{ nmae }}", map[string]any{"name": "a"}, []string{typecheck.CodeUndefined}},
		{"unknown filter", "{{ 1 | nope }}", nil, []string{typecheck.CodeUnknownFilter}},
		{
			"arity",
			"{% macro m(a) %}{{ a }}{% endmacro %}{{ m(1, 2) }}",
			nil,
			[]string{typecheck.CodeArity},
		},
		{
			"argument type",
			"-- funcsign: (integer) -> string\n{% macro m(a) %}{{ a }}{% endmacro %}{{ m('x') }}",
			nil,
			[]string{typecheck.CodeArgumentType},
		},
	}

	e := New()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := listener.NewDiagnosticCollector(tt.src)
			if err := e.Check(t.Context(), "c.sql", tt.src, tt.data, c); err != nil {
				t.Fatalf("Check: %v", err)
			}

			var got []string
			for _, d := range c.Diagnostics() {
				got = append(got, d.Code)
			}

			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Check codes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngine_Signatures(t *testing.T) {
	src := "-- funcsign: (string, optional[integer]) -> string\n" +
		"{% macro m(a, b=1) %}{{ a }}{% endmacro %}"

	reg, err := New().Signatures(t.Context(), "s.sql", src)
	if err != nil {
		t.Fatalf("Signatures: %v", err)
	}

	sig, ok := reg.Lookup("m")
	if !ok {
		t.Fatal("macro m not registered")
	}

	if !sig.Typed || sig.Required != 1 || len(sig.Args) != 2 {
		t.Errorf("signature = %+v", sig)
	}
}

func BenchmarkEngine_Render(b *testing.B) {
	e := New()
	src := "{% macro row(x) %}<{{ x }}>{% endmacro %}" +
		"{% for x in xs %}{{ row(x) }}{% endfor %}"
	data := map[string]any{"xs": []any{1, 2, 3, 4, 5, 6, 7, 8}}

	for b.Loop() {
		if _, _, err := e.Render(b.Context(), "bench.sql", src, data); err != nil {
			b.Fatal(err)
		}
	}
}

func ExampleEngine_Render() {
	e := New()

	out, _, err := e.Render(context.Background(), "hello.txt",
		"Hello {{ name }}!", map[string]any{"name": "World"})
	if err != nil {
		fmt.Println(err)

		return
	}

	fmt.Println(out)
	// Output: Hello World!
}
