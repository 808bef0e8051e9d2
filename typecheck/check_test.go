package typecheck

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/ardnew/jinx/compiler"
	"github.com/ardnew/jinx/lang"
	"github.com/ardnew/jinx/listener"
	"github.com/ardnew/jinx/types"
)

func compile(t testing.TB, src string) *compiler.Program {
	t.Helper()

	prog, err := compiler.CompileString(t.Context(), "test.sql", src)
	if err != nil {
		t.Fatalf("CompileString(%q): %v", src, err)
	}

	return prog
}

func check(t testing.TB, src string, root map[string]types.Type, opts ...Option) []listener.Diagnostic {
	t.Helper()

	prog := compile(t, src)
	reg := MacroSignatures(prog.Instructions, "test.sql")
	col := listener.NewDiagnosticCollector(src)

	opts = append([]Option{WithFile("test.sql")}, opts...)
	if err := Check(t.Context(), prog.Instructions, root, prog.Blocks, reg, col, opts...); err != nil {
		t.Fatalf("Check(%q): %v", src, err)
	}

	return col.Diagnostics()
}

func codes(diags []listener.Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}

	return out
}

func TestCheck_Diagnostics(t *testing.T) {
	str := map[string]types.Type{"s": types.String}

	tests := []struct {
		name string
		src  string
		root map[string]types.Type
		opts []Option
		want []string
	}{
		{"undefined", "{{ x }}", nil, nil, []string{CodeUndefined}},
		{"context", "{{ s }}", str, nil, nil},
		{"defined test", "{% if x is defined %}ok{% endif %}", nil, nil, nil},
		{
			"single branch",
			"{% if c %}{% set y = 1 %}{% endif %}{{ y }}",
			map[string]types.Type{"c": types.Bool},
			nil,
			[]string{CodePossiblyUndefined},
		},
		{"arithmetic", "{{ 1 + 'a' }}", nil, nil, []string{CodeInvalidOperation}},
		{"concat", "{{ 'a' ~ 1 }}", nil, nil, nil},
		{"attribute", "{{ s.nope }}", str, nil, []string{CodeUnknownAttribute}},
		{"method", "{{ s.upper() }}", str, nil, nil},
		{"not iterable", "{% for i in 3 %}{% endfor %}", nil, nil, []string{CodeNotIterable}},
		{"compare", "{% if 1 == 'a' %}{% endif %}", nil, nil, []string{CodeIncomparable}},
		{"numbers compare", "{% if 1 < 2.5 %}{% endif %}", nil, nil, nil},
		{"unknown filter", "{{ s | uper }}", str, []Option{WithFilters("upper")}, []string{CodeUnknownFilter}},
		{"known filter", "{{ s | upper }}", str, []Option{WithFilters("upper")}, nil},
		{"unknown test", "{% if 1 is odd %}{% endif %}", nil, []Option{WithTests("even")}, []string{CodeUnknownTest}},
		{"closure", "{% set n = 1 %}{% macro f() %}{{ n }}{% endmacro %}", nil, nil, nil},
		{"forward reference", "{{ f(1) }}{% macro f(a) %}{% endmacro %}", nil, nil, nil},
		{"missing argument", "{% macro f(a, b=1) %}{% endmacro %}{{ f() }}", nil, nil, []string{CodeArity}},
		{"default argument", "{% macro f(a, b=1) %}{% endmacro %}{{ f(1) }}{{ f(a=1, b=2) }}", nil, nil, nil},
		{
			"call block",
			"{% macro wrap() %}<{{ caller() }}>{% endmacro %}{% call wrap() %}x{% endcall %}",
			nil,
			nil,
			nil,
		},
		{
			"typed parameter",
			"-- funcsign: (integer) -> string\n{% macro f(a) %}{{ a + 'x' }}{% endmacro %}",
			nil,
			nil,
			[]string{CodeInvalidOperation},
		},
		{
			"argument type",
			"-- funcsign: (integer) -> string\n{% macro f(a) %}{% endmacro %}{{ f('x') }}",
			nil,
			nil,
			[]string{CodeArgumentType},
		},
		{
			"return type",
			"-- funcsign: () -> integer\n{% macro f() %}{{ return('x') }}{% endmacro %}",
			nil,
			nil,
			[]string{CodeReturnType},
		},
		{
			"loop",
			"{% for x in xs %}{{ loop.index }}{{ x.upper() }}{% endfor %}",
			map[string]types.Type{"xs": types.SeqOf(types.String)},
			nil,
			nil,
		},
		{
			"unpack",
			"{% for k, v in d.items() %}{{ v + 1 }}{{ k.upper() }}{% endfor %}",
			map[string]types.Type{"d": types.MapOf(types.String, types.Integer)},
			nil,
			nil,
		},
		{
			"loop filter",
			"{% for x in xs if x > 1 %}{{ x + 1 }}{% endfor %}",
			map[string]types.Type{"xs": types.SeqOf(types.Integer)},
			nil,
			nil,
		},
		{"builtin", "{% for i in range(3) %}{{ i + 1 }}{% endfor %}", nil, nil, nil},
		{
			"loop reassigned type",
			"{% macro m(xs) %}{% set ns = 1 %}{% for x in xs %}{{ ns == 1 }}" +
				"{% set ns = 'a' %}{% endfor %}{% endmacro %}",
			nil,
			nil,
			[]string{CodeIncomparable},
		},
		{
			"loop numeric accumulator",
			"{% set n = 0 %}{% for x in xs %}{{ n > 2 }}{% set n = n + 0.5 %}{% endfor %}",
			map[string]types.Type{"xs": types.SeqOf(types.Integer)},
			nil,
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := check(t, tt.src, tt.root, tt.opts...)
			if got := codes(diags); !slices.Equal(got, tt.want) {
				t.Errorf("codes = %v, want %v\n%v", got, tt.want, diags)
			}
		})
	}
}

func TestCheck_Arity(t *testing.T) {
	src := "-- funcsign: (string) -> string\n" +
		"{% macro greet(name) %}Hello {{ name }}{% endmacro %}\n" +
		"{{ greet('Lee') }}\n" +
		"{{ greet('Lee', 'Dr') }}\n"

	diags := check(t, src, nil)
	if len(diags) != 1 || diags[0].Code != CodeArity {
		t.Fatalf("diagnostics = %v, want one %s", diags, CodeArity)
	}

	d := diags[0]
	if d.Loc.File != "test.sql" || d.Loc.Line != 4 {
		t.Errorf("location = %s, want test.sql line 4", d.Loc)
	}

	if !strings.Contains(d.Msg, "greet") {
		t.Errorf("message %q does not name the macro", d.Msg)
	}
}

func TestCheck_Suggestion(t *testing.T) {
	root := map[string]types.Type{"name": types.String}

	tests := []struct {
		src  string
		want string // empty when no suggestion is expected
	}{
		{"{{ nam }}", `did you mean "name"`},
		{"{{ a }}", ""},
		{"{{ c }}", ""},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			diags := check(t, tt.src, root)
			if len(diags) != 1 {
				t.Fatalf("diagnostics = %v", diags)
			}

			msg := diags[0].Msg
			if tt.want == "" {
				if strings.Contains(msg, "did you mean") {
					t.Errorf("message %q has a suggestion", msg)
				}

				return
			}

			if !strings.Contains(msg, tt.want) {
				t.Errorf("message %q does not contain %q", msg, tt.want)
			}
		})
	}
}

func TestCheck_Blocks(t *testing.T) {
	diags := check(t, "{% block body %}{{ missing }}{% endblock %}", nil)
	if got := codes(diags); !slices.Equal(got, []string{CodeUndefined}) {
		t.Errorf("codes = %v", got)
	}
}

func TestCheck_Malformed(t *testing.T) {
	instrs := compiler.Instructions{{Op: compiler.Jump, Arg: 9}}

	err := Check(t.Context(), instrs, nil, nil, types.NewRegistry(), nil)
	if !errors.Is(err, lang.ErrMalformedProgram) {
		t.Errorf("Check: err = %v, want ErrMalformedProgram", err)
	}
}

func TestCheck_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := Check(ctx, compile(t, "{{ x }}").Instructions, nil, nil, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Check: err = %v, want context.Canceled", err)
	}
}

func TestCheck_DoesNotMutate(t *testing.T) {
	prog := compile(t, "{% macro f(a, b=1) %}{{ a + b }}{% endmacro %}{{ f(1) }}")
	before := prog.Instructions.String()

	reg := MacroSignatures(prog.Instructions, "test.sql")
	if err := Check(t.Context(), prog.Instructions, nil, prog.Blocks, reg, nil); err != nil {
		t.Fatal(err)
	}

	if after := prog.Instructions.String(); after != before {
		t.Errorf("instructions changed:\n%s\nwant:\n%s", after, before)
	}
}

func BenchmarkCheck(b *testing.B) {
	src := "-- funcsign: (string, integer) -> string\n" +
		"{% macro f(s, n=1) %}{% for i in range(n) %}{{ s.upper() }}{% endfor %}{% endmacro %}" +
		"{% for x in xs %}{{ f(x, 2) }}{% endfor %}"

	prog := compile(b, src)
	reg := MacroSignatures(prog.Instructions, "bench.sql")
	root := map[string]types.Type{"xs": types.SeqOf(types.String)}

	for b.Loop() {
		if err := Check(b.Context(), prog.Instructions, root, prog.Blocks, reg, nil); err != nil {
			b.Fatal(err)
		}
	}
}
