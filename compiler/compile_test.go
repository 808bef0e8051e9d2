package compiler

import (
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/ardnew/jinx/lang"
)

func compile(t *testing.T, src string) *Program {
	t.Helper()

	prog, err := CompileString(t.Context(), "test.sql", src)
	if err != nil {
		t.Fatalf("CompileString(%q): %v", src, err)
	}

	return prog
}

func TestCompile_Golden(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"greet", "{% macro greet(name, title='Mx') %}Hello {{ title }} {{ name }}{% endmacro %}{{ greet('Lee') }}"},
		{"for_else", "{% for x in xs %}{{ x }}{% else %}-{% endfor %}"},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, []byte(compile(t, tt.src).Instructions.String()))
		})
	}
}

func TestCompile_MacroBracketsNest(t *testing.T) {
	src := `{% macro outer() %}{% if x %}{{ inner() }}{% endif %}{% endmacro %}` +
		`{% for i in range(3) %}{% set y = i %}{% do xs.append(y) %}{% endfor %}` +
		`{% call(a) outer() %}{{ a }}{% endcall %}{% block b %}{{ z }}{% endblock %}`

	prog := compile(t, src)

	for name, instrs := range map[string]Instructions{"": prog.Instructions, "b": prog.Blocks["b"]} {
		depth := 0

		for pc, in := range instrs {
			switch in.Op {
			case MacroStart:
				depth++
			case MacroStop:
				depth--
				if depth < 0 {
					t.Fatalf("block %q: unmatched MacroStop at %d", name, pc)
				}
			}
		}

		if depth != 0 {
			t.Errorf("block %q: %d unclosed MacroStart", name, depth)
		}
	}
}

func TestCompile_CallerFlags(t *testing.T) {
	prog := compile(t, `{% macro wrap() %}<{{ caller() }}>{% endmacro %}{% call wrap() %}x{% endcall %}`)

	var builds []Instruction

	for _, in := range prog.Instructions {
		if in.Op == BuildMacro {
			builds = append(builds, in)
		}
	}

	if len(builds) != 2 {
		t.Fatalf("got %d BuildMacro instructions", len(builds))
	}

	if builds[0].Name != "wrap" || builds[0].Flags&FlagCaller == 0 {
		t.Errorf("wrap: got %s", builds[0])
	}

	if builds[1].Name != "caller" || builds[1].Flags&FlagCallerBlock == 0 {
		t.Errorf("caller block: got %s", builds[1])
	}
}

func TestCompile_Return(t *testing.T) {
	prog := compile(t, `{% macro m() %}{{ return(1) }}{% do return() %}{% endmacro %}`)

	var values []int

	for _, in := range prog.Instructions {
		if in.Op == Return {
			values = append(values, in.Arg)
		}
	}

	if len(values) != 3 || values[0] != 1 || values[1] != 1 || values[2] != 0 {
		t.Errorf("got Return args %v", values)
	}
}

func TestCompile_FuncsignAdjacency(t *testing.T) {
	prog := compile(t, "-- funcsign: (string) -> string\n{% macro m(x) %}{{ x }}{% endmacro %}")

	if prog.Instructions[0].Op != EmitRaw || prog.Instructions[1].Op != MacroStart {
		t.Fatalf("got %s, %s", prog.Instructions[0], prog.Instructions[1])
	}

	sig, ok := Funcsign(prog.Instructions[0].Value.Str())
	if !ok || sig != "(string) -> string" {
		t.Errorf("got %q %v", sig, ok)
	}
}

func TestCompile_IntegerOverflow(t *testing.T) {
	_, err := CompileString(t.Context(), "big.sql", "{{ 99999999999999999999 }}")

	var se *lang.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want syntax error", err)
	}

	if se.Loc.Offset != 3 {
		t.Errorf("offset: got %d, want 3", se.Loc.Offset)
	}
}

func TestCompile_NoEmptyRaw(t *testing.T) {
	prog := compile(t, "{{ a }}{{ b }}")

	for _, in := range prog.Instructions {
		if in.Op == EmitRaw {
			t.Errorf("unexpected %s", in)
		}
	}
}

func TestCompile_DuplicateBlock(t *testing.T) {
	_, err := CompileString(t.Context(), "dup.sql", "{% block a %}{% endblock %}{% block a %}{% endblock %}")
	if !errors.Is(err, lang.ErrSyntax) {
		t.Errorf("got %v", err)
	}
}

func BenchmarkCompile(b *testing.B) {
	src := "{% macro m(a, b=1) %}{% for x in a %}{{ x ~ b }}{% endfor %}{% endmacro %}{{ m([1, 2, 3]) }}"

	tmpl, err := lang.ParseString(b.Context(), "bench.sql", src)
	if err != nil {
		b.Fatal(err)
	}

	for b.Loop() {
		if _, err := Compile(b.Context(), tmpl); err != nil {
			b.Fatal(err)
		}
	}
}
