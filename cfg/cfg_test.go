package cfg

import (
	"errors"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/ardnew/jinx/compiler"
	"github.com/ardnew/jinx/lang"
)

func build(t *testing.T, src string) *Graph {
	t.Helper()

	prog, err := compiler.CompileString(t.Context(), "test.sql", src)
	if err != nil {
		t.Fatalf("CompileString(%q): %v", src, err)
	}

	g, err := Build(prog.Instructions)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	return g
}

func TestBuild_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	graph := build(t, "{% for x in xs %}{{ x }}{% else %}-{% endfor %}")
	g.Assert(t, "for_else", []byte(graph.String()))
}

func TestBuild_MacroAttribution(t *testing.T) {
	graph := build(t,
		"{% macro greet(name, title='Mx') %}Hello {{ title }} {{ name }}{% endmacro %}{{ greet('Lee') }}")

	want := []struct {
		macro      string
		start, end int
	}{
		{"", 0, 2},
		{"greet", 2, 6},
		{"greet", 6, 8},
		{"greet", 8, 19},
		{"", 19, 27},
	}

	if len(graph.Blocks) != len(want) {
		t.Fatalf("got %d blocks, want %d\n%s", len(graph.Blocks), len(want), graph)
	}

	for i, w := range want {
		b := graph.Blocks[i]
		if b.Macro != w.macro || b.Start != w.start || b.End != w.end {
			t.Errorf("block %d = %q [%d, %d), want %q [%d, %d)",
				i, b.Macro, b.Start, b.End, w.macro, w.start, w.end)
		}
	}

	if roots := graph.Roots(); len(roots) != 2 || roots[0].ID != 0 || roots[1].ID != 1 {
		t.Errorf("Roots() = %v, want blocks 0 and 1", roots)
	}

	// the macro body returns without a successor; the definition skips it
	if s := graph.Blocks[3].Succs; len(s) != 0 {
		t.Errorf("return block has successors %v", s)
	}

	if s := graph.Blocks[0].Succs; len(s) != 1 || s[0].To != 4 || s[0].Kind != Uncond {
		t.Errorf("definition block successors = %v, want jump to 4", s)
	}
}

func TestBuild_NestedMacroInnermost(t *testing.T) {
	graph := build(t, "{% macro outer() %}{% call inner() %}x{% endcall %}{% endmacro %}")

	seen := map[string]bool{}
	for _, b := range graph.Blocks {
		seen[b.Macro] = true
	}

	for _, name := range []string{"", "outer", "caller"} {
		if !seen[name] {
			t.Errorf("no block attributed to %q\n%s", name, graph)
		}
	}
}

func TestBuild_Empty(t *testing.T) {
	g, err := Build(nil)
	if err != nil {
		t.Fatal(err)
	}

	if g.Entry() != nil || len(g.Blocks) != 0 {
		t.Errorf("empty graph has blocks: %v", g.Blocks)
	}
}

func TestBuild_BadTarget(t *testing.T) {
	_, err := Build(compiler.Instructions{{Op: compiler.Jump, Arg: 7}})
	if !errors.Is(err, lang.ErrMalformedProgram) {
		t.Fatalf("Build() error = %v, want ErrMalformedProgram", err)
	}
}

func TestGraph_BlockAt(t *testing.T) {
	graph := build(t, "{% if a %}b{% else %}c{% endif %}")

	for pc := range graph.Instructions {
		b := graph.BlockAt(pc)
		if b == nil || pc < b.Start || pc >= b.End {
			t.Errorf("BlockAt(%d) = %v", pc, b)
		}
	}

	if graph.BlockAt(-1) != nil || graph.BlockAt(len(graph.Instructions)) != nil {
		t.Error("BlockAt out of range returned a block")
	}
}

func TestGraph_DOT(t *testing.T) {
	dot := build(t, `{{ "q" if a }}`).DOT("test")

	for _, want := range []string{`digraph "test" {`, `b0 -> b1 [label="true"];`, `'q'`, "}\n"} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
}
