package types

import (
	"slices"
	"testing"

	"github.com/ardnew/jinx/span"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Add(Untyped("b", []string{"x", "y"}, 1, span.CodeLocation{File: "a.sql"}))
	r.Add(&Signature{Name: "a", Args: []string{"s"}, Params: []Type{String}, Return: Bool, Required: 1, Typed: true})

	if got := r.Names(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Names() = %v", got)
	}

	b, ok := r.Lookup("b")
	if !ok {
		t.Fatal("b not registered")
	}

	for n, want := range map[int]bool{0: false, 1: true, 2: true, 3: false} {
		if got := b.AcceptsArity(n); got != want {
			t.Errorf("AcceptsArity(%d) = %t, want %t", n, got, want)
		}
	}

	if got, want := b.String(), "b(x: any, y: any) -> any"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	o := NewRegistry()
	o.Add(Untyped("c", nil, 0, span.CodeLocation{}))
	r.Merge(o)

	if r.Len() != 3 {
		t.Errorf("Len() after Merge = %d, want 3", r.Len())
	}

	var nilReg *Registry
	if _, ok := nilReg.Lookup("a"); ok || nilReg.Len() != 0 {
		t.Error("nil registry is not empty")
	}
}
