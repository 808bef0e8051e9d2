package types

import (
	"fmt"
	"testing"
)

var samples = []Type{
	Any, None, Undefined, String, Integer, Float, Bool, Bytes, Timestamp,
	SeqOf(Integer), SeqOf(String), MapOf(String, Integer), TupleOf(String, Integer),
	ObjectOf("relation"), FuncOf([]Type{String}, Bool),
	UnionOf(String, Integer), OptionalOf(Float),
}

func TestUnion_Laws(t *testing.T) {
	for _, a := range samples {
		if got := Union(a, a); !got.Equal(a) {
			t.Errorf("Union(%s, %s) = %s", a, a, got)
		}

		if got := Union(Any, a); !got.IsAny() {
			t.Errorf("Union(any, %s) = %s", a, got)
		}

		if got := Union(None, a); !got.Equal(a) {
			t.Errorf("Union(none, %s) = %s", a, got)
		}

		for _, b := range samples {
			u := Union(a, b)
			if !u.Equal(Union(b, a)) {
				t.Errorf("Union not commutative for %s, %s", a, b)
			}

			seen := map[string]bool{}

			for _, m := range u.Flatten() {
				if u.IsUnion() && m.IsUnion() {
					t.Errorf("Union(%s, %s) = %s has nested union %s", a, b, u, m)
				}

				if seen[m.String()] {
					t.Errorf("Union(%s, %s) = %s has duplicate %s", a, b, u, m)
				}

				seen[m.String()] = true
			}
		}
	}
}

func TestUnion_Collapse(t *testing.T) {
	if got := UnionOf(); !got.IsNone() {
		t.Errorf("UnionOf() = %s, want none", got)
	}

	if got := UnionOf(String, String); !got.Equal(String) {
		t.Errorf("UnionOf(string, string) = %s", got)
	}

	u := UnionOf(Integer, UnionOf(String, Bool), Integer)
	if !u.IsUnion() || len(u.Members()) != 3 {
		t.Fatalf("UnionOf = %s, want three members", u)
	}

	if got, want := u.String(), "string | integer | bool"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		a, b, want Type
	}{
		{Any, String, Any},
		{Integer, Any, Any},
		{None, String, String},
		{SeqOf(Integer), None, SeqOf(Integer)},
		{SeqOf(Integer), SeqOf(String), None},
		{SeqOf(Integer), SeqOf(Integer), SeqOf(Integer)},
		{SeqOf(None), SeqOf(Integer), SeqOf(Integer)},
		{String, Integer, None},
		{MapOf(String, Bool), MapOf(String, Bool), MapOf(String, Bool)},
		{UnionOf(String, Integer), Integer, Integer},
		{UnionOf(String, Integer), UnionOf(Integer, String), UnionOf(String, Integer)},
		{UnionOf(String, Bool), Float, None},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s,%s", tt.a, tt.b), func(t *testing.T) {
			if got := Coerce(tt.a, tt.b); !got.Equal(tt.want) {
				t.Errorf("Coerce(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
			}
		})
	}

	for _, a := range samples {
		if got := Coerce(None, a); !got.Equal(a) {
			t.Errorf("Coerce(none, %s) = %s", a, got)
		}
	}
}

func TestCanCompareWith(t *testing.T) {
	tests := []struct {
		a, b Type
		op   string
		want bool
	}{
		{Any, String, "==", true},
		{Integer, None, "<", true},
		{String, String, "<", true},
		{String, Integer, "==", false},
		{UnionOf(String, Integer), UnionOf(String, Integer), "==", false},
		{UnionOf(String, Integer), String, "==", false},
		{SeqOf(Integer), SeqOf(Integer), "==", true},
		{SeqOf(Integer), SeqOf(String), "==", false},
		{String, SeqOf(String), "in", true},
		{Integer, SeqOf(String), "not in", false},
		{String, MapOf(String, Integer), "in", true},
		{String, String, "in", true},
	}

	for _, tt := range tests {
		if got := CanCompareWith(tt.a, tt.b, tt.op); got != tt.want {
			t.Errorf("CanCompareWith(%s, %s, %q) = %t, want %t", tt.a, tt.b, tt.op, got, tt.want)
		}
	}
}

func TestType_IsSubtypeOf(t *testing.T) {
	tests := []struct {
		a, b Type
		want bool
	}{
		{Integer, Float, true},
		{Float, Integer, false},
		{String, OptionalOf(String), true},
		{None, OptionalOf(String), true},
		{OptionalOf(String), String, false},
		{TupleOf(String, String), SeqOf(String), true},
		{SeqOf(Integer), SeqOf(Any), true},
		{MapOf(String, Integer), MapOf(String, String), false},
		{ObjectOf("relation"), ObjectOf("relation"), true},
		{ObjectOf("relation"), ObjectOf("model"), false},
	}

	for _, tt := range tests {
		if got := tt.a.IsSubtypeOf(tt.b); got != tt.want {
			t.Errorf("%s.IsSubtypeOf(%s) = %t, want %t", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		op   string
		a, b Type
		want Type
		ok   bool
	}{
		{"+", Integer, Integer, Integer, true},
		{"/", Integer, Integer, Float, true},
		{"*", Integer, Float, Float, true},
		{"+", String, String, String, true},
		{"~", Integer, Bool, String, true},
		{"+", String, Integer, Invalid, false},
		{"-", Any, String, Any, true},
		{"+", SeqOf(Integer), SeqOf(String), SeqOf(UnionOf(Integer, String)), true},
		{"*", String, Integer, String, true},
	}

	for _, tt := range tests {
		got, ok := Arithmetic(tt.op, tt.a, tt.b)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("Arithmetic(%q, %s, %s) = %s, %t; want %s, %t", tt.op, tt.a, tt.b, got, ok, tt.want, tt.ok)
		}
	}
}

func TestOptional(t *testing.T) {
	o := OptionalOf(String)
	if !o.IsOptional() || !o.NonOptional().Equal(String) {
		t.Errorf("OptionalOf(string) = %s", o)
	}

	if got := OptionalOf(o); !got.Equal(o) {
		t.Errorf("OptionalOf is not idempotent: %s", got)
	}

	if got := Union(o, Integer); !got.IsOptional() {
		t.Errorf("Union(%s, integer) = %s lost none", o, got)
	}
}

func BenchmarkUnion(b *testing.B) {
	for b.Loop() {
		u := None
		for _, s := range samples {
			u = Union(u, s)
		}
	}
}
