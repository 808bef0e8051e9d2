package types

import (
	"errors"
	"testing"

	"github.com/ardnew/jinx/lang"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		src    string
		params []Type
		ret    Type
	}{
		{"() -> string", nil, String},
		{"(string, integer) -> bool", []Type{String, Integer}, Bool},
		{"(number)", []Type{Integer}, None},
		{"(list[string], dict[string, any]) -> none", []Type{SeqOf(String), MapOf(String, Any)}, None},
		{"(optional[relation]) -> relation", []Type{OptionalOf(ObjectOf("relation"))}, ObjectOf("relation")},
		{"(tuple[string, float]) -> seq[integer]", []Type{TupleOf(String, Float)}, SeqOf(Integer)},
		{"((string) -> bool) -> any", []Type{FuncOf([]Type{String}, Bool)}, Any},
		{"(string | none) -> string | integer", []Type{OptionalOf(String)}, UnionOf(String, Integer)},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			params, ret, err := ParseSignature(tt.src)
			if err != nil {
				t.Fatalf("ParseSignature(%q): %v", tt.src, err)
			}

			if len(params) != len(tt.params) {
				t.Fatalf("got %d params, want %d", len(params), len(tt.params))
			}

			for i := range params {
				if !params[i].Equal(tt.params[i]) {
					t.Errorf("param %d = %s, want %s", i, params[i], tt.params[i])
				}
			}

			if !ret.Equal(tt.ret) {
				t.Errorf("return = %s, want %s", ret, tt.ret)
			}
		})
	}
}

func TestParseSignature_Errors(t *testing.T) {
	tests := []struct {
		src    string
		offset int
	}{
		{"(strin) -> string", 1},
		{"(string) string", 9},
		{"(string", 7},
		{"(list[string, integer])", 1},
		{"(dict[string) -> any", 12},
		{"string -> any", 0},
		{"(string) -> any extra", 16},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, _, err := ParseSignature(tt.src)

			var se *lang.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("ParseSignature(%q) error = %v, want *lang.SyntaxError", tt.src, err)
			}

			if se.Loc.Offset != tt.offset {
				t.Errorf("offset = %d, want %d (%s)", se.Loc.Offset, tt.offset, se.Msg)
			}
		})
	}
}

func TestParseType_RoundTrip(t *testing.T) {
	for _, src := range []string{
		"string", "list[integer]", "dict[string, list[bool]]", "tuple[string, float]",
		"none | string", "(string, integer) -> bool", "relation",
	} {
		typ, err := ParseType(src)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", src, err)
		}

		if got := typ.String(); got != src {
			t.Errorf("ParseType(%q).String() = %q", src, got)
		}
	}
}
