package vm

import (
	"os"
	"testing"
)

func TestFilters(t *testing.T) {
	ctx := map[string]any{
		"xs":    []any{3, 1, 2},
		"names": []any{"b", "A", "c"},
		"d":     map[string]any{"b": 2, "a": 1},
		"users": []any{map[string]any{"name": "x"}, map[string]any{"name": "y"}},
		"s":     "hello world",
		"n":     -3,
		"ml":    "a\nb",
	}

	sep := string(os.PathListSeparator)

	tests := []struct {
		src  string
		want string
	}{
		{"{{ s | title }}", "Hello World"},
		{"{{ s | capitalize }}", "Hello world"},
		{"{{ '  x ' | trim }}", "x"},
		{"{{ xs | length }}", "3"},
		{"{{ missing | default('z') }}", "z"},
		{"{{ '' | default('z', true) }}", "z"},
		{"{{ xs | first }}{{ xs | last }}", "32"},
		{"{{ xs | sort | join(',') }}", "1,2,3"},
		{"{{ xs | sort(reverse=true) | join(',') }}", "3,2,1"},
		{"{{ names | sort | join }}", "Abc"},
		{"{{ xs | reverse | join }}", "213"},
		{"{{ 'abc' | reverse }}", "cba"},
		{"{{ [1, 1, 2] | unique | join }}", "12"},
		{"{{ xs | sum }}", "6"},
		{"{{ xs | min }}{{ xs | max }}", "13"},
		{"{{ n | abs }}", "3"},
		{"{{ 2.567 | round(1) }}", "2.6"},
		{"{{ '42' | int + 1 }}", "43"},
		{"{{ 'x' | int(7) }}", "7"},
		{"{{ '1.5' | float }}", "1.5"},
		{"{{ s | replace('world', 'there') }}", "hello there"},
		{"{{ s | wordcount }}", "2"},
		{"{{ users | map(attribute='name') | join('-') }}", "x-y"},
		{"{{ names | map('lower') | join }}", "bac"},
		{"{{ xs | select('odd') | join }}", "31"},
		{"{{ xs | reject('odd') | join }}", "2"},
		{"{% for k, v in d | dictsort %}{{ k }}={{ v }};{% endfor %}", "a=1;b=2;"},
		{"{% for k, v in d | items %}{{ k }}{% endfor %}", "ab"},
		{"{{ ml | indent(2) }}", "a\n  b"},
		{"{{ [1, 'a<b'] | tojson }}", `[1, "a\u003cb"]`},
		{"{{ d | attr('a') }}", "1"},
		{"{{ '/usr/bin' | prepend_path('/opt/bin') }}", "/opt/bin" + sep + "/usr/bin"},
	}

	m := New()

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := render(t, m, tt.src, ctx, nil)
			if err != nil {
				t.Fatalf("render: %v", err)
			}

			if got != tt.want {
				t.Errorf("render = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTests(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"x is defined", true},
		{"missing is undefined", true},
		{"none is none", true},
		{"x is number", true},
		{"x is integer", true},
		{"1.5 is float", true},
		{"'a' is string", true},
		{"{} is mapping", true},
		{"[] is sequence", true},
		{"'a' is iterable", true},
		{"range is callable", true},
		{"x is odd", true},
		{"x is even", false},
		{"x is eq(3)", true},
		{"x is ne(3)", false},
		{"x is lt(4)", true},
		{"x is gt(4)", false},
		{"'b' is in('abc')", true},
		{"'abc' is startswith('ab')", true},
		{"'abc' is endswith('x')", false},
		{"'abc' is lower", true},
		{"'ABC' is upper", true},
	}

	m := New()

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := render(t, m, "{% if "+tt.src+" %}1{% else %}0{% endif %}", map[string]any{"x": 3}, nil)
			if err != nil {
				t.Fatalf("render: %v", err)
			}

			if want := map[bool]string{true: "1", false: "0"}[tt.want]; got != want {
				t.Errorf("%s = %s, want %s", tt.src, got, want)
			}
		})
	}
}

func TestMethods(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"{{ 'Ab'.upper() }}", "AB"},
		{"{{ ' x '.strip() }}", "x"},
		{"{{ 'xxaxx'.strip('x') }}", "a"},
		{"{{ 'a b  c'.split() | length }}", "3"},
		{"{{ 'a,b,c'.split(',', 1) | last }}", "b,c"},
		{"{{ 'aXa'.replace('a', 'b') }}", "bXb"},
		{"{{ 'banana'.count('a') }}", "3"},
		{"{{ '123'.isdigit() }}", "True"},
		{"{{ [1, 2, 1].count(1) }}", "2"},
		{"{{ [1, 2, 1].index(2) }}", "1"},
		{"{{ d.keys() | join }}", "ab"},
		{"{{ d.values() | join }}", "12"},
		{"{{ d.get('z', 9) }}", "9"},
	}

	m := New()
	ctx := map[string]any{"d": map[string]any{"a": 1, "b": 2}}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := render(t, m, tt.src, ctx, nil)
			if err != nil {
				t.Fatalf("render: %v", err)
			}

			if got != tt.want {
				t.Errorf("render = %q, want %q", got, tt.want)
			}
		})
	}
}
