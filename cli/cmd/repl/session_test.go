package repl

import (
	"testing"

	"github.com/ardnew/jinx/engine"
	"github.com/ardnew/jinx/listener"
	"github.com/ardnew/jinx/log"
)

const testLibrary = `-- funcsign: (string) -> string
{% macro greet(name) %}Hello {{ name }}!{% endmacro %}header
`

func newTestSession(t *testing.T, source string) *session {
	t.Helper()

	data := map[string]any{
		"user": map[string]any{"name": "Ada", "langs": []any{"go", "c"}},
		"n":    21,
	}

	s, err := newSession(t.Context(), engine.New(), data, "lib", source, log.Logger{})
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}

	return s
}

func TestSession_Eval(t *testing.T) {
	s := newTestSession(t, testLibrary)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"expression", "n * 2", "42"},
		{"member", "user.name", "Ada"},
		{"filter", "user.langs | join(', ')", "go, c"},
		{"macro", "greet(user.name)", "Hello Ada!"},
		{"template", "{% for l in user.langs %}[{{ l }}]{% endfor %}", "[go][c]"},
		{"test", "n is odd", "True"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.eval(t.Context(), tt.input)
			if err != nil {
				t.Fatalf("eval(%q): %v", tt.input, err)
			}

			if got != tt.want {
				t.Errorf("eval(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSession_EvalError(t *testing.T) {
	s := newTestSession(t, "")

	if _, err := s.eval(t.Context(), "{% if %}"); err == nil {
		t.Error("eval of malformed template succeeded")
	}
}

func TestSession_Prepare(t *testing.T) {
	s := newTestSession(t, testLibrary)

	if _, err := s.prepare(t.Context(), "{% macro %}"); err == nil {
		t.Fatal("prepare of malformed library succeeded")
	}

	if s.source != testLibrary {
		t.Error("failed prepare modified the session")
	}

	lib, err := s.prepare(t.Context(), "{% macro twice(x) %}{{ x * 2 }}{% endmacro %}")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	s.library = lib

	got, err := s.eval(t.Context(), "twice(n)")
	if err != nil || got != "42" {
		t.Errorf("eval(twice(n)) = %q, %v, want %q", got, err, "42")
	}

	if names := s.macros(); len(names) != 1 || names[0].Name != "twice" {
		t.Errorf("macros() = %v, want [twice]", names)
	}
}

func TestSession_Check(t *testing.T) {
	s := newTestSession(t, "{{ missing }}")

	diags, err := s.check(t.Context())
	if err != nil {
		t.Fatalf("check: %v", err)
	}

	if len(diags) == 0 {
		t.Fatal("check reported no diagnostics")
	}

	if diags[0].Severity != listener.Warning && diags[0].Severity != listener.Error {
		t.Errorf("severity = %v", diags[0].Severity)
	}
}

func TestSession_Member(t *testing.T) {
	s := newTestSession(t, "")

	if v, ok := s.member("user.name"); !ok || v != "Ada" {
		t.Errorf("member(user.name) = %v, %v", v, ok)
	}

	if _, ok := s.member("user.name.first"); ok {
		t.Error("member resolved through a string")
	}

	if _, ok := s.member("nobody"); ok {
		t.Error("member resolved an undefined name")
	}
}
