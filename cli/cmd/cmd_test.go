package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/jinx/engine"
)

// writeFile writes content to name within dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func names(tmpls []Template) []string {
	out := make([]string, len(tmpls))
	for i, t := range tmpls {
		out[i] = t.Name
	}

	return out
}

func TestReadTemplates(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.jinja", "A")
	b := writeFile(t, dir, "b.jinja", "B")

	link := filepath.Join(dir, "link.jinja")
	if err := os.Symlink(a, link); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		paths []string
		want  []string
		src   string
	}{
		{"empty_is_stdin", nil, []string{stdinName}, "S"},
		{"ordered", []string{b, a}, []string{b, a}, "BA"},
		{"duplicate", []string{a, b, a}, []string{a, b}, "AB"},
		{"symlink", []string{a, link}, []string{a}, "A"},
		{"stdin_last", []string{"-", a, "-"}, []string{a, stdinName}, "AS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpls, err := readTemplates(tt.paths, strings.NewReader("S"))
			if err != nil {
				t.Fatalf("readTemplates: %v", err)
			}

			if got := names(tmpls); strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("names = %v, want %v", got, tt.want)
			}

			var src strings.Builder
			for _, tmpl := range tmpls {
				src.WriteString(tmpl.Source)
			}

			if src.String() != tt.src {
				t.Errorf("sources = %q, want %q", src.String(), tt.src)
			}
		})
	}
}

func TestReadTemplates_Missing(t *testing.T) {
	_, err := readTemplates([]string{filepath.Join(t.TempDir(), "missing")}, nil)
	if !errors.Is(err, ErrReadTemplate) {
		t.Errorf("error = %v, want ErrReadTemplate", err)
	}
}

func TestLoadData(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.yaml", "name: first\nport: 80\nuser:\n  id: 7\n")
	second := writeFile(t, dir, "b.json", `{"name": "second"}`)

	data, err := LoadData([]string{first, second}, []string{"url=name + ':' + string(port)"})
	if err != nil {
		t.Fatalf("LoadData: %v", err)
	}

	if data["name"] != "second" {
		t.Errorf("name = %v, want second", data["name"])
	}

	if data["url"] != "second:80" {
		t.Errorf("url = %v, want second:80", data["url"])
	}

	if _, ok := data["user"].(map[string]any); !ok {
		t.Errorf("user = %T, want map", data["user"])
	}
}

func TestLoadData_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.yaml", "key: [unterminated\n")

	if _, err := LoadData([]string{bad}, nil); !errors.Is(err, ErrReadContext) {
		t.Errorf("invalid file error = %v, want ErrReadContext", err)
	}

	if _, err := LoadData([]string{filepath.Join(dir, "missing.yaml")}, nil); !errors.Is(err, ErrReadContext) {
		t.Errorf("missing file error = %v, want ErrReadContext", err)
	}

	if _, err := LoadData(nil, []string{"novalue"}); !errors.Is(err, engine.ErrDefinition) {
		t.Errorf("definition error = %v, want ErrDefinition", err)
	}
}

func TestRender_Run(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "t.jinja",
		"{% macro hi(n) %}Hi {{ n }}{% endmacro %}{{ hi(name) }}!")
	spans := filepath.Join(dir, "spans.yaml")
	symbols := filepath.Join(dir, "symbols.yaml")

	var out bytes.Buffer

	ctx := WithOutput(t.Context(), &out)
	ctx = WithData(ctx, map[string]any{"name": "Ada"})

	r := &Render{Templates: []string{tmpl}, Spans: spans, Symbols: symbols}
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := out.String(); got != "Hi Ada!" {
		t.Errorf("output = %q, want %q", got, "Hi Ada!")
	}

	buf, err := os.ReadFile(spans)
	if err != nil {
		t.Fatalf("spans file: %v", err)
	}

	var records []map[string]any
	if err := yaml.Unmarshal(buf, &records); err != nil {
		t.Fatalf("spans yaml: %v", err)
	}

	if len(records) != 1 || records[0]["template"] != tmpl {
		t.Errorf("span records = %v", records)
	}

	buf, err = os.ReadFile(symbols)
	if err != nil {
		t.Fatalf("symbols file: %v", err)
	}

	if !bytes.Contains(buf, []byte("name: hi")) {
		t.Errorf("symbols = %s, want a definition of hi", buf)
	}
}

func TestRender_RunOutputFile(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "t.jinja", "{{ 6 * 7 }}")
	dest := filepath.Join(dir, "out.txt")

	if err := (&Render{Templates: []string{tmpl}, Output: dest}).Run(t.Context()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if buf, err := os.ReadFile(dest); err != nil || string(buf) != "42" {
		t.Errorf("output file = %q, %v, want 42", buf, err)
	}
}

func TestCheck_Run(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		format  string
		strict  bool
		wantErr bool
		want    string
	}{
		{"clean", "{{ name }}", "text", false, false, ""},
		{"warning", "{{ missing }}", "text", false, false, "[undefined-variable]"},
		{"strict_warning", "{{ missing }}", "text", true, true, "undefined-variable"},
		{"error", "{{ name | nope }}", "text", false, true, "unknown-filter"},
		{"yaml", "{{ missing }}", "yaml", false, false, "code: undefined-variable"},
		{"json", "{{ missing }}", "json", false, false, `"undefined-variable"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := writeFile(t, t.TempDir(), "t.jinja", tt.source)

			var out bytes.Buffer

			ctx := WithOutput(t.Context(), &out)
			ctx = WithData(ctx, map[string]any{"name": "Ada"})

			err := (&Check{Templates: []string{tmpl}, Format: tt.format, Strict: tt.strict}).Run(ctx)
			if tt.wantErr != errors.Is(err, ErrDiagnostics) {
				t.Fatalf("Run error = %v, want diagnostics error %v", err, tt.wantErr)
			}

			if tt.want == "" && tt.format == "text" && out.Len() != 0 {
				t.Errorf("output = %q, want none", out.String())
			}

			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestSigs_Run(t *testing.T) {
	tmpl := writeFile(t, t.TempDir(), "t.jinja",
		"-- funcsign: (string) -> string\n{% macro a(x) %}{% endmacro %}{% macro b(y, z=1) %}{% endmacro %}")

	var out bytes.Buffer

	if err := (&Sigs{Templates: []string{tmpl}, JSON: true}).Run(WithOutput(t.Context(), &out)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var sigs []struct {
		Name     string `json:"name"`
		Return   string `json:"return"`
		Required int    `json:"required"`
		Typed    bool   `json:"typed"`
	}
	if err := yaml.Unmarshal(out.Bytes(), &sigs); err != nil {
		t.Fatalf("output %q: %v", out.String(), err)
	}

	if len(sigs) != 2 {
		t.Fatalf("signatures = %+v, want 2", sigs)
	}

	if sigs[0].Name != "a" || !sigs[0].Typed || sigs[0].Return != "string" {
		t.Errorf("a = %+v", sigs[0])
	}

	if sigs[1].Name != "b" || sigs[1].Typed || sigs[1].Required != 1 {
		t.Errorf("b = %+v", sigs[1])
	}
}

func TestDump_Run(t *testing.T) {
	tmpl := writeFile(t, t.TempDir(), "t.jinja",
		"{% block body %}{% if x %}y{% endif %}{% endblock %}")

	tests := []struct {
		name    string
		dump    Dump
		want    string
		wantErr error
	}{
		{"instructions", Dump{Format: "instructions"}, "", nil},
		{"block", Dump{Format: "cfg", Block: "body"}, "", nil},
		{"dot", Dump{Format: "dot"}, `digraph "` + tmpl + `" {`, nil},
		{"unknown_block", Dump{Format: "instructions", Block: "nope"}, "", ErrUnknownBlock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			tt.dump.Template = tmpl

			err := tt.dump.Run(WithEngine(WithOutput(t.Context(), &out), engine.New()))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Run error = %v, want %v", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("Run: %v", err)
			}

			if out.Len() == 0 || !strings.Contains(out.String(), tt.want) {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}
