package repl

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/ardnew/jinx/engine"
	"github.com/ardnew/jinx/listener"
	"github.com/ardnew/jinx/log"
	"github.com/ardnew/jinx/types"
)

// session holds the library template the REPL evaluates input against.
// Macros and variables set at the top level of the library are visible to
// every evaluation.
type session struct {
	engine *engine.Engine
	data   map[string]any
	logger log.Logger
	name   string
	library
}

// library is a compiled library template.
type library struct {
	source string
	prefix string // Output of the library rendered alone
	sigs   *types.Registry
}

func newSession(
	ctx context.Context,
	eng *engine.Engine,
	data map[string]any,
	name, source string,
	logger log.Logger,
) (*session, error) {
	s := &session{engine: eng, data: data, name: name, logger: logger}

	lib, err := s.prepare(ctx, source)
	if err != nil {
		return nil, err
	}

	s.library = lib

	return s, nil
}

// prepare compiles and renders source as a library. The session is not
// modified.
func (s *session) prepare(ctx context.Context, source string) (library, error) {
	sigs, err := s.engine.Signatures(ctx, s.name, source)
	if err != nil {
		return library{}, err
	}

	prefix, _, err := s.engine.Render(ctx, s.name, source, s.data)
	if err != nil {
		return library{}, err
	}

	s.logger.TraceContext(ctx, "repl library prepared",
		slog.String("template", s.name),
		slog.Int("macros", sigs.Len()))

	return library{source: source, prefix: prefix, sigs: sigs}, nil
}

// isTemplate reports whether input contains template delimiters. Anything
// else is treated as a bare expression.
func isTemplate(input string) bool {
	return strings.Contains(input, "{{") || strings.Contains(input, "{%")
}

// eval renders input after the library and returns the output produced by
// input alone.
func (s *session) eval(ctx context.Context, input string) (string, error) {
	if !isTemplate(input) {
		input = "{{ " + input + " }}"
	}

	out, _, err := s.engine.Render(ctx, s.name, s.source+input, s.data)
	if err != nil {
		return "", err
	}

	if rest, ok := strings.CutPrefix(out, s.prefix); ok {
		return rest, nil
	}

	return out, nil
}

// check returns the diagnostics of the library.
func (s *session) check(ctx context.Context) ([]listener.Diagnostic, error) {
	c := listener.NewDiagnosticCollector(s.source)

	if err := s.engine.Check(ctx, s.name, s.source, s.data, c); err != nil {
		return nil, err
	}

	return c.Diagnostics(), nil
}

// variables returns the sorted names of the render data.
func (s *session) variables() []string {
	return slices.Sorted(maps.Keys(s.data))
}

// macros returns the signatures of the library macros in name order.
func (s *session) macros() []*types.Signature {
	return slices.Collect(s.sigs.All())
}

// member returns the value at the dotted path within the render data.
func (s *session) member(path string) (any, bool) {
	var cur any = s.data

	for seg := range strings.SplitSeq(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}

		if cur, ok = m[seg]; !ok {
			return nil, false
		}
	}

	return cur, true
}
