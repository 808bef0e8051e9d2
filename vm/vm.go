package vm

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"strings"

	"github.com/ardnew/jinx/compiler"
	"github.com/ardnew/jinx/listener"
	"github.com/ardnew/jinx/log"
	"github.com/ardnew/jinx/span"
	"github.com/ardnew/jinx/value"
)

// DefaultRecursionLimit bounds the nesting of macro calls.
const DefaultRecursionLimit = 500

// macroCallCost is charged against the recursion limit by each macro call.
const macroCallCost = 4

// AutoEscape selects how emitted values are escaped.
type AutoEscape uint8

// Escape modes.
const (
	EscapeNone AutoEscape = iota
	EscapeHTML
)

// Filter transforms v. args excludes v.
type Filter func(st *State, v value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error)

// Test reports whether v passes a test. args excludes v.
type Test func(v value.Value, args []value.Value) (bool, error)

// Function is a global callable.
type Function func(st *State, args []value.Value, kwargs *value.Dict) (value.Value, error)

// Option configures a [Machine].
type Option func(*Machine)

// WithLogger sets the logger used to trace execution.
func WithLogger(logger log.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// WithRecursionLimit sets the recursion limit.
func WithRecursionLimit(limit int) Option {
	return func(m *Machine) { m.limit = limit }
}

// WithAutoEscape sets the escape mode of emitted values.
func WithAutoEscape(mode AutoEscape) Option {
	return func(m *Machine) { m.escape = mode }
}

// WithFilter registers a filter, replacing any builtin of the same name.
func WithFilter(name string, f Filter) Option {
	return func(m *Machine) { m.filters[name] = f }
}

// WithTest registers a test.
func WithTest(name string, t Test) Option {
	return func(m *Machine) { m.tests[name] = t }
}

// WithFunction registers a global function.
func WithFunction(name string, f Function) Option {
	return func(m *Machine) { m.globals[name] = value.FromObject(function{name: name, fn: f}) }
}

// WithGlobal sets a global variable visible to every template.
func WithGlobal(name string, v value.Value) Option {
	return func(m *Machine) { m.globals[name] = v }
}

// Machine executes compiled programs. A Machine is read-only after New and
// may run any number of passes concurrently.
type Machine struct {
	filters map[string]Filter
	tests   map[string]Test
	globals map[string]value.Value
	logger  log.Logger
	limit   int
	escape  AutoEscape
}

// New returns a Machine with the builtin filters, tests and functions.
func New(opts ...Option) *Machine {
	m := &Machine{
		filters: maps.Clone(builtinFilters),
		tests:   maps.Clone(builtinTests),
		globals: map[string]value.Value{},
		limit:   DefaultRecursionLimit,
	}

	for name, f := range builtinFunctions {
		m.globals[name] = value.FromObject(function{name: name, fn: f})
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Filters returns the names of the registered filters.
func (m *Machine) Filters() []string { return sortedKeys(m.filters) }

// Tests returns the names of the registered tests.
func (m *Machine) Tests() []string { return sortedKeys(m.tests) }

// Globals returns the names of the global variables and functions.
func (m *Machine) Globals() []string { return sortedKeys(m.globals) }

// Render executes the root instructions of prog with the variables of root
// and writes the output to w. Events are reported to l, which may be nil.
func (m *Machine) Render(
	ctx context.Context,
	prog *compiler.Program,
	root map[string]value.Value,
	w io.Writer,
	l listener.Listener,
) error {
	if l == nil {
		l = listener.Nop{}
	}

	vars := value.NewDict()
	for _, k := range sortedKeys(root) {
		vars.Set(k, root[k])
	}

	st := &State{
		machine:  m,
		prog:     prog,
		instrs:   prog.Instructions,
		frames:   []*frame{{vars: vars}, newFrame()},
		out:      []*output{{w: w, loc: span.Start()}},
		listener: l,
		escape:   m.escape,
	}
	st.owner = &owner{state: st}

	defer st.owner.close()

	m.logger.TraceContext(ctx, "render start",
		slog.String("template", prog.Name),
		slog.Int("instructions", len(prog.Instructions)))

	l.OnEnterFuncBody()
	_, err := st.run(0)
	l.OnExitFuncBody()

	if err != nil {
		m.logger.DebugContext(ctx, "render failed",
			slog.String("template", prog.Name),
			slog.Any("error", err))

		return err
	}

	m.logger.TraceContext(ctx, "render complete",
		slog.String("template", prog.Name),
		slog.String("end", st.loc().String()))

	return nil
}

// RenderString is [Machine.Render] collecting the output.
func (m *Machine) RenderString(
	ctx context.Context,
	prog *compiler.Program,
	root map[string]value.Value,
	l listener.Listener,
) (string, error) {
	var sb strings.Builder

	if err := m.Render(ctx, prog, root, &sb, l); err != nil {
		return "", err
	}

	return sb.String(), nil
}

// function adapts a [Function] to a value.
type function struct {
	fn   Function
	name string
}

func (function) TypeName() string { return "function" }

func (f function) String() string { return "<function " + f.name + ">" }

// Call invokes f outside of a render pass.
func (f function) Call(args []value.Value, kwargs *value.Dict) (value.Value, error) {
	return f.fn(nil, args, kwargs)
}
