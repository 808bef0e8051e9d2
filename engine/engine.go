package engine

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/jinx/compiler"
	"github.com/ardnew/jinx/lang"
	"github.com/ardnew/jinx/listener"
	"github.com/ardnew/jinx/log"
	"github.com/ardnew/jinx/span"
	"github.com/ardnew/jinx/typecheck"
	"github.com/ardnew/jinx/types"
	"github.com/ardnew/jinx/value"
	"github.com/ardnew/jinx/vm"
)

// Option configures an [Engine].
type Option func(*Engine)

// WithLogger sets the logger shared by every stage.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRecursionLimit bounds the nesting of macro calls.
func WithRecursionLimit(limit int) Option {
	return func(e *Engine) { e.vmOpts = append(e.vmOpts, vm.WithRecursionLimit(limit)) }
}

// WithAutoEscape sets the escape mode of emitted values.
func WithAutoEscape(mode vm.AutoEscape) Option {
	return func(e *Engine) { e.vmOpts = append(e.vmOpts, vm.WithAutoEscape(mode)) }
}

// WithFilter registers a filter.
func WithFilter(name string, f vm.Filter) Option {
	return func(e *Engine) { e.vmOpts = append(e.vmOpts, vm.WithFilter(name, f)) }
}

// WithTest registers a test.
func WithTest(name string, t vm.Test) Option {
	return func(e *Engine) { e.vmOpts = append(e.vmOpts, vm.WithTest(name, t)) }
}

// WithFunction registers a global function. The checker types its result
// as any.
func WithFunction(name string, f vm.Function) Option {
	return func(e *Engine) {
		e.vmOpts = append(e.vmOpts, vm.WithFunction(name, f))
		e.globals[name] = types.FuncOf(nil, types.Any)
	}
}

// WithGlobal sets a global variable converted with [value.FromGo].
func WithGlobal(name string, x any) Option {
	return func(e *Engine) {
		v := value.FromGo(x)
		e.vmOpts = append(e.vmOpts, vm.WithGlobal(name, v))
		e.globals[name] = types.FromValue(v)
	}
}

// WithListener adds a listener receiving the events of every render.
func WithListener(l listener.Listener) Option {
	return func(e *Engine) { e.listener = l }
}

// WithRegistry adds macro signatures defined outside the checked template.
func WithRegistry(r *types.Registry) Option {
	return func(e *Engine) { e.registry.Merge(r) }
}

// WithAnchor sets the location of diagnostics raised outside any
// positioned construct.
func WithAnchor(a listener.Anchor) Option {
	return func(e *Engine) { e.anchor = a }
}

// Engine compiles, renders and checks templates. Compiled programs are
// cached by name and source; an Engine is safe for concurrent use.
type Engine struct {
	listener listener.Listener
	machine  *vm.Machine
	registry *types.Registry
	globals  map[string]types.Type
	anchor   listener.Anchor
	logger   log.Logger
	vmOpts   []vm.Option
	cache    sync.Map
}

// entry is the cached compilation of one source.
type entry struct {
	prog *compiler.Program
	err  error
	once sync.Once
}

// New returns an Engine configured by opts.
func New(opts ...Option) *Engine {
	e := &Engine{
		registry: types.NewRegistry(),
		globals:  map[string]types.Type{},
	}

	for _, opt := range opts {
		opt(e)
	}

	e.machine = vm.New(append(e.vmOpts, vm.WithLogger(e.logger))...)

	return e
}

// Machine returns the VM executing the rendered programs.
func (e *Engine) Machine() *vm.Machine { return e.machine }

// cacheKey identifies a compilation of source under name.
func cacheKey(name, source string) string {
	h := xxh3.New()
	_, _ = h.WriteString(name)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(source)

	return strconv.FormatUint(h.Sum64(), 36)
}

// Compile returns the program compiled from source. Each distinct pair of
// name and source is compiled once; failures are cached as well.
func (e *Engine) Compile(ctx context.Context, name, source string) (*compiler.Program, error) {
	key := cacheKey(name, source)

	v, hit := e.cache.LoadOrStore(key, new(entry))

	ent, ok := v.(*entry)
	if !ok {
		return nil, lang.ErrMalformedProgram.With(slog.String("key", key))
	}

	ent.once.Do(func() {
		ent.prog, ent.err = compiler.CompileString(ctx, name, source,
			compiler.WithLogger(e.logger))
	})

	e.logger.TraceContext(ctx, "compile",
		slog.String("template", name),
		slog.String("key", key),
		slog.Bool("cache_hit", hit))

	return ent.prog, ent.err
}

// Render compiles source and renders it with the variables of data.
// The returned macro spans record where every construct of the source
// landed in the output; they are returned even when rendering fails
// part-way.
func (e *Engine) Render(
	ctx context.Context,
	name, source string,
	data map[string]any,
) (string, span.MacroSpans, error) {
	return e.RenderWith(ctx, name, source, data, nil)
}

// RenderWith is [Engine.Render] reporting the events of this render to l
// as well, which may be nil.
func (e *Engine) RenderWith(
	ctx context.Context,
	name, source string,
	data map[string]any,
	l listener.Listener,
) (string, span.MacroSpans, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	id := uuid.New()
	logger := e.logger.With(slog.String("render", id.String()))

	prog, err := e.Compile(ctx, name, source)
	if err != nil {
		logger.DebugContext(ctx, "compile failed",
			slog.String("template", name),
			slog.Any("error", err))

		return "", nil, err
	}

	rec := listener.NewMacroSpanRecorder()

	multi := listener.Multi{rec}
	for _, x := range []listener.Listener{e.listener, l} {
		if x != nil {
			multi = append(multi, x)
		}
	}

	if logger.EnabledAt(ctx, log.LevelTrace) {
		multi = append(multi, listener.NewTracer(ctx, logger))
	}

	text, err := e.machine.RenderString(ctx, prog, Vars(data), multi)

	logger.DebugContext(ctx, "render",
		slog.String("template", name),
		slog.Int("bytes", len(text)),
		slog.Int("spans", len(rec.Spans())),
		slog.Bool("ok", err == nil))

	return text, rec.Spans(), err
}

// RenderReader is [Engine.Render] reading the source from r.
func (e *Engine) RenderReader(
	ctx context.Context,
	name string,
	r io.Reader,
	data map[string]any,
) (string, span.MacroSpans, error) {
	source, err := lang.ReadSource(name, r)
	if err != nil {
		return "", nil, err
	}

	return e.Render(ctx, name, source, data)
}

// Signatures returns the signatures of the macros defined by source.
func (e *Engine) Signatures(ctx context.Context, name, source string) (*types.Registry, error) {
	prog, err := e.Compile(ctx, name, source)
	if err != nil {
		return nil, err
	}

	return typecheck.MacroSignatures(prog.Instructions, name), nil
}

// Check compiles source and reports its type diagnostics to l. The
// variables of data type the root scope. Diagnostics never fail the
// check; an error is returned only when source does not compile or ctx is
// done.
func (e *Engine) Check(
	ctx context.Context,
	name, source string,
	data map[string]any,
	l listener.Listener,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prog, err := e.Compile(ctx, name, source)
	if err != nil {
		return err
	}

	registry := types.NewRegistry()
	registry.Merge(e.registry)
	registry.Merge(typecheck.MacroSignatures(prog.Instructions, name))

	root := make(map[string]types.Type, len(data))
	for k, x := range data {
		root[k] = types.FromValue(value.FromGo(x))
	}

	return typecheck.Check(ctx, prog.Instructions, root, prog.Blocks, registry, l,
		typecheck.WithLogger(e.logger),
		typecheck.WithAnchor(e.anchor),
		typecheck.WithFile(name),
		typecheck.WithFilters(e.machine.Filters()...),
		typecheck.WithTests(e.machine.Tests()...),
		typecheck.WithGlobals(e.globals))
}

// Vars converts render data to VM values.
func Vars(data map[string]any) map[string]value.Value {
	vars := make(map[string]value.Value, len(data))
	for k, x := range data {
		vars[k] = value.FromGo(x)
	}

	return vars
}
