package typecheck

import (
	"context"
	"log/slog"
	"slices"

	"github.com/ardnew/jinx/cfg"
	"github.com/ardnew/jinx/compiler"
	"github.com/ardnew/jinx/lang"
	"github.com/ardnew/jinx/listener"
	"github.com/ardnew/jinx/log"
	"github.com/ardnew/jinx/types"
)

// Option configures [Check].
type Option func(*checker)

// WithLogger sets the logger used to trace the pass.
func WithLogger(logger log.Logger) Option {
	return func(c *checker) { c.logger = logger }
}

// WithAnchor sets the location of diagnostics raised by instructions
// without a source position.
func WithAnchor(a listener.Anchor) Option {
	return func(c *checker) { c.anchor = a }
}

// WithFile names the file diagnostics are located in.
func WithFile(path string) Option {
	return func(c *checker) { c.file = path }
}

// WithFilters sets the names of the known filters. Without it filter names
// are not checked.
func WithFilters(names ...string) Option {
	return func(c *checker) { c.filters = set(names) }
}

// WithTests sets the names of the known tests. Without it test names are
// not checked.
func WithTests(names ...string) Option {
	return func(c *checker) { c.tests = set(names) }
}

// WithGlobals adds typed global names visible everywhere.
func WithGlobals(globals map[string]types.Type) Option {
	return func(c *checker) {
		for k, t := range globals {
			c.globals[k] = t
		}
	}
}

func set(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}

	return m
}

// Check reports the type diagnostics of instrs and its named blocks to l.
// root types the variables of the render context and registry holds the
// signatures of the callable macros, including those of instrs.
//
// Type mismatches never fail the pass; an error is returned only when the
// instructions are malformed or ctx is done.
func Check(
	ctx context.Context,
	instrs compiler.Instructions,
	root map[string]types.Type,
	blocks map[string]compiler.Instructions,
	registry *types.Registry,
	l listener.Listener,
	opts ...Option,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if l == nil {
		l = listener.Nop{}
	}

	c := &checker{
		root:     root,
		registry: registry,
		listener: l,
		globals:  builtinGlobals(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.check(ctx, "", instrs); err != nil {
		return err
	}

	names := make([]string, 0, len(blocks))
	for name := range blocks {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		if err := c.check(ctx, name, blocks[name]); err != nil {
			return lang.WrapError(err).With(slog.String("block", name))
		}
	}

	c.logger.TraceContext(ctx, "check complete",
		slog.String("file", c.file),
		slog.Int("blocks", len(blocks)),
		slog.Int("diagnostics", c.reported))

	return nil
}

type checker struct {
	root     map[string]types.Type
	globals  map[string]types.Type
	filters  map[string]bool
	tests    map[string]bool
	registry *types.Registry
	listener listener.Listener
	anchor   listener.Anchor
	logger   log.Logger
	file     string
	reported int
}

// check walks the graph of one instruction sequence twice. The first walk
// is quiet and only records the states leaving each block; the second
// widens every loop head with the states its back-edges carried in the
// first, then reports.
func (c *checker) check(ctx context.Context, block string, instrs compiler.Instructions) error {
	g, err := cfg.Build(instrs)
	if err != nil {
		return err
	}

	p := &pass{checker: c, graph: g, stored: storedNames(instrs), quiet: true}
	first := p.walk(nil)

	p.quiet = false
	p.walk(first)

	c.logger.TraceContext(ctx, "checked instructions",
		slog.String("block", block),
		slog.Int("instructions", len(instrs)),
		slog.Int("basic_blocks", len(g.Blocks)))

	return nil
}

// walk visits the blocks in order. A block starts from the union of the
// states its already visited predecessors left, widened by the states of
// its back-edges found in back, so each loop body is visited once.
func (p *pass) walk(back map[cfg.Edge]*state) map[cfg.Edge]*state {
	exits := make(map[cfg.Edge]*state, len(p.graph.Blocks))

	for _, b := range p.graph.Blocks {
		var in *state

		for _, e := range b.Preds {
			if out, ok := exits[e]; ok {
				in = in.merge(out)
			}
		}

		if in == nil {
			in = p.entry(b)
		}

		for _, e := range b.Preds {
			if out, ok := back[e]; ok && e.From >= b.ID {
				in = in.widen(out)
			}
		}

		for _, e := range p.run(b, in) {
			exits[e.edge] = e.state
		}
	}

	return exits
}

// storedNames collects every name assigned anywhere in instrs, including
// macro names and parameters.
func storedNames(instrs compiler.Instructions) map[string]bool {
	names := map[string]bool{}

	for _, in := range instrs {
		switch in.Op {
		case compiler.StoreLocal:
			names[in.Name] = true
		case compiler.MacroName:
			names[in.Name] = true
			for _, a := range in.Args {
				names[a] = true
			}
		}
	}

	return names
}
