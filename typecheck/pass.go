package typecheck

import (
	"fmt"
	"maps"
	"slices"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/jinx/cfg"
	"github.com/ardnew/jinx/compiler"
	"github.com/ardnew/jinx/listener"
	"github.com/ardnew/jinx/span"
	"github.com/ardnew/jinx/types"
)

// Diagnostic codes.
const (
	CodeUndefined         = "undefined-variable"
	CodePossiblyUndefined = "possibly-undefined"
	CodeUnknownAttribute  = "unknown-attribute"
	CodeInvalidOperation  = "invalid-operation"
	CodeIncomparable      = "incomparable"
	CodeNotIterable       = "not-iterable"
	CodeNotCallable       = "not-callable"
	CodeArity             = "wrong-arity"
	CodeArgumentType      = "argument-type"
	CodeReturnType        = "return-type"
	CodeUnknownFilter     = "unknown-filter"
	CodeUnknownTest       = "unknown-test"
	CodeUnknownFunction   = "unknown-function"
)

var arithSymbol = map[compiler.Op]string{
	compiler.Add:       "+",
	compiler.Sub:       "-",
	compiler.Mul:       "*",
	compiler.Div:       "/",
	compiler.IntDiv:    "//",
	compiler.Rem:       "%",
	compiler.Pow:       "**",
	compiler.StrConcat: "~",
}

var compareSymbol = map[compiler.Op]string{
	compiler.Eq:  "==",
	compiler.Ne:  "!=",
	compiler.Lt:  "<",
	compiler.Lte: "<=",
	compiler.Gt:  ">",
	compiler.Gte: ">=",
	compiler.In:  "in",
}

// pass checks one instruction sequence.
type pass struct {
	*checker

	graph  *cfg.Graph
	stored map[string]bool
	warned map[string]bool
	sig    *types.Signature // signature of the macro being checked
	macro  string
	quiet  bool // diagnostics are discarded
}

// outEdge is the state leaving a block along one edge.
type outEdge struct {
	state *state
	edge  cfg.Edge
}

// entry returns the state at the start of a block no visited predecessor
// reaches: the top level starts empty, a macro body with its parameters.
func (p *pass) entry(b *cfg.Block) *state {
	s := newState()
	if b.Macro == "" {
		return s
	}

	def, ok := p.macroName(b)
	if !ok {
		return s
	}

	sig, _ := p.registry.Lookup(def.Name)

	for i, a := range def.Args {
		t := types.Any
		if sig != nil && sig.Typed && i < len(sig.Params) {
			t = sig.Params[i]
		}

		s.vars[a] = variable{t: t}
	}

	s.vars["caller"] = variable{t: types.FuncOf(nil, types.String)}
	s.vars["varargs"] = variable{t: types.SeqOf(types.Any)}
	s.vars["kwargs"] = variable{t: types.MapOf(types.String, types.Any)}

	return s
}

// macroName finds the MacroName instruction of the macro containing b.
func (p *pass) macroName(b *cfg.Block) (compiler.Instruction, bool) {
	for pc := b.Start; pc >= 0; pc-- {
		if in := p.graph.Instructions[pc]; in.Op == compiler.MacroName && in.Name == b.Macro {
			return in, true
		}
	}

	return compiler.Instruction{}, false
}

// run interprets b from in and returns the state along each outgoing edge.
func (p *pass) run(b *cfg.Block, in *state) []outEdge {
	p.sig, p.macro = nil, b.Macro
	if b.Macro != "" {
		p.sig, _ = p.registry.Lookup(b.Macro)
	}

	s := in.clone()
	for pc := b.Start; pc < b.End; pc++ {
		p.step(s, pc)
	}

	last := p.graph.Instructions[b.Last()]
	out := make([]outEdge, 0, len(b.Succs))

	for _, e := range b.Succs {
		es := s.clone()

		switch last.Op {
		case compiler.JumpIfFalseOrPop, compiler.JumpIfTrueOrPop:
			if p.graph.Blocks[e.To].Start != last.Arg {
				es.pop()
			}
		case compiler.Iterate:
			if e.Kind == cfg.LoopNext {
				es.push(s.loop())
			}
		}

		out = append(out, outEdge{state: es, edge: e})
	}

	return out
}

func (p *pass) report(in compiler.Instruction, code string, sev listener.Severity, format string, args ...any) {
	if p.quiet {
		return
	}

	loc := p.anchor.Resolve(span.CodeLocation{Location: in.Span.Start, File: p.file})

	p.listener.OnDiagnostic(listener.Diagnostic{
		Loc:      loc,
		Code:     code,
		Msg:      fmt.Sprintf(format, args...),
		Severity: sev,
	})

	p.reported++
}

// once reports whether key has not been seen by the pass before. A quiet
// pass sees every key.
func (p *pass) once(key string) bool {
	if p.quiet {
		return false
	}

	if p.warned == nil {
		p.warned = map[string]bool{}
	}

	if p.warned[key] {
		return false
	}

	p.warned[key] = true

	return true
}

// suggest returns a " (did you mean ...?)" hint for name among candidates.
// A candidate qualifies only when name covers at least half of it.
func suggest(name string, candidates []string) string {
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	n := utf8.RuneCountInString(name)

	for _, m := range fuzzy.Find(name, candidates) {
		if m.Str != name && 2*n >= utf8.RuneCountInString(m.Str) {
			return fmt.Sprintf(" (did you mean %q?)", m.Str)
		}
	}

	return ""
}

// names returns every name visible from s.
func (p *pass) names(s *state) []string {
	out := slices.Collect(maps.Keys(s.vars))
	out = slices.AppendSeq(out, maps.Keys(p.root))
	out = slices.AppendSeq(out, maps.Keys(p.globals))

	return append(out, p.registry.Names()...)
}

// resolve returns the type of name and whether it is known.
func (p *pass) resolve(s *state, name string) (types.Type, bool) {
	if v, ok := s.vars[name]; ok {
		return v.t, true
	}

	if t, ok := p.root[name]; ok {
		return t, true
	}

	if sig, ok := p.registry.Lookup(name); ok {
		return sig.Type(), true
	}

	if t, ok := p.globals[name]; ok {
		return t, true
	}

	// names assigned elsewhere reach macro bodies through the closure
	if p.macro != "" && p.stored[name] {
		return types.Any, true
	}

	return types.Any, false
}

func (p *pass) lookup(s *state, pc int) types.Type {
	in := p.graph.Instructions[pc]

	if v, ok := s.vars[in.Name]; ok && v.partial && p.once("partial:"+in.Name) {
		p.report(in, CodePossiblyUndefined, listener.Warning,
			"variable %q is not assigned on every path reaching this point", in.Name)
	}

	t, ok := p.resolve(s, in.Name)
	if ok {
		return t
	}

	// a definedness test is how templates probe for optional names
	if next := pc + 1; next < len(p.graph.Instructions) {
		if n := p.graph.Instructions[next]; n.Op == compiler.PerformTest &&
			(n.Name == "defined" || n.Name == "undefined" || n.Name == "none") {
			return types.Undefined
		}
	}

	if p.once("undefined:" + in.Name) {
		p.report(in, CodeUndefined, listener.Warning,
			"undefined variable %q%s", in.Name, suggest(in.Name, p.names(s)))
	}

	return types.Any
}
