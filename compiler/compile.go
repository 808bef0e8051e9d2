package compiler

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ardnew/jinx/lang"
	"github.com/ardnew/jinx/log"
	"github.com/ardnew/jinx/span"
	"github.com/ardnew/jinx/value"
)

// FuncsignMarker introduces a structured comment declaring the signature of
// the macro defined immediately after it.
const FuncsignMarker = "-- funcsign: "

// Option configures compilation.
type Option func(*codegen)

// WithLogger sets the logger used to trace compilation.
func WithLogger(logger log.Logger) Option {
	return func(g *codegen) { g.logger = logger }
}

// Compile translates a parsed template into a [Program]. Nothing is
// returned when compilation fails.
func Compile(ctx context.Context, tmpl *lang.Template, opts ...Option) (*Program, error) {
	g := &codegen{source: tmpl.Source, blocks: map[string]Instructions{}}

	for _, opt := range opts {
		opt(g)
	}

	if err := g.compileStmts(tmpl.Body); err != nil {
		return nil, err
	}

	g.logger.TraceContext(ctx, "compile complete",
		slog.String("template", tmpl.Name),
		slog.Int("instructions", len(g.instrs)),
		slog.Int("blocks", len(g.blocks)))

	return &Program{
		Name:         tmpl.Name,
		Source:       tmpl.Source,
		Instructions: g.instrs,
		Blocks:       g.blocks,
	}, nil
}

// CompileString parses and compiles src.
func CompileString(ctx context.Context, name, src string, opts ...Option) (*Program, error) {
	g := &codegen{}
	for _, opt := range opts {
		opt(g)
	}

	tmpl, err := lang.ParseString(ctx, name, src, lang.WithLogger(g.logger))
	if err != nil {
		return nil, err
	}

	return Compile(ctx, tmpl, opts...)
}

type codegen struct {
	blocks map[string]Instructions
	source string
	instrs Instructions
	logger log.Logger
}

func (g *codegen) add(in Instruction) int {
	g.instrs = append(g.instrs, in)

	return len(g.instrs) - 1
}

func (g *codegen) next() int { return len(g.instrs) }

// patch points the branch at pc to the next instruction.
func (g *codegen) patch(pc int) { g.instrs[pc].Arg = g.next() }

func (g *codegen) start(sp span.Span) { g.add(Instruction{Op: MacroStart, Span: sp}) }

func (g *codegen) stop(sp span.Span) {
	g.add(Instruction{Op: MacroStop, Span: span.Span{Start: sp.Stop, Stop: sp.Stop}})
}

func (g *codegen) compileStmts(body []lang.Stmt) error {
	for _, s := range body {
		if err := g.compileStmt(s); err != nil {
			return err
		}
	}

	return nil
}

func (g *codegen) compileStmt(s lang.Stmt) error {
	switch s := s.(type) {
	case *lang.EmitRaw:
		if s.Text != "" {
			g.add(Instruction{Op: EmitRaw, Value: value.FromString(s.Text), Span: s.Span})
		}

		return nil

	case *lang.CommentStmt:
		g.add(Instruction{Op: Comment, Value: value.FromString(s.Text), Span: s.Span})

		return nil

	case *lang.EmitExpr:
		g.start(s.Span)

		if err := g.compileExpr(s.Expr); err != nil {
			return err
		}

		g.add(Instruction{Op: Emit, Span: s.Expr.Pos()})
		g.stop(s.Span)

		return nil

	case *lang.If:
		return g.compileIf(s)

	case *lang.For:
		return g.compileFor(s)

	case *lang.Set:
		return g.compileSet(s)

	case *lang.Do:
		g.start(s.Span)

		if err := g.compileExpr(s.Expr); err != nil {
			return err
		}

		if !isReturn(s.Expr) {
			g.add(Instruction{Op: DiscardTop, Span: s.Span})
		}

		g.stop(s.Span)

		return nil

	case *lang.Macro:
		g.start(s.Span)

		if err := g.compileMacro(s, 0); err != nil {
			return err
		}

		g.add(Instruction{Op: StoreLocal, Name: s.Name, Span: s.Span})

		return nil

	case *lang.CallBlock:
		g.start(s.Span)

		if err := g.compileCall(s.Call, s.Macro); err != nil {
			return err
		}

		g.add(Instruction{Op: Emit, Span: s.Span})
		g.stop(s.Span)

		return nil

	case *lang.Block:
		return g.compileBlock(s)

	default:
		return g.fail(s.Pos().Start, "unsupported statement")
	}
}

func (g *codegen) compileIf(s *lang.If) error {
	g.start(s.Span)

	if err := g.compileExpr(s.Cond); err != nil {
		return err
	}

	jf := g.add(Instruction{Op: JumpIfFalse, Span: s.Cond.Pos()})

	if err := g.compileStmts(s.Then); err != nil {
		return err
	}

	if len(s.Else) > 0 {
		j := g.add(Instruction{Op: Jump, Span: s.Span})
		g.patch(jf)

		if err := g.compileStmts(s.Else); err != nil {
			return err
		}

		g.patch(j)
	} else {
		g.patch(jf)
	}

	g.stop(s.Span)

	return nil
}

func (g *codegen) compileFor(s *lang.For) error {
	g.start(s.Span)

	if s.Filter != nil {
		if err := g.compileLoopFilter(s); err != nil {
			return err
		}
	} else if err := g.compileExpr(s.Iter); err != nil {
		return err
	}

	g.add(Instruction{Op: PushLoop, Flags: FlagLoopVar, Span: s.Span})
	top := g.add(Instruction{Op: Iterate, Span: s.Span})

	if err := g.compileAssign(s.Target); err != nil {
		return err
	}

	if err := g.compileStmts(s.Body); err != nil {
		return err
	}

	g.add(Instruction{Op: Jump, Arg: top, Span: s.Span})
	g.patch(top)

	if len(s.Else) == 0 {
		g.add(Instruction{Op: PopFrame, Span: s.Span})
	} else {
		g.add(Instruction{Op: PopFrame, Flags: FlagLoopElse, Span: s.Span})
		jf := g.add(Instruction{Op: JumpIfFalse, Span: s.Span})

		if err := g.compileStmts(s.Else); err != nil {
			return err
		}

		g.patch(jf)
	}

	g.stop(s.Span)

	return nil
}

// compileLoopFilter leaves a list of the items of s.Iter that pass the
// loop filter on the stack.
func (g *codegen) compileLoopFilter(s *lang.For) error {
	sp := s.Filter.Pos()

	g.add(Instruction{Op: LoadConst, Value: value.FromInt(0), Span: sp})

	if err := g.compileExpr(s.Iter); err != nil {
		return err
	}

	g.add(Instruction{Op: PushLoop, Span: sp})
	top := g.add(Instruction{Op: Iterate, Span: sp})
	g.add(Instruction{Op: DupTop, Span: sp})

	if err := g.compileAssign(s.Target); err != nil {
		return err
	}

	if err := g.compileExpr(s.Filter); err != nil {
		return err
	}

	jf := g.add(Instruction{Op: JumpIfFalse, Span: sp})
	g.add(Instruction{Op: Swap, Span: sp})
	g.add(Instruction{Op: LoadConst, Value: value.FromInt(1), Span: sp})
	g.add(Instruction{Op: Add, Span: sp})
	g.add(Instruction{Op: Jump, Arg: top, Span: sp})
	g.patch(jf)
	g.add(Instruction{Op: DiscardTop, Span: sp})
	g.add(Instruction{Op: Jump, Arg: top, Span: sp})
	g.patch(top)
	g.add(Instruction{Op: PopFrame, Span: sp})
	g.add(Instruction{Op: BuildList, Arg: -1, Span: sp})

	return nil
}

func (g *codegen) compileSet(s *lang.Set) error {
	g.start(s.Span)

	if s.Body != nil {
		g.add(Instruction{Op: BeginCapture, Span: s.Span})

		if err := g.compileStmts(s.Body); err != nil {
			return err
		}

		g.add(Instruction{Op: EndCapture, Span: s.Span})
	} else if err := g.compileExpr(s.Value); err != nil {
		return err
	}

	if err := g.compileAssign(s.Target); err != nil {
		return err
	}

	g.stop(s.Span)

	return nil
}

// compileMacro emits a macro definition after its MacroStart: the skipped
// body, the MacroStop and the BuildMacro that leaves the macro on the stack.
func (g *codegen) compileMacro(m *lang.Macro, flags Flags) error {
	names := make([]string, len(m.Args))
	for i, a := range m.Args {
		names[i] = a.Name
	}

	jump := g.add(Instruction{Op: Jump, Span: m.Span})
	entry := g.add(Instruction{Op: MacroName, Name: m.Name, Args: names, Span: m.Span})

	for _, a := range m.Args {
		if a.Default == nil {
			continue
		}

		g.add(Instruction{Op: Lookup, Name: a.Name, Span: a.Span})
		g.add(Instruction{Op: PerformTest, Name: "undefined", Arg: 1, Span: a.Span})

		skip := g.add(Instruction{Op: JumpIfFalse, Span: a.Span})

		if err := g.compileExpr(a.Default); err != nil {
			return err
		}

		g.add(Instruction{Op: StoreLocal, Name: a.Name, Span: a.Span})
		g.patch(skip)
	}

	if err := g.compileStmts(m.Body); err != nil {
		return err
	}

	g.add(Instruction{Op: Return, Span: span.Span{Start: m.Span.Stop, Stop: m.Span.Stop}})
	g.patch(jump)
	g.stop(m.Span)

	if referencesCaller(m.Body) {
		flags |= FlagCaller
	}

	g.add(Instruction{Op: BuildMacro, Name: m.Name, Args: names, Arg: entry, Flags: flags, Span: m.Span})

	return nil
}

func referencesCaller(body []lang.Stmt) bool {
	found := false

	lang.WalkStmts(body, func(e lang.Expr) bool {
		if v, ok := e.(*lang.Var); ok && v.Name == "caller" {
			found = true
		}

		return !found
	})

	return found
}

func (g *codegen) compileBlock(b *lang.Block) error {
	sub := &codegen{source: g.source, blocks: g.blocks, logger: g.logger}

	if err := sub.compileStmts(b.Body); err != nil {
		return err
	}

	if _, dup := g.blocks[b.Name]; dup {
		return g.fail(b.Span.Start, "block "+strconv.Quote(b.Name)+" defined twice")
	}

	g.blocks[b.Name] = sub.instrs

	g.start(b.Span)
	g.add(Instruction{Op: CallBlock, Name: b.Name, Span: b.Span})
	g.stop(b.Span)

	return nil
}

// compileAssign stores the value on top of the stack into target.
func (g *codegen) compileAssign(target lang.Expr) error {
	switch t := target.(type) {
	case *lang.Var:
		g.add(Instruction{Op: StoreLocal, Name: t.Name, Span: t.Span})

		return nil

	case *lang.Tuple:
		g.add(Instruction{Op: UnpackList, Arg: len(t.Items), Span: t.Span})

		for _, it := range t.Items {
			if err := g.compileAssign(it); err != nil {
				return err
			}
		}

		return nil

	default:
		return g.fail(target.Pos().Start, "cannot assign to this expression")
	}
}

var binaryOps = map[string]Op{
	"+": Add, "-": Sub, "*": Mul, "/": Div, "//": IntDiv, "%": Rem, "**": Pow,
	"~": StrConcat, "==": Eq, "!=": Ne, "<": Lt, "<=": Lte, ">": Gt, ">=": Gte,
	"in": In,
}

func (g *codegen) compileExpr(e lang.Expr) error {
	switch e := e.(type) {
	case *lang.Var:
		g.add(Instruction{Op: Lookup, Name: e.Name, Span: e.Span})

	case *lang.Const:
		g.add(Instruction{Op: LoadConst, Value: value.FromGo(e.Value), Span: e.Span})

	case *lang.IntLit:
		n, err := strconv.ParseInt(e.Digits, 10, 64)
		if err != nil {
			return g.fail(e.Span.Start, "integer literal "+e.Digits+" out of range")
		}

		g.add(Instruction{Op: LoadConst, Value: value.FromInt(n), Span: e.Span})

	case *lang.List:
		if err := g.compileAll(e.Items); err != nil {
			return err
		}

		g.add(Instruction{Op: BuildList, Arg: len(e.Items), Span: e.Span})

	case *lang.Tuple:
		if err := g.compileAll(e.Items); err != nil {
			return err
		}

		g.add(Instruction{Op: BuildList, Arg: len(e.Items), Span: e.Span})

	case *lang.Dict:
		for i := range e.Keys {
			if err := g.compileAll([]lang.Expr{e.Keys[i], e.Values[i]}); err != nil {
				return err
			}
		}

		g.add(Instruction{Op: BuildMap, Arg: len(e.Keys), Span: e.Span})

	case *lang.UnaryOp:
		if err := g.compileExpr(e.Expr); err != nil {
			return err
		}

		switch e.Op {
		case "not":
			g.add(Instruction{Op: Not, Span: e.Span})
		case "-":
			g.add(Instruction{Op: Neg, Span: e.Span})
		}

	case *lang.BinOp:
		return g.compileBinOp(e)

	case *lang.GetAttr:
		if err := g.compileExpr(e.Expr); err != nil {
			return err
		}

		g.add(Instruction{Op: GetAttr, Name: e.Name, Span: e.Span})

	case *lang.GetItem:
		if err := g.compileAll([]lang.Expr{e.Expr, e.Index}); err != nil {
			return err
		}

		g.add(Instruction{Op: GetItem, Span: e.Span})

	case *lang.Call:
		return g.compileCall(e, nil)

	case *lang.Filter:
		if err := g.compileExpr(e.Expr); err != nil {
			return err
		}

		argc, flags, err := g.compileArgs(e.Args, e.Kwargs, nil)
		if err != nil {
			return err
		}

		g.add(Instruction{Op: ApplyFilter, Name: e.Name, Arg: argc + 1, Flags: flags, Span: e.Span})

	case *lang.Test:
		if err := g.compileExpr(e.Expr); err != nil {
			return err
		}

		if err := g.compileAll(e.Args); err != nil {
			return err
		}

		g.add(Instruction{Op: PerformTest, Name: e.Name, Arg: len(e.Args) + 1, Span: e.Span})

		if e.Negated {
			g.add(Instruction{Op: Not, Span: e.Span})
		}

	case *lang.IfExpr:
		if err := g.compileExpr(e.Cond); err != nil {
			return err
		}

		jf := g.add(Instruction{Op: JumpIfFalse, Span: e.Cond.Pos()})

		if err := g.compileExpr(e.Then); err != nil {
			return err
		}

		j := g.add(Instruction{Op: Jump, Span: e.Span})
		g.patch(jf)

		if e.Else != nil {
			if err := g.compileExpr(e.Else); err != nil {
				return err
			}
		} else {
			g.add(Instruction{Op: LoadConst, Span: e.Span})
		}

		g.patch(j)

	default:
		return g.fail(e.Pos().Start, "unsupported expression")
	}

	return nil
}

func (g *codegen) compileAll(es []lang.Expr) error {
	for _, e := range es {
		if err := g.compileExpr(e); err != nil {
			return err
		}
	}

	return nil
}

func (g *codegen) compileBinOp(e *lang.BinOp) error {
	switch e.Op {
	case "and", "or":
		if err := g.compileExpr(e.Left); err != nil {
			return err
		}

		op := JumpIfFalseOrPop
		if e.Op == "or" {
			op = JumpIfTrueOrPop
		}

		j := g.add(Instruction{Op: op, Span: e.Span})

		if err := g.compileExpr(e.Right); err != nil {
			return err
		}

		g.patch(j)

		return nil
	}

	if err := g.compileAll([]lang.Expr{e.Left, e.Right}); err != nil {
		return err
	}

	if e.Op == "not in" {
		g.add(Instruction{Op: In, Span: e.Span})
		g.add(Instruction{Op: Not, Span: e.Span})

		return nil
	}

	op, ok := binaryOps[e.Op]
	if !ok {
		return g.fail(e.Span.Start, "unknown operator "+strconv.Quote(e.Op))
	}

	g.add(Instruction{Op: op, Span: e.Span})

	return nil
}

// compileCall emits a call. When caller is not nil it is compiled as an
// anonymous macro passed as the caller keyword argument.
func (g *codegen) compileCall(c *lang.Call, caller *lang.Macro) error {
	if v, ok := c.Func.(*lang.Var); ok && v.Name == "return" && caller == nil {
		switch len(c.Args) {
		case 0:
			g.add(Instruction{Op: LoadConst, Value: value.Nil(), Span: c.Span})
		case 1:
			if err := g.compileExpr(c.Args[0]); err != nil {
				return err
			}
		default:
			return g.fail(c.Span.Start, "return takes at most one argument")
		}

		g.add(Instruction{Op: Return, Arg: 1, Span: c.Span})

		return nil
	}

	switch f := c.Func.(type) {
	case *lang.Var:
		argc, flags, err := g.compileArgs(c.Args, c.Kwargs, caller)
		if err != nil {
			return err
		}

		g.add(Instruction{Op: CallFunction, Name: f.Name, Arg: argc, Flags: flags, Span: c.Span})

	case *lang.GetAttr:
		if err := g.compileExpr(f.Expr); err != nil {
			return err
		}

		argc, flags, err := g.compileArgs(c.Args, c.Kwargs, caller)
		if err != nil {
			return err
		}

		g.add(Instruction{Op: CallMethod, Name: f.Name, Arg: argc + 1, Flags: flags, Span: c.Span})

	default:
		if err := g.compileExpr(c.Func); err != nil {
			return err
		}

		argc, flags, err := g.compileArgs(c.Args, c.Kwargs, caller)
		if err != nil {
			return err
		}

		g.add(Instruction{Op: CallObject, Arg: argc + 1, Flags: flags, Span: c.Span})
	}

	return nil
}

// compileArgs pushes positional arguments followed by an optional kwargs
// bundle, returning the number of stack values pushed.
func (g *codegen) compileArgs(args []lang.Expr, kwargs []lang.Kwarg, caller *lang.Macro) (int, Flags, error) {
	if err := g.compileAll(args); err != nil {
		return 0, 0, err
	}

	if len(kwargs) == 0 && caller == nil {
		return len(args), 0, nil
	}

	names := make([]string, 0, len(kwargs)+1)

	for _, k := range kwargs {
		if err := g.compileExpr(k.Value); err != nil {
			return 0, 0, err
		}

		names = append(names, k.Name)
	}

	if caller != nil {
		g.start(caller.Span)

		if err := g.compileMacro(caller, FlagCallerBlock); err != nil {
			return 0, 0, err
		}

		names = append(names, "caller")
	}

	g.add(Instruction{Op: BuildKwargs, Args: names, Span: kwargsSpan(args, kwargs, caller)})

	return len(args) + 1, FlagKwargs, nil
}

func kwargsSpan(args []lang.Expr, kwargs []lang.Kwarg, caller *lang.Macro) span.Span {
	switch {
	case len(kwargs) > 0:
		return span.Span{Start: kwargs[0].Value.Pos().Start, Stop: kwargs[len(kwargs)-1].Value.Pos().Stop}
	case caller != nil:
		return caller.Span
	case len(args) > 0:
		return args[len(args)-1].Pos()
	default:
		return span.Span{}
	}
}

func isReturn(e lang.Expr) bool {
	c, ok := e.(*lang.Call)
	if !ok {
		return false
	}

	v, ok := c.Func.(*lang.Var)

	return ok && v.Name == "return"
}

func (g *codegen) fail(at span.Location, msg string) error {
	return &lang.SyntaxError{Source: g.source, Msg: msg, Loc: at}
}

// IsFuncsign reports whether text is a structured signature comment.
func IsFuncsign(text string) bool {
	return strings.Contains(strings.TrimSpace(text), strings.TrimSpace(FuncsignMarker))
}

// Funcsign returns the signature text of a structured comment: the rest of
// the line following the marker.
func Funcsign(text string) (string, bool) {
	_, sig, ok := strings.Cut(text, strings.TrimSpace(FuncsignMarker))
	if !ok {
		return "", false
	}

	sig, _, _ = strings.Cut(sig, "\n")

	return strings.TrimSpace(sig), true
}
