package vm

import (
	"html"
	"log/slog"

	"github.com/ardnew/jinx/compiler"
	"github.com/ardnew/jinx/lang"
	"github.com/ardnew/jinx/value"
)

// run executes st.instrs from pc until a Return or the end of the
// instructions. The result is the returned value, or the captured output
// of a macro body returning without one.
func (st *State) run(pc int) (value.Value, error) {
	var stack []value.Value

	push := func(v value.Value) { stack = append(stack, v) }
	pop := func() value.Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		return v
	}
	popN := func(n int) []value.Value {
		vs := append([]value.Value(nil), stack[len(stack)-n:]...)
		stack = stack[:len(stack)-n]

		return vs
	}

	for pc < len(st.instrs) {
		in := st.instrs[pc]
		pc++

		if need := stackNeed(in); need > len(stack) {
			return value.Undef(), lang.ErrMalformedProgram.
				Wrapf("%s needs %d values, stack has %d", in.Op, need, len(stack)).
				With(slog.Int("pc", pc-1))
		}

		var err error

		switch in.Op {
		case compiler.Nop, compiler.Comment, compiler.MacroName:

		case compiler.EmitRaw:
			err = st.write(in.Value.Str())

		case compiler.Emit:
			err = st.write(st.escaped(pop()))

		case compiler.LoadConst:
			push(in.Value)

		case compiler.Lookup:
			st.listener.OnReference(in.Name, in.Span)
			push(st.Lookup(in.Name))

		case compiler.StoreLocal:
			st.listener.OnDefinition(in.Name, in.Span)
			st.store(in.Name, pop())

		case compiler.GetAttr:
			push(pop().GetAttr(in.Name))

		case compiler.GetItem:
			key := pop()
			push(pop().GetItem(key))

		case compiler.BuildList:
			n := in.Arg
			if n < 0 {
				n = int(pop().Int())
			}

			if n > len(stack) {
				return value.Undef(), lang.ErrMalformedProgram.Wrapf("list of %d items", n)
			}

			push(value.FromSlice(popN(n)))

		case compiler.BuildMap:
			kv := popN(2 * in.Arg)
			d := value.NewDict()

			for i := 0; i < len(kv); i += 2 {
				d.Set(kv[i].String(), kv[i+1])
			}

			push(value.FromDict(d))

		case compiler.BuildKwargs:
			vs := popN(len(in.Args))
			d := value.NewDict()

			for i, name := range in.Args {
				d.Set(name, vs[i])
			}

			push(value.FromKwargs(d))

		case compiler.UnpackList:
			var items []value.Value

			items, err = pop().Iterate()
			if err == nil && len(items) != in.Arg {
				err = lang.ErrInvalidOperation.Wrapf(
					"cannot unpack %d values into %d names", len(items), in.Arg)
			}

			for i := len(items) - 1; err == nil && i >= 0; i-- {
				push(items[i])
			}

		case compiler.DupTop:
			push(stack[len(stack)-1])

		case compiler.DiscardTop:
			pop()

		case compiler.Swap:
			n := len(stack)
			stack[n-1], stack[n-2] = stack[n-2], stack[n-1]

		case compiler.Add, compiler.Sub, compiler.Mul, compiler.Div,
			compiler.IntDiv, compiler.Rem, compiler.Pow:
			b, a := pop(), pop()

			var r value.Value

			r, err = arith[in.Op](a, b)
			push(r)

		case compiler.StrConcat:
			b, a := pop(), pop()
			push(value.Concat(a, b))

		case compiler.Eq:
			b, a := pop(), pop()
			push(value.FromBool(a.Equal(b)))

		case compiler.Ne:
			b, a := pop(), pop()
			push(value.FromBool(!a.Equal(b)))

		case compiler.Lt, compiler.Lte, compiler.Gt, compiler.Gte:
			b, a := pop(), pop()

			var r bool

			r, err = compare(in.Op, a, b)
			push(value.FromBool(r))

		case compiler.In:
			b, a := pop(), pop()

			var r bool

			r, err = b.Contains(a)
			push(value.FromBool(r))

		case compiler.Not:
			push(value.FromBool(!pop().Truthy()))

		case compiler.Neg:
			var r value.Value

			r, err = value.Neg(pop())
			push(r)

		case compiler.ApplyFilter:
			kwargs := st.kwargs(in, pop)
			args := popN(st.argc(in))

			var r value.Value

			r, err = st.applyFilter(in.Name, args[0], args[1:], kwargs)
			push(r)

		case compiler.PerformTest:
			args := popN(in.Arg)

			var r bool

			r, err = st.performTest(in.Name, args[0], args[1:])
			push(value.FromBool(r))

		case compiler.CallFunction:
			kwargs := st.kwargs(in, pop)
			args := popN(st.argc(in))

			var r value.Value

			r, err = st.callFunction(in, args, kwargs)
			push(r)

		case compiler.CallMethod:
			kwargs := st.kwargs(in, pop)
			args := popN(st.argc(in))

			var r value.Value

			r, err = st.callMethod(in.Name, args[0], args[1:], kwargs)
			push(r)

		case compiler.CallObject:
			kwargs := st.kwargs(in, pop)
			args := popN(st.argc(in))

			var r value.Value

			r, err = st.call(args[0], args[1:], kwargs)
			push(r)

		case compiler.Jump:
			pc = in.Arg

		case compiler.JumpIfFalse:
			if !pop().Truthy() {
				pc = in.Arg
			}

		case compiler.JumpIfFalseOrPop:
			if stack[len(stack)-1].Truthy() {
				pop()
			} else {
				pc = in.Arg
			}

		case compiler.JumpIfTrueOrPop:
			if stack[len(stack)-1].Truthy() {
				pc = in.Arg
			} else {
				pop()
			}

		case compiler.PushLoop:
			var items []value.Value

			items, err = pop().Iterate()
			if err == nil {
				f := newFrame()
				f.loop = &loop{items: items, index: -1}

				if in.Flags&compiler.FlagLoopVar != 0 {
					f.vars.Set("loop", value.FromObject(loopObject{f.loop}))
				}

				st.frames = append(st.frames, f)
			}

		case compiler.Iterate:
			l := st.topLoop()
			if l == nil {
				return value.Undef(), lang.ErrMalformedProgram.Wrapf("iterate outside of a loop")
			}

			if item, ok := l.next(); ok {
				push(item)
			} else {
				pc = in.Arg
			}

		case compiler.PopFrame:
			f := st.frames[len(st.frames)-1]
			st.frames = st.frames[:len(st.frames)-1]

			if in.Flags&compiler.FlagLoopElse != 0 {
				push(value.FromBool(f.loop == nil || len(f.loop.items) == 0))
			}

		case compiler.BeginCapture:
			st.beginCapture()

		case compiler.EndCapture:
			push(st.captured(st.endCapture()))

		case compiler.MacroStart:
			st.listener.OnMacroStart(in.Span, st.loc())

		case compiler.MacroStop:
			st.listener.OnMacroStop(in.Span.Stop, st.loc())

		case compiler.BuildMacro:
			st.listener.OnDefinition(in.Name, in.Span)
			push(value.FromObject(&Macro{
				owner:   st.owner,
				prog:    st.prog,
				instrs:  st.instrs,
				closure: st.closure(),
				name:    in.Name,
				args:    in.Args,
				entry:   in.Arg,
				flags:   in.Flags,
			}))

		case compiler.Return:
			st.listener.OnReturn(st.loc())

			if in.Arg == 1 {
				return pop(), nil
			}

			return st.captured(st.out[len(st.out)-1].buf.String()), nil

		case compiler.CallBlock:
			err = st.callBlock(in.Name)

		default:
			err = lang.ErrMalformedProgram.Wrapf("unknown opcode %s", in.Op)
		}

		if err != nil {
			return value.Undef(), positioned(err, in)
		}
	}

	return value.Undef(), nil
}

// stackNeed returns the number of stack values in consumes.
func stackNeed(in compiler.Instruction) int {
	switch in.Op {
	case compiler.Emit, compiler.StoreLocal, compiler.GetAttr, compiler.UnpackList,
		compiler.DupTop, compiler.DiscardTop, compiler.Not, compiler.Neg,
		compiler.JumpIfFalse, compiler.JumpIfFalseOrPop, compiler.JumpIfTrueOrPop,
		compiler.PushLoop:
		return 1
	case compiler.GetItem, compiler.Swap, compiler.Add, compiler.Sub, compiler.Mul,
		compiler.Div, compiler.IntDiv, compiler.Rem, compiler.Pow, compiler.StrConcat,
		compiler.Eq, compiler.Ne, compiler.Lt, compiler.Lte, compiler.Gt, compiler.Gte,
		compiler.In:
		return 2
	case compiler.BuildMap:
		return 2 * in.Arg
	case compiler.BuildKwargs:
		return len(in.Args)
	case compiler.BuildList:
		if in.Arg < 0 {
			return 1
		}

		return in.Arg
	case compiler.ApplyFilter, compiler.PerformTest, compiler.CallFunction,
		compiler.CallMethod, compiler.CallObject:
		return in.Arg
	case compiler.Return:
		return in.Arg
	default:
		return 0
	}
}

// positioned attaches the source position of in to err unless a nested
// evaluation already did.
func positioned(err error, in compiler.Instruction) error {
	e := lang.WrapError(err)
	for _, a := range e.Attrs() {
		if a.Key == "line" {
			return err
		}
	}

	return e.WithPosition(in.Span.Start)
}

func (st *State) escaped(v value.Value) string {
	if st.escape == EscapeHTML && !v.IsSafe() {
		return html.EscapeString(v.String())
	}

	return v.String()
}

// kwargs pops the keyword bundle of a call carrying one.
func (st *State) kwargs(in compiler.Instruction, pop func() value.Value) *value.Dict {
	if in.Flags&compiler.FlagKwargs == 0 {
		return nil
	}

	return pop().Dict()
}

// argc is the number of positional stack values of a call.
func (st *State) argc(in compiler.Instruction) int {
	if in.Flags&compiler.FlagKwargs != 0 {
		return in.Arg - 1
	}

	return in.Arg
}

var arith = map[compiler.Op]func(a, b value.Value) (value.Value, error){
	compiler.Add:    value.Add,
	compiler.Sub:    value.Sub,
	compiler.Mul:    value.Mul,
	compiler.Div:    value.Div,
	compiler.IntDiv: value.FloorDiv,
	compiler.Rem:    value.Rem,
	compiler.Pow:    value.Pow,
}

func compare(op compiler.Op, a, b value.Value) (bool, error) {
	c, ok := a.Compare(b)
	if !ok {
		return false, lang.ErrInvalidOperation.Wrapf(
			"cannot compare %s with %s", a.TypeName(), b.TypeName())
	}

	switch op {
	case compiler.Lt:
		return c < 0, nil
	case compiler.Lte:
		return c <= 0, nil
	case compiler.Gt:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

func (st *State) callBlock(name string) error {
	instrs, ok := st.prog.Blocks[name]
	if !ok {
		return lang.ErrUnknownBlock.Wrapf("%q", name)
	}

	sub := *st
	sub.instrs = instrs
	sub.frames = append(st.closure(), newFrame())

	_, err := sub.run(0)

	return err
}
