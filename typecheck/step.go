package typecheck

import (
	"strconv"

	"github.com/ardnew/jinx/compiler"
	"github.com/ardnew/jinx/listener"
	"github.com/ardnew/jinx/types"
)

// step applies the instruction at pc to s.
func (p *pass) step(s *state, pc int) {
	in := p.graph.Instructions[pc]

	switch in.Op {
	case compiler.Emit, compiler.DiscardTop, compiler.JumpIfFalse:
		s.pop()

	case compiler.LoadConst:
		s.push(types.FromValue(in.Value))

	case compiler.Lookup:
		s.push(p.lookup(s, pc))

	case compiler.StoreLocal:
		s.vars[in.Name] = variable{t: s.pop().t}

	case compiler.GetAttr:
		s.push(p.attr(in, s.pop().t, in.Name))

	case compiler.GetItem:
		s.pop()
		s.push(types.Item(s.pop().t))

	case compiler.BuildList:
		if in.Arg < 0 {
			s.pop()
			s.push(types.SeqOf(s.built))

			break
		}

		items := s.popN(in.Arg)
		if len(items) == 0 {
			s.push(types.SeqOf(types.Any))

			break
		}

		elem := types.None
		for _, it := range items {
			elem = types.Union(elem, it.t)
		}

		s.push(types.SeqOf(elem))

	case compiler.BuildMap:
		pairs := s.popN(2 * in.Arg)
		if len(pairs) == 0 {
			s.push(types.MapOf(types.String, types.Any))

			break
		}

		key, val := types.None, types.None
		for i := 0; i < len(pairs); i += 2 {
			key = types.Union(key, pairs[i].t)
			val = types.Union(val, pairs[i+1].t)
		}

		s.push(types.MapOf(key, val))

	case compiler.BuildKwargs:
		vals := s.popN(len(in.Args))
		kw := slot{t: types.MapOf(types.String, types.Any), kwNames: in.Args}

		for _, v := range vals {
			kw.kwTypes = append(kw.kwTypes, v.t)
		}

		s.stack = append(s.stack, kw)

	case compiler.UnpackList:
		seq := s.pop().t
		for i := in.Arg - 1; i >= 0; i-- {
			if seq.Kind() == types.KindTuple && len(seq.Members()) == in.Arg {
				s.push(seq.Members()[i])
			} else {
				s.push(types.Item(seq))
			}
		}

	case compiler.DupTop:
		s.stack = append(s.stack, s.top())

	case compiler.Swap:
		b, a := s.pop(), s.pop()
		s.stack = append(s.stack, b, a)

	case compiler.Add, compiler.Sub, compiler.Mul, compiler.Div,
		compiler.IntDiv, compiler.Rem, compiler.Pow, compiler.StrConcat:
		b, a := s.pop().t, s.pop().t
		op := arithSymbol[in.Op]

		r, ok := types.Arithmetic(op, a, b)
		if !ok {
			p.report(in, CodeInvalidOperation, listener.Warning,
				"unsupported operand types for %s: %s and %s", op, a, b)

			r = types.Any
		}

		s.push(r)

	case compiler.Eq, compiler.Ne, compiler.Lt, compiler.Lte,
		compiler.Gt, compiler.Gte, compiler.In:
		b, a := s.pop().t, s.pop().t
		op := compareSymbol[in.Op]

		if !comparable(a, b, op) {
			p.report(in, CodeIncomparable, listener.Warning,
				"cannot compare %s with %s using %s", a, b, op)
		}

		s.push(types.Bool)

	case compiler.Not:
		s.pop()
		s.push(types.Bool)

	case compiler.Neg:
		a := s.pop().t

		r, ok := types.Negate(a)
		if !ok {
			p.report(in, CodeInvalidOperation, listener.Warning, "bad operand type for unary -: %s", a)

			r = types.Any
		}

		s.push(r)

	case compiler.ApplyFilter:
		_, args := popCall(s, in)
		s.push(p.filter(in, args))

	case compiler.PerformTest:
		popCall(s, in)

		if p.tests != nil && !p.tests[in.Name] && p.once("test:"+in.Name) {
			p.report(in, CodeUnknownTest, listener.Error,
				"unknown test %q%s", in.Name, suggest(in.Name, keys(p.tests)))
		}

		s.push(types.Bool)

	case compiler.CallFunction:
		kw, args := popCall(s, in)
		s.push(p.callFunction(s, in, args, kw))

	case compiler.CallMethod:
		_, args := popCall(s, in)
		if len(args) == 0 {
			s.push(types.Any)

			break
		}

		m := p.attr(in, args[0].t, in.Name)
		s.push(p.result(in, m))

	case compiler.CallObject:
		_, args := popCall(s, in)
		if len(args) == 0 {
			s.push(types.Any)

			break
		}

		s.push(p.result(in, args[0].t))

	case compiler.PushLoop:
		seq := s.pop().t

		item, ok := iterItem(seq)
		if !ok {
			p.report(in, CodeNotIterable, listener.Warning, "%s is not iterable", seq)
		}

		s.loops = append(s.loops, item)

		if in.Flags&compiler.FlagLoopVar != 0 {
			s.vars["loop"] = variable{t: types.Any}
		}

	case compiler.PopFrame:
		s.built = s.loop()
		if len(s.loops) > 0 {
			s.loops = s.loops[:len(s.loops)-1]
		}

		if in.Flags&compiler.FlagLoopElse != 0 {
			s.push(types.Bool)
		}

	case compiler.EndCapture:
		s.push(types.String)

	case compiler.BuildMacro:
		switch sig, ok := p.registry.Lookup(in.Name); {
		case in.Flags&compiler.FlagCallerBlock != 0:
			s.push(types.FuncOf(nil, types.String))
		case ok:
			s.push(sig.Type())
		default:
			s.push(types.Untyped(in.Name, in.Args, len(in.Args), p.anchor.Loc()).Type())
		}

	case compiler.Return:
		if in.Arg != 1 {
			break
		}

		v := s.pop().t
		if p.sig != nil && p.sig.Typed && !compatible(v, p.sig.Return) {
			p.report(in, CodeReturnType, listener.Warning,
				"macro %s returns %s, declared to return %s", p.sig.Name, v, p.sig.Return)
		}
	}
}

// popCall pops the operands of a call instruction: the kwargs bundle, if
// any, and the positional values bottom first.
func popCall(s *state, in compiler.Instruction) (slot, []slot) {
	var kw slot

	n := in.Arg
	if in.Flags&compiler.FlagKwargs != 0 {
		kw = s.pop()
		n--
	}

	return kw, s.popN(n)
}

func (p *pass) attr(in compiler.Instruction, t types.Type, name string) types.Type {
	a, ok := types.Attr(t, name)
	if ok {
		return a
	}

	p.report(in, CodeUnknownAttribute, listener.Warning,
		"%s has no attribute %q%s", t, name, suggest(name, types.AttrNames(t)))

	return types.Any
}

// result returns the type produced by calling a value of type fn.
func (p *pass) result(in compiler.Instruction, fn types.Type) types.Type {
	switch fn.Kind() {
	case types.KindFunction:
		return fn.Return()
	case types.KindAny, types.KindUndefined, types.KindUnion, types.KindNone, types.KindInvalid:
		return types.Any
	}

	p.report(in, CodeNotCallable, listener.Warning, "%s is not callable", fn)

	return types.Any
}

func (p *pass) callFunction(s *state, in compiler.Instruction, args []slot, kw slot) types.Type {
	sig, ok := p.registry.Lookup(in.Name)
	if v, local := s.vars[in.Name]; local && v.t.Kind() != types.KindFunction {
		ok = false
	}

	if ok {
		p.checkCall(in, sig, args, kw)

		return sig.Return
	}

	fn, known := p.resolve(s, in.Name)
	if !known {
		if p.once("function:" + in.Name) {
			p.report(in, CodeUnknownFunction, listener.Warning,
				"unknown function %q%s", in.Name, suggest(in.Name, p.names(s)))
		}

		return types.Any
	}

	return p.result(in, fn)
}

// checkCall reports arity and argument type mismatches of a macro call.
func (p *pass) checkCall(in compiler.Instruction, sig *types.Signature, args []slot, kw slot) {
	given := map[string]types.Type{}

	for i, name := range kw.kwNames {
		if name != "caller" && i < len(kw.kwTypes) {
			given[name] = kw.kwTypes[i]
		}
	}

	if len(args) > len(sig.Args) {
		p.report(in, CodeArity, listener.Warning,
			"macro %s takes %s, got %d", sig.Name, plural(len(sig.Args), "argument"), len(args))
	}

	for i, name := range sig.Args {
		t, ok := given[name]

		switch {
		case i < len(args):
			t, ok = args[i].t, true
		case !ok && i < sig.Required:
			p.report(in, CodeArity, listener.Warning,
				"macro %s is missing required argument %q", sig.Name, name)
		}

		if ok && sig.Typed && i < len(sig.Params) && !compatible(t, sig.Params[i]) {
			p.report(in, CodeArgumentType, listener.Warning,
				"argument %q of macro %s expects %s, got %s", name, sig.Name, sig.Params[i], t)
		}
	}
}

func (p *pass) filter(in compiler.Instruction, args []slot) types.Type {
	if p.filters != nil && !p.filters[in.Name] {
		if p.once("filter:" + in.Name) {
			p.report(in, CodeUnknownFilter, listener.Error,
				"unknown filter %q%s", in.Name, suggest(in.Name, keys(p.filters)))
		}

		return types.Any
	}

	operand := types.Any
	if len(args) > 0 {
		operand = args[0].t
	}

	var extra []types.Type
	for _, a := range args[min(1, len(args)):] {
		extra = append(extra, a.t)
	}

	return filterResult(in.Name, operand, extra)
}

// comparable extends [types.CanCompareWith] to mixed numbers.
func comparable(a, b types.Type, op string) bool {
	if op != "in" && isNumeric(a) && isNumeric(b) {
		return true
	}

	return types.CanCompareWith(a, b, op)
}

// isNumeric reports whether t is a number or a union of numbers.
func isNumeric(t types.Type) bool {
	for _, m := range t.Flatten() {
		if m.Kind() != types.KindInteger && m.Kind() != types.KindFloat {
			return false
		}
	}

	return true
}

// compatible reports whether a value of type t may be passed where want is
// declared.
func compatible(t, want types.Type) bool {
	switch t.Kind() {
	case types.KindAny, types.KindUndefined, types.KindNone, types.KindInvalid:
		return true
	}

	return t.IsSubtypeOf(want)
}

// iterItem returns the type of the items produced by iterating t.
func iterItem(t types.Type) (types.Type, bool) {
	switch t.Kind() {
	case types.KindSeq:
		return t.Elem(), true
	case types.KindMap:
		return t.Key(), true
	case types.KindString:
		return types.String, true
	case types.KindTuple:
		return types.Item(t), true
	case types.KindAny, types.KindUndefined, types.KindNone, types.KindInvalid:
		return types.Any, true
	case types.KindUnion:
		out := types.None

		for _, m := range t.Members() {
			it, ok := iterItem(m)
			if !ok {
				return types.Any, false
			}

			out = types.Union(out, it)
		}

		return out, true
	}

	return types.Any, false
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}

	return out
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}

	return strconv.Itoa(n) + " " + noun + "s"
}
