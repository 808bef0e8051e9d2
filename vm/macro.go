package vm

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/ardnew/jinx/compiler"
	"github.com/ardnew/jinx/lang"
	"github.com/ardnew/jinx/value"
)

// Macro is a callable template fragment. It refers to its body by position
// in the instructions of the program that defined it and closes over the
// scope it was defined in. A Macro is never mutated after creation.
type Macro struct {
	owner   *owner
	prog    *compiler.Program
	instrs  compiler.Instructions
	closure []*frame
	name    string
	args    []string
	entry   int
	flags   compiler.Flags
}

// Binding is the assignment of call arguments to a macro's parameters.
type Binding struct {
	Args    *value.Dict // Parameter name to value, in declaration order
	Kwargs  *value.Dict // Keywords not naming a parameter
	Caller  value.Value
	Varargs []value.Value // Positionals beyond the parameters
}

func (m *Macro) TypeName() string { return "macro" }

func (m *Macro) String() string { return "<macro " + m.name + ">" }

// Name returns the name the macro was defined with.
func (m *Macro) Name() string { return m.name }

// Arguments returns the parameter names in order.
func (m *Macro) Arguments() []string { return slices.Clone(m.args) }

// AcceptsCaller reports whether the body of m reads caller.
func (m *Macro) AcceptsCaller() bool { return m.flags&compiler.FlagCaller != 0 }

func (m *Macro) GetAttr(name string) (value.Value, bool) {
	switch name {
	case "name":
		return value.FromString(m.name), true
	case "arguments":
		args := make([]value.Value, len(m.args))
		for i, a := range m.args {
			args[i] = value.FromString(a)
		}

		return value.FromSlice(args), true
	case "caller":
		return value.FromBool(m.AcceptsCaller()), true
	}

	return value.Undef(), false
}

// Bind assigns call arguments to parameters. Each parameter takes its
// keyword argument, else the positional argument at its index, else
// Undefined; supplying both is an error.
func (m *Macro) Bind(args []value.Value, kwargs *value.Dict) (Binding, error) {
	b := Binding{Args: value.NewDict(), Kwargs: value.NewDict(), Caller: value.Undef()}

	if kwargs != nil {
		b.Kwargs = kwargs.Clone()
	}

	if c, ok := b.Kwargs.Get("caller"); ok {
		if !m.AcceptsCaller() {
			return Binding{}, lang.ErrTooManyArguments.
				Wrapf("macro %s does not accept a caller", m.name).
				With(slog.String("macro", m.name))
		}

		b.Caller = c
		b.Kwargs.Delete("caller")
	}

	for i, name := range m.args {
		kw, hasKw := b.Kwargs.Get(name)

		switch {
		case hasKw && i < len(args):
			return Binding{}, lang.ErrTooManyArguments.
				Wrapf("duplicate argument %q", name).
				With(slog.String("macro", m.name))
		case hasKw:
			b.Args.Set(name, kw)
			b.Kwargs.Delete(name)
		case i < len(args):
			b.Args.Set(name, args[i])
		default:
			b.Args.Set(name, value.Undef())
		}
	}

	if len(args) > len(m.args) {
		b.Varargs = slices.Clone(args[len(m.args):])
	}

	return b, nil
}

// Call invokes m on behalf of host code, such as a filter given a macro.
// It fails once the render pass that defined m has finished.
func (m *Macro) Call(args []value.Value, kwargs *value.Dict) (value.Value, error) {
	st := m.owner.state
	if st == nil {
		return value.Undef(), errStateGone
	}

	return m.call(st, args, kwargs)
}

var errStateGone = lang.ErrInvalidOperation.Wrapf("cannot call this macro. template state went away")

func (m *Macro) call(caller *State, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	if m.owner.state == nil {
		return value.Undef(), errStateGone
	}

	b, err := m.Bind(args, kwargs)
	if err != nil {
		return value.Undef(), err
	}

	depth := caller.depth + macroCallCost
	if depth > caller.machine.limit {
		return value.Undef(), lang.ErrRecursionLimit.
			Wrapf("macro %s exceeds depth %d", m.name, caller.machine.limit).
			With(slog.String("macro", m.name), slog.Int("limit", caller.machine.limit))
	}

	locals := newFrame()
	for name, v := range b.Args.All() {
		locals.vars.Set(name, v)
	}

	if m.AcceptsCaller() {
		locals.vars.Set("caller", b.Caller)
	}

	locals.vars.Set("varargs", value.FromSlice(b.Varargs))
	locals.vars.Set("kwargs", value.FromDict(b.Kwargs))

	sub := &State{
		machine:  caller.machine,
		prog:     m.prog,
		owner:    m.owner,
		listener: caller.listener,
		instrs:   m.instrs,
		frames:   append(slices.Clone(m.closure), locals),
		out:      []*output{{buf: &strings.Builder{}, loc: caller.loc()}},
		depth:    depth,
		escape:   caller.escape,
	}

	caller.listener.OnEnterFuncBody()
	defer caller.listener.OnExitFuncBody()

	return sub.run(m.entry)
}
