package vm

import (
	"github.com/ardnew/jinx/compiler"
	"github.com/ardnew/jinx/lang"
	"github.com/ardnew/jinx/value"
)

func (st *State) applyFilter(name string, v value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	f, ok := st.machine.filters[name]
	if !ok {
		return value.Undef(), lang.ErrUnknownFilter.Wrapf("%q", name)
	}

	return f(st, v, args, kwargs)
}

func (st *State) performTest(name string, v value.Value, args []value.Value) (bool, error) {
	t, ok := st.machine.tests[name]
	if !ok {
		return false, lang.ErrUnknownTest.Wrapf("%q", name)
	}

	return t(v, args)
}

func (st *State) callFunction(in compiler.Instruction, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	fn := st.Lookup(in.Name)
	if fn.IsUndefined() {
		return value.Undef(), lang.ErrUnknownFunction.Wrapf("%q", in.Name)
	}

	return st.call(fn, args, kwargs)
}

// Call invokes fn with the arguments. Macros are evaluated within st.
func (st *State) Call(fn value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	return st.call(fn, args, kwargs)
}

func (st *State) call(fn value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	if fn.Kind() == value.Object {
		switch o := fn.Object().(type) {
		case *Macro:
			return o.call(st, args, kwargs)
		case function:
			return o.fn(st, args, kwargs)
		case value.Callable:
			return o.Call(args, kwargs)
		}
	}

	return value.Undef(), lang.ErrNotCallable.Wrapf("cannot call %s", fn.TypeName())
}

func (st *State) callMethod(name string, recv value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	if recv.Kind() != value.Object {
		if m, ok := methods[recv.Kind()][name]; ok {
			return m(recv, args, kwargs)
		}
	}

	if attr := recv.GetAttr(name); attr.Kind() == value.Object {
		return st.call(attr, args, kwargs)
	}

	return value.Undef(), lang.ErrUnknownFunction.Wrapf("%s has no method %q", recv.TypeName(), name)
}
