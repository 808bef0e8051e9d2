package vm

import "github.com/ardnew/jinx/value"

// loop is the iteration state of a for loop.
type loop struct {
	items []value.Value
	index int // position of the current item, -1 before the first
}

func (l *loop) next() (value.Value, bool) {
	l.index++
	if l.index >= len(l.items) {
		return value.Undef(), false
	}

	return l.items[l.index], true
}

// loopObject exposes a loop to templates as the loop variable.
type loopObject struct{ l *loop }

func (loopObject) TypeName() string { return "loop" }

func (o loopObject) String() string { return "<loop>" }

func (o loopObject) GetAttr(name string) (value.Value, bool) {
	l := o.l
	n := len(l.items)

	switch name {
	case "index":
		return value.FromInt(int64(l.index + 1)), true
	case "index0":
		return value.FromInt(int64(l.index)), true
	case "revindex":
		return value.FromInt(int64(n - l.index)), true
	case "revindex0":
		return value.FromInt(int64(n - l.index - 1)), true
	case "first":
		return value.FromBool(l.index == 0), true
	case "last":
		return value.FromBool(l.index == n-1), true
	case "length":
		return value.FromInt(int64(n)), true
	case "previtem":
		if l.index > 0 {
			return l.items[l.index-1], true
		}
	case "nextitem":
		if l.index+1 < n {
			return l.items[l.index+1], true
		}
	case "cycle":
		return value.FromObject(cycle{l}), true
	}

	return value.Undef(), false
}

// cycle is loop.cycle: it picks its argument at the loop position.
type cycle struct{ l *loop }

func (cycle) TypeName() string { return "function" }

func (c cycle) Call(args []value.Value, _ *value.Dict) (value.Value, error) {
	if len(args) == 0 {
		return value.Undef(), nil
	}

	return args[c.l.index%len(args)], nil
}
