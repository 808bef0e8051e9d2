package vm

import (
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/ardnew/jinx/compiler"
	"github.com/ardnew/jinx/listener"
	"github.com/ardnew/jinx/span"
	"github.com/ardnew/jinx/value"
)

// State is the runtime state of one evaluation: the root template or a
// macro body. A State is never shared between goroutines.
type State struct {
	machine  *Machine
	prog     *compiler.Program
	owner    *owner
	listener listener.Listener
	instrs   compiler.Instructions
	frames   []*frame
	out      []*output
	depth    int
	escape   AutoEscape
}

// frame is one level of the scope stack.
type frame struct {
	vars *value.Dict
	loop *loop
}

func newFrame() *frame { return &frame{vars: value.NewDict()} }

// output is a sink together with the position the rendered text has
// reached in it.
type output struct {
	w   io.Writer
	buf *strings.Builder
	loc span.Location
}

// owner ties macros to the render pass that defined them.
type owner struct {
	state *State
}

func (o *owner) close() { o.state = nil }

// Lookup resolves name through the scope stack and the globals of the
// machine. Unknown names are Undefined.
func (st *State) Lookup(name string) value.Value {
	for i := len(st.frames) - 1; i >= 0; i-- {
		if v, ok := st.frames[i].vars.Get(name); ok {
			return v
		}
	}

	if v, ok := st.machine.globals[name]; ok {
		return v
	}

	return value.Undef()
}

func (st *State) store(name string, v value.Value) {
	st.frames[len(st.frames)-1].vars.Set(name, v)
}

// AutoEscape returns the escape mode of the evaluation.
func (st *State) AutoEscape() AutoEscape { return st.escape }

// Depth returns the recursion depth consumed so far.
func (st *State) Depth() int { return st.depth }

func (st *State) loc() span.Location { return st.out[len(st.out)-1].loc }

func (st *State) write(s string) error {
	o := st.out[len(st.out)-1]

	var err error
	if o.buf != nil {
		o.buf.WriteString(s)
	} else {
		_, err = io.WriteString(o.w, s)
	}

	o.loc = o.loc.Advance(s)

	return err
}

func (st *State) beginCapture() {
	st.out = append(st.out, &output{buf: &strings.Builder{}, loc: st.loc()})
}

func (st *State) endCapture() string {
	o := st.out[len(st.out)-1]
	st.out = st.out[:len(st.out)-1]

	return o.buf.String()
}

// captured wraps captured text the way the escape mode requires.
func (st *State) captured(s string) value.Value {
	if st.escape == EscapeHTML {
		return value.FromSafeString(s)
	}

	return value.FromString(s)
}

// closure returns the scope a macro defined now captures. Frames are
// shared so later definitions in them stay visible.
func (st *State) closure() []*frame { return slices.Clone(st.frames) }

func (st *State) topLoop() *loop {
	for i := len(st.frames) - 1; i >= 0; i-- {
		if l := st.frames[i].loop; l != nil {
			return l
		}
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
