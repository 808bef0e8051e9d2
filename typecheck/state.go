package typecheck

import (
	"maps"
	"slices"

	"github.com/ardnew/jinx/types"
)

// slot is one abstract operand stack entry. A kwargs bundle also keeps the
// names and types of its values.
type slot struct {
	t       types.Type
	kwNames []string
	kwTypes []types.Type
}

// variable is the type of a name and whether some path reaching this point
// leaves it unassigned.
type variable struct {
	t       types.Type
	partial bool
}

// state is the abstract machine state at a program point.
type state struct {
	vars  map[string]variable
	stack []slot
	loops []types.Type // item types of the open loops
	built types.Type   // item type of the most recently closed loop
}

func newState() *state { return &state{vars: map[string]variable{}, built: types.Any} }

func (s *state) clone() *state {
	return &state{
		vars:  maps.Clone(s.vars),
		stack: slices.Clone(s.stack),
		loops: slices.Clone(s.loops),
		built: s.built,
	}
}

// merge returns the join of s and o. Stacks of different depth are aligned
// at the top; a name assigned on only one side becomes partial.
func (s *state) merge(o *state) *state {
	if s == nil {
		return o.clone()
	}

	r := &state{
		vars:  make(map[string]variable, len(s.vars)),
		stack: mergeSlots(s.stack, o.stack),
		loops: mergeTypes(s.loops, o.loops),
		built: types.Union(s.built, o.built),
	}

	for name, a := range s.vars {
		b, ok := o.vars[name]
		if !ok {
			r.vars[name] = variable{t: a.t, partial: true}

			continue
		}

		r.vars[name] = variable{t: types.Union(a.t, b.t), partial: a.partial || b.partial}
	}

	for name, b := range o.vars {
		if _, ok := s.vars[name]; !ok {
			r.vars[name] = variable{t: b.t, partial: true}
		}
	}

	return r
}

// widen returns a copy of s with the type of each of its names joined with
// the type o gives it. Names only o assigns are not added.
func (s *state) widen(o *state) *state {
	r := s.clone()

	for name, v := range r.vars {
		if b, ok := o.vars[name]; ok {
			r.vars[name] = variable{t: types.Union(v.t, b.t), partial: v.partial}
		}
	}

	return r
}

func mergeSlots(a, b []slot) []slot {
	n := min(len(a), len(b))
	out := slices.Clone(a[len(a)-n:])

	for i := range out {
		out[i].t = types.Union(out[i].t, b[len(b)-n+i].t)
	}

	return out
}

func mergeTypes(a, b []types.Type) []types.Type {
	n := min(len(a), len(b))
	out := slices.Clone(a[len(a)-n:])

	for i := range out {
		out[i] = types.Union(out[i], b[len(b)-n+i])
	}

	return out
}

func (s *state) push(t types.Type) { s.stack = append(s.stack, slot{t: t}) }

// pop removes the top slot. An empty stack yields Any.
func (s *state) pop() slot {
	n := len(s.stack)
	if n == 0 {
		return slot{t: types.Any}
	}

	top := s.stack[n-1]
	s.stack = s.stack[:n-1]

	return top
}

// popN removes n slots and returns them bottom first.
func (s *state) popN(n int) []slot {
	out := make([]slot, max(n, 0))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = s.pop()
	}

	return out
}

func (s *state) top() slot {
	if len(s.stack) == 0 {
		return slot{t: types.Any}
	}

	return s.stack[len(s.stack)-1]
}

func (s *state) loop() types.Type {
	if len(s.loops) == 0 {
		return types.Any
	}

	return s.loops[len(s.loops)-1]
}
