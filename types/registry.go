package types

import (
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/ardnew/jinx/span"
)

// Signature describes a macro for the checker.
type Signature struct {
	Loc      span.CodeLocation // Declaration
	Name     string
	Args     []string
	Params   []Type
	Return   Type
	Required int  // Arguments without a default
	Typed    bool // Declared by a signature comment
}

// Untyped returns the signature of a macro without a declaration: every
// argument and the result are Any.
func Untyped(name string, args []string, required int, loc span.CodeLocation) *Signature {
	params := make([]Type, len(args))
	for i := range params {
		params[i] = Any
	}

	return &Signature{
		Name:     name,
		Args:     slices.Clone(args),
		Params:   params,
		Return:   Any,
		Required: required,
		Loc:      loc,
	}
}

// Type returns the function type of s.
func (s *Signature) Type() Type { return FuncOf(s.Params, s.Return) }

// AcceptsArity reports whether a call with n arguments matches s.
func (s *Signature) AcceptsArity(n int) bool { return n >= s.Required && n <= len(s.Params) }

func (s *Signature) String() string {
	args := make([]string, len(s.Args))

	for i, a := range s.Args {
		args[i] = a
		if i < len(s.Params) {
			args[i] += ": " + s.Params[i].String()
		}
	}

	return s.Name + "(" + strings.Join(args, ", ") + ") -> " + s.Return.String()
}

// Registry maps macro names to signatures. It is built before checking and
// only read afterward.
type Registry struct {
	sigs map[string]*Signature
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{sigs: map[string]*Signature{}} }

// Add registers sig, replacing any signature of the same name.
func (r *Registry) Add(sig *Signature) { r.sigs[sig.Name] = sig }

// Lookup returns the signature registered as name.
func (r *Registry) Lookup(name string) (*Signature, bool) {
	if r == nil {
		return nil, false
	}

	s, ok := r.sigs[name]

	return s, ok
}

// Merge adds every signature of o to r.
func (r *Registry) Merge(o *Registry) {
	if o != nil {
		maps.Copy(r.sigs, o.sigs)
	}
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}

	return len(r.sigs)
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}

	return slices.Sorted(maps.Keys(r.sigs))
}

// All iterates the signatures in name order.
func (r *Registry) All() iter.Seq[*Signature] {
	return func(yield func(*Signature) bool) {
		for _, name := range r.Names() {
			if !yield(r.sigs[name]) {
				return
			}
		}
	}
}
