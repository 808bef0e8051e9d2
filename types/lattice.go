package types

import (
	"cmp"
	"slices"
	"strings"
)

// Union returns the least type covering a and b. Nested unions are
// flattened and members de-duplicated; Any absorbs and None is the
// identity.
func Union(a, b Type) Type {
	switch {
	case a.IsAny() || b.IsAny():
		return Any
	case a.IsNone():
		return b
	case b.IsNone():
		return a
	}

	var members []Type

	for _, t := range slices.Concat(a.Flatten(), b.Flatten()) {
		if !slices.ContainsFunc(members, t.Equal) {
			members = append(members, t)
		}
	}

	return collapse(members)
}

// UnionOf folds [Union] over ts. It returns None when ts is empty.
func UnionOf(ts ...Type) Type {
	out := None
	for _, t := range ts {
		out = Union(out, t)
	}

	return out
}

// OptionalOf returns t widened with a None member.
func OptionalOf(t Type) Type {
	if t.IsAny() || t.IsNone() || t.IsOptional() {
		return t
	}

	return collapse(append(t.Flatten(), None))
}

func collapse(members []Type) Type {
	switch len(members) {
	case 0:
		return None
	case 1:
		return members[0]
	}

	slices.SortFunc(members, compare)

	return Type{kind: KindUnion, elems: members}
}

func compare(a, b Type) int {
	if c := cmp.Compare(a.kind, b.kind); c != 0 {
		return c
	}

	return strings.Compare(a.String(), b.String())
}

// Coerce returns the common type of a and b, or None when they have no
// valid common type.
func Coerce(a, b Type) Type {
	switch {
	case a.IsAny() || b.IsAny():
		return Any
	case a.IsNone():
		return b
	case b.IsNone():
		return a
	case a.IsUnion() || b.IsUnion():
		out := None

		for _, x := range a.Flatten() {
			for _, y := range b.Flatten() {
				out = Union(out, Coerce(x, y))
			}
		}

		return out
	case a.kind == KindSeq && b.kind == KindSeq:
		elem := Coerce(a.Elem(), b.Elem())
		if elem.IsNone() && !(a.Elem().IsNone() && b.Elem().IsNone()) {
			return None
		}

		return SeqOf(elem)
	case a.Equal(b):
		return a
	default:
		return None
	}
}

// CanCompareWith reports whether a and b may be operands of the comparison
// op. Unions must be narrowed before they compare with anything but Any or
// None.
func CanCompareWith(a, b Type, op string) bool {
	if op == "in" || op == "not in" {
		switch b.kind {
		case KindSeq:
			return CanCompareWith(a, b.Elem(), "==")
		case KindMap:
			return CanCompareWith(a, b.Key(), "==")
		case KindString:
			return a.IsAny() || a.IsNone() || a.kind == KindString
		}
	}

	switch {
	case a.IsAny() || b.IsAny() || a.IsNone() || b.IsNone():
		return true
	case a.IsUnion() && b.IsUnion():
		return false
	case a.kind == KindSeq && b.kind == KindSeq:
		return CanCompareWith(a.Elem(), b.Elem(), op)
	default:
		return a.Equal(b)
	}
}

// IsSubtypeOf reports whether a value of type t is acceptable where o is
// expected.
func (t Type) IsSubtypeOf(o Type) bool {
	switch {
	case t.IsAny() || o.IsAny():
		return true
	case t.IsUnion():
		for _, m := range t.elems {
			if !m.IsSubtypeOf(o) {
				return false
			}
		}

		return true
	case o.IsUnion():
		return slices.ContainsFunc(o.elems, t.IsSubtypeOf)
	case t.kind == KindInteger && o.kind == KindFloat:
		return true
	case t.kind == KindSeq && o.kind == KindSeq:
		return t.Elem().IsSubtypeOf(o.Elem())
	case t.kind == KindTuple && o.kind == KindSeq:
		for _, m := range t.elems {
			if !m.IsSubtypeOf(o.Elem()) {
				return false
			}
		}

		return true
	case t.kind == KindMap && o.kind == KindMap:
		return t.Key().IsSubtypeOf(o.Key()) && t.Value().IsSubtypeOf(o.Value())
	case t.kind == KindTuple && o.kind == KindTuple:
		if len(t.elems) != len(o.elems) {
			return false
		}

		for i := range t.elems {
			if !t.elems[i].IsSubtypeOf(o.elems[i]) {
				return false
			}
		}

		return true
	default:
		return t.Equal(o)
	}
}

func isNumber(t Type) bool { return t.kind == KindInteger || t.kind == KindFloat }

// indeterminate types never produce operator diagnostics.
func indeterminate(t Type) bool {
	switch t.kind {
	case KindAny, KindNone, KindUndefined, KindUnion, KindInvalid:
		return true
	default:
		return false
	}
}

// Arithmetic returns the result type of the binary operator op applied to
// a and b, and false when the operands do not support it.
func Arithmetic(op string, a, b Type) (Type, bool) {
	if op == "~" {
		return String, true
	}

	if indeterminate(a) || indeterminate(b) {
		return Any, true
	}

	switch {
	case isNumber(a) && isNumber(b):
		if op == "/" || a.kind == KindFloat || b.kind == KindFloat {
			return Float, true
		}

		return Integer, true
	case a.kind == KindString && b.kind == KindString && op == "+":
		return String, true
	case a.kind == KindString && op == "%":
		return String, true
	case op == "*" && (a.kind == KindString && b.kind == KindInteger ||
		a.kind == KindInteger && b.kind == KindString):
		return String, true
	case a.kind == KindSeq && b.kind == KindSeq && op == "+":
		return SeqOf(Union(a.Elem(), b.Elem())), true
	case a.kind == KindTuple && b.kind == KindTuple && op == "+":
		return TupleOf(slices.Concat(a.elems, b.elems)...), true
	case a.kind == KindSeq && b.kind == KindInteger && op == "*":
		return a, true
	case a.kind == KindTimestamp && b.kind == KindTimestamp && op == "-":
		return Any, true
	}

	return Invalid, false
}

// Negate returns the type of unary minus applied to t.
func Negate(t Type) (Type, bool) {
	switch {
	case indeterminate(t):
		return Any, true
	case isNumber(t):
		return t, true
	default:
		return Invalid, false
	}
}
