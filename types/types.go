package types

import (
	"slices"
	"strconv"
	"strings"
)

// Kind classifies a [Type].
type Kind uint8

// Type kinds.
const (
	KindInvalid Kind = iota
	KindUndefined
	KindNone
	KindAny
	KindString
	KindInteger
	KindFloat
	KindBool
	KindBytes
	KindTimestamp
	KindSeq
	KindMap
	KindTuple
	KindUnion
	KindFunction
	KindObject
)

var kindName = [...]string{
	KindInvalid:   "invalid",
	KindUndefined: "undefined",
	KindNone:      "none",
	KindAny:       "any",
	KindString:    "string",
	KindInteger:   "integer",
	KindFloat:     "float",
	KindBool:      "bool",
	KindBytes:     "bytes",
	KindTimestamp: "timestamp",
	KindSeq:       "list",
	KindMap:       "dict",
	KindTuple:     "tuple",
	KindUnion:     "union",
	KindFunction:  "function",
	KindObject:    "object",
}

func (k Kind) String() string {
	if int(k) < len(kindName) {
		return kindName[k]
	}

	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Type is an immutable structural type. The zero Type is Invalid.
type Type struct {
	ret   *Type
	name  string
	elems []Type
	kind  Kind
}

// Basic types.
var (
	Invalid   = Type{kind: KindInvalid}
	Undefined = Type{kind: KindUndefined}
	None      = Type{kind: KindNone}
	Any       = Type{kind: KindAny}
	String    = Type{kind: KindString}
	Integer   = Type{kind: KindInteger}
	Float     = Type{kind: KindFloat}
	Bool      = Type{kind: KindBool}
	Bytes     = Type{kind: KindBytes}
	Timestamp = Type{kind: KindTimestamp}
)

// Domain object kinds understood by signatures.
var objectKinds = []string{"adapter", "api", "column", "config", "model", "node", "relation"}

// SeqOf returns the sequence type with elements of type elem.
func SeqOf(elem Type) Type { return Type{kind: KindSeq, elems: []Type{elem}} }

// MapOf returns the mapping type from key to val.
func MapOf(key, val Type) Type { return Type{kind: KindMap, elems: []Type{key, val}} }

// TupleOf returns the fixed-length sequence type of items.
func TupleOf(items ...Type) Type { return Type{kind: KindTuple, elems: slices.Clone(items)} }

// FuncOf returns the type of a callable taking params and returning ret.
func FuncOf(params []Type, ret Type) Type {
	return Type{kind: KindFunction, elems: slices.Clone(params), ret: &ret}
}

// ObjectOf returns the domain object type called name.
func ObjectOf(name string) Type { return Type{kind: KindObject, name: name} }

// IsObjectKind reports whether name is a known domain object kind.
func IsObjectKind(name string) bool {
	_, ok := slices.BinarySearch(objectKinds, name)

	return ok
}

func (t Type) Kind() Kind { return t.kind }

// Name returns the object kind name of an Object type.
func (t Type) Name() string { return t.name }

// Elem returns the element type of a Seq, or Any.
func (t Type) Elem() Type {
	if t.kind == KindSeq {
		return t.elems[0]
	}

	return Any
}

// Key returns the key type of a Map, or Any.
func (t Type) Key() Type {
	if t.kind == KindMap {
		return t.elems[0]
	}

	return Any
}

// Value returns the value type of a Map, or Any.
func (t Type) Value() Type {
	if t.kind == KindMap {
		return t.elems[1]
	}

	return Any
}

// Members returns the members of a Union or the items of a Tuple.
func (t Type) Members() []Type {
	if t.kind == KindUnion || t.kind == KindTuple {
		return slices.Clone(t.elems)
	}

	return nil
}

// Params returns the parameter types of a Function.
func (t Type) Params() []Type {
	if t.kind == KindFunction {
		return slices.Clone(t.elems)
	}

	return nil
}

// Return returns the result type of a Function, or Any.
func (t Type) Return() Type {
	if t.kind == KindFunction && t.ret != nil {
		return *t.ret
	}

	return Any
}

func (t Type) IsAny() bool   { return t.kind == KindAny }
func (t Type) IsNone() bool  { return t.kind == KindNone }
func (t Type) IsUnion() bool { return t.kind == KindUnion }

// IsOptional reports whether t is a Union containing None.
func (t Type) IsOptional() bool {
	return t.kind == KindUnion && slices.ContainsFunc(t.elems, Type.IsNone)
}

// NonOptional returns t without its None member.
func (t Type) NonOptional() Type {
	if !t.IsOptional() {
		return t
	}

	return UnionOf(slices.DeleteFunc(slices.Clone(t.elems), Type.IsNone)...)
}

// Flatten returns the members of t, or t alone when it is not a Union.
func (t Type) Flatten() []Type {
	if t.kind == KindUnion {
		return slices.Clone(t.elems)
	}

	return []Type{t}
}

// Equal reports whether t and o are structurally identical.
func (t Type) Equal(o Type) bool {
	if t.kind != o.kind || t.name != o.name || len(t.elems) != len(o.elems) {
		return false
	}

	for i := range t.elems {
		if !t.elems[i].Equal(o.elems[i]) {
			return false
		}
	}

	if t.kind == KindFunction {
		return t.Return().Equal(o.Return())
	}

	return true
}

// String formats t in signature syntax.
func (t Type) String() string {
	switch t.kind {
	case KindSeq:
		return "list[" + t.elems[0].String() + "]"
	case KindMap:
		return "dict[" + t.elems[0].String() + ", " + t.elems[1].String() + "]"
	case KindTuple:
		return "tuple[" + join(t.elems, ", ") + "]"
	case KindUnion:
		return join(t.elems, " | ")
	case KindFunction:
		return "(" + join(t.elems, ", ") + ") -> " + t.Return().String()
	case KindObject:
		return t.name
	default:
		return t.kind.String()
	}
}

func join(ts []Type, sep string) string {
	s := make([]string, len(ts))
	for i, t := range ts {
		s[i] = t.String()
	}

	return strings.Join(s, sep)
}
