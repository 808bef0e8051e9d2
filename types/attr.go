package types

import "github.com/ardnew/jinx/value"

func method(ret Type, params ...Type) Type { return FuncOf(params, ret) }

var stringAttrs = map[string]Type{
	"capitalize": method(String),
	"count":      method(Integer, String),
	"endswith":   method(Bool, String),
	"format":     method(String),
	"isalpha":    method(Bool),
	"isdigit":    method(Bool),
	"isspace":    method(Bool),
	"join":       method(String, SeqOf(Any)),
	"lower":      method(String),
	"lstrip":     method(String),
	"replace":    method(String, String, String),
	"rstrip":     method(String),
	"split":      method(SeqOf(String)),
	"startswith": method(Bool, String),
	"strip":      method(String),
	"title":      method(String),
	"upper":      method(String),
}

var timestampAttrs = map[string]Type{
	"day":       Integer,
	"hour":      Integer,
	"isoformat": method(String),
	"minute":    Integer,
	"month":     Integer,
	"second":    Integer,
	"strftime":  method(String, String),
	"year":      Integer,
}

var macroAttrs = map[string]Type{
	"arguments": SeqOf(String),
	"caller":    Bool,
	"name":      String,
}

var objectAttrs = map[string]map[string]Type{
	"adapter": {
		"dispatch":                method(Any, String),
		"get_columns_in_relation": method(SeqOf(ObjectOf("column")), ObjectOf("relation")),
		"get_relation":            method(OptionalOf(ObjectOf("relation")), String, String, String),
		"quote":                   method(String, String),
		"type":                    method(String),
	},
	"api": {
		"Column":   method(ObjectOf("column")),
		"Relation": method(ObjectOf("relation")),
	},
	"column": {
		"data_type": String,
		"dtype":     String,
		"name":      String,
		"quoted":    String,
	},
	"config": {
		"get":     method(Any, String),
		"require": method(Any, String),
	},
	"model": {
		"alias":     String,
		"config":    ObjectOf("config"),
		"name":      String,
		"schema":    String,
		"unique_id": String,
	},
	"node": {
		"config":        ObjectOf("config"),
		"name":          String,
		"resource_type": String,
		"unique_id":     String,
	},
	"relation": {
		"database":   String,
		"identifier": String,
		"include":    method(ObjectOf("relation")),
		"is_table":   Bool,
		"is_view":    Bool,
		"name":       String,
		"render":     method(String),
		"schema":     String,
		"type":       String,
	},
}

// Attr returns the type of attribute name on t and whether t has it.
func Attr(t Type, name string) (Type, bool) {
	var table map[string]Type

	switch t.kind {
	case KindAny, KindUndefined, KindInvalid:
		return Any, true
	case KindUnion:
		return unionAttr(t, name)
	case KindString:
		table = stringAttrs
	case KindTimestamp:
		table = timestampAttrs
	case KindFunction:
		table = macroAttrs
	case KindObject:
		table = objectAttrs[t.name]
	case KindSeq:
		table = map[string]Type{
			"append": method(None, t.Elem()),
			"count":  method(Integer, t.Elem()),
			"extend": method(None, t),
			"index":  method(Integer, t.Elem()),
			"pop":    method(t.Elem()),
		}
	case KindMap:
		table = map[string]Type{
			"get":    method(OptionalOf(t.Value()), t.Key()),
			"items":  method(SeqOf(TupleOf(t.Key(), t.Value()))),
			"keys":   method(SeqOf(t.Key())),
			"pop":    method(t.Value(), t.Key()),
			"update": method(None, t),
			"values": method(SeqOf(t.Value())),
		}

		if a, ok := table[name]; ok {
			return a, true
		}

		return t.Value(), true
	}

	a, ok := table[name]
	if !ok {
		return Invalid, false
	}

	return a, true
}

func unionAttr(t Type, name string) (Type, bool) {
	out := None

	for _, m := range t.elems {
		if m.IsNone() {
			continue
		}

		a, ok := Attr(m, name)
		if !ok {
			return Invalid, false
		}

		out = Union(out, a)
	}

	return out, true
}

// AttrNames returns the attribute names known for t.
func AttrNames(t Type) []string {
	var table map[string]Type

	switch t.kind {
	case KindString:
		table = stringAttrs
	case KindTimestamp:
		table = timestampAttrs
	case KindFunction:
		table = macroAttrs
	case KindObject:
		table = objectAttrs[t.name]
	}

	names := make([]string, 0, len(table))
	for n := range table {
		names = append(names, n)
	}

	return names
}

// Item returns the type of t[key].
func Item(t Type) Type {
	switch t.kind {
	case KindSeq:
		return t.Elem()
	case KindMap:
		return t.Value()
	case KindString:
		return String
	case KindTuple:
		return UnionOf(t.elems...)
	default:
		return Any
	}
}

// FromValue infers the type of a runtime value. Containers take the union
// of their element types.
func FromValue(v value.Value) Type {
	switch v.Kind() {
	case value.Undefined:
		return Undefined
	case value.None:
		return None
	case value.Bool:
		return Bool
	case value.Int:
		return Integer
	case value.Float:
		return Float
	case value.String:
		return String
	case value.Seq:
		if len(v.Items()) == 0 {
			return SeqOf(Any)
		}

		elem := None
		for _, it := range v.Items() {
			elem = Union(elem, FromValue(it))
		}

		return SeqOf(elem)
	case value.Map, value.Kwargs:
		val := None
		for _, it := range v.Dict().All() {
			val = Union(val, FromValue(it))
		}

		if v.Dict().Len() == 0 {
			val = Any
		}

		return MapOf(String, val)
	case value.Object:
		if _, ok := v.Object().(value.Callable); ok {
			return FuncOf(nil, Any)
		}

		if name := v.Object().TypeName(); IsObjectKind(name) {
			return ObjectOf(name)
		}

		return Any
	default:
		return Any
	}
}
