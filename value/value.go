package value

import (
	"fmt"
	"iter"
	"maps"
	"slices"
)

// Kind is the dynamic type of a [Value].
type Kind uint8

// Value kinds.
const (
	Undefined Kind = iota
	None
	Bool
	Int
	Float
	String
	Seq
	Map
	Kwargs
	Object
)

var kindName = [...]string{
	Undefined: "undefined",
	None:      "none",
	Bool:      "bool",
	Int:       "integer",
	Float:     "float",
	String:    "string",
	Seq:       "sequence",
	Map:       "map",
	Kwargs:    "keyword arguments",
	Object:    "object",
}

func (k Kind) String() string {
	if int(k) < len(kindName) {
		return kindName[k]
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a runtime value. The zero Value is Undefined.
type Value struct {
	obj  any // *List, *Dict or an Object
	s    string
	i    int64
	f    float64
	kind Kind
	b    bool
	safe bool
}

// ObjectValue is implemented by host objects exposed to templates.
type ObjectValue interface {
	TypeName() string
}

// AttrGetter is implemented by objects with attributes.
type AttrGetter interface {
	GetAttr(name string) (Value, bool)
}

// Callable is implemented by objects that can be called with plain
// arguments.
type Callable interface {
	Call(args []Value, kwargs *Dict) (Value, error)
}

// List is a mutable sequence shared by every Value referring to it.
type List struct {
	Items []Value
}

// Dict is an insertion-ordered map with string keys.
type Dict struct {
	vals map[string]Value
	keys []string
}

// NewDict returns an empty Dict.
func NewDict() *Dict { return &Dict{vals: map[string]Value{}} }

// Set stores v at k, keeping the position of an existing key.
func (d *Dict) Set(k string, v Value) {
	if _, ok := d.vals[k]; !ok {
		d.keys = append(d.keys, k)
	}

	d.vals[k] = v
}

// Get returns the value at k.
func (d *Dict) Get(k string) (Value, bool) {
	if d == nil {
		return Value{}, false
	}

	v, ok := d.vals[k]

	return v, ok
}

// Delete removes k.
func (d *Dict) Delete(k string) {
	if _, ok := d.vals[k]; !ok {
		return
	}

	delete(d.vals, k)
	d.keys = slices.DeleteFunc(d.keys, func(s string) bool { return s == k })
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}

	return len(d.keys)
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	if d == nil {
		return nil
	}

	return slices.Clone(d.keys)
}

// All iterates over the entries in insertion order.
func (d *Dict) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if d == nil {
			return
		}

		for _, k := range d.keys {
			if !yield(k, d.vals[k]) {
				return
			}
		}
	}
}

// Clone returns a shallow copy of d.
func (d *Dict) Clone() *Dict {
	if d == nil {
		return NewDict()
	}

	return &Dict{vals: maps.Clone(d.vals), keys: slices.Clone(d.keys)}
}

// Undef returns the undefined value.
func Undef() Value { return Value{} }

// Nil returns none.
func Nil() Value { return Value{kind: None} }

func FromBool(b bool) Value { return Value{kind: Bool, b: b} }

func FromInt(i int64) Value { return Value{kind: Int, i: i} }

func FromFloat(f float64) Value { return Value{kind: Float, f: f} }

func FromString(s string) Value { return Value{kind: String, s: s} }

// FromSafeString returns a string exempt from auto-escaping.
func FromSafeString(s string) Value { return Value{kind: String, s: s, safe: true} }

// FromSlice returns a new list holding items.
func FromSlice(items []Value) Value {
	return Value{kind: Seq, obj: &List{Items: items}}
}

// FromList returns a Value sharing l.
func FromList(l *List) Value { return Value{kind: Seq, obj: l} }

// FromDict returns a Value sharing d.
func FromDict(d *Dict) Value { return Value{kind: Map, obj: d} }

// FromKwargs returns a keyword argument bundle holding d.
func FromKwargs(d *Dict) Value { return Value{kind: Kwargs, obj: d} }

// FromObject wraps a host object.
func FromObject(o ObjectValue) Value { return Value{kind: Object, obj: o} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == Undefined }

func (v Value) IsNone() bool { return v.kind == None }

// IsSafe reports whether v is a string exempt from auto-escaping.
func (v Value) IsSafe() bool { return v.safe }

func (v Value) IsNumber() bool { return v.kind == Int || v.kind == Float }

func (v Value) Bool() bool { return v.b }

func (v Value) Int() int64 { return v.i }

func (v Value) Str() string { return v.s }

// Float returns the numeric value of an integer or float.
func (v Value) Float() float64 {
	if v.kind == Int {
		return float64(v.i)
	}

	return v.f
}

// Object returns the host object of v, or nil.
func (v Value) Object() ObjectValue {
	o, _ := v.obj.(ObjectValue)

	return o
}

// MarkSafe returns v exempt from auto-escaping.
func (v Value) MarkSafe() Value {
	v.safe = true

	return v
}

// List returns the shared list of a sequence, or nil.
func (v Value) List() *List {
	if v.kind != Seq {
		return nil
	}

	return v.obj.(*List)
}

// Items returns the items of a sequence, or nil.
func (v Value) Items() []Value {
	if l := v.List(); l != nil {
		return l.Items
	}

	return nil
}

// Dict returns the shared dict of a map or kwargs value, or nil.
func (v Value) Dict() *Dict {
	if v.kind != Map && v.kind != Kwargs {
		return nil
	}

	return v.obj.(*Dict)
}

// TypeName names the dynamic type of v for messages and type tests.
func (v Value) TypeName() string {
	if o := v.Object(); o != nil && v.kind == Object {
		return o.TypeName()
	}

	return v.kind.String()
}
