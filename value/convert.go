package value

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"
)

// FromGo converts a Go value, as produced by YAML or expression decoding,
// into a Value. Unsupported types become objects rendered with fmt.
func FromGo(x any) Value {
	switch x := x.(type) {
	case nil:
		return Nil()
	case Value:
		return x
	case ObjectValue:
		return FromObject(x)
	case bool:
		return FromBool(x)
	case int:
		return FromInt(int64(x))
	case int8:
		return FromInt(int64(x))
	case int16:
		return FromInt(int64(x))
	case int32:
		return FromInt(int64(x))
	case int64:
		return FromInt(x)
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return FromInt(int64(x))
	case uint16:
		return FromInt(int64(x))
	case uint32:
		return FromInt(int64(x))
	case uint64:
		return fromUint(x)
	case float32:
		return FromFloat(float64(x))
	case float64:
		return FromFloat(x)
	case string:
		return FromString(x)
	case []byte:
		return FromString(string(x))
	case time.Time:
		return FromString(x.Format(time.RFC3339Nano))
	case []any:
		out := make([]Value, len(x))
		for i, it := range x {
			out[i] = FromGo(it)
		}

		return FromSlice(out)
	case map[string]any:
		d := NewDict()
		for _, k := range sortedKeys(x) {
			d.Set(k, FromGo(x[k]))
		}

		return FromDict(d)
	}

	return fromReflect(reflect.ValueOf(x))
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return FromFloat(float64(u))
	}

	return FromInt(int64(u))
}

func fromReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]Value, rv.Len())
		for i := range out {
			out[i] = FromGo(rv.Index(i).Interface())
		}

		return FromSlice(out)

	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		vals := make(map[string]any, rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			k := fmt.Sprint(iter.Key().Interface())
			keys = append(keys, k)
			vals[k] = iter.Value().Interface()
		}

		sort.Strings(keys)

		d := NewDict()
		for _, k := range keys {
			d.Set(k, FromGo(vals[k]))
		}

		return FromDict(d)

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Nil()
		}

		return FromGo(rv.Elem().Interface())

	case reflect.Func:
		return FromObject(goFunc{rv})

	default:
		return FromString(fmt.Sprint(rv.Interface()))
	}
}

// FromOrderedMap converts entries already in the desired order.
func FromOrderedMap(keys []string, m map[string]any) Value {
	d := NewDict()
	for _, k := range keys {
		d.Set(k, FromGo(m[k]))
	}

	return FromDict(d)
}

// ToGo converts v into plain Go values suitable for serialization.
func (v Value) ToGo() any {
	switch v.kind {
	case Undefined, None:
		return nil
	case Bool:
		return v.b
	case Int:
		return v.i
	case Float:
		return v.f
	case String:
		return v.s
	case Seq:
		out := make([]any, len(v.Items()))
		for i, it := range v.Items() {
			out[i] = it.ToGo()
		}

		return out
	case Map, Kwargs:
		out := make(map[string]any, v.Dict().Len())
		for k, it := range v.Dict().All() {
			out[k] = it.ToGo()
		}

		return out
	default:
		return v.String()
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// goFunc exposes a Go function value taking and returning plain values.
type goFunc struct{ fn reflect.Value }

func (goFunc) TypeName() string { return "function" }

func (f goFunc) Call(args []Value, _ *Dict) (Value, error) {
	t := f.fn.Type()
	if !t.IsVariadic() && len(args) != t.NumIn() {
		return Value{}, fmt.Errorf("expected %d arguments, got %d", t.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))

	for i, a := range args {
		pt := t.In(min(i, t.NumIn()-1))
		if t.IsVariadic() && i >= t.NumIn()-1 {
			pt = pt.Elem()
		}

		rv := reflect.ValueOf(a.ToGo())
		if !rv.IsValid() {
			rv = reflect.Zero(pt)
		}

		if !rv.Type().ConvertibleTo(pt) {
			return Value{}, fmt.Errorf("argument %d: cannot use %s as %s", i, a.TypeName(), pt)
		}

		in[i] = rv.Convert(pt)
	}

	out := f.fn.Call(in)
	if len(out) == 0 {
		return Nil(), nil
	}

	if len(out) == 2 && !out[1].IsNil() {
		if err, ok := out[1].Interface().(error); ok {
			return Value{}, err
		}
	}

	return FromGo(out[0].Interface()), nil
}
