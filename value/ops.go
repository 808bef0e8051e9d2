package value

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/ardnew/jinx/lang"
)

// Truthy reports whether v counts as true in a condition.
func (v Value) Truthy() bool {
	switch v.kind {
	case Undefined, None:
		return false
	case Bool:
		return v.b
	case Int:
		return v.i != 0
	case Float:
		return v.f != 0
	case String:
		return v.s != ""
	case Seq:
		return len(v.Items()) > 0
	case Map, Kwargs:
		return v.Dict().Len() > 0
	default:
		return true
	}
}

// Len returns the length of a string, sequence or map.
func (v Value) Len() (int, bool) {
	switch v.kind {
	case String:
		return utf8.RuneCountInString(v.s), true
	case Seq:
		return len(v.Items()), true
	case Map, Kwargs:
		return v.Dict().Len(), true
	default:
		return 0, false
	}
}

// Equal reports whether v and o are equal. Integers and floats compare
// numerically.
func (v Value) Equal(o Value) bool {
	if v.IsNumber() && o.IsNumber() {
		if v.kind == Int && o.kind == Int {
			return v.i == o.i
		}

		return v.Float() == o.Float()
	}

	if v.kind != o.kind {
		return (v.kind == Map || v.kind == Kwargs) && (o.kind == Map || o.kind == Kwargs) &&
			dictEqual(v.Dict(), o.Dict())
	}

	switch v.kind {
	case Undefined, None:
		return true
	case Bool:
		return v.b == o.b
	case String:
		return v.s == o.s
	case Seq:
		return slices.EqualFunc(v.Items(), o.Items(), Value.Equal)
	case Map, Kwargs:
		return dictEqual(v.Dict(), o.Dict())
	default:
		return v.obj == o.obj
	}
}

func dictEqual(a, b *Dict) bool {
	if a.Len() != b.Len() {
		return false
	}

	for k, av := range a.All() {
		bv, ok := b.Get(k)
		if !ok || !av.Equal(bv) {
			return false
		}
	}

	return true
}

// Compare orders v and o. It reports false when they are not ordered.
func (v Value) Compare(o Value) (int, bool) {
	switch {
	case v.kind == Int && o.kind == Int:
		return cmp.Compare(v.i, o.i), true
	case v.IsNumber() && o.IsNumber():
		return cmp.Compare(v.Float(), o.Float()), true
	case v.kind == String && o.kind == String:
		return strings.Compare(v.s, o.s), true
	case v.kind == Bool && o.kind == Bool:
		return cmp.Compare(b2i(v.b), b2i(o.b)), true
	case v.kind == Seq && o.kind == Seq:
		a, b := v.Items(), o.Items()
		for i := range min(len(a), len(b)) {
			c, ok := a[i].Compare(b[i])
			if !ok {
				return 0, false
			}

			if c != 0 {
				return c, true
			}
		}

		return cmp.Compare(len(a), len(b)), true
	default:
		return 0, false
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}

	return 0
}

// Iterate returns the items produced by iterating v: sequence items, map
// keys or string characters. Undefined and none iterate as empty.
func (v Value) Iterate() ([]Value, error) {
	switch v.kind {
	case Undefined, None:
		return nil, nil
	case Seq:
		return slices.Clone(v.Items()), nil
	case Map, Kwargs:
		keys := v.Dict().Keys()
		out := make([]Value, len(keys))

		for i, k := range keys {
			out[i] = FromString(k)
		}

		return out, nil
	case String:
		out := make([]Value, 0, len(v.s))
		for _, r := range v.s {
			out = append(out, FromString(string(r)))
		}

		return out, nil
	default:
		return nil, lang.ErrNotIterable.With(slog.String("type", v.TypeName()))
	}
}

// GetAttr looks up an attribute: a map key or an object attribute.
// Missing attributes are Undefined.
func (v Value) GetAttr(name string) Value {
	switch v.kind {
	case Map, Kwargs:
		r, _ := v.Dict().Get(name)

		return r
	case Object:
		if g, ok := v.obj.(AttrGetter); ok {
			r, _ := g.GetAttr(name)

			return r
		}
	}

	return Undef()
}

// GetItem looks up a subscript: a sequence or string index (negative counts
// from the end), a map key or an object attribute. Missing items are
// Undefined.
func (v Value) GetItem(key Value) Value {
	switch v.kind {
	case Seq:
		items := v.Items()
		if i, ok := index(key, len(items)); ok {
			return items[i]
		}
	case String:
		rs := []rune(v.s)
		if i, ok := index(key, len(rs)); ok {
			return FromString(string(rs[i]))
		}
	case Map, Kwargs, Object:
		return v.GetAttr(key.String())
	}

	return Undef()
}

func index(key Value, n int) (int, bool) {
	if key.kind != Int {
		return 0, false
	}

	i := int(key.i)
	if i < 0 {
		i += n
	}

	return i, i >= 0 && i < n
}

// Contains implements the "in" operator with v as the container.
func (v Value) Contains(item Value) (bool, error) {
	switch v.kind {
	case String:
		if item.kind != String {
			return false, lang.ErrInvalidOperation.Wrapf(
				"cannot check whether %s is in a string", item.TypeName())
		}

		return strings.Contains(v.s, item.s), nil
	case Seq:
		return slices.ContainsFunc(v.Items(), item.Equal), nil
	case Map, Kwargs:
		_, ok := v.Dict().Get(item.String())

		return ok, nil
	case Undefined, None:
		return false, nil
	default:
		return false, lang.ErrInvalidOperation.Wrapf(
			"cannot perform a containment check on %s", v.TypeName())
	}
}

// Binary operators.

// Add implements +.
func Add(a, b Value) (Value, error) {
	switch {
	case a.kind == Int && b.kind == Int:
		r := a.i + b.i
		if (r > a.i) != (b.i > 0) {
			return Value{}, overflow("+", a, b)
		}

		return FromInt(r), nil
	case a.IsNumber() && b.IsNumber():
		return FromFloat(a.Float() + b.Float()), nil
	case a.kind == String && b.kind == String:
		return Value{kind: String, s: a.s + b.s, safe: a.safe && b.safe}, nil
	case a.kind == Seq && b.kind == Seq:
		return FromSlice(slices.Concat(a.Items(), b.Items())), nil
	default:
		return Value{}, unsupported("+", a, b)
	}
}

// Sub implements -.
func Sub(a, b Value) (Value, error) {
	switch {
	case a.kind == Int && b.kind == Int:
		r := a.i - b.i
		if (r < a.i) != (b.i > 0) {
			return Value{}, overflow("-", a, b)
		}

		return FromInt(r), nil
	case a.IsNumber() && b.IsNumber():
		return FromFloat(a.Float() - b.Float()), nil
	default:
		return Value{}, unsupported("-", a, b)
	}
}

// Mul implements *.
func Mul(a, b Value) (Value, error) {
	switch {
	case a.kind == Int && b.kind == Int:
		if a.i != 0 && b.i != 0 {
			r := a.i * b.i
			if r/b.i != a.i || (a.i == -1 && b.i == math.MinInt64) || (b.i == -1 && a.i == math.MinInt64) {
				return Value{}, overflow("*", a, b)
			}

			return FromInt(r), nil
		}

		return FromInt(0), nil
	case a.IsNumber() && b.IsNumber():
		return FromFloat(a.Float() * b.Float()), nil
	case a.kind == String && b.kind == Int:
		return FromString(strings.Repeat(a.s, int(max(b.i, 0)))), nil
	case a.kind == Int && b.kind == String:
		return Mul(b, a)
	case a.kind == Seq && b.kind == Int:
		var out []Value
		for range max(b.i, 0) {
			out = append(out, a.Items()...)
		}

		return FromSlice(out), nil
	default:
		return Value{}, unsupported("*", a, b)
	}
}

// Div implements /, which always produces a float.
func Div(a, b Value) (Value, error) {
	if !a.IsNumber() || !b.IsNumber() {
		return Value{}, unsupported("/", a, b)
	}

	if b.Float() == 0 {
		return Value{}, lang.ErrInvalidOperation.Wrapf("division by zero")
	}

	return FromFloat(a.Float() / b.Float()), nil
}

// FloorDiv implements //.
func FloorDiv(a, b Value) (Value, error) {
	switch {
	case a.kind == Int && b.kind == Int:
		if b.i == 0 {
			return Value{}, lang.ErrInvalidOperation.Wrapf("integer division by zero")
		}

		q := a.i / b.i
		if (a.i%b.i != 0) && ((a.i < 0) != (b.i < 0)) {
			q--
		}

		return FromInt(q), nil
	case a.IsNumber() && b.IsNumber():
		if b.Float() == 0 {
			return Value{}, lang.ErrInvalidOperation.Wrapf("float floor division by zero")
		}

		return FromFloat(math.Floor(a.Float() / b.Float())), nil
	default:
		return Value{}, unsupported("//", a, b)
	}
}

// Rem implements %, taking the sign of the divisor.
func Rem(a, b Value) (Value, error) {
	switch {
	case a.kind == Int && b.kind == Int:
		if b.i == 0 {
			return Value{}, lang.ErrInvalidOperation.Wrapf("integer modulo by zero")
		}

		r := a.i % b.i
		if r != 0 && (r < 0) != (b.i < 0) {
			r += b.i
		}

		return FromInt(r), nil
	case a.IsNumber() && b.IsNumber():
		if b.Float() == 0 {
			return Value{}, lang.ErrInvalidOperation.Wrapf("float modulo by zero")
		}

		r := math.Mod(a.Float(), b.Float())
		if r != 0 && (r < 0) != (b.Float() < 0) {
			r += b.Float()
		}

		return FromFloat(r), nil
	default:
		return Value{}, unsupported("%", a, b)
	}
}

// Pow implements **.
func Pow(a, b Value) (Value, error) {
	switch {
	case a.kind == Int && b.kind == Int && b.i >= 0:
		r := int64(1)
		for range b.i {
			next := r * a.i
			if a.i != 0 && next/a.i != r {
				return Value{}, overflow("**", a, b)
			}

			r = next
		}

		return FromInt(r), nil
	case a.IsNumber() && b.IsNumber():
		return FromFloat(math.Pow(a.Float(), b.Float())), nil
	default:
		return Value{}, unsupported("**", a, b)
	}
}

// Neg implements unary -.
func Neg(a Value) (Value, error) {
	switch a.kind {
	case Int:
		if a.i == math.MinInt64 {
			return Value{}, lang.ErrInvalidOperation.Wrapf("integer overflow in negation")
		}

		return FromInt(-a.i), nil
	case Float:
		return FromFloat(-a.f), nil
	default:
		return Value{}, lang.ErrInvalidOperation.Wrapf(
			"tried to use - operator on unsupported type %s", a.TypeName())
	}
}

// Concat implements ~, joining the rendered forms of a and b.
func Concat(a, b Value) Value {
	return Value{kind: String, s: a.String() + b.String(), safe: a.safe && b.safe}
}

func unsupported(op string, a, b Value) error {
	return lang.ErrInvalidOperation.Wrapf(
		"tried to use %s operator on unsupported types %s and %s", op, a.TypeName(), b.TypeName())
}

func overflow(op string, a, b Value) error {
	return lang.ErrInvalidOperation.Wrapf(
		"integer overflow in %s %s %s", a.Repr(), op, b.Repr())
}
