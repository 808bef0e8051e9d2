package value

import (
	"math"
	"strconv"
	"strings"
)

// String renders v as template output. Undefined renders empty.
func (v Value) String() string {
	switch v.kind {
	case Undefined:
		return ""
	case String:
		return v.s
	default:
		var b strings.Builder
		v.repr(&b)

		return b.String()
	}
}

// Repr renders v the way it appears inside a container, with strings
// quoted.
func (v Value) Repr() string {
	var b strings.Builder
	v.repr(&b)

	return b.String()
}

func (v Value) repr(b *strings.Builder) {
	switch v.kind {
	case Undefined:
		b.WriteString("Undefined")
	case None:
		b.WriteString("None")
	case Bool:
		if v.b {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case Int:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case Float:
		b.WriteString(formatFloat(v.f))
	case String:
		b.WriteString(quote(v.s))
	case Seq:
		b.WriteByte('[')

		for i, it := range v.Items() {
			if i > 0 {
				b.WriteString(", ")
			}

			it.repr(b)
		}

		b.WriteByte(']')
	case Map, Kwargs:
		b.WriteByte('{')

		i := 0
		for k, it := range v.Dict().All() {
			if i > 0 {
				b.WriteString(", ")
			}

			b.WriteString(quote(k))
			b.WriteString(": ")
			it.repr(b)

			i++
		}

		b.WriteByte('}')
	case Object:
		if s, ok := v.obj.(interface{ String() string }); ok {
			b.WriteString(s.String())
		} else {
			b.WriteString("<" + v.TypeName() + ">")
		}
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}

	format := byte('f')
	if a := math.Abs(f); a != 0 && (a < 1e-4 || a >= 1e16) {
		format = 'e'
	}

	s := strconv.FormatFloat(f, format, -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}

	return s
}

func quote(s string) string {
	q := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		q = '"'
	}

	var b strings.Builder

	b.WriteByte(q)

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case q, '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}

	b.WriteByte(q)

	return b.String()
}
