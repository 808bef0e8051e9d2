package vm

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ardnew/jinx/lang"
	"github.com/ardnew/jinx/value"
)

type method func(recv value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error)

var methods = map[value.Kind]map[string]method{
	value.String: {
		"upper":      stringMethod(upper),
		"lower":      stringMethod(lower),
		"title":      stringMethod(title),
		"capitalize": stringMethod(capitalize),
		"strip":      trimMethod(strings.Trim),
		"lstrip":     trimMethod(strings.TrimLeft),
		"rstrip":     trimMethod(strings.TrimRight),
		"split":      splitMethod,
		"replace":    replaceMethod,
		"startswith": affixMethod(strings.HasPrefix),
		"endswith":   affixMethod(strings.HasSuffix),
		"count":      countMethod,
		"isdigit":    predicateMethod(unicode.IsDigit),
		"isalpha":    predicateMethod(unicode.IsLetter),
		"isspace":    predicateMethod(unicode.IsSpace),
	},
	value.Seq: {
		"count": func(recv value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
			if err := arity("count", args, 1, 1); err != nil {
				return value.Undef(), err
			}

			var n int64

			for _, it := range recv.Items() {
				if it.Equal(args[0]) {
					n++
				}
			}

			return value.FromInt(n), nil
		},
		"index": func(recv value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
			if err := arity("index", args, 1, 1); err != nil {
				return value.Undef(), err
			}

			for i, it := range recv.Items() {
				if it.Equal(args[0]) {
					return value.FromInt(int64(i)), nil
				}
			}

			return value.Undef(), lang.ErrInvalidOperation.Wrapf("%s is not in list", args[0].Repr())
		},
	},
	value.Map: {
		"keys": func(recv value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
			if err := arity("keys", args, 0, 0); err != nil {
				return value.Undef(), err
			}

			keys := recv.Dict().Keys()
			out := make([]value.Value, len(keys))

			for i, k := range keys {
				out[i] = value.FromString(k)
			}

			return value.FromSlice(out), nil
		},
		"values": func(recv value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
			if err := arity("values", args, 0, 0); err != nil {
				return value.Undef(), err
			}

			var out []value.Value
			for _, v := range recv.Dict().All() {
				out = append(out, v)
			}

			return value.FromSlice(out), nil
		},
		"items": func(recv value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
			if err := arity("items", args, 0, 0); err != nil {
				return value.Undef(), err
			}

			return pairs(recv.Dict()), nil
		},
		"get": func(recv value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
			if err := arity("get", args, 1, 2); err != nil {
				return value.Undef(), err
			}

			if v, ok := recv.Dict().Get(args[0].String()); ok {
				return v, nil
			}

			if len(args) == 2 {
				return args[1], nil
			}

			return value.Nil(), nil
		},
	},
}

func init() { methods[value.Kwargs] = methods[value.Map] }

// arity checks that len(args) is within [lo, hi].
func arity(name string, args []value.Value, lo, hi int) error {
	switch {
	case len(args) < lo:
		return lang.ErrMissingArgument.Wrapf("%s expects at least %d argument(s)", name, lo).
			With(slog.Int("given", len(args)))
	case len(args) > hi:
		return lang.ErrTooManyArguments.Wrapf("%s expects at most %d argument(s)", name, hi).
			With(slog.Int("given", len(args)))
	}

	return nil
}

func upper(s string) string { return cases.Upper(language.Und).String(s) }

func lower(s string) string { return cases.Lower(language.Und).String(s) }

func title(s string) string { return cases.Title(language.Und).String(s) }

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}

	return upper(string(r)) + lower(s[n:])
}

func stringMethod(fn func(string) string) method {
	return func(recv value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
		if err := arity("method", args, 0, 0); err != nil {
			return value.Undef(), err
		}

		return value.FromString(fn(recv.Str())), nil
	}
}

func trimMethod(fn func(string, string) string) method {
	return func(recv value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
		if err := arity("strip", args, 0, 1); err != nil {
			return value.Undef(), err
		}

		if len(args) == 0 || args[0].IsNone() {
			return value.FromString(fn(recv.Str(), " \t\r\n\v\f")), nil
		}

		return value.FromString(fn(recv.Str(), args[0].String())), nil
	}
}

func splitMethod(recv value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
	if err := arity("split", args, 0, 2); err != nil {
		return value.Undef(), err
	}

	limit := -1
	if len(args) == 2 && args[1].Kind() == value.Int && args[1].Int() >= 0 {
		limit = int(args[1].Int()) + 1
	}

	var parts []string

	if len(args) == 0 || args[0].IsNone() {
		parts = strings.Fields(recv.Str())
	} else {
		parts = strings.SplitN(recv.Str(), args[0].String(), limit)
	}

	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = value.FromString(p)
	}

	return value.FromSlice(out), nil
}

func replaceMethod(recv value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
	if err := arity("replace", args, 2, 3); err != nil {
		return value.Undef(), err
	}

	n := -1
	if len(args) == 3 && args[2].Kind() == value.Int {
		n = int(args[2].Int())
	}

	return value.FromString(strings.Replace(recv.Str(), args[0].String(), args[1].String(), n)), nil
}

func affixMethod(fn func(string, string) bool) method {
	return func(recv value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
		if err := arity("startswith", args, 1, 1); err != nil {
			return value.Undef(), err
		}

		return value.FromBool(fn(recv.Str(), args[0].String())), nil
	}
}

func countMethod(recv value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
	if err := arity("count", args, 1, 1); err != nil {
		return value.Undef(), err
	}

	return value.FromInt(int64(strings.Count(recv.Str(), args[0].String()))), nil
}

func predicateMethod(fn func(rune) bool) method {
	return func(recv value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
		if err := arity("predicate", args, 0, 0); err != nil {
			return value.Undef(), err
		}

		s := recv.Str()
		if s == "" {
			return value.FromBool(false), nil
		}

		for _, r := range s {
			if !fn(r) {
				return value.FromBool(false), nil
			}
		}

		return value.FromBool(true), nil
	}
}

// pairs returns the items of d as a list of [key, value] lists.
func pairs(d *value.Dict) value.Value {
	out := make([]value.Value, 0, d.Len())
	for k, v := range d.All() {
		out = append(out, value.FromSlice([]value.Value{value.FromString(k), v}))
	}

	return value.FromSlice(out)
}
