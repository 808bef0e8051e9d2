package vm

import (
	"html"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/ardnew/mung"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/jinx/lang"
	"github.com/ardnew/jinx/value"
)

var builtinFilters = map[string]Filter{
	"upper":        stringFilter(upper),
	"lower":        stringFilter(lower),
	"title":        stringFilter(title),
	"capitalize":   stringFilter(capitalize),
	"trim":         stringFilter(strings.TrimSpace),
	"length":       lengthFilter,
	"count":        lengthFilter,
	"default":      defaultFilter,
	"d":            defaultFilter,
	"join":         joinFilter,
	"first":        firstFilter,
	"last":         lastFilter,
	"list":         listFilter,
	"string":       stringConvFilter,
	"int":          intFilter,
	"float":        floatFilter,
	"abs":          absFilter,
	"round":        roundFilter,
	"replace":      replaceFilter,
	"safe":         safeFilter,
	"escape":       escapeFilter,
	"e":            escapeFilter,
	"tojson":       tojsonFilter,
	"toyaml":       toyamlFilter,
	"sort":         sortFilter,
	"reverse":      reverseFilter,
	"unique":       uniqueFilter,
	"items":        itemsFilter,
	"dictsort":     dictsortFilter,
	"map":          mapFilter,
	"select":       selectFilter(true),
	"reject":       selectFilter(false),
	"sum":          sumFilter,
	"min":          extremeFilter(-1),
	"max":          extremeFilter(1),
	"indent":       indentFilter,
	"wordcount":    wordcountFilter,
	"prepend_path": prependPathFilter,
	"attr":         attrFilter,
}

var builtinTests = map[string]Test{
	"defined":     kindTest(func(v value.Value) bool { return !v.IsUndefined() }),
	"undefined":   kindTest(value.Value.IsUndefined),
	"none":        kindTest(value.Value.IsNone),
	"boolean":     kindTest(func(v value.Value) bool { return v.Kind() == value.Bool }),
	"string":      kindTest(func(v value.Value) bool { return v.Kind() == value.String }),
	"number":      kindTest(value.Value.IsNumber),
	"integer":     kindTest(func(v value.Value) bool { return v.Kind() == value.Int }),
	"float":       kindTest(func(v value.Value) bool { return v.Kind() == value.Float }),
	"mapping":     kindTest(isMapping),
	"sequence":    kindTest(func(v value.Value) bool { return v.Kind() == value.Seq }),
	"iterable":    kindTest(isIterable),
	"callable":    kindTest(isCallable),
	"odd":         intTest(func(i int64) bool { return i%2 != 0 }),
	"even":        intTest(func(i int64) bool { return i%2 == 0 }),
	"divisibleby": divisibleTest,
	"eq":          compareTest(func(c int) bool { return c == 0 }),
	"equalto":     compareTest(func(c int) bool { return c == 0 }),
	"ne":          compareTest(func(c int) bool { return c != 0 }),
	"lt":          compareTest(func(c int) bool { return c < 0 }),
	"gt":          compareTest(func(c int) bool { return c > 0 }),
	"in":          inTest,
	"startswith":  affixTest(strings.HasPrefix),
	"endswith":    affixTest(strings.HasSuffix),
	"lower":       kindTest(func(v value.Value) bool { return v.Kind() == value.String && lower(v.Str()) == v.Str() }),
	"upper":       kindTest(func(v value.Value) bool { return v.Kind() == value.String && upper(v.Str()) == v.Str() }),
}

var builtinFunctions = map[string]Function{
	"range": rangeFunction,
	"dict":  dictFunction,
}

// kwarg returns the keyword argument name of kwargs, which may be nil.
func kwarg(kwargs *value.Dict, name string) (value.Value, bool) {
	if kwargs == nil {
		return value.Undef(), false
	}

	return kwargs.Get(name)
}

// argOr returns args[i], the keyword argument name or def, in that order.
func argOr(args []value.Value, kwargs *value.Dict, i int, name string, def value.Value) value.Value {
	if i < len(args) {
		return args[i]
	}

	if v, ok := kwarg(kwargs, name); ok {
		return v
	}

	return def
}

func iterate(v value.Value) ([]value.Value, error) {
	items, err := v.Iterate()
	if err != nil {
		return nil, lang.WrapError(err).With(slog.String("type", v.TypeName()))
	}

	return items, nil
}

func stringFilter(fn func(string) string) Filter {
	return func(_ *State, v value.Value, _ []value.Value, _ *value.Dict) (value.Value, error) {
		return value.FromString(fn(v.String())), nil
	}
}

func lengthFilter(_ *State, v value.Value, _ []value.Value, _ *value.Dict) (value.Value, error) {
	n, ok := v.Len()
	if !ok {
		return value.Undef(), lang.ErrInvalidOperation.Wrapf("cannot calculate length of %s", v.TypeName())
	}

	return value.FromInt(int64(n)), nil
}

func defaultFilter(_ *State, v value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	def := argOr(args, kwargs, 0, "default_value", value.FromString(""))
	boolean := argOr(args, kwargs, 1, "boolean", value.FromBool(false))

	if v.IsUndefined() || (boolean.Truthy() && !v.Truthy()) {
		return def, nil
	}

	return v, nil
}

func joinFilter(_ *State, v value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	items, err := iterate(v)
	if err != nil {
		return value.Undef(), err
	}

	sep := argOr(args, kwargs, 0, "d", value.FromString("")).String()
	attr := argOr(args, kwargs, 1, "attribute", value.Undef())

	parts := make([]string, len(items))

	for i, it := range items {
		if !attr.IsUndefined() {
			it = it.GetItem(attr)
		}

		parts[i] = it.String()
	}

	return value.FromString(strings.Join(parts, sep)), nil
}

func firstFilter(_ *State, v value.Value, _ []value.Value, _ *value.Dict) (value.Value, error) {
	items, err := iterate(v)
	if err != nil || len(items) == 0 {
		return value.Undef(), err
	}

	return items[0], nil
}

func lastFilter(_ *State, v value.Value, _ []value.Value, _ *value.Dict) (value.Value, error) {
	items, err := iterate(v)
	if err != nil || len(items) == 0 {
		return value.Undef(), err
	}

	return items[len(items)-1], nil
}

func listFilter(_ *State, v value.Value, _ []value.Value, _ *value.Dict) (value.Value, error) {
	items, err := iterate(v)
	if err != nil {
		return value.Undef(), err
	}

	return value.FromSlice(items), nil
}

func stringConvFilter(_ *State, v value.Value, _ []value.Value, _ *value.Dict) (value.Value, error) {
	if v.Kind() == value.String {
		return v, nil
	}

	return value.FromString(v.String()), nil
}

func intFilter(_ *State, v value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	def := argOr(args, kwargs, 0, "default", value.FromInt(0))

	switch v.Kind() {
	case value.Int:
		return v, nil
	case value.Bool:
		return value.FromInt(int64(b2i(v.Bool()))), nil
	case value.Float:
		f := math.Trunc(v.Float())
		if f < math.MinInt64 || f >= math.MaxInt64 || math.IsNaN(f) {
			return value.Undef(), lang.ErrIntegerOverflow.Wrapf("cannot convert %s to integer", v.Repr())
		}

		return value.FromInt(int64(f)), nil
	case value.String:
		s := strings.TrimSpace(v.Str())
		if i, err := strconv.ParseInt(s, 0, 64); err == nil {
			return value.FromInt(i), nil
		}

		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return intFilter(nil, value.FromFloat(f), args, kwargs)
		}
	}

	return def, nil
}

func floatFilter(_ *State, v value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	def := argOr(args, kwargs, 0, "default", value.FromFloat(0))

	switch v.Kind() {
	case value.Int, value.Float:
		return value.FromFloat(v.Float()), nil
	case value.String:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Str()), 64); err == nil {
			return value.FromFloat(f), nil
		}
	}

	return def, nil
}

func absFilter(_ *State, v value.Value, _ []value.Value, _ *value.Dict) (value.Value, error) {
	switch v.Kind() {
	case value.Int:
		if v.Int() == math.MinInt64 {
			return value.Undef(), lang.ErrIntegerOverflow.Wrapf("cannot take absolute value of %d", v.Int())
		}

		if v.Int() < 0 {
			return value.FromInt(-v.Int()), nil
		}

		return v, nil
	case value.Float:
		return value.FromFloat(math.Abs(v.Float())), nil
	}

	return value.Undef(), lang.ErrInvalidOperation.Wrapf("cannot take absolute value of %s", v.TypeName())
}

func roundFilter(_ *State, v value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	if !v.IsNumber() {
		return value.Undef(), lang.ErrInvalidOperation.Wrapf("cannot round %s", v.TypeName())
	}

	precision := argOr(args, kwargs, 0, "precision", value.FromInt(0)).Int()
	method := argOr(args, kwargs, 1, "method", value.FromString("common")).String()

	scale := math.Pow10(int(precision))
	f := v.Float() * scale

	switch method {
	case "common":
		f = math.Round(f)
	case "ceil":
		f = math.Ceil(f)
	case "floor":
		f = math.Floor(f)
	default:
		return value.Undef(), lang.ErrInvalidOperation.Wrapf("unknown rounding method %q", method)
	}

	return value.FromFloat(f / scale), nil
}

func replaceFilter(_ *State, v value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	return replaceMethod(value.FromString(v.String()), args, kwargs)
}

func safeFilter(_ *State, v value.Value, _ []value.Value, _ *value.Dict) (value.Value, error) {
	return value.FromSafeString(v.String()), nil
}

func escapeFilter(_ *State, v value.Value, _ []value.Value, _ *value.Dict) (value.Value, error) {
	if v.IsSafe() {
		return v, nil
	}

	return value.FromSafeString(html.EscapeString(v.String())), nil
}

// ordered converts v into Go values that keep the key order of dicts.
func ordered(v value.Value) any {
	switch v.Kind() {
	case value.Seq:
		out := make([]any, len(v.Items()))
		for i, it := range v.Items() {
			out[i] = ordered(it)
		}

		return out
	case value.Map, value.Kwargs:
		out := make(yaml.MapSlice, 0, v.Dict().Len())
		for k, it := range v.Dict().All() {
			out = append(out, yaml.MapItem{Key: k, Value: ordered(it)})
		}

		return out
	default:
		return v.ToGo()
	}
}

var jsonEscaper = strings.NewReplacer(
	"<", `\u003c`,
	">", `\u003e`,
	"&", `\u0026`,
	"'", `\u0027`,
)

func tojsonFilter(_ *State, v value.Value, _ []value.Value, _ *value.Dict) (value.Value, error) {
	b, err := yaml.MarshalWithOptions(ordered(v), yaml.JSON())
	if err != nil {
		return value.Undef(), lang.ErrBadSerialization.Wrap(err)
	}

	return value.FromSafeString(jsonEscaper.Replace(strings.TrimSpace(string(b)))), nil
}

func toyamlFilter(_ *State, v value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	indent := argOr(args, kwargs, 0, "indent", value.FromInt(2)).Int()

	b, err := yaml.MarshalWithOptions(ordered(v), yaml.Indent(int(indent)))
	if err != nil {
		return value.Undef(), lang.ErrBadSerialization.Wrap(err)
	}

	return value.FromString(strings.TrimSuffix(string(b), "\n")), nil
}

// sortKey returns the value items are ordered by.
func sortKey(it value.Value, attr value.Value, fold bool) value.Value {
	if !attr.IsUndefined() {
		it = it.GetItem(attr)
	}

	if fold && it.Kind() == value.String {
		return value.FromString(lower(it.Str()))
	}

	return it
}

func sortItems(items []value.Value, key func(value.Value) value.Value, reverse bool) error {
	var err error

	slices.SortStableFunc(items, func(a, b value.Value) int {
		c, ok := key(a).Compare(key(b))
		if !ok && err == nil {
			err = lang.ErrInvalidOperation.Wrapf("cannot compare %s with %s", a.TypeName(), b.TypeName())
		}

		if reverse {
			return -c
		}

		return c
	})

	return err
}

func sortFilter(_ *State, v value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	items, err := iterate(v)
	if err != nil {
		return value.Undef(), err
	}

	reverse := argOr(args, kwargs, 0, "reverse", value.FromBool(false)).Truthy()
	fold := !argOr(args, kwargs, 1, "case_sensitive", value.FromBool(false)).Truthy()
	attr := argOr(args, kwargs, 2, "attribute", value.Undef())

	key := func(it value.Value) value.Value { return sortKey(it, attr, fold) }
	if err := sortItems(items, key, reverse); err != nil {
		return value.Undef(), err
	}

	return value.FromSlice(items), nil
}

func reverseFilter(_ *State, v value.Value, _ []value.Value, _ *value.Dict) (value.Value, error) {
	if v.Kind() == value.String {
		rs := []rune(v.Str())
		slices.Reverse(rs)

		return value.FromString(string(rs)), nil
	}

	items, err := iterate(v)
	if err != nil {
		return value.Undef(), err
	}

	slices.Reverse(items)

	return value.FromSlice(items), nil
}

func uniqueFilter(_ *State, v value.Value, _ []value.Value, _ *value.Dict) (value.Value, error) {
	items, err := iterate(v)
	if err != nil {
		return value.Undef(), err
	}

	var out []value.Value

	for _, it := range items {
		if !slices.ContainsFunc(out, it.Equal) {
			out = append(out, it)
		}
	}

	return value.FromSlice(out), nil
}

func itemsFilter(_ *State, v value.Value, _ []value.Value, _ *value.Dict) (value.Value, error) {
	d := v.Dict()
	if d == nil {
		return value.Undef(), lang.ErrInvalidOperation.Wrapf("cannot convert %s to pairs", v.TypeName())
	}

	return pairs(d), nil
}

func dictsortFilter(st *State, v value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	p, err := itemsFilter(st, v, nil, nil)
	if err != nil {
		return value.Undef(), err
	}

	fold := !argOr(args, kwargs, 0, "case_sensitive", value.FromBool(false)).Truthy()
	by := argOr(args, kwargs, 1, "by", value.FromString("key")).String()
	reverse := argOr(args, kwargs, 2, "reverse", value.FromBool(false)).Truthy()

	idx := value.FromInt(0)
	if by == "value" {
		idx = value.FromInt(1)
	}

	items := p.Items()
	key := func(it value.Value) value.Value { return sortKey(it, idx, fold) }

	if err := sortItems(items, key, reverse); err != nil {
		return value.Undef(), err
	}

	return p, nil
}

func mapFilter(st *State, v value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	items, err := iterate(v)
	if err != nil {
		return value.Undef(), err
	}

	if attr, ok := kwarg(kwargs, "attribute"); ok {
		def, hasDef := kwarg(kwargs, "default")

		for i, it := range items {
			items[i] = it.GetItem(attr)
			if hasDef && items[i].IsUndefined() {
				items[i] = def
			}
		}

		return value.FromSlice(items), nil
	}

	if len(args) == 0 {
		return value.Undef(), lang.ErrMissingArgument.Wrapf("map expects a filter name or attribute")
	}

	name := args[0].String()
	for i, it := range items {
		if items[i], err = st.applyFilter(name, it, args[1:], nil); err != nil {
			return value.Undef(), err
		}
	}

	return value.FromSlice(items), nil
}

func selectFilter(keep bool) Filter {
	return func(st *State, v value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
		items, err := iterate(v)
		if err != nil {
			return value.Undef(), err
		}

		var out []value.Value

		for _, it := range items {
			ok := it.Truthy()

			if len(args) > 0 {
				if ok, err = st.performTest(args[0].String(), it, args[1:]); err != nil {
					return value.Undef(), err
				}
			}

			if ok == keep {
				out = append(out, it)
			}
		}

		return value.FromSlice(out), nil
	}
}

func sumFilter(_ *State, v value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	items, err := iterate(v)
	if err != nil {
		return value.Undef(), err
	}

	attr := argOr(args, kwargs, 0, "attribute", value.Undef())
	total := argOr(args, kwargs, 1, "start", value.FromInt(0))

	for _, it := range items {
		if !attr.IsUndefined() {
			it = it.GetItem(attr)
		}

		if total, err = value.Add(total, it); err != nil {
			return value.Undef(), err
		}
	}

	return total, nil
}

func extremeFilter(sign int) Filter {
	return func(_ *State, v value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
		items, err := iterate(v)
		if err != nil {
			return value.Undef(), err
		}

		fold := !argOr(args, kwargs, 0, "case_sensitive", value.FromBool(false)).Truthy()
		attr := argOr(args, kwargs, 1, "attribute", value.Undef())

		var best value.Value

		for i, it := range items {
			if i == 0 {
				best = it

				continue
			}

			c, ok := sortKey(it, attr, fold).Compare(sortKey(best, attr, fold))
			if !ok {
				return value.Undef(), lang.ErrInvalidOperation.Wrapf(
					"cannot compare %s with %s", it.TypeName(), best.TypeName())
			}

			if c*sign > 0 {
				best = it
			}
		}

		return best, nil
	}
}

func indentFilter(_ *State, v value.Value, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	width := argOr(args, kwargs, 0, "width", value.FromInt(4))
	first := argOr(args, kwargs, 1, "first", value.FromBool(false)).Truthy()
	blank := argOr(args, kwargs, 2, "blank", value.FromBool(false)).Truthy()

	pad := width.String()
	if width.Kind() == value.Int {
		pad = strings.Repeat(" ", int(max(width.Int(), 0)))
	}

	lines := strings.Split(v.String(), "\n")
	for i, line := range lines {
		if (i == 0 && !first) || (line == "" && !blank) {
			continue
		}

		lines[i] = pad + line
	}

	return value.FromString(strings.Join(lines, "\n")), nil
}

func wordcountFilter(_ *State, v value.Value, _ []value.Value, _ *value.Dict) (value.Value, error) {
	return value.FromInt(int64(len(strings.Fields(v.String())))), nil
}

// prependPathFilter prepends its arguments to a path list, dropping
// duplicates.
func prependPathFilter(_ *State, v value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
	prefix := make([]string, len(args))
	for i, a := range args {
		prefix[i] = a.String()
	}

	return value.FromString(mung.Make(
		mung.WithSubjectItems(v.String()),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
	).String()), nil
}

func attrFilter(_ *State, v value.Value, args []value.Value, _ *value.Dict) (value.Value, error) {
	if len(args) != 1 {
		return value.Undef(), lang.ErrMissingArgument.Wrapf("attr expects an attribute name")
	}

	return v.GetAttr(args[0].String()), nil
}

func isMapping(v value.Value) bool {
	return v.Kind() == value.Map || v.Kind() == value.Kwargs
}

func isIterable(v value.Value) bool {
	switch v.Kind() {
	case value.Seq, value.Map, value.Kwargs, value.String:
		return true
	}

	return false
}

func isCallable(v value.Value) bool {
	if v.Kind() != value.Object {
		return false
	}

	switch v.Object().(type) {
	case *Macro, function, value.Callable:
		return true
	}

	return false
}

func b2i(b bool) int {
	if b {
		return 1
	}

	return 0
}

func kindTest(fn func(value.Value) bool) Test {
	return func(v value.Value, _ []value.Value) (bool, error) { return fn(v), nil }
}

func intTest(fn func(int64) bool) Test {
	return func(v value.Value, _ []value.Value) (bool, error) {
		return v.Kind() == value.Int && fn(v.Int()), nil
	}
}

func divisibleTest(v value.Value, args []value.Value) (bool, error) {
	if err := arity("divisibleby", args, 1, 1); err != nil {
		return false, err
	}

	if v.Kind() != value.Int || args[0].Kind() != value.Int || args[0].Int() == 0 {
		return false, nil
	}

	return v.Int()%args[0].Int() == 0, nil
}

func compareTest(fn func(int) bool) Test {
	return func(v value.Value, args []value.Value) (bool, error) {
		if len(args) != 1 {
			return false, arity("comparison", args, 1, 1)
		}

		if v.Equal(args[0]) {
			return fn(0), nil
		}

		c, ok := v.Compare(args[0])
		if !ok {
			// Unordered values are only ever unequal.
			return fn(1) && fn(-1), nil
		}

		return fn(c), nil
	}
}

func inTest(v value.Value, args []value.Value) (bool, error) {
	if err := arity("in", args, 1, 1); err != nil {
		return false, err
	}

	return args[0].Contains(v)
}

func affixTest(fn func(string, string) bool) Test {
	return func(v value.Value, args []value.Value) (bool, error) {
		if err := arity("affix", args, 1, 1); err != nil {
			return false, err
		}

		return v.Kind() == value.String && fn(v.Str(), args[0].String()), nil
	}
}

func rangeFunction(_ *State, args []value.Value, _ *value.Dict) (value.Value, error) {
	if err := arity("range", args, 1, 3); err != nil {
		return value.Undef(), err
	}

	for _, a := range args {
		if a.Kind() != value.Int {
			return value.Undef(), lang.ErrInvalidOperation.Wrapf("range expects integers, got %s", a.TypeName())
		}
	}

	var lo, hi, step int64 = 0, args[0].Int(), 1

	if len(args) > 1 {
		lo, hi = args[0].Int(), args[1].Int()
	}

	if len(args) > 2 {
		step = args[2].Int()
	}

	if step == 0 {
		return value.Undef(), lang.ErrInvalidOperation.Wrapf("range step cannot be zero")
	}

	const maxRange = 100000

	var out []value.Value

	for i := lo; (step > 0 && i < hi) || (step < 0 && i > hi); i += step {
		if len(out) >= maxRange {
			return value.Undef(), lang.ErrInvalidOperation.Wrapf("range has more than %d items", maxRange)
		}

		out = append(out, value.FromInt(i))
	}

	return value.FromSlice(out), nil
}

func dictFunction(_ *State, args []value.Value, kwargs *value.Dict) (value.Value, error) {
	if err := arity("dict", args, 0, 1); err != nil {
		return value.Undef(), err
	}

	d := value.NewDict()

	if len(args) == 1 {
		src := args[0].Dict()
		if src == nil {
			return value.Undef(), lang.ErrInvalidOperation.Wrapf("cannot convert %s to dict", args[0].TypeName())
		}

		d = src.Clone()
	}

	if kwargs != nil {
		for k, v := range kwargs.All() {
			d.Set(k, v)
		}
	}

	return value.FromDict(d), nil
}
