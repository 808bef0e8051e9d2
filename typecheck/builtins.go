package typecheck

import "github.com/ardnew/jinx/types"

func builtinGlobals() map[string]types.Type {
	return map[string]types.Type{
		"range": types.FuncOf([]types.Type{types.Integer}, types.SeqOf(types.Integer)),
		"dict":  types.FuncOf(nil, types.MapOf(types.String, types.Any)),
	}
}

// filterResult returns the type a builtin filter produces from operand and
// the extra arguments. Unknown filters produce Any.
func filterResult(name string, operand types.Type, args []types.Type) types.Type {
	item, _ := iterItem(operand)

	switch name {
	case "upper", "lower", "title", "capitalize", "trim", "join", "string",
		"replace", "safe", "escape", "e", "tojson", "toyaml", "indent",
		"prepend_path":
		return types.String
	case "length", "count", "wordcount", "int":
		return types.Integer
	case "float", "round":
		return types.Float
	case "abs":
		return operand
	case "default", "d":
		if len(args) == 0 {
			return operand
		}

		if operand.Kind() == types.KindUndefined {
			return args[0]
		}

		return types.Union(operand.NonOptional(), args[0])
	case "first", "last", "min", "max", "sum":
		return item
	case "list", "sort", "unique", "select", "reject":
		return types.SeqOf(item)
	case "reverse":
		if operand.Kind() == types.KindString {
			return types.String
		}

		return types.SeqOf(item)
	case "items", "dictsort":
		if operand.Kind() == types.KindMap {
			return types.SeqOf(types.TupleOf(operand.Key(), operand.Value()))
		}

		return types.SeqOf(types.TupleOf(types.Any, types.Any))
	case "map":
		return types.SeqOf(types.Any)
	default:
		return types.Any
	}
}
