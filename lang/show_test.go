package lang

import (
	"fmt"
	"strings"
)

func typeName(v any) string { return fmt.Sprintf("%T", v) }

// show renders an expression with explicit grouping.
func show(e Expr) string {
	switch e := e.(type) {
	case *Var:
		return e.Name
	case *IntLit:
		return e.Digits
	case *Const:
		switch v := e.Value.(type) {
		case nil:
			return "None"
		case bool:
			if v {
				return "True"
			}

			return "False"
		case string:
			return "'" + v + "'"
		default:
			return fmt.Sprint(v)
		}
	case *List:
		return "[" + showAll(e.Items) + "]"
	case *Tuple:
		return "(" + showAll(e.Items) + ")"
	case *Dict:
		parts := make([]string, len(e.Keys))
		for i := range e.Keys {
			parts[i] = show(e.Keys[i]) + ": " + show(e.Values[i])
		}

		return "{" + strings.Join(parts, ", ") + "}"
	case *UnaryOp:
		return "(" + e.Op + " " + show(e.Expr) + ")"
	case *BinOp:
		return "(" + show(e.Left) + " " + e.Op + " " + show(e.Right) + ")"
	case *GetAttr:
		return show(e.Expr) + "." + e.Name
	case *GetItem:
		return show(e.Expr) + "[" + show(e.Index) + "]"
	case *Call:
		args := showAll(e.Args)
		for _, k := range e.Kwargs {
			if args != "" {
				args += ", "
			}

			args += k.Name + "=" + show(k.Value)
		}

		return show(e.Func) + "(" + args + ")"
	case *Filter:
		s := "(" + show(e.Expr) + "|" + e.Name
		if len(e.Args) > 0 {
			s += "(" + showAll(e.Args) + ")"
		}

		return s + ")"
	case *Test:
		neg := ""
		if e.Negated {
			neg = "not "
		}

		s := "(" + show(e.Expr) + " is " + neg + e.Name
		if len(e.Args) > 0 {
			s += "(" + showAll(e.Args) + ")"
		}

		return s + ")"
	case *IfExpr:
		s := "(" + show(e.Then) + " if " + show(e.Cond)
		if e.Else != nil {
			s += " else " + show(e.Else)
		}

		return s + ")"
	default:
		return fmt.Sprintf("<%T>", e)
	}
}

func showAll(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = show(e)
	}

	return strings.Join(parts, ", ")
}
