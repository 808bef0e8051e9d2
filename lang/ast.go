package lang

import (
	"iter"

	"github.com/ardnew/jinx/span"
)

// Node is any element of a parsed template.
type Node interface {
	Pos() span.Span
}

// Template is the parsed form of one template source.
type Template struct {
	Name   string
	Source string
	Body   []Stmt
}

// Macros returns the top-level macro definitions of t in source order.
func (t *Template) Macros() iter.Seq[*Macro] {
	return func(yield func(*Macro) bool) {
		for _, s := range t.Body {
			if m, ok := s.(*Macro); ok && !yield(m) {
				return
			}
		}
	}
}

// Stmt is a template statement.
type Stmt interface {
	Node
	stmt()
}

// Expr is an expression inside a tag.
type Expr interface {
	Node
	expr()
}

type (
	// EmitRaw outputs literal template text.
	EmitRaw struct {
		Text string
		Span span.Span
	}

	// CommentStmt is a {# #} comment.
	CommentStmt struct {
		Text string
		Span span.Span
	}

	// EmitExpr outputs the value of an expression ({{ expr }}).
	EmitExpr struct {
		Expr Expr
		Span span.Span
	}

	// If is a conditional. An elif chain is an If nested in Else.
	If struct {
		Cond Expr
		Then []Stmt
		Else []Stmt
		Span span.Span
	}

	// For iterates Iter, binding Target on each pass. Else runs when no
	// item was produced.
	For struct {
		Target Expr
		Iter   Expr
		Filter Expr
		Body   []Stmt
		Else   []Stmt
		Span   span.Span
	}

	// Set assigns Value to Target. When Body is non-nil the value is the
	// captured output of Body.
	Set struct {
		Target Expr
		Value  Expr
		Body   []Stmt
		Span   span.Span
	}

	// Do evaluates an expression for its side effects.
	Do struct {
		Expr Expr
		Span span.Span
	}

	// Macro defines a callable template fragment.
	Macro struct {
		Name string
		Args []Arg
		Body []Stmt
		Span span.Span
	}

	// CallBlock calls Call with a caller macro made from Macro.
	CallBlock struct {
		Call  *Call
		Macro *Macro
		Span  span.Span
	}

	// Block is a named sub-block rendered in place.
	Block struct {
		Name string
		Body []Stmt
		Span span.Span
	}
)

// Arg is a declared macro argument with an optional default.
type Arg struct {
	Default Expr
	Name    string
	Span    span.Span
}

func (s *EmitRaw) Pos() span.Span     { return s.Span }
func (s *CommentStmt) Pos() span.Span { return s.Span }
func (s *EmitExpr) Pos() span.Span    { return s.Span }
func (s *If) Pos() span.Span          { return s.Span }
func (s *For) Pos() span.Span         { return s.Span }
func (s *Set) Pos() span.Span         { return s.Span }
func (s *Do) Pos() span.Span          { return s.Span }
func (s *Macro) Pos() span.Span       { return s.Span }
func (s *CallBlock) Pos() span.Span   { return s.Span }
func (s *Block) Pos() span.Span       { return s.Span }

func (*EmitRaw) stmt()     {}
func (*CommentStmt) stmt() {}
func (*EmitExpr) stmt()    {}
func (*If) stmt()          {}
func (*For) stmt()         {}
func (*Set) stmt()         {}
func (*Do) stmt()          {}
func (*Macro) stmt()       {}
func (*CallBlock) stmt()   {}
func (*Block) stmt()       {}

type (
	// Var is a name lookup.
	Var struct {
		Name string
		Span span.Span
	}

	// Const is a literal none, bool, float or string.
	Const struct {
		Value any
		Span  span.Span
	}

	// IntLit is an integer literal kept as written; it is converted when
	// compiled.
	IntLit struct {
		Digits string
		Span   span.Span
	}

	// List is a list literal.
	List struct {
		Items []Expr
		Span  span.Span
	}

	// Tuple is a parenthesized or bare comma-separated sequence.
	Tuple struct {
		Items []Expr
		Span  span.Span
	}

	// Dict is a dict literal.
	Dict struct {
		Keys   []Expr
		Values []Expr
		Span   span.Span
	}

	// UnaryOp applies "not", "-" or "+".
	UnaryOp struct {
		Expr Expr
		Op   string
		Span span.Span
	}

	// BinOp applies an arithmetic, logical, comparison or membership
	// operator ("in", "not in").
	BinOp struct {
		Left  Expr
		Right Expr
		Op    string
		Span  span.Span
	}

	// GetAttr is expr.name.
	GetAttr struct {
		Expr Expr
		Name string
		Span span.Span
	}

	// GetItem is expr[index].
	GetItem struct {
		Expr  Expr
		Index Expr
		Span  span.Span
	}

	// Call invokes Func with positional and keyword arguments.
	Call struct {
		Func   Expr
		Args   []Expr
		Kwargs []Kwarg
		Span   span.Span
	}

	// Filter applies a named filter to Expr.
	Filter struct {
		Expr   Expr
		Name   string
		Args   []Expr
		Kwargs []Kwarg
		Span   span.Span
	}

	// Test applies a named test to Expr.
	Test struct {
		Expr    Expr
		Name    string
		Args    []Expr
		Negated bool
		Span    span.Span
	}

	// IfExpr is "then if cond else otherwise". Else may be nil.
	IfExpr struct {
		Cond Expr
		Then Expr
		Else Expr
		Span span.Span
	}
)

// Kwarg is a keyword argument of a call or filter.
type Kwarg struct {
	Value Expr
	Name  string
}

func (e *Var) Pos() span.Span     { return e.Span }
func (e *Const) Pos() span.Span   { return e.Span }
func (e *IntLit) Pos() span.Span  { return e.Span }
func (e *List) Pos() span.Span    { return e.Span }
func (e *Tuple) Pos() span.Span   { return e.Span }
func (e *Dict) Pos() span.Span    { return e.Span }
func (e *UnaryOp) Pos() span.Span { return e.Span }
func (e *BinOp) Pos() span.Span   { return e.Span }
func (e *GetAttr) Pos() span.Span { return e.Span }
func (e *GetItem) Pos() span.Span { return e.Span }
func (e *Call) Pos() span.Span    { return e.Span }
func (e *Filter) Pos() span.Span  { return e.Span }
func (e *Test) Pos() span.Span    { return e.Span }
func (e *IfExpr) Pos() span.Span  { return e.Span }

func (*Var) expr()     {}
func (*Const) expr()   {}
func (*IntLit) expr()  {}
func (*List) expr()    {}
func (*Tuple) expr()   {}
func (*Dict) expr()    {}
func (*UnaryOp) expr() {}
func (*BinOp) expr()   {}
func (*GetAttr) expr() {}
func (*GetItem) expr() {}
func (*Call) expr()    {}
func (*Filter) expr()  {}
func (*Test) expr()    {}
func (*IfExpr) expr()  {}

// Walk calls fn for e and every expression nested within it, depth first.
// Returning false from fn skips the children of that expression.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}

	switch e := e.(type) {
	case *List:
		walkAll(e.Items, fn)
	case *Tuple:
		walkAll(e.Items, fn)
	case *Dict:
		walkAll(e.Keys, fn)
		walkAll(e.Values, fn)
	case *UnaryOp:
		Walk(e.Expr, fn)
	case *BinOp:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case *GetAttr:
		Walk(e.Expr, fn)
	case *GetItem:
		Walk(e.Expr, fn)
		Walk(e.Index, fn)
	case *Call:
		Walk(e.Func, fn)
		walkAll(e.Args, fn)
		walkKwargs(e.Kwargs, fn)
	case *Filter:
		Walk(e.Expr, fn)
		walkAll(e.Args, fn)
		walkKwargs(e.Kwargs, fn)
	case *Test:
		Walk(e.Expr, fn)
		walkAll(e.Args, fn)
	case *IfExpr:
		Walk(e.Cond, fn)
		Walk(e.Then, fn)
		Walk(e.Else, fn)
	}
}

func walkAll(es []Expr, fn func(Expr) bool) {
	for _, e := range es {
		Walk(e, fn)
	}
}

func walkKwargs(ks []Kwarg, fn func(Expr) bool) {
	for _, k := range ks {
		Walk(k.Value, fn)
	}
}

// WalkStmts calls fn for every expression reachable from body, including
// the bodies of nested statements.
func WalkStmts(body []Stmt, fn func(Expr) bool) {
	for _, s := range body {
		switch s := s.(type) {
		case *EmitExpr:
			Walk(s.Expr, fn)
		case *If:
			Walk(s.Cond, fn)
			WalkStmts(s.Then, fn)
			WalkStmts(s.Else, fn)
		case *For:
			Walk(s.Iter, fn)
			Walk(s.Filter, fn)
			WalkStmts(s.Body, fn)
			WalkStmts(s.Else, fn)
		case *Set:
			Walk(s.Value, fn)
			WalkStmts(s.Body, fn)
		case *Do:
			Walk(s.Expr, fn)
		case *Macro:
			for _, a := range s.Args {
				Walk(a.Default, fn)
			}

			WalkStmts(s.Body, fn)
		case *CallBlock:
			Walk(s.Call, fn)
			WalkStmts(s.Macro.Body, fn)
		case *Block:
			WalkStmts(s.Body, fn)
		}
	}
}
