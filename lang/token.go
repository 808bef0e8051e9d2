package lang

import (
	"fmt"

	"github.com/ardnew/jinx/span"
)

// TokenKind identifies the lexical class of a [Token].
type TokenKind int

// Token kinds.
const (
	EOF TokenKind = iota

	// Template structure.
	RawText
	Comment
	VariableStart // {{
	VariableEnd   // }}
	BlockStart    // {%
	BlockEnd      // %}

	// Literals and names.
	Ident
	Int
	Float
	String

	// Punctuation and operators.
	LParen   // (
	RParen   // )
	LBracket // [
	RBracket // ]
	LBrace   // {
	RBrace   // }
	Comma    // ,
	Dot      // .
	Colon    // :
	Pipe     // |
	Tilde    // ~
	Plus     // +
	Minus    // -
	Mul      // *
	Div      // /
	FloorDiv // //
	Mod      // %
	Pow      // **
	Assign   // =
	Eq       // ==
	Ne       // !=
	Lt       // <
	Lte      // <=
	Gt       // >
	Gte      // >=
)

var kindName = [...]string{
	EOF:           "end of input",
	RawText:       "raw text",
	Comment:       "comment",
	VariableStart: "{{",
	VariableEnd:   "}}",
	BlockStart:    "{%",
	BlockEnd:      "%}",
	Ident:         "identifier",
	Int:           "integer",
	Float:         "float",
	String:        "string",
	LParen:        "(",
	RParen:        ")",
	LBracket:      "[",
	RBracket:      "]",
	LBrace:        "{",
	RBrace:        "}",
	Comma:         ",",
	Dot:           ".",
	Colon:         ":",
	Pipe:          "|",
	Tilde:         "~",
	Plus:          "+",
	Minus:         "-",
	Mul:           "*",
	Div:           "/",
	FloorDiv:      "//",
	Mod:           "%",
	Pow:           "**",
	Assign:        "=",
	Eq:            "==",
	Ne:            "!=",
	Lt:            "<",
	Lte:           "<=",
	Gt:            ">",
	Gte:           ">=",
}

func (k TokenKind) String() string {
	if k >= 0 && int(k) < len(kindName) {
		return kindName[k]
	}

	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a positioned lexical unit. For [String] tokens Text holds the
// decoded value; for every other kind it is the source text.
type Token struct {
	Text string
	Span span.Span
	Kind TokenKind
}

func (t Token) String() string {
	switch t.Kind {
	case Ident, Int, Float:
		return t.Text
	case String:
		return fmt.Sprintf("%q", t.Text)
	case RawText, Comment:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
	default:
		return t.Kind.String()
	}
}

// Is reports whether t is an identifier spelled name.
func (t Token) Is(name string) bool { return t.Kind == Ident && t.Text == name }
