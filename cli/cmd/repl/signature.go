package repl

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// Signature hint styles.
var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
)

// hint describes the parameters of a callable for display.
type hint struct {
	name   string
	params []string // Variadic parameters are prefixed with "..."
	ret    string   // Empty when the result type is unknown
}

// builtinSignatures are the parameter lists of the global functions.
var builtinSignatures = map[string]hint{
	"range": {name: "range", params: []string{"start", "stop", "step"}, ret: "list[integer]"},
	"dict":  {name: "dict", params: []string{"mapping", "...kwargs"}, ret: "map"},
}

// filterSignatures are the parameter lists of the builtin filters taking
// arguments. The filtered value is implicit.
var filterSignatures = map[string]hint{
	"default":      {name: "default", params: []string{"value", "boolean"}},
	"d":            {name: "d", params: []string{"value", "boolean"}},
	"join":         {name: "join", params: []string{"sep", "attribute"}, ret: "string"},
	"replace":      {name: "replace", params: []string{"old", "new", "count"}, ret: "string"},
	"round":        {name: "round", params: []string{"precision", "method"}, ret: "float"},
	"indent":       {name: "indent", params: []string{"width", "first", "blank"}, ret: "string"},
	"sort":         {name: "sort", params: []string{"reverse", "case_sensitive", "attribute"}},
	"dictsort":     {name: "dictsort", params: []string{"case_sensitive", "by", "reverse"}},
	"map":          {name: "map", params: []string{"attribute", "...args"}},
	"select":       {name: "select", params: []string{"test", "...args"}},
	"reject":       {name: "reject", params: []string{"test", "...args"}},
	"attr":         {name: "attr", params: []string{"name"}},
	"prepend_path": {name: "prepend_path", params: []string{"...prefix"}, ret: "string"},
}

// functionCall is the innermost call enclosing the cursor.
type functionCall struct {
	name     string
	argIndex int  // Zero-based index of the argument under the cursor
	filter   bool // Called through a filter bar
	inCall   bool
}

// isIdentRune reports whether r may appear in a callee name.
func isIdentRune(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// detectFunctionCall returns the innermost open call at cursor.
func detectFunctionCall(input string, cursor int) functionCall {
	cursor = min(cursor, len(input))

	open, depth := -1, 0

	for i := cursor; i > 0 && open < 0; {
		r, size := utf8.DecodeLastRuneInString(input[:i])
		i -= size

		switch r {
		case ')', ']':
			depth++
		case '[':
			depth--
		case '(':
			if depth == 0 {
				open = i
			} else {
				depth--
			}
		}
	}

	if open < 0 {
		return functionCall{}
	}

	start := open
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if !isIdentRune(r) {
			break
		}

		start -= size
	}

	name := input[start:open]
	if name == "" {
		return functionCall{}
	}

	call := functionCall{
		name:   name,
		filter: strings.HasSuffix(strings.TrimRightFunc(input[:start], unicode.IsSpace), "|"),
		inCall: true,
	}

	depth = 0

	for _, r := range input[open+1 : cursor] {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				call.argIndex++
			}
		}
	}

	return call
}

// lookupHint returns the parameters of the callable named by call.
func (s *session) lookupHint(call functionCall) (hint, bool) {
	if call.filter {
		h, ok := filterSignatures[call.name]

		return h, ok
	}

	if sig, ok := s.sigs.Lookup(call.name); ok {
		h := hint{name: sig.Name, params: make([]string, len(sig.Args))}

		for i, a := range sig.Args {
			h.params[i] = a
			if sig.Typed && i < len(sig.Params) {
				h.params[i] += ": " + sig.Params[i].String()
			}
		}

		if sig.Typed {
			h.ret = sig.Return.String()
		}

		return h, true
	}

	h, ok := builtinSignatures[call.name]

	return h, ok
}

// renderSignatureHint renders h with the parameter at argIndex highlighted.
// A variadic parameter stays highlighted for every argument past it.
func renderSignatureHint(h hint, argIndex int) string {
	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(h.name))
	b.WriteString(signatureStyle.Render("("))

	for i, p := range h.params {
		if i > 0 {
			b.WriteString(signatureStyle.Render(", "))
		}

		variadic := strings.HasPrefix(p, "...")
		if argIndex == i || (variadic && argIndex > i) {
			b.WriteString(currentParamStyle.Render(p))
		} else {
			b.WriteString(signatureStyle.Render(p))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	if h.ret != "" {
		b.WriteString(signatureStyle.Render(" -> " + h.ret))
	}

	return b.String()
}
