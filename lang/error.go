package lang

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ardnew/jinx/span"
)

// Predefined errors (sentinel values).
var (
	ErrSyntax            = NewError("syntax error")
	ErrInvalidOperation  = NewError("invalid operation")
	ErrTooManyArguments  = NewError("too many arguments")
	ErrMissingArgument   = NewError("missing argument")
	ErrRecursionLimit    = NewError("recursion limit exceeded")
	ErrUnknownFilter     = NewError("unknown filter")
	ErrUnknownTest       = NewError("unknown test")
	ErrUnknownFunction   = NewError("unknown function")
	ErrUnknownBlock      = NewError("unknown block")
	ErrNotCallable       = NewError("value is not callable")
	ErrNotIterable       = NewError("value is not iterable")
	ErrBadSerialization  = NewError("cannot serialize value")
	ErrReadInput         = NewError("failed to read input")
	ErrIntegerOverflow   = NewError("integer literal out of range")
	ErrMalformedProgram  = NewError("malformed instruction stream")
	ErrUndefinedVariable = NewError("undefined variable")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
	root  *Error      // Sentinel this error was derived from
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether e was derived from target through [Error.Wrap],
// [Error.With] or [Error.WithPosition].
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e == t || e.sentinel() == t.sentinel()
}

func (e *Error) sentinel() *Error {
	if e.root != nil {
		return e.root
	}

	return e
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Attrs returns the structured attributes attached to e.
func (e *Error) Attrs() []slog.Attr { return e.attrs }

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs, // Share attrs
		root:  e.sentinel(),
	}
}

// Wrapf wraps a formatted message.
func (e *Error) Wrapf(format string, args ...any) *Error {
	return e.Wrap(fmt.Errorf(format, args...))
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
		root:  e.sentinel(),
	}
}

// WithPosition attaches a source location.
func (e *Error) WithPosition(loc span.Location) *Error {
	return e.With(
		slog.Int("line", loc.Line),
		slog.Int("col", loc.Col),
		slog.Int("offset", loc.Offset),
	)
}

// SyntaxError reports source text that cannot be tokenized, parsed or
// compiled. It unwraps to [ErrSyntax].
type SyntaxError struct {
	Source string        // The full source text, used for the snippet
	Msg    string        // Description of the problem
	Loc    span.Location // Position of the offending text
	Char   rune          // Offending character, or 0
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = fmt.Sprintf("unexpected character %q at offset %d", e.Char, e.Loc.Offset)
	}

	if e.Source == "" || e.Loc.Line == 0 {
		return "syntax error: " + msg
	}

	return "syntax error at line " + strconv.Itoa(e.Loc.Line) +
		", column " + strconv.Itoa(e.Loc.Col) + ": " + msg + "\n" + e.Snippet()
}

// Unwrap returns [ErrSyntax].
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// LogValue implements slog.LogValuer.
func (e *SyntaxError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("error", e.Msg),
		slog.Int("line", e.Loc.Line),
		slog.Int("col", e.Loc.Col),
		slog.Int("offset", e.Loc.Offset),
	)
}

// Snippet returns the offending source line with a caret under the column.
func (e *SyntaxError) Snippet() string {
	lines := strings.Split(e.Source, "\n")
	if e.Loc.Line <= 0 || e.Loc.Line > len(lines) {
		return ""
	}

	var b strings.Builder

	num := strconv.Itoa(e.Loc.Line)

	b.WriteString("  ")
	b.WriteString(num)
	b.WriteString(" | ")
	b.WriteString(lines[e.Loc.Line-1])
	b.WriteRune('\n')

	// 2 leading spaces + " | "
	b.WriteString(strings.Repeat(" ", len(num)+5))

	if e.Loc.Col > 0 {
		b.WriteString(strings.Repeat(" ", e.Loc.Col-1))
	}

	b.WriteString("^\n")

	return b.String()
}
