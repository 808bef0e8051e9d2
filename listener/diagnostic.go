package listener

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"

	"github.com/ardnew/jinx/span"
)

// Severity ranks a [Diagnostic].
type Severity uint8

// Severities.
const (
	Warning Severity = iota
	Error
	Info
)

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Info:
		return "info"
	default:
		return "warning"
	}
}

// Diagnostic is a finding of the type checker.
type Diagnostic struct {
	Loc      span.CodeLocation `json:"loc"      yaml:"loc"`
	Code     string            `json:"code"     yaml:"code"`     // Stable identifier such as "undefined-variable"
	Msg      string            `json:"msg"      yaml:"msg"`
	Severity Severity          `json:"severity" yaml:"severity"`
}

func (d Diagnostic) String() string {
	s := d.Severity.String() + ": " + d.Msg
	if d.Code != "" {
		s += " [" + d.Code + "]"
	}

	if d.Loc.File != "" || d.Loc.HasPosition() {
		s = d.Loc.String() + ": " + s
	}

	return s
}

// LogValue implements slog.LogValuer.
func (d Diagnostic) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("severity", d.Severity.String()),
		slog.String("code", d.Code),
		slog.String("msg", d.Msg),
		slog.String("loc", d.Loc.String()),
	)
}

// DiagnosticCollector accumulates diagnostics. Diagnostics on a source line
// containing "noqa" are dropped.
type DiagnosticCollector struct {
	Nop

	lines []string
	diags []Diagnostic
}

// NewDiagnosticCollector returns a collector for diagnostics of source.
func NewDiagnosticCollector(source string) *DiagnosticCollector {
	return &DiagnosticCollector{lines: strings.Split(source, "\n")}
}

func (c *DiagnosticCollector) OnDiagnostic(d Diagnostic) {
	if n := d.Loc.Line; n > 0 && n <= len(c.lines) && strings.Contains(c.lines[n-1], "noqa") {
		return
	}

	c.diags = append(c.diags, d)
}

// Diagnostics returns the collected diagnostics ordered by line, column
// and message.
func (c *DiagnosticCollector) Diagnostics() []Diagnostic {
	out := slices.Clone(c.diags)

	slices.SortStableFunc(out, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Loc.Line, b.Loc.Line),
			cmp.Compare(a.Loc.Col, b.Loc.Col),
			strings.Compare(a.Msg, b.Msg),
		)
	})

	return out
}

// Len returns the number of diagnostics collected.
func (c *DiagnosticCollector) Len() int { return len(c.diags) }
