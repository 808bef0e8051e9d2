package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/jinx/listener"
)

var (
	locStyle  = lipgloss.NewStyle().Bold(true)
	codeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	severityStyle = map[listener.Severity]lipgloss.Style{
		listener.Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		listener.Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		listener.Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	}
)

// Check type checks templates and prints their diagnostics.
type Check struct {
	Templates []string `arg:"" default:"-" help:"Template file(s) or '-' for stdin" name:"template"`
	Format    string   `default:"text" enum:"text,yaml,json" help:"Diagnostic output format" short:"f"`
	Strict    bool     `help:"Fail on warnings as well as errors"`
}

// report is the structured form of the diagnostics of one template.
type report struct {
	Template    string                `json:"template"    yaml:"template"`
	Diagnostics []listener.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
}

// Run executes the check command.
func (c *Check) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	tmpls, err := readTemplates(c.Templates, os.Stdin)
	if err != nil {
		return err
	}

	e := engineFrom(ctx)
	data := dataFrom(ctx)
	reports := make([]report, 0, len(tmpls))

	for _, t := range tmpls {
		coll := listener.NewDiagnosticCollector(t.Source)

		if err := e.Check(ctx, t.Name, t.Source, data, coll); err != nil {
			return err
		}

		reports = append(reports, report{Template: t.Name, Diagnostics: coll.Diagnostics()})
	}

	if err := c.print(outputFrom(ctx), reports); err != nil {
		return err
	}

	var failed int

	for _, r := range reports {
		for _, d := range r.Diagnostics {
			if d.Severity == listener.Error || (c.Strict && d.Severity == listener.Warning) {
				failed++
			}
		}
	}

	if failed > 0 {
		return ErrDiagnostics.With(slog.Int("count", failed))
	}

	return nil
}

func (c *Check) print(w io.Writer, reports []report) error {
	switch c.Format {
	case "yaml", "json":
		var opts []yaml.EncodeOption
		if c.Format == "json" {
			opts = append(opts, yaml.JSON())
		}

		buf, err := yaml.MarshalWithOptions(reports, opts...)
		if err != nil {
			return ErrMarshal.Wrap(err)
		}

		_, err = w.Write(buf)

		return err
	}

	var b strings.Builder

	for _, r := range reports {
		for _, d := range r.Diagnostics {
			b.WriteString(formatDiagnostic(r.Template, d))
			b.WriteByte('\n')
		}
	}

	_, err := io.WriteString(w, b.String())

	return err
}

// formatDiagnostic renders d as "file:line:col: severity: message [code]".
func formatDiagnostic(file string, d listener.Diagnostic) string {
	loc := d.Loc
	if loc.File == "" {
		loc.File = file
	}

	s := locStyle.Render(loc.String()+":") + " " +
		severityStyle[d.Severity].Render(d.Severity.String()+":") + " " + d.Msg

	if d.Code != "" {
		s += " " + codeStyle.Render(fmt.Sprintf("[%s]", d.Code))
	}

	return s
}
