package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/jinx/listener"
	"github.com/ardnew/jinx/log"
	"github.com/ardnew/jinx/span"
)

// Render renders templates with the render variables.
type Render struct {
	Templates []string `arg:"" default:"-" help:"Template file(s) or '-' for stdin" name:"template"`
	Output    string   `help:"Write output to file instead of stdout" short:"o" type:"path"`
	Spans     string   `help:"Write the macro spans of each template as YAML to file" type:"path"`
	Symbols   string   `help:"Write the definitions and references of each template as YAML to file" type:"path"`
}

// spanRecord is the YAML form of the macro spans of one template.
type spanRecord struct {
	Template string          `yaml:"template"`
	Spans    span.MacroSpans `yaml:"spans"`
}

// symbolRecord is the YAML form of the symbols of one template.
type symbolRecord struct {
	Template    string            `yaml:"template"`
	Definitions []listener.Symbol `yaml:"definitions"`
	References  []listener.Symbol `yaml:"references"`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	tmpls, err := readTemplates(r.Templates, os.Stdin)
	if err != nil {
		return err
	}

	out := outputFrom(ctx)

	if r.Output != "" {
		f, err := os.Create(r.Output)
		if err != nil {
			return ErrWriteOutput.Wrap(err).With(slog.String("path", r.Output))
		}

		defer f.Close()

		out = f
	}

	e := engineFrom(ctx)
	data := dataFrom(ctx)
	records := make([]spanRecord, 0, len(tmpls))
	symbols := make([]symbolRecord, 0, len(tmpls))

	for _, t := range tmpls {
		var sym listener.SymbolRecorder

		text, spans, err := e.RenderWith(ctx, t.Name, t.Source, data, &sym)
		if err != nil {
			return err
		}

		if _, err := io.WriteString(out, text); err != nil {
			return ErrWriteOutput.Wrap(err).With(slog.String("template", t.Name))
		}

		log.DebugContext(ctx, "rendered",
			slog.String("template", t.Name),
			slog.Int("bytes", len(text)),
			slog.Int("spans", len(spans)))

		records = append(records, spanRecord{Template: t.Name, Spans: spans})
		symbols = append(symbols, symbolRecord{
			Template:    t.Name,
			Definitions: sym.Definitions,
			References:  sym.References,
		})
	}

	if err := writeYAML(r.Spans, records); err != nil {
		return err
	}

	return writeYAML(r.Symbols, symbols)
}

// writeYAML writes v as YAML to the file at path. An empty path writes
// nothing.
func writeYAML(path string, v any) error {
	if path == "" {
		return nil
	}

	buf, err := yaml.MarshalWithOptions(v, yaml.Indent(2))
	if err != nil {
		return ErrMarshal.Wrap(err)
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return ErrWriteOutput.Wrap(err).With(slog.String("path", path))
	}

	return nil
}
