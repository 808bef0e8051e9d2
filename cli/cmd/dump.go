package cmd

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/ardnew/jinx/cfg"
)

// Dump prints the compiled form of a template.
type Dump struct {
	Template string `arg:"" default:"-" help:"Template file or '-' for stdin" name:"template"`
	Format   string `default:"instructions" enum:"instructions,cfg,dot" help:"Output format" short:"f"`
	Block    string `help:"Dump the named block instead of the root instructions" short:"b"`
}

// Run executes the dump command.
func (d *Dump) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	tmpls, err := readTemplates([]string{d.Template}, os.Stdin)
	if err != nil || len(tmpls) == 0 {
		return err
	}

	t := tmpls[0]

	prog, err := engineFrom(ctx).Compile(ctx, t.Name, t.Source)
	if err != nil {
		return err
	}

	instrs := prog.Instructions
	if d.Block != "" {
		b, ok := prog.Blocks[d.Block]
		if !ok {
			return ErrUnknownBlock.With(
				slog.String("block", d.Block),
				slog.Any("blocks", slices.Sorted(maps.Keys(prog.Blocks))))
		}

		instrs = b
	}

	text := instrs.String()

	if d.Format != "instructions" {
		g, err := cfg.Build(instrs)
		if err != nil {
			return err
		}

		text = g.String()
		if d.Format == "dot" {
			text = g.DOT(t.Name)
		}
	}

	_, err = io.WriteString(outputFrom(ctx), text)

	return err
}
