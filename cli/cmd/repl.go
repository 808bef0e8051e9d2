package cmd

import (
	"context"
	"os"

	"github.com/ardnew/jinx/cli/cmd/repl"
	"github.com/ardnew/jinx/log"
)

// Repl evaluates expressions interactively after an optional library
// template.
type Repl struct {
	Template string `arg:"" help:"Library template whose macros are in scope" optional:"" type:"existingfile"`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	name, source := "<repl>", ""

	if r.Template != "" {
		tmpls, err := readTemplates([]string{r.Template}, os.Stdin)
		if err != nil {
			return err
		}

		name, source = tmpls[0].Name, tmpls[0].Source
	}

	cacheDir, ok := kongContextFrom(ctx).Model.Vars()[CacheIdentifier]
	if !ok {
		panic("internal error: cache directory undefined")
	}

	return repl.Run(ctx, engineFrom(ctx), dataFrom(ctx), name, source, cacheDir, log.Default())
}
