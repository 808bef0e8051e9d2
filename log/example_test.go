package log_test

import (
	"log/slog"
	"os"

	"github.com/ardnew/jinx/log"
)

func ExampleMake() {
	l := log.Make(os.Stdout,
		log.WithFormat(log.FormatText),
		log.WithTimeLayout("none"),
	)

	l.Info("rendered", slog.String("template", "model.sql"), slog.Int("spans", 3))
	// Output: level=INFO msg=rendered template=model.sql spans=3
}
