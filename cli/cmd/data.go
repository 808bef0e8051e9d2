package cmd

import (
	"log/slog"
	"maps"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/jinx/engine"
)

// LoadData builds the render variables from YAML or JSON context files
// and name=expression definitions. Later files override the top-level keys
// of earlier ones and definitions override files.
func LoadData(files, defines []string) (map[string]any, error) {
	data := map[string]any{}

	for _, path := range files {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, ErrReadContext.Wrap(err).With(slog.String("path", path))
		}

		var doc map[string]any
		if err := yaml.Unmarshal(buf, &doc); err != nil {
			return nil, ErrReadContext.Wrap(err).With(slog.String("path", path))
		}

		maps.Copy(data, doc)
	}

	defs, err := engine.DefineWith(data, defines...)
	if err != nil {
		return nil, err
	}

	maps.Copy(data, defs)

	return data, nil
}
