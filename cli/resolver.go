package cli

import (
	"io"
	"maps"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/jinx/lang"
)

// resolve is a [kong.ConfigurationLoader] reading a YAML configuration
// file. Nested mappings are flattened by joining keys with hyphens, and
// keys may use underscores in place of hyphens:
//
//	log:
//	  level: debug
//	  pretty: false
//	recursion_limit: 100
//
// is equivalent to
//
//	--log-level=debug --no-log-pretty --recursion-limit=100
//
// Command-line flags override configured values.
func resolve(r io.Reader) (kong.Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, lang.ErrReadInput.Wrap(err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, lang.ErrReadInput.Wrap(err)
	}

	return flatten("", doc), nil
}

// config implements [kong.Resolver] for flattened YAML configurations.
type config map[string]any

// flatten joins the keys of nested mappings with hyphens.
func flatten(prefix string, m map[string]any) config {
	out := config{}

	for k, v := range m {
		key := strings.ReplaceAll(k, "_", "-")
		if prefix != "" {
			key = prefix + "-" + key
		}

		if sub, ok := v.(map[string]any); ok {
			maps.Copy(out, flatten(key, sub))

			continue
		}

		out[key] = scalar(v)
	}

	return out
}

// scalar converts numbers to the strings kong parses flag values from.
func scalar(v any) any {
	switch v := v.(type) {
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		out := make([]any, len(v))
		for i, it := range v {
			out[i] = scalar(it)
		}

		return out
	}

	return v
}

// Validate implements [kong.Resolver].
func (config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (c config) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	if v, ok := c[flag.Name]; ok {
		return v, nil
	}

	return nil, nil
}
