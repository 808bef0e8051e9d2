// Package cli contains the command line interface for jinx.
//
// # Usage
//
//	jinx [flags] render query.sql -c vars.yaml -D 'env=env("DEPLOY_ENV")'
//	jinx check models/*.sql
//	jinx sigs macros.sql
//	jinx dump --format=dot query.sql | dot -Tsvg
//	jinx repl macros.sql
//
// Render variables come from YAML or JSON files given with --context and
// from --define flags of the form name=expression. Definitions are
// evaluated with expr-lang in order, after the files, and may use the
// values defined before them as well as the builtins target, platform,
// hostname, user, cwd(), env(key), file.*, path.* and mung.*.
//
// # Configuration
//
// Flags may be set in <config dir>/jinx/config.yaml (or config.json).
// Nested mappings are joined with hyphens:
//
//	log:
//	  level: debug
//	recursion_limit: 200
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, Kitchen, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o jinx .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default:
//     ~/.cache/jinx/pprof)
package cli
