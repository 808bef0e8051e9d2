// Package log provides a concurrency-safe logging interface based on
// [log/slog].
//
// A [Logger] is an immutable value: [Logger.Wrap] and [Logger.With] return
// new loggers and never modify the receiver. The zero Logger discards
// everything, so library packages can hold one without checking for nil.
//
// # Basic Usage
//
//	logger := log.Make(os.Stderr, log.WithLevel(log.LevelDebug))
//	logger.Info("compiled", slog.String("template", name))
//
// # Package-level Logger
//
// The package-level functions ([Info], [Debug], ...) write through a
// default logger that is reconfigured with [Config]:
//
//	log.Config(log.WithFormat(log.FormatText), log.WithPretty(true))
//
// # Levels
//
// [LevelTrace] sits below [LevelDebug] and is used for per-instruction and
// per-block detail in the compiler, VM and type checker.
package log
