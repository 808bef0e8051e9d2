// Package cmd provides the subcommands of the jinx command line: render,
// check, sigs, dump, repl and init.
//
// Commands receive the shared [engine.Engine], the render variables and
// the kong context through their context.Context.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the YAML configuration file.
	ConfigIdentifier = "config"
)
