package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/ardnew/jinx/cli/cmd"
	"github.com/ardnew/jinx/engine"
	"github.com/ardnew/jinx/listener"
	"github.com/ardnew/jinx/log"
	"github.com/ardnew/jinx/pkg"
	"github.com/ardnew/jinx/span"
	"github.com/ardnew/jinx/vm"
)

// baseConfig is the base name of the configuration file.
const baseConfig = "config"

// defaultDirMode is the permission mode of created directories.
var defaultDirMode os.FileMode = 0o700

// CLI is the top-level command-line interface for jinx.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Context        []string `help:"YAML or JSON file(s) with render variables"         short:"c" type:"existingfile"`
	Define         []string `help:"Define a render variable as name=expression"        short:"D"`
	AutoEscape     bool     `help:"HTML-escape emitted values"`
	RecursionLimit int      `help:"Maximum nesting of macro calls"                     default:"${recursionLimit}"`

	Render cmd.Render `cmd:"" default:"withargs" help:"Render templates"`
	Check  cmd.Check  `cmd:""                    help:"Type check templates"`
	Sigs   cmd.Sigs   `cmd:""                    help:"Print the macro signatures of templates"`
	Dump   cmd.Dump   `cmd:""                    help:"Print the compiled instructions or control flow graph"`
	Repl   cmd.Repl   `cmd:""                    help:"Evaluate expressions interactively"`
	Init   cmd.Init   `cmd:""                    help:"Initialize configuration file"`
}

// Run executes the jinx CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	if err := mkdirAllRequired(); err != nil {
		return err
	}

	configFilePath := configPath(baseConfig)

	vars := kong.Vars{
		cmd.ConfigIdentifier: configFilePath + ".yaml",
		cmd.CacheIdentifier:  pkg.CacheDir(),
		"recursionLimit":     "500",
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Apply logger flags before kong parses anything so that errors raised
	// during parsing are already formatted as requested.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, configFilePath+".json"),
		kong.Configuration(resolve, configFilePath+".yaml"),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cli.Log.start(ctx)

	defer cli.Pprof.start(ctx)()

	data, err := cmd.LoadData(cli.Context, cli.Define)
	if err != nil {
		return err
	}

	// The process-wide anchor locates diagnostics raised outside any
	// positioned construct at the start of the checked file.
	anchor, err := listener.DefaultAnchor.Init(span.CodeLocation{Location: span.Start()})
	if err != nil {
		return err
	}

	escape := vm.EscapeNone
	if cli.AutoEscape {
		escape = vm.EscapeHTML
	}

	e := engine.New(
		engine.WithLogger(log.Default()),
		engine.WithAnchor(anchor),
		engine.WithAutoEscape(escape),
		engine.WithRecursionLimit(cli.RecursionLimit),
	)

	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithEngine(ctx, e)
	ctx = cmd.WithData(ctx, data)

	return ktx.Run(ctx, &cli)
}

// configPath joins elem to the configuration directory.
func configPath(elem ...string) string {
	return filepath.Join(append([]string{pkg.ConfigDir()}, elem...)...)
}

// mkdirAllRequired creates the configuration and cache directories.
func mkdirAllRequired() error {
	if err := os.MkdirAll(pkg.ConfigDir(), defaultDirMode); err != nil {
		return err
	}

	return os.MkdirAll(pkg.CacheDir(), defaultDirMode)
}
