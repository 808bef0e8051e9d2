package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/ardnew/jinx/engine"
	"github.com/ardnew/jinx/lang"
)

type (
	contextKey struct{}
	engineKey  struct{}
	dataKey    struct{}
	outputKey  struct{}
)

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, _ := ctx.Value(contextKey{}).(*kong.Context)

	return ktx
}

// WithEngine returns a new context.Context containing the engine commands
// compile, render and check with.
func WithEngine(ctx context.Context, e *engine.Engine) context.Context {
	return context.WithValue(ctx, engineKey{}, e)
}

// engineFrom returns the engine stored by WithEngine, or a default engine.
func engineFrom(ctx context.Context) *engine.Engine {
	if e, ok := ctx.Value(engineKey{}).(*engine.Engine); ok && e != nil {
		return e
	}

	return engine.New()
}

// WithData returns a new context.Context containing the render variables.
func WithData(ctx context.Context, data map[string]any) context.Context {
	return context.WithValue(ctx, dataKey{}, data)
}

func dataFrom(ctx context.Context) map[string]any {
	data, _ := ctx.Value(dataKey{}).(map[string]any)

	return data
}

// WithOutput returns a new context.Context directing command output to w.
func WithOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, outputKey{}, w)
}

// outputFrom returns the writer stored by WithOutput, or os.Stdout.
func outputFrom(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(outputKey{}).(io.Writer); ok && w != nil {
		return w
	}

	return os.Stdout
}

// Template is a template source read from a file or stdin.
type Template struct {
	Name   string
	Source string
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// stdinName names templates read from stdin in diagnostics.
const stdinName = "<stdin>"

// fileKey uniquely identifies a file by its device and inode numbers.
// This handles deduplication across symlinks, absolute/relative paths, and
// special device files.
type fileKey struct {
	dev uint64
	ino uint64
}

// readTemplates reads the templates at paths in order. A path naming a file
// already read (through any link or relative spelling) is skipped, and
// every occurrence of "-" collapses into a single stdin template placed
// last.
func readTemplates(paths []string, stdin io.Reader) ([]Template, error) {
	if len(paths) == 0 {
		paths = []string{stdinSource}
	}

	var (
		out      []Template
		hasStdin bool
	)

	seen := make(map[fileKey]struct{})

	for _, path := range paths {
		if path == stdinSource {
			hasStdin = true

			continue
		}

		tmpl, ok, err := readUniqueFile(path, seen)
		if err != nil {
			return nil, err
		}

		if ok {
			out = append(out, tmpl)
		}
	}

	if hasStdin {
		src, err := lang.ReadSource(stdinName, stdin)
		if err != nil {
			return nil, err
		}

		out = append(out, Template{Name: stdinName, Source: src})
	}

	return out, nil
}

// readUniqueFile reads the file at path unless it has been seen before.
// It resolves symlinks and uses device/inode to detect duplicates.
func readUniqueFile(path string, seen map[fileKey]struct{}) (Template, bool, error) {
	fail := func(err error) (Template, bool, error) {
		return Template{}, false, ErrReadTemplate.Wrap(err).With(slog.String("path", path))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fail(err)
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return fail(err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return fail(err)
	}

	if key, ok := makeFileKey(info); ok {
		if _, exists := seen[key]; exists {
			return Template{}, false, nil
		}

		seen[key] = struct{}{}
	}

	f, err := os.Open(resolved)
	if err != nil {
		return fail(err)
	}

	defer f.Close()

	src, err := lang.ReadSource(path, f)
	if err != nil {
		return fail(err)
	}

	return Template{Name: path, Source: src}, true, nil
}

// makeFileKey creates a fileKey from os.FileInfo.
// Returns false if the underlying Sys() data is not of type *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true
}
