package engine

// This file defines the environment command-line definitions are evaluated
// in. The builtin part is initialized once per process and cloned on every
// access so definitions may extend it without affecting other callers.

import (
	"log/slog"
	"maps"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/ardnew/mung"
	"github.com/expr-lang/expr"

	"github.com/ardnew/jinx/lang"
)

// Definition errors.
var (
	ErrDefinition   = lang.NewError("definition must have the form name=expression")
	ErrExprCompile  = lang.NewError("failed to compile expression")
	ErrExprEvaluate = lang.NewError("failed to evaluate expression")
)

//nolint:gochecknoglobals
var (
	envOnce sync.Once
	envBase map[string]any
)

// builtinEnv returns a clone of the process-wide definition environment.
func builtinEnv() map[string]any {
	envOnce.Do(func() {
		envBase = map[string]any{
			"target":   getTarget(),
			"platform": getPlatform(),
			"hostname": getHostname(),
			"user":     getUser(),
			"cwd":      getCwd,

			"file": map[string]any{
				"exists": fileExists,
				"isDir":  fileIsDir,
			},

			"path": map[string]any{
				"abs":  pathAbs,
				"cat":  pathCat,
				"rel":  pathRel,
				"base": filepath.Base,
				"dir":  filepath.Dir,
			},

			"mung": map[string]any{
				"prefix":   mungPrefix,
				"prefixif": mungPrefixIf,
			},
		}
	})

	return maps.Clone(envBase)
}

// EnvKeys returns the sorted top-level names of the definition environment.
func EnvKeys() []string {
	keys := slices.Collect(maps.Keys(builtinEnv()))
	keys = append(keys, "env")
	slices.Sort(keys)

	return keys
}

// Define evaluates definitions of the form name=expression in order. Each
// expression sees the builtin environment, the process environment through
// env(key) and the names defined before it.
func Define(defs ...string) (map[string]any, error) {
	return DefineWith(nil, defs...)
}

// DefineWith is [Define] with the variables of base visible to every
// expression. base shadows the builtins and is not copied to the result.
func DefineWith(base map[string]any, defs ...string) (map[string]any, error) {
	env := builtinEnv()
	env["env"] = os.Getenv
	maps.Copy(env, base)

	out := make(map[string]any, len(defs))

	for _, def := range defs {
		name, source, ok := strings.Cut(def, "=")
		name = strings.TrimSpace(name)

		if !ok || name == "" {
			return nil, ErrDefinition.With(slog.String("definition", def))
		}

		program, err := expr.Compile(source, expr.Env(env))
		if err != nil {
			return nil, ErrExprCompile.Wrap(err).
				With(slog.String("name", name), slog.String("source", source))
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return nil, ErrExprEvaluate.Wrap(err).
				With(slog.String("name", name), slog.String("source", source))
		}

		env[name] = result
		out[name] = result
	}

	return out, nil
}

// target identifies an operating system and instruction set architecture.
type target struct {
	OS   string
	Arch string
}

// getTarget returns the host target using GNU naming conventions.
func getTarget() target {
	t := getPlatform()

	switch t.Arch {
	case "386":
		t.Arch = "i386"
	case "amd64":
		t.Arch = "x86_64"
	case "arm64":
		if t.OS != "darwin" {
			t.Arch = "aarch64"
		}
	case "mipsle":
		t.Arch = "mipsel"
	}

	return t
}

// getPlatform returns the host target using Go conventions.
func getPlatform() target {
	o, ok := os.LookupEnv("GOOS")
	if !ok {
		o = runtime.GOOS
	}

	a, ok := os.LookupEnv("GOARCH")
	if !ok {
		a = runtime.GOARCH
	}

	return target{OS: o, Arch: a}
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return ""
	}

	return hostname
}

func getUser() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}

	return u.Username
}

func getCwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return pathAbs(".")
	}

	return cwd
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}

func fileIsDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

func pathAbs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return p
}

func pathCat(elem ...string) string { return filepath.Join(elem...) }

func pathRel(from, to string) string {
	p, err := filepath.Rel(pathAbs(from), pathAbs(to))
	if err != nil {
		return pathCat(from, to)
	}

	return p
}

func mungPrefix(key string, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(key),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
	).String()
}

func mungPrefixIf(key string, predicate func(string) bool, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(key),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
		mung.WithFilter(predicate),
	).String()
}
