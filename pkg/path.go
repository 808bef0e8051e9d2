package pkg

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Prefix returns the base name used for the configuration and cache
// directories.
//
// It is the base name of the executable unless it matches one of:
//   - "__debug_bin<N>" (dlv output): replaced with [Name]
//   - "^\.+": leading dots removed
//
//nolint:gochecknoglobals
var Prefix = sync.OnceValue(
	func() string {
		id := os.Args[0]
		if exe, err := os.Executable(); err == nil {
			id = exe
		}

		id = strings.TrimSuffix(filepath.Base(id), filepath.Ext(id))

		for rex, rep := range map[*regexp.Regexp]string{
			regexp.MustCompile(`^__debug_bin\d+$`): Name,
			regexp.MustCompile(`^\.+`):             "",
		} {
			id = rex.ReplaceAllString(id, rep)
		}

		if id == "" || strings.HasSuffix(id, ".test") {
			return Name
		}

		return id
	},
)

// userDir resolves a per-user base directory, falling back to a dot
// directory under $HOME and finally the working directory.
func userDir(primary func() (string, error), dot string) string {
	dir, err := primary()
	if err == nil {
		return filepath.Join(dir, Prefix())
	}

	if dir, err = os.UserHomeDir(); err == nil {
		return filepath.Join(dir, dot, Prefix())
	}

	if dir, err = os.Getwd(); err == nil {
		return filepath.Join(dir, dot, Prefix())
	}

	return filepath.Join(".", dot, Prefix())
}

// ConfigDir returns the configuration directory path.
//
//nolint:gochecknoglobals
var ConfigDir = sync.OnceValue(
	func() string { return userDir(os.UserConfigDir, ".config") },
)

// CacheDir returns the cache directory path used for REPL history and
// profiles.
//
//nolint:gochecknoglobals
var CacheDir = sync.OnceValue(
	func() string { return userDir(os.UserCacheDir, ".cache") },
)
