//nolint:gochecknoglobals
package pkg

import (
	_ "embed"
	"strings"
)

// version is the semantic version embedded at build time.
//
//go:embed VERSION
var version string

// Version returns the semantic version of the jinx module.
func Version() string { return strings.TrimSpace(version) }

const (
	// Name is the canonical command and module identifier. It appears in help
	// text and in default config and cache paths.
	Name = "jinx"
	// Description is a short summary used in help output.
	Description = "Typed template macro compiler and renderer"
)

// AuthorInfo represents an individual author's name and email address.
type AuthorInfo struct {
	Name  string
	Email string
}

// Author lists the primary author(s) of the project.
var Author = []AuthorInfo{
	{"ardnew", "andrew@ardnew.com"},
}
