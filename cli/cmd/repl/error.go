package repl

import "github.com/ardnew/jinx/lang"

// Sentinel errors.
var (
	ErrOutOfBounds  = lang.NewError("history index out of range")
	ErrEditDeclined = lang.NewError("edit declined")
)
