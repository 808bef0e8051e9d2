package listener

import (
	"log/slog"
	"sync/atomic"

	"github.com/ardnew/jinx/lang"
	"github.com/ardnew/jinx/span"
)

// ErrAnchorInitialized is returned when an [AnchorCell] is initialized
// twice.
var ErrAnchorInitialized = lang.NewError("anchor already initialized")

// AnchorCell holds the location diagnostics fall back to when they are
// raised outside any positioned construct. It can be initialized once.
type AnchorCell struct {
	loc atomic.Pointer[span.CodeLocation]
}

// DefaultAnchor is the process-wide anchor.
var DefaultAnchor AnchorCell

// Init sets the anchor location and returns its handle.
func (c *AnchorCell) Init(loc span.CodeLocation) (Anchor, error) {
	if !c.loc.CompareAndSwap(nil, &loc) {
		return Anchor{}, ErrAnchorInitialized.With(slog.String("location", c.loc.Load().String()))
	}

	return Anchor{cell: c}, nil
}

// Anchor is a handle to an initialized [AnchorCell]. The zero Anchor
// resolves to the zero location.
type Anchor struct {
	cell *AnchorCell
}

// Loc returns the anchored location.
func (a Anchor) Loc() span.CodeLocation {
	if a.cell == nil {
		return span.CodeLocation{}
	}

	if p := a.cell.loc.Load(); p != nil {
		return *p
	}

	return span.CodeLocation{}
}

// Resolve returns loc, or the anchored location when loc has no position.
func (a Anchor) Resolve(loc span.CodeLocation) span.CodeLocation {
	if loc.HasPosition() {
		return loc
	}

	anchored := a.Loc()
	if loc.File != "" && anchored.File == "" {
		anchored.File = loc.File
	}

	return anchored
}
