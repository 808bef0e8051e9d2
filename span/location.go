package span

import (
	"fmt"
	"unicode/utf8"
)

// Location is a point in a text. Line and Col are 1-based and Col counts
// runes; Offset is a 0-based byte offset.
type Location struct {
	Line   int `json:"line"   yaml:"line"`
	Col    int `json:"col"    yaml:"col"`
	Offset int `json:"offset" yaml:"offset"`
}

// Start returns the location of the first character of a text.
func Start() Location { return Location{Line: 1, Col: 1} }

// IsZero reports whether l carries no position information.
func (l Location) IsZero() bool { return l.Line == 0 && l.Col == 0 }

// Advance returns the location reached after reading s from l.
func (l Location) Advance(s string) Location {
	for len(s) > 0 {
		r, n := utf8.DecodeRuneInString(s)
		s = s[n:]
		l.Offset += n

		if r == '\n' {
			l.Line++
			l.Col = 1
		} else {
			l.Col++
		}
	}

	return l
}

// Compare orders locations by byte offset, falling back to line and column
// when either offset is zero.
func (l Location) Compare(o Location) int {
	if l.Offset != 0 && o.Offset != 0 {
		return cmpInt(l.Offset, o.Offset)
	}

	if c := cmpInt(l.Line, o.Line); c != 0 {
		return c
	}

	return cmpInt(l.Col, o.Col)
}

// Diff is the distance between two locations as produced by
// [Location.Sub]. When Line is non-zero, Col is an absolute column rather
// than a delta.
type Diff struct {
	Line   int
	Col    int
	Offset int
}

// Sub returns the distance from o to l.
func (l Location) Sub(o Location) Diff {
	d := Diff{Line: l.Line - o.Line, Offset: l.Offset - o.Offset}
	if d.Line == 0 {
		d.Col = l.Col - o.Col
	} else {
		d.Col = l.Col
	}

	return d
}

// Add returns l moved by d.
func (l Location) Add(d Diff) Location {
	r := Location{Line: l.Line + d.Line, Offset: l.Offset + d.Offset}
	if d.Line == 0 {
		r.Col = l.Col + d.Col
	} else {
		r.Col = d.Col
	}

	return r
}

// WithOffset translates l, which is relative to a text embedded at base,
// into the coordinates of the enclosing text.
func (l Location) WithOffset(base Location) Location {
	r := Location{Line: l.Line + base.Line - 1, Col: l.Col, Offset: l.Offset + base.Offset}
	if l.Line == 1 {
		r.Col = l.Col + base.Col - 1
	}

	return r
}

func (l Location) String() string { return fmt.Sprintf("%d:%d", l.Line, l.Col) }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
