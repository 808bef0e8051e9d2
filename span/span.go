package span

import "fmt"

// Span is the half-open range [Start, Stop) of a text.
type Span struct {
	Start Location `json:"start" yaml:"start"`
	Stop  Location `json:"stop"  yaml:"stop"`
}

// Contains reports whether l lies within s. An empty span contains nothing.
func (s Span) Contains(l Location) bool {
	return s.Start.Compare(l) <= 0 && l.Compare(s.Stop) < 0
}

// IsEmpty reports whether s covers no text.
func (s Span) IsEmpty() bool { return s.Start.Compare(s.Stop) >= 0 }

// Overlaps reports whether s and o share any position.
func (s Span) Overlaps(o Span) bool {
	return s.Start.Compare(o.Stop) < 0 && o.Start.Compare(s.Stop) < 0
}

func (s Span) String() string { return fmt.Sprintf("%s-%s", s.Start, s.Stop) }

// CodeLocation is a location within a named file. Expanded, when set, is the
// position in the rendered text this location was remapped from; it is only
// used for display.
type CodeLocation struct {
	Location
	File     string        `json:"file"               yaml:"file"`
	Expanded *CodeLocation `json:"expanded,omitempty" yaml:"expanded,omitempty"`
}

// HasPosition reports whether c has line or column information.
func (c CodeLocation) HasPosition() bool { return !c.IsZero() }

// WithFile returns c located in file.
func (c CodeLocation) WithFile(file string) CodeLocation {
	c.File = file

	return c
}

// WithOffset returns c translated by [Location.WithOffset].
func (c CodeLocation) WithOffset(base Location) CodeLocation {
	c.Location = c.Location.WithOffset(base)

	return c
}

// String formats c as "file:line:col", omitting what is unknown, followed
// by the expanded location in parentheses when present.
func (c CodeLocation) String() string {
	var s string

	switch {
	case !c.HasPosition():
		s = c.File
	case c.Col == 0:
		s = fmt.Sprintf("%s:%d", c.File, c.Line)
	default:
		s = fmt.Sprintf("%s:%d:%d", c.File, c.Line, c.Col)
	}

	if c.Expanded != nil {
		s += " (" + c.Expanded.String() + ")"
	}

	return s
}
