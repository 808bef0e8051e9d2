package span

// MacroSpan pairs the original source range of a macro-expanded construct
// with the range its expansion occupies in the rendered text.
type MacroSpan struct {
	Macro    Span `json:"macro"    yaml:"macro"`
	Expanded Span `json:"expanded" yaml:"expanded"`
}

// MacroSpans is the ordered sequence of spans recorded by one render pass.
// Entries are in increasing original-source order and never overlap.
type MacroSpans []MacroSpan

// Push appends ms if it starts at or after the end of the last entry in
// both the original and the expanded text. It reports whether ms was
// appended.
func (m *MacroSpans) Push(ms MacroSpan) bool {
	if n := len(*m); n > 0 {
		last := (*m)[n-1]
		if ms.Macro.Start.Compare(last.Macro.Stop) < 0 ||
			ms.Expanded.Start.Compare(last.Expanded.Stop) < 0 {
			return false
		}
	}

	*m = append(*m, ms)

	return true
}

// Remap translates a location in the rendered text to the original source.
//
// A location inside an expanded range maps to the start of its original
// range. Any other location keeps its distance from the end of the nearest
// preceding expanded range, measured from the end of that range's original.
func (m MacroSpans) Remap(l Location) Location {
	prevMacroEnd, prevExpandedEnd := Start(), Start()

	for _, ms := range m {
		if ms.Expanded.Contains(l) {
			return ms.Macro.Start
		}

		if l.Compare(ms.Expanded.Start) < 0 {
			return prevMacroEnd.Add(l.Sub(prevExpandedEnd))
		}

		prevMacroEnd, prevExpandedEnd = ms.Macro.Stop, ms.Expanded.Stop
	}

	return prevMacroEnd.Add(l.Sub(prevExpandedEnd))
}

// Resolve remaps c into the original source. When expandedFile is not
// empty, the result carries c (located in expandedFile) as its expanded
// location.
func (m MacroSpans) Resolve(c CodeLocation, expandedFile string) CodeLocation {
	r := CodeLocation{Location: m.Remap(c.Location), File: c.File}

	if expandedFile != "" {
		r.Expanded = &CodeLocation{Location: c.Location, File: expandedFile}
	}

	return r
}

// Equal reports whether m and o hold the same spans in the same order.
func (m MacroSpans) Equal(o MacroSpans) bool {
	if len(m) != len(o) {
		return false
	}

	for i := range m {
		if m[i] != o[i] {
			return false
		}
	}

	return true
}
