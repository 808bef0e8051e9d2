// Package span models positions in template source and rendered output,
// and maps rendered positions back to the source the user wrote.
//
// A [Location] is a point (line, column, byte offset). A [Span] is a
// half-open range between two Locations. A [CodeLocation] adds a file and
// an optional pointer to the position it was remapped from.
//
// During rendering, every macro-expanded region of the output is recorded as
// a [MacroSpan] pairing the original source range with the range it occupies
// in the rendered text. [MacroSpans.Remap] uses the ordered sequence of these
// pairs to translate any rendered position back to the original source.
package span
