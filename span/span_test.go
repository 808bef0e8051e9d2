package span

import "testing"

func loc(line, col, off int) Location { return Location{Line: line, Col: col, Offset: off} }

func TestLocation_Advance(t *testing.T) {
	got := Start().Advance("ab\ncdé")

	if want := loc(2, 4, 7); got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLocation_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b Location
		want int
	}{
		{"by offset", loc(1, 9, 8), loc(2, 1, 10), -1},
		{"equal offsets", loc(1, 3, 2), loc(1, 3, 2), 0},
		{"zero offset falls back to line", loc(1, 1, 0), loc(2, 1, 5), -1},
		{"zero offset falls back to column", loc(3, 5, 0), loc(3, 2, 0), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLocation_SubAdd(t *testing.T) {
	tests := []struct {
		name     string
		from, to Location
		base     Location
		want     Location
	}{
		{"same line", loc(1, 8, 7), loc(1, 9, 8), loc(1, 10, 9), loc(1, 11, 10)},
		{"later line keeps column", loc(1, 8, 7), loc(3, 4, 20), loc(1, 10, 9), loc(3, 4, 22)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.base.Add(tt.to.Sub(tt.from)); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLocation_WithOffset(t *testing.T) {
	base := loc(3, 5, 40)

	if got, want := loc(1, 2, 1).WithOffset(base), loc(3, 6, 41); got != want {
		t.Errorf("first line: got %+v, want %+v", got, want)
	}

	if got, want := loc(2, 2, 10).WithOffset(base), loc(4, 2, 50); got != want {
		t.Errorf("later line: got %+v, want %+v", got, want)
	}
}

func TestSpan_Contains(t *testing.T) {
	s := Span{Start: loc(1, 3, 2), Stop: loc(1, 8, 7)}

	for _, tt := range []struct {
		at   Location
		want bool
	}{
		{loc(1, 2, 1), false},
		{loc(1, 3, 2), true},
		{loc(1, 7, 6), true},
		{loc(1, 8, 7), false},
	} {
		if got := s.Contains(tt.at); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}

	if (Span{Start: loc(1, 3, 2), Stop: loc(1, 3, 2)}).Contains(loc(1, 3, 2)) {
		t.Error("empty span contains its start")
	}
}

func TestCodeLocation_String(t *testing.T) {
	expanded := CodeLocation{Location: loc(1, 9, 8), File: "target/model.sql"}

	tests := []struct {
		name string
		c    CodeLocation
		want string
	}{
		{"file only", CodeLocation{File: "a.sql"}, "a.sql"},
		{"line only", CodeLocation{Location: Location{Line: 4}, File: "a.sql"}, "a.sql:4"},
		{"full", CodeLocation{Location: loc(4, 2, 30), File: "a.sql"}, "a.sql:4:2"},
		{"expanded", CodeLocation{Location: loc(1, 3, 2), File: "a.sql", Expanded: &expanded}, "a.sql:1:3 (target/model.sql:1:9)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// "a {{ x }} b" rendered as "a hello b".
func singleSpan() MacroSpans {
	return MacroSpans{{
		Macro:    Span{Start: loc(1, 3, 2), Stop: loc(1, 10, 9)},
		Expanded: Span{Start: loc(1, 3, 2), Stop: loc(1, 8, 7)},
	}}
}

func TestMacroSpans_Remap(t *testing.T) {
	spans := MacroSpans{
		{
			Macro:    Span{Start: loc(1, 3, 2), Stop: loc(1, 10, 9)},
			Expanded: Span{Start: loc(1, 3, 2), Stop: loc(1, 8, 7)},
		},
		{
			Macro:    Span{Start: loc(2, 1, 12), Stop: loc(4, 3, 40)},
			Expanded: Span{Start: loc(2, 1, 10), Stop: loc(2, 6, 15)},
		},
	}

	tests := []struct {
		name string
		at   Location
		want Location
	}{
		{"before any span", loc(1, 2, 1), loc(1, 2, 1)},
		{"inside first span", loc(1, 5, 4), loc(1, 3, 2)},
		{"after first span", loc(1, 9, 8), loc(1, 11, 10)},
		{"inside second span", loc(2, 3, 12), loc(2, 1, 12)},
		{"after last span same line", loc(2, 8, 17), loc(4, 5, 42)},
		{"after last span later line", loc(3, 2, 20), loc(5, 2, 45)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := spans.Remap(tt.at); got != tt.want {
				t.Errorf("Remap(%+v) = %+v, want %+v", tt.at, got, tt.want)
			}
		})
	}
}

func TestMacroSpans_RemapEmpty(t *testing.T) {
	var spans MacroSpans

	at := loc(3, 4, 17)
	if got := spans.Remap(at); got != at {
		t.Errorf("got %+v, want identity", got)
	}
}

func TestMacroSpans_Resolve(t *testing.T) {
	c := CodeLocation{Location: loc(1, 9, 8), File: "models/a.sql"}

	got := singleSpan().Resolve(c, "target/a.sql")

	if got.Location != loc(1, 11, 10) || got.File != "models/a.sql" {
		t.Errorf("got %v", got)
	}

	if got.Expanded == nil || got.Expanded.Location != c.Location || got.Expanded.File != "target/a.sql" {
		t.Errorf("expanded: got %v", got.Expanded)
	}
}

func TestMacroSpans_PushRejectsOverlap(t *testing.T) {
	spans := singleSpan()

	if spans.Push(MacroSpan{
		Macro:    Span{Start: loc(1, 5, 4), Stop: loc(1, 12, 11)},
		Expanded: Span{Start: loc(1, 9, 8), Stop: loc(1, 10, 9)},
	}) {
		t.Error("accepted an overlapping span")
	}

	if !spans.Push(MacroSpan{
		Macro:    Span{Start: loc(1, 12, 11), Stop: loc(1, 14, 13)},
		Expanded: Span{Start: loc(1, 9, 8), Stop: loc(1, 10, 9)},
	}) {
		t.Error("rejected an ordered span")
	}

	if len(spans) != 2 {
		t.Errorf("got %d spans", len(spans))
	}

	if !spans.Equal(append(MacroSpans(nil), spans...)) {
		t.Error("Equal failed on a copy")
	}
}
