package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"testing"
)

func TestLogger_Make_Defaults(t *testing.T) {
	l := Make(&bytes.Buffer{})

	if l.Level() != LevelInfo {
		t.Errorf("Level() = %v, want %v", l.Level(), LevelInfo)
	}

	if l.Format() != FormatJSON {
		t.Errorf("Format() = %v, want %v", l.Format(), FormatJSON)
	}
}

func TestLogger_Zero_IsSilent(t *testing.T) {
	var l Logger

	l.Info("nothing")
	l.With(slog.String("k", "v")).Error("still nothing")

	if l.EnabledAt(t.Context(), LevelError) {
		t.Error("zero Logger reports enabled")
	}
}

func TestLogger_WithLevel_Filters(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithLevel(LevelWarn))
	l.Info("hidden")

	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}

	l.Warn("shown")

	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn not logged: %q", buf.String())
	}
}

func TestLogger_Trace_RendersName(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithLevel(LevelTrace), WithTimeLayout("none"))
	l.TraceContext(t.Context(), "step", slog.Int("pc", 3))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}

	if rec["level"] != "TRACE" {
		t.Errorf("level = %v, want TRACE", rec["level"])
	}

	if _, ok := rec["time"]; ok {
		t.Errorf("time present with layout none: %v", rec)
	}

	if rec["pc"] != float64(3) {
		t.Errorf("pc = %v, want 3", rec["pc"])
	}
}

func TestLogger_With_AddsAttrs(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithFormat(FormatText)).With(slog.String("template", "a.sql"))
	l.Info("compiled")

	if !strings.Contains(buf.String(), "template=a.sql") {
		t.Errorf("missing attr: %q", buf.String())
	}
}

func TestLogger_Wrap_KeepsOutput(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf).Wrap(WithFormat(FormatText))
	l.Info("wrapped")

	if !strings.Contains(buf.String(), "msg=wrapped") {
		t.Errorf("wrapped logger output = %q", buf.String())
	}
}

func TestLogger_Pretty_IncludesFields(t *testing.T) {
	for _, format := range []Format{FormatText, FormatJSON} {
		t.Run(format.String(), func(t *testing.T) {
			var buf bytes.Buffer

			l := Make(&buf, WithPretty(true), WithFormat(format)).
				With(slog.String("render", "r1"))
			l.Warn("remapped", slog.Int("spans", 2), slog.Bool("nested", false))

			out := buf.String()
			for _, want := range []string{"WARN", "remapped", "render", "r1", "spans", "2", "false"} {
				if !strings.Contains(out, want) {
					t.Errorf("output %q missing %q", out, want)
				}
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", DefaultLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat(" TEXT ") != FormatText {
		t.Error("ParseFormat(TEXT) != FormatText")
	}

	if ParseFormat("yaml") != DefaultFormat {
		t.Error("ParseFormat(yaml) != DefaultFormat")
	}
}

func TestLevels_Names(t *testing.T) {
	got := slices.Collect(Levels())
	want := []string{"trace", "debug", "info", "warn", "error"}

	if !slices.Equal(got, want) {
		t.Errorf("Levels() = %v, want %v", got, want)
	}
}

func TestConfig_ReconfiguresDefault(t *testing.T) {
	saved := Default()
	defer defaultLog.Store(&saved)

	var buf bytes.Buffer

	Config(WithOutput(&buf), WithLevel(LevelDebug), WithFormat(FormatJSON))
	Debug("configured", slog.String("key", "value"))

	if !strings.Contains(buf.String(), `"key":"value"`) {
		t.Errorf("default logger output = %q", buf.String())
	}
}
