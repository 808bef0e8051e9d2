package repl

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestHistory_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), baseHistory)
	h := NewHistory(path)

	for _, w := range []struct {
		line string
		mode inputMode
	}{
		{"a", modeEval},
		{"help", modeCtrl},
		{"b", modeEval},
		{"b", modeEval},
		{"a", modeEval},
		{"a", modeCtrl},
		{"  ", modeEval},
	} {
		if err := h.Write(w.line, w.mode); err != nil {
			t.Fatalf("Write(%q): %v", w.line, err)
		}
	}

	want := []HistoryEntry{
		{"help", modeCtrl},
		{"b", modeEval},
		{"a", modeEval},
		{"a", modeCtrl},
	}

	if got := h.Entries(); !slices.Equal(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}

	loaded := NewHistory(path)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := loaded.Entries(); !slices.Equal(got, want) {
		t.Errorf("loaded Entries() = %v, want %v", got, want)
	}
}

func TestHistory_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), baseHistory)

	if err := os.WriteFile(path, []byte("E:x\n\nC:quit\nbare\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	h := NewHistory(path)
	if err := h.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []HistoryEntry{{"x", modeEval}, {"quit", modeCtrl}, {"bare", modeEval}}
	if got := h.Entries(); !slices.Equal(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}

	if err := NewHistory(filepath.Join(t.TempDir(), "missing")).Load(); err != nil {
		t.Errorf("Load of missing file: %v", err)
	}
}

func TestHistory_Entry(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), baseHistory))
	_ = h.Write("x", modeEval)

	if e, err := h.Entry(0); err != nil || e.Line != "x" {
		t.Errorf("Entry(0) = %v, %v", e, err)
	}

	for _, i := range []int{-1, 1} {
		if _, err := h.Entry(i); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Entry(%d) error = %v, want ErrOutOfBounds", i, err)
		}
	}
}
