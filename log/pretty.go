package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	stringStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	numberStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	trueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	falseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	msgStyle    = lipgloss.NewStyle().Bold(true)

	levelStyle = map[slog.Level]lipgloss.Style{
		slog.Level(LevelTrace): lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		slog.LevelDebug:        lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		slog.LevelInfo:         lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		slog.LevelWarn:         lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		slog.LevelError:        lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// prettyHandler renders records for terminals, either as a single
// "key=value" line (text) or as an indented object (json).
type prettyHandler struct {
	opts       slog.HandlerOptions
	formatTime func(time.Time) string
	mu         *sync.Mutex
	w          io.Writer
	attrs      []slog.Attr
	groups     []string
	format     Format
}

func newPrettyHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
	format Format,
	formatTime func(time.Time) string,
) *prettyHandler {
	return &prettyHandler{
		opts:       *opts,
		formatTime: formatTime,
		mu:         &sync.Mutex{},
		w:          w,
		format:     format,
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)

	for _, a := range attrs {
		c.attrs = append(c.attrs, h.qualify(a))
	}

	return &c
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.groups = append(h.groups[:len(h.groups):len(h.groups)], name)

	return &c
}

func (h *prettyHandler) qualify(a slog.Attr) slog.Attr {
	if len(h.groups) > 0 {
		a.Key = strings.Join(h.groups, ".") + "." + a.Key
	}

	return a
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]slog.Attr, 0, r.NumAttrs()+len(h.attrs)+4)

	if ts := h.formatTime(r.Time); !r.Time.IsZero() && ts != "" {
		fields = append(fields, slog.String(slog.TimeKey, ts))
	}

	fields = append(fields, slog.Any(slog.LevelKey, r.Level))

	if h.opts.AddSource && r.PC != 0 {
		if src := r.Source(); src != nil {
			fields = append(fields,
				slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", src.File, src.Line)))
		}
	}

	fields = append(fields, slog.String(slog.MessageKey, r.Message))
	fields = append(fields, h.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, h.qualify(a))

		return true
	})

	var buf bytes.Buffer

	if h.format == FormatJSON {
		h.writeObject(&buf, fields)
	} else {
		h.writeLine(&buf, fields)
	}

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

func (h *prettyHandler) writeLine(buf *bytes.Buffer, fields []slog.Attr) {
	for i, a := range fields {
		if i > 0 {
			buf.WriteByte(' ')
		}

		switch a.Key {
		case slog.MessageKey:
			buf.WriteString(msgStyle.Render(a.Value.String()))
		case slog.LevelKey, slog.TimeKey:
			buf.WriteString(renderValue(a.Key, a.Value))
		default:
			buf.WriteString(keyStyle.Render(a.Key))
			buf.WriteByte('=')
			buf.WriteString(renderValue(a.Key, a.Value))
		}
	}
}

func (h *prettyHandler) writeObject(buf *bytes.Buffer, fields []slog.Attr) {
	buf.WriteString("{\n")

	for i, a := range fields {
		buf.WriteString("  ")
		buf.WriteString(keyStyle.Render(a.Key))
		buf.WriteString(": ")
		buf.WriteString(renderValue(a.Key, a.Value))

		if i < len(fields)-1 {
			buf.WriteByte(',')
		}

		buf.WriteByte('\n')
	}

	buf.WriteString("}")
}

func renderValue(key string, v slog.Value) string {
	v = v.Resolve()

	switch v.Kind() {
	case slog.KindString:
		if key == slog.TimeKey {
			return timeStyle.Render(v.String())
		}

		return stringStyle.Render(v.String())
	case slog.KindInt64:
		return numberStyle.Render(strconv.FormatInt(v.Int64(), 10))
	case slog.KindUint64:
		return numberStyle.Render(strconv.FormatUint(v.Uint64(), 10))
	case slog.KindFloat64:
		return numberStyle.Render(strconv.FormatFloat(v.Float64(), 'g', -1, 64))
	case slog.KindBool:
		if v.Bool() {
			return trueStyle.Render("true")
		}

		return falseStyle.Render("false")
	case slog.KindDuration:
		return numberStyle.Render(v.Duration().String())
	case slog.KindTime:
		return timeStyle.Render(v.Time().Format(time.RFC3339))
	case slog.KindGroup:
		parts := make([]string, 0, len(v.Group()))
		for _, a := range v.Group() {
			parts = append(parts, a.Key+"="+renderValue(a.Key, a.Value))
		}

		return "{" + strings.Join(parts, " ") + "}"
	}

	if level, ok := v.Any().(slog.Level); ok {
		name := strings.ToUpper(Level(level).String())
		if style, ok := levelStyle[level]; ok {
			return style.Render(name)
		}

		return name
	}

	return stringStyle.Render(v.String())
}
