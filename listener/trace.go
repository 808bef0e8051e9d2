package listener

import (
	"context"
	"log/slog"

	"github.com/ardnew/jinx/log"
	"github.com/ardnew/jinx/span"
)

// Tracer logs every event at trace level.
type Tracer struct {
	ctx    context.Context
	logger log.Logger
	depth  int
}

// NewTracer returns a listener logging to logger.
func NewTracer(ctx context.Context, logger log.Logger) *Tracer {
	return &Tracer{ctx: ctx, logger: logger}
}

func (t *Tracer) OnEnterFuncBody() {
	t.depth++
	t.logger.TraceContext(t.ctx, "enter body", slog.Int("depth", t.depth))
}

func (t *Tracer) OnExitFuncBody() {
	t.logger.TraceContext(t.ctx, "exit body", slog.Int("depth", t.depth))
	t.depth--
}

func (t *Tracer) OnMacroStart(orig span.Span, expanded span.Location) {
	t.logger.TraceContext(t.ctx, "macro start",
		slog.String("orig", orig.String()),
		slog.String("expanded", expanded.String()))
}

func (t *Tracer) OnMacroStop(orig, expanded span.Location) {
	t.logger.TraceContext(t.ctx, "macro stop",
		slog.String("orig", orig.String()),
		slog.String("expanded", expanded.String()))
}

func (t *Tracer) OnReturn(expanded span.Location) {
	t.logger.TraceContext(t.ctx, "return", slog.String("expanded", expanded.String()))
}

func (t *Tracer) OnDefinition(name string, at span.Span) {
	t.logger.TraceContext(t.ctx, "define", slog.String("name", name), slog.String("at", at.String()))
}

func (t *Tracer) OnReference(name string, at span.Span) {
	t.logger.TraceContext(t.ctx, "reference", slog.String("name", name), slog.String("at", at.String()))
}

func (t *Tracer) OnDiagnostic(d Diagnostic) {
	t.logger.DebugContext(t.ctx, "diagnostic", slog.Any("diagnostic", d))
}
