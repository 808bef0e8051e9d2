package listener

import "github.com/ardnew/jinx/span"

type pending struct {
	orig     span.Span
	expanded span.Location
}

// MacroSpanRecorder records the [span.MacroSpans] of a render pass.
//
// Each evaluated function body gets a frame of pending starts. A stop
// produces a span only for the outermost construct of the root body, so a
// chain of nested expansions maps back to the text that started it.
type MacroSpanRecorder struct {
	Nop

	frames [][]pending
	spans  span.MacroSpans
}

// NewMacroSpanRecorder returns an empty recorder.
func NewMacroSpanRecorder() *MacroSpanRecorder { return &MacroSpanRecorder{} }

func (r *MacroSpanRecorder) OnEnterFuncBody() { r.frames = append(r.frames, nil) }

func (r *MacroSpanRecorder) OnExitFuncBody() {
	if n := len(r.frames); n > 0 {
		r.frames = r.frames[:n-1]
	}
}

func (r *MacroSpanRecorder) OnMacroStart(orig span.Span, expanded span.Location) {
	if len(r.frames) == 0 {
		r.OnEnterFuncBody()
	}

	n := len(r.frames) - 1
	r.frames[n] = append(r.frames[n], pending{orig: orig, expanded: expanded})
}

func (r *MacroSpanRecorder) OnMacroStop(orig, expanded span.Location) {
	n := len(r.frames) - 1
	if n < 0 || len(r.frames[n]) == 0 {
		return
	}

	top := r.frames[n]
	p := top[len(top)-1]
	r.frames[n] = top[:len(top)-1]

	if n == 0 && len(top) == 1 {
		r.spans.Push(span.MacroSpan{
			Macro:    span.Span{Start: p.orig.Start, Stop: orig},
			Expanded: span.Span{Start: p.expanded, Stop: expanded},
		})
	}
}

func (r *MacroSpanRecorder) OnReturn(expanded span.Location) {
	n := len(r.frames) - 1
	if n < 0 {
		return
	}

	for len(r.frames[n]) > 0 {
		top := r.frames[n]
		r.OnMacroStop(top[len(top)-1].orig.Stop, expanded)
	}
}

// Spans returns the spans recorded so far.
func (r *MacroSpanRecorder) Spans() span.MacroSpans {
	return append(span.MacroSpans(nil), r.spans...)
}

// Depth returns the number of open frames.
func (r *MacroSpanRecorder) Depth() int { return len(r.frames) }

// Pending returns the number of unfinished starts in the current frame.
func (r *MacroSpanRecorder) Pending() int {
	if len(r.frames) == 0 {
		return 0
	}

	return len(r.frames[len(r.frames)-1])
}
