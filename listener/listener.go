package listener

import (
	"github.com/ardnew/jinx/span"
)

// Listener observes a render pass or a check pass. A Listener belongs to a
// single pass and is never called concurrently.
type Listener interface {
	// OnEnterFuncBody is called before the root template or a macro body is
	// evaluated.
	OnEnterFuncBody()
	// OnExitFuncBody is called after the matching OnEnterFuncBody.
	OnExitFuncBody()
	// OnMacroStart is called when evaluation of the construct spanning orig
	// begins and the rendered text has reached expanded.
	OnMacroStart(orig span.Span, expanded span.Location)
	// OnMacroStop is called when the construct ending at orig completes.
	OnMacroStop(orig, expanded span.Location)
	// OnReturn is called when a macro body returns.
	OnReturn(expanded span.Location)
	// OnDefinition is called when name is bound.
	OnDefinition(name string, at span.Span)
	// OnReference is called when name is read.
	OnReference(name string, at span.Span)
	// OnDiagnostic receives a finding of the type checker.
	OnDiagnostic(d Diagnostic)
}

// Nop ignores every event. Embed it to implement a subset of [Listener].
type Nop struct{}

func (Nop) OnEnterFuncBody() {}
func (Nop) OnExitFuncBody() {}
func (Nop) OnMacroStart(span.Span, span.Location) {}
func (Nop) OnMacroStop(_, _ span.Location) {}
func (Nop) OnReturn(span.Location) {}
func (Nop) OnDefinition(string, span.Span) {}
func (Nop) OnReference(string, span.Span) {}
func (Nop) OnDiagnostic(Diagnostic) {}

// Multi forwards every event to each of its listeners in order.
type Multi []Listener

func (m Multi) OnEnterFuncBody() {
	for _, l := range m {
		l.OnEnterFuncBody()
	}
}

func (m Multi) OnExitFuncBody() {
	for _, l := range m {
		l.OnExitFuncBody()
	}
}

func (m Multi) OnMacroStart(orig span.Span, expanded span.Location) {
	for _, l := range m {
		l.OnMacroStart(orig, expanded)
	}
}

func (m Multi) OnMacroStop(orig, expanded span.Location) {
	for _, l := range m {
		l.OnMacroStop(orig, expanded)
	}
}

func (m Multi) OnReturn(expanded span.Location) {
	for _, l := range m {
		l.OnReturn(expanded)
	}
}

func (m Multi) OnDefinition(name string, at span.Span) {
	for _, l := range m {
		l.OnDefinition(name, at)
	}
}

func (m Multi) OnReference(name string, at span.Span) {
	for _, l := range m {
		l.OnReference(name, at)
	}
}

func (m Multi) OnDiagnostic(d Diagnostic) {
	for _, l := range m {
		l.OnDiagnostic(d)
	}
}

// Symbol is a definition or reference event.
type Symbol struct {
	Name string    `json:"name" yaml:"name"`
	At   span.Span `json:"at"   yaml:"at"`
}

// SymbolRecorder collects definition and reference events.
type SymbolRecorder struct {
	Nop

	Definitions []Symbol
	References  []Symbol
}

func (r *SymbolRecorder) OnDefinition(name string, at span.Span) {
	r.Definitions = append(r.Definitions, Symbol{Name: name, At: at})
}

func (r *SymbolRecorder) OnReference(name string, at span.Span) {
	r.References = append(r.References, Symbol{Name: name, At: at})
}
