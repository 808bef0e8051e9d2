// Package listener defines the observer of render and check passes and
// its standard implementations.
//
// [MacroSpanRecorder] turns the macro start and stop events of a render
// into the [span.MacroSpans] used to remap positions in rendered text back
// to the source. [DiagnosticCollector] gathers the findings of the type
// checker. [Multi] combines listeners and [Nop] is embedded by
// implementations that care about a subset of events.
package listener
