// Package vm executes compiled template programs.
//
// A [Machine] holds the filters, tests and global functions available to
// templates. Each call to [Machine.Render] creates a root [State] that walks
// the instructions with an operand stack, writing output as it goes. Macro
// definitions evaluate to [Macro] values bound to the render pass that
// created them; once the pass ends they can no longer be called.
//
// Rendering events (macro-expanded constructs, macro bodies, returns,
// definitions and references) are reported to a [listener.Listener].
package vm
