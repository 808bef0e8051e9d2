// Package typecheck reports type diagnostics of compiled templates.
//
// [MacroSignatures] extracts the signatures of the macros of one file. A
// macro is typed by a comment of the form
//
//	-- funcsign: (string, optional[integer]) -> string
//
// placed directly before its definition; other macros take and return Any.
// Signatures of every file of a project can be merged into one registry
// before any file is checked, so calls across files resolve.
//
// [Check] walks the control-flow graph of the instructions once, keeping an
// abstract stack of types and the types of assigned names. Where paths join
// the types are united; loop bodies are not revisited. Findings are sent to
// a [listener.Listener] and never stop the pass.
package typecheck
