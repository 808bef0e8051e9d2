// Package compiler translates a parsed template into a linear instruction
// sequence executed by the virtual machine and analysed by the type checker.
//
// Every statement that produces output or changes state is bracketed by a
// MacroStart/MacroStop pair carrying its original source range, so the
// machine can report which region of the rendered text each construct
// produced. A macro definition compiles to
//
//	MacroStart(span)
//	Jump after
//	MacroName(name, args)   ; body entry
//	  default-argument prologue
//	  body
//	  Return
//	after:
//	MacroStop(end)
//	BuildMacro(name, entry, args, flags)
//	StoreLocal(name)
//
// A raw text or comment instruction containing [FuncsignMarker] placed
// directly before the MacroStart declares the macro's signature.
package compiler
