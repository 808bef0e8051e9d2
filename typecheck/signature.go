package typecheck

import (
	"github.com/ardnew/jinx/compiler"
	"github.com/ardnew/jinx/span"
	"github.com/ardnew/jinx/types"
)

// MacroSignatures returns the signatures of the macros defined in instrs,
// located in the file path.
//
// A macro is typed when the instruction before its MacroStart is a
// signature comment and its BuildMacro directly follows the matching
// MacroStop. Any other macro, or one whose signature cannot be parsed or
// does not match its argument count, is registered untyped.
func MacroSignatures(instrs compiler.Instructions, path string) *types.Registry {
	reg := types.NewRegistry()

	for pc, in := range instrs {
		if in.Op != compiler.MacroStart {
			continue
		}

		def, ok := macroAt(instrs, pc)
		if !ok {
			continue
		}

		loc := span.CodeLocation{Location: in.Span.Start, File: path}
		sig := types.Untyped(def.name.Name, def.name.Args, def.required, loc)

		if text, ok := precedingFuncsign(instrs, pc); ok && def.adjacent {
			params, ret, err := types.ParseSignature(text)
			if err == nil && len(params) == len(def.name.Args) {
				sig.Params, sig.Return, sig.Typed = params, ret, true
			}
		}

		reg.Add(sig)
	}

	return reg
}

// definition locates the parts of a compiled macro definition.
type definition struct {
	name     compiler.Instruction // MacroName
	stop     int                  // position of the MacroStop
	required int
	adjacent bool // BuildMacro directly follows the MacroStop
}

// macroAt recognizes the macro definition opened by the MacroStart at pc.
// Caller blocks are not definitions.
func macroAt(instrs compiler.Instructions, pc int) (definition, bool) {
	if pc+2 >= len(instrs) ||
		instrs[pc+1].Op != compiler.Jump ||
		instrs[pc+2].Op != compiler.MacroName {
		return definition{}, false
	}

	def := definition{name: instrs[pc+2], stop: instrs[pc+1].Arg}
	if def.stop >= len(instrs) || instrs[def.stop].Op != compiler.MacroStop {
		return definition{}, false
	}

	if b := def.stop + 1; b < len(instrs) && instrs[b].Op == compiler.BuildMacro {
		if instrs[b].Flags&compiler.FlagCallerBlock != 0 {
			return definition{}, false
		}

		def.adjacent = true
	}

	def.required = required(instrs, pc+3, def.name.Args)

	return def, true
}

// required counts the leading arguments without a default value, reading
// the default prologue that starts at pc.
func required(instrs compiler.Instructions, pc int, args []string) int {
	defaulted := map[string]bool{}

	for pc+2 < len(instrs) &&
		instrs[pc].Op == compiler.Lookup &&
		instrs[pc+1].Op == compiler.PerformTest && instrs[pc+1].Name == "undefined" &&
		instrs[pc+2].Op == compiler.JumpIfFalse {
		defaulted[instrs[pc].Name] = true
		pc = instrs[pc+2].Arg
	}

	for i, a := range args {
		if defaulted[a] {
			return i
		}
	}

	return len(args)
}

// precedingFuncsign returns the signature declared by the comment or raw
// text directly before pc.
func precedingFuncsign(instrs compiler.Instructions, pc int) (string, bool) {
	if pc == 0 {
		return "", false
	}

	prev := instrs[pc-1]
	if prev.Op != compiler.EmitRaw && prev.Op != compiler.Comment {
		return "", false
	}

	text := prev.Value.String()
	if !compiler.IsFuncsign(text) {
		return "", false
	}

	return compiler.Funcsign(text)
}
