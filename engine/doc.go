// Package engine ties the template pipeline together.
//
// An [Engine] compiles template sources once per distinct name and source,
// renders them on a shared [vm.Machine] and type checks them with the
// signatures of the macros they define. [Engine.Render] returns the macro
// spans recorded during the pass alongside the output, so locations in the
// rendered text can be mapped back to the template.
//
// [Define] evaluates command-line style definitions (name=expression) with
// expr-lang in an environment describing the host: target, platform,
// hostname, user, cwd(), file.*, path.* and the PATH-list helpers
// mung.prefix and mung.prefixif.
package engine
