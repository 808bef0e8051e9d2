// Package types implements the structural type lattice used for static
// diagnostics of templates.
//
// Types are immutable values compared with [Type.Equal]. [Union] flattens
// and de-duplicates its members, Any absorbs every other type and None is
// the identity. [Coerce] computes the common type of two operands and
// [CanCompareWith] decides whether they may be compared.
//
// Macro signatures are declared by comments of the form
//
//	{#- -- funcsign: (string, optional[integer]) -> string -#}
//
// and collected into a [Registry].
package types
