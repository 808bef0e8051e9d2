// Package value defines the dynamically typed runtime values manipulated by
// the virtual machine: none, booleans, integers, floats, strings, lists,
// ordered string-keyed maps, keyword argument bundles and opaque objects.
//
// Values render the way templates expect (True, None, 1.0, ['a', 1]) and
// follow Python semantics for truthiness, equality, ordering and arithmetic.
package value
