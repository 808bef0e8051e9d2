// Package cfg builds control-flow graphs over compiled instructions.
//
// A block begins at the first instruction, at every branch target, and
// after every branch or return. Each block is attributed to the innermost
// macro body that contains it so an analysis can scope its findings.
package cfg
