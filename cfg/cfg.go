package cfg

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/ardnew/jinx/compiler"
	"github.com/ardnew/jinx/lang"
)

// EdgeKind says how control reaches a successor.
type EdgeKind uint8

// Edge kinds.
const (
	FallThrough EdgeKind = iota // next instruction
	Uncond                      // unconditional jump
	CondTrue                    // condition held
	CondFalse                   // condition failed
	LoopNext                    // iteration produced an item
	LoopExit                    // iteration was exhausted
)

var edgeName = [...]string{
	FallThrough: "fallthrough",
	Uncond:      "jump",
	CondTrue:    "true",
	CondFalse:   "false",
	LoopNext:    "next",
	LoopExit:    "exit",
}

func (k EdgeKind) String() string {
	if int(k) < len(edgeName) {
		return edgeName[k]
	}

	return "EdgeKind(" + strconv.Itoa(int(k)) + ")"
}

// Edge connects two blocks by ID.
type Edge struct {
	From int
	To   int
	Kind EdgeKind
}

// Block is a maximal straight-line run of instructions [Start, End).
type Block struct {
	Macro string // innermost macro whose body contains the block
	Succs []Edge
	Preds []Edge
	ID    int
	Start int
	End   int
}

// Last returns the position of the final instruction of b.
func (b *Block) Last() int { return b.End - 1 }

// Graph is the control-flow graph of one instruction sequence.
type Graph struct {
	Instructions compiler.Instructions
	Blocks       []*Block
	blockOf      []int // block ID by instruction position
}

// Build constructs the graph of instrs. It fails when a branch target lies
// outside the sequence.
func Build(instrs compiler.Instructions) (*Graph, error) {
	g := &Graph{Instructions: instrs, blockOf: make([]int, len(instrs))}

	if len(instrs) == 0 {
		return g, nil
	}

	leaders := map[int]bool{0: true}

	for pc, in := range instrs {
		if in.Op.IsJump() {
			if in.Arg < 0 || in.Arg > len(instrs) {
				return nil, lang.ErrMalformedProgram.
					Wrapf("%s at %d targets %d", in.Op, pc, in.Arg).
					With(slog.Int("pc", pc))
			}

			leaders[in.Arg] = true
		}

		if terminates(in.Op) {
			leaders[pc+1] = true
		}

		if in.Op == compiler.MacroName {
			leaders[pc] = true
		}
	}

	starts := make([]int, 0, len(leaders))
	for pc := range leaders {
		if pc < len(instrs) {
			starts = append(starts, pc)
		}
	}

	slices.Sort(starts)

	for i, start := range starts {
		end := len(instrs)
		if i+1 < len(starts) {
			end = starts[i+1]
		}

		g.Blocks = append(g.Blocks, &Block{ID: i, Start: start, End: end})

		for pc := start; pc < end; pc++ {
			g.blockOf[pc] = i
		}
	}

	for _, b := range g.Blocks {
		g.link(b)
	}

	g.attributeMacros()

	return g, nil
}

func terminates(op compiler.Op) bool {
	return op.IsJump() || op == compiler.Return
}

func (g *Graph) link(b *Block) {
	in := g.Instructions[b.Last()]

	connect := func(pc int, kind EdgeKind) {
		if pc >= len(g.Instructions) {
			return
		}

		to := g.Blocks[g.blockOf[pc]]
		e := Edge{From: b.ID, To: to.ID, Kind: kind}
		b.Succs = append(b.Succs, e)
		to.Preds = append(to.Preds, e)
	}

	switch in.Op {
	case compiler.Return:
	case compiler.Jump:
		connect(in.Arg, Uncond)
	case compiler.JumpIfFalse, compiler.JumpIfFalseOrPop:
		connect(b.End, CondTrue)
		connect(in.Arg, CondFalse)
	case compiler.JumpIfTrueOrPop:
		connect(b.End, CondFalse)
		connect(in.Arg, CondTrue)
	case compiler.Iterate:
		connect(b.End, LoopNext)
		connect(in.Arg, LoopExit)
	default:
		connect(b.End, FallThrough)
	}
}

// attributeMacros labels each block with the innermost macro body that
// contains it. A body runs from its MacroName to the target of the Jump
// that precedes it.
func (g *Graph) attributeMacros() {
	type body struct {
		name       string
		start, end int
	}

	var bodies []body

	for pc, in := range g.Instructions {
		if in.Op != compiler.MacroName || pc == 0 {
			continue
		}

		if j := g.Instructions[pc-1]; j.Op == compiler.Jump && j.Arg > pc {
			bodies = append(bodies, body{name: in.Name, start: pc, end: j.Arg})
		}
	}

	for _, b := range g.Blocks {
		width := len(g.Instructions) + 1

		for _, m := range bodies {
			if b.Start >= m.start && b.Start < m.end && m.end-m.start < width {
				b.Macro, width = m.name, m.end-m.start
			}
		}
	}
}

// BlockAt returns the block containing the instruction at pc.
func (g *Graph) BlockAt(pc int) *Block {
	if pc < 0 || pc >= len(g.blockOf) {
		return nil
	}

	return g.Blocks[g.blockOf[pc]]
}

// Entry returns the block of the first instruction, or nil when empty.
func (g *Graph) Entry() *Block { return g.BlockAt(0) }

// Roots returns the blocks analysis starts from: the entry block and every
// macro body entry.
func (g *Graph) Roots() []*Block {
	var roots []*Block

	for _, b := range g.Blocks {
		if b.Start == 0 || g.Instructions[b.Start].Op == compiler.MacroName {
			roots = append(roots, b)
		}
	}

	return roots
}

// String lists the blocks with their instructions and successors.
func (g *Graph) String() string {
	var sb strings.Builder

	for _, b := range g.Blocks {
		fmt.Fprintf(&sb, "block %d [%d, %d)", b.ID, b.Start, b.End)

		if b.Macro != "" {
			fmt.Fprintf(&sb, " macro=%s", b.Macro)
		}

		sb.WriteByte('\n')

		for pc := b.Start; pc < b.End; pc++ {
			fmt.Fprintf(&sb, "  %4d  %s\n", pc, strings.TrimRight(g.Instructions[pc].String(), " "))
		}

		for _, e := range b.Succs {
			fmt.Fprintf(&sb, "  -> %d (%s)\n", e.To, e.Kind)
		}
	}

	return sb.String()
}

// DOT renders the graph in Graphviz syntax.
func (g *Graph) DOT(name string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "digraph %s {\n", strconv.Quote(name))
	sb.WriteString("  node [shape=box fontname=monospace];\n")

	for _, b := range g.Blocks {
		var label strings.Builder

		if b.Macro != "" {
			label.WriteString("macro " + b.Macro + `\l`)
		}

		for pc := b.Start; pc < b.End; pc++ {
			fmt.Fprintf(&label, "%d: %s", pc, dotEscape(strings.TrimRight(g.Instructions[pc].String(), " ")))
			label.WriteString(`\l`)
		}

		fmt.Fprintf(&sb, "  b%d [label=\"%s\"];\n", b.ID, label.String())
	}

	for _, b := range g.Blocks {
		for _, e := range b.Succs {
			fmt.Fprintf(&sb, "  b%d -> b%d [label=%q];\n", e.From, e.To, e.Kind.String())
		}
	}

	sb.WriteString("}\n")

	return sb.String()
}

func dotEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s)
}
