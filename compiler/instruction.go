package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ardnew/jinx/span"
	"github.com/ardnew/jinx/value"
)

// Op is an instruction opcode.
type Op uint8

// Opcodes. Stack effects are noted as [before] -> [after].
const (
	Nop Op = iota

	EmitRaw // Value: text. Writes the text.
	Emit    // [v] -> []. Writes v.
	Comment // Value: text. No effect at runtime.

	LoadConst  // Value. [] -> [v]
	Lookup     // Name. [] -> [v]
	StoreLocal // Name. [v] -> []
	GetAttr    // Name. [obj] -> [v]
	GetItem    // [obj, key] -> [v]

	BuildList   // Arg: count, or -1 to pop the count. [items...] -> [list]
	BuildMap    // Arg: pairs. [k, v, ...] -> [map]
	BuildKwargs // Args: names. [values...] -> [kwargs]
	UnpackList  // Arg: count. [seq] -> [item(n-1) ... item0]

	DupTop     // [v] -> [v, v]
	DiscardTop // [v] -> []
	Swap       // [a, b] -> [b, a]

	Add       // [a, b] -> [a + b]
	Sub       // [a, b] -> [a - b]
	Mul       // [a, b] -> [a * b]
	Div       // [a, b] -> [a / b]
	IntDiv    // [a, b] -> [a // b]
	Rem       // [a, b] -> [a % b]
	Pow       // [a, b] -> [a ** b]
	StrConcat // [a, b] -> [a ~ b]
	Eq        // [a, b] -> [a == b]
	Ne        // [a, b] -> [a != b]
	Lt        // [a, b] -> [a < b]
	Lte       // [a, b] -> [a <= b]
	Gt        // [a, b] -> [a > b]
	Gte       // [a, b] -> [a >= b]
	In        // [a, b] -> [a in b]
	Not       // [v] -> [not v]
	Neg       // [v] -> [-v]

	ApplyFilter  // Name, Arg: argc including the operand. [v, args..] -> [r]
	PerformTest  // Name, Arg: argc including the operand. [v, args..] -> [bool]
	CallFunction // Name, Arg: argc. [args..] -> [r]
	CallMethod   // Name, Arg: argc including the receiver. [obj, args..] -> [r]
	CallObject   // Arg: argc including the callee. [fn, args..] -> [r]

	Jump             // Arg: target.
	JumpIfFalse      // Arg: target. [v] -> []
	JumpIfFalseOrPop // Arg: target. [v] -> [v] if falsy, else []
	JumpIfTrueOrPop  // Arg: target. [v] -> [v] if truthy, else []

	PushLoop // [iterable] -> []. Opens a loop frame.
	Iterate  // Arg: exit target. [] -> [item], or jumps when exhausted.
	PopFrame // Closes the loop frame; with FlagLoopElse pushes whether it was empty.

	BeginCapture // Redirects output to a buffer.
	EndCapture   // [] -> [captured string]

	MacroStart // Span: original range of the construct.
	MacroStop  // Span: original end of the construct.
	MacroName  // Name, Args. Entry point of a macro body.
	BuildMacro // Name, Args, Arg: body offset, Flags. [] -> [macro]
	Return     // Arg: 1 when a value is on the stack.
	CallBlock  // Name. Renders the named block in place.
)

var opName = [...]string{
	Nop:              "Nop",
	EmitRaw:          "EmitRaw",
	Emit:             "Emit",
	Comment:          "Comment",
	LoadConst:        "LoadConst",
	Lookup:           "Lookup",
	StoreLocal:       "StoreLocal",
	GetAttr:          "GetAttr",
	GetItem:          "GetItem",
	BuildList:        "BuildList",
	BuildMap:         "BuildMap",
	BuildKwargs:      "BuildKwargs",
	UnpackList:       "UnpackList",
	DupTop:           "DupTop",
	DiscardTop:       "DiscardTop",
	Swap:             "Swap",
	Add:              "Add",
	Sub:              "Sub",
	Mul:              "Mul",
	Div:              "Div",
	IntDiv:           "IntDiv",
	Rem:              "Rem",
	Pow:              "Pow",
	StrConcat:        "StrConcat",
	Eq:               "Eq",
	Ne:               "Ne",
	Lt:               "Lt",
	Lte:              "Lte",
	Gt:               "Gt",
	Gte:              "Gte",
	In:               "In",
	Not:              "Not",
	Neg:              "Neg",
	ApplyFilter:      "ApplyFilter",
	PerformTest:      "PerformTest",
	CallFunction:     "CallFunction",
	CallMethod:       "CallMethod",
	CallObject:       "CallObject",
	Jump:             "Jump",
	JumpIfFalse:      "JumpIfFalse",
	JumpIfFalseOrPop: "JumpIfFalseOrPop",
	JumpIfTrueOrPop:  "JumpIfTrueOrPop",
	PushLoop:         "PushLoop",
	Iterate:          "Iterate",
	PopFrame:         "PopFrame",
	BeginCapture:     "BeginCapture",
	EndCapture:       "EndCapture",
	MacroStart:       "MacroStart",
	MacroStop:        "MacroStop",
	MacroName:        "MacroName",
	BuildMacro:       "BuildMacro",
	Return:           "Return",
	CallBlock:        "CallBlock",
}

func (op Op) String() string {
	if int(op) < len(opName) && opName[op] != "" {
		return opName[op]
	}

	return "Op(" + strconv.Itoa(int(op)) + ")"
}

// IsJump reports whether op carries a branch target in Arg.
func (op Op) IsJump() bool {
	switch op {
	case Jump, JumpIfFalse, JumpIfFalseOrPop, JumpIfTrueOrPop, Iterate:
		return true
	default:
		return false
	}
}

// Flags modify an instruction.
type Flags uint8

const (
	// FlagKwargs marks a call whose last argument is a kwargs bundle.
	FlagKwargs Flags = 1 << iota
	// FlagCaller marks a macro whose body references caller.
	FlagCaller
	// FlagCallerBlock marks the anonymous macro of a call block.
	FlagCallerBlock
	// FlagLoopVar marks a loop that exposes the loop variable.
	FlagLoopVar
	// FlagLoopElse makes PopFrame push whether the loop was empty.
	FlagLoopElse
)

var flagName = []string{"kwargs", "caller", "caller-block", "loop", "else"}

func (f Flags) String() string {
	var names []string

	for i, n := range flagName {
		if f&(1<<i) != 0 {
			names = append(names, n)
		}
	}

	return strings.Join(names, ",")
}

// Instruction is one compiled unit.
type Instruction struct {
	Value value.Value
	Name  string
	Args  []string
	Span  span.Span
	Arg   int
	Op    Op
	Flags Flags
}

// String formats the operands of in.
func (in Instruction) String() string {
	var s string

	switch in.Op {
	case EmitRaw, Comment, LoadConst:
		s = in.Value.Repr()
	case Lookup, StoreLocal, GetAttr, CallBlock:
		s = in.Name
	case ApplyFilter, PerformTest, CallFunction, CallMethod:
		s = fmt.Sprintf("%s/%d", in.Name, in.Arg)
	case CallObject, BuildList, BuildMap, UnpackList, Return:
		s = strconv.Itoa(in.Arg)
	case BuildKwargs:
		s = "(" + strings.Join(in.Args, ", ") + ")"
	case Jump, JumpIfFalse, JumpIfFalseOrPop, JumpIfTrueOrPop, Iterate:
		s = "@" + strconv.Itoa(in.Arg)
	case MacroStart:
		s = in.Span.String()
	case MacroStop:
		s = in.Span.Stop.String()
	case MacroName:
		s = in.Name + "(" + strings.Join(in.Args, ", ") + ")"
	case BuildMacro:
		s = fmt.Sprintf("%s(%s) @%d", in.Name, strings.Join(in.Args, ", "), in.Arg)
	}

	if in.Flags != 0 {
		s = strings.TrimSpace(s + " [" + in.Flags.String() + "]")
	}

	return in.Op.String() + " " + s
}

// Instructions is a linear instruction sequence.
type Instructions []Instruction

// String lists the instructions one per line with their positions.
func (is Instructions) String() string {
	var b strings.Builder

	for pc, in := range is {
		fmt.Fprintf(&b, "%4d  %s\n", pc, strings.TrimRight(in.String(), " "))
	}

	return b.String()
}

// Program is a compiled template: the instructions of its body and of its
// named blocks. A Program is read-only once compiled.
type Program struct {
	Blocks       map[string]Instructions
	Name         string
	Source       string
	Instructions Instructions
}
