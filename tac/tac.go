// Package tac defines the three-address code instruction set produced by
// the intermediate code generator, rewritten by the optimizer,
// and consumed by the code generator. Unlike the teacher's bytecode
// (a byte-encoded opcode stream read by a stack VM), a tac.Instr is a
// plain, human-readable instruction: the optimizer and code generator
// both need to pattern-match and print instructions directly, so there is
// no encoding step.
package tac

import (
	"fmt"
	"strings"

	"tinylang/token"
)

// Op tags the shape of an Instr. Which of Instr's fields are meaningful
// depends on Op; see the per-constant comments.
type Op string

const (
	OpAlloc   Op = "ALLOC"   // Dest, Type
	OpCopy    Op = "COPY"    // Dest = Lhs
	OpUnary   Op = "UNARY"   // Dest = Operator Lhs
	OpBinary  Op = "BINARY"  // Dest = Lhs Operator Rhs
	OpLabel   Op = "LABEL"   // Label
	OpGoto    Op = "GOTO"    // Label
	OpIfFalse Op = "IF_FALSE" // Lhs, Label ("IF_FALSE Lhs GOTO Label")
	OpIfTrue  Op = "IF_TRUE"  // Lhs, Label ("IF_TRUE Lhs GOTO Label")
	OpParam   Op = "PARAM"   // Lhs
	OpCall    Op = "CALL"    // Label (fname), NArgs, Dest (optional, HasResult)
	OpRet     Op = "RET"     // Lhs (optional, absent when Lhs.IsZero())
	OpPrint   Op = "PRINT"   // Lhs
	OpInput   Op = "INPUT"   // Dest
)

// OperandKind tells a literal operand from a named one. Source-level
// variable names and compiler-generated temporaries share OperandName and
// both render as bare identifiers; OperandNone marks an absent operand.
// The optimizer uses the kind to never treat a literal as an assignable
// place, and the code generator uses it to choose LOAD_IMM over LOAD.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandLiteral
	OperandName
)

// Operand is a TAC operand: a literal, a named variable, or a temporary
// (a Name of the form "t0", "t1", ...). A zero-value Operand (Kind ==
// OperandNone) means "absent" and is used for optional instruction slots.
type Operand struct {
	Kind    OperandKind
	Literal any // int64, float64, or byte, when Kind == OperandLiteral
	Name    string
}

// Lit constructs a literal operand.
func Lit(v any) Operand { return Operand{Kind: OperandLiteral, Literal: v} }

// Ref constructs a named-variable or temporary operand.
func Ref(name string) Operand { return Operand{Kind: OperandName, Name: name} }

func (o Operand) IsZero() bool { return o.Kind == OperandNone }

func (o Operand) String() string {
	switch o.Kind {
	case OperandLiteral:
		return fmt.Sprintf("%v", o.Literal)
	case OperandName:
		return o.Name
	default:
		return ""
	}
}

// Instr is one three-address instruction. Field usage depends on Op; see
// the constants above.
type Instr struct {
	Op       Op
	Dest     string
	Type     string // ALLOC's declared scalar type
	Operator token.Kind
	Lhs      Operand
	Rhs      Operand
	Label    string
	NArgs    int
	HasResult bool
}

// String renders an instruction in the textual form used by TAC listings.
func (i Instr) String() string {
	switch i.Op {
	case OpAlloc:
		return fmt.Sprintf("ALLOC %s %s", i.Dest, i.Type)
	case OpCopy:
		return fmt.Sprintf("%s = %s", i.Dest, i.Lhs)
	case OpUnary:
		return fmt.Sprintf("%s = %s%s", i.Dest, i.Operator, i.Lhs)
	case OpBinary:
		return fmt.Sprintf("%s = %s %s %s", i.Dest, i.Lhs, i.Operator, i.Rhs)
	case OpLabel:
		return fmt.Sprintf("LABEL %s", i.Label)
	case OpGoto:
		return fmt.Sprintf("GOTO %s", i.Label)
	case OpIfFalse:
		return fmt.Sprintf("IF_FALSE %s GOTO %s", i.Lhs, i.Label)
	case OpIfTrue:
		return fmt.Sprintf("IF_TRUE %s GOTO %s", i.Lhs, i.Label)
	case OpParam:
		return fmt.Sprintf("PARAM %s", i.Lhs)
	case OpCall:
		if i.HasResult {
			return fmt.Sprintf("%s = CALL %s %d", i.Dest, i.Label, i.NArgs)
		}
		return fmt.Sprintf("CALL %s %d", i.Label, i.NArgs)
	case OpRet:
		if i.Lhs.IsZero() {
			return "RET"
		}
		return fmt.Sprintf("RET %s", i.Lhs)
	case OpPrint:
		return fmt.Sprintf("PRINT %s", i.Lhs)
	case OpInput:
		return fmt.Sprintf("INPUT %s", i.Dest)
	default:
		return fmt.Sprintf("<unknown tac op %q>", i.Op)
	}
}

// Listing is an ordered sequence of instructions, the unit ICG produces,
// the optimizer rewrites, and the code generator consumes.
type Listing []Instr

// String renders the listing one instruction per line.
func (l Listing) String() string {
	var b strings.Builder
	for _, instr := range l {
		b.WriteString(instr.String())
		b.WriteByte('\n')
	}
	return b.String()
}
