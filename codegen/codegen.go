// Package codegen lowers an optimized tac.Listing into pseudo-assembly
// for a stack machine: a ".data" section describing variable storage and
// a ".text" section of one pseudo-instruction sequence per TAC
// instruction.
package codegen

import (
	"fmt"
	"strings"

	"tinylang/tac"
	"tinylang/token"
)

// sizeOf reports the storage size, in bytes, of a declared scalar type.
func sizeOf(typ string) int {
	switch typ {
	case "char":
		return 1
	default: // "int", "float"
		return 4
	}
}

// DataEntry is one ".data" section line, corresponding to one ALLOC
// instruction in the source listing.
type DataEntry struct {
	Name  string
	Bytes int
	Type  string
}

func (d DataEntry) String() string {
	return fmt.Sprintf("%s: .space %d ; %s", d.Name, d.Bytes, d.Type)
}

// Assembly is the two-section output of code generation.
type Assembly struct {
	Data []DataEntry
	Text []string
}

// String renders the assembly exactly as a ".data"/".text" listing.
func (a Assembly) String() string {
	var b strings.Builder
	b.WriteString(".data\n")
	for _, d := range a.Data {
		b.WriteString("  " + d.String() + "\n")
	}
	b.WriteString(".text\n")
	for _, line := range a.Text {
		if strings.HasSuffix(line, ":") {
			b.WriteString(line + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

// Generate lowers listing into pseudo-assembly.
func Generate(listing tac.Listing) Assembly {
	var asm Assembly
	for _, instr := range listing {
		if instr.Op == tac.OpAlloc {
			asm.Data = append(asm.Data, DataEntry{Name: instr.Dest, Bytes: sizeOf(instr.Type), Type: instr.Type})
			continue
		}
		asm.Text = append(asm.Text, lowerInstr(instr)...)
	}
	return asm
}

func operand(o tac.Operand) string {
	if o.Kind == tac.OperandLiteral {
		return fmt.Sprintf("LOAD_IMM %v", o.Literal)
	}
	return fmt.Sprintf("LOAD %s", o.Name)
}

func lowerInstr(instr tac.Instr) []string {
	switch instr.Op {
	case tac.OpCopy:
		return []string{operand(instr.Lhs), "STORE " + instr.Dest}
	case tac.OpUnary:
		return []string{operand(instr.Lhs), unaryOpcode(instr.Operator), "STORE " + instr.Dest}
	case tac.OpBinary:
		return []string{operand(instr.Lhs), operand(instr.Rhs), binaryOpcode(instr.Operator), "STORE " + instr.Dest}
	case tac.OpLabel:
		return []string{instr.Label + ":"}
	case tac.OpGoto:
		return []string{"JMP " + instr.Label}
	case tac.OpIfFalse:
		return []string{operand(instr.Lhs), "JZ " + instr.Label}
	case tac.OpIfTrue:
		return []string{operand(instr.Lhs), "JNZ " + instr.Label}
	case tac.OpParam:
		return []string{"PUSH " + operandName(instr.Lhs)}
	case tac.OpCall:
		lines := []string{"CALL " + instr.Label}
		if instr.HasResult {
			lines = append(lines, "STORE "+instr.Dest)
		}
		return lines
	case tac.OpRet:
		if instr.Lhs.IsZero() {
			return []string{"RET"}
		}
		return []string{operand(instr.Lhs), "RET"}
	case tac.OpPrint:
		return []string{operand(instr.Lhs), "PRINT"}
	case tac.OpInput:
		return []string{"INPUT", "STORE " + instr.Dest}
	default:
		return nil
	}
}

// operandName renders a PUSH operand: the spec's mapping table gives
// "PARAM x -> PUSH x" directly in terms of the operand, not a LOAD/STORE
// pair, so literals push their value text and names push their name.
func operandName(o tac.Operand) string {
	if o.Kind == tac.OperandLiteral {
		return fmt.Sprintf("%v", o.Literal)
	}
	return o.Name
}

func binaryOpcode(op token.Kind) string {
	switch op {
	case token.PLUS:
		return "ADD"
	case token.MINUS:
		return "SUB"
	case token.STAR:
		return "MUL"
	case token.SLASH:
		return "DIV"
	case token.PERCENT:
		return "MOD"
	case token.EQ:
		return "CMP_EQ"
	case token.NEQ:
		return "CMP_NE"
	case token.LT:
		return "CMP_LT"
	case token.GT:
		return "CMP_GT"
	case token.LE:
		return "CMP_LE"
	case token.GE:
		return "CMP_GE"
	case token.AND:
		return "AND"
	case token.OR:
		return "OR"
	default:
		return "NOP"
	}
}

func unaryOpcode(op token.Kind) string {
	switch op {
	case token.MINUS:
		return "NEG"
	case token.NOT:
		return "NOT"
	default:
		return "NOP"
	}
}
