package ast

import "tinylang/token"

// IntLit is an integer literal, e.g. "42".
type IntLit struct {
	exprBase
	Value int64
}

func NewIntLit(line int, value int64) *IntLit {
	return &IntLit{exprBase: exprBase{LineNo: line}, Value: value}
}

func (*IntLit) exprNode() {}

// FloatLit is a floating-point literal, e.g. "3.14".
type FloatLit struct {
	exprBase
	Value float64
}

func NewFloatLit(line int, value float64) *FloatLit {
	return &FloatLit{exprBase: exprBase{LineNo: line}, Value: value}
}

func (*FloatLit) exprNode() {}

// CharLit is a single-character literal, e.g. 'x'.
type CharLit struct {
	exprBase
	Value byte
}

func NewCharLit(line int, value byte) *CharLit {
	return &CharLit{exprBase: exprBase{LineNo: line}, Value: value}
}

func (*CharLit) exprNode() {}

// VarRef reads the value currently bound to a declared variable.
type VarRef struct {
	exprBase
	Name string
}

func NewVarRef(line int, name string) *VarRef {
	return &VarRef{exprBase: exprBase{LineNo: line}, Name: name}
}

func (*VarRef) exprNode() {}

// Binary combines the values of two sub-expressions via Op (one of the
// arithmetic, relational, equality, or logical operator token kinds).
type Binary struct {
	exprBase
	Op  token.Kind
	Lhs Expr
	Rhs Expr
}

func NewBinary(line int, op token.Kind, lhs, rhs Expr) *Binary {
	return &Binary{exprBase: exprBase{LineNo: line}, Op: op, Lhs: lhs, Rhs: rhs}
}

func (*Binary) exprNode() {}

// Unary applies Op (unary '-', logical '!') to a single operand.
type Unary struct {
	exprBase
	Op      token.Kind
	Operand Expr
}

func NewUnary(line int, op token.Kind, operand Expr) *Unary {
	return &Unary{exprBase: exprBase{LineNo: line}, Op: op, Operand: operand}
}

func (*Unary) exprNode() {}

// Call invokes a declared function by name with a positional argument
// list, evaluated left to right.
type Call struct {
	exprBase
	Callee string
	Args   []Expr
}

func NewCall(line int, callee string, args []Expr) *Call {
	return &Call{exprBase: exprBase{LineNo: line}, Callee: callee, Args: args}
}

func (*Call) exprNode() {}
