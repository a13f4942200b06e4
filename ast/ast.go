// Package ast defines the passive tree data model shared by the parser,
// semantic analyzer, and intermediate code generator.
//
// Per the compiler's design notes, the tree is a tagged sum over statement
// kinds and a tagged sum over expression kinds rather than a class
// hierarchy with virtual dispatch: later phases match on the concrete
// type with a type switch, which keeps exhaustiveness checkable at the
// call site instead of hidden behind a visitor interface.
package ast

// Type is the coarse scalar type a variable, parameter, or expression can
// carry. There is no "void": functions without return type semantics are
// not produced by this language, so every FuncDecl names a real Type.
type Type string

const (
	Int   Type = "int"
	Float Type = "float"
	Char  Type = "char"
)

// Program is the root of every compilation: an ordered list of top-level
// declarations and statements, in source order.
type Program struct {
	Decls []Stmt
}

// Stmt is implemented by every statement node.
type Stmt interface {
	stmtNode()
	Line() int
}

// Expr is implemented by every expression node. Every expression carries
// a ResolvedType slot, empty ("") until the semantic analyzer fills it;
// after a successful analysis pass every reachable Expr has a non-empty
// ResolvedType.
type Expr interface {
	exprNode()
	Line() int
	ResolvedType() Type
	SetResolvedType(Type)
}

type stmtBase struct{ LineNo int }

func (s stmtBase) Line() int { return s.LineNo }

type exprBase struct {
	LineNo   int
	Resolved Type
}

func (e *exprBase) Line() int             { return e.LineNo }
func (e *exprBase) ResolvedType() Type    { return e.Resolved }
func (e *exprBase) SetResolvedType(t Type) { e.Resolved = t }
