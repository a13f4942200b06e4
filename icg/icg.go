// Package icg is the intermediate code generator: it lowers a fully
// annotated ast.Program into an ordered tac.Listing, allocating
// monotonically increasing temporaries (t0, t1, ...) and labels
// (L0, L1, ...) along the way.
//
// TAC has no notion of lexical scope, so two source declarations of the
// same name in nested scopes (legal shadowing, already validated by the
// semantic analyzer) would otherwise collide as storage names. The
// generator keeps its own scope stack, mirroring the semantic analyzer's,
// and mangles every redeclaration of a name past the first with a
// "~n" suffix so each source-level declaration gets distinct storage.
package icg

import (
	"fmt"

	"tinylang/ast"
	"tinylang/tac"
	"tinylang/token"
)

// Generator holds the state threaded through one lowering pass.
type Generator struct {
	tempCount  int
	labelCount int
	listing    tac.Listing

	scopes    []map[string]string
	declCount map[string]int
}

// New constructs a Generator ready to lower a Program.
func New() *Generator {
	return &Generator{scopes: []map[string]string{{}}, declCount: map[string]int{}}
}

// Generate lowers program and returns the resulting instruction listing.
func (g *Generator) Generate(program *ast.Program) tac.Listing {
	for _, stmt := range program.Decls {
		g.lowerStmt(stmt)
	}
	return g.listing
}

func (g *Generator) emit(instr tac.Instr) { g.listing = append(g.listing, instr) }

func (g *Generator) newTemp() string {
	name := fmt.Sprintf("t%d", g.tempCount)
	g.tempCount++
	return name
}

func (g *Generator) newLabel() string {
	name := fmt.Sprintf("L%d", g.labelCount)
	g.labelCount++
	return name
}

// ---------------------------------------------------------------------
// Scope-qualified storage names

func (g *Generator) enterScope() { g.scopes = append(g.scopes, map[string]string{}) }

func (g *Generator) exitScope() { g.scopes = g.scopes[:len(g.scopes)-1] }

// declare registers a fresh storage name for a source-level declaration
// of name and returns it.
func (g *Generator) declare(name string) string {
	g.declCount[name]++
	storage := name
	if n := g.declCount[name]; n > 1 {
		storage = fmt.Sprintf("%s~%d", name, n)
	}
	g.scopes[len(g.scopes)-1][name] = storage
	return storage
}

// storageOf resolves a source-level name to its storage name by walking
// scopes innermost-first, mirroring symtable.Table.Lookup.
func (g *Generator) storageOf(name string) string {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if storage, ok := g.scopes[i][name]; ok {
			return storage
		}
	}
	return name
}

// ---------------------------------------------------------------------
// Statements

func (g *Generator) lowerStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		g.lowerVarDecl(s)
	case *ast.Assign:
		g.lowerAssign(s)
	case *ast.If:
		g.lowerIf(s)
	case *ast.While:
		g.lowerWhile(s)
	case *ast.For:
		g.lowerFor(s)
	case *ast.FuncDecl:
		g.lowerFuncDecl(s)
	case *ast.Return:
		g.lowerReturn(s)
	case *ast.Print:
		operand := g.lowerExpr(s.Expr)
		g.emit(tac.Instr{Op: tac.OpPrint, Lhs: operand})
	case *ast.Input:
		g.emit(tac.Instr{Op: tac.OpInput, Dest: g.storageOf(s.Name)})
	case *ast.Block:
		g.enterScope()
		for _, inner := range s.Stmts {
			g.lowerStmt(inner)
		}
		g.exitScope()
	case *ast.ExprStmt:
		if call, ok := s.Expr.(*ast.Call); ok {
			g.lowerCall(call, false)
			return
		}
		g.lowerExpr(s.Expr)
	}
}

func (g *Generator) lowerVarDecl(s *ast.VarDecl) {
	storage := g.declare(s.Name)
	g.emit(tac.Instr{Op: tac.OpAlloc, Dest: storage, Type: string(s.Type)})
	if s.Init != nil {
		operand := g.lowerExpr(s.Init)
		g.emit(tac.Instr{Op: tac.OpCopy, Dest: storage, Lhs: operand})
	}
}

func (g *Generator) lowerAssign(s *ast.Assign) {
	operand := g.lowerExpr(s.Expr)
	g.emit(tac.Instr{Op: tac.OpCopy, Dest: g.storageOf(s.Name), Lhs: operand})
}

// lowerIf generates the if/elif*/else chain as a sequence of
// IF_FALSE-guarded arms that each fall through to a shared end label.
func (g *Generator) lowerIf(s *ast.If) {
	type clause struct {
		cond ast.Expr
		body *ast.Block
	}
	clauses := []clause{{cond: s.Cond, body: s.Then}}
	for _, elif := range s.Elifs {
		clauses = append(clauses, clause{cond: elif.Cond, body: elif.Body})
	}

	lend := g.newLabel()
	for _, c := range clauses {
		condOperand := g.lowerExpr(c.cond)
		lnext := g.newLabel()
		g.emit(tac.Instr{Op: tac.OpIfFalse, Lhs: condOperand, Label: lnext})
		g.lowerStmt(c.body)
		g.emit(tac.Instr{Op: tac.OpGoto, Label: lend})
		g.emit(tac.Instr{Op: tac.OpLabel, Label: lnext})
	}
	if s.Else != nil {
		g.lowerStmt(s.Else)
	}
	g.emit(tac.Instr{Op: tac.OpLabel, Label: lend})
}

func (g *Generator) lowerWhile(s *ast.While) {
	lstart := g.newLabel()
	lend := g.newLabel()

	g.emit(tac.Instr{Op: tac.OpLabel, Label: lstart})
	condOperand := g.lowerExpr(s.Cond)
	g.emit(tac.Instr{Op: tac.OpIfFalse, Lhs: condOperand, Label: lend})
	g.lowerStmt(s.Body)
	g.emit(tac.Instr{Op: tac.OpGoto, Label: lstart})
	g.emit(tac.Instr{Op: tac.OpLabel, Label: lend})
}

func (g *Generator) lowerFor(s *ast.For) {
	startOperand := g.lowerExpr(s.Start)
	endOperand := g.lowerExpr(s.End)

	g.enterScope()
	defer g.exitScope()

	storage := g.declare(s.Var)
	g.emit(tac.Instr{Op: tac.OpAlloc, Dest: storage, Type: string(ast.Int)})
	g.emit(tac.Instr{Op: tac.OpCopy, Dest: storage, Lhs: startOperand})

	stepOperand := tac.Lit(int64(1))
	if s.Step != nil {
		stepOperand = g.lowerExpr(s.Step)
	}

	lstart := g.newLabel()
	lend := g.newLabel()

	g.emit(tac.Instr{Op: tac.OpLabel, Label: lstart})
	cond := g.newTemp()
	g.emit(tac.Instr{Op: tac.OpBinary, Dest: cond, Lhs: tac.Ref(storage), Operator: token.LE, Rhs: endOperand})
	g.emit(tac.Instr{Op: tac.OpIfFalse, Lhs: tac.Ref(cond), Label: lend})

	for _, stmt := range s.Body.Stmts {
		g.lowerStmt(stmt)
	}

	g.emit(tac.Instr{Op: tac.OpBinary, Dest: storage, Lhs: tac.Ref(storage), Operator: token.PLUS, Rhs: stepOperand})
	g.emit(tac.Instr{Op: tac.OpGoto, Label: lstart})
	g.emit(tac.Instr{Op: tac.OpLabel, Label: lend})
}

func (g *Generator) lowerFuncDecl(s *ast.FuncDecl) {
	g.emit(tac.Instr{Op: tac.OpLabel, Label: s.Name})

	g.enterScope()
	defer g.exitScope()

	for _, p := range s.Params {
		storage := g.declare(p.Name)
		g.emit(tac.Instr{Op: tac.OpAlloc, Dest: storage, Type: string(p.Type)})
	}
	for _, stmt := range s.Body.Stmts {
		g.lowerStmt(stmt)
	}
}

func (g *Generator) lowerReturn(s *ast.Return) {
	if s.Expr == nil {
		g.emit(tac.Instr{Op: tac.OpRet})
		return
	}
	operand := g.lowerExpr(s.Expr)
	g.emit(tac.Instr{Op: tac.OpRet, Lhs: operand})
}

// ---------------------------------------------------------------------
// Expressions

func (g *Generator) lowerExpr(expr ast.Expr) tac.Operand {
	switch e := expr.(type) {
	case *ast.IntLit:
		return tac.Lit(e.Value)
	case *ast.FloatLit:
		return tac.Lit(e.Value)
	case *ast.CharLit:
		return tac.Lit(e.Value)
	case *ast.VarRef:
		return tac.Ref(g.storageOf(e.Name))
	case *ast.Binary:
		return g.lowerBinary(e)
	case *ast.Unary:
		return g.lowerUnary(e)
	case *ast.Call:
		return g.lowerCall(e, true)
	default:
		return tac.Operand{}
	}
}

func (g *Generator) lowerBinary(e *ast.Binary) tac.Operand {
	switch e.Op {
	case token.AND:
		return g.lowerLogicalAnd(e)
	case token.OR:
		return g.lowerLogicalOr(e)
	}

	lhs := g.lowerExpr(e.Lhs)
	rhs := g.lowerExpr(e.Rhs)
	dest := g.newTemp()
	g.emit(tac.Instr{Op: tac.OpBinary, Dest: dest, Lhs: lhs, Operator: e.Op, Rhs: rhs})
	return tac.Ref(dest)
}

// lowerLogicalAnd short-circuits: if the left operand is false, the right
// operand is never evaluated and the result is immediately false.
func (g *Generator) lowerLogicalAnd(e *ast.Binary) tac.Operand {
	result := g.newTemp()
	lfalse := g.newLabel()
	lend := g.newLabel()

	lhs := g.lowerExpr(e.Lhs)
	g.emit(tac.Instr{Op: tac.OpIfFalse, Lhs: lhs, Label: lfalse})
	rhs := g.lowerExpr(e.Rhs)
	g.emit(tac.Instr{Op: tac.OpIfFalse, Lhs: rhs, Label: lfalse})
	g.emit(tac.Instr{Op: tac.OpCopy, Dest: result, Lhs: tac.Lit(int64(1))})
	g.emit(tac.Instr{Op: tac.OpGoto, Label: lend})
	g.emit(tac.Instr{Op: tac.OpLabel, Label: lfalse})
	g.emit(tac.Instr{Op: tac.OpCopy, Dest: result, Lhs: tac.Lit(int64(0))})
	g.emit(tac.Instr{Op: tac.OpLabel, Label: lend})
	return tac.Ref(result)
}

// lowerLogicalOr short-circuits: if the left operand is true, the right
// operand is never evaluated and the result is immediately true.
func (g *Generator) lowerLogicalOr(e *ast.Binary) tac.Operand {
	result := g.newTemp()
	ltrue := g.newLabel()
	lend := g.newLabel()

	lhs := g.lowerExpr(e.Lhs)
	g.emit(tac.Instr{Op: tac.OpIfTrue, Lhs: lhs, Label: ltrue})
	rhs := g.lowerExpr(e.Rhs)
	g.emit(tac.Instr{Op: tac.OpIfTrue, Lhs: rhs, Label: ltrue})
	g.emit(tac.Instr{Op: tac.OpCopy, Dest: result, Lhs: tac.Lit(int64(0))})
	g.emit(tac.Instr{Op: tac.OpGoto, Label: lend})
	g.emit(tac.Instr{Op: tac.OpLabel, Label: ltrue})
	g.emit(tac.Instr{Op: tac.OpCopy, Dest: result, Lhs: tac.Lit(int64(1))})
	g.emit(tac.Instr{Op: tac.OpLabel, Label: lend})
	return tac.Ref(result)
}

func (g *Generator) lowerUnary(e *ast.Unary) tac.Operand {
	operand := g.lowerExpr(e.Operand)
	dest := g.newTemp()
	g.emit(tac.Instr{Op: tac.OpUnary, Dest: dest, Operator: e.Op, Lhs: operand})
	return tac.Ref(dest)
}

// lowerCall lowers a call's arguments and emits its PARAM/CALL sequence.
// A result temporary is allocated only when wantResult is true, i.e. the
// call's value is actually used by the surrounding expression or
// statement rather than invoked purely for its side effect.
func (g *Generator) lowerCall(call *ast.Call, wantResult bool) tac.Operand {
	args := make([]tac.Operand, len(call.Args))
	for i, a := range call.Args {
		args[i] = g.lowerExpr(a)
	}
	for _, a := range args {
		g.emit(tac.Instr{Op: tac.OpParam, Lhs: a})
	}

	instr := tac.Instr{Op: tac.OpCall, Label: call.Callee, NArgs: len(args)}
	if !wantResult {
		g.emit(instr)
		return tac.Operand{}
	}
	dest := g.newTemp()
	instr.Dest = dest
	instr.HasResult = true
	g.emit(instr)
	return tac.Ref(dest)
}
