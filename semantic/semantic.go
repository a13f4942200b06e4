// Package semantic walks a parsed ast.Program, populating a symtable.Table
// and annotating every expression node with its resolved scalar type.
// Analysis proceeds in a single pass in source order: a function must be
// declared before it is called, and a variable must be declared before it
// is referenced.
package semantic

import (
	"tinylang/ast"
	"tinylang/diag"
	"tinylang/symtable"
	"tinylang/token"
)

// Analyzer holds the state threaded through one analysis pass.
type Analyzer struct {
	bag   *diag.Bag
	table *symtable.Table

	// currentReturn is the declared return type of the function body
	// currently being analyzed, or "" when analyzing top-level code.
	currentReturn ast.Type
	inFunction    bool
}

// New constructs an Analyzer that records diagnostics into bag.
func New(bag *diag.Bag) *Analyzer {
	return &Analyzer{bag: bag, table: symtable.New()}
}

// Analyze walks program, mutating it in place (every Expr's ResolvedType is
// set) and returns the populated symbol table for later inspection (e.g. a
// symbol dump). Errors are recorded into the Analyzer's diag.Bag rather than
// returned; callers should consult the bag afterward.
func (a *Analyzer) Analyze(program *ast.Program) *symtable.Table {
	for _, stmt := range program.Decls {
		a.analyzeStmt(stmt)
	}
	return a.table
}

// ---------------------------------------------------------------------
// Statements

func (a *Analyzer) analyzeStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		a.analyzeVarDecl(s)
	case *ast.Assign:
		a.analyzeAssign(s)
	case *ast.If:
		a.analyzeIf(s)
	case *ast.While:
		a.analyzeWhile(s)
	case *ast.For:
		a.analyzeFor(s)
	case *ast.FuncDecl:
		a.analyzeFuncDecl(s)
	case *ast.Return:
		a.analyzeReturn(s)
	case *ast.Print:
		a.analyzeExpr(s.Expr)
	case *ast.Input:
		a.analyzeInput(s)
	case *ast.Block:
		a.analyzeBlockScoped(s)
	case *ast.ExprStmt:
		a.analyzeExpr(s.Expr)
	default:
		a.bag.Internal(stmt.Line(), "semantic: unhandled statement type %T", stmt)
	}
}

func (a *Analyzer) analyzeVarDecl(s *ast.VarDecl) {
	initialized := false
	if s.Init != nil {
		rhsType := a.analyzeExpr(s.Init)
		if rhsType != "" && !assignable(s.Type, rhsType) {
			a.bag.Semantic(diag.Narrowing, s.Line(), s.Name,
				"cannot initialize %s variable '%s' with a %s value", s.Type, s.Name, rhsType)
		}
		initialized = true
	}
	err := a.table.Declare(&symtable.Entry{
		Name: s.Name, Kind: symtable.VariableKind, VarType: string(s.Type),
		Initialized: initialized, Line: s.Line(),
	})
	if err != nil {
		a.bag.Semantic(diag.Redeclaration, s.Line(), s.Name, "%s", err)
	}
}

func (a *Analyzer) analyzeAssign(s *ast.Assign) {
	rhsType := a.analyzeExpr(s.Expr)

	entry, err := a.table.Lookup(s.Name)
	if err != nil {
		a.bag.Semantic(diag.Undeclared, s.Line(), s.Name, "%s", err)
		return
	}
	if entry.Kind != symtable.VariableKind {
		a.bag.Semantic(diag.TypeMismatch, s.Line(), s.Name, "'%s' is a function, not a variable", s.Name)
		return
	}
	if rhsType != "" && !assignable(ast.Type(entry.VarType), rhsType) {
		a.bag.Semantic(diag.Narrowing, s.Line(), s.Name,
			"cannot assign a %s value to %s variable '%s'", rhsType, entry.VarType, s.Name)
	}
	_ = a.table.MarkInitialized(s.Name)
}

func (a *Analyzer) analyzeIf(s *ast.If) {
	a.requireIntegralCondition(s.Cond)
	a.analyzeBlockScoped(s.Then)
	for _, elif := range s.Elifs {
		a.requireIntegralCondition(elif.Cond)
		a.analyzeBlockScoped(elif.Body)
	}
	if s.Else != nil {
		a.analyzeBlockScoped(s.Else)
	}
}

func (a *Analyzer) analyzeWhile(s *ast.While) {
	a.requireIntegralCondition(s.Cond)
	a.analyzeBlockScoped(s.Body)
}

func (a *Analyzer) analyzeFor(s *ast.For) {
	startType := a.analyzeExpr(s.Start)
	endType := a.analyzeExpr(s.End)
	if startType != "" && !isIntegral(startType) {
		a.bag.Semantic(diag.TypeMismatch, s.Start.Line(), "", "counted loop start value must be integral, found %s", startType)
	}
	if endType != "" && !isIntegral(endType) {
		a.bag.Semantic(diag.TypeMismatch, s.End.Line(), "", "counted loop bound must be integral, found %s", endType)
	}

	a.table.EnterScope()
	defer a.table.ExitScope()

	_ = a.table.Declare(&symtable.Entry{
		Name: s.Var, Kind: symtable.VariableKind, VarType: string(ast.Int),
		Initialized: true, Line: s.Line(),
	})

	if s.Step != nil {
		stepType := a.analyzeExpr(s.Step)
		if stepType != "" && !isIntegral(stepType) {
			a.bag.Semantic(diag.TypeMismatch, s.Step.Line(), "", "counted loop step must be integral, found %s", stepType)
		}
	}

	for _, stmt := range s.Body.Stmts {
		a.analyzeStmt(stmt)
	}
}

func (a *Analyzer) analyzeFuncDecl(s *ast.FuncDecl) {
	if a.inFunction {
		a.bag.Semantic(diag.TypeMismatch, s.Line(), s.Name, "nested function declarations are not allowed")
		return
	}

	sig := symtable.FuncSignature{ReturnType: string(s.ReturnType)}
	for _, p := range s.Params {
		sig.Params = append(sig.Params, string(p.Type))
	}
	if err := a.table.DeclareGlobal(&symtable.Entry{
		Name: s.Name, Kind: symtable.FunctionKind, Func: sig, Line: s.Line(),
	}); err != nil {
		a.bag.Semantic(diag.Redeclaration, s.Line(), s.Name, "%s", err)
	}

	a.table.EnterScope()
	defer a.table.ExitScope()

	for _, p := range s.Params {
		if err := a.table.Declare(&symtable.Entry{
			Name: p.Name, Kind: symtable.VariableKind, VarType: string(p.Type),
			Initialized: true, Line: s.Line(),
		}); err != nil {
			a.bag.Semantic(diag.Redeclaration, s.Line(), p.Name, "%s", err)
		}
	}

	prevReturn, prevInFunction := a.currentReturn, a.inFunction
	a.currentReturn, a.inFunction = s.ReturnType, true
	for _, stmt := range s.Body.Stmts {
		a.analyzeStmt(stmt)
	}
	a.currentReturn, a.inFunction = prevReturn, prevInFunction

	if !allPathsReturn(s.Body.Stmts) {
		a.bag.Semantic(diag.MissingReturn, s.Line(), s.Name,
			"function '%s' does not return a value on every path", s.Name)
	}
}

// allPathsReturn reports whether control cannot fall off the end of
// stmts without having executed a Return: every language function
// declares a return type (there are no void functions), so control
// falling off the end is itself the error this guards against.
//
// A while/for loop body is not trusted to run at all, so a Return
// reachable only inside one never counts; only a Return at any position
// in stmts, a nested Block that (recursively) satisfies allPathsReturn,
// or an If/elif chain with an Else where every arm (recursively)
// satisfies it, guarantee the function returns.
func allPathsReturn(stmts []ast.Stmt) bool {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.Return:
			return true
		case *ast.Block:
			if allPathsReturn(s.Stmts) {
				return true
			}
		case *ast.If:
			if ifAllPathsReturn(s) {
				return true
			}
		}
	}
	return false
}

func ifAllPathsReturn(s *ast.If) bool {
	if s.Else == nil {
		return false
	}
	if !allPathsReturn(s.Then.Stmts) {
		return false
	}
	for _, elif := range s.Elifs {
		if !allPathsReturn(elif.Body.Stmts) {
			return false
		}
	}
	return allPathsReturn(s.Else.Stmts)
}

func (a *Analyzer) analyzeReturn(s *ast.Return) {
	if !a.inFunction {
		a.bag.Semantic(diag.ReturnOutsideFunc, s.Line(), "", "return statement outside a function body")
		return
	}
	if s.Expr == nil {
		a.bag.Semantic(diag.ReturnOutsideFunc, s.Line(), "", "bare return is not valid: every function declares a return type")
		return
	}
	retType := a.analyzeExpr(s.Expr)
	if retType != "" && !assignable(a.currentReturn, retType) {
		a.bag.Semantic(diag.TypeMismatch, s.Line(), "", "cannot return a %s value from a function declared to return %s", retType, a.currentReturn)
	}
}

func (a *Analyzer) analyzeInput(s *ast.Input) {
	entry, err := a.table.Lookup(s.Name)
	if err != nil {
		a.bag.Semantic(diag.Undeclared, s.Line(), s.Name, "%s", err)
		return
	}
	_ = entry
	_ = a.table.MarkInitialized(s.Name)
}

func (a *Analyzer) analyzeBlockScoped(b *ast.Block) {
	a.table.EnterScope()
	defer a.table.ExitScope()
	for _, stmt := range b.Stmts {
		a.analyzeStmt(stmt)
	}
}

func (a *Analyzer) requireIntegralCondition(cond ast.Expr) {
	t := a.analyzeExpr(cond)
	if t != "" && !isIntegral(t) {
		a.bag.Semantic(diag.NonIntegralCondition, cond.Line(), "", "condition must be integral, found %s", t)
	}
}

// ---------------------------------------------------------------------
// Expressions

func (a *Analyzer) analyzeExpr(expr ast.Expr) ast.Type {
	var t ast.Type
	switch e := expr.(type) {
	case *ast.IntLit:
		t = ast.Int
	case *ast.FloatLit:
		t = ast.Float
	case *ast.CharLit:
		t = ast.Char
	case *ast.VarRef:
		t = a.analyzeVarRef(e)
	case *ast.Binary:
		t = a.analyzeBinary(e)
	case *ast.Unary:
		t = a.analyzeUnary(e)
	case *ast.Call:
		t = a.analyzeCall(e)
	default:
		a.bag.Internal(expr.Line(), "semantic: unhandled expression type %T", expr)
		return ""
	}
	expr.SetResolvedType(t)
	return t
}

func (a *Analyzer) analyzeVarRef(e *ast.VarRef) ast.Type {
	entry, err := a.table.Lookup(e.Name)
	if err != nil {
		a.bag.Semantic(diag.Undeclared, e.Line(), e.Name, "%s", err)
		return ""
	}
	if entry.Kind != symtable.VariableKind {
		a.bag.Semantic(diag.TypeMismatch, e.Line(), e.Name, "'%s' is a function, not a variable", e.Name)
		return ""
	}
	if !entry.Initialized {
		a.bag.Semantic(diag.UseBeforeInit, e.Line(), e.Name, "'%s' is used before it is initialized", e.Name)
	}
	return ast.Type(entry.VarType)
}

func (a *Analyzer) analyzeBinary(e *ast.Binary) ast.Type {
	lhs := a.analyzeExpr(e.Lhs)
	rhs := a.analyzeExpr(e.Rhs)
	if lhs == "" || rhs == "" {
		return ""
	}

	switch e.Op {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH:
		if !isNumeric(lhs) || !isNumeric(rhs) {
			a.bag.Semantic(diag.TypeMismatch, e.Line(), "", "operator '%s' requires numeric operands, found %s and %s", e.Op, lhs, rhs)
			return ""
		}
		if lhs == ast.Float || rhs == ast.Float {
			return ast.Float
		}
		return ast.Int
	case token.PERCENT:
		if !isIntegral(lhs) || !isIntegral(rhs) {
			a.bag.Semantic(diag.TypeMismatch, e.Line(), "", "operator '%%' requires integral operands, found %s and %s", lhs, rhs)
			return ""
		}
		return ast.Int
	case token.EQ, token.NEQ, token.LT, token.GT, token.LE, token.GE:
		if !isNumeric(lhs) || !isNumeric(rhs) {
			a.bag.Semantic(diag.TypeMismatch, e.Line(), "", "operator '%s' requires numeric operands, found %s and %s", e.Op, lhs, rhs)
		}
		return ast.Int
	case token.AND, token.OR:
		if !isIntegral(lhs) || !isIntegral(rhs) {
			a.bag.Semantic(diag.TypeMismatch, e.Line(), "", "operator '%s' requires integral operands, found %s and %s", e.Op, lhs, rhs)
		}
		return ast.Int
	default:
		a.bag.Internal(e.Line(), "semantic: unhandled binary operator %s", e.Op)
		return ""
	}
}

func (a *Analyzer) analyzeUnary(e *ast.Unary) ast.Type {
	operand := a.analyzeExpr(e.Operand)
	if operand == "" {
		return ""
	}
	switch e.Op {
	case token.MINUS:
		if !isNumeric(operand) {
			a.bag.Semantic(diag.TypeMismatch, e.Line(), "", "unary '-' requires a numeric operand, found %s", operand)
			return ""
		}
		return operand
	case token.NOT:
		if !isIntegral(operand) {
			a.bag.Semantic(diag.TypeMismatch, e.Line(), "", "unary '!' requires an integral operand, found %s", operand)
		}
		return ast.Int
	default:
		a.bag.Internal(e.Line(), "semantic: unhandled unary operator %s", e.Op)
		return ""
	}
}

func (a *Analyzer) analyzeCall(e *ast.Call) ast.Type {
	entry, err := a.table.Lookup(e.Callee)
	if err != nil {
		a.bag.Semantic(diag.Undeclared, e.Line(), e.Callee, "%s", err)
		for _, arg := range e.Args {
			a.analyzeExpr(arg)
		}
		return ""
	}
	if entry.Kind != symtable.FunctionKind {
		a.bag.Semantic(diag.TypeMismatch, e.Line(), e.Callee, "'%s' is a variable, not a function", e.Callee)
		for _, arg := range e.Args {
			a.analyzeExpr(arg)
		}
		return ""
	}

	if len(e.Args) != len(entry.Func.Params) {
		a.bag.Semantic(diag.Arity, e.Line(), e.Callee,
			"'%s' expects %d argument(s) but got %d", e.Callee, len(entry.Func.Params), len(e.Args))
	}
	for i, arg := range e.Args {
		argType := a.analyzeExpr(arg)
		if i >= len(entry.Func.Params) {
			continue
		}
		paramType := ast.Type(entry.Func.Params[i])
		if argType != "" && !assignable(paramType, argType) {
			a.bag.Semantic(diag.TypeMismatch, arg.Line(), "",
				"argument %d to '%s' must be assignable to %s, found %s", i+1, e.Callee, paramType, argType)
		}
	}
	return ast.Type(entry.Func.ReturnType)
}

// ---------------------------------------------------------------------
// Type rules

func isNumeric(t ast.Type) bool { return t == ast.Int || t == ast.Float || t == ast.Char }

func isIntegral(t ast.Type) bool { return t == ast.Int || t == ast.Char }

// assignable reports whether a value of type rhs may be stored into a
// variable or slot declared with type lhs, per the coercion table: widening
// to float is always allowed, narrowing a float into int or char is not,
// and char/int interconvert freely.
func assignable(lhs, rhs ast.Type) bool {
	if lhs == ast.Float {
		return true
	}
	if rhs == ast.Float {
		return false
	}
	return true
}
