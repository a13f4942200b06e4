package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinylang/ast"
	"tinylang/diag"
	"tinylang/lexer"
	"tinylang/token"
)

func parse(t *testing.T, source string) (*ast.Program, *diag.Bag) {
	t.Helper()
	var bag diag.Bag
	tokens := lexer.New(source, &bag).Scan()
	program := New(tokens, &bag).Parse()
	return program, &bag
}

func TestParseVarDeclWithInitializer(t *testing.T) {
	program, bag := parse(t, "int x = 5 + 3;")
	require.False(t, bag.HasErrors())
	require.Len(t, program.Decls, 1)

	decl, ok := program.Decls[0].(*ast.VarDecl)
	require.True(t, ok)
	assert.Equal(t, ast.Int, decl.Type)
	assert.Equal(t, "x", decl.Name)
	bin, ok := decl.Init.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, bin.Op)
}

func TestParseOperatorPrecedence(t *testing.T) {
	program, bag := parse(t, "int x = 1 + 2 * 3;")
	require.False(t, bag.HasErrors())
	decl := program.Decls[0].(*ast.VarDecl)

	top, ok := decl.Init.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, top.Op)
	rhs, rhsIsMul := top.Rhs.(*ast.Binary)
	require.True(t, rhsIsMul)
	assert.Equal(t, token.STAR, rhs.Op)
}

func TestParseLeftAssociativity(t *testing.T) {
	program, bag := parse(t, "int x = 10 - 3 - 2;")
	require.False(t, bag.HasErrors())
	decl := program.Decls[0].(*ast.VarDecl)

	top := decl.Init.(*ast.Binary)
	assert.Equal(t, token.MINUS, top.Op)
	left, ok := top.Lhs.(*ast.Binary)
	require.True(t, ok, "left-associative: outer op's lhs should itself be a binary")
	assert.Equal(t, token.MINUS, left.Op)
}

func TestParseIfElifElse(t *testing.T) {
	source := `int s;
s = 85;
if (s >= 90) { print 1; } elif (s >= 80) { print 2; } else { print 0; }`
	program, bag := parse(t, source)
	require.False(t, bag.HasErrors())
	require.Len(t, program.Decls, 3)

	ifStmt, ok := program.Decls[2].(*ast.If)
	require.True(t, ok)
	require.Len(t, ifStmt.Elifs, 1)
	require.NotNil(t, ifStmt.Else)
}

func TestParseCountedLoop(t *testing.T) {
	source := `int sum;
sum = 0;
loop from i = 1 to 10 { sum = sum + i; }
print sum;`
	program, bag := parse(t, source)
	require.False(t, bag.HasErrors())

	forStmt, ok := program.Decls[2].(*ast.For)
	require.True(t, ok)
	assert.Equal(t, "i", forStmt.Var)
	assert.Nil(t, forStmt.Step)
}

func TestParseFuncDeclWithParamsAndCall(t *testing.T) {
	source := `func int add(int a, int b) { return a + b; }
int r;
r = add(1, 2);`
	program, bag := parse(t, source)
	require.False(t, bag.HasErrors())

	fn, ok := program.Decls[0].(*ast.FuncDecl)
	require.True(t, ok)
	assert.Equal(t, ast.Int, fn.ReturnType)
	require.Len(t, fn.Params, 2)

	assign := program.Decls[2].(*ast.Assign)
	call, ok := assign.Expr.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "add", call.Callee)
	assert.Len(t, call.Args, 2)
}

func TestParseErrorRecoversAndContinues(t *testing.T) {
	source := `int x = ;
int y = 2;`
	program, bag := parse(t, source)
	require.True(t, bag.HasErrors())
	assert.Equal(t, diag.SYNTAX, bag.Entries()[0].Kind)

	// The parser should have resynchronized and still parsed "int y = 2;".
	require.Len(t, program.Decls, 1)
	decl := program.Decls[0].(*ast.VarDecl)
	assert.Equal(t, "y", decl.Name)
}

func TestParseBareExpressionStatement(t *testing.T) {
	source := `func int noop() { return 0; }
noop();`
	program, bag := parse(t, source)
	require.False(t, bag.HasErrors())

	exprStmt, ok := program.Decls[1].(*ast.ExprStmt)
	require.True(t, ok)
	_, isCall := exprStmt.Expr.(*ast.Call)
	assert.True(t, isCall)
}
