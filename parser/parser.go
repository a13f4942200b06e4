// Package parser implements the compiler's recursive-descent parser: one
// token of lookahead, left-associative binary operators grouped by a
// fixed precedence ladder, and statement-level error recovery that
// resynchronizes at ';', '}', or the next statement-starting keyword so
// a single mistake never aborts the whole parse.
package parser

import (
	"errors"
	"fmt"

	"tinylang/ast"
	"tinylang/diag"
	"tinylang/token"
)

// errSynchronize is an internal sentinel: it signals "a SYNTAX
// diagnostic was already recorded for this statement, abandon it and let
// the enclosing statement list resynchronize." It is never returned to
// callers outside this package.
var errSynchronize = errors.New("parser: synchronize")

// Parser consumes a token.Token slice produced by the lexer and builds an
// ast.Program, recording SYNTAX diagnostics into the shared diag.Bag
// instead of returning them.
type Parser struct {
	tokens []token.Token
	pos    int
	bag    *diag.Bag
}

// New constructs a Parser over tokens, appending SYNTAX diagnostics to
// bag.
func New(tokens []token.Token, bag *diag.Bag) *Parser {
	return &Parser{tokens: tokens, bag: bag}
}

// Parse consumes the whole token stream and returns the (possibly
// partial) resulting Program. The parser never panics; on a malformed
// statement it records a diagnostic, resynchronizes, and continues.
func (p *Parser) Parse() *ast.Program {
	stmts := p.parseStmtList()
	for !p.atEnd() {
		// parseStmtList only stops early at a '}' that closes no block.
		tok := p.advance()
		p.bag.Syntax(tok.Line, tok.Lexeme, "unexpected %s with no open block", describeFound(tok))
		stmts = append(stmts, p.parseStmtList()...)
	}
	return &ast.Program{Decls: stmts}
}

// ---------------------------------------------------------------------
// Token stream helpers

func (p *Parser) peek() token.Token { return p.tokens[p.pos] }

func (p *Parser) previous() token.Token { return p.tokens[p.pos-1] }

func (p *Parser) atEnd() bool { return p.peek().Kind == token.EOF }

func (p *Parser) advance() token.Token {
	if !p.atEnd() {
		p.pos++
	}
	return p.previous()
}

func (p *Parser) check(kind token.Kind) bool {
	return !p.atEnd() && p.peek().Kind == kind
}

func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

// consume advances past the current token if it has the expected kind,
// otherwise records a SYNTAX diagnostic naming what was expected and
// what was actually found, then returns errSynchronize.
func (p *Parser) consume(kind token.Kind, context string) (token.Token, error) {
	if p.check(kind) {
		return p.advance(), nil
	}
	tok := p.peek()
	p.bag.Syntax(tok.Line, tok.Lexeme, "%s: expected %s but found %s", context, kind, describeFound(tok))
	return token.Token{}, errSynchronize
}

func describeFound(tok token.Token) string {
	if tok.Kind == token.EOF {
		return "end of input"
	}
	return fmt.Sprintf("%s %q", tok.Kind, tok.Lexeme)
}

// synchronize discards tokens until it reaches a likely statement
// boundary: a ';' (which it also consumes), a '}' (left for the caller
// to consume as a block terminator), a statement-starting keyword, or
// EOF.
func (p *Parser) synchronize() {
	for !p.atEnd() {
		if p.pos > 0 && p.previous().Kind == token.SEMI {
			return
		}
		switch p.peek().Kind {
		case token.RBRACE, token.INT, token.FLOAT, token.CHAR, token.IF,
			token.WHILE, token.LOOP, token.FOR, token.FUNC, token.RETURN,
			token.PRINT, token.INPUT, token.LBRACE:
			return
		}
		p.advance()
	}
}

func isTypeKeyword(kind token.Kind) bool {
	return kind == token.INT || kind == token.FLOAT || kind == token.CHAR
}

func (p *Parser) parseType(context string) (ast.Type, error) {
	tok := p.peek()
	if !isTypeKeyword(tok.Kind) {
		p.bag.Syntax(tok.Line, tok.Lexeme, "%s: expected a type (int, float, char) but found %s", context, describeFound(tok))
		return "", errSynchronize
	}
	p.advance()
	return ast.Type(tok.Kind), nil
}

// ---------------------------------------------------------------------
// Statement lists and top-level declarations

// parseStmtList parses top_decl* until EOF or (when inside a block) the
// closing '}' is reached. Each malformed statement is recorded and
// skipped so the rest of the list still parses.
func (p *Parser) parseStmtList() []ast.Stmt {
	var stmts []ast.Stmt
	for !p.atEnd() && !p.check(token.RBRACE) {
		start := p.pos
		stmt, err := p.parseTopDecl()
		if err != nil {
			p.synchronize()
			if p.pos == start {
				// The offending token starts no statement and synchronize
				// stopped on it; skip it so the loop always makes progress.
				p.advance()
			}
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}

// parseTopDecl parses a var_decl, func_decl, or statement.
func (p *Parser) parseTopDecl() (ast.Stmt, error) {
	switch {
	case isTypeKeyword(p.peek().Kind):
		return p.parseVarDecl()
	case p.check(token.FUNC):
		return p.parseFuncDecl()
	default:
		return p.parseStatement()
	}
}

func (p *Parser) parseVarDecl() (ast.Stmt, error) {
	line := p.peek().Line
	typ, err := p.parseType("variable declaration")
	if err != nil {
		return nil, err
	}
	name, err := p.consume(token.IDENTIFIER, "variable declaration")
	if err != nil {
		return nil, err
	}

	var init ast.Expr
	if p.match(token.ASSIGN) {
		init, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.SEMI, "variable declaration"); err != nil {
		return nil, err
	}
	return ast.NewVarDecl(line, typ, name.Lexeme, init), nil
}

func (p *Parser) parseFuncDecl() (ast.Stmt, error) {
	line := p.peek().Line
	p.advance() // 'func'

	returnType, err := p.parseType("function declaration")
	if err != nil {
		return nil, err
	}
	name, err := p.consume(token.IDENTIFIER, "function declaration")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LPAREN, "function declaration"); err != nil {
		return nil, err
	}

	var params []ast.Param
	if !p.check(token.RPAREN) {
		for {
			paramType, err := p.parseType("function parameter")
			if err != nil {
				return nil, err
			}
			paramName, err := p.consume(token.IDENTIFIER, "function parameter")
			if err != nil {
				return nil, err
			}
			params = append(params, ast.Param{Type: paramType, Name: paramName.Lexeme})
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.consume(token.RPAREN, "function declaration"); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.NewFuncDecl(line, returnType, name.Lexeme, params, body), nil
}

// ---------------------------------------------------------------------
// Statements

func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch {
	case p.check(token.IF):
		return p.parseIf()
	case p.check(token.WHILE):
		return p.parseWhile()
	case p.check(token.LOOP), p.check(token.FOR):
		return p.parseForLoop()
	case p.check(token.RETURN):
		return p.parseReturn()
	case p.check(token.PRINT):
		return p.parsePrint()
	case p.check(token.INPUT):
		return p.parseInput()
	case p.check(token.LBRACE):
		return p.parseBlock()
	default:
		return p.parseAssignOrExprStmt()
	}
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	line := p.peek().Line
	if _, err := p.consume(token.LBRACE, "block"); err != nil {
		return nil, err
	}
	stmts := p.parseStmtList()
	if _, err := p.consume(token.RBRACE, "block"); err != nil {
		return nil, err
	}
	return ast.NewBlock(line, stmts), nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	line := p.peek().Line
	p.advance() // 'if'
	if _, err := p.consume(token.LPAREN, "if condition"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "if condition"); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var elifs []ast.ElifClause
	for p.check(token.ELIF) {
		p.advance()
		if _, err := p.consume(token.LPAREN, "elif condition"); err != nil {
			return nil, err
		}
		elifCond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RPAREN, "elif condition"); err != nil {
			return nil, err
		}
		elifBody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		elifs = append(elifs, ast.ElifClause{Cond: elifCond, Body: elifBody})
	}

	var elseBlock *ast.Block
	if p.match(token.ELSE) {
		elseBlock, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}

	return ast.NewIf(line, cond, then, elifs, elseBlock), nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	line := p.peek().Line
	p.advance() // 'while'
	if _, err := p.consume(token.LPAREN, "while condition"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "while condition"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.NewWhile(line, cond, body), nil
}

// parseForLoop parses the counted "loop from IDENT = expr to expr
// [step expr] { block }" form. The 'for' keyword is accepted as a
// synonym for 'loop'; the classical C-style for(init; cond; step) form
// is intentionally not supported (see Open Questions in the design
// notes).
func (p *Parser) parseForLoop() (ast.Stmt, error) {
	line := p.peek().Line
	p.advance() // 'loop' or 'for'
	if _, err := p.consume(token.FROM, "counted loop"); err != nil {
		return nil, err
	}
	name, err := p.consume(token.IDENTIFIER, "counted loop")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.ASSIGN, "counted loop"); err != nil {
		return nil, err
	}
	start, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.TO, "counted loop"); err != nil {
		return nil, err
	}
	end, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	var step ast.Expr
	if p.match(token.STEP) {
		step, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.NewFor(line, name.Lexeme, start, end, step, body), nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	line := p.peek().Line
	p.advance() // 'return'

	var expr ast.Expr
	if !p.check(token.SEMI) {
		var err error
		expr, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.SEMI, "return statement"); err != nil {
		return nil, err
	}
	return ast.NewReturn(line, expr), nil
}

func (p *Parser) parsePrint() (ast.Stmt, error) {
	line := p.peek().Line
	p.advance() // 'print'
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMI, "print statement"); err != nil {
		return nil, err
	}
	return ast.NewPrint(line, expr), nil
}

func (p *Parser) parseInput() (ast.Stmt, error) {
	line := p.peek().Line
	p.advance() // 'input'
	name, err := p.consume(token.IDENTIFIER, "input statement")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMI, "input statement"); err != nil {
		return nil, err
	}
	return ast.NewInput(line, name.Lexeme), nil
}

// parseAssignOrExprStmt handles the two statement forms that start with
// an identifier: "name = expr;" and a bare expression statement (a call
// used for its side effect).
func (p *Parser) parseAssignOrExprStmt() (ast.Stmt, error) {
	line := p.peek().Line

	if p.check(token.IDENTIFIER) && p.tokens[p.pos+1].Kind == token.ASSIGN {
		name := p.advance()
		p.advance() // '='
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.SEMI, "assignment"); err != nil {
			return nil, err
		}
		return ast.NewAssign(line, name.Lexeme, expr), nil
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMI, "expression statement"); err != nil {
		return nil, err
	}
	return ast.NewExprStmt(line, expr), nil
}

// ---------------------------------------------------------------------
// Expressions, precedence climbing lowest to highest:
// logical-or, logical-and, equality, relational, additive,
// multiplicative, unary, primary. All binary levels are left-associative.

func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseLogicalOr() }

func (p *Parser) parseLogicalOr() (ast.Expr, error) {
	return p.parseLeftAssoc(p.parseLogicalAnd, token.OR)
}

func (p *Parser) parseLogicalAnd() (ast.Expr, error) {
	return p.parseLeftAssoc(p.parseEquality, token.AND)
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	return p.parseLeftAssoc(p.parseRelational, token.EQ, token.NEQ)
}

func (p *Parser) parseRelational() (ast.Expr, error) {
	return p.parseLeftAssoc(p.parseAdditive, token.LT, token.GT, token.LE, token.GE)
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	return p.parseLeftAssoc(p.parseMultiplicative, token.PLUS, token.MINUS)
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	return p.parseLeftAssoc(p.parseUnary, token.STAR, token.SLASH, token.PERCENT)
}

// parseLeftAssoc implements one level of the precedence ladder: parse a
// higher-precedence operand, then fold in zero or more same-level
// operators left to right.
func (p *Parser) parseLeftAssoc(operand func() (ast.Expr, error), ops ...token.Kind) (ast.Expr, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for p.match(ops...) {
		op := p.previous()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(op.Line, op.Kind, left, right)
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.match(token.NOT, token.MINUS) {
		op := p.previous()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(op.Line, op.Kind, operand), nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case token.INTEGER_LITERAL:
		p.advance()
		return ast.NewIntLit(tok.Line, tok.Literal.(int64)), nil
	case token.FLOAT_LITERAL:
		p.advance()
		return ast.NewFloatLit(tok.Line, tok.Literal.(float64)), nil
	case token.CHAR_LITERAL:
		p.advance()
		return ast.NewCharLit(tok.Line, tok.Literal.(byte)), nil
	case token.TRUE:
		p.advance()
		return ast.NewIntLit(tok.Line, 1), nil
	case token.FALSE:
		p.advance()
		return ast.NewIntLit(tok.Line, 0), nil
	case token.LPAREN:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RPAREN, "grouping"); err != nil {
			return nil, err
		}
		return inner, nil
	case token.IDENTIFIER:
		p.advance()
		if p.check(token.LPAREN) {
			return p.parseCallArgs(tok)
		}
		return ast.NewVarRef(tok.Line, tok.Lexeme), nil
	default:
		p.bag.Syntax(tok.Line, tok.Lexeme, "expected an expression but found %s", describeFound(tok))
		return nil, errSynchronize
	}
}

func (p *Parser) parseCallArgs(callee token.Token) (ast.Expr, error) {
	p.advance() // '('
	var args []ast.Expr
	if !p.check(token.RPAREN) {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.consume(token.RPAREN, "call arguments"); err != nil {
		return nil, err
	}
	return ast.NewCall(callee.Line, callee.Lexeme, args), nil
}
