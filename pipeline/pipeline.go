// Package pipeline wires the Lexer, Parser, Semantic Analyzer,
// Intermediate Code Generator, Optimizer, and Code Generator together
// into the single compile entry point the driver commands call.
package pipeline

import (
	"tinylang/ast"
	"tinylang/codegen"
	"tinylang/diag"
	"tinylang/icg"
	"tinylang/lexer"
	"tinylang/optimizer"
	"tinylang/parser"
	"tinylang/semantic"
	"tinylang/symtable"
	"tinylang/tac"
	"tinylang/token"
)

// Stage names a point the pipeline reached before stopping or finishing,
// used by verbose callers to report progress.
type Stage string

const (
	StageLex       Stage = "lex"
	StageParse     Stage = "parse"
	StageSemantic  Stage = "semantic"
	StageGenerate  Stage = "generate"
	StageOptimize  Stage = "optimize"
	StageCodegen   Stage = "codegen"
)

// Result carries every artifact produced on the way to pseudo-assembly,
// even when compilation fails partway through: a caller inspecting a
// failed Result can still see how far the pipeline got.
type Result struct {
	Success     bool
	LastStage   Stage
	Tokens      []token.Token
	Program     *ast.Program
	Symbols     *symtable.Table
	TAC         tac.Listing
	Optimized   tac.Listing
	Assembly    codegen.Assembly
	Diagnostics []diag.Diagnostic
}

// Tracer receives one call per stage the pipeline enters; an Options
// with a non-nil Trace observes progress, nil stays silent.
type Tracer func(stage Stage)

// Options parameterizes a single Compile call: whether to trace stage
// progress and how many fixed-point passes the optimizer is allowed.
// The zero value is a valid, silent, default-capped configuration.
type Options struct {
	Verbose                bool
	Trace                  Tracer
	MaxOptimizerIterations int // 0 means "use the optimizer package default"
}

// Compile runs source through every phase in order, stopping as soon as
// the diagnostics bag accumulates a lexical, syntax, or semantic error.
// Optimization and code generation only run once the front end is clean.
func Compile(source string, opts Options) Result {
	var bag diag.Bag
	res := Result{}
	note := func(s Stage) {
		res.LastStage = s
		if opts.Verbose && opts.Trace != nil {
			opts.Trace(s)
		}
	}

	note(StageLex)
	tokens := lexer.New(source, &bag).Scan()
	res.Tokens = tokens
	res.Diagnostics = bag.Entries()
	if bag.HasKind(diag.LEXICAL) {
		return res
	}

	note(StageParse)
	program := parser.New(tokens, &bag).Parse()
	res.Program = program
	res.Diagnostics = bag.Entries()
	if bag.HasKind(diag.LEXICAL, diag.SYNTAX) {
		return res
	}

	note(StageSemantic)
	table := semantic.New(&bag).Analyze(program)
	res.Symbols = table

	res.Diagnostics = bag.Entries()
	if bag.HasKind(diag.LEXICAL, diag.SYNTAX, diag.SEMANTIC) {
		res.Success = false
		return res
	}

	note(StageGenerate)
	listing := icg.New().Generate(program)
	res.TAC = listing

	note(StageOptimize)
	limit := opts.MaxOptimizerIterations
	var optimized tac.Listing
	if limit > 0 {
		optimized = optimizer.OptimizeWithLimit(listing, &bag, limit)
	} else {
		optimized = optimizer.Optimize(listing, &bag)
	}
	res.Optimized = optimized
	res.Diagnostics = bag.Entries()

	note(StageCodegen)
	res.Assembly = codegen.Generate(optimized)

	res.Success = !bag.HasKind(diag.LEXICAL, diag.SYNTAX, diag.SEMANTIC, diag.INTERNAL)
	return res
}
