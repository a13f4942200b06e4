package icg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinylang/diag"
	"tinylang/lexer"
	"tinylang/parser"
	"tinylang/semantic"
	"tinylang/tac"
)

func lower(t *testing.T, source string) tac.Listing {
	t.Helper()
	var bag diag.Bag
	tokens := lexer.New(source, &bag).Scan()
	program := parser.New(tokens, &bag).Parse()
	require.False(t, bag.HasErrors(), "unexpected parse errors: %v", bag.Entries())
	semantic.New(&bag).Analyze(program)
	require.False(t, bag.HasErrors(), "unexpected semantic errors: %v", bag.Entries())
	return New().Generate(program)
}

func opsOf(listing tac.Listing) []tac.Op {
	ops := make([]tac.Op, len(listing))
	for i, instr := range listing {
		ops[i] = instr.Op
	}
	return ops
}

func TestVarDeclWithInitializerEmitsAllocThenCopy(t *testing.T) {
	listing := lower(t, "int x = 5;")
	require.Len(t, listing, 2)
	assert.Equal(t, tac.OpAlloc, listing[0].Op)
	assert.Equal(t, "x", listing[0].Dest)
	assert.Equal(t, "int", listing[0].Type)
	assert.Equal(t, tac.OpCopy, listing[1].Op)
	assert.Equal(t, "x", listing[1].Dest)
	assert.Equal(t, int64(5), listing[1].Lhs.Literal)
}

func TestBinaryExpressionAllocatesTemporary(t *testing.T) {
	listing := lower(t, "int x = 1 + 2;")
	require.Len(t, listing, 3)
	assert.Equal(t, tac.OpBinary, listing[1].Op)
	assert.Equal(t, "t0", listing[1].Dest)
	assert.Equal(t, tac.OpCopy, listing[2].Op)
	assert.Equal(t, "t0", listing[2].Lhs.Name)
}

func TestIfElseEmitsSharedEndLabel(t *testing.T) {
	listing := lower(t, "int x = 1; if (x) { print 1; } else { print 0; }")
	var labels, gotos, ifFalses int
	for _, instr := range listing {
		switch instr.Op {
		case tac.OpLabel:
			labels++
		case tac.OpGoto:
			gotos++
		case tac.OpIfFalse:
			ifFalses++
		}
	}
	assert.Equal(t, 1, ifFalses, "a single if/else has exactly one IF_FALSE test")
	assert.Equal(t, 2, labels, "one 'next' label plus the shared end label")
	assert.Equal(t, 1, gotos, "the then-arm jumps past the else-arm to the end label")
}

func TestWhileLoopEmitsBackEdge(t *testing.T) {
	listing := lower(t, "int x = 0; while (x) { x = 0; }")
	ops := opsOf(listing)
	assert.Contains(t, ops, tac.OpLabel)
	assert.Contains(t, ops, tac.OpGoto)
	assert.Contains(t, ops, tac.OpIfFalse)
}

func TestCountedLoopLowersBoundsOnceAndStepsByOne(t *testing.T) {
	listing := lower(t, "loop from i = 1 to 10 { print i; }")
	var steps int
	for _, instr := range listing {
		if instr.Op == tac.OpBinary && instr.Dest == "i" {
			steps++
			assert.Equal(t, int64(1), instr.Rhs.Literal)
		}
	}
	assert.Equal(t, 1, steps)
}

func TestFunctionCallUsedInExpressionAllocatesResult(t *testing.T) {
	listing := lower(t, "func int add(int a, int b) { return a + b; } int r = add(1, 2);")
	var call tac.Instr
	for _, instr := range listing {
		if instr.Op == tac.OpCall {
			call = instr
		}
	}
	assert.True(t, call.HasResult)
	assert.Equal(t, "add", call.Label)
	assert.Equal(t, 2, call.NArgs)
}

func TestBareCallStatementDoesNotAllocateResult(t *testing.T) {
	listing := lower(t, "func int noop() { return 0; } noop();")
	var call tac.Instr
	for _, instr := range listing {
		if instr.Op == tac.OpCall {
			call = instr
		}
	}
	assert.False(t, call.HasResult)
	assert.Empty(t, call.Dest)
}

func TestLogicalAndShortCircuitsWithoutComputingBothEagerly(t *testing.T) {
	listing := lower(t, "int x = 1; int y = 1; int z = x && y;")
	var ifFalses int
	for _, instr := range listing {
		if instr.Op == tac.OpIfFalse {
			ifFalses++
		}
	}
	assert.Equal(t, 2, ifFalses, "&& tests both operands via IF_FALSE branches, never a direct AND opcode")
}

func TestLogicalOrShortCircuitsWithoutComputingBothEagerly(t *testing.T) {
	listing := lower(t, "int x = 1; int y = 1; int z = x || y;")
	var ifTrues int
	for _, instr := range listing {
		if instr.Op == tac.OpIfTrue {
			ifTrues++
		}
	}
	assert.Equal(t, 2, ifTrues)
}

func TestShadowedVariableGetsDistinctStorageName(t *testing.T) {
	listing := lower(t, "int x = 1; { float x = 2.0; }")
	var storageNames []string
	for _, instr := range listing {
		if instr.Op == tac.OpAlloc {
			storageNames = append(storageNames, instr.Dest)
		}
	}
	require.Len(t, storageNames, 2)
	assert.NotEqual(t, storageNames[0], storageNames[1])
}

func TestTemporariesAndLabelsAreUnique(t *testing.T) {
	listing := lower(t, "int x = (1 + 2) * (3 + 4); if (x) { print x; }")
	seen := map[string]bool{}
	seenLabels := map[string]bool{}
	for _, instr := range listing {
		if instr.Op == tac.OpLabel {
			assert.False(t, seenLabels[instr.Label], "label %s emitted twice", instr.Label)
			seenLabels[instr.Label] = true
		}
		if instr.Op == tac.OpBinary || instr.Op == tac.OpUnary {
			if instr.Dest != "" {
				assert.False(t, seen[instr.Dest], "temporary %s reused", instr.Dest)
				seen[instr.Dest] = true
			}
		}
	}
}
