package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinylang/diag"
	"tinylang/tac"
	"tinylang/token"
)

func TestConstantFoldingReplacesBinaryWithComputedLiteral(t *testing.T) {
	var bag diag.Bag
	listing := tac.Listing{
		{Op: tac.OpBinary, Dest: "t0", Lhs: tac.Lit(int64(2)), Operator: token.PLUS, Rhs: tac.Lit(int64(3))},
		{Op: tac.OpCopy, Dest: "x", Lhs: tac.Ref("t0")},
	}
	out := Optimize(listing, &bag)
	require.Len(t, out, 2)
	assert.Equal(t, tac.OpCopy, out[0].Op)
	assert.Equal(t, int64(5), out[0].Lhs.Literal)
}

func TestDivisionByLiteralZeroIsNotFolded(t *testing.T) {
	var bag diag.Bag
	listing := tac.Listing{
		{Op: tac.OpBinary, Dest: "t0", Lhs: tac.Lit(int64(1)), Operator: token.SLASH, Rhs: tac.Lit(int64(0))},
		{Op: tac.OpPrint, Lhs: tac.Ref("t0")},
	}
	out := Optimize(listing, &bag)
	require.Len(t, out, 2)
	assert.Equal(t, tac.OpBinary, out[0].Op)
}

func TestAlgebraicSimplificationElidesMultiplyByOne(t *testing.T) {
	var bag diag.Bag
	listing := tac.Listing{
		{Op: tac.OpBinary, Dest: "t0", Lhs: tac.Ref("x"), Operator: token.STAR, Rhs: tac.Lit(int64(1))},
		{Op: tac.OpPrint, Lhs: tac.Ref("t0")},
	}
	out := Optimize(listing, &bag)
	// "x * 1" simplifies to a copy of x, which copy propagation then folds
	// straight into the print, leaving the temporary dead and removed.
	require.Len(t, out, 1)
	assert.Equal(t, tac.OpPrint, out[0].Op)
	assert.Equal(t, "x", out[0].Lhs.Name)
}

func TestAlgebraicSimplificationDoesNotElideIntTimesFloatOne(t *testing.T) {
	var bag diag.Bag
	listing := tac.Listing{
		{Op: tac.OpBinary, Dest: "t0", Lhs: tac.Ref("x"), Operator: token.STAR, Rhs: tac.Lit(1.0)},
		{Op: tac.OpPrint, Lhs: tac.Ref("t0")},
	}
	out := Optimize(listing, &bag)
	var instr tac.Instr
	for _, i := range out {
		if i.Dest == "t0" {
			instr = i
		}
	}
	assert.Equal(t, tac.OpBinary, instr.Op, "x * 1.0 must not collapse and drop the float promotion")
}

func TestCopyPropagationFoldsThroughIntermediateTemp(t *testing.T) {
	var bag diag.Bag
	listing := tac.Listing{
		{Op: tac.OpCopy, Dest: "t0", Lhs: tac.Ref("x")},
		{Op: tac.OpCopy, Dest: "y", Lhs: tac.Ref("t0")},
	}
	out := Optimize(listing, &bag)
	require.Len(t, out, 1, "the now-dead 't0 = x' copy should be removed")
	assert.Equal(t, "y", out[0].Dest)
	assert.Equal(t, "x", out[0].Lhs.Name)
}

func TestDeadTemporaryIsRemovedButNamedVariableSoleWriteIsNot(t *testing.T) {
	var bag diag.Bag
	listing := tac.Listing{
		{Op: tac.OpAlloc, Dest: "x", Type: "int"},
		{Op: tac.OpBinary, Dest: "t0", Lhs: tac.Lit(int64(1)), Operator: token.PLUS, Rhs: tac.Lit(int64(2))},
		{Op: tac.OpCopy, Dest: "x", Lhs: tac.Lit(int64(9))},
	}
	out := Optimize(listing, &bag)
	for _, instr := range out {
		assert.NotEqual(t, "t0", instr.Dest, "unused temporary t0 should be eliminated")
	}
	var sawFinalAssign bool
	for _, instr := range out {
		if instr.Op == tac.OpCopy && instr.Dest == "x" {
			sawFinalAssign = true
		}
	}
	assert.True(t, sawFinalAssign, "x's only write is never overwritten, so it must survive")
	assert.True(t, bag.HasKind(diag.WARNING))
}

func TestOverwrittenNamedVariableWriteIsRemoved(t *testing.T) {
	// int x; x = 10; x = 20; print x; — the first assignment to x is
	// clobbered by the second before it is ever read, so only the
	// second survives.
	var bag diag.Bag
	listing := tac.Listing{
		{Op: tac.OpAlloc, Dest: "x", Type: "int"},
		{Op: tac.OpCopy, Dest: "x", Lhs: tac.Lit(int64(10))},
		{Op: tac.OpCopy, Dest: "x", Lhs: tac.Lit(int64(20))},
		{Op: tac.OpPrint, Lhs: tac.Ref("x")},
	}
	out := Optimize(listing, &bag)
	var assigns []tac.Instr
	for _, instr := range out {
		if instr.Op == tac.OpCopy && instr.Dest == "x" {
			assigns = append(assigns, instr)
		}
	}
	require.Len(t, assigns, 1, "only the surviving assignment to x should remain")
	assert.Equal(t, int64(20), assigns[0].Lhs.Literal)
	assert.True(t, bag.HasKind(diag.WARNING))
}

func TestUnreachableCodeAfterGotoIsRemovedUntilNextLabel(t *testing.T) {
	var bag diag.Bag
	listing := tac.Listing{
		{Op: tac.OpGoto, Label: "L0"},
		{Op: tac.OpPrint, Lhs: tac.Lit(int64(1))},
		{Op: tac.OpLabel, Label: "L0"},
		{Op: tac.OpPrint, Lhs: tac.Lit(int64(2))},
	}
	out := Optimize(listing, &bag)
	for _, instr := range out {
		if instr.Op == tac.OpPrint {
			assert.NotEqual(t, int64(1), instr.Lhs.Literal, "print 1 is unreachable after the unconditional goto")
		}
	}
}

func TestReferencedLabelSurvives(t *testing.T) {
	var bag diag.Bag
	listing := tac.Listing{
		{Op: tac.OpIfFalse, Lhs: tac.Lit(int64(0)), Label: "L0"},
		{Op: tac.OpPrint, Lhs: tac.Lit(int64(1))},
		{Op: tac.OpLabel, Label: "L0"},
	}
	out := Optimize(listing, &bag)
	var sawLabel bool
	for _, instr := range out {
		if instr.Op == tac.OpLabel && instr.Label == "L0" {
			sawLabel = true
		}
	}
	assert.True(t, sawLabel)
}

func TestFunctionEntryLabelSurvivesEvenIfOnlyCalled(t *testing.T) {
	var bag diag.Bag
	listing := tac.Listing{
		{Op: tac.OpGoto, Label: "Lskip"},
		{Op: tac.OpLabel, Label: "add"},
		{Op: tac.OpRet, Lhs: tac.Lit(int64(0))},
		{Op: tac.OpLabel, Label: "Lskip"},
		{Op: tac.OpCall, Label: "add", NArgs: 0, HasResult: false},
	}
	out := Optimize(listing, &bag)
	var sawFuncLabel bool
	for _, instr := range out {
		if instr.Op == tac.OpLabel && instr.Label == "add" {
			sawFuncLabel = true
		}
	}
	assert.True(t, sawFuncLabel, "a label only ever reached via CALL must not be deleted as unreferenced")
}
