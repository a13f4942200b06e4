package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinylang/tac"
)

func TestCompileValidProgramProducesAssembly(t *testing.T) {
	res := Compile("int x = 1 + 2; print x;", Options{})
	require.True(t, res.Success)
	assert.Equal(t, StageCodegen, res.LastStage)
	assert.NotEmpty(t, res.Optimized)
	assert.NotEmpty(t, res.Assembly.Text)
}

func TestCompileStopsAfterSemanticErrorWithoutRunningLaterStages(t *testing.T) {
	res := Compile("int x = 1; int x = 2;", Options{})
	require.False(t, res.Success)
	assert.Equal(t, StageSemantic, res.LastStage)
	assert.Nil(t, res.TAC)
	assert.Nil(t, res.Optimized)
}

func TestCompileStopsAfterSyntaxErrorBeforeSemantic(t *testing.T) {
	res := Compile("int x = ;", Options{})
	require.False(t, res.Success)
	assert.Equal(t, StageParse, res.LastStage)
}

func TestCompileTracesEveryStageInOrder(t *testing.T) {
	var stages []Stage
	Compile("int x = 1;", Options{Verbose: true, Trace: func(s Stage) { stages = append(stages, s) }})
	require.Equal(t, []Stage{StageLex, StageParse, StageSemantic, StageGenerate, StageOptimize, StageCodegen}, stages)
}

func TestCompileAppliesConstantFoldingEndToEnd(t *testing.T) {
	res := Compile("int x = 2 + 3; print x;", Options{})
	require.True(t, res.Success)
	var sawFive bool
	for _, instr := range res.Optimized {
		if instr.Op == tac.OpCopy && instr.Lhs.Literal == int64(5) {
			sawFive = true
		}
	}
	assert.True(t, sawFive, "2 + 3 should fold to the literal 5 by the time optimization finishes")
}

func TestCompileOnlyTracesWhenVerboseIsSet(t *testing.T) {
	var stages []Stage
	Compile("int x = 1;", Options{Trace: func(s Stage) { stages = append(stages, s) }})
	assert.Empty(t, stages, "a Trace callback without Verbose must not fire")
}

func TestCompileHonorsCustomOptimizerIterationCap(t *testing.T) {
	res := Compile("int x = 2 + 3; print x;", Options{MaxOptimizerIterations: 1})
	require.True(t, res.Success)
	assert.NotEmpty(t, res.Optimized)
}
