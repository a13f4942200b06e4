package report

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"tinylang/diag"
)

func TestDiagnosticsRendersOneLinePerEntry(t *testing.T) {
	var buf bytes.Buffer
	color.NoColor = true
	Diagnostics(&buf, []diag.Diagnostic{
		{Kind: diag.SYNTAX, Line: 3, Message: "expected ';'"},
		{Kind: diag.WARNING, SubKind: diag.DeadCode, Line: 5, Message: "removed unused temporary 't0'"},
	})
	out := buf.String()
	assert.Contains(t, out, "SYNTAX at line 3")
	assert.Contains(t, out, "WARNING/DEAD_CODE at line 5")
}

func TestSummaryReportsSuccessWhenNoDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	color.NoColor = true
	Summary(&buf, nil)
	assert.Contains(t, buf.String(), "succeeded")
}

func TestSummaryCountsErrorsAndWarningsSeparately(t *testing.T) {
	var buf bytes.Buffer
	color.NoColor = true
	Summary(&buf, []diag.Diagnostic{
		{Kind: diag.SEMANTIC},
		{Kind: diag.WARNING},
		{Kind: diag.WARNING},
	})
	out := buf.String()
	assert.Contains(t, out, "1 error(s)")
	assert.Contains(t, out, "2 warning(s)")
}
