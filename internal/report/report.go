// Package report renders diagnostics to a terminal with color-coded
// severity, the way a driver command shows a failed compile to a user.
package report

import (
	"io"

	"github.com/fatih/color"

	"tinylang/diag"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
)

// Diagnostics writes one colored line per diagnostic to w: red for
// lexical, syntax, semantic and internal errors, yellow for warnings.
func Diagnostics(w io.Writer, diags []diag.Diagnostic) {
	for _, d := range diags {
		if d.Kind == diag.WARNING {
			warningColor.Fprintln(w, d.String())
			continue
		}
		errorColor.Fprintln(w, d.String())
	}
}

// Summary prints a one-line pass/fail summary counting errors and
// warnings separately.
func Summary(w io.Writer, diags []diag.Diagnostic) {
	var errs, warns int
	for _, d := range diags {
		if d.Kind == diag.WARNING {
			warns++
		} else {
			errs++
		}
	}
	switch {
	case errs > 0:
		errorColor.Fprintf(w, "compilation failed: %d error(s), %d warning(s)\n", errs, warns)
	case warns > 0:
		warningColor.Fprintf(w, "compiled with %d warning(s)\n", warns)
	default:
		infoColor.Fprintln(w, "compilation succeeded")
	}
}

// Stage announces entry into a pipeline phase; used only when a driver
// command is run with its verbose flag set.
func Stage(w io.Writer, name string) {
	infoColor.Fprintf(w, "== %s ==\n", name)
}
