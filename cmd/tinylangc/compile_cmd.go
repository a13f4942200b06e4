package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"tinylang/internal/report"
	"tinylang/pipeline"
)

// compileCmd implements the "compile" subcommand: run the full pipeline
// over a source file and print the resulting pseudo-assembly.
type compileCmd struct {
	verbose bool
	tacOnly bool
}

func (*compileCmd) Name() string     { return "compile" }
func (*compileCmd) Synopsis() string { return "Compile a source file to pseudo-assembly" }
func (*compileCmd) Usage() string {
	return `compile [-verbose] [-tac] <file>:
  Run the lexer, parser, semantic analyzer, intermediate code generator,
  optimizer, and code generator over <file>, printing the result.
`
}

func (c *compileCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.verbose, "verbose", false, "trace each pipeline stage as it runs")
	f.BoolVar(&c.tacOnly, "tac", false, "print the optimized three-address code instead of pseudo-assembly")
}

func (c *compileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "file not provided")
		return subcommands.ExitUsageError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	opts := pipeline.Options{
		Verbose: c.verbose,
		Trace:   func(stage pipeline.Stage) { report.Stage(os.Stdout, string(stage)) },
	}

	result := pipeline.Compile(string(data), opts)
	report.Diagnostics(os.Stderr, result.Diagnostics)
	report.Summary(os.Stderr, result.Diagnostics)

	if !result.Success {
		return subcommands.ExitFailure
	}

	if c.tacOnly {
		fmt.Println(result.Optimized.String())
	} else {
		fmt.Println(result.Assembly.String())
	}
	return subcommands.ExitSuccess
}
