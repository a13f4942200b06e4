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

// dumpTacCmd implements the "dump-tac" subcommand: run the pipeline and
// print only the optimized three-address code, not the pseudo-assembly
// that pipeline.Compile also produces.
type dumpTacCmd struct{}

func (*dumpTacCmd) Name() string     { return "dump-tac" }
func (*dumpTacCmd) Synopsis() string { return "Print the optimized three-address code for a file" }
func (*dumpTacCmd) Usage() string {
	return `dump-tac <file>:
  Run the pipeline through the optimizer and print the resulting TAC
  listing, one instruction per line.
`
}
func (*dumpTacCmd) SetFlags(f *flag.FlagSet) {}

func (*dumpTacCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	result := pipeline.Compile(string(data), pipeline.Options{})
	report.Diagnostics(os.Stderr, result.Diagnostics)
	if !result.Success {
		return subcommands.ExitFailure
	}

	fmt.Println(result.Optimized.String())
	return subcommands.ExitSuccess
}
