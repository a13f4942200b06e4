package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/google/subcommands"

	"tinylang/internal/report"
	"tinylang/pipeline"
)

var promptColor = color.New(color.FgGreen)

// replCmd implements the "repl" subcommand: an interactive session that
// compiles one line at a time and prints its pseudo-assembly.
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive compile session" }
func (*replCmd) Usage() string {
	return `repl:
  Read statements one line at a time and print their compiled form.
  Type 'exit' to quit.
`
}
func (*replCmd) SetFlags(f *flag.FlagSet) {}

func (*replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	promptColor.Println("tinylangc REPL — type 'exit' to quit")

	rl, err := readline.New("tl> ")
	if err != nil {
		fmt.Println(err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" {
			break
		}
		rl.SaveHistory(line)

		result := pipeline.Compile(line, pipeline.Options{})
		report.Diagnostics(color.Output, result.Diagnostics)
		if result.Success {
			fmt.Println(result.Assembly.String())
		}
	}
	return subcommands.ExitSuccess
}
