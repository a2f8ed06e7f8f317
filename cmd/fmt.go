package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/registrar"
	"github.com/google/subcommands"
)

type fmtCmd struct {
	write bool
}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats a books file into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `ta fmt [-w] <file.jsonl>

  Validates and formats a books file: the header first, then securities,
  shareholders and templates, the transactions in display order, manual
  restrictions and prices. Rows with data-quality issues are kept as they
  are.

  By default the result is written on the standard output. Use -w to
  rewrite the file in place.
`
}

func (c *fmtCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.write, "w", false, "Write the result to the file instead of the standard output")
}

func (c *fmtCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: fmt takes exactly one books file")
		return subcommands.ExitUsageError
	}
	file := f.Arg(0)
	b, err := readBooks(ctx, file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	var buf bytes.Buffer
	if err := registrar.EncodeBooks(&buf, b); err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting %q: %v\n", file, err)
		return subcommands.ExitFailure
	}
	if !c.write {
		stdout.Write(buf.Bytes())
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(file, buf.Bytes(), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving %q: %v\n", file, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "Formatted %q.\n", file)
	return subcommands.ExitSuccess
}
