package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/registrar/date"
	"github.com/etnz/registrar/renderer"
	"github.com/etnz/registrar/store"
	"github.com/google/subcommands"
)

type statementCmd struct {
	holder string
	date   string
}

func (*statementCmd) Name() string     { return "statement" }
func (*statementCmd) Synopsis() string { return "display the statement of a shareholder" }
func (*statementCmd) Usage() string {
	return `ta statement -holder <id> [-d <date>]

  Displays the holdings of a shareholder as of a date (inclusive), with
  restricted shares, legends and market values.
`
}

func (c *statementCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.holder, "holder", "", "Shareholder id")
	f.StringVar(&c.date, "d", date.Today().String(), "Date of the statement")
}

func (c *statementCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.holder == "" {
		fmt.Fprintln(os.Stderr, "Error: -holder is required")
		return subcommands.ExitUsageError
	}
	on, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	a, b, status := start(ctx, store.Filter{ShareholderID: c.holder, Until: on})
	if status != subcommands.ExitSuccess {
		return status
	}
	defer a.Close()

	st := a.Reconciler().Statement(b, c.holder, on)
	printMarkdown(renderer.RenderStatement(&renderer.StatementReport{Issuer: b.Issuer(), Statement: st}))
	return subcommands.ExitSuccess
}
