package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/registrar/renderer"
	"github.com/etnz/registrar/store"
	"github.com/google/subcommands"
)

type runningCmd struct {
	by string
}

func (*runningCmd) Name() string     { return "running" }
func (*runningCmd) Synopsis() string { return "display running totals by date and transaction type" }
func (*runningCmd) Usage() string {
	return `ta running [-by cusip|position]

  Merges transactions sharing a date and a type, and displays the running
  total of each security (or position) after each of them.
`
}

func (c *runningCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.by, "by", "cusip", "Group by cusip or position")
}

func (c *runningCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	keyFn, byHolder, err := keyFunc(c.by)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	a, b, status := start(ctx, store.Filter{})
	if status != subcommands.ExitSuccess {
		return status
	}
	defer a.Close()

	rt := a.Reconciler().RunningTotals(b.Transactions(), keyFn)
	printMarkdown(renderer.RenderRunning(renderer.NewRunningReport(b.Issuer(), rt, byHolder)))
	return subcommands.ExitSuccess
}
