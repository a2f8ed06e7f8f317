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

type balancesCmd struct {
	by string
}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "display outstanding balances" }
func (*balancesCmd) Usage() string {
	return `ta balances [-by cusip|position]

  Displays the outstanding shares of each security (the control book), or
  of each holder in each security with -by position.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.by, "by", "cusip", "Group by cusip or position")
}

func (c *balancesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	balances := a.Reconciler().Balances(b.Transactions(), keyFn)
	printMarkdown(renderer.RenderBalances(renderer.NewBalancesReport(b.Issuer(), balances, byHolder)))
	return subcommands.ExitSuccess
}
