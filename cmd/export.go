package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/registrar"
	"github.com/etnz/registrar/date"
	"github.com/etnz/registrar/renderer"
	"github.com/etnz/registrar/store"
	"github.com/google/subcommands"
)

type exportCmd struct {
	what   string
	by     string
	holder string
	date   string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export a report as CSV" }
func (*exportCmd) Usage() string {
	return `ta export -what balances|running|restrictions|statement [-by cusip|position] [-holder <id>] [-d <date>]

  Writes a report as CSV on the standard output, and its warnings on the
  standard error.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.what, "what", "balances", "Report to export: balances, running, restrictions or statement")
	f.StringVar(&c.by, "by", "cusip", "Group balances and running totals by cusip or position")
	f.StringVar(&c.holder, "holder", "", "Shareholder id of the statement")
	f.StringVar(&c.date, "d", date.Today().String(), "Date of the statement")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	keyFn, _, err := keyFunc(c.by)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	on, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	var filter store.Filter
	switch c.what {
	case "balances", "running", "restrictions":
	case "statement":
		filter = store.Filter{ShareholderID: c.holder, Until: on}
		if c.holder == "" {
			fmt.Fprintln(os.Stderr, "Error: -holder is required to export a statement")
			return subcommands.ExitUsageError
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown report %q\n", c.what)
		return subcommands.ExitUsageError
	}

	a, b, status := start(ctx, filter)
	if status != subcommands.ExitSuccess {
		return status
	}
	defer a.Close()

	r := a.Reconciler()
	var ws registrar.Warnings
	switch c.what {
	case "balances":
		balances := r.Balances(b.Transactions(), keyFn)
		ws = balances.Warnings
		err = renderer.WriteBalancesCSV(stdout, balances)
	case "running":
		rt := r.RunningTotals(b.Transactions(), keyFn)
		ws = rt.Warnings
		err = renderer.WriteRunningCSV(stdout, rt)
	case "restrictions":
		var book []registrar.PositionRestrictions
		book, ws = r.RestrictionBook(b.Transactions(), b.ManualRestrictions(), b.Templates())
		err = renderer.WriteRestrictionsCSV(stdout, book)
	case "statement":
		st := r.Statement(b, c.holder, on)
		ws = st.Warnings
		err = renderer.WriteStatementCSV(stdout, st)
	}
	printWarnings(ws)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
