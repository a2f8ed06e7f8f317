package cmd

import (
	"context"
	"flag"

	"github.com/etnz/registrar"
	"github.com/etnz/registrar/renderer"
	"github.com/etnz/registrar/store"
	"github.com/google/subcommands"
)

type restrictionsCmd struct {
	holder string
	cusip  string
}

func (*restrictionsCmd) Name() string     { return "restrictions" }
func (*restrictionsCmd) Synopsis() string { return "display restricted shares by position" }
func (*restrictionsCmd) Usage() string {
	return `ta restrictions [-holder <id>] [-cusip <cusip>]

  Displays the restrictions in effect on each position, combining
  transactions and manual restrictions.
`
}

func (c *restrictionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.holder, "holder", "", "Only show positions of this shareholder")
	f.StringVar(&c.cusip, "cusip", "", "Only show positions of this security")
}

func (c *restrictionsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, b, status := start(ctx, store.Filter{ShareholderID: c.holder, CUSIP: c.cusip})
	if status != subcommands.ExitSuccess {
		return status
	}
	defer a.Close()

	book, ws := a.Reconciler().RestrictionBook(b.Transactions(), b.ManualRestrictions(), b.Templates())
	var positions []registrar.PositionRestrictions
	for _, p := range book {
		if matches(p.Key, c.holder, c.cusip) {
			positions = append(positions, p)
		}
	}
	printMarkdown(renderer.RenderRestrictions(&renderer.RestrictionsReport{Issuer: b.Issuer(), Positions: positions, Warnings: ws}))
	return subcommands.ExitSuccess
}
