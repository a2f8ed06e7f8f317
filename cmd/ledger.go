package cmd

import (
	"context"
	"flag"

	"github.com/etnz/registrar"
	"github.com/etnz/registrar/renderer"
	"github.com/etnz/registrar/store"
	"github.com/google/subcommands"
)

type ledgerCmd struct {
	holder string
	cusip  string
}

func (*ledgerCmd) Name() string     { return "ledger" }
func (*ledgerCmd) Synopsis() string { return "list transactions with their classification" }
func (*ledgerCmd) Usage() string {
	return `ta ledger [-holder <id>] [-cusip <cusip>]

  Lists every transaction by position and date, with its direction, signed
  shares and the running total of its position.
`
}

func (c *ledgerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.holder, "holder", "", "Only show transactions of this shareholder")
	f.StringVar(&c.cusip, "cusip", "", "Only show transactions of this security")
}

func (c *ledgerCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, b, status := start(ctx, store.Filter{ShareholderID: c.holder, CUSIP: c.cusip})
	if status != subcommands.ExitSuccess {
		return status
	}
	defer a.Close()

	var txs []registrar.Transaction
	for _, tx := range b.Transactions() {
		if matches(registrar.ByPosition(tx), c.holder, c.cusip) {
			txs = append(txs, tx)
		}
	}
	rows, ws := a.Reconciler().Ledger(txs, registrar.ByPosition)
	printMarkdown(renderer.RenderLedger(&renderer.LedgerReport{Issuer: b.Issuer(), Rows: rows, Warnings: ws}))
	return subcommands.ExitSuccess
}

// matches reports whether k passes the optional holder and cusip filters.
func matches(k registrar.Key, holder, cusip string) bool {
	return (holder == "" || k.ShareholderID == holder) && (cusip == "" || k.CUSIP == cusip)
}
