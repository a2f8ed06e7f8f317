package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/registrar"
	"github.com/etnz/registrar/config"
	"github.com/etnz/registrar/store"
	"github.com/google/subcommands"
)

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import a books file into the database" }
func (*importCmd) Usage() string {
	return `ta import <file.jsonl>

  Records every row of a books file in the database, under the issuer of
  the file header, or -issuer when the file has none. Rows with an existing
  id replace the stored ones. Rows without an id get one derived from their
  content, so importing the same file again does not duplicate them.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: import takes exactly one books file")
		return subcommands.ExitUsageError
	}
	b, err := readBooks(ctx, f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if b.Issuer() == "" && *issuer != "" {
		b = withIssuer(b, *issuer)
	}
	if b.Issuer() == "" {
		fmt.Fprintln(os.Stderr, "Error: the books file has no issuer, use -issuer")
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx, func(cfg *config.Config) {
		cfg.Books = ""
		cfg.Issuer = b.Issuer()
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.books.(store.Importer).Import(ctx, b); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "Imported %d transactions of %s into %s\n", len(b.Transactions()), b.Issuer(), a.cfg.DB)
	return subcommands.ExitSuccess
}

// withIssuer returns a copy of b under issuer.
func withIssuer(b *registrar.Books, issuer string) *registrar.Books {
	c := registrar.NewBooks(issuer, b.Currency())
	for s := range b.Securities() {
		c.AddSecurities(s)
	}
	for h := range b.Shareholders() {
		c.AddShareholders(h)
	}
	c.AddTemplates(b.Templates()...)
	c.AddTransactions(b.Transactions()...)
	c.AddRestrictions(b.ManualRestrictions()...)
	for v := range b.Market().Values() {
		c.AddMarketValues(v)
	}
	return c
}
