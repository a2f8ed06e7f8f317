package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/registrar"
	"github.com/etnz/registrar/date"
	"github.com/etnz/registrar/marketdata"
	"github.com/etnz/registrar/store"
	"github.com/google/subcommands"
)

type fetchPricesCmd struct{}

func (*fetchPricesCmd) Name() string     { return "fetch-prices" }
func (*fetchPricesCmd) Synopsis() string { return "record today's price of every security" }
func (*fetchPricesCmd) Usage() string {
	return `ta fetch-prices

  Retrieves the latest price of every security of the books from the quote
  service configured by prices.url and prices.path, and records it for
  today. Responses are cached for the day.
`
}

func (c *fetchPricesCmd) SetFlags(f *flag.FlagSet) {}

func (c *fetchPricesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, b, status := start(ctx, store.Filter{})
	if status != subcommands.ExitSuccess {
		return status
	}
	defer a.Close()

	if a.cfg.Prices.URL == "" {
		fmt.Fprintln(os.Stderr, "Error: no quote service configured, set prices.url")
		return subcommands.ExitFailure
	}
	provider, err := marketdata.New(a.cfg.Prices.URL, a.cfg.Prices.Path,
		marketdata.WithDailyCache(a.cfg.Prices.CacheDir),
		marketdata.WithLogger(a.log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	var cusips []string
	for s := range b.Securities() {
		cusips = append(cusips, s.CUSIP)
	}
	values, fetchErr := provider.Fetch(ctx, date.Today(), cusips...)
	if fetchErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", fetchErr)
	}
	if len(values) == 0 {
		fmt.Fprintln(os.Stderr, "No price retrieved.")
		return subcommands.ExitFailure
	}

	if err := a.savePrices(ctx, values); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "Recorded %d of %d prices.\n", len(values), len(cusips))
	return subcommands.ExitSuccess
}

// savePrices appends values to the books file, or records them in the database.
func (a *app) savePrices(ctx context.Context, values []registrar.MarketValue) error {
	if a.store != nil {
		return a.store.InsertMarketValues(ctx, a.cfg.Issuer, values...)
	}
	file, err := os.OpenFile(a.cfg.Books, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("could not open books file: %w", err)
	}
	defer file.Close()
	for _, v := range values {
		if err := registrar.EncodeRecord(file, registrar.KindPrice, v); err != nil {
			return err
		}
	}
	return nil
}
