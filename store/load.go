package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/etnz/registrar"
	"golang.org/x/sync/errgroup"
)

// Source loads the books of an issuer.
type Source interface {
	LoadBooks(ctx context.Context, issuer string) (*registrar.Books, error)
}

// LoadBooks reads every table of issuer concurrently and assembles its books.
func (s *Store) LoadBooks(ctx context.Context, issuer string) (*registrar.Books, error) {
	return s.Select(ctx, issuer, Filter{})
}

// Select is LoadBooks restricted to the transactions and manual
// restrictions matching f. Reference data and prices are always complete.
func (s *Store) Select(ctx context.Context, issuer string, f Filter) (*registrar.Books, error) {
	var (
		currency     string
		securities   []registrar.Security
		shareholders []registrar.Shareholder
		templates    []registrar.RestrictionTemplate
		txs          []registrar.Transaction
		restrictions []registrar.ManualRestriction
		prices       []registrar.MarketValue
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		currency, err = s.Currency(ctx, issuer)
		return err
	})
	g.Go(func() (err error) {
		securities, err = s.Securities(ctx, issuer)
		return err
	})
	g.Go(func() (err error) {
		shareholders, err = s.Shareholders(ctx, issuer)
		return err
	})
	g.Go(func() (err error) {
		templates, err = s.Templates(ctx)
		return err
	})
	g.Go(func() (err error) {
		txs, err = s.Transactions(ctx, issuer, f)
		return err
	})
	g.Go(func() (err error) {
		restrictions, err = s.ManualRestrictions(ctx, issuer, f)
		return err
	})
	g.Go(func() (err error) {
		prices, err = s.MarketValues(ctx, issuer)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load books of %s: %w", issuer, err)
	}

	b := registrar.NewBooks(issuer, currency)
	b.AddSecurities(securities...)
	b.AddShareholders(shareholders...)
	b.AddTemplates(templates...)
	b.AddTransactions(txs...)
	b.AddRestrictions(restrictions...)
	b.AddMarketValues(prices...)
	s.log.Debug("Loaded books", "issuer", issuer, "filter", f, "transactions", len(txs))
	return b, nil
}

var errReadOnly = errors.New("source is read-only")
