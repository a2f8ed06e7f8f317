package registrar

import (
	"iter"
	"maps"
	"slices"
)

// DefaultCurrency is the currency of market values when none is configured.
const DefaultCurrency = "USD"

// Books is the snapshot of one issuer's records as loaded from the
// persistence layer: the transaction ledger, manual restrictions,
// restriction templates and reference data.
//
// Books are filled once and then only read. Accessors return copies so
// that no computation can alter the snapshot.
type Books struct {
	issuer       string
	transactions []Transaction
	restrictions []ManualRestriction
	templates    []RestrictionTemplate
	securities   map[string]Security    // by CUSIP
	shareholders map[string]Shareholder // by id
	market       *MarketData
}

// NewBooks creates empty books for issuer, with market values in currency.
func NewBooks(issuer, currency string) *Books {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Books{
		issuer:       issuer,
		securities:   make(map[string]Security),
		shareholders: make(map[string]Shareholder),
		market:       NewMarketData(currency),
	}
}

// Issuer returns the issuer the books belong to.
func (b *Books) Issuer() string { return b.issuer }

// Currency returns the currency of market values.
func (b *Books) Currency() string { return b.market.Currency() }

// AddTransactions appends ledger entries and keeps them in display order
// (date, then creation time). The sort is stable.
func (b *Books) AddTransactions(txs ...Transaction) {
	b.transactions = append(b.transactions, txs...)
	slices.SortStableFunc(b.transactions, func(x, y Transaction) int {
		switch {
		case x.Before(y):
			return -1
		case y.Before(x):
			return 1
		}
		return 0
	})
}

// AddRestrictions appends manual restrictions.
func (b *Books) AddRestrictions(rs ...ManualRestriction) {
	b.restrictions = append(b.restrictions, rs...)
}

// AddTemplates appends restriction templates.
func (b *Books) AddTemplates(ts ...RestrictionTemplate) {
	b.templates = append(b.templates, ts...)
}

// AddSecurities declares securities, replacing any with the same CUSIP.
func (b *Books) AddSecurities(secs ...Security) {
	for _, s := range secs {
		b.securities[s.CUSIP] = s
	}
}

// AddShareholders declares holders, replacing any with the same id.
func (b *Books) AddShareholders(hs ...Shareholder) {
	for _, h := range hs {
		b.shareholders[h.ID] = h
	}
}

// AddMarketValues records security prices.
func (b *Books) AddMarketValues(vs ...MarketValue) { b.market.Add(vs...) }

// Transactions returns a copy of the ledger in display order.
func (b *Books) Transactions() []Transaction { return slices.Clone(b.transactions) }

// ManualRestrictions returns a copy of the manual restrictions.
func (b *Books) ManualRestrictions() []ManualRestriction { return slices.Clone(b.restrictions) }

// Templates returns a copy of the restriction templates.
func (b *Books) Templates() []RestrictionTemplate { return slices.Clone(b.templates) }

// Market returns the price history.
func (b *Books) Market() *MarketData { return b.market }

// Security returns the security declared with cusip.
func (b *Books) Security(cusip string) (Security, bool) {
	s, ok := b.securities[cusip]
	return s, ok
}

// Securities iterates over declared securities by CUSIP.
func (b *Books) Securities() iter.Seq[Security] {
	return func(yield func(Security) bool) {
		for _, cusip := range slices.Sorted(maps.Keys(b.securities)) {
			if !yield(b.securities[cusip]) {
				return
			}
		}
	}
}

// Shareholder returns the holder with id.
func (b *Books) Shareholder(id string) (Shareholder, bool) {
	h, ok := b.shareholders[id]
	return h, ok
}

// Shareholders iterates over holders by id.
func (b *Books) Shareholders() iter.Seq[Shareholder] {
	return func(yield func(Shareholder) bool) {
		for _, id := range slices.Sorted(maps.Keys(b.shareholders)) {
			if !yield(b.shareholders[id]) {
				return
			}
		}
	}
}
