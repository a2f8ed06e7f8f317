package registrar

import (
	"github.com/etnz/registrar/date"
)

// Holding is a security held by a shareholder on a statement.
type Holding struct {
	Security     Security
	Shares       Quantity
	Restricted   Quantity
	Restrictions []Restriction
	Priced       bool      // false when no price is known on or before the statement date
	PriceDate    date.Date // date of the price used
	Price        Money     // per share
	Value        Money     // Price × Shares
}

// Unrestricted returns the shares free of any restriction.
func (h Holding) Unrestricted() Quantity { return h.Shares.Sub(h.Restricted) }

// Statement is the point-in-time view of a shareholder's holdings.
type Statement struct {
	AsOf        date.Date
	Shareholder Shareholder
	Holdings    []Holding // by CUSIP
	TotalValue  Money
	Warnings    Warnings
}

// Statement computes the holdings of shareholderID as of asOf, inclusive.
//
// Only transactions and manual restrictions dated on or before asOf are
// considered; rows without a date cannot be placed and are left out with a
// warning. Securities whose balance is not positive are not held anymore
// and do not appear. Each holding is valued with the latest price dated on
// or before asOf.
func (r *Reconciler) Statement(b *Books, shareholderID string, asOf date.Date) *Statement {
	st := &Statement{
		AsOf:        asOf,
		Shareholder: Shareholder{ID: shareholderID},
		TotalValue:  M(0, b.Currency()),
	}
	if h, ok := b.Shareholder(shareholderID); ok {
		st.Shareholder = h
	}

	var txs []Transaction
	for _, tx := range b.transactions {
		if tx.ShareholderID != shareholderID {
			continue
		}
		if tx.Date.IsZero() {
			st.Warnings.add(WarnMissingDate, tx.ID, "transaction has no date, left out of the statement")
			continue
		}
		if !tx.Date.After(asOf) {
			txs = append(txs, tx)
		}
	}
	var manual []ManualRestriction
	for _, m := range b.restrictions {
		if m.ShareholderID != shareholderID {
			continue
		}
		if m.Date.IsZero() {
			st.Warnings.add(WarnMissingDate, m.ID, "manual restriction has no date, left out of the statement")
			continue
		}
		if !m.Date.After(asOf) {
			manual = append(manual, m)
		}
	}

	balances := r.Balances(txs, ByPosition)
	st.Warnings.merge(balances.Warnings)
	for bal := range balances.All() {
		if !bal.Outstanding.IsPositive() {
			continue
		}
		h := Holding{Security: Security{CUSIP: bal.Key.CUSIP}, Shares: bal.Outstanding}
		if sec, ok := b.Security(bal.Key.CUSIP); ok {
			h.Security = sec
		}
		rs, ws := r.Restrictions(txs, manual, b.templates, bal.Key)
		st.Warnings.merge(ws)
		h.Restrictions, h.Restricted = rs, totalShares(rs)

		if on, price, ok := b.market.PriceAsOf(bal.Key.CUSIP, asOf); ok {
			h.Priced, h.PriceDate, h.Price = true, on, price
			h.Value = price.Mul(h.Shares)
			st.TotalValue = st.TotalValue.Add(h.Value)
		}
		st.Holdings = append(st.Holdings, h)
	}
	return st
}
