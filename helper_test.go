package registrar

import (
	"time"

	"github.com/etnz/registrar/date"
	"github.com/google/go-cmp/cmp"
)

// cmpOpts compares values holding dates; Quantity and Money compare through
// their Equal method.
var cmpOpts = cmp.Options{
	cmp.Comparer(func(a, b date.Date) bool { return a == b }),
}

// D is a helper for test to create a date from a literal.
func D(s string) date.Date { return date.MustParse(s) }

// tx is a helper for test to create a transaction.
func tx(id, holder, cusip string, typ TransactionType, qty int, on string) Transaction {
	t := Transaction{
		ID:            id,
		ShareholderID: holder,
		CUSIP:         cusip,
		Type:          typ,
		Quantity:      Q(qty),
	}
	if on != "" {
		t.Date = D(on)
		t.CreatedAt = time.Date(t.Date.Year(), t.Date.Month(), t.Date.Day(), 12, 0, 0, 0, time.UTC)
	}
	return t
}

// withLabel returns t with an explicit credit/debit label.
func withLabel(t Transaction, label string) Transaction {
	t.CreditDebit = label
	return t
}

// restricted returns t referencing restriction id.
func restricted(t Transaction, id string) Transaction {
	t.RestrictionID = id
	return t
}
