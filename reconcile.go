package registrar

import (
	"cmp"
	"iter"
	"slices"
	"strings"

	"github.com/etnz/registrar/date"
)

// Key groups transactions into positions. ShareholderID is empty for the
// issuer-wide (control book) view of a security.
type Key struct {
	CUSIP         string
	ShareholderID string
}

func (k Key) String() string {
	if k.ShareholderID == "" {
		return k.CUSIP
	}
	return k.CUSIP + "/" + k.ShareholderID
}

// Compare orders keys by CUSIP, then shareholder.
func (k Key) Compare(o Key) int {
	if c := strings.Compare(k.CUSIP, o.CUSIP); c != 0 {
		return c
	}
	return strings.Compare(k.ShareholderID, o.ShareholderID)
}

// KeyFunc extracts the grouping key of a transaction.
type KeyFunc func(Transaction) Key

// ByCUSIP groups by security: the control book view.
func ByCUSIP(tx Transaction) Key { return Key{CUSIP: tx.CUSIP} }

// ByPosition groups by security and holder: the record-keeping view.
func ByPosition(tx Transaction) Key { return Key{CUSIP: tx.CUSIP, ShareholderID: tx.ShareholderID} }

// ParseKeyFunc returns the KeyFunc named "cusip" or "position".
func ParseKeyFunc(s string) (KeyFunc, bool) {
	switch s {
	case "cusip":
		return ByCUSIP, true
	case "position", "holder":
		return ByPosition, true
	}
	return nil, false
}

// Reconciler derives balances, running totals, restrictions and statements
// from already loaded rows. It holds no state besides its Classifier, so a
// single instance can be shared by concurrent callers.
type Reconciler struct {
	classifier Classifier
}

// NewReconciler returns a Reconciler classifying with c, or with the
// default Rules when c is nil.
func NewReconciler(c Classifier) *Reconciler {
	if c == nil {
		c = Rules{}
	}
	return &Reconciler{classifier: c}
}

// Classifier returns the classifier shared by every computation of r.
func (r *Reconciler) Classifier() Classifier { return r.classifier }

func mustKeyFunc(keyFn KeyFunc) {
	if keyFn == nil {
		panic("registrar: nil KeyFunc")
	}
}

// Balance is the outstanding position of a key.
type Balance struct {
	Key         Key
	Outstanding Quantity // credits minus debits, may be negative on inconsistent history
	Credits     Quantity
	Debits      Quantity
	Count       int // number of transactions
}

// Balances is the result of Reconciler.Balances, ordered by key.
type Balances struct {
	entries  []Balance
	index    map[Key]int
	Warnings Warnings
}

// Balances sums the classified deltas of txs per key. The totals do not
// depend on the order of txs and only keys present in txs are reported.
// Negative totals are kept as they are and reported as warnings.
func (r *Reconciler) Balances(txs []Transaction, keyFn KeyFunc) *Balances {
	mustKeyFunc(keyFn)
	acc := make(map[Key]*Balance)
	var ws Warnings
	for _, tx := range txs {
		e := r.classifier.Classify(tx)
		ws.checkRow(tx, e)
		k := keyFn(tx)
		b, ok := acc[k]
		if !ok {
			b = &Balance{Key: k}
			acc[k] = b
		}
		b.Outstanding = b.Outstanding.Add(e.Delta)
		if e.Direction == Debit {
			b.Debits = b.Debits.Add(e.Delta.Abs())
		} else {
			b.Credits = b.Credits.Add(e.Delta)
		}
		b.Count++
	}

	res := &Balances{
		entries: make([]Balance, 0, len(acc)),
		index:   make(map[Key]int, len(acc)),
	}
	for _, b := range acc {
		res.entries = append(res.entries, *b)
	}
	slices.SortFunc(res.entries, func(a, b Balance) int { return a.Key.Compare(b.Key) })
	for i, b := range res.entries {
		res.index[b.Key] = i
		if b.Outstanding.IsNegative() {
			ws.add(WarnNegativeBalance, b.Key.String(), "outstanding balance is %s", b.Outstanding)
		}
	}
	res.Warnings = ws
	return res
}

// Len returns the number of keys.
func (b *Balances) Len() int { return len(b.entries) }

// Get returns the balance of k.
func (b *Balances) Get(k Key) (Balance, bool) {
	i, ok := b.index[k]
	if !ok {
		return Balance{}, false
	}
	return b.entries[i], true
}

// Outstanding returns the outstanding shares of k, zero when k is unknown.
func (b *Balances) Outstanding(k Key) Quantity {
	bal, _ := b.Get(k)
	return bal.Outstanding
}

// All iterates over balances in key order.
func (b *Balances) All() iter.Seq[Balance] {
	return func(yield func(Balance) bool) {
		for _, e := range b.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Negative iterates over balances whose debits exceed their credits.
func (b *Balances) Negative() iter.Seq[Balance] {
	return func(yield func(Balance) bool) {
		for _, e := range b.entries {
			if e.Outstanding.IsNegative() && !yield(e) {
				return
			}
		}
	}
}

// Total returns the sum of all outstanding balances.
func (b *Balances) Total() Quantity {
	var total Quantity
	for _, e := range b.entries {
		total = total.Add(e.Outstanding)
	}
	return total
}

// RunningRow is one displayed period: all transactions of a key sharing a
// date and a type.
type RunningRow struct {
	Key     Key
	Date    date.Date // zero for transactions without a date
	Type    TransactionType
	Count   int
	Net     Quantity // net delta of the period
	Running Quantity // running total of the key after this period
}

// RunningTotals is the result of Reconciler.RunningTotals.
type RunningTotals struct {
	rows []RunningRow
	// MissingDates counts transactions without a usable date. They are
	// grouped under the zero date, first, so the running totals that
	// follow them are unreliable.
	MissingDates int
	Warnings     Warnings
}

type period struct {
	key  Key
	on   date.Date
	kind TransactionType
}

// RunningTotals merges transactions of the same key, date and type into
// periods, orders them by key, date and type, and accumulates a running
// total per key.
func (r *Reconciler) RunningTotals(txs []Transaction, keyFn KeyFunc) *RunningTotals {
	mustKeyFunc(keyFn)
	res := &RunningTotals{}
	acc := make(map[period]*RunningRow)
	for _, tx := range txs {
		e := r.classifier.Classify(tx)
		res.Warnings.checkRow(tx, e)
		if tx.Date.IsZero() {
			res.MissingDates++
			res.Warnings.add(WarnMissingDate, tx.ID, "transaction has no date, running totals may be unreliable")
		}
		p := period{key: keyFn(tx), on: tx.Date, kind: tx.Type}
		row, ok := acc[p]
		if !ok {
			row = &RunningRow{Key: p.key, Date: p.on, Type: p.kind}
			acc[p] = row
		}
		row.Count++
		row.Net = row.Net.Add(e.Delta)
	}

	res.rows = make([]RunningRow, 0, len(acc))
	for _, row := range acc {
		res.rows = append(res.rows, *row)
	}
	slices.SortFunc(res.rows, func(a, b RunningRow) int {
		if c := a.Key.Compare(b.Key); c != 0 {
			return c
		}
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})

	var running Quantity
	for i := range res.rows {
		if i == 0 || res.rows[i].Key != res.rows[i-1].Key {
			running = Quantity{}
		}
		running = running.Add(res.rows[i].Net)
		res.rows[i].Running = running
	}
	return res
}

// Len returns the number of rows.
func (rt *RunningTotals) Len() int { return len(rt.rows) }

// All iterates over rows in display order. It can be ranged over any
// number of times.
func (rt *RunningTotals) All() iter.Seq[RunningRow] {
	return func(yield func(RunningRow) bool) {
		for _, row := range rt.rows {
			if !yield(row) {
				return
			}
		}
	}
}

// LedgerRow is a single transaction with its classification and the
// running total of its key after it.
type LedgerRow struct {
	Key         Key
	Transaction Transaction
	Entry       Entry
	Running     Quantity
}

// Ledger lists every transaction ordered by key, date and creation time,
// with the running total of its key.
func (r *Reconciler) Ledger(txs []Transaction, keyFn KeyFunc) ([]LedgerRow, Warnings) {
	mustKeyFunc(keyFn)
	var ws Warnings
	rows := make([]LedgerRow, 0, len(txs))
	for _, tx := range txs {
		e := r.classifier.Classify(tx)
		ws.checkRow(tx, e)
		if tx.Date.IsZero() {
			ws.add(WarnMissingDate, tx.ID, "transaction has no date, running totals may be unreliable")
		}
		rows = append(rows, LedgerRow{Key: keyFn(tx), Transaction: tx, Entry: e})
	}
	slices.SortStableFunc(rows, func(a, b LedgerRow) int {
		if c := a.Key.Compare(b.Key); c != 0 {
			return c
		}
		if c := a.Transaction.Date.Compare(b.Transaction.Date); c != 0 {
			return c
		}
		if c := a.Transaction.CreatedAt.Compare(b.Transaction.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Transaction.ID, b.Transaction.ID)
	})
	var running Quantity
	for i := range rows {
		if i == 0 || rows[i].Key != rows[i-1].Key {
			running = Quantity{}
		}
		running = running.Add(rows[i].Entry.Delta)
		rows[i].Running = running
	}
	return rows, ws
}
