package registrar

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/etnz/registrar/date"
)

// TransactionType identifies the kind of ledger entry.
type TransactionType string

// Transaction types recorded by transfer processing.
const (
	IPO            TransactionType = "IPO"
	DWACDeposit    TransactionType = "DWAC Deposit"
	DWACWithdrawal TransactionType = "DWAC Withdrawal"
	TransferCredit TransactionType = "Transfer Credit"
	TransferDebit  TransactionType = "Transfer Debit"
	Dividend       TransactionType = "Dividend"
	StockSplit     TransactionType = "Stock Split"
	Redemption     TransactionType = "Redemption"
	Cancellation   TransactionType = "Cancellation"
	Other          TransactionType = "Other"
)

// directions maps every known transaction type to the direction it moves
// shares when the row carries no explicit credit/debit label.
var directions = map[TransactionType]Direction{
	IPO:            Credit,
	DWACDeposit:    Credit,
	DWACWithdrawal: Debit,
	TransferCredit: Credit,
	TransferDebit:  Debit,
	Dividend:       Credit,
	StockSplit:     Credit,
	Redemption:     Credit,
	Cancellation:   Credit,
	Other:          Credit,
}

// Known reports whether t is one of the enumerated transaction types.
func (t TransactionType) Known() bool {
	_, ok := directions[t]
	return ok
}

// TransactionTypes returns the enumerated transaction types in declaration order.
func TransactionTypes() []TransactionType {
	return []TransactionType{IPO, DWACDeposit, DWACWithdrawal, TransferCredit, TransferDebit,
		Dividend, StockSplit, Redemption, Cancellation, Other}
}

// Transaction is an immutable ledger entry.
//
// Quantity is a magnitude: the direction is derived by a Classifier, never
// read from its sign.
type Transaction struct {
	ID            string
	IssuerID      string
	ShareholderID string
	CUSIP         string
	Type          TransactionType
	Quantity      Quantity
	CreditDebit   string // optional explicit label, e.g. "Credit", "Debit", "Withdrawal"
	RestrictionID string
	Date          date.Date // zero when missing or unparseable
	CreatedAt     time.Time
	Notes         string

	// RawQuantity holds the source text of a quantity that could not be
	// parsed, in which case Quantity is zero.
	RawQuantity string
}

// SetQuantity parses text into t.Quantity. Empty text is a zero quantity;
// malformed text is kept in RawQuantity.
func (t *Transaction) SetQuantity(text string) {
	t.Quantity, t.RawQuantity = Quantity{}, ""
	if strings.TrimSpace(text) == "" {
		return
	}
	q, err := ParseQuantity(text)
	if err != nil {
		t.RawQuantity = text
		return
	}
	t.Quantity = q
}

// Before reports whether t is displayed before u: by date, then creation time.
func (t Transaction) Before(u Transaction) bool {
	if c := t.Date.Compare(u.Date); c != 0 {
		return c < 0
	}
	return t.CreatedAt.Before(u.CreatedAt)
}

type transactionJSON struct {
	ID            string          `json:"id"`
	IssuerID      string          `json:"issuer_id"`
	ShareholderID string          `json:"shareholder_id"`
	CUSIP         string          `json:"cusip"`
	Type          TransactionType `json:"transaction_type"`
	Quantity      json.RawMessage `json:"share_quantity"`
	CreditDebit   *string         `json:"credit_debit"`
	RestrictionID *string         `json:"restriction_id"`
	Date          *string         `json:"transaction_date"`
	CreatedAt     *time.Time      `json:"created_at"`
	Notes         *string         `json:"notes"`
}

// UnmarshalJSON decodes a transaction row. It never fails on data-quality
// issues: a missing or unparseable date gives a zero Date, a null quantity a
// zero Quantity and a malformed one is kept in RawQuantity.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Transaction{
		ID:            raw.ID,
		IssuerID:      raw.IssuerID,
		ShareholderID: raw.ShareholderID,
		CUSIP:         raw.CUSIP,
		Type:          raw.Type,
		CreditDebit:   deref(raw.CreditDebit),
		RestrictionID: deref(raw.RestrictionID),
		Notes:         deref(raw.Notes),
	}
	if raw.CreatedAt != nil {
		t.CreatedAt = *raw.CreatedAt
	}
	if raw.Date != nil {
		if d, err := date.Parse(*raw.Date); err == nil {
			t.Date = d
		}
	}
	text, err := quantityText(raw.Quantity)
	if err != nil {
		return err
	}
	t.SetQuantity(text)
	return nil
}

// MarshalJSON encodes the transaction with a stable field order.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	t.writeJSON(&w)
	return w.MarshalJSON()
}

func (t Transaction) writeJSON(w *jsonObjectWriter) {
	w.Append("id", t.ID)
	w.Optional("issuer_id", t.IssuerID)
	w.Append("shareholder_id", t.ShareholderID)
	w.Append("cusip", t.CUSIP)
	w.Append("transaction_type", t.Type)
	if t.RawQuantity != "" {
		w.Append("share_quantity", t.RawQuantity)
	} else {
		w.Append("share_quantity", t.Quantity)
	}
	w.Optional("credit_debit", t.CreditDebit)
	w.Optional("restriction_id", t.RestrictionID)
	w.Optional("transaction_date", t.Date)
	w.Optional("created_at", t.CreatedAt)
	w.Optional("notes", t.Notes)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
