package registrar

import (
	"fmt"
	"strings"
)

// Direction is the way a transaction moves a position.
type Direction int

const (
	// Credit increases a position.
	Credit Direction = iota + 1
	// Debit decreases a position.
	Debit
)

func (d Direction) String() string {
	switch d {
	case Credit:
		return "credit"
	case Debit:
		return "debit"
	default:
		return "unknown"
	}
}

// Entry is the classification of one transaction.
type Entry struct {
	Direction Direction
	Delta     Quantity // signed share change
	// Known is false when neither the credit/debit label, the transaction
	// type table nor the text fallback recognised the transaction.
	Known bool
}

// Classifier maps a transaction to a signed share delta.
//
// Implementations must be pure: balances, restrictions and statements all
// classify the same rows and must agree on every delta.
type Classifier interface {
	Classify(tx Transaction) Entry
}

// ClassifierFunc adapts a function to a Classifier.
type ClassifierFunc func(Transaction) Entry

func (f ClassifierFunc) Classify(tx Transaction) Entry { return f(tx) }

// UnknownPolicy decides how an unrecognised transaction counts.
type UnknownPolicy int

const (
	// FailOpen counts unrecognised transactions as credits: leaving shares
	// out of the outstanding total is worse than over-counting them.
	FailOpen UnknownPolicy = iota
	// Exclude gives unrecognised transactions a zero delta.
	Exclude
)

func (p UnknownPolicy) String() string {
	switch p {
	case FailOpen:
		return "fail-open"
	case Exclude:
		return "exclude"
	default:
		return "unknown"
	}
}

// ParseUnknownPolicy parses "fail-open" or "exclude".
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch s {
	case "fail-open", "":
		return FailOpen, nil
	case "exclude":
		return Exclude, nil
	default:
		return 0, fmt.Errorf("unknown classifier policy: %q", s)
	}
}

// Rules is the standard classifier.
//
// An explicit credit/debit label wins: it is a debit when it mentions
// "debit" or "withdrawal". Without a label the transaction type decides
// through the direction table, then through a text match on "debit".
type Rules struct {
	Unknown UnknownPolicy
}

// Classify implements Classifier.
func (r Rules) Classify(tx Transaction) Entry {
	dir, known := r.direction(tx)
	abs := tx.Quantity.Abs()
	switch {
	case !known && r.Unknown == Exclude:
		return Entry{Direction: Credit, Delta: Quantity{}, Known: false}
	case dir == Debit:
		return Entry{Direction: Debit, Delta: abs.Neg(), Known: known}
	default:
		return Entry{Direction: Credit, Delta: abs, Known: known}
	}
}

func (r Rules) direction(tx Transaction) (Direction, bool) {
	if label := strings.ToLower(strings.TrimSpace(tx.CreditDebit)); label != "" {
		if strings.Contains(label, "debit") || strings.Contains(label, "withdrawal") {
			return Debit, true
		}
		return Credit, true
	}
	if dir, ok := directions[tx.Type]; ok {
		return dir, true
	}
	if strings.Contains(strings.ToLower(string(tx.Type)), "debit") {
		return Debit, true
	}
	return Credit, false
}

// Classify classifies tx with the default Rules.
func Classify(tx Transaction) Entry { return Rules{}.Classify(tx) }
