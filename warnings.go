package registrar

import (
	"fmt"
	"slices"
)

// WarningCode categorizes data-quality findings.
// W1xxx = input rows, W2xxx = derived balances.
type WarningCode string

const (
	WarnMissingDate       WarningCode = "W1001" // transaction without a usable date
	WarnMalformedQuantity WarningCode = "W1002" // share quantity or restricted shares could not be parsed, counted as 0
	WarnUnknownTemplate   WarningCode = "W1003" // restriction id without an active template
	WarnUnknownType       WarningCode = "W1004" // transaction type not recognised by the classifier
	WarnNegativeBalance   WarningCode = "W2001" // debits exceed credits for a key
)

// Warning is a non-fatal issue found while reconciling. It never stops a
// computation; callers decide how to surface it.
type Warning struct {
	Code    WarningCode `json:"code"`
	Ref     string      `json:"ref,omitempty"` // id of the row or key concerned
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Ref == "" {
		return fmt.Sprintf("%s: %s", w.Code, w.Message)
	}
	return fmt.Sprintf("%s %s: %s", w.Code, w.Ref, w.Message)
}

// Warnings is a list of findings in the order they were raised.
type Warnings []Warning

// Count returns the number of warnings with code.
func (ws Warnings) Count(code WarningCode) int {
	n := 0
	for _, w := range ws {
		if w.Code == code {
			n++
		}
	}
	return n
}

func (ws *Warnings) add(code WarningCode, ref, format string, args ...any) {
	*ws = append(*ws, Warning{Code: code, Ref: ref, Message: fmt.Sprintf(format, args...)})
}

// checkRow raises the warnings that concern a single transaction row.
func (ws *Warnings) checkRow(tx Transaction, e Entry) {
	if tx.RawQuantity != "" {
		ws.add(WarnMalformedQuantity, tx.ID, "share quantity %q is not a number, counted as 0", tx.RawQuantity)
	}
	if !e.Known {
		ws.add(WarnUnknownType, tx.ID, "transaction type %q is not recognised, counted as %s", tx.Type, e.Delta.SignedString())
	}
}

// checkManual raises the warnings that concern a manual restriction row.
func (ws *Warnings) checkManual(m ManualRestriction) {
	if m.RawShares != "" {
		ws.add(WarnMalformedQuantity, m.ID, "restricted shares %q is not a number, counted as 0", m.RawShares)
	}
}

// merge appends the warnings of other not already in ws.
func (ws *Warnings) merge(other Warnings) {
	for _, w := range other {
		if !slices.Contains(*ws, w) {
			*ws = append(*ws, w)
		}
	}
}
