// Package registrar provides the record-keeping core of a transfer agent:
// it derives share positions, restricted share totals and shareholder
// statements from an issuer's immutable transaction ledger.
//
// The core functionalities include:
//   - Classification: a single Classifier turns each ledger entry into a
//     signed share delta, from its credit/debit label, its transaction type
//     or, as a last resort, a text match.
//   - Position Aggregation: outstanding balances per security (control
//     book) or per security and holder (record keeping), and date-ordered
//     running totals for display.
//   - Restriction Resolution: merges restrictions carried by transactions
//     with manual restrictions and attaches template legends.
//   - Statements: point-in-time holdings of a shareholder, valued with the
//     latest known market price.
//   - Books: an immutable snapshot of the records of an issuer, with a
//     human-readable JSONL encoding.
//
// Every computation is a pure projection of already loaded rows: nothing is
// persisted and data-quality issues are returned as Warnings, never as
// errors.
package registrar
