package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/etnz/registrar"
	"github.com/etnz/registrar/date"
	"github.com/google/uuid"
)

// preparer is implemented by *sql.DB and *sql.Tx.
type preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// putAll executes q once per row inside a prepared statement.
func putAll[T any](ctx context.Context, db preparer, q string, rows []T, args func(T) []any) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := db.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()
	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, args(row)...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}
	return nil
}

// inTx runs fn in a database transaction, committed when fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// withIDs returns a copy of rows where every empty id is replaced by a new uuid.
func withIDs[T any](rows []T, id func(*T) *string) []T {
	rows = slices.Clone(rows)
	for i := range rows {
		if p := id(&rows[i]); *p == "" {
			*p = uuid.NewString()
		}
	}
	return rows
}

// importSpace is the namespace of the ids derived for imported rows.
var importSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/etnz/registrar/import"))

// withStableIDs returns a copy of rows where every empty id is derived from
// the issuer, the row content and its rank among identical rows. Importing
// the same rows again yields the same ids.
func withStableIDs[T any](issuer string, rows []T, id func(*T) *string) ([]T, error) {
	rows = slices.Clone(rows)
	seen := make(map[string]int)
	for i := range rows {
		p := id(&rows[i])
		if *p != "" {
			continue
		}
		data, err := json.Marshal(rows[i])
		if err != nil {
			return nil, fmt.Errorf("failed to derive row id: %w", err)
		}
		key := issuer + "\x00" + string(data)
		n := seen[key]
		seen[key] = n + 1
		*p = uuid.NewSHA1(importSpace, fmt.Appendf(nil, "%s\x00%d", key, n)).String()
	}
	return rows, nil
}

func ids[T any](rows []T, id func(*T) *string) []string {
	res := make([]string, len(rows))
	for i := range rows {
		res[i] = *id(&rows[i])
	}
	return res
}

func transactionID(t *registrar.Transaction) *string { return &t.ID }
func restrictionID(m *registrar.ManualRestriction) *string { return &m.ID }
func templateID(t *registrar.RestrictionTemplate) *string { return &t.ID }
func shareholderID(h *registrar.Shareholder) *string { return &h.ID }

const (
	insertBooks       = `INSERT OR REPLACE INTO books (issuer_id, currency) VALUES (?, ?)`
	insertSecurity    = `INSERT OR REPLACE INTO securities (cusip, issuer_id, issue_name, class_name, ticker, total_authorized_shares) VALUES (?, ?, ?, ?, ?, ?)`
	insertShareholder = `INSERT OR REPLACE INTO shareholders (id, issuer_id, first_name, last_name, account_number, email, tax_id) VALUES (?, ?, ?, ?, ?, ?, ?)`
	insertTransaction = `INSERT OR REPLACE INTO transactions (id, issuer_id, shareholder_id, cusip, transaction_type, share_quantity, credit_debit, restriction_id, transaction_date, created_at, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertRestriction = `INSERT OR REPLACE INTO manual_restrictions (id, issuer_id, shareholder_id, cusip, restriction_id, restricted_shares, restriction_date, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	insertTemplate    = `INSERT OR REPLACE INTO restriction_templates (id, restriction_type, restriction_name, description, is_active) VALUES (?, ?, ?, ?, ?)`
	insertPrice       = `INSERT OR REPLACE INTO market_values (issuer_id, cusip, date, price) VALUES (?, ?, ?, ?)`
)

// nullable maps the empty string to NULL.
func nullable(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

func dateArg(d date.Date) sql.NullString { return nullable(d.String()) }

func transactionArgs(issuer string) func(registrar.Transaction) []any {
	return func(t registrar.Transaction) []any {
		qty := t.RawQuantity
		if qty == "" {
			qty = t.Quantity.String()
		}
		var created sql.NullString
		if !t.CreatedAt.IsZero() {
			created = nullable(t.CreatedAt.UTC().Format(time.RFC3339Nano))
		}
		return []any{t.ID, issuer, t.ShareholderID, t.CUSIP, string(t.Type), qty,
			nullable(t.CreditDebit), nullable(t.RestrictionID), dateArg(t.Date), created, nullable(t.Notes)}
	}
}

func restrictionArgs(issuer string) func(registrar.ManualRestriction) []any {
	return func(m registrar.ManualRestriction) []any {
		shares := m.RawShares
		if shares == "" {
			shares = m.Shares.String()
		}
		return []any{m.ID, issuer, m.ShareholderID, m.CUSIP, m.RestrictionID, shares, dateArg(m.Date), nullable(m.Notes)}
	}
}

func templateArgs(t registrar.RestrictionTemplate) []any {
	return []any{t.ID, t.Code, t.Name, t.Legend, t.Active}
}

func securityArgs(issuer string) func(registrar.Security) []any {
	return func(s registrar.Security) []any {
		return []any{s.CUSIP, issuer, s.IssueName, s.ClassName, s.Ticker, s.TotalAuthorized.String()}
	}
}

func shareholderArgs(issuer string) func(registrar.Shareholder) []any {
	return func(h registrar.Shareholder) []any {
		return []any{h.ID, issuer, h.FirstName, h.LastName, h.AccountNumber, h.Email, h.TaxID}
	}
}

func priceArgs(issuer string) func(registrar.MarketValue) []any {
	return func(v registrar.MarketValue) []any {
		return []any{issuer, v.CUSIP, v.Date.String(), v.Price.String()}
	}
}

// InsertTransactions records txs for issuer and returns their ids. A
// transaction with an existing id replaces it; an empty id gets a new one.
func (s *Store) InsertTransactions(ctx context.Context, issuer string, txs ...registrar.Transaction) ([]string, error) {
	txs = withIDs(txs, transactionID)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return putAll(ctx, tx, insertTransaction, txs, transactionArgs(issuer))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert transactions of %s: %w", issuer, err)
	}
	s.log.Info("Inserted transactions", "issuer", issuer, "count", len(txs))
	return ids(txs, transactionID), nil
}

// InsertManualRestrictions records manual restrictions for issuer and returns their ids.
func (s *Store) InsertManualRestrictions(ctx context.Context, issuer string, rs ...registrar.ManualRestriction) ([]string, error) {
	rs = withIDs(rs, restrictionID)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return putAll(ctx, tx, insertRestriction, rs, restrictionArgs(issuer))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert manual restrictions of %s: %w", issuer, err)
	}
	s.log.Info("Inserted manual restrictions", "issuer", issuer, "count", len(rs))
	return ids(rs, restrictionID), nil
}

// InsertTemplates records restriction templates and returns their ids.
func (s *Store) InsertTemplates(ctx context.Context, ts ...registrar.RestrictionTemplate) ([]string, error) {
	ts = withIDs(ts, templateID)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return putAll(ctx, tx, insertTemplate, ts, templateArgs)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert restriction templates: %w", err)
	}
	return ids(ts, templateID), nil
}

// Import records the whole content of b under its issuer, in a single
// database transaction. Rows without an id get one derived from their
// content, so importing the same books twice replaces the rows.
func (s *Store) Import(ctx context.Context, b *registrar.Books) error {
	issuer := b.Issuer()
	if issuer == "" {
		return fmt.Errorf("cannot import books without an issuer")
	}
	securities := slices.Collect(b.Securities())
	prices := slices.Collect(b.Market().Values())
	shareholders, err := withStableIDs(issuer, slices.Collect(b.Shareholders()), shareholderID)
	if err != nil {
		return err
	}
	templates, err := withStableIDs(issuer, b.Templates(), templateID)
	if err != nil {
		return err
	}
	txs, err := withStableIDs(issuer, b.Transactions(), transactionID)
	if err != nil {
		return err
	}
	restrictions, err := withStableIDs(issuer, b.ManualRestrictions(), restrictionID)
	if err != nil {
		return err
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertBooks, issuer, b.Currency()); err != nil {
			return fmt.Errorf("failed to insert books: %w", err)
		}
		if err := putAll(ctx, tx, insertSecurity, securities, securityArgs(issuer)); err != nil {
			return fmt.Errorf("securities: %w", err)
		}
		if err := putAll(ctx, tx, insertShareholder, shareholders, shareholderArgs(issuer)); err != nil {
			return fmt.Errorf("shareholders: %w", err)
		}
		if err := putAll(ctx, tx, insertTemplate, templates, templateArgs); err != nil {
			return fmt.Errorf("restriction templates: %w", err)
		}
		if err := putAll(ctx, tx, insertTransaction, txs, transactionArgs(issuer)); err != nil {
			return fmt.Errorf("transactions: %w", err)
		}
		if err := putAll(ctx, tx, insertRestriction, restrictions, restrictionArgs(issuer)); err != nil {
			return fmt.Errorf("manual restrictions: %w", err)
		}
		if err := putAll(ctx, tx, insertPrice, prices, priceArgs(issuer)); err != nil {
			return fmt.Errorf("market values: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to import books of %s: %w", issuer, err)
	}
	s.log.Info("Imported books", "issuer", issuer,
		"securities", len(securities), "shareholders", len(shareholders),
		"transactions", len(txs), "restrictions", len(restrictions), "prices", len(prices))
	return nil
}

// InsertMarketValues records prices for issuer. A price for an existing
// (cusip, date) replaces it.
func (s *Store) InsertMarketValues(ctx context.Context, issuer string, vs ...registrar.MarketValue) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return putAll(ctx, tx, insertPrice, vs, priceArgs(issuer))
	})
	if err != nil {
		return fmt.Errorf("failed to insert market values of %s: %w", issuer, err)
	}
	s.log.Info("Inserted market values", "issuer", issuer, "count", len(vs))
	return nil
}
