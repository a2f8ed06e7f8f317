package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/registrar"
	"github.com/etnz/registrar/date"
	"github.com/shopspring/decimal"
)

// Filter narrows the rows of a position-scoped select. Zero fields do not
// filter.
type Filter struct {
	ShareholderID string
	CUSIP         string
	// Until keeps rows dated on or before Until. Undated rows are always
	// kept so that the reconciliation can report them.
	Until date.Date
}

// where builds the WHERE clause of f for a table whose date column is dateCol.
func (f Filter) where(issuer, dateCol string) (string, []any) {
	conds := []string{"issuer_id = ?"}
	args := []any{issuer}
	if f.ShareholderID != "" {
		conds = append(conds, "shareholder_id = ?")
		args = append(args, f.ShareholderID)
	}
	if f.CUSIP != "" {
		conds = append(conds, "cusip = ?")
		args = append(args, f.CUSIP)
	}
	if !f.Until.IsZero() {
		conds = append(conds, fmt.Sprintf("(%[1]s IS NULL OR %[1]s <= ?)", dateCol))
		args = append(args, f.Until.String())
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Currency returns the currency of the books of issuer, or
// registrar.DefaultCurrency if none was recorded.
func (s *Store) Currency(ctx context.Context, issuer string) (string, error) {
	var cur string
	err := s.db.QueryRowContext(ctx, `SELECT currency FROM books WHERE issuer_id = ?`, issuer).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		return registrar.DefaultCurrency, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query currency of %s: %w", issuer, err)
	}
	return cur, nil
}

// Issuers returns the issuers having books in the store.
func (s *Store) Issuers(ctx context.Context) ([]string, error) {
	return query(ctx, s, `SELECT issuer_id FROM books ORDER BY issuer_id`, nil, func(rows *sql.Rows) (string, error) {
		var id string
		err := rows.Scan(&id)
		return id, err
	})
}

// Transactions returns the transactions of issuer matching f, in insertion order.
func (s *Store) Transactions(ctx context.Context, issuer string, f Filter) ([]registrar.Transaction, error) {
	where, args := f.where(issuer, "transaction_date")
	q := `SELECT id, shareholder_id, cusip, transaction_type, share_quantity, credit_debit, restriction_id, transaction_date, created_at, notes FROM transactions` + where + ` ORDER BY rowid`
	return query(ctx, s, q, args, func(rows *sql.Rows) (registrar.Transaction, error) {
		tx := registrar.Transaction{IssuerID: issuer}
		var qty, label, restriction, on, created, notes sql.NullString
		if err := rows.Scan(&tx.ID, &tx.ShareholderID, &tx.CUSIP, &tx.Type, &qty, &label, &restriction, &on, &created, &notes); err != nil {
			return tx, err
		}
		tx.SetQuantity(qty.String)
		tx.CreditDebit, tx.RestrictionID, tx.Notes = label.String, restriction.String, notes.String
		tx.Date = parseDate(on)
		if created.Valid {
			if t, err := time.Parse(time.RFC3339Nano, created.String); err == nil {
				tx.CreatedAt = t
			}
		}
		return tx, nil
	})
}

// ManualRestrictions returns the manual restrictions of issuer matching f.
func (s *Store) ManualRestrictions(ctx context.Context, issuer string, f Filter) ([]registrar.ManualRestriction, error) {
	where, args := f.where(issuer, "restriction_date")
	q := `SELECT id, shareholder_id, cusip, restriction_id, restricted_shares, restriction_date, notes FROM manual_restrictions` + where + ` ORDER BY rowid`
	return query(ctx, s, q, args, func(rows *sql.Rows) (registrar.ManualRestriction, error) {
		var m registrar.ManualRestriction
		var shares, on, notes sql.NullString
		if err := rows.Scan(&m.ID, &m.ShareholderID, &m.CUSIP, &m.RestrictionID, &shares, &on, &notes); err != nil {
			return m, err
		}
		m.SetShares(shares.String)
		m.Date, m.Notes = parseDate(on), notes.String
		return m, nil
	})
}

// Templates returns every restriction template, active or not.
func (s *Store) Templates(ctx context.Context) ([]registrar.RestrictionTemplate, error) {
	q := `SELECT id, restriction_type, restriction_name, description, is_active FROM restriction_templates ORDER BY id`
	return query(ctx, s, q, nil, func(rows *sql.Rows) (registrar.RestrictionTemplate, error) {
		var t registrar.RestrictionTemplate
		err := rows.Scan(&t.ID, &t.Code, &t.Name, &t.Legend, &t.Active)
		return t, err
	})
}

// Securities returns the securities of issuer.
func (s *Store) Securities(ctx context.Context, issuer string) ([]registrar.Security, error) {
	q := `SELECT cusip, issue_name, class_name, ticker, total_authorized_shares FROM securities WHERE issuer_id = ? ORDER BY cusip`
	return query(ctx, s, q, []any{issuer}, func(rows *sql.Rows) (registrar.Security, error) {
		sec := registrar.Security{IssuerID: issuer}
		var authorized sql.NullString
		if err := rows.Scan(&sec.CUSIP, &sec.IssueName, &sec.ClassName, &sec.Ticker, &authorized); err != nil {
			return sec, err
		}
		if authorized.Valid {
			q, err := registrar.ParseQuantity(authorized.String)
			if err != nil {
				return sec, fmt.Errorf("security %s: %w", sec.CUSIP, err)
			}
			sec.TotalAuthorized = q
		}
		return sec, nil
	})
}

// Shareholders returns the shareholders of issuer.
func (s *Store) Shareholders(ctx context.Context, issuer string) ([]registrar.Shareholder, error) {
	q := `SELECT id, first_name, last_name, account_number, email, tax_id FROM shareholders WHERE issuer_id = ? ORDER BY id`
	return query(ctx, s, q, []any{issuer}, func(rows *sql.Rows) (registrar.Shareholder, error) {
		h := registrar.Shareholder{IssuerID: issuer}
		err := rows.Scan(&h.ID, &h.FirstName, &h.LastName, &h.AccountNumber, &h.Email, &h.TaxID)
		return h, err
	})
}

// MarketValues returns the prices of the securities of issuer.
func (s *Store) MarketValues(ctx context.Context, issuer string) ([]registrar.MarketValue, error) {
	q := `SELECT cusip, date, price FROM market_values WHERE issuer_id = ? ORDER BY cusip, date`
	return query(ctx, s, q, []any{issuer}, func(rows *sql.Rows) (registrar.MarketValue, error) {
		var v registrar.MarketValue
		var on, price string
		if err := rows.Scan(&v.CUSIP, &on, &price); err != nil {
			return v, err
		}
		var err error
		if v.Date, err = date.Parse(on); err != nil {
			return v, fmt.Errorf("price of %s: %w", v.CUSIP, err)
		}
		if v.Price, err = decimal.NewFromString(price); err != nil {
			return v, fmt.Errorf("price of %s on %s: %w", v.CUSIP, on, err)
		}
		return v, nil
	})
}

// query runs q and scans every row with scan.
func query[T any](ctx context.Context, s *Store, q string, args []any, scan func(*sql.Rows) (T, error)) ([]T, error) {
	s.log.Debug("Querying database", "query", q, "args", args)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query database: %w", err)
	}
	defer rows.Close()

	var res []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		res = append(res, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return res, nil
}

// parseDate returns the zero date for NULL or unparseable values: the
// reconciliation reports them as missing.
func parseDate(s sql.NullString) date.Date {
	if !s.Valid {
		return date.Date{}
	}
	d, err := date.Parse(s.String)
	if err != nil {
		return date.Date{}
	}
	return d
}
