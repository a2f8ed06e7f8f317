// Package store persists books in a SQLite database and loads them back
// for reconciliation.
//
// Every table but restriction_templates is scoped by issuer. Quantities and
// prices are stored as decimal text so that no precision is lost and
// malformed source values survive a round trip.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Store is a SQLite backed collection of books.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens or creates the database at path and migrates its schema.
// path ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	if path == ":memory:" {
		// each connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db, log: logger.With("db", path)}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS books (
	issuer_id TEXT PRIMARY KEY,
	currency TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS securities (
	cusip TEXT PRIMARY KEY,
	issuer_id TEXT NOT NULL,
	issue_name TEXT NOT NULL DEFAULT '',
	class_name TEXT NOT NULL DEFAULT '',
	ticker TEXT NOT NULL DEFAULT '',
	total_authorized_shares TEXT
);

CREATE TABLE IF NOT EXISTS shareholders (
	id TEXT PRIMARY KEY,
	issuer_id TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	account_number TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	tax_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	issuer_id TEXT NOT NULL,
	shareholder_id TEXT NOT NULL,
	cusip TEXT NOT NULL,
	transaction_type TEXT NOT NULL,
	share_quantity TEXT,
	credit_debit TEXT,
	restriction_id TEXT,
	transaction_date TEXT,
	created_at TEXT,
	notes TEXT
);
CREATE INDEX IF NOT EXISTS idx_transactions_position ON transactions (issuer_id, cusip, shareholder_id);

CREATE TABLE IF NOT EXISTS manual_restrictions (
	id TEXT PRIMARY KEY,
	issuer_id TEXT NOT NULL,
	shareholder_id TEXT NOT NULL,
	cusip TEXT NOT NULL,
	restriction_id TEXT NOT NULL,
	restricted_shares TEXT,
	restriction_date TEXT,
	notes TEXT
);

CREATE TABLE IF NOT EXISTS restriction_templates (
	id TEXT PRIMARY KEY,
	restriction_type TEXT NOT NULL DEFAULT '',
	restriction_name TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS market_values (
	issuer_id TEXT NOT NULL,
	cusip TEXT NOT NULL,
	date TEXT NOT NULL,
	price TEXT NOT NULL,
	PRIMARY KEY (issuer_id, cusip, date)
);
`

func (s *Store) migrate(ctx context.Context) error {
	s.log.Debug("Checking database migrations")
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
