package postgres

import (
	"context"
	"fmt"

	"libris/internal/model"
)

// schema is applied idempotently on startup. The partial unique index on
// open loans is load-bearing: it is the ledger-side guard against two open
// loans ever existing for one copy, whatever the callers do.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		isbn TEXT NOT NULL,
		category_id INT NOT NULL DEFAULT 0,
		total_copies INT NOT NULL CHECK (total_copies >= 1),
		attachment_path TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS copies (
		id UUID PRIMARY KEY,
		book_id UUID NOT NULL REFERENCES books(id),
		status TEXT NOT NULL CHECK (status IN ('available', 'borrowed')),
		barcode TEXT NOT NULL DEFAULT '',
		condition TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS copies_book_status_idx ON copies (book_id, status)`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		salt TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('admin', 'librarian', 'member')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	// copy_id carries no foreign key: closed loans are the audit trail and
	// outlive their copies when a book is removed.
	`CREATE TABLE IF NOT EXISTS loans (
		id UUID PRIMARY KEY,
		copy_id UUID NOT NULL,
		user_id UUID NOT NULL REFERENCES users(id),
		loan_date TIMESTAMPTZ NOT NULL,
		due_date TIMESTAMPTZ NOT NULL,
		return_date TIMESTAMPTZ,
		fine DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (fine >= 0),
		CHECK (due_date > loan_date)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS loans_open_copy_idx ON loans (copy_id) WHERE return_date IS NULL`,
	`CREATE INDEX IF NOT EXISTS loans_user_idx ON loans (user_id)`,
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: apply schema: %v", model.ErrStorage, err)
		}
	}
	return nil
}
