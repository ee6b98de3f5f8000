// Package postgres implements storage.Store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libris/internal/model"
	"libris/internal/storage"
)

// Postgres error codes we translate into domain errors.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// lockTimeout bounds how long a transaction may wait on a row lock.
const lockTimeout = 5 * time.Second

// Store implements storage.Store on top of a PostgreSQL database.
// Reads outside WithinTx run auto-committed on the pool; every mutating
// service call goes through WithinTx with serializable isolation.
type Store struct {
	queries
	db     *sqlx.DB
	tracer trace.Tracer
}

// NewStore wraps an open database handle.
func NewStore(db *sqlx.DB) *Store {
	tracer := otel.Tracer("libris/storage/postgres")
	return &Store{
		queries: queries{ext: db, tracer: tracer},
		db:      db,
		tracer:  tracer,
	}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %v", model.ErrStorage, err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", model.ErrStorage, err)
	}
	return NewStore(db), nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// WithinTx runs fn inside one serializable transaction. Any error from fn
// rolls everything back and is returned unchanged; commit failures come
// back as model.ErrStorage (or model.ErrConflict when the database aborts
// the transaction to preserve serializability).
func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	ctx, span := s.tracer.Start(ctx, "storage.tx")
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", model.ErrStorage, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("%w: set lock timeout: %v", model.ErrStorage, err)
	}

	if err := fn(queries{ext: tx, tracer: s.tracer}); err != nil {
		span.SetAttributes(attribute.Bool("tx.rolled_back", true))
		return err
	}

	if err := tx.Commit(); err != nil {
		span.SetAttributes(attribute.Bool("tx.rolled_back", true))
		return mapError("commit transaction", err)
	}
	return nil
}

// queries implements storage.Tx over anything that can run statements,
// which lets the same code serve both the pool and an open transaction.
type queries struct {
	ext    sqlx.ExtContext
	tracer trace.Tracer
}

// mapError translates driver errors into the domain taxonomy.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeUniqueViolation, codeForeignKeyViolation:
			return fmt.Errorf("%w: %s: %s", model.ErrConflict, op, pqErr.Message)
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %s: transaction aborted by concurrent update", model.ErrConflict, op)
		}
	}
	return fmt.Errorf("%w: %s: %v", model.ErrStorage, op, err)
}

// --- Inventory ---

func (q queries) InsertBook(ctx context.Context, b *model.Book) error {
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO books (id, title, author, isbn, category_id, total_copies, attachment_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, b.ID, b.Title, b.Author, b.ISBN, b.Category, b.TotalCopies, b.AttachmentPath, b.CreatedAt)
	return mapError("insert book", err)
}

const bookColumns = `
	b.id, b.title, b.author, b.isbn, b.category_id, b.total_copies,
	b.attachment_path, b.created_at, b.updated_at,
	(SELECT COUNT(*) FROM copies c WHERE c.book_id = b.id AND c.status = 'available') AS available_copies`

func (q queries) GetBook(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	b := &model.Book{}
	err := sqlx.GetContext(ctx, q.ext, b,
		`SELECT `+bookColumns+` FROM books b WHERE b.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: book %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapError("get book", err)
	}
	return b, nil
}

func (q queries) UpdateBook(ctx context.Context, id uuid.UUID, title, author string) error {
	res, err := q.ext.ExecContext(ctx, `
		UPDATE books SET title = $1, author = $2, updated_at = NOW() WHERE id = $3
	`, title, author, id)
	if err != nil {
		return mapError("update book", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: book %s", model.ErrNotFound, id)
	}
	return nil
}

func (q queries) DeleteBook(ctx context.Context, id uuid.UUID) error {
	res, err := q.ext.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return mapError("delete book", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: book %s", model.ErrNotFound, id)
	}
	return nil
}

func (q queries) ListBooks(ctx context.Context, f model.BookFilter) ([]model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books b WHERE 1=1`
	var args []any

	if f.Title != "" {
		args = append(args, "%"+f.Title+"%")
		query += fmt.Sprintf(" AND b.title ILIKE $%d", len(args))
	}
	if f.Author != "" {
		args = append(args, "%"+f.Author+"%")
		query += fmt.Sprintf(" AND b.author ILIKE $%d", len(args))
	}
	if f.HasCategory {
		args = append(args, f.Category)
		query += fmt.Sprintf(" AND b.category_id = $%d", len(args))
	}
	if f.AvailableOnly {
		query += ` AND EXISTS (SELECT 1 FROM copies c WHERE c.book_id = b.id AND c.status = 'available')`
	}
	query += ` ORDER BY b.title, b.id`

	var books []model.Book
	if err := sqlx.SelectContext(ctx, q.ext, &books, query, args...); err != nil {
		return nil, mapError("list books", err)
	}
	return books, nil
}

func (q queries) InsertCopy(ctx context.Context, c *model.Copy) error {
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO copies (id, book_id, status, barcode, condition)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.BookID, c.Status, c.Barcode, c.Condition)
	return mapError("insert copy", err)
}

func (q queries) GetCopy(ctx context.Context, id uuid.UUID) (*model.Copy, error) {
	c := &model.Copy{}
	err := sqlx.GetContext(ctx, q.ext, c,
		`SELECT id, book_id, status, barcode, condition FROM copies WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: copy %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapError("get copy", err)
	}
	return c, nil
}

// FindAvailableCopy locks the chosen row so two concurrent borrows can
// never allocate the same copy.
func (q queries) FindAvailableCopy(ctx context.Context, bookID uuid.UUID) (*model.Copy, error) {
	c := &model.Copy{}
	err := sqlx.GetContext(ctx, q.ext, c, `
		SELECT id, book_id, status, barcode, condition
		FROM copies
		WHERE book_id = $1 AND status = 'available'
		ORDER BY id
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: available copy of book %s", model.ErrNotFound, bookID)
	}
	if err != nil {
		return nil, mapError("find available copy", err)
	}
	return c, nil
}

func (q queries) SetCopyStatus(ctx context.Context, id uuid.UUID, status model.CopyStatus) error {
	res, err := q.ext.ExecContext(ctx, `UPDATE copies SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return mapError("set copy status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: copy %s", model.ErrNotFound, id)
	}
	return nil
}

func (q queries) CountCopies(ctx context.Context, bookID uuid.UUID, status model.CopyStatus) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q.ext, &n,
		`SELECT COUNT(*) FROM copies WHERE book_id = $1 AND status = $2`, bookID, status)
	if err != nil {
		return 0, mapError("count copies", err)
	}
	return n, nil
}

func (q queries) DeleteCopiesForBook(ctx context.Context, bookID uuid.UUID) error {
	_, err := q.ext.ExecContext(ctx, `DELETE FROM copies WHERE book_id = $1`, bookID)
	return mapError("delete copies", err)
}

// --- Ledger ---

func (q queries) InsertLoan(ctx context.Context, l *model.Loan) error {
	// The partial unique index on open loans turns a double-borrow race
	// into a unique violation, which mapError reports as a conflict.
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO loans (id, copy_id, user_id, loan_date, due_date, return_date, fine)
		VALUES ($1, $2, $3, $4, $5, NULL, 0)
	`, l.ID, l.CopyID, l.UserID, l.LoanDate, l.DueDate)
	return mapError("insert loan", err)
}

func (q queries) GetLoan(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	l := &model.Loan{}
	err := sqlx.GetContext(ctx, q.ext, l,
		`SELECT id, copy_id, user_id, loan_date, due_date, return_date, fine FROM loans WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: loan %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapError("get loan", err)
	}
	return l, nil
}

func (q queries) OpenLoanForCopy(ctx context.Context, copyID uuid.UUID) (*model.Loan, error) {
	l := &model.Loan{}
	err := sqlx.GetContext(ctx, q.ext, l, `
		SELECT id, copy_id, user_id, loan_date, due_date, return_date, fine
		FROM loans
		WHERE copy_id = $1 AND return_date IS NULL
	`, copyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: open loan for copy %s", model.ErrNotFound, copyID)
	}
	if err != nil {
		return nil, mapError("open loan for copy", err)
	}
	return l, nil
}

func (q queries) CloseLoan(ctx context.Context, id uuid.UUID, returnDate time.Time, fine float64) error {
	res, err := q.ext.ExecContext(ctx, `
		UPDATE loans SET return_date = $1, fine = $2 WHERE id = $3 AND return_date IS NULL
	`, returnDate, fine, id)
	if err != nil {
		return mapError("close loan", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := q.GetLoan(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: loan %s already closed", model.ErrConflict, id)
	}
	return nil
}

func (q queries) ListLoansForUser(ctx context.Context, userID uuid.UUID, openOnly bool) ([]model.Loan, error) {
	query := `
		SELECT id, copy_id, user_id, loan_date, due_date, return_date, fine
		FROM loans
		WHERE user_id = $1`
	if openOnly {
		query += ` AND return_date IS NULL`
	}
	query += ` ORDER BY loan_date DESC, id`

	var loans []model.Loan
	if err := sqlx.SelectContext(ctx, q.ext, &loans, query, userID); err != nil {
		return nil, mapError("list loans for user", err)
	}
	return loans, nil
}

func (q queries) UserLoanStats(ctx context.Context, userID uuid.UUID) (*model.LoanStats, error) {
	stats := &model.LoanStats{}
	err := sqlx.GetContext(ctx, q.ext, stats, `
		SELECT COUNT(*) AS total_borrowed,
		       COUNT(*) FILTER (WHERE return_date IS NULL) AS currently_borrowed,
		       COALESCE(SUM(fine), 0) AS total_fines
		FROM loans
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, mapError("user loan stats", err)
	}
	return stats, nil
}

// --- Users ---

func (q queries) InsertUser(ctx context.Context, u *model.User) error {
	_, err := q.ext.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, salt, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Username, u.PasswordHash, u.Salt, u.Role, u.CreatedAt)
	return mapError("insert user", err)
}

func (q queries) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u := &model.User{}
	err := sqlx.GetContext(ctx, q.ext, u,
		`SELECT id, username, password_hash, salt, role, created_at FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapError("get user", err)
	}
	return u, nil
}

func (q queries) GetUserByName(ctx context.Context, username string) (*model.User, error) {
	u := &model.User{}
	err := sqlx.GetContext(ctx, q.ext, u,
		`SELECT id, username, password_hash, salt, role, created_at FROM users WHERE username = $1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %q", model.ErrNotFound, username)
	}
	if err != nil {
		return nil, mapError("get user by name", err)
	}
	return u, nil
}

func (q queries) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := sqlx.SelectContext(ctx, q.ext, &users,
		`SELECT id, username, password_hash, salt, role, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, mapError("list users", err)
	}
	return users, nil
}

func (q queries) UpdateUserRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	res, err := q.ext.ExecContext(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return mapError("update user role", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user %s", model.ErrNotFound, id)
	}
	return nil
}

func (q queries) UpdateUserPassword(ctx context.Context, id uuid.UUID, hash, salt string) error {
	res, err := q.ext.ExecContext(ctx, `UPDATE users SET password_hash = $1, salt = $2 WHERE id = $3`, hash, salt, id)
	if err != nil {
		return mapError("update user password", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user %s", model.ErrNotFound, id)
	}
	return nil
}

func (q queries) DeleteUser(ctx context.Context, id uuid.UUID) error {
	res, err := q.ext.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError("delete user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user %s", model.ErrNotFound, id)
	}
	return nil
}
