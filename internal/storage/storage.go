// Package storage declares the persistence contract the domain services
// depend on. The services own the interface; backends (postgres, memory)
// implement it, so the lending core stays storage-agnostic.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"libris/internal/model"
)

// Inventory is the durable record of books and their physical copies.
type Inventory interface {
	InsertBook(ctx context.Context, b *model.Book) error
	GetBook(ctx context.Context, id uuid.UUID) (*model.Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, title, author string) error
	DeleteBook(ctx context.Context, id uuid.UUID) error
	ListBooks(ctx context.Context, f model.BookFilter) ([]model.Book, error)

	InsertCopy(ctx context.Context, c *model.Copy) error
	GetCopy(ctx context.Context, id uuid.UUID) (*model.Copy, error)
	// FindAvailableCopy returns any available copy of the book, or
	// model.ErrNotFound when every copy is out.
	FindAvailableCopy(ctx context.Context, bookID uuid.UUID) (*model.Copy, error)
	SetCopyStatus(ctx context.Context, id uuid.UUID, status model.CopyStatus) error
	CountCopies(ctx context.Context, bookID uuid.UUID, status model.CopyStatus) (int, error)
	DeleteCopiesForBook(ctx context.Context, bookID uuid.UUID) error
}

// Ledger is the durable record of loan transactions.
type Ledger interface {
	// InsertLoan fails with model.ErrConflict if an open loan already
	// exists for the copy. The lending service checks copy status first;
	// the ledger re-checks to close the race.
	InsertLoan(ctx context.Context, l *model.Loan) error
	GetLoan(ctx context.Context, id uuid.UUID) (*model.Loan, error)
	// OpenLoanForCopy returns model.ErrNotFound when the copy has no
	// open loan.
	OpenLoanForCopy(ctx context.Context, copyID uuid.UUID) (*model.Loan, error)
	// CloseLoan fails with model.ErrNotFound if the loan is absent and
	// model.ErrConflict if it is already closed.
	CloseLoan(ctx context.Context, id uuid.UUID, returnDate time.Time, fine float64) error
	ListLoansForUser(ctx context.Context, userID uuid.UUID, openOnly bool) ([]model.Loan, error)
	UserLoanStats(ctx context.Context, userID uuid.UUID) (*model.LoanStats, error)
}

// Users is the durable record of borrower and staff identities.
type Users interface {
	// InsertUser fails with model.ErrConflict on a duplicate username.
	InsertUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByName(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUserRole(ctx context.Context, id uuid.UUID, role model.Role) error
	UpdateUserPassword(ctx context.Context, id uuid.UUID, hash, salt string) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// Tx is the unit of work every mutating service operation runs inside.
type Tx interface {
	Inventory
	Ledger
	Users
}

// Store hands out transactions and serves auto-committed reads.
//
// WithinTx runs fn inside one serializable transaction: if fn returns an
// error the transaction is rolled back and the error returned unchanged,
// otherwise it is committed. Backends must bound how long a transaction
// can wait on locks and surface expiry as model.ErrStorage.
type Store interface {
	Tx
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
