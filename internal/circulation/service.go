// internal/circulation/service.go
package circulation

import (
	"context"

	"github.com/google/uuid"

	"libris/internal/model"
)

// Service is the lending authority: every mutation of inventory and ledger
// state goes through here, inside a single transaction per call.
type Service interface {
	// Borrow allocates an available copy of the book to the user and
	// opens a loan for it. When every copy is out it fails with
	// model.ErrNoAvailableCopy and changes nothing.
	Borrow(ctx context.Context, bookID, userID uuid.UUID) (*model.Loan, error)

	// Return closes the copy's open loan, computes the fine, and makes
	// the copy available again. A member may only return their own
	// loans; staff may return anyone's.
	Return(ctx context.Context, copyID uuid.UUID, actor model.Actor) error

	// AddBook creates the catalog entry and exactly TotalCopies
	// available copies, atomically.
	AddBook(ctx context.Context, p AddBookParams) (*model.Book, error)

	// UpdateBook changes the title and author of an existing entry.
	UpdateBook(ctx context.Context, bookID uuid.UUID, title, author string) error

	// RemoveBook deletes the book and its copies. It fails with
	// model.ErrConflict while any copy is on loan. Loans survive as the
	// audit trail.
	RemoveBook(ctx context.Context, bookID uuid.UUID) error

	// UserStats aggregates the user's loan history.
	UserStats(ctx context.Context, userID uuid.UUID) (*model.LoanStats, error)
}
