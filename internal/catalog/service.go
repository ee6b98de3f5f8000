// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"

	"libris/internal/model"
)

// Queries is the read side of the catalog: pure projections over inventory
// and ledger state. Nothing here mutates, and every call is safe to run
// concurrently with lending operations.
type Queries interface {
	GetBook(ctx context.Context, id uuid.UUID) (*model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	ListAvailableBooks(ctx context.Context) ([]model.Book, error)
	SearchByTitle(ctx context.Context, title string) ([]model.Book, error)
	SearchByAuthor(ctx context.Context, author string) ([]model.Book, error)
	SearchByCategory(ctx context.Context, category model.Category) ([]model.Book, error)
	ListUserLoans(ctx context.Context, userID uuid.UUID, openOnly bool) ([]UserLoan, error)
}
