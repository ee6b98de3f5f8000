// internal/catalog/implementation.go
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"libris/internal/model"
	"libris/internal/storage"
)

// queries implements the Queries interface.
type queries struct {
	store storage.Store
}

// NewQueries creates the read-only catalog facade.
func NewQueries(store storage.Store) Queries {
	return &queries{store: store}
}

func (q *queries) GetBook(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	return q.store.GetBook(ctx, id)
}

func (q *queries) ListBooks(ctx context.Context) ([]model.Book, error) {
	return q.store.ListBooks(ctx, model.BookFilter{})
}

func (q *queries) ListAvailableBooks(ctx context.Context) ([]model.Book, error) {
	return q.store.ListBooks(ctx, model.BookFilter{AvailableOnly: true})
}

func (q *queries) SearchByTitle(ctx context.Context, title string) ([]model.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, model.Validationf("search title is required")
	}
	return q.store.ListBooks(ctx, model.BookFilter{Title: title})
}

func (q *queries) SearchByAuthor(ctx context.Context, author string) ([]model.Book, error) {
	author = strings.TrimSpace(author)
	if author == "" {
		return nil, model.Validationf("search author is required")
	}
	return q.store.ListBooks(ctx, model.BookFilter{Author: author})
}

func (q *queries) SearchByCategory(ctx context.Context, category model.Category) ([]model.Book, error) {
	if !category.Valid() {
		return nil, model.Validationf("unknown category %d", int(category))
	}
	return q.store.ListBooks(ctx, model.BookFilter{Category: category, HasCategory: true})
}

// ListUserLoans resolves each loan's copy to its book so the caller can
// show titles next to due dates.
func (q *queries) ListUserLoans(ctx context.Context, userID uuid.UUID, openOnly bool) ([]UserLoan, error) {
	loans, err := q.store.ListLoansForUser(ctx, userID, openOnly)
	if err != nil {
		return nil, err
	}

	out := make([]UserLoan, 0, len(loans))
	for _, loan := range loans {
		view := UserLoan{Loan: loan}
		c, err := q.store.GetCopy(ctx, loan.CopyID)
		if err == nil {
			if book, err := q.store.GetBook(ctx, c.BookID); err == nil {
				view.BookID = book.ID.String()
				view.BookTitle = book.Title
				view.BookAuthor = book.Author
			}
		} else if !errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}
