// internal/catalog/implementation_test.go
package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris/internal/circulation"
	"libris/internal/model"
	"libris/internal/storage/memory"
)

func seed(t *testing.T) (Queries, circulation.Service, *memory.Store, *model.User) {
	t.Helper()
	store := memory.NewStore()
	lending := circulation.NewService(store, circulation.Config{})
	queries := NewQueries(store)

	user := &model.User{ID: uuid.New(), Username: "alice", Role: model.RoleMember}
	require.NoError(t, store.InsertUser(context.Background(), user))

	return queries, lending, store, user
}

func addBook(t *testing.T, lending circulation.Service, title, author string, category model.Category, copies int) *model.Book {
	t.Helper()
	book, err := lending.AddBook(context.Background(), circulation.AddBookParams{
		Title:       title,
		Author:      author,
		ISBN:        "978-0000000000",
		Category:    int(category),
		TotalCopies: copies,
	})
	require.NoError(t, err)
	return book
}

func TestSearch(t *testing.T) {
	queries, lending, _, _ := seed(t)
	ctx := context.Background()

	addBook(t, lending, "The Left Hand of Darkness", "Ursula K. Le Guin", model.CategoryScienceFiction, 1)
	addBook(t, lending, "The Dispossessed", "Ursula K. Le Guin", model.CategoryScienceFiction, 2)
	addBook(t, lending, "Long Walk to Freedom", "Nelson Mandela", model.CategoryBiography, 1)

	byTitle, err := queries.SearchByTitle(ctx, "dispossessed")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "The Dispossessed", byTitle[0].Title)

	byAuthor, err := queries.SearchByAuthor(ctx, "le guin")
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	byCategory, err := queries.SearchByCategory(ctx, model.CategoryBiography)
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Long Walk to Freedom", byCategory[0].Title)

	_, err = queries.SearchByTitle(ctx, "  ")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = queries.SearchByCategory(ctx, model.Category(42))
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestListAvailableBooks(t *testing.T) {
	queries, lending, _, user := seed(t)
	ctx := context.Background()

	book := addBook(t, lending, "The Dispossessed", "Ursula K. Le Guin", model.CategoryScienceFiction, 1)

	available, err := queries.ListAvailableBooks(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, 1, available[0].AvailableCopies)

	_, err = lending.Borrow(ctx, book.ID, user.ID)
	require.NoError(t, err)

	available, err = queries.ListAvailableBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, available)

	// The full listing still shows the book, with zero available.
	all, err := queries.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 0, all[0].AvailableCopies)
	assert.Equal(t, 1, all[0].TotalCopies)
}

func TestListUserLoans(t *testing.T) {
	queries, lending, _, user := seed(t)
	ctx := context.Background()

	book := addBook(t, lending, "The Dispossessed", "Ursula K. Le Guin", model.CategoryScienceFiction, 2)

	first, err := lending.Borrow(ctx, book.ID, user.ID)
	require.NoError(t, err)
	require.NoError(t, lending.Return(ctx, first.CopyID, model.Actor{UserID: user.ID, Role: model.RoleMember}))

	second, err := lending.Borrow(ctx, book.ID, user.ID)
	require.NoError(t, err)

	open, err := queries.ListUserLoans(ctx, user.ID, true)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)
	assert.Equal(t, "The Dispossessed", open[0].BookTitle)
	assert.Equal(t, "Ursula K. Le Guin", open[0].BookAuthor)

	all, err := queries.ListUserLoans(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListUserLoansAfterBookRemoved(t *testing.T) {
	queries, lending, _, user := seed(t)
	ctx := context.Background()

	book := addBook(t, lending, "The Dispossessed", "Ursula K. Le Guin", model.CategoryScienceFiction, 1)

	loan, err := lending.Borrow(ctx, book.ID, user.ID)
	require.NoError(t, err)
	require.NoError(t, lending.Return(ctx, loan.CopyID, model.Actor{UserID: user.ID, Role: model.RoleMember}))
	require.NoError(t, lending.RemoveBook(ctx, book.ID))

	// The audit trail remains; the book metadata is simply gone.
	loans, err := queries.ListUserLoans(ctx, user.ID, false)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Empty(t, loans[0].BookTitle)
}

func TestGetBook(t *testing.T) {
	queries, lending, _, _ := seed(t)
	ctx := context.Background()

	book := addBook(t, lending, "The Dispossessed", "Ursula K. Le Guin", model.CategoryScienceFiction, 2)

	got, err := queries.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Title, got.Title)
	assert.Equal(t, 2, got.AvailableCopies)

	_, err = queries.GetBook(ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrNotFound)
}
