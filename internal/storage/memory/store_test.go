// internal/storage/memory/store_test.go
package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris/internal/model"
	"libris/internal/storage"
)

func seedBook(t *testing.T, store *Store, copies int) (*model.Book, []uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	book := &model.Book{ID: uuid.New(), Title: "A Title", Author: "An Author", TotalCopies: copies}
	require.NoError(t, store.InsertBook(ctx, book))
	ids := make([]uuid.UUID, copies)
	for i := range ids {
		c := &model.Copy{ID: uuid.New(), BookID: book.ID, Status: model.CopyAvailable}
		require.NoError(t, store.InsertCopy(ctx, c))
		ids[i] = c.ID
	}
	return book, ids
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	book, copies := seedBook(t, store, 1)

	sentinel := errors.New("boom")
	err := store.WithinTx(ctx, func(tx storage.Tx) error {
		if err := tx.SetCopyStatus(ctx, copies[0], model.CopyBorrowed); err != nil {
			return err
		}
		if err := tx.DeleteBook(ctx, book.ID); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	// Neither write survived.
	got, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies)

	c, err := store.GetCopy(ctx, copies[0])
	require.NoError(t, err)
	assert.Equal(t, model.CopyAvailable, c.Status)
}

func TestWithinTxCommits(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	_, copies := seedBook(t, store, 1)

	err := store.WithinTx(ctx, func(tx storage.Tx) error {
		return tx.SetCopyStatus(ctx, copies[0], model.CopyBorrowed)
	})
	require.NoError(t, err)

	c, err := store.GetCopy(ctx, copies[0])
	require.NoError(t, err)
	assert.Equal(t, model.CopyBorrowed, c.Status)
}

func TestOpenLoanUniquePerCopy(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	_, copies := seedBook(t, store, 1)
	userID := uuid.New()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	first := &model.Loan{ID: uuid.New(), CopyID: copies[0], UserID: userID, LoanDate: now, DueDate: now.AddDate(0, 0, 14)}
	require.NoError(t, store.InsertLoan(ctx, first))

	second := &model.Loan{ID: uuid.New(), CopyID: copies[0], UserID: userID, LoanDate: now, DueDate: now.AddDate(0, 0, 14)}
	err := store.InsertLoan(ctx, second)
	assert.ErrorIs(t, err, model.ErrConflict)

	// Closing the first loan frees the copy for a new one.
	require.NoError(t, store.CloseLoan(ctx, first.ID, now.AddDate(0, 0, 3), 0))
	require.NoError(t, store.InsertLoan(ctx, second))
}

func TestCloseLoanTwiceRejected(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	_, copies := seedBook(t, store, 1)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	loan := &model.Loan{ID: uuid.New(), CopyID: copies[0], UserID: uuid.New(), LoanDate: now, DueDate: now.AddDate(0, 0, 14)}
	require.NoError(t, store.InsertLoan(ctx, loan))

	require.NoError(t, store.CloseLoan(ctx, loan.ID, now.AddDate(0, 0, 20), 3.0))
	err := store.CloseLoan(ctx, loan.ID, now.AddDate(0, 0, 21), 3.5)
	assert.ErrorIs(t, err, model.ErrConflict)

	got, err := store.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.Fine)
}

func TestFindAvailableCopyDeterministic(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	book, copies := seedBook(t, store, 3)

	// Lowest copy id wins, regardless of map iteration order.
	want := copies[0]
	for _, id := range copies[1:] {
		if id.String() < want.String() {
			want = id
		}
	}
	for i := 0; i < 10; i++ {
		c, err := store.FindAvailableCopy(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, want, c.ID)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	book, _ := seedBook(t, store, 1)

	// A read inside the transaction sees the transaction's own writes,
	// not the committed state.
	err := store.WithinTx(ctx, func(tx storage.Tx) error {
		if err := tx.UpdateBook(ctx, book.ID, "Renamed", "An Author"); err != nil {
			return err
		}
		b, err := tx.GetBook(ctx, book.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, "Renamed", b.Title)
		return errors.New("abandon")
	})
	require.Error(t, err)

	b, err := store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "A Title", b.Title)
}
