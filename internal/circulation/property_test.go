// internal/circulation/property_test.go
package circulation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"libris/internal/model"
	"libris/internal/storage/memory"
)

// TestCopyConservation drives random borrow/return sequences and checks
// after every step that availableCopies + borrowedCopies == totalCopies
// for every book, and that no copy ever carries two open loans.
func TestCopyConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		store := memory.NewStore()
		now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		svc := NewService(store, Config{Now: func() time.Time { return now }})

		userCount := rapid.IntRange(1, 3).Draw(t, "users")
		users := make([]uuid.UUID, userCount)
		for i := range users {
			u := &model.User{ID: uuid.New(), Username: rapid.StringMatching(`user[a-z]{4}`).Draw(t, "username"), Role: model.RoleMember}
			if err := store.InsertUser(ctx, u); err != nil {
				// Duplicate random username; retry with a fresh id.
				u.Username = u.Username + u.ID.String()[:8]
				if err := store.InsertUser(ctx, u); err != nil {
					t.Fatalf("insert user: %v", err)
				}
			}
			users[i] = u.ID
		}

		bookCount := rapid.IntRange(1, 3).Draw(t, "books")
		books := make([]uuid.UUID, bookCount)
		totals := make(map[uuid.UUID]int, bookCount)
		var copies []uuid.UUID
		for i := range books {
			total := rapid.IntRange(1, 4).Draw(t, "copies")
			book, err := svc.AddBook(ctx, AddBookParams{
				Title:       rapid.StringMatching(`Book [A-Z]`).Draw(t, "title"),
				Author:      "Author",
				ISBN:        "isbn",
				TotalCopies: total,
			})
			if err != nil {
				t.Fatalf("add book: %v", err)
			}
			books[i] = book.ID
			totals[book.ID] = total
		}

		checkInvariants := func() {
			for _, bookID := range books {
				available, err := store.CountCopies(ctx, bookID, model.CopyAvailable)
				if err != nil {
					t.Fatalf("count available: %v", err)
				}
				borrowed, err := store.CountCopies(ctx, bookID, model.CopyBorrowed)
				if err != nil {
					t.Fatalf("count borrowed: %v", err)
				}
				if available+borrowed != totals[bookID] {
					t.Fatalf("conservation violated for book %s: %d available + %d borrowed != %d total",
						bookID, available, borrowed, totals[bookID])
				}
			}
			for _, copyID := range copies {
				c, err := store.GetCopy(ctx, copyID)
				if err != nil {
					t.Fatalf("get copy: %v", err)
				}
				_, err = store.OpenLoanForCopy(ctx, copyID)
				switch c.Status {
				case model.CopyBorrowed:
					if err != nil {
						t.Fatalf("borrowed copy %s has no open loan: %v", copyID, err)
					}
				case model.CopyAvailable:
					if !errors.Is(err, model.ErrNotFound) {
						t.Fatalf("available copy %s has an open loan", copyID)
					}
				}
			}
		}

		t.Repeat(map[string]func(*rapid.T){
			"borrow": func(t *rapid.T) {
				bookID := rapid.SampledFrom(books).Draw(t, "book")
				userID := rapid.SampledFrom(users).Draw(t, "user")
				loan, err := svc.Borrow(ctx, bookID, userID)
				if err != nil && !errors.Is(err, model.ErrNoAvailableCopy) {
					t.Fatalf("borrow: %v", err)
				}
				if err == nil {
					copies = append(copies, loan.CopyID)
				}
				checkInvariants()
			},
			"return": func(t *rapid.T) {
				if len(copies) == 0 {
					t.Skip("no copies seen yet")
				}
				copyID := rapid.SampledFrom(copies).Draw(t, "copy")
				userID := rapid.SampledFrom(users).Draw(t, "user")
				err := svc.Return(ctx, copyID, model.Actor{UserID: userID, Role: model.RoleMember})
				if err != nil &&
					!errors.Is(err, model.ErrNotBorrowed) &&
					!errors.Is(err, model.ErrForbidden) {
					t.Fatalf("return: %v", err)
				}
				checkInvariants()
			},
			"": func(t *rapid.T) {
				checkInvariants()
			},
		})
	})
}
