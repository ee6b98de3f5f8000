// internal/circulation/implementation.go
package circulation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"libris/internal/model"
	"libris/internal/storage"
)

// service implements the Service interface.
type service struct {
	store      storage.Store
	loanPeriod time.Duration
	finePerDay float64
	now        func() time.Time

	tracer  trace.Tracer
	borrows metric.Int64Counter
	returns metric.Int64Counter
}

// NewService creates a lending service over the given store.
func NewService(store storage.Store, cfg Config) Service {
	if cfg.LoanPeriodDays <= 0 {
		cfg.LoanPeriodDays = DefaultLoanPeriodDays
	}
	if cfg.FinePerDay <= 0 {
		cfg.FinePerDay = DefaultFinePerDay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	meter := otel.Meter("libris/circulation")
	borrows, _ := meter.Int64Counter("circulation.borrows")
	returns, _ := meter.Int64Counter("circulation.returns")

	return &service{
		store:      store,
		loanPeriod: time.Duration(cfg.LoanPeriodDays) * 24 * time.Hour,
		finePerDay: cfg.FinePerDay,
		now:        cfg.Now,
		tracer:     otel.Tracer("libris/circulation"),
		borrows:    borrows,
		returns:    returns,
	}
}

// Borrow allocates a copy and opens a loan in one transaction, so a copy
// can never end up marked borrowed without its loan or the other way round.
func (s *service) Borrow(ctx context.Context, bookID, userID uuid.UUID) (*model.Loan, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.borrow",
		trace.WithAttributes(attribute.String("book.id", bookID.String())))
	defer span.End()

	if bookID == uuid.Nil {
		return nil, model.Validationf("book id is required")
	}
	if userID == uuid.Nil {
		return nil, model.Validationf("user id is required")
	}

	now := s.now().UTC()
	loan := &model.Loan{
		ID:       uuid.New(),
		UserID:   userID,
		LoanDate: now,
		DueDate:  now.Add(s.loanPeriod),
	}

	err := s.store.WithinTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetBook(ctx, bookID); err != nil {
			return err
		}
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}

		c, err := tx.FindAvailableCopy(ctx, bookID)
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNoAvailableCopy
		}
		if err != nil {
			return err
		}

		if err := tx.SetCopyStatus(ctx, c.ID, model.CopyBorrowed); err != nil {
			return err
		}
		loan.CopyID = c.ID
		return tx.InsertLoan(ctx, loan)
	})
	if err != nil {
		return nil, err
	}

	s.borrows.Add(ctx, 1)
	span.SetAttributes(attribute.String("loan.id", loan.ID.String()))
	return loan, nil
}

// Return closes the loan and frees the copy in one transaction.
func (s *service) Return(ctx context.Context, copyID uuid.UUID, actor model.Actor) error {
	ctx, span := s.tracer.Start(ctx, "circulation.return",
		trace.WithAttributes(attribute.String("copy.id", copyID.String())))
	defer span.End()

	if copyID == uuid.Nil {
		return model.Validationf("copy id is required")
	}

	returned := s.now().UTC()
	err := s.store.WithinTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetCopy(ctx, copyID); err != nil {
			return err
		}

		loan, err := tx.OpenLoanForCopy(ctx, copyID)
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotBorrowed
		}
		if err != nil {
			return err
		}

		if loan.UserID != actor.UserID && !actor.Role.Staff() {
			return fmt.Errorf("%w: loan belongs to another user", model.ErrForbidden)
		}

		fine := s.fine(loan.DueDate, returned)
		if err := tx.CloseLoan(ctx, loan.ID, returned, fine); err != nil {
			return err
		}
		return tx.SetCopyStatus(ctx, copyID, model.CopyAvailable)
	})
	if err != nil {
		return err
	}

	s.returns.Add(ctx, 1)
	return nil
}

// fine charges per whole day late; early and on-time returns cost nothing.
func (s *service) fine(due, returned time.Time) float64 {
	daysLate := int(returned.Sub(due).Hours() / 24)
	if daysLate <= 0 {
		return 0
	}
	return float64(daysLate) * s.finePerDay
}

// AddBook creates the book row and exactly TotalCopies available copies
// inside one transaction, keeping total_copies equal to the copy count.
func (s *service) AddBook(ctx context.Context, p AddBookParams) (*model.Book, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.add_book")
	defer span.End()

	if strings.TrimSpace(p.Title) == "" {
		return nil, model.Validationf("title is required")
	}
	if strings.TrimSpace(p.Author) == "" {
		return nil, model.Validationf("author is required")
	}
	if strings.TrimSpace(p.ISBN) == "" {
		return nil, model.Validationf("isbn is required")
	}
	if p.TotalCopies < 1 {
		return nil, model.Validationf("total copies must be at least 1, got %d", p.TotalCopies)
	}
	category := model.Category(p.Category)
	if !category.Valid() {
		return nil, model.Validationf("unknown category %d", p.Category)
	}

	now := s.now().UTC()
	book := &model.Book{
		ID:             uuid.New(),
		Title:          strings.TrimSpace(p.Title),
		Author:         strings.TrimSpace(p.Author),
		ISBN:           strings.TrimSpace(p.ISBN),
		Category:       category,
		TotalCopies:    p.TotalCopies,
		AttachmentPath: p.AttachmentPath,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.store.WithinTx(ctx, func(tx storage.Tx) error {
		if err := tx.InsertBook(ctx, book); err != nil {
			return err
		}
		for i := 0; i < p.TotalCopies; i++ {
			c := &model.Copy{
				ID:     uuid.New(),
				BookID: book.ID,
				Status: model.CopyAvailable,
			}
			if err := tx.InsertCopy(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	book.AvailableCopies = book.TotalCopies
	span.SetAttributes(attribute.String("book.id", book.ID.String()))
	return book, nil
}

// UpdateBook changes title and author only; inventory counts are mutated
// exclusively through copy rows.
func (s *service) UpdateBook(ctx context.Context, bookID uuid.UUID, title, author string) error {
	if strings.TrimSpace(title) == "" {
		return model.Validationf("title is required")
	}
	if strings.TrimSpace(author) == "" {
		return model.Validationf("author is required")
	}
	return s.store.UpdateBook(ctx, bookID, strings.TrimSpace(title), strings.TrimSpace(author))
}

// RemoveBook deletes the book and its copies unless any copy is on loan.
func (s *service) RemoveBook(ctx context.Context, bookID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "circulation.remove_book",
		trace.WithAttributes(attribute.String("book.id", bookID.String())))
	defer span.End()

	return s.store.WithinTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetBook(ctx, bookID); err != nil {
			return err
		}
		borrowed, err := tx.CountCopies(ctx, bookID, model.CopyBorrowed)
		if err != nil {
			return err
		}
		if borrowed > 0 {
			return fmt.Errorf("%w: %d copies still on loan", model.ErrConflict, borrowed)
		}
		if err := tx.DeleteCopiesForBook(ctx, bookID); err != nil {
			return err
		}
		return tx.DeleteBook(ctx, bookID)
	})
}

// UserStats aggregates the user's loan history from the ledger.
func (s *service) UserStats(ctx context.Context, userID uuid.UUID) (*model.LoanStats, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.UserLoanStats(ctx, userID)
}
