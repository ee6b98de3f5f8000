package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"libris/internal/model"
)

// Auto-committed access outside WithinTx: each call takes the lock and runs
// as its own single-operation transaction.

func (s *Store) InsertBook(ctx context.Context, b *model.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().InsertBook(ctx, b)
}

func (s *Store) GetBook(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().GetBook(ctx, id)
}

func (s *Store) UpdateBook(ctx context.Context, id uuid.UUID, title, author string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().UpdateBook(ctx, id, title, author)
}

func (s *Store) DeleteBook(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().DeleteBook(ctx, id)
}

func (s *Store) ListBooks(ctx context.Context, f model.BookFilter) ([]model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().ListBooks(ctx, f)
}

func (s *Store) InsertCopy(ctx context.Context, c *model.Copy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().InsertCopy(ctx, c)
}

func (s *Store) GetCopy(ctx context.Context, id uuid.UUID) (*model.Copy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().GetCopy(ctx, id)
}

func (s *Store) FindAvailableCopy(ctx context.Context, bookID uuid.UUID) (*model.Copy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().FindAvailableCopy(ctx, bookID)
}

func (s *Store) SetCopyStatus(ctx context.Context, id uuid.UUID, status model.CopyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().SetCopyStatus(ctx, id, status)
}

func (s *Store) CountCopies(ctx context.Context, bookID uuid.UUID, status model.CopyStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().CountCopies(ctx, bookID, status)
}

func (s *Store) DeleteCopiesForBook(ctx context.Context, bookID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().DeleteCopiesForBook(ctx, bookID)
}

func (s *Store) InsertLoan(ctx context.Context, l *model.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().InsertLoan(ctx, l)
}

func (s *Store) GetLoan(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().GetLoan(ctx, id)
}

func (s *Store) OpenLoanForCopy(ctx context.Context, copyID uuid.UUID) (*model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().OpenLoanForCopy(ctx, copyID)
}

func (s *Store) CloseLoan(ctx context.Context, id uuid.UUID, returnDate time.Time, fine float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().CloseLoan(ctx, id, returnDate, fine)
}

func (s *Store) ListLoansForUser(ctx context.Context, userID uuid.UUID, openOnly bool) ([]model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().ListLoansForUser(ctx, userID, openOnly)
}

func (s *Store) UserLoanStats(ctx context.Context, userID uuid.UUID) (*model.LoanStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().UserLoanStats(ctx, userID)
}

func (s *Store) InsertUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().InsertUser(ctx, u)
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().GetUser(ctx, id)
}

func (s *Store) GetUserByName(ctx context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().GetUserByName(ctx, username)
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().ListUsers(ctx)
}

func (s *Store) UpdateUserRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().UpdateUserRole(ctx, id, role)
}

func (s *Store) UpdateUserPassword(ctx context.Context, id uuid.UUID, hash, salt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().UpdateUserPassword(ctx, id, hash, salt)
}

func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().DeleteUser(ctx, id)
}
