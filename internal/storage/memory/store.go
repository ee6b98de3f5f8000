// Package memory implements storage.Store in process memory. It backs the
// unit and property tests and doubles as proof that the lending core never
// leans on SQL semantics: transactions mutate a copy of the state and the
// copy is swapped in only on success, so rollback is structural.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"libris/internal/model"
	"libris/internal/storage"
)

// Store implements storage.Store with a single mutex, which trivially
// serializes transactions.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	books  map[uuid.UUID]*model.Book
	copies map[uuid.UUID]*model.Copy
	loans  map[uuid.UUID]*model.Loan
	users  map[uuid.UUID]*model.User
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{state: &state{
		books:  make(map[uuid.UUID]*model.Book),
		copies: make(map[uuid.UUID]*model.Copy),
		loans:  make(map[uuid.UUID]*model.Loan),
		users:  make(map[uuid.UUID]*model.User),
	}}
}

func (st *state) clone() *state {
	next := &state{
		books:  make(map[uuid.UUID]*model.Book, len(st.books)),
		copies: make(map[uuid.UUID]*model.Copy, len(st.copies)),
		loans:  make(map[uuid.UUID]*model.Loan, len(st.loans)),
		users:  make(map[uuid.UUID]*model.User, len(st.users)),
	}
	for id, b := range st.books {
		v := *b
		next.books[id] = &v
	}
	for id, c := range st.copies {
		v := *c
		next.copies[id] = &v
	}
	for id, l := range st.loans {
		v := *l
		if l.ReturnDate != nil {
			rd := *l.ReturnDate
			v.ReturnDate = &rd
		}
		next.loans[id] = &v
	}
	for id, u := range st.users {
		v := *u
		next.users[id] = &v
	}
	return next
}

// WithinTx runs fn against a clone of the state and swaps the clone in only
// when fn succeeds, so a failing step can never leave partial writes behind.
func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(tx{st: next}); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Store) read() tx {
	return tx{st: s.state}
}

// tx implements storage.Tx directly against a state.
type tx struct {
	st *state
}

// --- Inventory ---

func (t tx) InsertBook(_ context.Context, b *model.Book) error {
	if _, ok := t.st.books[b.ID]; ok {
		return fmt.Errorf("%w: book %s already exists", model.ErrConflict, b.ID)
	}
	v := *b
	t.st.books[b.ID] = &v
	return nil
}

func (t tx) GetBook(_ context.Context, id uuid.UUID) (*model.Book, error) {
	b, ok := t.st.books[id]
	if !ok {
		return nil, fmt.Errorf("%w: book %s", model.ErrNotFound, id)
	}
	v := *b
	v.AvailableCopies = t.countCopies(id, model.CopyAvailable)
	return &v, nil
}

func (t tx) UpdateBook(_ context.Context, id uuid.UUID, title, author string) error {
	b, ok := t.st.books[id]
	if !ok {
		return fmt.Errorf("%w: book %s", model.ErrNotFound, id)
	}
	b.Title = title
	b.Author = author
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (t tx) DeleteBook(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.books[id]; !ok {
		return fmt.Errorf("%w: book %s", model.ErrNotFound, id)
	}
	delete(t.st.books, id)
	return nil
}

func (t tx) ListBooks(ctx context.Context, f model.BookFilter) ([]model.Book, error) {
	var books []model.Book
	for id, b := range t.st.books {
		if f.Title != "" && !strings.Contains(strings.ToLower(b.Title), strings.ToLower(f.Title)) {
			continue
		}
		if f.Author != "" && !strings.Contains(strings.ToLower(b.Author), strings.ToLower(f.Author)) {
			continue
		}
		if f.HasCategory && b.Category != f.Category {
			continue
		}
		available := t.countCopies(id, model.CopyAvailable)
		if f.AvailableOnly && available == 0 {
			continue
		}
		v := *b
		v.AvailableCopies = available
		books = append(books, v)
	}
	sort.Slice(books, func(i, j int) bool {
		if books[i].Title != books[j].Title {
			return books[i].Title < books[j].Title
		}
		return books[i].ID.String() < books[j].ID.String()
	})
	return books, nil
}

func (t tx) InsertCopy(_ context.Context, c *model.Copy) error {
	if _, ok := t.st.copies[c.ID]; ok {
		return fmt.Errorf("%w: copy %s already exists", model.ErrConflict, c.ID)
	}
	if _, ok := t.st.books[c.BookID]; !ok {
		return fmt.Errorf("%w: book %s", model.ErrNotFound, c.BookID)
	}
	v := *c
	t.st.copies[c.ID] = &v
	return nil
}

func (t tx) GetCopy(_ context.Context, id uuid.UUID) (*model.Copy, error) {
	c, ok := t.st.copies[id]
	if !ok {
		return nil, fmt.Errorf("%w: copy %s", model.ErrNotFound, id)
	}
	v := *c
	return &v, nil
}

func (t tx) FindAvailableCopy(_ context.Context, bookID uuid.UUID) (*model.Copy, error) {
	var found *model.Copy
	for _, c := range t.st.copies {
		if c.BookID != bookID || c.Status != model.CopyAvailable {
			continue
		}
		if found == nil || c.ID.String() < found.ID.String() {
			found = c
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: available copy of book %s", model.ErrNotFound, bookID)
	}
	v := *found
	return &v, nil
}

func (t tx) SetCopyStatus(_ context.Context, id uuid.UUID, status model.CopyStatus) error {
	c, ok := t.st.copies[id]
	if !ok {
		return fmt.Errorf("%w: copy %s", model.ErrNotFound, id)
	}
	c.Status = status
	return nil
}

func (t tx) CountCopies(_ context.Context, bookID uuid.UUID, status model.CopyStatus) (int, error) {
	return t.countCopies(bookID, status), nil
}

func (t tx) countCopies(bookID uuid.UUID, status model.CopyStatus) int {
	n := 0
	for _, c := range t.st.copies {
		if c.BookID == bookID && c.Status == status {
			n++
		}
	}
	return n
}

func (t tx) DeleteCopiesForBook(_ context.Context, bookID uuid.UUID) error {
	for id, c := range t.st.copies {
		if c.BookID == bookID {
			delete(t.st.copies, id)
		}
	}
	return nil
}

// --- Ledger ---

func (t tx) InsertLoan(_ context.Context, l *model.Loan) error {
	for _, existing := range t.st.loans {
		if existing.CopyID == l.CopyID && existing.Open() {
			return fmt.Errorf("%w: open loan exists for copy %s", model.ErrConflict, l.CopyID)
		}
	}
	v := *l
	v.ReturnDate = nil
	v.Fine = 0
	t.st.loans[l.ID] = &v
	return nil
}

func (t tx) GetLoan(_ context.Context, id uuid.UUID) (*model.Loan, error) {
	l, ok := t.st.loans[id]
	if !ok {
		return nil, fmt.Errorf("%w: loan %s", model.ErrNotFound, id)
	}
	v := *l
	return &v, nil
}

func (t tx) OpenLoanForCopy(_ context.Context, copyID uuid.UUID) (*model.Loan, error) {
	for _, l := range t.st.loans {
		if l.CopyID == copyID && l.Open() {
			v := *l
			return &v, nil
		}
	}
	return nil, fmt.Errorf("%w: open loan for copy %s", model.ErrNotFound, copyID)
}

func (t tx) CloseLoan(_ context.Context, id uuid.UUID, returnDate time.Time, fine float64) error {
	l, ok := t.st.loans[id]
	if !ok {
		return fmt.Errorf("%w: loan %s", model.ErrNotFound, id)
	}
	if !l.Open() {
		return fmt.Errorf("%w: loan %s already closed", model.ErrConflict, id)
	}
	rd := returnDate
	l.ReturnDate = &rd
	l.Fine = fine
	return nil
}

func (t tx) ListLoansForUser(_ context.Context, userID uuid.UUID, openOnly bool) ([]model.Loan, error) {
	var loans []model.Loan
	for _, l := range t.st.loans {
		if l.UserID != userID {
			continue
		}
		if openOnly && !l.Open() {
			continue
		}
		loans = append(loans, *l)
	}
	sort.Slice(loans, func(i, j int) bool {
		if !loans[i].LoanDate.Equal(loans[j].LoanDate) {
			return loans[i].LoanDate.After(loans[j].LoanDate)
		}
		return loans[i].ID.String() < loans[j].ID.String()
	})
	return loans, nil
}

func (t tx) UserLoanStats(_ context.Context, userID uuid.UUID) (*model.LoanStats, error) {
	stats := &model.LoanStats{}
	for _, l := range t.st.loans {
		if l.UserID != userID {
			continue
		}
		stats.TotalBorrowed++
		if l.Open() {
			stats.CurrentlyBorrowed++
		}
		stats.TotalFines += l.Fine
	}
	return stats, nil
}

// --- Users ---

func (t tx) InsertUser(_ context.Context, u *model.User) error {
	for _, existing := range t.st.users {
		if existing.Username == u.Username {
			return fmt.Errorf("%w: username %q taken", model.ErrConflict, u.Username)
		}
	}
	v := *u
	t.st.users[u.ID] = &v
	return nil
}

func (t tx) GetUser(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", model.ErrNotFound, id)
	}
	v := *u
	return &v, nil
}

func (t tx) GetUserByName(_ context.Context, username string) (*model.User, error) {
	for _, u := range t.st.users {
		if u.Username == username {
			v := *u
			return &v, nil
		}
	}
	return nil, fmt.Errorf("%w: user %q", model.ErrNotFound, username)
}

func (t tx) ListUsers(_ context.Context) ([]model.User, error) {
	var users []model.User
	for _, u := range t.st.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (t tx) UpdateUserRole(_ context.Context, id uuid.UUID, role model.Role) error {
	u, ok := t.st.users[id]
	if !ok {
		return fmt.Errorf("%w: user %s", model.ErrNotFound, id)
	}
	u.Role = role
	return nil
}

func (t tx) UpdateUserPassword(_ context.Context, id uuid.UUID, hash, salt string) error {
	u, ok := t.st.users[id]
	if !ok {
		return fmt.Errorf("%w: user %s", model.ErrNotFound, id)
	}
	u.PasswordHash = hash
	u.Salt = salt
	return nil
}

func (t tx) DeleteUser(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.users[id]; !ok {
		return fmt.Errorf("%w: user %s", model.ErrNotFound, id)
	}
	delete(t.st.users, id)
	return nil
}
